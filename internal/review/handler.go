package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"qareview/internal/record"
	"qareview/internal/review/model"
	"qareview/internal/review/service"
	"qareview/middleware"
	"qareview/pkg/logger"
)

type ReviewHandler struct {
	Service *service.ReviewService
}

func NewReviewHandler(service *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{Service: service}
}

func (h *ReviewHandler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	st := h.Service.Status()
	writeJSON(w, http.StatusOK, model.HealthResponse{
		Status:  "ok",
		Loading: st.Loading,
		Error:   st.Error,
		Records: len(st.Records),
		Pending: h.Service.SavePending(),
	})
}

func (h *ReviewHandler) GetDomains(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	groups := h.Service.Domains()
	resp := model.DomainsResponse{Default: h.Service.DefaultDomain(), Domains: make([]model.DomainCount, 0, len(groups))}
	for _, g := range groups {
		resp.Domains = append(resp.Domains, model.DomainCount{
			Domain: g.Domain,
			Count:  g.Count,
			Label:  fmt.Sprintf("%s (%d)", g.Domain, g.Count),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ReviewHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	domain := q.Get("domain")
	if domain == "" {
		domain = h.Service.DefaultDomain()
	}
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))
	writeJSON(w, http.StatusOK, h.Service.Page(domain, page, pageSize))
}

func (h *ReviewHandler) EditRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	newKey, err := h.Service.Edit(req.Key, req.Field, req.Value)
	if errors.Is(err, record.ErrUnknownField) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		logger.Sugar.Errorf("Handler: Failed to edit record %s: %v", req.Key, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	logger.Sugar.Debugf("Reviewer %s edited %s of %s", middleware.ReviewerFrom(r.Context()), req.Field, req.Key)
	writeJSON(w, http.StatusOK, model.EditResponse{Key: newKey})
}

func (h *ReviewHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req model.StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !req.Status.Valid() {
		http.Error(w, "Invalid status. Must be correct or incorrect", http.StatusBadRequest)
		return
	}

	if err := h.Service.SetStatus(req.Key, req.Status); err != nil {
		logger.Sugar.Errorf("Handler: Failed to set status of %s: %v", req.Key, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	logger.Sugar.Debugf("Reviewer %s marked %s %s", middleware.ReviewerFrom(r.Context()), req.Key, req.Status)
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Status updated"})
}

func (h *ReviewHandler) SaveRecords(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.Service.Save(r.Context()); err != nil {
		logger.Sugar.Errorf("Handler: Failed to save records: %v", err)
		http.Error(w, "Save failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Saved"})
}

func (h *ReviewHandler) ClearStorage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.Service.Clear(r.Context()); err != nil {
		logger.Sugar.Errorf("Handler: Failed to clear storage: %v", err)
		http.Error(w, "Clear failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Storage cleared"})
}

func (h *ReviewHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.Service.Load(r.Context()); err != nil {
		http.Error(w, "Reload failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "Reloaded"})
}

func (h *ReviewHandler) Export(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, filename, err := h.Service.Export(r.URL.Query().Get("domain"))
	if errors.Is(err, record.ErrNoDomain) {
		http.Error(w, "Select a domain before exporting", http.StatusBadRequest)
		return
	}
	if err != nil {
		logger.Sugar.Errorf("Handler: Export failed: %v", err)
		http.Error(w, "Export failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Sugar.Errorf("Handler: Failed to encode response: %v", err)
	}
}
