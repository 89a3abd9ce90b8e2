package model

import "qareview/store"

type EditRequest struct {
	Key   string `json:"key"`
	Field string `json:"field"`
	Value string `json:"value"`
}

type EditResponse struct {
	Key string `json:"key"`
}

type StatusRequest struct {
	Key    string       `json:"key"`
	Status store.Status `json:"status"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
	Records int    `json:"records"`
	Pending bool   `json:"save_pending"`
}

type DomainsResponse struct {
	Default string        `json:"default"`
	Domains []DomainCount `json:"domains"`
}

type DomainCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
	Label  string `json:"label"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
