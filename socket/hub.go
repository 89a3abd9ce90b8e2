package socket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"qareview/pkg/logger"
	"qareview/store"
)

const (
	SnapshotType       = "SNAPSHOT"        // Records of the client's domain
	PresenceUpdateType = "PRESENCE_UPDATE" // A reviewer joined or left the domain
	EditType           = "EDIT"            // Question/answer text change
	StatusType         = "STATUS"          // Correct/incorrect mark
	SaveType           = "SAVE"            // Explicit save request
	SavedType          = "SAVED"           // Overrides written
	SaveFailedType     = "SAVE_FAILED"     // Overrides could not be written
	ErrorType          = "ERROR"           // Request rejected

	// rateLimitedType replaces a throttled client message; it never goes on the wire.
	rateLimitedType = "rate_limited"
)

type WSMessage struct {
	Type       string          `json:"type"`
	Domain     string          `json:"domain,omitempty"`
	ReviewerID string          `json:"reviewer_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type EditPayload struct {
	Key   string `json:"key"`
	Field string `json:"field"`
	Value string `json:"value"`
}

type StatusPayload struct {
	Key    string       `json:"key"`
	Status store.Status `json:"status"`
}

type Presence struct {
	ReviewerID   string    `json:"reviewer_id"`
	ConnectionID string    `json:"connection_id"`
	JoinedAt     time.Time `json:"joined_at"`
}

// Reviewer is the part of the review service the hub drives.
type Reviewer interface {
	Records(domain string) []store.Record
	DefaultDomain() string
	Edit(key, field, value string) (string, error)
	SetStatus(key string, status store.Status) error
	Save(ctx context.Context) error
}

type inbound struct {
	client *Client
	msg    WSMessage
}

// Hub keeps one room per domain and pushes a fresh SNAPSHOT to every room
// whenever the working set changes.
type Hub struct {
	Rooms      map[string]map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	incoming   chan inbound
	changed    chan struct{}
	notices    chan WSMessage
	done       chan struct{}
	reviewer   Reviewer
	mu         sync.Mutex
	Presence   map[string]map[string]Presence // domain -> connection id -> presence
}

func NewHub(reviewer Reviewer) *Hub {
	return &Hub{
		Rooms:      make(map[string]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		incoming:   make(chan inbound),
		changed:    make(chan struct{}, 1),
		notices:    make(chan WSMessage, 8),
		done:       make(chan struct{}),
		reviewer:   reviewer,
		Presence:   make(map[string]map[string]Presence),
	}
}

// StateChanged marks the rooms stale. Bursts collapse into one refresh.
func (h *Hub) StateChanged() {
	select {
	case h.changed <- struct{}{}:
	default:
	}
}

// NotifySave tells every connected reviewer about the outcome of a write.
func (h *Hub) NotifySave(err error) {
	msg := WSMessage{Type: SavedType}
	if err != nil {
		payload, _ := json.Marshal(map[string]string{"error": err.Error()})
		msg = WSMessage{Type: SaveFailedType, Payload: payload}
	}
	select {
	case h.notices <- msg:
	case <-h.done:
	}
}

// Run processes hub events until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.Register:
			h.mu.Lock()
			if h.Rooms[client.Domain] == nil {
				h.Rooms[client.Domain] = make(map[*Client]bool)
				h.Presence[client.Domain] = make(map[string]Presence)
			}
			h.Rooms[client.Domain][client] = true
			h.Presence[client.Domain][client.ID] = Presence{ReviewerID: client.ReviewerID, ConnectionID: client.ID, JoinedAt: time.Now()}
			h.mu.Unlock()

			h.sendTo(client, h.snapshot(client.Domain))
			h.broadcastPresenceUpdate(client.Domain)

		case client := <-h.Unregister:
			if h.removeClient(client) {
				h.broadcastPresenceUpdate(client.Domain)
			}

		case in := <-h.incoming:
			h.handle(ctx, in.client, in.msg)

		case <-h.changed:
			h.mu.Lock()
			domains := make([]string, 0, len(h.Rooms))
			for d := range h.Rooms {
				domains = append(domains, d)
			}
			h.mu.Unlock()
			for _, d := range domains {
				h.broadcast(d, h.snapshot(d))
			}

		case msg := <-h.notices:
			h.mu.Lock()
			domains := make([]string, 0, len(h.Rooms))
			for d := range h.Rooms {
				domains = append(domains, d)
			}
			h.mu.Unlock()
			for _, d := range domains {
				h.broadcast(d, msg)
			}
		}
	}
}

func (h *Hub) handle(ctx context.Context, c *Client, msg WSMessage) {
	switch msg.Type {
	case EditType:
		var p EditPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.Key == "" {
			h.sendError(c, "invalid edit payload")
			return
		}
		if _, err := h.reviewer.Edit(p.Key, p.Field, p.Value); err != nil {
			h.sendError(c, err.Error())
			return
		}
		logger.Sugar.Debugf("Reviewer %s edited %s of %s", c.ReviewerID, p.Field, p.Key)

	case StatusType:
		var p StatusPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.Key == "" {
			h.sendError(c, "invalid status payload")
			return
		}
		if err := h.reviewer.SetStatus(p.Key, p.Status); err != nil {
			h.sendError(c, err.Error())
			return
		}

	case rateLimitedType:
		h.sendError(c, "too many edits, slow down")

	case SaveType:
		// The save outcome reaches everyone through NotifySave; Run must not
		// block on storage.
		go func() {
			if err := h.reviewer.Save(ctx); err != nil {
				logger.Sugar.Errorf("Save requested by %s failed: %v", c.ReviewerID, err)
			}
		}()

	default:
		h.sendError(c, "unknown message type "+msg.Type)
	}
}

func (h *Hub) snapshot(domain string) WSMessage {
	records := h.reviewer.Records(domain)
	if records == nil {
		records = []store.Record{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling snapshot of %s: %v", domain, err)
		payload = []byte("[]")
	}
	return WSMessage{Type: SnapshotType, Domain: domain, Payload: payload}
}

func (h *Hub) sendError(c *Client, reason string) {
	payload, _ := json.Marshal(map[string]string{"error": reason})
	h.sendTo(c, WSMessage{Type: ErrorType, Domain: c.Domain, Payload: payload})
}

func (h *Hub) sendTo(c *Client, msg WSMessage) {
	// A client removed earlier may still have messages in flight; its Send
	// channel is closed.
	h.mu.Lock()
	_, registered := h.Rooms[c.Domain][c]
	h.mu.Unlock()
	if !registered {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling %s message: %v", msg.Type, err)
		return
	}
	select {
	case c.Send <- data:
	default:
		logger.Sugar.Warnf("Client %s's send buffer is full. Disconnecting.", c.ID)
		if h.removeClient(c) {
			h.broadcastPresenceUpdate(c.Domain)
		}
	}
}

func (h *Hub) broadcast(domain string, msg WSMessage) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.Rooms[domain]))
	for c := range h.Rooms[domain] {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.sendTo(c, msg)
	}
}

// removeClient drops c from its room and closes its send channel. It reports
// whether c was still registered.
func (h *Hub) removeClient(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.Rooms[c.Domain][c]; !ok {
		return false
	}
	delete(h.Rooms[c.Domain], c)
	delete(h.Presence[c.Domain], c.ID)
	close(c.Send)
	if len(h.Rooms[c.Domain]) == 0 {
		delete(h.Rooms, c.Domain)
		delete(h.Presence, c.Domain)
		logger.Sugar.Infof("Closed empty room: %s", c.Domain)
	}
	return true
}

func (h *Hub) broadcastPresenceUpdate(domain string) {
	h.mu.Lock()
	statuses := make([]Presence, 0, len(h.Presence[domain]))
	for _, p := range h.Presence[domain] {
		statuses = append(statuses, p)
	}
	h.mu.Unlock()
	if len(statuses) == 0 {
		return
	}

	payload, err := json.Marshal(statuses)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling presence broadcast: %v", err)
		return
	}
	h.broadcast(domain, WSMessage{Type: PresenceUpdateType, Domain: domain, Payload: payload})
}

func (h *Hub) shutdown() {
	close(h.done)
	h.mu.Lock()
	var clients []*Client
	for _, room := range h.Rooms {
		for c := range room {
			clients = append(clients, c)
		}
	}
	h.mu.Unlock()
	for _, c := range clients {
		h.removeClient(c)
	}
}
