package socket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"qareview/pkg/logger"
)

const (
	pingPeriod   = 30 * time.Second
	writeWait    = 10 * time.Second
	sendBuffer   = 256
	maxFrameSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The review UI may be served from a dev server on another port.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Client struct {
	Hub        *Hub
	Conn       *websocket.Conn
	ID         string
	Domain     string
	ReviewerID string
	Send       chan []byte
	limiter    *rate.Limiter
}

// ServeWs upgrades the request and joins the reviewer to the room of the
// requested domain, or the first domain when none is given. editRate caps
// EDIT and STATUS messages per second for this connection.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, reviewerID string, editRate float64) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Sugar.Error(err)
		return
	}

	domain := r.URL.Query().Get("domain")
	if domain == "" {
		domain = hub.reviewer.DefaultDomain()
	}

	burst := int(editRate)
	if burst < 1 {
		burst = 1
	}
	client := &Client{
		Hub:        hub,
		Conn:       conn,
		ID:         uuid.NewString(),
		Domain:     domain,
		ReviewerID: reviewerID,
		Send:       make(chan []byte, sendBuffer),
		limiter:    rate.NewLimiter(rate.Limit(editRate), burst),
	}

	select {
	case hub.Register <- client:
	case <-hub.done:
		conn.Close()
		return
	}
	logger.Sugar.Infof("Reviewer %s joined %q (%s)", reviewerID, domain, client.ID)

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.Unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxFrameSize)

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Sugar.Errorf("error: %v", err)
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.Sugar.Errorf("Error unmarshalling message: %v", err)
			continue
		}
		// Server-authoritative fields.
		msg.Domain = c.Domain
		msg.ReviewerID = c.ReviewerID

		if (msg.Type == EditType || msg.Type == StatusType) && !c.limiter.Allow() {
			logger.Sugar.Warnf("Rate limited reviewer %s on %s", c.ReviewerID, c.ID)
			msg = WSMessage{Type: rateLimitedType, Domain: c.Domain, ReviewerID: c.ReviewerID}
		}

		select {
		case c.Hub.incoming <- inbound{client: c, msg: msg}:
		case <-c.Hub.done:
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
