package socket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qareview/internal/overrides"
	"qareview/internal/review/service"
	"qareview/internal/workset"
	"qareview/store"
)

type memKV struct {
	mu     sync.Mutex
	values map[string]string
}

func (m *memKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memKV) Put(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Helper function to read messages from a WebSocket connection with a timeout.
func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	var msg WSMessage
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, p, err := conn.ReadMessage()
	require.NoError(t, err, "Failed to read message from WebSocket")
	require.NoError(t, json.Unmarshal(p, &msg), "Failed to unmarshal WSMessage JSON")
	return msg
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	data, err := json.Marshal(WSMessage{Type: typ, Payload: raw})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func records(t *testing.T, msg WSMessage) []store.Record {
	t.Helper()
	var out []store.Record
	require.NoError(t, json.Unmarshal(msg.Payload, &out))
	return out
}

type fixture struct {
	hub   *Hub
	svc   *service.ReviewService
	kv    *memKV
	wsURL string
}

func setup(t *testing.T, editRate float64) fixture {
	t.Helper()
	kv := &memKV{values: map[string]string{}}
	base := []store.Record{
		{DocumentID: "h1", Domain: "history", Question: "q", Answer: "a", ChunkTexts: store.SingleChunk("c")},
		{DocumentID: "h2", Domain: "history", Question: "q", Answer: "a", ChunkTexts: store.SingleChunk("c")},
		{DocumentID: "s1", Domain: "science", Question: "q", Answer: "a", ChunkTexts: store.SingleChunk("c")},
	}
	state := workset.NewStore()
	svc := service.NewReviewService(state, overrides.NewBridge(kv), func() ([]store.Record, error) { return base, nil }, time.Hour)
	t.Cleanup(svc.Dispose)
	require.NoError(t, svc.Load(context.Background()))

	hub := NewHub(svc)
	state.Subscribe(func(workset.State) { hub.StateChanged() })
	svc.OnSave(hub.NotifySave)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r, r.URL.Query().Get("reviewer"), editRate)
	}))
	t.Cleanup(server.Close)

	return fixture{hub: hub, svc: svc, kv: kv, wsURL: "ws" + strings.TrimPrefix(server.URL, "http")}
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubIntegration(t *testing.T) {
	f := setup(t, 100)

	// Reviewer 1 joins the history room and receives its records.
	conn1 := dial(t, f.wsURL+"/ws?domain=history&reviewer=r1")
	initial := readMessage(t, conn1)
	assert.Equal(t, SnapshotType, initial.Type)
	assert.Equal(t, "history", initial.Domain)
	assert.Len(t, records(t, initial), 2)
	assert.Equal(t, PresenceUpdateType, readMessage(t, conn1).Type)

	// Reviewer 2 joins the same room.
	conn2 := dial(t, f.wsURL+"/ws?domain=history&reviewer=r2")
	assert.Equal(t, SnapshotType, readMessage(t, conn2).Type)
	assert.Equal(t, PresenceUpdateType, readMessage(t, conn2).Type)

	presence := readMessage(t, conn1)
	assert.Equal(t, PresenceUpdateType, presence.Type)
	var statuses []Presence
	require.NoError(t, json.Unmarshal(presence.Payload, &statuses))
	require.Len(t, statuses, 2)
	reviewers := []string{statuses[0].ReviewerID, statuses[1].ReviewerID}
	assert.ElementsMatch(t, []string{"r1", "r2"}, reviewers)

	// Reviewer 2 edits an answer; both see the new snapshot.
	send(t, conn2, EditType, EditPayload{Key: "h2-q-a", Field: "answer", Value: "revised"})
	for _, conn := range []*websocket.Conn{conn1, conn2} {
		msg := readMessage(t, conn)
		require.Equal(t, SnapshotType, msg.Type)
		assert.Equal(t, "revised", records(t, msg)[1].Answer)
	}
	assert.True(t, f.svc.SavePending())

	// Status marks go through the same path.
	send(t, conn1, StatusType, StatusPayload{Key: "h1-q-a", Status: store.StatusCorrect})
	msg := readMessage(t, conn1)
	require.Equal(t, SnapshotType, msg.Type)
	assert.Equal(t, store.StatusCorrect, records(t, msg)[0].Status)
	_ = readMessage(t, conn2)

	// An explicit save is announced to everyone.
	send(t, conn1, SaveType, struct{}{})
	assert.Equal(t, SavedType, readMessage(t, conn1).Type)
	assert.Equal(t, SavedType, readMessage(t, conn2).Type)
	_, found, _ := f.kv.Get(context.Background(), overrides.StorageKey)
	assert.True(t, found)
}

func TestHubRejectsBadMessages(t *testing.T) {
	f := setup(t, 100)
	conn := dial(t, f.wsURL+"/ws?reviewer=r1")

	initial := readMessage(t, conn)
	assert.Equal(t, "history", initial.Domain, "the first domain is the default room")
	_ = readMessage(t, conn)

	send(t, conn, "DELETE_EVERYTHING", struct{}{})
	assert.Equal(t, ErrorType, readMessage(t, conn).Type)

	send(t, conn, EditType, EditPayload{Key: "h1-q-a", Field: "domain", Value: "x"})
	msg := readMessage(t, conn)
	assert.Equal(t, ErrorType, msg.Type)
	assert.Contains(t, string(msg.Payload), "question or answer")

	send(t, conn, StatusType, StatusPayload{Key: "h1-q-a", Status: "maybe"})
	assert.Equal(t, ErrorType, readMessage(t, conn).Type)
}

func TestHubThrottlesEdits(t *testing.T) {
	f := setup(t, 1)
	conn := dial(t, f.wsURL+"/ws?domain=science&reviewer=r1")
	_ = readMessage(t, conn)
	_ = readMessage(t, conn)

	send(t, conn, StatusType, StatusPayload{Key: "s1-q-a", Status: store.StatusCorrect})
	send(t, conn, StatusType, StatusPayload{Key: "s1-q-a", Status: store.StatusIncorrect})

	types := []string{readMessage(t, conn).Type, readMessage(t, conn).Type}
	assert.ElementsMatch(t, []string{SnapshotType, ErrorType}, types)
	assert.Equal(t, store.StatusCorrect, f.svc.Records("science")[0].Status)
}

func TestNotifySaveFailure(t *testing.T) {
	f := setup(t, 100)
	conn := dial(t, f.wsURL+"/ws?domain=science&reviewer=r1")
	_ = readMessage(t, conn)
	_ = readMessage(t, conn)

	f.hub.NotifySave(errors.New("quota exceeded"))
	msg := readMessage(t, conn)
	assert.Equal(t, SaveFailedType, msg.Type)
	assert.Contains(t, string(msg.Payload), "quota exceeded")
}

func TestStoppedHubDoesNotBlockNotifications(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hub.Run(ctx)

	for range 20 {
		hub.NotifySave(nil)
	}
}
