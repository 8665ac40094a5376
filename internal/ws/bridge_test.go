package ws_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anypay/events-server/internal/dispatcher"
	"github.com/anypay/events-server/internal/domain"
	"github.com/anypay/events-server/internal/pubsub"
	"github.com/anypay/events-server/internal/session"
	"github.com/anypay/events-server/internal/ws"
)

// stubStore implements database.InvoiceStore against an in-memory map.
type stubStore struct {
	invoices map[string]*domain.Invoice
	fail     error
}

func newStubStore() *stubStore {
	return &stubStore{invoices: make(map[string]*domain.Invoice)}
}

func (s *stubStore) GetInvoice(ctx context.Context, id string, expandRelated bool) (*domain.Invoice, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	invoice, ok := s.invoices[id]
	if !ok {
		return nil, domain.ErrInvoiceNotFound
	}
	return invoice, nil
}

func (s *stubStore) CreateInvoice(ctx context.Context, req domain.CreateInvoiceRequest) (*domain.Invoice, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	invoice := &domain.Invoice{
		ID:        int64(len(s.invoices) + 1),
		UID:       "created-uid",
		Amount:    req.Amount,
		Currency:  req.Currency,
		AccountID: req.AccountID,
		Status:    "unpaid",
	}
	s.invoices[invoice.UID] = invoice
	return invoice, nil
}

// fixture wires a bridge behind a real HTTP server.
type fixture struct {
	bridge     *ws.Bridge
	sessions   *session.Manager
	dispatcher *dispatcher.Dispatcher
	store      *stubStore
	server     *httptest.Server
}

func setup(t *testing.T) *fixture {
	t.Helper()

	sessions := session.NewManager()
	d := dispatcher.New(sessions)
	store := newStubStore()
	bridge := ws.NewBridge(sessions, d, store)

	e := echo.New()
	e.GET("/ws", bridge.Handler())
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	return &fixture{
		bridge:     bridge,
		sessions:   sessions,
		dispatcher: d,
		store:      store,
		server:     server,
	}
}

// dial opens a websocket to the fixture's server.
func (f *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "test done") })
	return conn
}

// roundTrip sends one frame and returns the decoded response.
func roundTrip(t *testing.T, conn *websocket.Conn, frame string) ws.Response {
	t.Helper()
	send(t, conn, frame)
	return readResponse(t, conn)
}

func send(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(frame)))
}

func readResponse(t *testing.T, conn *websocket.Conn) ws.Response {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, payload, err := conn.Read(ctx)
	require.NoError(t, err)

	var resp ws.Response
	require.NoError(t, json.Unmarshal(payload, &resp))
	return resp
}

// waitForSessions blocks until the session table reaches the given size.
func (f *fixture) waitForSessions(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.sessions.Len() == n
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubscribeConfirmation(t *testing.T) {
	f := setup(t)
	conn := f.dial(t)

	resp := roundTrip(t, conn, `{"action":"subscribe","type":"invoice","id":"42"}`)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "Subscribed to invoice 42", resp.Message)
}

func TestUnsubscribeConfirmation(t *testing.T) {
	f := setup(t)
	conn := f.dial(t)

	resp := roundTrip(t, conn, `{"action":"unsubscribe","type":"invoice","id":"42"}`)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "Unsubscribed from invoice 42", resp.Message)
}

func TestSubscribeThenPublishDeliversUnprompted(t *testing.T) {
	f := setup(t)
	conn := f.dial(t)

	resp := roundTrip(t, conn, `{"action":"subscribe","type":"invoice","id":"42"}`)
	require.Equal(t, "success", resp.Status)

	f.dispatcher.Publish("invoice", "42", []byte(`{"type":"invoice","id":"42","action":"UPDATE"}`))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, payload, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"invoice","id":"42","action":"UPDATE"}`, string(payload))
}

func TestFetchInvoiceFound(t *testing.T) {
	f := setup(t)
	f.store.invoices["abc"] = &domain.Invoice{ID: 1, UID: "abc", Amount: 5000, Currency: "USD", Status: "unpaid", AccountID: 7}
	conn := f.dial(t)

	resp := roundTrip(t, conn, `{"action":"fetch_invoice","id":"abc"}`)
	require.Equal(t, "success", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data must carry the invoice object")
	assert.Equal(t, "abc", data["uid"])
	assert.Equal(t, float64(5000), data["amount"])
}

func TestFetchInvoiceNotFound(t *testing.T) {
	f := setup(t)
	conn := f.dial(t)

	resp := roundTrip(t, conn, `{"action":"fetch_invoice","id":"does-not-exist"}`)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "Invoice not found", resp.Message)
}

func TestFetchInvoiceServiceError(t *testing.T) {
	f := setup(t)
	f.store.fail = assert.AnError
	conn := f.dial(t)

	resp := roundTrip(t, conn, `{"action":"fetch_invoice","id":"abc"}`)
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Message, "Error fetching invoice")
}

func TestCreateInvoice(t *testing.T) {
	f := setup(t)
	conn := f.dial(t)

	resp := roundTrip(t, conn, `{"action":"create_invoice","amount":5000,"currency":"USD","account_id":7}`)
	require.Equal(t, "success", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(5000), data["amount"])
	assert.Equal(t, "USD", data["currency"])
	assert.Equal(t, "unpaid", data["status"])
}

func TestCreateInvoiceRejectsBadFields(t *testing.T) {
	f := setup(t)
	conn := f.dial(t)

	resp := roundTrip(t, conn, `{"action":"create_invoice","amount":-5,"currency":"US DOLLARS","account_id":7}`)
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Message, "Error creating invoice")
}

func TestInvalidFrameKeepsConnectionUsable(t *testing.T) {
	f := setup(t)
	conn := f.dial(t)

	resp := roundTrip(t, conn, `this is not valid structured data`)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "Invalid message format", resp.Message)

	// The connection must survive a decode failure.
	resp = roundTrip(t, conn, `{"action":"subscribe","type":"invoice","id":"42"}`)
	assert.Equal(t, "success", resp.Status)
}

func TestUnknownActionIsMalformed(t *testing.T) {
	f := setup(t)
	conn := f.dial(t)

	resp := roundTrip(t, conn, `{"action":"launch","id":"42"}`)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "Invalid message format", resp.Message)
}

func TestResponsesStayInOrder(t *testing.T) {
	f := setup(t)
	conn := f.dial(t)

	send(t, conn, `{"action":"subscribe","type":"invoice","id":"1"}`)
	send(t, conn, `{"action":"subscribe","type":"invoice","id":"2"}`)
	send(t, conn, `{"action":"subscribe","type":"invoice","id":"3"}`)

	for _, id := range []string{"1", "2", "3"} {
		resp := readResponse(t, conn)
		require.Equal(t, "success", resp.Status)
		assert.Equal(t, "Subscribed to invoice "+id, resp.Message)
	}
}

func TestDisconnectCleansUpSession(t *testing.T) {
	f := setup(t)
	conn := f.dial(t)
	f.waitForSessions(t, 1)

	resp := roundTrip(t, conn, `{"action":"subscribe","type":"invoice","id":"42"}`)
	require.Equal(t, "success", resp.Status)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))
	f.waitForSessions(t, 0)

	// A publish after the disconnect must neither error nor resurrect the
	// session.
	assert.NotPanics(t, func() {
		f.dispatcher.Publish("invoice", "42", []byte(`{"gone":true}`))
	})
	assert.Equal(t, 0, f.sessions.Len())
}

func TestRelayInvoiceEventsBridgesBusToSessions(t *testing.T) {
	f := setup(t)

	bus := pubsub.NewWatermillBridge()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, f.bridge.RelayInvoiceEvents(ctx, bus))

	conn := f.dial(t)
	resp := roundTrip(t, conn, `{"action":"subscribe","type":"invoice","id":"abc"}`)
	require.Equal(t, "success", resp.Status)

	event := `{"type":"invoice","id":"abc","action":"UPDATE","data":{"uid":"abc","status":"paid"}}`
	require.NoError(t, bus.Publish(ctx, pubsub.Message{
		Topic:   pubsub.TopicInvoiceEvents,
		Payload: []byte(event),
	}))

	readCtx, readCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer readCancel()
	_, payload, err := conn.Read(readCtx)
	require.NoError(t, err)
	assert.JSONEq(t, event, string(payload))
}
