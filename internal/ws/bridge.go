package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/anypay/events-server/internal/database"
	"github.com/anypay/events-server/internal/dispatcher"
	"github.com/anypay/events-server/internal/domain"
	"github.com/anypay/events-server/internal/pubsub"
	"github.com/anypay/events-server/internal/session"
)

// writeTimeout bounds a single transport write so a stuck peer cannot pin
// the writer pump forever.
const writeTimeout = 10 * time.Second

// Bridge manages websocket connections and routes inbound requests to the
// dispatcher or the invoice store, and bus events out to subscribed
// sessions.
type Bridge struct {
	sessions   *session.Manager
	dispatcher *dispatcher.Dispatcher
	store      database.InvoiceStore
	validate   *validator.Validate
}

// NewBridge wires the bridge to its collaborators.
func NewBridge(sessions *session.Manager, d *dispatcher.Dispatcher, store database.InvoiceStore) *Bridge {
	return &Bridge{
		sessions:   sessions,
		dispatcher: d,
		store:      store,
		validate:   validator.New(),
	}
}

// Handler returns an echo.HandlerFunc that upgrades the request and runs the
// connection until the peer disconnects or a transport error occurs.
func (b *Bridge) Handler() echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
			InsecureSkipVerify: true, // In production, check origin.
		})
		if err != nil {
			slog.Error("Failed to upgrade connection to WebSocket", "error", err)
			return err
		}

		sess := session.New()
		b.sessions.Add(sess)
		slog.Info("New connection", "sessionID", sess.ID, "remote", c.Request().RemoteAddr)

		go writePump(conn, sess)
		b.readLoop(c.Request().Context(), conn, sess)

		// Teardown runs exactly once: the read loop is the only exit path,
		// whichever side failed first. Deregister from the dispatcher before
		// the session table so publishes stop targeting the session.
		b.dispatcher.RemoveSession(sess.ID)
		b.sessions.Remove(sess.ID)
		slog.Info("Connection closed", "sessionID", sess.ID)
		return nil
	}
}

// readLoop decodes inbound frames and writes one response per request back
// through the session's queue. It returns on any transport-level failure;
// decode failures only produce an error response.
func (b *Bridge) readLoop(ctx context.Context, conn *websocket.Conn, sess *session.Session) {
	defer conn.Close(websocket.StatusNormalClosure, "Client disconnected")

	for {
		_, frame, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || websocket.CloseStatus(err) == websocket.StatusGoingAway {
				slog.Info("WebSocket closed normally by client", "sessionID", sess.ID)
			} else if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				slog.Error("WebSocket read error", "sessionID", sess.ID, "error", err)
			}
			return
		}

		resp := b.handleFrame(ctx, sess, frame)

		payload, err := json.Marshal(resp)
		if err != nil {
			slog.Error("Failed to marshal response", "sessionID", sess.ID, "error", err)
			continue
		}
		if err := sess.Send(payload); err != nil {
			// The session was torn down under us; stop reading.
			return
		}
	}
}

// handleFrame decodes one request and dispatches it.
func (b *Bridge) handleFrame(ctx context.Context, sess *session.Session, frame []byte) Response {
	req, err := decodeRequest(frame)
	if err != nil {
		return Error(err.Error())
	}

	switch req.Action {
	case ActionSubscribe:
		b.dispatcher.Subscribe(sess.ID, *req.Type, *req.ID)
		return Success(fmt.Sprintf("Subscribed to %s %s", *req.Type, *req.ID))

	case ActionUnsubscribe:
		b.dispatcher.Unsubscribe(sess.ID, *req.Type, *req.ID)
		return Success(fmt.Sprintf("Unsubscribed from %s %s", *req.Type, *req.ID))

	case ActionFetchInvoice:
		invoice, err := b.store.GetInvoice(ctx, *req.ID, true)
		if errors.Is(err, domain.ErrInvoiceNotFound) {
			return Error("Invoice not found")
		}
		if err != nil {
			return Error(fmt.Sprintf("Error fetching invoice: %s", err))
		}
		return SuccessData(invoice)

	case ActionCreateInvoice:
		create := domain.CreateInvoiceRequest{
			Amount:    *req.Amount,
			Currency:  *req.Currency,
			AccountID: *req.AccountID,
		}
		if err := b.validate.Struct(create); err != nil {
			return Error(fmt.Sprintf("Error creating invoice: %s", err))
		}
		invoice, err := b.store.CreateInvoice(ctx, create)
		if err != nil {
			return Error(fmt.Sprintf("Error creating invoice: %s", err))
		}
		return SuccessData(invoice)
	}

	// decodeRequest already rejected unknown actions.
	return Error(errInvalidMessage.Error())
}

// writePump drains the session's outbound queue to the transport. It owns
// the receive side of the channel and is the only writer to the connection,
// so per-session FIFO order holds end to end.
func writePump(conn *websocket.Conn, sess *session.Session) {
	defer conn.Close(websocket.StatusNormalClosure, "Server-side cleanup")

	for message := range sess.Outbound() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := conn.Write(ctx, websocket.MessageText, message)
		cancel()
		if err != nil {
			slog.Error("WebSocket write error", "sessionID", sess.ID, "error", err)
			// Closing the connection unblocks the read loop, which runs the
			// session teardown and closes the channel.
			return
		}
	}
}

// RelayInvoiceEvents subscribes to the invoice event topic on the bus and
// fans each event out to the sessions subscribed to its (type, id) topic.
func (b *Bridge) RelayInvoiceEvents(ctx context.Context, sub pubsub.Subscriber) error {
	return sub.Subscribe(ctx, pubsub.TopicInvoiceEvents, func(ctx context.Context, msg pubsub.Message) error {
		var event struct {
			Type string `json:"type"`
			ID   string `json:"id"`
		}
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			return fmt.Errorf("malformed invoice event: %w", err)
		}
		if event.Type == "" || event.ID == "" {
			return fmt.Errorf("invoice event missing topic fields")
		}
		b.dispatcher.Publish(event.Type, event.ID, msg.Payload)
		return nil
	})
}
