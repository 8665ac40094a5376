package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/surrealdb/surrealdb.go"
	surrealconn "github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/anypay/events-server/internal/pubsub"
)

// InvoiceEvent is the payload published on the bus (and ultimately relayed
// to subscribed clients) for every invoice change.
type InvoiceEvent struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Action string `json:"action"`
	Data   any    `json:"data,omitempty"`
}

// Watcher turns SurrealDB live query notifications on the invoice table into
// messages on the pub/sub bus. It is the external event source the relay
// fans out from: any writer to the invoice table (this process or another
// one) triggers delivery to subscribed sessions.
type Watcher struct {
	db        *surrealdb.DB
	publisher pubsub.Publisher
}

// NewWatcher creates a watcher publishing to the given bus.
func NewWatcher(db *surrealdb.DB, publisher pubsub.Publisher) *Watcher {
	return &Watcher{db: db, publisher: publisher}
}

// Run establishes the live query and relays notifications until the context
// is canceled or the notification channel closes.
func (w *Watcher) Run(ctx context.Context) error {
	liveQueryID, err := w.startLiveQuery(ctx)
	if err != nil {
		return err
	}

	notifications, err := w.db.LiveNotifications(liveQueryID)
	if err != nil {
		return fmt.Errorf("failed to get notification channel: %w", err)
	}

	slog.Info("Invoice watcher started", "liveQueryID", liveQueryID)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case notification, ok := <-notifications:
			if !ok {
				slog.Warn("Invoice live query notification channel closed")
				return nil
			}
			w.relay(ctx, notification)
		}
	}
}

// startLiveQuery issues the LIVE SELECT and extracts the live query UUID.
func (w *Watcher) startLiveQuery(ctx context.Context) (string, error) {
	results, err := surrealdb.Query[any](ctx, w.db, "LIVE SELECT * FROM invoice", nil)
	if err != nil {
		return "", fmt.Errorf("failed to start invoice live query: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return "", fmt.Errorf("invoice live query returned no results")
	}

	result := (*results)[0]
	if result.Status != "OK" {
		return "", fmt.Errorf("invoice live query failed with status: %s", result.Status)
	}

	switch v := result.Result.(type) {
	case string:
		return v, nil
	case models.UUID:
		return v.String(), nil
	default:
		return "", fmt.Errorf("unexpected live query result type: %T", result.Result)
	}
}

// relay converts one notification into an InvoiceEvent and publishes it.
func (w *Watcher) relay(ctx context.Context, notification surrealconn.Notification) {
	var action string
	switch notification.Action {
	case surrealconn.CreateAction:
		action = "CREATE"
	case surrealconn.UpdateAction:
		action = "UPDATE"
	case surrealconn.DeleteAction:
		action = "DELETE"
	default:
		slog.Warn("Unknown live query action", "action", notification.Action)
		return
	}

	event := InvoiceEvent{
		Type:   "invoice",
		ID:     extractUID(notification.Result),
		Action: action,
		Data:   notification.Result,
	}
	if event.ID == "" {
		slog.Warn("Invoice notification without uid, dropping", "action", action)
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal invoice event", "error", err)
		return
	}

	msg := pubsub.Message{
		Topic:    pubsub.TopicInvoiceEvents,
		Payload:  payload,
		Metadata: map[string]string{"action": action},
	}
	if err := w.publisher.Publish(ctx, msg); err != nil {
		slog.Error("Failed to publish invoice event", "uid", event.ID, "error", err)
	}
}

// extractUID pulls the invoice uid out of a live query result record.
func extractUID(result any) string {
	record, ok := result.(map[string]any)
	if !ok {
		return ""
	}
	uid, _ := record["uid"].(string)
	return uid
}
