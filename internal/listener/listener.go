// Package listener provides a Postgres LISTEN/NOTIFY consumer for data
// change events. It holds a dedicated pgx connection (not from the pool)
// listening on the `courtside_data_changed` channel, fed by statement
// triggers on every table.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

// Channel is the notification channel the schema triggers publish on.
const Channel = "courtside_data_changed"

const (
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// Event is the JSON payload of one notification.
type Event struct {
	Table string `json:"table"`
	Op    string `json:"op"`
}

// ParseEvent decodes a notification payload.
func ParseEvent(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, err
	}
	if ev.Table == "" {
		return Event{}, fmt.Errorf("payload %q has no table", payload)
	}
	return ev, nil
}

// Start opens a dedicated connection and calls handle for every event. It
// reconnects with backoff on connection loss and blocks until ctx is
// cancelled. Intended to be called with `go`. handle runs on the listener
// goroutine and must not block.
func Start(ctx context.Context, dbURL string, handle func(Event), logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, dbURL, handle, logger, func() { backoff = reconnectBackoff })
		if ctx.Err() != nil {
			logger.Info("Change listener stopped (context cancelled)")
			return
		}

		logger.Error("Change listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func listenLoop(ctx context.Context, dbURL string, handle func(Event), logger *slog.Logger, connected func()) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	_, err = conn.Exec(ctx, "LISTEN "+Channel)
	if err != nil {
		return fmt.Errorf("LISTEN %s: %w", Channel, err)
	}
	connected()
	logger.Info("Change listener connected", "channel", Channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		ev, err := ParseEvent(notification.Payload)
		if err != nil {
			logger.Warn("Failed to parse change event",
				"payload", notification.Payload, "error", err)
			continue
		}
		logger.Debug("Change event received", "table", ev.Table, "op", ev.Op)
		handle(ev)
	}
}
