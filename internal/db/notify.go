package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/tenantdesk/tenantdesk/internal/dbpool"
	"github.com/tenantdesk/tenantdesk/internal/docstore"
)

// validChannel matches safe PostgreSQL LISTEN channel names.
var validChannel = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const (
	initialBackoff    = 1 * time.Second
	maxBackoff        = 30 * time.Second
	backoffMultiplier = 2
)

// Sink receives document change events decoded from the notify channel.
type Sink interface {
	HandleDocChange(ev docstore.ChangeEvent)
}

// NotifyBridge subscribes to PostgreSQL LISTEN/NOTIFY on the document
// change channel and fans each event out to its sinks. It is the single
// LISTEN connection for the whole process; per-document subscriptions
// multiplex on top of it.
type NotifyBridge struct {
	log   *logrus.Logger
	pool  *dbpool.Pool
	sinks []Sink
}

// NewNotifyBridge creates a NotifyBridge wired to the given pool and sinks.
func NewNotifyBridge(log *logrus.Logger, pool *dbpool.Pool, sinks ...Sink) *NotifyBridge {
	return &NotifyBridge{
		log:   log,
		pool:  pool,
		sinks: sinks,
	}
}

// Start launches the LISTEN/NOTIFY loop in a background goroutine. It
// verifies the database is reachable before returning; the goroutine
// handles reconnection for subsequent failures.
func (b *NotifyBridge) Start(ctx context.Context) error {
	if !validChannel.MatchString(docstore.NotifyChannel) {
		return fmt.Errorf("notify bridge: invalid channel name %q", docstore.NotifyChannel)
	}

	if err := b.pool.Ping(ctx); err != nil {
		return fmt.Errorf("notify bridge: database not reachable: %w", err)
	}

	go b.listen(ctx)

	return nil
}

// listen acquires a connection, subscribes, and processes notifications
// until the context is cancelled, reconnecting with backoff on failure.
func (b *NotifyBridge) listen(ctx context.Context) {
	backoff := initialBackoff

	for {
		if ctx.Err() != nil {
			return
		}

		err := b.subscribeAndForward(ctx)
		if err == nil || ctx.Err() != nil {
			return
		}

		b.log.WithError(err).WithField("retry_in", backoff).
			Warn("notify bridge connection lost, reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff = nextBackoff(backoff)
	}
}

// subscribeAndForward issues LISTEN and blocks on notifications until
// the connection fails or the context is cancelled.
func (b *NotifyBridge) subscribeAndForward(ctx context.Context) error {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	// LISTEN requires the channel name inline (not a parameter), so we use
	// pgx.Identifier to safely quote/sanitize the channel name.
	sanitizedChannel := pgx.Identifier{docstore.NotifyChannel}.Sanitize()
	if _, err := conn.Exec(ctx, "LISTEN "+sanitizedChannel); err != nil {
		return fmt.Errorf("executing LISTEN: %w", err)
	}

	b.log.WithField("channel", docstore.NotifyChannel).Info("notify bridge listening")

	for {
		// Set a 2-minute read deadline so we periodically check ctx cancellation.
		if err := conn.Conn().PgConn().Conn().SetReadDeadline(time.Now().Add(2 * time.Minute)); err != nil {
			return fmt.Errorf("setting read deadline: %w", err)
		}

		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// On timeout, loop back to check context and retry.
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}

			return fmt.Errorf("waiting for notification: %w", err)
		}

		b.handleNotification(notification)
	}
}

// handleNotification decodes one payload and fans it out.
func (b *NotifyBridge) handleNotification(n *pgconn.Notification) {
	b.log.WithFields(logrus.Fields{
		"channel": n.Channel,
		"pid":     n.PID,
	}).Debug("notification received")

	var ev docstore.ChangeEvent
	if err := json.Unmarshal([]byte(n.Payload), &ev); err != nil || ev.Path == "" {
		b.log.Warn("dropping notification without document path")
		return
	}

	for _, sink := range b.sinks {
		sink.HandleDocChange(ev)
	}
}

// nextBackoff doubles the current backoff duration with random jitter (±25%),
// capped at maxBackoff. Jitter prevents thundering herd on reconnect.
func nextBackoff(current time.Duration) time.Duration {
	next := current * backoffMultiplier
	if next > maxBackoff {
		next = maxBackoff
	}

	// Add ±25% jitter.
	jitter := float64(next) * (0.75 + rand.Float64()*0.5) //nolint:gosec // jitter doesn't need crypto rand.

	return time.Duration(jitter)
}
