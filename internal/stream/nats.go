// Package stream publishes stable readings to NATS so downstream consumers
// (the music policy, dashboards) can react without polling.
package stream

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"vibesense-service/internal/models"
)

// SubjectPrefix is the subject root for published readings; the user id is
// appended as the final token.
const SubjectPrefix = "vibesense.heart."

// Connect dials NATS with aggressive reconnects.
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(
		url,
		nats.Name("vibesense-service"),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
	)
}

// Publisher emits published readings as JSON events.
type Publisher struct {
	conn   *nats.Conn
	logger *zap.Logger
}

// NewPublisher wraps an established connection.
func NewPublisher(conn *nats.Conn, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{conn: conn, logger: logger}
}

// PublishReading emits one reading on vibesense.heart.<userID>.
func (p *Publisher) PublishReading(r models.StableReading) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	userID := r.UserID
	if userID == "" {
		userID = models.DefaultUser
	}

	if err := p.conn.Publish(SubjectPrefix+userID, data); err != nil {
		return fmt.Errorf("failed to publish reading: %w", err)
	}
	p.logger.Debug("published reading event",
		zap.String("subject", SubjectPrefix+userID),
		zap.Float64("bpm", r.BPM))
	return nil
}

// Connected reports whether the underlying connection is up.
func (p *Publisher) Connected() bool {
	return p.conn != nil && p.conn.IsConnected()
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
