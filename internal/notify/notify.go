// Package notify publishes finished run results to NATS so editors and other
// tools can react without polling the run directory.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	ferrors "git.home.luguber.info/inful/ddd/internal/foundation/errors"
	"git.home.luguber.info/inful/ddd/internal/logfields"
	"git.home.luguber.info/inful/ddd/internal/pipeline"
	"git.home.luguber.info/inful/ddd/internal/retry"
)

const flushTimeout = 2 * time.Second

// publisher is the subset of *nats.Conn used here.
type publisher interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// Publisher sends run results as JSON on "<subject>.<target>".
// A nil *Publisher is valid and drops everything.
type Publisher struct {
	conn    publisher
	subject string
	policy  retry.Policy
	logger  *slog.Logger
}

// Connect dials url. An empty url returns a nil Publisher and no error.
func Connect(url, subject string, logger *slog.Logger) (*Publisher, error) {
	if strings.TrimSpace(url) == "" {
		return nil, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := nats.Connect(url, nats.Name("ddd"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, ferrors.NotifyError("connect to NATS").WithCause(err).
			WithContext("url", url).
			Build()
	}
	logger.Info("NATS publisher connected", slog.String("url", url), slog.String("subject", subject))
	return newPublisher(conn, subject, logger), nil
}

func newPublisher(conn publisher, subject string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:    conn,
		subject: subject,
		policy:  retry.NewPolicy(retry.Exponential, 100*time.Millisecond, time.Second, 2),
		logger:  logger,
	}
}

// Subject returns the subject used for target.
func (p *Publisher) Subject(target string) string {
	if target == "" {
		return p.subject
	}
	return p.subject + "." + target
}

// PublishResult sends res. Errors are returned for the caller to log; a
// failed publish never affects the run.
func (p *Publisher) PublishResult(ctx context.Context, res *pipeline.Result) error {
	if p == nil || res == nil {
		return nil
	}
	data, err := json.Marshal(res)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "marshal run result").Build()
	}
	subject := p.Subject(res.Target)
	err = p.policy.Do(ctx, nil, func() error {
		if err := p.conn.Publish(subject, data); err != nil {
			return ferrors.NotifyError("publish run result").WithCause(err).
				WithContext("subject", subject).
				Build()
		}
		if err := p.conn.FlushTimeout(flushTimeout); err != nil {
			return ferrors.NotifyError("flush NATS connection").WithCause(err).
				WithContext("subject", subject).
				Build()
		}
		return nil
	})
	if err != nil {
		return err
	}
	p.logger.Debug("Published run result", logfields.RunID(res.RunID), slog.String("subject", subject))
	return nil
}

// Close closes the connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.conn.Close()
}
