package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Queue is the fire-and-forget boundary between the booking workflow
// and email delivery. The workflow's contract ends at Enqueue; delivery
// failures are logged and never retried or surfaced.
type Queue struct {
	mailer Mailer
	ch     chan Message
	log    *zap.Logger
}

func NewQueue(mailer Mailer, size int, log *zap.Logger) *Queue {
	return &Queue{
		mailer: mailer,
		ch:     make(chan Message, size),
		log:    log,
	}
}

// Enqueue never blocks the caller. When the buffer is full the message
// is dropped, which is acceptable: the booking itself is the
// authoritative outcome.
func (q *Queue) Enqueue(m Message) {
	select {
	case q.ch <- m:
	default:
		q.log.Warn("notification queue full, dropping message",
			zap.String("to", m.To),
			zap.String("subject", m.Subject),
		)
	}
}

// Run consumes until ctx ends. Sends get their own timeout context so a
// stuck SMTP server can't wedge the worker on shutdown.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-q.ch:
			sendCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			if err := q.mailer.Send(sendCtx, m); err != nil {
				q.log.Warn("email send failed",
					zap.String("to", m.To),
					zap.String("subject", m.Subject),
					zap.Error(err),
				)
			}
			cancel()
		}
	}
}
