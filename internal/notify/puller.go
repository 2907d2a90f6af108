package notify

import (
	"context"
	"database/sql"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// pullBatchSQL implements spec.md §6's outbox drain rule verbatim: rows
// older than 5s, in batches of 3, locked with FOR UPDATE SKIP LOCKED so
// multiple puller instances never contend on the same row.
const pullBatchSQL = `
SELECT id, label, topic, namespace, payload, created_at
FROM notification
WHERE created_at < $1
ORDER BY created_at
LIMIT 3
FOR UPDATE SKIP LOCKED`

const deleteNotificationSQL = `DELETE FROM notification WHERE id = $1`

const pullDebounce = 5 * time.Second

// Puller is the external worker described in spec.md §6: it drains the
// outbox and republishes each row to NATS JetStream, deleting the row only
// after a successful publish.
type Puller struct {
	db     *sql.DB
	js     nats.JetStreamContext
	prefix string
	log    *logrus.Entry
}

// NewPuller constructs a Puller against an already-connected JetStream
// context.
func NewPuller(db *sql.DB, js nats.JetStreamContext, prefix string, log *logrus.Entry) *Puller {
	return &Puller{db: db, js: js, prefix: prefix, log: log}
}

// Run polls the outbox on interval until ctx is cancelled.
func (p *Puller) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.pullOnce(ctx); err != nil {
				p.log.WithError(err).Error("notify: pull batch failed")
				sentry.CaptureException(err)
			}
		}
	}
}

func (p *Puller) pullOnce(ctx context.Context) error {
	txn, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = txn.Rollback() }()

	rows, err := txn.QueryContext(ctx, pullBatchSQL, time.Now().Add(-pullDebounce))
	if err != nil {
		return err
	}
	var batch []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Label, &n.Topic, &n.Namespace, &n.Payload, &n.CreatedAt); err != nil {
			_ = rows.Close()
			return err
		}
		batch = append(batch, n)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	_ = rows.Close()

	for _, n := range batch {
		subject := p.prefix + "." + n.Topic
		if _, err := p.js.Publish(subject, n.Payload); err != nil {
			p.log.WithError(err).WithField("notification_id", n.ID).Warn("notify: publish failed, leaving row for retry")
			sentry.CaptureException(err)
			continue
		}
		if _, err := txn.ExecContext(ctx, deleteNotificationSQL, n.ID); err != nil {
			return err
		}
	}
	return txn.Commit()
}
