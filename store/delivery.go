package store

import (
	"database/sql"
	"time"

	"github.com/fedkit/tesserae/federation"
	"github.com/google/uuid"
)

const (
	sqlInsertDelivery  = `INSERT INTO delivery_queue(id, inbox_uri, payload, attempts, next_retry_at) VALUES (?,?,?,0,?)`
	sqlSelectPending    = `SELECT id, inbox_uri, payload, attempts, next_retry_at FROM delivery_queue WHERE next_retry_at <= ? ORDER BY next_retry_at ASC LIMIT ?`
	sqlUpdateAttempt   = `UPDATE delivery_queue SET attempts = attempts + 1, next_retry_at = ? WHERE id = ?`
	sqlDeleteDelivery  = `DELETE FROM delivery_queue WHERE id = ?`
)

func (d *DB) EnqueueDelivery(inboxURI string, payload []byte) error {
	return d.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertDelivery, uuid.NewString(), inboxURI, payload, time.Now())
		return err
	})
}

func (d *DB) NextPendingDeliveries(limit int) ([]federation.PendingDelivery, error) {
	rows, err := d.db.Query(sqlSelectPending, time.Now(), limit)
	if err != nil {
		return nil, federation.ErrTransient(err)
	}
	defer rows.Close()
	var out []federation.PendingDelivery
	for rows.Next() {
		var item federation.PendingDelivery
		if err := rows.Scan(&item.ID, &item.InboxURI, &item.Payload, &item.Attempts, &item.NextRetry); err != nil {
			return nil, federation.ErrTransient(err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (d *DB) MarkDeliveryAttempt(id string, nextRetry time.Time) error {
	return d.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpdateAttempt, nextRetry, id)
		return err
	})
}

func (d *DB) DeleteDelivery(id string) error {
	return d.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteDelivery, id)
		return err
	})
}
