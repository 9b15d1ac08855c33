package store

import (
	"database/sql"

	"github.com/fedkit/tesserae/entity"
	"github.com/fedkit/tesserae/federation"
)

const (
	sqlInsertPost = `INSERT INTO posts(id, author, kind, payload, in_reply_to, published_ms) VALUES (?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET payload=excluded.payload, in_reply_to=excluded.in_reply_to, published_ms=excluded.published_ms`
	sqlSelectPost        = `SELECT payload FROM posts WHERE id = ?`
	sqlDeletePost        = `DELETE FROM posts WHERE id = ?`
	sqlSelectPostsByAuthor = `SELECT id FROM posts WHERE author = ? ORDER BY published_ms DESC`
)

func postKind(p entity.Postable) string {
	switch p.(type) {
	case entity.Note:
		return "note"
	case entity.Article:
		return "article"
	case entity.Question:
		return "question"
	case entity.Share:
		return "share"
	case entity.Tombstone:
		return "tombstone"
	default:
		return "unknown"
	}
}

func inReplyTo(p entity.Postable) string {
	switch v := p.(type) {
	case entity.Note:
		return v.InReplyTo
	case entity.Article:
		return v.InReplyTo
	case entity.Question:
		return v.InReplyTo
	case entity.Share:
		return v.InReplyTo
	default:
		return ""
	}
}

func publishedMs(p entity.Postable) int64 {
	switch v := p.(type) {
	case entity.Note:
		return v.PublishedMs
	case entity.Article:
		return v.PublishedMs
	case entity.Question:
		return v.PublishedMs
	case entity.Share:
		return v.PublishedMs
	default:
		return 0
	}
}

// CreatePost persists a post using its Protocol-A projection as the storage
// encoding; GetPost reads it back with entity.ParsePostAP. A post with no
// Protocol-A projection cannot be stored.
func (d *DB) CreatePost(p entity.Postable) error {
	payload, err := entity.ProjectPostAP(p)
	if err != nil {
		return federation.ErrTransient(err)
	}
	return d.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertPost, p.ID(), p.AuthorURI(), postKind(p), string(payload), inReplyTo(p), publishedMs(p))
		return err
	})
}

func (d *DB) GetPost(idOrURI string) (entity.Postable, error) {
	var payload string
	if err := d.db.QueryRow(sqlSelectPost, idOrURI).Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, federation.ErrNotFound
		}
		return nil, federation.ErrTransient(err)
	}
	p, err := entity.ParsePostAP([]byte(payload))
	if err != nil {
		return nil, federation.ErrTransient(err)
	}
	return p, nil
}

func (d *DB) DeletePost(uri string) error {
	return d.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeletePost, uri)
		return err
	})
}

// ListPostsByAuthor returns actorID's post ids newest-first, the Outbox
// collection page source (spec.md §6 outbox endpoint).
func (d *DB) ListPostsByAuthor(actorID string) ([]string, error) {
	rows, err := d.db.Query(sqlSelectPostsByAuthor, actorID)
	if err != nil {
		return nil, federation.ErrTransient(err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, federation.ErrTransient(err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
