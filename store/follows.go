package store

import (
	"database/sql"

	"github.com/fedkit/tesserae/federation"
)

const (
	sqlInsertFollow = `INSERT INTO follows(follower, followee, state) VALUES (?,?,?)
		ON CONFLICT(follower, followee) DO NOTHING`
	sqlSetFollowState    = `UPDATE follows SET state = ? WHERE follower = ? AND followee = ?`
	sqlDeleteFollow      = `DELETE FROM follows WHERE follower = ? AND followee = ?`
	sqlSelectFollowState = `SELECT state FROM follows WHERE follower = ? AND followee = ?`
	sqlSelectFollowerInboxes = `SELECT actors.inbox FROM follows
		INNER JOIN actors ON actors.id = follows.follower
		WHERE follows.followee = ? AND follows.state = 1`
	sqlSelectFollowers = `SELECT follower FROM follows WHERE followee = ? AND state = 1 ORDER BY created_at`
	sqlSelectFollowing = `SELECT followee FROM follows WHERE follower = ? AND state = 1 ORDER BY created_at`
)

func (d *DB) CreateFollow(from, to string, pending bool) error {
	state := federation.FollowPending
	if !pending {
		state = federation.FollowAccepted
	}
	return d.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertFollow, from, to, int(state))
		return err
	})
}

func (d *DB) SetFollowState(from, to string, state federation.FollowState) error {
	return d.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlSetFollowState, int(state), from, to)
		return err
	})
}

func (d *DB) DeleteFollow(from, to string) error {
	return d.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteFollow, from, to)
		return err
	})
}

func (d *DB) FollowExists(from, to string) (federation.FollowState, bool, error) {
	var state int
	err := d.db.QueryRow(sqlSelectFollowState, from, to).Scan(&state)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, federation.ErrTransient(err)
	}
	return federation.FollowState(state), true, nil
}

// ListFollowerInboxes returns the accepted followers' inboxes for actorID,
// the fan-out target list C8 delivers Create/Update/Delete activities to.
func (d *DB) ListFollowerInboxes(actorID string) ([]string, error) {
	rows, err := d.db.Query(sqlSelectFollowerInboxes, actorID)
	if err != nil {
		return nil, federation.ErrTransient(err)
	}
	defer rows.Close()
	var inboxes []string
	for rows.Next() {
		var inbox string
		if err := rows.Scan(&inbox); err != nil {
			return nil, federation.ErrTransient(err)
		}
		inboxes = append(inboxes, inbox)
	}
	return inboxes, rows.Err()
}

// ListFollowers returns the accepted followers of actorID, the Followers
// collection page source (spec.md §6 followers endpoint).
func (d *DB) ListFollowers(actorID string) ([]string, error) {
	return d.queryURIColumn(sqlSelectFollowers, actorID)
}

// ListFollowing returns the actors actorID follows with an accepted state,
// the Following collection page source.
func (d *DB) ListFollowing(actorID string) ([]string, error) {
	return d.queryURIColumn(sqlSelectFollowing, actorID)
}

func (d *DB) queryURIColumn(query, arg string) ([]string, error) {
	rows, err := d.db.Query(query, arg)
	if err != nil {
		return nil, federation.ErrTransient(err)
	}
	defer rows.Close()
	var uris []string
	for rows.Next() {
		var uri string
		if err := rows.Scan(&uri); err != nil {
			return nil, federation.ErrTransient(err)
		}
		uris = append(uris, uri)
	}
	return uris, rows.Err()
}
