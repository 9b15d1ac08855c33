package store

import (
	"database/sql"
	"time"

	"github.com/fedkit/tesserae/federation"
	"github.com/fedkit/tesserae/keys"
)

const (
	sqlUpsertKeyCache = `INSERT INTO key_cache(actor_uri, public_key_pem, algorithm, tombstoned, expires_at) VALUES (?,?,?,0,?)
		ON CONFLICT(actor_uri) DO UPDATE SET public_key_pem=excluded.public_key_pem, algorithm=excluded.algorithm, tombstoned=0, expires_at=excluded.expires_at`
	sqlSelectKeyCache = `SELECT public_key_pem, algorithm, tombstoned, expires_at FROM key_cache WHERE actor_uri = ?`
	sqlTombstoneKey   = `INSERT INTO key_cache(actor_uri, tombstoned) VALUES (?, 1)
		ON CONFLICT(actor_uri) DO UPDATE SET tombstoned=1`
)

// CachePublicKey persists a resolved key to the on-disk cache, a durable
// backstop behind federation.KeyCache's in-memory layer that survives
// process restarts.
func (d *DB) CachePublicKey(actorURI string, pub keys.PublicKey, ttl time.Duration) error {
	pem, err := pub.ToPEM()
	if err != nil {
		return federation.ErrTransient(err)
	}
	return d.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpsertKeyCache, actorURI, pem, pub.Algorithm().String(), time.Now().Add(ttl))
		return err
	})
}

func (d *DB) LookupPublicKey(actorURI string) (keys.PublicKey, bool, bool) {
	var pem, alg string
	var tombstoned int
	var expiresAt time.Time
	if err := d.db.QueryRow(sqlSelectKeyCache, actorURI).Scan(&pem, &alg, &tombstoned, &expiresAt); err != nil {
		return nil, false, false
	}
	if tombstoned != 0 {
		return nil, true, true
	}
	if time.Now().After(expiresAt) {
		return nil, false, false
	}
	var pub keys.PublicKey
	var err error
	switch alg {
	case "rsa-sha256":
		pub, err = keys.RSAPublicKeyFromPEM(pem)
	case "ed25519":
		pub, err = keys.Ed25519PublicKeyFromSPKIBase64(pem)
	default:
		return nil, false, false
	}
	if err != nil {
		return nil, false, false
	}
	return pub, false, true
}

func (d *DB) TombstoneKey(actorURI string) {
	d.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlTombstoneKey, actorURI)
		return err
	})
}
