// Package store implements C7, the sqlite-backed persistence façade behind
// federation.Store.
package store

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fedkit/tesserae/entity"
	"github.com/fedkit/tesserae/federation"
	"github.com/fedkit/tesserae/keys"
	"github.com/fedkit/tesserae/util"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// DB is the sqlite-backed implementation of federation.Store.
type DB struct {
	db     *sql.DB
	domain string
}

var (
	instance *DB
	once     sync.Once
)

// Open returns the process-wide DB singleton, creating and migrating the
// database on first call. domain is the instance's own hostname, used to
// locate its own instance actor row.
func Open(path, domain string) (*DB, error) {
	var openErr error
	once.Do(func() {
		sqlDB, err := sql.Open("sqlite", path)
		if err != nil {
			openErr = err
			return
		}
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(time.Hour)

		var journalMode string
		if err := sqlDB.QueryRow("PRAGMA journal_mode=WAL").Scan(&journalMode); err != nil {
			log.Printf("store: failed to enable WAL mode: %v", err)
		} else {
			log.Printf("store: journal mode %s", journalMode)
		}
		sqlDB.Exec("PRAGMA synchronous = NORMAL")
		sqlDB.Exec("PRAGMA busy_timeout = 5000")
		sqlDB.Exec("PRAGMA foreign_keys = ON")

		instance = &DB{db: sqlDB, domain: domain}
		if err := instance.migrate(); err != nil {
			openErr = err
		}
	})
	if openErr != nil {
		return nil, openErr
	}
	return instance, nil
}

// wrapTransaction runs f within a transaction, retrying on SQLITE_BUSY.
func (d *DB) wrapTransaction(f func(tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	for {
		if err = f(tx); err != nil {
			if serr, ok := err.(*sqlite.Error); ok && serr.Code() == sqlitelib.SQLITE_BUSY {
				continue
			}
			tx.Rollback()
			return err
		}
		if err = tx.Commit(); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	}
}

const (
	sqlInsertActor = `INSERT INTO actors(id, handle, domain, origin, display_name, summary, avatar, banner, inbox, outbox, followers, following, featured, manually_approves, indexable, password_hash, password_salt) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET display_name=excluded.display_name, summary=excluded.summary, avatar=excluded.avatar, banner=excluded.banner, inbox=excluded.inbox, outbox=excluded.outbox, followers=excluded.followers, following=excluded.following, featured=excluded.featured, manually_approves=excluded.manually_approves, indexable=excluded.indexable`
	sqlSelectActorByHandle = `SELECT id, handle, domain, origin, display_name, summary, avatar, banner, inbox, outbox, followers, following, featured, manually_approves, indexable FROM actors WHERE handle = ? AND domain = ?`
	sqlSelectActorKey      = `SELECT id, owner, public_key_pem, algorithm FROM actor_keys WHERE actor_id = ?`
	sqlInsertActorKey      = `INSERT INTO actor_keys(id, actor_id, owner, public_key_pem, algorithm) VALUES (?,?,?,?,?) ON CONFLICT(actor_id) DO UPDATE SET public_key_pem=excluded.public_key_pem`
	sqlSelectPrivateKey    = `SELECT private_key_pem FROM private_keys WHERE actor_id = ? AND algorithm = ?`
	sqlInsertPrivateKey    = `INSERT INTO private_keys(actor_id, algorithm, private_key_pem) VALUES (?,?,?) ON CONFLICT(actor_id, algorithm) DO UPDATE SET private_key_pem=excluded.private_key_pem`
)

func (d *DB) GetActor(handle, domain string) (*entity.Actor, error) {
	row := d.db.QueryRow(sqlSelectActorByHandle, handle, domain)
	a, err := scanActor(row)
	if err == sql.ErrNoRows {
		return nil, federation.ErrNotFound
	}
	if err != nil {
		return nil, federation.ErrTransient(err)
	}
	keyRow := d.db.QueryRow(sqlSelectActorKey, a.ActorID)
	var keyID, owner, pem, alg string
	if err := keyRow.Scan(&keyID, &owner, &pem, &alg); err == nil {
		a.PublicKey = entity.PublicKeyRef{ID: keyID, Owner: owner, PublicKeyPem: pem, Algorithm: alg}
	}
	return a, nil
}

func scanActor(row *sql.Row) (*entity.Actor, error) {
	var a entity.Actor
	var originKind int
	var domain string
	if err := row.Scan(&a.ActorID, &a.PreferredUsername, &domain, &originKind, &a.DisplayName, &a.Summary, &a.Avatar, &a.Banner, &a.Inbox, &a.Outbox, &a.Followers, &a.Following, &a.Featured, &a.ManuallyApprovesFollowers, &a.Indexable); err != nil {
		return nil, err
	}
	a.Origin = entity.Origin{Kind: entity.OriginKind(originKind), Domain: domain}
	return &a, nil
}

func (d *DB) UpsertFederatedActor(a *entity.Actor) error {
	return d.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertActor, a.ActorID, a.PreferredUsername, a.Domain(), int(entity.OriginFederated), a.DisplayName, a.Summary, a.Avatar, a.Banner, a.Inbox, a.Outbox, a.Followers, a.Following, a.Featured, a.ManuallyApprovesFollowers, a.Indexable, nil, nil)
		if err != nil {
			return err
		}
		if a.PublicKey.PublicKeyPem != "" {
			keyID := a.PublicKey.ID
			if keyID == "" {
				keyID = uuid.NewString()
			}
			_, err = tx.Exec(sqlInsertActorKey, keyID, a.ActorID, a.PublicKey.Owner, a.PublicKey.PublicKeyPem, a.PublicKey.Algorithm)
		}
		return err
	})
}

// CreateLocalActor provisions a brand-new local actor and its RSA/Ed25519
// key pairs in one transaction (spec.md §5 transactional discipline).
func (d *DB) CreateLocalActor(instanceDomain string, n federation.NewLocalActor) (string, error) {
	if err := util.ValidatePreferredUsername(n.PreferredUsername); err != nil {
		return "", err
	}
	actorID := fmt.Sprintf("https://%s/ap/users/%s", instanceDomain, n.PreferredUsername)
	rsaPriv, err := keys.GenerateRSAKeyPair()
	if err != nil {
		return "", fmt.Errorf("generate rsa key: %w", err)
	}
	edPriv, err := keys.GenerateEd25519KeyPair()
	if err != nil {
		return "", fmt.Errorf("generate ed25519 key: %w", err)
	}
	rsaPub := rsaPriv.Public()
	rsaPem, err := rsaPriv.ToPEM()
	if err != nil {
		return "", err
	}
	rsaPubPem, err := rsaPub.ToPEM()
	if err != nil {
		return "", err
	}
	edSeedB64, err := edPriv.ToPEM()
	if err != nil {
		return "", err
	}

	var passwordHash string
	var passwordSalt []byte
	if n.Password != "" {
		passwordHash, passwordSalt, err = hashPassword(n.Password)
		if err != nil {
			return "", err
		}
	}

	err = d.wrapTransaction(func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM actors WHERE id = ?`, actorID).Scan(&exists); err != nil {
			return err
		}
		if exists > 0 {
			return federation.ErrConflict
		}
		_, err := tx.Exec(sqlInsertActor, actorID, n.PreferredUsername, instanceDomain, int(entity.OriginLocal), n.DisplayName, n.Summary, "", "", actorID+"/inbox", actorID+"/outbox", actorID+"/followers", actorID+"/following", "", false, true, passwordHash, passwordSalt)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(sqlInsertActorKey, actorID+"#main-key", actorID, actorID, rsaPubPem, "rsa-sha256"); err != nil {
			return err
		}
		if _, err := tx.Exec(sqlInsertPrivateKey, actorID, "rsa-sha256", rsaPem); err != nil {
			return err
		}
		_, err = tx.Exec(sqlInsertPrivateKey, actorID, "ed25519", edSeedB64)
		return err
	})
	if err != nil {
		return "", err
	}
	return actorID, nil
}

func (d *DB) GetPrivateKey(actorID string, alg keys.Algorithm) (keys.PrivateKey, error) {
	row := d.db.QueryRow(sqlSelectPrivateKey, actorID, alg.String())
	var pem string
	if err := row.Scan(&pem); err != nil {
		if err == sql.ErrNoRows {
			return nil, federation.ErrNotFound
		}
		return nil, federation.ErrTransient(err)
	}
	switch alg {
	case keys.RSASHA256:
		return keys.RSAPrivateKeyFromPEM(pem)
	case keys.Ed25519Algorithm:
		seed, err := base64.StdEncoding.DecodeString(pem)
		if err != nil {
			return nil, federation.ErrTransient(err)
		}
		return keys.Ed25519PrivateKeyFromSeed(seed)
	default:
		return nil, federation.ErrNotFound
	}
}
