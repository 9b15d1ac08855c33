package store

const schema = `
CREATE TABLE IF NOT EXISTS actors(
	id TEXT NOT NULL PRIMARY KEY,
	handle TEXT NOT NULL,
	domain TEXT NOT NULL,
	origin INTEGER NOT NULL,
	display_name TEXT,
	summary TEXT,
	avatar TEXT,
	banner TEXT,
	inbox TEXT NOT NULL,
	outbox TEXT NOT NULL,
	followers TEXT,
	following TEXT,
	featured TEXT,
	manually_approves INTEGER DEFAULT 0,
	indexable INTEGER DEFAULT 1,
	password_hash TEXT,
	password_salt BLOB,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(handle, domain)
);

CREATE TABLE IF NOT EXISTS actor_keys(
	id TEXT NOT NULL PRIMARY KEY,
	actor_id TEXT NOT NULL UNIQUE REFERENCES actors(id),
	owner TEXT NOT NULL,
	public_key_pem TEXT NOT NULL,
	algorithm TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS private_keys(
	actor_id TEXT NOT NULL REFERENCES actors(id),
	algorithm TEXT NOT NULL,
	private_key_pem TEXT NOT NULL,
	PRIMARY KEY(actor_id, algorithm)
);

CREATE TABLE IF NOT EXISTS posts(
	id TEXT NOT NULL PRIMARY KEY,
	author TEXT NOT NULL,
	kind TEXT NOT NULL,
	payload TEXT NOT NULL,
	in_reply_to TEXT,
	published_ms INTEGER,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS follows(
	follower TEXT NOT NULL,
	followee TEXT NOT NULL,
	state INTEGER NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY(follower, followee)
);

CREATE TABLE IF NOT EXISTS key_cache(
	actor_uri TEXT NOT NULL PRIMARY KEY,
	public_key_pem TEXT,
	algorithm TEXT,
	tombstoned INTEGER DEFAULT 0,
	expires_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS delivery_queue(
	id TEXT NOT NULL PRIMARY KEY,
	inbox_uri TEXT NOT NULL,
	payload BLOB NOT NULL,
	attempts INTEGER DEFAULT 0,
	next_retry_at TIMESTAMP NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_delivery_next_retry ON delivery_queue(next_retry_at);
CREATE INDEX IF NOT EXISTS idx_follows_followee ON follows(followee);
CREATE INDEX IF NOT EXISTS idx_posts_author ON posts(author);
`

func (d *DB) migrate() error {
	_, err := d.db.Exec(schema)
	return err
}
