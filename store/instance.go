package store

import (
	"fmt"

	"github.com/fedkit/tesserae/federation"
	"github.com/fedkit/tesserae/keys"
)

const instanceActorHandle = "instance-actor"

// EnsureInstanceActor creates the server-level principal on first startup if
// it doesn't already exist, mirroring the donor's first-row-is-special
// bootstrap (db.go's first-account-becomes-admin check) repurposed to a
// one-time instance actor provisioning step.
func (d *DB) EnsureInstanceActor() error {
	var exists int
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM actors WHERE handle = ? AND domain = ?`, instanceActorHandle, d.domain).Scan(&exists); err != nil {
		return federation.ErrTransient(err)
	}
	if exists > 0 {
		return nil
	}
	_, err := d.CreateLocalActor(d.domain, federation.NewLocalActor{
		PreferredUsername: instanceActorHandle,
		DisplayName:        fmt.Sprintf("%s (instance actor)", d.domain),
	})
	return err
}

func (d *DB) GetInstanceActor() (*federation.InstanceActor, error) {
	a, err := d.GetActor(instanceActorHandle, d.domain)
	if err != nil {
		return nil, err
	}
	rsaKey, err := d.GetPrivateKey(a.ActorID, keys.RSASHA256)
	if err != nil {
		return nil, err
	}
	edKey, err := d.GetPrivateKey(a.ActorID, keys.Ed25519Algorithm)
	if err != nil {
		return nil, err
	}
	return &federation.InstanceActor{
		Domain:     a.Domain(),
		RSAKey:     rsaKey,
		Ed25519Key: edKey,
		Name:       a.DisplayName,
	}, nil
}
