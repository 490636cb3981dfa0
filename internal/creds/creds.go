// Package creds stores the club login. Credentials live either in the
// environment or sealed in postgres, so a database dump alone never
// yields a usable password.
package creds

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/example/teetime-agent/internal/db"
)

// ErrNoCredentials means neither the environment nor the store has a
// usable club login.
var ErrNoCredentials = errors.New("no club credentials configured")

// Credentials is a member login for the club site.
type Credentials struct {
	Member   string
	Password string
}

// Store resolves credentials at execution time.
type Store interface {
	Get(ctx context.Context) (Credentials, error)
}

// EnvStore serves credentials straight from configuration.
type EnvStore struct {
	Member   string
	Password string
}

func (s EnvStore) Get(context.Context) (Credentials, error) {
	if s.Member == "" || s.Password == "" {
		return Credentials{}, ErrNoCredentials
	}
	return Credentials{Member: s.Member, Password: s.Password}, nil
}

// aead seals and opens secrets with AES-GCM, nonce prepended,
// base64-encoded for TEXT column storage.
type aead struct{ gcm cipher.AEAD }

func newAEAD(key []byte) (*aead, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	g, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &aead{gcm: g}, nil
}

func (a *aead) seal(plaintext string) (string, error) {
	nonce := make([]byte, a.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	ct := a.gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.RawStdEncoding.EncodeToString(append(nonce, ct...)), nil
}

func (a *aead) open(sealed string) (string, error) {
	buf, err := base64.RawStdEncoding.DecodeString(sealed)
	if err != nil {
		return "", err
	}
	ns := a.gcm.NonceSize()
	if len(buf) < ns {
		return "", fmt.Errorf("ciphertext too short")
	}
	pt, err := a.gcm.Open(nil, buf[:ns], buf[ns:], nil)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}

// PGStore keeps a single sealed club login in postgres under a fixed
// name, so rotating the password is an update, not a redeploy.
type PGStore struct {
	db   *db.DB
	aead *aead
	name string
}

// NewPGStore requires an AES key of 16, 24 or 32 bytes.
func NewPGStore(d *db.DB, key []byte) (*PGStore, error) {
	a, err := newAEAD(key)
	if err != nil {
		return nil, fmt.Errorf("credential key: %w", err)
	}
	return &PGStore{db: d, aead: a, name: "club"}, nil
}

func (s *PGStore) Get(ctx context.Context) (Credentials, error) {
	var member, sealed string
	row := s.db.QueryRow(ctx,
		`SELECT member, secret FROM club_credentials WHERE name=$1`, s.name)
	if err := row.Scan(&member, &sealed); err != nil {
		if db.IsNotFound(err) {
			return Credentials{}, ErrNoCredentials
		}
		return Credentials{}, err
	}
	password, err := s.aead.open(sealed)
	if err != nil {
		return Credentials{}, fmt.Errorf("unseal credentials: %w", err)
	}
	return Credentials{Member: member, Password: password}, nil
}

// Put seals and upserts the club login.
func (s *PGStore) Put(ctx context.Context, c Credentials) error {
	if c.Member == "" || c.Password == "" {
		return ErrNoCredentials
	}
	sealed, err := s.aead.seal(c.Password)
	if err != nil {
		return err
	}
	return s.db.Exec(ctx, `
INSERT INTO club_credentials(name, member, secret, updated_at)
VALUES ($1,$2,$3,now())
ON CONFLICT (name) DO UPDATE SET member=$2, secret=$3, updated_at=now()`,
		s.name, c.Member, sealed)
}

// Fallback tries stores in order until one has credentials.
type Fallback []Store

func (f Fallback) Get(ctx context.Context) (Credentials, error) {
	for _, s := range f {
		c, err := s.Get(ctx)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrNoCredentials) {
			return Credentials{}, err
		}
	}
	return Credentials{}, ErrNoCredentials
}
