// Package store is the persistent key-value adapter behind the session.
//
// It mirrors the session into the local metadata table under fixed keys and
// never reports failures to the caller: when the database is missing, closed
// or failing, writes become no-ops and reads report the key as absent. Every
// failure is logged at WARN.
package store

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/learnportal/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/learnportal/internal/dbx"
	"github.com/dmitrijs2005/learnportal/internal/logging"
)

// Keys used by the session. ClearAll removes exactly these.
const (
	KeyToken         = "token"
	KeyWalletAddress = "walletAddress"
	KeyAuthenticated = "isAuthenticated"
	KeyUsername      = "username"
)

// KnownKeys lists every key the session writes.
var KnownKeys = []string{KeyToken, KeyWalletAddress, KeyAuthenticated, KeyUsername}

const authenticatedValue = "true"

// Record is the persisted mirror of a session.
type Record struct {
	Token         string
	WalletAddress string
	Username      string
	Authenticated bool
}

// Valid reports whether the record carries a token together with the
// authenticated flag. Anything else is treated as no session.
func (r Record) Valid() bool {
	return r.Token != "" && r.Authenticated
}

// Empty reports whether no session key is set at all.
func (r Record) Empty() bool {
	return r == Record{}
}

type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// New returns a store over db. A nil db yields a store where every operation
// is a no-op, the equivalent of running without local storage.
func New(db *sql.DB, logger logging.Logger) *Store {
	return &Store{db: db, logger: logger.With("component", "store")}
}

// Available reports whether a backing database is configured.
func (s *Store) Available() bool {
	return s.db != nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool) {
	if s.db == nil {
		return "", false
	}
	v, found, err := metadata.NewSQLiteRepository(s.db).Get(ctx, key)
	if err != nil {
		s.logger.Warn(ctx, "store read failed", "key", key, "error", err)
		return "", false
	}
	return string(v), found
}

func (s *Store) Set(ctx context.Context, key, value string) {
	if s.db == nil {
		return
	}
	if err := metadata.NewSQLiteRepository(s.db).Set(ctx, key, []byte(value)); err != nil {
		s.logger.Warn(ctx, "store write failed", "key", key, "error", err)
	}
}

func (s *Store) Remove(ctx context.Context, key string) {
	if s.db == nil {
		return
	}
	if err := metadata.NewSQLiteRepository(s.db).Delete(ctx, key); err != nil {
		s.logger.Warn(ctx, "store remove failed", "key", key, "error", err)
	}
}

// ClearAll removes every known session key in a single statement, so a
// concurrent reader sees either the full record or none of it.
func (s *Store) ClearAll(ctx context.Context) {
	if s.db == nil {
		return
	}
	if err := metadata.NewSQLiteRepository(s.db).Delete(ctx, KnownKeys...); err != nil {
		s.logger.Warn(ctx, "store clear failed", "error", err)
	}
}

// Save replaces the persisted record in one transaction. Optional fields that
// are empty are removed rather than stored as blanks. A record that is not
// Valid is never written; the store is cleared instead.
func (s *Store) Save(ctx context.Context, rec Record) {
	if s.db == nil {
		return
	}
	if !rec.Valid() {
		s.ClearAll(ctx)
		return
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)

		if err := repo.Set(ctx, KeyToken, []byte(rec.Token)); err != nil {
			return err
		}
		if err := repo.Set(ctx, KeyAuthenticated, []byte(authenticatedValue)); err != nil {
			return err
		}
		if err := setOrDelete(ctx, repo, KeyWalletAddress, rec.WalletAddress); err != nil {
			return err
		}
		return setOrDelete(ctx, repo, KeyUsername, rec.Username)
	})
	if err != nil {
		s.logger.Warn(ctx, "store save failed", "error", err)
	}
}

func setOrDelete(ctx context.Context, repo metadata.Repository, key, value string) error {
	if value == "" {
		return repo.Delete(ctx, key)
	}
	return repo.Set(ctx, key, []byte(value))
}

// Load reads the persisted record. Missing keys come back as zero values.
func (s *Store) Load(ctx context.Context) Record {
	if s.db == nil {
		return Record{}
	}

	all, err := metadata.NewSQLiteRepository(s.db).List(ctx)
	if err != nil {
		s.logger.Warn(ctx, "store load failed", "error", err)
		return Record{}
	}

	return Record{
		Token:         string(all[KeyToken]),
		WalletAddress: string(all[KeyWalletAddress]),
		Username:      string(all[KeyUsername]),
		Authenticated: string(all[KeyAuthenticated]) == authenticatedValue,
	}
}
