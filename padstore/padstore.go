// Package padstore reads Etherpad pads from the key/value records Etherpad
// keeps in its database and rebuilds historical revisions from them.
//
// Records use Etherpad's own keys and JSON values:
//
//	pad:<id>             {"atext": ..., "pool": ..., "head": n}
//	pad:<id>:revs:<n>    {"changeset": "Z:...", "meta": {"author": ..., "timestamp": ..., "atext": ...}}
//
// Every hundredth revision carries a full atext snapshot in its meta, so a
// revision is rebuilt from the nearest snapshot at or below it.
package padstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/escapewindow/ep-moinmoin-export/changeset"
)

// Head asks Fetch for the latest revision.
const Head = -1

const keyRevInterval = 100

// Pad is a pad's text at one revision.
type Pad struct {
	ID       string
	Revision int
	Head     int
	AText    changeset.AText
	Pool     *changeset.Pool
}

// Backend is a key/value store holding Etherpad records.
type Backend interface {
	// Get returns the value stored under key. A missing key reports false
	// with a nil error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Close() error
}

// Putter is a Backend that can be written to.
type Putter interface {
	Put(ctx context.Context, key string, value []byte) error
}

// Store fetches pads from a Backend.
type Store struct {
	backend Backend
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns a Store reading from backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{backend: backend, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// Fetch returns the pad at rev, or at its head revision when rev is Head.
func (s *Store) Fetch(ctx context.Context, padID string, rev int) (*Pad, error) {
	var rec padRecord
	found, err := s.getJSON(ctx, padKey(padID), &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &NotFoundError{PadID: padID}
	}
	if rec.Pool == nil {
		rec.Pool = changeset.NewPool()
	}
	pad := &Pad{ID: padID, Revision: rec.Head, Head: rec.Head, AText: rec.AText, Pool: rec.Pool}
	if rev == Head || rev == rec.Head {
		return pad, nil
	}
	if rev < 0 || rev > rec.Head {
		return nil, &RevisionError{PadID: padID, Rev: rev, Head: rec.Head}
	}
	pad.Pool = rec.Pool.Clone()
	at, err := s.rebuild(ctx, padID, rev, pad.Pool)
	if err != nil {
		var revErr *RevisionError
		if errors.As(err, &revErr) {
			revErr.Head = rec.Head
		}
		return nil, err
	}
	pad.Revision = rev
	pad.AText = at
	return pad, nil
}

// rebuild starts from the snapshot revision at or below rev and applies
// the changesets after it in order.
func (s *Store) rebuild(ctx context.Context, padID string, rev int, pool *changeset.Pool) (changeset.AText, error) {
	keyRev := rev - rev%keyRevInterval
	var base revRecord
	found, err := s.getJSON(ctx, revKey(padID, keyRev), &base)
	if err != nil {
		return changeset.AText{}, err
	}
	if !found {
		return changeset.AText{}, &RevisionError{PadID: padID, Rev: rev, Err: fmt.Errorf("revision %d missing", keyRev)}
	}
	if base.Meta.AText == nil {
		return changeset.AText{}, &RevisionError{PadID: padID, Rev: rev, Err: fmt.Errorf("revision %d has no snapshot", keyRev)}
	}
	at := *base.Meta.AText
	for r := keyRev + 1; r <= rev; r++ {
		var rec revRecord
		found, err := s.getJSON(ctx, revKey(padID, r), &rec)
		if err != nil {
			return changeset.AText{}, err
		}
		if !found {
			return changeset.AText{}, &RevisionError{PadID: padID, Rev: rev, Err: fmt.Errorf("revision %d missing", r)}
		}
		at, err = changeset.ApplyToAText(rec.Changeset, at, pool)
		if err != nil {
			return changeset.AText{}, &RevisionError{PadID: padID, Rev: rev, Err: fmt.Errorf("apply revision %d: %w", r, err)}
		}
	}
	s.logger.Debug("revision rebuilt", "pad", padID, "rev", rev, "snapshot", keyRev, "applied", rev-keyRev)
	return at, nil
}

func (s *Store) getJSON(ctx context.Context, key string, v any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	data, found, err := s.backend.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("padstore: get %q: %w", key, err)
	}
	if !found {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("padstore: decode %q: %w", key, err)
	}
	return true, nil
}
