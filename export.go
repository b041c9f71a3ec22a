package moinmoin

import (
	"context"
	"errors"
	"fmt"

	"github.com/escapewindow/ep-moinmoin-export/padstore"
)

// Store fetches a pad at a revision. padstore.Head asks for the latest.
type Store interface {
	Fetch(ctx context.Context, padID string, rev int) (*padstore.Pad, error)
}

// ExportRequest configures Export. A nil Revision exports the latest text.
type ExportRequest struct {
	Store    Store
	PadID    string
	Revision *int
	Options  []Option
}

// Export fetches a pad and converts it. Store errors are returned wrapped,
// so padstore.ErrNotFound and padstore.ErrRevisionUnavailable match with
// errors.Is.
func Export(ctx context.Context, req ExportRequest) (string, error) {
	if req.Store == nil {
		return "", errors.New("export: store is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ValidatePadID(req.PadID); err != nil {
		return "", fmt.Errorf("export %q: %w", req.PadID, err)
	}
	rev := padstore.Head
	if req.Revision != nil {
		if *req.Revision < 0 {
			return "", fmt.Errorf("export %q: %w: %d", req.PadID, ErrInvalidRevision, *req.Revision)
		}
		rev = *req.Revision
	}
	pad, err := req.Store.Fetch(ctx, req.PadID, rev)
	if err != nil {
		return "", fmt.Errorf("export %q: %w", req.PadID, err)
	}
	cfg := buildConfig(req.Options)
	cfg.logger.Debug("pad fetched", "pad", pad.ID, "rev", pad.Revision, "head", pad.Head, "pool", pad.Pool.Len())
	out, err := Convert(ConvertRequest{AText: pad.AText, Pool: pad.Pool, Options: req.Options})
	if err != nil {
		return "", fmt.Errorf("export %q: %w", req.PadID, err)
	}
	return out, nil
}
