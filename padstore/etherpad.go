package padstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
)

// LoadEtherpad copies the pad and revision records of an Etherpad
// ".etherpad" export into dst and returns the ids of the pads it held.
// Chat messages and author records are skipped.
func LoadEtherpad(ctx context.Context, r io.Reader, dst Putter) ([]string, error) {
	var records map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("padstore: decode etherpad export: %w", err)
	}
	keys := make([]string, 0, len(records))
	for key := range records {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	var padIDs []string
	for _, key := range keys {
		padID, kind, ok := splitKey(key)
		if !ok || kind == "chat" {
			continue
		}
		if err := dst.Put(ctx, key, records[key]); err != nil {
			return nil, fmt.Errorf("padstore: put %q: %w", key, err)
		}
		if kind == "pad" {
			padIDs = append(padIDs, padID)
		}
	}
	if len(padIDs) == 0 {
		return nil, fmt.Errorf("padstore: etherpad export holds no pad record")
	}
	return padIDs, nil
}
