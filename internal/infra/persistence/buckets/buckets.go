// Package buckets encodes a snapshot as one JSON payload per collection, the
// layout shared by the table- and bucket-based snapshot stores.
package buckets

import (
	"encoding/json"
	"fmt"

	"dorkroom/pkg/domain"
)

// Bucket names in write order.
const (
	Films        = "film_stocks"
	Developers   = "developers"
	Combinations = "development_combinations"
	Formats      = "formats"
)

// Names lists every bucket a complete snapshot carries.
var Names = []string{Films, Developers, Combinations, Formats}

// Encode marshals each collection of snap. Nil collections are written as
// empty lists.
func Encode(snap *domain.Snapshot) (map[string][]byte, error) {
	if snap == nil {
		snap = &domain.Snapshot{}
	}
	out := make(map[string][]byte, len(Names))
	for _, name := range Names {
		var (
			data []byte
			err  error
		)
		switch name {
		case Films:
			data, err = json.Marshal(nonNil(snap.Films))
		case Developers:
			data, err = json.Marshal(nonNil(snap.Developers))
		case Combinations:
			data, err = json.Marshal(nonNil(snap.Combinations))
		case Formats:
			data, err = json.Marshal(nonNil(snap.Formats))
		}
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		out[name] = data
	}
	return out, nil
}

// Decode rebuilds a snapshot from bucket payloads. An empty map is a new,
// empty dataset; otherwise every bucket must be present so a partially
// written dataset is never returned. Unknown buckets are ignored.
func Decode(payloads map[string][]byte) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{}
	if len(payloads) == 0 {
		return snap, nil
	}
	targets := map[string]any{
		Films:        &snap.Films,
		Developers:   &snap.Developers,
		Combinations: &snap.Combinations,
		Formats:      &snap.Formats,
	}
	for _, name := range Names {
		payload, ok := payloads[name]
		if !ok {
			return nil, fmt.Errorf("incomplete snapshot: missing %s", name)
		}
		if err := json.Unmarshal(payload, targets[name]); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
	}
	return snap, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
