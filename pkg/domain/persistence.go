package domain

import "context"

// SnapshotStore is the durable backend for the dataset. Load is
// all-or-nothing: a partially read dataset is reported as an error and never
// returned. Save replaces every collection atomically.
type SnapshotStore interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snapshot *Snapshot) error
}

// Collection file names used by file- and blob-backed stores.
const (
	FilmsFile        = "film_stocks.json"
	DevelopersFile   = "developers.json"
	CombinationsFile = "development_combinations.json"
	FormatsFile      = "formats.json"
)

// CollectionFiles lists the persisted collections in load order.
var CollectionFiles = []string{FilmsFile, DevelopersFile, CombinationsFile, FormatsFile}
