package core

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Service binds an Engine to its durable SnapshotStore.
type Service struct {
	engine *Engine
	store  SnapshotStore
}

// NewService constructs a service. The engine stays unloaded until Reload.
func NewService(engine *Engine, store SnapshotStore) *Service {
	if engine == nil {
		engine = NewEngine()
	}
	return &Service{engine: engine, store: store}
}

// Engine returns the query engine.
func (s *Service) Engine() *Engine { return s.engine }

// Store returns the underlying storage implementation.
func (s *Service) Store() SnapshotStore { return s.store }

// Reload reads the dataset from the store and swaps it into the engine. On
// failure the engine keeps serving its previous state.
func (s *Service) Reload(ctx context.Context) (warnings []Violation, err error) {
	defer s.engine.observe(ctx, opReload)(&err)
	if s.store == nil {
		return nil, errors.New("no snapshot store configured")
	}
	snap, err := s.store.Load(ctx)
	if err != nil {
		s.engine.logger.Error().Err(err).Msg("snapshot load failed")
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return s.engine.Load(ctx, snap)
}

// Admit runs the admission pipeline. A committed record is written to the
// store before it becomes visible to queries; if the write fails the engine
// state is unchanged.
func (s *Service) Admit(ctx context.Context, cand Candidate, opts AdmitOptions) (AdmissionResult, error) {
	var persist commitFunc
	if s.store != nil {
		persist = s.store.Save
	}
	return s.engine.admit(ctx, cand, opts, persist)
}

// Export writes the engine's active snapshot to dst.
func (s *Service) Export(ctx context.Context, dst SnapshotStore) (err error) {
	defer s.engine.observe(ctx, opExport)(&err)
	snap, err := s.engine.Snapshot()
	if err != nil {
		return err
	}
	if err := dst.Save(ctx, snap); err != nil {
		return fmt.Errorf("export snapshot: %w", err)
	}
	s.engine.logger.Info().Interface("counts", snap.Counts()).Msg("snapshot exported")
	return nil
}

// Close releases the store when it holds resources.
func (s *Service) Close() error {
	if c, ok := s.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
