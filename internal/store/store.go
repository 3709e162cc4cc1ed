// Package store owns the aggregate document: an in-memory working copy mirrored
// to a durable backend (a JSON file or a single MongoDB document).
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"panelbot/internal/apperrors"
	"panelbot/internal/domain"
	"panelbot/internal/logging"
)

// Backend persists the whole aggregate document. Read reports found=false when
// the backing medium is missing or empty.
type Backend interface {
	Read(ctx context.Context) (doc domain.Document, found bool, err error)
	Write(ctx context.Context, doc domain.Document) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Store holds the working copy of the aggregate document. All access is
// serialized by mu so a load-mutate-save cycle in Update cannot interleave with
// another one in the same process.
type Store struct {
	mu      sync.Mutex
	backend Backend
	doc     domain.Document
	logger  *logrus.Entry
}

// New constructs a Store over backend without touching it.
func New(backend Backend, logger *logrus.Entry) *Store {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Store{
		backend: backend,
		doc:     domain.NewDocument(),
		logger:  logger,
	}
}

// Open constructs a Store and performs the initial Load. A failure here means
// the store is not ready and startup should abort.
func Open(ctx context.Context, backend Backend, logger *logrus.Entry) (*Store, error) {
	if backend == nil {
		return nil, errors.New("store backend is required")
	}

	s := New(backend, logger)
	if err := s.Load(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// Load reads the backend in full and replaces the working copy. A missing or
// empty backend is initialized with five empty collections and persisted.
func (s *Store) Load(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadLocked(ctx)
}

// Save overwrites the backend with the working copy.
func (s *Store) Save(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveLocked(ctx, s.doc)
}

// Collection returns a copy of the named collection from the working copy.
func (s *Store) Collection(name string) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.doc.Clone().Collection(name)
}

// Snapshot returns a deep copy of the working copy.
func (s *Store) Snapshot() domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.doc.Clone()
}

// View loads the latest document and hands a copy to fn. Nothing is saved.
func (s *Store) View(ctx context.Context, fn func(doc domain.Document) error) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(ctx); err != nil {
		return err
	}

	return fn(s.doc.Clone())
}

// Update loads the latest document, lets fn mutate a copy of it and saves the
// result when fn reports a change. The working copy is only replaced once the
// save succeeds.
func (s *Store) Update(ctx context.Context, fn func(doc *domain.Document) (changed bool, err error)) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(ctx); err != nil {
		return err
	}

	work := s.doc.Clone()
	changed, err := fn(&work)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	work.Normalize()
	if err := s.saveLocked(ctx, work); err != nil {
		return err
	}

	s.doc = work
	return nil
}

// Ping checks that the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	if err := s.backend.Ping(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", apperrors.ErrStorageFailure, err)
	}

	return nil
}

// Close releases backend resources.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.backend == nil {
		return nil
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	return s.backend.Close(ctx)
}

func (s *Store) check(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if s == nil || s.backend == nil {
		return errors.New("store is not initialized")
	}
	return nil
}

func (s *Store) loadLocked(ctx context.Context) error {
	doc, found, err := s.backend.Read(ctx)
	if err != nil {
		return fmt.Errorf("%w: load document: %w", apperrors.ErrStorageFailure, err)
	}

	if !found {
		doc = domain.NewDocument()
		if err := s.saveLocked(ctx, doc); err != nil {
			return err
		}

		s.logger.WithField("event", "store_initialized").Info("initialized empty document")
	}

	doc.Normalize()
	s.doc = doc

	return nil
}

func (s *Store) saveLocked(ctx context.Context, doc domain.Document) error {
	if err := s.backend.Write(ctx, doc); err != nil {
		return fmt.Errorf("%w: save document: %w", apperrors.ErrStorageFailure, err)
	}

	s.logger.WithFields(logging.Fields{
		"event": "store_saved",
		"users": len(doc.Users),
	}).Debug("saved document")

	return nil
}
