// Package database is the caller-side façade over the storage bridge: the
// initialization guard, row helpers and transactions.
package database

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrSnakeDoc/bookmarker/internal/apperr"
	"github.com/MrSnakeDoc/bookmarker/internal/logger"
	"github.com/MrSnakeDoc/bookmarker/internal/storage"
)

// Bridge is the transport to the storage worker.
type Bridge interface {
	Initialize(ctx context.Context) error
	InitializeDatabase(ctx context.Context, dbName string) (string, error)
	Execute(ctx context.Context, sql string, params ...any) ([]storage.Row, error)
	Flush(ctx context.Context) error
	Close(ctx context.Context) error
}

// ErrNotInitialized is returned for any statement issued before Init succeeded.
var ErrNotInitialized = apperr.New(apperr.KindNotInitialized, "database not initialized")

type txKey struct{}

// Service serializes access to the storage worker. While a transaction is
// open, statements from other callers wait for it to finish.
type Service struct {
	bridge Bridge
	dbName string
	log    logger.Logger

	mu          sync.RWMutex
	initialized bool
	backend     string

	gate chan struct{}
}

func New(bridge Bridge, dbName string, log logger.Logger) *Service {
	return &Service{
		bridge: bridge,
		dbName: dbName,
		log:    log,
		gate:   make(chan struct{}, 1),
	}
}

// Init performs the worker handshake and opens the database.
func (s *Service) Init(ctx context.Context) error {
	if s.Initialized() {
		return nil
	}
	if err := s.bridge.Initialize(ctx); err != nil {
		return fmt.Errorf("storage worker handshake: %w", err)
	}
	tag, err := s.bridge.InitializeDatabase(ctx, s.dbName)
	if err != nil {
		return fmt.Errorf("open database %s: %w", s.dbName, err)
	}

	s.mu.Lock()
	s.initialized = true
	s.backend = tag
	s.mu.Unlock()

	s.log.Info("storage ready", logger.String("db", s.dbName), logger.String("backend", tag))
	return nil
}

func (s *Service) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Backend returns the persistence backend tag, "" before Init.
func (s *Service) Backend() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backend
}

func inTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(struct{})
	return ok
}

func (s *Service) acquire(ctx context.Context) (release func(), err error) {
	if inTransaction(ctx) {
		return func() {}, nil
	}
	select {
	case s.gate <- struct{}{}:
		return func() { <-s.gate }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Execute runs a statement and returns its rows.
func (s *Service) Execute(ctx context.Context, sql string, params ...any) ([]storage.Row, error) {
	if !s.Initialized() {
		return nil, ErrNotInitialized
	}
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.bridge.Execute(ctx, sql, params...)
}

// Rows is Execute under the name the repositories read best with.
func (s *Service) Rows(ctx context.Context, sql string, params ...any) ([]storage.Row, error) {
	return s.Execute(ctx, sql, params...)
}

// Run executes a statement and discards any rows.
func (s *Service) Run(ctx context.Context, sql string, params ...any) error {
	_, err := s.Execute(ctx, sql, params...)
	return err
}

// Row returns the first row, or nil when there is none.
func (s *Service) Row(ctx context.Context, sql string, params ...any) (storage.Row, error) {
	rows, err := s.Execute(ctx, sql, params...)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// Scalar returns the value of a single-column query's first row, or nil.
func (s *Service) Scalar(ctx context.Context, sql string, params ...any) (any, error) {
	rows, err := s.Execute(ctx, sql, params...)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	if len(rows[0]) != 1 {
		return nil, fmt.Errorf("scalar query returned %d columns", len(rows[0]))
	}
	for _, v := range rows[0] {
		return v, nil
	}
	return nil, nil
}

// WithTransaction runs fn inside BEGIN/COMMIT. Any error or panic from fn
// rolls the transaction back and is returned (or re-panicked). Statements
// issued by fn must use the context it receives. Nested calls join the
// enclosing transaction.
func (s *Service) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if inTransaction(ctx) {
		return fn(ctx)
	}
	if !s.Initialized() {
		return ErrNotInitialized
	}
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	txCtx := context.WithValue(ctx, txKey{}, struct{}{})
	if _, err := s.bridge.Execute(txCtx, "BEGIN TRANSACTION"); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			s.rollback(txCtx)
			panic(r)
		}
	}()

	if err := fn(txCtx); err != nil {
		s.rollback(txCtx)
		return err
	}
	if _, err := s.bridge.Execute(txCtx, "COMMIT"); err != nil {
		s.rollback(txCtx)
		return err
	}
	return nil
}

func (s *Service) rollback(ctx context.Context) {
	if _, err := s.bridge.Execute(context.WithoutCancel(ctx), "ROLLBACK"); err != nil {
		s.log.Warn("rollback failed", logger.Error(err))
	}
}

// Flush persists the database image on non-durable backends.
func (s *Service) Flush(ctx context.Context) error {
	if !s.Initialized() {
		return ErrNotInitialized
	}
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return s.bridge.Flush(ctx)
}

// Close closes the database. Further statements fail with ErrNotInitialized.
func (s *Service) Close(ctx context.Context) error {
	if !s.Initialized() {
		return nil
	}
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	s.mu.Lock()
	s.initialized = false
	s.mu.Unlock()

	if err := s.bridge.Close(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
