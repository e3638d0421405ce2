package rpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/bookmarker/internal/logger"
	"github.com/MrSnakeDoc/bookmarker/internal/storage"
)

const shutdownFlushTimeout = 10 * time.Second

// Worker owns the storage engine and serves requests one at a time.
type Worker struct {
	backends []storage.Backend
	log      logger.Logger
}

// workerState is built by the serve loop and threaded through every handler.
type workerState struct {
	ready  bool
	dbName string
	engine *storage.Engine
}

// NewWorker creates a worker that will try backends in order on initializeDatabase.
func NewWorker(log logger.Logger, backends ...storage.Backend) *Worker {
	return &Worker{backends: backends, log: log}
}

// Serve handles requests until ctx is done or requests is closed, then closes
// responses. An engine still open at that point is closed, flushing its image.
func (w *Worker) Serve(ctx context.Context, requests <-chan Request, responses chan<- Response) {
	defer close(responses)

	st := &workerState{}
	defer w.shutdown(ctx, st)

	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-requests:
			if !ok {
				return
			}
			resp := w.handle(ctx, st, req)
			select {
			case responses <- resp:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (w *Worker) shutdown(ctx context.Context, st *workerState) {
	if st.engine == nil {
		return
	}
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownFlushTimeout)
	defer cancel()
	if err := st.engine.Close(flushCtx); err != nil {
		w.log.Error("failed to close storage engine on shutdown", logger.Error(err))
		return
	}
	w.log.Info("✅ Storage engine closed", logger.String("backend", st.engine.Tag()))
}

func (w *Worker) handle(ctx context.Context, st *workerState, req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = errorResponse(req.ID, fmt.Errorf("worker panic: %v", r))
		}
	}()

	switch req.Action {
	case ActionInitialize:
		st.ready = true
		return Response{ID: req.ID, Type: TypeInitialized}

	case ActionInitializeDatabase:
		tag, err := w.initializeDatabase(ctx, st, req.DBName)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return Response{ID: req.ID, Type: TypeDBInitialized, Backend: tag}

	case ActionExecute:
		if st.engine == nil {
			return errorResponse(req.ID, errors.New("database not initialized"))
		}
		rows, err := st.engine.Execute(ctx, req.SQL, req.Params...)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return Response{ID: req.ID, Type: TypeQueryResult, Rows: rows}

	case ActionFlush:
		if st.engine == nil {
			return errorResponse(req.ID, errors.New("database not initialized"))
		}
		if err := st.engine.Flush(ctx); err != nil {
			return errorResponse(req.ID, err)
		}
		return Response{ID: req.ID, Type: TypeFlushed}

	case ActionClose:
		engine := st.engine
		*st = workerState{ready: st.ready}
		if engine != nil {
			// The engine is released even when its final flush fails.
			if err := engine.Close(ctx); err != nil {
				return errorResponse(req.ID, err)
			}
			w.log.Info("storage engine closed", logger.String("backend", engine.Tag()))
		}
		return Response{ID: req.ID, Type: TypeClosed}

	default:
		return errorResponse(req.ID, fmt.Errorf("unknown action %q", req.Action))
	}
}

func (w *Worker) initializeDatabase(ctx context.Context, st *workerState, dbName string) (string, error) {
	if !st.ready {
		return "", errors.New("worker not initialized")
	}
	if dbName == "" {
		return "", errors.New("database name is required")
	}
	if st.engine != nil {
		if dbName != st.dbName {
			return "", fmt.Errorf("database %q already open", st.dbName)
		}
		return st.engine.Tag(), nil
	}

	sel := &storage.Selection{}
	engine, err := sel.Select(ctx, dbName, w.backends...)
	if err != nil {
		return "", err
	}
	st.dbName = dbName
	st.engine = engine

	w.log.Info("💾 Database initialized",
		logger.String("db", dbName),
		logger.String("backend", sel.Tag()))
	return sel.Tag(), nil
}

func errorResponse(id string, err error) Response {
	return Response{ID: id, Type: TypeError, Error: err.Error()}
}
