package rpc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/MrSnakeDoc/bookmarker/internal/apperr"
	"github.com/MrSnakeDoc/bookmarker/internal/logger"
	"github.com/MrSnakeDoc/bookmarker/internal/storage"
)

// ErrBridgeClosed is returned once the worker stopped answering.
var ErrBridgeClosed = errors.New("storage bridge closed")

// Options tunes a Bridge.
type Options struct {
	Timeout     time.Duration // applied to calls whose context has no deadline
	InitRetries uint64        // extra attempts of the initialize handshake
	Logger      logger.Logger
}

// Bridge sends requests to a worker and resolves each caller with the response
// carrying its correlation id, in whatever order responses arrive.
type Bridge struct {
	requests chan<- Request
	opts     Options
	log      logger.Logger

	mu      sync.Mutex
	pending map[string]chan Response

	done chan struct{}
}

// NewBridge starts dispatching responses to pending calls.
func NewBridge(requests chan<- Request, responses <-chan Response, opts Options) *Bridge {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	b := &Bridge{
		requests: requests,
		opts:     opts,
		log:      opts.Logger,
		pending:  make(map[string]chan Response),
		done:     make(chan struct{}),
	}
	go b.dispatch(responses)
	return b
}

// Start runs w on its own goroutine and returns a Bridge connected to it.
// The worker stops when ctx is done.
func Start(ctx context.Context, w *Worker, opts Options) *Bridge {
	requests := make(chan Request, 64)
	responses := make(chan Response, 64)
	go w.Serve(ctx, requests, responses)
	return NewBridge(requests, responses, opts)
}

func (b *Bridge) dispatch(responses <-chan Response) {
	defer close(b.done)
	for resp := range responses {
		b.mu.Lock()
		ch, ok := b.pending[resp.ID]
		delete(b.pending, resp.ID)
		b.mu.Unlock()

		if !ok {
			b.log.Debug("dropping response without pending call",
				logger.String("id", resp.ID),
				logger.String("type", string(resp.Type)))
			continue
		}
		ch <- resp
	}
}

// Pending returns the number of calls waiting for a response.
func (b *Bridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (b *Bridge) call(ctx context.Context, req Request) (Response, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.Timeout)
		defer cancel()
	}

	req.ID = uuid.NewString()
	ch := make(chan Response, 1)

	b.mu.Lock()
	b.pending[req.ID] = ch
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.pending, req.ID)
		b.mu.Unlock()
	}()

	select {
	case b.requests <- req:
	case <-b.done:
		return Response{}, ErrBridgeClosed
	case <-ctx.Done():
		return Response{}, fmt.Errorf("%s request not sent: %w", req.Action, ctx.Err())
	}

	select {
	case resp := <-ch:
		if resp.Type == TypeError {
			return resp, apperr.New(apperr.KindStorage, resp.Error)
		}
		return resp, nil
	case <-b.done:
		return Response{}, ErrBridgeClosed
	case <-ctx.Done():
		return Response{}, fmt.Errorf("%s request %s: %w", req.Action, req.ID, ctx.Err())
	}
}

func expect(resp Response, want ResponseType) error {
	if resp.Type != want {
		return fmt.Errorf("unexpected response %q, want %q", resp.Type, want)
	}
	return nil
}

// Initialize performs the worker handshake. Timeouts are retried with
// exponential backoff; an error answered by the worker is final.
func (b *Bridge) Initialize(ctx context.Context) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), b.opts.InitRetries), ctx)

	op := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
		defer cancel()

		resp, err := b.call(attemptCtx, Request{Action: ActionInitialize})
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return err
		case err != nil:
			return backoff.Permanent(err)
		}
		return backoff.Permanent(expect(resp, TypeInitialized))
	}
	notify := func(err error, wait time.Duration) {
		b.log.Warn("storage worker handshake failed, retrying",
			logger.Error(err), logger.Duration("wait", wait))
	}
	return backoff.RetryNotify(op, policy, notify)
}

// InitializeDatabase opens dbName on the first backend that works and returns
// the backend tag.
func (b *Bridge) InitializeDatabase(ctx context.Context, dbName string) (string, error) {
	resp, err := b.call(ctx, Request{Action: ActionInitializeDatabase, DBName: dbName})
	if err != nil {
		return "", err
	}
	if err := expect(resp, TypeDBInitialized); err != nil {
		return "", err
	}
	return resp.Backend, nil
}

// Execute runs one statement on the worker.
func (b *Bridge) Execute(ctx context.Context, sql string, params ...any) ([]storage.Row, error) {
	resp, err := b.call(ctx, Request{
		Action: ActionExecute,
		SQL:    sql,
		Params: append([]any(nil), params...),
	})
	if err != nil {
		return nil, err
	}
	if err := expect(resp, TypeQueryResult); err != nil {
		return nil, err
	}
	return resp.Rows, nil
}

// Flush asks the worker to persist the database image.
func (b *Bridge) Flush(ctx context.Context) error {
	resp, err := b.call(ctx, Request{Action: ActionFlush})
	if err != nil {
		return err
	}
	return expect(resp, TypeFlushed)
}

// Close closes the database. With the key-value backend the image is
// persisted before the worker acknowledges.
func (b *Bridge) Close(ctx context.Context) error {
	resp, err := b.call(ctx, Request{Action: ActionClose})
	if err != nil {
		return err
	}
	return expect(resp, TypeClosed)
}
