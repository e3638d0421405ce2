package offline

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/MrSnakeDoc/bookmarker/internal/apperr"
	"github.com/MrSnakeDoc/bookmarker/internal/logger"
)

// Registration owns the active and the waiting controller and answers
// requests with whichever is active.
type Registration struct {
	network http.RoundTripper
	notify  Notifier
	sync    *SyncManager
	log     logger.Logger

	mu      sync.RWMutex
	active  *Controller
	waiting *Controller
}

// NewRegistration serves requests through network until a controller is
// active.
func NewRegistration(network http.RoundTripper, notify Notifier, syncs *SyncManager, log logger.Logger) *Registration {
	if network == nil {
		network = http.DefaultTransport
	}
	return &Registration{network: network, notify: notify, sync: syncs, log: log}
}

func (r *Registration) Active() *Controller {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

func (r *Registration) Waiting() *Controller {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.waiting
}

func (r *Registration) Sync() *SyncManager { return r.sync }

// Update installs next. Without an active controller it is activated right
// away; otherwise it waits for skipWaiting and pages are told an update is
// available.
func (r *Registration) Update(ctx context.Context, next *Controller) error {
	if err := next.Install(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	if r.active == nil {
		r.active = next
		r.mu.Unlock()
		if err := next.Activate(ctx); err != nil {
			r.mu.Lock()
			r.active = nil
			r.mu.Unlock()
			return err
		}
		return nil
	}
	if r.waiting != nil {
		r.waiting.retire()
	}
	r.waiting = next
	r.mu.Unlock()

	r.log.Info("🔔 Offline cache update waiting", logger.String("version", next.Version()))
	r.publish(Message{Type: MsgUpdateAvailable, Version: next.Version()})
	return nil
}

// SkipWaiting activates the waiting controller, if any, and retires the
// active one.
func (r *Registration) SkipWaiting(ctx context.Context) error {
	r.mu.Lock()
	next := r.waiting
	if next == nil {
		r.mu.Unlock()
		return nil
	}
	r.waiting = nil
	r.mu.Unlock()

	if err := next.Activate(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	prev := r.active
	r.active = next
	r.mu.Unlock()
	if prev != nil {
		prev.retire()
	}

	r.log.Info("🔄 Offline cache controller changed", logger.String("version", next.Version()))
	r.publish(Message{Type: MsgControllerChange, Version: next.Version()})
	return nil
}

// HandleMessage applies a control message sent by a page.
func (r *Registration) HandleMessage(ctx context.Context, msg ControlMessage) error {
	switch msg.Action {
	case ActionSkipWaiting:
		return r.SkipWaiting(ctx)
	case ActionSync:
		if r.sync == nil {
			return apperr.New(apperr.KindValidation, "background sync is disabled")
		}
		if msg.Tag == "" {
			return apperr.New(apperr.KindValidation, "sync requires a tag")
		}
		r.sync.Register(msg.Tag)
		return r.sync.Fire(ctx, msg.Tag)
	default:
		return apperr.Newf(apperr.KindValidation, "unknown action %q", msg.Action)
	}
}

// RoundTrip implements http.RoundTripper.
func (r *Registration) RoundTrip(req *http.Request) (*http.Response, error) {
	if c := r.Active(); c != nil {
		return c.RoundTrip(req)
	}
	resp, err := r.network.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("no offline controller: %w", networkError(req, err))
	}
	return resp, nil
}

func (r *Registration) publish(msg Message) {
	if r.notify != nil {
		r.notify.Publish(msg)
	}
}
