package notify

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"seo-offers/internal/common/logger"
	"seo-offers/internal/models"
)

// ErrQueueFull is returned when the dispatcher cannot accept another event.
var ErrQueueFull = stderrors.New("notification queue full")

// ErrDispatcherStopped is returned after Stop.
var ErrDispatcherStopped = stderrors.New("notification dispatcher stopped")

// Action is one follow-up run for every submitted offer.
type Action struct {
	Name string
	Run  func(ctx context.Context, ev models.OfferSubmitted) error
}

// DirectDispatcher runs follow-up actions in-process on a bounded queue. It
// is used when no workflow engine is configured.
type DirectDispatcher struct {
	actions []Action
	queue   chan models.OfferSubmitted
	timeout time.Duration
	logger  logger.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func NewDirectDispatcher(actions []Action, queueSize, workers int, timeout time.Duration, log logger.Logger) *DirectDispatcher {
	if queueSize <= 0 {
		queueSize = 100
	}
	if workers <= 0 {
		workers = 2
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	d := &DirectDispatcher{
		actions: actions,
		queue:   make(chan models.OfferSubmitted, queueSize),
		timeout: timeout,
		logger:  logger.Component(log, "direct-dispatcher"),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.loop()
	}
	return d
}

// OfferSubmitted enqueues the event without blocking.
func (d *DirectDispatcher) OfferSubmitted(_ context.Context, ev models.OfferSubmitted) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrDispatcherStopped
	}

	select {
	case d.queue <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop rejects new events and waits for queued ones to finish or ctx to end.
func (d *DirectDispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *DirectDispatcher) loop() {
	defer d.wg.Done()
	for ev := range d.queue {
		d.run(ev)
	}
}

// run executes every action; one failing does not skip the rest.
func (d *DirectDispatcher) run(ev models.OfferSubmitted) {
	for _, a := range d.actions {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := a.Run(ctx, ev)
		cancel()

		fields := map[string]interface{}{"action": a.Name, "offerId": ev.OfferID}
		if err != nil {
			fields["error"] = err.Error()
			d.logger.Error("offer follow-up failed", fields)
			continue
		}
		d.logger.Debug("offer follow-up done", fields)
	}
}
