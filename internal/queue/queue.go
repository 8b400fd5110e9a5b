package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// ErrClosed is returned to callers whose operation was still pending
// when the queue shut down.
var ErrClosed = errors.New("request queue closed")

// Queue executes submitted operations strictly one at a time in FIFO
// submission order. The Toggl report endpoints are rate-limited and
// return inconsistent pages when the same client hits them
// concurrently; funnelling every report call through one worker
// removes the request race without server-side coordination.
type Queue struct {
	log  *slog.Logger
	ops  chan func()
	quit chan struct{}
	done chan struct{}
	once sync.Once
}

// New starts the worker goroutine.
func New(log *slog.Logger) *Queue {
	q := &Queue{
		log:  log,
		ops:  make(chan func(), 64),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		// Quit takes priority over queued work so shutdown is
		// deterministic: nothing new starts once Close is called.
		select {
		case <-q.quit:
			return
		default:
		}
		select {
		case <-q.quit:
			return
		case op := <-q.ops:
			op()
		}
	}
}

// Close stops the worker. An operation already in flight finishes
// before Close returns; callers whose operation has not settled
// receive ErrClosed. Safe to call more than once.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.quit) })
	<-q.done
}

// Do submits op and blocks until it has run. Operations ahead in the
// queue settle first, success or failure; a failed operation settles
// only its own caller and never blocks later submissions. ctx is
// handed to the operation itself — short of queue teardown, a queued
// operation always eventually runs.
func Do[T any](ctx context.Context, q *Queue, name string, op func(context.Context) (T, error)) (T, error) {
	type outcome struct {
		val T
		err error
	}
	res := make(chan outcome, 1)
	id := uuid.NewString()
	q.log.Debug("queueing operation", slog.String("op", name), slog.String("id", id))
	wrapped := func() {
		q.log.Debug("operation started", slog.String("op", name), slog.String("id", id))
		v, err := op(ctx)
		q.log.Debug("operation settled",
			slog.String("op", name),
			slog.String("id", id),
			slog.Bool("ok", err == nil),
		)
		res <- outcome{val: v, err: err}
	}

	select {
	case q.ops <- wrapped:
	case <-q.quit:
		var zero T
		return zero, ErrClosed
	}

	select {
	case out := <-res:
		return out.val, out.err
	case <-q.quit:
		// Prefer a result that settled in the same instant.
		select {
		case out := <-res:
			return out.val, out.err
		default:
			var zero T
			return zero, ErrClosed
		}
	}
}
