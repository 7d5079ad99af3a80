// Package worker runs a single CPU-bound job on its own goroutine behind a
// request/response channel.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// ErrAlreadySent is returned when a second request is sent to a one-shot worker.
	ErrAlreadySent = errors.New("worker already received its request")
	// ErrDisposed is returned when the worker was disposed before answering.
	ErrDisposed = errors.New("worker disposed")
)

type result[Resp any] struct {
	resp Resp
	err  error
}

// Worker is a one-shot worker: it accepts exactly one request and produces
// exactly one response.
type Worker[Req, Resp any] struct {
	in      chan Req
	out     chan result[Resp]
	done    chan struct{}
	sent    atomic.Bool
	dispose sync.Once
}

// Spawn starts a worker that answers its request with fn.
func Spawn[Req, Resp any](fn func(Req) (Resp, error)) *Worker[Req, Resp] {
	w := &Worker[Req, Resp]{
		in:   make(chan Req, 1),
		out:  make(chan result[Resp], 1),
		done: make(chan struct{}),
	}
	go w.loop(fn)
	return w
}

func (w *Worker[Req, Resp]) loop(fn func(Req) (Resp, error)) {
	select {
	case req := <-w.in:
		w.out <- run(fn, req)
	case <-w.done:
	}
}

func run[Req, Resp any](fn func(Req) (Resp, error), req Req) (res result[Resp]) {
	defer func() {
		if r := recover(); r != nil {
			res = result[Resp]{err: fmt.Errorf("worker panicked: %v", r)}
		}
	}()
	resp, err := fn(req)
	return result[Resp]{resp: resp, err: err}
}

// Send hands the request to the worker. Only the first call succeeds.
func (w *Worker[Req, Resp]) Send(req Req) error {
	if !w.sent.CompareAndSwap(false, true) {
		return ErrAlreadySent
	}
	select {
	case <-w.done:
		return ErrDisposed
	default:
	}
	w.in <- req
	return nil
}

// Await blocks until the worker answers, ctx is done or the worker is disposed.
func (w *Worker[Req, Resp]) Await(ctx context.Context) (Resp, error) {
	var zero Resp
	select {
	case res := <-w.out:
		return res.resp, res.err
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-w.done:
		return zero, ErrDisposed
	}
}

// Dispose releases the worker. A job already running finishes in the
// background and its response is discarded.
func (w *Worker[Req, Resp]) Dispose() {
	w.dispose.Do(func() { close(w.done) })
}
