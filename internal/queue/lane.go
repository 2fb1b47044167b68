// Package queue serializes work per key. The launcher keys lanes by tool
// title so one editor is never started twice at once, while different
// editors run side by side.
package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrEmptyLaneID is returned when Do is called with a blank lane ID.
	ErrEmptyLaneID = errors.New("queue: lane ID must not be empty")
	// ErrClosed is returned by Do after Close.
	ErrClosed = errors.New("queue: closed")
)

// defaultLaneBufferSize is the capacity of each lane's work channel.
// Tests may override it to exercise full-buffer paths.
var defaultLaneBufferSize = 64

type job struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

type lane struct {
	jobs chan job
}

// run drains the lane in FIFO order until its channel is closed. Jobs whose
// context is already done are skipped.
func (l *lane) run(wg *sync.WaitGroup) {
	defer wg.Done()
	for j := range l.jobs {
		if err := j.ctx.Err(); err != nil {
			j.done <- err
			continue
		}
		j.done <- safeExec(j.ctx, j.fn)
	}
}

func safeExec(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("queue: panic: %v", r)
		}
	}()
	return fn(ctx)
}

// LaneQueue runs submitted functions one at a time per lane. Lane IDs are
// compared case-insensitively after trimming. Each lane owns one worker
// goroutine, started on first use and stopped by Close.
type LaneQueue struct {
	// closeMu is held for reading while a job is being enqueued, so Close
	// never closes a lane channel under a pending send.
	closeMu sync.RWMutex
	closed  bool

	mu    sync.Mutex
	lanes map[string]*lane
	wg    sync.WaitGroup
}

// NewLaneQueue creates an empty queue.
func NewLaneQueue() *LaneQueue {
	return &LaneQueue{lanes: make(map[string]*lane)}
}

// Do runs fn in laneID's lane and blocks until it returns or ctx is done.
// fn receives ctx. If ctx ends while fn is still queued, Do returns ctx.Err()
// and the worker later skips fn.
func (q *LaneQueue) Do(ctx context.Context, laneID string, fn func(context.Context) error) error {
	key := strings.ToLower(strings.TrimSpace(laneID))
	if key == "" {
		return ErrEmptyLaneID
	}
	j := job{ctx: ctx, fn: fn, done: make(chan error, 1)}

	q.closeMu.RLock()
	if q.closed {
		q.closeMu.RUnlock()
		return ErrClosed
	}
	l := q.getOrCreateLane(key)
	select {
	case l.jobs <- j:
	case <-ctx.Done():
		q.closeMu.RUnlock()
		return ctx.Err()
	}
	q.closeMu.RUnlock()

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *LaneQueue) getOrCreateLane(key string) *lane {
	q.mu.Lock()
	defer q.mu.Unlock()
	if l, ok := q.lanes[key]; ok {
		return l
	}
	l := &lane{jobs: make(chan job, defaultLaneBufferSize)}
	q.lanes[key] = l
	q.wg.Add(1)
	go l.run(&q.wg)
	return l
}

// Close stops accepting work, lets queued jobs finish, and waits for every
// lane worker to exit. Calling Close more than once is safe.
func (q *LaneQueue) Close() {
	q.closeMu.Lock()
	if !q.closed {
		q.closed = true
		q.mu.Lock()
		for _, l := range q.lanes {
			close(l.jobs)
		}
		q.mu.Unlock()
	}
	q.closeMu.Unlock()
	q.wg.Wait()
}
