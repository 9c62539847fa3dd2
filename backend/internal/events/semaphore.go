package events

import (
	"context"
	"errors"
)

var (
	ErrAcquireTimeout = errors.New("semaphore: acquire reached time limit")
	ErrNotAcquired    = errors.New("semaphore: release without acquire")
)

const DefaultSemaphoreSize = 100

// Semaphore bounds how many goroutines may run a section at once.
type Semaphore struct {
	ch chan struct{}
}

func NewSemaphore(size int) *Semaphore {
	if size <= 0 {
		size = DefaultSemaphoreSize
	}
	return &Semaphore{ch: make(chan struct{}, size)}
}

func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ErrAcquireTimeout
	}
}

func (s *Semaphore) Release() error {
	select {
	case <-s.ch:
		return nil
	default:
		return ErrNotAcquired
	}
}
