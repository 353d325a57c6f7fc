package services

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// CapabilityLimiter caps concurrent calls into a rate-limited capability.
type CapabilityLimiter struct {
	sem *semaphore.Weighted
}

func NewCapabilityLimiter(limit int) *CapabilityLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &CapabilityLimiter{sem: semaphore.NewWeighted(int64(limit))}
}

// Do runs fn once a slot is free, or returns the context error if ctx ends first.
func (l *CapabilityLimiter) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)

	return fn(ctx)
}
