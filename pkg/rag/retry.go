// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rag

import (
	"context"
	"time"
)

// Retryer retries transient provider failures with bounded exponential
// backoff: 3 attempts, 200ms base, doubled per attempt, capped at 2s.
type Retryer struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// NewRetryer returns a retryer with the default budget.
func NewRetryer() *Retryer {
	return &Retryer{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

// DoWithResult runs fn until it succeeds or the attempt budget is spent.
// Context cancellation aborts between attempts and is returned unwrapped.
func DoWithResult[T any](ctx context.Context, r *Retryer, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < r.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := r.BaseDelay
			for i := 1; i < attempt; i++ {
				delay *= 2
			}
			if delay > r.MaxDelay {
				delay = r.MaxDelay
			}
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
	}
	return zero, &RetryError{Attempts: r.MaxAttempts, Err: lastErr}
}
