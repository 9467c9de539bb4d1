package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	attemptsPerProvider = 2
	retryDelay          = 1 * time.Second
)

// ErrExhausted is returned when every provider in the chain has failed all of
// its attempts.
var ErrExhausted = errors.New("all providers exhausted")

// Completer runs a single chat completion attempt.
type Completer interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// Chain tries an ordered list of providers, each twice with a short pause
// between attempts, and returns the first success. The result shape is the
// same no matter which backend produced it.
type Chain struct {
	providers []Completer
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewChain creates a fallback chain over the given providers, tried in order.
func NewChain(providers ...Completer) *Chain {
	return &Chain{
		providers: providers,
		sleep:     sleepCtx,
	}
}

// Complete runs the request through the chain.
func (c *Chain) Complete(ctx context.Context, req Request) (string, error) {
	var lastErr error
	for _, p := range c.providers {
		for attempt := range attemptsPerProvider {
			if err := ctx.Err(); err != nil {
				return "", err
			}

			content, err := p.Complete(ctx, req)
			if err == nil {
				return content, nil
			}
			lastErr = err
			slog.Warn("provider attempt failed",
				"provider", p.Name(), "attempt", attempt+1, "error", err)

			if attempt < attemptsPerProvider-1 {
				if err := c.sleep(ctx, retryDelay); err != nil {
					return "", err
				}
			}
		}
	}

	if lastErr != nil {
		return "", errors.Join(ErrExhausted, lastErr)
	}
	return "", ErrExhausted
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
