// Package view turns loaded page data into render-ready values. Every
// function here is pure: the same section state always renders the same way.
package view

import (
	"context"

	"github.com/tendant/simple-storefront/pkg/storefront"
)

// Fallback markup shown while a deferred section is pending.
const (
	FallbackRecommendedProducts = "Loading..."
	FallbackCart                = "Loading cart ..."
	FallbackAccount             = "Sign in"
)

// Section is a render boundary around a deferred value: it carries the
// value's state and the placeholder shown until the value settles.
type Section[T any] struct {
	Name     string           `json:"name"`
	Status   storefront.State `json:"status"`
	Data     T                `json:"data,omitempty"`
	Fallback string           `json:"fallback,omitempty"`
}

// Snapshot captures the current state of d without blocking.
func Snapshot[T any](name string, d *storefront.Deferred[T], fallback string) Section[T] {
	s := Section[T]{Name: name, Status: storefront.StateUnavailable, Fallback: fallback}
	if d == nil {
		return s
	}
	s.Data, s.Status = d.Result()
	return s
}

// Settle waits for d and captures its final state. A done ctx yields the
// pending section.
func Settle[T any](ctx context.Context, name string, d *storefront.Deferred[T], fallback string) Section[T] {
	if d != nil {
		select {
		case <-d.Done():
		case <-ctx.Done():
		}
	}
	return Snapshot(name, d, fallback)
}

// Render draws s: the fallback while pending, ready applied to the value once
// ready, and nothing when the value is unavailable.
func Render[T any](s Section[T], ready func(T) string) string {
	switch s.Status {
	case storefront.StatePending:
		return s.Fallback
	case storefront.StateReady:
		return ready(s.Data)
	default:
		return ""
	}
}
