// Package hooks provides observability hooks for pgengine
package hooks

import (
	"context"
	"time"
)

// QueryEvent carries one executed statement through Before/After hooks.
type QueryEvent struct {
	Query     string
	StartTime time.Time
	Err       error
}

// QueryHook is invoked around every statement the engine executes.
type QueryHook interface {
	// BeforeQuery is called before a query is executed. The returned
	// context is passed to the query and to AfterQuery.
	BeforeQuery(ctx context.Context, event *QueryEvent) context.Context
	// AfterQuery is called after a query is executed, with event.Err set.
	AfterQuery(ctx context.Context, event *QueryEvent)
}
