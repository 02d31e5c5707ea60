// Package repository implements SQLite-backed persistence for orders, users
// and the read-only product catalog. Race-prone writes use compare-and-set
// predicates so the winner is decided by the database, not by Go code.
package repository

import (
	"context"
	"errors"
	"time"
)

// Per-operation deadlines. Reads are short; writes allow for lock waits.
const (
	queryTimeout = 3 * time.Second
	execTimeout  = 5 * time.Second
)

// Sentinel errors surfaced by Create so the service layer can map them to
// typed validation failures.
var (
	ErrUnknownProductSize = errors.New("unknown product or size")
	ErrProductUnavailable = errors.New("product not available")
)

func withQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, queryTimeout)
}

func withExecTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, execTimeout)
}
