// Package testutil holds fixtures shared by the package tests.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhle/career-planner/internal/auth"
	"github.com/nhle/career-planner/internal/store"
)

// NewTestStore opens an in-memory planner database with every migration
// applied. The store is closed when the test ends.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err, "opening test store")

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})
	return s
}

// QuietLogger drops everything.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// AsUser returns a context authenticated as userID on the free plan.
func AsUser(userID string) context.Context {
	return auth.WithPrincipal(context.Background(), auth.Principal{UserID: userID})
}

// AsProUser is AsUser on the Pro plan.
func AsProUser(userID string) context.Context {
	return auth.WithPrincipal(context.Background(), auth.Principal{UserID: userID, Pro: true})
}
