//go:build integration

package integration_test

import (
	"context"
	"testing"

	"github.com/kestrelops/sigmagate/internal/adapter/postgres"
)

func TestMigrationsCreateDecisionRecordsTable(t *testing.T) {
	var exists bool
	err := testPool.QueryRow(context.Background(),
		`SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = 'decision_records'
		)`).Scan(&exists)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !exists {
		t.Fatal("decision_records table missing after migrations")
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	// TestMain already ran migrations once; goose must treat a second
	// run as a no-op.
	dsn := testPool.Config().ConnString()

	if err := postgres.RunMigrations(context.Background(), dsn); err != nil {
		t.Fatalf("second migration run: %v", err)
	}
}
