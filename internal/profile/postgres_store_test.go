package profile

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Constitosh/verifyDN/internal/db"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

// newPostgresStore connects to TEST_DATABASE_DSN; nil when unset.
func newPostgresStore(t *testing.T) Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		return nil
	}

	sqlDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sqlDB.PingContext(ctx))
	require.NoError(t, db.RunProfilesMigration(ctx, sqlDB))

	return NewPostgresStore(&db.DB{DB: sqlDB})
}

// uniqueKey keeps shared databases free of cross-test collisions.
func uniqueKey(t *testing.T) string {
	return strings.ReplaceAll(t.Name(), "/", "_") + "_" + time.Now().Format("150405.000000000")
}
