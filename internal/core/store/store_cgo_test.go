//go:build cgo

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oasislearninghub/oasis/internal/config"
	"github.com/oasislearninghub/oasis/internal/core"
)

func TestLibsqlInMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, config.StoreConfig{Driver: "libsql", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.Equal(t, "libsql", db.Driver())

	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.UpsertEnrollment(ctx, core.Enrollment{ID: "ENR-7", StudentName: "Kit"}))

	got, err := db.LookupEnrollment(ctx, "ENR-7")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Kit", got.StudentName)
}

func TestLibsqlFileStoreUsesSingleWriter(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, config.StoreConfig{
		Driver: "libsql",
		Path:   "file:" + filepath.Join(t.TempDir(), "enrollments.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.Equal(t, 1, db.DB.Stats().MaxOpenConnections)

	pragmas := map[string]string{}
	for _, name := range []string{"journal_mode", "busy_timeout"} {
		var value string
		require.NoError(t, db.DB.QueryRowContext(ctx, "PRAGMA "+name).Scan(&value))
		pragmas[name] = value
	}
	require.Equal(t, "wal", pragmas["journal_mode"])
	require.NotEqual(t, "0", pragmas["busy_timeout"])
}
