package migrate

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestUpDownSQLite(t *testing.T) {
	SetLogger(zap.NewNop())
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "migrate.db")

	require.NoError(t, Up(ctx, "sqlite", dsn))
	v, err := Version(ctx, "sqlite", dsn)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash) VALUES ('u1', 'a@example.com', 'x')`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash) VALUES ('u2', 'a@example.com', 'y')`)
	assert.Error(t, err, "emails are unique")
	require.NoError(t, db.Close())

	require.NoError(t, Status(ctx, "sqlite", dsn))

	require.NoError(t, Down(ctx, "sqlite", dsn))
	v, err = Version(ctx, "sqlite", dsn)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)
}

func TestUnsupportedDriver(t *testing.T) {
	err := Up(context.Background(), "mysql", "dsn")
	assert.Error(t, err)
}
