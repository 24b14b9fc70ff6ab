package database

import (
	"context"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadURL(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Options{})
	require.Error(t, err)

	_, err = New(context.Background(), Options{URL: "postgres://%zz"})
	require.ErrorContains(t, err, "parse database URL")
}

func TestSlogLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelError, slogLevel(tracelog.LogLevelError))
	assert.Equal(t, slog.LevelWarn, slogLevel(tracelog.LogLevelWarn))
	assert.Equal(t, slog.LevelInfo, slogLevel(tracelog.LogLevelInfo))
	assert.Equal(t, slog.LevelDebug, slogLevel(tracelog.LogLevelTrace))
}
