package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/portal-flows/internal/confirmation/flowlog"
	"github.com/jcmexdev/portal-flows/internal/confirmation/flowlog/sqlite"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seedLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flows.db")
	repo, err := sqlite.Open(path)
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, flowlog.NewEntry(ctx, "f1", flowlog.StatusStarted, "vehicle_paper", "", `{"total":10}`, nil)))
	require.NoError(t, repo.Save(ctx, flowlog.NewEntry(ctx, "f1", flowlog.StatusNavigated, "vehicle_paper", "/licenses/renew", `{"type":"vehicle_paper"}`, nil)))
	return path
}

func TestHistory(t *testing.T) {
	db := seedLog(t)

	out, err := run(t, "--db", db, "history", "f1")
	require.NoError(t, err)
	assert.Contains(t, out, "STARTED")
	assert.Contains(t, out, "/licenses/renew")

	out, err = run(t, "--db", db, "--json", "history", "f1")
	require.NoError(t, err)
	var views []entryView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 2)
	assert.Equal(t, flowlog.StatusNavigated, views[1].Status)
	assert.JSONEq(t, `{"type":"vehicle_paper"}`, string(views[1].Payload))
}

func TestLatest(t *testing.T) {
	db := seedLog(t)

	out, err := run(t, "--db", db, "latest", "f1")
	require.NoError(t, err)
	assert.Contains(t, out, "NAVIGATED")
	assert.NotContains(t, out, "STARTED")

	_, err = run(t, "--db", db, "latest", "nope")
	assert.ErrorIs(t, err, flowlog.ErrNotFound)
}

func TestMissingDatabase(t *testing.T) {
	_, err := run(t, "--db", filepath.Join(t.TempDir(), "missing.db"), "history", "f1")
	assert.Error(t, err)
}

func TestRoutes(t *testing.T) {
	out, err := run(t, "--config", "", "routes")
	require.NoError(t, err)
	assert.Contains(t, out, "vehicle_paper")
	assert.Contains(t, out, "/licenses/payment")
	assert.Contains(t, out, "Confirm Request")
}
