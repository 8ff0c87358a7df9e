package main

import (
	"bytes"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s1natex/taskboard/internal/middleware"
	"github.com/s1natex/taskboard/internal/tasks"
)

func newAPI(t *testing.T) string {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireUserID())
		tasks.RegisterRoutes(r, tasks.NewInMemoryRepo(), logger)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv.URL + "/api"
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

var taskLine = regexp.MustCompile(`(?m)^  (\S+)  (.+)$`)

func section(out, title string) string {
	start := strings.Index(out, title+" (")
	if start < 0 {
		return ""
	}
	rest := out[start:]
	if end := strings.Index(rest, "\n\n"); end >= 0 {
		return rest[:end]
	}
	return rest
}

func TestCLI_AddMoveRemove(t *testing.T) {
	api := newAPI(t)
	base := []string{"--api", api, "--user", "cli-user"}

	out, err := runCLI(t, append(base, "add", "Buy", "milk")...)
	require.NoError(t, err)
	assert.Contains(t, section(out, "Tasks"), "Buy milk")

	m := taskLine.FindStringSubmatch(section(out, "Tasks"))
	require.Len(t, m, 3)
	id := m[1]

	out, err = runCLI(t, append(base, "move", id, "done")...)
	require.NoError(t, err)
	assert.Contains(t, section(out, "Done"), "Buy milk")

	// a fresh process sees the persisted move
	out, err = runCLI(t, append(base, "list")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Tasks (0)")
	assert.Contains(t, section(out, "Done"), id)

	_, err = runCLI(t, append(base, "edit", id, "Buy", "oat", "milk")...)
	require.NoError(t, err)
	out, err = runCLI(t, append(base, "list")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Buy oat milk")

	_, err = runCLI(t, append(base, "rm", id)...)
	require.NoError(t, err)
	out, err = runCLI(t, append(base, "list")...)
	require.NoError(t, err)
	assert.NotContains(t, out, id)
}

func TestCLI_MoveErrors(t *testing.T) {
	api := newAPI(t)
	base := []string{"--api", api, "--user", "cli-user"}

	_, err := runCLI(t, append(base, "move", "ghost", "done")...)
	assert.ErrorContains(t, err, "not found")

	out, err := runCLI(t, append(base, "add", "x")...)
	require.NoError(t, err)
	id := taskLine.FindStringSubmatch(out)[1]

	_, err = runCLI(t, append(base, "move", id, id)...)
	assert.ErrorContains(t, err, "nothing to do")
}

func TestCLI_IdentityFilePersists(t *testing.T) {
	api := newAPI(t)
	path := filepath.Join(t.TempDir(), "identity.yaml")

	first, err := runCLI(t, "--api", api, "--identity", path, "whoami")
	require.NoError(t, err)
	second, err := runCLI(t, "--api", api, "--identity", path, "whoami")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(first))
	assert.Equal(t, first, second)

	_, err = runCLI(t, "--api", api, "--identity", path, "add", "mine")
	require.NoError(t, err)
	out, err := runCLI(t, "--api", api, "--user", strings.TrimSpace(first), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "mine")
}
