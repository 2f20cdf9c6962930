package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jrsteele09/go-log-dashboard/internal/config"
	"github.com/jrsteele09/go-log-dashboard/logs"
	"github.com/jrsteele09/go-log-dashboard/mockapi"
	"github.com/jrsteele09/go-log-dashboard/tokenstore"
	"github.com/stretchr/testify/require"
)

func setupTestEnvironment(t *testing.T) (*environment, *mockapi.Server) {
	t.Helper()
	api := mockapi.New(config.Static{Env: "TEST", SigningSecret: "cli-test-secret"})
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	env := &environment{
		config: config.Static{Env: "TEST", APIBaseURL: server.URL + mockapi.APIPrefix},
		store:  tokenstore.NewMemoryStore(),
	}
	return env, api
}

func runCLI(t *testing.T, env *environment, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand(env)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestRegisterWhoamiLogout(t *testing.T) {
	env, _ := setupTestEnvironment(t)

	out, err := runCLI(t, env, "register", "-u", "alice", "-e", "alice@example.com", "-p", "correct-horse-42", "--first-name", "Alice")
	require.NoError(t, err)
	require.Contains(t, out, "Welcome, Alice.")

	out, err = runCLI(t, env, "whoami")
	require.NoError(t, err)
	require.Contains(t, out, "alice@example.com")

	out, err = runCLI(t, env, "whoami", "-o", "json")
	require.NoError(t, err)
	require.Contains(t, out, `"username": "alice"`)

	_, err = runCLI(t, env, "logout")
	require.NoError(t, err)

	_, err = runCLI(t, env, "logs", "list")
	require.EqualError(t, err, "not logged in, run `logdash login` first")
}

func TestLoginPromptsForMissingValues(t *testing.T) {
	env, api := setupTestEnvironment(t)
	_, err := api.SeedDemo(10, nil)
	require.NoError(t, err)

	env.stdin = strings.NewReader("developer\n" + mockapi.DemoPassword + "\n")
	out, err := runCLI(t, env, "login")
	require.NoError(t, err)
	require.Contains(t, out, "Username: Password: Logged in as John Developer")

	env.stdin = nil
	_, err = runCLI(t, env, "login", "-u", "developer", "-p", "wrong")
	require.EqualError(t, err, "No active account found with the given credentials")
}

func TestLogsCommands(t *testing.T) {
	env, _ := setupTestEnvironment(t)
	_, err := runCLI(t, env, "register", "-u", "alice", "-e", "alice@example.com", "-p", "correct-horse-42")
	require.NoError(t, err)

	out, err := runCLI(t, env, "logs", "create", "-m", "disk full", "--severity", "critical", "--source", "node-2")
	require.NoError(t, err)
	require.Contains(t, out, "Created log 1")
	_, err = runCLI(t, env, "logs", "create", "-m", "started", "--source", "node-1")
	require.NoError(t, err)

	out, err = runCLI(t, env, "logs", "list", "-o", "json")
	require.NoError(t, err)
	var page logs.Page[logs.Log]
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	require.Equal(t, 2, page.Count)

	out, err = runCLI(t, env, "logs", "list", "--severity", "CRITICAL")
	require.NoError(t, err)
	require.Contains(t, out, "disk full")
	require.NotContains(t, out, "started")
	require.Contains(t, out, "showing 1-1 of 1")

	out, err = runCLI(t, env, "logs", "aggregate", "--group-by", "severity")
	require.NoError(t, err)
	require.Contains(t, out, "CRITICAL")
	require.Contains(t, out, "TOTAL")

	out, err = runCLI(t, env, "logs", "aggregate", "--group-by", "source", "-o", "yaml")
	require.NoError(t, err)
	require.Contains(t, out, "source: node-1")

	path := filepath.Join(t.TempDir(), "export.csv")
	_, err = runCLI(t, env, "logs", "export", "-f", path)
	require.NoError(t, err)

	out, err = runCLI(t, env, "logs", "get", "1", "-o", "yaml")
	require.NoError(t, err)
	require.Contains(t, out, "message: disk full")

	_, err = runCLI(t, env, "logs", "delete", "1")
	require.NoError(t, err)
	_, err = runCLI(t, env, "logs", "get", "1")
	require.Error(t, err)

	_, err = runCLI(t, env, "logs", "create", "-m", "x", "--severity", "LOUD", "--source", "svc")
	require.Error(t, err)
}

func TestPrefsCommands(t *testing.T) {
	env, _ := setupTestEnvironment(t)
	_, err := runCLI(t, env, "register", "-u", "alice", "-e", "alice@example.com", "-p", "correct-horse-42")
	require.NoError(t, err)
	_, err = runCLI(t, env, "logs", "create", "-m", "payment declined", "--severity", "ERROR", "--source", "payment_processor")
	require.NoError(t, err)

	out, err := runCLI(t, env, "prefs", "create", "-n", "Payments", "--source", "payment_processor", "--from", "2020-01-01")
	require.NoError(t, err)
	require.Contains(t, out, `Saved filter "Payments" (id 1)`)

	_, err = runCLI(t, env, "prefs", "create", "-n", "Payments")
	require.EqualError(t, err, "400 The fields user, name must make a unique set.")

	out, err = runCLI(t, env, "prefs", "list")
	require.NoError(t, err)
	require.Contains(t, out, "2020-01-01")

	out, err = runCLI(t, env, "prefs", "apply", "1")
	require.NoError(t, err)
	require.Contains(t, out, "payment declined")

	_, err = runCLI(t, env, "prefs", "delete", "1")
	require.NoError(t, err)
}

func TestParseOutputMode(t *testing.T) {
	mode, err := parseOutputMode("YAML")
	require.NoError(t, err)
	require.Equal(t, outputYAML, mode)

	mode, err = parseOutputMode("")
	require.NoError(t, err)
	require.Equal(t, outputText, mode)

	_, err = parseOutputMode("xml")
	require.Error(t, err)
}

func TestOutputHelpers(t *testing.T) {
	require.Equal(t, "abc", truncate("abc", 5))
	require.Equal(t, "abcd…", truncate("abcdefgh", 5))
	require.Equal(t, "showing 21-25 of 25", pageSummary(25, 2, 5))
	require.Equal(t, "no logs match", pageSummary(0, 1, 0))
	require.Equal(t, "-", dateOrDash(nil))
}
