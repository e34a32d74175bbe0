package cmd

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/baymax-health/apiserver/config"
	"github.com/baymax-health/apiserver/internal/server"
	"github.com/baymax-health/apiserver/internal/storage"
	"github.com/baymax-health/apiserver/internal/store/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootHelp(t *testing.T) {
	out, err := run(t, "", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "baymax")
	for _, sub := range []string{"server", "migrate", "worker", "login", "profile", "today", "take", "contacts", "reports"} {
		assert.Contains(t, out, sub)
	}
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := run(t, "", "--log-level", "loud", "whoami")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --log-level")
}

func TestClientCommandsAgainstServer(t *testing.T) {
	mem := memstore.New()
	srv := server.NewWithDeps(config.Config{
		JWT:      config.JWTConfig{Secret: "cli-test", TTL: time.Hour},
		Timezone: "UTC",
	}, server.Deps{
		Users:     mem.Users(),
		Medicines: mem.Medicines(),
		Contacts:  mem.Contacts(),
		Storage:   storage.NewStorage(storage.NewMemoryStorage("reports")),
	})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	session := filepath.Join(t.TempDir(), "session.yaml")
	global := []string{"--log-level", "error", "--api", ts.URL, "--session", session}
	with := func(args ...string) []string { return append(append([]string{}, global...), args...) }

	_, err := run(t, "", with("whoami")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")

	out, err := run(t, "engine1\nengine1\n", with("signup", "--first-name", "Ada", "--last-name", "Lovelace", "--email", "ada@example.com")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Logged in as ada@example.com")

	out, err = run(t, "", with("whoami")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Ada Lovelace <ada@example.com>")

	out, err = run(t, "", with("meds", "add", "--name", "Aspirin", "--dose", "81", "--days", "7", "--quantity", "7", "--morning", "1")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Added Aspirin")

	out, err = run(t, "", with("take", "aspirin", "morning")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Took morning Aspirin, 6 pills left")

	out, err = run(t, "", with("today")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "[x]")

	_, err = run(t, "", with("take", "aspirin", "evening")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown time of day")

	out, err = run(t, "", with("undo", "aspirin", "morning")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Undid morning Aspirin, 7 pills left")

	out, err = run(t, "", with("meds", "edit", "aspirin", "--days", "14", "--quantity", "20", "--night", "1")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Updated Aspirin: 1-0-1 for 14 days, 20 pills left")

	out, err = run(t, "", with("meds")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "1-0-1")

	out, err = run(t, "newpass1\nnewpass1\n", with("profile", "--first-name", "Augusta", "--password")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Updated profile for Augusta Lovelace <ada@example.com>")

	out, err = run(t, "", with("whoami")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Augusta Lovelace <ada@example.com>")

	out, err = run(t, "", with("reports", "new")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Aspirin")
	fields := strings.Fields(out[strings.Index(out, "Stored report "):])
	require.GreaterOrEqual(t, len(fields), 3, out)
	reportID := fields[2]

	out, err = run(t, "", with("reports")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, reportID)

	out, err = run(t, "", with("reports", "show", reportID)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Aspirin")

	out, err = run(t, "", with("reports", "rm", reportID)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Deleted report "+reportID)

	_, err = run(t, "", with("reports", "show", reportID)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Report not found")

	out, err = run(t, "", with("contacts", "add", "--name", "Dr. Who", "--type", "doctor", "--phone", "555-0110")...)
	require.NoError(t, err, out)
	out, err = run(t, "", with("contacts")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Dr. Who")

	out, err = run(t, "", with("logout")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Logged out")

	_, err = run(t, "", with("whoami")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")

	_, err = run(t, "engine1\n", with("login", "--email", "ada@example.com")...)
	require.Error(t, err)
	out, err = run(t, "newpass1\n", with("login", "--email", "ada@example.com")...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Logged in as ada@example.com")
}
