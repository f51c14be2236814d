package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/idilsaglam/tada/internal/api/apitest"
	"github.com/idilsaglam/tada/internal/config"
	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/state"
	"github.com/idilsaglam/tada/internal/ui"
)

const userID = 5

func seed() []model.Todo {
	return []model.Todo{
		{ID: 1, Title: "write tests", Completed: true, UserID: userID},
		{ID: 2, Title: "buy milk", UserID: userID},
		{ID: 3, Title: "call mom", UserID: userID},
	}
}

type result struct {
	code     int
	out, err string
}

// writeConfig writes a config into a temp dir and clears the env overrides.
func writeConfig(t *testing.T, edit func(*config.Config)) string {
	t.Helper()
	for _, k := range []string{
		"TADA_TOKEN", "TADA_BACKEND", "TADA_API_URL", "TADA_DATA_FILE", "TADA_USER_ID",
		"TADA_TIMEOUT", "TADA_THEME", "LOG_LEVEL", "LOG_FILE_PATH", "LOG_FILE_ENABLED", "LOG_JSON_FORMAT",
	} {
		t.Setenv(k, "")
	}
	t.Cleanup(func() { ui.SetTheme("classic") })

	dir := t.TempDir()
	cfg := config.Default(dir)
	cfg.UserID = userID
	cfg.ErrorWindow = 0
	cfg.Theme = "mono"
	cfg.Log.Enabled = false
	if edit != nil {
		edit(&cfg)
	}
	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func setup(t *testing.T, todos ...model.Todo) (*apitest.Server, string) {
	t.Helper()
	srv := apitest.New(t, todos...)
	path := writeConfig(t, func(c *config.Config) { c.BaseURL = srv.URL })
	return srv, path
}

func run(t *testing.T, path, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	code := Execute(context.Background(),
		append([]string{"--config", path}, args...),
		Streams{In: strings.NewReader(stdin), Out: &out, Err: &errOut},
	)
	return result{code: code, out: out.String(), err: errOut.String()}
}

func find(todos []model.Todo, id int) (model.Todo, bool) {
	for _, td := range todos {
		if td.ID == id {
			return td, true
		}
	}
	return model.Todo{}, false
}

func TestUsage(t *testing.T) {
	_, path := setup(t)

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"no subcommand", nil, ExitUsage},
		{"unknown subcommand", []string{"frobnicate"}, ExitUsage},
		{"help flag", []string{"--help"}, ExitOK},
		{"unknown flag", []string{"ls", "--nope"}, ExitUsage},
		{"add without title", []string{"add"}, ExitUsage},
		{"done without index", []string{"done"}, ExitUsage},
		{"rm with two indexes", []string{"rm", "1", "2"}, ExitUsage},
		{"rename without title", []string{"rename", "1"}, ExitUsage},
		{"auth without action", []string{"auth"}, ExitUsage},
		{"auth unknown action", []string{"auth", "nope"}, ExitUsage},
		{"ls bad filter", []string{"ls", "--plain", "--filter", "someday"}, ExitUsage},
		{"ls group without plain", []string{"ls", "--group"}, ExitUsage},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := run(t, path, "", tc.args...)
			assert.Equal(t, tc.code, res.code, res.err)
		})
	}
}

func TestInvalidConfig(t *testing.T) {
	path := writeConfig(t, func(c *config.Config) { c.UserID = 0 })

	res := run(t, path, "", "ls", "--plain")
	assert.Equal(t, ExitError, res.code)
	assert.Contains(t, res.err, "invalid config")
}

func TestListPlain(t *testing.T) {
	_, path := setup(t, seed()...)

	t.Run("flat", func(t *testing.T) {
		res := run(t, path, "", "ls", "--plain")
		require.Equal(t, ExitOK, res.code, res.err)
		assert.Contains(t, res.out, " 1. [x] write tests")
		assert.Contains(t, res.out, " 2. [ ] buy milk")
		assert.Contains(t, res.out, " 3. [ ] call mom")
		assert.Contains(t, res.out, "2 items left")
	})

	t.Run("filtered keeps full indexes", func(t *testing.T) {
		res := run(t, path, "", "ls", "--plain", "--filter", "active")
		require.Equal(t, ExitOK, res.code, res.err)
		assert.NotContains(t, res.out, "write tests")
		assert.Contains(t, res.out, " 3. [ ] call mom")
	})

	t.Run("grouped", func(t *testing.T) {
		res := run(t, path, "", "ls", "--plain", "--group")
		require.Equal(t, ExitOK, res.code, res.err)
		pending := strings.Index(res.out, "Pending")
		done := strings.Index(res.out, "Done")
		require.True(t, pending >= 0 && done > pending)
		assert.Greater(t, strings.Index(res.out, "write tests"), done)
	})
}

func TestListInteractive(t *testing.T) {
	_, path := setup(t, seed()...)

	var got *state.Store
	orig := runTUI
	runTUI = func(_ context.Context, s *state.Store, _ logrus.FieldLogger) error {
		got = s
		return nil
	}
	t.Cleanup(func() { runTUI = orig })

	res := run(t, path, "", "ls")
	require.Equal(t, ExitOK, res.code, res.err)
	require.NotNil(t, got)
	assert.Equal(t, userID, got.UserID())
}

func TestListLoadFailure(t *testing.T) {
	srv, path := setup(t, seed()...)
	srv.Fail(apitest.OpList)

	res := run(t, path, "", "ls", "--plain")
	assert.Equal(t, ExitError, res.code)
	assert.Contains(t, res.err, "Unable to load todos")
}

func TestAdd(t *testing.T) {
	t.Run("joins words", func(t *testing.T) {
		srv, path := setup(t, seed()...)

		res := run(t, path, "", "add", "walk", "the", "dog")
		require.Equal(t, ExitOK, res.code, res.err)
		assert.Contains(t, res.out, "added #4 walk the dog")

		td, ok := find(srv.Todos(), 4)
		require.True(t, ok)
		assert.Equal(t, "walk the dog", td.Title)
		assert.Equal(t, userID, td.UserID)
		assert.False(t, td.Completed)
	})

	t.Run("blank title never reaches the server", func(t *testing.T) {
		srv, path := setup(t, seed()...)

		res := run(t, path, "", "add", "   ")
		assert.Equal(t, ExitUsage, res.code)
		assert.Contains(t, res.err, "Title should not be empty")
		assert.Equal(t, 0, srv.Calls(apitest.OpCreate))
	})

	t.Run("server failure", func(t *testing.T) {
		srv, path := setup(t, seed()...)
		srv.Fail(apitest.OpCreate)

		res := run(t, path, "", "add", "x")
		assert.Equal(t, ExitError, res.code)
		assert.Contains(t, res.err, "Unable to add a todo")
		assert.Len(t, srv.Todos(), 3)
	})
}

func TestDone(t *testing.T) {
	srv, path := setup(t, seed()...)

	res := run(t, path, "", "done", "2")
	require.Equal(t, ExitOK, res.code, res.err)
	assert.Contains(t, res.out, "completed buy milk")
	td, _ := find(srv.Todos(), 2)
	assert.True(t, td.Completed)

	res = run(t, path, "", "done", "1")
	require.Equal(t, ExitOK, res.code, res.err)
	assert.Contains(t, res.out, "reopened write tests")

	res = run(t, path, "", "done", "9")
	assert.Equal(t, ExitUsage, res.code)
	assert.Contains(t, res.err, "index out of range: have 3, got 9")
	assert.Contains(t, res.err, "Hint")

	res = run(t, path, "", "done", "two")
	assert.Equal(t, ExitUsage, res.code)
	assert.Contains(t, res.err, "not a number: two")

	srv.Fail(apitest.OpUpdate)
	res = run(t, path, "", "done", "3")
	assert.Equal(t, ExitError, res.code)
	assert.Contains(t, res.err, "Unable to update a todo")
}

func TestRename(t *testing.T) {
	srv, path := setup(t, seed()...)

	res := run(t, path, "", "rename", "2", "buy", "oat", "milk")
	require.Equal(t, ExitOK, res.code, res.err)
	td, _ := find(srv.Todos(), 2)
	assert.Equal(t, "buy oat milk", td.Title)

	calls := srv.Calls(apitest.OpUpdate)
	res = run(t, path, "", "rename", "2", "  buy oat milk ")
	require.Equal(t, ExitOK, res.code, res.err)
	assert.Contains(t, res.out, "unchanged")
	assert.Equal(t, calls, srv.Calls(apitest.OpUpdate))

	res = run(t, path, "", "rename", "2", " ")
	require.Equal(t, ExitOK, res.code, res.err)
	assert.Contains(t, res.out, "removed buy oat milk")
	_, ok := find(srv.Todos(), 2)
	assert.False(t, ok)
}

func TestRemove(t *testing.T) {
	srv, path := setup(t, seed()...)

	res := run(t, path, "", "rm", "3")
	require.Equal(t, ExitOK, res.code, res.err)
	assert.Contains(t, res.out, "removed call mom")
	assert.Len(t, srv.Todos(), 2)

	srv.Fail(apitest.OpDelete)
	res = run(t, path, "", "rm", "1")
	assert.Equal(t, ExitError, res.code)
	assert.Contains(t, res.err, "Unable to delete a todo")
	assert.Len(t, srv.Todos(), 2)
}

func TestToggleAll(t *testing.T) {
	srv, path := setup(t, seed()...)

	res := run(t, path, "", "toggle-all")
	require.Equal(t, ExitOK, res.code, res.err)
	assert.Contains(t, res.out, "all completed")
	for _, td := range srv.Todos() {
		assert.True(t, td.Completed, td.Title)
	}
	assert.Equal(t, 2, srv.Calls(apitest.OpUpdate))

	res = run(t, path, "", "toggle-all")
	require.Equal(t, ExitOK, res.code, res.err)
	assert.Contains(t, res.out, "all reopened")
	for _, td := range srv.Todos() {
		assert.False(t, td.Completed, td.Title)
	}
}

func TestToggleAllEmpty(t *testing.T) {
	srv, path := setup(t)

	res := run(t, path, "", "toggle-all")
	require.Equal(t, ExitOK, res.code, res.err)
	assert.Contains(t, res.out, "nothing to toggle")
	assert.Equal(t, 0, srv.Calls(apitest.OpUpdate))
}

func TestClear(t *testing.T) {
	todos := append(seed(), model.Todo{ID: 4, Title: "file taxes", Completed: true, UserID: userID})

	t.Run("all succeed", func(t *testing.T) {
		srv, path := setup(t, todos...)

		res := run(t, path, "", "clear")
		require.Equal(t, ExitOK, res.code, res.err)
		assert.Contains(t, res.out, "cleared 2")
		assert.Len(t, srv.Todos(), 2)
	})

	t.Run("partial failure", func(t *testing.T) {
		srv, path := setup(t, todos...)
		srv.Fail(apitest.OpDelete, 4)

		res := run(t, path, "", "clear")
		assert.Equal(t, ExitError, res.code)
		assert.Contains(t, res.err, "cleared 1 of 2")
		assert.Contains(t, res.err, "Unable to delete a todo")

		_, ok := find(srv.Todos(), 4)
		assert.True(t, ok)
		_, ok = find(srv.Todos(), 1)
		assert.False(t, ok)
	})
}

func TestFileBackend(t *testing.T) {
	var dataFile string
	path := writeConfig(t, func(c *config.Config) {
		c.Backend = config.BackendFile
		dataFile = c.DataFile
	})

	require.Equal(t, ExitOK, run(t, path, "", "add", "offline", "todo").code)
	require.Equal(t, ExitOK, run(t, path, "", "done", "1").code)

	res := run(t, path, "", "ls", "--plain")
	require.Equal(t, ExitOK, res.code, res.err)
	assert.Contains(t, res.out, " 1. [x] offline todo")
	assert.FileExists(t, dataFile)
}

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return tok
}

func TestAuth(t *testing.T) {
	srv, path := setup(t, seed()...)

	res := run(t, path, "", "auth", "status")
	require.Equal(t, ExitOK, res.code, res.err)
	assert.Contains(t, res.out, "not logged in")

	res = run(t, path, "", "auth", "whoami")
	assert.Equal(t, ExitUsage, res.code)

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signed(t, jwt.MapClaims{"sub": "student-5", "exp": exp.Unix()})

	res = run(t, path, token+"\n", "auth", "login")
	require.Equal(t, ExitOK, res.code, res.err)
	assert.Contains(t, res.out, "Paste your token:")
	assert.Contains(t, res.out, "logged in")

	res = run(t, path, "", "auth", "status")
	require.Equal(t, ExitOK, res.code, res.err)
	assert.Contains(t, res.out, "source: file")
	assert.Contains(t, res.out, exp.UTC().Format(time.RFC3339))

	res = run(t, path, "", "auth", "whoami")
	require.Equal(t, ExitOK, res.code, res.err)
	assert.Contains(t, res.out, `"sub": "student-5"`)

	// the stored token is sent with every call
	srv.RequireToken(token)
	res = run(t, path, "", "ls", "--plain")
	require.Equal(t, ExitOK, res.code, res.err)
	assert.Equal(t, "Bearer "+token, srv.LastHeader("Authorization"))

	res = run(t, path, "", "auth", "logout")
	require.Equal(t, ExitOK, res.code, res.err)

	res = run(t, path, "", "ls", "--plain")
	assert.Equal(t, ExitError, res.code)
	assert.Contains(t, res.err, "Unable to load todos")
}

func TestAuthEnvToken(t *testing.T) {
	_, path := setup(t)
	t.Setenv("TADA_TOKEN", "opaque-token")

	res := run(t, path, "", "auth", "whoami")
	require.Equal(t, ExitOK, res.code, res.err)
	assert.Contains(t, res.out, "Opaque token")
	assert.Contains(t, res.out, "source: env")

	res = run(t, path, "", "auth", "logout")
	require.Equal(t, ExitOK, res.code, res.err)
	assert.Contains(t, res.out, "nothing to delete")
}

func TestAuthLoginArgument(t *testing.T) {
	_, path := setup(t)

	res := run(t, path, "", "auth", "login", "Bearer abc")
	require.Equal(t, ExitOK, res.code, res.err)

	res = run(t, path, "", "auth", "status")
	assert.Contains(t, res.out, "expires: (unknown)")

	res = run(t, path, "\n", "auth", "login")
	assert.Equal(t, ExitUsage, res.code)
}

func TestRowLinesTruncatesByCharacter(t *testing.T) {
	ui.SetTheme("mono")
	t.Cleanup(func() { ui.SetTheme("classic") })

	long := strings.Repeat("ü", 100)
	lines := rowLines([]model.Todo{{ID: 1, Title: long, UserID: userID}}, model.FilterAll)

	require.Len(t, lines, 1)
	assert.True(t, utf8.ValidString(lines[0]))
	assert.Contains(t, lines[0], strings.Repeat("ü", 77)+"...")
	assert.NotContains(t, lines[0], strings.Repeat("ü", 78))

	short := rowLines([]model.Todo{{ID: 1, Title: "çay demle", UserID: userID}}, model.FilterAll)
	assert.Equal(t, " 1. [ ] çay demle", short[0])
}
