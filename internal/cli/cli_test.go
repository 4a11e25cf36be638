package cli

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/99designs/keyring"

	"github.com/nhle/nailedit/internal/credential"
	"github.com/nhle/nailedit/internal/mockapi"
	"github.com/nhle/nailedit/internal/model"
	"github.com/nhle/nailedit/internal/session"
	"github.com/nhle/nailedit/tests/testutil"
)

type harness struct {
	t          *testing.T
	configPath string
	secrets    *credential.Store
	server     *mockapi.Server
}

func newHarness(t *testing.T, goalsMode string) *harness {
	t.Helper()
	srv := mockapi.New(mockapi.Options{
		Users:  map[string]string{"ada@example.com": "pw"},
		Logger: testutil.QuietLogger(),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	dir := t.TempDir()
	cfg := model.DefaultConfig()
	cfg.API.BaseURL = ts.URL
	cfg.Goals.Mode = goalsMode
	cfg.Storage.Path = filepath.Join(dir, "nailedit.db")
	cfg.Log = model.LogConfig{Level: "error"}
	path := filepath.Join(dir, "config.yaml")
	if err := model.SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	return &harness{
		t:          t,
		configPath: path,
		secrets:    credential.New(keyring.NewArrayKeyring(nil)),
		server:     srv,
	}
}

// run executes one command line and returns stdout.
func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	a := &App{openSecrets: func() (session.Secrets, error) { return h.secrets, nil }}
	cmd := newRootCmd(a)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--config", h.configPath))
	err := cmd.Execute()
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("%v: %v", args, err)
	}
	return out
}

func TestAddAndListTasks(t *testing.T) {
	h := newHarness(t, model.GoalsModeRemote)

	out := h.mustRun("add", "task", "Write docs", "--category", "Done", "--description", "all of them")
	if !strings.Contains(out, "Created task") || !strings.Contains(out, "Done") {
		t.Fatalf("unexpected add output %q", out)
	}
	h.mustRun("add", "task", "Review PR")

	out = h.mustRun("list", "tasks")
	for _, want := range []string{"To Do (1)", "Review PR", "Done (1)", "Write docs", "50% done"} {
		if !strings.Contains(out, want) {
			t.Fatalf("list output missing %q:\n%s", want, out)
		}
	}
	if n := len(h.server.Snapshot(model.KindTask)); n != 2 {
		t.Fatalf("server holds %d tasks", n)
	}
}

func TestAddRejectsUnknownCategory(t *testing.T) {
	h := newHarness(t, model.GoalsModeRemote)
	if _, err := h.run("add", "goal", "Stretch", "--category", "Yearly Goal"); err == nil {
		t.Fatal("expected category error")
	}
}

func TestLocalGoalsLifecycle(t *testing.T) {
	h := newHarness(t, model.GoalsModeLocal)

	out := h.mustRun("add", "goal", "Stretch")
	fields := strings.Fields(out)
	if len(fields) < 3 {
		t.Fatalf("unexpected add output %q", out)
	}
	id := fields[2]
	if n := len(h.server.Snapshot(model.KindGoal)); n != 0 {
		t.Fatalf("local goal reached the server: %d", n)
	}

	h.mustRun("edit", "goal", id, "--category", "Weekly Goal")
	out = h.mustRun("list", "goals", "--json")
	if !strings.Contains(out, `"Weekly Goal"`) || !strings.Contains(out, "Stretch") {
		t.Fatalf("edit not visible in list:\n%s", out)
	}

	h.mustRun("rm", "goal", id)
	out = h.mustRun("list", "goals")
	if strings.Contains(out, "Stretch") {
		t.Fatalf("goal still listed after rm:\n%s", out)
	}
}

func TestLoginWhoamiLogout(t *testing.T) {
	h := newHarness(t, model.GoalsModeRemote)

	if out := h.mustRun("whoami"); strings.TrimSpace(out) != "guest" {
		t.Fatalf("whoami before login = %q", out)
	}
	if _, err := h.run("login", "--email", "ada@example.com", "--password", "wrong"); err == nil {
		t.Fatal("expected login failure")
	}
	out := h.mustRun("login", "--email", "ada@example.com", "--password", "pw")
	if !strings.Contains(out, "Logged in as ada") {
		t.Fatalf("login output %q", out)
	}
	if out := h.mustRun("whoami"); !strings.HasPrefix(out, "ada") {
		t.Fatalf("whoami after login = %q", out)
	}
	h.mustRun("logout")
	if out := h.mustRun("whoami"); strings.TrimSpace(out) != "guest" {
		t.Fatalf("whoami after logout = %q", out)
	}
}

func TestNewDevServerRejectsBadUser(t *testing.T) {
	if _, err := newDevServer(serveOptions{users: []string{"nopassword"}}, testutil.QuietLogger()); err == nil {
		t.Fatal("expected error for malformed --user")
	}
	if _, err := newDevServer(serveOptions{users: []string{"a@b.c:pw"}}, testutil.QuietLogger()); err != nil {
		t.Fatalf("newDevServer: %v", err)
	}
}

func TestConfigInit(t *testing.T) {
	h := newHarness(t, model.GoalsModeRemote)

	if _, err := h.run("config", "init", "--goals", model.GoalsModeLocal); err == nil {
		t.Fatal("expected refusal to overwrite an existing file")
	}
	if _, err := h.run("config", "init", "--force", "--goals", "sideways"); err == nil {
		t.Fatal("expected invalid goals mode to be rejected")
	}

	out := h.mustRun("config", "init", "--force", "--goals", model.GoalsModeLocal)
	if !strings.Contains(out, "Wrote") {
		t.Fatalf("unexpected output %q", out)
	}
	cfg, err := model.LoadConfig(h.configPath)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Goals.Mode != model.GoalsModeLocal {
		t.Fatalf("goals mode = %q", cfg.Goals.Mode)
	}
	if cfg.Storage.Path != filepath.Join(filepath.Dir(h.configPath), "nailedit.db") {
		t.Fatalf("existing settings not kept: %+v", cfg.Storage)
	}

	if out := h.mustRun("config", "path"); strings.TrimSpace(out) != h.configPath {
		t.Fatalf("config path = %q", out)
	}
}
