package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pfrederiksen/ponisha-watch/internal/watcher"
)

const testPage = `<html><body>
<div class="col-sm-9 col-xs-12 right">
	<h2><a href="/project/300001/api"><span>Go API</span></a></h2>
	<div>REST service</div>
</div>
<div class="col-sm-9 col-xs-12 right">
	<h2><a href="/project/300002/logo"><span>Logo design</span></a></h2>
	<div>brand refresh</div>
</div>
</body></html>`

func setupEnv(t *testing.T, pageURL string) {
	t.Helper()
	for _, key := range []string{
		"PONISHA_LOG_LEVEL", "PONISHA_CHANNEL", "PONISHA_STATE_BACKEND", "PONISHA_STATE_FILE",
		"PONISHA_MAX_PROJECTS", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "TELEGRAM_API_URL",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("PONISHA_URL", pageURL)
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func pageServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testPage))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRootCmd_DryRun(t *testing.T) {
	server := pageServer(t)
	setupEnv(t, server.URL)
	state := filepath.Join(t.TempDir(), "last_sent")

	stdout, stderr, err := execute(t, "--dry-run", "--state-file", state)
	if err != nil {
		t.Fatalf("Execute() error: %v\nstderr: %s", err, stderr)
	}

	for _, want := range []string{"*Go API*", server.URL + "/project/300002", "Total: 2 new of 2 checked"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, stdout)
		}
	}
	if !strings.Contains(stderr, ":: INFO\trequesting page") {
		t.Errorf("stderr missing request log:\n%s", stderr)
	}

	data, err := os.ReadFile(state)
	if err != nil {
		t.Fatalf("state file not written: %v", err)
	}
	if string(data) != "300001\n300002\n" {
		t.Errorf("state = %q", data)
	}

	// Second run sees nothing new
	stdout, _, err = execute(t, "--dry-run", "--state-file", state)
	if err != nil {
		t.Fatalf("second Execute() error: %v", err)
	}
	if !strings.Contains(stdout, "No new projects found (2 checked).") {
		t.Errorf("second run stdout:\n%s", stdout)
	}
}

func TestRootCmd_TelegramJSON(t *testing.T) {
	server := pageServer(t)
	setupEnv(t, server.URL)

	var sent []string
	tg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottoken/sendMessage" {
			t.Errorf("path = %s", r.URL.Path)
		}
		sent = append(sent, r.URL.Query().Get("text"))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer tg.Close()

	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "chat")
	t.Setenv("TELEGRAM_API_URL", tg.URL)

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(configPath, []byte("send_interval: 0s\n"), 0644)

	stdout, stderr, err := execute(t,
		"--config", configPath,
		"--state-file", filepath.Join(t.TempDir(), "last_sent"),
		"--format", "json",
		"--verbose",
	)
	if err != nil {
		t.Fatalf("Execute() error: %v\nstderr: %s", err, stderr)
	}

	if len(sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(sent))
	}

	var out struct {
		NewCount   int                    `json:"new_count"`
		Notified   int                    `json:"notified"`
		StateSaved bool                   `json:"state_saved"`
		Metrics    map[string]interface{} `json:"metrics"`
	}
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, stdout)
	}
	if out.NewCount != 2 || out.Notified != 2 || !out.StateSaved {
		t.Errorf("output = %+v", out)
	}
	if out.Metrics == nil {
		t.Error("--verbose should include metrics")
	}
	if !strings.Contains(stderr, ":: DEBUG") {
		t.Error("--verbose should enable debug logging")
	}
}

func TestRootCmd_Errors(t *testing.T) {
	server := pageServer(t)

	tests := []struct {
		name    string
		pageURL string
		args    []string
		wantErr string
	}{
		{"invalid format", server.URL, []string{"--dry-run", "--format", "xml"}, "invalid format"},
		{"missing credentials", server.URL, []string{}, "bot token"},
		{"invalid cap", server.URL, []string{"--dry-run", "--max-projects", "0"}, "max projects"},
		{"invalid backend", server.URL, []string{"--dry-run", "--state-backend", "redis"}, "state backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupEnv(t, tt.pageURL)
			args := append(tt.args, "--state-file", filepath.Join(t.TempDir(), "last_sent"))

			_, _, err := execute(t, args...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Execute() error = %v, want containing %q", err, tt.wantErr)
			}
			if ExitCode(err) != ExitError {
				t.Errorf("ExitCode() = %d, want %d", ExitCode(err), ExitError)
			}
		})
	}
}

func TestRootCmd_FetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()
	setupEnv(t, server.URL)

	state := filepath.Join(t.TempDir(), "last_sent")
	stdout, stderr, err := execute(t, "--dry-run", "--state-file", state)

	if !errors.Is(err, watcher.ErrFetch) {
		t.Fatalf("Execute() error = %v, want ErrFetch", err)
	}
	if ExitCode(err) != ExitError {
		t.Errorf("ExitCode() = %d, want %d", ExitCode(err), ExitError)
	}
	if stdout != "" {
		t.Errorf("nothing should be sent on fetch failure, got:\n%s", stdout)
	}
	if !strings.Contains(stderr, ":: CRITICAL") || !strings.Contains(stderr, "status=502") {
		t.Errorf("stderr missing critical status log:\n%s", stderr)
	}
	if _, err := os.Stat(state); !os.IsNotExist(err) {
		t.Error("state file must not be created on fetch failure")
	}
}

func TestExitCode(t *testing.T) {
	if got := ExitCode(nil); got != ExitSuccess {
		t.Errorf("ExitCode(nil) = %d, want %d", got, ExitSuccess)
	}
	if got := ExitCode(errors.New("boom")); got != ExitError {
		t.Errorf("ExitCode(err) = %d, want %d", got, ExitError)
	}
}
