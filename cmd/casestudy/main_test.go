package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"casestudy/internal/config"
	"casestudy/internal/domain"
)

func TestStartServer_GracefulShutdownOnSignal(t *testing.T) {
	app := fiber.New()
	var cfg config.Config
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = ":0"

	idleConnsClosed := make(chan struct{})
	go startServer(app, cfg, idleConnsClosed)

	time.Sleep(100 * time.Millisecond)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("failed to send SIGTERM: %v", err)
	}

	select {
	case <-idleConnsClosed:
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for graceful shutdown")
	}
}

func TestEnsureLogDir(t *testing.T) {
	root := t.TempDir()
	cases := map[string]struct {
		file    string
		created string
	}{
		"no log file":        {file: ""},
		"working directory":  {file: "casestudy.log"},
		"nested directories": {file: filepath.Join(root, "var", "log", "casestudy.log"), created: filepath.Join(root, "var", "log")},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if err := ensureLogDir(tc.file); err != nil {
				t.Fatalf("ensureLogDir(%q): %v", tc.file, err)
			}
			if tc.created == "" {
				return
			}
			if st, err := os.Stat(tc.created); err != nil || !st.IsDir() {
				t.Fatalf("%s was not created (err=%v)", tc.created, err)
			}
		})
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write cfg: %v", err)
	}
	return path
}

func TestRenderCommand_WritesPDF(t *testing.T) {
	out := t.TempDir()
	cfgPath := writeConfig(t, `
logger:
  level: "error"
render:
  engine: "native"
`)
	body := filepath.Join(t.TempDir(), "case.txt")
	if err := os.WriteFile(body, []byte("**Key Issues**\n* **Risk**: High\n\nSupo joined Fagbohun."), 0o644); err != nil {
		t.Fatalf("write body: %v", err)
	}

	var stdout bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"--config", cfgPath, "render", "--title", "Strategic Analysis", "--file", body, "--out", out})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	var res struct {
		Status string `json:"status"`
		PDFURL string `json:"pdfUrl"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &res); err != nil {
		t.Fatalf("decode output %q: %v", stdout.String(), err)
	}
	if res.Status != domain.StatusPDFGenerated {
		t.Fatalf("unexpected status %q", res.Status)
	}
	want := "strategic-analysis-" + time.Now().Format("2006-01-02") + ".pdf"
	if !strings.HasSuffix(res.PDFURL, want) {
		t.Fatalf("expected locator ending in %s, got %s", want, res.PDFURL)
	}
	if _, err := os.Stat(filepath.Join(out, want)); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}
}

func TestRenderCommand_EmptyStdinWritesHeaderOnly(t *testing.T) {
	out := t.TempDir()
	cfgPath := writeConfig(t, "logger:\n  level: \"error\"\nrender:\n  engine: \"native\"\n")

	var stdout bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs([]string{"--config", cfgPath, "render", "--title", "Blank Brief", "--out", out})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("empty content must render, got %v", err)
	}
	want := filepath.Join(out, "blank-brief-"+time.Now().Format("2006-01-02")+".pdf")
	st, err := os.Stat(want)
	if err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}
	if st.Size() == 0 {
		t.Fatalf("expected a non-empty PDF at %s", want)
	}
}

func TestIngestCommand_ChecksOnlyRetrievalKeys(t *testing.T) {
	for _, k := range []string{"COHERE_API_KEY", "VECTOR_DSN", "LLM_API_KEY", "ARCADE_API_KEY", "ARCADE_USER_ID"} {
		t.Setenv(k, "")
	}
	cfgPath := writeConfig(t, `
logger:
  level: "error"
agent:
  enabled: true
  api_key: ""
search:
  enabled: true
arcade:
  api_key: ""
cohere:
  api_key: ""
rag:
  dsn: ""
`)
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", cfgPath, "ingest", "case.md"})
	err := cmd.Execute()
	if !errors.Is(err, domain.ErrMissingConfiguration) {
		t.Fatalf("expected ErrMissingConfiguration, got %v", err)
	}
	for _, k := range []string{"COHERE_API_KEY", "VECTOR_DSN"} {
		if !strings.Contains(err.Error(), k) {
			t.Fatalf("expected %s to be reported, got %v", k, err)
		}
	}
	for _, k := range []string{"LLM_API_KEY", "ARCADE_API_KEY"} {
		if strings.Contains(err.Error(), k) {
			t.Fatalf("ingestion does not need %s, got %v", k, err)
		}
	}
}

func TestRenderCommand_RequiresTitle(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", writeConfig(t, "logger:\n  level: error\n"), "render"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected missing --title to fail")
	}
}

func TestAskCommand_MissingKeyFailsAtStart(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", writeConfig(t, "logger:\n  level: error\nagent:\n  api_key: \"\"\n"), "ask", "hello"})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "LLM_API_KEY") {
		t.Fatalf("expected missing configuration error naming LLM_API_KEY, got %v", err)
	}
}

func TestReadInput(t *testing.T) {
	got, err := readInput([]string{"analyze", "this"}, strings.NewReader("ignored"))
	if err != nil || got != "analyze this" {
		t.Fatalf("args: got %q, %v", got, err)
	}
	got, err = readInput(nil, strings.NewReader("from stdin\n"))
	if err != nil || got != "from stdin\n" {
		t.Fatalf("stdin: got %q, %v", got, err)
	}
	if _, err := readInput(nil, strings.NewReader("  \n")); err != errNoInput {
		t.Fatalf("expected errNoInput, got %v", err)
	}
}
