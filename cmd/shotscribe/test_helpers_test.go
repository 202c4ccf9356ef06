package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"shotscribe/internal/config"
	"shotscribe/internal/testsupport"
	"shotscribe/internal/workflow"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	chatCalls  atomic.Int32
}

// setupCLITestEnv writes a config pointing at temp directories and a fake
// chat endpoint that answers every completion with a one-row shot table.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	env := &cliTestEnv{}
	mux := http.NewServeMux()
	mux.HandleFunc("/compatible-mode/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		env.chatCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message":       map[string]any{"content": "| Shot | Line |\n|---|---|\n| 1 | Rewritten opening |\n"},
				"finish_reason": "stop",
			}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	for _, name := range []string{"SHOTSCRIBE_API_KEY", "DASHSCOPE_API_KEY", "QWEN_API_KEY", "SHOTSCRIBE_NTFY_TOPIC"} {
		t.Setenv(name, "")
	}
	cfg := testsupport.NewConfig(t,
		testsupport.WithAPIBaseURL(srv.URL+"/compatible-mode/v1"),
		testsupport.WithStubbedBinaries(),
	)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.TemplatesDir = filepath.Join(base, "templates")

	env.cfg = cfg
	env.baseDir = base
	env.configPath = filepath.Join(base, "config.toml")
	writeTestConfig(t, env.configPath, cfg)
	return env
}

func runCLI(t *testing.T, args []string, configPath string, opts ...workflow.Option) (string, string, error) {
	t.Helper()
	cmd := newRootCommand(opts...)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ncache_dir = %q\noutput_dir = %q\nstate_dir = %q\nlog_dir = %q\ntemplates_dir = %q\n\n[api]\napi_key = %q\nbase_url = %q\n\n[logging]\nlevel = \"error\"\n",
		cfg.Paths.CacheDir,
		cfg.Paths.OutputDir,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.Paths.TemplatesDir,
		cfg.API.APIKey,
		cfg.API.BaseURL,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
