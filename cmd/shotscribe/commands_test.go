package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"shotscribe/internal/cache"
	"shotscribe/internal/testsupport"
)

func TestRunRequiresURL(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"run"}, env.configPath)
	if err == nil {
		t.Fatal("expected error without URL")
	}
	requireContains(t, err.Error(), "video URL is required")
}

func TestRunRejectsUnknownSubcommand(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"run", "https://example.com/v/1", "summarize"}, env.configPath)
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	requireContains(t, err.Error(), `unknown command "summarize"`)
}

func TestRunRequiresCredentials(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.API.APIKey = ""
	writeTestConfig(t, env.configPath, env.cfg)

	_, _, err := runCLI(t, []string{"run", "https://example.com/v/1"}, env.configPath)
	if err == nil {
		t.Fatal("expected credentials error")
	}
	requireContains(t, err.Error(), "api.api_key is required")
}

func TestRewriteScriptFileAndHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	scriptPath := filepath.Join(env.baseDir, "morning.md")
	testsupport.WriteText(t, scriptPath, "| Shot | Line |\n|---|---|\n| 1 | Original opening |\n")

	_, _, err := runCLI(t, []string{"rewrite", "--script", scriptPath}, env.configPath)
	if err == nil {
		t.Fatal("expected error without instruction")
	}
	requireContains(t, err.Error(), "--instruction is required")

	out, _, err := runCLI(t, []string{"rewrite", "--script", scriptPath, "--instruction", "make it funnier", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	var summary rewriteJSON
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode rewrite output %q: %v", out, err)
	}
	if summary.OriginalTitle != "morning" {
		t.Fatalf("original title = %q, want morning", summary.OriginalTitle)
	}
	if !strings.HasSuffix(summary.MarkdownPath, "_rewrite.md") {
		t.Fatalf("unexpected markdown path %q", summary.MarkdownPath)
	}
	data, err := os.ReadFile(summary.MarkdownPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	requireContains(t, string(data), "Rewritten opening")
	requireContains(t, string(data), "make it funnier")
	if calls := env.chatCalls.Load(); calls != 1 {
		t.Fatalf("expected 1 chat call, got %d", calls)
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "rewrite")
	requireContains(t, out, "succeeded")

	out, _, err = runCLI(t, []string{"history", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("history clear: %v", err)
	}
	requireContains(t, out, "Removed 1 runs")

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded")
}

func TestTemplatesListValidateCopy(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"templates", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("templates list: %v", err)
	}
	requireContains(t, out, "breakdown")
	requireContains(t, out, "rewrite")
	requireContains(t, out, "builtin")

	out, _, err = runCLI(t, []string{"templates", "validate", "breakdown", "default"}, env.configPath)
	if err != nil {
		t.Fatalf("templates validate: %v", err)
	}
	requireContains(t, out, "template valid")

	out, _, err = runCLI(t, []string{"templates", "copy", "breakdown", "default", "tutorial"}, env.configPath)
	if err != nil {
		t.Fatalf("templates copy: %v", err)
	}
	requireContains(t, out, filepath.Join(env.cfg.Paths.TemplatesDir, "breakdown", "tutorial.md"))

	out, _, err = runCLI(t, []string{"templates", "list", "breakdown"}, env.configPath)
	if err != nil {
		t.Fatalf("templates list breakdown: %v", err)
	}
	requireContains(t, out, "tutorial")
	requireContains(t, out, "custom")

	testsupport.WriteText(t, filepath.Join(env.cfg.Paths.TemplatesDir, "rewrite", "broken.md"), "# Broken\nNo placeholders here.\n")
	out, _, err = runCLI(t, []string{"templates", "validate", "rewrite", "broken"}, env.configPath)
	if err == nil {
		t.Fatal("expected invalid template error")
	}
	requireContains(t, out, statusIndent+"- missing required placeholder {original_script}")

	if _, _, err := runCLI(t, []string{"templates", "list", "subtitles"}, env.configPath); err == nil {
		t.Fatal("expected unknown category error")
	}
}

func TestCacheStatsAndClear(t *testing.T) {
	env := setupCLITestEnv(t)
	url := "https://www.douyin.com/video/7300000000000000000"
	key := cache.KeyFor(url)

	store, err := cache.New(env.cfg.Paths.CacheDir, nil)
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	if err := store.WriteJSON(key, cache.CategoryVisual, map[string]string{"text": "kitchen"}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	out, _, err := runCLI(t, []string{"cache", "stats"}, env.configPath)
	if err != nil {
		t.Fatalf("cache stats: %v", err)
	}
	requireContains(t, out, "Entries: 1")
	requireContains(t, out, key.String())

	if _, _, err := runCLI(t, []string{"cache", "clear"}, env.configPath); err == nil {
		t.Fatal("expected error without URL or --all")
	}

	out, _, err = runCLI(t, []string{"cache", "clear", url}, env.configPath)
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	requireContains(t, out, "Cleared cache entry "+key.String())
	if store.Exists(key, cache.CategoryVisual) {
		t.Fatal("expected visual analysis removed")
	}

	out, _, err = runCLI(t, []string{"cache", "stats", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("cache stats --json: %v", err)
	}
	var stats cache.Stats
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Entries != 0 {
		t.Fatalf("expected empty cache, got %d entries", stats.Entries)
	}

	out, _, err = runCLI(t, []string{"cache", "clear", "--all"}, env.configPath)
	if err != nil {
		t.Fatalf("cache clear --all: %v", err)
	}
	requireContains(t, out, "Cleared cache at")
}

func TestDoctorOffline(t *testing.T) {
	env := setupCLITestEnv(t)
	for _, dir := range []string{env.cfg.Paths.CacheDir, env.cfg.Paths.TemplatesDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	out, _, err := runCLI(t, []string{"doctor", "--offline"}, env.configPath)
	if err != nil {
		t.Fatalf("doctor --offline: %v\n%s", err, out)
	}
	requireContains(t, out, "shotscribe doctor")
	requireContains(t, out, "yt-dlp")
	if strings.Contains(out, "Chat API") {
		t.Fatalf("offline doctor should skip the API check:\n%s", out)
	}
}

func TestTestNotify(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"test-notify"}, env.configPath); err == nil {
		t.Fatal("expected error without a topic")
	}

	var titles atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		titles.Store(r.Header.Get("Title"))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	t.Setenv("SHOTSCRIBE_NTFY_TOPIC", srv.URL+"/topic")

	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Test notification sent")
	if got, _ := titles.Load().(string); got != "shotscribe - Test" {
		t.Fatalf("unexpected title %q", got)
	}
}

func TestCachePrune(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"cache", "prune", "--older-than", "24h"}, env.configPath)
	if err != nil {
		t.Fatalf("cache prune: %v", err)
	}
	requireContains(t, out, "Removed 0 entries")

	if _, _, err := runCLI(t, []string{"cache", "prune", "--older-than", "0s"}, env.configPath); err == nil {
		t.Fatal("expected error for zero age")
	}
}
