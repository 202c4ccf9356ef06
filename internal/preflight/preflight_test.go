package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shotscribe/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func healthServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if status != http.StatusOK {
			http.Error(w, `{"error":{"message":"invalid api key"}}`, status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"pong"},"finish_reason":"stop"}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckAPI_OK(t *testing.T) {
	srv := healthServer(t, http.StatusOK)
	cfg := testsupport.NewConfig(t, testsupport.WithAPIBaseURL(srv.URL))

	result := CheckAPI(context.Background(), cfg)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckAPI_BadKey(t *testing.T) {
	srv := healthServer(t, http.StatusUnauthorized)
	cfg := testsupport.NewConfig(t, testsupport.WithAPIBaseURL(srv.URL))

	result := CheckAPI(context.Background(), cfg)
	if result.Passed {
		t.Fatal("expected failure for bad key")
	}
	if !strings.Contains(result.Detail, "401") {
		t.Fatalf("expected status in detail, got %q", result.Detail)
	}
}

func TestCheckAPI_MissingKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.API.APIKey = ""
	if result := CheckAPI(context.Background(), cfg); result.Passed {
		t.Fatal("expected failure for missing key")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_StubbedEnvironment(t *testing.T) {
	srv := healthServer(t, http.StatusOK)
	cfg := testsupport.NewConfig(t,
		testsupport.WithAPIBaseURL(srv.URL),
		testsupport.WithStubbedBinaries(),
	)
	for _, dir := range []string{cfg.Paths.CacheDir, cfg.Paths.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	results := RunAll(context.Background(), cfg)
	// yt-dlp, ffmpeg, ffprobe, cache dir, output dir, chat API
	if len(results) != 6 {
		t.Fatalf("expected 6 results, got %d: %#v", len(results), results)
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	if Failed(results) {
		t.Fatal("expected no failures")
	}
}

func TestRunAll_GeminiWithoutKeyFails(t *testing.T) {
	srv := healthServer(t, http.StatusOK)
	cfg := testsupport.NewConfig(t, testsupport.WithAPIBaseURL(srv.URL), testsupport.WithStubbedBinaries())
	cfg.API.VisionProvider = "gemini"
	cfg.Gemini.APIKey = ""

	results := RunAll(context.Background(), cfg)
	last := results[len(results)-1]
	if last.Name != "Gemini" || last.Passed {
		t.Fatalf("expected failing Gemini check, got %#v", last)
	}
	if !Failed(results) {
		t.Fatal("expected Failed to report the Gemini failure")
	}
}

func TestRunLocal_SkipsNetworkChecks(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.API.APIKey = ""
	cfg.Paths.TemplatesDir = filepath.Join(testsupport.BaseDir(cfg), "missing-templates")

	results := RunLocal(context.Background(), cfg)
	for _, r := range results {
		if r.Name == "Chat API" || r.Name == "Gemini" {
			t.Fatalf("unexpected network check %q", r.Name)
		}
	}
	last := results[len(results)-1]
	if last.Name != "Templates directory" || last.Passed || !last.Optional {
		t.Fatalf("expected optional failing templates check, got %#v", last)
	}
}
