package workflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"shotscribe/internal/acquire"
	"shotscribe/internal/config"
	"shotscribe/internal/history"
	"shotscribe/internal/logging"
	"shotscribe/internal/media/ffprobe"
	"shotscribe/internal/services"
	"shotscribe/internal/testsupport"
	"shotscribe/internal/workflow"
)

const (
	videoURL      = "https://www.douyin.com/video/7300000000000000000"
	shotTable     = "| Shot | Time | Visual |\n|---|---|---|\n| 1 | 00:00-00:03 | Kitchen, morning light |\n"
	rewrittenText = "| Shot | Line |\n|---|---|\n| 1 | Rewritten opening |\n"
)

// fakeAPI emulates the chat completions and native transcription endpoints.
type fakeAPI struct {
	mu            sync.Mutex
	visionCalls   int
	textCalls     int
	asrCalls      int
	failASR       bool
	failVision    bool
	lastTextInput string
	notifications []string
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/compatible-mode/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Messages []struct {
				Role    string          `json:"role"`
				Content json.RawMessage `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode chat request: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()

		last := payload.Messages[len(payload.Messages)-1]
		var reply string
		if strings.HasPrefix(strings.TrimSpace(string(last.Content)), "[") {
			f.visionCalls++
			if f.failVision {
				http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
				return
			}
			reply = "Frame 1 shows a kitchen in morning light."
		} else {
			f.textCalls++
			var text string
			_ = json.Unmarshal(payload.Messages[0].Content, &text)
			f.lastTextInput = text
			reply = shotTable
			if strings.Contains(text, "Script rewrite") {
				reply = rewrittenText
			}
		}
		writeJSON(t, w, map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": reply}, "finish_reason": "stop"}},
		})
	})
	mux.HandleFunc("/api/v1/services/aigc/multimodal-generation/generation", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.asrCalls++
		fail := f.failASR
		f.mu.Unlock()
		if fail {
			http.Error(w, `{"code":"InternalError"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(t, w, map[string]any{
			"output": map[string]any{
				"choices": []map[string]any{{"message": map[string]any{"content": []map[string]any{{"text": "Good morning everyone"}}}}},
			},
		})
	})
	mux.HandleFunc("/ntfy/shotscribe", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.notifications = append(f.notifications, r.Header.Get("Title"))
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (f *fakeAPI) sentNotifications() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.notifications...)
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

type env struct {
	cfg      *config.Config
	api      *fakeAPI
	recorder *testsupport.CommandRecorder
	wf       *workflow.Workflow
}

func newEnv(t *testing.T, failDownload bool) *env {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithAPIBaseURL(srv.URL+"/compatible-mode/v1"))
	cfg.Notifications.NtfyTopic = srv.URL + "/ntfy/shotscribe"
	recorder := &testsupport.CommandRecorder{Handler: func(name string, args []string) error {
		switch name {
		case "yt-dlp":
			if failDownload {
				return errors.New("exit status 1")
			}
			out := testsupport.ArgAfter(args, "-o")
			if testsupport.HasArg(args, "-x") {
				testsupport.WriteMP3(t, strings.Replace(out, "%(ext)s", "mp3", 1))
				return nil
			}
			testsupport.WriteFile(t, out, 256)
		case "ffmpeg":
			dir := filepath.Dir(args[len(args)-1])
			for i := 1; i <= 4; i++ {
				testsupport.WriteJPEG(t, filepath.Join(dir, fmt.Sprintf("frame_%04d.jpg", i)))
			}
		}
		return nil
	}}
	restore := acquire.SetProbeForTests(func(context.Context, string, string) (ffprobe.VideoMetadata, error) {
		return ffprobe.VideoMetadata{Duration: 12, Width: 720, Height: 1280, HasAudio: true, Size: 256, Title: "Morning routine"}, nil
	})
	t.Cleanup(restore)

	wf, err := workflow.New(context.Background(), cfg, logging.NewNop(),
		workflow.WithHTTPClient(srv.Client()),
		workflow.WithCommandRunner(recorder.Run),
	)
	if err != nil {
		t.Fatalf("workflow.New: %v", err)
	}
	t.Cleanup(func() { _ = wf.Close() })
	return &env{cfg: cfg, api: api, recorder: recorder, wf: wf}
}

func TestBreakdownEndToEnd(t *testing.T) {
	e := newEnv(t, false)
	ctx := context.Background()

	result, err := e.wf.Breakdown(ctx, videoURL, workflow.BreakdownOptions{})
	if err != nil {
		t.Fatalf("Breakdown: %v", err)
	}
	if result.Script != strings.TrimSpace(shotTable) {
		t.Fatalf("unexpected script %q", result.Script)
	}
	if got := result.Analysis.Keyframes.Len(); got != 4 {
		t.Fatalf("keyframes = %d, want 4", got)
	}
	if !result.Analysis.Transcription.Available() || result.Analysis.Transcription.Text() != "Good morning everyone" {
		t.Fatalf("unexpected transcription %+v", result.Analysis.Transcription)
	}
	if !strings.Contains(e.api.lastTextInput, "Good morning everyone") || !strings.Contains(e.api.lastTextInput, "kitchen in morning light") {
		t.Fatal("breakdown prompt should carry transcript and visual analysis")
	}
	for _, path := range []string{result.Paths.Markdown, result.Paths.HTML} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected report %s: %v", path, err)
		}
	}
	if !strings.HasPrefix(result.Paths.Markdown, filepath.Join(e.cfg.Paths.OutputDir, "scripts")) {
		t.Fatalf("report outside scripts dir: %s", result.Paths.Markdown)
	}

	run, err := e.wf.History().Get(ctx, result.RunID)
	if err != nil {
		t.Fatalf("history Get: %v", err)
	}
	if run.Status != history.StatusSucceeded || run.MarkdownPath != result.Paths.Markdown {
		t.Fatalf("unexpected history row %+v", run)
	}
	if sent := e.api.sentNotifications(); len(sent) != 1 || sent[0] != "shotscribe - Breakdown Complete" {
		t.Fatalf("unexpected notifications %q", sent)
	}
}

func TestBreakdownSecondRunUsesCachedMedia(t *testing.T) {
	e := newEnv(t, false)
	ctx := context.Background()

	if _, err := e.wf.Breakdown(ctx, videoURL, workflow.BreakdownOptions{}); err != nil {
		t.Fatalf("first Breakdown: %v", err)
	}
	downloads := e.recorder.Count("yt-dlp")
	extracts := e.recorder.Count("ffmpeg")

	result, err := e.wf.Breakdown(ctx, videoURL, workflow.BreakdownOptions{})
	if err != nil {
		t.Fatalf("second Breakdown: %v", err)
	}
	if !result.Analysis.MediaCached {
		t.Fatal("expected cached media on second run")
	}
	if e.recorder.Count("yt-dlp") != downloads || e.recorder.Count("ffmpeg") != extracts {
		t.Fatal("expected no tool invocations on second run")
	}
	if e.api.visionCalls != 2 {
		t.Fatalf("vision calls = %d, want 2 (AI results are not reused by default)", e.api.visionCalls)
	}
}

func TestBreakdownTranscriptionFailureDegrades(t *testing.T) {
	e := newEnv(t, false)
	e.api.failASR = true

	result, err := e.wf.Breakdown(context.Background(), videoURL, workflow.BreakdownOptions{})
	if err != nil {
		t.Fatalf("Breakdown: %v", err)
	}
	if result.Analysis.Transcription.Available() {
		t.Fatal("expected unavailable transcription")
	}
	if !strings.Contains(e.api.lastTextInput, "Speech transcription unavailable") {
		t.Fatal("expected placeholder in breakdown prompt")
	}
	if len(result.Analysis.Warnings) == 0 {
		t.Fatal("expected a warning about transcription")
	}
}

func TestBreakdownAcquisitionFailureStopsEarly(t *testing.T) {
	e := newEnv(t, true)
	ctx := context.Background()

	_, err := e.wf.Breakdown(ctx, videoURL, workflow.BreakdownOptions{})
	if !errors.Is(err, services.ErrAcquisition) {
		t.Fatalf("expected ErrAcquisition, got %v", err)
	}
	if !strings.Contains(err.Error(), "acquire") {
		t.Fatalf("error should name the acquisition stage: %v", err)
	}
	if e.recorder.Count("ffmpeg") != 0 || e.api.visionCalls != 0 || e.api.asrCalls != 0 {
		t.Fatal("no extraction or AI call should follow a failed download")
	}

	runs, err := e.wf.History().List(ctx, 5)
	if err != nil {
		t.Fatalf("history List: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != history.StatusFailed || runs[0].FailureKind != "acquisition" {
		t.Fatalf("unexpected history %+v", runs)
	}
	if sent := e.api.sentNotifications(); len(sent) != 1 || sent[0] != "shotscribe - Error" {
		t.Fatalf("unexpected notifications %q", sent)
	}
}

func TestBreakdownVisionFailureIsFatal(t *testing.T) {
	e := newEnv(t, false)
	e.api.failVision = true

	_, err := e.wf.Breakdown(context.Background(), videoURL, workflow.BreakdownOptions{})
	if !errors.Is(err, services.ErrRemoteService) {
		t.Fatalf("expected ErrRemoteService, got %v", err)
	}
	if e.api.textCalls != 0 {
		t.Fatal("composition must not run after a vision failure")
	}
}

func TestRewriteFromScriptFile(t *testing.T) {
	e := newEnv(t, false)
	scriptPath := filepath.Join(t.TempDir(), "original.md")
	if err := os.WriteFile(scriptPath, []byte(shotTable), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	result, err := e.wf.Rewrite(context.Background(), workflow.RewriteOptions{
		ScriptPath:  scriptPath,
		Instruction: "make it about evening",
	})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if result.Script != strings.TrimSpace(rewrittenText) || result.OriginalTitle != "original" {
		t.Fatalf("unexpected result %+v", result)
	}
	if !strings.HasPrefix(result.Paths.Markdown, filepath.Join(e.cfg.Paths.OutputDir, "rewrites")) {
		t.Fatalf("report outside rewrites dir: %s", result.Paths.Markdown)
	}
	if e.recorder.Count("yt-dlp") != 0 {
		t.Fatal("rewriting a file must not download anything")
	}
}

func TestRewriteFromURLRunsBreakdownFirst(t *testing.T) {
	e := newEnv(t, false)

	result, err := e.wf.Rewrite(context.Background(), workflow.RewriteOptions{
		URL:         videoURL,
		Instruction: "shorter shots",
	})
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if result.Breakdown == nil || result.Breakdown.Paths.Markdown == "" {
		t.Fatal("expected breakdown reports to be written")
	}
	if result.OriginalTitle != "Morning routine" {
		t.Fatalf("original title = %q", result.OriginalTitle)
	}
	if e.api.textCalls != 2 {
		t.Fatalf("text calls = %d, want 2", e.api.textCalls)
	}
}

func TestRewriteRequiresInstruction(t *testing.T) {
	e := newEnv(t, false)
	_, err := e.wf.Rewrite(context.Background(), workflow.RewriteOptions{Script: shotTable})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.API.APIKey = ""
	_, err := workflow.New(context.Background(), cfg, logging.NewNop(), workflow.WithoutHistory())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
