package kfsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/kfsearch/internal/domain"
	"github.com/kailas-cloud/kfsearch/internal/domain/search/mode"
	"github.com/kailas-cloud/kfsearch/internal/domain/search/request"
	"github.com/kailas-cloud/kfsearch/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/kfsearch/internal/usecase/health"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kfsearch.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestNew_MissingConfigFile(t *testing.T) {
	_, err := New(context.Background(), WithConfigFile(filepath.Join(t.TempDir(), "nope.yaml")))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestNew_FramesOnly(t *testing.T) {
	frames := t.TempDir()
	path := writeConfig(t, "http:\n  port: 8080\nframes:\n  root: /does/not/matter\n")

	c, err := New(context.Background(), WithConfigFile(path), WithFramesRoot(frames))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer c.Close()

	if h := c.Health(context.Background()); h.Status != "ok" || h.Checks["frames"] != "ok" {
		t.Errorf("unexpected health: %+v", h)
	}

	_, err = c.Search(context.Background(), "red car", WithMode(ModeOCR))
	if !errors.Is(err, ErrModeNotConfigured) {
		t.Errorf("expected ErrModeNotConfigured, got %v", err)
	}
}

func TestLoadConfig_FramesRootOverride(t *testing.T) {
	path := writeConfig(t, "http:\n  port: 8080\nframes:\n  root: /srv/frames\n")

	cfg, err := loadConfig(&clientConfig{configFile: path, framesRoot: "/mnt/frames"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Frames.Root != "/mnt/frames" {
		t.Errorf("frames root: got %q", cfg.Frames.Root)
	}
	if limits := limitsFrom(&cfg); limits.DefaultK != 500 || limits.MaxK != 2000 {
		t.Errorf("limits: got %+v", limits)
	}
}

func TestSearch_PassesParameters(t *testing.T) {
	var got *request.Request
	search := &mockSearchUC{searchFn: func(_ context.Context, req *request.Request) (result.Response, error) {
		got = req
		return result.Empty(), nil
	}}
	c := newTestClient(search, nil)

	_, err := c.Search(context.Background(), " HTV9 ", WithMode(ModeOCR), WithK(50), WithFuzzy(false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Query() != "HTV9" || got.Mode() != mode.OCR || got.K() != 50 {
		t.Errorf("unexpected request: %q %s %d", got.Query(), got.Mode(), got.K())
	}
	if fuzzy, set := got.Fuzzy(); !set || fuzzy {
		t.Errorf("fuzzy: got (%v, %v), want (false, true)", fuzzy, set)
	}
}

func TestSearch_Defaults(t *testing.T) {
	var got *request.Request
	search := &mockSearchUC{searchFn: func(_ context.Context, req *request.Request) (result.Response, error) {
		got = req
		return result.Empty(), nil
	}}
	c := newTestClient(search, nil)

	if _, err := c.Search(context.Background(), "boat"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Mode() != mode.DenseCaption || got.K() != request.DefaultK || got.Model() != "" {
		t.Errorf("unexpected defaults: %s %d %q", got.Mode(), got.K(), got.Model())
	}
}

func TestSearch_EmptyResponseJSON(t *testing.T) {
	search := &mockSearchUC{searchFn: func(context.Context, *request.Request) (result.Response, error) {
		return result.Empty(), nil
	}}
	c := newTestClient(search, nil)

	resp, err := c.Search(context.Background(), "boat")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"frame_results":[],"video_results":[]}` {
		t.Errorf("got %s", data)
	}
}

func TestSearch_ConvertsResult(t *testing.T) {
	search := &mockSearchUC{searchFn: func(context.Context, *request.Request) (result.Response, error) {
		frame := result.Frame{Path: "/images/Keyframes/L01/L01_V001/1.webp", Score: result.Float(1)}
		return result.Response{
			Frames: []result.Frame{frame},
			Videos: []result.Video{{
				VideoID:    "L01_V001",
				VideoScore: result.Float(1),
				Frames:     []result.Frame{frame},
				AllFrames:  []string{frame.Path, "/images/Keyframes/L01/L01_V001/2.webp"},
			}},
		}, nil
	}}
	c := newTestClient(search, nil)

	resp, err := c.Search(context.Background(), "boat")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Videos) != 1 || resp.Videos[0].ID != "L01_V001" || len(resp.Videos[0].AllFrames) != 2 {
		t.Fatalf("unexpected videos: %+v", resp.Videos)
	}
	if s := resp.Frames[0].Score; s == nil || *s != 1 {
		t.Errorf("frame score: got %v", s)
	}
}

func TestSearch_InvalidRequest(t *testing.T) {
	search := &mockSearchUC{searchFn: func(context.Context, *request.Request) (result.Response, error) {
		t.Fatal("service must not be called")
		return result.Response{}, nil
	}}
	c := newTestClient(search, nil)

	tests := []struct {
		name  string
		query string
		opts  []SearchOption
		want  error
	}{
		{"blank query", "  ", nil, ErrInvalidRequest},
		{"unknown mode", "car", []SearchOption{WithMode("color")}, ErrUnknownMode},
		{"negative k", "car", []SearchOption{WithK(-1)}, ErrInvalidRequest},
		{"k above max", "car", []SearchOption{WithK(10_000)}, ErrInvalidRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Search(context.Background(), tc.query, tc.opts...)
			if !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestSearch_ObservesOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	obs, err := newObserver(logger, reg)
	if err != nil {
		t.Fatalf("observer: %v", err)
	}

	fail := false
	search := &mockSearchUC{searchFn: func(context.Context, *request.Request) (result.Response, error) {
		if fail {
			return result.Response{}, domain.ErrBackendUnavailable
		}
		return result.Empty(), nil
	}}
	c := newTestClient(search, obs)

	_, _ = c.Search(context.Background(), "car")
	_, _ = c.Search(context.Background(), "car", WithMode("color"))
	fail = true
	_, _ = c.Search(context.Background(), "car")

	for status, want := range map[string]float64{"ok": 1, "client_error": 1, "error": 1} {
		got := testutil.ToFloat64(obs.metrics.operations.WithLabelValues("search", status))
		if got != want {
			t.Errorf("%s: got %v, want %v", status, got, want)
		}
	}
	if !strings.Contains(buf.String(), "operation failed") {
		t.Errorf("backend failure should be logged: %s", buf.String())
	}
}

func TestNewSDKMetrics_ReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := newSDKMetrics(reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := newSDKMetrics(reg)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first.operations != second.operations {
		t.Error("expected the registered collector to be reused")
	}
}

func TestHealthAndModels(t *testing.T) {
	closed := false
	c := wireClient(
		&mockSearchUC{models: []string{"openclip", "siglip"}},
		&mockHealthUC{report: healthuc.Report{
			Status: healthuc.Degraded,
			Checks: map[string]healthuc.CheckResult{"milvus": healthuc.CheckError},
		}},
		request.DefaultLimits(),
		func() { closed = true },
		nil,
	)

	h := c.Health(context.Background())
	if h.Status != "degraded" || h.Checks["milvus"] != "error" {
		t.Errorf("unexpected health: %+v", h)
	}
	if got := strings.Join(c.Models(), ","); got != "openclip,siglip" {
		t.Errorf("models: got %s", got)
	}
	c.Close()
	if !closed {
		t.Error("Close should release backends")
	}
}
