package framestore

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func writeFrames(t *testing.T, dir string, names ...string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), nil, 0o600); err != nil {
			t.Fatalf("write %s: %v", n, err)
		}
	}
}

func TestListImages(t *testing.T) {
	root := t.TempDir()
	writeFrames(t, filepath.Join(root, "L01", "L01_V001"),
		"10.jpg", "2.JPG", "1.webp", "notes.txt", "3.png", "thumbs.db")
	if err := os.Mkdir(filepath.Join(root, "L01", "L01_V001", "sub.jpg"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	s := New(root, nil)

	got, err := s.ListImages(context.Background(), "L01/L01_V001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"1.webp", "2.JPG", "3.png", "10.jpg"}
	if !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestListImages_MissingDir(t *testing.T) {
	s := New(t.TempDir(), nil)

	got, err := s.ListImages(context.Background(), "L99/L99_V999")
	if err != nil {
		t.Fatalf("missing directory must not fail: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil list, got %v", got)
	}
}

func TestListImages_CustomExtensions(t *testing.T) {
	root := t.TempDir()
	writeFrames(t, filepath.Join(root, "K03", "K03_V010"), "1.jpg", "2.webp")
	s := New(root, []string{"webp"})

	got, err := s.ListImages(context.Background(), "K03/K03_V010")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(got, []string{"2.webp"}) {
		t.Errorf("got %v", got)
	}
}

func TestListImages_StaysUnderRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "Keyframes")
	writeFrames(t, root)
	writeFrames(t, filepath.Join(parent, "secret"), "leak.jpg")
	s := New(root, nil)

	got, err := s.ListImages(context.Background(), "../secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("listing escaped the root: %v", got)
	}
}

func TestListImages_Canceled(t *testing.T) {
	s := New(t.TempDir(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.ListImages(ctx, "L01/L01_V001"); err == nil {
		t.Error("expected context error")
	}
}

func TestDirectoryExists(t *testing.T) {
	root := t.TempDir()
	writeFrames(t, filepath.Join(root, "L01", "L01_V001"), "1.jpg")
	s := New(root, nil)
	ctx := context.Background()

	ok, err := s.DirectoryExists(ctx, "L01/L01_V001")
	if err != nil || !ok {
		t.Errorf("expected directory to exist, got %v %v", ok, err)
	}
	ok, err = s.DirectoryExists(ctx, "L01/L01_V001/1.jpg")
	if err != nil || ok {
		t.Errorf("file is not a directory, got %v %v", ok, err)
	}
	ok, err = s.DirectoryExists(ctx, "L02")
	if err != nil || ok {
		t.Errorf("expected missing directory, got %v %v", ok, err)
	}
}

func TestPing(t *testing.T) {
	if err := New(t.TempDir(), nil).Ping(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := New(filepath.Join(t.TempDir(), "nope"), nil).Ping(context.Background()); err == nil {
		t.Error("expected error for missing root")
	}
}
