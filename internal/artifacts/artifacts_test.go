package artifacts_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"luster/internal/artifacts"
	"luster/internal/testsupport"
)

func writeResult(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestNormalizeExtension(t *testing.T) {
	cases := []struct {
		filename string
		want     string
	}{
		{"photo.png", ".png"},
		{"photo.JPG", ".jpg"},
		{"photo.Jpeg", ".jpeg"},
		{"photo.webp", ".webp"},
		{"photo.tiff", ".png"},
		{"photo", ".png"},
		{"", ".png"},
	}
	for _, tc := range cases {
		if got := artifacts.NormalizeExtension(tc.filename); got != tc.want {
			t.Errorf("NormalizeExtension(%q) = %q, want %q", tc.filename, got, tc.want)
		}
	}
}

func TestLocatePriorityOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	locator := artifacts.NewLocator(cfg)

	writeResult(t, cfg.Paths.ResultsDir, "job-1.jpg", []byte("jpg"))
	writeResult(t, cfg.Paths.ResultsDir, "job-1.png", []byte("png"))

	path, err := locator.Locate("job-1")
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if filepath.Ext(path) != ".png" {
		t.Fatalf("expected png to win priority, got %s", path)
	}
}

func TestLocateMissingIsNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	locator := artifacts.NewLocator(cfg)

	if err := os.MkdirAll(cfg.Paths.ResultsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	_, err := locator.Locate("absent")
	if !errors.Is(err, artifacts.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLocateIgnoresPartialWrites(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	locator := artifacts.NewLocator(cfg)

	// A worker mid-write uses a temporary name; only the renamed final
	// file may be treated as present.
	writeResult(t, cfg.Paths.ResultsDir, "job-2.png.partial-123", []byte("half"))

	_, err := locator.Locate("job-2")
	if !errors.Is(err, artifacts.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for partial write, got %v", err)
	}
}

func TestResolveSingleContentType(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	locator := artifacts.NewLocator(cfg)

	writeResult(t, cfg.Paths.ResultsDir, "job-3.jpg", []byte("jpegdata"))

	art, err := locator.ResolveSingle("job-3")
	if err != nil {
		t.Fatalf("ResolveSingle failed: %v", err)
	}
	if art.ContentType != "image/jpeg" {
		t.Fatalf("unexpected content type %q", art.ContentType)
	}
	if string(art.Data) != "jpegdata" {
		t.Fatalf("unexpected data %q", art.Data)
	}
}

func TestResolveAllReturnsEveryVariant(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	locator := artifacts.NewLocator(cfg)

	writeResult(t, cfg.Paths.ResultsDir, "job-4.png", []byte("png"))
	writeResult(t, cfg.Paths.ResultsDir, "job-4.jpg", []byte("jpg"))

	all, err := locator.ResolveAll("job-4")
	if err != nil {
		t.Fatalf("ResolveAll failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(all))
	}
	if all[0].ContentType != "image/png" {
		t.Fatalf("expected png first, got %q", all[0].ContentType)
	}

	_, err = locator.ResolveAll("job-missing")
	if !errors.Is(err, artifacts.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInputExists(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	locator := artifacts.NewLocator(cfg)

	if err := os.MkdirAll(cfg.Paths.UploadDir, 0o755); err != nil {
		t.Fatal(err)
	}

	ok, err := locator.InputExists("job-5")
	if err != nil {
		t.Fatalf("InputExists failed: %v", err)
	}
	if ok {
		t.Fatal("expected missing input")
	}

	if err := os.WriteFile(locator.InputPath("job-5", ".webp"), []byte("up"), 0o644); err != nil {
		t.Fatal(err)
	}
	ok, err = locator.InputExists("job-5")
	if err != nil {
		t.Fatalf("InputExists failed: %v", err)
	}
	if !ok {
		t.Fatal("expected input to be present")
	}
}
