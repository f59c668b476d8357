package app

import (
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"tomoprep/pkg/center"
	"tomoprep/pkg/config"
	"tomoprep/pkg/session"
	"tomoprep/pkg/tilt"
)

const (
	testWidth  = 32
	testHeight = 6
	testShift  = 4
	// (width + shift - 1) / 2 = 17.5, rounded
	testCenter = 18
)

// createScan writes a 0 degree, an intermediate and a 180 degree projection
// of an object rotating about column 17.5
func createScan(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	rng := rand.New(rand.NewSource(3))
	img0 := image.NewGray16(image.Rect(0, 0, testWidth, testHeight))
	for y := 0; y < testHeight; y++ {
		for x := 0; x < testWidth; x++ {
			img0.SetGray16(x, y, color.Gray16{Y: uint16(rng.Intn(65536))})
		}
	}

	img180 := image.NewGray16(img0.Bounds())
	for y := 0; y < testHeight; y++ {
		for x := 0; x < testWidth; x++ {
			img180.SetGray16(testWidth-1-x, y, img0.Gray16At((x+testShift)%testWidth, y))
		}
	}

	mid := image.NewGray16(img0.Bounds())

	write := func(name string, img image.Image) {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()
		if err := png.Encode(f, img); err != nil {
			t.Fatal(err)
		}
	}
	write("scan_000_000_0001.png", img0)
	write("scan_090_000_0002.png", mid)
	write("scan_180_000_0003.png", img180)
	return dir
}

func newTestApp(t *testing.T, dir string) *App {
	t.Helper()
	a, err := New(config.DefaultConfig(), slog.New(slog.DiscardHandler), dir, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return a
}

func TestInitialize(t *testing.T) {
	a := newTestApp(t, createScan(t))
	if err := a.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if got := a.Center.Pair(); got != (center.Pair{Index0: 0, Index180: 2}) {
		t.Errorf("Expected pair {0 2}, got %+v", got)
	}
	value, ok, err := a.Center.Resolve()
	if err != nil || !ok {
		t.Fatalf("Resolve failed: ok=%v err=%v", ok, err)
	}
	if value != testCenter {
		t.Errorf("Expected center %d, got %d", testCenter, value)
	}
	if a.Tilt.MaxIndex() != 2 {
		t.Errorf("Expected tilt slider max 2, got %d", a.Tilt.MaxIndex())
	}

	preview := filepath.Join(t.TempDir(), "center.png")
	if err := a.CenterPreview.Save(preview); err != nil {
		t.Errorf("Failed to save center preview: %v", err)
	}
	if err := a.TiltPreview.Save(filepath.Join(t.TempDir(), "tilt.png")); err != nil {
		t.Errorf("Failed to save tilt preview: %v", err)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	dir := createScan(t)
	a := newTestApp(t, dir)
	if err := a.Initialize(); err != nil {
		t.Fatal(err)
	}
	a.Tilt.SetEnabled(true)
	if err := a.Tilt.SelectFile(1); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Tilt.SetAlgorithm(tilt.UseCenter); err == nil {
		t.Error("Expected use center to be unavailable")
	}

	store := session.NewFileStore(filepath.Join(t.TempDir(), "session.yaml"))
	if err := store.Save(a.Document()); err != nil {
		t.Fatal(err)
	}
	doc, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if doc.Projections != dir {
		t.Errorf("Expected projections folder %s, got %s", dir, doc.Projections)
	}

	restored := newTestApp(t, doc.Projections)
	if err := restored.Restore(doc); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	value, _, err := restored.Center.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if value != testCenter {
		t.Errorf("Expected restored center %d, got %d", testCenter, value)
	}
	if got := restored.Tilt.Session(); got != doc.TiltCorrection {
		t.Errorf("Expected tilt session %+v, got %+v", doc.TiltCorrection, got)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	dir := createScan(t)

	cfg := config.DefaultConfig()
	cfg.Center.Strategy = "gridrec"
	if _, err := New(cfg, slog.New(slog.DiscardHandler), dir, nil); err == nil {
		t.Error("Expected error for unknown strategy")
	}

	cfg = config.DefaultConfig()
	cfg.Center.Selection = "nearest"
	if _, err := New(cfg, slog.New(slog.DiscardHandler), dir, nil); err == nil {
		t.Error("Expected error for unknown selection")
	}
}
