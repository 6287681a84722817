package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// --- CoercePoint Tests ---

func TestCoercePoint(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"37", 37},
		{"0", 0},
		{"-5", -5},
		{" 42 ", 42},
		{"14.9", 14},
		{"N/A", 0},
		{"", 0},
		{"abc", 0},
	}

	for _, tt := range tests {
		if got := CoercePoint(tt.raw); got != tt.want {
			t.Errorf("CoercePoint(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

// --- Registry Tests ---

type stubDriver struct {
	name string
}

func (d *stubDriver) Service() string { return d.name }

func (d *stubDriver) Login(ctx context.Context, sess Session, secret, proxy string) (bool, error) {
	return true, nil
}

func (d *stubDriver) Check(ctx context.Context, sess Session, secret, proxy string) (CheckResult, error) {
	return CheckResult{OK: true}, nil
}

func TestRegistry_Lookup(t *testing.T) {
	reg := NewRegistry()
	driver := &stubDriver{name: "alpha"}
	reg.Register(driver)

	got, err := reg.Lookup("alpha")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != Driver(driver) {
		t.Error("Lookup should return the registered driver")
	}
}

func TestRegistry_Lookup_Unknown(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Lookup("missing")
	if !errors.Is(err, ErrServiceNotFound) {
		t.Errorf("expected ErrServiceNotFound, got %v", err)
	}
}

func TestRegistry_Register_Overwrites(t *testing.T) {
	reg := NewRegistry()
	first := &stubDriver{name: "alpha"}
	second := &stubDriver{name: "alpha"}
	reg.Register(first)
	reg.Register(second)

	got, err := reg.Lookup("alpha")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != Driver(second) {
		t.Error("re-registration should overwrite the previous driver")
	}
}

func TestRegistry_Services_Sorted(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&stubDriver{name: "bravo"})
	reg.Register(&stubDriver{name: "alpha"})
	reg.Register(&stubDriver{name: "charlie"})

	services := reg.Services()
	if len(services) != 3 {
		t.Fatalf("expected 3 services, got %d", len(services))
	}
	if services[0] != "alpha" || services[1] != "bravo" || services[2] != "charlie" {
		t.Errorf("services should be sorted, got %v", services)
	}
}

// --- Preflight Tests ---

func TestPreflight_EmptyDirs(t *testing.T) {
	check := Preflight(nil)
	if !check.Valid {
		t.Error("empty dir list should be valid")
	}
}

func TestPreflight_ValidExtension(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	check := Preflight([]string{dir})
	if !check.Valid {
		t.Error("dir with manifest.json should be valid")
	}
	if len(check.Dirs) != 1 || check.Dirs[0] != dir {
		t.Error("check should carry the probed dirs")
	}
}

func TestPreflight_MissingManifest(t *testing.T) {
	dir := t.TempDir()

	check := Preflight([]string{dir})
	if check.Valid {
		t.Error("dir without manifest.json should be invalid")
	}
}

func TestPreflight_MissingDir(t *testing.T) {
	check := Preflight([]string{"/nonexistent/extension"})
	if check.Valid {
		t.Error("missing dir should be invalid")
	}
}
