package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "MAX_FILE_SIZE", "LINE_TOLERANCE", "SPACE_RATIO", "RENDER_DPI"} {
		t.Setenv(k, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Port != "5003" {
		t.Errorf("Port = %s", cfg.Port)
	}
	if cfg.MaxFileSize != 50*1024*1024 {
		t.Errorf("MaxFileSize = %d", cfg.MaxFileSize)
	}
	if cfg.LineTolerance != 15 || cfg.SpaceRatio != 0.4 || cfg.RenderDPI != 144 {
		t.Errorf("unexpected reconstruction defaults: %+v", cfg.DefaultProfile())
	}
	if cfg.QueueEnabled() {
		t.Error("queue should be disabled without REDIS_URL")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("LINE_TOLERANCE", "5")
	t.Setenv("SPACE_RATIO", "0.6")
	t.Setenv("WORKER_CONCURRENCY", "not-a-number")
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.LineTolerance != 5 || cfg.SpaceRatio != 0.6 {
		t.Errorf("overrides not applied: %+v", cfg.DefaultProfile())
	}
	if cfg.WorkerConcurrency != 2 {
		t.Errorf("invalid int should fall back to default, got %d", cfg.WorkerConcurrency)
	}
	if !cfg.QueueEnabled() {
		t.Error("queue should be enabled with REDIS_URL")
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("MODE", "loud")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for invalid MODE")
	}

	t.Setenv("MODE", "release")
	t.Setenv("SPACE_RATIO", "-1")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for negative SPACE_RATIO")
	}
}

func TestParseProfiles(t *testing.T) {
	def := Profile{RenderDPI: 144, LineTolerance: 15, MinConfidence: 30, SpaceRatio: 0.4}
	data := []byte(`
profiles:
  courier:
    space_ratio: 0.6
    line_tolerance: 5
  scans:
    render_dpi: 300
`)
	set, err := ParseProfiles(data, def)
	if err != nil {
		t.Fatalf("ParseProfiles() error = %v", err)
	}

	courier, ok := set.Get("courier")
	if !ok {
		t.Fatal("courier profile missing")
	}
	if courier.SpaceRatio != 0.6 || courier.LineTolerance != 5 || courier.RenderDPI != 144 || courier.MinConfidence != 30 {
		t.Errorf("courier = %+v", courier)
	}

	if p, _ := set.Get(""); p.Name != DefaultProfileName {
		t.Errorf("empty name should select default, got %q", p.Name)
	}
	if _, ok := set.Get("missing"); ok {
		t.Error("unknown profile should not resolve")
	}

	names := set.Names()
	if len(names) != 3 || names[0] != "courier" || names[1] != "default" || names[2] != "scans" {
		t.Errorf("Names() = %v", names)
	}

	out, err := set.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	again, err := ParseProfiles(out, def)
	if err != nil {
		t.Fatalf("re-parse error = %v", err)
	}
	if p, _ := again.Get("scans"); p.RenderDPI != 300 {
		t.Errorf("scans after re-parse = %+v", p)
	}
}

func TestParseProfilesKeepsExplicitZero(t *testing.T) {
	def := Profile{RenderDPI: 144, LineTolerance: 15, MinConfidence: 30, SpaceRatio: 0.4}
	data := []byte(`
profiles:
  everything:
    min_confidence: 0
    line_tolerance: 0
`)
	set, err := ParseProfiles(data, def)
	if err != nil {
		t.Fatalf("ParseProfiles() error = %v", err)
	}
	p, _ := set.Get("everything")
	if p.MinConfidence != 0 || p.LineTolerance != 0 {
		t.Errorf("explicit zeros replaced by defaults: %+v", p)
	}
	if p.RenderDPI != 144 || p.SpaceRatio != 0.4 {
		t.Errorf("absent fields should inherit: %+v", p)
	}

	if _, err := ParseProfiles([]byte("profiles:\n  bad:\n    space_ratio: 0\n"), def); err == nil {
		t.Error("explicit zero space_ratio should fail validation")
	}
}

func TestParseProfilesRejectsInvalid(t *testing.T) {
	def := Profile{RenderDPI: 144, LineTolerance: 15, MinConfidence: 30, SpaceRatio: 0.4}
	if _, err := ParseProfiles([]byte("profiles:\n  bad:\n    min_confidence: 150\n"), def); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := ParseProfiles([]byte("profiles: [1, 2"), def); err == nil {
		t.Fatal("expected YAML error")
	}
}

func TestLoadProfilesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.yaml")
	if err := os.WriteFile(path, []byte("profiles:\n  mono:\n    space_ratio: 0.6\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	cfg.CalibrationFile = path

	set, err := LoadProfiles(cfg)
	if err != nil {
		t.Fatalf("LoadProfiles() error = %v", err)
	}
	if p, ok := set.Get("mono"); !ok || p.SpaceRatio != 0.6 {
		t.Errorf("mono = %+v, %v", p, ok)
	}
}
