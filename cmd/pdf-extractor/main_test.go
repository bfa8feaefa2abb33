package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCommandsRegistered(t *testing.T) {
	want := []string{"serve", "worker", "extract", "convert", "info", "profiles"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered: %v", name, err)
		}
	}
}

func TestProfilesCommand(t *testing.T) {
	calibration := filepath.Join(t.TempDir(), "profiles.yaml")
	if err := os.WriteFile(calibration, []byte("profiles:\n  mono:\n    space_ratio: 0.6\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CALIBRATION_FILE", calibration)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"profiles"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	for _, s := range []string{"default:", "mono:", "space_ratio: 0.6"} {
		if !strings.Contains(out.String(), s) {
			t.Errorf("output missing %q:\n%s", s, out.String())
		}
	}
}

func TestConvertRejectsNonTIFF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := readTIFF(path); err == nil {
		t.Fatal("expected error for non-TIFF input")
	}

	fake := filepath.Join(t.TempDir(), "scan.tif")
	if err := os.WriteFile(fake, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := readTIFF(fake); err == nil {
		t.Fatal("expected error for TIFF extension with PDF content")
	}
}
