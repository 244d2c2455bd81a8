package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "hogtrace.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadFull(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[sampling]
rate = 0.25

[limits]
preset = "strict"
max-instructions = 5000

[sink]
endpoint = "localhost:9090"
method = "posthog.ingest.v1.IngestService.SendBatch"
spool-path = "spool.db"
max-batch-size = 50
flush-interval = "500ms"
queue-size = 200
max-retries = 5
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	if !m.OverridesSampling() || m.Sampling.Rate != 0.25 {
		t.Errorf("sampling = %+v", m.Sampling)
	}

	limits, err := m.ResolveLimits()
	if err != nil {
		t.Fatal(err)
	}
	// Strict preset with the instruction cap overridden.
	if limits.MaxInstructions != 5000 {
		t.Errorf("MaxInstructions = %d, want 5000", limits.MaxInstructions)
	}
	if limits.MaxStackDepth != 64 {
		t.Errorf("MaxStackDepth = %d, want strict preset's 64", limits.MaxStackDepth)
	}

	cfg, err := m.SinkClientConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxBatchSize != 50 || cfg.QueueSize != 200 || cfg.MaxRetries != 5 {
		t.Errorf("sink config = %+v", cfg)
	}
	if cfg.FlushInterval != 500*time.Millisecond {
		t.Errorf("flush interval = %v", cfg.FlushInterval)
	}

	if m.SpoolPath() != filepath.Join(m.Dir, "spool.db") {
		t.Errorf("spool path = %q", m.SpoolPath())
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, ``)

	m, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.OverridesSampling() {
		t.Error("empty manifest overrides sampling")
	}
	limits, err := m.ResolveLimits()
	if err != nil {
		t.Fatal(err)
	}
	if limits.MaxInstructions != 10_000 {
		t.Errorf("MaxInstructions = %d, want default preset", limits.MaxInstructions)
	}
	if m.SpoolPath() != "" {
		t.Errorf("spool path = %q, want disabled", m.SpoolPath())
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"sampling above one", "[sampling]\nrate = 1.5\n"},
		{"unknown preset", "[limits]\npreset = \"turbo\"\n"},
		{"endpoint without method", "[sink]\nendpoint = \"localhost:9090\"\n"},
		{"bad flush interval", "[sink]\nflush-interval = \"sometimes\"\n"},
	}
	for _, tc := range cases {
		dir := t.TempDir()
		writeManifest(t, dir, tc.content)
		if _, err := Load(dir); err == nil {
			t.Errorf("%s: loaded without error", tc.name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("missing hogtrace.toml loaded")
	}
}

func TestFindAndLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[sampling]\nrate = 0.5\n")

	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(nested)
	if err != nil {
		t.Fatal(err)
	}
	if m == nil || m.Sampling.Rate != 0.5 {
		t.Errorf("manifest = %+v", m)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	m, err := FindAndLoad(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if m != nil {
		t.Errorf("found a manifest where none exists: %+v", m)
	}
}
