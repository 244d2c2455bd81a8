// Package manifest handles hogtrace.toml configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/posthog/hogtrace/pkg/bytecode"
	"github.com/posthog/hogtrace/pkg/sink"
)

// Manifest represents a hogtrace.toml configuration.
type Manifest struct {
	Sampling Sampling   `toml:"sampling"`
	Limits   LimitsCfg  `toml:"limits"`
	Sink     SinkConfig `toml:"sink"`

	// Dir is the directory containing the hogtrace.toml file (set at load time).
	Dir string `toml:"-"`
}

// Sampling overrides the program's baked-in sampling rate.
type Sampling struct {
	// Rate in [0,1]. Negative means "use the program's rate".
	Rate float64 `toml:"rate"`
}

// LimitsCfg selects an execution limit preset, with optional per-field
// overrides. Zero fields keep the preset's value.
type LimitsCfg struct {
	Preset          string `toml:"preset"` // default | strict | relaxed
	MaxInstructions int    `toml:"max-instructions"`
	MaxStackDepth   int    `toml:"max-stack-depth"`
	MaxCaptureBytes int    `toml:"max-capture-bytes"`
}

// SinkConfig configures event delivery.
type SinkConfig struct {
	Endpoint      string `toml:"endpoint"`       // host:port of the ingest service
	Method        string `toml:"method"`         // package.Service.Method
	SpoolPath     string `toml:"spool-path"`     // empty disables the spool
	MaxBatchSize  int    `toml:"max-batch-size"`
	FlushInterval string `toml:"flush-interval"` // Go duration string
	QueueSize     int    `toml:"queue-size"`
	MaxRetries    int    `toml:"max-retries"`
}

// Load parses a hogtrace.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "hogtrace.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := defaults()
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return m, nil
}

// FindAndLoad walks up from startDir to find a hogtrace.toml file, then
// loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "hogtrace.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Default returns the configuration used when no hogtrace.toml exists.
func Default() *Manifest {
	return defaults()
}

func defaults() *Manifest {
	return &Manifest{
		Sampling: Sampling{Rate: -1},
		Limits:   LimitsCfg{Preset: "default"},
		Sink: SinkConfig{
			MaxBatchSize:  100,
			FlushInterval: "2s",
			QueueSize:     1000,
			MaxRetries:    3,
		},
	}
}

func (m *Manifest) validate() error {
	if m.Sampling.Rate > 1 {
		return fmt.Errorf("sampling.rate %v outside [0, 1]", m.Sampling.Rate)
	}
	switch m.Limits.Preset {
	case "", "default", "strict", "relaxed":
	default:
		return fmt.Errorf("limits.preset %q is not default, strict, or relaxed", m.Limits.Preset)
	}
	if _, err := m.ResolveLimits(); err != nil {
		return err
	}
	if m.Sink.Endpoint != "" && m.Sink.Method == "" {
		return fmt.Errorf("sink.endpoint is set but sink.method is empty")
	}
	if m.Sink.FlushInterval != "" {
		if _, err := time.ParseDuration(m.Sink.FlushInterval); err != nil {
			return fmt.Errorf("sink.flush-interval: %w", err)
		}
	}
	return nil
}

// OverridesSampling reports whether the manifest pins a sampling rate.
func (m *Manifest) OverridesSampling() bool {
	return m.Sampling.Rate >= 0
}

// ResolveLimits materializes the limit preset plus overrides.
func (m *Manifest) ResolveLimits() (bytecode.Limits, error) {
	var l bytecode.Limits
	switch m.Limits.Preset {
	case "", "default":
		l = bytecode.DefaultLimits()
	case "strict":
		l = bytecode.StrictLimits()
	case "relaxed":
		l = bytecode.RelaxedLimits()
	default:
		return l, fmt.Errorf("unknown limits preset %q", m.Limits.Preset)
	}

	if m.Limits.MaxInstructions > 0 {
		l.MaxInstructions = m.Limits.MaxInstructions
	}
	if m.Limits.MaxStackDepth > 0 {
		l.MaxStackDepth = m.Limits.MaxStackDepth
	}
	if m.Limits.MaxCaptureBytes > 0 {
		l.MaxCaptureBytes = m.Limits.MaxCaptureBytes
	}
	if err := l.Validate(); err != nil {
		return l, err
	}
	return l, nil
}

// SinkClientConfig materializes the sink batching configuration.
func (m *Manifest) SinkClientConfig() (sink.Config, error) {
	cfg := sink.DefaultConfig()
	if m.Sink.MaxBatchSize > 0 {
		cfg.MaxBatchSize = m.Sink.MaxBatchSize
	}
	if m.Sink.QueueSize > 0 {
		cfg.QueueSize = m.Sink.QueueSize
	}
	if m.Sink.MaxRetries >= 0 {
		cfg.MaxRetries = m.Sink.MaxRetries
	}
	if m.Sink.FlushInterval != "" {
		d, err := time.ParseDuration(m.Sink.FlushInterval)
		if err != nil {
			return cfg, fmt.Errorf("sink.flush-interval: %w", err)
		}
		cfg.FlushInterval = d
	}
	return cfg, nil
}

// SpoolPath returns the absolute spool path, or "" when spooling is off.
func (m *Manifest) SpoolPath() string {
	if m.Sink.SpoolPath == "" {
		return ""
	}
	if filepath.IsAbs(m.Sink.SpoolPath) || m.Dir == "" {
		return m.Sink.SpoolPath
	}
	return filepath.Join(m.Dir, m.Sink.SpoolPath)
}
