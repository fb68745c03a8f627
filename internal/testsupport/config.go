package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"luster/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = base
	cfgVal.Paths.UploadDir = filepath.Join(base, "uploads")
	cfgVal.Paths.ResultsDir = filepath.Join(base, "results")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Monitor.PollInterval = 1
	cfgVal.Worker.Command = "true"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithWorkerCommand overrides the external worker command on the test config.
func WithWorkerCommand(command string, args ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Worker.Command = command
		b.cfg.Worker.Args = args
	}
}

// WithStubbedWorker writes a stub worker executable that copies the input
// upload into the results directory under the job id, and points the config
// at it. A non-empty failMessage makes the stub exit non-zero without
// writing anything.
func WithStubbedWorker(failMessage string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		var script string
		if failMessage != "" {
			script = "#!/bin/sh\necho '" + failMessage + "' >&2\nexit 1\n"
		} else {
			script = "#!/bin/sh\n" +
				"in=\"$1/$2\"\n" +
				"stem=\"${2%.*}\"\n" +
				"out=\"" + b.cfg.Paths.ResultsDir + "/$stem.png\"\n" +
				"mkdir -p \"" + b.cfg.Paths.ResultsDir + "\"\n" +
				"cp \"$in\" \"$out.tmp\" && mv \"$out.tmp\" \"$out\"\n"
		}
		target := filepath.Join(binDir, "luster-worker")
		if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
			b.t.Fatalf("write stub worker: %v", err)
		}
		b.cfg.Worker.Command = target
		b.cfg.Worker.Args = nil
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return cfg.Paths.DataDir
}
