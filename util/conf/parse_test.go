package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testNested struct {
	Timeout time.Duration `conf:"timeout"`
	Name    string        `conf:"name" validate:"oneof=foo bar"`
}

type testConfig struct {
	Level  string     `conf:"level"`
	Nested testNested `conf:"nested"`
}

func TestTransformEnv(t *testing.T) {
	tests := []struct {
		in, prefix, want string
	}{
		{"BGSTRIP_LOG_LEVEL", "BGSTRIP_", "log_level"},
		{"BGSTRIP_REMOVER__BACKEND", "BGSTRIP_", "remover.backend"},
		{"REMOVER__PROCESS__CMD", "", "remover.process.cmd"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, transformEnv(tt.in, tt.prefix))
		})
	}
}

func TestParse_DefaultsAndEnv(t *testing.T) {
	t.Setenv("CONFTEST_NESTED__NAME", "bar")

	cfg, err := Parse[testConfig](ParseOptions{
		Defaults: DefaultConfig{
			"level":          "info",
			"nested.name":    "foo",
			"nested.timeout": "2s",
		},
		EnvPrefix: "CONFTEST_",
	})
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "bar", cfg.Nested.Name)
	assert.Equal(t, 2*time.Second, cfg.Nested.Timeout)
}

func TestParse_Dotenv(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(name, []byte("DOTENVTEST_LEVEL=debug\n"), 0o600))

	cfg, err := Parse[testConfig](ParseOptions{
		Defaults:       DefaultConfig{"nested.name": "foo"},
		EnvPrefix:      "DOTENVTEST_",
		DotenvFileName: name,
	})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Level)
}

func TestParse_FailsValidation(t *testing.T) {
	_, err := Parse[testConfig](ParseOptions{
		Defaults:  DefaultConfig{"nested.name": "baz"},
		EnvPrefix: "INVALIDTEST_",
	})
	assert.Error(t, err)
}
