package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhao-zixi/Canalysis/internal/analysis"
	"github.com/Zhao-zixi/Canalysis/internal/cache"
	"github.com/Zhao-zixi/Canalysis/internal/callsite"
	"github.com/Zhao-zixi/Canalysis/internal/llm"
	"github.com/Zhao-zixi/Canalysis/internal/output"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"BASE_URL", "MODEL", "API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY",
		"CANALYSIS_MODE", "CANALYSIS_MODEL", "CANALYSIS_API_KEY", "CANALYSIS_BASE_URL",
		"CANALYSIS_CONCURRENCY", "CANALYSIS_CACHE_BACKEND",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeConfig(t *testing.T, root, body string) {
	t.Helper()
	path := filepath.Join(root, output.ContextDir, "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()

	cfg, err := Load(root, nil, "")
	require.NoError(t, err)
	assert.Equal(t, analysis.ModeAsync, cfg.AnalysisMode())
	assert.Equal(t, 5, cfg.Concurrency)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, cache.BackendJSON, cfg.CacheBackend())
	assert.Equal(t, callsite.ScopeNearest, cfg.GuardScope())
	assert.Equal(t, filepath.Join(root, ".canalysis", "function_analysis_store.json"), cfg.CachePath())
	assert.Equal(t, filepath.Join(root, ".canalysis", "function_analysis.json"), cfg.OutputPath())
	assert.Empty(t, cfg.File)
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	writeConfig(t, root, "mode: sync\nconcurrency: 3\nmodel: from-file\ncache:\n  backend: sqlite\ntimeout: 15s\n")

	cfg, err := Load(root, nil, "")
	require.NoError(t, err)
	assert.Equal(t, analysis.ModeSync, cfg.AnalysisMode())
	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, "from-file", cfg.Model)
	assert.Equal(t, filepath.Join(root, ".canalysis", "function_analysis_store.db"), cfg.CachePath())
	assert.NotEmpty(t, cfg.File)

	t.Setenv("MODEL", "legacy-env")
	t.Setenv("API_KEY", "k-123")
	t.Setenv("CANALYSIS_CONCURRENCY", "7")
	cfg, err = Load(root, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "legacy-env", cfg.Model)
	assert.Equal(t, "k-123", cfg.APIKey)
	assert.Equal(t, 7, cfg.Concurrency)

	flags := pflag.NewFlagSet("analyze", pflag.ContinueOnError)
	flags.String("mode", "", "")
	flags.Int("concurrency", 0, "")
	flags.String("model", "", "")
	require.NoError(t, flags.Parse([]string{"--mode", "fallback", "--model", "from-flag"}))

	cfg, err = Load(root, flags, "")
	require.NoError(t, err)
	assert.Equal(t, analysis.ModeFallback, cfg.AnalysisMode())
	assert.Equal(t, "from-flag", cfg.Model)
	assert.Equal(t, 7, cfg.Concurrency, "unset flags must not override")
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("API_KEY=from-dotenv\nBASE_URL=http://localhost:8080/v1\n"), 0644))

	cfg, err := Load(root, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.APIKey)
	assert.Equal(t, "http://localhost:8080/v1", cfg.BaseURL)
	assert.Equal(t, "http://localhost:8080/v1", cfg.LLMSettings().BaseURL)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	clearEnv(t)
	cases := map[string]string{
		"mode":          "mode: turbo\n",
		"concurrency":   "concurrency: 0\n",
		"provider":      "provider: carrier-pigeon\n",
		"cache.backend": "cache:\n  backend: redis\n",
		"timeout":       "timeout: -5s\n",
		"guards":        "guards: everywhere\n",
	}
	for field, body := range cases {
		root := t.TempDir()
		writeConfig(t, root, body)
		_, err := Load(root, nil, "")
		var cfgErr *Error
		require.ErrorAs(t, err, &cfgErr, field)
		assert.Equal(t, field, cfgErr.Field)
	}
}

func TestExplicitConfigFileMustExist(t *testing.T) {
	clearEnv(t)
	_, err := Load(t.TempDir(), nil, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWriteDefaultRoundTrips(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	path, err := WriteDefault(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ".canalysis", "config.yaml"), path)

	cfg, err := Load(root, nil, "")
	require.NoError(t, err)
	assert.Equal(t, path, cfg.File)
	assert.Equal(t, Default().Timeout, cfg.Timeout)
	assert.Equal(t, llm.ProviderOpenAI, cfg.LLMSettings().Provider)

	// a second init leaves user edits alone
	require.NoError(t, os.WriteFile(path, []byte("mode: sync\n"), 0644))
	_, err = WriteDefault(root)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mode: sync\n", string(data))
}
