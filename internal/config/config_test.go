package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PROOF_DATABASE_URL", "postgres://localhost/proof")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ProviderAnthropic, cfg.AIProvider)
	require.Equal(t, "sk-ant-test", cfg.AnthropicAPIKey)
	require.Equal(t, "validation-materials", cfg.StorageBucket)
	require.Equal(t, "s3", cfg.StorageDriver)
	require.Equal(t, 20, cfg.MaxFileSizeMB)
	require.Equal(t, 1024, cfg.AIMaxTokens)
	require.Equal(t, 60*time.Second, cfg.AITimeout)
	require.Equal(t, 90*time.Second, cfg.LockTTL())
	require.Equal(t, ":8080", cfg.HTTPAddress())
}

func TestLoadPrefersPrefixedAnthropicKey(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PROOF_DATABASE_URL", "postgres://localhost/proof")
	t.Setenv("ANTHROPIC_API_KEY", "plain")
	t.Setenv("PROOF_ANTHROPIC_API_KEY", "prefixed")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "prefixed", cfg.AnthropicAPIKey)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PROOF_DATABASE_URL", "")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	_, err := Load()
	require.ErrorContains(t, err, "database url")
}

func TestLoadRequiresProviderKey(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PROOF_DATABASE_URL", "postgres://localhost/proof")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("PROOF_ANTHROPIC_API_KEY", "")

	_, err := Load()
	require.ErrorContains(t, err, "anthropic api key")

	t.Setenv("PROOF_AI_PROVIDER", "gemini")
	_, err = Load()
	require.ErrorContains(t, err, "gemini api key")

	t.Setenv("PROOF_GEMINI_API_KEY", "g-key")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ProviderGemini, cfg.AIProvider)
}

func TestLoadRejectsUnknownProviderAndBadDurations(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PROOF_DATABASE_URL", "postgres://localhost/proof")
	t.Setenv("PROOF_AI_PROVIDER", "llama")

	_, err := Load()
	require.ErrorContains(t, err, "unsupported ai provider")

	t.Setenv("PROOF_AI_PROVIDER", "openai")
	t.Setenv("PROOF_OPENAI_API_KEY", "sk-test")
	t.Setenv("PROOF_AI_TIMEOUT", "soon")
	_, err = Load()
	require.ErrorContains(t, err, "invalid ai.timeout")

	t.Setenv("PROOF_AI_TIMEOUT", "15s")
	t.Setenv("PROOF_RATE_LIMIT_WINDOW", "30s")
	t.Setenv("PROOF_S3_PREFIX", "materials")
	t.Setenv("PROOF_AZURE_SERVICE_URL", "http://127.0.0.1:10000/devstoreaccount1")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "materials", cfg.S3Prefix)
	require.Equal(t, "http://127.0.0.1:10000/devstoreaccount1", cfg.AzureServiceURL)
	require.Equal(t, 15*time.Second, cfg.AITimeout)
	require.Equal(t, 30*time.Second, cfg.ValidationRateWindow)
}
