package config_test

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammadpnp/wiki-auth/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()

	assert.True(t, cfg.AllowPasswordChange)
	assert.True(t, cfg.ImportWatchlist)
	assert.True(t, cfg.ImportGroups.Enabled)
	assert.True(t, cfg.ImportGroups.Unrestricted)
	assert.Equal(t, []string{"*"}, cfg.ImportOptions)
	assert.Equal(t, config.DefaultPagesPerJob, cfg.UpdateRowsPerJob)
	assert.Equal(t, 5*time.Minute, cfg.CredentialStashTTL)
}

func TestLoadEnvOverlay(t *testing.T) {
	t.Setenv("REMOTE_API_URL", "https://old.example.org/w/api.php")
	t.Setenv("DISABLE_ACCOUNT_CREATION", "true")
	t.Setenv("IMPORT_GROUPS", "sysop, bot")
	t.Setenv("SKIP_OPTIONS", "nickname,fancysig")
	t.Setenv("UPDATE_ROWS_PER_JOB", "50")

	cfg := config.Load()

	assert.Equal(t, "https://old.example.org/w/api.php", cfg.RemoteAPIURL)
	assert.True(t, cfg.DisableAccountCreation)
	require.True(t, cfg.ImportGroups.Enabled)
	assert.False(t, cfg.ImportGroups.Unrestricted)
	assert.Equal(t, []string{"sysop", "bot"}, cfg.ImportGroups.Allowed)
	assert.Equal(t, []string{"nickname", "fancysig"}, cfg.SkipOptions)
	assert.Equal(t, 50, cfg.UpdateRowsPerJob)
}

func TestLoadGroupPolicyDisabled(t *testing.T) {
	t.Setenv("IMPORT_GROUPS", "false")

	cfg := config.Load()

	assert.False(t, cfg.ImportGroups.Enabled)
	assert.Empty(t, cfg.ValidGroups())
}

func TestPagesPerJobFallback(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.UpdateRowsPerJob = 0

	logger := logrus.New()
	assert.Equal(t, config.DefaultPagesPerJob, cfg.PagesPerJob(logger))

	cfg.UpdateRowsPerJob = 25
	assert.Equal(t, 25, cfg.PagesPerJob(logger))
}

func TestValidGroups(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.Groups = []string{"sysop", "bot", "user", "sysop"}
	cfg.ImplicitGroups = []string{"*", "user"}

	assert.Equal(t, []string{"sysop", "bot"}, cfg.ValidGroups())

	cfg.ImportGroups = config.GroupImportPolicy{Enabled: true, Allowed: []string{"bot"}}
	assert.Equal(t, []string{"bot"}, cfg.ValidGroups())
}
