package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// chdir changes the working directory for the duration of the test
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 3, cfg.Quota.AnswersPerQuestion)
	require.Equal(t, 10, cfg.Quota.QuestionsPerWindow)
	require.Equal(t, 24*time.Hour, cfg.Quota.QuestionWindow)
	require.Equal(t, 100, cfg.Quota.SimilarCandidates)
	require.Equal(t, 20, cfg.Quota.SimilarPromptCandidates)
	require.Equal(t, "0.000002", cfg.CostPerToken().String())
	require.Empty(t, cfg.LLM.APIKey)
	require.Equal(t, []string{"*"}, cfg.Server.CORS.AllowOrigins)
	require.Contains(t, cfg.Server.CORS.AllowHeaders, "X-Group-Password")
	require.Equal(t, 24*time.Hour, cfg.Server.CORS.MaxAge)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 9090
  env: development
  cors:
    allow_origins: ["https://qa.example.com"]
    max_age: 10m
quota:
  answers_per_question: 5
llm:
  cost_per_token: "0.00001"
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	t.Setenv("ANONQA_LLM_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.True(t, cfg.IsDevelopment())
	require.Equal(t, 5, cfg.Quota.AnswersPerQuestion)
	require.Equal(t, "sk-test", cfg.LLM.APIKey)
	require.Equal(t, "0.00001", cfg.CostPerToken().String())
	require.Equal(t, "0.0.0.0:9090", cfg.Address())
	require.Equal(t, []string{"https://qa.example.com"}, cfg.Server.CORS.AllowOrigins)
	require.Equal(t, 10*time.Minute, cfg.Server.CORS.MaxAge)
}

func TestLoadRejectsBadRate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  cost_per_token: abc\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}
