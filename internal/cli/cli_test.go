package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/career-planner/internal/credential"
	"github.com/nhle/career-planner/internal/model"
	"github.com/nhle/career-planner/internal/store"
)

// writeConfig points a config file at a fresh database under t.TempDir.
func writeConfig(t *testing.T) (configPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "data", "planner.db")
	cfg := model.DefaultAppConfig()
	cfg.Database.Path = dbPath
	cfg.Log.Level = "error"
	configPath = filepath.Join(dir, "config.yaml")
	require.NoError(t, model.SaveConfig(configPath, cfg))
	return configPath, dbPath
}

func seedGoal(t *testing.T, dbPath, userID string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(dbPath), 0o755))
	st, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer st.Close()

	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, st.CreateGoal(context.Background(), &model.Goal{
		UserID:    userID,
		Title:     "Staff engineer",
		Status:    model.GoalStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}))
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSummaryCommandJSON(t *testing.T) {
	configPath, dbPath := writeConfig(t)
	seedGoal(t, dbPath, "alice")

	out, err := run(t, "--config", configPath, "--env-file", "", "summary", "--user", "alice", "--json")
	require.NoError(t, err)

	var sum model.ProgressSummary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, model.SummaryAppID, sum.AppID)
	assert.Equal(t, 1, sum.Totals.ActiveGoals)
}

func TestSummaryCommandText(t *testing.T) {
	configPath, dbPath := writeConfig(t)
	seedGoal(t, dbPath, "alice")

	out, err := run(t, "--config", configPath, "--env-file", "", "summary", "--user", "bob")
	require.NoError(t, err)
	assert.Contains(t, out, "bob")
	assert.Contains(t, out, "Active goals")
	assert.Contains(t, out, "never")
}

func TestSummaryRequiresUser(t *testing.T) {
	configPath, _ := writeConfig(t)

	_, err := run(t, "--config", configPath, "--env-file", "", "summary")
	assert.Error(t, err)
}

func TestEnvFileFeedsConfig(t *testing.T) {
	configPath, _ := writeConfig(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("CAREERPLANNER_LIMITS_MAX_TASKS=7\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CAREERPLANNER_LIMITS_MAX_TASKS") })

	a := &app{configPath: configPath, envFile: envFile}
	require.NoError(t, a.load())
	assert.Equal(t, 7, a.cfg.Limits.MaxTasks)
	assert.NotNil(t, a.logger)
}

func TestMissingEnvFileIsIgnored(t *testing.T) {
	configPath, _ := writeConfig(t)

	a := &app{configPath: configPath, envFile: filepath.Join(t.TempDir(), "absent.env")}
	require.NoError(t, a.load())
}

func TestWireUsesCacheWhenConfigured(t *testing.T) {
	t.Setenv(credential.WebhookSecretEnv, "test-secret")
	configPath, dbPath := writeConfig(t)
	a := &app{configPath: configPath}
	require.NoError(t, a.load())
	a.cfg.Summary.CacheTTLSec = 30
	a.cfg.Database.Path = dbPath

	st, err := a.openStore()
	require.NoError(t, err)
	defer st.Close()

	svc := a.wire(st, nil, true)
	require.NotNil(t, svc.dispatcher)
	svc.dispatcher.Start()
	svc.dispatcher.Stop()
}

func TestDeadLettersCommand(t *testing.T) {
	configPath, dbPath := writeConfig(t)

	out, err := run(t, "--config", configPath, "--env-file", "", "deadletters")
	require.NoError(t, err)
	assert.Contains(t, out, "No undelivered notices.")

	st, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.CreateDeadLetter(context.Background(), store.DeadLetter{
		Kind:      "summary",
		UserID:    "alice",
		EventType: string(model.EventTaskCompleted),
		Error:     "webhook returned 503",
	}))
	require.NoError(t, st.Close())

	out, err = run(t, "--config", configPath, "--env-file", "", "deadletters")
	require.NoError(t, err)
	assert.Contains(t, out, "Undelivered notices (1)")
	assert.Contains(t, out, "webhook returned 503")
}
