package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripkit/pkg/config"
)

func testLogConfig(dir string) *config.LogConfig {
	return &config.LogConfig{
		Server:   config.LogSettings{Path: filepath.Join(dir, "server.log"), Level: "DEBUG"},
		Requests: config.LogSettings{Path: filepath.Join(dir, "requests.log"), Level: "INFO"},
		LLM:      config.LogSettings{Path: filepath.Join(dir, "llm.log"), Level: "INFO"},
	}
}

func TestInitCreatesLogFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := testLogConfig(dir)

	cleanup, err := Init(cfg)
	require.NoError(t, err)
	defer cleanup()

	slog.Info("server line")
	RequestLogger.Info("request line")

	serverData, err := os.ReadFile(cfg.Server.Path)
	require.NoError(t, err)
	assert.Contains(t, string(serverData), "server line")
	assert.NotContains(t, string(serverData), "request line")

	reqData, err := os.ReadFile(cfg.Requests.Path)
	require.NoError(t, err)
	assert.Contains(t, string(reqData), "request line")
}

func TestInitRotatesExistingLogs(t *testing.T) {
	dir := t.TempDir()
	cfg := testLogConfig(dir)

	require.NoError(t, os.WriteFile(cfg.Server.Path, []byte("previous run\n"), 0o644))
	require.NoError(t, os.WriteFile(cfg.LLM.Path, []byte("old llm history\n"), 0o644))

	cleanup, err := Init(cfg)
	require.NoError(t, err)
	defer cleanup()

	oldData, err := os.ReadFile(cfg.Server.Path + ".old")
	require.NoError(t, err)
	assert.Equal(t, "previous run\n", string(oldData))

	oldLLM, err := os.ReadFile(cfg.LLM.Path + ".old")
	require.NoError(t, err)
	assert.Equal(t, "old llm history\n", string(oldLLM))

	// Fresh server log should not contain the previous run
	data, err := os.ReadFile(cfg.Server.Path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "previous run")
}

func TestLogCapture(t *testing.T) {
	dir := t.TempDir()
	cfg := testLogConfig(dir)

	cleanup, err := Init(cfg)
	require.NoError(t, err)
	defer cleanup()

	slog.Info("captured message", "key", "value")

	last := GlobalLogCapture.GetLastLine()
	assert.Contains(t, last, "captured message")
	assert.Contains(t, last, "key=value")
}

func TestLogTransition(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "transitions.log")
	SetTransitionLogPath(path)
	defer SetTransitionLogPath("")

	LogTransition("sess-1", "recommendation", "image_generation", 3)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(data)
	assert.Contains(t, line, "sess-1 3: recommendation -> image_generation")

	assert.Contains(t, GlobalEventCapture.GetLastLine(), "recommendation -> image_generation")
}

func TestLogTransitionNoPathIsNoop(t *testing.T) {
	SetTransitionLogPath("")
	// Must not panic or create files
	LogTransition("sess-2", "qa", "complete", 7)
}

func TestTraceRespectsFlag(t *testing.T) {
	var sb strings.Builder
	logger := slog.New(slog.NewTextHandler(&sb, &slog.HandlerOptions{Level: slog.LevelDebug}))

	EnableTrace = false
	Trace(logger, "hidden")
	assert.Empty(t, sb.String())

	EnableTrace = true
	defer func() { EnableTrace = false }()
	Trace(logger, "visible")
	assert.Contains(t, sb.String(), "visible")
}
