package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRun(t *testing.T) {
	dir := t.TempDir()

	tempConfig := strings.ReplaceAll(`
server:
    address: localhost:0  # 0 lets OS choose free port
llm:
    provider: "mock"
search:
    provider: "none"
log:
    server:
        path: "DIR/logs/test_server.log"
        level: "debug"
    requests:
        path: "DIR/logs/test_requests.log"
        level: "info"
    llm:
        path: "DIR/logs/test_llm.log"
        level: "debug"
db:
    path: "DIR/test.db"
image:
    asset_dir: "DIR/images"
`, "DIR", filepath.ToSlash(dir))

	configPath := filepath.Join(dir, "tripkit.yaml")
	if err := os.WriteFile(configPath, []byte(tempConfig), 0o644); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}

	// Create a context that cancels quickly to verify startup sequence
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := run(ctx, configPath); err != nil {
		t.Fatalf("run() failed: %v", err)
	}
}
