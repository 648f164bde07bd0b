package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeAgentConfig(t *testing.T, dir, dsn string) string {
	t.Helper()
	body := "broker:\n  kind: local\n" +
		"store:\n  dsn: " + dsn + "\n" +
		"paper:\n  state_file: " + filepath.Join(dir, "ledger.json") + "\n"
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunExitCodes(t *testing.T) {
	for _, k := range []string{
		"STORE_DSN", "MONGO_URI", "BROKER_KIND", "CONFIG_PATH", "KAFKA_BROKERS", "REDIS_ADDR",
		"TELEGRAM_BOT_TOKEN", "NEWSAPI_KEY", "X_BEARER_TOKEN", "REDDIT_CLIENT_ID",
		"ALPACA_API_KEY", "PUSHGATEWAY_URL",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("LOG_LEVEL", "error")

	dir := t.TempDir()
	t.Chdir(dir)
	blocker := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		dsn  string
		want int
	}{
		{"unsupported dsn", "postgres://user:pw@host/db", 1},
		{"unreachable store", "sqlite://" + filepath.Join(blocker, "data", "agent.db"), 0},
		{"in-process store", "memory://", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := writeAgentConfig(t, t.TempDir(), tt.dsn)
			if got := run([]string{"-config", cfg}); got != tt.want {
				t.Errorf("run = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRunBadFlag(t *testing.T) {
	if got := run([]string{"-no-such-flag"}); got != 2 {
		t.Errorf("run = %d, want 2", got)
	}
}

func TestRunUnreadableConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := os.WriteFile("bad.yaml", []byte("tickers: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := run([]string{"-config", "bad.yaml"}); got != 1 {
		t.Errorf("run = %d, want 1", got)
	}
}
