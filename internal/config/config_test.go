package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CHESS_DRILLER_CONFIG", "CHESS_DRILLER_ACCOUNTS", "CHESS_DRILLER_DB_PATH",
		"CHESS_DRILLER_REPLY_POLICY", "CHESS_DRILLER_REPLY_SEED", "CHESS_DRILLER_MAX_PLY",
		"CHESSCOM_BASE_URL", "REDIS_URL", "DATABASE_URL", "CHESS_DRILLER_CACHE_TTL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
accounts:
  - alice
  - bob
reply_policy: most_played
max_ply: 24
database_path: /tmp/rep.json
`)
	t.Setenv("CHESS_DRILLER_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Accounts) != 2 || cfg.Accounts[0] != "alice" || cfg.Accounts[1] != "bob" {
		t.Fatalf("accounts = %v", cfg.Accounts)
	}
	if cfg.ReplyPolicy != ReplyMostPlayed {
		t.Fatalf("reply_policy = %q", cfg.ReplyPolicy)
	}
	if cfg.MaxPly != 24 || cfg.DatabasePath != "/tmp/rep.json" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.ChessComBaseURL == "" {
		t.Fatalf("default base url missing")
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "accounts: [alice]\n")
	t.Setenv("CHESS_DRILLER_CONFIG", path)
	t.Setenv("CHESS_DRILLER_ACCOUNTS", "carol, dave")
	t.Setenv("CHESS_DRILLER_REPLY_SEED", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Accounts) != 2 || cfg.Accounts[0] != "carol" || cfg.Accounts[1] != "dave" {
		t.Fatalf("env accounts override failed: %v", cfg.Accounts)
	}
	if cfg.ReplySeed != 7 {
		t.Fatalf("reply seed = %d", cfg.ReplySeed)
	}
}

func TestBadReplyPolicy(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "reply_policy: strongest\n")
	t.Setenv("CHESS_DRILLER_CONFIG", path)
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown reply policy")
	}
}

func TestMissingExplicitConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHESS_DRILLER_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}
