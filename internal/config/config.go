package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// Reply selection policies for the drill bot.
const (
	ReplyWeighted   = "weighted"
	ReplyMostPlayed = "most_played"
)

type AppConfig struct {
	// Accounts whose game histories are ingested into the repertoire.
	Accounts []string `yaml:"accounts"`

	// DatabasePath overrides the default repertoire file location.
	DatabasePath string `yaml:"database_path"`

	// ReplyPolicy selects how the bot picks its reply: "weighted" picks a
	// known edge at random proportionally to its visit count, "most_played"
	// always picks the most visited edge.
	ReplyPolicy string `yaml:"reply_policy"`
	ReplySeed   int64  `yaml:"reply_seed"`

	// MaxPly caps how many plies of each game are ingested. 0 keeps full games.
	MaxPly int `yaml:"max_ply"`

	ChessComBaseURL string `yaml:"chesscom_base_url"`
	RedisURL        string `yaml:"redis_url"`
	CacheTTLSec     int    `yaml:"cache_ttl_seconds"`
	DatabaseURL     string `yaml:"database_url"`
}

const defaultConfigPath = "config.yaml"

// Load reads the YAML config file and applies environment overrides.
// A missing file is fine as long as accounts are supplied via env.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ReplyPolicy:     ReplyWeighted,
		ChessComBaseURL: "https://api.chess.com",
		CacheTTLSec:     24 * 3600,
	}

	path := strings.TrimSpace(os.Getenv("CHESS_DRILLER_CONFIG"))
	explicit := path != ""
	if path == "" {
		path = defaultConfigPath
	}
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %q: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// fall through to env-only configuration
	default:
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	if v := strings.TrimSpace(os.Getenv("CHESS_DRILLER_ACCOUNTS")); v != "" {
		cfg.Accounts = nil
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				cfg.Accounts = append(cfg.Accounts, s)
			}
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_DRILLER_DB_PATH")); v != "" {
		cfg.DatabasePath = v
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_DRILLER_REPLY_POLICY")); v != "" {
		cfg.ReplyPolicy = v
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_DRILLER_REPLY_SEED")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.ReplySeed = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_DRILLER_MAX_PLY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxPly = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CHESSCOM_BASE_URL")); v != "" {
		cfg.ChessComBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_DRILLER_CACHE_TTL")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheTTLSec = n
		}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.ReplyPolicy)) {
	case ReplyWeighted, ReplyMostPlayed:
		cfg.ReplyPolicy = strings.ToLower(strings.TrimSpace(cfg.ReplyPolicy))
	default:
		return nil, fmt.Errorf("unknown reply_policy %q", cfg.ReplyPolicy)
	}
	if cfg.ChessComBaseURL == "" {
		return nil, errors.New("chesscom_base_url is required")
	}

	return cfg, nil
}
