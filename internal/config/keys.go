package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	min     int
	max     int // 0 means unbounded
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "TALENTFLOW_SERVER_PORT", min: 1, max: 65535,
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.base_url", typ: kString, env: "TALENTFLOW_SERVER_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Server.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.BaseURL },
	},
	{
		key: "server.api_token", typ: kString, env: "TALENTFLOW_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIToken },
	},
	{
		key: "storage.data_dir", typ: kString, env: "TALENTFLOW_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "TALENTFLOW_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "client.timeout", typ: kDuration, env: "TALENTFLOW_CLIENT_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Client.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Client.Timeout },
	},
	{
		key: "view.row_height", typ: kInt, env: "TALENTFLOW_VIEW_ROW_HEIGHT", min: 1,
		apply:   func(cfg *Config, v any) { cfg.View.RowHeight = v.(int) },
		extract: func(cfg Config) any { return cfg.View.RowHeight },
	},
	{
		key: "view.viewport_height", typ: kInt, env: "TALENTFLOW_VIEW_VIEWPORT_HEIGHT", min: 1,
		apply:   func(cfg *Config, v any) { cfg.View.ViewportHeight = v.(int) },
		extract: func(cfg Config) any { return cfg.View.ViewportHeight },
	},
	{
		key: "view.overscan", typ: kInt, env: "TALENTFLOW_VIEW_OVERSCAN",
		apply:   func(cfg *Config, v any) { cfg.View.Overscan = v.(int) },
		extract: func(cfg Config) any { return cfg.View.Overscan },
	},
	{
		key: "view.page_size", typ: kInt, env: "TALENTFLOW_VIEW_PAGE_SIZE", min: 1, max: 100,
		apply:   func(cfg *Config, v any) { cfg.View.PageSize = v.(int) },
		extract: func(cfg Config) any { return cfg.View.PageSize },
	},
	{
		key: "notify.duration", typ: kDuration, env: "TALENTFLOW_NOTIFY_DURATION",
		apply:   func(cfg *Config, v any) { cfg.Notify.Duration = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Notify.Duration },
	},
}

func (s keySpec) checkInt(v int) error {
	if v < s.min || (s.max > 0 && v > s.max) {
		if s.max > 0 {
			return fmt.Errorf("%s must be between %d and %d, got %d", s.key, s.min, s.max, v)
		}
		return fmt.Errorf("%s must be at least %d, got %d", s.key, s.min, v)
	}
	return nil
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if !ok {
				continue
			}
			if err := s.checkInt(v); err != nil {
				slog.Warn("ignoring config value", "error", err)
				continue
			}
			s.apply(cfg, v)
		case kDuration:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if d, err := time.ParseDuration(v); err == nil {
					s.apply(cfg, d)
				} else {
					slog.Warn("ignoring config value", "key", s.key, "value", v, "error", err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			i, err := strconv.Atoi(raw)
			if err == nil {
				err = s.checkInt(i)
			}
			if err != nil {
				slog.Warn("ignoring environment override", "var", s.env, "value", raw, "error", err)
				continue
			}
			s.apply(cfg, i)
		case kDuration:
			if d, err := time.ParseDuration(raw); err == nil {
				s.apply(cfg, d)
			} else {
				slog.Warn("ignoring environment override", "var", s.env, "value", raw, "error", err)
			}
		}
	}
}
