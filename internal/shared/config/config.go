package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/model"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/internal/shared/types"
)

// Default returns the configuration the engine runs with when the ini
// file leaves a key out.
func Default() *types.Config {
	return &types.Config{
		BoosterConf: types.BoosterConf{
			MaxConcurrency:    300,
			RequestTimeout:    10 * time.Second,
			RetryDelay:        5 * time.Second,
			RestartDelay:      10 * time.Second,
			CriticalThreshold: 20,
			JitterMinMS:       10,
			JitterMaxMS:       50,
			BaseURL:           "https://t.me",
		},
		HealthConf: types.HealthConf{
			Timeout:     3 * time.Second,
			Concurrency: 100,
			Channel:     "telegram",
		},
		ReactionConf: types.ReactionConf{
			Enabled:         false,
			Emojis:          []string{"👏", "🔥", "❤️", "🎉", "👍"},
			DelayMin:        2 * time.Second,
			DelayMax:        5 * time.Second,
			SessionDir:      "sessions",
			DailyLimit:      50,
			DefaultCooldown: 5 * time.Minute,
			APIBase:         "https://api.telegram.org",
		},
		AppConf: types.AppConf{
			BatchSize:   4,
			JoinTimeout: 5 * time.Second,
		},
		LogConf: types.LogConf{Level: "info"},
	}
}

// LoadIni overlays the ini file onto cfg, fills the source list from
// the [sources] section and applies environment overrides.
func LoadIni(cfg *types.Config, fileName string) error {
	iniFile, err := ini.Load(fileName)
	if err != nil {
		return err
	}
	if err := iniFile.MapTo(cfg); err != nil {
		return err
	}
	if err := mapSources(cfg, iniFile); err != nil {
		return err
	}
	applyEnvOverrides(cfg)
	return nil
}

// mapSources reads the [sources] section: one key per source, value
// "kind|proxy_type|url". A non-empty section replaces the defaults.
func mapSources(cfg *types.Config, iniFile *ini.File) error {
	sec, err := iniFile.GetSection("sources")
	if err != nil {
		return nil // section absent, keep defaults
	}
	for _, key := range sec.Keys() {
		parts := strings.SplitN(key.Value(), "|", 3)
		if len(parts) != 3 {
			return fmt.Errorf("source %q: want \"kind|proxy_type|url\", got %q", key.Name(), key.Value())
		}
		spec := types.SourceSpec{
			Name:      key.Name(),
			Kind:      strings.TrimSpace(parts[0]),
			ProxyType: strings.TrimSpace(parts[1]),
			URL:       strings.TrimSpace(parts[2]),
		}
		switch spec.Kind {
		case model.SourceKindRaw, model.SourceKindAPI, model.SourceKindHTMLTable, model.SourceKindJSEmbedded:
		default:
			return fmt.Errorf("source %q: unknown kind %q", spec.Name, spec.Kind)
		}
		switch spec.ProxyType {
		case model.ProxyTypeHTTP, model.ProxyTypeSOCKS5, model.ProxyTypeMixed:
		default:
			return fmt.Errorf("source %q: unknown proxy type %q", spec.Name, spec.ProxyType)
		}
		if spec.URL == "" {
			return fmt.Errorf("source %q: empty url", spec.Name)
		}
		cfg.Sources = append(cfg.Sources, spec)
	}
	return nil
}

// Validate rejects configurations the engine cannot run with. All
// problems are reported at once.
func Validate(cfg *types.Config) error {
	var problems []string
	add := func(format string, v ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, v...))
	}

	if cfg.MaxConcurrency < 1 {
		add("max_concurrency must be at least 1, got %d", cfg.MaxConcurrency)
	}
	if cfg.RequestTimeout <= 0 {
		add("request_timeout must be positive, got %s", cfg.RequestTimeout)
	}
	if cfg.RetryDelay <= 0 {
		add("retry_delay must be positive, got %s", cfg.RetryDelay)
	}
	if cfg.RestartDelay <= 0 {
		add("restart_delay must be positive, got %s", cfg.RestartDelay)
	}
	if cfg.CriticalThreshold < 0 {
		add("critical_threshold must not be negative, got %d", cfg.CriticalThreshold)
	}
	if cfg.JitterMinMS < 0 || cfg.JitterMaxMS < cfg.JitterMinMS {
		add("jitter range [%d, %d] ms is invalid", cfg.JitterMinMS, cfg.JitterMaxMS)
	}
	if cfg.BaseURL == "" {
		add("base_url must not be empty")
	}
	if cfg.HealthConf.Timeout <= 0 {
		add("health timeout must be positive, got %s", cfg.HealthConf.Timeout)
	}
	if cfg.HealthConf.Concurrency < 1 {
		add("health concurrency must be at least 1, got %d", cfg.HealthConf.Concurrency)
	}
	if cfg.ReactionConf.Enabled {
		if cfg.ReactionConf.DelayMin < 0 || cfg.ReactionConf.DelayMax < cfg.ReactionConf.DelayMin {
			add("reaction delay range [%s, %s] is invalid", cfg.ReactionConf.DelayMin, cfg.ReactionConf.DelayMax)
		}
		if cfg.ReactionConf.DailyLimit < 0 {
			add("reaction daily_limit must not be negative, got %d", cfg.ReactionConf.DailyLimit)
		}
		if cfg.ReactionConf.SessionDir == "" {
			add("reaction session_dir must be set when reactions are enabled")
		}
		if len(cfg.ReactionConf.Emojis) == 0 {
			add("reaction emoji list must not be empty")
		}
	}
	if cfg.AppConf.BatchSize < 1 {
		add("batch_size must be at least 1, got %d", cfg.AppConf.BatchSize)
	}
	if cfg.AppConf.JoinTimeout <= 0 {
		add("join_timeout must be positive, got %s", cfg.AppConf.JoinTimeout)
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func applyEnvOverrides(cfg *types.Config) {
	overrideFromEnvInt(&cfg.MaxConcurrency, "BOTU_MAX_CONCURRENCY")
	overrideFromEnvInt(&cfg.CriticalThreshold, "BOTU_CRITICAL_THRESHOLD")
	overrideFromEnvString(&cfg.LogConf.Level, "BOTU_LOG_LEVEL")
	overrideFromEnvString(&cfg.BoosterConf.BaseURL, "BOTU_BASE_URL")
	overrideFromEnvString(&cfg.ReactionConf.SessionDir, "BOTU_SESSION_DIR")
	overrideFromEnvString(&cfg.ReactionConf.BotToken, "BOTU_BOT_TOKEN")
	overrideFromEnvString(&cfg.ReactionConf.SessionKey, "BOTU_SESSION_KEY")
	overrideFromEnvString(&cfg.ReactionConf.APIBase, "BOTU_API_BASE")
	overrideFromEnvBool(&cfg.ReactionConf.Enabled, "BOTU_REACTION_ENABLED")
}

func overrideFromEnvInt(target *int, envName string) {
	envValue := os.Getenv(envName)
	if envValue != "" {
		if intValue, err := strconv.Atoi(envValue); err == nil {
			*target = intValue
		}
	}
}

func overrideFromEnvString(target *string, envName string) {
	if envValue := os.Getenv(envName); envValue != "" {
		*target = envValue
	}
}

func overrideFromEnvBool(target *bool, envName string) {
	envValue := os.Getenv(envName)
	if envValue != "" {
		if boolValue, err := strconv.ParseBool(envValue); err == nil {
			*target = boolValue
		}
	}
}
