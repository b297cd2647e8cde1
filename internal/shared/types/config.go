package types

import "time"

// SourceSpec describes one configured proxy source, parsed from the
// [sources] section ("name = kind|proxy_type|url"). When any are
// configured they replace the built-in defaults.
type SourceSpec struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`       // raw_list, api, html_table, js_embedded
	ProxyType string `json:"proxy_type"` // http, socks5, mixed
	URL       string `json:"url"`
}

// BoosterConf drives the dispatch engine and refill loop.
type BoosterConf struct {
	MaxConcurrency    int           `ini:"max_concurrency"`
	RequestTimeout    time.Duration `ini:"request_timeout"`
	RetryDelay        time.Duration `ini:"retry_delay"`
	RestartDelay      time.Duration `ini:"restart_delay"`
	CriticalThreshold int           `ini:"critical_threshold"`
	JitterMinMS       int           `ini:"jitter_min_ms"`
	JitterMaxMS       int           `ini:"jitter_max_ms"`
	BaseURL           string        `ini:"base_url"`
	Targets           []string      `ini:"targets" delim:","`
}

// HealthConf bounds the proxy health checker.
type HealthConf struct {
	Timeout     time.Duration `ini:"timeout"`
	Concurrency int           `ini:"concurrency"`
	Channel     string        `ini:"channel"`
}

// ReactionConf gates and tunes the optional reaction engine.
type ReactionConf struct {
	Enabled         bool          `ini:"enabled"`
	Emojis          []string      `ini:"emojis" delim:","`
	DelayMin        time.Duration `ini:"delay_min"`
	DelayMax        time.Duration `ini:"delay_max"`
	SessionDir      string        `ini:"session_dir"`
	BotToken        string        `ini:"bot_token"`
	DailyLimit      int           `ini:"daily_limit"`
	DefaultCooldown time.Duration `ini:"default_cooldown"`
	SessionKey      string        `ini:"session_key"`
	APIBase         string        `ini:"api_base"`
}

// AppConf configures the outer campaign glue.
type AppConf struct {
	BatchSize   int           `ini:"batch_size"`
	JoinTimeout time.Duration `ini:"join_timeout"`
	ReadStdin   bool          `ini:"read_stdin"`
}

// LogConf contains logging specific configuration.
type LogConf struct {
	Level string `ini:"level"`
}

// Config is the unified configuration structure mapped from the ini
// file. Sources is filled separately from the [sources] section.
type Config struct {
	BoosterConf  `ini:"booster"`
	HealthConf   `ini:"health"`
	ReactionConf `ini:"reaction"`
	AppConf      `ini:"app"`
	LogConf      `ini:"log"`

	Sources []SourceSpec `ini:"-"`
}
