package model

import "fmt"

// Proxy protocols and source type declarations.
const (
	ProtocolHTTP   = "http"
	ProtocolSOCKS5 = "socks5"

	ProxyTypeHTTP   = "http"
	ProxyTypeSOCKS5 = "socks5"
	ProxyTypeMixed  = "mixed"
)

// Source kinds describe how a source's payload is fetched and decoded.
const (
	SourceKindRaw        = "raw_list"    // newline-delimited proxy lines
	SourceKindAPI        = "api"         // API endpoint returning proxy lines
	SourceKindHTMLTable  = "html_table"  // HTML table with ip/port columns
	SourceKindJSEmbedded = "js_embedded" // JSON array embedded in a script tag
)

// ProxySource describes one upstream proxy list. Immutable once built.
type ProxySource struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	Kind      string `json:"kind"`
	ProxyType string `json:"proxy_type"` // "http", "socks5" or "mixed"
}

// Proxy is the canonical record for a single upstream proxy.
// Identity is host:port only; protocol and credentials do not
// distinguish two records on the same endpoint.
type Proxy struct {
	Protocol string `json:"protocol"` // "http" or "socks5"
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`

	// Defaulted marks that Protocol came from the bare host:port
	// default rather than an explicit scheme. It feeds the hunter's
	// source-type coercion and is excluded from equality.
	Defaulted bool `json:"-"`
}

// Key returns the dedup identity, host:port.
func (p Proxy) Key() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// URL renders the connection URL. Credentials are included only when
// both username and password are present.
func (p Proxy) URL() string {
	if p.Username != "" && p.Password != "" {
		return fmt.Sprintf("%s://%s:%s@%s:%d", p.Protocol, p.Username, p.Password, p.Host, p.Port)
	}
	return fmt.Sprintf("%s://%s:%d", p.Protocol, p.Host, p.Port)
}

// HealthCheckResult records the outcome of one two-probe liveness check.
// ElapsedMS spans both probes regardless of outcome.
type HealthCheckResult struct {
	Proxy     Proxy  `json:"proxy"`
	Alive     bool   `json:"alive"`
	ElapsedMS int64  `json:"elapsed_ms"`
	BaseOK    bool   `json:"base_ok"`
	ChannelOK bool   `json:"channel_ok"`
	Err       string `json:"error,omitempty"`
}

// CycleReport summarizes one dispatch cycle. Built fresh per cycle and
// returned by value; never mutated afterwards.
type CycleReport struct {
	TotalProxies    int            `json:"total_proxies"`
	SuccessfulViews int            `json:"successful_views"`
	FailedViews     int            `json:"failed_views"`
	ViewsPerTarget  map[string]int `json:"views_per_target"`
	AvgResponseMS   float64        `json:"avg_response_ms"`
}
