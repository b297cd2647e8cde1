// Package parser normalizes heterogeneous proxy list lines into the
// canonical Proxy record. It accepts two grammars:
//
//	scheme://[user:pass@]host:port   (scheme: http, https, socks5)
//	host:port[:user:pass]            (protocol defaults to http)
//
// Anything else is rejected, never panics.
package parser

import (
	"bufio"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/model"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/internal/shared/logger"
)

// Parse converts a single proxy line into a canonical record.
func Parse(line string) (model.Proxy, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return model.Proxy{}, fmt.Errorf("empty proxy line")
	}
	if strings.Contains(line, "://") {
		return parseURL(line)
	}
	return parsePlain(line)
}

func parseURL(line string) (model.Proxy, error) {
	u, err := url.Parse(line)
	if err != nil {
		return model.Proxy{}, fmt.Errorf("malformed proxy url: %w", err)
	}

	protocol := strings.ToLower(u.Scheme)
	switch protocol {
	case "http", "socks5":
	case "https":
		// TLS to the proxy itself is not distinguished; treated as http.
		protocol = model.ProtocolHTTP
	default:
		return model.Proxy{}, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return model.Proxy{}, fmt.Errorf("proxy url %q has no host", line)
	}
	port, err := parsePort(u.Port())
	if err != nil {
		return model.Proxy{}, err
	}

	p := model.Proxy{Protocol: protocol, Host: host, Port: port}
	if u.User != nil {
		p.Username = u.User.Username()
		p.Password, _ = u.User.Password()
	}
	return p, nil
}

func parsePlain(line string) (model.Proxy, error) {
	parts := strings.Split(line, ":")
	switch len(parts) {
	case 2: // host:port
		port, err := parsePort(parts[1])
		if err != nil {
			return model.Proxy{}, err
		}
		if parts[0] == "" {
			return model.Proxy{}, fmt.Errorf("proxy line %q has no host", line)
		}
		return model.Proxy{
			Protocol:  model.ProtocolHTTP,
			Host:      parts[0],
			Port:      port,
			Defaulted: true,
		}, nil
	case 4: // host:port:user:pass
		port, err := parsePort(parts[1])
		if err != nil {
			return model.Proxy{}, err
		}
		if parts[0] == "" {
			return model.Proxy{}, fmt.Errorf("proxy line %q has no host", line)
		}
		return model.Proxy{
			Protocol:  model.ProtocolHTTP,
			Host:      parts[0],
			Port:      port,
			Username:  parts[2],
			Password:  parts[3],
			Defaulted: true,
		}, nil
	default:
		return model.Proxy{}, fmt.Errorf("unrecognized proxy line format: %q", line)
	}
}

func parsePort(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("missing proxy port")
	}
	port, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("non-numeric proxy port %q", s)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("proxy port %d out of range", port)
	}
	return port, nil
}

// ParseMany scans multi-line proxy text and returns the valid records,
// in input order. Invalid lines are dropped, not errors.
func ParseMany(text string) []model.Proxy {
	l := logger.WithComponent("parser")
	var proxies []model.Proxy

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		p, err := Parse(line)
		if err != nil {
			l.Debug().Err(err).Str("line", line).Msg("Skipping invalid proxy line")
			continue
		}
		proxies = append(proxies, p)
	}
	return proxies
}
