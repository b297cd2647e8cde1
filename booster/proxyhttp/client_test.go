package proxyhttp

import (
	"net/http"
	"testing"
	"time"

	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/model"
)

func TestNewClientHTTPProxy(t *testing.T) {
	p := model.Proxy{Protocol: "http", Host: "1.2.3.4", Port: 8080, Username: "u", Password: "pw"}
	client, err := NewClient(p, 5*time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if client.Timeout != 5*time.Second {
		t.Errorf("client timeout = %s, want 5s", client.Timeout)
	}

	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("transport type = %T, want *http.Transport", client.Transport)
	}
	if transport.Proxy == nil {
		t.Fatal("http proxy transport must set Proxy")
	}
	proxyURL, err := transport.Proxy(&http.Request{})
	if err != nil {
		t.Fatalf("Proxy func: %v", err)
	}
	if proxyURL.Host != "1.2.3.4:8080" {
		t.Errorf("proxy host = %q, want 1.2.3.4:8080", proxyURL.Host)
	}
	if proxyURL.User == nil || proxyURL.User.Username() != "u" {
		t.Error("proxy url must carry the configured credentials")
	}
}

func TestNewClientSOCKS5Proxy(t *testing.T) {
	p := model.Proxy{Protocol: "socks5", Host: "1.2.3.4", Port: 1080}
	client, err := NewClient(p, 3*time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("transport type = %T, want *http.Transport", client.Transport)
	}
	if transport.Proxy != nil {
		t.Error("socks5 transport must not set an http Proxy")
	}
	if transport.DialContext == nil {
		t.Error("socks5 transport must dial through the SOCKS5 dialer")
	}
	if transport.DialTLSContext == nil {
		t.Error("socks5 transport must install the TLS dialer")
	}
}

func TestNewClientUnsupportedProtocol(t *testing.T) {
	if _, err := NewClient(model.Proxy{Protocol: "ftp", Host: "h", Port: 1}, time.Second); err == nil {
		t.Fatal("NewClient must reject unknown protocols")
	}
}
