package reaction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/model"
	"github.com/girdapeso-cyber/TELEGRAM-BOTU/booster/session"
)

type reactionCall struct {
	channel string
	msgID   int
	emoji   string
}

type fakeClient struct {
	mu       sync.Mutex
	calls    []reactionCall
	proxyURL string
	err      error
}

func (f *fakeClient) Ping(context.Context) error { return nil }

func (f *fakeClient) SetReaction(_ context.Context, channel string, messageID int, emoji string) error {
	f.mu.Lock()
	f.calls = append(f.calls, reactionCall{channel, messageID, emoji})
	f.mu.Unlock()
	return f.err
}

func (f *fakeClient) SetProxy(proxyURL string) {
	f.mu.Lock()
	f.proxyURL = proxyURL
	f.mu.Unlock()
}

func (f *fakeClient) Close() {}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestEngine(client *fakeClient) *Engine {
	m := session.NewManager(0)
	m.Add("s1", client, true)
	e := New(m, []string{"👍", "🔥", "❤️"}, 0, 0, 5*time.Minute)
	e.sleep = func(context.Context, time.Duration) bool { return true }
	e.intn = func(int) int { return 0 }
	return e
}

func TestReactSuccess(t *testing.T) {
	client := &fakeClient{}
	e := newTestEngine(client)

	if !e.React(context.Background(), "https://t.me/durov/42", model.Proxy{}) {
		t.Fatal("React = false, want true")
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.calls) != 1 {
		t.Fatalf("SetReaction called %d times, want 1", len(client.calls))
	}
	got := client.calls[0]
	if got.channel != "durov" || got.msgID != 42 || got.emoji != "👍" {
		t.Fatalf("call = %+v", got)
	}
	if client.proxyURL != "" {
		t.Fatalf("proxy pinned to %q for a zero via", client.proxyURL)
	}
}

func TestReactPinsProvenProxy(t *testing.T) {
	client := &fakeClient{}
	e := newTestEngine(client)

	p1 := model.Proxy{Protocol: model.ProtocolHTTP, Host: "10.0.0.1", Port: 8080}
	if !e.React(context.Background(), "https://t.me/durov/42", p1) {
		t.Fatal("React = false, want true")
	}

	// A later success through a different proxy must not re-pin.
	p2 := model.Proxy{Protocol: model.ProtocolHTTP, Host: "10.0.0.2", Port: 8080}
	if !e.React(context.Background(), "https://t.me/durov/43", p2) {
		t.Fatal("second React = false, want true")
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if client.proxyURL != p1.URL() {
		t.Fatalf("session proxy = %q, want %q", client.proxyURL, p1.URL())
	}
}

func TestReactNoSessionDeclinesSilently(t *testing.T) {
	e := New(session.NewManager(0), []string{"👍"}, 0, 0, time.Minute)
	slept := false
	e.sleep = func(context.Context, time.Duration) bool { slept = true; return true }

	if e.React(context.Background(), "https://t.me/durov/42", model.Proxy{}) {
		t.Fatal("React = true with no sessions")
	}
	if slept {
		t.Error("engine slept before discovering the empty pool")
	}
	if e.Available() {
		t.Error("Available = true with no sessions")
	}
}

func TestReactFloodWaitParksSession(t *testing.T) {
	client := &fakeClient{err: &session.FloodWaitError{RetryAfter: 30 * time.Minute}}
	e := newTestEngine(client)

	if e.React(context.Background(), "https://t.me/durov/42", model.Proxy{}) {
		t.Fatal("React = true despite flood wait")
	}
	if e.Available() {
		t.Error("session still usable after flood wait cooldown")
	}
}

func TestReactGenericErrorDefaultCooldown(t *testing.T) {
	client := &fakeClient{err: errors.New("chat not found")}
	e := newTestEngine(client)

	if e.React(context.Background(), "https://t.me/durov/42", model.Proxy{}) {
		t.Fatal("React = true despite API error")
	}
	if e.Available() {
		t.Error("session still usable after default cooldown")
	}
}

func TestReactCancelledDuringDelay(t *testing.T) {
	client := &fakeClient{}
	e := newTestEngine(client)
	e.sleep = func(context.Context, time.Duration) bool { return false }

	if e.React(context.Background(), "https://t.me/durov/42", model.Proxy{}) {
		t.Fatal("React = true after interrupted delay")
	}
	if client.callCount() != 0 {
		t.Errorf("SetReaction called %d times after cancellation", client.callCount())
	}
}

func TestReactBadTarget(t *testing.T) {
	client := &fakeClient{}
	e := newTestEngine(client)

	for _, target := range []string{
		"https://t.me/durov",
		"https://t.me/durov/latest",
		"https://t.me/",
	} {
		if e.React(context.Background(), target, model.Proxy{}) {
			t.Errorf("React(%q) = true, want false", target)
		}
	}
	if client.callCount() != 0 {
		t.Errorf("SetReaction called %d times for bad targets", client.callCount())
	}
}

func TestReactEmojiSelection(t *testing.T) {
	client := &fakeClient{}
	e := newTestEngine(client)
	e.intn = func(int) int { return 2 }

	if !e.React(context.Background(), "https://t.me/durov/42", model.Proxy{}) {
		t.Fatal("React = false")
	}
	client.mu.Lock()
	defer client.mu.Unlock()
	if client.calls[0].emoji != "❤️" {
		t.Fatalf("emoji = %q, want ❤️", client.calls[0].emoji)
	}
}

func TestParseTarget(t *testing.T) {
	cases := []struct {
		target  string
		channel string
		msgID   int
		wantErr bool
	}{
		{"https://t.me/durov/42", "durov", 42, false},
		{"https://t.me/s/durov/42", "durov", 42, false},
		{"https://t.me/durov/42?embed=1", "durov", 42, false},
		{"http://upstream.test/somechan/987", "somechan", 987, false},
		{"https://t.me/durov", "", 0, true},
		{"https://t.me/durov/abc", "", 0, true},
		{"https://t.me/", "", 0, true},
	}
	for _, tc := range cases {
		channel, msgID, err := parseTarget(tc.target)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseTarget(%q) succeeded, want error", tc.target)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseTarget(%q): %v", tc.target, err)
			continue
		}
		if channel != tc.channel || msgID != tc.msgID {
			t.Errorf("parseTarget(%q) = (%s, %d), want (%s, %d)", tc.target, channel, msgID, tc.channel, tc.msgID)
		}
	}
}

func TestNextDelayBounds(t *testing.T) {
	m := session.NewManager(0)
	e := New(m, []string{"👍"}, 100*time.Millisecond, 300*time.Millisecond, time.Minute)

	for i := 0; i < 500; i++ {
		d := e.nextDelay()
		if d < 100*time.Millisecond || d > 300*time.Millisecond {
			t.Fatalf("delay %v outside [100ms, 300ms]", d)
		}
	}
}
