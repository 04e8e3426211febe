package statsd

import (
	"net"
	"strings"
	"testing"
	"time"
)

func TestMetricName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix, name, want string
	}{
		{"", " session/refresh ", "session_refresh"},
		{"hustlehub", "guard..decision", "hustlehub.guard.decision"},
		{"hustlehub", "  ", ""},
		{"", ".auth.mutation.", "auth.mutation"},
	}

	for _, tt := range tests {
		if got := metricName(tt.prefix, tt.name); got != tt.want {
			t.Fatalf("metricName(%q, %q) = %q, want %q", tt.prefix, tt.name, got, tt.want)
		}
	}
}

func TestRenderTags(t *testing.T) {
	t.Parallel()

	global := map[string]string{"env": "prod", " app ": " cli "}
	local := map[string]string{"result": " applied ", "": "ignored", "env": "dev"}

	got := renderTags(global, local)
	want := "|#app:cli,env:dev,result:applied"
	if got != want {
		t.Fatalf("renderTags mismatch\n got: %q\nwant: %q", got, want)
	}

	if got := renderTags(nil, nil); got != "" {
		t.Fatalf("renderTags(nil, nil) = %q, want empty", got)
	}
}

func TestClientLine(t *testing.T) {
	t.Parallel()

	c := &Client{prefix: "hustlehub", global: map[string]string{"env": "test"}}

	if got := c.line("session.refresh", "1", "c", map[string]string{"result": "stale"}); got != "hustlehub.session.refresh:1|c|#env:test,result:stale" {
		t.Fatalf("unexpected line %q", got)
	}
	if got := c.line("", "1", "c", nil); got != "" {
		t.Fatalf("blank name should produce no line, got %q", got)
	}
}

func TestClientWritesToConnection(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	c := &Client{prefix: "hh", conn: clientConn}
	defer c.Close()

	done := make(chan string, 1)
	go func() {
		buf := make([]byte, 256)
		n, _ := peerConn.Read(buf)
		done <- string(buf[:n])
	}()

	c.Timing("guard.duration", 1500*time.Microsecond, nil)

	select {
	case got := <-done:
		if got != "hh.guard.duration:1.5|ms" {
			t.Fatalf("unexpected payload %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for metric write")
	}
}

func TestClientEnabledAndClose(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	client := &Client{conn: clientConn}
	if !client.Enabled() {
		t.Fatal("expected client.Enabled to report true with active connection")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if client.Enabled() {
		t.Fatal("expected client.Enabled to report false after Close")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close (second call) error: %v", err)
	}

	var nilClient *Client
	if nilClient.Enabled() {
		t.Fatal("nil client should report disabled")
	}
	nilClient.Count("x", 1, nil)
	if err := nilClient.Close(); err != nil {
		t.Fatalf("nil client Close error: %v", err)
	}
}

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{Enabled: true, Address: "   "})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if client.Enabled() {
		t.Fatal("expected client to stay disabled when address is empty")
	}
	client.Count("session.refresh", 1, nil)
}

func TestNewClientDialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{Enabled: true, Address: "bad address"})
	if err == nil {
		t.Fatal("expected NewClient to error for invalid address")
	}
	if !strings.Contains(err.Error(), "statsd dial") {
		t.Fatalf("unexpected error: %v", err)
	}
}
