package session

import (
	"io"
	"strings"
	"testing"
	"time"
)

func TestStripANSI(t *testing.T) {
	raw := "\x1b[24;1Hshow vlans\x1b[2Ksw1#"
	cleaned := stripANSI(raw)
	if cleaned != "show vlanssw1#" {
		t.Fatalf("unexpected cleaned output: %q", cleaned)
	}
}

func TestStripANSI_Idempotent(t *testing.T) {
	samples := []string{
		"\x1b[24;1Hsw1# \x1b[?25h",
		"plain text with no escapes",
		"\x1b[1;24rmixed\x1b[2K content",
	}
	for _, s := range samples {
		once := stripANSI(s)
		twice := stripANSI(once)
		if once != twice {
			t.Fatalf("stripANSI not idempotent for %q: once=%q twice=%q", s, once, twice)
		}
	}
}

func TestBuildClientConfig_NoAuthMethod(t *testing.T) {
	_, err := buildClientConfig(Credentials{Username: "admin"}, time.Second)
	if err == nil {
		t.Fatal("expected error when neither password nor key is set")
	}
}

func TestBuildClientConfig_NoUsername(t *testing.T) {
	_, err := buildClientConfig(Credentials{Password: "x"}, time.Second)
	if err == nil {
		t.Fatal("expected error when username is empty")
	}
}

func TestBuildClientConfig_Password(t *testing.T) {
	cfg, err := buildClientConfig(Credentials{Username: "admin", Password: "secret"}, time.Second)
	if err != nil {
		t.Fatalf("buildClientConfig: %v", err)
	}
	if cfg.User != "admin" || len(cfg.Auth) != 1 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

// newDriverOverPipe wires a Driver's pump to an in-process pipe so Send's
// marker/quiescence logic can be exercised without a real SSH server.
func newDriverOverPipe(t *testing.T) (*Driver, *io.PipeWriter) {
	t.Helper()
	pr, pw := io.Pipe()

	d := New("sw1", 64)
	d.stdin = discardWriteCloser{}
	d.done = make(chan struct{})
	go d.pump(pr)

	return d, pw
}

type discardWriteCloser struct{}

func (discardWriteCloser) Write(p []byte) (int, error) { return len(p), nil }
func (discardWriteCloser) Close() error                { return nil }

func TestDriver_SendWaitsForPromptThenQuiescence(t *testing.T) {
	d, pw := newDriverOverPipe(t)

	go func() {
		io.WriteString(pw, "show vlans\r\n")
		time.Sleep(50 * time.Millisecond)
		io.WriteString(pw, "1      default    Port-based  Yes\r\n")
		time.Sleep(50 * time.Millisecond)
		io.WriteString(pw, "sw1# ")
		pw.Close()
	}()

	out := d.Send("show vlans\n", "# ")
	if out == "" {
		t.Fatal("expected non-empty captured output")
	}
	if !strings.Contains(out, "default") {
		t.Fatalf("expected captured output to include VLAN line, got %q", out)
	}
}
