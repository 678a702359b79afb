// Package session implements the per-host interactive SSH session driver:
// one shell channel with combined stderr, a non-blocking output drain, and
// a send loop that waits for a vendor-supplied prompt marker. It is blind
// to command semantics — it knows only the marker and the byte limit.
package session

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// Credentials is the subset of an auth.Params the driver needs to open a
// connection. Kept separate from package auth so the driver has no
// knowledge of how credentials were resolved.
type Credentials struct {
	Username string
	Password string
	KeyPEM   []byte
}

// Failure classifies why Open failed, matching the three outcomes §4.2
// names explicitly.
type Failure int

const (
	FailureNone Failure = iota
	FailureAuth
	FailureUnreachable
	FailureTimeout
)

// OpenError wraps a connection failure with its Failure classification so
// callers (the host explorer) can map it onto a terminal Device status.
type OpenError struct {
	Kind Failure
	Err  error
}

func (e *OpenError) Error() string { return e.Err.Error() }
func (e *OpenError) Unwrap() error { return e.Err }

const (
	defaultConnectTimeout = 10 * time.Second
	defaultMaxBytes       = 1024
	drainInterval         = 100 * time.Millisecond
	quiescentEmptyReads   = 3
)

// Driver owns one SSH shell channel for one host. It is not safe for
// concurrent use by more than one goroutine — each crawl worker owns its
// own Driver exclusively, matching the non-concurrent-per-session rule
// in §5.
type Driver struct {
	Hostname string
	MaxBytes int

	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser

	mu  sync.Mutex
	buf bytes.Buffer

	done chan struct{}
}

// New returns a Driver for hostname with the given per-read byte limit
// (0 selects the default of 1024, matching the original's
// MaximumBytesToReceive default).
func New(hostname string, maxBytes int) *Driver {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Driver{Hostname: hostname, MaxBytes: maxBytes}
}

// Open establishes the shell channel and briefly sleeps to let the login
// banner arrive, mirroring the original's one-second settle delay.
// HostKeyCallback accepts any key on first contact (auto-add policy per
// §6 — host-key pinning is explicitly out of scope for this tool).
func (d *Driver) Open(hostname string, port int, timeout time.Duration, creds Credentials) error {
	if port == 0 {
		port = 22
	}
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	config, err := buildClientConfig(creds, timeout)
	if err != nil {
		return &OpenError{Kind: FailureAuth, Err: err}
	}

	addr := net.JoinHostPort(hostname, fmt.Sprintf("%d", port))
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		if isTimeoutErr(err) {
			return &OpenError{Kind: FailureTimeout, Err: err}
		}
		return &OpenError{Kind: FailureUnreachable, Err: err}
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		if isAuthError(err) {
			return &OpenError{Kind: FailureAuth, Err: err}
		}
		return &OpenError{Kind: FailureUnreachable, Err: err}
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	session, err := client.NewSession()
	if err != nil {
		client.Close()
		return &OpenError{Kind: FailureUnreachable, Err: fmt.Errorf("new session: %w", err)}
	}

	if err := session.RequestPty("vt100", 200, 400, ssh.TerminalModes{}); err != nil {
		session.Close()
		client.Close()
		return &OpenError{Kind: FailureUnreachable, Err: fmt.Errorf("request pty: %w", err)}
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		client.Close()
		return &OpenError{Kind: FailureUnreachable, Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	combined, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		client.Close()
		return &OpenError{Kind: FailureUnreachable, Err: fmt.Errorf("stdout pipe: %w", err)}
	}
	// session.Stdout is nil once StdoutPipe is in use, so this leaves Stderr
	// nil and the channel's separate stderr stream is discarded; with the PTY
	// requested above, the remote shell's stderr arrives on the stdout stream.
	session.Stderr = session.Stdout

	if err := session.Shell(); err != nil {
		session.Close()
		client.Close()
		return &OpenError{Kind: FailureUnreachable, Err: fmt.Errorf("invoke shell: %w", err)}
	}

	d.client = client
	d.session = session
	d.stdin = stdin
	d.done = make(chan struct{})
	go d.pump(combined)

	time.Sleep(1 * time.Second)
	log.Printf("[session] %s: SSH connection established", hostname)
	return nil
}

// pump continuously copies raw shell output into the driver's buffer so
// that ReadOutput can drain it without blocking, emulating paramiko's
// recv_ready()/recv() pair over Go's blocking io.Reader.
func (d *Driver) pump(r io.Reader) {
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			d.mu.Lock()
			d.buf.Write(chunk[:n])
			d.mu.Unlock()
		}
		if err != nil {
			close(d.done)
			return
		}
	}
}

// ReadOutput is a non-blocking drain: if data has arrived, up to MaxBytes
// of it is removed from the buffer, ANSI-stripped, and returned; otherwise
// the empty string is returned immediately.
func (d *Driver) ReadOutput() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.buf.Len() == 0 {
		return ""
	}
	n := d.buf.Len()
	if n > d.MaxBytes {
		n = d.MaxBytes
	}
	raw := make([]byte, n)
	d.buf.Read(raw)
	return stripANSI(string(raw))
}

// Send writes command verbatim (the caller supplies the trailing
// newline) and drains output until promptMarker has appeared and three
// consecutive empty reads follow — the two-condition stop from §4.2 and
// §9: the marker guards against premature return from banner noise, the
// empty-read count guards against a marker that never arrives.
func (d *Driver) Send(command, promptMarker string) string {
	if command == "" {
		return ""
	}

	if _, err := io.WriteString(d.stdin, command); err != nil {
		log.Printf("[session] %s: send %q failed: %v", d.Hostname, command, err)
		return ""
	}

	var received strings.Builder
	markedAt := 0
	emptyReads := 0

	for {
		chunk := d.ReadOutput()
		received.WriteString(chunk)

		if chunk == "" {
			emptyReads++
		} else {
			emptyReads = 0
		}

		full := received.String()
		if strings.Contains(full[markedAt:], promptMarker) {
			markedAt = len(full)
		}

		if markedAt > 0 && emptyReads >= quiescentEmptyReads {
			break
		}

		select {
		case <-d.done:
			if d.ReadOutput() == "" {
				return received.String()
			}
		default:
		}

		time.Sleep(drainInterval)
	}

	return received.String()
}

// Close is best-effort: failures are logged, never propagated, matching
// the original's _close_ssh_connection.
func (d *Driver) Close() {
	if d.session != nil {
		if err := d.session.Close(); err != nil && err != io.EOF {
			log.Printf("[session] %s: session close: %v", d.Hostname, err)
		}
	}
	if d.client != nil {
		if err := d.client.Close(); err != nil {
			log.Printf("[session] %s: client close: %v", d.Hostname, err)
		}
	}
	log.Printf("[session] %s: connection closed", d.Hostname)
}

func buildClientConfig(creds Credentials, timeout time.Duration) (*ssh.ClientConfig, error) {
	if creds.Username == "" {
		return nil, fmt.Errorf("no username supplied")
	}

	var methods []ssh.AuthMethod
	if len(creds.KeyPEM) > 0 {
		signer, err := ssh.ParsePrivateKey(creds.KeyPEM)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if creds.Password != "" {
		methods = append(methods, ssh.Password(creds.Password))
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("no auth method for %s (need key or password)", creds.Username)
	}

	return &ssh.ClientConfig{
		User: creds.Username,
		Auth: methods,
		// Topology discovery trusts on first contact; host-key pinning is
		// orthogonal to this tool's purpose (§6).
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}, nil
}

func isAuthError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "permission denied") ||
		strings.Contains(msg, "no supported methods remain")
}

func isTimeoutErr(err error) bool {
	type timeout interface{ Timeout() bool }
	te, ok := err.(timeout)
	return ok && te.Timeout()
}
