package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kballard/go-shellquote"
	"golang.org/x/crypto/ssh"

	"github.com/lpouillo/google-dc-g5k/internal/remote"
	"github.com/lpouillo/google-dc-g5k/internal/util/retry"
)

const (
	defaultPort        = 22
	defaultDialTimeout = 10 * time.Second
	defaultMaxRetries  = 5
	defaultRetryDelay  = 2 * time.Second
	defaultMaxDelay    = 10 * time.Second
)

// Config holds SSH gateway configuration.
type Config struct {
	// JumpHost is the bastion every connection goes through. When empty,
	// target hosts are dialled directly.
	JumpHost string
	Port     int

	// FrontendUser logs into the jump host and into site frontends.
	FrontendUser string
	// NodeUser logs into deployed nodes.
	NodeUser string

	PrivateKey []byte

	// DialTimeout is the timeout for establishing the TCP connection.
	// If zero, defaultDialTimeout is used.
	DialTimeout time.Duration

	// MaxRetries is the maximum number of connection retry attempts.
	// If zero, defaultMaxRetries is used.
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts.
	// If zero, defaultRetryDelay is used.
	RetryDelay time.Duration

	// CommandTimeout bounds a single Run or Put. Zero means no bound.
	CommandTimeout time.Duration

	// HostKeyCallback handles host key verification.
	// If nil, ssh.InsecureIgnoreHostKey() is used: deployed nodes get fresh
	// host keys on every deployment.
	HostKeyCallback ssh.HostKeyCallback
}

// Gateway executes scripts on Grid'5000 hosts.
// The jump host connection is opened on first use and shared by all calls;
// each call to a target host uses its own connection.
type Gateway struct {
	config *Config
	signer ssh.Signer

	mu   sync.Mutex
	jump *ssh.Client
}

var _ remote.Gateway = (*Gateway)(nil)

// NewGateway creates a gateway and validates the private key.
func NewGateway(cfg *Config) (*Gateway, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.FrontendUser == "" && cfg.JumpHost != "" {
		return nil, fmt.Errorf("config frontend user cannot be empty")
	}
	if cfg.NodeUser == "" {
		return nil, fmt.Errorf("config node user cannot be empty")
	}
	if len(cfg.PrivateKey) == 0 {
		return nil, fmt.Errorf("config private key cannot be empty")
	}

	// Copy config to avoid mutating caller's struct
	configCopy := *cfg

	if configCopy.Port == 0 {
		configCopy.Port = defaultPort
	}
	if configCopy.DialTimeout == 0 {
		configCopy.DialTimeout = defaultDialTimeout
	}
	if configCopy.MaxRetries == 0 {
		configCopy.MaxRetries = defaultMaxRetries
	}
	if configCopy.RetryDelay == 0 {
		configCopy.RetryDelay = defaultRetryDelay
	}
	if configCopy.HostKeyCallback == nil {
		configCopy.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // nodes are redeployed every run
	}

	signer, err := ssh.ParsePrivateKey(configCopy.PrivateKey)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("failed to parse private key: passphrase-protected keys are not supported: %w", err)
		}
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &Gateway{
		config: &configCopy,
		signer: signer,
	}, nil
}

// NewGatewayFromKeyFile reads the private key at keyPath and creates a gateway.
func NewGatewayFromKeyFile(cfg Config, keyPath string) (*Gateway, error) {
	// #nosec G304
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	cfg.PrivateKey = key
	return NewGateway(&cfg)
}

// Run executes script on host and reports the outcome. Connection
// establishment is retried; the script itself is run exactly once.
func (g *Gateway) Run(ctx context.Context, host string, script remote.Script) remote.Result {
	res := remote.Result{Host: host}

	ctx, cancel := g.commandContext(ctx)
	defer cancel()

	client, err := g.connect(ctx, host)
	if err != nil {
		res.Err = err
		return res
	}
	defer func() { _ = client.Close() }()

	out, err := g.runSession(ctx, client, host, script.String(), nil)
	res.Output = out
	if err != nil {
		res.Err = err
		return res
	}
	res.Succeeded = true
	return res
}

// Put streams localPath to remoteDir on host, keeping its base name.
func (g *Gateway) Put(ctx context.Context, host, localPath, remoteDir string) error {
	// #nosec G304
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", localPath, err)
	}

	ctx, cancel := g.commandContext(ctx)
	defer cancel()

	client, err := g.connect(ctx, host)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	target := path.Join(remoteDir, filepath.Base(localPath))
	if _, err := g.runSession(ctx, client, host, "cat > "+shellquote.Join(target), data); err != nil {
		return fmt.Errorf("upload of %s to %s:%s failed: %w", localPath, host, target, err)
	}
	return nil
}

// DialContext opens a TCP connection to addr through the jump host.
// Without a jump host it dials directly.
func (g *Gateway) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	if g.config.JumpHost == "" {
		var d net.Dialer
		return d.DialContext(ctx, network, addr)
	}
	jump, err := g.jumpClient(ctx)
	if err != nil {
		return nil, err
	}
	return jump.DialContext(ctx, network, addr)
}

// Close releases the shared jump host connection.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.jump == nil {
		return nil
	}
	err := g.jump.Close()
	g.jump = nil
	return err
}

// userFor picks the login for host: site frontends are short names.
func (g *Gateway) userFor(host string) string {
	if strings.Contains(host, ".") {
		return g.config.NodeUser
	}
	return g.config.FrontendUser
}

func (g *Gateway) clientConfig(user string) *ssh.ClientConfig {
	return &ssh.ClientConfig{
		User: user,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(g.signer),
		},
		HostKeyCallback: g.config.HostKeyCallback,
		Timeout:         g.config.DialTimeout,
	}
}

func (g *Gateway) commandContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.config.CommandTimeout > 0 {
		return context.WithTimeout(ctx, g.config.CommandTimeout)
	}
	return context.WithCancel(ctx)
}

// connect establishes an SSH connection to host with retry logic.
func (g *Gateway) connect(ctx context.Context, host string) (*ssh.Client, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(g.config.Port))
	client, err := g.handshake(ctx, addr, g.userFor(host), g.dialTarget)
	if err != nil {
		return nil, fmt.Errorf("failed to establish SSH connection to %s: %w", addr, err)
	}
	return client, nil
}

// handshake dials addr and authenticates as user, retrying transient
// failures. Authentication failures are not retried.
func (g *Gateway) handshake(ctx context.Context, addr, user string, dial func(context.Context, string) (net.Conn, error)) (*ssh.Client, error) {
	config := g.clientConfig(user)

	var client *ssh.Client
	err := g.backoff().Do(ctx, func(ctx context.Context) error {
		conn, err := dial(ctx, addr)
		if err != nil {
			return err
		}
		c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
		if err != nil {
			_ = conn.Close()
			if isAuthError(err) {
				return retry.Fatal(err)
			}
			return err
		}
		client = ssh.NewClient(c, chans, reqs)
		return nil
	})
	return client, err
}

func (g *Gateway) backoff() retry.Backoff {
	return retry.Backoff{
		Retries: g.config.MaxRetries,
		Initial: g.config.RetryDelay,
		Max:     defaultMaxDelay,
		Factor:  2,
	}
}

func (g *Gateway) dialDirect(ctx context.Context, addr string) (net.Conn, error) {
	d := net.Dialer{Timeout: g.config.DialTimeout}
	return d.DialContext(ctx, "tcp", addr)
}

func (g *Gateway) dialTarget(ctx context.Context, addr string) (net.Conn, error) {
	if g.config.JumpHost == "" {
		return g.dialDirect(ctx, addr)
	}
	jump, err := g.jumpClient(ctx)
	if err != nil {
		return nil, err
	}
	conn, err := jump.DialContext(ctx, "tcp", addr)
	if err != nil {
		// The shared connection may have died; force a reconnect next time.
		g.resetJump(jump)
		return nil, err
	}
	return conn, nil
}

// jumpClient returns the cached jump host connection, opening it if needed.
func (g *Gateway) jumpClient(ctx context.Context) (*ssh.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.jump != nil {
		return g.jump, nil
	}

	addr := net.JoinHostPort(g.config.JumpHost, strconv.Itoa(g.config.Port))
	client, err := g.handshake(ctx, addr, g.config.FrontendUser, g.dialDirect)
	if err != nil {
		return nil, fmt.Errorf("failed to reach jump host %s: %w", addr, err)
	}
	g.jump = client
	return client, nil
}

func (g *Gateway) resetJump(stale *ssh.Client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.jump == stale {
		_ = g.jump.Close()
		g.jump = nil
	}
}

// runSession runs command in a new session, feeding stdin when given.
// The session is torn down when ctx is done.
func (g *Gateway) runSession(ctx context.Context, client *ssh.Client, host, command string, stdin []byte) (string, error) {
	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to create SSH session on %s: %w", host, err)
	}
	defer func() { _ = session.Close() }()

	// Stdout and stderr are copied by separate goroutines.
	var out lockedBuffer
	session.Stdout = &out
	session.Stderr = &out
	if stdin != nil {
		session.Stdin = bytes.NewReader(stdin)
	}

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case err = <-done:
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		<-done
		return out.String(), fmt.Errorf("command on %s aborted: %w", host, ctx.Err())
	}

	if err != nil {
		return out.String(), fmt.Errorf("command failed on %s: %w", host, err)
	}
	return out.String(), nil
}

// lockedBuffer interleaves writes from several goroutines into one buffer.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// isAuthError reports a rejected key. x/crypto/ssh returns the handshake
// failure as a plain error, so its text is the only signal.
func isAuthError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "unable to authenticate")
}

// ExitStatus extracts the remote exit code from a Result error, or -1.
func ExitStatus(err error) int {
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus()
	}
	return -1
}
