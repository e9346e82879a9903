// Package cisco opens SSH sessions on Cisco network devices, fingerprints
// the operating system, and parses the operational state the audit collects.
package cisco

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	auditagent "github.com/netaudit/AuditAgent"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

// Options tune how device sessions are opened.
type Options struct {
	// Port is the SSH port, 22 when zero. Device identifiers that already
	// carry a port override it.
	Port int
	// LegacyAlgorithms additionally offers the CBC ciphers and SHA-1 key
	// exchanges older IOS images still require.
	LegacyAlgorithms bool
}

// Provider implements auditagent.SessionProvider over SSH.
type Provider struct {
	opts Options
}

// New creates a Provider with the given options.
func New(opts Options) *Provider {
	if opts.Port <= 0 {
		opts.Port = 22
	}
	return &Provider{opts: opts}
}

// NewDefault creates a Provider on the standard SSH port with legacy
// algorithm support enabled.
func NewDefault() *Provider {
	return New(Options{LegacyAlgorithms: true})
}

// Open dials the device, authenticates, and fingerprints the operating
// system. Connection failures come back as auditagent.SessionError values so
// the caller can map them onto report statuses.
func (p *Provider) Open(ctx context.Context, deviceID string, creds auditagent.Credentials, timeout time.Duration) (auditagent.Session, error) {
	if p == nil {
		return nil, errors.New("cisco provider is nil")
	}
	addr, err := dialAddr(deviceID, p.opts.Port)
	if err != nil {
		return nil, err
	}

	config := p.clientConfig(creds, timeout)
	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, classifyConnectError(err)
	}
	if timeout > 0 {
		// Bound the handshake too; NewClientConn does not honor
		// config.Timeout on its own.
		_ = conn.SetDeadline(time.Now().Add(timeout))
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, classifyConnectError(err)
	}
	_ = conn.SetDeadline(time.Time{})
	client := ssh.NewClient(sshConn, chans, reqs)

	sess := &session{client: client, timeout: timeout}
	if err := sess.fingerprint(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return sess, nil
}

// dialAddr normalizes a device identifier into a host:port dial address.
// Identifiers that already carry a port keep it; bare hosts get the
// configured port. A bracketed IPv6 literal without a port must lose its
// brackets before JoinHostPort re-adds them.
func dialAddr(deviceID string, port int) (string, error) {
	addr := strings.TrimSpace(deviceID)
	if addr == "" {
		return "", errors.New("cisco provider: empty device identifier")
	}
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr, nil
	}
	host := addr
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

func (p *Provider) clientConfig(creds auditagent.Credentials, timeout time.Duration) *ssh.ClientConfig {
	config := &ssh.ClientConfig{
		User: creds.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(creds.Password),
			ssh.KeyboardInteractive(keyboardAnswers(creds)),
		},
		// Device host keys are not pre-distributed in audit environments.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}
	if p.opts.LegacyAlgorithms {
		config.SetDefaults()
		config.KeyExchanges = append(config.KeyExchanges,
			"diffie-hellman-group-exchange-sha256",
			"diffie-hellman-group-exchange-sha1",
			"diffie-hellman-group14-sha1",
			"diffie-hellman-group1-sha1",
		)
		config.Ciphers = append(config.Ciphers,
			"aes128-cbc", "aes192-cbc", "aes256-cbc", "3des-cbc",
		)
	}
	return config
}

// keyboardAnswers replies to keyboard-interactive challenges. Prompts that
// mention enable mode get the enable secret; everything else gets the login
// password.
func keyboardAnswers(creds auditagent.Credentials) ssh.KeyboardInteractiveChallenge {
	return func(name, instruction string, questions []string, echos []bool) ([]string, error) {
		answers := make([]string, len(questions))
		for i, q := range questions {
			if creds.EnableSecret != "" && strings.Contains(strings.ToLower(q), "enable") {
				answers[i] = creds.EnableSecret
				continue
			}
			answers[i] = creds.Password
		}
		return answers, nil
	}
}

// classifyConnectError maps dial and handshake failures onto the failure
// kinds the report statuses are derived from.
func classifyConnectError(err error) error {
	if err == nil {
		return nil
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return &auditagent.SessionError{Kind: auditagent.FailureConnectTimeout, Err: err}
	}
	msg := err.Error()
	if strings.Contains(msg, "unable to authenticate") || strings.Contains(msg, "permission denied") {
		return &auditagent.SessionError{Kind: auditagent.FailureAuthentication, Err: err}
	}
	return &auditagent.SessionError{Kind: auditagent.FailureOther, Err: err}
}
