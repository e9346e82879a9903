package cisco

import (
	"context"
	"time"

	auditagent "github.com/netaudit/AuditAgent"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ssh"
)

// versionProbe is accepted by every Cisco OS the audit knows about, which
// makes it usable as a fingerprint command before the family is known.
const versionProbe = "show version"

// session is one authenticated connection to a device. The fingerprint
// output is cached so the cataloged version command does not run twice.
type session struct {
	client     *ssh.Client
	timeout    time.Duration
	family     auditagent.OSFamily
	versionCmd string
	versionOut string
}

// OSFamily reports the fingerprinted operating system.
func (s *session) OSFamily() auditagent.OSFamily { return s.family }

// Close tears down the SSH connection.
func (s *session) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// fingerprint runs the version probe and derives the OS family from its
// output. An unrecognized platform is not an error; the family carries a
// descriptive tag instead.
func (s *session) fingerprint(ctx context.Context) error {
	out, err := s.run(ctx, versionProbe)
	if err != nil {
		return errors.Wrap(err, "fingerprint device os")
	}
	s.family = detectFamily(out)
	s.versionCmd = versionProbe
	s.versionOut = out
	return nil
}

// CollectVersion runs command and parses platform identity records from it.
func (s *session) CollectVersion(ctx context.Context, command string) ([]auditagent.VersionRecord, error) {
	out, err := s.commandOutput(ctx, command)
	if err != nil {
		return nil, err
	}
	return parseVersion(s.family, out), nil
}

// CollectInterfaces runs command and parses the interface summary table.
func (s *session) CollectInterfaces(ctx context.Context, command string) ([]auditagent.InterfaceRecord, error) {
	out, err := s.run(ctx, command)
	if err != nil {
		return nil, err
	}
	return parseInterfaces(s.family, out), nil
}

// CollectNeighbors runs command and parses discovery protocol neighbor
// blocks.
func (s *session) CollectNeighbors(ctx context.Context, command string) ([]auditagent.NeighborRecord, error) {
	out, err := s.run(ctx, command)
	if err != nil {
		return nil, err
	}
	return parseNeighbors(out), nil
}

func (s *session) commandOutput(ctx context.Context, command string) (string, error) {
	if command == s.versionCmd && s.versionOut != "" {
		return s.versionOut, nil
	}
	return s.run(ctx, command)
}

// run executes one command on a fresh exec channel; Cisco exec channels
// close after a single command.
func (s *session) run(ctx context.Context, command string) (string, error) {
	execSess, err := s.client.NewSession()
	if err != nil {
		return "", errors.Wrap(err, "open exec channel")
	}
	defer execSess.Close()

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := execSess.CombinedOutput(command)
		done <- result{out: out, err: err}
	}()

	timeout := s.timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		if res.err != nil {
			var exitErr *ssh.ExitError
			if errors.As(res.err, &exitErr) {
				// Non-zero exit still carries usable output.
				return string(res.out), nil
			}
			return "", errors.Wrapf(res.err, "run %q", command)
		}
		return string(res.out), nil
	case <-ctx.Done():
		_ = execSess.Signal(ssh.SIGKILL)
		return "", errors.Wrapf(ctx.Err(), "run %q", command)
	case <-timer.C:
		_ = execSess.Signal(ssh.SIGKILL)
		return "", errors.Errorf("run %q: timed out after %s", command, timeout)
	}
}
