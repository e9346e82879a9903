package cisco

import (
	"context"
	"reflect"
	"testing"
	"time"

	auditagent "github.com/netaudit/AuditAgent"
	"github.com/pkg/errors"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "dial tcp 10.9.9.9:22: i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return false }

func TestClassifyConnectError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want auditagent.FailureKind
	}{
		{"net timeout", timeoutErr{}, auditagent.FailureConnectTimeout},
		{"wrapped net timeout", errors.Wrap(timeoutErr{}, "dial device"), auditagent.FailureConnectTimeout},
		{"authentication", errors.New("ssh: handshake failed: ssh: unable to authenticate, attempted methods [none password]"), auditagent.FailureAuthentication},
		{"refused", errors.New("dial tcp 10.9.9.9:22: connect: connection refused"), auditagent.FailureOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := classifyConnectError(tt.err)
			if got := auditagent.FailureKindOf(classified); got != tt.want {
				t.Fatalf("expected kind %v, got %v", tt.want, got)
			}
			if !errors.Is(classified, tt.err) {
				t.Fatal("expected original error preserved in chain")
			}
		})
	}
	if classifyConnectError(nil) != nil {
		t.Fatal("expected nil passthrough")
	}
}

func TestKeyboardAnswers(t *testing.T) {
	creds := auditagent.Credentials{Password: "login-pw", EnableSecret: "enable-pw"}
	answer := keyboardAnswers(creds)

	questions := []string{"Password: ", "Enter enable password: "}
	answers, err := answer("", "", questions, []bool{false, false})
	if err != nil {
		t.Fatalf("answer returned error: %v", err)
	}
	if want := []string{"login-pw", "enable-pw"}; !reflect.DeepEqual(answers, want) {
		t.Fatalf("expected %v, got %v", want, answers)
	}

	// Without an enable secret every prompt gets the login password.
	answer = keyboardAnswers(auditagent.Credentials{Password: "login-pw"})
	answers, err = answer("", "", questions, []bool{false, false})
	if err != nil {
		t.Fatalf("answer returned error: %v", err)
	}
	if want := []string{"login-pw", "login-pw"}; !reflect.DeepEqual(answers, want) {
		t.Fatalf("expected %v, got %v", want, answers)
	}
}

func TestClientConfigLegacyAlgorithms(t *testing.T) {
	legacy := New(Options{LegacyAlgorithms: true}).clientConfig(auditagent.Credentials{Username: "audit"}, 5*time.Second)
	if !containsString(legacy.Ciphers, "aes256-cbc") {
		t.Fatalf("expected CBC ciphers offered, got %v", legacy.Ciphers)
	}
	if !containsString(legacy.KeyExchanges, "diffie-hellman-group1-sha1") {
		t.Fatalf("expected legacy key exchanges offered, got %v", legacy.KeyExchanges)
	}

	modern := New(Options{}).clientConfig(auditagent.Credentials{Username: "audit"}, 5*time.Second)
	if len(modern.Ciphers) != 0 || len(modern.KeyExchanges) != 0 {
		t.Fatalf("expected library defaults without legacy algorithms, got ciphers=%v kex=%v", modern.Ciphers, modern.KeyExchanges)
	}
	if modern.Timeout != 5*time.Second {
		t.Fatalf("expected timeout carried into config, got %s", modern.Timeout)
	}
}

func TestOpenRejectsEmptyDeviceID(t *testing.T) {
	p := NewDefault()
	if _, err := p.Open(context.Background(), "   ", auditagent.Credentials{}, time.Second); err == nil {
		t.Fatal("expected error for empty device identifier")
	}
}

func TestDialAddr(t *testing.T) {
	tests := []struct {
		in   string
		port int
		want string
	}{
		{"10.1.0.1", 22, "10.1.0.1:22"},
		{"10.1.0.1:2222", 22, "10.1.0.1:2222"},
		{" core-sw-01 ", 22, "core-sw-01:22"},
		{"::1", 22, "[::1]:22"},
		{"[::1]", 22, "[::1]:22"},
		{"[2001:db8::1]:830", 22, "[2001:db8::1]:830"},
		{"10.1.0.1", 2222, "10.1.0.1:2222"},
	}
	for _, tt := range tests {
		got, err := dialAddr(tt.in, tt.port)
		if err != nil {
			t.Fatalf("dialAddr(%q, %d) returned error: %v", tt.in, tt.port, err)
		}
		if got != tt.want {
			t.Fatalf("dialAddr(%q, %d) = %q, want %q", tt.in, tt.port, got, tt.want)
		}
	}
	if _, err := dialAddr("   ", 22); err == nil {
		t.Fatal("expected error for empty device identifier")
	}
}

func TestNewDefaultsPort(t *testing.T) {
	if p := New(Options{}); p.opts.Port != 22 {
		t.Fatalf("expected default port 22, got %d", p.opts.Port)
	}
	if p := New(Options{Port: 2222}); p.opts.Port != 2222 {
		t.Fatalf("expected explicit port kept, got %d", p.opts.Port)
	}
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
