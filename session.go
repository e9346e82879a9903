package auditagent

import (
	"context"
	"time"
)

// Session is one live authenticated command channel to a device. It is owned
// exclusively by the worker that opened it for the duration of one device
// task, and is closed exactly once on every exit path. Close is idempotent.
//
// Collect methods run the given literal command and return the typed records
// parsed from its output. Output that yields no parseable structure returns
// an empty slice and nil error; an empty version slice is the
// failed-to-parse-version condition, handled by the correlator.
type Session interface {
	OSFamily() OSFamily
	CollectVersion(ctx context.Context, command string) ([]VersionRecord, error)
	CollectInterfaces(ctx context.Context, command string) ([]InterfaceRecord, error)
	CollectNeighbors(ctx context.Context, command string) ([]NeighborRecord, error)
	Close() error
}

// SessionProvider opens sessions to devices. Open must classify its failures
// through SessionError (FailureAuthentication, FailureConnectTimeout, or
// FailureOther) so the task can tag the failure row; unwrapped errors are
// treated as FailureOther.
type SessionProvider interface {
	Open(ctx context.Context, deviceID string, creds Credentials, timeout time.Duration) (Session, error)
}
