package auditagent

// AgentVersion is stamped into run history records so audits can be traced
// back to the binary that produced them.
const AgentVersion = "0.4.1"

// Shared environment variable names. Downstream tooling should prefer these
// root-level constants when wiring auditagent into their environments; all of
// them may also be supplied through a .env file found by the walk-up loader.
const (
	// EnvSSHUsername provides the shared login user when prompting is not desired.
	EnvSSHUsername = "AUDIT_SSH_USERNAME"
	// EnvSSHPassword provides the shared login password.
	EnvSSHPassword = "AUDIT_SSH_PASSWORD"
	// EnvEnableSecret provides the optional privileged-mode secret.
	EnvEnableSecret = "AUDIT_ENABLE_SECRET"
	// EnvWorkers overrides the worker pool size.
	EnvWorkers = "AUDIT_WORKERS"
	// EnvConnectTimeout overrides the per-device session timeout.
	EnvConnectTimeout = "AUDIT_CONNECT_TIMEOUT"
	// EnvOutputDir overrides where timestamped CSV/log files are created.
	EnvOutputDir = "AUDIT_OUTPUT_DIR"
	// EnvHistoryDB points at the SQLite history database; empty selects
	// ~/.auditagent/history.sqlite.
	EnvHistoryDB = "AUDIT_HISTORY_DB"
	// EnvDisableHistory skips the SQLite history sink entirely.
	EnvDisableHistory = "AUDIT_DISABLE_HISTORY"
)

// Status values written to the status column. The audit table is the single
// source of truth for per-device outcome, so these literals are part of the
// output contract and must stay stable.
const (
	StatusOK                  = "OK"
	StatusAuthFailed          = "Authentication Failed"
	StatusConnectTimeout      = "Connection Timeout"
	StatusVersionParseFailed  = "Failed to parse version"
	statusUnsupportedOSFormat = "Unsupported OS: %s"
	statusErrorFormat         = "Error: %s"
)

// placeholderAbsent marks columns that are structurally absent from a row
// (failure and summary rows). Neighbor columns on an interface row without a
// matching neighbor stay empty instead, mirroring how present-but-missing
// values rendered in the legacy report.
const placeholderAbsent = "N/A"

// Columns is the fixed CSV header, in output order.
var Columns = []string{
	"hostname",
	"ip_address",
	"model",
	"version",
	"status",
	"interface",
	"interface_ip",
	"interface_status",
	"protocol_status",
	"neighbor_device",
	"neighbor_platform",
	"neighbor_interface",
}
