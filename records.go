package auditagent

// Credentials carries the shared login material applied to every device in a
// run. It is read-only once the run starts and must never appear in logs.
type Credentials struct {
	Username     string
	Password     string
	EnableSecret string
}

// VersionRecord is the parsed result of the version command. At most one
// record per device is used (the first parsed entry); a device whose version
// output yields no records fails with StatusVersionParseFailed.
type VersionRecord struct {
	Hostname string
	Hardware string
	Version  string
}

// InterfaceRecord is one row of the interface summary table.
type InterfaceRecord struct {
	Name     string
	Address  string
	Status   string
	Protocol string
}

// NeighborRecord is one parsed neighbor-discovery block. LocalPort is the
// correlation key joining neighbors onto interface rows.
type NeighborRecord struct {
	LocalPort   string
	DeviceID    string
	MgmtAddress string
	Platform    string
	RemotePort  string
}
