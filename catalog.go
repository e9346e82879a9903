package auditagent

// OSFamily tags the operating-system variant detected for a device. The
// catalog recognizes a closed set of families; any other tag is treated as
// unsupported at the detection step and short-circuits the device task.
type OSFamily string

const (
	OSFamilyIOS  OSFamily = "cisco_ios"
	OSFamilyNXOS OSFamily = "cisco_nxos"
	OSFamilyASA  OSFamily = "cisco_asa"
)

// CommandSet holds the literal inventory commands for one OS family, in the
// fixed execution order: version, then interfaces, then neighbors. Neighbors
// is empty for families without a discovery protocol command; the device
// task skips that phase.
type CommandSet struct {
	Version    string
	Interfaces string
	Neighbors  string
}

var commandCatalog = map[OSFamily]CommandSet{
	OSFamilyIOS: {
		Version:    "show version",
		Interfaces: "show ip interface brief",
		Neighbors:  "show cdp neighbors detail",
	},
	OSFamilyNXOS: {
		Version:    "show version",
		Interfaces: "show ip interface brief",
		Neighbors:  "show cdp neighbors detail",
	},
	OSFamilyASA: {
		Version:    "show version",
		Interfaces: "show interface ip brief",
	},
}

// CommandsFor returns the command set for the given family. The second
// result is false when the family is outside the supported set; callers must
// treat that as unsupported-OS and emit a failure row instead of running
// commands.
func CommandsFor(family OSFamily) (CommandSet, bool) {
	set, ok := commandCatalog[family]
	return set, ok
}

// Supported reports whether the family has a command set in the catalog.
func (f OSFamily) Supported() bool {
	_, ok := commandCatalog[f]
	return ok
}
