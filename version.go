package servicer

// Version is the current version of the servicer library and CLI
const Version = "0.3.0"

// VersionInfo contains detailed version information
type VersionInfo struct {
	// Version is the semantic version
	Version string
	// InitSystem names the service manager the unit files target
	InitSystem string
	// UnitSuffix is the marker carried by every managed unit
	UnitSuffix string
}

// GetVersion returns the current version information
func GetVersion() VersionInfo {
	return VersionInfo{
		Version:    Version,
		InitSystem: "systemd",
		UnitSuffix: UnitSuffix,
	}
}
