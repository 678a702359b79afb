// Package model defines the value types discovered while crawling a
// switched network: devices, interfaces, VLANs, trunks, and the virtual
// machines a hypervisor host reports.
package model

import "strings"

// Status records the terminal outcome of exploring a device. The zero
// value means no outcome has been recorded yet (e.g. a neighbor not yet
// explored); a fully successful exploration sets StatusOK.
type Status string

const (
	StatusOK              Status = "OK"
	StatusNoAuthRequested Status = "NO_AUTH_REQUESTED"
	StatusAuthFailed      Status = "AUTH_FAILED"
	StatusUnreachable     Status = "UNREACHABLE"
	StatusUnrecognized    Status = "UNRECOGNIZED"
	StatusParseFailed     Status = "PARSE_FAILED"
)

// bridgeCapabilityTokens are the enabled_capabilities substrings that mark
// a device as LLDP-bridge-capable.
var bridgeCapabilityTokens = []string{"bridge", "Bridge"}

// vendorTokens are the system_description substrings recognized as a
// supported vendor or OS family.
var vendorTokens = []string{"HP", "Hewlett-Packard", "ProCurve", "Juniper", "JUNOS", "Linux", "Debian", "Ubuntu"}

// linuxTokens mark a Device as a Linux server.
var linuxTokens = []string{"Linux", "Debian", "Ubuntu"}

// Device is the unit of discovery: one switch, router, or Linux server.
type Device struct {
	MACAddress            string `json:"mac_address"`
	IPAddress             string `json:"ip_address"`
	IPAddressType         string `json:"ip_address_type"`
	SystemName            string `json:"system_name"`
	SystemDescription     string `json:"system_description"`
	SupportedCapabilities string `json:"supported_capabilities"`
	EnabledCapabilities   string `json:"enabled_capabilities"`

	Interfaces      map[string]*Interface `json:"interfaces"`
	Trunks          map[string]*Trunk     `json:"trunks"`
	VirtualMachines []VirtualMachine      `json:"virtual_machines"`

	Status Status `json:"status,omitempty"`
}

// NewDevice returns a Device with its maps initialized, stubbed with the
// given hostname (used as the queue/explored-set key until a MAC is known).
func NewDevice(systemName string) *Device {
	return &Device{
		SystemName: systemName,
		Interfaces: make(map[string]*Interface),
		Trunks:     make(map[string]*Trunk),
	}
}

// Key returns the device's canonical identity: its MAC address once known,
// otherwise its system name (the stub key it was enqueued under).
func (d *Device) Key() string {
	if d.MACAddress != "" {
		return d.MACAddress
	}
	return d.SystemName
}

// IsValidLLDPDevice reports whether this device is eligible for further
// LLDP traversal: it must advertise bridge capability and a recognized
// vendor/OS token in its system description.
func (d *Device) IsValidLLDPDevice() bool {
	return containsAny(d.EnabledCapabilities, bridgeCapabilityTokens) &&
		containsAny(d.SystemDescription, vendorTokens)
}

// IsLinuxServer reports whether the system description identifies a
// Linux host rather than a network switch.
func (d *Device) IsLinuxServer() bool {
	return containsAny(d.SystemDescription, linuxTokens)
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
