package model

// Interface is a physical or logical port on one Device.
type Interface struct {
	LocalPort        string          `json:"local_port"`
	RemotePort       string          `json:"remote_port"`
	RemoteMACAddress string          `json:"remote_mac_address"`
	RemoteSystemName string          `json:"remote_system_name"`
	Vlans            map[string]Vlan `json:"vlans"`
}

// NewInterface returns an Interface with its VLAN map initialized.
func NewInterface(localPort string) *Interface {
	return &Interface{LocalPort: localPort, Vlans: make(map[string]Vlan)}
}

// IsValidLLDPInterface reports whether this interface carries a usable
// LLDP neighbor record: a remote system name was observed.
func (i *Interface) IsValidLLDPInterface() bool {
	return i.RemoteSystemName != ""
}

// AddVlan attaches a VLAN to the interface, keyed by identifier. Adding
// the same identifier twice is a no-op: the map key itself enforces the
// idempotent-add-vlan invariant.
func (i *Interface) AddVlan(v Vlan) {
	if _, exists := i.Vlans[v.Identifier]; exists {
		return
	}
	i.Vlans[v.Identifier] = v
}
