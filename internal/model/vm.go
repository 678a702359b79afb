package model

// VirtualMachine is one guest reported by a hypervisor host's VM listing.
type VirtualMachine struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	State      string `json:"state"`
}

// IsValid reports whether all three fields are present and the
// identifier is not a placeholder ("" or "-").
func (v VirtualMachine) IsValid() bool {
	if v.Identifier == "" || v.Identifier == "-" {
		return false
	}
	return v.Name != "" && v.State != ""
}
