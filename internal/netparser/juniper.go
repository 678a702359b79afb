package netparser

import (
	"fmt"
	"strings"

	"github.com/osiriscare/netmapd/internal/model"
)

// juniperParser implements the Juniper JUNOS command vocabulary and text
// layouts (§4.3.2). Bonds (ae*) are discovered as a side effect of
// ParseInterfacesFromLLDPRemoteInfo and held in trunks until ParseTrunks
// returns them — JUNOS has no standalone "show trunks"-equivalent command
// (TrunksListCmd reports ok=false), so the host explorer calls
// ParseTrunks with empty text and this parser simply returns what it
// already found.
type juniperParser struct {
	trunks map[string]*model.Trunk
}

func newJuniperParser() *juniperParser {
	return &juniperParser{trunks: make(map[string]*model.Trunk)}
}

func (p *juniperParser) PromptMarker() string { return "> " }

func (p *juniperParser) PreparationCommands() []string {
	return []string{"set cli screen-length 0\n", "set cli screen-width 0\n"}
}

func (p *juniperParser) LLDPLocalCmd() (string, bool) { return "show lldp local-information\n", true }
func (p *juniperParser) LLDPNeighborsCmd() string     { return "show lldp neighbors\n" }

func (p *juniperParser) LLDPNeighborsDetailCmd(port string) (string, bool) {
	return fmt.Sprintf("show lldp neighbors interface %s\n", port), true
}

func (p *juniperParser) TrunksListCmd() (string, bool)      { return "", false }
func (p *juniperParser) VlansGlobalCmd() (string, bool)     { return "show vlans detail\n", true }
func (p *juniperParser) VlansSpecificCmd(string) (string, bool) { return "", false }
func (p *juniperParser) VMsListCmd() (string, bool)         { return "", false }

func (p *juniperParser) VlanDetailStr(vlan model.Vlan) string { return vlan.Identifier }

// ParseDeviceFromLLDPLocalInfo walks "key : value" lines from
// "show lldp local-information", stopping at the first Enabled line.
func (p *juniperParser) ParseDeviceFromLLDPLocalInfo(text string) (*model.Device, error) {
	device := model.NewDevice("")
	for _, raw := range splitLines(text) {
		if !strings.Contains(raw, ":") {
			continue
		}
		key, value := extractKeyValue(raw)
		attributeJuniperLocal(device, key, value)
		if key == "Enabled" {
			break
		}
	}
	if device.MACAddress == "" {
		return device, fmt.Errorf("no mac address found in local-information output")
	}
	return device, nil
}

func attributeJuniperLocal(device *model.Device, key, value string) {
	switch {
	case strings.Contains(key, "Chassis ID"):
		device.MACAddress = strings.ReplaceAll(value, ":", " ")
	case strings.Contains(key, "System name"):
		device.SystemName = value
	case strings.Contains(key, "System descr"):
		device.SystemDescription = value
	case strings.Contains(key, "Supported"):
		device.SupportedCapabilities = value
	case strings.Contains(key, "Enabled"):
		device.EnabledCapabilities = value
	}
}

func attributeJuniperRemote(device *model.Device, key, value string) {
	switch {
	case strings.Contains(key, "Chassis ID"):
		device.MACAddress = strings.ReplaceAll(value, ":", " ")
	case strings.Contains(key, "System name"):
		device.SystemName = value
	case strings.Contains(key, "System Description"):
		device.SystemDescription = value
	case strings.Contains(key, "Supported"):
		device.SupportedCapabilities = value
	case strings.Contains(key, "Enabled"):
		device.EnabledCapabilities = value
	case strings.Contains(key, "Type"):
		device.IPAddressType = value
	case strings.Contains(key, "Address"):
		device.IPAddress = value
	}
}

// ParseDevicesFromLLDPRemoteInfo bounds each neighbor record between a
// line containing "Neighbour Information" and the next line containing
// "Address".
func (p *juniperParser) ParseDevicesFromLLDPRemoteInfo(_ *model.Device, texts []string) []*model.Device {
	var devices []*model.Device

	for _, text := range texts {
		skip := true
		device := model.NewDevice("")

		for _, line := range splitLines(text) {
			if strings.Contains(line, "Neighbour Information") {
				skip = false
				continue
			}
			if skip {
				continue
			}
			if strings.Contains(line, ":") {
				key, value := extractKeyValue(line)
				attributeJuniperRemote(device, key, value)
			}
			if strings.Contains(line, "Address") {
				devices = append(devices, device)
				device = model.NewDevice("")
				skip = true
			}
		}
	}

	return devices
}

// ParseInterfacesFromLLDPRemoteInfo reads the fixed-width table from
// "show lldp neighbors" and synthesizes bonds from the parent-interface
// column as a side effect.
func (p *juniperParser) ParseInterfacesFromLLDPRemoteInfo(text string) map[string]*model.Interface {
	interfaces := make(map[string]*model.Interface)

	for _, line := range splitLines(text) {
		if len(line) <= 73 {
			continue
		}

		localPort := strings.TrimSpace(safeSlice(line, 0, 18))
		if localPort == "Local Interface" || localPort == "" {
			continue
		}
		parent := strings.TrimSpace(safeSlice(line, 19, 38))

		iface := model.NewInterface(localPort)
		iface.RemoteMACAddress = strings.ReplaceAll(strings.TrimSpace(safeSlice(line, 39, 58)), ":", " ")
		iface.RemotePort = strings.TrimSpace(safeSlice(line, 59, 71))
		iface.RemoteSystemName = strings.TrimSpace(safeFrom(line, 72))
		interfaces[localPort] = iface

		if parent != "" && parent != "-" && parent != "Local Interface" {
			trunk, ok := p.trunks[parent]
			if !ok {
				trunk = model.NewTrunk(parent, parent, "")
				p.trunks[parent] = trunk
			}
			trunk.AddPort(localPort)
		}
	}

	return interfaces
}

// ParseVlans is the empty single-phase pathway per §4.3.2: Juniper
// assigns VLANs directly from "show vlans detail" via
// AssociateVlansToInterfaces.
func (p *juniperParser) ParseVlans(string) map[string]model.Vlan { return nil }

func (p *juniperParser) AssociateVlanToInterfaces(map[string]*model.Interface, model.Vlan, string) {}

// AssociateVlansToInterfaces walks "show vlans detail". A header line
// contains both "VLAN: " and "Tag: " and seeds a current Vlan; subsequent
// "agged interfaces:" lines list member ports, with the section label
// ("Untagged" vs. anything else) determining mode. A trailing "*" on a
// port marks it Up (and is stripped); ports naming a known bond apply the
// VLAN to every physical member instead.
func (p *juniperParser) AssociateVlansToInterfaces(interfaces map[string]*model.Interface, text string) {
	var current model.Vlan

	for _, line := range splitLines(text) {
		if strings.Contains(line, "VLAN: ") && strings.Contains(line, "Tag: ") {
			name := firstCommaToken(afterToken(line, "VLAN: "))
			id := firstCommaToken(afterToken(line, "Tag: "))
			current = model.Vlan{Identifier: strings.TrimSpace(id), Name: strings.TrimSpace(name)}
			continue
		}
		if !strings.Contains(line, "agged interfaces:") {
			continue
		}

		// JUNOS labels the two sections "Untagged interfaces:" (access
		// ports) and "Tagged interfaces:" (trunk ports); mapped onto the
		// canonical Tagged/Untagged domain from §3.
		mode := model.VlanModeTagged
		if strings.Contains(line, "Untagged") {
			mode = model.VlanModeUntagged
		}

		portsPart := afterToken(line, "agged interfaces:")
		for _, rawPort := range strings.Split(portsPart, ",") {
			port := strings.TrimSpace(rawPort)
			if port == "" {
				continue
			}
			status := model.VlanStatusDown
			if strings.HasSuffix(port, "*") {
				status = model.VlanStatusUp
				port = strings.TrimSuffix(port, "*")
				port = strings.TrimSpace(port)
			}

			vlan := model.Vlan{Identifier: current.Identifier, Name: current.Name, Mode: mode, Status: status}

			if iface, ok := interfaces[port]; ok {
				iface.AddVlan(vlan)
				continue
			}
			// "show vlans detail" names a bond by the same logical unit
			// (e.g. ae0.0) that "show lldp neighbors" put in the Parent
			// Interface column and that the bond was registered under —
			// look it up as-is, not stripped to its physical-port prefix.
			if trunk, ok := p.trunks[port]; ok {
				for _, member := range trunk.Ports {
					if iface, ok := interfaces[member]; ok {
						iface.AddVlan(vlan)
					}
				}
			}
		}
	}
}

// ParseTrunks has no dedicated command on Juniper: bonds were already
// synthesized while parsing the LLDP neighbor summary, so this simply
// returns what was found.
func (p *juniperParser) ParseTrunks(map[string]*model.Interface, string) map[string]*model.Trunk {
	return p.trunks
}

// ParseVMsList: Juniper does not report hypervisor guests.
func (p *juniperParser) ParseVMsList(string) []model.VirtualMachine { return nil }

func afterToken(line, token string) string {
	idx := strings.Index(line, token)
	if idx < 0 {
		return ""
	}
	return line[idx+len(token):]
}

func firstCommaToken(s string) string {
	parts := strings.SplitN(s, ",", 2)
	return parts[0]
}
