package netparser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/osiriscare/netmapd/internal/model"
)

// hpParser implements the HP ProCurve command vocabulary and text
// layouts (§4.3.1). Each host explorer constructs its own instance;
// pendingTrunkVlans buffers VLAN assignments seen on a trunk id (e.g.
// "Trk3") before show trunks has run, so they can be replayed onto each
// physical member port once parse_trunks discovers it (§9).
type hpParser struct {
	pendingTrunkVlans map[string]model.Vlan
}

func newHPParser() *hpParser {
	return &hpParser{pendingTrunkVlans: make(map[string]model.Vlan)}
}

func (p *hpParser) PromptMarker() string { return "# " }

func (p *hpParser) PreparationCommands() []string {
	return []string{"\n", "no page\n"}
}

func (p *hpParser) LLDPLocalCmd() (string, bool) { return "show lldp info local-device\n", true }
func (p *hpParser) LLDPNeighborsCmd() string     { return "show lldp info remote-device\n" }

func (p *hpParser) LLDPNeighborsDetailCmd(port string) (string, bool) {
	return fmt.Sprintf("show lldp info remote-device %s\n", port), true
}

func (p *hpParser) TrunksListCmd() (string, bool) { return "show trunks\n", true }
func (p *hpParser) VlansGlobalCmd() (string, bool) { return "show vlans\n", true }

func (p *hpParser) VlansSpecificCmd(vlanID string) (string, bool) {
	return fmt.Sprintf("show vlans %s\n", vlanID), true
}

// VMsListCmd: HP does not support VM enumeration (§4.3.1).
func (p *hpParser) VMsListCmd() (string, bool) { return "", false }

func (p *hpParser) VlanDetailStr(vlan model.Vlan) string { return vlan.Identifier }

// ParseDeviceFromLLDPLocalInfo walks "key : value" lines from
// "show lldp info local-device", stopping at the first Address line.
func (p *hpParser) ParseDeviceFromLLDPLocalInfo(text string) (*model.Device, error) {
	device := model.NewDevice("")
	for _, raw := range splitLines(text) {
		if !strings.Contains(raw, ":") {
			continue
		}
		key, value := extractKeyValue(raw)
		attributeHPLocal(device, key, value)
		if key == "Address" {
			break
		}
	}
	if device.MACAddress == "" {
		return device, fmt.Errorf("no mac address found in local-device output")
	}
	return device, nil
}

func attributeHPLocal(device *model.Device, key, value string) {
	switch {
	case strings.Contains(key, "Chassis Id"):
		device.MACAddress = value
	case strings.Contains(key, "System Name"):
		device.SystemName = value
	case strings.Contains(key, "System Description"):
		device.SystemDescription = value
	case strings.Contains(key, "System Capabilities Supported"):
		device.SupportedCapabilities = value
	case strings.Contains(key, "System Capabilities Enabled"):
		device.EnabledCapabilities = value
	case strings.Contains(key, "Type"):
		device.IPAddressType = value
	case strings.Contains(key, "Address"):
		device.IPAddress = value
	}
}

func attributeHPRemote(device *model.Device, key, value string) {
	switch {
	case strings.Contains(key, "ChassisId"):
		device.MACAddress = value
	case strings.Contains(key, "SysName"):
		device.SystemName = value
	case strings.Contains(key, "System Descr"):
		device.SystemDescription = value
	case strings.Contains(key, "System Capabilities Supported"):
		device.SupportedCapabilities = value
	case strings.Contains(key, "System Capabilities Enabled"):
		device.EnabledCapabilities = value
	case strings.Contains(key, "Type"):
		device.IPAddressType = value
	case strings.Contains(key, "Address"):
		device.IPAddress = value
	}
}

// ParseDevicesFromLLDPRemoteInfo walks one or more neighbor-detail
// responses, each containing one or more "key : value" blocks separated
// by a line containing the switch's own prompt ("#").
func (p *hpParser) ParseDevicesFromLLDPRemoteInfo(_ *model.Device, texts []string) []*model.Device {
	var devices []*model.Device

	for _, text := range texts {
		device := model.NewDevice("")
		sawAnyField := false

		for _, raw := range splitLines(text) {
			if strings.Contains(raw, ":") {
				key, value := extractKeyValue(raw)
				attributeHPRemote(device, key, value)
				sawAnyField = true
				continue
			}
			if strings.Contains(raw, "#") {
				if sawAnyField {
					devices = append(devices, device)
				}
				device = model.NewDevice("")
				sawAnyField = false
			}
		}
		if sawAnyField {
			devices = append(devices, device)
		}
	}

	return devices
}

// ParseInterfacesFromLLDPRemoteInfo reads the fixed-width table from
// "show lldp info remote-device". A row qualifies iff it is longer than
// 57 characters and column 13 (index 12) is '|'.
func (p *hpParser) ParseInterfacesFromLLDPRemoteInfo(text string) map[string]*model.Interface {
	interfaces := make(map[string]*model.Interface)

	for _, line := range splitLines(text) {
		if len(line) <= 57 || line[12] != '|' {
			continue
		}

		localPort := strings.TrimSpace(safeSlice(line, 0, 11))
		if localPort == "LocalPort" || localPort == "" {
			continue
		}

		iface := model.NewInterface(localPort)
		iface.RemoteMACAddress = strings.TrimSpace(safeSlice(line, 13, 38))
		iface.RemotePort = strings.TrimSpace(safeSlice(line, 47, 55))
		iface.RemoteSystemName = strings.TrimSpace(safeFrom(line, 57))
		interfaces[localPort] = iface
	}

	return interfaces
}

// ParseVlans locates the header line containing both "Name" and
// "Status", then slices each following data row by those column starts.
func (p *hpParser) ParseVlans(text string) map[string]model.Vlan {
	vlans := make(map[string]model.Vlan)
	nameCol, statusCol := -1, -1

	for _, line := range splitLines(text) {
		if strings.Contains(line, "Name") && strings.Contains(line, "Status") {
			nameCol = strings.Index(line, "Name")
			statusCol = strings.Index(line, "Status")
			continue
		}
		if nameCol < 0 {
			continue
		}
		if strings.TrimSpace(line) == "" {
			break
		}
		if strings.Contains(line, "----") {
			continue
		}

		id := strings.TrimSpace(safeSlice(line, 0, nameCol-1))
		name := strings.Trim(strings.TrimSpace(safeSlice(line, nameCol, statusCol-1)), "|")
		name = strings.TrimSpace(name)
		if id == "" {
			continue
		}
		vlans[id] = model.Vlan{Identifier: id, Name: name}
	}

	return vlans
}

// AssociateVlansToInterfaces is the single-phase pathway HP never
// exercises in practice (ParseVlans normally returns at least one
// entry); an empty "show vlans" result means there is nothing to attach.
func (p *hpParser) AssociateVlansToInterfaces(_ map[string]*model.Interface, _ string) {}

// AssociateVlanToInterfaces locates the header containing "Mode",
// "Unknown VLAN", "Status" in a per-VLAN detail response, then attaches
// a per-port copy of vlan to each data row's interface — or, when the
// row names a trunk id ("Trk*"), buffers it for replay by ParseTrunks.
func (p *hpParser) AssociateVlanToInterfaces(interfaces map[string]*model.Interface, vlan model.Vlan, text string) {
	modeIdx, unknownIdx, statusIdx := -1, -1, -1

	for _, line := range splitLines(text) {
		if strings.Contains(line, "Mode") && strings.Contains(line, "Unknown VLAN") && strings.Contains(line, "Status") {
			modeIdx = strings.Index(line, "Mode")
			unknownIdx = strings.Index(line, "Unknown VLAN")
			statusIdx = strings.Index(line, "Status")
			continue
		}
		if modeIdx < 0 {
			continue
		}
		if strings.TrimSpace(line) == "" {
			break
		}
		if strings.Contains(line, "----") {
			continue
		}

		portID := strings.TrimSpace(safeSlice(line, 0, modeIdx-1))
		mode := strings.TrimSpace(safeSlice(line, modeIdx, unknownIdx-1))
		status := strings.TrimSpace(safeFrom(line, statusIdx))
		if portID == "" {
			continue
		}

		perPort := model.Vlan{
			Identifier: vlan.Identifier,
			Name:       vlan.Name,
			Mode:       model.VlanMode(mode),
			Status:     model.VlanStatus(status),
		}

		if strings.HasPrefix(portID, "Trk") {
			p.pendingTrunkVlans[portID] = perPort
			continue
		}
		if iface, ok := interfaces[portID]; ok {
			iface.AddVlan(perPort)
		}
	}
}

var hpTrunkLine = regexp.MustCompile(`\s+([0-z]{1,3})\s+\|([ -~]{1,33})(.{1,9}) \| ([0-z]{1,5})`)

// ParseTrunks scans "show trunks" and, after recording each member port,
// replays any buffered VLAN assignment for that trunk id onto the port's
// Interface (§9: the two-phase structure must not be merged).
func (p *hpParser) ParseTrunks(interfaces map[string]*model.Interface, text string) map[string]*model.Trunk {
	trunks := make(map[string]*model.Trunk)

	for _, line := range splitLines(text) {
		m := hpTrunkLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		port := strings.TrimSpace(m[1])
		name := strings.TrimSpace(m[2])
		typ := strings.TrimSpace(m[3])
		group := strings.TrimSpace(m[4])
		if port == "" || group == "" {
			continue
		}

		trunk, ok := trunks[group]
		if !ok {
			trunk = model.NewTrunk(group, name, typ)
			trunks[group] = trunk
		}
		trunk.AddPort(port)

		if vlan, buffered := p.pendingTrunkVlans[group]; buffered {
			if iface, ok := interfaces[port]; ok {
				iface.AddVlan(vlan)
			}
		}
	}

	return trunks
}

// ParseVMsList: HP does not report hypervisor guests.
func (p *hpParser) ParseVMsList(_ string) []model.VirtualMachine { return nil }
