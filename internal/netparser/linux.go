package netparser

import (
	"regexp"
	"strings"

	"github.com/osiriscare/netmapd/internal/model"
)

// linuxParser implements the Linux/lldpd command vocabulary (§4.3.3).
// pendingVlans/knownSlaves buffer state discovered while walking ifconfig
// output and the bonding/slaves queries, so a later ParseTrunks/vlan-association pass can
// synthesize bonds the same way HP's trunk replay does.
type linuxParser struct {
	trunks       map[string]*model.Trunk
	knownSlaves  map[string][]string
	pendingVlans map[string]string
}

func newLinuxParser() *linuxParser {
	return &linuxParser{trunks: make(map[string]*model.Trunk)}
}

func (p *linuxParser) PromptMarker() string          { return "# " }
func (p *linuxParser) PreparationCommands() []string { return nil }

// LLDPLocalCmd is absent on Linux: the source's lldp_local_cmd is null
// for this vendor, so the explorer must skip the local-device query
// phase entirely rather than send an empty command line (§4.3).
func (p *linuxParser) LLDPLocalCmd() (string, bool) { return "", false }
func (p *linuxParser) LLDPNeighborsCmd() string     { return "lldpctl\n" }

// LLDPNeighborsDetailCmd is absent: lldpctl's summary output already
// carries full neighbor detail, so the explorer reuses the summary text
// instead of issuing one query per interface (§4.4 step 6).
func (p *linuxParser) LLDPNeighborsDetailCmd(string) (string, bool) { return "", false }

func (p *linuxParser) TrunksListCmd() (string, bool)  { return "", false }
func (p *linuxParser) VlansGlobalCmd() (string, bool) { return "ifconfig\n", true }

func (p *linuxParser) VlansSpecificCmd(bondName string) (string, bool) {
	return "cat /sys/class/net/" + bondName + "/bonding/slaves\n", true
}

// VMsListCmd: "virsh list --all" enumerates guests on a KVM hypervisor
// host; absent on a plain Linux server but harmless to issue (empty
// output yields zero VMs).
func (p *linuxParser) VMsListCmd() (string, bool) { return "virsh list --all\n", true }

func (p *linuxParser) VlanDetailStr(vlan model.Vlan) string { return vlan.Name }

// ParseDeviceFromLLDPLocalInfo is unimplemented per §9 open question (a):
// the Linux local-device report has no reliable MAC-bearing command, so
// callers must obtain the MAC from a neighbor's view of this host instead.
func (p *linuxParser) ParseDeviceFromLLDPLocalInfo(string) (*model.Device, error) {
	return model.NewDevice(""), nil
}

var lldpctlSeparator = regexp.MustCompile(`^-+$`)

// ParseInterfacesFromLLDPRemoteInfo walks lldpctl output, skipping its
// 4-line banner and splitting records on "----" separator lines. Each
// completed interface is appended to the current device's interfaces —
// Linux devices learn their interfaces here, not from a separate
// neighbors-detail command (§4.3.3).
func (p *linuxParser) ParseInterfacesFromLLDPRemoteInfo(text string) map[string]*model.Interface {
	interfaces := make(map[string]*model.Interface)
	lines := splitLines(text)
	if len(lines) > 4 {
		lines = lines[4:]
	} else {
		lines = nil
	}

	var current *model.Interface

	flush := func() {
		if current != nil && current.LocalPort != "" {
			interfaces[current.LocalPort] = current
		}
	}

	for _, line := range lines {
		if lldpctlSeparator.MatchString(strings.TrimSpace(line)) {
			flush()
			current = model.NewInterface("")
			continue
		}
		if current == nil {
			current = model.NewInterface("")
		}
		if !strings.Contains(line, ":") {
			continue
		}
		key, value := extractKeyValue(line)
		switch {
		case key == "Interface":
			current.LocalPort = firstCommaToken(value)
		case key == "ChassisID":
			current.RemoteMACAddress = strings.ReplaceAll(strings.TrimPrefix(value, "mac "), ":", " ")
		case key == "SysName":
			current.RemoteSystemName = value
		case key == "PortDescr":
			current.RemotePort = value
		}
	}
	flush()

	return interfaces
}

// ParseDevicesFromLLDPRemoteInfo attributes the same lldpctl records onto
// device (mutating it directly) rather than building separate neighbor
// Device values — a Linux host's MAC and description come from its own
// lldpctl view, mirrored across every interface record.
func (p *linuxParser) ParseDevicesFromLLDPRemoteInfo(device *model.Device, texts []string) []*model.Device {
	for _, text := range texts {
		lines := splitLines(text)
		if len(lines) > 4 {
			lines = lines[4:]
		} else {
			continue
		}

		for _, line := range lines {
			if !strings.Contains(line, ":") {
				continue
			}
			key, value := extractKeyValue(line)
			switch key {
			case "ChassisID":
				device.MACAddress = strings.ReplaceAll(strings.TrimPrefix(value, "mac "), ":", " ")
			case "SysName":
				device.SystemName = value
			case "SysDescr":
				device.SystemDescription = value
			case "Capability":
				if !strings.Contains(value, ",") {
					continue
				}
				tokens := strings.SplitN(value, ",", 2)
				token := strings.TrimSpace(tokens[0])
				appendCapability(&device.SupportedCapabilities, token)
				if strings.TrimSpace(tokens[1]) == "on" {
					appendCapability(&device.EnabledCapabilities, token)
				}
			}
		}
	}

	// This pathway never produces separate neighbor Device values: the
	// Linux device's own record is mutated in place, matching §9 open
	// question (a) — neighbors elsewhere in the crawl learn this host's
	// MAC from their own interface records, not from here.
	return nil
}

func appendCapability(field *string, token string) {
	if *field == "" {
		*field = token
		return
	}
	*field = *field + ", " + token
}

var ifconfigVlanLine = regexp.MustCompile(`([A-Za-z]+[0-9]*)\.([0-9A-Za-z]+)`)

// ParseVlans always returns empty: Linux assigns VLANs directly from
// ifconfig via AssociateVlansToInterfaces (single-phase, §4.3.3).
func (p *linuxParser) ParseVlans(string) map[string]model.Vlan { return nil }

func (p *linuxParser) AssociateVlanToInterfaces(map[string]*model.Interface, model.Vlan, string) {}

// AssociateVlansToInterfaces extracts (port, vlan-id) pairs from ifconfig
// output. A port already known as a real interface (learned from lldpctl)
// gets the VLAN attached immediately; any other port is assumed to name a
// bond master and is buffered in pending until the host explorer drives it
// through PendingBondCandidates/RecordBondSlaves/FlushPendingVlans (§9).
func (p *linuxParser) AssociateVlansToInterfaces(interfaces map[string]*model.Interface, text string) {
	for _, line := range splitLines(text) {
		m := ifconfigVlanLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		port, vlanID := m[1], m[2]

		if iface, ok := interfaces[port]; ok {
			iface.AddVlan(model.Vlan{Identifier: vlanID})
			continue
		}

		if p.pendingVlans == nil {
			p.pendingVlans = make(map[string]string)
		}
		p.pendingVlans[port] = vlanID
	}
}

// PendingBondCandidates lists the ifconfig-reported port names awaiting a
// bonding/slaves lookup before their VLAN can be resolved.
func (p *linuxParser) PendingBondCandidates() []string {
	candidates := make([]string, 0, len(p.pendingVlans))
	for name := range p.pendingVlans {
		candidates = append(candidates, name)
	}
	return candidates
}

// RecordBondSlaves records the result of
// "cat /sys/class/net/<name>/bonding/slaves" for one candidate. An empty
// or error response (not a bond) leaves it unresolved.
func (p *linuxParser) RecordBondSlaves(name, slavesOutput string) {
	slaves := strings.Fields(strings.TrimSpace(slavesOutput))
	if len(slaves) == 0 {
		return
	}
	if p.knownSlaves == nil {
		p.knownSlaves = make(map[string][]string)
	}
	p.knownSlaves[name] = slaves
}

// FlushPendingVlans resolves every still-pending candidate against what
// RecordBondSlaves learned: a candidate with known slaves synthesizes a
// Trunk and the VLAN fans out to each slave's Interface; a candidate with
// no slaves (ifconfig named something that was not actually a bond) is
// simply dropped, since there is no Interface to attach it to either.
func (p *linuxParser) FlushPendingVlans(interfaces map[string]*model.Interface) {
	for name, vlanID := range p.pendingVlans {
		slaves, ok := p.knownSlaves[name]
		if !ok {
			continue
		}
		trunk := model.NewTrunk(name, name, "")
		for _, slave := range slaves {
			trunk.AddPort(slave)
			if iface, ok := interfaces[slave]; ok {
				iface.AddVlan(model.Vlan{Identifier: vlanID})
			}
		}
		p.trunks[name] = trunk
		delete(p.pendingVlans, name)
	}
}

// ParseTrunks returns the bonds synthesized while flushing pending VLANs.
func (p *linuxParser) ParseTrunks(map[string]*model.Interface, string) map[string]*model.Trunk {
	return p.trunks
}

var virshHeaderEnglish = []string{"Name", "State"}
var virshHeaderFrench = []string{"Nom", "État"}

// ParseVMsList detects either English or French virsh header columns,
// then slices each data row by those column offsets.
func (p *linuxParser) ParseVMsList(text string) []model.VirtualMachine {
	var vms []model.VirtualMachine
	nameCol, stateCol := -1, -1

	for _, line := range splitLines(text) {
		if nameCol < 0 {
			if idx, ok := matchVirshHeader(line, virshHeaderEnglish); ok {
				nameCol = idx[0]
				stateCol = idx[1]
				continue
			}
			if idx, ok := matchVirshHeader(line, virshHeaderFrench); ok {
				nameCol = idx[0]
				stateCol = idx[1]
				continue
			}
			continue
		}
		if strings.TrimSpace(line) == "" || strings.Contains(line, "----") || strings.HasSuffix(strings.TrimSpace(line), "#") {
			continue
		}

		id := strings.TrimSpace(safeSlice(line, 0, nameCol))
		name := strings.TrimSpace(safeSlice(line, nameCol, stateCol))
		state := strings.TrimSpace(safeFrom(line, stateCol))

		vm := model.VirtualMachine{Identifier: id, Name: name, State: state}
		if vm.IsValid() {
			vms = append(vms, vm)
		}
	}

	return vms
}

func matchVirshHeader(line string, cols []string) ([2]int, bool) {
	if !strings.Contains(line, cols[0]) || !strings.Contains(line, cols[1]) {
		return [2]int{}, false
	}
	return [2]int{strings.Index(line, cols[0]), strings.Index(line, cols[1])}, true
}
