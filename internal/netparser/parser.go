// Package netparser implements the vendor-dispatched output-parser family:
// three parser variants (HP ProCurve, Juniper JUNOS, Linux/lldpd) sharing
// one contract, each turning a vendor's free-form CLI text into the common
// model.Device/Interface/Vlan/Trunk/VirtualMachine types.
//
// A parser instance is constructed fresh per host by Select and may carry
// small scratch state across calls within that one host's exploration
// (e.g. HP's buffered trunk-VLAN assignments); the command vocabulary and
// prompt marker each instance reports are themselves immutable and would
// be identical for any host of that vendor.
package netparser

import (
	"strings"

	"github.com/osiriscare/netmapd/internal/model"
)

// Parser is the contract the host explorer drives. Any command method
// returning ok=false means "skip this phase on this vendor" (§4.3).
type Parser interface {
	PromptMarker() string
	PreparationCommands() []string

	LLDPLocalCmd() (cmd string, ok bool)
	LLDPNeighborsCmd() string
	LLDPNeighborsDetailCmd(port string) (cmd string, ok bool)
	TrunksListCmd() (cmd string, ok bool)
	VlansGlobalCmd() (cmd string, ok bool)
	VlansSpecificCmd(vlanID string) (cmd string, ok bool)
	VMsListCmd() (cmd string, ok bool)

	ParseDeviceFromLLDPLocalInfo(text string) (*model.Device, error)
	ParseInterfacesFromLLDPRemoteInfo(text string) map[string]*model.Interface
	ParseDevicesFromLLDPRemoteInfo(device *model.Device, texts []string) []*model.Device
	ParseVlans(text string) map[string]model.Vlan
	AssociateVlansToInterfaces(interfaces map[string]*model.Interface, text string)
	AssociateVlanToInterfaces(interfaces map[string]*model.Interface, vlan model.Vlan, text string)
	ParseTrunks(interfaces map[string]*model.Interface, text string) map[string]*model.Trunk
	ParseVMsList(text string) []model.VirtualMachine
	VlanDetailStr(vlan model.Vlan) string
}

// BondResolver is implemented by parsers whose VLAN assignment needs a
// follow-up per-candidate query before it can be finalized (Linux: a
// candidate bond master discovered in ifconfig needs its
// bonding/slaves file read before the VLAN can fan out to real ports).
// The host explorer type-asserts for this after the single-phase
// AssociateVlansToInterfaces call.
type BondResolver interface {
	PendingBondCandidates() []string
	RecordBondSlaves(name, output string)
	FlushPendingVlans(interfaces map[string]*model.Interface)
}

// Select scans the initial banner line-by-line and returns a freshly
// constructed parser for the recognized vendor, or nil when the banner
// names no supported vendor (including the explicit Cisco case — §4.3
// rule 4, §9 design note (b)).
func Select(banner string) Parser {
	for _, line := range strings.Split(banner, "\n") {
		switch {
		case containsAny(line, "ProCurve", "Hewlett-Packard", "HP"):
			return newHPParser()
		case containsAny(line, "Juniper", "JUNOS"):
			return newJuniperParser()
		case containsAny(line, "Linux", "Debian", "Ubuntu"):
			return newLinuxParser()
		case strings.Contains(line, "Cisco"):
			return nil
		}
	}
	return nil
}

func containsAny(s string, tokens ...string) bool {
	for _, tok := range tokens {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}

// extractKeyValue splits a "Key : Value" line on the first colon,
// trimming surrounding whitespace from both sides.
func extractKeyValue(line string) (key, value string) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return strings.TrimSpace(line), ""
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:])
}

// splitLines splits on "\n" and trims a trailing "\r" from each line, so
// callers don't need to care whether the driver handed them CRLF or LF.
func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, len(raw))
	for i, l := range raw {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}

// safeSlice returns s[start:end], clamped to s's actual length, rather
// than panicking on short fixed-width table rows.
func safeSlice(s string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if start > len(s) {
		return ""
	}
	if end > len(s) {
		end = len(s)
	}
	if end < start {
		return ""
	}
	return s[start:end]
}

// safeFrom returns s[start:], clamped to s's actual length.
func safeFrom(s string, start int) string {
	if start < 0 {
		start = 0
	}
	if start > len(s) {
		return ""
	}
	return s[start:]
}
