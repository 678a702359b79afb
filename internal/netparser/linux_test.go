package netparser

import (
	"strings"
	"testing"

	"github.com/osiriscare/netmapd/internal/model"
)

// lldpctl output: a 4-line banner, then one record per neighbor separated
// by a line of dashes (§4.3.3).
const lldpctlOutput = `-------------------------------------------------------------------------------` + "\n" +
	`LLDP neighbors:` + "\n" +
	`-------------------------------------------------------------------------------` + "\n" +
	`` + "\n" +
	`-------------------------------------------------------------------------------` + "\n" +
	`Interface:    eth0, via: LLDP, RID: 1, Time: 0 day, 00:01:00` + "\n" +
	`  ChassisID:    mac 00:aa:bb:cc:dd:ee` + "\n" +
	`  SysName:      switch-a` + "\n" +
	`  PortDescr:    1/1` + "\n" +
	`-------------------------------------------------------------------------------`

func TestLinuxParser_ParseInterfacesFromLLDPRemoteInfo(t *testing.T) {
	p := newLinuxParser()
	ifaces := p.ParseInterfacesFromLLDPRemoteInfo(lldpctlOutput)
	if len(ifaces) != 1 {
		t.Fatalf("expected 1 interface, got %d: %+v", len(ifaces), ifaces)
	}
	iface, ok := ifaces["eth0"]
	if !ok {
		t.Fatalf("expected interface eth0, got %+v", ifaces)
	}
	if iface.RemoteMACAddress != "00 aa bb cc dd ee" {
		t.Fatalf("unexpected remote mac: %q", iface.RemoteMACAddress)
	}
	if !iface.IsValidLLDPInterface() {
		t.Fatalf("expected valid lldp interface (remote system name present)")
	}
}

// TestLinuxParser_BondAndVlanFanOut exercises the Linux bond+VLAN scenario
// (§8 scenario 4): ifconfig reports a VLAN on a bond master (bond0), and a
// prior bonding/slaves query result reassigns it onto each physical slave.
func TestLinuxParser_BondAndVlanFanOut(t *testing.T) {
	p := newLinuxParser()
	interfaces := map[string]*model.Interface{
		"eth0": model.NewInterface("eth0"),
		"eth1": model.NewInterface("eth1"),
	}

	ifconfigOutput := "bond0.10  Link encap:Ethernet  HWaddr 00:11:22:33:44:55\n" +
		"          inet addr:10.0.0.5  Bcast:10.0.0.255  Mask:255.255.255.0\n"
	p.AssociateVlansToInterfaces(interfaces, ifconfigOutput)

	candidates := p.PendingBondCandidates()
	if len(candidates) != 1 || candidates[0] != "bond0" {
		t.Fatalf("expected bond0 as the sole pending candidate, got %+v", candidates)
	}
	p.RecordBondSlaves("bond0", "eth0 eth1\n")
	p.FlushPendingVlans(interfaces)

	for _, name := range []string{"eth0", "eth1"} {
		iface := interfaces[name]
		if _, ok := iface.Vlans["10"]; !ok {
			t.Fatalf("expected %s to receive vlan 10 via bond fan-out, got %+v", name, iface.Vlans)
		}
	}

	trunks := p.ParseTrunks(interfaces, "")
	trunk, ok := trunks["bond0"]
	if !ok {
		t.Fatalf("expected bond0 to be synthesized as a trunk, got %+v", trunks)
	}
	if len(trunk.Ports) != 2 {
		t.Fatalf("expected 2 slave ports, got %d: %+v", len(trunk.Ports), trunk.Ports)
	}
}

func TestLinuxParser_VlanWithoutBondAttachesDirectly(t *testing.T) {
	p := newLinuxParser()
	interfaces := map[string]*model.Interface{
		"eth2": model.NewInterface("eth2"),
	}

	ifconfigOutput := "eth2.20  Link encap:Ethernet  HWaddr 00:11:22:33:44:66\n"
	p.AssociateVlansToInterfaces(interfaces, ifconfigOutput)

	if _, ok := interfaces["eth2"].Vlans["20"]; !ok {
		t.Fatalf("expected eth2 to receive vlan 20 directly, got %+v", interfaces["eth2"].Vlans)
	}
}

// buildVirshTable lines up rows at the same column offsets ParseVMsList
// discovers at runtime via strings.Index on the header line.
func buildVirshTable(rows [][3]string) string {
	header := padTo("Id", 6) + "Name"
	header = padTo(header, 37) + "State\n"

	var b strings.Builder
	b.WriteString(header)
	for _, row := range rows {
		id, name, state := row[0], row[1], row[2]
		line := padTo(id, 6) + name
		line = padTo(line, 37) + state + "\n"
		b.WriteString(line)
	}
	return b.String()
}

var virshListAll = buildVirshTable([][3]string{
	{"1", "vm-one", "running"},
	{"-", "vm-two", "shut off"},
})

func TestLinuxParser_ParseVMsList(t *testing.T) {
	p := newLinuxParser()
	vms := p.ParseVMsList(virshListAll)
	if len(vms) != 1 {
		t.Fatalf("expected 1 valid vm (the shut-off placeholder id must be dropped), got %d: %+v", len(vms), vms)
	}
	if vms[0].Name != "vm-one" {
		t.Fatalf("unexpected vm name: %q", vms[0].Name)
	}
}
