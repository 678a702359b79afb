package model

import "testing"

func TestInterface_AddVlan_Idempotent(t *testing.T) {
	i := NewInterface("1")
	v := Vlan{Identifier: "52", Name: "rch iut sud", Mode: VlanModeTagged, Status: VlanStatusUp}

	i.AddVlan(v)
	i.AddVlan(v)
	i.AddVlan(Vlan{Identifier: "52", Name: "different name wins nothing"})

	if len(i.Vlans) != 1 {
		t.Fatalf("expected exactly one VLAN entry after repeated adds, got %d", len(i.Vlans))
	}
	if i.Vlans["52"].Name != "rch iut sud" {
		t.Fatalf("expected first add to win, got %q", i.Vlans["52"].Name)
	}
}

func TestInterface_IsValidLLDPInterface(t *testing.T) {
	valid := &Interface{RemoteSystemName: "sw2"}
	if !valid.IsValidLLDPInterface() {
		t.Fatal("expected interface with remote system name to be valid")
	}

	invalid := &Interface{}
	if invalid.IsValidLLDPInterface() {
		t.Fatal("expected interface without remote system name to be invalid")
	}
}
