package crawl

import (
	"sync"
	"testing"

	"github.com/osiriscare/netmapd/internal/auth"
	"github.com/osiriscare/netmapd/internal/explorer"
	"github.com/osiriscare/netmapd/internal/model"
)

func neighborDevice(mac, name string) *model.Device {
	d := model.NewDevice(name)
	d.MACAddress = mac
	d.EnabledCapabilities = "Bridge"
	d.SystemDescription = "ProCurve J9280A"
	return d
}

// TestController_CycleAvoidance exercises scenario 5 from §8: two
// switches each list the other as a neighbor. Exactly two entries must
// land in the explored-set, and the second switch's reverse edge must
// not cause sw1 to be re-enqueued and re-explored.
func TestController_CycleAvoidance(t *testing.T) {
	var mu sync.Mutex
	exploreCount := map[string]int{}

	c := New(nil, 4, explorer.Options{})
	c.exploreFn = func(_ *auth.Resolver, hostname, _ string, _ explorer.Options) explorer.Result {
		mu.Lock()
		exploreCount[hostname]++
		mu.Unlock()

		switch hostname {
		case "sw1":
			d := neighborDevice("00 11 22 33 44 01", "sw1")
			return explorer.Result{Device: d, Neighbors: []*model.Device{neighborDevice("00 11 22 33 44 02", "sw2")}}
		case "sw2":
			d := neighborDevice("00 11 22 33 44 02", "sw2")
			return explorer.Result{Device: d, Neighbors: []*model.Device{neighborDevice("00 11 22 33 44 01", "sw1")}}
		default:
			t.Fatalf("unexpected host explored: %q", hostname)
			return explorer.Result{}
		}
	}

	result := c.Run(Stub{SystemName: "sw1"})

	if len(result) != 2 {
		t.Fatalf("expected exactly 2 explored devices, got %d: %+v", len(result), result)
	}
	if _, ok := result["00 11 22 33 44 01"]; !ok {
		t.Fatalf("expected sw1 keyed by its mac, got %+v", result)
	}
	if _, ok := result["00 11 22 33 44 02"]; !ok {
		t.Fatalf("expected sw2 keyed by its mac, got %+v", result)
	}

	mu.Lock()
	defer mu.Unlock()
	if exploreCount["sw1"] != 1 || exploreCount["sw2"] != 1 {
		t.Fatalf("expected each host explored exactly once, got %+v", exploreCount)
	}
}

// TestController_SkipsInvalidNeighbor exercises the LLDP-validity gate in
// §4.5: a neighbor lacking bridge capability or a recognized vendor token
// must not be enqueued at all.
func TestController_SkipsInvalidNeighbor(t *testing.T) {
	c := New(nil, 2, explorer.Options{})

	c.exploreFn = func(_ *auth.Resolver, hostname, _ string, _ explorer.Options) explorer.Result {
		if hostname != "sw1" {
			t.Fatalf("invalid neighbor should never be explored, got %q", hostname)
		}
		invalid := model.NewDevice("unknown-vendor-box")
		invalid.MACAddress = "00 00 00 00 00 99"
		// no EnabledCapabilities/SystemDescription set: not LLDP-valid

		d := neighborDevice("00 11 22 33 44 01", "sw1")
		return explorer.Result{Device: d, Neighbors: []*model.Device{invalid}}
	}

	result := c.Run(Stub{SystemName: "sw1"})
	if len(result) != 1 {
		t.Fatalf("expected only sw1 in the explored-set, got %+v", result)
	}
}

// TestController_OnDiscoverFiresOncePerDevice exercises the optional
// incremental persistence hook: it must be called exactly once per
// completed exploration, including the seed, and must observe the
// device under its final (post-explore) key.
func TestController_OnDiscoverFiresOncePerDevice(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}

	c := New(nil, 2, explorer.Options{})
	c.exploreFn = func(_ *auth.Resolver, hostname, _ string, _ explorer.Options) explorer.Result {
		switch hostname {
		case "sw1":
			d := neighborDevice("00 11 22 33 44 01", "sw1")
			return explorer.Result{Device: d, Neighbors: []*model.Device{neighborDevice("00 11 22 33 44 02", "sw2")}}
		default:
			d := neighborDevice("00 11 22 33 44 02", "sw2")
			return explorer.Result{Device: d}
		}
	}
	c.OnDiscover = func(d *model.Device) {
		mu.Lock()
		defer mu.Unlock()
		seen[d.Key()]++
	}

	c.Run(Stub{SystemName: "sw1"})

	mu.Lock()
	defer mu.Unlock()
	if seen["00 11 22 33 44 01"] != 1 || seen["00 11 22 33 44 02"] != 1 {
		t.Fatalf("expected each device reported to OnDiscover exactly once, got %+v", seen)
	}
}

// TestController_SeedNotInsertedByName confirms the seed is never left
// in the explored-set under its stub name once its MAC is known (§9).
func TestController_SeedNotInsertedByName(t *testing.T) {
	c := New(nil, 1, explorer.Options{})
	c.exploreFn = func(_ *auth.Resolver, hostname, _ string, _ explorer.Options) explorer.Result {
		d := neighborDevice("00 aa bb cc dd ee", hostname)
		return explorer.Result{Device: d}
	}

	result := c.Run(Stub{SystemName: "sw1"})
	if _, ok := result["sw1"]; ok {
		t.Fatalf("seed must not be present under its stub name once a mac is known, got %+v", result)
	}
	if _, ok := result["00 aa bb cc dd ee"]; !ok {
		t.Fatalf("expected seed keyed by its discovered mac, got %+v", result)
	}
}
