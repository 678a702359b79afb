// Package explorer drives one host through the LLDP exploration sequence
// (§4.4): resolve credentials, open the SSH session, select a vendor
// parser from the banner, walk the vendor command vocabulary, and return
// the completed Device plus the neighbor stubs discovered along the way.
package explorer

import (
	"log"
	"time"

	"github.com/osiriscare/netmapd/internal/auth"
	"github.com/osiriscare/netmapd/internal/model"
	"github.com/osiriscare/netmapd/internal/netparser"
	"github.com/osiriscare/netmapd/internal/session"
)

// Options configures one host exploration: connection timing and the byte
// ceiling the session driver enforces per read.
type Options struct {
	Port            int
	ConnectTimeout  time.Duration
	MaxBytesPerRead int
}

// Result is what one host's exploration produces: the device itself
// (status set on any terminal outcome) and, when exploration reached far
// enough to discover them, its LLDP-valid neighbors ready for enqueueing.
type Result struct {
	Device    *model.Device
	Neighbors []*model.Device
}

// Explore runs the 12-step sequence from §4.4 against one host. deviceType
// is the hint passed through to the auth resolver's fallback lookup (the
// device-type/"default" profile match); it may be empty.
func Explore(resolver *auth.Resolver, hostname, deviceType string, opts Options) Result {
	params, err := resolver.Resolve(hostname, deviceType)
	if err == auth.ErrNoAuthRequested {
		return Result{Device: terminal(hostname, model.StatusNoAuthRequested)}
	}
	if err != nil {
		// Any other resolver error, including a *auth.ConfigError (a rule
		// naming a missing profile, or no glob, device-type or "default"
		// profile for this host), is logged and recorded as UNREACHABLE.
		// It does not halt the crawl, and the crawl controller does not
		// check for it before dispatching a host.
		log.Printf("[explorer] %s: auth resolve failed: %v", hostname, err)
		return Result{Device: terminal(hostname, model.StatusUnreachable)}
	}

	driver := session.New(hostname, opts.MaxBytesPerRead)
	creds := session.Credentials{Username: params.Username, Password: params.Password, KeyPEM: params.KeyPEM}

	openErr := openWithRetry(driver, hostname, opts, creds)
	if openErr != nil {
		return Result{Device: terminal(hostname, statusForOpenError(openErr))}
	}
	defer driver.Close()

	banner := driver.ReadOutput()
	parser := netparser.Select(banner)
	if parser == nil {
		return Result{Device: terminal(hostname, model.StatusUnrecognized)}
	}

	for _, cmd := range parser.PreparationCommands() {
		driver.Send(cmd, parser.PromptMarker())
		time.Sleep(500 * time.Millisecond)
	}

	localText := ""
	if cmd, ok := parser.LLDPLocalCmd(); ok {
		localText = driver.Send(cmd, parser.PromptMarker())
	}
	device, err := parser.ParseDeviceFromLLDPLocalInfo(localText)
	if err != nil {
		return Result{Device: terminal(hostname, model.StatusParseFailed)}
	}
	if device.SystemName == "" {
		device.SystemName = hostname
	}

	neighborsText := driver.Send(parser.LLDPNeighborsCmd(), parser.PromptMarker())
	interfaces := parser.ParseInterfacesFromLLDPRemoteInfo(neighborsText)
	device.Interfaces = interfaces

	detailTexts := []string{neighborsText}
	if len(interfaces) > 0 {
		detailTexts = nil
		for port := range interfaces {
			if cmd, ok := parser.LLDPNeighborsDetailCmd(port); ok {
				detailTexts = append(detailTexts, driver.Send(cmd, parser.PromptMarker()))
			}
		}
		if len(detailTexts) == 0 {
			detailTexts = []string{neighborsText}
		}
	}
	neighborDevices := parser.ParseDevicesFromLLDPRemoteInfo(device, detailTexts)

	assignVlans(driver, parser, device)

	trunkText := ""
	if cmd, ok := parser.TrunksListCmd(); ok {
		trunkText = driver.Send(cmd, parser.PromptMarker())
	}
	device.Trunks = parser.ParseTrunks(device.Interfaces, trunkText)

	if cmd, ok := parser.VMsListCmd(); ok {
		device.VirtualMachines = parser.ParseVMsList(driver.Send(cmd, parser.PromptMarker()))
	}

	device.Status = model.StatusOK

	var validNeighbors []*model.Device
	for _, n := range neighborDevices {
		if n != nil && n.IsValidLLDPDevice() {
			validNeighbors = append(validNeighbors, n)
		}
	}

	return Result{Device: device, Neighbors: validNeighbors}
}

// commandSender is the slice of *session.Driver that assignVlans needs —
// narrowed to an interface so the dispatch logic can be exercised without a
// live SSH session.
type commandSender interface {
	Send(command, promptMarker string) string
}

// assignVlans mirrors _assign_vlans_to_interfaces: a vendor that returns at
// least one VLAN from its global listing is driven through the two-phase
// per-VLAN detail dispatch; a vendor that returns none (Juniper, Linux) is
// assumed to use the single-phase AssociateVlansToInterfaces pathway
// instead, fed directly from the global listing's own text.
func assignVlans(driver commandSender, parser netparser.Parser, device *model.Device) {
	cmd, ok := parser.VlansGlobalCmd()
	if !ok {
		return
	}
	globalText := driver.Send(cmd, parser.PromptMarker())
	vlans := parser.ParseVlans(globalText)

	if len(vlans) == 0 {
		parser.AssociateVlansToInterfaces(device.Interfaces, globalText)
		if resolver, ok := parser.(netparser.BondResolver); ok {
			for _, candidate := range resolver.PendingBondCandidates() {
				detailCmd, ok := parser.VlansSpecificCmd(candidate)
				if !ok {
					continue
				}
				output := driver.Send(detailCmd, parser.PromptMarker())
				resolver.RecordBondSlaves(candidate, output)
			}
			resolver.FlushPendingVlans(device.Interfaces)
		}
		return
	}

	for _, vlan := range vlans {
		detailCmd, ok := parser.VlansSpecificCmd(parser.VlanDetailStr(vlan))
		if !ok {
			continue
		}
		detailText := driver.Send(detailCmd, parser.PromptMarker())
		parser.AssociateVlanToInterfaces(device.Interfaces, vlan, detailText)
	}
}

// openMaxAttempts bounds the retry budget on transient connect failures
// (§9 open question (c) — the source's retry policy is weakly specified;
// three attempts with linear backoff is the safest reading).
const openMaxAttempts = 3

// openRetryBackoff is the per-attempt backoff step: attempt 1 waits this
// long, attempt 2 waits double, and so on.
const openRetryBackoff = 2 * time.Second

// openWithRetry retries driver.Open on transient failures (unreachable,
// timeout) but never on an authentication failure, matching §4.4 step 2:
// "authentication failures are not retried."
func openWithRetry(driver *session.Driver, hostname string, opts Options, creds session.Credentials) error {
	var lastErr error
	for attempt := 1; attempt <= openMaxAttempts; attempt++ {
		err := driver.Open(hostname, opts.Port, opts.ConnectTimeout, creds)
		if err == nil {
			return nil
		}
		lastErr = err

		var openErr *session.OpenError
		if oe, ok := err.(*session.OpenError); ok {
			openErr = oe
		}
		if openErr != nil && openErr.Kind == session.FailureAuth {
			return err
		}
		if attempt == openMaxAttempts {
			break
		}
		log.Printf("[explorer] %s: connect attempt %d/%d failed: %v", hostname, attempt, openMaxAttempts, err)
		time.Sleep(time.Duration(attempt) * openRetryBackoff)
	}
	return lastErr
}

func terminal(hostname string, status model.Status) *model.Device {
	d := model.NewDevice(hostname)
	d.Status = status
	return d
}

func statusForOpenError(err error) model.Status {
	oe, ok := err.(*session.OpenError)
	if !ok {
		return model.StatusUnreachable
	}
	switch oe.Kind {
	case session.FailureAuth:
		return model.StatusAuthFailed
	case session.FailureTimeout, session.FailureUnreachable:
		return model.StatusUnreachable
	default:
		return model.StatusUnreachable
	}
}
