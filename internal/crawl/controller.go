// Package crawl implements the parallel crawl controller (§4.5): a
// worker-per-host fan-out driven by a discovered-neighbor queue, with a
// mutex-guarded explored-set for deduplication and termination on
// queue-empty-and-no-worker-alive. Grounded on the mutex-guarded shared
// state and sync.WaitGroup goroutine-drain idioms the daemon uses to
// manage its own background workers.
package crawl

import (
	"sync"

	"github.com/osiriscare/netmapd/internal/auth"
	"github.com/osiriscare/netmapd/internal/explorer"
	"github.com/osiriscare/netmapd/internal/model"
)

// Stub is a not-yet-explored device reference on the crawl queue:
// minimally a system_name, optionally a device-type hint used only to
// seed the auth resolver's fallback lookup.
type Stub struct {
	SystemName string
	DeviceType string
}

// Controller owns the queue, the explored-set, and the bounded worker
// pool for one crawl run. It is single-use: construct with New, run once
// with Run, read the result.
type Controller struct {
	resolver        *auth.Resolver
	explorerOptions explorer.Options

	// exploreFn defaults to explorer.Explore; overridable in tests so the
	// fan-out/dedup/termination logic can be exercised without a real
	// SSH session.
	exploreFn func(resolver *auth.Resolver, hostname, deviceType string, opts explorer.Options) explorer.Result

	mu       sync.Mutex
	explored map[string]*model.Device

	queue   chan Stub
	pending sync.WaitGroup // live workers and in-flight enqueues
	sem     chan struct{}  // bounds concurrently live workers; nil means unbounded

	// OnDiscover, if set, is invoked once per completed exploration
	// (including failure-status stubs) right after it is inserted into
	// the explored-set. It backs the optional incremental persistence
	// sink (internal/store) — the controller's fan-out and dedup logic
	// is unaware of Postgres; it only calls a hook. Must be safe for
	// concurrent use, since workers call it from their own goroutines.
	OnDiscover func(device *model.Device)
}

// New returns a Controller ready to Run once. maxWorkers <= 0 means
// unbounded concurrency (§4.5 notes this is acceptable but discourages
// it for anything resembling a real fleet). opts is forwarded verbatim
// to every explorer.Explore call.
func New(resolver *auth.Resolver, maxWorkers int, opts explorer.Options) *Controller {
	c := &Controller{
		resolver:        resolver,
		explorerOptions: opts,
		exploreFn:       explorer.Explore,
		explored:        make(map[string]*model.Device),
		// The queue never holds more than one stub per device (insertion
		// is gated by the explored-set's atomic test-and-insert), so a
		// generous buffer avoids a worker blocking on enqueue of its own
		// neighbors while the drain loop keeps up.
		queue: make(chan Stub, 4096),
	}
	if maxWorkers > 0 {
		c.sem = make(chan struct{}, maxWorkers)
	}
	return c
}

// Run seeds the queue with one stub and blocks until the queue is empty
// and no worker is alive, returning the final explored-set (nil
// placeholder entries used only for in-flight deduplication are
// excluded). The seed is enqueued by system_name (its MAC is not yet
// known — §9 design note); the worker that explores it inserts the
// result under the MAC it discovers, never under the seed's name as a
// second, stale entry.
func (c *Controller) Run(seed Stub) map[string]*model.Device {
	// pending tracks only workers and in-flight enqueues, never drain
	// itself: drain can only return once the queue is closed, and the
	// queue can only be closed once pending reaches zero, so counting
	// drain in pending would be a cycle that never resolves. A separate
	// watcher goroutine closes the queue once pending drains to zero.
	// Add must happen before the watcher goroutine starts, not after —
	// otherwise Wait can observe a momentarily-zero counter and close
	// the queue before the seed is even sent.
	c.pending.Add(1)
	go func() {
		c.pending.Wait()
		close(c.queue)
	}()

	c.queue <- seed

	c.drain()

	c.mu.Lock()
	defer c.mu.Unlock()
	result := make(map[string]*model.Device, len(c.explored))
	for k, v := range c.explored {
		if v != nil {
			result[k] = v
		}
	}
	return result
}

// drain is the queue's single supervising loop, run on Run's own
// goroutine: for each stub it pops, it acquires a worker slot (blocking
// if the pool is already saturated) and launches exploreOne in its own
// goroutine, so new neighbors enqueued by an in-flight worker are
// picked up promptly rather than waiting behind that worker's own
// completion. It returns once the watcher goroutine closes the queue.
func (c *Controller) drain() {
	for stub := range c.queue {
		c.acquire()
		go func(s Stub) {
			defer c.pending.Done()
			defer c.release()
			c.exploreOne(s)
		}(stub)
	}
}

func (c *Controller) acquire() {
	if c.sem != nil {
		c.sem <- struct{}{}
	}
}

func (c *Controller) release() {
	if c.sem != nil {
		<-c.sem
	}
}

// exploreOne runs one host's full exploration, inserts its result into
// the explored-set, and enqueues every LLDP-valid, not-yet-seen neighbor
// it returned.
func (c *Controller) exploreOne(stub Stub) {
	result := c.exploreFn(c.resolver, stub.SystemName, stub.DeviceType, c.explorerOptions)

	c.insert(result.Device)

	for _, neighbor := range result.Neighbors {
		if !neighbor.IsValidLLDPDevice() {
			continue
		}
		if c.testAndMarkSeen(neighbor.MACAddress) {
			continue // already explored, or already enqueued by a concurrent worker
		}
		c.pending.Add(1)
		c.queue <- Stub{SystemName: neighbor.SystemName}
	}
}

// insert records a completed exploration under its canonical key
// (MAC once known, else the stub name it was explored under — §3).
func (c *Controller) insert(device *model.Device) {
	c.mu.Lock()
	c.explored[device.Key()] = device
	c.mu.Unlock()

	if c.OnDiscover != nil {
		c.OnDiscover(device)
	}
}

// testAndMarkSeen performs the atomic contains-or-insert the explored-
// set needs (§5): it reserves mac as seen (a nil placeholder, overwritten
// once that host's own worker completes) and reports whether it was
// already present, so two workers completing concurrently with the same
// neighbor MAC cannot both decide to enqueue it.
func (c *Controller) testAndMarkSeen(mac string) (alreadySeen bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.explored[mac]; ok {
		return true
	}
	c.explored[mac] = nil
	return false
}
