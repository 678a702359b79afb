// netmapd discovers the physical topology of a switched network: seeded
// with one host, it crawls outward over SSH through LLDP neighbor
// information and writes the resulting device graph as JSON (§6).
//
// Usage:
//
//	netmapd [-v] /etc/netmapd/config.ini
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/osiriscare/netmapd/internal/config"
	"github.com/osiriscare/netmapd/internal/crawl"
	"github.com/osiriscare/netmapd/internal/explorer"
	"github.com/osiriscare/netmapd/internal/model"
	"github.com/osiriscare/netmapd/internal/sdnotify"
	"github.com/osiriscare/netmapd/internal/store"
)

var (
	flagVerbose    = flag.Bool("v", false, "enable verbose logging")
	flagMaxWorkers = flag.Int("max-workers", 16, "maximum number of hosts explored concurrently")
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: netmapd [-v] [-max-workers N] <config-file>")
		os.Exit(2)
	}
	configPath := flag.Arg(0)

	log.SetFlags(log.LstdFlags)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("netmapd: %v", err)
	}

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatalf("netmapd: open log file %q: %v", cfg.LogFile, err)
		}
		defer f.Close()
		log.SetOutput(f)
	}
	if *flagVerbose {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	log.Printf("[netmapd] starting crawl from %s (max-workers=%d)", cfg.SourceAddress, *flagMaxWorkers)
	sdnotify.Status("crawling network topology")

	explorerOpts := explorer.Options{
		ConnectTimeout:  cfg.SSHTimeout,
		MaxBytesPerRead: cfg.MaxBytesToReceive,
	}
	controller := crawl.New(cfg.Resolver, *flagMaxWorkers, explorerOpts)

	if cfg.PostgresDSN != "" {
		sink, err := store.Open(context.Background(), cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("netmapd: %v", err)
		}
		defer sink.Close()

		controller.OnDiscover = func(device *model.Device) {
			if err := sink.UpsertDevice(context.Background(), device); err != nil {
				log.Printf("[netmapd] incremental persistence: %v", err)
			}
		}
	}

	devices := controller.Run(crawl.Stub{SystemName: cfg.SourceAddress})

	log.Printf("[netmapd] crawl complete: %d devices discovered", len(devices))
	sdnotify.Ready()

	if err := writeOutput(cfg.OutputFile, devices); err != nil {
		log.Fatalf("netmapd: %v", err)
	}
}

// writeOutput serializes the explored-set as a JSON array of device
// objects (§6 — an unordered mapping, so only the array contents, not
// the keys, are part of the contract).
func writeOutput(path string, devices map[string]*model.Device) error {
	ordered := make([]*model.Device, 0, len(devices))
	for _, d := range devices {
		ordered = append(ordered, d)
	}

	data, err := json.MarshalIndent(ordered, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal devices: %w", err)
	}

	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}
	return nil
}
