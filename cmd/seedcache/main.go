package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/safing/seedcache/config"
	"github.com/safing/seedcache/info"
	"github.com/safing/seedcache/log"
	"github.com/safing/seedcache/modules"
	"github.com/safing/seedcache/run"
	"github.com/safing/seedcache/seedcache"
)

var (
	circuits    string
	packets     string
	printConfig bool
	serve       bool
)

func init() {
	flag.StringVar(&circuits, "circuit", "", "comma separated circuit ids to compute phases for")
	flag.StringVar(&packets, "packet", "", "comma separated packet hashes to compute phases for")
	flag.BoolVar(&printConfig, "print-config", false, "print the available config options and exit")
	flag.BoolVar(&serve, "serve", false, "keep running after computing phases")
}

func main() {
	info.Set("SeedCache", seedcache.Version(), "GPLv3")

	os.Exit(run.RunWith(afterStart))
}

func afterStart() error {
	if printConfig {
		data, err := config.ExportOptions()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return modules.ErrCleanExit
	}

	circuitIDs, err := parseIDs(circuits)
	if err != nil {
		return fmt.Errorf("invalid -circuit: %w", err)
	}
	packetHashes, err := parseIDs(packets)
	if err != nil {
		return fmt.Errorf("invalid -packet: %w", err)
	}

	for _, circuitID := range circuitIDs {
		for _, packetHash := range packetHashes {
			fmt.Printf(
				"circuit=%d packet=%d phase=%.12f\n",
				circuitID,
				packetHash,
				seedcache.ComputePhase(circuitID, packetHash),
			)
		}
	}

	if serve {
		log.Infof("main: seed cache is up, waiting for shutdown")
		return nil
	}
	return modules.ErrCleanExit
}

func parseIDs(s string) ([]uint64, error) {
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	ids := make([]uint64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 0, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
