// capture runs the health dump command against a live machine and stores
// the document as a pretty-printed snapshot under testdata/, for replaying
// through the exporter's file source or for building regression fixtures.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

func main() {
	var (
		command = flag.String("command", "hpilo-health", "Health dump command to run")
		args    = flag.String("args", "--json", "Comma-separated arguments for the dump command")
		output  = flag.String("output", "", "Snapshot name under testdata/ (required)")
		timeout = flag.Duration("timeout", 3*time.Minute, "Dump command timeout")
	)
	flag.Parse()

	if *output == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var cmdArgs []string
	if *args != "" {
		cmdArgs = strings.Split(*args, ",")
	}

	start := time.Now()
	raw, err := exec.CommandContext(ctx, *command, cmdArgs...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			log.Fatalf("%s failed: %v: %s", *command, err, exitErr.Stderr)
		}
		log.Fatalf("%s failed: %v", *command, err)
	}

	// Round-trip through a map so the snapshot is pretty-printed with
	// stable key order, which keeps fixture diffs reviewable.
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		log.Fatalf("%s produced invalid JSON: %v", *command, err)
	}
	pretty, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		log.Fatal(err)
	}

	path := filepath.Join("testdata", *output+".json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Fatal(err)
	}
	if err := os.WriteFile(path, append(pretty, '\n'), 0o644); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("captured %d categories (%d bytes) in %s -> %s\n",
		len(doc), len(pretty), time.Since(start).Round(time.Millisecond), path)
	for key := range doc {
		fmt.Printf("  %s\n", key)
	}
}
