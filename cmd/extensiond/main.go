// Command extensiond is a minimal driver for the extension runtime: it
// loads one or more component binaries named on the command line,
// invokes init-extension against each, and prints the negotiated ABI
// version. It exists to exercise the library end to end the way every
// wazero example ships a tiny main driving the library, even though no
// single example here is itself a long-running editor host.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	extensionrt "github.com/klyx-dev/extensionrt"
	"github.com/klyx-dev/extensionrt/internal/capability"
	"github.com/klyx-dev/extensionrt/internal/collaborator"
	"github.com/klyx-dev/extensionrt/manifest"
)

func main() {
	var (
		workDir  = flag.String("work-dir", "", "base work directory extensions are sandboxed under (required)")
		allowAll = flag.Bool("allow-all", false, "grant every capability request instead of the deny-all default; local development only")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s -work-dir DIR extension.wasm [extension.wasm ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *workDir == "" || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*workDir, *allowAll, flag.Args()); err != nil {
		slog.Error("extensiond failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(workDir string, allowAll bool, paths []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var granter capability.Granter = capability.DenyAll{}
	if allowAll {
		granter = capability.AllowAll{}
	}

	rt := extensionrt.NewRuntime(ctx, workDir)
	defer rt.Shutdown(ctx)

	var handles []*extensionrt.Handle
	defer func() {
		for _, h := range handles {
			h.Close()
		}
	}()

	for _, path := range paths {
		bytes, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		m, err := loadManifest(path)
		if err != nil {
			return fmt.Errorf("manifest for %s: %w", path, err)
		}

		h, err := rt.LoadExtension(ctx, bytes, m, granter, collaborator.Set{})
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		handles = append(handles, h)

		fmt.Printf("%-30s %-10s guest ABI %s\n", m.ID, m.Version, h.ABIVersion)
	}
	return nil
}

// loadManifest looks for a manifest.json alongside the binary; absent
// that, it synthesizes a minimal manifest from the file name, which is
// enough to drive init-extension and the sandbox work directory but not
// a production deployment.
func loadManifest(wasmPath string) (manifest.Manifest, error) {
	dir := filepath.Dir(wasmPath)
	manifestPath := filepath.Join(dir, "manifest.json")
	if data, err := os.ReadFile(manifestPath); err == nil {
		var m manifest.Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			return manifest.Manifest{}, fmt.Errorf("parse %s: %w", manifestPath, err)
		}
		return m, nil
	}

	id := strings.TrimSuffix(filepath.Base(wasmPath), filepath.Ext(wasmPath))
	return manifest.Manifest{ID: id, Name: id, Version: "0.0.0"}, nil
}
