package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/unkn0wn-root/bakecache"
	"github.com/unkn0wn-root/bakecache/internal/report"
)

func runCLI(t *testing.T, args ...string) (report.Report, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	if err := run(context.Background(), args, &out, &errOut); err != nil {
		t.Fatalf("run %v: %v\nstderr:\n%s", args, err, errOut.String())
	}
	format := "json"
	for i, a := range args {
		if a == "-report" && i+1 < len(args) {
			format = args[i+1]
		}
	}
	rep, err := report.Decode(out.Bytes(), format)
	if err != nil {
		t.Fatalf("decode report: %v", err)
	}
	return rep, errOut.String()
}

func TestRun_DefaultsShareOneBake(t *testing.T) {
	rep, stderr := runCLI(t, "-frames", "5", "-renderers", "3")

	want := bakecache.Stats{Hits: 2, Misses: 1, Allocations: 1, Live: 1, References: 3}
	if diff := cmp.Diff(want, rep.Cache); diff != "" {
		t.Fatalf("cache stats (-want +got):\n%s", diff)
	}
	if rep.Frames != 5 || rep.Rebinds != 3 || rep.Dispatches != 1 {
		t.Fatalf("frames=%d rebinds=%d dispatches=%d", rep.Frames, rep.Rebinds, rep.Dispatches)
	}
	if rep.Device.Live != 0 || rep.Device.Allocated != rep.Device.Released {
		t.Fatalf("textures leaked: %+v", rep.Device)
	}
	if !strings.Contains(stderr, "simulation done") {
		t.Fatalf("missing completion log:\n%s", stderr)
	}
}

const variantScene = `
clouds:
  resolution: 64
  shadow_resolution: 16
  layer_a:
    cast_shadows: true
variants:
  - name: a
  - name: b
    resolution: 32
sun:
  orbit: 45
frames:
  count: 4
store:
  backend: ristretto
  ristretto:
    max_cost_mb: 16
log:
  adapter: slog
  level: warn
`

func TestRun_VariantsAndStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	if err := os.WriteFile(path, []byte(variantScene), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	for _, format := range report.Formats {
		t.Run(format, func(t *testing.T) {
			rep, _ := runCLI(t, "-config", path, "-renderers", "4", "-report", format)

			// two variants, and the orbiting sun re-keys both every frame
			if rep.Cache.Allocations != 8 {
				t.Fatalf("allocations=%d want 8", rep.Cache.Allocations)
			}
			if rep.Cache.Live != 2 || rep.Cache.References != 4 {
				t.Fatalf("live=%d refs=%d", rep.Cache.Live, rep.Cache.References)
			}
			if rep.Device.Live != 0 {
				t.Fatalf("device live=%d after close", rep.Device.Live)
			}
		})
	}
}

func TestRun_FlagErrors(t *testing.T) {
	cases := [][]string{
		{"-renderers", "0"},
		{"-report", "xml"},
		{"-config", "missing.yaml"},
		{"-log-level", "loud"},
	}
	for _, args := range cases {
		var out, errOut bytes.Buffer
		if err := run(context.Background(), args, &out, &errOut); err == nil {
			t.Fatalf("run %v: expected error", args)
		}
	}

	var out, errOut bytes.Buffer
	if err := run(context.Background(), []string{"-h"}, &out, &errOut); !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("-h: want ErrHelp, got %v", err)
	}
}

func TestRun_Interrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out, errOut bytes.Buffer
	if err := run(ctx, []string{"-frames", "100"}, &out, &errOut); err != nil {
		t.Fatalf("run: %v", err)
	}
	rep, err := report.Decode(out.Bytes(), "json")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rep.Frames != 0 {
		t.Fatalf("frames=%d after cancellation", rep.Frames)
	}
}

func TestRun_KioshunStore(t *testing.T) {
	scene := strings.Replace(variantScene, "backend: ristretto", "backend: kioshun\n  kioshun:\n    max_items: 8", 1)
	path := filepath.Join(t.TempDir(), "scene.yaml")
	if err := os.WriteFile(path, []byte(scene), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	rep, _ := runCLI(t, "-config", path, "-renderers", "2")
	if rep.Cache.Allocations != 8 || rep.Device.Live != 0 {
		t.Fatalf("allocations=%d device live=%d", rep.Cache.Allocations, rep.Device.Live)
	}
}
