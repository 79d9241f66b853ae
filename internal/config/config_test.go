package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/unkn0wn-root/bakecache/cloudlayer"
)

const sceneYAML = `
clouds:
  resolution: 512
  layers: double
  layer_a:
    cloud_map: cirrus
    cast_shadows: true
    distortion: flowmap
    flowmap: swirl
variants:
  - name: low
    resolution: 256
  - name: calm
    scroll_speed: 0
sun:
  elevation: 60
  orbit: 0.5
frames:
  count: 10
store:
  backend: ristretto
log:
  level: debug
`

const sceneTOML = `
[clouds]
resolution = 512
layers = "double"

[clouds.layer_a]
cloud_map = "cirrus"
cast_shadows = true
distortion = "flowmap"
flowmap = "swirl"

[[variants]]
name = "low"
resolution = 256

[[variants]]
name = "calm"
scroll_speed = 0.0

[sun]
elevation = 60.0
orbit = 0.5

[frames]
count = 10

[store]
backend = "ristretto"

[log]
level = "debug"
`

func TestParse_YAMLAndTOMLAgree(t *testing.T) {
	y, err := Parse([]byte(sceneYAML), "yaml")
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	tm, err := Parse([]byte(sceneTOML), "toml")
	if err != nil {
		t.Fatalf("toml: %v", err)
	}
	if diff := cmp.Diff(y, tm); diff != "" {
		t.Fatalf("yaml vs toml (-yaml +toml):\n%s", diff)
	}
}

func TestParse_KeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sceneYAML), "yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	def := cloudlayer.DefaultSettings()
	if cfg.Clouds.ShadowResolution != def.ShadowResolution || cfg.Clouds.Opacity != def.Opacity {
		t.Fatalf("defaults lost: %+v", cfg.Clouds)
	}
	if cfg.Clouds.A.Steps != def.A.Steps || cfg.Clouds.A.Thickness != def.A.Thickness {
		t.Fatalf("layer defaults lost: %+v", cfg.Clouds.A)
	}
	if cfg.Clouds.Layers != cloudlayer.MapDouble || cfg.Clouds.A.DistortionMode != cloudlayer.DistortionFlowmap {
		t.Fatalf("text enums not decoded: layers=%v distortion=%v", cfg.Clouds.Layers, cfg.Clouds.A.DistortionMode)
	}
	if cfg.Sun.Azimuth != 120 || cfg.Sun.Elevation != 60 {
		t.Fatalf("sun=%+v", cfg.Sun)
	}
	if cfg.Log.Adapter != "zap" || cfg.Log.Level != "debug" {
		t.Fatalf("log=%+v", cfg.Log)
	}
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil, "yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("empty file should yield defaults (-want +got):\n%s", diff)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name, format, data, want string
	}{
		{"unknown yaml key", "yaml", "clouds:\n  resolutoin: 3\n", "resolutoin"},
		{"unknown toml key", "toml", "[frames]\ncuont = 3\n", "strict mode"},
		{"bad enum", "yaml", "clouds:\n  layers: triple\n", "triple"},
		{"bad backend", "yaml", "store:\n  backend: memcached\n", "store.backend"},
		{"bad step", "yaml", "frames:\n  step: soon\n", "frames.step"},
		{"bad variant", "yaml", "variants:\n  - name: tiny\n    resolution: 1\n", `variants[0] "tiny"`},
		{"bad kioshun size", "yaml", "store:\n  backend: kioshun\n  kioshun:\n    max_items: -1\n", "store.kioshun.max_items"},
		{"bad adapter", "toml", "[log]\nadapter = \"glog\"\n", "log.adapter"},
		{"bad format", "ini", "", "unknown format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.data), tc.format)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("want error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestLoad_ByExtension(t *testing.T) {
	dir := t.TempDir()
	write := func(name, data string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(data), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		return p
	}

	if _, err := Load(write("scene.yml", sceneYAML)); err != nil {
		t.Fatalf("yml: %v", err)
	}
	if _, err := Load(write("scene.toml", sceneTOML)); err != nil {
		t.Fatalf("toml: %v", err)
	}
	if _, err := Load(write("scene.json", "{}")); err == nil {
		t.Fatalf("json extension should be rejected")
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("missing file should fail")
	}
}

func TestSettingsFor_RoundRobin(t *testing.T) {
	cfg, err := Parse([]byte(sceneYAML), "yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := []int{
		cfg.SettingsFor(0).Resolution,
		cfg.SettingsFor(1).Resolution,
		cfg.SettingsFor(2).Resolution,
	}
	if diff := cmp.Diff([]int{256, 512, 256}, got); diff != "" {
		t.Fatalf("resolutions (-want +got):\n%s", diff)
	}
	if cfg.SettingsFor(1).A.CloudMap != "cirrus" {
		t.Fatalf("variant lost base layer")
	}
}

func TestSun_At(t *testing.T) {
	s := Sun{Elevation: 30, Azimuth: 0, Orbit: 90, Intensity: 2, Temperature: 5000}
	a, b := s.At(0), s.At(1)
	if a == nil || b == nil || a.Forward == b.Forward {
		t.Fatalf("orbit should move the sun")
	}
	if a.Intensity != 2 || a.Temperature != 5000 {
		t.Fatalf("intensity=%v temperature=%v", a.Intensity, a.Temperature)
	}
	s.Disabled = true
	if s.At(0) != nil {
		t.Fatalf("disabled sun should be nil")
	}
}
