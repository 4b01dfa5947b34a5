package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/WenSimEHRP/paiagram/internal/config"
	"github.com/WenSimEHRP/paiagram/internal/network"
)

const networkYAML = `
stations:
  Alpha: {label_size: [30, 6]}
  Bravo: {label_size: [30, 6]}
  Charlie: {label_size: [36, 6]}
intervals:
  - {from: Alpha, to: Bravo, length: 3000}
  - {from: Bravo, to: Charlie, length: 5000}
trains:
  "101":
    schedule:
      - {station: Alpha, arrival: "08:00", departure: "08:00"}
      - {station: Bravo, arrival: "08:20", departure: "08:22"}
      - {station: Charlie, arrival: "08:50", departure: "08:50"}
  "102":
    schedule:
      - {station: Charlie, arrival: "08:10", departure: "08:10"}
      - {station: Bravo, arrival: "08:40", departure: "08:41"}
`

const configYAML = `
unit_length: 60
diagrams:
  - name: full
    stations_to_draw: [Alpha, Bravo, Charlie]
    beg: "07:00"
    end: "10:00"
  - name: north/part
    stations_to_draw: [Bravo, Charlie]
    beg: "08:00"
    end: "09:00"
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	opts := options{
		networkFile: writeFile(t, dir, "network.yaml", networkYAML),
		configFile:  writeFile(t, dir, "config.yaml", configYAML),
		outputDir:   filepath.Join(dir, "out"),
		format:      "both",
	}

	paths, err := run(context.Background(), opts, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "out", "full.svg"),
		filepath.Join(dir, "out", "full.yaml"),
		filepath.Join(dir, "out", "north_part.svg"),
		filepath.Join(dir, "out", "north_part.yaml"),
	}, paths)

	svgData, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(svgData, []byte("<?xml")))
	assert.Contains(t, string(svgData), "Charlie")

	yamlData, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	var out struct {
		Name     string `yaml:"name"`
		Beg      string `yaml:"beg"`
		Stations []struct {
			Name string  `yaml:"name"`
			Y    float64 `yaml:"y"`
		} `yaml:"stations"`
		Trains []struct {
			Name string `yaml:"name"`
		} `yaml:"trains"`
	}
	require.NoError(t, yaml.Unmarshal(yamlData, &out))
	assert.Equal(t, "full", out.Name)
	assert.Equal(t, "07:00:00", out.Beg)
	require.Len(t, out.Stations, 3)
	assert.Equal(t, 480.0, out.Stations[2].Y)
	require.Len(t, out.Trains, 2)
	assert.Equal(t, "101", out.Trains[0].Name)
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	netPath := writeFile(t, dir, "network.yaml", networkYAML)
	cfgPath := writeFile(t, dir, "config.yaml", configYAML)

	_, err := run(context.Background(), options{networkFile: netPath, configFile: cfgPath, outputDir: dir, format: "png"}, zap.NewNop())
	assert.ErrorIs(t, err, errUnknownFormat)

	_, err = run(context.Background(), options{networkFile: netPath, outputDir: dir, format: "svg"}, zap.NewNop())
	assert.ErrorIs(t, err, config.ErrInvalidConfig, "defaults alone have no diagrams")

	_, err = run(context.Background(), options{networkFile: filepath.Join(dir, "missing.yaml"), configFile: cfgPath, outputDir: dir, format: "svg"}, zap.NewNop())
	assert.ErrorIs(t, err, os.ErrNotExist)

	badCfg := writeFile(t, dir, "bad.yaml", `
diagrams:
  - name: broken
    stations_to_draw: [Alpha, Nowhere]
`)
	_, err = run(context.Background(), options{networkFile: netPath, configFile: badCfg, outputDir: dir, format: "svg"}, zap.NewNop())
	assert.ErrorIs(t, err, network.ErrUnknownStation)
}

func TestFormats(t *testing.T) {
	exts, err := options{format: "SVG"}.formats()
	require.NoError(t, err)
	assert.Equal(t, []string{".svg"}, exts)

	exts, err = options{format: "yaml"}.formats()
	require.NoError(t, err)
	assert.Equal(t, []string{".yaml"}, exts)
}

func TestGetOutputFilename(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "main.svg"), getOutputFilename("out", "main", ".svg"))
	assert.Equal(t, filepath.Join("out", "a_b_c.yaml"), getOutputFilename("out", `a/b\c`, ".yaml"))
}

func TestUsage(t *testing.T) {
	var buf bytes.Buffer
	usage(&buf)
	assert.Contains(t, buf.String(), "--network <file>")
	assert.Contains(t, buf.String(), "--format <fmt>")
}
