package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/ScottSallinen/lollipop-gg/device"
	"github.com/ScottSallinen/lollipop-gg/framework"
	"github.com/ScottSallinen/lollipop-gg/graph"
)

// runConfig is everything a run needs. It is read from a YAML file and then overridden by flags:
//
//	program: {algorithm: sssp}
//	graph: {name: graph.txt, weight_pos: 1}
//	run: {partitions: 4, device: {admission: once}}
//	sizing: {sms: 8, blocks_per_sm: 8, threads_per_block: 256}
//	params: {local_src_node: "0"}
//	check: true
type runConfig struct {
	Program source               `yaml:"program"`
	Graph   graph.Options        `yaml:"graph"`
	Run     framework.Options    `yaml:"run"`
	Sizing  *device.KernelSizing `yaml:"sizing"`
	Params  map[string]string    `yaml:"params"` // Values in HCL expression syntax.
	Check   bool                 `yaml:"check"`
	Top     int                  `yaml:"top"`   // Vertices to print, largest values first.
	Field   string               `yaml:"field"` // Field to print; defaults to the last field of the program.
	Metrics string               `yaml:"metrics"`
}

func defaultRunConfig() runConfig {
	return runConfig{Graph: graph.DefaultOptions(), Run: framework.DefaultOptions()}
}

// loadRunConfig reads path over the defaults. Unknown keys are errors.
func loadRunConfig(path string) (runConfig, error) {
	cfg := defaultRunConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// assignments lists the configured parameters as name=value in name order.
func (c *runConfig) assignments() []string {
	names := make([]string, 0, len(c.Params))
	for n := range c.Params {
		names = append(names, n)
	}
	slices.Sort(names)
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n + "=" + c.Params[n]
	}
	return out
}

func (c *runConfig) options() framework.Options {
	opts := c.Run
	if c.Sizing != nil {
		opts.Device.Sizer = *c.Sizing
	}
	return opts
}
