package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ScottSallinen/lollipop-gg/algorithms"
	"github.com/ScottSallinen/lollipop-gg/device"
	"github.com/ScottSallinen/lollipop-gg/framework"
	"github.com/ScottSallinen/lollipop-gg/ir"
)

func write(t *testing.T, name, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestParseParams(t *testing.T) {
	p := algorithms.PageRankPull()
	params, err := parseParams(p, []string{"local_alpha=0.2", "local_tolerance = 1e-3", "local_alpha=0.25"})
	require.NoError(t, err)
	assert.Equal(t, framework.Params{"local_alpha": ir.F32(0.25), "local_tolerance": ir.F32(1e-3)}, params)

	_, err = parseParams(p, []string{"local_alpha"})
	assert.ErrorContains(t, err, "name=value")
	_, err = parseParams(p, []string{"local_src_node=1"})
	assert.ErrorIs(t, err, framework.ErrUnknownParam)
	_, err = parseParams(algorithms.BFS(), []string{"local_src_node=-1"})
	assert.Error(t, err)
}

const twoPrograms = `
program "a" {
  field "x" { type = "uint32" }
  phase "A" {
    role      = "relax"
    reduction = "any"
    nodes "v" {
      store "x" {
        index = v
        value = 1
      }
      signal {}
    }
  }
}
program "b" {
  field "y" { type = "uint32" }
  phase "B" {
    role      = "relax"
    reduction = "any"
    nodes "v" {
      store "y" {
        index = v
        value = 2
      }
      signal {}
    }
  }
}
`

func TestResolve(t *testing.T) {
	p, a, err := source{Algorithm: "cc-wl"}.resolve()
	require.NoError(t, err)
	assert.Equal(t, "cc_wl", p.Name)
	assert.Equal(t, "cc-wl", a.Name)

	path := write(t, "two.hcl", twoPrograms)
	_, _, err = source{File: path}.resolve()
	assert.ErrorContains(t, err, "2 programs")
	p, a, err = source{File: path, Algorithm: "b"}.resolve()
	require.NoError(t, err)
	assert.Equal(t, "b", p.Name)
	assert.Nil(t, a)
	_, _, err = source{File: path, Algorithm: "c"}.resolve()
	assert.Error(t, err)

	_, _, err = source{}.resolve()
	assert.Error(t, err)
	_, _, err = source{Algorithm: "nope"}.resolve()
	assert.Error(t, err)
}

func TestLoadRunConfig(t *testing.T) {
	path := write(t, "run.yaml", `
program: {algorithm: sssp-wl}
graph: {name: g.txt, weight_pos: 1}
run:
  partitions: 4
  device: {admission: all, parallelism: 2}
sizing: {sms: 2, blocks_per_sm: 3, threads_per_block: 64}
params:
  local_src_node: "3"
  local_infinity: "1000"
check: true
`)
	cfg, err := loadRunConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sssp-wl", cfg.Program.Algorithm)
	assert.Equal(t, "g.txt", cfg.Graph.Name)
	assert.Equal(t, 1, cfg.Graph.WeightPos)
	assert.Equal(t, uint32(1), cfg.Graph.DefaultWeight)
	assert.Equal(t, 4, cfg.Run.Partitions)
	assert.Equal(t, framework.DefaultMaxIterations, cfg.Run.MaxIterations)
	assert.Equal(t, device.AdmitAll, cfg.Run.Device.Admission)
	assert.True(t, cfg.Check)
	assert.Equal(t, []string{"local_infinity=1000", "local_src_node=3"}, cfg.assignments())
	assert.Equal(t, device.KernelSizing{SMs: 2, BlocksPerSM: 3, ThreadsPerBlock: 64}, cfg.options().Device.Sizer)

	_, err = loadRunConfig(write(t, "bad.yaml", "grpah: {name: x}\n"))
	assert.Error(t, err)
	_, err = loadRunConfig(write(t, "bad.yaml", "run: {device: {admission: sometimes}}\n"))
	assert.Error(t, err)
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute(), out.String())
	return out.String()
}

func TestCommands(t *testing.T) {
	out := execute(t, "list")
	for _, name := range algorithms.Names() {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "local_src_node")

	dir := t.TempDir()
	execute(t, "gen", "pagerank", "--cooperative", "-o", dir)
	src, err := os.ReadFile(filepath.Join(dir, "pagerank_cuda.cu"))
	require.NoError(t, err)
	assert.Contains(t, string(src), `#include "pagerank_cuda.cuh"`)
	assert.Contains(t, string(src), "__shfl_sync")
	header, err := os.ReadFile(filepath.Join(dir, "pagerank_cuda.cuh"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(header), "#pragma once"))

	g := write(t, "g.txt", "# src dst weight\n0 1 1\n1 2 2\n0 2 5\n")
	out = execute(t, "run", "sssp", "-g", g, "-w", "1", "--source", "0", "--check", "--top", "3", "--partitions", "2")
	assert.Contains(t, out, "sssp: ")
	assert.Contains(t, out, "converged true")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Equal(t, []string{"vertex   dist_current", "2        3", "1        1", "0        0"}, lines[len(lines)-4:])

	written := filepath.Join(t.TempDir(), "out.txt")
	execute(t, "graph", "-g", g, "-w", "1", "-u", "-o", written, "--shuffle")
	data, err := os.ReadFile(written)
	require.NoError(t, err)
	got := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.ElementsMatch(t, []string{"0 1 1", "1 0 1", "1 2 2", "2 1 2", "0 2 5", "2 0 5"}, got)
}
