package graph

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/ScottSallinen/lollipop-gg/utils"
)

const maxFieldsPerEdge = 8

// LoadEdgeList reads a whitespace separated edge list: one "src dst [extra...]" per line.
// Lines starting with '#' or '%' are comments. The vertex count is one more than the largest id.
func LoadEdgeList(r io.Reader, opts Options) (*Graph, error) {
	fieldsBuff := [maxFieldsPerEdge]string{}
	fields := fieldsBuff[:]
	scannerBuff := make([]byte, 4096*16)
	scanner := utils.FastFileLines{Buf: scannerBuff}

	var edges []Edge
	n := uint32(0)
	for line := 1; ; line++ {
		b, err := scanner.Scan(r)
		if err != nil {
			return nil, fmt.Errorf("graph: line %d: %w", line, err)
		}
		if b == nil {
			break
		}
		nf := utils.FastFields(fields, b)
		if nf == 0 || fields[0][0] == '#' || fields[0][0] == '%' {
			continue
		}
		if nf < 2 {
			return nil, fmt.Errorf("graph: line %d: want at least 2 fields, got %d", line, nf)
		}
		src, okS := utils.ParseUint(fields[0])
		dst, okD := utils.ParseUint(fields[1])
		if !okS || !okD {
			return nil, fmt.Errorf("graph: line %d: bad vertex id in %q", line, string(b))
		}
		e := Edge{Src: src, Dst: dst, Weight: opts.DefaultWeight}
		if opts.WeightPos > 0 {
			pos := 1 + opts.WeightPos
			if pos >= nf || pos >= maxFieldsPerEdge {
				return nil, fmt.Errorf("graph: line %d: no weight at position %d", line, opts.WeightPos)
			}
			w, ok := utils.ParseUint(fields[pos])
			if !ok {
				return nil, fmt.Errorf("graph: line %d: bad weight %q", line, fields[pos])
			}
			e.Weight = w
		}
		n = utils.Max(n, utils.Max(src, dst)+1)
		edges = append(edges, e)
	}
	return FromEdges(n, edges, opts)
}

// LoadFile loads opts.Name.
func LoadFile(opts Options) (*Graph, error) {
	file, err := os.Open(opts.Name)
	if err != nil {
		return nil, fmt.Errorf("graph: %w", err)
	}
	defer file.Close()
	w := utils.Watch{}
	w.Start()
	g, err := LoadEdgeList(file, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opts.Name, err)
	}
	log.Info().Msg("Loaded " + opts.Name + " in " + utils.V(w.Elapsed().Milliseconds()) + "ms")
	return g, nil
}
