package main

import (
	"bufio"
	"errors"
	"math/rand/v2"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ScottSallinen/lollipop-gg/graph"
	"github.com/ScottSallinen/lollipop-gg/utils"
)

var (
	graphOpts    = graph.DefaultOptions()
	graphOut     string
	graphShuffle bool
	graphSeed    uint64

	graphCmd = &cobra.Command{
		Use:   "graph",
		Short: "Load an edge list, log its statistics and optionally write it back out",
		Long: `Loads an edge list the way run does and logs its statistics. With --out the loaded
graph (after --undirected or --transpose) is written as "src dst weight" lines, shuffled with --shuffle.`,
		Args: cobra.NoArgs,
		RunE: runGraph,
	}
)

func init() {
	f := graphCmd.Flags()
	f.StringVarP(&graphOpts.Name, "graph", "g", "", "Edge list to load")
	f.IntVarP(&graphOpts.WeightPos, "weight-pos", "w", 0, "Position of the edge weight after src and dst (0: unit weights)")
	f.BoolVarP(&graphOpts.Undirected, "undirected", "u", false, "Add the reverse of every edge")
	f.BoolVar(&graphOpts.Transpose, "transpose", false, "Flip src and dst of every edge")
	f.StringVarP(&graphOut, "out", "o", "", "Write the edge list here")
	f.BoolVar(&graphShuffle, "shuffle", false, "Shuffle the written edges")
	f.Uint64Var(&graphSeed, "seed", 1, "Shuffle seed")
	rootCmd.AddCommand(graphCmd)
}

func runGraph(cmd *cobra.Command, args []string) error {
	if graphOpts.Name == "" {
		return errors.New("no graph given (--graph)")
	}
	g, err := graph.LoadFile(graphOpts)
	if err != nil {
		return err
	}
	g.ComputeStats().Log()
	if graphOut == "" {
		return nil
	}

	edges := g.Edges()
	if graphShuffle {
		r := rand.New(rand.NewPCG(graphSeed, graphSeed))
		r.Shuffle(len(edges), func(i, j int) { edges[i], edges[j] = edges[j], edges[i] })
	}
	return writeEdges(graphOut, edges)
}

func writeEdges(path string, edges []graph.Edge) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	buf := make([]byte, 0, 32)
	for _, e := range edges {
		buf = strconv.AppendUint(buf[:0], uint64(e.Src), 10)
		buf = append(buf, ' ')
		buf = strconv.AppendUint(buf, uint64(e.Dst), 10)
		buf = append(buf, ' ')
		buf = strconv.AppendUint(buf, uint64(e.Weight), 10)
		buf = append(buf, '\n')
		if _, err := w.Write(buf); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	log.Info().Msg("Wrote " + utils.V(len(edges)) + " edges to " + path)
	return f.Close()
}
