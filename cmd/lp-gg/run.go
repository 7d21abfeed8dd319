package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ScottSallinen/lollipop-gg/algorithms"
	"github.com/ScottSallinen/lollipop-gg/device"
	"github.com/ScottSallinen/lollipop-gg/framework"
	"github.com/ScottSallinen/lollipop-gg/graph"
	"github.com/ScottSallinen/lollipop-gg/ir"
	"github.com/ScottSallinen/lollipop-gg/utils"
)

var (
	runConfigPath string
	runFlags      runConfig
	runSource     uint32
	runAssign     []string
	runAdmission  string
	runStats      bool

	runCmd = &cobra.Command{
		Use:   "run [algorithm]",
		Short: "Run a program on the emulated device",
		Long: `Loads an edge list, runs the program to convergence and optionally checks the result
against a host computation. Flags override the values of a --config file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRun,
	}
)

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runConfigPath, "config", "c", "", "YAML run-config file")
	f.StringVarP(&runFlags.Program.File, "file", "f", "", "HCL file holding the program")
	f.StringVarP(&runFlags.Graph.Name, "graph", "g", "", "Edge list to load")
	f.IntVarP(&runFlags.Graph.WeightPos, "weight-pos", "w", 0, "Position of the edge weight after src and dst (0: unit weights)")
	f.BoolVarP(&runFlags.Graph.Undirected, "undirected", "u", false, "Add the reverse of every edge")
	f.Uint32VarP(&runSource, "source", "s", 0, "Shorthand for --param "+algorithms.SrcNode+"=<n>")
	f.StringArrayVarP(&runAssign, "param", "p", nil, "Parameter as name=value; repeatable")
	f.IntVarP(&runFlags.Run.MaxIterations, "max-iterations", "m", framework.DefaultMaxIterations, "Round cap")
	f.IntVar(&runFlags.Run.Partitions, "partitions", 1, "Subranges each topological relax phase is launched over")
	f.BoolVar(&runFlags.Run.Cooperative, "cooperative", false, "Lower hinted edge loops for warp-cooperative execution")
	f.StringVar(&runAdmission, "admission", "once", "Worklist admission: once or all")
	f.IntVar(&runFlags.Run.Device.Parallelism, "parallelism", 0, "Blocks running at once (0: GOMAXPROCS)")
	f.BoolVar(&runFlags.Check, "check", false, "Compare the result with a host computation")
	f.IntVarP(&runFlags.Top, "top", "t", 0, "Print the vertices with the largest values")
	f.StringVar(&runFlags.Field, "field", "", "Field to print with --top")
	f.StringVar(&runFlags.Metrics, "metrics", "", "Serve prometheus metrics on this address, e.g. :9090")
	f.BoolVar(&runStats, "stats", false, "Log graph statistics after loading")
}

// flagsOver applies the flags the user set over cfg.
func flagsOver(cmd *cobra.Command, cfg runConfig, args []string) (runConfig, []string, error) {
	set := cmd.Flags().Changed
	if len(args) > 0 {
		cfg.Program.Algorithm = args[0]
	}
	if set("file") {
		cfg.Program.File = runFlags.Program.File
	}
	if set("graph") {
		cfg.Graph.Name = runFlags.Graph.Name
	}
	if set("weight-pos") {
		cfg.Graph.WeightPos = runFlags.Graph.WeightPos
	}
	if set("undirected") {
		cfg.Graph.Undirected = runFlags.Graph.Undirected
	}
	if set("max-iterations") {
		cfg.Run.MaxIterations = runFlags.Run.MaxIterations
	}
	if set("partitions") {
		cfg.Run.Partitions = runFlags.Run.Partitions
	}
	if set("cooperative") {
		cfg.Run.Cooperative = runFlags.Run.Cooperative
	}
	if set("admission") {
		a, err := device.ParseAdmission(runAdmission)
		if err != nil {
			return cfg, nil, err
		}
		cfg.Run.Device.Admission = a
	}
	if set("parallelism") {
		cfg.Run.Device.Parallelism = runFlags.Run.Device.Parallelism
	}
	if set("check") {
		cfg.Check = runFlags.Check
	}
	if set("top") {
		cfg.Top = runFlags.Top
	}
	if set("field") {
		cfg.Field = runFlags.Field
	}
	if set("metrics") {
		cfg.Metrics = runFlags.Metrics
	}

	assign := cfg.assignments()
	if set("source") {
		assign = append(assign, algorithms.SrcNode+"="+utils.V(runSource))
	}
	return cfg, append(assign, runAssign...), nil
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := defaultRunConfig()
	if runConfigPath != "" {
		var err error
		if cfg, err = loadRunConfig(runConfigPath); err != nil {
			return err
		}
	}
	cfg, assign, err := flagsOver(cmd, cfg, args)
	if err != nil {
		return err
	}
	if cfg.Graph.Name == "" {
		return errors.New("no graph given (--graph or graph.name)")
	}
	if cfg.Metrics != "" {
		serveMetrics(cfg.Metrics)
	}

	p, alg, err := cfg.Program.resolve()
	if err != nil {
		return err
	}
	params, err := parseParams(p, assign)
	if err != nil {
		return err
	}
	g, err := graph.LoadFile(cfg.Graph)
	if err != nil {
		return err
	}
	if runStats {
		g.ComputeStats().Log()
	}

	f, err := framework.Build(p, g, cfg.options())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := f.Run(ctx, params)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rounds, converged %v, %.3f ms\n", p.Name, res.Iterations, res.Converged, res.Seconds*1000)

	if cfg.Check {
		if alg == nil {
			log.Warn().Msg("No host check for programs read from files")
		} else if err := alg.Check(g, f, params); err != nil {
			return fmt.Errorf("check failed: %w", err)
		} else {
			log.Info().Msg("Check passed")
		}
	}
	if cfg.Top > 0 {
		return printTop(cmd.OutOrStdout(), f, cfg.Field, cfg.Top)
	}
	return nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error().Msg("metrics: " + err.Error())
		}
	}()
	log.Info().Msg("Serving metrics on " + addr + "/metrics")
}

// printTop prints the n largest values of a field, defaulting to the last field of the program.
func printTop(w io.Writer, f *framework.Framework, field string, n int) error {
	p := f.Module.Program
	if field == "" {
		if len(p.Fields) == 0 {
			return errors.New(p.Name + " has no fields")
		}
		field = p.Fields[len(p.Fields)-1].Name
	}
	fd, ok := p.Field(field)
	if !ok {
		return fmt.Errorf("%s has no field %q", p.Name, field)
	}
	switch fd.Type {
	case ir.TypeFloat32:
		values, err := f.Float32Field(field)
		if err != nil {
			return err
		}
		writeTop(w, field, utils.TopN(values, uint32(n)))
	case ir.TypeInt32:
		values, err := f.Int32Field(field)
		if err != nil {
			return err
		}
		writeTop(w, field, utils.TopN(values, uint32(n)))
	default:
		values, err := f.Uint32Field(field)
		if err != nil {
			return err
		}
		writeTop(w, field, utils.TopN(values, uint32(n)))
	}
	return nil
}

func writeTop[T any](w io.Writer, field string, top []utils.Pair[uint32, T]) {
	fmt.Fprintf(w, "%-8s %s\n", "vertex", field)
	for _, e := range top {
		fmt.Fprintf(w, "%-8d %v\n", e.First, e.Second)
	}
}
