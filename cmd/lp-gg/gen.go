package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ScottSallinen/lollipop-gg/cuda"
	"github.com/ScottSallinen/lollipop-gg/lower"
)

var (
	genFile        string
	genOut         string
	genCooperative bool
	genTBSize      int

	genCmd = &cobra.Command{
		Use:   "gen [algorithm]",
		Short: "Print the CUDA kernels and host wrappers of a program",
		Long: `Lowers a registered algorithm, or a program from an HCL file, and prints the CUDA
source and header. With --out the pair is written as <program>_cuda.cu and <program>_cuda.cuh.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runGen,
	}
)

func init() {
	genCmd.Flags().StringVarP(&genFile, "file", "f", "", "HCL file holding the program")
	genCmd.Flags().StringVarP(&genOut, "out", "o", "", "Directory to write the source and header into")
	genCmd.Flags().BoolVar(&genCooperative, "cooperative", false, "Lower hinted edge loops for warp-cooperative execution")
	genCmd.Flags().IntVar(&genTBSize, "tb-size", cuda.DefaultTBSize, "Thread block size")
}

func runGen(cmd *cobra.Command, args []string) error {
	src := source{File: genFile}
	if len(args) > 0 {
		src.Algorithm = args[0]
	}
	p, _, err := src.resolve()
	if err != nil {
		return err
	}
	m, err := lower.Lower(p, lower.Options{Cooperative: genCooperative})
	if err != nil {
		return err
	}
	header := p.Name + "_cuda.cuh"
	out, err := cuda.Compile(m, cuda.Options{TBSize: genTBSize, Header: header})
	if err != nil {
		return err
	}

	if genOut == "" {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "// %s\n%s\n// %s\n%s", header, out.Header, p.Name+"_cuda.cu", out.Source)
		return nil
	}
	if err := os.MkdirAll(genOut, 0o755); err != nil {
		return err
	}
	files := map[string]string{header: out.Header, p.Name + "_cuda.cu": out.Source}
	for name, text := range files {
		path := filepath.Join(genOut, name)
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			return err
		}
		log.Info().Msg("Wrote " + path)
	}
	return nil
}
