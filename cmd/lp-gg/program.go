package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ScottSallinen/lollipop-gg/algorithms"
	"github.com/ScottSallinen/lollipop-gg/framework"
	"github.com/ScottSallinen/lollipop-gg/hclprog"
	"github.com/ScottSallinen/lollipop-gg/ir"
)

// source is where a program comes from: a registered algorithm, or a program in an HCL file.
type source struct {
	Algorithm string `yaml:"algorithm"`
	File      string `yaml:"file"`
}

// resolve returns the program to run. For a file holding several programs, Algorithm picks one by
// program name. The registry entry is nil for programs read from files.
func (s source) resolve() (*ir.VertexProgram, *algorithms.Algorithm, error) {
	if s.File == "" {
		if s.Algorithm == "" {
			return nil, nil, errors.New("no algorithm or program file given")
		}
		a, err := algorithms.Lookup(s.Algorithm)
		if err != nil {
			return nil, nil, err
		}
		return a.Program(), a, nil
	}

	programs, err := hclprog.ParseFile(s.File)
	if err != nil {
		return nil, nil, err
	}
	if s.Algorithm == "" {
		if len(programs) > 1 {
			return nil, nil, fmt.Errorf("%s holds %d programs; name one", s.File, len(programs))
		}
		return programs[0], nil, nil
	}
	for _, p := range programs {
		if p.Name == s.Algorithm {
			return p, nil, nil
		}
	}
	return nil, nil, fmt.Errorf("%s has no program %q", s.File, s.Algorithm)
}

// parseParams reads name=value assignments, typing each value by the parameter it sets.
func parseParams(p *ir.VertexProgram, assignments []string) (framework.Params, error) {
	out := framework.Params{}
	for _, a := range assignments {
		name, text, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("parameter %q is not name=value", a)
		}
		name = strings.TrimSpace(name)
		prm, ok := p.Param(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q in %s", framework.ErrUnknownParam, name, p.Name)
		}
		v, err := hclprog.ParseValue(text, prm.Type)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}
