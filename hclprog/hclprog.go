// Package hclprog reads vertex programs written as HCL files.
//
// A file holds one or more program blocks:
//
//	program "sssp" {
//	  schedule  = "topological"   # or "worklist"
//	  direction = "push"          # or "pull"
//	  field "dist_current" { type = "uint32" }
//	  param "local_src_node" { type = "uint32" }
//	  phase "SSSP" {
//	    role      = "relax"
//	    reduction = "any"
//	    nodes "src" { ...statements... }
//	  }
//	}
//
// Statements are blocks and run in source order: decl, set, store, atomic, when (with an optional
// else block), edges, closure, skip, signal and push. Expressions use HCL syntax; f[i] reads a
// field and dst, weight, out_degree, node_data, abs, float32, int32, uint32 and index are the
// available functions.
package hclprog

import (
	"errors"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/rs/zerolog/log"

	"github.com/ScottSallinen/lollipop-gg/ir"
	"github.com/ScottSallinen/lollipop-gg/utils"
)

type fileSpec struct {
	Programs []*programSpec `hcl:"program,block"`
}

type programSpec struct {
	Name      string       `hcl:"name,label"`
	Schedule  string       `hcl:"schedule,optional"`
	Direction string       `hcl:"direction,optional"`
	Fields    []*fieldSpec `hcl:"field,block"`
	Params    []*paramSpec `hcl:"param,block"`
	Seed      *seedSpec    `hcl:"seed,block"`
	Phases    []*phaseSpec `hcl:"phase,block"`
}

type fieldSpec struct {
	Name string         `hcl:"name,label"`
	Type hcl.Expression `hcl:"type"`
}

type paramSpec struct {
	Name    string         `hcl:"name,label"`
	Type    hcl.Expression `hcl:"type"`
	Const   bool           `hcl:"const,optional"`
	Default hcl.Expression `hcl:"default,optional"`
}

type seedSpec struct {
	Var  string         `hcl:"var,label"`
	When hcl.Expression `hcl:"when"`
}

type phaseSpec struct {
	Name      string   `hcl:"name,label"`
	Role      string   `hcl:"role"`
	Reduction string   `hcl:"reduction,optional"`
	Body      hcl.Body `hcl:",remain"`
}

// ParseFile reads and decodes the programs of one file.
func ParseFile(path string) ([]*ir.VertexProgram, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(src, path)
}

// Parse decodes the programs in src. Syntax and decoding problems come back as hcl.Diagnostics
// carrying source ranges; each program is then checked with ir.Validate.
func Parse(src []byte, filename string) ([]*ir.VertexProgram, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	var spec fileSpec
	if diags = gohcl.DecodeBody(file.Body, nil, &spec); diags.HasErrors() {
		return nil, diags
	}
	if len(spec.Programs) == 0 {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "No programs",
			Detail:   "The file has no program blocks.",
			Subject:  file.Body.MissingItemRange().Ptr(),
		}}
	}

	d := &decoder{}
	programs := make([]*ir.VertexProgram, 0, len(spec.Programs))
	for _, ps := range spec.Programs {
		programs = append(programs, d.program(ps))
	}
	if d.diags.HasErrors() {
		return nil, d.diags
	}
	var errs []error
	for _, p := range programs {
		errs = append(errs, ir.Validate(p))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	log.Debug().Msg("hclprog: " + filename + ": " + utils.V(len(programs)) + " programs")
	return programs, nil
}

// ParseOne decodes a file that must hold exactly one program.
func ParseOne(src []byte, filename string) (*ir.VertexProgram, error) {
	programs, err := Parse(src, filename)
	if err != nil {
		return nil, err
	}
	if len(programs) != 1 {
		return nil, errors.New("hclprog: " + filename + " holds " + utils.V(len(programs)) + " programs, want 1")
	}
	return programs[0], nil
}

type decoder struct {
	diags hcl.Diagnostics
}

func (d *decoder) errorf(subject *hcl.Range, summary, detail string) {
	d.diags = append(d.diags, &hcl.Diagnostic{Severity: hcl.DiagError, Summary: summary, Detail: detail, Subject: subject})
}

func (d *decoder) program(ps *programSpec) *ir.VertexProgram {
	p := &ir.VertexProgram{Name: ps.Name}
	var err error
	if ps.Schedule != "" {
		if p.Schedule, err = ir.ParseSchedule(ps.Schedule); err != nil {
			d.errorf(nil, "Invalid schedule", "program "+ps.Name+": "+err.Error())
		}
	}
	if ps.Direction != "" {
		if p.Direction, err = ir.ParseDirection(ps.Direction); err != nil {
			d.errorf(nil, "Invalid direction", "program "+ps.Name+": "+err.Error())
		}
	}
	for _, fs := range ps.Fields {
		p.Fields = append(p.Fields, ir.Field{Name: fs.Name, Type: d.typeOf(fs.Type)})
	}
	for _, prm := range ps.Params {
		param := ir.Param{Name: prm.Name, Type: d.typeOf(prm.Type), Const: prm.Const}
		param.Default = d.defaultValue(prm.Default, param.Type)
		p.Params = append(p.Params, param)
	}
	if ps.Seed != nil {
		p.Seed = &ir.Seed{Var: ps.Seed.Var, When: d.expr(ps.Seed.When)}
	}
	for _, phs := range ps.Phases {
		d.phase(p, phs)
	}
	return p
}

func (d *decoder) typeOf(expr hcl.Expression) ir.Type {
	var name string
	if diags := gohcl.DecodeExpression(expr, nil, &name); diags.HasErrors() {
		d.diags = append(d.diags, diags...)
		return ir.TypeInvalid
	}
	t, err := ir.ParseType(name)
	if err != nil {
		d.errorf(expr.Range().Ptr(), "Invalid type", err.Error())
	}
	return t
}

func (d *decoder) defaultValue(expr hcl.Expression, t ir.Type) *ir.Const {
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		d.diags = append(d.diags, diags...)
		return nil
	}
	if v.IsNull() || t == ir.TypeInvalid {
		return nil
	}
	c, err := constFromCty(v, t)
	if err != nil {
		d.errorf(expr.Range().Ptr(), "Invalid default", err.Error())
	}
	return c
}

func (d *decoder) phase(p *ir.VertexProgram, phs *phaseSpec) {
	body, ok := phs.Body.(*hclsyntax.Body)
	if !ok {
		d.errorf(nil, "Unsupported body", "phase "+phs.Name+" is not native HCL syntax")
		return
	}
	ph := &ir.Phase{Name: phs.Name}
	var err error
	if ph.Reduction, err = ir.ParseReduction(phs.Reduction); err != nil {
		d.errorf(body.SrcRange.Ptr(), "Invalid reduction", err.Error())
	}
	for name, attr := range body.Attributes {
		if name != "role" && name != "reduction" {
			d.errorf(attr.NameRange.Ptr(), "Unsupported argument", "An argument named \""+name+"\" is not expected in a phase.")
		}
	}
	for _, b := range body.Blocks {
		switch b.Type {
		case "decl":
			if decl, ok := d.stmt(b).(*ir.Decl); ok {
				ph.Locals = append(ph.Locals, decl)
			}
		case "nodes", "worklist":
			if ph.Body != nil {
				d.errorf(b.DefRange().Ptr(), "Duplicate sweep", "A phase has exactly one nodes or worklist block.")
				continue
			}
			ph.Body = d.sweep(b)
		default:
			d.errorf(b.TypeRange.Ptr(), "Unexpected block", "A phase holds decl blocks and one nodes or worklist block, not "+b.Type+".")
		}
	}
	if ph.Body == nil {
		d.errorf(body.SrcRange.Ptr(), "Missing sweep", "phase "+phs.Name+" has no nodes or worklist block.")
		return
	}

	switch phs.Role {
	case "reset":
		if p.Reset != nil {
			d.errorf(body.SrcRange.Ptr(), "Duplicate reset", "program "+p.Name+" already has reset phase "+p.Reset.Name)
		}
		p.Reset = ph
	case "init":
		p.Init = append(p.Init, ph)
	case "relax":
		p.Relax = append(p.Relax, ph)
	default:
		d.errorf(body.SrcRange.Ptr(), "Invalid role", "phase "+phs.Name+": role must be reset, init or relax, not \""+phs.Role+"\"")
	}
}

func (d *decoder) sweep(b *hclsyntax.Block) ir.Stmt {
	if !d.labels(b, 1) {
		return nil
	}
	d.attrs(b)
	body := d.stmts(b.Body.Blocks)
	if b.Type == "worklist" {
		return &ir.ForWorklist{Item: b.Labels[0], Body: body}
	}
	return &ir.ForNodes{Var: b.Labels[0], Body: body}
}
