package hclprog

import (
	"slices"
	"strconv"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/ScottSallinen/lollipop-gg/ir"
)

func (d *decoder) stmts(blocks hclsyntax.Blocks) ir.Block {
	out := make(ir.Block, 0, len(blocks))
	for _, b := range blocks {
		if s := d.stmt(b); s != nil {
			out = append(out, s)
		}
	}
	return out
}

// labels checks the label count of b.
func (d *decoder) labels(b *hclsyntax.Block, n int) bool {
	if len(b.Labels) != n {
		d.errorf(b.DefRange().Ptr(), "Wrong number of labels", "A "+b.Type+" block takes "+strconv.Itoa(n)+" labels.")
		return false
	}
	return true
}

// attrs checks the arguments of b against allowed. Names prefixed with ? are optional.
func (d *decoder) attrs(b *hclsyntax.Block, allowed ...string) map[string]hclsyntax.Expression {
	out := make(map[string]hclsyntax.Expression, len(b.Body.Attributes))
	for name, attr := range b.Body.Attributes {
		if !slices.Contains(allowed, name) && !slices.Contains(allowed, "?"+name) {
			d.errorf(attr.NameRange.Ptr(), "Unsupported argument", "An argument named \""+name+"\" is not expected in a "+b.Type+" block.")
			continue
		}
		out[name] = attr.Expr
	}
	for _, name := range allowed {
		if name[0] == '?' {
			continue
		}
		if _, ok := out[name]; !ok {
			d.errorf(b.Body.MissingItemRange().Ptr(), "Missing required argument", "The argument \""+name+"\" is required in a "+b.Type+" block.")
		}
	}
	return out
}

// noBlocks reports nested blocks in a block that takes none.
func (d *decoder) noBlocks(b *hclsyntax.Block) {
	for _, nested := range b.Body.Blocks {
		d.errorf(nested.TypeRange.Ptr(), "Unexpected block", "A "+b.Type+" block has no nested blocks.")
	}
}

func (d *decoder) str(expr hcl.Expression) string {
	var s string
	if expr == nil {
		return s
	}
	if diags := gohcl.DecodeExpression(expr, nil, &s); diags.HasErrors() {
		d.diags = append(d.diags, diags...)
	}
	return s
}

func (d *decoder) stmt(b *hclsyntax.Block) ir.Stmt {
	switch b.Type {
	case "decl":
		if !d.labels(b, 1) {
			return nil
		}
		a := d.attrs(b, "type", "?value")
		d.noBlocks(b)
		decl := &ir.Decl{Name: b.Labels[0]}
		if t, ok := a["type"]; ok {
			decl.Type = d.typeOf(t)
		}
		if v, ok := a["value"]; ok {
			decl.Init = d.expr(v)
		}
		return decl

	case "set":
		if !d.labels(b, 1) {
			return nil
		}
		a := d.attrs(b, "value")
		d.noBlocks(b)
		return &ir.Assign{Name: b.Labels[0], Value: d.expr(a["value"])}

	case "store":
		if !d.labels(b, 1) {
			return nil
		}
		a := d.attrs(b, "index", "value")
		d.noBlocks(b)
		return &ir.Store{Field: b.Labels[0], Index: d.expr(a["index"]), Value: d.expr(a["value"])}

	case "atomic":
		if !d.labels(b, 1) {
			return nil
		}
		op, err := ir.ParseAtomicOp(b.Labels[0])
		if err != nil {
			d.errorf(b.LabelRanges[0].Ptr(), "Invalid atomic operation", err.Error())
		}
		a := d.attrs(b, "field", "index", "value", "?result")
		d.noBlocks(b)
		at := &ir.Atomic{Op: op, Field: d.str(a["field"]), Index: d.expr(a["index"]), Value: d.expr(a["value"])}
		if r, ok := a["result"]; ok {
			at.Result = d.str(r)
		}
		return at

	case "when":
		if !d.labels(b, 0) {
			return nil
		}
		a := d.attrs(b, "cond")
		s := &ir.If{Cond: d.expr(a["cond"])}
		var then hclsyntax.Blocks
		for _, nested := range b.Body.Blocks {
			if nested.Type != "else" {
				then = append(then, nested)
				continue
			}
			if s.Else != nil {
				d.errorf(nested.TypeRange.Ptr(), "Duplicate else", "A when block takes one else block.")
				continue
			}
			d.labels(nested, 0)
			d.attrs(nested)
			s.Else = d.stmts(nested.Body.Blocks)
		}
		s.Then = d.stmts(then)
		return s

	case "edges":
		if !d.labels(b, 1) {
			return nil
		}
		a := d.attrs(b, "source")
		return &ir.ForEdges{Var: b.Labels[0], Source: d.expr(a["source"]), Body: d.stmts(b.Body.Blocks)}

	case "closure":
		if !d.labels(b, 0) {
			return nil
		}
		d.attrs(b)
		return &ir.ClosureHint{Body: d.stmts(b.Body.Blocks)}

	case "skip":
		d.labels(b, 0)
		d.attrs(b)
		d.noBlocks(b)
		return &ir.Skip{}

	case "signal":
		d.labels(b, 0)
		a := d.attrs(b, "?value")
		d.noBlocks(b)
		s := &ir.Signal{}
		if v, ok := a["value"]; ok {
			s.Value = d.expr(v)
		}
		return s

	case "push":
		d.labels(b, 0)
		a := d.attrs(b, "vertex")
		d.noBlocks(b)
		return &ir.PushItem{Vertex: d.expr(a["vertex"])}

	case "nodes", "worklist":
		d.errorf(b.TypeRange.Ptr(), "Nested sweep", "A "+b.Type+" block belongs directly in a phase.")
		return nil
	}
	d.errorf(b.TypeRange.Ptr(), "Unknown statement", "There is no "+b.Type+" statement.")
	return nil
}
