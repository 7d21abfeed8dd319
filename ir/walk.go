package ir

// VisitExpr calls fn on e and every sub-expression, parents first.
func VisitExpr(e Expr, fn func(Expr)) {
	if e == nil {
		return
	}
	fn(e)
	switch x := e.(type) {
	case *Load:
		VisitExpr(x.Index, fn)
	case *Binary:
		VisitExpr(x.Left, fn)
		VisitExpr(x.Right, fn)
	case *Unary:
		VisitExpr(x.X, fn)
	case *Select:
		VisitExpr(x.Cond, fn)
		VisitExpr(x.Then, fn)
		VisitExpr(x.Else, fn)
	case *Convert:
		VisitExpr(x.X, fn)
	case *EdgeDst:
		VisitExpr(x.Edge, fn)
	case *EdgeWeight:
		VisitExpr(x.Edge, fn)
	case *OutDegree:
		VisitExpr(x.Node, fn)
	case *NodeData:
		VisitExpr(x.Node, fn)
	case *Abs:
		VisitExpr(x.X, fn)
	}
}

// StmtExprs returns the expressions held directly by s, not those of nested blocks.
func StmtExprs(s Stmt) []Expr {
	switch x := s.(type) {
	case *Decl:
		if x.Init != nil {
			return []Expr{x.Init}
		}
	case *Assign:
		return []Expr{x.Value}
	case *Store:
		return []Expr{x.Index, x.Value}
	case *Atomic:
		return []Expr{x.Index, x.Value}
	case *If:
		return []Expr{x.Cond}
	case *ForEdges:
		return []Expr{x.Source}
	case *Signal:
		if x.Value != nil {
			return []Expr{x.Value}
		}
	case *PushItem:
		return []Expr{x.Vertex}
	}
	return nil
}

// Children returns the nested blocks of s.
func Children(s Stmt) []Block {
	switch x := s.(type) {
	case *If:
		return []Block{x.Then, x.Else}
	case *ForNodes:
		return []Block{x.Body}
	case *ForEdges:
		return []Block{x.Body}
	case *ForWorklist:
		return []Block{x.Body}
	case *ClosureHint:
		return []Block{x.Body}
	}
	return nil
}

// WalkStmts visits every statement of b depth first. Returning false from fn skips the children of that statement.
func WalkStmts(b Block, fn func(Stmt) bool) {
	for _, s := range b {
		if fn(s) {
			for _, c := range Children(s) {
				WalkStmts(c, fn)
			}
		}
	}
}

// HasNestedParallel reports whether s is, or holds, an edge sweep.
func HasNestedParallel(s Stmt) bool {
	found := false
	WalkStmts(Block{s}, func(st Stmt) bool {
		if _, ok := st.(*ForEdges); ok {
			found = true
		}
		return !found
	})
	return found
}

// SplitNested splits a sweep body into the part before the first nested parallel statement and the rest.
func SplitNested(body Block) (prefix, nested Block) {
	for i, s := range body {
		if HasNestedParallel(s) {
			return body[:i], body[i:]
		}
	}
	return body, nil
}

// FreeVars lists, in order of first use, the variables read or written by b that b does not declare.
func FreeVars(b Block) []string {
	var out []string
	seen := map[string]bool{}
	note := func(name string, declared map[string]bool) {
		if name == "" || declared[name] || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	}
	var walk func(b Block, declared map[string]bool)
	walk = func(b Block, outer map[string]bool) {
		declared := make(map[string]bool, len(outer))
		for k := range outer {
			declared[k] = true
		}
		for _, s := range b {
			for _, e := range StmtExprs(s) {
				VisitExpr(e, func(e Expr) {
					if v, ok := e.(*Var); ok {
						note(v.Name, declared)
					}
				})
			}
			switch x := s.(type) {
			case *Decl:
				declared[x.Name] = true
			case *Assign:
				note(x.Name, declared)
			case *Atomic:
				note(x.Result, declared)
			case *UniformGuard:
				note(x.Pop, declared)
			case *PopItem:
				note(x.Index, declared)
				note(x.Item, declared)
				note(x.Ok, declared)
			case *ForNodes:
				inner := copySet(declared, x.Var)
				walk(x.Body, inner)
				continue
			case *ForEdges:
				walk(x.Body, copySet(declared, x.Var))
				continue
			case *ForWorklist:
				walk(x.Body, copySet(declared, x.Item, x.Var))
				continue
			}
			for _, c := range Children(s) {
				walk(c, declared)
			}
		}
	}
	walk(b, nil)
	return out
}

// AssignedVars lists variables that b writes but does not declare.
func AssignedVars(b Block) map[string]bool {
	free := map[string]bool{}
	for _, n := range FreeVars(b) {
		free[n] = true
	}
	out := map[string]bool{}
	WalkStmts(b, func(s Stmt) bool {
		switch x := s.(type) {
		case *Assign:
			if free[x.Name] {
				out[x.Name] = true
			}
		case *Atomic:
			if x.Result != "" && free[x.Result] {
				out[x.Result] = true
			}
		}
		return true
	})
	return out
}

func copySet(m map[string]bool, add ...string) map[string]bool {
	out := make(map[string]bool, len(m)+len(add))
	for k := range m {
		out[k] = true
	}
	for _, a := range add {
		if a != "" {
			out[a] = true
		}
	}
	return out
}
