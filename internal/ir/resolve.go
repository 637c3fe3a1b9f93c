package ir

import (
	"fmt"

	"github.com/zawk-lang/zawk/internal/ast"
	"github.com/zawk-lang/zawk/internal/token"
)

// CompileError reports a semantic error found while building or typing the
// IR: scalar/array confusion, bad builtin arity, unknown function.
type CompileError struct {
	Pos     token.Position
	Message string
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s", e.Pos, e.Message)
	}
	return e.Message
}

func compileErrf(pos token.Position, format string, args ...any) *CompileError {
	return &CompileError{Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// nameClass is the syntactic classification of a name.
type nameClass uint8

const (
	classUnknown nameClass = iota
	classScalar
	classArray
)

// symtab holds resolved names: classification and slot assignment for
// globals and for each function's locals. A name is either scalar or
// array, never both; conflicts are fatal before any code is built.
type symtab struct {
	globalScalars map[string]int32
	globalArrays  map[string]int32
	scalarNames   []string
	arrayNames    []string

	funcIndex map[string]int
	funcs     []*funcScope
}

// funcScope holds per-function name resolution.
type funcScope struct {
	decl *ast.FuncDecl

	paramSet     map[string]int // name -> position in decl.Params
	class        map[string]nameClass
	localScalars map[string]int32
	localArrays  map[string]int32
	scalarNames  []string
	arrayNames   []string
	paramOrder   []ParamSlot
}

// resolveNames classifies every name as scalar or array and assigns slots.
// Array-ness is syntactic: subscripting, `in`, delete, for-in, split,
// asort/asorti, join and the json codecs mark a name as array; length(x)
// takes x's class from its other uses; any other use marks it scalar.
// Array parameters propagate through call sites to a fixpoint.
func resolveNames(prog *ast.Program) (*symtab, error) {
	st := &symtab{
		globalScalars: make(map[string]int32),
		globalArrays:  make(map[string]int32),
		funcIndex:     make(map[string]int),
	}

	// Predefined special arrays occupy the first global array slots.
	st.internArray("", "ENVIRON")
	st.internArray("", "ARGV")

	for i, fn := range prog.Functions {
		if _, dup := st.funcIndex[fn.Name]; dup {
			return nil, compileErrf(fn.NamePos, "function %s redefined", fn.Name)
		}
		st.funcIndex[fn.Name] = i
		fs := &funcScope{
			decl:         fn,
			paramSet:     make(map[string]int),
			class:        make(map[string]nameClass),
			localScalars: make(map[string]int32),
			localArrays:  make(map[string]int32),
		}
		for j, p := range fn.Params {
			if _, dup := fs.paramSet[p]; dup {
				return nil, compileErrf(fn.NamePos, "duplicate parameter %s in function %s", p, fn.Name)
			}
			fs.paramSet[p] = j
		}
		st.funcs = append(st.funcs, fs)
	}

	cl := &classifier{st: st, global: make(map[string]nameClass)}

	// Classify until array-ness stops propagating through call sites.
	// Each pass can only move names from unknown/scalar-by-default toward
	// array, and the name set is finite, so this terminates.
	for {
		cl.changed = false
		cl.errs = nil
		cl.walkProgram(prog)
		if len(cl.errs) > 0 {
			return nil, cl.errs[0]
		}
		if !cl.changed {
			break
		}
	}

	// Assign slots. Globals first, in first-appearance order.
	cl.assignSlots(prog)

	return st, nil
}

func (st *symtab) internScalar(fname, name string) int32 {
	if fname == "" {
		if slot, ok := st.globalScalars[name]; ok {
			return slot
		}
		slot := int32(len(st.scalarNames))
		st.globalScalars[name] = slot
		st.scalarNames = append(st.scalarNames, name)
		return slot
	}
	fs := st.funcs[st.funcIndex[fname]]
	if slot, ok := fs.localScalars[name]; ok {
		return slot
	}
	slot := int32(len(fs.scalarNames))
	fs.localScalars[name] = slot
	fs.scalarNames = append(fs.scalarNames, name)
	return slot
}

func (st *symtab) internArray(fname, name string) int32 {
	if fname == "" {
		if slot, ok := st.globalArrays[name]; ok {
			return slot
		}
		slot := int32(len(st.arrayNames))
		st.globalArrays[name] = slot
		st.arrayNames = append(st.arrayNames, name)
		return slot
	}
	fs := st.funcs[st.funcIndex[fname]]
	if slot, ok := fs.localArrays[name]; ok {
		return slot
	}
	slot := int32(len(fs.arrayNames))
	fs.localArrays[name] = slot
	fs.arrayNames = append(fs.arrayNames, name)
	return slot
}

// classifier walks the AST recording scalar/array evidence per name.
type classifier struct {
	st      *symtab
	global  map[string]nameClass
	cur     *funcScope // nil at top level
	changed bool
	errs    []error
}

func (c *classifier) walkProgram(prog *ast.Program) {
	for _, b := range prog.Begin {
		c.walkStmt(b)
	}
	for _, r := range prog.Rules {
		if r.Pattern != nil {
			c.walkExpr(r.Pattern)
		}
		if r.PatternEnd != nil {
			c.walkExpr(r.PatternEnd)
		}
		if r.Action != nil {
			c.walkStmt(r.Action)
		}
	}
	for _, b := range prog.EndBlocks {
		c.walkStmt(b)
	}
	for i, fn := range prog.Functions {
		c.cur = c.st.funcs[i]
		c.walkStmt(fn.Body)
		c.cur = nil
	}
	for _, rd := range prog.Reduces {
		for _, name := range rd.Names {
			// A reduce declaration alone does not classify the name; the
			// body's use of it does. Unused reduce names default to scalar.
			_ = name
		}
	}
}

// mark records evidence that name is used with the given class.
func (c *classifier) mark(pos token.Position, name string, cls nameClass) {
	if _, isFunc := c.st.funcIndex[name]; isFunc {
		c.errs = append(c.errs, compileErrf(pos, "cannot use function %s as a variable", name))
		return
	}
	if _, isSpecial := LookupSpecial(name); isSpecial {
		if cls == classArray {
			c.errs = append(c.errs, compileErrf(pos, "cannot use special variable %s as array", name))
		}
		return
	}
	if name == "ENVIRON" || name == "ARGV" {
		if cls == classScalar {
			c.errs = append(c.errs, compileErrf(pos, "cannot use array %s as scalar", name))
		}
		return
	}

	table := c.global
	if c.cur != nil {
		if _, isParam := c.cur.paramSet[name]; isParam {
			table = c.cur.class
		} else if _, isLocal := c.cur.class[name]; isLocal {
			table = c.cur.class
		}
		// Names not declared as parameters are globals, even inside a
		// function body.
	}

	prev := table[name]
	switch {
	case prev == classUnknown:
		table[name] = cls
		c.changed = true
	case prev != cls:
		c.errs = append(c.errs, compileErrf(pos, "cannot use %s as both scalar and array", name))
	}
}

// classOf returns the current classification of name in scope.
func (c *classifier) classOf(name string) nameClass {
	if name == "ENVIRON" || name == "ARGV" {
		return classArray
	}
	if c.cur != nil {
		if _, isParam := c.cur.paramSet[name]; isParam {
			return c.cur.class[name]
		}
	}
	return c.global[name]
}

func (c *classifier) walkStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case nil:
	case *ast.ExprStmt:
		c.walkExpr(s.Expr)
	case *ast.PrintStmt:
		for _, a := range s.Args {
			c.walkExpr(a)
		}
		if s.Dest != nil {
			c.walkExpr(s.Dest)
		}
	case *ast.BlockStmt:
		for _, st := range s.Stmts {
			c.walkStmt(st)
		}
	case *ast.IfStmt:
		c.walkExpr(s.Cond)
		c.walkStmt(s.Then)
		c.walkStmt(s.Else)
	case *ast.WhileStmt:
		c.walkExpr(s.Cond)
		c.walkStmt(s.Body)
	case *ast.DoWhileStmt:
		c.walkStmt(s.Body)
		c.walkExpr(s.Cond)
	case *ast.ForStmt:
		c.walkStmt(s.Init)
		if s.Cond != nil {
			c.walkExpr(s.Cond)
		}
		c.walkStmt(s.Post)
		c.walkStmt(s.Body)
	case *ast.ForInStmt:
		c.mark(s.Var.Pos(), s.Var.Name, classScalar)
		c.mark(s.Array.Pos(), s.Array.Name, classArray)
		c.walkStmt(s.Body)
	case *ast.ReturnStmt:
		if s.Value != nil {
			c.walkExpr(s.Value)
		}
	case *ast.ExitStmt:
		if s.Code != nil {
			c.walkExpr(s.Code)
		}
	case *ast.DeleteStmt:
		c.mark(s.Array.Pos(), s.Array.Name, classArray)
		for _, idx := range s.Index {
			c.walkExpr(idx)
		}
	case *ast.BreakStmt, *ast.ContinueStmt, *ast.NextStmt, *ast.NextFileStmt:
	}
}

func (c *classifier) walkExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case nil:
	case *ast.NumLit, *ast.StrLit, *ast.RegexLit:
	case *ast.Ident:
		c.mark(e.Pos(), e.Name, classScalar)
	case *ast.FieldExpr:
		c.walkExpr(e.Index)
	case *ast.IndexExpr:
		c.mark(e.Array.Pos(), e.Array.Name, classArray)
		for _, idx := range e.Index {
			c.walkExpr(idx)
		}
	case *ast.BinaryExpr:
		c.walkExpr(e.Left)
		c.walkExpr(e.Right)
	case *ast.UnaryExpr:
		c.walkExpr(e.Expr)
	case *ast.TernaryExpr:
		c.walkExpr(e.Cond)
		c.walkExpr(e.Then)
		c.walkExpr(e.Else)
	case *ast.AssignExpr:
		c.walkExpr(e.Left)
		c.walkExpr(e.Right)
	case *ast.ConcatExpr:
		for _, sub := range e.Exprs {
			c.walkExpr(sub)
		}
	case *ast.GroupExpr:
		c.walkExpr(e.Expr)
	case *ast.CallExpr:
		c.walkCall(e)
	case *ast.GetlineExpr:
		if e.Target != nil {
			c.walkExpr(e.Target)
		}
		if e.File != nil {
			c.walkExpr(e.File)
		}
		if e.Command != nil {
			c.walkExpr(e.Command)
		}
	case *ast.InExpr:
		for _, idx := range e.Index {
			c.walkExpr(idx)
		}
		c.mark(e.Array.Pos(), e.Array.Name, classArray)
	case *ast.MatchExpr:
		c.walkExpr(e.Expr)
		c.walkExpr(e.Pattern)
	}
}

// walkCall handles the array-argument positions of builtins and propagates
// array-ness through user function parameters.
func (c *classifier) walkCall(e *ast.CallExpr) {
	if fi, isUser := c.st.funcIndex[e.Name]; isUser {
		callee := c.st.funcs[fi]
		for i, arg := range e.Args {
			if i < len(callee.decl.Params) {
				pname := callee.decl.Params[i]
				pcls := callee.class[pname]
				if id, ok := arg.(*ast.Ident); ok {
					argCls := c.classOf(id.Name)
					switch {
					case pcls == classArray:
						c.mark(id.Pos(), id.Name, classArray)
						continue
					case argCls == classArray:
						// Propagate into the callee parameter.
						if callee.class[pname] != classArray {
							callee.class[pname] = classArray
							c.changed = true
						}
						continue
					case argCls == classUnknown && pcls == classUnknown:
						// Leave undecided this pass; a later pass or the
						// scalar default settles it.
						continue
					}
				}
			}
			c.walkExpr(arg)
		}
		return
	}

	// Builtins with array arguments.
	switch e.Name {
	case "asort", "asorti":
		for i, a := range e.Args {
			if i > 1 {
				break
			}
			if id, ok := a.(*ast.Ident); ok {
				c.mark(id.Pos(), id.Name, classArray)
			} else {
				c.errs = append(c.errs, compileErrf(a.Pos(), "%s: arguments must be arrays", e.Name))
			}
		}
		return
	case "join":
		if len(e.Args) >= 1 {
			if id, ok := e.Args[0].(*ast.Ident); ok {
				c.mark(id.Pos(), id.Name, classArray)
			} else {
				c.errs = append(c.errs, compileErrf(e.Args[0].Pos(), "join: first argument must be an array"))
			}
		}
		if len(e.Args) > 1 {
			for _, a := range e.Args[1:] {
				c.walkExpr(a)
			}
		}
		return
	case "split", "from_json":
		if len(e.Args) >= 2 {
			if id, ok := e.Args[1].(*ast.Ident); ok {
				c.mark(id.Pos(), id.Name, classArray)
			} else {
				c.errs = append(c.errs, compileErrf(e.Args[1].Pos(), "%s: second argument must be an array", e.Name))
			}
		}
		if len(e.Args) >= 1 {
			c.walkExpr(e.Args[0])
		}
		if len(e.Args) > 2 {
			for _, a := range e.Args[2:] {
				c.walkExpr(a)
			}
		}
		return
	case "to_json", "length":
		if len(e.Args) == 1 {
			if id, ok := e.Args[0].(*ast.Ident); ok {
				if e.Name == "to_json" {
					c.mark(id.Pos(), id.Name, classArray)
					return
				}
				// length(x) follows x's other uses; don't force a class.
				if _, isFunc := c.st.funcIndex[id.Name]; !isFunc && c.classOf(id.Name) != classScalar {
					return
				}
			}
		}
	}
	for _, a := range e.Args {
		c.walkExpr(a)
	}
}

// assignSlots pins every classified name to a slot. Unknown names default
// to scalar (a bare name only ever read behaves as an empty scalar).
func (c *classifier) assignSlots(prog *ast.Program) {
	intern := func(fname, name string, cls nameClass) {
		if _, isSpecial := LookupSpecial(name); isSpecial {
			return
		}
		if name == "ENVIRON" || name == "ARGV" {
			return
		}
		if cls == classArray {
			c.st.internArray(fname, name)
		} else {
			c.st.internScalar(fname, name)
		}
	}

	// Globals in first-appearance order: walk everything again.
	var walkNames func(fname string, n ast.Node)
	seen := func(fname, name string) {
		if fname != "" {
			fs := c.st.funcs[c.st.funcIndex[fname]]
			if _, isParam := fs.paramSet[name]; isParam {
				intern(fname, name, fs.class[name])
				return
			}
		}
		intern("", name, c.global[name])
	}
	walkNames = func(fname string, n ast.Node) {
		switch x := n.(type) {
		case *ast.Ident:
			seen(fname, x.Name)
		case *ast.IndexExpr:
			seen(fname, x.Array.Name)
			for _, idx := range x.Index {
				walkNames(fname, idx)
			}
		case *ast.InExpr:
			for _, idx := range x.Index {
				walkNames(fname, idx)
			}
			seen(fname, x.Array.Name)
		case *ast.ForInStmt:
			seen(fname, x.Var.Name)
			seen(fname, x.Array.Name)
			walkNames(fname, x.Body)
		case *ast.DeleteStmt:
			seen(fname, x.Array.Name)
			for _, idx := range x.Index {
				walkNames(fname, idx)
			}
		default:
			walkChildren(n, func(child ast.Node) { walkNames(fname, child) })
		}
	}

	for _, b := range prog.Begin {
		walkNames("", b)
	}
	for _, r := range prog.Rules {
		if r.Pattern != nil {
			walkNames("", r.Pattern)
		}
		if r.PatternEnd != nil {
			walkNames("", r.PatternEnd)
		}
		if r.Action != nil {
			walkNames("", r.Action)
		}
	}
	for _, b := range prog.EndBlocks {
		walkNames("", b)
	}
	for _, fn := range prog.Functions {
		// Parameters are interned first, in declaration order, so their
		// slots are the low indices of each space.
		fs := c.st.funcs[c.st.funcIndex[fn.Name]]
		for _, p := range fn.Params {
			cls := fs.class[p]
			if cls == classArray {
				slot := c.st.internArray(fn.Name, p)
				fs.paramOrder = append(fs.paramOrder, ParamSlot{IsArray: true, Slot: slot})
			} else {
				slot := c.st.internScalar(fn.Name, p)
				fs.paramOrder = append(fs.paramOrder, ParamSlot{IsArray: false, Slot: slot})
			}
		}
		walkNames(fn.Name, fn.Body)
	}
	// Reduce declarations may name variables the program never otherwise
	// touches at the top level; give them slots so the driver can merge.
	for _, rd := range prog.Reduces {
		for _, name := range rd.Names {
			intern("", name, c.global[name])
		}
	}
}

// walkChildren visits the direct child nodes of n.
func walkChildren(n ast.Node, visit func(ast.Node)) {
	switch x := n.(type) {
	case *ast.NumLit, *ast.StrLit, *ast.RegexLit, *ast.BreakStmt,
		*ast.ContinueStmt, *ast.NextStmt, *ast.NextFileStmt, nil:
	case *ast.FieldExpr:
		visit(x.Index)
	case *ast.BinaryExpr:
		visit(x.Left)
		visit(x.Right)
	case *ast.UnaryExpr:
		visit(x.Expr)
	case *ast.TernaryExpr:
		visit(x.Cond)
		visit(x.Then)
		visit(x.Else)
	case *ast.AssignExpr:
		visit(x.Left)
		visit(x.Right)
	case *ast.ConcatExpr:
		for _, e := range x.Exprs {
			visit(e)
		}
	case *ast.GroupExpr:
		visit(x.Expr)
	case *ast.CallExpr:
		for _, a := range x.Args {
			visit(a)
		}
	case *ast.GetlineExpr:
		if x.Target != nil {
			visit(x.Target)
		}
		if x.File != nil {
			visit(x.File)
		}
		if x.Command != nil {
			visit(x.Command)
		}
	case *ast.MatchExpr:
		visit(x.Expr)
		visit(x.Pattern)
	case *ast.ExprStmt:
		visit(x.Expr)
	case *ast.PrintStmt:
		for _, a := range x.Args {
			visit(a)
		}
		if x.Dest != nil {
			visit(x.Dest)
		}
	case *ast.BlockStmt:
		for _, s := range x.Stmts {
			visit(s)
		}
	case *ast.IfStmt:
		visit(x.Cond)
		visit(x.Then)
		if x.Else != nil {
			visit(x.Else)
		}
	case *ast.WhileStmt:
		visit(x.Cond)
		visit(x.Body)
	case *ast.DoWhileStmt:
		visit(x.Body)
		visit(x.Cond)
	case *ast.ForStmt:
		if x.Init != nil {
			visit(x.Init)
		}
		if x.Cond != nil {
			visit(x.Cond)
		}
		if x.Post != nil {
			visit(x.Post)
		}
		visit(x.Body)
	case *ast.ReturnStmt:
		if x.Value != nil {
			visit(x.Value)
		}
	case *ast.ExitStmt:
		if x.Code != nil {
			visit(x.Code)
		}
	}
}
