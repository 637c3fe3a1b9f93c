package ir

import (
	"github.com/zawk-lang/zawk/internal/ast"
	"github.com/zawk-lang/zawk/internal/token"
)

// Build lowers a parsed program to the untyped IR: names become slots,
// builtins become opcodes, control flow becomes explicit blocks.
func Build(prog *ast.Program) (p *Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ce, ok := r.(*CompileError); ok {
				err = ce
				return
			}
			panic(r)
		}
	}()

	st, err := resolveNames(prog)
	if err != nil {
		return nil, err
	}

	b := &builder{st: st}
	out := &Program{
		GlobalScalars: st.scalarNames,
		GlobalArrays:  st.arrayNames,
	}
	b.prog = out

	// User functions first so calls resolve by index.
	for i, fn := range prog.Functions {
		fs := st.funcs[i]
		irFn := &Func{Name: fn.Name, LocalScalars: fs.scalarNames, LocalArrays: fs.arrayNames, ParamOrder: fs.paramOrder}
		for _, ps := range fs.paramOrder {
			if ps.IsArray {
				irFn.ArrayParams++
			} else {
				irFn.ScalarParams++
			}
		}
		out.Funcs = append(out.Funcs, irFn)
	}
	for i, fn := range prog.Functions {
		fb := b.newFuncBuilder(out.Funcs[i], fn.Name)
		fb.genBlockStmt(fn.Body)
		fb.seal(Term{Kind: TermRet, Ret: None})
	}

	if len(prog.Begin) > 0 {
		fb := b.newFuncBuilder(&Func{Name: "BEGIN"}, "")
		for _, blk := range prog.Begin {
			fb.genBlockStmt(blk)
		}
		fb.seal(Term{Kind: TermRet, Ret: None})
		out.Begin = fb.fn
	}

	for _, r := range prog.Rules {
		rule := &Rule{}
		if r.Pattern != nil {
			rule.Pattern = b.buildPattern(r.Pattern)
		}
		if r.PatternEnd != nil {
			rule.PatternEnd = b.buildPattern(r.PatternEnd)
		}
		if r.Action != nil {
			fb := b.newFuncBuilder(&Func{Name: "rule"}, "")
			fb.genBlockStmt(r.Action)
			fb.seal(Term{Kind: TermRet, Ret: None})
			rule.Body = fb.fn
		}
		out.Rules = append(out.Rules, rule)
	}

	if len(prog.EndBlocks) > 0 {
		fb := b.newFuncBuilder(&Func{Name: "END"}, "")
		for _, blk := range prog.EndBlocks {
			fb.genBlockStmt(blk)
		}
		fb.seal(Term{Kind: TermRet, Ret: None})
		out.End = fb.fn
	}

	// Reduce declarations.
	for _, rd := range prog.Reduces {
		for _, name := range rd.Names {
			red := Reduction{Op: ReduceOp(rd.Op)}
			if slot, ok := st.globalArrays[name]; ok {
				red.IsArray = true
				red.Slot = slot
			} else if slot, ok := st.globalScalars[name]; ok {
				red.Slot = slot
			} else {
				return nil, compileErrf(rd.StartPos, "@reduce names unknown variable %s", name)
			}
			out.Reduces = append(out.Reduces, red)
		}
	}

	collectMainWrites(out)
	return out, nil
}

// builder holds state shared across all functions of one program.
type builder struct {
	st   *symtab
	prog *Program
}

func (b *builder) buildPattern(e ast.Expr) *Func {
	fb := b.newFuncBuilder(&Func{Name: "pattern"}, "")
	t := fb.genExpr(e)
	bt := fb.fn.NewTemp()
	fb.emit(Instr{Op: Bool, Dst: bt, A: t, Pos: e.Pos()})
	fb.seal(Term{Kind: TermRet, Ret: bt})
	return fb.fn
}

// funcBuilder builds one Func's CFG.
type funcBuilder struct {
	b     *builder
	fn    *Func
	fname string // enclosing user function name; "" at top level
	cur   *Block
	loops []loopCtx
}

type loopCtx struct {
	brk  *Block
	cont *Block
}

func (b *builder) newFuncBuilder(fn *Func, fname string) *funcBuilder {
	fb := &funcBuilder{b: b, fn: fn, fname: fname}
	fb.cur = fn.NewBlock()
	fn.Entry = fb.cur
	return fb
}

func (fb *funcBuilder) emit(in Instr) {
	if fb.cur == nil {
		fb.cur = fb.fn.NewBlock() // unreachable continuation
	}
	fb.cur.Instrs = append(fb.cur.Instrs, in)
}

// seal terminates the current block; emission resumes in a fresh block on
// the next emit or startBlock call.
func (fb *funcBuilder) seal(t Term) {
	if fb.cur == nil {
		fb.cur = fb.fn.NewBlock()
	}
	fb.cur.Term = t
	fb.cur = nil
}

// startBlock makes blk the current block.
func (fb *funcBuilder) startBlock(blk *Block) {
	fb.cur = blk
}

// jumpTo seals the current block with a jump to blk.
func (fb *funcBuilder) jumpTo(blk *Block) {
	fb.seal(Term{Kind: TermJump, Then: blk})
}

func (fb *funcBuilder) temp() Temp { return fb.fn.NewTemp() }

// -----------------------------------------------------------------------------
// Statements
// -----------------------------------------------------------------------------

func (fb *funcBuilder) genBlockStmt(blk *ast.BlockStmt) {
	for _, s := range blk.Stmts {
		fb.genStmt(s)
	}
}

func (fb *funcBuilder) genStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		fb.genExpr(s.Expr)

	case *ast.BlockStmt:
		fb.genBlockStmt(s)

	case *ast.PrintStmt:
		fb.genPrint(s)

	case *ast.IfStmt:
		cond := fb.genCond(s.Cond)
		thenB := fb.fn.NewBlock()
		joinB := fb.fn.NewBlock()
		elseB := joinB
		if s.Else != nil {
			elseB = fb.fn.NewBlock()
		}
		fb.seal(Term{Kind: TermBranch, Cond: cond, Then: thenB, Else: elseB})
		fb.startBlock(thenB)
		fb.genStmt(s.Then)
		fb.jumpTo(joinB)
		if s.Else != nil {
			fb.startBlock(elseB)
			fb.genStmt(s.Else)
			fb.jumpTo(joinB)
		}
		fb.startBlock(joinB)

	case *ast.WhileStmt:
		head := fb.fn.NewBlock()
		body := fb.fn.NewBlock()
		exit := fb.fn.NewBlock()
		fb.jumpTo(head)
		fb.startBlock(head)
		cond := fb.genCond(s.Cond)
		fb.seal(Term{Kind: TermBranch, Cond: cond, Then: body, Else: exit})
		fb.startBlock(body)
		fb.loops = append(fb.loops, loopCtx{brk: exit, cont: head})
		fb.genStmt(s.Body)
		fb.loops = fb.loops[:len(fb.loops)-1]
		fb.jumpTo(head)
		fb.startBlock(exit)

	case *ast.DoWhileStmt:
		body := fb.fn.NewBlock()
		check := fb.fn.NewBlock()
		exit := fb.fn.NewBlock()
		fb.jumpTo(body)
		fb.startBlock(body)
		fb.loops = append(fb.loops, loopCtx{brk: exit, cont: check})
		fb.genStmt(s.Body)
		fb.loops = fb.loops[:len(fb.loops)-1]
		fb.jumpTo(check)
		fb.startBlock(check)
		cond := fb.genCond(s.Cond)
		fb.seal(Term{Kind: TermBranch, Cond: cond, Then: body, Else: exit})
		fb.startBlock(exit)

	case *ast.ForStmt:
		if s.Init != nil {
			fb.genStmt(s.Init)
		}
		head := fb.fn.NewBlock()
		body := fb.fn.NewBlock()
		post := fb.fn.NewBlock()
		exit := fb.fn.NewBlock()
		fb.jumpTo(head)
		fb.startBlock(head)
		if s.Cond != nil {
			cond := fb.genCond(s.Cond)
			fb.seal(Term{Kind: TermBranch, Cond: cond, Then: body, Else: exit})
		} else {
			fb.jumpTo(body)
		}
		fb.startBlock(body)
		fb.loops = append(fb.loops, loopCtx{brk: exit, cont: post})
		fb.genStmt(s.Body)
		fb.loops = fb.loops[:len(fb.loops)-1]
		fb.jumpTo(post)
		fb.startBlock(post)
		if s.Post != nil {
			fb.genStmt(s.Post)
		}
		fb.jumpTo(head)
		fb.startBlock(exit)

	case *ast.ForInStmt:
		arr := fb.arrayRef(s.Array)
		iter := fb.temp()
		fb.emit(Instr{Op: IterBegin, Dst: iter, Arr: arr, Pos: s.Pos()})
		head := fb.fn.NewBlock()
		body := fb.fn.NewBlock()
		exit := fb.fn.NewBlock()
		fb.jumpTo(head)
		fb.startBlock(head)
		key := fb.temp()
		fb.cur.Term = Term{Kind: TermIterNext, Iter: iter, Key: key, Then: body, Else: exit}
		fb.cur = nil
		fb.startBlock(body)
		fb.storeVar(s.Var, key)
		fb.loops = append(fb.loops, loopCtx{brk: exit, cont: head})
		fb.genStmt(s.Body)
		fb.loops = fb.loops[:len(fb.loops)-1]
		fb.jumpTo(head)
		fb.startBlock(exit)

	case *ast.BreakStmt:
		if len(fb.loops) == 0 {
			panic(compileErrf(s.Pos(), "break outside loop"))
		}
		fb.jumpTo(fb.loops[len(fb.loops)-1].brk)

	case *ast.ContinueStmt:
		if len(fb.loops) == 0 {
			panic(compileErrf(s.Pos(), "continue outside loop"))
		}
		fb.jumpTo(fb.loops[len(fb.loops)-1].cont)

	case *ast.NextStmt:
		fb.seal(Term{Kind: TermNext})

	case *ast.NextFileStmt:
		fb.seal(Term{Kind: TermNextFile})

	case *ast.ReturnStmt:
		ret := None
		if s.Value != nil {
			ret = fb.genExpr(s.Value)
		}
		fb.seal(Term{Kind: TermRet, Ret: ret})

	case *ast.ExitStmt:
		code := None
		if s.Code != nil {
			code = fb.genExpr(s.Code)
		}
		fb.seal(Term{Kind: TermExit, Ret: code})

	case *ast.DeleteStmt:
		arr := fb.arrayRef(s.Array)
		if len(s.Index) == 0 {
			fb.emit(Instr{Op: MapClear, Arr: arr, Pos: s.Pos()})
		} else {
			key := fb.genKey(s.Index)
			fb.emit(Instr{Op: MapDelete, Arr: arr, A: key, Pos: s.Pos()})
		}

	default:
		panic(compileErrf(stmt.Pos(), "unsupported statement"))
	}
}

func (fb *funcBuilder) genPrint(s *ast.PrintStmt) {
	op := Print
	if s.Printf {
		op = Printf
		if len(s.Args) == 0 {
			panic(compileErrf(s.Pos(), "printf requires a format argument"))
		}
	}
	var args []Temp
	for _, a := range s.Args {
		args = append(args, fb.genExpr(a))
	}
	dest := None
	mode := RedirectNone
	if s.Dest != nil {
		dest = fb.genExpr(s.Dest)
		switch s.Redirect {
		case token.GREATER:
			mode = RedirectWrite
		case token.APPEND:
			mode = RedirectAppend
		case token.PIPE:
			mode = RedirectPipe
		}
	}
	fb.emit(Instr{Op: op, List: args, A: dest, Imm: int64(mode), Pos: s.Pos()})
}

// -----------------------------------------------------------------------------
// Expressions
// -----------------------------------------------------------------------------

// genCond evaluates e as a 0/1 condition temp.
func (fb *funcBuilder) genCond(e ast.Expr) Temp {
	t := fb.genExpr(e)
	bt := fb.temp()
	fb.emit(Instr{Op: Bool, Dst: bt, A: t, Pos: e.Pos()})
	return bt
}

func (fb *funcBuilder) genExpr(expr ast.Expr) Temp {
	switch e := expr.(type) {
	case *ast.NumLit:
		t := fb.temp()
		fb.emit(Instr{Op: ConstNum, Dst: t, Num: e.Value, Pos: e.Pos()})
		return t

	case *ast.StrLit:
		t := fb.temp()
		fb.emit(Instr{Op: ConstStr, Dst: t, Str: e.Value, Pos: e.Pos()})
		return t

	case *ast.RegexLit:
		// A bare regex is a match against $0.
		rec := fb.genField0(e.Pos())
		t := fb.temp()
		fb.emit(Instr{Op: MatchConst, Dst: t, A: rec, Str: e.Pattern, Pos: e.Pos()})
		return t

	case *ast.Ident:
		return fb.loadVar(e)

	case *ast.FieldExpr:
		idx := fb.genExpr(e.Index)
		t := fb.temp()
		fb.emit(Instr{Op: GetField, Dst: t, A: idx, Pos: e.Pos()})
		return t

	case *ast.IndexExpr:
		arr := fb.arrayRef(e.Array)
		key := fb.genKey(e.Index)
		t := fb.temp()
		fb.emit(Instr{Op: MapGet, Dst: t, Arr: arr, A: key, Pos: e.Pos()})
		return t

	case *ast.GroupExpr:
		return fb.genExpr(e.Expr)

	case *ast.BinaryExpr:
		return fb.genBinary(e)

	case *ast.UnaryExpr:
		return fb.genUnary(e)

	case *ast.TernaryExpr:
		cond := fb.genCond(e.Cond)
		thenB := fb.fn.NewBlock()
		elseB := fb.fn.NewBlock()
		joinB := fb.fn.NewBlock()
		result := fb.temp()
		fb.seal(Term{Kind: TermBranch, Cond: cond, Then: thenB, Else: elseB})
		fb.startBlock(thenB)
		tv := fb.genExpr(e.Then)
		fb.emit(Instr{Op: Copy, Dst: result, A: tv, Pos: e.Pos()})
		fb.jumpTo(joinB)
		fb.startBlock(elseB)
		ev := fb.genExpr(e.Else)
		fb.emit(Instr{Op: Copy, Dst: result, A: ev, Pos: e.Pos()})
		fb.jumpTo(joinB)
		fb.startBlock(joinB)
		return result

	case *ast.AssignExpr:
		return fb.genAssign(e)

	case *ast.ConcatExpr:
		var parts []Temp
		for _, sub := range e.Exprs {
			parts = append(parts, fb.genExpr(sub))
		}
		t := fb.temp()
		fb.emit(Instr{Op: Concat, Dst: t, List: parts, Pos: e.Pos()})
		return t

	case *ast.CallExpr:
		return fb.genCall(e)

	case *ast.GetlineExpr:
		return fb.genGetline(e)

	case *ast.InExpr:
		arr := fb.arrayRef(e.Array)
		key := fb.genKey(e.Index)
		t := fb.temp()
		fb.emit(Instr{Op: MapContains, Dst: t, Arr: arr, A: key, Pos: e.Pos()})
		return t

	case *ast.MatchExpr:
		str := fb.genExpr(e.Expr)
		t := fb.temp()
		if re, ok := e.Pattern.(*ast.RegexLit); ok {
			fb.emit(Instr{Op: MatchConst, Dst: t, A: str, Str: re.Pattern, Pos: e.Pos()})
		} else {
			pat := fb.genExpr(e.Pattern)
			fb.emit(Instr{Op: Match, Dst: t, A: str, B: pat, Pos: e.Pos()})
		}
		if e.Op == token.NOT_MATCH {
			nt := fb.temp()
			fb.emit(Instr{Op: Not, Dst: nt, A: t, Pos: e.Pos()})
			return nt
		}
		return t

	default:
		panic(compileErrf(expr.Pos(), "unsupported expression"))
	}
}

func (fb *funcBuilder) genBinary(e *ast.BinaryExpr) Temp {
	switch e.Op {
	case token.AND, token.OR:
		// Short-circuit: result is 0/1.
		result := fb.temp()
		rhsB := fb.fn.NewBlock()
		shortB := fb.fn.NewBlock()
		joinB := fb.fn.NewBlock()
		lc := fb.genCond(e.Left)
		if e.Op == token.AND {
			fb.seal(Term{Kind: TermBranch, Cond: lc, Then: rhsB, Else: shortB})
		} else {
			fb.seal(Term{Kind: TermBranch, Cond: lc, Then: shortB, Else: rhsB})
		}
		fb.startBlock(rhsB)
		rc := fb.genCond(e.Right)
		fb.emit(Instr{Op: Copy, Dst: result, A: rc, Pos: e.Pos()})
		fb.jumpTo(joinB)
		fb.startBlock(shortB)
		val := 0.0
		if e.Op == token.OR {
			val = 1.0
		}
		one := fb.temp()
		fb.emit(Instr{Op: ConstNum, Dst: one, Num: val, Pos: e.Pos()})
		bt := fb.temp()
		fb.emit(Instr{Op: Bool, Dst: bt, A: one, Pos: e.Pos()})
		fb.emit(Instr{Op: Copy, Dst: result, A: bt, Pos: e.Pos()})
		fb.jumpTo(joinB)
		fb.startBlock(joinB)
		return result
	}

	left := fb.genExpr(e.Left)
	right := fb.genExpr(e.Right)
	t := fb.temp()
	var op Op
	switch e.Op {
	case token.ADD:
		op = Add
	case token.SUB:
		op = Sub
	case token.MUL:
		op = Mul
	case token.DIV:
		op = Div
	case token.MOD:
		op = Mod
	case token.POW:
		op = Pow
	case token.LESS:
		op = Lt
	case token.LTE:
		op = Le
	case token.GREATER:
		op = Gt
	case token.GTE:
		op = Ge
	case token.EQUALS:
		op = Eq
	case token.NOT_EQUALS:
		op = Ne
	default:
		panic(compileErrf(e.Pos(), "unsupported binary operator %s", e.Op))
	}
	fb.emit(Instr{Op: op, Dst: t, A: left, B: right, Pos: e.Pos()})
	return t
}

func (fb *funcBuilder) genUnary(e *ast.UnaryExpr) Temp {
	switch e.Op {
	case token.SUB:
		a := fb.genExpr(e.Expr)
		t := fb.temp()
		fb.emit(Instr{Op: Neg, Dst: t, A: a, Pos: e.Pos()})
		return t
	case token.ADD:
		a := fb.genExpr(e.Expr)
		t := fb.temp()
		fb.emit(Instr{Op: ToNum, Dst: t, A: a, Pos: e.Pos()})
		return t
	case token.NOT:
		a := fb.genExpr(e.Expr)
		t := fb.temp()
		fb.emit(Instr{Op: Not, Dst: t, A: a, Pos: e.Pos()})
		return t
	case token.INCR, token.DECR:
		old := fb.genExpr(e.Expr)
		oldNum := fb.temp()
		fb.emit(Instr{Op: ToNum, Dst: oldNum, A: old, Pos: e.Pos()})
		one := fb.temp()
		fb.emit(Instr{Op: ConstNum, Dst: one, Num: 1, Pos: e.Pos()})
		updated := fb.temp()
		op := Add
		if e.Op == token.DECR {
			op = Sub
		}
		fb.emit(Instr{Op: op, Dst: updated, A: oldNum, B: one, Pos: e.Pos()})
		fb.storeLValue(e.Expr, updated)
		if e.Post {
			return oldNum
		}
		return updated
	default:
		panic(compileErrf(e.Pos(), "unsupported unary operator %s", e.Op))
	}
}

func (fb *funcBuilder) genAssign(e *ast.AssignExpr) Temp {
	if e.Op == token.ASSIGN {
		val := fb.genExpr(e.Right)
		fb.storeLValue(e.Left, val)
		return val
	}
	// Augmented assignment: load, apply, store.
	old := fb.genExpr(e.Left)
	rhs := fb.genExpr(e.Right)
	var op Op
	switch e.Op {
	case token.ADD_ASSIGN:
		op = Add
	case token.SUB_ASSIGN:
		op = Sub
	case token.MUL_ASSIGN:
		op = Mul
	case token.DIV_ASSIGN:
		op = Div
	case token.MOD_ASSIGN:
		op = Mod
	case token.POW_ASSIGN:
		op = Pow
	default:
		panic(compileErrf(e.Pos(), "unsupported assignment operator %s", e.Op))
	}
	t := fb.temp()
	fb.emit(Instr{Op: op, Dst: t, A: old, B: rhs, Pos: e.Pos()})
	fb.storeLValue(e.Left, t)
	return t
}

func (fb *funcBuilder) genGetline(e *ast.GetlineExpr) Temp {
	mode := GetlineMain
	src := None
	switch {
	case e.File != nil:
		mode = GetlineFile
		src = fb.genExpr(e.File)
	case e.Command != nil:
		mode = GetlineCmd
		src = fb.genExpr(e.Command)
	}

	status := fb.temp()
	if e.Target == nil {
		fb.emit(Instr{Op: Getline, Dst: status, Dst2: None, A: src, Imm: int64(mode), Pos: e.Pos()})
		return status
	}

	line := fb.temp()
	fb.emit(Instr{Op: Getline, Dst: status, Dst2: line, A: src, Imm: int64(mode), Pos: e.Pos()})

	// Assign the target only on success.
	one := fb.temp()
	fb.emit(Instr{Op: ConstNum, Dst: one, Num: 1, Pos: e.Pos()})
	ok := fb.temp()
	fb.emit(Instr{Op: Eq, Dst: ok, A: status, B: one, Pos: e.Pos()})
	thenB := fb.fn.NewBlock()
	joinB := fb.fn.NewBlock()
	fb.seal(Term{Kind: TermBranch, Cond: ok, Then: thenB, Else: joinB})
	fb.startBlock(thenB)
	fb.storeLValue(e.Target, line)
	fb.jumpTo(joinB)
	fb.startBlock(joinB)
	return status
}

// -----------------------------------------------------------------------------
// Calls
// -----------------------------------------------------------------------------

func (fb *funcBuilder) genCall(e *ast.CallExpr) Temp {
	// User functions shadow builtins.
	if fi, ok := fb.b.st.funcIndex[e.Name]; ok {
		return fb.genUserCall(e, fi)
	}

	switch e.Name {
	case "split":
		return fb.genSplit(e)
	case "sub", "gsub":
		return fb.genSubstRepl(e, e.Name == "gsub")
	case "asort", "asorti":
		return fb.genSort(e, e.Name == "asorti")
	case "join":
		if len(e.Args) != 2 {
			panic(compileErrf(e.Pos(), "join requires an array and a separator"))
		}
		id, ok := e.Args[0].(*ast.Ident)
		if !ok {
			panic(compileErrf(e.Args[0].Pos(), "join: first argument must be an array"))
		}
		sep := fb.genExpr(e.Args[1])
		t := fb.temp()
		fb.emit(Instr{Op: JoinArr, Dst: t, Arr: fb.arrayRef(id), A: sep, Pos: e.Pos()})
		return t
	case "to_json":
		if len(e.Args) != 1 {
			panic(compileErrf(e.Pos(), "to_json requires an array argument"))
		}
		id, ok := e.Args[0].(*ast.Ident)
		if !ok {
			panic(compileErrf(e.Pos(), "to_json requires an array argument"))
		}
		t := fb.temp()
		fb.emit(Instr{Op: ToJSON, Dst: t, Arr: fb.arrayRef(id), Pos: e.Pos()})
		return t
	case "from_json":
		if len(e.Args) != 2 {
			panic(compileErrf(e.Pos(), "from_json requires text and array arguments"))
		}
		id, ok := e.Args[1].(*ast.Ident)
		if !ok {
			panic(compileErrf(e.Pos(), "from_json: second argument must be an array"))
		}
		text := fb.genExpr(e.Args[0])
		t := fb.temp()
		fb.emit(Instr{Op: FromJSON, Dst: t, A: text, Arr: fb.arrayRef(id), Pos: e.Pos()})
		return t
	case "length":
		// length(arr) is the element count; anything else is string length.
		if len(e.Args) == 1 {
			if id, ok := e.Args[0].(*ast.Ident); ok && fb.isArray(id) {
				t := fb.temp()
				fb.emit(Instr{Op: MapLen, Dst: t, Arr: fb.arrayRef(id), Pos: e.Pos()})
				return t
			}
		}
	}

	sig, ok := Builtins[e.Name]
	if !ok {
		panic(compileErrf(e.Pos(), "call to undefined function %s", e.Name))
	}
	if len(e.Args) < sig.MinArgs || (sig.MaxArgs >= 0 && len(e.Args) > sig.MaxArgs) {
		panic(compileErrf(e.Pos(), "wrong number of arguments to %s", e.Name))
	}

	var args []Temp
	if e.Name == "length" && len(e.Args) == 0 {
		args = append(args, fb.genField0(e.Pos()))
	}
	for i, a := range e.Args {
		// match(s, /re/) takes the pattern itself, not a match against $0.
		if sig.Builtin == BMatchPos && i == 1 {
			if re, isRe := a.(*ast.RegexLit); isRe {
				t := fb.temp()
				fb.emit(Instr{Op: ConstStr, Dst: t, Str: re.Pattern, Pos: a.Pos()})
				args = append(args, t)
				continue
			}
		}
		args = append(args, fb.genExpr(a))
	}
	t := fb.temp()
	fb.emit(Instr{Op: CallBuiltin, Dst: t, Imm: int64(sig.Builtin), List: args, Pos: e.Pos()})
	return t
}

func (fb *funcBuilder) genUserCall(e *ast.CallExpr, fi int) Temp {
	callee := fb.b.prog.Funcs[fi]
	if len(e.Args) > len(callee.ParamOrder) {
		panic(compileErrf(e.Pos(), "too many arguments in call to %s", callee.Name))
	}

	var scalars []Temp
	var arrays []ArrayRef
	for i, ps := range callee.ParamOrder {
		if i >= len(e.Args) {
			if ps.IsArray {
				arrays = append(arrays, ArrayRef{Scope: ScopeLocal, Slot: -1}) // fresh local array
			}
			continue
		}
		arg := e.Args[i]
		if ps.IsArray {
			id, ok := arg.(*ast.Ident)
			if !ok {
				panic(compileErrf(arg.Pos(), "argument %d of %s must be an array", i+1, callee.Name))
			}
			arrays = append(arrays, fb.arrayRef(id))
		} else {
			scalars = append(scalars, fb.genExpr(arg))
		}
	}

	t := fb.temp()
	fb.emit(Instr{Op: CallUser, Dst: t, Imm: int64(fi), List: scalars, ArrArgs: arrays, Pos: e.Pos()})
	return t
}

// genSort compiles asort and asorti: values (or keys, for asorti) of the
// source array sorted into the destination under keys 1..n. With one
// argument the source is rewritten in place.
func (fb *funcBuilder) genSort(e *ast.CallExpr, byIndex bool) Temp {
	if len(e.Args) < 1 || len(e.Args) > 2 {
		panic(compileErrf(e.Pos(), "wrong number of arguments to %s", e.Name))
	}
	src, ok := e.Args[0].(*ast.Ident)
	if !ok {
		panic(compileErrf(e.Args[0].Pos(), "%s: first argument must be an array", e.Name))
	}
	imm := int64(0)
	if byIndex {
		imm = 1
	}
	in := Instr{Op: SortArr, Arr: fb.arrayRef(src), Imm: imm, Pos: e.Pos()}
	if len(e.Args) == 2 {
		dest, ok := e.Args[1].(*ast.Ident)
		if !ok {
			panic(compileErrf(e.Args[1].Pos(), "%s: second argument must be an array", e.Name))
		}
		in.ArrArgs = []ArrayRef{fb.arrayRef(dest)}
	}
	t := fb.temp()
	in.Dst = t
	fb.emit(in)
	return t
}

func (fb *funcBuilder) genSplit(e *ast.CallExpr) Temp {
	if len(e.Args) < 2 || len(e.Args) > 3 {
		panic(compileErrf(e.Pos(), "wrong number of arguments to split"))
	}
	id, ok := e.Args[1].(*ast.Ident)
	if !ok {
		panic(compileErrf(e.Args[1].Pos(), "split: second argument must be an array"))
	}
	str := fb.genExpr(e.Args[0])
	sep := None
	if len(e.Args) == 3 {
		if re, isRe := e.Args[2].(*ast.RegexLit); isRe {
			sep = fb.temp()
			fb.emit(Instr{Op: ConstStr, Dst: sep, Str: re.Pattern, Pos: e.Pos()})
		} else {
			sep = fb.genExpr(e.Args[2])
		}
	}
	t := fb.temp()
	fb.emit(Instr{Op: Split, Dst: t, A: str, B: sep, Arr: fb.arrayRef(id), Pos: e.Pos()})
	return t
}

func (fb *funcBuilder) genSubstRepl(e *ast.CallExpr, global bool) Temp {
	if len(e.Args) < 2 || len(e.Args) > 3 {
		panic(compileErrf(e.Pos(), "wrong number of arguments to sub/gsub"))
	}
	var pat Temp
	if re, isRe := e.Args[0].(*ast.RegexLit); isRe {
		pat = fb.temp()
		fb.emit(Instr{Op: ConstStr, Dst: pat, Str: re.Pattern, Pos: e.Pos()})
	} else {
		pat = fb.genExpr(e.Args[0])
	}
	repl := fb.genExpr(e.Args[1])

	var target ast.Expr
	if len(e.Args) == 3 {
		target = e.Args[2]
		if !ast.IsLValue(target) {
			panic(compileErrf(target.Pos(), "sub/gsub target must be assignable"))
		}
	}

	var src Temp
	if target != nil {
		src = fb.genExpr(target)
	} else {
		src = fb.genField0(e.Pos())
	}

	imm := int64(0)
	if global {
		imm = 1
	}
	count := fb.temp()
	result := fb.temp()
	fb.emit(Instr{Op: SubstRepl, Dst: count, Dst2: result, List: []Temp{pat, repl, src}, Imm: imm, Pos: e.Pos()})

	if target != nil {
		fb.storeLValue(target, result)
	} else {
		zero := fb.temp()
		fb.emit(Instr{Op: ConstNum, Dst: zero, Num: 0, Pos: e.Pos()})
		fb.emit(Instr{Op: SetField, A: zero, B: result, Pos: e.Pos()})
	}
	return count
}

// -----------------------------------------------------------------------------
// Variables and lvalues
// -----------------------------------------------------------------------------

func (fb *funcBuilder) genField0(pos token.Position) Temp {
	zero := fb.temp()
	fb.emit(Instr{Op: ConstNum, Dst: zero, Num: 0, Pos: pos})
	t := fb.temp()
	fb.emit(Instr{Op: GetField, Dst: t, A: zero, Pos: pos})
	return t
}

func (fb *funcBuilder) genKey(index []ast.Expr) Temp {
	if len(index) == 1 {
		return fb.genExpr(index[0])
	}
	var parts []Temp
	for _, idx := range index {
		parts = append(parts, fb.genExpr(idx))
	}
	t := fb.temp()
	fb.emit(Instr{Op: SubsepJoin, Dst: t, List: parts, Pos: index[0].Pos()})
	return t
}

// isArray reports whether the identifier resolves to an array.
func (fb *funcBuilder) isArray(id *ast.Ident) bool {
	if id.Name == "ENVIRON" || id.Name == "ARGV" {
		return true
	}
	if fb.fname != "" {
		fs := fb.b.st.funcs[fb.b.st.funcIndex[fb.fname]]
		if _, ok := fs.localArrays[id.Name]; ok {
			return true
		}
		if _, isParam := fs.paramSet[id.Name]; isParam {
			return false
		}
	}
	_, ok := fb.b.st.globalArrays[id.Name]
	return ok
}

// arrayRef resolves an identifier to an array reference.
func (fb *funcBuilder) arrayRef(id *ast.Ident) ArrayRef {
	if fb.fname != "" {
		fs := fb.b.st.funcs[fb.b.st.funcIndex[fb.fname]]
		if slot, ok := fs.localArrays[id.Name]; ok {
			return ArrayRef{Scope: ScopeLocal, Slot: slot}
		}
	}
	if slot, ok := fb.b.st.globalArrays[id.Name]; ok {
		return ArrayRef{Scope: ScopeGlobal, Slot: slot}
	}
	panic(compileErrf(id.Pos(), "cannot use %s as array", id.Name))
}

func (fb *funcBuilder) loadVar(id *ast.Ident) Temp {
	if sp, ok := LookupSpecial(id.Name); ok {
		t := fb.temp()
		fb.emit(Instr{Op: LoadSpecial, Dst: t, Imm: int64(sp), Pos: id.Pos()})
		return t
	}
	if fb.fname != "" {
		fs := fb.b.st.funcs[fb.b.st.funcIndex[fb.fname]]
		if slot, ok := fs.localScalars[id.Name]; ok {
			t := fb.temp()
			fb.emit(Instr{Op: LoadLocal, Dst: t, Imm: int64(slot), Pos: id.Pos()})
			return t
		}
	}
	if slot, ok := fb.b.st.globalScalars[id.Name]; ok {
		t := fb.temp()
		fb.emit(Instr{Op: LoadGlobal, Dst: t, Imm: int64(slot), Pos: id.Pos()})
		return t
	}
	panic(compileErrf(id.Pos(), "cannot use array %s as scalar", id.Name))
}

func (fb *funcBuilder) storeVar(id *ast.Ident, val Temp) {
	if sp, ok := LookupSpecial(id.Name); ok {
		fb.emit(Instr{Op: StoreSpecial, A: val, Imm: int64(sp), Pos: id.Pos()})
		return
	}
	if fb.fname != "" {
		fs := fb.b.st.funcs[fb.b.st.funcIndex[fb.fname]]
		if slot, ok := fs.localScalars[id.Name]; ok {
			fb.emit(Instr{Op: StoreLocal, A: val, Imm: int64(slot), Pos: id.Pos()})
			return
		}
	}
	if slot, ok := fb.b.st.globalScalars[id.Name]; ok {
		fb.emit(Instr{Op: StoreGlobal, A: val, Imm: int64(slot), Pos: id.Pos()})
		return
	}
	panic(compileErrf(id.Pos(), "cannot use array %s as scalar", id.Name))
}

func (fb *funcBuilder) storeLValue(target ast.Expr, val Temp) {
	switch lv := target.(type) {
	case *ast.Ident:
		fb.storeVar(lv, val)
	case *ast.FieldExpr:
		idx := fb.genExpr(lv.Index)
		fb.emit(Instr{Op: SetField, A: idx, B: val, Pos: lv.Pos()})
	case *ast.IndexExpr:
		arr := fb.arrayRef(lv.Array)
		key := fb.genKey(lv.Index)
		fb.emit(Instr{Op: MapSet, Arr: arr, A: key, B: val, Pos: lv.Pos()})
	case *ast.GroupExpr:
		fb.storeLValue(lv.Expr, val)
	default:
		panic(compileErrf(target.Pos(), "cannot assign to this expression"))
	}
}

// collectMainWrites records global slots written by the main phase: rule
// patterns and bodies plus every user function (functions may be called
// from anywhere, so they count as main-phase writers).
func collectMainWrites(p *Program) {
	scalars := make(map[int32]bool)
	arrays := make(map[int32]bool)

	scan := func(fn *Func) {
		if fn == nil {
			return
		}
		for _, blk := range fn.Blocks {
			for _, in := range blk.Instrs {
				switch in.Op {
				case StoreGlobal:
					scalars[int32(in.Imm)] = true
				case MapSet, MapDelete, MapClear, Split, FromJSON:
					if in.Arr.Scope == ScopeGlobal {
						arrays[in.Arr.Slot] = true
					}
				case SortArr:
					// Writes the destination, or the source in place.
					if len(in.ArrArgs) > 0 {
						if in.ArrArgs[0].Scope == ScopeGlobal {
							arrays[in.ArrArgs[0].Slot] = true
						}
					} else if in.Arr.Scope == ScopeGlobal {
						arrays[in.Arr.Slot] = true
					}
				}
			}
		}
	}

	for _, r := range p.Rules {
		if r.Pattern != nil {
			scan(r.Pattern)
		}
		if r.PatternEnd != nil {
			scan(r.PatternEnd)
		}
		scan(r.Body)
	}
	for _, fn := range p.Funcs {
		scan(fn)
	}

	for slot := range scalars {
		p.MainScalarWrites = append(p.MainScalarWrites, slot)
	}
	for slot := range arrays {
		p.MainArrayWrites = append(p.MainArrayWrites, slot)
	}
}
