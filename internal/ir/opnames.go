package ir

import "fmt"

var opNames = map[Op]string{
	Nop: "nop", ConstNum: "constnum", ConstStr: "conststr", Copy: "copy",
	LoadGlobal: "loadglobal", StoreGlobal: "storeglobal",
	LoadLocal: "loadlocal", StoreLocal: "storelocal",
	LoadSpecial: "loadspecial", StoreSpecial: "storespecial",
	GetField: "getfield", SetField: "setfield",
	MapGet: "mapget", MapSet: "mapset", MapDelete: "mapdelete",
	MapClear: "mapclear", MapContains: "mapcontains", MapLen: "maplen",
	SubsepJoin: "subsepjoin", IterBegin: "iterbegin",
	Add: "add", Sub: "sub", Mul: "mul", Div: "div", Mod: "mod", Pow: "pow",
	Neg: "neg", ToNum: "tonum", Not: "not", Bool: "bool",
	Lt: "lt", Le: "le", Gt: "gt", Ge: "ge", Eq: "eq", Ne: "ne",
	Concat: "concat", Match: "match", MatchConst: "matchconst",
	CallBuiltin: "callbuiltin", CallUser: "calluser",
	Split: "split", SubstRepl: "substrepl",
	ToJSON: "tojson", FromJSON: "fromjson",
	SortArr: "sortarr", JoinArr: "joinarr",
	Getline: "getline", Print: "print", Printf: "printf",
}

// String returns the op's lowercase mnemonic.
func (op Op) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return fmt.Sprintf("op(%d)", int(op))
}

// String returns the terminator kind's mnemonic.
func (k TermKind) String() string {
	switch k {
	case TermJump:
		return "jump"
	case TermBranch:
		return "branch"
	case TermIterNext:
		return "iternext"
	case TermRet:
		return "ret"
	case TermNext:
		return "next"
	case TermNextFile:
		return "nextfile"
	case TermExit:
		return "exit"
	default:
		return "term?"
	}
}
