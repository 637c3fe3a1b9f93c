package interp

import (
	"github.com/zawk-lang/zawk/internal/ir"
)

func (in *Interp) loadSpecInt(sp ir.Special) int64 {
	switch sp {
	case ir.SpecNR:
		return in.nr
	case ir.SpecFNR:
		return in.fnr
	case ir.SpecNF:
		return in.getNF()
	case ir.SpecRSTART:
		return in.rstart
	case ir.SpecRLENGTH:
		return in.rlength
	default:
		return 0
	}
}

func (in *Interp) loadSpecStr(sp ir.Special) string {
	switch sp {
	case ir.SpecFS:
		return in.fs
	case ir.SpecOFS:
		return in.ofs
	case ir.SpecORS:
		return in.ors
	case ir.SpecRS:
		return in.rs
	case ir.SpecFILENAME:
		return in.filename
	case ir.SpecSUBSEP:
		return in.subsep
	case ir.SpecCONVFMT:
		return in.convfmt
	case ir.SpecOFMT:
		return in.ofmt
	default:
		return ""
	}
}

func (in *Interp) storeSpecInt(sp ir.Special, v int64) {
	switch sp {
	case ir.SpecNR:
		in.nr = v
	case ir.SpecFNR:
		in.fnr = v
	case ir.SpecNF:
		in.setNF(v)
	case ir.SpecRSTART:
		in.rstart = v
	case ir.SpecRLENGTH:
		in.rlength = v
	}
}

func (in *Interp) storeSpecStr(sp ir.Special, v string) {
	switch sp {
	case ir.SpecFS:
		in.fs = v
	case ir.SpecOFS:
		in.ofs = v
		in.out.OFS = v
	case ir.SpecORS:
		in.ors = v
		in.out.ORS = v
	case ir.SpecRS:
		in.rs = v
	case ir.SpecFILENAME:
		in.filename = v
	case ir.SpecSUBSEP:
		in.subsep = v
	case ir.SpecCONVFMT:
		in.convfmt = v
	case ir.SpecOFMT:
		in.ofmt = v
	}
}
