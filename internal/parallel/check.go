package parallel

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zawk-lang/zawk/internal/bytecode"
)

// SharedStateError reports main-phase writes to globals that are not
// declared reductions; such programs cannot run under --parallel because
// the merge result would depend on shard count.
type SharedStateError struct {
	Names []string
}

func (e *SharedStateError) Error() string {
	return fmt.Sprintf(
		"cannot parallelize: main phase writes to undeclared global(s) %s (declare with @reduce)",
		strings.Join(e.Names, ", "))
}

// Check verifies the program's main phase only writes declared reduction
// variables.
func Check(prog *bytecode.Program) error {
	reduceScalars := make(map[int32]bool)
	reduceArrays := make(map[int32]bool)
	for _, rd := range prog.Reduces {
		if rd.IsArray {
			reduceArrays[rd.Slot] = true
		} else {
			reduceScalars[rd.Slot] = true
		}
	}

	var names []string
	for _, slot := range prog.MainScalarWrites {
		if !reduceScalars[slot] {
			names = append(names, prog.GlobalNames[slot])
		}
	}
	for _, slot := range prog.MainArrayWrites {
		if !reduceArrays[slot] {
			names = append(names, prog.MapNames[slot])
		}
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)
	return &SharedStateError{Names: names}
}
