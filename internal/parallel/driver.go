// Package parallel runs a compiled program across input shards: the
// input is chunked at record boundaries, each shard executes a private
// interpreter over private state, and declared reduction variables are
// merged by their monoid after all shards reach end of input. Per-shard
// output buffers are concatenated in input order, so the observable
// output is deterministic.
package parallel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/zawk-lang/zawk/internal/bytecode"
	"github.com/zawk-lang/zawk/internal/interp"
	"github.com/zawk-lang/zawk/internal/runtime"
)

// Config controls the driver.
type Config struct {
	// Shards is the worker count; values below 2 mean serial execution
	// belongs to the caller.
	Shards int

	// ChunkSize is the streaming-mode chunk size in bytes.
	ChunkSize int
}

// DefaultChunkSize is the streaming chunk size when none is configured.
const DefaultChunkSize = 4 * 1024 * 1024

// shardResult carries one shard's observable effects back to the
// coordinator.
type shardResult struct {
	id      int
	out     []byte
	scalars map[int32]runtime.Value
	arrays  map[int32]any
	records int64
	err     error
}

// Run executes prog over the base configuration's input with the given
// shard count. BEGIN runs once in a coordinator before sharding; END
// runs once on the merged state.
func Run(prog *bytecode.Program, base interp.Config, cfg Config) error {
	if err := Check(prog); err != nil {
		return err
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}

	// Phase 1: BEGIN in the coordinator, with the main and END phases
	// suppressed.
	coordCfg := base
	coordCfg.Inputs = nil
	coordCfg.SkipEnd = true
	coord := interp.New(prog, coordCfg)

	var exitErr *interp.ExitError
	if err := coord.Run(); err != nil {
		if ee, ok := errAsExit(err); ok {
			exitErr = ee
		} else {
			return err
		}
	}

	// Phase 2: shard the input and run the main phase in parallel.
	if exitErr == nil && len(prog.Rules) > 0 {
		var err error
		exitErr, err = runShards(prog, base, cfg, coord)
		if err != nil {
			return err
		}
	}

	// Phase 3: END once, on the merged state.
	if prog.End >= 0 {
		endCfg := base
		endCfg.Inputs = nil
		endCfg.SkipBegin = true
		end := interp.New(prog, endCfg)
		coord.CloneStateInto(end)
		end.SetNR(coord.NR())
		if err := end.RunEndOnly(); err != nil {
			if ee, ok := errAsExit(err); ok {
				return ee
			}
			return err
		}
	}

	if exitErr != nil && exitErr.Code != 0 {
		return exitErr
	}
	return nil
}

func errAsExit(err error) (*interp.ExitError, bool) {
	var ee *interp.ExitError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}

// runShards splits the input, runs the shards, and merges results into
// the coordinator in input order.
func runShards(prog *bytecode.Program, base interp.Config, cfg Config, coord *interp.Interp) (*interp.ExitError, error) {
	sp := newSplitter(base, cfg)
	shardsIn, err := sp.splitInputs(base.Inputs)
	if err != nil {
		return nil, err
	}
	if len(shardsIn) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make([]*shardResult, len(shardsIn))
	var wg sync.WaitGroup
	sem := make(chan struct{}, cfg.Shards)

	for i, src := range shardsIn {
		wg.Add(1)
		go func(id int, src interp.NamedInput) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			select {
			case <-ctx.Done():
				results[id] = &shardResult{id: id, err: ctx.Err()}
				return
			default:
			}

			res := runShard(prog, base, coord, id, src)
			results[id] = res
			if res.err != nil {
				// A fatal error in any shard stops the others from
				// starting new work.
				if _, isExit := errAsExit(res.err); !isExit {
					cancel()
				}
			}
		}(i, src)
	}
	wg.Wait()

	// Merge in input-chunk order: output concatenation and reductions
	// are both order-deterministic.
	var exitErr *interp.ExitError
	var totalNR int64
	for _, res := range results {
		if res == nil {
			continue
		}
		if res.err != nil {
			if ee, ok := errAsExit(res.err); ok {
				if exitErr == nil {
					exitErr = ee
				}
				continue
			}
			if errors.Is(res.err, context.Canceled) {
				continue
			}
			return nil, res.err
		}
		if _, err := base.Output.Write(res.out); err != nil {
			return nil, fmt.Errorf("write error: %w", err)
		}
		mergeReductions(prog, coord, res)
		totalNR += res.records
	}
	coord.SetNR(coord.NR() + totalNR)

	return exitErr, nil
}

// runShard executes one shard over its private interpreter.
func runShard(prog *bytecode.Program, base interp.Config, coord *interp.Interp, id int, src interp.NamedInput) *shardResult {
	var buf bytes.Buffer
	shardCfg := base
	shardCfg.Inputs = []interp.NamedInput{src}
	shardCfg.Output = &buf
	shardCfg.SkipBegin = true
	shardCfg.SkipEnd = true

	in := interp.New(prog, shardCfg)
	coord.CloneStateInto(in)
	in.ZeroReductions()

	res := &shardResult{id: id}
	if err := in.Run(); err != nil {
		res.err = err
		res.out = buf.Bytes()
		return res
	}

	res.out = buf.Bytes()
	res.records = in.NR()
	res.scalars = make(map[int32]runtime.Value)
	res.arrays = make(map[int32]any)
	for _, rd := range prog.Reduces {
		if rd.IsArray {
			res.arrays[rd.Slot] = in.GlobalArray(rd.Slot)
		} else {
			res.scalars[rd.Slot] = in.GlobalValue(rd.Slot)
		}
	}
	return res
}

// mergeReductions folds one shard's reduction state into the coordinator.
func mergeReductions(prog *bytecode.Program, coord *interp.Interp, res *shardResult) {
	for _, rd := range prog.Reduces {
		if rd.IsArray {
			mergeArray(rd, coord.GlobalArray(rd.Slot), res.arrays[rd.Slot])
		} else {
			merged := combine(rd.Op, coord.GlobalValue(rd.Slot), res.scalars[rd.Slot])
			coord.SetGlobalValue(rd.Slot, merged)
		}
	}
}

// combine applies the monoid to an accumulator and one shard value.
func combine(op bytecode.ReduceOp, acc, v runtime.Value) runtime.Value {
	switch op {
	case bytecode.ReduceSum:
		if acc.Kind == runtime.KindInt && v.Kind == runtime.KindInt {
			return runtime.IntValue(acc.I + v.I)
		}
		return runtime.FloatValue(acc.Num() + v.Num())
	case bytecode.ReduceMin:
		if less(v, acc) {
			return v
		}
		return acc
	case bytecode.ReduceMax:
		if less(acc, v) {
			return v
		}
		return acc
	case bytecode.ReduceConcat:
		return runtime.StrValue(acc.Str(runtime.DefaultConvFmt) + v.Str(runtime.DefaultConvFmt))
	default:
		return v
	}
}

func less(a, b runtime.Value) bool {
	if a.Kind == runtime.KindStr || b.Kind == runtime.KindStr {
		return a.Str(runtime.DefaultConvFmt) < b.Str(runtime.DefaultConvFmt)
	}
	return a.Num() < b.Num()
}

// mergeArray merges one shard array into the accumulator table per key.
func mergeArray(rd bytecode.Reduce, dst, src any) {
	if src == nil {
		return
	}
	switch s := src.(type) {
	case *runtime.Table[int64, int64]:
		d := dst.(*runtime.Table[int64, int64])
		s.Each(func(k, v int64) {
			if d.Contains(k) {
				d.Set(k, mergeInt(rd.Op, d.Get(k), v))
			} else {
				d.Set(k, v)
			}
		})
	case *runtime.Table[int64, float64]:
		d := dst.(*runtime.Table[int64, float64])
		s.Each(func(k int64, v float64) {
			if d.Contains(k) {
				d.Set(k, mergeFloat(rd.Op, d.Get(k), v))
			} else {
				d.Set(k, v)
			}
		})
	case *runtime.Table[int64, string]:
		d := dst.(*runtime.Table[int64, string])
		s.Each(func(k int64, v string) {
			if d.Contains(k) {
				d.Set(k, mergeStr(rd.Op, d.Get(k), v))
			} else {
				d.Set(k, v)
			}
		})
	case *runtime.Table[string, int64]:
		d := dst.(*runtime.Table[string, int64])
		s.Each(func(k string, v int64) {
			if d.Contains(k) {
				d.Set(k, mergeInt(rd.Op, d.Get(k), v))
			} else {
				d.Set(k, v)
			}
		})
	case *runtime.Table[string, float64]:
		d := dst.(*runtime.Table[string, float64])
		s.Each(func(k string, v float64) {
			if d.Contains(k) {
				d.Set(k, mergeFloat(rd.Op, d.Get(k), v))
			} else {
				d.Set(k, v)
			}
		})
	case *runtime.Table[string, string]:
		d := dst.(*runtime.Table[string, string])
		s.Each(func(k, v string) {
			if d.Contains(k) {
				d.Set(k, mergeStr(rd.Op, d.Get(k), v))
			} else {
				d.Set(k, v)
			}
		})
	}
}

func mergeInt(op bytecode.ReduceOp, a, b int64) int64 {
	switch op {
	case bytecode.ReduceSum:
		return a + b
	case bytecode.ReduceMin:
		if b < a {
			return b
		}
		return a
	case bytecode.ReduceMax:
		if b > a {
			return b
		}
		return a
	default:
		return b
	}
}

func mergeFloat(op bytecode.ReduceOp, a, b float64) float64 {
	switch op {
	case bytecode.ReduceSum:
		return a + b
	case bytecode.ReduceMin:
		if b < a {
			return b
		}
		return a
	case bytecode.ReduceMax:
		if b > a {
			return b
		}
		return a
	default:
		return b
	}
}

func mergeStr(op bytecode.ReduceOp, a, b string) string {
	switch op {
	case bytecode.ReduceConcat:
		return a + b
	case bytecode.ReduceMin:
		if b < a {
			return b
		}
		return a
	case bytecode.ReduceMax:
		if b > a {
			return b
		}
		return a
	default:
		return b
	}
}
