// Package eval is an interpreting backend for the abi generator.
//
// A Compiler records the instruction stream of one function into a Program
// of register-based steps with nested blocks. Running the program against
// an Env moves real values through a linear memory and a handle table, which
// makes it possible to check that a lowering and the matching lifting round
// trip:
//
//	guest, _ := eval.Compile(abi.Import, abi.LowerArgsLiftResults, fn)
//	host, _ := eval.Compile(abi.Import, abi.LiftArgsLowerResults, fn)
//
//	env.Wasm = func(ctx context.Context, name string, params []uint64) ([]uint64, error) {
//	    return eval.Flat(host.Run(ctx, hostEnv, eval.Args(params)))
//	}
//	results, err := guest.Run(ctx, env, []any{"hello"})
//
// Memory released with ownership is freed through Env.Alloc as soon as the
// interpreter has copied it into Go values.
package eval
