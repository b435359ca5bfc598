package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/bindgen/abi"
	"github.com/wippyai/bindgen/backend/eval"
)

func main() {
	var (
		sig         = flag.String("sig", "", "Function signature, e.g. 'greet: func(name: string) -> string'")
		file        = flag.String("file", "", "Path to a file of type and function declarations")
		funcName    = flag.String("func", "", "Only dump this function from -file")
		dir         = flag.String("dir", "all", "Direction: import, export or all")
		mode        = flag.String("mode", "all", "Mode: lower (lower args, lift results), lift (lift args, lower results) or all")
		postReturn  = flag.Bool("post-return", false, "Also dump export post-return functions")
		sigOnly     = flag.Bool("sig-only", false, "Print core wasm signatures without instructions")
		realloc     = flag.String("realloc", "", "Name of the guest allocator (default "+abi.DefaultRealloc+")")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		check       = flag.Bool("check", false, "Also compile each listing for the interpreter")
		verbose     = flag.Bool("v", false, "Log generator and interpreter activity to stderr")
	)
	flag.Parse()

	if *sig == "" && *file == "" && !*interactive {
		fmt.Fprintln(os.Stderr, "Usage: abidump -sig '<name>: func(...) -> T' [-dir import|export|all] [-mode lower|lift|all]")
		fmt.Fprintln(os.Stderr, "       abidump -file <decls.wit> [-func name] [-post-return]")
		fmt.Fprintln(os.Stderr, "       abidump [-file <decls.wit>] -i  (interactive mode)")
		os.Exit(1)
	}

	if *verbose {
		log, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer log.Sync()
		abi.SetLogger(log)
		eval.SetLogger(log)
	}

	fns, err := loadFunctions(*sig, *file, *funcName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if err := runInteractive(fns, abi.Options{Realloc: *realloc}); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	targets, err := parseTargets(*dir, *mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	opts := dumpOptions{
		targets:    targets,
		postReturn: *postReturn,
		check:      *check,
		sigOnly:    *sigOnly,
		abi:        abi.Options{Realloc: *realloc},
		style:      plainStyles(),
	}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		opts.style = colorStyles()
	}

	if err := dump(os.Stdout, fns, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
