package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/wasmlite/wasmlite/engine"
	"github.com/wasmlite/wasmlite/runtime"
	"github.com/wasmlite/wasmlite/types"
	"github.com/wasmlite/wasmlite/wasi"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to wasm or wat file")
		invoke      = flag.String("invoke", "", "Exported function to call (optional)")
		funcArgs    = flag.String("args", "", "Function arguments (comma-separated numbers)")
		envVars     = flag.String("env", "", "Environment variables (KEY=VAL,KEY2=VAL2)")
		cliArgs     = flag.String("argv", "", "WASI CLI arguments (comma-separated)")
		preopens    = flag.String("preopens", "", "Preopened directories (/host:/guest,/host2:/guest2)")
		stdin       = flag.String("stdin", "", "Stdin data")
		fuel        = flag.Uint64("fuel", 0, "Meter execution with this much fuel")
		list        = flag.Bool("list", false, "List exported functions and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: wasmrun -wasm <file.wasm|file.wat> [-invoke name] [-args 1,2] [-env K=V,...]")
		fmt.Fprintln(os.Stderr, "       wasmrun -wasm <file> -list")
		fmt.Fprintln(os.Stderr, "       wasmrun -wasm <file> -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		if err := runInteractive(*wasmFile, *fuel); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*wasmFile, *invoke, *funcArgs, *envVars, *cliArgs, *preopens, *stdin, *fuel, *list); err != nil {
		var trap *runtime.Trap
		if errors.As(err, &trap) {
			if code, ok := trap.ExitStatus(); ok {
				os.Exit(int(code))
			}
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(wasmFile, invoke, argsStr, envStr, argvStr, preopensStr, stdinStr string, fuel uint64, listOnly bool) error {
	ctx := context.Background()

	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	cfg := engine.NewConfig()
	if fuel > 0 {
		cfg.ConsumeFuel = true
	}
	eng, err := engine.NewWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	defer eng.Close(ctx)

	module, err := runtime.Compile(ctx, eng, data)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}

	ty := module.Type()
	fmt.Printf("Module: %s\n", wasmFile)
	fmt.Printf("Imports: %d\n", len(ty.Imports))
	fmt.Printf("Exports: %d\n", len(ty.Exports))

	fmt.Printf("\nExported functions:\n")
	for _, exp := range ty.Exports {
		if exp.Type.Kind == types.ExternFunc {
			fmt.Printf("  %s%s\n", exp.Name, signature(*exp.Type.Func))
		}
	}

	if listOnly {
		return nil
	}

	store := runtime.NewStore(ctx, eng)
	defer store.Close(ctx)

	if fuel > 0 {
		if err := store.AddFuel(fuel); err != nil {
			return fmt.Errorf("add fuel: %w", err)
		}
	}

	wasiCfg := wasi.NewConfig()
	wasiCfg.InheritStdout()
	wasiCfg.InheritStderr()
	if envStr != "" {
		var keys, values []string
		for _, kv := range strings.Split(envStr, ",") {
			if k, v, ok := strings.Cut(kv, "="); ok {
				keys = append(keys, k)
				values = append(values, v)
			}
		}
		if err := wasiCfg.SetEnv(keys, values); err != nil {
			return fmt.Errorf("set env: %w", err)
		}
	}
	if argvStr != "" {
		wasiCfg.SetArgv(strings.Split(argvStr, ","))
	}
	if preopensStr != "" {
		for _, mapping := range strings.Split(preopensStr, ",") {
			host, guest, ok := strings.Cut(mapping, ":")
			if !ok {
				return fmt.Errorf("bad preopen %q, want /host:/guest", mapping)
			}
			if err := wasiCfg.PreopenDir(host, guest); err != nil {
				return fmt.Errorf("preopen: %w", err)
			}
		}
	}
	if stdinStr != "" {
		wasiCfg.SetStdin(strings.NewReader(stdinStr))
	}
	store.SetWasi(wasiCfg)

	linker := runtime.NewLinker(store)
	if err := linker.DefineWasi(); err != nil {
		return fmt.Errorf("define wasi: %w", err)
	}

	fmt.Printf("\nInstantiating...\n")
	instance, err := linker.Instantiate(ctx, module)
	if err != nil {
		return fmt.Errorf("instantiate: %w", err)
	}

	if invoke == "" {
		for _, name := range []string{"_start", "run", "main"} {
			if _, err := instance.Func(name); err == nil {
				invoke = name
				break
			}
		}
		if invoke == "" {
			fmt.Printf("\nNo function specified and no common entry point found.\n")
			fmt.Printf("Use -invoke to specify a function to call.\n")
			return nil
		}
	}

	fn, err := instance.Func(invoke)
	if err != nil {
		return err
	}
	args, err := parseArgs(argsStr, fn.Type().Params)
	if err != nil {
		return err
	}

	fmt.Printf("\nCalling %s(%s)...\n", invoke, argsStr)
	results, err := fn.Call(ctx, args...)
	if err != nil {
		return fmt.Errorf("call %s: %w", invoke, err)
	}

	for _, r := range results {
		fmt.Printf("Result: %s\n", r)
	}
	if consumed, ok := store.FuelConsumed(); ok {
		fmt.Printf("Fuel consumed: %d\n", consumed)
	}
	return nil
}

// parseArgs converts comma-separated literals to values of the
// function's parameter types.
func parseArgs(argsStr string, params []types.ValType) ([]runtime.Val, error) {
	var parts []string
	if argsStr != "" {
		parts = strings.Split(argsStr, ",")
	}
	if len(parts) != len(params) {
		return nil, fmt.Errorf("function takes %d arguments, got %d", len(params), len(parts))
	}
	args := make([]runtime.Val, len(parts))
	for i, p := range parts {
		v, err := parseArg(strings.TrimSpace(p), params[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		args[i] = v
	}
	return args, nil
}

func parseArg(s string, t types.ValType) (runtime.Val, error) {
	switch t.Kind() {
	case types.KindI32:
		v, err := strconv.ParseInt(s, 0, 32)
		if err != nil {
			return runtime.Val{}, err
		}
		return runtime.ValI32(int32(v)), nil
	case types.KindI64:
		v, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return runtime.Val{}, err
		}
		return runtime.ValI64(v), nil
	case types.KindF32:
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return runtime.Val{}, err
		}
		return runtime.ValF32(float32(v)), nil
	case types.KindF64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return runtime.Val{}, err
		}
		return runtime.ValF64(v), nil
	}
	return runtime.Val{}, fmt.Errorf("cannot build a %s argument from the command line", t)
}

func signature(ft types.FuncType) string {
	var params []string
	for _, p := range ft.Params {
		params = append(params, p.String())
	}
	out := "(" + strings.Join(params, ", ") + ")"
	if len(ft.Results) > 0 {
		var results []string
		for _, r := range ft.Results {
			results = append(results, r.String())
		}
		out += " -> " + strings.Join(results, ", ")
	}
	return out
}
