// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: coordinator_main.go — coordinator subcommand
//
// Purpose:
//   - Resolves launch options (defaults ← INI file ← explicit flags),
//     opens the run, serves the RPC surface until exhaustion.
//
// Exit codes: 0 on a fully completed a-axis, 1 on configuration or
// persistence failure.
// ─────────────────────────────────────────────────────────────────────────────

package main

import (
	"flag"

	"bealsearch/coordinator"
	"bealsearch/debug"
	"bealsearch/utils"
)

func coordinatorMain(args []string) int {
	fs := flag.NewFlagSet("coordinator", flag.ExitOnError)
	var (
		cfgPath = fs.String("config", "", "INI config file (flags override it)")
		maxBase = fs.Uint("max-base", 0, "upper bound on bases a, b, c")
		maxPow  = fs.Uint("max-pow", 0, "upper bound on exponents x, y, z")
		primes  = fs.String("primes", "", "comma-separated 32-bit filter primes, most discriminating first")
		output  = fs.String("out", "", "result log path (required unless set in config)")
		dbPath  = fs.String("db", "", "run database path")
		listen  = fs.String("listen", "", "host:port for the RPC surface")
	)
	fs.Parse(args)

	opts := coordinator.DefaultOptions()
	if *cfgPath != "" {
		var err error
		if opts, err = coordinator.LoadOptions(*cfgPath, opts); err != nil {
			debug.DropError("CONFIG", err)
			return 1
		}
	}
	if *maxBase != 0 {
		opts.MaxBase = uint32(*maxBase)
	}
	if *maxPow != 0 {
		opts.MaxPow = uint32(*maxPow)
	}
	if *primes != "" {
		list, err := utils.ParseU32List(*primes)
		if err != nil {
			debug.DropError("CONFIG", err)
			return 1
		}
		opts.Primes = list
	}
	if *output != "" {
		opts.Output = *output
	}
	if *dbPath != "" {
		opts.Database = *dbPath
	}
	if *listen != "" {
		opts.Listen = *listen
	}
	if err := opts.Validate(); err != nil {
		debug.DropError("CONFIG", err)
		return 1
	}

	prob, err := coordinator.NewProblem(opts.Config(), opts.Output, opts.Database)
	if err != nil {
		debug.DropError("STARTUP", err)
		return 1
	}
	defer prob.Close()

	debug.DropMessage("SEARCH", "max base "+utils.Utoa(uint64(opts.MaxBase))+
		", max power "+utils.Utoa(uint64(opts.MaxPow))+
		", "+utils.Itoa(len(opts.Primes))+" filter primes")

	if err := prob.Serve(opts.Listen); err != nil {
		debug.DropError("FATAL", err)
		return 1
	}
	debug.DropMessage("COORDINATOR", "search complete, results in "+opts.Output)
	return 0
}
