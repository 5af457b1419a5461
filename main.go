// ════════════════════════════════════════════════════════════════════════════════════════════════
// Beal Counterexample Search - Entry Point
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Beal Counterexample Search
// Component: Subcommand Dispatch
//
// Description:
//   One binary, two roles. "coordinator" owns the a-axis and the result
//   log; "worker" builds the residue indices and grinds shards. Workers
//   are stateless across shards and talk to the coordinator over two HTTP
//   endpoints: get_work and finish_work.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package main

import (
	"os"

	"bealsearch/utils"
)

func usage() {
	utils.PrintWarning(`usage:
  bealsearch coordinator [flags]   run the shard dispatcher and result log
  bealsearch worker      [flags]   run a search worker fleet

run a subcommand with -h for its flags
`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "coordinator":
		os.Exit(coordinatorMain(os.Args[2:]))
	case "worker":
		os.Exit(workerMain(os.Args[2:]))
	default:
		usage()
		os.Exit(2)
	}
}
