// ─────────────────────────────────────────────────────────────────────────────
// [Filename]: worker_main.go — worker subcommand
//
// Purpose:
//   - Runs a fleet of shard loops against one coordinator. The first work
//     spec a process sees binds its configuration and triggers the index
//     build; every later spec must match or the process exits.
//   - Each loop runs on its own locked OS thread; the search is CPU-bound
//     and the indices are shared read-only.
//
// Exit codes: 0 when the coordinator reports no work for long enough (or
// on operator stop), 1 on configuration mismatch or memory refusal.
// ─────────────────────────────────────────────────────────────────────────────

package main

import (
	"flag"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"bealsearch/constants"
	"bealsearch/control"
	"bealsearch/debug"
	"bealsearch/search"
	"bealsearch/utils"
	"bealsearch/wire"
)

func workerMain(args []string) int {
	fs := flag.NewFlagSet("worker", flag.ExitOnError)
	var (
		endpoint = fs.String("coordinator", "http://"+constants.DefaultListenAddr, "coordinator base URL")
		nLoops   = fs.Int("workers", 1, "concurrent shard loops in this process")
		maxMem   = fs.String("max-mem", constants.DefaultMaxMem, "cap on index memory, e.g. 512MB or 4GB")
		retries  = fs.Int("idle-retries", constants.IdleRetries, "consecutive empty polls before exiting")
	)
	fs.Parse(args)

	memCap, err := utils.ParseByteSize(*maxMem)
	if err != nil {
		debug.DropError("CONFIG", err)
		return 1
	}
	if *nLoops < 1 {
		debug.DropError("CONFIG", fmt.Errorf("workers %d below 1", *nLoops))
		return 1
	}

	control.InstallSignalHandler()
	client := wire.NewClient(*endpoint)
	b := &binder{memCap: memCap}

	var fleet errgroup.Group
	for i := 0; i < *nLoops; i++ {
		fleet.Go(func() error {
			return searchLoop(client, b, *retries)
		})
	}
	if err := fleet.Wait(); err != nil {
		debug.DropError("WORKER", err)
		return 1
	}
	if w := b.bound(); w != nil {
		points, candidates := w.Counters()
		debug.DropMessage("WORKER", utils.Utoa(points)+" points probed, "+
			utils.Utoa(candidates)+" candidates emitted")
	}
	return 0
}

// searchLoop pulls shards until the coordinator runs dry or shutdown is
// requested. The loop is CPU-bound between RPCs, so it owns an OS thread.
func searchLoop(client *wire.Client, b *binder, idleRetries int) error {
	runtime.LockOSThread()

	idle := 0
	for !control.Stopping() {
		spec, err := client.GetWork()
		if err != nil {
			// A coordinator that finished its run shuts down its listener;
			// treat unreachable the same as empty and give up after the
			// idle budget.
			debug.DropError("RPC", err)
			spec = nil
		}
		if spec == nil {
			idle++
			if idle > idleRetries {
				return nil
			}
			debug.DropMessage("WORKER", "no work available, waiting")
			time.Sleep(constants.IdleWait)
			continue
		}
		idle = 0

		w, err := b.get(spec)
		if err != nil {
			return err
		}

		a := spec.Shard.A
		candidates := w.Run(a)
		quads := make([][4]uint32, len(candidates))
		for i, cand := range candidates {
			quads[i] = cand.Quad()
			debug.DropMessage("CANDIDATE", formatCandidate(cand))
		}
		if err := reportFinish(client, spec.Shard, quads); err != nil {
			// The shard stays incomplete on the coordinator and will be
			// re-dispensed; drop it here rather than blocking the loop.
			debug.DropError("RPC", err)
		}
	}
	return nil
}

// reportFinish retries finish_work a few times; the call is idempotent on
// the coordinator, so duplicates from earlier half-delivered attempts are
// harmless.
func reportFinish(client *wire.Client, shard wire.Shard, quads [][4]uint32) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		if err = client.FinishWork(shard, quads); err == nil {
			return nil
		}
		time.Sleep(time.Second)
	}
	return err
}

func formatCandidate(cand search.Candidate) string {
	s := utils.Utoa(uint64(cand.A)) + "^" + utils.Utoa(uint64(cand.X)) +
		" + " + utils.Utoa(uint64(cand.B)) + "^" + utils.Utoa(uint64(cand.Y)) +
		" (" + utils.Itoa(len(cand.Witnesses)) + " witnesses)"
	return s
}

// binder holds the process-wide worker once the first spec arrives.
// Building the indices takes minutes and gigabytes, so the configuration
// is bound exactly once; later mismatching specs are fatal.
type binder struct {
	mu     sync.Mutex
	memCap uint64
	w      *search.Worker
}

func (b *binder) get(spec *wire.WorkSpec) (*search.Worker, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.w == nil {
		cfg := search.ConfigFromSpec(spec)
		debug.DropMessage("INDEX", "building "+utils.Itoa(len(cfg.Primes))+
			" residue indices (max base "+utils.Utoa(uint64(cfg.MaxBase))+
			", max power "+utils.Utoa(uint64(cfg.MaxPow))+")")
		start := time.Now()
		w, err := search.NewWorker(cfg, b.memCap)
		if err != nil {
			return nil, err
		}
		debug.DropMessage("INDEX", "built in "+time.Since(start).Truncate(time.Millisecond).String())
		b.w = w
		return w, nil
	}
	if !b.w.Compatible(spec) {
		return nil, fmt.Errorf("work spec fingerprint %s does not match bound configuration %s",
			spec.Fingerprint, b.w.Fingerprint())
	}
	return b.w, nil
}

func (b *binder) bound() *search.Worker {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.w
}
