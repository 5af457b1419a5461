// ════════════════════════════════════════════════════════════════════════════════════════════════
// Search Coordinator
// ────────────────────────────────────────────────────────────────────────────────────────────────
// Project: Beal Counterexample Search
// Component: Shard Dispatch, Completion Ledger & Result Persistence
//
// Description:
//   Owns the a-axis: hands shards to workers through get_work, records
//   candidate tuples through finish_work, and persists both into an
//   append-only text log plus a SQLite run database. One mutex covers the
//   duplicate check, the log append, the flush and the ledger update, so
//   at-least-once delivery from workers collapses to exactly-once results.
//
// ════════════════════════════════════════════════════════════════════════════════════════════════

package coordinator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sugawarayuuta/sonnet"

	"bealsearch/constants"
	"bealsearch/debug"
	"bealsearch/search"
	"bealsearch/utils"
	"bealsearch/wire"
	"bealsearch/workqueue"
)

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// PROBLEM STATE
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Problem is one search run: configuration, shard ledger, result sinks.
type Problem struct {
	cfg search.Config
	fp  string

	mu    sync.Mutex
	queue *workqueue.Queue
	nextA uint32 // generator cursor over the a-axis, 1-based

	out *os.File
	db  *sql.DB

	done     chan struct{}
	doneOnce sync.Once
	failure  error // first fatal persistence error, guarded by mu
}

// NewProblem opens (or resumes) a run. The result log is opened in append
// mode; a fresh log starts with a "maxBase maxPow" header line. The SQLite
// database pins the configuration fingerprint and the completed-shard set,
// so a restarted coordinator does not re-dispense finished work.
func NewProblem(cfg search.Config, outputPath, dbPath string) (*Problem, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("search config: %w", err)
	}

	p := &Problem{
		cfg:   cfg,
		fp:    cfg.Fingerprint(),
		queue: workqueue.New(cfg.MaxBase),
		nextA: 1,
		done:  make(chan struct{}),
	}

	out, fresh, err := openLog(outputPath)
	if err != nil {
		return nil, err
	}
	p.out = out
	if fresh {
		if _, err := fmt.Fprintf(out, "%d %d\n", cfg.MaxBase, cfg.MaxPow); err != nil {
			out.Close()
			return nil, fmt.Errorf("write log header: %w", err)
		}
		if err := out.Sync(); err != nil {
			out.Close()
			return nil, fmt.Errorf("flush log header: %w", err)
		}
	}

	if err := p.openDB(dbPath); err != nil {
		out.Close()
		return nil, err
	}
	if p.queue.Done() {
		p.doneOnce.Do(func() { close(p.done) })
	}
	return p, nil
}

// openLog opens the append-only result log, reporting whether it is new.
func openLog(path string) (*os.File, bool, error) {
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, false, fmt.Errorf("open result log: %w", err)
	}
	st, err := out.Stat()
	if err != nil {
		out.Close()
		return nil, false, fmt.Errorf("stat result log: %w", err)
	}
	return out, st.Size() == 0, nil
}

// openDB creates or resumes the run database and replays its completions
// into the shard ledger.
func (p *Problem) openDB(dbPath string) error {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("open run database: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS run (
	id          INTEGER PRIMARY KEY CHECK (id = 1),
	max_base    INTEGER NOT NULL,
	max_pow     INTEGER NOT NULL,
	primes      TEXT    NOT NULL,
	fingerprint TEXT    NOT NULL
);
CREATE TABLE IF NOT EXISTS completions (
	shard       INTEGER PRIMARY KEY,
	candidates  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS candidates (
	shard INTEGER NOT NULL,
	a     INTEGER NOT NULL,
	x     INTEGER NOT NULL,
	b     INTEGER NOT NULL,
	y     INTEGER NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return fmt.Errorf("create run schema: %w", err)
	}

	var storedFP string
	err = db.QueryRow(`SELECT fingerprint FROM run WHERE id = 1`).Scan(&storedFP)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		primes := make([]string, len(p.cfg.Primes))
		for i, pr := range p.cfg.Primes {
			primes[i] = utils.Utoa(uint64(pr))
		}
		_, err = db.Exec(`INSERT INTO run (id, max_base, max_pow, primes, fingerprint) VALUES (1, ?, ?, ?, ?)`,
			p.cfg.MaxBase, p.cfg.MaxPow, strings.Join(primes, ","), p.fp)
		if err != nil {
			db.Close()
			return fmt.Errorf("record run config: %w", err)
		}
	case err != nil:
		db.Close()
		return fmt.Errorf("read run config: %w", err)
	case storedFP != p.fp:
		db.Close()
		return fmt.Errorf("run database belongs to a different configuration (fingerprint %s, ours %s)",
			storedFP, p.fp)
	}

	rows, err := db.Query(`SELECT shard FROM completions`)
	if err != nil {
		db.Close()
		return fmt.Errorf("load completions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var shard uint32
		if err := rows.Scan(&shard); err != nil {
			db.Close()
			return fmt.Errorf("scan completion: %w", err)
		}
		p.queue.Complete(shard)
	}
	if err := rows.Err(); err != nil {
		db.Close()
		return fmt.Errorf("load completions: %w", err)
	}

	p.db = db
	return nil
}

// Close releases the log and database handles.
func (p *Problem) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var first error
	if err := p.out.Close(); err != nil {
		first = err
	}
	if err := p.db.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// DISPATCH AND COMPLETION
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// GetWork returns the next shard wrapped in the full configuration, or nil
// once every shard is complete. Fresh a-values are dispensed first; when
// the generator runs dry, the oldest outstanding shard is re-dispensed so
// work lost with a dead worker is eventually retried.
func (p *Problem) GetWork() *wire.WorkSpec {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.nextA <= p.cfg.MaxBase {
		a := p.nextA
		p.nextA++
		if p.queue.Completed(a) {
			continue // finished in a previous coordinator life
		}
		p.queue.Add(a)
		return p.spec(a)
	}
	if a, ok := p.queue.Next(); ok {
		return p.spec(a)
	}
	return nil
}

func (p *Problem) spec(a uint32) *wire.WorkSpec {
	return &wire.WorkSpec{
		MaxBase:     p.cfg.MaxBase,
		MaxPow:      p.cfg.MaxPow,
		Primes:      p.cfg.Primes,
		Fingerprint: p.fp,
		Shard:       wire.Shard{A: a},
	}
}

// FinishWork records a completed shard. Duplicate completions are a no-op,
// which makes worker retries over at-least-once transports safe. The text
// log append, the flush, the database insert and the ledger update happen
// under one critical section; on any persistence failure the shard stays
// incomplete and the error is fatal for the run.
func (p *Problem) FinishWork(shard uint32, candidates [][4]uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if shard < 1 || shard > p.cfg.MaxBase {
		debug.DropMessage("FINISH", "ignoring out-of-range shard "+utils.Utoa(uint64(shard)))
		return nil
	}
	if p.queue.Completed(shard) {
		debug.DropMessage("FINISH", "duplicate completion for shard "+utils.Utoa(uint64(shard)))
		return nil
	}

	if err := p.persist(shard, candidates); err != nil {
		p.failure = err
		p.doneOnce.Do(func() { close(p.done) })
		return err
	}

	p.queue.Complete(shard)
	if len(candidates) > 0 {
		debug.DropMessage("CANDIDATES", utils.Itoa(len(candidates))+" from shard "+utils.Utoa(uint64(shard)))
	}
	if p.queue.Done() {
		debug.DropMessage("SEARCH", "a-axis exhausted, all shards complete")
		p.doneOnce.Do(func() { close(p.done) })
	}
	return nil
}

func (p *Problem) persist(shard uint32, candidates [][4]uint32) error {
	for _, q := range candidates {
		if _, err := fmt.Fprintf(p.out, "%d %d %d %d\n", q[0], q[1], q[2], q[3]); err != nil {
			return fmt.Errorf("append result log: %w", err)
		}
	}
	if err := p.out.Sync(); err != nil {
		return fmt.Errorf("flush result log: %w", err)
	}

	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("begin completion tx: %w", err)
	}
	for _, q := range candidates {
		if _, err := tx.Exec(`INSERT INTO candidates (shard, a, x, b, y) VALUES (?, ?, ?, ?, ?)`,
			shard, q[0], q[1], q[2], q[3]); err != nil {
			tx.Rollback()
			return fmt.Errorf("record candidate: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO completions (shard, candidates, finished_at) VALUES (?, ?, ?)`,
		shard, len(candidates), time.Now().Unix()); err != nil {
		tx.Rollback()
		return fmt.Errorf("record completion: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit completion: %w", err)
	}
	return nil
}

// Done reports whether every shard is complete or the run has failed.
func (p *Problem) Done() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the run completes or fails.
func (p *Problem) Wait() { <-p.done }

// Err returns the fatal persistence error, if any.
func (p *Problem) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failure
}

// Progress returns dispensed and completed shard counts.
func (p *Problem) Progress() (dispensed, completed, total uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	done, _ := p.queue.Stats()
	return p.nextA - 1, uint32(done), p.cfg.MaxBase
}

// ═══════════════════════════════════════════════════════════════════════════════════════════════
// RPC SURFACE
// ═══════════════════════════════════════════════════════════════════════════════════════════════

// Handler returns the coordinator's RPC surface: POST get_work and
// POST finish_work with JSON bodies.
func (p *Problem) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(constants.GetWorkPath, p.handleGetWork)
	mux.HandleFunc(constants.FinishWorkPath, p.handleFinishWork)
	return mux
}

func (p *Problem) handleGetWork(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "post only", http.StatusMethodNotAllowed)
		return
	}
	spec := p.GetWork()
	body, err := sonnet.Marshal(spec)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func (p *Problem) handleFinishWork(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "post only", http.StatusMethodNotAllowed)
		return
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read finish_work body: "+err.Error(), http.StatusBadRequest)
		return
	}
	var req wire.FinishRequest
	if err := sonnet.Unmarshal(raw, &req); err != nil {
		http.Error(w, "bad finish_work body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := p.FinishWork(req.Shard.A, req.Candidates); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte("{}"))
}

// Serve runs the RPC server until the search completes or persistence
// fails, then shuts down. Returns nil on clean exhaustion.
func (p *Problem) Serve(addr string) error {
	srv := &http.Server{Addr: addr, Handler: p.Handler()}

	stopMonitor := make(chan struct{})
	go p.monitor(stopMonitor)

	go func() {
		<-p.done
		close(stopMonitor)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	debug.DropMessage("COORDINATOR", "listening on "+addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return p.Err()
}

// monitor logs progress each second, as the original manager did.
func (p *Problem) monitor(stop <-chan struct{}) {
	tick := time.NewTicker(constants.MonitorInterval)
	defer tick.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tick.C:
			dispensed, completed, total := p.Progress()
			debug.DropMessage("PROGRESS",
				utils.Pct(uint64(completed), uint64(total))+"% complete ("+
					utils.Utoa(uint64(completed))+"/"+utils.Utoa(uint64(total))+
					" shards, "+utils.Utoa(uint64(dispensed))+" dispensed)")
		}
	}
}
