// Package parse wires the five core components — DateIndex,
// PathRegistry, RangePartitioner (via internal/ipc), RangeAggregator,
// and JsonEmitter — into the single top-level entry point the CLI
// calls: Parse(input, output). It plays the role of the teacher's
// indexer.go#Run: phase orchestration, a few plain header lines, and a
// closing statistics summary, just over a dense counter matrix instead
// of per-column sorted index files. It prints no progress while the
// aggregation runs.
package parse

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/asterd/100-million-row-challenge/internal/common"
	"github.com/asterd/100-million-row-challenge/internal/dateindex"
	"github.com/asterd/100-million-row-challenge/internal/ipc"
	"github.com/asterd/100-million-row-challenge/internal/jsonemit"
	"github.com/asterd/100-million-row-challenge/internal/pathregistry"
	"github.com/asterd/100-million-row-challenge/internal/runlog"
	"github.com/asterd/100-million-row-challenge/internal/seedstore"
)

// Options configures one Parse invocation. Workers <= 0 means "pick
// runtime.NumCPU()", mirroring spec.md §4.5's worker-count default.
type Options struct {
	Workers   int
	Transport ipc.Transport
	SeedsPath string // optional explicit seed sidecar; "" uses <output>.seeds.json
	Verbose   bool
}

// Stats summarizes one completed run, for the CLI's closing report and
// the run log sidecar.
type Stats struct {
	RowsTotal int64
	RowsValid int64
	PathCount int
	DateCount int
	Workers   int
	Transport string
	Elapsed   time.Duration
}

// Parse runs the full pipeline over inputPath and writes the resulting
// JSON report to outputPath. It returns fatal errors wrapped with
// context (input unavailable, output unwritable); worker-level failures
// are already recovered inside internal/ipc and never surface here.
func Parse(inputPath, outputPath string, opts Options) (Stats, error) {
	start := time.Now()

	if opts.Verbose {
		fmt.Println("Input:   ", inputPath)
		fmt.Println("Output:  ", outputPath)
	}

	dates, err := dateindex.Build()
	if err != nil {
		return Stats{}, fmt.Errorf("parse: build date index: %w", err)
	}

	store, err := loadSeedStore(outputPath, opts.SeedsPath)
	if err != nil {
		return Stats{}, fmt.Errorf("parse: load seeds: %w", err)
	}

	paths, err := pathregistry.Discover(inputPath, store.Seeds, dates.Count())
	if err != nil {
		return Stats{}, fmt.Errorf("parse: discover paths: %w", err)
	}

	f, err := os.Open(inputPath)
	if err != nil {
		return Stats{}, fmt.Errorf("parse: open %s: %w", inputPath, err)
	}
	defer f.Close()

	data, err := common.MmapFile(f)
	if err != nil {
		return Stats{}, fmt.Errorf("parse: mmap %s: %w", inputPath, err)
	}
	defer common.MunmapFile(data)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	if opts.Verbose {
		fmt.Printf("Paths:    %d\n", paths.Count())
		fmt.Printf("Days:     %d\n", dates.Count())
		fmt.Printf("Workers:  %d\n", workers)
	}

	res, err := ipc.Run(data, paths, dates, ipc.Options{
		InputPath: inputPath,
		Workers:   workers,
		Transport: opts.Transport,
	})
	if err != nil {
		return Stats{}, fmt.Errorf("parse: aggregate: %w", err)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return Stats{}, fmt.Errorf("parse: create %s: %w", outputPath, err)
	}
	if err := jsonemit.Write(out, paths, dates, res.Matrix); err != nil {
		out.Close()
		return Stats{}, fmt.Errorf("parse: write %s: %w", outputPath, err)
	}
	if err := out.Close(); err != nil {
		return Stats{}, fmt.Errorf("parse: close %s: %w", outputPath, err)
	}

	if err := store.Save(paths.Seeds()); err != nil {
		// Non-fatal: the report already landed on disk. Losing the seed
		// sidecar only costs a future run its path-id stability, not
		// this run's correctness.
		fmt.Fprintf(os.Stderr, "pageday: warning: failed to save seed sidecar: %v\n", err)
	}

	finished := time.Now()
	stats := Stats{
		RowsTotal: res.RowsTotal,
		RowsValid: res.RowsValid,
		PathCount: paths.Count(),
		DateCount: dates.Count(),
		Workers:   res.Workers,
		Transport: res.Transport.String(),
		Elapsed:   finished.Sub(start),
	}

	if err := appendRunLog(outputPath, inputPath, start, finished, stats); err != nil {
		fmt.Fprintf(os.Stderr, "pageday: warning: failed to append run log: %v\n", err)
	}

	if opts.Verbose {
		fmt.Printf("\nRows read:  %d\n", stats.RowsTotal)
		fmt.Printf("Rows valid: %d\n", stats.RowsValid)
		fmt.Printf("Transport:  %s\n", stats.Transport)
		fmt.Printf("Elapsed:    %v\n", stats.Elapsed.Round(time.Millisecond))
		if stats.Elapsed > 0 {
			fmt.Printf("Rate:       %.0f rows/sec\n", float64(stats.RowsTotal)/stats.Elapsed.Seconds())
		}
	}

	return stats, nil
}

func loadSeedStore(outputPath, seedsPath string) (*seedstore.Store, error) {
	if seedsPath != "" {
		return seedstore.LoadFrom(seedsPath)
	}
	return seedstore.Load(outputPath)
}

func appendRunLog(outputPath, inputPath string, started, finished time.Time, stats Stats) error {
	log, err := runlog.Load(outputPath)
	if err != nil {
		return err
	}
	return log.Append(runlog.Record{
		StartedAt:  started,
		FinishedAt: finished,
		Input:      inputPath,
		Output:     outputPath,
		RowsRead:   stats.RowsTotal,
		RowsValid:  stats.RowsValid,
		PathCount:  stats.PathCount,
		Workers:    stats.Workers,
		Transport:  stats.Transport,
	})
}
