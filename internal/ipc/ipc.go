// Package ipc implements the Coordinator/IPCMerger: it splits the
// already-partitioned input across W workers, runs each worker through
// whichever transport is available, and reduces the resulting partials
// into one counter matrix. Go can't safely fork a running multi-threaded
// process, so the "forked process with shared memory/temp files"
// transports spec.md §4.5/§9 describes are re-expressed as a self-exec:
// the coordinator re-invokes its own binary (os.Executable) under a
// hidden __aggworker subcommand, the same subcommand-dispatch shape the
// teacher's main.go uses for its own commands, just with one more of
// them hidden from --help.
package ipc

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"github.com/pierrec/lz4/v4"

	"github.com/asterd/100-million-row-challenge/internal/aggregate"
	"github.com/asterd/100-million-row-challenge/internal/common"
	"github.com/asterd/100-million-row-challenge/internal/dateindex"
	"github.com/asterd/100-million-row-challenge/internal/partition"
	"github.com/asterd/100-million-row-challenge/internal/pathregistry"
)

// Transport names the mechanism used to move a worker's partial matrix
// back to the coordinator.
type Transport int

const (
	// TransportAuto lets the coordinator pick: it always resolves to
	// TransportThreads, since shared-address goroutines are unconditionally
	// safe and available in Go, unlike a forked process inheriting
	// shared memory. The other two transports exist to be explicitly
	// selectable (and so the "transport equivalence" property in spec.md
	// §8 has something to exercise), not because threads ever need a
	// fallback partner.
	TransportAuto Transport = iota
	TransportThreads
	TransportSharedMemory
	TransportTempFile
)

func (t Transport) String() string {
	switch t {
	case TransportThreads:
		return "threads"
	case TransportSharedMemory:
		return "sharedmem"
	case TransportTempFile:
		return "tempfile"
	default:
		return "auto"
	}
}

// ParseTransport maps a CLI flag value to a Transport. An unrecognized
// or empty name resolves to TransportAuto.
func ParseTransport(name string) Transport {
	switch name {
	case "threads":
		return TransportThreads
	case "sharedmem":
		return TransportSharedMemory
	case "tempfile":
		return TransportTempFile
	default:
		return TransportAuto
	}
}

// maxWorkers mirrors spec.md §4.5: "min(logical_cpus, 16) with a
// lower-bound of 1".
const maxWorkers = 16

// Options configures one Run invocation.
type Options struct {
	InputPath string
	Workers   int
	Transport Transport
}

// Result is the merged output of one parallel aggregation run.
type Result struct {
	Matrix    []uint32
	RowsTotal int64 // total lines in the input, accepted or not
	RowsValid int64 // lines whose slug and date were both registered
	Transport Transport
	Workers   int // clamped worker count actually used
}

// Run splits data across Options.Workers ranges, aggregates each range
// through the resolved transport, and merges the partials into a single
// P*D matrix. data is the coordinator's own mmap of the input file, also
// used directly for the in-process slice and for any slice a worker
// fails to deliver.
func Run(data []byte, paths *pathregistry.Registry, dates *dateindex.Index, opts Options) (Result, error) {
	workers := clampWorkers(opts.Workers)
	boundaries := partition.Split(data, workers)
	transport := resolveTransport(opts.Transport)

	var acc []uint32
	switch transport {
	case TransportThreads:
		acc = runThreads(data, boundaries, paths, dates)
	default:
		merged, used, err := runProcesses(data, boundaries, paths, dates, opts.InputPath, transport)
		if err != nil {
			return Result{}, err
		}
		acc, transport = merged, used
	}

	return Result{
		Matrix:    acc,
		RowsTotal: int64(bytes.Count(data, []byte{'\n'})),
		RowsValid: sumMatrix(acc),
		Transport: transport,
		Workers:   workers,
	}, nil
}

func clampWorkers(n int) int {
	if n < 1 {
		return 1
	}
	if n > maxWorkers {
		return maxWorkers
	}
	return n
}

// resolveTransport turns a requested transport into one this process can
// actually use, per spec.md §4.5's fallback chain: shared memory falls to
// temp files when memfd_create is unavailable (non-Linux); temp files and
// threads are always available.
func resolveTransport(requested Transport) Transport {
	switch requested {
	case TransportSharedMemory:
		if sharedMemSupported() {
			return TransportSharedMemory
		}
		return TransportTempFile
	case TransportTempFile:
		return TransportTempFile
	case TransportThreads:
		return TransportThreads
	default:
		return TransportThreads
	}
}

// runThreads runs one goroutine per worker slice over the shared data
// slice and sums their partials. Always available; this is what
// TransportAuto resolves to.
func runThreads(data []byte, boundaries []int64, paths *pathregistry.Registry, dates *dateindex.Index) []uint32 {
	workers := len(boundaries) - 1
	partials := make([][]uint32, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m := aggregate.NewMatrix(paths.Count(), dates.Count())
			start, end := boundaries[i], boundaries[i+1]
			if end > start {
				aggregate.Run(data[start:end], paths, dates, m)
			}
			partials[i] = m
		}(i)
	}
	wg.Wait()

	acc := make([]uint32, paths.Count()*dates.Count())
	for _, p := range partials {
		common.AddInto(acc, p)
	}
	return acc
}

// runProcesses spawns one child process per remote slice (self-exec
// under the __aggworker subcommand), computes the last slice in-process,
// and recovers any worker that failed by re-running its range locally.
// It returns the transport actually used: a process self-exec failure
// (os.Executable unavailable) demotes the whole run to TransportThreads,
// since that failure means no worker process can be started at all.
func runProcesses(data []byte, boundaries []int64, paths *pathregistry.Registry, dates *dateindex.Index, inputPath string, transport Transport) ([]uint32, Transport, error) {
	exe, err := os.Executable()
	if err != nil {
		return runThreads(data, boundaries, paths, dates), TransportThreads, nil
	}

	seedFile, cleanup, err := writeSeedFile(paths.Seeds())
	if err != nil {
		return runThreads(data, boundaries, paths, dates), TransportThreads, nil
	}
	defer cleanup()

	workers := len(boundaries) - 1
	matrixLen := paths.Count() * dates.Count()
	acc := make([]uint32, matrixLen)
	localIdx := workers - 1

	var wg sync.WaitGroup
	var mu sync.Mutex
	var failed []int

	for i := 0; i < workers; i++ {
		if i == localIdx || boundaries[i] >= boundaries[i+1] {
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			partial, err := spawnWorker(exe, inputPath, seedFile, boundaries[i], boundaries[i+1], matrixLen, transport)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// §7 item 3: a worker's non-zero exit or bad payload is
				// recovered, not fatal — recomputed in-process below.
				failed = append(failed, i)
				return
			}
			common.AddInto(acc, partial)
		}(i)
	}

	localMatrix := aggregate.NewMatrix(paths.Count(), dates.Count())
	if boundaries[localIdx+1] > boundaries[localIdx] {
		aggregate.Run(data[boundaries[localIdx]:boundaries[localIdx+1]], paths, dates, localMatrix)
	}
	wg.Wait()

	mu.Lock()
	common.AddInto(acc, localMatrix)
	for _, i := range failed {
		recovered := aggregate.NewMatrix(paths.Count(), dates.Count())
		aggregate.Run(data[boundaries[i]:boundaries[i+1]], paths, dates, recovered)
		common.AddInto(acc, recovered)
	}
	mu.Unlock()

	return acc, transport, nil
}

func spawnWorker(exe, input, seedFile string, start, end int64, matrixLen int, transport Transport) ([]uint32, error) {
	if transport == TransportSharedMemory {
		return spawnSharedMem(exe, input, seedFile, start, end, matrixLen)
	}
	return spawnTempFile(exe, input, seedFile, start, end, matrixLen)
}

// spawnSharedMem hands a child an anonymous memfd sized exactly
// matrixLen*4 bytes (spec.md §4.5: "never more") as inherited fd 3. The
// parent's own mapping of that same memfd already observes the bytes
// the child wrote once it exits — no extra read syscall needed.
func spawnSharedMem(exe, input, seedFile string, start, end int64, matrixLen int) ([]uint32, error) {
	segFile, mapping, err := createSharedSegment(int(common.MatrixBytes(matrixLen)))
	if err != nil {
		return nil, fmt.Errorf("ipc: create shared segment: %w", err)
	}
	defer common.MunmapFile(mapping)
	defer segFile.Close()

	cmd := exec.Command(exe, "__aggworker",
		"--input", input,
		"--seeds", seedFile,
		"--start", strconv.FormatInt(start, 10),
		"--end", strconv.FormatInt(end, 10),
		"--transport", "sharedmem",
	)
	cmd.ExtraFiles = []*os.File{segFile}
	cmd.Stderr = os.Stderr
	if err := runTracked(cmd); err != nil {
		return nil, fmt.Errorf("ipc: sharedmem worker: %w", err)
	}

	out := make([]uint32, matrixLen)
	common.GetMatrix(out, mapping)
	return out, nil
}

// spawnTempFile hands a child a path to write its LZ4-compressed
// partial to, preferring a tmpfs-backed directory (spec.md §4.5).
func spawnTempFile(exe, input, seedFile string, start, end int64, matrixLen int) ([]uint32, error) {
	payload, err := os.CreateTemp(tempFileDir(), "pageday-partial-*.lz4")
	if err != nil {
		return nil, fmt.Errorf("ipc: create payload: %w", err)
	}
	payloadPath := payload.Name()
	payload.Close()
	defer os.Remove(payloadPath)

	cmd := exec.Command(exe, "__aggworker",
		"--input", input,
		"--seeds", seedFile,
		"--start", strconv.FormatInt(start, 10),
		"--end", strconv.FormatInt(end, 10),
		"--transport", "tempfile",
		"--payload", payloadPath,
	)
	cmd.Stderr = os.Stderr
	if err := runTracked(cmd); err != nil {
		return nil, fmt.Errorf("ipc: tempfile worker: %w", err)
	}

	f, err := os.Open(payloadPath)
	if err != nil {
		return nil, fmt.Errorf("ipc: open payload: %w", err)
	}
	defer f.Close()

	partial, err := common.ReadMatrix(lz4.NewReader(f), matrixLen)
	if err != nil {
		return nil, fmt.Errorf("ipc: decode payload: %w", err)
	}
	return partial, nil
}

// tempFileDir prefers a tmpfs-backed directory for IPC payloads, falling
// back to the system temp directory when none is present.
func tempFileDir() string {
	const shm = "/dev/shm"
	if info, err := os.Stat(shm); err == nil && info.IsDir() {
		return shm
	}
	return os.TempDir()
}

// RunWorker is the __aggworker subcommand body, invoked by cmd/pageday's
// dispatcher when os.Args[1] == "__aggworker". It rebuilds DateIndex and
// PathRegistry independently of the parent — both are pure functions of
// (input path, seed list), so a re-exec reproduces byte-identical
// registries without the parent serializing them across the process
// boundary (the Go-native reading of §9's copy-on-write note: true fork
// gets registries for free, a re-exec can't, so it re-derives them,
// which spec.md §8's "Registry stability" guarantees is safe).
func RunWorker(args []string) error {
	fs := flag.NewFlagSet("__aggworker", flag.ContinueOnError)
	input := fs.String("input", "", "input file path")
	seedsFile := fs.String("seeds", "", "seed slug list JSON file")
	start := fs.Int64("start", 0, "range start byte offset")
	end := fs.Int64("end", 0, "range end byte offset")
	transportFlag := fs.String("transport", "tempfile", "sharedmem|tempfile")
	payload := fs.String("payload", "", "tempfile transport payload path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dates, err := dateindex.Build()
	if err != nil {
		return err
	}
	seeds, err := readSeedFile(*seedsFile)
	if err != nil {
		return fmt.Errorf("__aggworker: read seeds: %w", err)
	}
	paths, err := pathregistry.Discover(*input, seeds, dates.Count())
	if err != nil {
		return fmt.Errorf("__aggworker: discover: %w", err)
	}

	f, err := os.Open(*input)
	if err != nil {
		return fmt.Errorf("__aggworker: open input: %w", err)
	}
	defer f.Close()
	data, err := common.MmapFile(f)
	if err != nil {
		return fmt.Errorf("__aggworker: mmap input: %w", err)
	}
	defer common.MunmapFile(data)

	matrix := aggregate.NewMatrix(paths.Count(), dates.Count())
	if *end > *start && *end <= int64(len(data)) {
		aggregate.Run(data[*start:*end], paths, dates, matrix)
	}

	switch *transportFlag {
	case "sharedmem":
		return writeSharedSegment(matrix)
	case "tempfile":
		return writeTempFilePayload(*payload, matrix)
	default:
		return fmt.Errorf("__aggworker: unknown transport %q", *transportFlag)
	}
}

func writeTempFilePayload(path string, matrix []uint32) error {
	if path == "" {
		return fmt.Errorf("__aggworker: --payload is required for the tempfile transport")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	lzw := lz4.NewWriter(f)
	if err := common.WriteMatrix(lzw, matrix); err != nil {
		lzw.Close()
		f.Close()
		return err
	}
	if err := lzw.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeSeedFile(seeds []string) (path string, cleanup func(), err error) {
	f, err := os.CreateTemp("", "pageday-seeds-*.json")
	if err != nil {
		return "", func() {}, err
	}
	data, err := json.Marshal(seeds)
	if err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", func() {}, err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", func() {}, err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", func() {}, err
	}
	path = f.Name()
	return path, func() { os.Remove(path) }, nil
}

func readSeedFile(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seeds []string
	if err := json.Unmarshal(data, &seeds); err != nil {
		return nil, err
	}
	return seeds, nil
}

var (
	activeMu sync.Mutex
	active   = map[int]*exec.Cmd{}
	activeID int
)

// runTracked starts cmd and registers it so KillActiveWorkers can
// terminate it from a signal handler mid-run, then waits for it to
// finish. It replaces a bare cmd.Run() everywhere a worker is spawned.
func runTracked(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}

	activeMu.Lock()
	activeID++
	id := activeID
	active[id] = cmd
	activeMu.Unlock()

	err := cmd.Wait()

	activeMu.Lock()
	delete(active, id)
	activeMu.Unlock()

	return err
}

// KillActiveWorkers terminates every worker process this coordinator
// currently has in flight. The CLI's signal handler calls this before
// exiting so a SIGTERM/SIGINT mid-run doesn't leave orphaned
// __aggworker children behind (spec.md §5's ambient process hygiene).
func KillActiveWorkers() {
	activeMu.Lock()
	defer activeMu.Unlock()
	for _, cmd := range active {
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
	}
}

func sumMatrix(m []uint32) int64 {
	var total int64
	for _, v := range m {
		total += int64(v)
	}
	return total
}
