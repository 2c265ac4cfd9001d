// Package siteid assigns a stable, build-persisted 16-bit id to each source
// position that declares a discriminant (spec §4.2). Go has no proc-macro
// expansion point to hook, so the allocator is invoked from ordinary code —
// typically a package-level var initializer via Here/MustHere, using
// runtime.Caller to capture the call site instead of a compiler-provided
// (crate, file, line, column) quadruple. Go's runtime.Caller reports no
// column, so the persisted key is (module, file, line) rather than four
// fields; this is a narrower key than the original, not a different one —
// a single line essentially never hosts two independent discriminant call
// sites.
package siteid

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sort"
	"strconv"
	"strings"

	"github.com/gofrs/flock"

	"github.com/estokes/poolshark/discriminant"
)

// MaxID is the largest assignable site id (spec §4.2 "Bounds"): at most
// 65,535 distinct invocation sites across a build.
const MaxID = 65535

const mapFileName = "poolshark-siteid.map"

// Environment variables consulted by DiscoverOutputDir/DiscoverModule when
// no explicit override has been set. These are the "environment variable"
// strategy in spec §4.2 step 1's discovery priority order.
const (
	EnvOutputDir = "POOLSHARK_SITEID_DIR"
	EnvModule    = "POOLSHARK_SITEID_MODULE"
)

var (
	explicitDir    string
	explicitModule string
)

// SetOutputDir installs the highest-priority discovery strategy (the
// "explicit command-line flag" step of spec §4.2's priority order) — meant
// to be called once, from cmd/poolshark-siteid's flag handling or from test
// setup, never from ordinary library init code.
func SetOutputDir(dir string) { explicitDir = dir }

// SetModule is SetOutputDir's counterpart for the crate/module name.
func SetModule(name string) { explicitModule = name }

// DiscoverOutputDir finds the directory the persisted id map lives under,
// trying, in order: an explicit override (SetOutputDir), the
// POOLSHARK_SITEID_DIR environment variable, then parent-directory
// inspection for the nearest go.mod (spec §4.2 step 1's discovery list,
// minus the Rust original's compiler-supplied OUT_DIR, which Go has no
// equivalent of).
func DiscoverOutputDir() (string, error) {
	if explicitDir != "" {
		return explicitDir, nil
	}
	if v := os.Getenv(EnvOutputDir); v != "" {
		return v, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("siteid: determine working directory: %w", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, ".poolshark"), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("siteid: could not discover an output directory: set %s or call SetOutputDir", EnvOutputDir)
}

// DiscoverModule finds the current module's name, trying, in order: an
// explicit override (SetModule), the POOLSHARK_SITEID_MODULE environment
// variable, then the running binary's own build info.
func DiscoverModule() (string, error) {
	if explicitModule != "" {
		return explicitModule, nil
	}
	if v := os.Getenv(EnvModule); v != "" {
		return v, nil
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Path != "" {
		return bi.Main.Path, nil
	}
	return "", fmt.Errorf("siteid: could not discover a module name: set %s or call SetModule", EnvModule)
}

// Key identifies one discriminant declaration site.
type Key struct {
	Module string
	File   string
	Line   int
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%d", k.Module, k.File, k.Line)
}

// Here captures the immediate caller's source position and resolves it to
// a persisted site id via Assign, discovering the module name and output
// directory along the way.
func Here() (uint16, error) {
	return here(2)
}

// MustHere is Here, panicking on failure. Intended for package-level var
// initializers, where there is no reasonable way to propagate an error:
//
//	var fooSite = siteid.MustHere()
func MustHere() uint16 {
	id, err := here(2)
	if err != nil {
		panic(err)
	}
	return id
}

func here(skip int) (uint16, error) {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return 0, fmt.Errorf("siteid: runtime.Caller failed to identify the call site")
	}
	module, err := DiscoverModule()
	if err != nil {
		return 0, err
	}
	return Assign(Key{Module: module, File: file, Line: line})
}

// Assign returns key's persisted id (spec §4.2 steps 2-6), allocating a new
// one under an advisory file lock if key has never been recorded in this
// output directory's map file. The map file is append-only in effect:
// Assign never removes or renumbers an existing entry.
func Assign(key Key) (uint16, error) {
	dir, err := DiscoverOutputDir()
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("siteid: create output directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, mapFileName)

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return 0, fmt.Errorf("siteid: acquire advisory lock on %s: %w", path, err)
	}
	defer lock.Unlock()

	entries, maxID, err := readMap(path)
	if err != nil {
		return 0, err
	}

	k := key.String()
	if id, ok := entries[k]; ok {
		return id, nil
	}

	// discriminant.ReservedSiteIDs (1-15) are pre-claimed by this module's
	// own built-in container adapters and must never be handed out here —
	// floor the "highest id seen" at ReservedSiteIDs-1 so the first id
	// ever assigned out of a fresh (or otherwise low-numbered) map is
	// ReservedSiteIDs, not 1. This mirrors the original crate's
	// ContainerId::new() counter, which starts at 16 for exactly this
	// reason (see DESIGN.md).
	if maxID < discriminant.ReservedSiteIDs-1 {
		maxID = discriminant.ReservedSiteIDs - 1
	}
	if maxID >= MaxID {
		return 0, fmt.Errorf("siteid: exhausted all %d site ids recorded in %s", MaxID, path)
	}
	next := maxID + 1
	entries[k] = next
	if err := writeMap(path, entries); err != nil {
		return 0, err
	}
	return next, nil
}

// Entries reads and returns a copy of the persisted key->id map, without
// taking the write lock — used by cmd/poolshark-siteid's inspect
// subcommand.
func Entries() (map[string]uint16, error) {
	dir, err := DiscoverOutputDir()
	if err != nil {
		return nil, err
	}
	entries, _, err := readMap(filepath.Join(dir, mapFileName))
	return entries, err
}

func readMap(path string) (map[string]uint16, uint16, error) {
	entries := make(map[string]uint16)
	var maxID uint16

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return entries, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("siteid: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		k, v, found := strings.Cut(line, "=")
		if !found {
			return nil, 0, fmt.Errorf("siteid: malformed entry %q in %s", line, path)
		}
		id, err := strconv.ParseUint(strings.TrimSpace(v), 10, 16)
		if err != nil {
			return nil, 0, fmt.Errorf("siteid: malformed id in entry %q of %s: %w", line, path, err)
		}
		entries[strings.TrimSpace(k)] = uint16(id)
		if uint16(id) > maxID {
			maxID = uint16(id)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("siteid: read %s: %w", path, err)
	}
	return entries, maxID, nil
}

func writeMap(path string, entries map[string]uint16) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("siteid: create %s: %w", tmp, err)
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := bufio.NewWriter(f)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%s = %d\n", k, entries[k]); err != nil {
			f.Close()
			return fmt.Errorf("siteid: write %s: %w", tmp, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("siteid: flush %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("siteid: fsync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("siteid: close %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}

// Reset clears every discovery override installed via SetOutputDir/
// SetModule. Exported for test teardown between independent scenarios.
func Reset() {
	explicitDir = ""
	explicitModule = ""
}
