package loader

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"plugin"
	"sync"
)

// SymbolTable resolves exported symbols of an opened module
type SymbolTable interface {
	Lookup(name string) (any, error)
}

// Opener maps a binary module into the process
type Opener interface {
	Open(path string) (SymbolTable, error)
}

// ErrModuleReplaced is returned when a Go plugin is opened from a path whose
// contents changed after the process first loaded it. Go plugins cannot be
// unloaded, so only a new process sees the new binary.
var ErrModuleReplaced = errors.New("module changed since it was loaded, restart required")

// loadedPlugins mirrors the runtime's process-wide plugin registry. The
// runtime hands back the first plugin loaded from a path and refuses a second
// copy of a binary it already holds, so binaries are tracked by content.
var loadedPlugins = struct {
	mu       sync.Mutex
	byDigest map[string]*plugin.Plugin
	byPath   map[string]string
}{
	byDigest: make(map[string]*plugin.Plugin),
	byPath:   make(map[string]string),
}

// SharedObjectOpener opens Go plugins built with -buildmode=plugin. A binary
// identical to one already loaded, at any path, shares the loaded plugin. A
// path rewritten since it was loaded fails with ErrModuleReplaced.
type SharedObjectOpener struct{}

func (SharedObjectOpener) Open(path string) (SymbolTable, error) {
	key, err := realPath(path)
	if err != nil {
		return nil, err
	}
	digest, err := fileDigest(key)
	if err != nil {
		return nil, err
	}

	lp := &loadedPlugins
	lp.mu.Lock()
	defer lp.mu.Unlock()

	if p, ok := lp.byDigest[digest]; ok {
		return sharedObject{p: p}, nil
	}
	if prev, ok := lp.byPath[key]; ok && prev != digest {
		return nil, fmt.Errorf("%s: %w", path, ErrModuleReplaced)
	}

	p, err := plugin.Open(key)
	if err != nil {
		return nil, err
	}
	lp.byDigest[digest] = p
	lp.byPath[key] = digest
	return sharedObject{p: p}, nil
}

func realPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

type sharedObject struct {
	p *plugin.Plugin
}

func (so sharedObject) Lookup(name string) (any, error) {
	sym, err := so.p.Lookup(name)
	if err != nil {
		return nil, err
	}
	return sym, nil
}

// Symbols is an in-process symbol table
type Symbols map[string]any

func (s Symbols) Lookup(name string) (any, error) {
	sym, ok := s[name]
	if !ok {
		return nil, fmt.Errorf("symbol %s not found", name)
	}
	return sym, nil
}

// StaticOpener serves modules compiled into the host binary. The file at a
// registered path still has to exist for the cache to stat it, but its bytes
// are never read.
type StaticOpener struct {
	mu      sync.RWMutex
	modules map[string]Symbols
}

// NewStaticOpener creates an opener with no registered modules
func NewStaticOpener() *StaticOpener {
	return &StaticOpener{modules: make(map[string]Symbols)}
}

// Register makes syms available under path
func (o *StaticOpener) Register(path string, syms Symbols) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.modules[filepath.Clean(path)] = syms
}

// Unregister removes a module
func (o *StaticOpener) Unregister(path string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.modules, filepath.Clean(path))
}

func (o *StaticOpener) Open(path string) (SymbolTable, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	syms, ok := o.modules[filepath.Clean(path)]
	if !ok {
		return nil, fmt.Errorf("no static module registered at %s", path)
	}
	return syms, nil
}

// FallbackOpener tries each opener in turn and returns the first success
type FallbackOpener []Opener

func (f FallbackOpener) Open(path string) (SymbolTable, error) {
	var errs []error
	for _, o := range f {
		syms, err := o.Open(path)
		if err == nil {
			return syms, nil
		}
		errs = append(errs, err)
	}
	return nil, fmt.Errorf("no opener could open %s: %w", path, errors.Join(errs...))
}
