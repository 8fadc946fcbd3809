// Package plugintest builds in-process plugin modules for tests. Effects are
// wrapped in real support runtimes and served to the loader through a
// StaticOpener, with a stand-in file on disk so that directory scans find
// them. BuildPlugin builds the example modules as real Go plugins for tests
// of the shared object loader.
package plugintest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/ofxhost/pkg/loader"
	"github.com/platinummonkey/ofxhost/pkg/ofx"
	"github.com/platinummonkey/ofxhost/pkg/support"
)

// Effect is a configurable support.Effect
type Effect struct {
	ID       support.PluginID
	Label    string
	Contexts []ofx.Context
	Flags    []string
	// DescribeErr fails the describe action
	DescribeErr error
	// ContextErr fails describe-in-context for the listed contexts
	ContextErr map[ofx.Context]error
	LoadErr    error

	mu        sync.Mutex
	loads     int
	unloads   int
	describes int
}

// NewEffect returns an effect labelled label supporting the filter context
func NewEffect(id string, major, minor int, label string) *Effect {
	return &Effect{
		ID:       support.PluginID{Identifier: id, VersionMajor: major, VersionMinor: minor},
		Label:    label,
		Contexts: []ofx.Context{ofx.ContextFilter},
	}
}

func (e *Effect) PluginID() support.PluginID {
	return e.ID
}

func (e *Effect) Describe(desc *support.EffectDescriptor) error {
	e.mu.Lock()
	e.describes++
	e.mu.Unlock()

	if e.Label != "" {
		desc.SetLabel(e.Label)
	}
	for _, c := range e.Contexts {
		desc.AddSupportedContext(c)
	}
	desc.SetSupportsTiles(e.hasFlag("supports-tiles"))
	desc.SetSupportsMultiResolution(e.hasFlag("supports-multi-resolution"))
	desc.SetTemporalClipAccess(e.hasFlag("temporal-clip-access"))
	desc.SetSupportsMultipleClipDepths(e.hasFlag("multiple-clip-depths"))
	desc.SetSupportsMultipleClipPARs(e.hasFlag("multiple-clip-pars"))
	desc.SetSingleInstance(e.hasFlag("single-instance"))
	desc.SetHostFrameThreading(e.hasFlag("host-frame-threading"))
	return e.DescribeErr
}

func (e *Effect) hasFlag(name string) bool {
	for _, f := range e.Flags {
		if f == name {
			return true
		}
	}
	return false
}

func (e *Effect) DescribeInContext(desc *support.EffectDescriptor, ctx ofx.Context) error {
	if err, ok := e.ContextErr[ctx]; ok {
		return err
	}
	return nil
}

func (e *Effect) CreateInstance(inst *support.ImageEffect) error {
	inst.Data = e.ID.Identifier
	return nil
}

func (e *Effect) Load() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loads++
	return e.LoadErr
}

func (e *Effect) Unload() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.unloads++
	return nil
}

// Loads returns how many load actions reached the effect
func (e *Effect) Loads() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loads
}

// Unloads returns how many unload actions reached the effect
func (e *Effect) Unloads() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unloads
}

// Describes returns how many describe actions reached the effect
func (e *Effect) Describes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.describes
}

// Symbols exports effects as one module, one support runtime per effect
func Symbols(log *logrus.Logger, effects ...support.Effect) loader.Symbols {
	runtimes := make([]*support.Runtime, len(effects))
	for i, e := range effects {
		runtimes[i] = support.NewRuntime(e, &support.Options{Logger: log})
	}
	return loader.Symbols{
		ofx.SymbolGetNumberOfPlugins: func() int {
			return len(runtimes)
		},
		ofx.SymbolGetPlugin: func(nth int) *ofx.Plugin {
			if nth < 0 || nth >= len(runtimes) {
				return nil
			}
			return runtimes[nth].GetPlugin(0)
		},
	}
}

// Modules is a plugin directory whose modules live in-process
type Modules struct {
	t      testing.TB
	Dir    string
	Opener *loader.StaticOpener
	Log    *logrus.Logger
}

// NewModules creates an empty plugin directory under t.TempDir
func NewModules(t testing.TB, log *logrus.Logger) *Modules {
	t.Helper()
	if log == nil {
		log = logrus.New()
	}
	return &Modules{
		t:      t,
		Dir:    t.TempDir(),
		Opener: loader.NewStaticOpener(),
		Log:    log,
	}
}

// Add writes a module file at name, relative to Dir, exporting effects
func (m *Modules) Add(name string, effects ...support.Effect) string {
	m.t.Helper()
	path := filepath.Join(m.Dir, name)
	ids := make([]string, len(effects))
	for i, e := range effects {
		ids[i] = e.PluginID().Identifier
	}
	m.Write(path, "module "+strings.Join(ids, " ")+"\n")
	m.Opener.Register(path, Symbols(m.Log, effects...))
	return path
}

// AddBroken writes a module file whose symbols cannot be resolved
func (m *Modules) AddBroken(name string) string {
	m.t.Helper()
	path := filepath.Join(m.Dir, name)
	m.Write(path, "not a module\n")
	m.Opener.Register(path, loader.Symbols{})
	return path
}

// Write replaces the content of path, creating parent directories
func (m *Modules) Write(path, content string) {
	m.t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		m.t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		m.t.Fatalf("failed to write %s: %v", path, err)
	}
}

// Touch sets the modification time of path
func (m *Modules) Touch(path string, mtime time.Time) {
	m.t.Helper()
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		m.t.Fatalf("failed to touch %s: %v", path, err)
	}
}

// Grow appends to path, changing its size but keeping its mtime
func (m *Modules) Grow(path string) {
	m.t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		m.t.Fatalf("failed to stat %s: %v", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		m.t.Fatalf("failed to read %s: %v", path, err)
	}
	m.Write(path, fmt.Sprintf("%s#\n", data))
	m.Touch(path, info.ModTime())
}
