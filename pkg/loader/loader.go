package loader

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/ofxhost/pkg/ofx"
)

// Module is an opened binary module and its two mandated entry points
type Module struct {
	path       string
	numPlugins func() int
	getPlugin  func(int) *ofx.Plugin
	closed     atomic.Bool
}

// Path returns the cleaned path the module was opened from
func (m *Module) Path() string {
	return m.path
}

// IsOpen reports whether the module has not been closed yet
func (m *Module) IsOpen() bool {
	return !m.closed.Load()
}

// NumberOfPlugins calls the module's OfxGetNumberOfPlugins
func (m *Module) NumberOfPlugins() (int, error) {
	if m.closed.Load() {
		return 0, ofx.NewError(ofx.NotLoaded, "loader.NumberOfPlugins", m.path)
	}
	return m.numPlugins(), nil
}

// Plugin calls the module's OfxGetPlugin. The returned struct is only valid
// while the module stays open.
func (m *Module) Plugin(nth int) (*ofx.Plugin, error) {
	if m.closed.Load() {
		return nil, ofx.NewError(ofx.NotLoaded, "loader.Plugin", m.path)
	}
	n := m.numPlugins()
	if nth < 0 || nth >= n {
		return nil, ofx.WrapError(ofx.BadIndex, "loader.Plugin", m.path, fmt.Errorf("plugin %d of %d", nth, n))
	}
	p := m.getPlugin(nth)
	if p == nil {
		return nil, ofx.WrapError(ofx.LoadFailed, "loader.Plugin", m.path, fmt.Errorf("%s(%d) returned nil", ofx.SymbolGetPlugin, nth))
	}
	return p, nil
}

// Loader opens modules through an Opener and tracks which are open
type Loader struct {
	opener Opener
	mu     sync.Mutex
	open   map[string]*Module
	opens  atomic.Int64
	log    *logrus.Logger
}

// NewLoader creates a loader. A nil opener opens Go shared objects.
func NewLoader(opener Opener, log *logrus.Logger) *Loader {
	if opener == nil {
		opener = SharedObjectOpener{}
	}
	if log == nil {
		log = logrus.New()
	}
	return &Loader{
		opener: opener,
		open:   make(map[string]*Module),
		log:    log,
	}
}

// Open maps the module at path and resolves OfxGetNumberOfPlugins and
// OfxGetPlugin. Opening a path that is already open through this loader
// fails with AlreadyLoaded.
func (l *Loader) Open(path string) (*Module, error) {
	path = filepath.Clean(path)

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.open[path]; ok {
		return nil, ofx.NewError(ofx.AlreadyLoaded, "loader.Open", path)
	}

	l.opens.Add(1)
	syms, err := l.opener.Open(path)
	if err != nil {
		return nil, ofx.WrapError(ofx.LoadFailed, "loader.Open", path, err)
	}

	numPlugins, err := lookupNumberOfPlugins(syms)
	if err != nil {
		return nil, ofx.WrapError(ofx.LoadFailed, "loader.Open", path, err)
	}
	getPlugin, err := lookupGetPlugin(syms)
	if err != nil {
		return nil, ofx.WrapError(ofx.LoadFailed, "loader.Open", path, err)
	}

	m := &Module{path: path, numPlugins: numPlugins, getPlugin: getPlugin}
	l.open[path] = m
	l.log.Debugf("Opened module %s", path)
	return m, nil
}

func lookupNumberOfPlugins(syms SymbolTable) (func() int, error) {
	sym, err := syms.Lookup(ofx.SymbolGetNumberOfPlugins)
	if err != nil {
		return nil, fmt.Errorf("missing symbol %s: %w", ofx.SymbolGetNumberOfPlugins, err)
	}
	switch fn := sym.(type) {
	case func() int:
		return fn, nil
	case *func() int:
		if fn != nil && *fn != nil {
			return *fn, nil
		}
	}
	return nil, fmt.Errorf("symbol %s has type %T, want func() int", ofx.SymbolGetNumberOfPlugins, sym)
}

func lookupGetPlugin(syms SymbolTable) (func(int) *ofx.Plugin, error) {
	sym, err := syms.Lookup(ofx.SymbolGetPlugin)
	if err != nil {
		return nil, fmt.Errorf("missing symbol %s: %w", ofx.SymbolGetPlugin, err)
	}
	switch fn := sym.(type) {
	case func(int) *ofx.Plugin:
		return fn, nil
	case *func(int) *ofx.Plugin:
		if fn != nil && *fn != nil {
			return *fn, nil
		}
	}
	return nil, fmt.Errorf("symbol %s has type %T, want func(int) *ofx.Plugin", ofx.SymbolGetPlugin, sym)
}

// Close invalidates the module and every plugin struct read from it. Go
// cannot unmap a shared object, so the code stays resident; only the handle
// dies.
func (l *Loader) Close(m *Module) error {
	if m == nil || m.closed.Swap(true) {
		return ofx.NewError(ofx.NotLoaded, "loader.Close", modulePath(m))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.open[m.path] == m {
		delete(l.open, m.path)
	}
	l.log.Debugf("Closed module %s", m.path)
	return nil
}

func modulePath(m *Module) string {
	if m == nil {
		return ""
	}
	return m.path
}

// CallEntry invokes the nth plugin's main entry point. A panic inside a
// plugin that does not contain its own is reported as kOfxStatErrUnknown.
func (l *Loader) CallEntry(m *Module, nth int, action string, handle, inArgs, outArgs ofx.Handle) (stat ofx.Status, err error) {
	if m == nil || m.closed.Load() {
		return ofx.StatFailed, ofx.NewError(ofx.NotLoaded, "loader.CallEntry", modulePath(m))
	}
	p, err := m.Plugin(nth)
	if err != nil {
		return ofx.StatFailed, err
	}
	if p.MainEntry == nil {
		return ofx.StatFailed, ofx.WrapError(ofx.LoadFailed, "loader.CallEntry", p.Identifier, fmt.Errorf("plugin has no main entry"))
	}

	defer func() {
		if r := recover(); r != nil {
			l.log.Errorf("Plugin %s panicked in %s: %v", p.Identifier, action, r)
			stat = ofx.StatErrUnknown
			err = ofx.WrapError(ofx.Unknown, "loader.CallEntry", p.Identifier, fmt.Errorf("panic: %v", r))
		}
	}()
	return p.MainEntry(action, handle, inArgs, outArgs), nil
}

// Opens returns how many times the loader asked its opener to map a module
func (l *Loader) Opens() int64 {
	return l.opens.Load()
}

// OpenModules lists the paths currently open, sorted
func (l *Loader) OpenModules() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	paths := make([]string, 0, len(l.open))
	for p := range l.open {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
