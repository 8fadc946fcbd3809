package plugincache

import (
	"fmt"

	"github.com/platinummonkey/ofxhost/pkg/ofx"
)

// Identity is the identifier and version of a plugin. Identifier and major
// version together form the compatibility key.
type Identity struct {
	Identifier   string `json:"identifier"`
	VersionMajor int    `json:"version_major"`
	VersionMinor int    `json:"version_minor"`
}

func (i Identity) String() string {
	return fmt.Sprintf("%s v%d.%d", i.Identifier, i.VersionMajor, i.VersionMinor)
}

// Flag is a capability a plugin declares while being described
type Flag int

const (
	FlagSupportsTiles Flag = iota
	FlagSupportsMultiResolution
	FlagTemporalClipAccess
	FlagMultipleClipDepths
	FlagMultipleClipPARs
	FlagSingleInstance
	FlagHostFrameThreading
)

var flagInfo = []struct {
	name     string
	property string
}{
	{"supports-tiles", ofx.ImageEffectPropSupportsTiles},
	{"supports-multi-resolution", ofx.ImageEffectPropSupportsMultiResolution},
	{"temporal-clip-access", ofx.ImageEffectPropTemporalClipAccess},
	{"multiple-clip-depths", ofx.ImageEffectPropSupportsMultipleClipDepths},
	{"multiple-clip-pars", ofx.ImageEffectPropSupportsMultipleClipPARs},
	{"single-instance", ofx.ImageEffectPluginPropSingleInstance},
	{"host-frame-threading", ofx.ImageEffectPluginPropHostFrameThreading},
}

// Flags lists every flag in canonical order
func Flags() []Flag {
	flags := make([]Flag, len(flagInfo))
	for i := range flagInfo {
		flags[i] = Flag(i)
	}
	return flags
}

func (f Flag) String() string {
	if f < 0 || int(f) >= len(flagInfo) {
		return fmt.Sprintf("flag(%d)", int(f))
	}
	return flagInfo[f].name
}

// Property is the descriptor property the flag is read from
func (f Flag) Property() string {
	if f < 0 || int(f) >= len(flagInfo) {
		return ""
	}
	return flagInfo[f].property
}

// ParseFlag maps a flag name back to a Flag
func ParseFlag(name string) (Flag, bool) {
	for i, info := range flagInfo {
		if info.name == name {
			return Flag(i), true
		}
	}
	return 0, false
}

func (f Flag) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Flag) UnmarshalText(text []byte) error {
	flag, ok := ParseFlag(string(text))
	if !ok {
		return fmt.Errorf("unknown flag %q", text)
	}
	*f = flag
	return nil
}

// Descriptor is the cached metadata of one plugin. It is never modified
// after construction.
type Descriptor struct {
	Identity
	API        string        `json:"api"`
	APIVersion int           `json:"api_version"`
	Label      string        `json:"label"`
	Contexts   []ofx.Context `json:"contexts"`
	Flags      []Flag        `json:"flags"`
	ModulePath string        `json:"module_path"`
	// Index is the plugin's position inside its module
	Index int `json:"index"`
}

// SupportsContext reports whether the plugin declared ctx
func (d *Descriptor) SupportsContext(ctx ofx.Context) bool {
	for _, c := range d.Contexts {
		if c == ctx {
			return true
		}
	}
	return false
}

// HasFlag reports whether the plugin declared f
func (d *Descriptor) HasFlag(f Flag) bool {
	for _, have := range d.Flags {
		if have == f {
			return true
		}
	}
	return false
}

// State is where a module record is in its lifecycle
type State int

const (
	// StateUnscanned records came from a cache file and have not been
	// checked against the filesystem yet
	StateUnscanned State = iota
	StateCachedValid
	StateCachedStale
	StateReloading
	// StateFailed modules could not be described. They are neither indexed
	// nor written.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnscanned:
		return "unscanned"
	case StateCachedValid:
		return "valid"
	case StateCachedStale:
		return "stale"
	case StateReloading:
		return "reloading"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ModuleRecord is everything cached about one binary module. It is valid
// while ModTime and Size match the file on disk exactly.
type ModuleRecord struct {
	Path string `json:"path"`
	// ModTime is the modification time in nanoseconds since the epoch
	ModTime int64 `json:"mtime"`
	Size    int64 `json:"size"`
	// Loaded is true when the descriptors come from loading the module in
	// this process rather than from the cache file
	Loaded      bool          `json:"loaded"`
	Descriptors []*Descriptor `json:"plugins"`
	State       State         `json:"state"`
	Error       string        `json:"error,omitempty"`
}

// matches reports whether the record still describes a file with the given
// modification time and size
func (r *ModuleRecord) matches(modTime, size int64) bool {
	return r.ModTime == modTime && r.Size == size
}
