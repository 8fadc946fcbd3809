package plugincache

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Policy decides which major version answers a lookup when the requested
// major is not present
type Policy int

const (
	// PolicyBounded falls back to the greatest lower major only when the
	// request does not exceed the highest major known for the key
	PolicyBounded Policy = iota
	// PolicyNearestLower always falls back to the greatest lower major
	PolicyNearestLower
)

func (p Policy) String() string {
	switch p {
	case PolicyBounded:
		return "bounded"
	case PolicyNearestLower:
		return "nearest-lower"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy maps a policy name back to a Policy
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "bounded":
		return PolicyBounded, nil
	case "nearest-lower":
		return PolicyNearestLower, nil
	default:
		return 0, fmt.Errorf("unknown version policy %q", s)
	}
}

// Collision is an identifier and major version declared by more than one
// module. The first scanned module is kept.
type Collision struct {
	Identifier   string `json:"identifier"`
	VersionMajor int    `json:"version_major"`
	Kept         string `json:"kept"`
	Shadowed     string `json:"shadowed"`
}

// Index answers lookups by identifier and by label. It is rebuilt from the
// records after every read and scan, and never persisted.
type Index struct {
	Generation uuid.UUID
	policy     Policy
	byID       map[string][]*Descriptor
	byLabel    map[string][]*Descriptor
	collisions []Collision
	plugins    []*Descriptor
}

func buildIndex(records []*ModuleRecord, policy Policy, log *logrus.Logger) *Index {
	ix := &Index{
		Generation: uuid.New(),
		policy:     policy,
		byID:       make(map[string][]*Descriptor),
		byLabel:    make(map[string][]*Descriptor),
	}

	type key struct {
		s     string
		major int
	}
	ids := make(map[key]*Descriptor)
	labels := make(map[key]*Descriptor)

	for _, rec := range records {
		if rec.State == StateFailed {
			continue
		}
		for _, d := range rec.Descriptors {
			k := key{d.Identifier, d.VersionMajor}
			if kept, ok := ids[k]; ok {
				c := Collision{
					Identifier:   d.Identifier,
					VersionMajor: d.VersionMajor,
					Kept:         kept.ModulePath,
					Shadowed:     d.ModulePath,
				}
				log.Warnf("Plugin %s v%d in %s is shadowed by %s", c.Identifier, c.VersionMajor, c.Shadowed, c.Kept)
				ix.collisions = append(ix.collisions, c)
				continue
			}
			ids[k] = d
			ix.plugins = append(ix.plugins, d)

			// the most recently scanned plugin wins a label tie
			lk := key{d.Label, d.VersionMajor}
			if prev, ok := labels[lk]; ok && prev.Identifier != d.Identifier {
				log.Debugf("Label %q v%d now resolves to %s instead of %s", d.Label, d.VersionMajor, d.Identifier, prev.Identifier)
			}
			labels[lk] = d
		}
	}

	for k, d := range ids {
		ix.byID[k.s] = append(ix.byID[k.s], d)
	}
	for k, d := range labels {
		ix.byLabel[k.s] = append(ix.byLabel[k.s], d)
	}
	for _, list := range ix.byID {
		sortByMajor(list)
	}
	for _, list := range ix.byLabel {
		sortByMajor(list)
	}
	return ix
}

func sortByMajor(list []*Descriptor) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].VersionMajor < list[j].VersionMajor
	})
}

// resolve picks the descriptor answering a request for major from a list
// sorted by major
func (ix *Index) resolve(list []*Descriptor, major int) *Descriptor {
	if len(list) == 0 {
		return nil
	}
	if ix.policy == PolicyBounded && major > list[len(list)-1].VersionMajor {
		return nil
	}

	var best *Descriptor
	for _, d := range list {
		if d.VersionMajor == major {
			return d
		}
		if d.VersionMajor < major {
			best = d
		}
	}
	return best
}

// ByID looks up an identifier at a major version
func (ix *Index) ByID(id string, major int) *Descriptor {
	return ix.resolve(ix.byID[id], major)
}

// ByLabel looks up a label at a major version
func (ix *Index) ByLabel(label string, major int) *Descriptor {
	return ix.resolve(ix.byLabel[label], major)
}

// Versions returns every indexed major of an identifier, ascending
func (ix *Index) Versions(id string) []*Descriptor {
	return append([]*Descriptor(nil), ix.byID[id]...)
}

// Plugins returns the indexed descriptors in scan order
func (ix *Index) Plugins() []*Descriptor {
	return append([]*Descriptor(nil), ix.plugins...)
}

// Collisions returns the shadowed identifier/major pairs in scan order
func (ix *Index) Collisions() []Collision {
	return append([]Collision(nil), ix.collisions...)
}
