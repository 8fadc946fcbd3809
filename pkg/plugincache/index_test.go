package plugincache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func descriptor(path, id string, major int, label string) *Descriptor {
	return &Descriptor{
		Identity:   Identity{Identifier: id, VersionMajor: major},
		Label:      label,
		ModulePath: path,
	}
}

func record(path string, descs ...*Descriptor) *ModuleRecord {
	return &ModuleRecord{Path: path, Descriptors: descs, State: StateCachedValid}
}

func TestIndex_VersionResolution(t *testing.T) {
	records := []*ModuleRecord{
		record("/p/a.ofx",
			descriptor("/p/a.ofx", "uk.test.sample", 1, "Sample"),
			descriptor("/p/a.ofx", "uk.test.sample", 2, "Sample"),
		),
		record("/p/b.ofx", descriptor("/p/b.ofx", "uk.test.sample", 4, "Sample")),
	}

	tests := []struct {
		name   string
		policy Policy
		major  int
		want   int // -1 for not found
	}{
		{"exact 1", PolicyBounded, 1, 1},
		{"exact 2", PolicyBounded, 2, 2},
		{"exact 4", PolicyBounded, 4, 4},
		{"gap falls back", PolicyBounded, 3, 2},
		{"above highest", PolicyBounded, 5, -1},
		{"below lowest", PolicyBounded, 0, -1},
		{"nearest lower gap", PolicyNearestLower, 3, 2},
		{"nearest lower above highest", PolicyNearestLower, 9, 4},
		{"nearest lower below lowest", PolicyNearestLower, 0, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := buildIndex(records, tt.policy, quietLogger())

			byID := ix.ByID("uk.test.sample", tt.major)
			byLabel := ix.ByLabel("Sample", tt.major)
			if tt.want < 0 {
				assert.Nil(t, byID)
				assert.Nil(t, byLabel)
				return
			}
			require.NotNil(t, byID)
			require.NotNil(t, byLabel)
			assert.Equal(t, tt.want, byID.VersionMajor)
			assert.Equal(t, tt.want, byLabel.VersionMajor)
		})
	}
}

func TestIndex_SingleVersion(t *testing.T) {
	records := []*ModuleRecord{
		record("/p/s.ofx", descriptor("/p/s.ofx", "uk.test.sample", 2, "Sample")),
	}
	ix := buildIndex(records, PolicyBounded, quietLogger())

	assert.NotNil(t, ix.ByID("uk.test.sample", 2))
	assert.Nil(t, ix.ByID("uk.test.sample", 3))
	assert.Nil(t, ix.ByLabel("Sample", 3))
	assert.Nil(t, ix.ByID("uk.test.other", 2))
}

func TestIndex_FirstScannedWins(t *testing.T) {
	first := descriptor("/a/fx.ofx", "org.fx", 1, "First")
	second := descriptor("/b/fx.ofx", "org.fx", 1, "Second")
	records := []*ModuleRecord{
		record("/a/fx.ofx", first),
		record("/b/fx.ofx", second),
	}

	ix := buildIndex(records, PolicyBounded, quietLogger())
	assert.Same(t, first, ix.ByID("org.fx", 1))
	assert.Equal(t, []Collision{{
		Identifier:   "org.fx",
		VersionMajor: 1,
		Kept:         "/a/fx.ofx",
		Shadowed:     "/b/fx.ofx",
	}}, ix.Collisions())

	// the shadowed plugin is not reachable by its label either
	assert.Nil(t, ix.ByLabel("Second", 1))
	assert.Same(t, first, ix.ByLabel("First", 1))
	assert.Equal(t, []*Descriptor{first}, ix.Plugins())
}

func TestIndex_LabelTieGoesToLastScanned(t *testing.T) {
	a := descriptor("/p/a.ofx", "org.a", 1, "Blur")
	b := descriptor("/p/b.ofx", "org.b", 1, "Blur")
	ix := buildIndex([]*ModuleRecord{record("/p/a.ofx", a), record("/p/b.ofx", b)}, PolicyBounded, quietLogger())

	assert.Same(t, b, ix.ByLabel("Blur", 1))
	assert.Same(t, a, ix.ByID("org.a", 1))
	assert.Same(t, b, ix.ByID("org.b", 1))
	assert.Empty(t, ix.Collisions())
}

func TestIndex_SkipsFailedRecords(t *testing.T) {
	failed := record("/p/bad.ofx", descriptor("/p/bad.ofx", "org.bad", 1, "Bad"))
	failed.State = StateFailed

	ix := buildIndex([]*ModuleRecord{failed}, PolicyBounded, quietLogger())
	assert.Nil(t, ix.ByID("org.bad", 1))
	assert.Empty(t, ix.Plugins())
}

func TestIndex_Versions(t *testing.T) {
	records := []*ModuleRecord{
		record("/p/b.ofx", descriptor("/p/b.ofx", "org.v", 3, "V")),
		record("/p/a.ofx", descriptor("/p/a.ofx", "org.v", 1, "V")),
	}
	ix := buildIndex(records, PolicyBounded, quietLogger())

	versions := ix.Versions("org.v")
	require.Len(t, versions, 2)
	assert.Equal(t, 1, versions[0].VersionMajor)
	assert.Equal(t, 3, versions[1].VersionMajor)
	assert.NotEqual(t, buildIndex(records, PolicyBounded, quietLogger()).Generation, ix.Generation)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyBounded, p)

	p, err = ParsePolicy("nearest-lower")
	require.NoError(t, err)
	assert.Equal(t, PolicyNearestLower, p)
	assert.Equal(t, "nearest-lower", p.String())

	_, err = ParsePolicy("closest")
	assert.Error(t, err)
}
