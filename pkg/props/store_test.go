package props

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/ofxhost/pkg/ofx"
)

func TestStore_Defaults(t *testing.T) {
	s := NewStore(nil)
	h, err := s.Create(KindEffectDescriptor)
	require.NoError(t, err)
	require.False(t, h.IsNull())

	typ, err := s.GetString(h, ofx.PropType, 0)
	require.NoError(t, err)
	assert.Equal(t, ofx.TypeImageEffect, typ)

	tiles, err := s.GetInt(h, ofx.ImageEffectPropSupportsTiles, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, tiles)

	n, err := s.GetDimension(h, ofx.ImageEffectPropSupportedContexts)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	kind, err := s.KindOf(h)
	require.NoError(t, err)
	assert.Equal(t, KindEffectDescriptor, kind)
}

func TestStore_Errors(t *testing.T) {
	s := NewStore(nil)
	h := s.MustCreate(KindActionArgs)

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"null handle", func() error { _, err := s.GetInt(ofx.NullHandle, ofx.PropTime, 0); return err }, ofx.ErrBadHandle},
		{"unknown handle", func() error { _, err := s.GetInt(h+100, ofx.PropTime, 0); return err }, ofx.ErrBadHandle},
		{"unknown property", func() error { _, err := s.GetString(h, "NoSuchProp", 0); return err }, ofx.ErrUnknownProperty},
		{"type mismatch on get", func() error { _, err := s.GetInt(h, ofx.PropTime, 0); return err }, ofx.ErrTypeMismatch},
		{"type mismatch on set", func() error { return s.SetString(h, ofx.PropTime, 0, "x") }, ofx.ErrTypeMismatch},
		{"index beyond fixed dimension", func() error { return s.SetDouble(h, ofx.ImageEffectPropRenderScale, 2, 1) }, ofx.ErrBadIndex},
		{"negative index", func() error { _, err := s.GetDouble(h, ofx.PropTime, -1); return err }, ofx.ErrBadIndex},
		{"read beyond length", func() error { _, err := s.GetDouble(h, ofx.ImageEffectPropRenderScale, 2); return err }, ofx.ErrBadIndex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestStore_VariableDimensionAppend(t *testing.T) {
	s := NewStore(nil)
	h := s.MustCreate(KindEffectDescriptor)
	name := ofx.ImageEffectPropSupportedContexts

	require.NoError(t, s.SetString(h, name, 0, ofx.ImageEffectContextFilter))
	require.NoError(t, s.SetString(h, name, 1, ofx.ImageEffectContextGeneral))

	// index beyond the current length is not an append
	err := s.SetString(h, name, 3, ofx.ImageEffectContextPaint)
	assert.True(t, errors.Is(err, ofx.ErrBadIndex))

	// overwrite in place
	require.NoError(t, s.SetString(h, name, 1, ofx.ImageEffectContextGenerator))

	values, err := NewSet(s, h).GetStrings(name)
	require.NoError(t, err)
	assert.Equal(t, []string{ofx.ImageEffectContextFilter, ofx.ImageEffectContextGenerator}, values)
}

func TestStore_CustomProperties(t *testing.T) {
	s := NewStore(nil)
	h := s.MustCreate(KindEffectInstance)

	require.NoError(t, s.SetInt(h, "com.example.Custom", 0, 7))
	require.NoError(t, s.SetInt(h, "com.example.Custom", 1, 8))

	v, err := s.GetInt(h, "com.example.Custom", 1)
	require.NoError(t, err)
	assert.Equal(t, 8, v)

	// the first set fixes the type
	err = s.SetString(h, "com.example.Custom", 0, "x")
	assert.True(t, errors.Is(err, ofx.ErrTypeMismatch))

	err = s.SetInt(h, "com.example.Other", 2, 1)
	assert.True(t, errors.Is(err, ofx.ErrBadIndex))

	names, err := s.Names(h)
	require.NoError(t, err)
	assert.Contains(t, names, "com.example.Custom")
	assert.NotContains(t, names, "com.example.Other")
}

func TestStore_Pointer(t *testing.T) {
	s := NewStore(nil)
	h := s.MustCreate(KindEffectInstance)

	p, err := s.GetPointer(h, ofx.PropInstanceData, 0)
	require.NoError(t, err)
	assert.Nil(t, p)

	type instance struct{ n int }
	inst := &instance{n: 3}
	require.NoError(t, s.SetPointer(h, ofx.PropInstanceData, 0, inst))

	p, err = s.GetPointer(h, ofx.PropInstanceData, 0)
	require.NoError(t, err)
	assert.Same(t, inst, p)
}

func TestStore_Release(t *testing.T) {
	s := NewStore(nil)
	h := s.MustCreate(KindHost)
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Release(h))
	assert.Equal(t, 0, s.Len())

	_, err := s.GetString(h, ofx.PropName, 0)
	assert.True(t, errors.Is(err, ofx.ErrBadHandle))
	assert.True(t, errors.Is(s.Release(h), ofx.ErrBadHandle))

	_, err = s.Create(Kind("bogus"))
	assert.True(t, errors.Is(err, ofx.ErrBadValue))
}

func TestStore_Concurrent(t *testing.T) {
	s := NewStore(nil)
	h := s.MustCreate(KindActionArgs)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.NoError(t, s.SetDouble(h, ofx.PropTime, 0, float64(i*j)))
				_, err := s.GetDouble(h, ofx.PropTime, 0)
				assert.NoError(t, err)
				sub := s.MustCreate(KindEffectInstance)
				assert.NoError(t, s.Release(sub))
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, s.Len())
}

func TestSet_Helpers(t *testing.T) {
	s := NewStore(nil)
	set := NewSet(s, s.MustCreate(KindHost))

	require.NoError(t, set.SetBool(ofx.ImageEffectPropSupportsTiles, true))
	ok, err := set.GetBool(ofx.ImageEffectPropSupportsTiles)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, set.AppendString(ofx.ImageEffectPropSupportedContexts, ofx.ImageEffectContextFilter))
	require.NoError(t, set.AppendString(ofx.ImageEffectPropSupportedContexts, ofx.ImageEffectContextGeneral))
	n, err := set.Dimension(ofx.ImageEffectPropSupportedContexts)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, set.SetIntN(ofx.ParamHostPropPageRowColumnCount, 1, 4))
	cols, err := set.GetIntN(ofx.ParamHostPropPageRowColumnCount, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, cols)

	assert.True(t, Set{}.IsNull())
	assert.False(t, set.IsNull())
}
