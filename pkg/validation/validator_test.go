package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/ofxhost/pkg/ofx"
	"github.com/platinummonkey/ofxhost/pkg/props"
)

func TestValidator_ActionRules(t *testing.T) {
	store := props.NewStore(nil)
	validator := NewValidator(DefaultRuleSet())

	args := store.MustCreate(props.KindActionArgs)
	instance := store.MustCreate(props.KindEffectInstance)

	tests := []struct {
		name        string
		action      string
		inArgs      ofx.Handle
		outArgs     ofx.Handle
		wantValid   bool
		wantMissing []string
	}{
		{"render with action args", ofx.ImageEffectActionRender, args, ofx.NullHandle, true, nil},
		{"render with instance set", ofx.ImageEffectActionRender, instance, ofx.NullHandle, false,
			[]string{ofx.PropTime, ofx.ImageEffectPropRenderScale, ofx.ImageEffectPropRenderWindow}},
		{"action without rules", ofx.ActionPurgeCaches, ofx.NullHandle, ofx.NullHandle, true, nil},
		{"null sets are skipped", ofx.ImageEffectActionGetRegionOfDefinition, ofx.NullHandle, ofx.NullHandle, true, nil},
		{"out args checked", ofx.ImageEffectActionGetTimeDomain, ofx.NullHandle, instance, false,
			[]string{ofx.ImageEffectPropFrameRange}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validator.Validate(store, tt.action, tt.inArgs, tt.outArgs)
			assert.Equal(t, tt.wantValid, result.Valid, "errors: %v", result.Errors)
			if tt.wantMissing != nil {
				assert.Equal(t, tt.wantMissing, result.Missing())
			}
		})
	}
}

func TestValidator_Warnings(t *testing.T) {
	store := props.NewStore(nil)
	validator := NewValidator(nil)

	// field to render is only recommended
	in := store.MustCreate(props.KindEffectInstance)
	require.NoError(t, store.SetDouble(in, ofx.PropTime, 0, 1))
	require.NoError(t, store.SetDouble(in, ofx.ImageEffectPropRenderScale, 0, 1))
	require.NoError(t, store.SetInt(in, ofx.ImageEffectPropRenderWindow, 0, 0))

	result := validator.Validate(store, ofx.ImageEffectActionIsIdentity, in, ofx.NullHandle)
	assert.True(t, result.Valid)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, ofx.ImageEffectPropFieldToRender, result.Warnings[0].Property)
	assert.Equal(t, SeverityWarning, result.Warnings[0].Severity)
}

func TestValidator_TypeMismatch(t *testing.T) {
	store := props.NewStore(nil)
	validator := NewValidator(nil)

	in := store.MustCreate(props.KindEffectInstance)
	require.NoError(t, store.SetInt(in, ofx.PropTime, 0, 3))

	result := validator.Validate(store, ofx.ImageEffectActionGetFramesNeeded, in, ofx.NullHandle)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "PROPERTY_TYPE", result.Errors[0].Code)
}

func TestValidator_ValidateHost(t *testing.T) {
	store := props.NewStore(nil)
	validator := NewValidator(nil)

	h := store.MustCreate(props.KindHost)
	result := validator.ValidateHost(store, h)
	assert.True(t, result.Valid)
	// no contexts declared yet
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "EMPTY_PROPERTY", result.Warnings[0].Code)

	require.NoError(t, props.NewSet(store, h).AppendString(ofx.ImageEffectPropSupportedContexts, ofx.ImageEffectContextFilter))
	result = validator.ValidateHost(store, h)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Warnings)

	// a descriptor set is not a host set
	desc := store.MustCreate(props.KindEffectDescriptor)
	result = validator.ValidateHost(store, desc)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Missing(), ofx.ImageEffectHostPropIsBackground)

	result = validator.ValidateHost(store, ofx.NullHandle)
	assert.False(t, result.Valid)
	assert.Equal(t, "NULL_HOST_HANDLE", result.Errors[0].Code)
}
