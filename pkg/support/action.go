package support

import (
	"github.com/platinummonkey/ofxhost/pkg/ofx"
)

// Action is a resolved action name
type Action int

const (
	ActionUnknown Action = iota
	ActionLoad
	ActionUnload
	ActionDescribe
	ActionDescribeInContext
	ActionCreateInstance
	ActionDestroyInstance
	ActionRender
	ActionBeginSequenceRender
	ActionEndSequenceRender
	ActionGetRegionOfDefinition
	ActionGetRegionsOfInterest
	ActionGetTimeDomain
	ActionGetFramesNeeded
	ActionGetClipPreferences
	ActionIsIdentity
	ActionPurgeCaches
	ActionSyncPrivateData
	ActionInstanceChanged
	ActionBeginInstanceChanged
	ActionEndInstanceChanged
	ActionBeginInstanceEdit
	ActionEndInstanceEdit
)

// contract says which of an action's handles may be null
type contract struct {
	name       string
	handleNull bool
	inNull     bool
	outNull    bool
}

var contracts = map[Action]contract{
	ActionLoad:                  {ofx.ActionLoad, true, true, true},
	ActionUnload:                {ofx.ActionUnload, true, true, true},
	ActionDescribe:              {ofx.ActionDescribe, false, true, true},
	ActionDescribeInContext:     {ofx.ImageEffectActionDescribeInContext, false, false, true},
	ActionCreateInstance:        {ofx.ActionCreateInstance, false, true, true},
	ActionDestroyInstance:       {ofx.ActionDestroyInstance, false, true, true},
	ActionRender:                {ofx.ImageEffectActionRender, false, false, true},
	ActionBeginSequenceRender:   {ofx.ImageEffectActionBeginSequenceRender, false, false, true},
	ActionEndSequenceRender:     {ofx.ImageEffectActionEndSequenceRender, false, false, true},
	ActionGetRegionOfDefinition: {ofx.ImageEffectActionGetRegionOfDefinition, false, false, false},
	ActionGetRegionsOfInterest:  {ofx.ImageEffectActionGetRegionsOfInterest, false, false, false},
	ActionGetTimeDomain:         {ofx.ImageEffectActionGetTimeDomain, false, true, false},
	ActionGetFramesNeeded:       {ofx.ImageEffectActionGetFramesNeeded, false, false, false},
	ActionGetClipPreferences:    {ofx.ImageEffectActionGetClipPreferences, false, false, false},
	ActionIsIdentity:            {ofx.ImageEffectActionIsIdentity, false, false, false},
	ActionPurgeCaches:           {ofx.ActionPurgeCaches, false, true, true},
	ActionSyncPrivateData:       {ofx.ActionSyncPrivateData, false, true, true},
	ActionInstanceChanged:       {ofx.ActionInstanceChanged, false, false, true},
	ActionBeginInstanceChanged:  {ofx.ActionBeginInstanceChanged, false, false, true},
	ActionEndInstanceChanged:    {ofx.ActionEndInstanceChanged, false, false, true},
	ActionBeginInstanceEdit:     {ofx.ActionBeginInstanceEdit, false, true, true},
	ActionEndInstanceEdit:       {ofx.ActionEndInstanceEdit, false, true, true},
}

var actionsByName = func() map[string]Action {
	m := make(map[string]Action, len(contracts))
	for a, c := range contracts {
		m[c.name] = a
	}
	return m
}()

// ParseAction resolves an action name. Unrecognised names are ActionUnknown.
func ParseAction(name string) Action {
	return actionsByName[name]
}

// String returns the native action name
func (a Action) String() string {
	if c, ok := contracts[a]; ok {
		return c.name
	}
	return "unknown"
}

// IsInstanceAction reports whether the action's handle is an effect instance
func (a Action) IsInstanceAction() bool {
	return a >= ActionDestroyInstance
}
