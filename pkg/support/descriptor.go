package support

import (
	"github.com/platinummonkey/ofxhost/pkg/ofx"
	"github.com/platinummonkey/ofxhost/pkg/props"
)

// PluginID identifies the plugin a Runtime exports
type PluginID struct {
	Identifier   string
	VersionMajor int
	VersionMinor int
}

// EffectDescriptor wraps the descriptor property set handed to describe and
// describe-in-context. Setters record the first error; the runtime returns it
// once the plugin's describe call finishes.
type EffectDescriptor struct {
	props props.Set
	err   error
}

func newEffectDescriptor(set props.Set) *EffectDescriptor {
	return &EffectDescriptor{props: set}
}

// Properties exposes the raw property set
func (d *EffectDescriptor) Properties() props.Set {
	return d.props
}

// Err returns the first error raised by a setter
func (d *EffectDescriptor) Err() error {
	return d.err
}

func (d *EffectDescriptor) record(err error) {
	if d.err == nil && err != nil {
		d.err = err
	}
}

func (d *EffectDescriptor) SetLabel(label string) {
	d.record(d.props.SetString(ofx.PropLabel, label))
}

func (d *EffectDescriptor) SetLabels(label, shortLabel, longLabel string) {
	d.SetLabel(label)
	d.record(d.props.SetString(ofx.PropShortLabel, shortLabel))
	d.record(d.props.SetString(ofx.PropLongLabel, longLabel))
}

func (d *EffectDescriptor) SetPluginDescription(desc string) {
	d.record(d.props.SetString(ofx.PropPluginDesc, desc))
}

func (d *EffectDescriptor) SetPluginGrouping(group string) {
	d.record(d.props.SetString(ofx.ImageEffectPluginPropGrouping, group))
}

// AddSupportedContext appends a context. Adding the same context twice is a no-op.
func (d *EffectDescriptor) AddSupportedContext(c ofx.Context) {
	if c == ofx.ContextNone {
		return
	}
	existing, err := d.props.GetStrings(ofx.ImageEffectPropSupportedContexts)
	if err != nil {
		d.record(err)
		return
	}
	for _, v := range existing {
		if v == c.PropertyValue() {
			return
		}
	}
	d.record(d.props.AppendString(ofx.ImageEffectPropSupportedContexts, c.PropertyValue()))
}

func (d *EffectDescriptor) SetSupportsTiles(v bool) {
	d.record(d.props.SetBool(ofx.ImageEffectPropSupportsTiles, v))
}

func (d *EffectDescriptor) SetSupportsMultiResolution(v bool) {
	d.record(d.props.SetBool(ofx.ImageEffectPropSupportsMultiResolution, v))
}

func (d *EffectDescriptor) SetTemporalClipAccess(v bool) {
	d.record(d.props.SetBool(ofx.ImageEffectPropTemporalClipAccess, v))
}

func (d *EffectDescriptor) SetSupportsMultipleClipDepths(v bool) {
	d.record(d.props.SetBool(ofx.ImageEffectPropSupportsMultipleClipDepths, v))
}

func (d *EffectDescriptor) SetSupportsMultipleClipPARs(v bool) {
	d.record(d.props.SetBool(ofx.ImageEffectPropSupportsMultipleClipPARs, v))
}

func (d *EffectDescriptor) SetSingleInstance(v bool) {
	d.record(d.props.SetBool(ofx.ImageEffectPluginPropSingleInstance, v))
}

func (d *EffectDescriptor) SetHostFrameThreading(v bool) {
	d.record(d.props.SetBool(ofx.ImageEffectPluginPropHostFrameThreading, v))
}
