package support

import (
	"github.com/platinummonkey/ofxhost/pkg/ofx"
	"github.com/platinummonkey/ofxhost/pkg/props"
)

// HostDescription is the snapshot of host capabilities taken on first load
type HostDescription struct {
	HostName                   string
	HostIsBackground           bool
	SupportsOverlays           bool
	SupportsMultiResolution    bool
	SupportsTiles              bool
	TemporalClipAccess         bool
	SupportsMultipleClipDepths bool
	SupportsMultipleClipPARs   bool
	SupportsSetableFrameRate   bool
	SupportsSetableFielding    bool
	SupportsStringAnimation    bool
	SupportsCustomInteract     bool
	SupportsChoiceAnimation    bool
	SupportsBooleanAnimation   bool
	SupportsCustomAnimation    bool
	MaxParameters              int
	MaxPages                   int
	PageRowCount               int
	PageColumnCount            int
}

// readHostDescription reads every capability from the host property set.
// Any property the host fails to provide fails the read.
func readHostDescription(hostProps props.Set) (*HostDescription, error) {
	d := &HostDescription{}

	var err error
	if d.HostName, err = hostProps.GetString(ofx.PropName); err != nil {
		return nil, err
	}

	flags := []struct {
		name string
		dst  *bool
	}{
		{ofx.ImageEffectHostPropIsBackground, &d.HostIsBackground},
		{ofx.ImageEffectPropSupportsOverlays, &d.SupportsOverlays},
		{ofx.ImageEffectPropSupportsMultiResolution, &d.SupportsMultiResolution},
		{ofx.ImageEffectPropSupportsTiles, &d.SupportsTiles},
		{ofx.ImageEffectPropTemporalClipAccess, &d.TemporalClipAccess},
		{ofx.ImageEffectPropSupportsMultipleClipDepths, &d.SupportsMultipleClipDepths},
		{ofx.ImageEffectPropSupportsMultipleClipPARs, &d.SupportsMultipleClipPARs},
		{ofx.ImageEffectPropSetableFrameRate, &d.SupportsSetableFrameRate},
		{ofx.ImageEffectPropSetableFielding, &d.SupportsSetableFielding},
		{ofx.ParamHostPropSupportsStringAnimation, &d.SupportsStringAnimation},
		{ofx.ParamHostPropSupportsCustomInteract, &d.SupportsCustomInteract},
		{ofx.ParamHostPropSupportsChoiceAnimation, &d.SupportsChoiceAnimation},
		{ofx.ParamHostPropSupportsBooleanAnimation, &d.SupportsBooleanAnimation},
		{ofx.ParamHostPropSupportsCustomAnimation, &d.SupportsCustomAnimation},
	}
	for _, f := range flags {
		if *f.dst, err = hostProps.GetBool(f.name); err != nil {
			return nil, err
		}
	}

	ints := []struct {
		name  string
		index int
		dst   *int
	}{
		{ofx.ParamHostPropMaxParameters, 0, &d.MaxParameters},
		{ofx.ParamHostPropMaxPages, 0, &d.MaxPages},
		{ofx.ParamHostPropPageRowColumnCount, 0, &d.PageRowCount},
		{ofx.ParamHostPropPageRowColumnCount, 1, &d.PageColumnCount},
	}
	for _, i := range ints {
		if *i.dst, err = hostProps.GetIntN(i.name, i.index); err != nil {
			return nil, err
		}
	}

	return d, nil
}
