package props

import (
	"github.com/platinummonkey/ofxhost/pkg/ofx"
)

// Type is the value type of a property
type Type int

const (
	TypeString Type = iota
	TypeInt
	TypeDouble
	TypePointer
)

func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "int"
	case TypeDouble:
		return "double"
	case TypePointer:
		return "pointer"
	default:
		return "invalid"
	}
}

// Kind selects the schema a property set is created with
type Kind string

const (
	KindHost             Kind = "host"
	KindEffectDescriptor Kind = "effect-descriptor"
	KindEffectInstance   Kind = "effect-instance"
	KindActionArgs       Kind = "action-args"
)

// Spec declares one property of a kind. Dimension 0 means variable length.
type Spec struct {
	Type      Type
	Dimension int
	Defaults  []any
}

func str(dim int, defaults ...any) Spec {
	return Spec{Type: TypeString, Dimension: dim, Defaults: defaults}
}

func integer(dim int, defaults ...any) Spec {
	return Spec{Type: TypeInt, Dimension: dim, Defaults: defaults}
}

func double(dim int, defaults ...any) Spec {
	return Spec{Type: TypeDouble, Dimension: dim, Defaults: defaults}
}

func pointer(dim int) Spec {
	return Spec{Type: TypePointer, Dimension: dim}
}

var schemas = map[Kind]map[string]Spec{
	KindHost: {
		ofx.PropType:                                  str(1, ofx.TypeHost),
		ofx.PropName:                                  str(1, ""),
		ofx.PropLabel:                                 str(1, ""),
		ofx.PropAPIVersion:                            integer(0),
		ofx.ImageEffectHostPropIsBackground:           integer(1, 0),
		ofx.ImageEffectPropSupportsOverlays:           integer(1, 0),
		ofx.ImageEffectPropSupportsMultiResolution:    integer(1, 0),
		ofx.ImageEffectPropSupportsTiles:              integer(1, 0),
		ofx.ImageEffectPropTemporalClipAccess:         integer(1, 0),
		ofx.ImageEffectPropSupportsMultipleClipDepths: integer(1, 0),
		ofx.ImageEffectPropSupportsMultipleClipPARs:   integer(1, 0),
		ofx.ImageEffectPropSetableFrameRate:           integer(1, 0),
		ofx.ImageEffectPropSetableFielding:            integer(1, 0),
		ofx.ImageEffectPropSupportedContexts:          str(0),
		ofx.ParamHostPropSupportsStringAnimation:      integer(1, 0),
		ofx.ParamHostPropSupportsCustomInteract:       integer(1, 0),
		ofx.ParamHostPropSupportsChoiceAnimation:      integer(1, 0),
		ofx.ParamHostPropSupportsBooleanAnimation:     integer(1, 0),
		ofx.ParamHostPropSupportsCustomAnimation:      integer(1, 0),
		ofx.ParamHostPropMaxParameters:                integer(1, -1),
		ofx.ParamHostPropMaxPages:                     integer(1, 0),
		ofx.ParamHostPropPageRowColumnCount:           integer(2, 0, 0),
	},
	KindEffectDescriptor: {
		ofx.PropType:                                  str(1, ofx.TypeImageEffect),
		ofx.PropLabel:                                 str(1, ""),
		ofx.PropShortLabel:                            str(1, ""),
		ofx.PropLongLabel:                             str(1, ""),
		ofx.PropPluginDesc:                            str(1, ""),
		ofx.ImageEffectPluginPropGrouping:             str(1, ""),
		ofx.ImageEffectPropSupportedContexts:          str(0),
		ofx.ImageEffectPropSupportsTiles:              integer(1, 1),
		ofx.ImageEffectPropSupportsMultiResolution:    integer(1, 1),
		ofx.ImageEffectPropTemporalClipAccess:         integer(1, 0),
		ofx.ImageEffectPropSupportsMultipleClipDepths: integer(1, 0),
		ofx.ImageEffectPropSupportsMultipleClipPARs:   integer(1, 0),
		ofx.ImageEffectPluginPropSingleInstance:       integer(1, 0),
		ofx.ImageEffectPluginPropHostFrameThreading:   integer(1, 0),
		ofx.ImageEffectPropContext:                    str(1, ""),
	},
	KindEffectInstance: {
		ofx.PropType:               str(1, ofx.TypeImageEffectInstance),
		ofx.PropLabel:              str(1, ""),
		ofx.PropInstanceData:       pointer(1),
		ofx.ImageEffectPropContext: str(1, ""),
	},
	KindActionArgs: {
		ofx.ImageEffectPropContext:            str(1, ""),
		ofx.PropTime:                          double(1, 0.0),
		ofx.PropType:                          str(1, ""),
		ofx.PropName:                          str(1, ""),
		ofx.PropChangeReason:                  str(1, ""),
		ofx.ImageEffectPropRenderScale:        double(2, 1.0, 1.0),
		ofx.ImageEffectPropRenderWindow:       integer(4, 0, 0, 0, 0),
		ofx.ImageEffectPropFieldToRender:      str(1, ""),
		ofx.ImageEffectPropRegionOfDefinition: double(4, 0.0, 0.0, 0.0, 0.0),
		ofx.ImageEffectPropFrameRange:         double(2, 0.0, 0.0),
	},
}

// Schema returns the declared properties for kind
func Schema(kind Kind) (map[string]Spec, bool) {
	schema, ok := schemas[kind]
	return schema, ok
}

func zeroValue(t Type) any {
	switch t {
	case TypeString:
		return ""
	case TypeInt:
		return 0
	case TypeDouble:
		return 0.0
	default:
		return nil
	}
}

// initialValues materializes a declared property's starting values
func (s Spec) initialValues() []any {
	if s.Dimension == 0 {
		return append([]any(nil), s.Defaults...)
	}

	values := make([]any, s.Dimension)
	for i := range values {
		if i < len(s.Defaults) {
			values[i] = s.Defaults[i]
		} else {
			values[i] = zeroValue(s.Type)
		}
	}
	return values
}
