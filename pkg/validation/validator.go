package validation

import (
	"errors"
	"fmt"

	"github.com/platinummonkey/ofxhost/pkg/ofx"
	"github.com/platinummonkey/ofxhost/pkg/props"
)

// Scope says which property set a rule applies to
type Scope int

const (
	ScopeInArgs Scope = iota
	ScopeOutArgs
	ScopeHost
)

func (s Scope) String() string {
	return []string{"inArgs", "outArgs", "host"}[s]
}

// Rule requires one property to be present with the given type
type Rule struct {
	Scope    Scope
	Property string
	Type     props.Type
	// NonEmpty additionally requires at least one value
	NonEmpty bool
	Severity Severity
}

// Validator checks property sets against per-action rules
type Validator struct {
	rules *RuleSet
}

// RuleSet lists the properties each action and the host set must carry
type RuleSet struct {
	// ActionRules maps an action name to the properties it requires
	ActionRules map[string][]Rule
	// HostRules are checked against the host property set
	HostRules []Rule
	// CheckHostType requires the host set's OfxPropType to be the host type
	CheckHostType bool
}

func required(scope Scope, name string, t props.Type) Rule {
	return Rule{Scope: scope, Property: name, Type: t, Severity: SeverityError}
}

func recommended(scope Scope, name string, t props.Type) Rule {
	return Rule{Scope: scope, Property: name, Type: t, Severity: SeverityWarning}
}

// DefaultRuleSet returns the rules for the image effect API
func DefaultRuleSet() *RuleSet {
	in, out, host := ScopeInArgs, ScopeOutArgs, ScopeHost
	return &RuleSet{
		ActionRules: map[string][]Rule{
			ofx.ImageEffectActionDescribeInContext: {
				required(in, ofx.ImageEffectPropContext, props.TypeString),
			},
			ofx.ImageEffectActionRender: {
				required(in, ofx.PropTime, props.TypeDouble),
				required(in, ofx.ImageEffectPropRenderScale, props.TypeDouble),
				required(in, ofx.ImageEffectPropRenderWindow, props.TypeInt),
				recommended(in, ofx.ImageEffectPropFieldToRender, props.TypeString),
			},
			ofx.ImageEffectActionBeginSequenceRender: {
				required(in, ofx.ImageEffectPropFrameRange, props.TypeDouble),
				required(in, ofx.ImageEffectPropRenderScale, props.TypeDouble),
			},
			ofx.ImageEffectActionEndSequenceRender: {
				required(in, ofx.ImageEffectPropFrameRange, props.TypeDouble),
				required(in, ofx.ImageEffectPropRenderScale, props.TypeDouble),
			},
			ofx.ImageEffectActionGetRegionOfDefinition: {
				required(in, ofx.PropTime, props.TypeDouble),
				required(in, ofx.ImageEffectPropRenderScale, props.TypeDouble),
				required(out, ofx.ImageEffectPropRegionOfDefinition, props.TypeDouble),
			},
			ofx.ImageEffectActionGetRegionsOfInterest: {
				required(in, ofx.PropTime, props.TypeDouble),
				required(in, ofx.ImageEffectPropRenderScale, props.TypeDouble),
			},
			ofx.ImageEffectActionGetFramesNeeded: {
				required(in, ofx.PropTime, props.TypeDouble),
			},
			ofx.ImageEffectActionGetTimeDomain: {
				required(out, ofx.ImageEffectPropFrameRange, props.TypeDouble),
			},
			ofx.ImageEffectActionIsIdentity: {
				required(in, ofx.PropTime, props.TypeDouble),
				required(in, ofx.ImageEffectPropRenderWindow, props.TypeInt),
				required(in, ofx.ImageEffectPropRenderScale, props.TypeDouble),
				recommended(in, ofx.ImageEffectPropFieldToRender, props.TypeString),
			},
			ofx.ActionInstanceChanged: {
				required(in, ofx.PropType, props.TypeString),
				required(in, ofx.PropName, props.TypeString),
				required(in, ofx.PropChangeReason, props.TypeString),
				required(in, ofx.PropTime, props.TypeDouble),
				required(in, ofx.ImageEffectPropRenderScale, props.TypeDouble),
			},
			ofx.ActionBeginInstanceChanged: {
				required(in, ofx.PropChangeReason, props.TypeString),
			},
			ofx.ActionEndInstanceChanged: {
				required(in, ofx.PropChangeReason, props.TypeString),
			},
		},
		HostRules: []Rule{
			required(host, ofx.PropType, props.TypeString),
			required(host, ofx.PropName, props.TypeString),
			required(host, ofx.ImageEffectHostPropIsBackground, props.TypeInt),
			required(host, ofx.ImageEffectPropSupportsOverlays, props.TypeInt),
			required(host, ofx.ImageEffectPropSupportsMultiResolution, props.TypeInt),
			required(host, ofx.ImageEffectPropSupportsTiles, props.TypeInt),
			required(host, ofx.ImageEffectPropTemporalClipAccess, props.TypeInt),
			required(host, ofx.ImageEffectPropSupportsMultipleClipDepths, props.TypeInt),
			required(host, ofx.ImageEffectPropSupportsMultipleClipPARs, props.TypeInt),
			required(host, ofx.ImageEffectPropSetableFrameRate, props.TypeInt),
			required(host, ofx.ImageEffectPropSetableFielding, props.TypeInt),
			{Scope: host, Property: ofx.ImageEffectPropSupportedContexts, Type: props.TypeString, NonEmpty: true, Severity: SeverityWarning},
			recommended(host, ofx.ParamHostPropMaxParameters, props.TypeInt),
			recommended(host, ofx.ParamHostPropMaxPages, props.TypeInt),
			recommended(host, ofx.ParamHostPropPageRowColumnCount, props.TypeInt),
		},
		CheckHostType: true,
	}
}

// NewValidator returns a validator for rules, or for DefaultRuleSet when
// rules is nil
func NewValidator(rules *RuleSet) *Validator {
	if rules == nil {
		rules = DefaultRuleSet()
	}
	return &Validator{rules: rules}
}

// Severity says whether a finding invalidates the property set
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityError {
		return "ERROR"
	}
	return "WARNING"
}

// Finding is one broken rule
type Finding struct {
	// Location is "<action>.<scope>", or "host"
	Location string
	// Code is a stable identifier such as MISSING_PROPERTY
	Code     string
	Message  string
	Severity Severity
	Property string
}

// Report collects findings. Valid is false when any error was found.
type Report struct {
	Errors   []*Finding
	Warnings []*Finding
	Valid    bool
}

// Missing lists the properties behind every error, in rule order
func (r *Report) Missing() []string {
	missing := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		if e.Property != "" {
			missing = append(missing, e.Property)
		}
	}
	return missing
}

// Validate checks the in and out argument sets of action. Actions without
// rules are always valid. A null set is skipped; handle nullness is the
// dispatcher's concern.
func (v *Validator) Validate(suite ofx.PropertySuite, action string, inArgs, outArgs ofx.Handle) *Report {
	result := &Report{}
	for _, rule := range v.rules.ActionRules[action] {
		h := inArgs
		if rule.Scope == ScopeOutArgs {
			h = outArgs
		}
		if h.IsNull() {
			continue
		}
		v.checkRule(suite, action, h, rule, result)
	}
	result.Valid = len(result.Errors) == 0
	return result
}

// ValidateHost checks the host property set handed to a plugin on load
func (v *Validator) ValidateHost(suite ofx.PropertySuite, h ofx.Handle) *Report {
	result := &Report{}
	if h.IsNull() {
		result.add(SeverityError, "host", "NULL_HOST_HANDLE", "host property set handle is null", "")
		return result
	}

	for _, rule := range v.rules.HostRules {
		v.checkRule(suite, "host", h, rule, result)
	}

	if v.rules.CheckHostType {
		if typ, err := suite.GetString(h, ofx.PropType, 0); err == nil && typ != ofx.TypeHost {
			result.add(SeverityWarning, "host", "HOST_TYPE",
				fmt.Sprintf("Host property set has type %q, expected %q", typ, ofx.TypeHost), ofx.PropType)
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

func (v *Validator) checkRule(suite ofx.PropertySuite, action string, h ofx.Handle, rule Rule, result *Report) {
	location := fmt.Sprintf("%s.%s", action, rule.Scope)

	n, err := suite.GetDimension(h, rule.Property)
	if err != nil {
		result.add(rule.Severity, location, "MISSING_PROPERTY",
			fmt.Sprintf("Property %s is missing: %v", rule.Property, err), rule.Property)
		return
	}

	if n == 0 {
		if rule.NonEmpty {
			result.add(rule.Severity, location, "EMPTY_PROPERTY",
				fmt.Sprintf("Property %s has no values", rule.Property), rule.Property)
		}
		return
	}

	if err := inspect(suite, h, rule); errors.Is(err, ofx.ErrTypeMismatch) {
		result.add(rule.Severity, location, "PROPERTY_TYPE",
			fmt.Sprintf("Property %s should be %s: %v", rule.Property, rule.Type, err), rule.Property)
	}
}

func inspect(suite ofx.PropertySuite, h ofx.Handle, rule Rule) error {
	var err error
	switch rule.Type {
	case props.TypeString:
		_, err = suite.GetString(h, rule.Property, 0)
	case props.TypeInt:
		_, err = suite.GetInt(h, rule.Property, 0)
	case props.TypeDouble:
		_, err = suite.GetDouble(h, rule.Property, 0)
	case props.TypePointer:
		_, err = suite.GetPointer(h, rule.Property, 0)
	}
	return err
}

func (r *Report) add(severity Severity, location, code, message, property string) {
	f := &Finding{
		Location: location,
		Code:     code,
		Message:  message,
		Severity: severity,
		Property: property,
	}
	if severity == SeverityError {
		r.Errors = append(r.Errors, f)
		return
	}
	r.Warnings = append(r.Warnings, f)
}
