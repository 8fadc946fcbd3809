// Package validation checks property sets handed across the plugin boundary
// against the properties each action requires.
//
// # Overview
//
// The support runtime consults a Validator on every action it dispatches and
// once for the host property set on the first load. Rules name a property,
// where it lives (the in-args set, the out-args set or the host set), its
// type and whether a missing value is an error or only a warning.
//
// # Usage Example
//
//	v := validation.NewValidator(nil)
//	result := v.Validate(suite, ofx.ImageEffectActionRender, inArgs, outArgs)
//	if !result.Valid {
//		log.Errorf("render is missing %v", result.Missing())
//	}
//
// # Related Packages
//
//   - pkg/support: Action dispatch that calls the validator
//   - pkg/props: The property store being validated
package validation
