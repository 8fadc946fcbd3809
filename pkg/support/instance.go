package support

import (
	"fmt"

	"github.com/platinummonkey/ofxhost/pkg/ofx"
	"github.com/platinummonkey/ofxhost/pkg/props"
)

// ImageEffect is one instance of the plugin. The runtime stores it in the
// instance property set's OfxPropInstanceData pointer.
type ImageEffect struct {
	handle  ofx.Handle
	props   props.Set
	context ofx.Context
	runtime *Runtime

	// Data is free for the plugin to use
	Data any
}

func (e *ImageEffect) Handle() ofx.Handle {
	return e.handle
}

func (e *ImageEffect) Properties() props.Set {
	return e.props
}

// Context is the context the instance was created in
func (e *ImageEffect) Context() ofx.Context {
	return e.context
}

// SendMessage forwards a message to the host's message suite, if it has one
func (e *ImageEffect) SendMessage(messageType, messageID, text string) ofx.Status {
	return e.runtime.sendMessage(e.handle, messageType, messageID, text)
}

func (r *Runtime) retrieveInstance(op string, handle ofx.Handle) (*ImageEffect, error) {
	suite := r.PropertySuite()
	if suite == nil {
		return nil, ofx.WrapError(ofx.NotLoaded, op, "", fmt.Errorf("property suite not fetched"))
	}

	p, err := suite.GetPointer(handle, ofx.PropInstanceData, 0)
	if err != nil {
		return nil, ofx.WrapError(ofx.BadHandle, op, ofx.PropInstanceData, err)
	}
	inst, ok := p.(*ImageEffect)
	if !ok || inst == nil {
		return nil, ofx.WrapError(ofx.BadHandle, op, ofx.PropInstanceData, fmt.Errorf("handle carries no instance"))
	}
	return inst, nil
}

func (r *Runtime) createInstance(handle ofx.Handle) error {
	suite := r.PropertySuite()
	if suite == nil {
		return ofx.WrapError(ofx.NotLoaded, "support.createInstance", "", fmt.Errorf("property suite not fetched"))
	}

	set := props.NewSet(suite, handle)
	ctxName, err := set.GetString(ofx.ImageEffectPropContext)
	if err != nil {
		r.log.Warnf("Instance of %s has no context: %v", r.id.Identifier, err)
	}

	inst := &ImageEffect{
		handle:  handle,
		props:   set,
		context: ofx.ParseContext(ctxName),
		runtime: r,
	}
	if err := r.effect.CreateInstance(inst); err != nil {
		return err
	}
	return set.SetPointer(ofx.PropInstanceData, inst)
}

func (r *Runtime) destroyInstance(handle ofx.Handle) error {
	inst, err := r.retrieveInstance("support.destroyInstance", handle)
	if err != nil {
		return err
	}

	var destroyErr error
	if d, ok := r.effect.(InstanceDestroyer); ok {
		destroyErr = d.DestroyInstance(inst)
	}
	if err := inst.props.SetPointer(ofx.PropInstanceData, nil); err != nil {
		return err
	}
	return destroyErr
}
