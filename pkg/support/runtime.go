package support

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/ofxhost/pkg/ofx"
	"github.com/platinummonkey/ofxhost/pkg/props"
	"github.com/platinummonkey/ofxhost/pkg/validation"
)

// Effect is what a plugin author implements
type Effect interface {
	PluginID() PluginID
	Describe(desc *EffectDescriptor) error
	DescribeInContext(desc *EffectDescriptor, ctx ofx.Context) error
	CreateInstance(inst *ImageEffect) error
}

// Loader is implemented by effects that need to run code on load and unload
type Loader interface {
	Load() error
	Unload() error
}

// InstanceDestroyer is implemented by effects that release instance resources
type InstanceDestroyer interface {
	DestroyInstance(inst *ImageEffect) error
}

// ActionHandler is implemented by effects that handle per-instance actions
// such as render. Effects without it reply kOfxStatReplyDefault.
type ActionHandler interface {
	HandleAction(inst *ImageEffect, action Action, inArgs, outArgs props.Set) (ofx.Status, error)
}

// Options configures a Runtime
type Options struct {
	Logger    *logrus.Logger
	Validator *validation.Validator
	// StrictValidation fails actions whose argument sets do not validate
	// with kOfxStatErrValue instead of only logging them
	StrictValidation bool
}

// Runtime holds everything the plugin side needs between calls: the host,
// its suites, the load counter and the host description.
type Runtime struct {
	effect    Effect
	id        PluginID
	log       *logrus.Logger
	validator *validation.Validator
	strict    bool

	pluginOnce sync.Once
	plugin     *ofx.Plugin

	mu        sync.Mutex
	host      *ofx.Host
	propSuite ofx.PropertySuite
	msgSuite  ofx.MessageSuite
	hostDesc  *HostDescription
	loadCount int
}

// NewRuntime wraps effect
func NewRuntime(effect Effect, opts *Options) *Runtime {
	if opts == nil {
		opts = &Options{}
	}
	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}
	v := opts.Validator
	if v == nil {
		v = validation.NewValidator(nil)
	}
	return &Runtime{
		effect:    effect,
		id:        effect.PluginID(),
		log:       log,
		validator: v,
		strict:    opts.StrictValidation,
	}
}

// NumberOfPlugins is always 1: a runtime exports exactly one plugin
func (r *Runtime) NumberOfPlugins() int {
	return 1
}

// GetPlugin returns the plugin struct. It is built once and the same pointer
// is returned on every call.
func (r *Runtime) GetPlugin(nth int) *ofx.Plugin {
	if nth != 0 {
		r.log.Errorf("Host attempted to get plugin %d, when there is only 1 plugin, so it should have asked for 0", nth)
	}
	r.pluginOnce.Do(func() {
		r.plugin = &ofx.Plugin{
			API:          ofx.ImageEffectPluginAPI,
			APIVersion:   ofx.ImageEffectPluginAPIVersion,
			Identifier:   r.id.Identifier,
			VersionMajor: r.id.VersionMajor,
			VersionMinor: r.id.VersionMinor,
			SetHost:      r.SetHost,
			MainEntry:    r.MainEntry,
		}
	})
	return r.plugin
}

// SetHost records the host struct. It is called before the load action.
func (r *Runtime) SetHost(host *ofx.Host) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.host = host
}

// LoadCount returns the number of loads not yet matched by an unload
func (r *Runtime) LoadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadCount
}

// HostDescription returns the host snapshot, or nil when not loaded
func (r *Runtime) HostDescription() *HostDescription {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostDesc
}

// PropertySuite returns the host's property suite, or nil when not loaded
func (r *Runtime) PropertySuite() ofx.PropertySuite {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.propSuite
}

// MainEntry is the plugin's multiplexed entry point. Nothing escapes it
// except a status code.
func (r *Runtime) MainEntry(action string, handle, inArgs, outArgs ofx.Handle) (stat ofx.Status) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Errorf("Plugin %s panicked in %s: %v", r.id.Identifier, action, p)
			stat = ofx.StatErrUnknown
		}
	}()

	a := ParseAction(action)
	if a == ActionUnknown {
		if action == "" {
			r.log.Errorf("Requested action was empty")
		} else {
			r.log.Errorf("Unknown action '%s'", action)
		}
		return ofx.StatReplyDefault
	}

	r.log.Debugf("%s: %s start", r.id.Identifier, action)
	stat, err := r.dispatch(a, handle, inArgs, outArgs)
	if err != nil {
		stat = ofx.StatusOf(err)
		r.log.Errorf("%s: %s failed with %s: %v", r.id.Identifier, action, stat, err)
	}
	r.log.Debugf("%s: %s stop (%s)", r.id.Identifier, action, stat)
	return stat
}

func (r *Runtime) dispatch(a Action, handle, inArgs, outArgs ofx.Handle) (ofx.Status, error) {
	if a != ActionLoad {
		if err := r.checkHandles(a, handle, inArgs, outArgs); err != nil {
			return ofx.StatFailed, err
		}
	}

	switch a {
	case ActionLoad:
		if err := r.load(); err != nil {
			return ofx.StatFailed, err
		}
		if l, ok := r.effect.(Loader); ok {
			if err := l.Load(); err != nil {
				r.unload()
				return ofx.StatFailed, err
			}
		}
		return ofx.StatOK, nil

	case ActionUnload:
		if !r.unload() {
			return ofx.StatOK, nil
		}
		if l, ok := r.effect.(Loader); ok {
			if err := l.Unload(); err != nil {
				return ofx.StatFailed, err
			}
		}
		return ofx.StatOK, nil

	case ActionDescribe:
		desc, err := r.describe(handle)
		if err != nil {
			return ofx.StatFailed, err
		}
		return ofx.StatOK, desc.Err()

	case ActionDescribeInContext:
		desc, err := r.describe(handle)
		if err != nil {
			return ofx.StatFailed, err
		}
		suite := r.PropertySuite()
		ctxName, err := props.NewSet(suite, inArgs).GetString(ofx.ImageEffectPropContext)
		if err != nil {
			return ofx.StatFailed, err
		}
		if err := r.effect.DescribeInContext(desc, ofx.ParseContext(ctxName)); err != nil {
			return ofx.StatFailed, err
		}
		return ofx.StatOK, desc.Err()

	case ActionCreateInstance:
		if err := r.createInstance(handle); err != nil {
			return ofx.StatFailed, err
		}
		return ofx.StatOK, nil

	case ActionDestroyInstance:
		if err := r.destroyInstance(handle); err != nil {
			return ofx.StatFailed, err
		}
		return ofx.StatOK, nil

	default:
		inst, err := r.retrieveInstance("support."+a.String(), handle)
		if err != nil {
			return ofx.StatFailed, err
		}
		h, ok := r.effect.(ActionHandler)
		if !ok {
			return ofx.StatReplyDefault, nil
		}
		suite := r.PropertySuite()
		return h.HandleAction(inst, a, props.NewSet(suite, inArgs), props.NewSet(suite, outArgs))
	}
}

// checkHandles logs handles that break the action's contract, runs the
// argument validator and then fails on any required handle that is null.
func (r *Runtime) checkHandles(a Action, handle, inArgs, outArgs ofx.Handle) error {
	c := contracts[a]
	check := func(what string, h ofx.Handle, canBeNull bool) {
		switch {
		case canBeNull && !h.IsNull():
			r.log.Warnf("%s passed to '%s' is not null", what, c.name)
		case !canBeNull && h.IsNull():
			r.log.Errorf("%s passed to '%s' is null", what, c.name)
		}
	}
	check("Handle", handle, c.handleNull)
	check("'inArgs' handle", inArgs, c.inNull)
	check("'outArgs' handle", outArgs, c.outNull)

	if suite := r.PropertySuite(); suite != nil {
		result := r.validator.Validate(suite, c.name, inArgs, outArgs)
		for _, w := range result.Warnings {
			r.log.Warnf("%s: %s", w.Location, w.Message)
		}
		if !result.Valid {
			r.log.Errorf("Arguments to '%s' are missing properties %v", c.name, result.Missing())
			if r.strict {
				return ofx.WrapError(ofx.BadValue, "support.checkHandles", c.name,
					fmt.Errorf("missing properties %v", result.Missing()))
			}
		}
	}

	if !c.handleNull && handle.IsNull() {
		return ofx.NewError(ofx.BadHandle, "support.checkHandles", "handle")
	}
	if !c.inNull && inArgs.IsNull() {
		return ofx.NewError(ofx.BadHandle, "support.checkHandles", "inArgs")
	}
	if !c.outNull && outArgs.IsNull() {
		return ofx.NewError(ofx.BadHandle, "support.checkHandles", "outArgs")
	}
	return nil
}

func (r *Runtime) describe(handle ofx.Handle) (*EffectDescriptor, error) {
	suite := r.PropertySuite()
	if suite == nil {
		return nil, ofx.WrapError(ofx.NotLoaded, "support.describe", r.id.Identifier, fmt.Errorf("describe before load"))
	}
	desc := newEffectDescriptor(props.NewSet(suite, handle))
	if err := r.effect.Describe(desc); err != nil {
		return nil, err
	}
	return desc, nil
}

// load is the library side of the load action. The first load fetches the
// suites and the host description; later loads without an unload are
// reported and otherwise ignored.
func (r *Runtime) load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loadCount != 0 {
		r.log.Errorf("Load action called more than once without unload being called")
	}
	r.loadCount++

	if r.host == nil {
		r.loadCount--
		r.log.Errorf("Host pointer has not been set")
		return ofx.NewError(ofx.BadHandle, "support.load", "host")
	}

	if r.loadCount == 1 {
		if err := r.fetchSuites(); err != nil {
			r.loadCount--
			return err
		}
	}

	result := r.validator.ValidateHost(r.propSuite, r.host.Host)
	for _, w := range result.Warnings {
		r.log.Warnf("%s: %s", w.Location, w.Message)
	}
	if !result.Valid {
		r.log.Errorf("Host property set is missing properties %v", result.Missing())
	}
	return nil
}

// fetchSuites must be called with mu held
func (r *Runtime) fetchSuites() error {
	ps, ok := r.fetchSuite(ofx.PropertySuiteName, 1, false).(ofx.PropertySuite)
	ms, _ := r.fetchSuite(ofx.MessageSuiteName, 1, true).(ofx.MessageSuite)
	if !ok {
		return ofx.NewError(ofx.MissingHostFeature, "support.load", ofx.PropertySuiteName)
	}

	r.propSuite = ps
	r.msgSuite = ms

	if r.hostDesc != nil {
		r.log.Errorf("Tried to create host description when we already have one")
		return nil
	}
	desc, err := readHostDescription(props.NewSet(ps, r.host.Host))
	if err != nil {
		r.propSuite = nil
		r.msgSuite = nil
		return fmt.Errorf("failed to read host description: %w", err)
	}
	r.hostDesc = desc
	return nil
}

func (r *Runtime) fetchSuite(name string, version int, optional bool) any {
	var suite any
	if r.host.FetchSuite != nil {
		suite = r.host.FetchSuite(name, version)
	}
	if suite == nil {
		if optional {
			r.log.Warnf("Could not fetch the optional suite '%s' version %d", name, version)
		} else {
			r.log.Errorf("Could not fetch the mandatory suite '%s' version %d", name, version)
		}
	}
	return suite
}

// unload reports whether the unload balanced an earlier load
func (r *Runtime) unload() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loadCount == 0 {
		r.log.Errorf("Unload action called without a corresponding load action having been called")
		return false
	}
	r.loadCount--
	if r.loadCount == 0 {
		r.propSuite = nil
		r.msgSuite = nil
		r.hostDesc = nil
	}
	return true
}

func (r *Runtime) sendMessage(handle ofx.Handle, messageType, messageID, text string) ofx.Status {
	r.mu.Lock()
	ms := r.msgSuite
	r.mu.Unlock()

	if ms == nil {
		r.log.Infof("%s: %s", r.id.Identifier, text)
		return ofx.StatReplyDefault
	}
	return ms.Message(handle, messageType, messageID, text)
}
