package host

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/ofxhost/pkg/ofx"
	"github.com/platinummonkey/ofxhost/pkg/props"
)

// Description is the set of capabilities the host advertises to plugins
type Description struct {
	Name                       string        `yaml:"name"`
	Label                      string        `yaml:"label"`
	IsBackground               bool          `yaml:"is_background"`
	SupportsOverlays           bool          `yaml:"supports_overlays"`
	SupportsMultiResolution    bool          `yaml:"supports_multi_resolution"`
	SupportsTiles              bool          `yaml:"supports_tiles"`
	TemporalClipAccess         bool          `yaml:"temporal_clip_access"`
	SupportsMultipleClipDepths bool          `yaml:"supports_multiple_clip_depths"`
	SupportsMultipleClipPARs   bool          `yaml:"supports_multiple_clip_pars"`
	SupportsSetableFrameRate   bool          `yaml:"supports_setable_frame_rate"`
	SupportsSetableFielding    bool          `yaml:"supports_setable_fielding"`
	SupportsStringAnimation    bool          `yaml:"supports_string_animation"`
	SupportsCustomInteract     bool          `yaml:"supports_custom_interact"`
	SupportsChoiceAnimation    bool          `yaml:"supports_choice_animation"`
	SupportsBooleanAnimation   bool          `yaml:"supports_boolean_animation"`
	SupportsCustomAnimation    bool          `yaml:"supports_custom_animation"`
	MaxParameters              int           `yaml:"max_parameters"`
	MaxPages                   int           `yaml:"max_pages"`
	PageRowCount               int           `yaml:"page_row_count"`
	PageColumnCount            int           `yaml:"page_column_count"`
	Contexts                   []ofx.Context `yaml:"-"`
}

// DefaultDescription describes a headless cache-building host
func DefaultDescription() Description {
	return Description{
		Name:                    "com.platinummonkey.ofxhost",
		Label:                   "ofxhost",
		IsBackground:            true,
		SupportsMultiResolution: true,
		SupportsTiles:           true,
		TemporalClipAccess:      true,
		MaxParameters:           -1,
		Contexts: []ofx.Context{
			ofx.ContextFilter,
			ofx.ContextGeneral,
			ofx.ContextGenerator,
			ofx.ContextTransition,
		},
	}
}

// Host owns the host property set and hands suites to plugins
type Host struct {
	store  *props.Store
	handle ofx.Handle
	desc   Description
	log    *logrus.Logger
	msgs   *messageSuite
}

// New creates the host property set in store and fills it from desc
func New(store *props.Store, desc Description, log *logrus.Logger) (*Host, error) {
	if log == nil {
		log = logrus.New()
	}

	h, err := store.Create(props.KindHost)
	if err != nil {
		return nil, fmt.Errorf("failed to create host property set: %w", err)
	}

	host := &Host{
		store:  store,
		handle: h,
		desc:   desc,
		log:    log,
		msgs:   &messageSuite{log: log},
	}
	if err := host.fill(); err != nil {
		_ = store.Release(h)
		return nil, err
	}
	return host, nil
}

func (h *Host) fill() error {
	set := props.NewSet(h.store, h.handle)
	d := h.desc

	if err := set.SetString(ofx.PropName, d.Name); err != nil {
		return err
	}
	if err := set.SetString(ofx.PropLabel, d.Label); err != nil {
		return err
	}
	if err := set.AppendInt(ofx.PropAPIVersion, 1); err != nil {
		return err
	}
	if err := set.AppendInt(ofx.PropAPIVersion, 4); err != nil {
		return err
	}

	flags := []struct {
		name  string
		value bool
	}{
		{ofx.ImageEffectHostPropIsBackground, d.IsBackground},
		{ofx.ImageEffectPropSupportsOverlays, d.SupportsOverlays},
		{ofx.ImageEffectPropSupportsMultiResolution, d.SupportsMultiResolution},
		{ofx.ImageEffectPropSupportsTiles, d.SupportsTiles},
		{ofx.ImageEffectPropTemporalClipAccess, d.TemporalClipAccess},
		{ofx.ImageEffectPropSupportsMultipleClipDepths, d.SupportsMultipleClipDepths},
		{ofx.ImageEffectPropSupportsMultipleClipPARs, d.SupportsMultipleClipPARs},
		{ofx.ImageEffectPropSetableFrameRate, d.SupportsSetableFrameRate},
		{ofx.ImageEffectPropSetableFielding, d.SupportsSetableFielding},
		{ofx.ParamHostPropSupportsStringAnimation, d.SupportsStringAnimation},
		{ofx.ParamHostPropSupportsCustomInteract, d.SupportsCustomInteract},
		{ofx.ParamHostPropSupportsChoiceAnimation, d.SupportsChoiceAnimation},
		{ofx.ParamHostPropSupportsBooleanAnimation, d.SupportsBooleanAnimation},
		{ofx.ParamHostPropSupportsCustomAnimation, d.SupportsCustomAnimation},
	}
	for _, f := range flags {
		if err := set.SetBool(f.name, f.value); err != nil {
			return err
		}
	}

	if err := set.SetInt(ofx.ParamHostPropMaxParameters, d.MaxParameters); err != nil {
		return err
	}
	if err := set.SetInt(ofx.ParamHostPropMaxPages, d.MaxPages); err != nil {
		return err
	}
	if err := set.SetIntN(ofx.ParamHostPropPageRowColumnCount, 0, d.PageRowCount); err != nil {
		return err
	}
	if err := set.SetIntN(ofx.ParamHostPropPageRowColumnCount, 1, d.PageColumnCount); err != nil {
		return err
	}

	for _, c := range d.Contexts {
		if c == ofx.ContextNone {
			continue
		}
		if err := set.AppendString(ofx.ImageEffectPropSupportedContexts, c.PropertyValue()); err != nil {
			return err
		}
	}
	return nil
}

// Handle returns the host property set
func (h *Host) Handle() ofx.Handle {
	return h.handle
}

// Store returns the property store the host set lives in
func (h *Host) Store() *props.Store {
	return h.store
}

// Description returns the capabilities the host was built with
func (h *Host) Description() Description {
	return h.desc
}

// ABI returns the struct handed to a plugin's SetHost
func (h *Host) ABI() *ofx.Host {
	return &ofx.Host{
		Host:       h.handle,
		FetchSuite: h.FetchSuite,
	}
}

// FetchSuite returns the named suite or nil when the host lacks it
func (h *Host) FetchSuite(name string, version int) any {
	switch {
	case name == ofx.PropertySuiteName && version == 1:
		return ofx.PropertySuite(h.store)
	case name == ofx.MessageSuiteName && version == 1:
		return ofx.MessageSuite(h.msgs)
	default:
		h.log.Debugf("Plugin requested unsupported suite %s v%d", name, version)
		return nil
	}
}

// Close releases the host property set
func (h *Host) Close() error {
	return h.store.Release(h.handle)
}

// messageSuite routes plugin messages into the host log
type messageSuite struct {
	log *logrus.Logger
}

func (m *messageSuite) Message(handle ofx.Handle, messageType, messageID, text string) ofx.Status {
	entry := m.log.WithFields(logrus.Fields{
		"handle":     uint64(handle),
		"message_id": messageID,
	})

	switch messageType {
	case ofx.MessageFatal, ofx.MessageError:
		entry.Errorf("Plugin: %s", text)
	case ofx.MessageWarning:
		entry.Warnf("Plugin: %s", text)
	case ofx.MessageMessage, ofx.MessageLog:
		entry.Infof("Plugin: %s", text)
	case ofx.MessageQuestion:
		// nobody to ask in a headless host
		entry.Infof("Plugin asked: %s", text)
		return ofx.StatReplyDefault
	default:
		entry.Warnf("Plugin sent message of unknown type %q: %s", messageType, text)
		return ofx.StatErrValue
	}
	return ofx.StatOK
}
