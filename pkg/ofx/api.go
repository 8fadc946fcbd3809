package ofx

// Handle is an opaque reference to a property set owned by the host. The
// zero handle is null.
type Handle uint64

// NullHandle is the null property-set handle
const NullHandle Handle = 0

// IsNull reports whether h is the null handle
func (h Handle) IsNull() bool {
	return h == NullHandle
}

// ImageEffectPluginAPI is the only plugin API this host understands
const (
	ImageEffectPluginAPI        = "OfxImageEffectPluginAPI"
	ImageEffectPluginAPIVersion = 1
)

// EntryPoint is the single multiplexed function every plugin exposes
type EntryPoint func(action string, handle, inArgs, outArgs Handle) Status

// Plugin is the struct returned by a module's OfxGetPlugin symbol
type Plugin struct {
	API          string
	APIVersion   int
	Identifier   string
	VersionMajor int
	VersionMinor int

	SetHost   func(host *Host)
	MainEntry EntryPoint
}

// Host is handed to every plugin before its load action
type Host struct {
	// Host is the property set describing the host's capabilities
	Host Handle
	// FetchSuite returns the named suite, or nil if the host does not provide it
	FetchSuite func(name string, version int) any
}

// Symbols every module must export
const (
	SymbolGetNumberOfPlugins = "OfxGetNumberOfPlugins"
	SymbolGetPlugin          = "OfxGetPlugin"
)

// Suite names
const (
	PropertySuiteName    = "OfxPropertySuite"
	MessageSuiteName     = "OfxMessageSuite"
	ImageEffectSuiteName = "OfxImageEffectSuite"
	ParameterSuiteName   = "OfxParameterSuite"
	MemorySuiteName      = "OfxMemorySuite"
	MultiThreadSuiteName = "OfxMultiThreadSuite"
	InteractSuiteName    = "OfxInteractSuite"
)

// PropertySuite is the typed property accessor the host exposes to plugins
type PropertySuite interface {
	GetString(h Handle, name string, index int) (string, error)
	GetInt(h Handle, name string, index int) (int, error)
	GetDouble(h Handle, name string, index int) (float64, error)
	GetPointer(h Handle, name string, index int) (any, error)

	SetString(h Handle, name string, index int, value string) error
	SetInt(h Handle, name string, index int, value int) error
	SetDouble(h Handle, name string, index int, value float64) error
	SetPointer(h Handle, name string, index int, value any) error

	GetDimension(h Handle, name string) (int, error)
}

// Message types understood by the message suite
const (
	MessageFatal    = "OfxMessageFatal"
	MessageError    = "OfxMessageError"
	MessageWarning  = "OfxMessageWarning"
	MessageMessage  = "OfxMessageMessage"
	MessageLog      = "OfxMessageLog"
	MessageQuestion = "OfxMessageQuestion"
)

// MessageSuite lets a plugin report messages through the host
type MessageSuite interface {
	Message(handle Handle, messageType, messageID, text string) Status
}

// Generic actions
const (
	ActionLoad                 = "OfxActionLoad"
	ActionUnload               = "OfxActionUnload"
	ActionDescribe             = "OfxActionDescribe"
	ActionCreateInstance       = "OfxActionCreateInstance"
	ActionDestroyInstance      = "OfxActionDestroyInstance"
	ActionPurgeCaches          = "OfxActionPurgeCaches"
	ActionSyncPrivateData      = "OfxActionSyncPrivateData"
	ActionInstanceChanged      = "OfxActionInstanceChanged"
	ActionBeginInstanceChanged = "OfxActionBeginInstanceChanged"
	ActionEndInstanceChanged   = "OfxActionEndInstanceChanged"
	ActionBeginInstanceEdit    = "OfxActionBeginInstanceEdit"
	ActionEndInstanceEdit      = "OfxActionEndInstanceEdit"
)

// Image effect actions
const (
	ImageEffectActionDescribeInContext     = "OfxImageEffectActionDescribeInContext"
	ImageEffectActionRender                = "OfxImageEffectActionRender"
	ImageEffectActionBeginSequenceRender   = "OfxImageEffectActionBeginSequenceRender"
	ImageEffectActionEndSequenceRender     = "OfxImageEffectActionEndSequenceRender"
	ImageEffectActionGetRegionOfDefinition = "OfxImageEffectActionGetRegionOfDefinition"
	ImageEffectActionGetRegionsOfInterest  = "OfxImageEffectActionGetRegionsOfInterest"
	ImageEffectActionGetTimeDomain         = "OfxImageEffectActionGetTimeDomain"
	ImageEffectActionGetFramesNeeded       = "OfxImageEffectActionGetFramesNeeded"
	ImageEffectActionGetClipPreferences    = "OfxImageEffectActionGetClipPreferences"
	ImageEffectActionIsIdentity            = "OfxImageEffectActionIsIdentity"
)

// Generic properties
const (
	PropName           = "OfxPropName"
	PropLabel          = "OfxPropLabel"
	PropShortLabel     = "OfxPropShortLabel"
	PropLongLabel      = "OfxPropLongLabel"
	PropType           = "OfxPropType"
	PropInstanceData   = "OfxPropInstanceData"
	PropTime           = "OfxPropTime"
	PropChangeReason   = "OfxPropChangeReason"
	PropAPIVersion     = "OfxPropAPIVersion"
	PropPluginDesc     = "OfxPropPluginDescription"
	PropVersion        = "OfxPropVersion"
	PropVersionLabel   = "OfxPropVersionLabel"
	PropEffectInstance = "OfxPropEffectInstance"
)

// Image effect properties
const (
	ImageEffectPropContext                    = "OfxImageEffectPropContext"
	ImageEffectPropSupportedContexts          = "OfxImageEffectPropSupportedContexts"
	ImageEffectPropSupportsTiles              = "OfxImageEffectPropSupportsTiles"
	ImageEffectPropSupportsMultiResolution    = "OfxImageEffectPropSupportsMultiResolution"
	ImageEffectPropTemporalClipAccess         = "OfxImageEffectPropTemporalClipAccess"
	ImageEffectPropSupportsMultipleClipDepths = "OfxImageEffectPropSupportsMultipleClipDepths"
	ImageEffectPropSupportsMultipleClipPARs   = "OfxImageEffectPropSupportsMultipleClipPARs"
	ImageEffectPropSupportsOverlays           = "OfxImageEffectPropSupportsOverlays"
	ImageEffectPropSetableFrameRate           = "OfxImageEffectPropSetableFrameRate"
	ImageEffectPropSetableFielding            = "OfxImageEffectPropSetableFielding"
	ImageEffectPropRenderScale                = "OfxImageEffectPropRenderScale"
	ImageEffectPropRenderWindow               = "OfxImageEffectPropRenderWindow"
	ImageEffectPropFieldToRender              = "OfxImageEffectPropFieldToRender"
	ImageEffectPropRegionOfDefinition         = "OfxImageEffectPropRegionOfDefinition"
	ImageEffectPropFrameRange                 = "OfxImageEffectPropFrameRange"
	ImageEffectPluginPropGrouping             = "OfxImageEffectPluginPropGrouping"
	ImageEffectPluginPropSingleInstance       = "OfxImageEffectPluginPropSingleInstance"
	ImageEffectPluginPropHostFrameThreading   = "OfxImageEffectPluginPropHostFrameThreading"
	ImageEffectHostPropIsBackground           = "OfxImageEffectHostPropIsBackground"
)

// Parameter host properties
const (
	ParamHostPropSupportsStringAnimation  = "OfxParamHostPropSupportsStringAnimation"
	ParamHostPropSupportsCustomInteract   = "OfxParamHostPropSupportsCustomInteract"
	ParamHostPropSupportsChoiceAnimation  = "OfxParamHostPropSupportsChoiceAnimation"
	ParamHostPropSupportsBooleanAnimation = "OfxParamHostPropSupportsBooleanAnimation"
	ParamHostPropSupportsCustomAnimation  = "OfxParamHostPropSupportsCustomAnimation"
	ParamHostPropMaxParameters            = "OfxParamHostPropMaxParameters"
	ParamHostPropMaxPages                 = "OfxParamHostPropMaxPages"
	ParamHostPropPageRowColumnCount       = "OfxParamHostPropPageRowColumnCount"
)

// Values of PropType
const (
	TypeHost                = "OfxTypeImageEffectHost"
	TypeImageEffect         = "OfxTypeImageEffect"
	TypeImageEffectInstance = "OfxTypeImageEffectInstance"
)
