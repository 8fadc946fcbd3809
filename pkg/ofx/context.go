package ofx

// Context is the situation an image effect is used in
type Context int

const (
	ContextNone Context = iota
	ContextGenerator
	ContextFilter
	ContextTransition
	ContextPaint
	ContextGeneral
	ContextRetimer
)

// Native property values of the contexts
const (
	ImageEffectContextGenerator  = "OfxImageEffectContextGenerator"
	ImageEffectContextFilter     = "OfxImageEffectContextFilter"
	ImageEffectContextTransition = "OfxImageEffectContextTransition"
	ImageEffectContextPaint      = "OfxImageEffectContextPaint"
	ImageEffectContextGeneral    = "OfxImageEffectContextGeneral"
	ImageEffectContextRetimer    = "OfxImageEffectContextRetimer"
)

var contexts = []struct {
	ctx   Context
	tag   string
	value string
}{
	{ContextNone, "none", ""},
	{ContextGenerator, "generator", ImageEffectContextGenerator},
	{ContextFilter, "filter", ImageEffectContextFilter},
	{ContextTransition, "transition", ImageEffectContextTransition},
	{ContextPaint, "paint", ImageEffectContextPaint},
	{ContextGeneral, "general", ImageEffectContextGeneral},
	{ContextRetimer, "retimer", ImageEffectContextRetimer},
}

// String returns the short tag used in the cache file ("filter", "general", ...)
func (c Context) String() string {
	if c < 0 || int(c) >= len(contexts) {
		return "none"
	}
	return contexts[c].tag
}

// PropertyValue returns the native property value for the context
func (c Context) PropertyValue() string {
	if c < 0 || int(c) >= len(contexts) {
		return ""
	}
	return contexts[c].value
}

// ParseContext maps a native context property value to a Context.
// Unrecognised values map to ContextNone.
func ParseContext(s string) Context {
	for _, c := range contexts[1:] {
		if c.value == s {
			return c.ctx
		}
	}
	return ContextNone
}

// ParseContextTag maps a short tag back to a Context
func ParseContextTag(tag string) Context {
	for _, c := range contexts[1:] {
		if c.tag == tag {
			return c.ctx
		}
	}
	return ContextNone
}

func (c Context) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Context) UnmarshalText(text []byte) error {
	*c = ParseContextTag(string(text))
	return nil
}
