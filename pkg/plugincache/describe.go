package plugincache

import (
	"fmt"

	"github.com/platinummonkey/ofxhost/pkg/loader"
	"github.com/platinummonkey/ofxhost/pkg/ofx"
	"github.com/platinummonkey/ofxhost/pkg/props"
)

// describeModule opens the module at path, describes every plugin it
// declares and closes it again. Any failing plugin fails the whole module.
func (c *Cache) describeModule(path string) ([]*Descriptor, error) {
	// a resident copy has to go before the loader will open the path again
	c.evictResident(path)

	m, err := c.loader.Open(path)
	if err != nil {
		return nil, err
	}
	c.recorder.ModuleLoaded()
	defer func() {
		if err := c.loader.Close(m); err != nil {
			c.log.Warnf("Failed to close module %s: %v", path, err)
		}
	}()

	n, err := m.NumberOfPlugins()
	if err != nil {
		return nil, err
	}
	c.log.Debugf("Module %s declares %d plugins", path, n)

	descs := make([]*Descriptor, 0, n)
	for i := 0; i < n; i++ {
		d, err := c.describePlugin(m, i)
		if err != nil {
			return nil, err
		}
		if d != nil {
			descs = append(descs, d)
		}
	}
	return descs, nil
}

// describePlugin runs load, describe, describe-in-context for each declared
// context and unload against the nth plugin of m. A nil descriptor with a nil
// error means the plugin was skipped.
func (c *Cache) describePlugin(m *loader.Module, nth int) (*Descriptor, error) {
	p, err := m.Plugin(nth)
	if err != nil {
		return nil, err
	}
	if p.API != ofx.ImageEffectPluginAPI {
		c.log.Warnf("Skipping plugin %s in %s: unsupported API %q", p.Identifier, m.Path(), p.API)
		return nil, nil
	}
	if p.APIVersion < 1 || p.APIVersion > ofx.ImageEffectPluginAPIVersion {
		c.log.Warnf("Skipping plugin %s in %s: unsupported API version %d", p.Identifier, m.Path(), p.APIVersion)
		return nil, nil
	}
	if p.Identifier == "" {
		return nil, ofx.WrapError(ofx.Malformed, "plugincache.describe", m.Path(), fmt.Errorf("plugin %d has no identifier", nth))
	}

	if p.SetHost != nil {
		p.SetHost(c.host.ABI())
	}
	if err := c.call(m, nth, p.Identifier, ofx.ActionLoad, ofx.NullHandle, ofx.NullHandle, ofx.NullHandle); err != nil {
		return nil, err
	}
	defer func() {
		if err := c.call(m, nth, p.Identifier, ofx.ActionUnload, ofx.NullHandle, ofx.NullHandle, ofx.NullHandle); err != nil {
			c.log.Warnf("Plugin %s failed to unload: %v", p.Identifier, err)
		}
	}()

	descHandle, err := c.store.Create(props.KindEffectDescriptor)
	if err != nil {
		return nil, err
	}
	defer c.release(descHandle)

	if err := c.call(m, nth, p.Identifier, ofx.ActionDescribe, descHandle, ofx.NullHandle, ofx.NullHandle); err != nil {
		return nil, err
	}

	set := props.NewSet(c.store, descHandle)
	d := &Descriptor{
		Identity: Identity{
			Identifier:   p.Identifier,
			VersionMajor: p.VersionMajor,
			VersionMinor: p.VersionMinor,
		},
		API:        p.API,
		APIVersion: p.APIVersion,
		ModulePath: m.Path(),
		Index:      nth,
	}

	d.Label, err = set.GetString(ofx.PropLabel)
	if err != nil {
		return nil, err
	}
	if d.Label == "" {
		d.Label = d.Identifier
	}

	declared, err := c.declaredContexts(set, p.Identifier)
	if err != nil {
		return nil, err
	}
	for _, f := range Flags() {
		on, err := set.GetBool(f.Property())
		if err != nil {
			return nil, err
		}
		if on {
			d.Flags = append(d.Flags, f)
		}
	}

	for _, ctx := range declared {
		if err := c.describeInContext(m, nth, p.Identifier, ctx); err != nil {
			c.log.Warnf("Plugin %s dropped context %s: %v", p.Identifier, ctx, err)
			continue
		}
		d.Contexts = append(d.Contexts, ctx)
	}

	c.log.Infof("Described plugin %s (%q) from %s", d.Identity, d.Label, m.Path())
	return d, nil
}

func (c *Cache) declaredContexts(set props.Set, id string) ([]ofx.Context, error) {
	values, err := set.GetStrings(ofx.ImageEffectPropSupportedContexts)
	if err != nil {
		return nil, err
	}

	var contexts []ofx.Context
	seen := make(map[ofx.Context]bool)
	for _, v := range values {
		ctx := ofx.ParseContext(v)
		if ctx == ofx.ContextNone {
			c.log.Warnf("Plugin %s declared unknown context %q", id, v)
			continue
		}
		if seen[ctx] {
			continue
		}
		seen[ctx] = true
		contexts = append(contexts, ctx)
	}
	return contexts, nil
}

func (c *Cache) describeInContext(m *loader.Module, nth int, id string, ctx ofx.Context) error {
	descHandle, err := c.store.Create(props.KindEffectDescriptor)
	if err != nil {
		return err
	}
	defer c.release(descHandle)

	argsHandle, err := c.store.Create(props.KindActionArgs)
	if err != nil {
		return err
	}
	defer c.release(argsHandle)

	if err := c.store.SetString(argsHandle, ofx.ImageEffectPropContext, 0, ctx.PropertyValue()); err != nil {
		return err
	}
	return c.call(m, nth, id, ofx.ImageEffectActionDescribeInContext, descHandle, argsHandle, ofx.NullHandle)
}

// call sends one action and turns a failing status into an error
func (c *Cache) call(m *loader.Module, nth int, id, action string, handle, inArgs, outArgs ofx.Handle) error {
	stat, err := c.loader.CallEntry(m, nth, action, handle, inArgs, outArgs)
	c.recorder.EntryStatus(action, stat.String())
	if err != nil {
		return err
	}
	if err := ofx.CheckStatus(stat); err != nil {
		return ofx.WrapError(ofx.KindOf(err), "plugincache.call", id, fmt.Errorf("%s returned %s", action, stat))
	}
	return nil
}

func (c *Cache) release(h ofx.Handle) {
	if err := c.store.Release(h); err != nil {
		c.log.Warnf("Failed to release property set %d: %v", h, err)
	}
}
