package entitlement

// VariantEngines returns an engine per variant in effect for this service:
// the intersection of variant names declared reachable through contract
// override selectors with the variants the service implementation
// supports. Empty when either side is empty or they do not intersect.
//
// A variant never exposes nested variants; asking a variant engine for its
// variants returns nil, which keeps resolution from recursing.
func (e *Engine) VariantEngines() map[string]*Engine {
	if e.svc.Meta().VariantName != "" {
		return nil
	}
	declared := e.EntitlementConfig().VariantNames()
	supported := e.svc.Variants()
	if len(declared) == 0 || len(supported) == 0 {
		return nil
	}

	engines := make(map[string]*Engine)
	for _, name := range declared {
		svc, ok := supported[name]
		if !ok {
			continue
		}
		engines[name] = NewEngine(svc, e.deps, e.opts)
	}
	if len(engines) == 0 {
		return nil
	}
	return engines
}

// ForVariant rebuilds the engine on the named variant. Returns the engine
// unchanged when the variant is not in effect for this contract/machine.
func (e *Engine) ForVariant(name string) *Engine {
	if variant, ok := e.VariantEngines()[name]; ok {
		return variant
	}
	return e
}

// AutoVariant selects the variant appropriate for this machine, when the
// service can pick one and that variant is in effect. Returns the engine
// unchanged otherwise.
func (e *Engine) AutoVariant() *Engine {
	picker, ok := e.svc.(VariantPicker)
	if !ok {
		return e
	}
	name := picker.PickVariant(e.deps.Machine)
	if name == "" {
		return e
	}
	return e.ForVariant(name)
}
