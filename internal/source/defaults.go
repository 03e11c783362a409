package source

// DefaultRegistry returns a registry with every built-in county adapter
// registered under its source ID.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(TravisSourceID, NewTravisAdapter)
	r.Register(HaysSourceID, NewHaysAdapter)
	r.Register(WilliamsonSourceID, NewWilliamsonAdapter)
	return r
}
