package dispatch

// Group is a set of operations under a shared prefix and shared tags,
// typically one API resource.
type Group struct {
	dispatcher *Dispatcher
	prefix     string
	tags       []string
}

// GroupOption configures a Group.
type GroupOption func(*Group)

// WithGroupTags adds default tags to all operations registered on the group.
func WithGroupTags(tags ...string) GroupOption {
	return func(g *Group) {
		g.tags = append(g.tags, tags...)
	}
}

// Group creates a new operation group with the given prefix and options.
// The prefix is relative to the base path.
func (d *Dispatcher) Group(prefix string, opts ...GroupOption) *Group {
	g := &Group{
		dispatcher: d,
		prefix:     prefix,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Group creates a nested group; prefixes and tags accumulate.
func (g *Group) Group(prefix string, opts ...GroupOption) *Group {
	sub := &Group{
		dispatcher: g.dispatcher,
		prefix:     g.prefix + prefix,
		tags:       append([]string(nil), g.tags...),
	}
	for _, opt := range opts {
		opt(sub)
	}
	return sub
}

// addOperation implements Registrar for Group.
func (g *Group) addOperation(op *Operation) {
	op.Pattern = g.prefix + op.Pattern
	op.Tags = append(append([]string(nil), g.tags...), op.Tags...)
	g.dispatcher.addOperation(op)
}

func (g *Group) getValidator() Validator { return g.dispatcher.validator }
