package supply

// ChainOption configures a chain.
type ChainOption func(*chainOptions)

type chainOptions struct {
	stretcher []StretcherOption
	fades     bool
}

// WithStretcher passes options to the stretcher of the chain.
func WithStretcher(options ...StretcherOption) ChainOption {
	return func(o *chainOptions) {
		o.stretcher = append(o.stretcher, options...)
	}
}

// WithLoopFades enables fades at cycle boundaries.
func WithLoopFades() ChainOption {
	return func(o *chainOptions) {
		o.fades = true
	}
}

// Chain is the supplier chain of a clip: source -> section -> looper ->
// stretcher. Only the head is queried for material, the other elements are
// exposed for configuration.
type Chain struct {
	source    Supplier
	section   *Section
	looper    *Looper
	stretcher *Stretcher
}

// NewChain builds a chain around the source.
func NewChain(source Supplier, options ...ChainOption) *Chain {
	var o chainOptions
	for _, option := range options {
		option(&o)
	}
	section := NewSection(source)
	looper := NewLooper(section)
	looper.SetFades(o.fades)
	return &Chain{
		source:    source,
		section:   section,
		looper:    looper,
		stretcher: NewStretcher(looper, o.stretcher...),
	}
}

// Head returns the supplier the transport reads from.
func (c *Chain) Head() Supplier {
	return c.stretcher
}

// Source returns the source of the chain.
func (c *Chain) Source() Supplier {
	return c.source
}

// Section returns the section of the chain.
func (c *Chain) Section() *Section {
	return c.section
}

// Looper returns the looper of the chain.
func (c *Chain) Looper() *Looper {
	return c.looper
}

// Stretcher returns the stretcher of the chain.
func (c *Chain) Stretcher() *Stretcher {
	return c.stretcher
}
