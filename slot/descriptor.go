package slot

import (
	"errors"
	"time"

	"github.com/rs/xid"

	"pipelined.dev/clip/source"
)

var (
	// ErrEmpty is returned when playback is requested for an empty slot.
	ErrEmpty = errors.New("slot is empty")
	// ErrNoSource is returned when a command needs a loaded source.
	ErrNoSource = errors.New("no source loaded")
	// ErrNoLoader is returned when content is filled into a slot without
	// a loader.
	ErrNoLoader = errors.New("no content loader")
	// ErrNoSuchSlot is returned for indexes outside of a matrix.
	ErrNoSuchSlot = errors.New("no such slot")
)

// Descriptor holds persistent settings of a slot.
type Descriptor struct {
	ID string `yaml:"id,omitempty"`
	// Content is the path of the material. Empty descriptor has no
	// content.
	Content string  `yaml:"content,omitempty"`
	Repeat  bool    `yaml:"repeat"`
	Volume  float64 `yaml:"volume"`
	// Channel is the first output channel.
	Channel int  `yaml:"channel"`
	NextBar bool `yaml:"next_bar"`
}

// NewDescriptor returns a descriptor with default settings.
func NewDescriptor(content string) Descriptor {
	return Descriptor{
		ID:      xid.New().String(),
		Content: content,
		Volume:  1,
	}
}

// IsFilled reports if descriptor has content.
func (d Descriptor) IsFilled() bool {
	return d.Content != ""
}

func (d Descriptor) params() Params {
	p := Params{Volume: d.Volume}
	p.Route.Channel = d.Channel
	return p
}

// Loader creates sources from content paths.
type Loader interface {
	Load(path string) (source.Source, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(path string) (source.Source, error)

// Load implements Loader.
func (fn LoaderFunc) Load(path string) (source.Source, error) {
	return fn(path)
}

// Info is static information about the clip of a slot.
type Info struct {
	source.Kind
	Path   string
	Length time.Duration
}
