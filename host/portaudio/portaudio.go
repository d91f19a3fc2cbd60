// Package portaudio plays the mix on the default output device.
package portaudio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"

	"pipelined.dev/clip/host"
	"pipelined.dev/clip/signal"
	"pipelined.dev/clip/supply"
)

// Device drives a mixer from the portaudio stream callback.
type Device struct {
	mixer  *host.Mixer
	stream *portaudio.Stream
	out    signal.Float64
	events *supply.EventList
}

// Open initializes portaudio and starts the default output stream in the
// format of the mixer.
func Open(m *host.Mixer) (*Device, error) {
	f := m.Format()
	d := &Device{
		mixer:  m,
		out:    signal.EmptyFloat64(f.NumChannels, f.BlockSize),
		events: supply.NewEventList(0),
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio initialize: %w", err)
	}
	stream, err := portaudio.OpenDefaultStream(0, f.NumChannels, f.SampleRate, f.BlockSize, d.process)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("portaudio open stream: %w", err)
	}
	d.stream = stream
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("portaudio start stream: %w", err)
	}
	return d, nil
}

// process is the stream callback. MIDI events have no destination on
// this device and are dropped.
func (d *Device) process(out []float32) {
	d.mixer.Process(d.out, d.events)
	d.out.AsInterFloat32(out)
}

// Close stops the stream and terminates portaudio structures.
func (d *Device) Close() error {
	err := d.stream.Stop()
	if err != nil {
		return err
	}
	err = d.stream.Close()
	if err != nil {
		return err
	}
	return portaudio.Terminate()
}
