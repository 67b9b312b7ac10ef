package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// SampleWidth is the number of bytes per captured sample (int16).
const SampleWidth = 2

// DeviceProfile describes how the input device is read. It is fixed for the
// lifetime of a recording session.
type DeviceProfile struct {
	SampleRate int
	BlockSize  int
}

// BlockReader yields one block of samples per call, blocking until the block
// is full.
type BlockReader interface {
	ReadBlock() ([]int16, error)
}

// InputStream is a BlockReader holding a device handle that must be released.
type InputStream interface {
	BlockReader
	Close() error
}

// Opener acquires an InputStream for a profile.
type Opener func(DeviceProfile) (InputStream, error)

// QueryDefaultInput builds a profile from the default input device's sample
// rate. PortAudio must already be initialized.
func QueryDefaultInput(blockSize int) (DeviceProfile, error) {
	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		return DeviceProfile{}, fmt.Errorf("%w: query default input: %v", ErrDevice, err)
	}
	if dev.MaxInputChannels < 1 {
		return DeviceProfile{}, fmt.Errorf("%w: %s has no input channels", ErrDevice, dev.Name)
	}
	return DeviceProfile{SampleRate: int(dev.DefaultSampleRate), BlockSize: blockSize}, nil
}

// Mic wraps a mono int16 PortAudio capture stream.
type Mic struct {
	stream *portaudio.Stream
	buf    []int16
}

// OpenMic opens and starts the default input stream. A blocking read returns
// after BlockSize frames, so capture observes cancellation within one block.
func OpenMic(profile DeviceProfile) (InputStream, error) {
	buf := make([]int16, profile.BlockSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(profile.SampleRate), profile.BlockSize, buf)
	if err != nil {
		return nil, fmt.Errorf("%w: open stream at %d Hz: %v", ErrDevice, profile.SampleRate, err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("%w: start stream: %v", ErrDevice, err)
	}
	return &Mic{stream: stream, buf: buf}, nil
}

// ReadBlock returns the mic's internal buffer, overwritten by the next call.
func (m *Mic) ReadBlock() ([]int16, error) {
	if err := m.stream.Read(); err != nil {
		return nil, err
	}
	return m.buf, nil
}

func (m *Mic) Close() error {
	stopErr := m.stream.Stop()
	if err := m.stream.Close(); err != nil {
		return err
	}
	return stopErr
}
