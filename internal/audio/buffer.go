package audio

// SampleBuffer accumulates 16-bit signed samples in capture order.
type SampleBuffer struct {
	samples []int16
}

// NewSampleBuffer creates an empty buffer with room for capacity samples.
func NewSampleBuffer(capacity int) *SampleBuffer {
	if capacity < 0 {
		capacity = 0
	}
	return &SampleBuffer{samples: make([]int16, 0, capacity)}
}

// Append copies block onto the end of the buffer.
func (b *SampleBuffer) Append(block []int16) {
	b.samples = append(b.samples, block...)
}

// Samples returns the underlying samples. Callers must not append to it.
func (b *SampleBuffer) Samples() []int16 {
	return b.samples
}

func (b *SampleBuffer) Len() int {
	return len(b.samples)
}
