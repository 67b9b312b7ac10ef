package audio

import (
	"context"
	"fmt"
)

// Capture reads blocks from r into a new buffer until ctx is cancelled.
// Cancellation is checked before every read. A read error seen after
// cancellation ends capture normally; any other read error is fatal.
func Capture(ctx context.Context, r BlockReader, logf func(string, ...any)) (*SampleBuffer, int, error) {
	if logf == nil {
		logf = func(string, ...any) {}
	}

	buf := NewSampleBuffer(0)
	logf("recording... (press Ctrl+C to stop)")

	for {
		if ctx.Err() != nil {
			logf("recording interrupted, %d samples captured", buf.Len())
			return buf, SampleWidth, nil
		}

		block, err := r.ReadBlock()
		if err != nil {
			if ctx.Err() != nil {
				logf("recording interrupted, %d samples captured", buf.Len())
				return buf, SampleWidth, nil
			}
			return nil, 0, fmt.Errorf("%w after %d samples: %v", ErrStreamRead, buf.Len(), err)
		}
		buf.Append(block)
	}
}
