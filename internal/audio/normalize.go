package audio

import "fmt"

// NormalizeBias is subtracted from every sample before scaling. Capture is
// 16-bit signed PCM, whose zero level is 0.
const NormalizeBias = 0

// Normalize rescales samples so the largest deviation from NormalizeBias
// maps to MaxNormalized. Scaled values are truncated toward zero.
func Normalize(samples []int16) ([]int16, error) {
	maxDev := peak(samples, NormalizeBias)
	if maxDev == 0 {
		return nil, fmt.Errorf("%w (%d samples)", ErrNormalization, len(samples))
	}

	scale := float64(MaxNormalized) / float64(maxDev)
	out := make([]int16, len(samples))
	for i, s := range samples {
		out[i] = int16(float64(int(s)-NormalizeBias) * scale)
	}
	return out, nil
}
