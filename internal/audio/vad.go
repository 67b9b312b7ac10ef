package audio

// MaxNormalized is the peak magnitude produced by Normalize and the upper
// bound for detection thresholds.
const MaxNormalized = 16384

// IsSilent reports whether no sample reaches threshold. An empty buffer is
// silent.
func IsSilent(samples []int16, threshold int) bool {
	if len(samples) == 0 {
		return true
	}
	return peak(samples, 0) < threshold
}

// Trim removes leading and trailing silence. Scanning stops at the first
// sample whose magnitude is strictly greater than threshold on each side;
// everything between the two onsets, internal silence included, is kept.
// The result is a subslice of samples and is empty when nothing triggers.
func Trim(samples []int16, threshold int) []int16 {
	start := onsetFromStart(samples, threshold)
	if start == len(samples) {
		return samples[:0]
	}
	end := onsetFromEnd(samples, threshold)
	return samples[start : end+1]
}

// TrimStart removes leading silence only.
func TrimStart(samples []int16, threshold int) []int16 {
	return samples[onsetFromStart(samples, threshold):]
}

// TrimEnd removes trailing silence only.
func TrimEnd(samples []int16, threshold int) []int16 {
	return samples[:onsetFromEnd(samples, threshold)+1]
}

func onsetFromStart(samples []int16, threshold int) int {
	for i, s := range samples {
		if magnitude(s) > threshold {
			return i
		}
	}
	return len(samples)
}

// onsetFromEnd returns -1 when no sample triggers.
func onsetFromEnd(samples []int16, threshold int) int {
	for i := len(samples) - 1; i >= 0; i-- {
		if magnitude(samples[i]) > threshold {
			return i
		}
	}
	return -1
}

func magnitude(s int16) int {
	v := int(s)
	if v < 0 {
		return -v
	}
	return v
}

// peak returns max |s - bias| over samples, 0 for an empty slice.
func peak(samples []int16, bias int) int {
	maxDev := 0
	for _, s := range samples {
		d := int(s) - bias
		if d < 0 {
			d = -d
		}
		if d > maxDev {
			maxDev = d
		}
	}
	return maxDev
}
