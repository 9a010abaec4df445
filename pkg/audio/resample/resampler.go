// ABOUTME: Simple linear resampler for converting audio sample rates
// ABOUTME: Used by the audio renderer when the device runs at a fixed rate
package resample

// Resampler performs linear interpolation to convert between sample rates.
// It carries the last input frame over to the next chunk so chunk
// boundaries do not click.
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64
	position   float64
	lastSample []int32 // one sample per channel
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		position:   0.0,
		lastSample: make([]int32, channels),
	}
}

// InputRate returns the rate the resampler converts from.
func (r *Resampler) InputRate() int {
	return r.inputRate
}

// OutputRate returns the rate the resampler converts to.
func (r *Resampler) OutputRate() int {
	return r.outputRate
}

func (r *Resampler) sample(input []int32, frame, ch int) int32 {
	if frame < 0 {
		return r.lastSample[ch]
	}
	return input[frame*r.channels+ch]
}

// Resample converts input samples to output sample rate using linear interpolation
// input: interleaved samples at inputRate
// output: interleaved samples at outputRate
func (r *Resampler) Resample(input []int32, output []int32) int {
	inputFrames := len(input) / r.channels
	if inputFrames == 0 {
		return 0
	}

	outputFrames := len(output) / r.channels
	outIdx := 0

	for outIdx < outputFrames {
		inputIdx := int(r.position)
		if r.position < 0 {
			inputIdx = -1
		}

		// the frame after inputIdx arrives with the next chunk
		if inputIdx+1 >= inputFrames {
			break
		}

		frac := r.position - float64(inputIdx)

		for ch := 0; ch < r.channels; ch++ {
			sample1 := r.sample(input, inputIdx, ch)
			sample2 := r.sample(input, inputIdx+1, ch)
			output[outIdx*r.channels+ch] = int32(float64(sample1)*(1.0-frac) + float64(sample2)*frac)
		}

		outIdx++
		r.position += r.ratio
	}

	// rebase so the last frame of this chunk becomes index -1
	r.position -= float64(inputFrames)
	copy(r.lastSample, input[(inputFrames-1)*r.channels:])

	return outIdx * r.channels
}

// Convert resamples a whole chunk into a new slice.
func (r *Resampler) Convert(input []int32) []int32 {
	out := make([]int32, r.OutputSamplesNeeded(len(input))+2*r.channels)
	n := r.Resample(input, out)
	return out[:n]
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0.0
	for i := range r.lastSample {
		r.lastSample[i] = 0
	}
}

// OutputSamplesNeeded calculates how many output samples will be produced from input samples
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames) / r.ratio)
	return outputFrames * r.channels
}

// InputSamplesNeeded calculates how many input samples are needed to produce output samples
func (r *Resampler) InputSamplesNeeded(outputSamples int) int {
	outputFrames := outputSamples / r.channels
	inputFrames := int(float64(outputFrames) * r.ratio)
	return inputFrames * r.channels
}
