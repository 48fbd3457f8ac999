// Package diagnostics inspects produced artifacts for logging purposes.
package diagnostics

import (
	"fmt"
	"os"

	"github.com/faiface/beep/wav"

	"github.com/latoulicious/wavbot/pkg/pipeline"
)

// WAVInspector reads the header of a WAV file with beep's decoder
type WAVInspector struct{}

// Inspect implements pipeline.Inspector
func (WAVInspector) Inspect(path string) (pipeline.AudioFormat, error) {
	file, err := os.Open(path)
	if err != nil {
		return pipeline.AudioFormat{}, err
	}

	streamer, format, err := wav.Decode(file)
	if err != nil {
		file.Close()
		return pipeline.AudioFormat{}, fmt.Errorf("decode wav header: %w", err)
	}
	defer streamer.Close()

	codec := "pcm"
	switch format.Precision {
	case 1:
		codec = "pcm_u8"
	case 2:
		codec = "pcm_s16le"
	case 3:
		codec = "pcm_s24le"
	}

	return pipeline.AudioFormat{
		Codec:      codec,
		BitDepth:   format.Precision * 8,
		SampleRate: int(format.SampleRate),
		Channels:   format.NumChannels,
	}, nil
}

// Matches reports whether got carries the target format.
func Matches(got pipeline.AudioFormat) bool {
	return got == pipeline.TargetFormat
}

var _ pipeline.Inspector = WAVInspector{}
