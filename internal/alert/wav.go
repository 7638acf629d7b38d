package alert

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/m-mizutani/goerr/v2"
)

// wavFormat holds WAV file format information
type wavFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// parseWAV parses a 16-bit PCM WAV file and returns the format and audio data.
func parseWAV(data []byte) (*wavFormat, []byte, error) {
	reader := bytes.NewReader(data)

	var header [12]byte
	if _, err := io.ReadFull(reader, header[:]); err != nil {
		return nil, nil, goerr.Wrap(err, "failed to read WAV header")
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return nil, nil, goerr.New("not a WAV file")
	}

	var format *wavFormat
	for {
		var chunkID [4]byte
		if _, err := io.ReadFull(reader, chunkID[:]); err != nil {
			return nil, nil, goerr.Wrap(err, "WAV file has no data chunk")
		}
		var chunkSize uint32
		if err := binary.Read(reader, binary.LittleEndian, &chunkSize); err != nil {
			return nil, nil, goerr.Wrap(err, "failed to read WAV chunk size")
		}

		switch string(chunkID[:]) {
		case "fmt ":
			var fmtChunk struct {
				AudioFormat   uint16
				Channels      uint16
				SampleRate    uint32
				ByteRate      uint32
				BlockAlign    uint16
				BitsPerSample uint16
			}
			if chunkSize < 16 {
				return nil, nil, goerr.New("WAV format chunk too short", goerr.V("size", chunkSize))
			}
			if err := binary.Read(reader, binary.LittleEndian, &fmtChunk); err != nil {
				return nil, nil, goerr.Wrap(err, "failed to read WAV format chunk")
			}
			// Skip any extra format bytes
			if _, err := reader.Seek(int64(chunkSize-16), io.SeekCurrent); err != nil {
				return nil, nil, goerr.Wrap(err, "failed to skip WAV format extension")
			}
			if fmtChunk.AudioFormat != 1 || fmtChunk.BitsPerSample != 16 {
				return nil, nil, goerr.New("only 16-bit PCM WAV is supported",
					goerr.V("audio_format", fmtChunk.AudioFormat), goerr.V("bits", fmtChunk.BitsPerSample))
			}
			format = &wavFormat{
				SampleRate: int(fmtChunk.SampleRate),
				Channels:   int(fmtChunk.Channels),
				BitDepth:   int(fmtChunk.BitsPerSample),
			}

		case "data":
			if format == nil {
				return nil, nil, goerr.New("WAV data chunk before format chunk")
			}
			pcm := make([]byte, chunkSize)
			if _, err := io.ReadFull(reader, pcm); err != nil {
				return nil, nil, goerr.Wrap(err, "truncated WAV data chunk", goerr.V("size", chunkSize))
			}
			return format, pcm, nil

		default:
			// Skip unknown chunk; chunks are padded to an even size.
			skip := int64(chunkSize) + int64(chunkSize%2)
			if _, err := reader.Seek(skip, io.SeekCurrent); err != nil {
				return nil, nil, goerr.Wrap(err, "failed to skip WAV chunk")
			}
		}
	}
}

const toneSampleRate = 44100

// alarmTone renders one period of the built-in alarm sound: two short beeps
// followed by a pause, as stereo 16-bit PCM.
func alarmTone() (wavFormat, []byte) {
	var samples []int16
	samples = append(samples, generateBeep(toneSampleRate, 880, 0.15, 0.6, 8)...)
	samples = append(samples, silence(toneSampleRate, 0.1)...)
	samples = append(samples, generateBeep(toneSampleRate, 880, 0.15, 0.6, 8)...)
	samples = append(samples, silence(toneSampleRate, 0.6)...)

	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	return wavFormat{SampleRate: toneSampleRate, Channels: 2, BitDepth: 16}, pcm
}

func generateBeep(sampleRate int, freq, duration, volume, decay float64) []int16 {
	n := int(float64(sampleRate) * duration)
	// Interleaved L/R
	samples := make([]int16, n*2)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sampleRate)
		envelope := math.Exp(-t * decay)
		s := int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
		samples[i*2] = s
		samples[i*2+1] = s
	}
	return samples
}

func silence(sampleRate int, duration float64) []int16 {
	return make([]int16, int(float64(sampleRate)*duration)*2)
}
