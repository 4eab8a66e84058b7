package wavfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// WAVE format tags
const (
	formatPCM        = 1
	formatExtensible = 0xFFFE

	maxFmtSize = 64 // WAVE_FORMAT_EXTENSIBLE needs 40
)

// Errors returned for unusable files
var (
	ErrNotWAV            = errors.New("not a RIFF/WAVE file")
	ErrUnsupportedFormat = errors.New("unsupported WAV sample format")
	ErrNoData            = errors.New("WAV file has no data chunk")
)

// Header is the RIFF preamble plus the PCM fmt chunk
type Header struct {
	ChunkID   [4]byte // "RIFF"
	ChunkSize uint32  // file size - 8
	Format    [4]byte // "WAVE"

	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample/8
	BlockAlign    uint16 // NumChannels * BitsPerSample/8
	BitsPerSample uint16

	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32
}

// Audio is decoded PCM audio reduced to a single channel
type Audio struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	Samples       []int16 // first channel only
}

// fmtChunk is the common prefix of every fmt chunk
type fmtChunk struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// Reader parses WAV files chunk by chunk
type Reader struct {
	logger *logrus.Logger
}

// NewReader creates a WAV reader
func NewReader(logger *logrus.Logger) *Reader {
	return &Reader{logger: logger}
}

// Read parses a complete WAV stream. 8-bit unsigned and 16-bit signed PCM are
// supported; for multi-channel files only the first channel is kept.
func (r *Reader) Read(src io.Reader) (*Audio, error) {
	var riff [12]byte
	if _, err := io.ReadFull(src, riff[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotWAV, err)
	}
	if !bytes.Equal(riff[0:4], []byte("RIFF")) || !bytes.Equal(riff[8:12], []byte("WAVE")) {
		return nil, ErrNotWAV
	}

	var format *fmtChunk

	for {
		var chunk [8]byte
		if _, err := io.ReadFull(src, chunk[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, ErrNoData
			}
			return nil, fmt.Errorf("failed to read chunk header: %w", err)
		}

		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			if size < 16 || size > maxFmtSize {
				return nil, fmt.Errorf("%w: fmt chunk of %d bytes", ErrUnsupportedFormat, size)
			}
			body, err := io.ReadAll(io.LimitReader(src, paddedSize(size)))
			if err != nil {
				return nil, fmt.Errorf("failed to read fmt chunk: %w", err)
			}
			if len(body) < int(size) {
				return nil, fmt.Errorf("failed to read fmt chunk: %w", io.ErrUnexpectedEOF)
			}
			format = &fmtChunk{}
			if err := binary.Read(bytes.NewReader(body[:16]), binary.LittleEndian, format); err != nil {
				return nil, fmt.Errorf("failed to decode fmt chunk: %w", err)
			}

		case "data":
			if format == nil {
				return nil, fmt.Errorf("%w: data chunk before fmt chunk", ErrUnsupportedFormat)
			}
			body, err := io.ReadAll(io.LimitReader(src, int64(size)))
			if err != nil {
				return nil, fmt.Errorf("failed to read data chunk: %w", err)
			}
			if len(body) < int(size) {
				r.logger.WithFields(logrus.Fields{
					"declared": size,
					"read":     len(body),
				}).Warn("Truncated WAV data chunk")
			}
			return decodePCM(format, body)

		default:
			r.logger.WithFields(logrus.Fields{
				"chunk": id,
				"size":  size,
			}).Debug("Skipping WAV chunk")
			if _, err := io.CopyN(io.Discard, src, paddedSize(size)); err != nil {
				return nil, fmt.Errorf("failed to skip %q chunk: %w", id, err)
			}
		}
	}
}

// paddedSize is a chunk's size on disk; odd chunks carry a pad byte
func paddedSize(size uint32) int64 {
	return int64(size) + int64(size%2)
}

// decodePCM converts raw frames into first-channel 16-bit samples
func decodePCM(format *fmtChunk, body []byte) (*Audio, error) {
	if format.AudioFormat != formatPCM && format.AudioFormat != formatExtensible {
		return nil, fmt.Errorf("%w: format tag %d", ErrUnsupportedFormat, format.AudioFormat)
	}
	if format.NumChannels == 0 {
		return nil, fmt.Errorf("%w: zero channels", ErrUnsupportedFormat)
	}

	channels := int(format.NumChannels)
	bytesPerSample := int(format.BitsPerSample) / 8
	frameSize := channels * bytesPerSample

	var samples []int16

	switch format.BitsPerSample {
	case 8:
		samples = make([]int16, len(body)/frameSize)
		for i := range samples {
			samples[i] = (int16(body[i*frameSize]) - 128) << 8
		}
	case 16:
		samples = make([]int16, len(body)/frameSize)
		for i := range samples {
			samples[i] = int16(binary.LittleEndian.Uint16(body[i*frameSize:]))
		}
	default:
		return nil, fmt.Errorf("%w: %d bits per sample", ErrUnsupportedFormat, format.BitsPerSample)
	}

	return &Audio{
		SampleRate:    int(format.SampleRate),
		Channels:      channels,
		BitsPerSample: int(format.BitsPerSample),
		Samples:       samples,
	}, nil
}

// Write stores mono 16-bit PCM samples as a WAV stream
func Write(dst io.Writer, sampleRate int, samples []int16) error {
	dataSize := uint32(len(samples) * 2)

	header := Header{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   formatPCM,
		NumChannels:   1,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * 2),
		BlockAlign:    2,
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	if err := binary.Write(dst, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to write WAV header: %w", err)
	}
	if err := binary.Write(dst, binary.LittleEndian, samples); err != nil {
		return fmt.Errorf("failed to write WAV samples: %w", err)
	}

	return nil
}
