package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// WavHeaderSize is the size of the canonical PCM WAV header written by Encode.
const WavHeaderSize = 44

const wavFormatPCM = 1

var (
	ErrInvalidWav        = errors.New("invalid wav data")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// WavHeader is the decoded form of a WAV header.
type WavHeader struct {
	Format     Format
	DataOffset int64  // byte offset of the first payload byte
	DataSize   uint32 // declared size of the data chunk
	RiffSize   uint32 // declared size of the RIFF chunk
}

// Duration returns the payload length in seconds.
func (h WavHeader) Duration() float64 {
	return h.Format.Duration(int64(h.DataSize))
}

// EncodeWav wraps raw PCM in a canonical 44-byte RIFF/WAVE header.
// It has no side effects and never fails.
func EncodeWav(pcm []byte, f Format) []byte {
	dataSize := len(pcm)
	buf := make([]byte, WavHeaderSize+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(dataSize+36))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], wavFormatPCM)
	binary.LittleEndian.PutUint16(buf[22:24], uint16(f.Channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(f.ByteRate()))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(f.BlockAlign()))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(f.BitsPerSample))

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[WavHeaderSize:], pcm)

	return buf
}

// ReadWavHeader parses a RIFF/WAVE header from r, skipping any chunks
// between "fmt " and "data". On success r is positioned at the first
// payload byte.
func ReadWavHeader(r io.Reader) (WavHeader, error) {
	var h WavHeader

	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return h, fmt.Errorf("%w: reading riff header: %v", ErrInvalidWav, err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return h, fmt.Errorf("%w: missing RIFF/WAVE marker", ErrInvalidWav)
	}
	h.RiffSize = binary.LittleEndian.Uint32(riff[4:8])
	offset := int64(12)

	var haveFmt bool
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			return h, fmt.Errorf("%w: reading chunk header: %v", ErrInvalidWav, err)
		}
		offset += 8
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			if size < 16 {
				return h, fmt.Errorf("%w: fmt chunk too short (%d bytes)", ErrInvalidWav, size)
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return h, fmt.Errorf("%w: reading fmt chunk: %v", ErrInvalidWav, err)
			}
			offset += int64(size)
			if tag := binary.LittleEndian.Uint16(body[0:2]); tag != wavFormatPCM {
				return h, fmt.Errorf("%w: format tag %d is not PCM", ErrUnsupportedFormat, tag)
			}
			h.Format = Format{
				Channels:      int(binary.LittleEndian.Uint16(body[2:4])),
				SampleRate:    int(binary.LittleEndian.Uint32(body[4:8])),
				BitsPerSample: int(binary.LittleEndian.Uint16(body[14:16])),
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return h, fmt.Errorf("%w: data chunk before fmt chunk", ErrInvalidWav)
			}
			h.DataSize = size
			h.DataOffset = offset
			return h, nil
		default:
			// Chunks are word aligned.
			skip := int64(size) + int64(size&1)
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return h, fmt.Errorf("%w: skipping %q chunk: %v", ErrInvalidWav, id, err)
			}
			offset += skip
		}
	}
}

// AppendSamples appends samples to dst as signed 16-bit little-endian bytes,
// independent of host byte order.
func AppendSamples(dst []byte, samples []int16) []byte {
	for _, s := range samples {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(s))
	}
	return dst
}
