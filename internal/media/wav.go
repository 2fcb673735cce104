package media

import (
	"bytes"
	"encoding/binary"
	"errors"
	"mime"
	"strconv"
)

// PCMFormat describes raw little-endian PCM samples.
type PCMFormat struct {
	Channels   int
	SampleRate int
	BitDepth   int
}

// DefaultPCMFormat is what the speech provider emits: mono, 24kHz, 16-bit.
var DefaultPCMFormat = PCMFormat{Channels: 1, SampleRate: 24000, BitDepth: 16}

const wavHeaderSize = 44

// PCMFormatFromMIME reads rate= and channels= parameters from a MIME type such as
// "audio/L16;codec=pcm;rate=24000", falling back to DefaultPCMFormat.
func PCMFormatFromMIME(mimeType string) PCMFormat {
	format := DefaultPCMFormat
	if mimeType == "" {
		return format
	}
	_, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return format
	}
	if v, err := strconv.Atoi(params["rate"]); err == nil && v > 0 {
		format.SampleRate = v
	}
	if v, err := strconv.Atoi(params["channels"]); err == nil && v > 0 {
		format.Channels = v
	}
	return format
}

// EncodeWAV wraps raw PCM samples in a RIFF/WAVE container.
func EncodeWAV(pcm []byte, format PCMFormat) ([]byte, error) {
	if format.Channels <= 0 || format.SampleRate <= 0 || format.BitDepth <= 0 || format.BitDepth%8 != 0 {
		return nil, errors.New("invalid pcm format")
	}
	blockAlign := format.Channels * format.BitDepth / 8
	byteRate := format.SampleRate * blockAlign

	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+len(pcm)))
	buf.WriteString("RIFF")
	le := binary.LittleEndian
	_ = binary.Write(buf, le, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(buf, le, uint32(16))
	_ = binary.Write(buf, le, uint16(1)) // PCM
	_ = binary.Write(buf, le, uint16(format.Channels))
	_ = binary.Write(buf, le, uint32(format.SampleRate))
	_ = binary.Write(buf, le, uint32(byteRate))
	_ = binary.Write(buf, le, uint16(blockAlign))
	_ = binary.Write(buf, le, uint16(format.BitDepth))
	buf.WriteString("data")
	_ = binary.Write(buf, le, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes(), nil
}

// DecodeWAVHeader parses the canonical 44-byte header written by EncodeWAV.
func DecodeWAVHeader(wav []byte) (PCMFormat, []byte, error) {
	if len(wav) < wavHeaderSize || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return PCMFormat{}, nil, errors.New("not a wav container")
	}
	le := binary.LittleEndian
	format := PCMFormat{
		Channels:   int(le.Uint16(wav[22:24])),
		SampleRate: int(le.Uint32(wav[24:28])),
		BitDepth:   int(le.Uint16(wav[34:36])),
	}
	size := int(le.Uint32(wav[40:44]))
	if wavHeaderSize+size > len(wav) {
		return PCMFormat{}, nil, errors.New("truncated wav data")
	}
	return format, wav[wavHeaderSize : wavHeaderSize+size], nil
}
