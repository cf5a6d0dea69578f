package stt

import (
	"bytes"
	"encoding/binary"
)

// EncodeWAV encodes mono float samples as 16-bit PCM WAV
func EncodeWAV(samples []float32, sampleRate int) []byte {
	const (
		numChannels   = uint16(1)
		bitsPerSample = uint16(16)
	)
	rate := uint32(sampleRate)
	byteRate := rate * uint32(numChannels) * uint32(bitsPerSample) / 8
	blockAlign := numChannels * bitsPerSample / 8
	dataSize := uint32(len(samples) * 2)

	var buf bytes.Buffer
	buf.Grow(44 + int(dataSize))

	// RIFF header
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, 36+dataSize)
	buf.WriteString("WAVE")

	// fmt chunk
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16)) // chunk size
	binary.Write(&buf, binary.LittleEndian, uint16(1))  // PCM
	binary.Write(&buf, binary.LittleEndian, numChannels)
	binary.Write(&buf, binary.LittleEndian, rate)
	binary.Write(&buf, binary.LittleEndian, byteRate)
	binary.Write(&buf, binary.LittleEndian, blockAlign)
	binary.Write(&buf, binary.LittleEndian, bitsPerSample)

	// data chunk
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, dataSize)
	for _, s := range samples {
		s = min(max(s, -1), 1)
		binary.Write(&buf, binary.LittleEndian, int16(s*32767))
	}

	return buf.Bytes()
}
