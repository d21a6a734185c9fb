package wav

import (
	"bytes"
	"encoding/binary"
)

// Encode wraps raw little-endian 16-bit PCM bytes in a WAV container.
// The hosted transcription API only accepts container formats, so buffered
// session audio is encoded through here before upload.
func Encode(pcm []byte, sampleRate, numChannels int) []byte {
	var buf bytes.Buffer

	// RIFF header
	buf.WriteString("RIFF")
	fileSize := uint32(36 + len(pcm))
	binary.Write(&buf, binary.LittleEndian, fileSize)
	buf.WriteString("WAVE")

	// fmt chunk
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))

	audioFormat := uint16(1) // PCM
	binary.Write(&buf, binary.LittleEndian, audioFormat)

	channels := uint16(numChannels)
	binary.Write(&buf, binary.LittleEndian, channels)

	rate := uint32(sampleRate)
	binary.Write(&buf, binary.LittleEndian, rate)

	bitsPerSample := uint16(16)
	byteRate := rate * uint32(channels) * uint32(bitsPerSample) / 8
	binary.Write(&buf, binary.LittleEndian, byteRate)

	blockAlign := channels * bitsPerSample / 8
	binary.Write(&buf, binary.LittleEndian, blockAlign)

	binary.Write(&buf, binary.LittleEndian, bitsPerSample)

	// data chunk
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}
