package wav

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/pitchpal/pitchpal-go/pkg/rtc"
)

// Writer writes 16-bit PCM WAV files. It is used as the playback sink for
// synthesized prospect speech and for generating practice recordings.
type Writer struct {
	file           *os.File
	sampleRate     uint32
	numChannels    uint16
	bitsPerSample  uint16
	samplesWritten uint32
}

// NewWriter creates a new WAV file writer
func NewWriter(filename string, sampleRate uint32, numChannels uint16) (*Writer, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create WAV file: %w", err)
	}

	writer := &Writer{
		file:          file,
		sampleRate:    sampleRate,
		numChannels:   numChannels,
		bitsPerSample: 16,
	}

	// Write header (we'll update it when we close)
	if err := writer.writeHeader(); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}

	return writer, nil
}

// WriteSamples appends raw little-endian 16-bit PCM bytes.
func (w *Writer) WriteSamples(data []byte) error {
	if w.file == nil {
		return fmt.Errorf("writer is closed")
	}
	if len(data)%2 != 0 {
		return fmt.Errorf("PCM data must be a whole number of 16-bit samples, got %d bytes", len(data))
	}

	if _, err := w.file.Write(data); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}

	w.samplesWritten += uint32(len(data)) / 2 / uint32(w.numChannels)
	return nil
}

// WriteFrame appends one audio frame.
func (w *Writer) WriteFrame(frame rtc.AudioFrame) error {
	return w.WriteSamples(frame.Data)
}

// WriteSineWave appends a sine wave of the given frequency and duration.
// Useful for generating test recordings.
func (w *Writer) WriteSineWave(frequency float64, durationMs int) error {
	samplesPerChannel := int(w.sampleRate) * durationMs / 1000

	for i := 0; i < samplesPerChannel; i++ {
		t := float64(i) / float64(w.sampleRate)
		sample := math.Sin(2 * math.Pi * frequency * t)

		// 50% amplitude keeps the tone comfortably above the silence
		// threshold without clipping.
		intSample := int16(sample * 32767 * 0.5)

		for ch := 0; ch < int(w.numChannels); ch++ {
			if err := binary.Write(w.file, binary.LittleEndian, intSample); err != nil {
				return fmt.Errorf("failed to write sample: %w", err)
			}
		}

		w.samplesWritten++
	}

	return nil
}

// WriteSilence appends the given duration of zero samples.
func (w *Writer) WriteSilence(durationMs int) error {
	samplesPerChannel := int(w.sampleRate) * durationMs / 1000
	data := make([]byte, samplesPerChannel*int(w.numChannels)*2)
	return w.WriteSamples(data)
}

// Close finalizes the WAV file by updating the header with correct sizes
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}

	// Update header with actual sizes
	dataSize := w.samplesWritten * uint32(w.numChannels) * uint32(w.bitsPerSample) / 8
	chunkSize := dataSize + 36

	// Seek to chunk size position and update
	if _, err := w.file.Seek(4, 0); err != nil {
		return fmt.Errorf("failed to seek to chunk size: %w", err)
	}
	if err := binary.Write(w.file, binary.LittleEndian, chunkSize); err != nil {
		return fmt.Errorf("failed to write chunk size: %w", err)
	}

	// Seek to data size position and update
	if _, err := w.file.Seek(40, 0); err != nil {
		return fmt.Errorf("failed to seek to data size: %w", err)
	}
	if err := binary.Write(w.file, binary.LittleEndian, dataSize); err != nil {
		return fmt.Errorf("failed to write data size: %w", err)
	}

	err := w.file.Close()
	w.file = nil
	return err
}

// writeHeader writes the initial WAV header
func (w *Writer) writeHeader() error {
	header := Encode(nil, int(w.sampleRate), int(w.numChannels))
	if _, err := w.file.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	return nil
}
