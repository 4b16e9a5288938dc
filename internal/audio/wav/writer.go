package wav

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// Writer writes 16-bit PCM WAV files
type Writer struct {
	file           *os.File
	sampleRate     uint32
	numChannels    uint16
	samplesWritten uint32
}

const bitsPerSample = 16

// NewWriter creates a new WAV file writer
func NewWriter(filename string, sampleRate uint32, numChannels uint16) (*Writer, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create WAV file: %w", err)
	}

	writer := &Writer{
		file:        file,
		sampleRate:  sampleRate,
		numChannels: numChannels,
	}

	// Sizes are patched in Close.
	if err := writer.writeHeader(); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}

	return writer, nil
}

// WriteSamples appends interleaved samples.
func (w *Writer) WriteSamples(samples []int16) error {
	if err := binary.Write(w.file, binary.LittleEndian, samples); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	w.samplesWritten += uint32(len(samples)) / uint32(w.numChannels)
	return nil
}

// WriteSineWave writes a sine wave of the specified frequency and duration
func (w *Writer) WriteSineWave(frequency float64, durationMs int) error {
	n := int(w.sampleRate) * durationMs / 1000
	buf := make([]int16, 0, n*int(w.numChannels))
	for i := 0; i < n; i++ {
		t := float64(i) / float64(w.sampleRate)
		s := int16(math.Sin(2*math.Pi*frequency*t) * 32767 * 0.5) // 50% amplitude
		for ch := 0; ch < int(w.numChannels); ch++ {
			buf = append(buf, s)
		}
	}
	return w.WriteSamples(buf)
}

// Close finalizes the WAV file by updating the header with correct sizes
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}

	dataSize := w.samplesWritten * uint32(w.numChannels) * bitsPerSample / 8
	chunkSize := dataSize + 36

	if _, err := w.file.Seek(4, 0); err != nil {
		return fmt.Errorf("failed to seek to chunk size: %w", err)
	}
	if err := binary.Write(w.file, binary.LittleEndian, chunkSize); err != nil {
		return fmt.Errorf("failed to write chunk size: %w", err)
	}

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

func (w *Writer) writeHeader() error {
	byteRate := w.sampleRate * uint32(w.numChannels) * bitsPerSample / 8
	blockAlign := w.numChannels * bitsPerSample / 8

	hdr := struct {
		RIFF          [4]byte
		ChunkSize     uint32
		WAVE          [4]byte
		Fmt           [4]byte
		FmtSize       uint32
		AudioFormat   uint16
		NumChannels   uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
		Data          [4]byte
		DataSize      uint32
	}{
		RIFF:          [4]byte{'R', 'I', 'F', 'F'},
		WAVE:          [4]byte{'W', 'A', 'V', 'E'},
		Fmt:           [4]byte{'f', 'm', 't', ' '},
		FmtSize:       16,
		AudioFormat:   1, // PCM
		NumChannels:   w.numChannels,
		SampleRate:    w.sampleRate,
		ByteRate:      byteRate,
		BlockAlign:    blockAlign,
		BitsPerSample: bitsPerSample,
		Data:          [4]byte{'d', 'a', 't', 'a'},
	}
	return binary.Write(w.file, binary.LittleEndian, hdr)
}
