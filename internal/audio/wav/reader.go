// Package wav decodes and encodes the 16-bit PCM RIFF/WAVE files the
// advisory messages are recorded in.
package wav

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"
)

// Header represents a WAV file header
type Header struct {
	ChunkSize     uint32
	SampleRate    uint32
	NumChannels   uint16
	BitsPerSample uint16
	DataSize      uint32
}

// Clip is a fully decoded WAV file. Samples are interleaved when NumChannels > 1.
type Clip struct {
	SampleRate  int
	NumChannels int
	Samples     []int16
}

// FrameSamples returns the number of interleaved samples in ms milliseconds of audio.
func (c *Clip) FrameSamples(ms int) int {
	return c.SampleRate * ms / 1000 * c.NumChannels
}

// Duration is the playback length of the clip.
func (c *Clip) Duration() time.Duration {
	if c.SampleRate <= 0 || c.NumChannels <= 0 {
		return 0
	}
	frames := len(c.Samples) / c.NumChannels
	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}

// Reader reads WAV files
type Reader struct {
	r      io.ReadSeeker
	closer io.Closer
	header Header
}

// Open opens a WAV file and parses its header.
func Open(filename string) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}
	r, err := NewReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.closer = file
	return r, nil
}

// NewReader parses the header from rs and positions it at the start of audio data.
func NewReader(rs io.ReadSeeker) (*Reader, error) {
	reader := &Reader{r: rs}
	if err := reader.readHeader(); err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}
	return reader, nil
}

// Header returns the WAV file header information
func (r *Reader) Header() Header {
	return r.header
}

// ReadClip reads the remaining audio data into memory.
func (r *Reader) ReadClip() (*Clip, error) {
	n := int(r.header.DataSize) / 2
	samples := make([]int16, n)
	if err := binary.Read(bufio.NewReader(io.LimitReader(r.r, int64(n)*2)), binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}
	return &Clip{
		SampleRate:  int(r.header.SampleRate),
		NumChannels: int(r.header.NumChannels),
		Samples:     samples,
	}, nil
}

// Close closes the underlying file, if the reader owns one.
func (r *Reader) Close() error {
	if r.closer != nil {
		err := r.closer.Close()
		r.closer = nil
		return err
	}
	return nil
}

// Load decodes a whole WAV file.
func Load(filename string) (*Clip, error) {
	r, err := Open(filename)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.ReadClip()
}

// readHeader reads and validates the WAV file header
func (r *Reader) readHeader() error {
	var riffHeader [12]byte
	if _, err := io.ReadFull(r.r, riffHeader[:]); err != nil {
		return fmt.Errorf("failed to read RIFF header: %w", err)
	}

	if string(riffHeader[0:4]) != "RIFF" {
		return fmt.Errorf("not a valid RIFF file")
	}
	if string(riffHeader[8:12]) != "WAVE" {
		return fmt.Errorf("not a valid WAVE file")
	}

	r.header.ChunkSize = binary.LittleEndian.Uint32(riffHeader[4:8])

	if err := r.readFmtChunk(); err != nil {
		return err
	}
	if err := r.readDataChunk(); err != nil {
		return err
	}

	if r.header.BitsPerSample != 16 {
		return fmt.Errorf("only 16-bit samples are supported, got %d-bit", r.header.BitsPerSample)
	}
	if r.header.NumChannels != 1 && r.header.NumChannels != 2 {
		return fmt.Errorf("only mono and stereo are supported, got %d channels", r.header.NumChannels)
	}
	if r.header.SampleRate == 0 {
		return fmt.Errorf("invalid sample rate 0")
	}
	return nil
}

func (r *Reader) readChunkHeader() (string, uint32, error) {
	var chunkHeader [8]byte
	if _, err := io.ReadFull(r.r, chunkHeader[:]); err != nil {
		return "", 0, fmt.Errorf("failed to read chunk header: %w", err)
	}
	return string(chunkHeader[0:4]), binary.LittleEndian.Uint32(chunkHeader[4:8]), nil
}

// readFmtChunk reads the format chunk
func (r *Reader) readFmtChunk() error {
	for {
		chunkID, chunkSize, err := r.readChunkHeader()
		if err != nil {
			return err
		}

		if chunkID == "fmt " {
			if chunkSize < 16 {
				return fmt.Errorf("fmt chunk too small: %d bytes", chunkSize)
			}

			var fmtData [16]byte
			if _, err := io.ReadFull(r.r, fmtData[:]); err != nil {
				return fmt.Errorf("failed to read fmt data: %w", err)
			}

			audioFormat := binary.LittleEndian.Uint16(fmtData[0:2])
			if audioFormat != 1 {
				return fmt.Errorf("only PCM format is supported, got format %d", audioFormat)
			}

			r.header.NumChannels = binary.LittleEndian.Uint16(fmtData[2:4])
			r.header.SampleRate = binary.LittleEndian.Uint32(fmtData[4:8])
			r.header.BitsPerSample = binary.LittleEndian.Uint16(fmtData[14:16])

			if chunkSize > 16 {
				if _, err := r.r.Seek(int64(chunkSize-16), io.SeekCurrent); err != nil {
					return fmt.Errorf("failed to skip fmt data: %w", err)
				}
			}
			return nil
		}

		if _, err := r.r.Seek(int64(chunkSize), io.SeekCurrent); err != nil {
			return fmt.Errorf("failed to skip chunk: %w", err)
		}
	}
}

// readDataChunk finds the data chunk and positions the reader at the start of audio data
func (r *Reader) readDataChunk() error {
	for {
		chunkID, chunkSize, err := r.readChunkHeader()
		if err != nil {
			return err
		}

		if chunkID == "data" {
			r.header.DataSize = chunkSize
			return nil
		}

		if _, err := r.r.Seek(int64(chunkSize), io.SeekCurrent); err != nil {
			return fmt.Errorf("failed to skip chunk: %w", err)
		}
	}
}
