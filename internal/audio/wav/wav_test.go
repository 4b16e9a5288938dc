package wav

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestLoadSineFixture(t *testing.T) {
	is := is.New(t)
	path := filepath.Join(t.TempDir(), "tone.wav")

	w, err := NewWriter(path, 16000, 1)
	is.NoErr(err)
	is.NoErr(w.WriteSineWave(440, 100))
	is.NoErr(w.Close())

	clip, err := Load(path)
	is.NoErr(err)
	is.Equal(clip.SampleRate, 16000)
	is.Equal(clip.NumChannels, 1)
	is.Equal(len(clip.Samples), 1600)
	is.Equal(clip.FrameSamples(10), 160)
	is.Equal(clip.Duration(), 100*time.Millisecond)
}

func TestLoadSkipsUnknownChunks(t *testing.T) {
	is := is.New(t)
	var b bytes.Buffer
	b.WriteString("RIFF\x00\x00\x00\x00WAVE")
	b.WriteString("LIST\x04\x00\x00\x00abcd")
	b.WriteString("fmt \x10\x00\x00\x00")
	b.Write([]byte{1, 0, 2, 0, 0x80, 0xbb, 0, 0, 0, 0, 0, 0, 4, 0, 16, 0})
	b.WriteString("data\x04\x00\x00\x00")
	b.Write([]byte{1, 0, 0xff, 0xff})

	r, err := NewReader(bytes.NewReader(b.Bytes()))
	is.NoErr(err)
	is.Equal(r.Header().SampleRate, uint32(48000))
	clip, err := r.ReadClip()
	is.NoErr(err)
	is.Equal(clip.Samples, []int16{1, -1})
}

func TestRejectsInvalidFiles(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()

	notRiff := filepath.Join(dir, "bad.wav")
	is.NoErr(os.WriteFile(notRiff, []byte("this is not audio at all"), 0o644))
	_, err := Load(notRiff)
	is.True(err != nil)

	_, err = Load(filepath.Join(dir, "missing.wav"))
	is.True(err != nil)
}

func TestRejectsTruncatedData(t *testing.T) {
	is := is.New(t)
	var b bytes.Buffer
	b.WriteString("RIFF\x00\x00\x00\x00WAVEfmt \x10\x00\x00\x00")
	b.Write([]byte{1, 0, 1, 0, 0x80, 0x3e, 0, 0, 0, 0, 0, 0, 2, 0, 16, 0})
	b.WriteString("data\x10\x00\x00\x00")
	b.Write([]byte{1, 0})

	r, err := NewReader(bytes.NewReader(b.Bytes()))
	is.NoErr(err)
	_, err = r.ReadClip()
	is.True(err != nil)
}
