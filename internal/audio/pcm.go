package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"tcasvoice/internal/audio/wav"
	logx "tcasvoice/pkg/logx"
)

// PCMConfig configures a PCMBackend.
type PCMConfig struct {
	// Open returns the sink raw PCM (s16le, interleaved) is streamed to.
	// It is called from Init; the sink is closed in Shutdown.
	Open func() (io.WriteCloser, error)

	// Frame is the output granularity. Default 10ms.
	Frame time.Duration

	// Realtime paces output at one frame per Frame. When false, frames are
	// written as fast as the sink accepts them.
	Realtime bool

	Log logx.Logger
}

// PCMBackend decodes WAV clips into memory and streams the active clip to a
// PCM sink from a single output goroutine. A new Play preempts the clip in
// progress; advisories never overlap.
type PCMBackend struct {
	cfg PCMConfig
	log logx.Logger

	mu      sync.Mutex
	running bool
	clips   map[Handle]*pcmClip
	next    Handle
	rate    int
	chans   int

	out    io.WriteCloser
	playCh chan *pcmClip
	stop   chan struct{}
	done   chan struct{}
}

type pcmClip struct {
	label string
	clip  *wav.Clip
	gain  atomic.Uint32 // math.Float32bits
}

func (c *pcmClip) Gain() float32 { return math.Float32frombits(c.gain.Load()) }

func NewPCMBackend(cfg PCMConfig) *PCMBackend {
	if cfg.Frame <= 0 {
		cfg.Frame = 10 * time.Millisecond
	}
	if cfg.Open == nil {
		cfg.Open = OpenOutput("none")
	}
	log := cfg.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	return &PCMBackend{cfg: cfg, log: log.With(logx.String("comp", "audio"))}
}

func (b *PCMBackend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return ErrAlreadyInitialized
	}
	out, err := b.cfg.Open()
	if err != nil {
		return fmt.Errorf("open audio output: %w", err)
	}
	b.out = out
	b.clips = map[Handle]*pcmClip{}
	b.rate, b.chans = 0, 0
	b.playCh = make(chan *pcmClip, 1)
	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	b.running = true

	go b.outputLoop(out, b.playCh, b.stop, b.done)
	b.log.Debug("audio output started", logx.Duration("frame", b.cfg.Frame), logx.Bool("realtime", b.cfg.Realtime))
	return nil
}

// Shutdown stops the output goroutine, drops any clip still loaded and closes
// the sink. It is a no-op when not initialized.
func (b *PCMBackend) Shutdown() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	stop, done, out := b.stop, b.done, b.out
	leaked := len(b.clips)
	b.clips = nil
	b.out = nil
	b.mu.Unlock()

	close(stop)
	<-done
	if err := out.Close(); err != nil {
		b.log.Warn("audio output close failed", logx.Err(err))
	}
	if leaked > 0 {
		b.log.Warn("audio shutdown with clips still loaded", logx.Int("clips", leaked))
	}
	b.log.Debug("audio output stopped")
}

func (b *PCMBackend) Load(path, label string) (Handle, error) {
	clip, err := wav.Load(path)
	if err != nil {
		return NoHandle, fmt.Errorf("load %s: %w", label, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running {
		return NoHandle, ErrNotInitialized
	}
	// The sink carries a single raw stream, so every clip must share its format.
	if b.rate == 0 {
		b.rate, b.chans = clip.SampleRate, clip.NumChannels
	} else if clip.SampleRate != b.rate || clip.NumChannels != b.chans {
		return NoHandle, fmt.Errorf("load %s: format %dHz/%dch does not match stream %dHz/%dch",
			label, clip.SampleRate, clip.NumChannels, b.rate, b.chans)
	}

	b.next++
	h := b.next
	c := &pcmClip{label: label, clip: clip}
	c.gain.Store(math.Float32bits(1))
	b.clips[h] = c
	b.log.Debug("clip loaded", logx.String("label", label), logx.Int("samples", len(clip.Samples)))
	return h, nil
}

func (b *PCMBackend) Free(h Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.clips, h)
}

func (b *PCMBackend) SetGain(h Handle, gain float32) {
	if gain < 0 {
		gain = 0
	} else if gain > 1 {
		gain = 1
	}
	if c := b.lookup(h); c != nil {
		c.gain.Store(math.Float32bits(gain))
	}
}

func (b *PCMBackend) Play(h Handle) {
	c := b.lookup(h)
	if c == nil {
		return
	}
	b.mu.Lock()
	ch := b.playCh
	b.mu.Unlock()

	// Latest request wins: replace a pending clip the output loop has not picked up yet.
	select {
	case ch <- c:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- c:
		default:
		}
	}
}

// StreamFormat reports the sample rate and channel count of the loaded clips.
func (b *PCMBackend) StreamFormat() (rate, channels int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rate, b.chans
}

func (b *PCMBackend) lookup(h Handle) *pcmClip {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running {
		return nil
	}
	return b.clips[h]
}

func (b *PCMBackend) outputLoop(out io.Writer, playCh <-chan *pcmClip, stop, done chan struct{}) {
	defer close(done)

	var pace <-chan time.Time
	if b.cfg.Realtime {
		t := time.NewTicker(b.cfg.Frame)
		defer t.Stop()
		pace = t.C
	}
	warn := logx.Limited(b.log, time.Second, 1)
	ms := int(b.cfg.Frame / time.Millisecond)
	if ms <= 0 {
		ms = 1
	}

	var (
		cur *pcmClip
		pos int
		buf []byte
	)
	for {
		if cur == nil {
			select {
			case <-stop:
				return
			case cur = <-playCh:
				pos = 0
			}
		}
		select {
		case <-stop:
			return
		case next := <-playCh:
			cur, pos = next, 0
		default:
		}

		n := cur.clip.FrameSamples(ms)
		if n <= 0 {
			n = 1
		}
		end := pos + n
		if end > len(cur.clip.Samples) {
			end = len(cur.clip.Samples)
		}
		buf = scaleFrame(buf[:0], cur.clip.Samples[pos:end], cur.Gain())
		if _, err := out.Write(buf); err != nil {
			warn.Warn("audio output write failed", logx.String("clip", cur.label), logx.Err(err))
		}
		pos = end
		if pos >= len(cur.clip.Samples) {
			cur = nil
		}

		if pace != nil {
			select {
			case <-stop:
				return
			case <-pace:
			}
		}
	}
}

// scaleFrame appends samples scaled by gain as s16le bytes.
func scaleFrame(dst []byte, samples []int16, gain float32) []byte {
	for _, s := range samples {
		v := int16(0)
		switch {
		case gain >= 1:
			v = s
		case gain > 0:
			v = int16(float32(s) * gain)
		}
		dst = binary.LittleEndian.AppendUint16(dst, uint16(v))
	}
	return dst
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// OpenOutput returns a sink opener for path: "-" is stdout, "" or "none"
// discards audio, anything else is a file created (or truncated) on Init.
func OpenOutput(path string) func() (io.WriteCloser, error) {
	path = strings.TrimSpace(path)
	return func() (io.WriteCloser, error) {
		switch strings.ToLower(path) {
		case "", "none":
			return nopWriteCloser{io.Discard}, nil
		case "-":
			return nopWriteCloser{logx.Stdout()}, nil
		default:
			return os.Create(path)
		}
	}
}
