package journal

import (
	"context"
	"time"

	"tcasvoice/internal/eventbus"
	"tcasvoice/internal/sched"
	logx "tcasvoice/pkg/logx"
)

// Recorder copies scheduler events from the bus into a Store.
type Recorder struct {
	store Store
	bus   eventbus.Bus
	log   logx.Logger
}

func NewRecorder(store Store, bus eventbus.Bus, log logx.Logger) *Recorder {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Recorder{store: store, bus: bus, log: log.With(logx.String("comp", "journal"))}
}

// Run subscribes and appends records until ctx is done. Remaining buffered
// events are flushed before returning.
func (r *Recorder) Run(ctx context.Context) error {
	ch, unsub := r.bus.Subscribe(256)
	defer unsub()

	warn := logx.Limited(r.log, 5*time.Second, 1)
	write := func(e eventbus.Event) {
		rec, ok := toRecord(e)
		if !ok {
			return
		}
		wctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := r.store.Append(wctx, rec); err != nil {
			warn.Warn("journal append failed", logx.String("type", rec.Type), logx.Err(err))
		}
	}

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case e := <-ch:
					write(e)
				default:
					return nil
				}
			}
		case e := <-ch:
			write(e)
		}
	}
}

func toRecord(e eventbus.Event) (Record, bool) {
	switch d := e.Data.(type) {
	case sched.Dispatch:
		return Record{At: e.Time, Type: e.Type, Message: d.Message.String(), Audible: d.Audible, Tick: d.Tick}, true
	case sched.GateChange:
		return Record{At: e.Time, Type: e.Type, Audible: d.Enabled, Tick: d.Tick}, true
	default:
		return Record{}, false
	}
}
