package announce

import (
	"testing"

	"tcasvoice/internal/advisory"
	logx "tcasvoice/pkg/logx"
)

type recorder struct{ got []advisory.Message }

func (r *recorder) Request(m advisory.Message) { r.got = append(r.got, m) }

func TestParseEntry(t *testing.T) {
	t.Parallel()
	e, err := ParseEntry("check", "@every 1h", "clear")
	if err != nil {
		t.Fatalf("ParseEntry: %v", err)
	}
	if e.Message != advisory.ClearOfConflict {
		t.Fatalf("Message = %v", e.Message)
	}

	bad := []struct{ name, schedule, msg string }{
		{"", "@hourly", "clear"},
		{"x", "every tuesday", "clear"},
		{"x", "*/5 * * * *", "pull_up"},
	}
	for _, b := range bad {
		if _, err := ParseEntry(b.name, b.schedule, b.msg); err == nil {
			t.Fatalf("ParseEntry(%q, %q, %q): expected error", b.name, b.schedule, b.msg)
		}
	}
}

func TestNewRegistersEntries(t *testing.T) {
	t.Parallel()
	r := &recorder{}
	s, err := New([]Entry{
		{Name: "a", Schedule: "@hourly", Message: advisory.Traffic},
		{Name: "b", Schedule: "0 6 * * *", Message: advisory.ClearOfConflict},
	}, r, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
}
