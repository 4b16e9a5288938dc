// Package announce requests advisories on a cron schedule, e.g. a periodic
// audio check while the system is idle.
//
// Supported schedule formats are those of robfig/cron's standard parser:
// 5-field cron expressions and descriptors ("@hourly", "@every 30m").
package announce

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"tcasvoice/internal/advisory"
	logx "tcasvoice/pkg/logx"
)

// Entry is one scheduled announcement.
type Entry struct {
	Name     string
	Schedule string
	Message  advisory.Message
}

// Requester is the part of the scheduler announcements need.
type Requester interface {
	Request(m advisory.Message)
}

// Service owns a cron instance.
type Service struct {
	c   *cron.Cron
	log logx.Logger
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseEntry validates a configured announcement.
func ParseEntry(name, schedule, message string) (Entry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Entry{}, fmt.Errorf("announcement name required")
	}
	if _, err := parser.Parse(schedule); err != nil {
		return Entry{}, fmt.Errorf("announcement %s: invalid schedule %q: %w", name, schedule, err)
	}
	m, err := advisory.ParseMessage(message)
	if err != nil {
		return Entry{}, fmt.Errorf("announcement %s: %w", name, err)
	}
	return Entry{Name: name, Schedule: strings.TrimSpace(schedule), Message: m}, nil
}

// New registers every entry against r.
func New(entries []Entry, r Requester, log logx.Logger) (*Service, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{c: cron.New(cron.WithParser(parser)), log: log.With(logx.String("comp", "announce"))}
	for _, e := range entries {
		e := e
		if _, err := s.c.AddFunc(e.Schedule, func() {
			s.log.Debug("announcement fired", logx.String("name", e.Name), logx.String("msg", e.Message.String()))
			r.Request(e.Message)
		}); err != nil {
			return nil, fmt.Errorf("announcement %s: %w", e.Name, err)
		}
		s.log.Debug("announcement registered", logx.String("name", e.Name), logx.String("schedule", e.Schedule))
	}
	return s, nil
}

// Len returns the number of registered announcements.
func (s *Service) Len() int { return len(s.c.Entries()) }

// Run starts the cron and blocks until ctx is done, then waits for running jobs.
func (s *Service) Run(ctx context.Context) error {
	s.c.Start()
	<-ctx.Done()
	<-s.c.Stop().Done()
	return nil
}
