// Package journal persists a record of every dispatched advisory and gate
// transition for post-flight review.
//
// Driver values:
//   - "file": JSON Lines, append-only
//   - "sqlite": SQLite database file (modernc.org/sqlite, no cgo)
//
// If Driver is empty or "none", the journal is disabled.
package journal

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "tcasvoice/pkg/logx"
)

var ErrDisabled = errors.New("journal disabled")

type Config struct {
	Driver string
	Path   string
}

// Record is one journal line. Keep it compact and schema-stable.
type Record struct {
	At      time.Time `json:"at"`
	Type    string    `json:"type"`
	Message string    `json:"message,omitempty"`
	Audible bool      `json:"audible"`
	Tick    uint64    `json:"tick"`
}

// Store is the persistence API used by the Recorder.
type Store interface {
	Append(ctx context.Context, r Record) error
	// Recent returns up to n records, newest last.
	Recent(ctx context.Context, n int) ([]Record, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if the journal is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("journal.path is required for driver " + driver)
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown journal driver: " + driver)
	}
}
