// Package delivery chooses a transfer strategy per media item and degrades
// gracefully when file-based delivery is unavailable.
package delivery

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Mode selects how an item is handed to the transport.
type Mode string

const (
	ModeEmbedded  Mode = "embedded"
	ModeNamedFile Mode = "named-file"
)

// Outcome is the terminal delivery state for one item.
type Outcome int

const (
	// OutcomeDelivered means the item went out in its preferred mode.
	OutcomeDelivered Outcome = iota
	// OutcomeDegraded means file delivery fell back to an inline image and
	// still succeeded. Reported as success, not failure.
	OutcomeDegraded
	// OutcomeFailed means the transport failed with no fallback left.
	OutcomeFailed
)

// ephemeralTTL is how long an ephemeral file outlives its delivery before
// best-effort removal.
const ephemeralTTL = 5 * time.Second

// Transport is the outbound boundary. Implementations live with the chat
// gateway glue, never in this package.
type Transport interface {
	SendImage(data []byte, mimeType string) error
	SendFile(path string, name string) error
}

// Item is a resolved media item ready for dispatch. PersistedPath is empty
// when the bytes have no on-disk home (e.g. ingest-less conversion).
type Item struct {
	Content       []byte
	MimeType      string
	Animated      bool
	FileName      string
	PersistedPath string
}

// Result reports how an item actually went out.
type Result struct {
	Outcome Outcome
	Mode    Mode
	Err     error
}

// Dispatcher resolves a per-kind transfer mode and executes the two-tier
// named-file / embedded strategy.
type Dispatcher struct {
	tempDir      string
	staticMode   Mode
	animatedMode Mode
	log          *zap.SugaredLogger
}

func NewDispatcher(tempDir string, staticMode, animatedMode Mode, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		tempDir:      tempDir,
		staticMode:   staticMode,
		animatedMode: animatedMode,
		log:          log,
	}
}

// ModeFor returns the configured transfer mode for an item kind.
func (d *Dispatcher) ModeFor(animated bool) Mode {
	if animated {
		return d.animatedMode
	}
	return d.staticMode
}

// Deliver sends one item over the transport. Embedded failures propagate
// unmodified; named-file failures degrade to embedded with the same bytes and
// are reported as degraded success.
func (d *Dispatcher) Deliver(t Transport, item Item) Result {
	mode := d.ModeFor(item.Animated)
	if mode == ModeEmbedded {
		if err := t.SendImage(item.Content, item.MimeType); err != nil {
			return Result{Outcome: OutcomeFailed, Mode: ModeEmbedded, Err: fmt.Errorf("embedded delivery: %w", err)}
		}
		return Result{Outcome: OutcomeDelivered, Mode: ModeEmbedded}
	}

	if err := d.deliverAsFile(t, item); err != nil {
		d.log.Infow("file delivery failed, falling back to embedded", "name", item.FileName, "err", err)
		if err := t.SendImage(item.Content, item.MimeType); err != nil {
			return Result{Outcome: OutcomeFailed, Mode: ModeNamedFile, Err: fmt.Errorf("fallback delivery: %w", err)}
		}
		return Result{Outcome: OutcomeDegraded, Mode: ModeEmbedded}
	}
	return Result{Outcome: OutcomeDelivered, Mode: ModeNamedFile}
}

// deliverAsFile references the persisted blob directly when one exists;
// otherwise it writes an ephemeral copy under the process temp area and
// schedules its removal.
func (d *Dispatcher) deliverAsFile(t Transport, item Item) error {
	if item.PersistedPath != "" {
		return t.SendFile(item.PersistedPath, item.FileName)
	}

	if err := os.MkdirAll(d.tempDir, 0o755); err != nil {
		return fmt.Errorf("create temp area: %w", err)
	}
	tmpPath := filepath.Join(d.tempDir, uuid.NewString()+filepath.Ext(item.FileName))
	if err := os.WriteFile(tmpPath, item.Content, 0o644); err != nil {
		return fmt.Errorf("write ephemeral file: %w", err)
	}

	err := t.SendFile(tmpPath, item.FileName)

	// Best-effort removal after a fixed delay; racing with delivery
	// completion is acceptable.
	time.AfterFunc(ephemeralTTL, func() {
		if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
			d.log.Debugw("ephemeral file cleanup failed", "path", tmpPath, "err", rmErr)
		}
	})

	return err
}
