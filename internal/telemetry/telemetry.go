// Package telemetry provides a JSONL event stream for recording what a
// session did to a section: every engine call, registry mutation, merge,
// connection, and area build is recorded as a structured JSON event,
// making sessions auditable and replayable.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event kinds identify the type of telemetry event.
const (
	KindSessionStart = "session_start"
	KindCalcStart    = "calc_start"
	KindCalcDone     = "calc_done"
	KindPointAdded   = "point_added"
	KindLineAdded    = "line_added"
	KindLineMerged   = "line_merged"
	KindLineTrimmed  = "line_trimmed"
	KindConnected    = "connected"
	KindSearchResult = "search_result"
	KindAreasBuilt   = "areas_built"
	KindProjectSaved = "project_saved"
	KindProjectRead  = "project_read"
)

// Event represents a single telemetry record. Each event carries a
// timestamp, a kind tag, and optional entity identifiers along with
// arbitrary structured data.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Run       string    `json:"run,omitempty"`
	Kind      string    `json:"kind"`
	Point     int       `json:"point,omitempty"`
	Line      int       `json:"line,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Emitter writes telemetry events to a JSONL file, stamping each with the
// session's run id. It is safe for concurrent use by multiple goroutines.
// A nil *Emitter is a valid no-op emitter.
type Emitter struct {
	run  string
	file *os.File
	enc  *json.Encoder
	mu   sync.Mutex
}

// NewEmitter creates a new Emitter that writes JSONL events to the file at
// path. The file is created if it does not exist, or appended to if it
// does. Each emitter gets a fresh run id so interleaved sessions in one
// file stay distinguishable.
func NewEmitter(path string) (*Emitter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	return &Emitter{
		run:  uuid.NewString(),
		file: f,
		enc:  json.NewEncoder(f),
	}, nil
}

// Run returns the emitter's run id, or empty for a nil emitter.
func (e *Emitter) Run() string {
	if e == nil {
		return ""
	}
	return e.run
}

// Emit writes a single event to the JSONL file, filling in the timestamp
// and run id when unset. Calling Emit on a nil Emitter is a no-op.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if evt.Run == "" {
		evt.Run = e.run
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enc.Encode(evt); err != nil {
		return fmt.Errorf("telemetry: encode event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file. Calling Close on a nil
// Emitter is a no-op.
func (e *Emitter) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.file.Close(); err != nil {
		return fmt.Errorf("telemetry: close: %w", err)
	}
	return nil
}
