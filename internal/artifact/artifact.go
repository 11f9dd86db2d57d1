// Package artifact records response snapshots for later inspection.
package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Sink is a write-only destination for named response snapshots.
// Recording is observational: callers treat failures as non-fatal.
type Sink interface {
	Record(name string, body []byte) error
}

// Dir writes each snapshot as a pretty-printed JSON file under a
// directory, prefixed with a sequence number so the files sort in
// execution order.
type Dir struct {
	dir string

	mu  sync.Mutex
	seq int
}

// NewDir creates the directory if needed and returns a sink writing into it.
func NewDir(dir string) (*Dir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact dir: %w", err)
	}
	return &Dir{dir: dir}, nil
}

// Record writes body to <dir>/<NN>-<name>.json. Non-JSON bodies are
// written as-is.
func (d *Dir) Record(name string, body []byte) error {
	d.mu.Lock()
	d.seq++
	seq := d.seq
	d.mu.Unlock()

	path := filepath.Join(d.dir, fmt.Sprintf("%02d-%s.json", seq, name))
	return os.WriteFile(path, pretty(body), 0o644)
}

// Memory keeps snapshots in order for inspection by tests.
type Memory struct {
	mu        sync.Mutex
	snapshots []Snapshot
}

// Snapshot is one recorded response.
type Snapshot struct {
	Name string
	Body []byte
}

// NewMemory returns an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

// Record appends the snapshot.
func (m *Memory) Record(name string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, Snapshot{Name: name, Body: append([]byte(nil), body...)})
	return nil
}

// Snapshots returns the recorded snapshots in recording order.
func (m *Memory) Snapshots() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Snapshot, len(m.snapshots))
	copy(out, m.snapshots)
	return out
}

// Get returns the last snapshot recorded under name.
func (m *Memory) Get(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.snapshots) - 1; i >= 0; i-- {
		if m.snapshots[i].Name == name {
			return m.snapshots[i].Body, true
		}
	}
	return nil, false
}

// pretty indents JSON bodies for human inspection.
func pretty(body []byte) []byte {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return body
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}
