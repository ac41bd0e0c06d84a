package spec

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type (
	// Row is a single record of a data source, keyed by its header
	Row map[string]string

	// Record is the durable part of a mock, what gets registered and what gets snapshotted
	Record struct {
		Method       string                 `json:"method" yaml:"method" validate:"required,oneof=GET POST PUT PATCH DELETE HEAD OPTIONS CONNECT TRACE"`
		Path         string                 `json:"path" yaml:"path" validate:"required,startswith=/"`
		ResponseBody map[string]interface{} `json:"responseBody,omitempty" yaml:"responseBody"`
		StatusCode   int                    `json:"statusCode,omitempty" yaml:"statusCode" validate:"omitempty,min=100,max=599"`
		AvgDelay     float64                `json:"avgDelay,omitempty" yaml:"avgDelay" validate:"gte=0"`
		Deviation    float64                `json:"deviation,omitempty" yaml:"deviation" validate:"gte=0"`
		CSVFile      string                 `json:"csvFile,omitempty" yaml:"csvFile"`
	}

	// Mock is a registered Record with its loaded rows and the counters dispatching moves.
	// Rows never change after construction, everything else sits behind mu.
	Mock struct {
		ID string
		Record

		rows []Row

		mu      sync.Mutex
		cursor  int
		hits    int64
		lastHit *time.Time
	}

	// Stats is a consistent read of a mock's runtime counters
	Stats struct {
		Cursor  int
		Hits    int64
		LastHit *time.Time
		Rows    int
	}

	// View is how a mock is listed to operators
	View struct {
		ID  string `json:"id"`
		Key string `json:"key"`
		Record
		Rows         int        `json:"rows"`
		CurrentIndex int        `json:"currentIndex"`
		Hits         int64      `json:"hits"`
		LastHit      *time.Time `json:"lastHit"`
	}
)

// DefaultStatusCode is used when a Record leaves StatusCode unset
const DefaultStatusCode = 200

// Key builds the registry key for a method and path
func Key(method, path string) string {
	return method + ":" + path
}

// NewMock wraps a normalized Record and its rows with fresh runtime state
func NewMock(rec Record, rows []Row) *Mock {
	return &Mock{
		ID:     uuid.New().String(),
		Record: rec,
		rows:   rows,
	}
}

// Key returns METHOD:PATH for this mock
func (m *Mock) Key() string {
	return Key(m.Method, m.Path)
}

// Status is the configured status code, or DefaultStatusCode
func (m *Mock) Status() int {
	if m.StatusCode == 0 {
		return DefaultStatusCode
	}

	return m.StatusCode
}

// Hit records a dispatch. The row under the cursor is selected and the cursor advanced in the
// same critical section, so sequential hits walk the rows in order and wrap.
// The returned row is nil when the mock has no data.
func (m *Mock) Hit(now time.Time) Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hits++
	m.lastHit = &now

	if len(m.rows) == 0 {
		return nil
	}

	row := m.rows[m.cursor]
	m.cursor = (m.cursor + 1) % len(m.rows)

	return row
}

// Compose shallow-merges row over a copy of the static response body
func (m *Mock) Compose(row Row) map[string]interface{} {
	body := make(map[string]interface{}, len(m.ResponseBody)+len(row))

	for k, v := range m.ResponseBody {
		body[k] = v
	}

	for k, v := range row {
		body[k] = v
	}

	return body
}

// Stats reads the runtime counters
func (m *Mock) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{
		Cursor: m.cursor,
		Hits:   m.hits,
		Rows:   len(m.rows),
	}

	if m.lastHit != nil {
		t := *m.lastHit
		s.LastHit = &t
	}

	return s
}

// View snapshots the mock for listing
func (m *Mock) View() View {
	s := m.Stats()

	return View{
		ID:           m.ID,
		Key:          m.Key(),
		Record:       m.Record,
		Rows:         s.Rows,
		CurrentIndex: s.Cursor,
		Hits:         s.Hits,
		LastHit:      s.LastHit,
	}
}
