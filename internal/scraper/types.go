package scraper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Record is one extracted row, keyed by field name.
type Record map[string]string

// ResultKind distinguishes the shapes a strategy can return.
type ResultKind int

// Result kinds. The zero value is KindAbsent.
const (
	KindAbsent ResultKind = iota
	KindRecord
	KindRecords
)

func (k ResultKind) String() string {
	switch k {
	case KindRecord:
		return "record"
	case KindRecords:
		return "records"
	default:
		return "absent"
	}
}

// Result is the outcome of a strategy parse: a single record, a sequence of
// records, or the absent signal. An empty sequence is a success, not absent.
type Result struct {
	kind    ResultKind
	record  Record
	records []Record
}

// One wraps a single record.
func One(r Record) Result {
	if r == nil {
		r = Record{}
	}
	return Result{kind: KindRecord, record: r}
}

// Many wraps a sequence of records.
func Many(rs []Record) Result {
	if rs == nil {
		rs = []Record{}
	}
	return Result{kind: KindRecords, records: rs}
}

// Absent signals that extraction could not proceed structurally.
func Absent() Result {
	return Result{}
}

// Kind reports the result shape.
func (r Result) Kind() ResultKind { return r.kind }

// IsAbsent reports whether the result carries no data.
func (r Result) IsAbsent() bool { return r.kind == KindAbsent }

// Record returns the single record, or nil for other kinds.
func (r Result) Record() Record { return r.record }

// Records returns the records as a slice regardless of kind. Absent yields nil.
func (r Result) Records() []Record {
	switch r.kind {
	case KindRecord:
		return []Record{r.record}
	case KindRecords:
		return r.records
	default:
		return nil
	}
}

// MarshalJSON encodes a record as an object, records as an array and absent as null.
func (r Result) MarshalJSON() ([]byte, error) {
	switch r.kind {
	case KindRecord:
		return json.Marshal(r.record)
	case KindRecords:
		return json.Marshal(r.records)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON reverses MarshalJSON.
func (r *Result) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*r = Absent()
	case trimmed[0] == '{':
		var rec Record
		if err := json.Unmarshal(trimmed, &rec); err != nil {
			return fmt.Errorf("decode record: %w", err)
		}
		*r = One(rec)
	case trimmed[0] == '[':
		var recs []Record
		if err := json.Unmarshal(trimmed, &recs); err != nil {
			return fmt.Errorf("decode records: %w", err)
		}
		*r = Many(recs)
	default:
		return fmt.Errorf("decode result: unexpected JSON %q", trimmed[:1])
	}
	return nil
}

// FetchRequest captures everything needed to issue one GET.
type FetchRequest struct {
	URL     string
	Headers http.Header
}

// FetchResponse is returned by a Fetcher for any completed exchange,
// whatever its status code.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}
