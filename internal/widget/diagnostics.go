package widget

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/ashureev/scripture-chat/internal/domain"
	"github.com/google/uuid"
)

// Recorder keeps the side-channel history of outbound calls. It never
// influences conversation behavior.
type Recorder struct {
	mu      sync.RWMutex
	records []domain.APICallRecord // oldest first
	max     int
	now     func() time.Time
}

// NewRecorder creates a recorder. max <= 0 keeps every record.
func NewRecorder(max int, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{max: max, now: now}
}

// Record adds a call record ahead of all previous ones.
func (r *Recorder) Record(method, endpoint string, requestBody, responseBody any) domain.APICallRecord {
	rec := domain.APICallRecord{
		ID:           uuid.NewString(),
		Timestamp:    r.now().UTC(),
		Method:       method,
		Endpoint:     endpoint,
		RequestBody:  toRaw(requestBody),
		ResponseBody: toRaw(responseBody),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	if r.max > 0 && len(r.records) > r.max {
		r.records = r.records[len(r.records)-r.max:]
	}
	return rec
}

// All returns the records most-recent-first.
func (r *Recorder) All() []domain.APICallRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.APICallRecord, len(r.records))
	for i, rec := range r.records {
		out[len(r.records)-1-i] = rec
	}
	return out
}

// Len returns the number of retained records.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// toRaw renders a body as JSON. Raw JSON passes through; other text is
// encoded as a JSON string.
func toRaw(v any) json.RawMessage {
	switch body := v.(type) {
	case nil:
		return nil
	case json.RawMessage:
		if json.Valid(body) {
			return body
		}
		return mustMarshal(string(body))
	case []byte:
		if json.Valid(body) {
			return json.RawMessage(body)
		}
		return mustMarshal(string(body))
	case string:
		return mustMarshal(body)
	default:
		return mustMarshal(body)
	}
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal(map[string]string{"marshal_error": err.Error()})
	}
	return data
}
