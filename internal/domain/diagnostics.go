package domain

import (
	"encoding/json"
	"time"
)

// APICallRecord is one observed outbound call to the remote agent service.
type APICallRecord struct {
	ID           string          `json:"id"`
	Timestamp    time.Time       `json:"timestamp"`
	Method       string          `json:"method"`
	Endpoint     string          `json:"endpoint"`
	RequestBody  json.RawMessage `json:"data,omitempty"`
	ResponseBody json.RawMessage `json:"response,omitempty"`
}
