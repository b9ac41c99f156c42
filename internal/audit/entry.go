package audit

import "time"

// Entry represents a single audit log record: one command invocation.
type Entry struct {
	Seq       uint64    `json:"seq"`
	Time      time.Time `json:"ts"`
	PrevHash  string    `json:"prev_hash"`
	Command   string    `json:"command"`
	TraceID   string    `json:"trace_id,omitempty"`
	Source    string    `json:"source,omitempty"` // cli, daemon, mcp
	Mutation  bool      `json:"mutation,omitempty"`
	Success   bool      `json:"success"`
	ErrorCode string    `json:"error_code,omitempty"`
	Duration  float64   `json:"duration_ms"`
	Hash      string    `json:"hash"` // SHA-256 of this entry (with hash field empty)
}

// Record is what callers hand to Logger.Log; the logger fills in the
// chain fields.
type Record struct {
	Command   string
	TraceID   string
	Source    string
	Mutation  bool
	Success   bool
	ErrorCode string
	Duration  time.Duration
}
