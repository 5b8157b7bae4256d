package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Code is the status code carried by every envelope the engine sends.
type Code int

const (
	CodeSuccess Code = 0
	CodeRunning Code = iota + 1000
	CodeFailed
	CodeNoData
	CodePending
	CodePaused
	CodeSkipped
	CodeBlocked
)

var codeNames = map[Code]string{
	CodeSuccess: "success",
	CodeRunning: "running",
	CodeFailed:  "failed",
	CodeNoData:  "no data",
	CodePending: "pending",
	CodePaused:  "paused",
	CodeSkipped: "skipped",
	CodeBlocked: "blocked",
}

// String returns the engine's name for the code, or the number for unknown codes.
func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Envelope is the frame shape shared by push messages and REST responses.
// Data is kept raw; consumers decode it into the payload they expect.
type Envelope struct {
	Code      Code            `json:"code"`
	Message   string          `json:"message,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// HasData reports whether the envelope carries a non-null payload.
func (e Envelope) HasData() bool {
	d := bytes.TrimSpace(e.Data)
	return len(d) > 0 && !bytes.Equal(d, []byte("null"))
}

// DecodeEnvelope parses one inbound frame. Anything that is not a JSON object
// with the envelope fields is reported as a *ProtocolError.
func DecodeEnvelope(frame []byte) (Envelope, error) {
	var env Envelope
	trimmed := bytes.TrimSpace(frame)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return env, &ProtocolError{Frame: truncate(frame), Reason: "frame is not a JSON object"}
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return Envelope{}, &ProtocolError{Frame: truncate(frame), Reason: "malformed envelope", Err: err}
	}
	return env, nil
}

const maxFrameExcerpt = 256

func truncate(frame []byte) string {
	if len(frame) > maxFrameExcerpt {
		return string(frame[:maxFrameExcerpt]) + "..."
	}
	return string(frame)
}
