package model

import (
	"encoding/json"
	"fmt"
	"sort"
)

// State is the lifecycle state the engine reports for a task or step.
type State string

const (
	StatePending  State = "pending"
	StateRunning  State = "running"
	StatePaused   State = "paused"
	StateStopped  State = "stopped"
	StateFailed   State = "failed"
	StateTimeout  State = "timeout"
	StateCanceled State = "canceled"
	StateSkipped  State = "skipped"
	StateBlocked  State = "blocked"
	StateUnknown  State = "unknown"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// IsTerminal reports whether a step in this state will not change again.
func (s State) IsTerminal() bool {
	switch s {
	case StateStopped, StateFailed, StateTimeout, StateCanceled, StateSkipped:
		return true
	}
	return false
}

// Time holds the start/end timestamps as the engine formats them.
type Time struct {
	Start string `json:"start,omitempty" yaml:"start,omitempty"`
	End   string `json:"end,omitempty" yaml:"end,omitempty"`
}

// EnvVar is a single environment variable on a task or step.
type EnvVar struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Env is a list of environment variables. The engine has shipped both a
// list form ([{name,value}]) and a map form ({name:value}); both decode.
type Env []EnvVar

// UnmarshalJSON accepts either the list or the map encoding.
func (e *Env) UnmarshalJSON(data []byte) error {
	var list []EnvVar
	if err := json.Unmarshal(data, &list); err == nil {
		*e = list
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("env: expected list or object: %w", err)
	}
	out := make(Env, 0, len(m))
	for k, v := range m {
		out = append(out, EnvVar{Name: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	*e = out
	return nil
}

// Step is one step descriptor inside a graph snapshot. Reconciliation treats
// it as an opaque payload keyed by Name.
type Step struct {
	Name    string   `json:"name"`
	Desc    string   `json:"desc,omitempty"`
	Type    string   `json:"type,omitempty"`
	State   State    `json:"state"`
	Code    *int64   `json:"code,omitempty"`
	Message string   `json:"message,omitempty"`
	Timeout string   `json:"timeout,omitempty"`
	Disable bool     `json:"disable,omitempty"`
	Depends []string `json:"depends,omitempty"`
	Env     Env      `json:"env,omitempty"`
	Content string   `json:"content,omitempty"`
	Time    Time     `json:"time"`
}

// StepLog is one line of step output as pushed on the log feed.
type StepLog struct {
	Timestamp int64  `json:"timestamp"`
	Line      int64  `json:"line"`
	Content   string `json:"content"`
}
