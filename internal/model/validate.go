package model

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// ProtocolError reports an inbound frame that could not be decoded or did not
// have the shape its consumer expects. The frame is dropped; the feed goes on.
type ProtocolError struct {
	Frame  string
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return "protocol error: " + e.Reason + ": " + e.Err.Error()
	}
	return "protocol error: " + e.Reason
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ValidateSnapshot checks that every step in a snapshot can be keyed.
func ValidateSnapshot(steps []Step) error {
	var ve ValidationError
	for i, s := range steps {
		if strings.TrimSpace(s.Name) == "" {
			ve.add(fmt.Sprintf("data[%d].name", i), "is required")
		}
		for j, d := range s.Depends {
			if strings.TrimSpace(d) == "" {
				ve.add(fmt.Sprintf("data[%d].depends[%d]", i, j), "must not be empty")
			}
		}
	}
	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// TaskSpec is the YAML document submitted to create a task.
type TaskSpec struct {
	Name    string     `yaml:"name,omitempty"`
	Desc    string     `yaml:"desc,omitempty"`
	Node    string     `yaml:"node,omitempty"`
	Async   bool       `yaml:"async,omitempty"`
	Disable bool       `yaml:"disable,omitempty"`
	Timeout string     `yaml:"timeout,omitempty"`
	Env     []EnvVar   `yaml:"env,omitempty"`
	Step    []StepSpec `yaml:"step"`
}

// StepSpec is one step inside a TaskSpec.
type StepSpec struct {
	Name    string   `json:"name,omitempty" yaml:"name,omitempty"`
	Desc    string   `json:"desc,omitempty" yaml:"desc,omitempty"`
	Timeout string   `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Disable bool     `json:"disable,omitempty" yaml:"disable,omitempty"`
	Depends []string `json:"depends,omitempty" yaml:"depends,omitempty"`
	Env     []EnvVar `json:"env,omitempty" yaml:"env,omitempty"`
	Type    string   `json:"type" yaml:"type"`
	Content string   `json:"content" yaml:"content"`
}

// ValidateTaskSpec checks a task document before it is sent to the engine.
// It returns a *ValidationError if any rules fail, or nil if the spec is valid.
func ValidateTaskSpec(t *TaskSpec) error {
	var ve ValidationError

	if t.Timeout != "" {
		if _, err := time.ParseDuration(t.Timeout); err != nil {
			ve.add("timeout", "invalid duration %q", t.Timeout)
		}
	}

	if len(t.Step) == 0 {
		ve.add("step", "must contain at least one step")
	}

	names := make(map[string]bool, len(t.Step))
	for i, s := range t.Step {
		if s.Name == "" {
			continue
		}
		if names[s.Name] {
			ve.add(fmt.Sprintf("step[%d].name", i), "duplicate step name %q", s.Name)
		}
		names[s.Name] = true
	}

	for i, s := range t.Step {
		field := fmt.Sprintf("step[%d]", i)
		if strings.TrimSpace(s.Type) == "" {
			ve.add(field+".type", "is required")
		}
		if strings.TrimSpace(s.Content) == "" {
			ve.add(field+".content", "is required")
		}
		if s.Timeout != "" {
			if _, err := time.ParseDuration(s.Timeout); err != nil {
				ve.add(field+".timeout", "invalid duration %q", s.Timeout)
			}
		}
		// Custom ordering needs named steps; every dependency must name one of them.
		if len(s.Depends) > 0 && s.Name == "" {
			ve.add(field+".name", "is required when depends is set")
		}
		for _, d := range s.Depends {
			if d == s.Name {
				ve.add(field+".depends", "step %q depends on itself", s.Name)
			} else if !names[d] {
				ve.add(field+".depends", "unknown step %q", d)
			}
		}
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}
