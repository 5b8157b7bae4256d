// Package client provides the one-shot REST side-channel to the flow engine:
// details, step and task actions, task submission and deletion. Live state
// arrives over push channels; this package covers everything else.
package client

import (
	"context"

	"github.com/alfredjeanlab/flowview/internal/model"
)

// FlowClient is the interface the fv commands use for request/response calls.
// It is implemented by HTTPClient.
type FlowClient interface {
	// Tasks
	GetTask(ctx context.Context, name string) (*model.Task, error)
	CreateTask(ctx context.Context, spec *model.TaskSpec) (*model.TaskCreated, error)
	DeleteTask(ctx context.Context, name string) error
	ManageTask(ctx context.Context, name string, action Action) error

	// Steps
	GetStep(ctx context.Context, task, step string) (*model.StepDetail, error)
	ManageStep(ctx context.Context, task, step string, action Action) error

	// Lifecycle
	Close() error
}

// Action is an operation the engine applies to a running task or step.
type Action string

const (
	ActionKill   Action = "kill"
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
)

// ParseAction validates a user-supplied action name.
func ParseAction(s string) (Action, bool) {
	switch a := Action(s); a {
	case ActionKill, ActionPause, ActionResume:
		return a, true
	}
	return "", false
}
