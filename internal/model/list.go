package model

// PageRequest is the outbound message asking a list feed for one page.
type PageRequest struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

// Page is the pagination block of a list payload.
type Page struct {
	Current int `json:"current"`
	Size    int `json:"size"`
	Total   int `json:"total"`
}

// Task is one row of the task list.
type Task struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Node        string `json:"node,omitempty"`
	State       State  `json:"state"`
	Message     string `json:"message,omitempty"`
	Count       int    `json:"count"`
	Env         Env    `json:"env,omitempty"`
	Timeout     string `json:"timeout,omitempty"`
	Disable     bool   `json:"disable,omitempty"`
	Time        *Time  `json:"time,omitempty"`
}

// Pipeline is one row of the pipeline list.
type Pipeline struct {
	Name    string `json:"name"`
	Desc    string `json:"desc,omitempty"`
	Disable bool   `json:"disable,omitempty"`
	TplType string `json:"tplType,omitempty"`
	Content string `json:"content,omitempty"`
}

// StepDetail is the one-shot detail of a single step.
type StepDetail = Step

// TaskCreated is returned by the engine after a task is accepted.
type TaskCreated struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
