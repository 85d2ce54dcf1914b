package model

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role      Role          `json:"role"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
	Sources   *SourceCounts `json:"sources,omitempty"`
}
