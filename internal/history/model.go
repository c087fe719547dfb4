package history

import "time"

// Actions.
const (
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionDelete   = "delete"
	ActionLogin    = "login"
	ActionRegister = "register"
	ActionComplete = "complete"
	ActionError    = "error"
)

// Resource types.
const (
	ResourceUser     = "user"
	ResourceFile     = "file"
	ResourceAnalysis = "analysis"
)

// Statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Record is one append-only audit entry.
type Record struct {
	ID           string         `json:"id"`
	UserID       string         `json:"userId"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resourceType"`
	ResourceID   string         `json:"resourceId"`
	Details      string         `json:"details"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	IP           string         `json:"ip,omitempty"`
	UserAgent    string         `json:"userAgent,omitempty"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	ErrorCode    string         `json:"errorCode,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// Query filters a user's history listing.
type Query struct {
	UserID       string
	ResourceType string
	Limit        int
	Offset       int
}

func validAction(a string) bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionLogin, ActionRegister, ActionComplete, ActionError:
		return true
	}
	return false
}

func validResourceType(t string) bool {
	switch t {
	case ResourceUser, ResourceFile, ResourceAnalysis:
		return true
	}
	return false
}
