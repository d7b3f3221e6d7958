// Package events defines the change-event messages flowing from the change
// detector to the notification dispatcher.
package events

const (
	TypeWelcome = "WELCOME"
	TypeUpdate  = "UPDATE"
)

// FieldChange holds the stored before/after values of one field. Values for
// sensitive fields are ciphertext exactly as persisted; the dispatcher
// decides what to decrypt.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// ChangeEvent is one queue message. A WELCOME event carries the identity
// fields; an UPDATE event carries the consolidated per-entity diff with
// paths of the form "<section name>.<field>".
type ChangeEvent struct {
	Type       string `json:"type"`
	EmployeeID string `json:"employeeId"`

	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Role       string `json:"role,omitempty"`
	Department string `json:"department,omitempty"`
	JobLevel   string `json:"jobLevel,omitempty"`
	Email      string `json:"email,omitempty"`

	ChangedFields map[string]FieldChange `json:"changedFields,omitempty"`
}
