// Package notify consumes change events and delivers the resulting emails.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"hrms/internal/domain/employee"
	"hrms/internal/events"
	cryptoutil "hrms/internal/platform/crypto"
)

// DecryptionErrorMarker replaces a field value whose decryption failed.
// A bad field must never abort the whole notification.
const DecryptionErrorMarker = "[Decryption Error]"

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// Dispatcher processes one change event per queue message. Errors are
// returned to the consumer so the message is redelivered and eventually
// dead-lettered; per-field decryption failure is the one error that is
// contained instead.
type Dispatcher struct {
	crypto       *cryptoutil.Service
	mailer       Mailer
	from         string
	adminAddress string

	sensitive map[string]struct{}
}

func NewDispatcher(crypto *cryptoutil.Service, mailer Mailer, from, adminAddress string) *Dispatcher {
	sensitive := make(map[string]struct{})
	for _, name := range employee.SensitiveFieldNames() {
		sensitive[name] = struct{}{}
	}
	return &Dispatcher{
		crypto:       crypto,
		mailer:       mailer,
		from:         from,
		adminAddress: adminAddress,
		sensitive:    sensitive,
	}
}

// Handle processes one raw queue message.
func (d *Dispatcher) Handle(ctx context.Context, payload []byte) error {
	var event events.ChangeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("parse change event: %w", err)
	}

	switch event.Type {
	case events.TypeWelcome:
		return d.handleWelcome(ctx, event)
	case events.TypeUpdate:
		return d.handleUpdate(ctx, event)
	default:
		slog.Warn("skipping change event of unknown type", "type", event.Type)
		return nil
	}
}

func (d *Dispatcher) handleWelcome(ctx context.Context, event events.ChangeEvent) error {
	firstName, err := d.crypto.DecryptField(event.FirstName)
	if err != nil {
		return fmt.Errorf("decrypt firstName for %s: %w", event.EmployeeID, err)
	}
	lastName, err := d.crypto.DecryptField(event.LastName)
	if err != nil {
		return fmt.Errorf("decrypt lastName for %s: %w", event.EmployeeID, err)
	}

	if event.Email == "" {
		// The contact section was not visible when the event was produced.
		slog.Warn("welcome event without email", "employeeId", event.EmployeeID)
	} else {
		email, err := d.crypto.DecryptField(event.Email)
		if err != nil {
			return fmt.Errorf("decrypt email for %s: %w", event.EmployeeID, err)
		}
		body := fmt.Sprintf(
			"Dear %s,\n\nWelcome to the team! We are thrilled to have you join us as %s in %s. Your onboarding process will begin shortly.\n\nBest regards,\nThe HR Team",
			firstName, orUnknown(event.Role), orUnknown(event.Department))
		subject := fmt.Sprintf("Welcome to the Company, %s!", firstName)
		if err := d.mailer.Send(ctx, d.from, email, subject, body); err != nil {
			return fmt.Errorf("send welcome email for %s: %w", event.EmployeeID, err)
		}
	}

	if d.adminAddress == "" {
		return nil
	}
	body := fmt.Sprintf(
		"This is a notification that a new employee has been successfully created in the system and a welcome email has been sent.\n\nEmployee Details:\nName: %s %s\nEmployee ID: %s\nRole: %s\nDepartment: %s\nJob Level: %s\n\nThis is an automated message.",
		firstName, lastName, event.EmployeeID, orUnknown(event.Role), orUnknown(event.Department), orUnknown(event.JobLevel))
	subject := fmt.Sprintf("New Employee Created: %s %s", firstName, lastName)
	if err := d.mailer.Send(ctx, d.from, d.adminAddress, subject, body); err != nil {
		return fmt.Errorf("send admin welcome summary for %s: %w", event.EmployeeID, err)
	}
	return nil
}

func (d *Dispatcher) handleUpdate(ctx context.Context, event events.ChangeEvent) error {
	lines := d.renderChanges(event.ChangedFields)
	if len(lines) == 0 {
		slog.Info("update event with no field changes", "employeeId", event.EmployeeID)
		return nil
	}
	if d.adminAddress == "" {
		slog.Warn("no admin address configured, dropping update notification", "employeeId", event.EmployeeID)
		return nil
	}

	body := fmt.Sprintf(
		"Hello Admin,\n\nAn existing employee record has been updated.\n\nEmployee ID: %s\n\nChanged Fields:\n%s\n\nThis is an automated notification.",
		event.EmployeeID, strings.Join(lines, "\n"))
	subject := fmt.Sprintf("Employee Record Updated: %s", event.EmployeeID)
	if err := d.mailer.Send(ctx, d.from, d.adminAddress, subject, body); err != nil {
		return fmt.Errorf("send update notification for %s: %w", event.EmployeeID, err)
	}
	return nil
}

// renderChanges formats every changed field as `- path: "old" → "new"`,
// decrypting values whose bare field name the schema marks sensitive.
func (d *Dispatcher) renderChanges(changed map[string]events.FieldChange) []string {
	paths := make([]string, 0, len(changed))
	for path := range changed {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	lines := make([]string, 0, len(paths))
	for _, path := range paths {
		change := changed[path]
		oldText, newText := d.formatPair(path, change)
		lines = append(lines, fmt.Sprintf("- %s: %q → %q", path, oldText, newText))
	}
	return lines
}

func (d *Dispatcher) formatPair(path string, change events.FieldChange) (string, string) {
	if !d.isSensitive(path) {
		return formatValue(change.Old), formatValue(change.New)
	}
	oldText, oldErr := d.decryptValue(change.Old)
	newText, newErr := d.decryptValue(change.New)
	if oldErr != nil || newErr != nil {
		slog.Warn("field decryption failed in notification", "field", path)
		return DecryptionErrorMarker, DecryptionErrorMarker
	}
	return oldText, newText
}

// isSensitive strips the "<section name>." prefix and looks the bare field
// name up in the schema-derived keyword set.
func (d *Dispatcher) isSensitive(path string) bool {
	field := path
	if i := strings.LastIndex(path, "."); i >= 0 {
		field = path[i+1:]
	}
	_, ok := d.sensitive[field]
	return ok
}

func (d *Dispatcher) decryptValue(value any) (string, error) {
	if value == nil {
		return "N/A", nil
	}
	text, ok := value.(string)
	if !ok {
		return formatValue(value), nil
	}
	return d.crypto.DecryptField(text)
}

func formatValue(value any) string {
	if value == nil {
		return "N/A"
	}
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func orUnknown(value string) string {
	if value == "" {
		return "(unassigned)"
	}
	return value
}
