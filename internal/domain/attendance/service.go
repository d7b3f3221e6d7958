// Package attendance records daily attendance entries against an employee.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"hrms/internal/domain/employee"
	cryptoutil "hrms/internal/platform/crypto"
	"hrms/internal/recordstore"
)

const (
	maxWorkHours    = 12
	minBreakMinutes = 30
	standardHours   = 8.0

	sortKeyPrefix = "ATTENDANCE#"
)

var (
	ErrEmployeeNotFound = errors.New("attendance: employee not found")
	// ErrEmployeeInactive maps to 403 at the transport layer. Attendance is
	// the one surface that tells a missing employee apart from an inactive
	// one.
	ErrEmployeeInactive = errors.New("attendance: employee is not active")
	ErrDuplicateEntry   = errors.New("attendance: entry for this date already exists")
)

// RuleError reports a business-rule violation in the submitted entry.
type RuleError struct {
	Message string
}

func (e *RuleError) Error() string {
	return e.Message
}

type Break struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type Input struct {
	CheckInTime  string   `json:"checkInTime"`
	CheckOutTime string   `json:"checkOutTime"`
	TotalHours   *float64 `json:"totalHours"`
	TaskCategory string   `json:"taskCategory"`
	WBSCode      string   `json:"wbsCode"`
	CostCenter   string   `json:"costCenter"`
	ProjectCode  string   `json:"projectCode"`
	Location     string   `json:"location,omitempty"`
	Breaks       []Break  `json:"breaks,omitempty"`
	Notes        string   `json:"notes,omitempty"`
}

// Entry is the creation result returned to the caller.
type Entry struct {
	AttendanceID  string  `json:"attendanceId"`
	OvertimeHours float64 `json:"overtimeHours"`
}

type Service struct {
	store  recordstore.Store
	crypto *cryptoutil.Service
}

func NewService(store recordstore.Store, crypto *cryptoutil.Service) *Service {
	return &Service{store: store, crypto: crypto}
}

// Create validates the entry against the employee's status and contract,
// then writes one row keyed by the check-in date. Overtime is whatever
// exceeds the standard eight hours.
func (s *Service) Create(ctx context.Context, employeeID string, input Input) (Entry, error) {
	if err := validateInput(input); err != nil {
		return Entry{}, err
	}

	sections, err := s.store.Query(ctx, employee.EntityKey(employeeID))
	if err != nil {
		return Entry{}, fmt.Errorf("load employee %s: %w", employeeID, err)
	}
	if len(sections) == 0 {
		return Entry{}, ErrEmployeeNotFound
	}

	var personal, contract recordstore.Doc
	for _, item := range sections {
		switch item.SK {
		case employee.SectionPersonalData.Key():
			personal = item.Doc
		case employee.SectionContractDetails.Key():
			contract = item.Doc
		}
	}
	if personal == nil || contract == nil {
		return Entry{}, fmt.Errorf("employee %s record is incomplete", employeeID)
	}
	if status, _ := personal["status"].(string); status != employee.StatusActive {
		return Entry{}, ErrEmployeeInactive
	}

	checkIn, err := time.Parse(time.RFC3339, input.CheckInTime)
	if err != nil {
		return Entry{}, &RuleError{Message: "checkInTime must be an RFC 3339 timestamp"}
	}
	checkOut, err := time.Parse(time.RFC3339, input.CheckOutTime)
	if err != nil {
		return Entry{}, &RuleError{Message: "checkOutTime must be an RFC 3339 timestamp"}
	}
	if workHours := checkOut.Sub(checkIn).Hours(); workHours > maxWorkHours {
		return Entry{}, &RuleError{Message: fmt.Sprintf("total work duration cannot exceed %d hours", maxWorkHours)}
	}

	if len(input.Breaks) > 0 {
		totalBreak, err := totalBreakMinutes(input.Breaks)
		if err != nil {
			return Entry{}, err
		}
		if totalBreak < minBreakMinutes {
			return Entry{}, &RuleError{Message: fmt.Sprintf("total break time must be at least %d minutes", minBreakMinutes)}
		}
	}

	// The rule applies only when the contract explicitly disallows remote
	// work; an absent field places no location requirement.
	if allowRemote, ok := contract["allowRemoteWork"].(bool); ok && !allowRemote && input.Location == "" {
		return Entry{}, &RuleError{Message: "location data is required for office-based work"}
	}

	attendanceID := uuid.NewString()
	overtime := *input.TotalHours - standardHours
	if overtime < 0 {
		overtime = 0
	}

	doc := recordstore.Doc{
		"attendanceId":  attendanceID,
		"formType":      "ATTENDANCE",
		"employeeId":    employeeID,
		"checkInTime":   input.CheckInTime,
		"checkOutTime":  input.CheckOutTime,
		"wbsCode":       input.WBSCode,
		"costCenter":    input.CostCenter,
		"projectCode":   input.ProjectCode,
		"taskCategory":  input.TaskCategory,
		"breaks":        breakDocs(input.Breaks),
		"totalHours":    *input.TotalHours,
		"overtimeHours": overtime,
		"createdAt":     time.Now().UTC().Format(time.RFC3339),
	}
	if input.Location != "" {
		cipher, err := s.crypto.EncryptField(input.Location)
		if err != nil {
			return Entry{}, fmt.Errorf("encrypt location: %w", err)
		}
		doc["location"] = cipher
	}
	if input.Notes != "" {
		cipher, err := s.crypto.EncryptField(input.Notes)
		if err != nil {
			return Entry{}, fmt.Errorf("encrypt notes: %w", err)
		}
		doc["notes"] = cipher
	}

	op := recordstore.PutOp{
		Item: recordstore.Item{
			PK:  employee.EntityKey(employeeID),
			SK:  sortKeyPrefix + checkIn.UTC().Format("2006-01-02"),
			Doc: doc,
		},
		Condition: recordstore.Condition{NotExists: true},
	}
	if err := s.store.Put(ctx, op); err != nil {
		if errors.Is(err, recordstore.ErrConditionFailed) {
			return Entry{}, ErrDuplicateEntry
		}
		return Entry{}, fmt.Errorf("put attendance entry: %w", err)
	}

	slog.Info("attendance entry created",
		"employeeId", employeeID,
		"attendanceId", attendanceID,
		"overtimeHours", overtime)
	return Entry{AttendanceID: attendanceID, OvertimeHours: overtime}, nil
}

func validateInput(input Input) error {
	switch {
	case input.CheckInTime == "":
		return &RuleError{Message: "missing or empty required field 'checkInTime'"}
	case input.CheckOutTime == "":
		return &RuleError{Message: "missing or empty required field 'checkOutTime'"}
	case input.TotalHours == nil:
		return &RuleError{Message: "missing or empty required field 'totalHours'"}
	case input.TaskCategory == "":
		return &RuleError{Message: "missing or empty required field 'taskCategory'"}
	case input.WBSCode == "":
		return &RuleError{Message: "missing or empty required field 'wbsCode'"}
	case input.CostCenter == "":
		return &RuleError{Message: "missing or empty required field 'costCenter'"}
	case input.ProjectCode == "":
		return &RuleError{Message: "missing or empty required field 'projectCode'"}
	}
	return nil
}

func totalBreakMinutes(breaks []Break) (float64, error) {
	var total float64
	for _, b := range breaks {
		if b.Start == "" || b.End == "" {
			continue
		}
		start, err := time.Parse(time.RFC3339, b.Start)
		if err != nil {
			return 0, &RuleError{Message: "break start must be an RFC 3339 timestamp"}
		}
		end, err := time.Parse(time.RFC3339, b.End)
		if err != nil {
			return 0, &RuleError{Message: "break end must be an RFC 3339 timestamp"}
		}
		total += end.Sub(start).Minutes()
	}
	return total, nil
}

func breakDocs(breaks []Break) []any {
	out := make([]any, 0, len(breaks))
	for _, b := range breaks {
		out = append(out, map[string]any{"start": b.Start, "end": b.End})
	}
	return out
}
