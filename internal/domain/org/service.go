package org

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"hrms/internal/domain/employee"
	cryptoutil "hrms/internal/platform/crypto"
	"hrms/internal/recordstore"
)

// Service implements the organization operations over the record store.
// Departments and positions reference employees, so the service reads
// employee rows for foreign-key checks but never writes them.
type Service struct {
	store  recordstore.Store
	crypto *cryptoutil.Service
}

func NewService(store recordstore.Store, crypto *cryptoutil.Service) *Service {
	return &Service{store: store, crypto: crypto}
}

func entityKey(entityType, id string) recordstore.Key {
	return recordstore.Key{
		PK: keyPrefix + entityType + "#" + id,
		SK: metadataKey,
	}
}

// CreateDepartment validates the manager and optional parent department,
// then writes the metadata row. Name, description, and comments are stored
// encrypted.
func (s *Service) CreateDepartment(ctx context.Context, input DepartmentInput, createdBy string) (string, error) {
	if err := validateDepartment(input); err != nil {
		return "", err
	}
	if err := s.requireActiveEmployee(ctx, input.DepartmentManager, "Department Manager"); err != nil {
		return "", err
	}

	if input.ParentDepartment != "" {
		parent, err := s.store.Get(ctx, entityKey(typeDepartment, input.ParentDepartment))
		if errors.Is(err, recordstore.ErrNotFound) {
			return "", &ReferenceError{Message: fmt.Sprintf("parent department %s not found", input.ParentDepartment)}
		}
		if err != nil {
			return "", fmt.Errorf("check parent department: %w", err)
		}
		if allow, _ := parent.Doc["allowSubDepartments"].(bool); !allow {
			return "", &ReferenceError{Message: fmt.Sprintf("parent department %s does not allow sub-departments", input.ParentDepartment)}
		}
	}

	departmentID := uuid.NewString()
	doc := recordstore.Doc{
		"departmentId":        departmentID,
		"departmentCode":      input.DepartmentCode,
		"departmentType":      input.DepartmentType,
		"costCenter":          input.CostCenter,
		"departmentManager":   input.DepartmentManager,
		"organizationLevel":   input.OrganizationLevel,
		"allowSubDepartments": *input.AllowSubDepartments,
		"maximumPositions":    *input.MaximumPositions,
		"reportingStructure":  input.ReportingStructure,
		"budgetControl":       input.BudgetControl,
		"createdBy":           createdBy,
		"createdAt":           now(),
	}
	if input.ParentDepartment != "" {
		doc["parentDepartment"] = input.ParentDepartment
	}
	if err := s.encryptInto(doc, "departmentName", input.DepartmentName); err != nil {
		return "", err
	}
	if input.Description != "" {
		if err := s.encryptInto(doc, "description", input.Description); err != nil {
			return "", err
		}
	}
	if input.Comments != "" {
		if err := s.encryptInto(doc, "comments", input.Comments); err != nil {
			return "", err
		}
	}

	if err := s.putNew(ctx, entityKey(typeDepartment, departmentID), doc); err != nil {
		return "", err
	}
	slog.Info("department created", "departmentId", departmentID, "createdBy", createdBy)
	return departmentID, nil
}

func (s *Service) GetDepartment(ctx context.Context, departmentID string) (Department, error) {
	item, err := s.store.Get(ctx, entityKey(typeDepartment, departmentID))
	if errors.Is(err, recordstore.ErrNotFound) {
		return Department{}, ErrNotFound
	}
	if err != nil {
		return Department{}, fmt.Errorf("get department %s: %w", departmentID, err)
	}
	return s.assembleDepartment(item.Doc), nil
}

func (s *Service) ListDepartments(ctx context.Context) ([]Department, error) {
	items, err := s.store.QueryPrefix(ctx, keyPrefix+typeDepartment+"#")
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	out := make([]Department, 0, len(items))
	for _, item := range items {
		out = append(out, s.assembleDepartment(item.Doc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

// CreatePosition validates the reporting manager and the owning department
// before writing.
func (s *Service) CreatePosition(ctx context.Context, input PositionInput, createdBy string) (string, error) {
	if err := validatePosition(input); err != nil {
		return "", err
	}
	if err := s.requireActiveEmployee(ctx, input.ReportsTo, "Manager"); err != nil {
		return "", err
	}
	if _, err := s.store.Get(ctx, entityKey(typeDepartment, input.Department)); err != nil {
		if errors.Is(err, recordstore.ErrNotFound) {
			return "", &ReferenceError{Message: fmt.Sprintf("department %s not found", input.Department)}
		}
		return "", fmt.Errorf("check department: %w", err)
	}

	positionID := uuid.NewString()
	doc := recordstore.Doc{
		"positionId":      positionID,
		"positionTitle":   input.PositionTitle,
		"positionCode":    input.PositionCode,
		"department":      input.Department,
		"positionLevel":   input.PositionLevel,
		"employmentType":  input.EmploymentType,
		"reportsTo":       input.ReportsTo,
		"education":       input.Education,
		"skills":          toAnySlice(input.Skills),
		"certifications":  toAnySlice(input.Certifications),
		"salaryGrade":     input.SalaryGrade,
		"competencyLevel": input.CompetencyLevel,
		"createdBy":       createdBy,
		"createdAt":       now(),
	}
	if input.PositionDescription != "" {
		if err := s.encryptInto(doc, "positionDescription", input.PositionDescription); err != nil {
			return "", err
		}
	}
	if input.Comments != "" {
		if err := s.encryptInto(doc, "comments", input.Comments); err != nil {
			return "", err
		}
	}

	if err := s.putNew(ctx, entityKey(typePosition, positionID), doc); err != nil {
		return "", err
	}
	slog.Info("position created", "positionId", positionID, "createdBy", createdBy)
	return positionID, nil
}

func (s *Service) GetPosition(ctx context.Context, positionID string) (Position, error) {
	item, err := s.store.Get(ctx, entityKey(typePosition, positionID))
	if errors.Is(err, recordstore.ErrNotFound) {
		return Position{}, ErrNotFound
	}
	if err != nil {
		return Position{}, fmt.Errorf("get position %s: %w", positionID, err)
	}
	return s.assemblePosition(item.Doc), nil
}

func (s *Service) ListPositions(ctx context.Context) ([]Position, error) {
	items, err := s.store.QueryPrefix(ctx, keyPrefix+typePosition+"#")
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	out := make([]Position, 0, len(items))
	for _, item := range items {
		out = append(out, s.assemblePosition(item.Doc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

// CreateOrgUnit creates a unit under an existing department and copies the
// department's cost center onto the unit.
func (s *Service) CreateOrgUnit(ctx context.Context, departmentID string, input OrgUnitInput, createdBy string) (string, error) {
	if err := validateOrgUnit(input); err != nil {
		return "", err
	}

	dept, err := s.store.Get(ctx, entityKey(typeDepartment, departmentID))
	if errors.Is(err, recordstore.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("check department: %w", err)
	}
	costCenter, _ := dept.Doc["costCenter"].(string)
	if costCenter == "" {
		return "", fmt.Errorf("department %s has no cost center assigned", departmentID)
	}

	unitID := uuid.NewString()
	doc := recordstore.Doc{
		"unitId":         unitID,
		"departmentId":   departmentID,
		"effectiveDate":  input.EffectiveDate,
		"costCenterInfo": costCenter,
		"createdBy":      createdBy,
		"createdAt":      now(),
	}
	if err := s.encryptInto(doc, "unitName", input.UnitName); err != nil {
		return "", err
	}
	if err := s.encryptInto(doc, "description", input.Description); err != nil {
		return "", err
	}

	if err := s.putNew(ctx, entityKey(typeOrgUnit, unitID), doc); err != nil {
		return "", err
	}
	slog.Info("org unit created", "unitId", unitID, "departmentId", departmentID)
	return unitID, nil
}

func (s *Service) GetOrgUnit(ctx context.Context, unitID string) (OrgUnit, error) {
	item, err := s.store.Get(ctx, entityKey(typeOrgUnit, unitID))
	if errors.Is(err, recordstore.ErrNotFound) {
		return OrgUnit{}, ErrNotFound
	}
	if err != nil {
		return OrgUnit{}, fmt.Errorf("get org unit %s: %w", unitID, err)
	}
	return s.assembleOrgUnit(item.Doc), nil
}

func (s *Service) ListOrgUnits(ctx context.Context) ([]OrgUnit, error) {
	items, err := s.store.QueryPrefix(ctx, keyPrefix+typeOrgUnit+"#")
	if err != nil {
		return nil, fmt.Errorf("list org units: %w", err)
	}
	out := make([]OrgUnit, 0, len(items))
	for _, item := range items {
		out = append(out, s.assembleOrgUnit(item.Doc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

func (s *Service) CreateJobClassification(ctx context.Context, input JobClassificationInput, createdBy string) (string, error) {
	if err := validateJobClassification(input); err != nil {
		return "", err
	}

	id := uuid.NewString()
	doc := recordstore.Doc{
		"jobClassificationId": id,
		"jobFamily":           input.JobFamily,
		"jobTitle":            input.JobTitle,
		"payScale":            input.PayScale,
		"createdBy":           createdBy,
		"createdAt":           now(),
	}
	if input.Responsibilities != "" {
		if err := s.encryptInto(doc, "responsibilities", input.Responsibilities); err != nil {
			return "", err
		}
	}

	if err := s.putNew(ctx, entityKey(typeJobClassification, id), doc); err != nil {
		return "", err
	}
	slog.Info("job classification created", "jobClassificationId", id)
	return id, nil
}

func (s *Service) GetJobClassification(ctx context.Context, id string) (JobClassification, error) {
	item, err := s.store.Get(ctx, entityKey(typeJobClassification, id))
	if errors.Is(err, recordstore.ErrNotFound) {
		return JobClassification{}, ErrNotFound
	}
	if err != nil {
		return JobClassification{}, fmt.Errorf("get job classification %s: %w", id, err)
	}
	return s.assembleJobClassification(item.Doc), nil
}

func (s *Service) ListJobClassifications(ctx context.Context) ([]JobClassification, error) {
	items, err := s.store.QueryPrefix(ctx, keyPrefix+typeJobClassification+"#")
	if err != nil {
		return nil, fmt.Errorf("list job classifications: %w", err)
	}
	out := make([]JobClassification, 0, len(items))
	for _, item := range items {
		out = append(out, s.assembleJobClassification(item.Doc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

// requireActiveEmployee checks that the referenced employee exists and is
// ACTIVE, reading only the personal-data section.
func (s *Service) requireActiveEmployee(ctx context.Context, employeeID, role string) error {
	key := recordstore.Key{
		PK: employee.EntityKey(employeeID),
		SK: employee.SectionPersonalData.Key(),
	}
	item, err := s.store.Get(ctx, key)
	if errors.Is(err, recordstore.ErrNotFound) {
		return &ReferenceError{Message: fmt.Sprintf("%s with ID %s not found", role, employeeID)}
	}
	if err != nil {
		return fmt.Errorf("check employee %s: %w", employeeID, err)
	}
	if status, _ := item.Doc["status"].(string); status != employee.StatusActive {
		return &ReferenceError{Message: fmt.Sprintf("%s with ID %s is not active", role, employeeID)}
	}
	return nil
}

func (s *Service) putNew(ctx context.Context, key recordstore.Key, doc recordstore.Doc) error {
	op := recordstore.PutOp{
		Item:      recordstore.Item{PK: key.PK, SK: key.SK, Doc: doc},
		Condition: recordstore.Condition{NotExists: true},
	}
	if err := s.store.Put(ctx, op); err != nil {
		return fmt.Errorf("put %s: %w", key.PK, err)
	}
	return nil
}

func (s *Service) encryptInto(doc recordstore.Doc, field, plain string) error {
	cipher, err := s.crypto.EncryptField(plain)
	if err != nil {
		return fmt.Errorf("encrypt %s: %w", field, err)
	}
	doc[field] = cipher
	return nil
}

// decrypt returns the plaintext for a stored ciphertext field, or "" when
// the field is absent. A decryption failure is logged and rendered empty
// rather than failing the whole read.
func (s *Service) decrypt(doc recordstore.Doc, field string) string {
	value, _ := doc[field].(string)
	if value == "" {
		return ""
	}
	plain, err := s.crypto.DecryptField(value)
	if err != nil {
		slog.Warn("failed to decrypt org field", "field", field, "error", err)
		return ""
	}
	return plain
}

func (s *Service) assembleDepartment(doc recordstore.Doc) Department {
	return Department{
		DepartmentID:        getString(doc, "departmentId"),
		DepartmentName:      s.decrypt(doc, "departmentName"),
		DepartmentCode:      getString(doc, "departmentCode"),
		DepartmentType:      getString(doc, "departmentType"),
		CostCenter:          getString(doc, "costCenter"),
		DepartmentManager:   getString(doc, "departmentManager"),
		ParentDepartment:    getString(doc, "parentDepartment"),
		Description:         s.decrypt(doc, "description"),
		Comments:            s.decrypt(doc, "comments"),
		OrganizationLevel:   getString(doc, "organizationLevel"),
		AllowSubDepartments: getBool(doc, "allowSubDepartments"),
		MaximumPositions:    getInt(doc, "maximumPositions"),
		ReportingStructure:  getString(doc, "reportingStructure"),
		BudgetControl:       getString(doc, "budgetControl"),
		CreatedBy:           getString(doc, "createdBy"),
		CreatedAt:           getString(doc, "createdAt"),
	}
}

func (s *Service) assemblePosition(doc recordstore.Doc) Position {
	return Position{
		PositionID:          getString(doc, "positionId"),
		PositionTitle:       getString(doc, "positionTitle"),
		PositionCode:        getString(doc, "positionCode"),
		Department:          getString(doc, "department"),
		PositionLevel:       getString(doc, "positionLevel"),
		EmploymentType:      getString(doc, "employmentType"),
		ReportsTo:           getString(doc, "reportsTo"),
		PositionDescription: s.decrypt(doc, "positionDescription"),
		Education:           getString(doc, "education"),
		Skills:              getStrings(doc, "skills"),
		Certifications:      getStrings(doc, "certifications"),
		SalaryGrade:         getString(doc, "salaryGrade"),
		CompetencyLevel:     getString(doc, "competencyLevel"),
		Comments:            s.decrypt(doc, "comments"),
		CreatedBy:           getString(doc, "createdBy"),
		CreatedAt:           getString(doc, "createdAt"),
	}
}

func (s *Service) assembleOrgUnit(doc recordstore.Doc) OrgUnit {
	return OrgUnit{
		UnitID:         getString(doc, "unitId"),
		DepartmentID:   getString(doc, "departmentId"),
		UnitName:       s.decrypt(doc, "unitName"),
		EffectiveDate:  getString(doc, "effectiveDate"),
		Description:    s.decrypt(doc, "description"),
		CostCenterInfo: getString(doc, "costCenterInfo"),
		CreatedBy:      getString(doc, "createdBy"),
		CreatedAt:      getString(doc, "createdAt"),
	}
}

func (s *Service) assembleJobClassification(doc recordstore.Doc) JobClassification {
	return JobClassification{
		JobClassificationID: getString(doc, "jobClassificationId"),
		JobFamily:           getString(doc, "jobFamily"),
		JobTitle:            getString(doc, "jobTitle"),
		PayScale:            getString(doc, "payScale"),
		Responsibilities:    s.decrypt(doc, "responsibilities"),
		CreatedBy:           getString(doc, "createdBy"),
		CreatedAt:           getString(doc, "createdAt"),
	}
}

func validateDepartment(input DepartmentInput) error {
	switch {
	case input.DepartmentName == "":
		return &ValidationError{Field: "departmentName"}
	case input.DepartmentCode == "":
		return &ValidationError{Field: "departmentCode"}
	case input.DepartmentType == "":
		return &ValidationError{Field: "departmentType"}
	case input.CostCenter == "":
		return &ValidationError{Field: "costCenter"}
	case input.DepartmentManager == "":
		return &ValidationError{Field: "departmentManager"}
	case input.OrganizationLevel == "":
		return &ValidationError{Field: "organizationLevel"}
	case input.AllowSubDepartments == nil:
		return &ValidationError{Field: "allowSubDepartments"}
	case input.MaximumPositions == nil:
		return &ValidationError{Field: "maximumPositions"}
	case input.ReportingStructure == "":
		return &ValidationError{Field: "reportingStructure"}
	case input.BudgetControl == "":
		return &ValidationError{Field: "budgetControl"}
	}
	return nil
}

func validatePosition(input PositionInput) error {
	switch {
	case input.PositionTitle == "":
		return &ValidationError{Field: "positionTitle"}
	case input.PositionCode == "":
		return &ValidationError{Field: "positionCode"}
	case input.Department == "":
		return &ValidationError{Field: "department"}
	case input.PositionLevel == "":
		return &ValidationError{Field: "positionLevel"}
	case input.EmploymentType == "":
		return &ValidationError{Field: "employmentType"}
	case input.ReportsTo == "":
		return &ValidationError{Field: "reportsTo"}
	case input.Education == "":
		return &ValidationError{Field: "education"}
	case len(input.Skills) == 0:
		return &ValidationError{Field: "skills"}
	case len(input.Certifications) == 0:
		return &ValidationError{Field: "certifications"}
	case input.SalaryGrade == "":
		return &ValidationError{Field: "salaryGrade"}
	case input.CompetencyLevel == "":
		return &ValidationError{Field: "competencyLevel"}
	}
	return nil
}

func validateOrgUnit(input OrgUnitInput) error {
	switch {
	case input.UnitName == "":
		return &ValidationError{Field: "unitName"}
	case input.EffectiveDate == "":
		return &ValidationError{Field: "effectiveDate"}
	case input.Description == "":
		return &ValidationError{Field: "description"}
	}
	return nil
}

func validateJobClassification(input JobClassificationInput) error {
	switch {
	case input.JobFamily == "":
		return &ValidationError{Field: "jobFamily"}
	case input.JobTitle == "":
		return &ValidationError{Field: "jobTitle"}
	case input.PayScale == "":
		return &ValidationError{Field: "payScale"}
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func getString(doc recordstore.Doc, field string) string {
	v, _ := doc[field].(string)
	return v
}

func getBool(doc recordstore.Doc, field string) bool {
	v, _ := doc[field].(bool)
	return v
}

func getInt(doc recordstore.Doc, field string) int {
	switch v := doc[field].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

func getStrings(doc recordstore.Doc, field string) []string {
	raw, ok := doc[field].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
