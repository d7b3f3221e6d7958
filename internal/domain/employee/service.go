package employee

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	cryptoutil "hrms/internal/platform/crypto"
	"hrms/internal/recordstore"
)

// Service owns the multi-section employee aggregate: all-or-nothing
// creation, assembly on read, atomic full and partial replacement, and the
// soft-delete status flip. Multi-section atomicity is delegated entirely to
// the record store's transactional write.
type Service struct {
	store  recordstore.Store
	crypto *cryptoutil.Service
}

func NewService(store recordstore.Store, crypto *cryptoutil.Service) *Service {
	return &Service{store: store, crypto: crypto}
}

// Create validates the full payload, generates the entity ID, encrypts the
// sensitive fields and writes all three sections in one transaction.
// Optional fields that were not supplied are omitted from the stored
// documents rather than written as empty placeholders.
func (s *Service) Create(ctx context.Context, in EmployeeInput) (string, error) {
	if err := validateFull(in); err != nil {
		return "", err
	}

	employeeID := uuid.NewString()
	pk := EntityKey(employeeID)

	personal, err := s.personalDoc(in.PersonalDataInput, StatusActive)
	if err != nil {
		return "", err
	}
	contact, err := s.contactDoc(in.ContactInfoInput)
	if err != nil {
		return "", err
	}
	contract := contractDoc(in.ContractDetailsInput)

	ops := []recordstore.WriteOp{
		{Put: &recordstore.PutOp{
			Item:      recordstore.Item{PK: pk, SK: SectionPersonalData.Key(), Doc: personal},
			Condition: recordstore.Condition{NotExists: true},
		}},
		{Put: &recordstore.PutOp{
			Item:      recordstore.Item{PK: pk, SK: SectionContactInfo.Key(), Doc: contact},
			Condition: recordstore.Condition{NotExists: true},
		}},
		{Put: &recordstore.PutOp{
			Item:      recordstore.Item{PK: pk, SK: SectionContractDetails.Key(), Doc: contract},
			Condition: recordstore.Condition{NotExists: true},
		}},
	}

	if err := s.store.TransactWrite(ctx, ops); err != nil {
		if errors.Is(err, recordstore.ErrTransactionCanceled) {
			return "", ErrAlreadyExists
		}
		return "", fmt.Errorf("create employee %s: %w", employeeID, err)
	}
	return employeeID, nil
}

// Get fetches every section in one query, rejects missing or inactive
// employees, and assembles the decrypted nested aggregate.
func (s *Service) Get(ctx context.Context, employeeID string) (*Employee, error) {
	items, err := s.store.Query(ctx, EntityKey(employeeID))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}

	combined := recordstore.Doc{}
	var personal recordstore.Doc
	for _, item := range items {
		// The partition also holds attendance rows; only section documents
		// contribute to the aggregate.
		if !strings.HasPrefix(item.SK, SectionKeyPrefix) {
			continue
		}
		if item.SK == SectionPersonalData.Key() {
			personal = item.Doc
		}
		for k, v := range item.Doc {
			combined[k] = v
		}
	}
	if personal == nil || getString(personal, "status") != StatusActive {
		return nil, ErrNotFound
	}

	return s.assemble(combined), nil
}

// Update is a full replace: every section is rebuilt from the payload and
// written in one transaction whose precondition, attached to the
// personal-data section, requires the employee to exist and be ACTIVE.
// Status is forced back to ACTIVE; omitted optional fields are dropped.
func (s *Service) Update(ctx context.Context, employeeID string, in EmployeeInput) error {
	if err := validateFull(in); err != nil {
		return err
	}

	pk := EntityKey(employeeID)
	personal, err := s.personalDoc(in.PersonalDataInput, StatusActive)
	if err != nil {
		return err
	}
	contact, err := s.contactDoc(in.ContactInfoInput)
	if err != nil {
		return err
	}
	contract := contractDoc(in.ContractDetailsInput)

	ops := []recordstore.WriteOp{
		{Put: &recordstore.PutOp{
			Item: recordstore.Item{PK: pk, SK: SectionPersonalData.Key(), Doc: personal},
			Condition: recordstore.Condition{
				Exists:      true,
				FieldEquals: map[string]any{"status": StatusActive},
			},
		}},
		{Put: &recordstore.PutOp{Item: recordstore.Item{PK: pk, SK: SectionContactInfo.Key(), Doc: contact}}},
		{Put: &recordstore.PutOp{Item: recordstore.Item{PK: pk, SK: SectionContractDetails.Key(), Doc: contract}}},
	}

	if err := s.store.TransactWrite(ctx, ops); err != nil {
		if errors.Is(err, recordstore.ErrTransactionCanceled) {
			return ErrNotFound
		}
		return fmt.Errorf("update employee %s: %w", employeeID, err)
	}
	return nil
}

// UpdatePersonalData replaces the personal-data fields only. The status
// precondition and the write target the same item, so a single conditional
// update is already race free.
func (s *Service) UpdatePersonalData(ctx context.Context, employeeID string, in PersonalDataInput) error {
	if err := validatePersonal(in); err != nil {
		return err
	}
	set, err := s.personalDoc(in, "")
	if err != nil {
		return err
	}

	err = s.store.Update(ctx, recordstore.UpdateOp{
		Key: recordstore.Key{PK: EntityKey(employeeID), SK: SectionPersonalData.Key()},
		Set: set,
		Condition: recordstore.Condition{
			Exists:      true,
			FieldEquals: map[string]any{"status": StatusActive},
		},
	})
	if errors.Is(err, recordstore.ErrConditionFailed) {
		return ErrNotFound
	}
	return err
}

// UpdateContactInfo replaces contact fields. The ACTIVE check lives on a
// different item, so the condition check and the write must share one
// transaction: otherwise the status could flip between check and write.
func (s *Service) UpdateContactInfo(ctx context.Context, employeeID string, in ContactInfoInput) error {
	if err := validateContact(in); err != nil {
		return err
	}
	set, err := s.contactDoc(in)
	if err != nil {
		return err
	}
	return s.updateGatedSection(ctx, employeeID, SectionContactInfo, set)
}

// UpdateContractDetails replaces contract fields, gated the same way as
// UpdateContactInfo.
func (s *Service) UpdateContractDetails(ctx context.Context, employeeID string, in ContractDetailsInput) error {
	if err := validateContract(in); err != nil {
		return err
	}
	return s.updateGatedSection(ctx, employeeID, SectionContractDetails, contractDoc(in))
}

func (s *Service) updateGatedSection(ctx context.Context, employeeID string, section Section, set recordstore.Doc) error {
	pk := EntityKey(employeeID)
	ops := []recordstore.WriteOp{
		{Check: &recordstore.CheckOp{
			Key: recordstore.Key{PK: pk, SK: SectionPersonalData.Key()},
			Condition: recordstore.Condition{
				Exists:      true,
				FieldEquals: map[string]any{"status": StatusActive},
			},
		}},
		{Update: &recordstore.UpdateOp{
			Key: recordstore.Key{PK: pk, SK: section.Key()},
			Set: set,
		}},
	}
	if err := s.store.TransactWrite(ctx, ops); err != nil {
		if errors.Is(err, recordstore.ErrTransactionCanceled) {
			return ErrNotFound
		}
		return fmt.Errorf("update %s for employee %s: %w", SectionLabel(section.Key()), employeeID, err)
	}
	return nil
}

// Deactivate soft-deletes: one conditional update flipping status to
// INACTIVE, valid only as a transition from ACTIVE. "Already inactive" and
// "never existed" are indistinguishable to the caller.
func (s *Service) Deactivate(ctx context.Context, employeeID string) error {
	err := s.store.Update(ctx, recordstore.UpdateOp{
		Key: recordstore.Key{PK: EntityKey(employeeID), SK: SectionPersonalData.Key()},
		Set: recordstore.Doc{"status": StatusInactive},
		Condition: recordstore.Condition{
			Exists:      true,
			FieldEquals: map[string]any{"status": StatusActive},
		},
	})
	if errors.Is(err, recordstore.ErrConditionFailed) {
		return ErrNotFound
	}
	return err
}

// GetPersonalData reads one section with the same active gating as Get.
func (s *Service) GetPersonalData(ctx context.Context, employeeID string) (*PersonalData, error) {
	doc, err := s.activeSectionDoc(ctx, employeeID, SectionPersonalData)
	if err != nil {
		return nil, err
	}
	out := s.assemble(doc).PersonalData
	return &out, nil
}

func (s *Service) GetContactInfo(ctx context.Context, employeeID string) (*ContactInfo, error) {
	doc, err := s.activeSectionDoc(ctx, employeeID, SectionContactInfo)
	if err != nil {
		return nil, err
	}
	out := s.assemble(doc).ContactInfo
	return &out, nil
}

func (s *Service) GetContractDetails(ctx context.Context, employeeID string) (*ContractDetails, error) {
	doc, err := s.activeSectionDoc(ctx, employeeID, SectionContractDetails)
	if err != nil {
		return nil, err
	}
	out := s.assemble(doc).ContractDetails
	return &out, nil
}

func (s *Service) activeSectionDoc(ctx context.Context, employeeID string, section Section) (recordstore.Doc, error) {
	pk := EntityKey(employeeID)
	personal, err := s.store.Get(ctx, recordstore.Key{PK: pk, SK: SectionPersonalData.Key()})
	if errors.Is(err, recordstore.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if getString(personal.Doc, "status") != StatusActive {
		return nil, ErrNotFound
	}
	if section == SectionPersonalData {
		return personal.Doc, nil
	}
	item, err := s.store.Get(ctx, recordstore.Key{PK: pk, SK: section.Key()})
	if errors.Is(err, recordstore.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.Doc, nil
}

// --- document construction ---

func (s *Service) personalDoc(in PersonalDataInput, status string) (recordstore.Doc, error) {
	doc := recordstore.Doc{
		"dateOfBirth":   in.DateOfBirth,
		"gender":        in.Gender,
		"nationality":   in.Nationality,
		"maritalStatus": in.MaritalStatus,
	}
	if in.Age != nil {
		doc["age"] = *in.Age
	}
	if status != "" {
		doc["status"] = status
	}
	if err := s.encryptInto(doc, map[string]string{
		"firstName":  in.FirstName,
		"lastName":   in.LastName,
		"nationalId": in.NationalID,
	}); err != nil {
		return nil, err
	}
	if in.MiddleName != "" {
		enc, err := s.crypto.EncryptField(in.MiddleName)
		if err != nil {
			return nil, err
		}
		doc["middleName"] = enc
	}
	if in.PreferredName != "" {
		doc["preferredName"] = in.PreferredName
	}
	return doc, nil
}

func (s *Service) contactDoc(in ContactInfoInput) (recordstore.Doc, error) {
	doc := recordstore.Doc{}
	if err := s.encryptInto(doc, map[string]string{
		"email":      in.Email,
		"phone":      in.Phone,
		"address":    in.Address,
		"city":       in.City,
		"state":      in.State,
		"postalCode": in.PostalCode,
		"country":    in.Country,
	}); err != nil {
		return nil, err
	}
	optional := map[string]string{
		"altPhone":                     in.AltPhone,
		"emergencyContactName":         in.EmergencyContactName,
		"emergencyContactPhone":        in.EmergencyContactPhone,
		"emergencyContactRelationship": in.EmergencyContactRelationship,
	}
	for field, value := range optional {
		if value == "" {
			continue
		}
		enc, err := s.crypto.EncryptField(value)
		if err != nil {
			return nil, err
		}
		doc[field] = enc
	}
	return doc, nil
}

func contractDoc(in ContractDetailsInput) recordstore.Doc {
	doc := recordstore.Doc{
		"role":         in.Role,
		"department":   in.Department,
		"jobLevel":     in.JobLevel,
		"contractType": in.ContractType,
		"salaryGrade":  in.SalaryGrade,
	}
	if in.SalaryPay != nil {
		doc["salaryPay"] = *in.SalaryPay
	}
	if in.Allowance != nil {
		doc["allowance"] = *in.Allowance
	}
	if in.AllowRemoteWork != nil {
		doc["allowRemoteWork"] = *in.AllowRemoteWork
	}
	return doc
}

func (s *Service) encryptInto(doc recordstore.Doc, fields map[string]string) error {
	for field, value := range fields {
		enc, err := s.crypto.EncryptField(value)
		if err != nil {
			return fmt.Errorf("encrypt %s: %w", field, err)
		}
		doc[field] = enc
	}
	return nil
}

// --- assembly ---

// assemble builds the nested response from a flat merged document,
// decrypting every field the schema marks encrypted and defaulting every
// optional field to an explicit empty value.
func (s *Service) assemble(combined recordstore.Doc) *Employee {
	return &Employee{
		PersonalData: PersonalData{
			FirstName:     s.field(combined, "firstName"),
			LastName:      s.field(combined, "lastName"),
			MiddleName:    s.field(combined, "middleName"),
			PreferredName: s.field(combined, "preferredName"),
			NationalID:    s.field(combined, "nationalId"),
			DateOfBirth:   s.field(combined, "dateOfBirth"),
			Age:           int(getFloat(combined, "age")),
			Gender:        s.field(combined, "gender"),
			Nationality:   s.field(combined, "nationality"),
			MaritalStatus: s.field(combined, "maritalStatus"),
		},
		ContactInfo: ContactInfo{
			Email:      s.field(combined, "email"),
			Phone:      s.field(combined, "phone"),
			AltPhone:   s.field(combined, "altPhone"),
			Address:    s.field(combined, "address"),
			City:       s.field(combined, "city"),
			State:      s.field(combined, "state"),
			PostalCode: s.field(combined, "postalCode"),
			Country:    s.field(combined, "country"),
			EmergencyContact: EmergencyContact{
				Name:         s.field(combined, "emergencyContactName"),
				Phone:        s.field(combined, "emergencyContactPhone"),
				Relationship: s.field(combined, "emergencyContactRelationship"),
			},
		},
		ContractDetails: ContractDetails{
			Role:            s.field(combined, "role"),
			Department:      s.field(combined, "department"),
			JobLevel:        s.field(combined, "jobLevel"),
			ContractType:    s.field(combined, "contractType"),
			SalaryGrade:     s.field(combined, "salaryGrade"),
			SalaryPay:       getFloat(combined, "salaryPay"),
			Allowance:       getFloatPtr(combined, "allowance"),
			AllowRemoteWork: getBool(combined, "allowRemoteWork"),
		},
	}
}

// field returns the plaintext value of a named field, decrypting when the
// schema says so. A missing optional field becomes "".
func (s *Service) field(doc recordstore.Doc, name string) string {
	value := getString(doc, name)
	if value == "" || !Encrypted(name) {
		return value
	}
	plain, err := s.crypto.DecryptField(value)
	if err != nil {
		slog.Warn("field decryption failed on read", "field", name, "err", err)
		return ""
	}
	return plain
}

func getString(doc recordstore.Doc, key string) string {
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}

func getFloat(doc recordstore.Doc, key string) float64 {
	switch v := doc[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func getBool(doc recordstore.Doc, key string) bool {
	v, _ := doc[key].(bool)
	return v
}

func getFloatPtr(doc recordstore.Doc, key string) *float64 {
	if _, ok := doc[key]; !ok {
		return nil
	}
	v := getFloat(doc, key)
	return &v
}

// --- validation ---

func validateFull(in EmployeeInput) error {
	if err := validatePersonal(in.PersonalDataInput); err != nil {
		return err
	}
	if err := validateContact(in.ContactInfoInput); err != nil {
		return err
	}
	return validateContract(in.ContractDetailsInput)
}

func validatePersonal(in PersonalDataInput) error {
	checks := []struct {
		field string
		ok    bool
	}{
		{"firstName", in.FirstName != ""},
		{"lastName", in.LastName != ""},
		{"nationalId", in.NationalID != ""},
		{"dateOfBirth", in.DateOfBirth != ""},
		{"age", in.Age != nil},
		{"gender", in.Gender != ""},
		{"nationality", in.Nationality != ""},
		{"maritalStatus", in.MaritalStatus != ""},
	}
	return firstMissing(checks)
}

func validateContact(in ContactInfoInput) error {
	checks := []struct {
		field string
		ok    bool
	}{
		{"email", in.Email != ""},
		{"phone", in.Phone != ""},
		{"address", in.Address != ""},
		{"city", in.City != ""},
		{"state", in.State != ""},
		{"postalCode", in.PostalCode != ""},
		{"country", in.Country != ""},
	}
	return firstMissing(checks)
}

func validateContract(in ContractDetailsInput) error {
	checks := []struct {
		field string
		ok    bool
	}{
		{"role", in.Role != ""},
		{"department", in.Department != ""},
		{"jobLevel", in.JobLevel != ""},
		{"contractType", in.ContractType != ""},
		{"salaryGrade", in.SalaryGrade != ""},
		{"salaryPay", in.SalaryPay != nil},
	}
	return firstMissing(checks)
}

func firstMissing(checks []struct {
	field string
	ok    bool
}) error {
	for _, c := range checks {
		if !c.ok {
			return &ValidationError{Field: c.field}
		}
	}
	return nil
}
