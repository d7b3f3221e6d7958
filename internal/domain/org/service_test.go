package org

import (
	"context"
	"errors"
	"strings"
	"testing"

	"hrms/internal/domain/employee"
	cryptoutil "hrms/internal/platform/crypto"
	"hrms/internal/recordstore"
)

func newTestService(t *testing.T) (*Service, *recordstore.MemoryStore) {
	t.Helper()
	crypto, err := cryptoutil.New("test-secret")
	if err != nil {
		t.Fatalf("crypto: %v", err)
	}
	store := recordstore.NewMemoryStore()
	return NewService(store, crypto), store
}

func seedManager(t *testing.T, store *recordstore.MemoryStore, employeeID, status string) {
	t.Helper()
	op := recordstore.PutOp{Item: recordstore.Item{
		PK:  employee.EntityKey(employeeID),
		SK:  employee.SectionPersonalData.Key(),
		Doc: recordstore.Doc{"status": status, "firstName": "enc-first"},
	}}
	if err := store.Put(context.Background(), op); err != nil {
		t.Fatalf("seed manager: %v", err)
	}
}

func intPtr(v int) *int { return &v }

func truePtr() *bool {
	v := true
	return &v
}

func validDepartment(manager string) DepartmentInput {
	return DepartmentInput{
		DepartmentName:      "Research & Development",
		DepartmentCode:      "RND",
		DepartmentType:      "CORE",
		CostCenter:          "CC-42",
		DepartmentManager:   manager,
		Description:         "Builds the product.",
		OrganizationLevel:   "2",
		AllowSubDepartments: truePtr(),
		MaximumPositions:    intPtr(50),
		ReportingStructure:  "HIERARCHICAL",
		BudgetControl:       "CENTRAL",
	}
}

func validPosition(manager, departmentID string) PositionInput {
	return PositionInput{
		PositionTitle:   "Software Engineer",
		PositionCode:    "SE-1",
		Department:      departmentID,
		PositionLevel:   "IC3",
		EmploymentType:  "FULL_TIME",
		ReportsTo:       manager,
		Education:       "BSc",
		Skills:          []string{"go", "sql"},
		Certifications:  []string{"none"},
		SalaryGrade:     "G5",
		CompetencyLevel: "INTERMEDIATE",
	}
}

func TestCreateDepartmentRoundTrip(t *testing.T) {
	svc, store := newTestService(t)
	seedManager(t, store, "mgr1", employee.StatusActive)

	id, err := svc.CreateDepartment(context.Background(), validDepartment("mgr1"), "alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	dept, err := svc.GetDepartment(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if dept.DepartmentName != "Research & Development" {
		t.Fatalf("name = %q, want decrypted plaintext", dept.DepartmentName)
	}
	if dept.Description != "Builds the product." {
		t.Fatalf("description = %q", dept.Description)
	}
	if dept.CreatedBy != "alice" {
		t.Fatalf("createdBy = %q", dept.CreatedBy)
	}
	if !dept.AllowSubDepartments || dept.MaximumPositions != 50 {
		t.Fatalf("flags round-tripped badly: %+v", dept)
	}

	// The stored row holds ciphertext, not the plain name.
	item, err := store.Get(context.Background(), entityKey(typeDepartment, id))
	if err != nil {
		t.Fatalf("raw get: %v", err)
	}
	raw, _ := item.Doc["departmentName"].(string)
	if raw == "Research & Development" || !strings.Contains(raw, ":") {
		t.Fatalf("departmentName stored as %q, want ciphertext", raw)
	}
}

func TestCreateDepartmentValidatesRequiredFields(t *testing.T) {
	svc, _ := newTestService(t)

	input := validDepartment("mgr1")
	input.CostCenter = ""
	_, err := svc.CreateDepartment(context.Background(), input, "alice")
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "costCenter" {
		t.Fatalf("err = %v, want ValidationError on costCenter", err)
	}
}

func TestCreateDepartmentRequiresActiveManager(t *testing.T) {
	svc, store := newTestService(t)

	var refErr *ReferenceError
	_, err := svc.CreateDepartment(context.Background(), validDepartment("missing"), "alice")
	if !errors.As(err, &refErr) || !strings.Contains(refErr.Message, "not found") {
		t.Fatalf("missing manager: err = %v", err)
	}

	seedManager(t, store, "retired", employee.StatusInactive)
	_, err = svc.CreateDepartment(context.Background(), validDepartment("retired"), "alice")
	if !errors.As(err, &refErr) || !strings.Contains(refErr.Message, "not active") {
		t.Fatalf("inactive manager: err = %v", err)
	}
}

func TestCreateDepartmentChecksParent(t *testing.T) {
	svc, store := newTestService(t)
	seedManager(t, store, "mgr1", employee.StatusActive)

	input := validDepartment("mgr1")
	input.ParentDepartment = "no-such-dept"
	var refErr *ReferenceError
	if _, err := svc.CreateDepartment(context.Background(), input, "alice"); !errors.As(err, &refErr) {
		t.Fatalf("missing parent: err = %v", err)
	}

	closed := validDepartment("mgr1")
	closed.AllowSubDepartments = new(bool) // false
	parentID, err := svc.CreateDepartment(context.Background(), closed, "alice")
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}

	child := validDepartment("mgr1")
	child.ParentDepartment = parentID
	_, err = svc.CreateDepartment(context.Background(), child, "alice")
	if !errors.As(err, &refErr) || !strings.Contains(refErr.Message, "sub-departments") {
		t.Fatalf("closed parent: err = %v", err)
	}
}

func TestListDepartmentsDecryptsNames(t *testing.T) {
	svc, store := newTestService(t)
	seedManager(t, store, "mgr1", employee.StatusActive)

	first := validDepartment("mgr1")
	second := validDepartment("mgr1")
	second.DepartmentName = "People Operations"
	second.DepartmentCode = "PPL"
	if _, err := svc.CreateDepartment(context.Background(), first, "alice"); err != nil {
		t.Fatalf("create first: %v", err)
	}
	if _, err := svc.CreateDepartment(context.Background(), second, "alice"); err != nil {
		t.Fatalf("create second: %v", err)
	}

	depts, err := svc.ListDepartments(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(depts) != 2 {
		t.Fatalf("listed %d departments", len(depts))
	}
	names := map[string]bool{}
	for _, d := range depts {
		names[d.DepartmentName] = true
	}
	if !names["Research & Development"] || !names["People Operations"] {
		t.Fatalf("listed names = %v", names)
	}
}

func TestCreatePositionChecksReferences(t *testing.T) {
	svc, store := newTestService(t)
	seedManager(t, store, "mgr1", employee.StatusActive)

	deptID, err := svc.CreateDepartment(context.Background(), validDepartment("mgr1"), "alice")
	if err != nil {
		t.Fatalf("create department: %v", err)
	}

	var refErr *ReferenceError
	if _, err := svc.CreatePosition(context.Background(), validPosition("nobody", deptID), "alice"); !errors.As(err, &refErr) {
		t.Fatalf("missing manager: err = %v", err)
	}
	if _, err := svc.CreatePosition(context.Background(), validPosition("mgr1", "no-such-dept"), "alice"); !errors.As(err, &refErr) {
		t.Fatalf("missing department: err = %v", err)
	}

	id, err := svc.CreatePosition(context.Background(), validPosition("mgr1", deptID), "alice")
	if err != nil {
		t.Fatalf("create position: %v", err)
	}
	pos, err := svc.GetPosition(context.Background(), id)
	if err != nil {
		t.Fatalf("get position: %v", err)
	}
	if pos.PositionTitle != "Software Engineer" || len(pos.Skills) != 2 {
		t.Fatalf("position round-tripped badly: %+v", pos)
	}
}

func TestCreateOrgUnitCopiesCostCenter(t *testing.T) {
	svc, store := newTestService(t)
	seedManager(t, store, "mgr1", employee.StatusActive)

	deptID, err := svc.CreateDepartment(context.Background(), validDepartment("mgr1"), "alice")
	if err != nil {
		t.Fatalf("create department: %v", err)
	}

	input := OrgUnitInput{
		UnitName:      "Platform Team",
		EffectiveDate: "2026-04-01",
		Description:   "Runs the shared infrastructure.",
	}
	unitID, err := svc.CreateOrgUnit(context.Background(), deptID, input, "alice")
	if err != nil {
		t.Fatalf("create org unit: %v", err)
	}

	unit, err := svc.GetOrgUnit(context.Background(), unitID)
	if err != nil {
		t.Fatalf("get org unit: %v", err)
	}
	if unit.CostCenterInfo != "CC-42" {
		t.Fatalf("costCenterInfo = %q, want the department's cost center", unit.CostCenterInfo)
	}
	if unit.UnitName != "Platform Team" || unit.DepartmentID != deptID {
		t.Fatalf("unit round-tripped badly: %+v", unit)
	}
}

func TestCreateOrgUnitRequiresDepartment(t *testing.T) {
	svc, _ := newTestService(t)
	input := OrgUnitInput{UnitName: "Orphan", EffectiveDate: "2026-04-01", Description: "n/a"}
	if _, err := svc.CreateOrgUnit(context.Background(), "no-such-dept", input, "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestJobClassificationRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)

	var verr *ValidationError
	if _, err := svc.CreateJobClassification(context.Background(), JobClassificationInput{JobTitle: "x", PayScale: "y"}, "alice"); !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}

	id, err := svc.CreateJobClassification(context.Background(), JobClassificationInput{
		JobFamily:        "Engineering",
		JobTitle:         "Engineer II",
		PayScale:         "P2",
		Responsibilities: "Designs and ships features.",
	}, "alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	jc, err := svc.GetJobClassification(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if jc.Responsibilities != "Designs and ships features." {
		t.Fatalf("responsibilities = %q, want decrypted plaintext", jc.Responsibilities)
	}
}
