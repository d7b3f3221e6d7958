// Package org manages the organizational structure: departments, positions,
// organizational units, and job classifications.
package org

import (
	"errors"
	"fmt"
)

// All org entities live under ORG#<TYPE>#<id> with a single metadata row.
const (
	keyPrefix   = "ORG#"
	metadataKey = "METADATA"

	typeDepartment        = "DEPARTMENT"
	typePosition          = "POSITION"
	typeOrgUnit           = "ORG_UNIT"
	typeJobClassification = "JOB_CLASSIFICATION"
)

var ErrNotFound = errors.New("org: entity not found")

// ValidationError reports a missing required field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing or empty required field '%s'", e.Field)
}

// ReferenceError reports an invalid cross-entity reference, such as a
// department manager who does not exist or is inactive.
type ReferenceError struct {
	Message string
}

func (e *ReferenceError) Error() string {
	return e.Message
}

type DepartmentInput struct {
	DepartmentName      string `json:"departmentName"`
	DepartmentCode      string `json:"departmentCode"`
	DepartmentType      string `json:"departmentType"`
	CostCenter          string `json:"costCenter"`
	DepartmentManager   string `json:"departmentManager"`
	ParentDepartment    string `json:"parentDepartment,omitempty"`
	Description         string `json:"description,omitempty"`
	Comments            string `json:"comments,omitempty"`
	OrganizationLevel   string `json:"organizationLevel"`
	AllowSubDepartments *bool  `json:"allowSubDepartments"`
	MaximumPositions    *int   `json:"maximumPositions"`
	ReportingStructure  string `json:"reportingStructure"`
	BudgetControl       string `json:"budgetControl"`
}

type Department struct {
	DepartmentID        string `json:"departmentId"`
	DepartmentName      string `json:"departmentName"`
	DepartmentCode      string `json:"departmentCode"`
	DepartmentType      string `json:"departmentType"`
	CostCenter          string `json:"costCenter"`
	DepartmentManager   string `json:"departmentManager"`
	ParentDepartment    string `json:"parentDepartment,omitempty"`
	Description         string `json:"description,omitempty"`
	Comments            string `json:"comments,omitempty"`
	OrganizationLevel   string `json:"organizationLevel"`
	AllowSubDepartments bool   `json:"allowSubDepartments"`
	MaximumPositions    int    `json:"maximumPositions"`
	ReportingStructure  string `json:"reportingStructure"`
	BudgetControl       string `json:"budgetControl"`
	CreatedBy           string `json:"createdBy"`
	CreatedAt           string `json:"createdAt"`
}

type PositionInput struct {
	PositionTitle       string   `json:"positionTitle"`
	PositionCode        string   `json:"positionCode"`
	Department          string   `json:"department"`
	PositionLevel       string   `json:"positionLevel"`
	EmploymentType      string   `json:"employmentType"`
	ReportsTo           string   `json:"reportsTo"`
	PositionDescription string   `json:"positionDescription,omitempty"`
	Education           string   `json:"education"`
	Skills              []string `json:"skills"`
	Certifications      []string `json:"certifications"`
	SalaryGrade         string   `json:"salaryGrade"`
	CompetencyLevel     string   `json:"competencyLevel"`
	Comments            string   `json:"comments,omitempty"`
}

type Position struct {
	PositionID          string   `json:"positionId"`
	PositionTitle       string   `json:"positionTitle"`
	PositionCode        string   `json:"positionCode"`
	Department          string   `json:"department"`
	PositionLevel       string   `json:"positionLevel"`
	EmploymentType      string   `json:"employmentType"`
	ReportsTo           string   `json:"reportsTo"`
	PositionDescription string   `json:"positionDescription,omitempty"`
	Education           string   `json:"education"`
	Skills              []string `json:"skills"`
	Certifications      []string `json:"certifications"`
	SalaryGrade         string   `json:"salaryGrade"`
	CompetencyLevel     string   `json:"competencyLevel"`
	Comments            string   `json:"comments,omitempty"`
	CreatedBy           string   `json:"createdBy"`
	CreatedAt           string   `json:"createdAt"`
}

type OrgUnitInput struct {
	UnitName      string `json:"unitName"`
	EffectiveDate string `json:"effectiveDate"`
	Description   string `json:"description"`
}

type OrgUnit struct {
	UnitID         string `json:"unitId"`
	DepartmentID   string `json:"departmentId"`
	UnitName       string `json:"unitName"`
	EffectiveDate  string `json:"effectiveDate"`
	Description    string `json:"description"`
	CostCenterInfo string `json:"costCenterInfo"`
	CreatedBy      string `json:"createdBy"`
	CreatedAt      string `json:"createdAt"`
}

type JobClassificationInput struct {
	JobFamily        string `json:"jobFamily"`
	JobTitle         string `json:"jobTitle"`
	PayScale         string `json:"payScale"`
	Responsibilities string `json:"responsibilities,omitempty"`
}

type JobClassification struct {
	JobClassificationID string `json:"jobClassificationId"`
	JobFamily           string `json:"jobFamily"`
	JobTitle            string `json:"jobTitle"`
	PayScale            string `json:"payScale"`
	Responsibilities    string `json:"responsibilities,omitempty"`
	CreatedBy           string `json:"createdBy"`
	CreatedAt           string `json:"createdAt"`
}
