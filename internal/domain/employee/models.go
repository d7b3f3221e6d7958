package employee

import (
	"errors"
	"fmt"
)

// Input payloads are flat, mirroring the section documents; EmployeeInput
// embeds all three so a full create/replace body decodes in one pass.

type PersonalDataInput struct {
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	MiddleName    string `json:"middleName"`
	PreferredName string `json:"preferredName"`
	NationalID    string `json:"nationalId"`
	DateOfBirth   string `json:"dateOfBirth"`
	Age           *int   `json:"age"`
	Gender        string `json:"gender"`
	Nationality   string `json:"nationality"`
	MaritalStatus string `json:"maritalStatus"`
}

type ContactInfoInput struct {
	Email                        string `json:"email"`
	Phone                        string `json:"phone"`
	AltPhone                     string `json:"altPhone"`
	Address                      string `json:"address"`
	City                         string `json:"city"`
	State                        string `json:"state"`
	PostalCode                   string `json:"postalCode"`
	Country                      string `json:"country"`
	EmergencyContactName         string `json:"emergencyContactName"`
	EmergencyContactPhone        string `json:"emergencyContactPhone"`
	EmergencyContactRelationship string `json:"emergencyContactRelationship"`
}

type ContractDetailsInput struct {
	Role            string   `json:"role"`
	Department      string   `json:"department"`
	JobLevel        string   `json:"jobLevel"`
	ContractType    string   `json:"contractType"`
	SalaryGrade     string   `json:"salaryGrade"`
	SalaryPay       *float64 `json:"salaryPay"`
	Allowance       *float64 `json:"allowance"`
	AllowRemoteWork *bool    `json:"allowRemoteWork"`
}

type EmployeeInput struct {
	PersonalDataInput
	ContactInfoInput
	ContractDetailsInput
}

// Response shape. Every optional field carries an explicit empty value so
// the shape is stable regardless of what was set at creation.

type EmergencyContact struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`
}

type PersonalData struct {
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	MiddleName    string `json:"middleName"`
	PreferredName string `json:"preferredName"`
	NationalID    string `json:"nationalId"`
	DateOfBirth   string `json:"dateOfBirth"`
	Age           int    `json:"age"`
	Gender        string `json:"gender"`
	Nationality   string `json:"nationality"`
	MaritalStatus string `json:"maritalStatus"`
}

type ContactInfo struct {
	Email            string           `json:"email"`
	Phone            string           `json:"phone"`
	AltPhone         string           `json:"altPhone"`
	Address          string           `json:"address"`
	City             string           `json:"city"`
	State            string           `json:"state"`
	PostalCode       string           `json:"postalCode"`
	Country          string           `json:"country"`
	EmergencyContact EmergencyContact `json:"emergencyContact"`
}

type ContractDetails struct {
	Role            string   `json:"role"`
	Department      string   `json:"department"`
	JobLevel        string   `json:"jobLevel"`
	ContractType    string   `json:"contractType"`
	SalaryGrade     string   `json:"salaryGrade"`
	SalaryPay       float64  `json:"salaryPay"`
	Allowance       *float64 `json:"allowance"`
	AllowRemoteWork bool     `json:"allowRemoteWork"`
}

type Employee struct {
	PersonalData    PersonalData    `json:"personalData"`
	ContactInfo     ContactInfo     `json:"contactInfo"`
	ContractDetails ContractDetails `json:"contractDetails"`
}

// ErrNotFound deliberately covers both a missing employee and an inactive
// one, so callers cannot tell which case they hit.
var ErrNotFound = errors.New("employee: not found or inactive")

// ErrAlreadyExists surfaces the pathological case of a generated ID
// colliding with an existing entity key.
var ErrAlreadyExists = errors.New("employee: entity key already exists")

// ValidationError names the first missing or empty required field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing or empty required field '%s'", e.Field)
}
