package employee

import (
	"sort"
	"strings"
)

// Key layout: every section of one employee shares the partition key
// EMPLOYEE#<uuid>, with the section name as sort key.
const (
	EntityKeyPrefix  = "EMPLOYEE#"
	SectionKeyPrefix = "SECTION#"
)

type Section string

const (
	SectionPersonalData    Section = "PERSONAL_DATA"
	SectionContactInfo     Section = "CONTACT_INFO"
	SectionContractDetails Section = "CONTRACT_DETAILS"
)

// Lifecycle status, stored only on the personal-data section. It gates
// every read and write of the whole logical employee.
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

func EntityKey(employeeID string) string {
	return EntityKeyPrefix + employeeID
}

func (s Section) Key() string {
	return SectionKeyPrefix + string(s)
}

// SectionLabel turns a section sort key into the prefix used in change-event
// field paths: "SECTION#PERSONAL_DATA" becomes "personal data".
func SectionLabel(sk string) string {
	name := strings.TrimPrefix(sk, SectionKeyPrefix)
	return strings.ReplaceAll(strings.ToLower(name), "_", " ")
}

// FieldSpec describes one employee field. This table is the single source
// of truth for which section a field lives in, whether it is required, and
// whether it is encrypted at rest; the write path, the read path, and the
// notification dispatcher all consult it.
type FieldSpec struct {
	Section   Section
	Required  bool
	Encrypted bool
}

var Fields = map[string]FieldSpec{
	"firstName":     {SectionPersonalData, true, true},
	"lastName":      {SectionPersonalData, true, true},
	"middleName":    {SectionPersonalData, false, true},
	"preferredName": {SectionPersonalData, false, false},
	"nationalId":    {SectionPersonalData, true, true},
	"dateOfBirth":   {SectionPersonalData, true, false},
	"age":           {SectionPersonalData, true, false},
	"gender":        {SectionPersonalData, true, false},
	"nationality":   {SectionPersonalData, true, false},
	"maritalStatus": {SectionPersonalData, true, false},
	"status":        {SectionPersonalData, false, false},

	"email":                        {SectionContactInfo, true, true},
	"phone":                        {SectionContactInfo, true, true},
	"altPhone":                     {SectionContactInfo, false, true},
	"address":                      {SectionContactInfo, true, true},
	"city":                         {SectionContactInfo, true, true},
	"state":                        {SectionContactInfo, true, true},
	"postalCode":                   {SectionContactInfo, true, true},
	"country":                      {SectionContactInfo, true, true},
	"emergencyContactName":         {SectionContactInfo, false, true},
	"emergencyContactPhone":        {SectionContactInfo, false, true},
	"emergencyContactRelationship": {SectionContactInfo, false, true},

	"role":            {SectionContractDetails, true, false},
	"department":      {SectionContractDetails, true, false},
	"jobLevel":        {SectionContractDetails, true, false},
	"contractType":    {SectionContractDetails, true, false},
	"salaryGrade":     {SectionContractDetails, true, false},
	"salaryPay":       {SectionContractDetails, true, false},
	"allowance":       {SectionContractDetails, false, false},
	"allowRemoteWork": {SectionContractDetails, false, false},
}

// Encrypted reports whether the named field is stored as ciphertext.
func Encrypted(field string) bool {
	return Fields[field].Encrypted
}

// SensitiveFieldNames returns the sorted names of every encrypted field.
// The notification dispatcher builds its decrypt keyword list from this so
// the list cannot drift from the schema.
func SensitiveFieldNames() []string {
	names := make([]string, 0, len(Fields))
	for name, spec := range Fields {
		if spec.Encrypted {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
