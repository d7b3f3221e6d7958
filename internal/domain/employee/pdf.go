package employee

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// RenderRecordPDF renders the decrypted aggregate as a one-page employee
// record sheet.
func RenderRecordPDF(employeeID string, emp *Employee) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Employee Record")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Employee ID: %s", employeeID))
	pdf.Ln(10)

	section := func(title string, rows [][2]string) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, title)
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
		for _, row := range rows {
			pdf.Cell(50, 6, row[0])
			pdf.Cell(0, 6, row[1])
			pdf.Ln(6)
		}
		pdf.Ln(4)
	}

	section("Personal Data", [][2]string{
		{"Name", fmt.Sprintf("%s %s %s", emp.PersonalData.FirstName, emp.PersonalData.MiddleName, emp.PersonalData.LastName)},
		{"Preferred name", emp.PersonalData.PreferredName},
		{"National ID", emp.PersonalData.NationalID},
		{"Date of birth", emp.PersonalData.DateOfBirth},
		{"Age", fmt.Sprintf("%d", emp.PersonalData.Age)},
		{"Gender", emp.PersonalData.Gender},
		{"Nationality", emp.PersonalData.Nationality},
		{"Marital status", emp.PersonalData.MaritalStatus},
	})

	section("Contact Info", [][2]string{
		{"Email", emp.ContactInfo.Email},
		{"Phone", emp.ContactInfo.Phone},
		{"Alt. phone", emp.ContactInfo.AltPhone},
		{"Address", emp.ContactInfo.Address},
		{"City", emp.ContactInfo.City},
		{"State", emp.ContactInfo.State},
		{"Postal code", emp.ContactInfo.PostalCode},
		{"Country", emp.ContactInfo.Country},
		{"Emergency contact", fmt.Sprintf("%s (%s) %s",
			emp.ContactInfo.EmergencyContact.Name,
			emp.ContactInfo.EmergencyContact.Relationship,
			emp.ContactInfo.EmergencyContact.Phone)},
	})

	allowance := ""
	if emp.ContractDetails.Allowance != nil {
		allowance = fmt.Sprintf("%.2f", *emp.ContractDetails.Allowance)
	}
	section("Contract Details", [][2]string{
		{"Role", emp.ContractDetails.Role},
		{"Department", emp.ContractDetails.Department},
		{"Job level", emp.ContractDetails.JobLevel},
		{"Contract type", emp.ContractDetails.ContractType},
		{"Salary grade", emp.ContractDetails.SalaryGrade},
		{"Salary pay", fmt.Sprintf("%.2f", emp.ContractDetails.SalaryPay)},
		{"Allowance", allowance},
	})

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
