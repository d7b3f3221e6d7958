package employeehandler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"hrms/internal/domain/attendance"
	"hrms/internal/domain/employee"
	cryptoutil "hrms/internal/platform/crypto"
	"hrms/internal/recordstore"
	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/middleware"
)

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	crypto, err := cryptoutil.New("test-secret")
	if err != nil {
		t.Fatalf("crypto: %v", err)
	}
	store := recordstore.NewMemoryStore()
	handler := NewHandler(
		employee.NewService(store, crypto),
		attendance.NewService(store, crypto),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Route("/api/v1", handler.RegisterRoutes)
	return r
}

func createBody() map[string]any {
	return map[string]any{
		"firstName":     "Ada",
		"lastName":      "Lovelace",
		"nationalId":    "NID-1815",
		"dateOfBirth":   "1990-12-10",
		"age":           35,
		"gender":        "FEMALE",
		"nationality":   "GB",
		"maritalStatus": "SINGLE",
		"email":         "ada@example.com",
		"phone":         "+44 20 0000 0000",
		"address":       "12 Analytical Row",
		"city":          "London",
		"state":         "London",
		"postalCode":    "N1 1AA",
		"country":       "GB",
		"role":          "Engineer",
		"department":    "R&D",
		"jobLevel":      "IC4",
		"contractType":  "PERMANENT",
		"salaryGrade":   "G6",
		"salaryPay":     5200.0,
	}
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, api.Envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var envelope api.Envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decode envelope from %s %s: %v\n%s", method, path, err, rec.Body.String())
		}
	}
	return rec, envelope
}

func createEmployee(t *testing.T, r http.Handler) string {
	t.Helper()
	rec, envelope := doJSON(t, r, http.MethodPost, "/api/v1/employees", createBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create returned %d: %s", rec.Code, rec.Body.String())
	}
	data, ok := envelope.Data.(map[string]any)
	if !ok {
		t.Fatalf("create data = %#v", envelope.Data)
	}
	employeeID, _ := data["employeeId"].(string)
	if employeeID == "" {
		t.Fatal("create response has no employeeId")
	}
	return employeeID
}

func TestEmployeeLifecycle(t *testing.T) {
	r := newTestRouter(t)
	employeeID := createEmployee(t, r)

	rec, envelope := doJSON(t, r, http.MethodGet, "/api/v1/employees/"+employeeID, nil)
	if rec.Code != http.StatusOK || !envelope.Success {
		t.Fatalf("get returned %d: %s", rec.Code, rec.Body.String())
	}
	if envelope.RequestID == "" {
		t.Fatal("response has no request id")
	}
	data := envelope.Data.(map[string]any)
	personal := data["personalData"].(map[string]any)
	if personal["firstName"] != "Ada" {
		t.Fatalf("firstName = %v, want plaintext in the response", personal["firstName"])
	}

	rec, _ = doJSON(t, r, http.MethodDelete, "/api/v1/employees/"+employeeID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete returned %d: %s", rec.Code, rec.Body.String())
	}

	// A deactivated employee reads and deletes as missing.
	rec, envelope = doJSON(t, r, http.MethodGet, "/api/v1/employees/"+employeeID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete returned %d", rec.Code)
	}
	if envelope.Error == nil || envelope.Error.Code != "not_found" {
		t.Fatalf("error = %+v", envelope.Error)
	}
	rec, _ = doJSON(t, r, http.MethodDelete, "/api/v1/employees/"+employeeID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete returned %d", rec.Code)
	}
}

func TestCreateValidationNamesTheField(t *testing.T) {
	r := newTestRouter(t)

	body := createBody()
	delete(body, "email")
	rec, envelope := doJSON(t, r, http.MethodPost, "/api/v1/employees", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("create returned %d: %s", rec.Code, rec.Body.String())
	}
	if envelope.Error == nil || envelope.Error.Code != "validation_failed" {
		t.Fatalf("error = %+v", envelope.Error)
	}
	if !strings.Contains(envelope.Error.Message, "email") {
		t.Fatalf("message %q does not name the missing field", envelope.Error.Message)
	}
}

func TestCreateRejectsMalformedBody(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/employees", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body returned %d", rec.Code)
	}
}

func TestSectionUpdateAndGet(t *testing.T) {
	r := newTestRouter(t)
	employeeID := createEmployee(t, r)

	update := map[string]any{
		"email":      "ada.lovelace@example.com",
		"phone":      "+44 20 1111 1111",
		"address":    "1 New Street",
		"city":       "Cambridge",
		"state":      "Cambridgeshire",
		"postalCode": "CB1 1AA",
		"country":    "GB",
	}
	rec, _ := doJSON(t, r, http.MethodPut, "/api/v1/employees/"+employeeID+"/contact-info", update)
	if rec.Code != http.StatusOK {
		t.Fatalf("contact update returned %d: %s", rec.Code, rec.Body.String())
	}

	rec, envelope := doJSON(t, r, http.MethodGet, "/api/v1/employees/"+employeeID+"/contact-info", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("contact get returned %d", rec.Code)
	}
	contact := envelope.Data.(map[string]any)
	if contact["email"] != "ada.lovelace@example.com" {
		t.Fatalf("email = %v after update", contact["email"])
	}
}

func TestRecordPDFDownload(t *testing.T) {
	r := newTestRouter(t)
	employeeID := createEmployee(t, r)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/employees/"+employeeID+"/record.pdf", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("pdf returned %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type = %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")) {
		t.Fatal("body is not a PDF document")
	}
}

func TestAttendanceStatusMapping(t *testing.T) {
	r := newTestRouter(t)
	employeeID := createEmployee(t, r)

	entry := map[string]any{
		"checkInTime":  "2026-03-02T08:00:00Z",
		"checkOutTime": "2026-03-02T17:00:00Z",
		"totalHours":   8,
		"taskCategory": "DEVELOPMENT",
		"wbsCode":      "WBS-100",
		"costCenter":   "CC-42",
		"projectCode":  "PRJ-7",
	}
	rec, _ := doJSON(t, r, http.MethodPost, "/api/v1/employees/"+employeeID+"/attendance", entry)
	if rec.Code != http.StatusCreated {
		t.Fatalf("attendance create returned %d: %s", rec.Code, rec.Body.String())
	}

	rec, _ = doJSON(t, r, http.MethodPost, "/api/v1/employees/"+employeeID+"/attendance", entry)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate attendance returned %d", rec.Code)
	}

	rec, _ = doJSON(t, r, http.MethodPost, "/api/v1/employees/nobody/attendance", entry)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown employee returned %d", rec.Code)
	}

	// Deactivation flips further attendance writes to 403, the one surface
	// that distinguishes inactive from missing.
	if rec, _ = doJSON(t, r, http.MethodDelete, "/api/v1/employees/"+employeeID, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete returned %d", rec.Code)
	}
	entry["checkInTime"] = "2026-03-03T08:00:00Z"
	entry["checkOutTime"] = "2026-03-03T17:00:00Z"
	rec, envelope := doJSON(t, r, http.MethodPost, "/api/v1/employees/"+employeeID+"/attendance", entry)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("inactive attendance returned %d: %s", rec.Code, rec.Body.String())
	}
	if envelope.Error == nil || envelope.Error.Code != "employee_inactive" {
		t.Fatalf("error = %+v", envelope.Error)
	}
}
