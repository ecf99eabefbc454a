package registration

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/kozaktomas/face-attendance/internal/biometric"
)

// Form field keys used in FieldErrors.
const (
	FieldName       = "name"
	FieldEmployeeID = "employee_id"
	FieldDepartment = "department"
)

// FieldErrors maps a form field to its validation message.
type FieldErrors map[string]string

// ValidationError is returned by Submit when the form is rejected.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Fields[k])
	}
	return "invalid registration form: " + strings.Join(parts, "; ")
}

var employeeIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// Normalize trims the form fields and converts them to Unicode NFC.
func Normalize(form biometric.FormData) biometric.FormData {
	return biometric.FormData{
		Name:       norm.NFC.String(strings.TrimSpace(form.Name)),
		EmployeeID: norm.NFC.String(strings.TrimSpace(form.EmployeeID)),
		Department: norm.NFC.String(strings.TrimSpace(form.Department)),
	}
}

// Validate checks a normalized form against the allowed departments.
// It returns nil when the form is valid.
func Validate(form biometric.FormData, departments []string) FieldErrors {
	errs := FieldErrors{}

	switch {
	case form.Name == "":
		errs[FieldName] = "Full name is required"
	case utf8.RuneCountInString(form.Name) < 2:
		errs[FieldName] = "Name must be at least 2 characters"
	}

	switch {
	case form.EmployeeID == "":
		errs[FieldEmployeeID] = "Employee ID is required"
	case !employeeIDPattern.MatchString(form.EmployeeID):
		errs[FieldEmployeeID] = "Employee ID can only contain letters, numbers, and hyphens"
	}

	if !slices.Contains(departments, form.Department) {
		errs[FieldDepartment] = "Please select a department"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
