package validation

import (
	"strings"

	"kiosk/internal/domain"
)

// Field names used as keys in FieldErrors.
const (
	FieldName   = "name"
	FieldEmail  = "email"
	FieldPhone  = "phone"
	FieldAge    = "age"
	FieldGender = "gender"
)

// Fields lists the registration form fields in display order.
var Fields = []string{FieldName, FieldEmail, FieldPhone, FieldAge, FieldGender}

// Field messages shown next to the offending input.
const (
	MsgNameRequired = "Name is required."
	MsgNameInvalid  = "Name may only contain letters and spaces."
	MsgEmailInvalid = "Enter a valid email address."
	MsgPhoneInvalid = "Enter a valid Dominican phone number (e.g. 809-123-4567)."
	MsgAgeInvalid   = "Age must be between 5 and 120."
	MsgGenderNeeded = "Select a gender."
	MsgCodeInvalid  = "Please enter a valid code."
)

// VisitorForm holds raw form values as typed by the visitor.
type VisitorForm struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Age    string `json:"age"`
	Gender string `json:"gender"`
}

// Get returns the value of a named field.
func (f VisitorForm) Get(field string) string {
	switch field {
	case FieldName:
		return f.Name
	case FieldEmail:
		return f.Email
	case FieldPhone:
		return f.Phone
	case FieldAge:
		return f.Age
	case FieldGender:
		return f.Gender
	}
	return ""
}

// Set returns a copy of f with one field replaced. Unknown fields are reported.
func (f VisitorForm) Set(field, value string) (VisitorForm, bool) {
	switch field {
	case FieldName:
		f.Name = value
	case FieldEmail:
		f.Email = value
	case FieldPhone:
		f.Phone = value
	case FieldAge:
		f.Age = value
	case FieldGender:
		f.Gender = value
	default:
		return f, false
	}
	return f, true
}

// FieldErrors maps a field name to its message. Empty means the form is valid.
type FieldErrors map[string]string

func (e FieldErrors) Valid() bool { return len(e) == 0 }

// ValidateVisitor checks every field and reports each failing one individually.
func ValidateVisitor(f VisitorForm) FieldErrors {
	errs := FieldErrors{}
	switch {
	case strings.TrimSpace(f.Name) == "":
		errs[FieldName] = MsgNameRequired
	case !IsValidName(f.Name):
		errs[FieldName] = MsgNameInvalid
	}
	if !IsValidEmail(f.Email) {
		errs[FieldEmail] = MsgEmailInvalid
	}
	if !IsValidDominicanPhone(f.Phone) {
		errs[FieldPhone] = MsgPhoneInvalid
	}
	if !IsValidAgeString(f.Age) {
		errs[FieldAge] = MsgAgeInvalid
	}
	if !IsValidGender(f.Gender) {
		errs[FieldGender] = MsgGenderNeeded
	}
	return errs
}

// ToInput converts a form that passed ValidateVisitor into the submission payload.
// Names are title-cased and phones canonicalized on the way out.
func (f VisitorForm) ToInput() domain.VisitorInput {
	age, _ := ParseAge(f.Age)
	return domain.VisitorInput{
		Name:   FormatName(f.Name),
		Email:  strings.TrimSpace(f.Email),
		Phone:  FormatPhone(strings.TrimSpace(f.Phone)),
		Age:    age,
		Gender: domain.Gender(f.Gender),
	}
}
