package wizard

import (
	"errors"
	"testing"
)

func mustValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	return v
}

func TestValidateRegister(t *testing.T) {
	v := mustValidator(t)
	cases := []struct {
		name    string
		payload string
		ok      bool
	}{
		{"valid", `{"first_name":"Ana","last_name":"Reyes","email":"ana@example.com","date_of_birth":"1995-04-02"}`, true},
		{"missing email", `{"first_name":"Ana","last_name":"Reyes","date_of_birth":"1995-04-02"}`, false},
		{"bad email", `{"first_name":"Ana","last_name":"Reyes","email":"not-an-email","date_of_birth":"1995-04-02"}`, false},
		{"bad dob format", `{"first_name":"Ana","last_name":"Reyes","email":"ana@example.com","date_of_birth":"02/04/1995"}`, false},
		{"empty first name", `{"first_name":"","last_name":"Reyes","email":"ana@example.com","date_of_birth":"1995-04-02"}`, false},
		{"unknown field", `{"first_name":"Ana","last_name":"Reyes","email":"ana@example.com","date_of_birth":"1995-04-02","extra":1}`, false},
		{"not json", `{first_name:}`, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := v.Validate(SchemaRegister, []byte(c.payload))
			if c.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !c.ok {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("want ValidationError, got %v", err)
				}
				if len(ve.Issues) == 0 {
					t.Fatal("ValidationError carries no issues")
				}
			}
		})
	}
}

func TestValidateDeclarationRequiresAllConsents(t *testing.T) {
	v := mustValidator(t)
	ok := `{"information_accurate":true,"privacy_consent":true,"terms_accepted":true,"signature_name":"Ana Reyes"}`
	if err := v.Validate(SchemaDeclaration, []byte(ok)); err != nil {
		t.Fatalf("valid declaration rejected: %v", err)
	}
	// A consent box explicitly unticked is as invalid as a missing one.
	bad := `{"information_accurate":true,"privacy_consent":false,"terms_accepted":true,"signature_name":"Ana Reyes"}`
	if err := v.Validate(SchemaDeclaration, []byte(bad)); err == nil {
		t.Fatal("false consent must be rejected")
	}
}

func TestValidatePersonalDetails(t *testing.T) {
	v := mustValidator(t)
	valid := `{
		"personal_details": {
			"address":"1 Main St","suburb":"Geelong","state":"VIC","postcode":"3220",
			"phone":"0400000000","emergency_contact":"Ben Reyes","emergency_phone":"0400000001"
		},
		"course_details": {"course_code":"CPC30220","course_name":"Certificate III in Carpentry","intake":"2025-S2"},
		"background": {"highest_school_level":"Year 12"}
	}`
	if err := v.Validate(SchemaPersonalDetails, []byte(valid)); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}

	badPostcode := `{
		"personal_details": {
			"address":"1 Main St","suburb":"Geelong","state":"VIC","postcode":"32",
			"phone":"0400000000","emergency_contact":"Ben Reyes","emergency_phone":"0400000001"
		},
		"course_details": {"course_code":"CPC30220","course_name":"Certificate III in Carpentry","intake":"2025-S2"},
		"background": {"highest_school_level":"Year 12"}
	}`
	if err := v.Validate(SchemaPersonalDetails, []byte(badPostcode)); err == nil {
		t.Fatal("two-digit postcode must be rejected")
	}
}

func TestValidateUnknownSchema(t *testing.T) {
	v := mustValidator(t)
	err := v.Validate("no-such-schema", []byte(`{}`))
	if err == nil {
		t.Fatal("unknown schema name must error")
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		t.Fatal("unknown schema is a programming error, not a validation failure")
	}
}
