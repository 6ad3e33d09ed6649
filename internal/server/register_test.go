package server

import (
	"testing"

	"dfi/internal/auth"
)

func TestValidateRegisterInput(t *testing.T) {
	valid := registerForm{
		GivenName:       "Ada",
		FamilyName:      "Lovelace",
		Email:           "ada@example.com",
		Password:        "Sup3r-secret-pw!",
		ConfirmPassword: "Sup3r-secret-pw!",
	}

	if errs := validateRegisterInput(valid); len(errs) != 0 {
		t.Errorf("expected no errors for valid input, got %v", errs)
	}

	cases := []struct {
		name   string
		mutate func(*registerForm)
		field  string
	}{
		{"missing given name", func(f *registerForm) { f.GivenName = "" }, "given_name"},
		{"missing family name", func(f *registerForm) { f.FamilyName = "" }, "family_name"},
		{"missing email", func(f *registerForm) { f.Email = "" }, "email"},
		{"bad email", func(f *registerForm) { f.Email = "not-an-email" }, "email"},
		{"short password", func(f *registerForm) { f.Password = "Ab1!"; f.ConfirmPassword = "Ab1!" }, "password"},
		{"no symbol", func(f *registerForm) { f.Password = "Sup3rsecretpw1"; f.ConfirmPassword = "Sup3rsecretpw1" }, "password"},
		{"mismatch", func(f *registerForm) { f.ConfirmPassword = "different" }, "confirm_password"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := valid
			tc.mutate(&input)
			errs := validateRegisterInput(input)
			if _, ok := errs[tc.field]; !ok {
				t.Errorf("expected error on %q, got %v", tc.field, errs)
			}
		})
	}
}

func TestMapSignUpError(t *testing.T) {
	_, fieldErrs := mapSignUpError(auth.ErrInvalidPassword)
	if _, ok := fieldErrs["password"]; !ok {
		t.Errorf("expected password field error, got %v", fieldErrs)
	}

	msg, fieldErrs := mapSignUpError(auth.ErrUserExists)
	if _, ok := fieldErrs["email"]; !ok {
		t.Errorf("expected email field error, got %v", fieldErrs)
	}
	if msg != "Try logging in instead." {
		t.Errorf("unexpected message %q", msg)
	}
}
