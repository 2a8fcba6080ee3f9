package forms_test

import (
	"errors"
	"testing"

	"careertrack.dev/careertrack-go/app/domain/forms"
	"careertrack.dev/careertrack-go/app/infrastructure/apiclient"
)

type loginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type passwordForm struct {
	Current string `json:"current_password" validate:"required"`
	New     string `json:"new_password" validate:"required,min=8"`
	Confirm string `json:"confirm_password" validate:"required,eqfield=New"`
}

func findField(errs []forms.FieldError, field string) (forms.FieldError, bool) {
	for _, fe := range errs {
		if fe.Field == field {
			return fe, true
		}
	}
	return forms.FieldError{}, false
}

func TestValidateReportsJSONFieldNames(t *testing.T) {
	errs := forms.Validate(loginForm{})
	if len(errs) != 2 {
		t.Fatalf("expected 2 field errors, got %v", errs)
	}
	if _, ok := findField(errs, "email"); !ok {
		t.Fatalf("expected an error keyed by json name %q, got %v", "email", errs)
	}
	if fe, _ := findField(errs, "password"); fe.Message != "this field is required" {
		t.Fatalf("unexpected message %q", fe.Message)
	}
}

func TestValidateMessages(t *testing.T) {
	cases := []struct {
		name    string
		input   loginForm
		field   string
		message string
	}{
		{"bad email", loginForm{Email: "not-an-email", Password: "longenough"}, "email", "must be a valid email address"},
		{"short password", loginForm{Email: "a@b.dev", Password: "short"}, "password", "must be at least 8 characters"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			errs := forms.Validate(tc.input)
			fe, ok := findField(errs, tc.field)
			if !ok {
				t.Fatalf("expected error on %q, got %v", tc.field, errs)
			}
			if fe.Message != tc.message {
				t.Fatalf("expected %q, got %q", tc.message, fe.Message)
			}
		})
	}
}

func TestValidatePassesCleanInput(t *testing.T) {
	if errs := forms.Validate(loginForm{Email: "dev@careertrack.dev", Password: "longenough"}); errs != nil {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestEqfieldMismatch(t *testing.T) {
	errs := forms.Validate(passwordForm{Current: "old-password", New: "new-password", Confirm: "different"})
	fe, ok := findField(errs, "confirm_password")
	if !ok {
		t.Fatalf("expected confirm_password error, got %v", errs)
	}
	if fe.Message != "does not match" {
		t.Fatalf("unexpected message %q", fe.Message)
	}
}

func TestValidateFieldChecksOnlyNamedFields(t *testing.T) {
	form := loginForm{Email: "bad", Password: ""}
	errs := forms.ValidateField(form, "Email")
	if len(errs) != 1 || errs[0].Field != "email" {
		t.Fatalf("expected only the email error, got %v", errs)
	}
}

func TestCheckWrapsFailuresInValidationError(t *testing.T) {
	err := forms.Check(loginForm{})
	var verr *forms.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %v", verr.Fields)
	}

	if err := forms.Check(loginForm{Email: "a@b.dev", Password: "longenough"}); err != nil {
		t.Fatalf("clean input should pass, got %v", err)
	}
}

func TestMergeServerErrors(t *testing.T) {
	client := []forms.FieldError{{Field: "password", Message: "must be at least 8 characters"}}

	t.Run("folds api field errors", func(t *testing.T) {
		apiErr := &apiclient.APIError{
			StatusCode: 400,
			Message:    "validation failed",
			FieldErrors: map[string][]string{
				"email": {"already registered"},
			},
		}
		merged := forms.MergeServerErrors(client, apiErr)
		if len(merged) != 2 {
			t.Fatalf("expected 2 merged errors, got %v", merged)
		}
		if fe, ok := findField(merged, "email"); !ok || fe.Message != "already registered" {
			t.Fatalf("server error missing from merge: %v", merged)
		}
	})

	t.Run("non-field errors pass through", func(t *testing.T) {
		merged := forms.MergeServerErrors(client, errors.New("timeout"))
		if len(merged) != 1 {
			t.Fatalf("expected original list untouched, got %v", merged)
		}
	})

	t.Run("api error without field detail", func(t *testing.T) {
		merged := forms.MergeServerErrors(client, &apiclient.APIError{StatusCode: 500, Message: "boom"})
		if len(merged) != 1 {
			t.Fatalf("expected original list untouched, got %v", merged)
		}
	})
}
