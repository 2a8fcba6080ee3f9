package application

import (
	"errors"
	"testing"

	"careertrack.dev/careertrack-go/app/domain/forms"
)

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"applied", "interviewing", "offered", "rejected", "accepted", "withdrawn"} {
		status, err := ParseStatus(s)
		if err != nil {
			t.Fatalf("ParseStatus(%q): %v", s, err)
		}
		if string(status) != s {
			t.Fatalf("ParseStatus(%q) = %q", s, status)
		}
	}
	if _, err := ParseStatus("ghosted"); err == nil {
		t.Fatal("unknown status must be rejected")
	}
}

func TestListFilterParams(t *testing.T) {
	if params := (ListFilter{}).params(); len(params) != 0 {
		t.Fatalf("zero filter should produce no params, got %v", params)
	}

	params := ListFilter{Status: StatusApplied, Favorite: true, Search: "go", Page: 3}.params()
	want := map[string]string{"status": "applied", "favorite": "true", "search": "go", "page": "3"}
	for k, v := range want {
		if params[k] != v {
			t.Fatalf("param %q: expected %q, got %q", k, v, params[k])
		}
	}
}

func TestCreateOperationValidatesInput(t *testing.T) {
	svc := NewService(nil, nil)

	_, err := svc.CreateOperation(CreateInput{Title: "Backend Engineer"})
	var verr *forms.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	found := false
	for _, fe := range verr.Fields {
		if fe.Field == "company_name" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected company_name error, got %v", verr.Fields)
	}

	_, err = svc.CreateOperation(CreateInput{CompanyName: "Acme", Title: "Backend Engineer", URL: "not a url"})
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for bad url, got %v", err)
	}

	if _, err := svc.CreateOperation(CreateInput{CompanyName: "Acme", Title: "Backend Engineer"}); err != nil {
		t.Fatalf("valid input should build an operation: %v", err)
	}
}

func TestUpdateOperationRequiresStatus(t *testing.T) {
	svc := NewService(nil, nil)
	_, err := svc.UpdateOperation(1, UpdateInput{Title: "Backend Engineer", Status: "ghosted"})
	var verr *forms.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for bad status, got %v", err)
	}
}
