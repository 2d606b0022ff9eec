package schema

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/medsynth/medsynth/pkg/models"
)

func validPatient() map[string]any {
	return map[string]any{
		"firstName":   "Jane",
		"lastName":    "Doe",
		"dateOfBirth": "1980-01-01",
		"gender":      "female",
		"phone":       "555-0100",
		"address": map[string]any{
			"street":  "1 Main St",
			"city":    "Springfield",
			"state":   "IL",
			"zipCode": "62701",
		},
	}
}

func TestSchemaForPatient(t *testing.T) {
	s := Default().SchemaFor(models.KindPatient)
	if s.Type != "object" {
		t.Fatalf("expected object, got %s", s.Type)
	}
	dob, ok := s.Properties["dateOfBirth"]
	if !ok {
		t.Fatal("expected dateOfBirth property")
	}
	if dob.Format != "date" {
		t.Errorf("expected date format, got %q", dob.Format)
	}
	if !contains(s.Required, "firstName") || contains(s.Required, "age") {
		t.Errorf("unexpected required list: %v", s.Required)
	}
	if s.Properties["address"].Type != "object" {
		t.Errorf("expected nested address object")
	}
}

func TestKinds(t *testing.T) {
	kinds := Default().Kinds()
	if len(kinds) != 8 {
		t.Fatalf("expected 8 registered kinds, got %v", kinds)
	}
	for i := 1; i < len(kinds); i++ {
		if kinds[i-1] >= kinds[i] {
			t.Errorf("kinds not sorted: %v", kinds)
		}
	}
	if len(NewRegistry().Kinds()) != 0 {
		t.Error("expected an empty registry to list no kinds")
	}
}

func TestSchemaForDeterministic(t *testing.T) {
	a := Default().SchemaFor(models.KindCMS1500).String()
	b := Default().SchemaFor(models.KindCMS1500).String()
	if a != b {
		t.Error("schema rendering should be deterministic")
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(a), &decoded); err != nil {
		t.Fatalf("schema should render as JSON: %v", err)
	}
	if decoded["type"] != "object" {
		t.Errorf("unexpected type: %v", decoded["type"])
	}
}

func TestSchemaForUnregisteredPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unregistered kind")
		}
	}()
	NewRegistry().SchemaFor("spaceship")
}

func TestValidatePatient(t *testing.T) {
	res := Default().Validate(models.KindPatient, validPatient())
	if !res.Valid {
		t.Fatalf("expected valid, got errors: %v", res.Errors)
	}
	if res.Data["firstName"] != "Jane" {
		t.Errorf("expected data passthrough, got %v", res.Data)
	}
}

func TestValidateMissingField(t *testing.T) {
	p := validPatient()
	delete(p, "dateOfBirth")
	res := Default().Validate(models.KindPatient, p)
	if res.Valid {
		t.Fatal("expected invalid")
	}
	if len(res.Errors) != 1 || res.Errors[0] != "patient.dateOfBirth: required field missing" {
		t.Errorf("unexpected errors: %v", res.Errors)
	}
}

func TestValidateTypeErrors(t *testing.T) {
	p := validPatient()
	p["age"] = "forty"
	p["gender"] = "robot"
	p["address"].(map[string]any)["zipCode"] = 62701.0
	res := Default().Validate(models.KindPatient, p)
	if res.Valid {
		t.Fatal("expected invalid")
	}
	joined := strings.Join(res.Errors, "\n")
	for _, want := range []string{
		"patient.age: expected integer, got string",
		"patient.gender: value \"robot\" not one of",
		"patient.address.zipCode: expected string, got number",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected error containing %q, got:\n%s", want, joined)
		}
	}
}

func TestValidateDateFormat(t *testing.T) {
	p := validPatient()
	p["dateOfBirth"] = "01/01/1980"
	res := Default().Validate(models.KindPatient, p)
	if res.Valid {
		t.Fatal("expected invalid date")
	}
}

func TestValidateArrayItems(t *testing.T) {
	lab := map[string]any{
		"testName":       "Complete Blood Count",
		"collectionDate": "2024-03-01",
		"reportDate":     "2024-03-02",
		"specimen":       "Whole blood",
		"results": []any{
			map[string]any{"name": "WBC", "value": "6.1", "referenceRange": "4.5-11.0"},
			map[string]any{"name": "RBC"},
		},
	}
	res := Default().Validate(models.KindLabReport, lab)
	if res.Valid {
		t.Fatal("expected invalid")
	}
	if !contains(res.Errors, "lab_report.results[1].value: required field missing") {
		t.Errorf("unexpected errors: %v", res.Errors)
	}
}

func TestValidateNeverPanics(t *testing.T) {
	r := Default()
	for _, candidate := range []any{nil, 42, "text", []any{1, 2}, map[string]any{}} {
		res := r.Validate(models.KindProvider, candidate)
		if res.Valid {
			t.Errorf("expected %v to be invalid", candidate)
		}
	}
	if res := r.Validate("spaceship", validPatient()); res.Valid {
		t.Error("expected unregistered kind to be invalid")
	}
}

func TestValidateTypedStruct(t *testing.T) {
	policy := models.InsurancePolicy{
		CompanyName:    "Acme Health",
		PlanName:       "Gold",
		PlanType:       "PPO",
		PolicyNumber:   "P-1",
		MemberID:       "M-1",
		SubscriberName: "Jane Doe",
		EffectiveDate:  "2024-01-01",
	}
	res := Default().Validate(models.KindInsurancePolicy, policy)
	if !res.Valid {
		t.Fatalf("expected valid, got %v", res.Errors)
	}
}

func TestResultErr(t *testing.T) {
	res := Default().Validate(models.KindPatient, map[string]any{})
	err := res.Err(models.KindPatient)
	var sve *SchemaValidationError
	if !errors.As(err, &sve) {
		t.Fatalf("expected SchemaValidationError, got %v", err)
	}
	if sve.Kind != models.KindPatient || len(sve.Errors) == 0 {
		t.Errorf("unexpected error: %+v", sve)
	}
	if !strings.HasPrefix(err.Error(), "patient failed schema validation") {
		t.Errorf("unexpected message: %s", err)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
