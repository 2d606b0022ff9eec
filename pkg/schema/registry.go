package schema

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/medsynth/medsynth/pkg/models"
)

// SchemaValidationError reports a parsed object that does not match its
// entity schema. It is not retried automatically.
type SchemaValidationError struct {
	Kind   models.EntityKind
	Errors []string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("%s failed schema validation: %s", e.Kind, strings.Join(e.Errors, "; "))
}

// Registry maps entity kinds to their schemas.
type Registry struct {
	schemas map[models.EntityKind]*Schema
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[models.EntityKind]*Schema)}
}

// Default returns a registry with every entity kind registered.
func Default() *Registry {
	r := NewRegistry()
	r.Register(models.KindPatient, models.Patient{})
	r.Register(models.KindProvider, models.Provider{})
	r.Register(models.KindInsurance, models.InsuranceInfo{})
	r.Register(models.KindInsurancePolicy, models.InsurancePolicy{})
	r.Register(models.KindCMS1500, models.CMS1500Claim{})
	r.Register(models.KindVisitReport, models.VisitReport{})
	r.Register(models.KindMedicalHistory, models.MedicalHistory{})
	r.Register(models.KindLabReport, models.LaboratoryReport{})
	return r
}

// Register derives and stores the schema for sample's type.
func (r *Registry) Register(kind models.EntityKind, sample any) {
	r.schemas[kind] = FromType(reflect.TypeOf(sample))
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []models.EntityKind {
	kinds := make([]models.EntityKind, 0, len(r.schemas))
	for k := range r.schemas {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// SchemaFor returns the schema for kind. An unregistered kind is a
// programming error and panics.
func (r *Registry) SchemaFor(kind models.EntityKind) *Schema {
	s, ok := r.schemas[kind]
	if !ok {
		panic(fmt.Sprintf("schema: entity kind %q is not registered", kind))
	}
	return s
}

// Validate checks candidate against the schema for kind. It never panics;
// an unregistered kind is reported as a validation failure.
func (r *Registry) Validate(kind models.EntityKind, candidate any) Result {
	s, ok := r.schemas[kind]
	if !ok {
		return Result{Errors: []string{fmt.Sprintf("%s: entity kind is not registered", kind)}}
	}
	data, err := toMap(candidate)
	if err != nil {
		return Result{Errors: []string{fmt.Sprintf("%s: %v", kind, err)}}
	}
	if errs := Check(s, data, string(kind)); len(errs) > 0 {
		return Result{Errors: errs}
	}
	return Result{Valid: true, Data: data}
}

// Err converts an invalid result into a SchemaValidationError.
func (res Result) Err(kind models.EntityKind) error {
	if res.Valid {
		return nil
	}
	return &SchemaValidationError{Kind: kind, Errors: res.Errors}
}
