package models

import "time"

// GenerationRequest is the immutable identity of one generation. Its fields
// are the cache key material.
type GenerationRequest struct {
	Kind       EntityKind `json:"kind"`
	Deployment string     `json:"deployment"`
	Options    any        `json:"options"`
}

// NewGenerationRequest builds a request for kind with the given options.
func NewGenerationRequest(kind EntityKind, deployment string, options any) GenerationRequest {
	return GenerationRequest{Kind: kind, Deployment: deployment, Options: options}
}

// AssembledRecord is one synthetic patient's full record.
type AssembledRecord struct {
	Patient        Patient                          `json:"patient"`
	Provider       Provider                         `json:"provider"`
	Insurance      InsuranceInfo                    `json:"insurance"`
	MedicalHistory *MedicalHistory                  `json:"medicalHistory,omitempty"`
	VisitReports   []VisitReport                    `json:"visitReports,omitempty"`
	LabReports     map[LabTestType]LaboratoryReport `json:"labReports,omitempty"`
	AssembledAt    time.Time                        `json:"assembledAt"`
}
