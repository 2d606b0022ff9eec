package models

// Complexity controls how clinically involved a generated record is.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// PatientOptions parameterise patient generation.
type PatientOptions struct {
	AgeMin     int        `json:"ageMin,omitempty"`
	AgeMax     int        `json:"ageMax,omitempty"`
	Gender     string     `json:"gender,omitempty"`
	State      string     `json:"state,omitempty"`
	Complexity Complexity `json:"complexity,omitempty"`
}

// ProviderOptions parameterise provider generation.
type ProviderOptions struct {
	Specialty    string `json:"specialty,omitempty"`
	State        string `json:"state,omitempty"`
	FacilityType string `json:"facilityType,omitempty"`
}

// InsuranceOptions parameterise insurance generation. Subscriber fields tie the
// policy to an already generated patient.
type InsuranceOptions struct {
	PlanType              string `json:"planType,omitempty"`
	IncludeSecondary      bool   `json:"includeSecondary,omitempty"`
	SubscriberName        string `json:"subscriberName,omitempty"`
	SubscriberDateOfBirth string `json:"subscriberDateOfBirth,omitempty"`
	State                 string `json:"state,omitempty"`
}

// ClaimOptions parameterise CMS-1500 claim generation.
type ClaimOptions struct {
	Patient          *Patient       `json:"patient,omitempty"`
	Provider         *Provider      `json:"provider,omitempty"`
	Insurance        *InsuranceInfo `json:"insurance,omitempty"`
	ServiceLineCount int            `json:"serviceLineCount,omitempty"`
	DateOfService    string         `json:"dateOfService,omitempty"`
	Complexity       Complexity     `json:"complexity,omitempty"`
}

// VisitOptions parameterise visit report generation.
type VisitOptions struct {
	Count      int             `json:"count,omitempty"`
	VisitType  string          `json:"visitType,omitempty"`
	StartDate  string          `json:"startDate,omitempty"`
	Patient    *Patient        `json:"patient,omitempty"`
	Provider   *Provider       `json:"provider,omitempty"`
	History    *MedicalHistory `json:"history,omitempty"`
	Complexity Complexity      `json:"complexity,omitempty"`
}

// HistoryOptions parameterise medical history generation.
type HistoryOptions struct {
	Patient    *Patient   `json:"patient,omitempty"`
	Complexity Complexity `json:"complexity,omitempty"`
	Conditions []string   `json:"conditions,omitempty"`
}

// LabOptions is the shared context for a batch of laboratory panels.
type LabOptions struct {
	Patient         *Patient   `json:"patient,omitempty"`
	Provider        *Provider  `json:"provider,omitempty"`
	CollectionDate  string     `json:"collectionDate,omitempty"`
	IncludeAbnormal bool       `json:"includeAbnormal,omitempty"`
	Complexity      Complexity `json:"complexity,omitempty"`
}

// RecordOptions parameterise a complete record: the required patient,
// provider and insurance plus optional history, visits and lab panels.
type RecordOptions struct {
	Patient        PatientOptions   `json:"patient"`
	Provider       ProviderOptions  `json:"provider"`
	Insurance      InsuranceOptions `json:"insurance"`
	IncludeHistory bool             `json:"includeHistory,omitempty"`
	VisitCount     int              `json:"visitCount,omitempty"`
	LabTests       []LabTestType    `json:"labTests,omitempty"`
	Complexity     Complexity       `json:"complexity,omitempty"`
}
