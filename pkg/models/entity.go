package models

// EntityKind names one structured record kind.
type EntityKind string

const (
	KindPatient         EntityKind = "patient"
	KindProvider        EntityKind = "provider"
	KindInsurance       EntityKind = "insurance"
	KindInsurancePolicy EntityKind = "insurance_policy"
	KindCMS1500         EntityKind = "cms1500"
	KindVisitReport     EntityKind = "visit_report"
	KindMedicalHistory  EntityKind = "medical_history"
	KindLabReport       EntityKind = "lab_report"
)

// Address is a postal address.
type Address struct {
	Street  string `json:"street" schema:"required"`
	City    string `json:"city" schema:"required"`
	State   string `json:"state" schema:"required"`
	ZipCode string `json:"zipCode" schema:"required"`
	Country string `json:"country,omitempty"`
}

// Pharmacy is the patient's preferred pharmacy.
type Pharmacy struct {
	Name    string `json:"name" schema:"required"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// EmergencyContact is a person to notify on the patient's behalf.
type EmergencyContact struct {
	Name         string `json:"name" schema:"required"`
	Relationship string `json:"relationship" schema:"required"`
	Phone        string `json:"phone" schema:"required"`
}

// Patient is a synthetic patient demographic record.
type Patient struct {
	ID                  string            `json:"id,omitempty"`
	FirstName           string            `json:"firstName" schema:"required"`
	MiddleName          string            `json:"middleName,omitempty"`
	LastName            string            `json:"lastName" schema:"required"`
	Name                string            `json:"name,omitempty"`
	DateOfBirth         string            `json:"dateOfBirth" schema:"required,format=date"`
	Age                 int               `json:"age,omitempty"`
	Gender              string            `json:"gender" schema:"required,enum=male|female|other"`
	Address             Address           `json:"address" schema:"required"`
	Phone               string            `json:"phone" schema:"required"`
	Email               string            `json:"email,omitempty"`
	MedicalRecordNumber string            `json:"medicalRecordNumber,omitempty"`
	MaritalStatus       string            `json:"maritalStatus,omitempty"`
	PreferredLanguage   string            `json:"preferredLanguage,omitempty"`
	EmergencyContact    *EmergencyContact `json:"emergencyContact,omitempty"`
	Insurance           *InsurancePolicy  `json:"insurance,omitempty"`
	Pharmacy            *Pharmacy         `json:"pharmacy,omitempty"`
}

// Provider is a synthetic rendering or billing provider.
type Provider struct {
	ID           string  `json:"id,omitempty"`
	FirstName    string  `json:"firstName" schema:"required"`
	LastName     string  `json:"lastName" schema:"required"`
	Name         string  `json:"name,omitempty"`
	Credentials  string  `json:"credentials" schema:"required"`
	Specialty    string  `json:"specialty" schema:"required"`
	NPI          string  `json:"npi" schema:"required"`
	TaxID        string  `json:"taxId,omitempty"`
	PracticeName string  `json:"practiceName" schema:"required"`
	Address      Address `json:"address" schema:"required"`
	Phone        string  `json:"phone" schema:"required"`
	Fax          string  `json:"fax,omitempty"`
}

// InsurancePolicy is one coverage policy.
type InsurancePolicy struct {
	ID                    string  `json:"id,omitempty"`
	CompanyName           string  `json:"companyName" schema:"required"`
	PlanName              string  `json:"planName" schema:"required"`
	PlanType              string  `json:"planType" schema:"required,enum=HMO|PPO|EPO|POS|HDHP|Medicare|Medicaid|Tricare|Other"`
	PolicyNumber          string  `json:"policyNumber" schema:"required"`
	GroupNumber           string  `json:"groupNumber,omitempty"`
	MemberID              string  `json:"memberId" schema:"required"`
	SubscriberName        string  `json:"subscriberName" schema:"required"`
	SubscriberDateOfBirth string  `json:"subscriberDateOfBirth,omitempty" schema:"format=date"`
	RelationshipToInsured string  `json:"relationshipToInsured,omitempty" schema:"enum=self|spouse|child|other"`
	EffectiveDate         string  `json:"effectiveDate" schema:"required,format=date"`
	ExpirationDate        string  `json:"expirationDate,omitempty" schema:"format=date"`
	Copay                 float64 `json:"copay,omitempty"`
	Deductible            float64 `json:"deductible,omitempty"`
	Phone                 string  `json:"phone,omitempty"`
}

// InsuranceInfo holds the primary and optional secondary coverage.
type InsuranceInfo struct {
	Primary   InsurancePolicy  `json:"primary" schema:"required"`
	Secondary *InsurancePolicy `json:"secondary,omitempty"`
}

// DiagnosisCode is an ICD-10-CM code.
type DiagnosisCode struct {
	Code        string `json:"code" schema:"required"`
	Description string `json:"description" schema:"required"`
}

// ServiceLine is one line of CMS-1500 item 24.
type ServiceLine struct {
	DateOfServiceFrom string   `json:"dateOfServiceFrom" schema:"required,format=date"`
	DateOfServiceTo   string   `json:"dateOfServiceTo,omitempty" schema:"format=date"`
	PlaceOfService    string   `json:"placeOfService" schema:"required"`
	CPTCode           string   `json:"cptCode" schema:"required"`
	Modifiers         []string `json:"modifiers,omitempty"`
	DiagnosisPointer  string   `json:"diagnosisPointer" schema:"required"`
	Charges           float64  `json:"charges" schema:"required"`
	Units             int      `json:"units" schema:"required"`
	RenderingNPI      string   `json:"renderingNpi,omitempty"`
}

// CMS1500Claim is a professional claim. Patient, provider and insurance are
// embedded snapshots rather than references.
type CMS1500Claim struct {
	ClaimID                  string          `json:"claimId,omitempty"`
	Patient                  Patient         `json:"patient"`
	Provider                 Provider        `json:"provider"`
	Insurance                InsuranceInfo   `json:"insurance"`
	Diagnoses                []DiagnosisCode `json:"diagnoses" schema:"required"`
	ServiceLines             []ServiceLine   `json:"serviceLines" schema:"required"`
	TotalCharge              float64         `json:"totalCharge,omitempty"`
	AmountPaid               float64         `json:"amountPaid,omitempty"`
	PriorAuthorizationNumber string          `json:"priorAuthorizationNumber,omitempty"`
	AcceptAssignment         bool            `json:"acceptAssignment,omitempty"`
	SignatureDate            string          `json:"signatureDate" schema:"required,format=date"`
}

// Vitals are the vital signs recorded at a visit.
type Vitals struct {
	BloodPressure    string  `json:"bloodPressure" schema:"required"`
	HeartRate        int     `json:"heartRate" schema:"required"`
	RespiratoryRate  int     `json:"respiratoryRate,omitempty"`
	Temperature      float64 `json:"temperature" schema:"required"`
	OxygenSaturation int     `json:"oxygenSaturation,omitempty"`
	Weight           float64 `json:"weight,omitempty"`
	Height           float64 `json:"height,omitempty"`
	BMI              float64 `json:"bmi,omitempty"`
}

// Medication is an active or historical prescription.
type Medication struct {
	Name      string `json:"name" schema:"required"`
	Dosage    string `json:"dosage" schema:"required"`
	Frequency string `json:"frequency" schema:"required"`
	Route     string `json:"route,omitempty"`
	StartDate string `json:"startDate,omitempty" schema:"format=date"`
}

// VisitReport is one encounter note.
type VisitReport struct {
	ID                      string          `json:"id,omitempty"`
	VisitNumber             int             `json:"visitNumber,omitempty"`
	VisitDate               string          `json:"visitDate" schema:"required,format=date"`
	VisitType               string          `json:"visitType" schema:"required"`
	ProviderName            string          `json:"providerName,omitempty"`
	ChiefComplaint          string          `json:"chiefComplaint" schema:"required"`
	HistoryOfPresentIllness string          `json:"historyOfPresentIllness" schema:"required"`
	Vitals                  Vitals          `json:"vitals" schema:"required"`
	PhysicalExam            string          `json:"physicalExam" schema:"required"`
	Assessment              string          `json:"assessment" schema:"required"`
	Plan                    string          `json:"plan" schema:"required"`
	Diagnoses               []DiagnosisCode `json:"diagnoses,omitempty"`
	Medications             []Medication    `json:"medications,omitempty"`
	FollowUp                string          `json:"followUp,omitempty"`
}

// Condition is an entry on the problem list.
type Condition struct {
	Name          string `json:"name" schema:"required"`
	ICD10Code     string `json:"icd10Code,omitempty"`
	DiagnosedDate string `json:"diagnosedDate,omitempty" schema:"format=date"`
	Status        string `json:"status" schema:"required,enum=active|resolved|chronic|in remission"`
}

// Allergy is a recorded allergy or intolerance.
type Allergy struct {
	Allergen string `json:"allergen" schema:"required"`
	Reaction string `json:"reaction" schema:"required"`
	Severity string `json:"severity" schema:"required,enum=mild|moderate|severe"`
}

// Surgery is a past procedure.
type Surgery struct {
	Procedure string `json:"procedure" schema:"required"`
	Date      string `json:"date" schema:"required,format=date"`
	Notes     string `json:"notes,omitempty"`
}

// FamilyHistoryEntry records a condition in a relative.
type FamilyHistoryEntry struct {
	Relation  string `json:"relation" schema:"required"`
	Condition string `json:"condition" schema:"required"`
}

// Immunization is an administered vaccine.
type Immunization struct {
	Vaccine string `json:"vaccine" schema:"required"`
	Date    string `json:"date" schema:"required,format=date"`
}

// SocialHistory captures lifestyle factors.
type SocialHistory struct {
	Smoking    string `json:"smoking" schema:"required"`
	Alcohol    string `json:"alcohol" schema:"required"`
	Exercise   string `json:"exercise,omitempty"`
	Occupation string `json:"occupation,omitempty"`
}

// MedicalHistory is the longitudinal history of a patient.
type MedicalHistory struct {
	Conditions    []Condition          `json:"conditions" schema:"required"`
	Medications   []Medication         `json:"medications" schema:"required"`
	Allergies     []Allergy            `json:"allergies" schema:"required"`
	Surgeries     []Surgery            `json:"surgeries,omitempty"`
	FamilyHistory []FamilyHistoryEntry `json:"familyHistory,omitempty"`
	Immunizations []Immunization       `json:"immunizations,omitempty"`
	SocialHistory SocialHistory        `json:"socialHistory" schema:"required"`
}

// LabTestType identifies a laboratory panel, e.g. "CBC".
type LabTestType string

// LabResult is a single analyte result.
type LabResult struct {
	Name           string `json:"name" schema:"required"`
	Value          string `json:"value" schema:"required"`
	Unit           string `json:"unit,omitempty"`
	ReferenceRange string `json:"referenceRange" schema:"required"`
	Flag           string `json:"flag,omitempty" schema:"enum=normal|low|high|critical"`
}

// LaboratoryReport is one resulted panel.
type LaboratoryReport struct {
	ID               string      `json:"id,omitempty"`
	TestType         LabTestType `json:"testType,omitempty"`
	TestName         string      `json:"testName" schema:"required"`
	OrderingProvider string      `json:"orderingProvider,omitempty"`
	CollectionDate   string      `json:"collectionDate" schema:"required,format=date"`
	ReportDate       string      `json:"reportDate" schema:"required,format=date"`
	Specimen         string      `json:"specimen" schema:"required"`
	Results          []LabResult `json:"results" schema:"required"`
	Interpretation   string      `json:"interpretation,omitempty"`
	LabName          string      `json:"labName,omitempty"`
	Status           string      `json:"status,omitempty" schema:"enum=final|preliminary|corrected"`
}
