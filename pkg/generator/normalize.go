package generator

import (
	"strings"

	"github.com/medsynth/medsynth/pkg/compose"
	"github.com/medsynth/medsynth/pkg/models"
)

// Normalizers fill fields the model may have omitted. They never replace a
// present, valid value and applying one twice changes nothing.

func (g *Generator) normalizePatient(p *models.Patient) {
	if p.ID == "" {
		p.ID = g.newID()
	}
	if p.Name == "" {
		p.Name = compose.PatientName(*p)
	}
	if age, ok := compose.Age(p.DateOfBirth, g.now()); ok && p.Age != age {
		p.Age = age
	}
	p.Gender = canonical(p.Gender, "male", "female", "other")
	if p.MedicalRecordNumber == "" {
		p.MedicalRecordNumber = mrn(p.ID)
	}
	if p.Address.Country == "" {
		p.Address.Country = "USA"
	}
	if p.Pharmacy == nil {
		ph := compose.DefaultPharmacy(p.Address)
		p.Pharmacy = &ph
	}
	if p.Insurance != nil {
		normalizePolicy(g, p.Insurance, models.InsuranceOptions{})
	}
}

func (g *Generator) normalizeProvider(p *models.Provider) {
	if p.ID == "" {
		p.ID = g.newID()
	}
	if p.Name == "" {
		p.Name = compose.ProviderName(*p)
	}
	if p.Address.Country == "" {
		p.Address.Country = "USA"
	}
}

func normalizePolicy(g *Generator, p *models.InsurancePolicy, opts models.InsuranceOptions) {
	if p.ID == "" {
		p.ID = g.newID()
	}
	p.PlanType = canonical(p.PlanType, "HMO", "PPO", "EPO", "POS", "HDHP", "Medicare", "Medicaid", "Tricare", "Other")
	p.RelationshipToInsured = canonical(p.RelationshipToInsured, "self", "spouse", "child", "other")
	if p.SubscriberName == "" {
		p.SubscriberName = opts.SubscriberName
	}
	if p.SubscriberDateOfBirth == "" {
		p.SubscriberDateOfBirth = opts.SubscriberDateOfBirth
	}
	if p.RelationshipToInsured == "" && opts.SubscriberName != "" && p.SubscriberName == opts.SubscriberName {
		p.RelationshipToInsured = "self"
	}
}

func (g *Generator) normalizeInsurance(info *models.InsuranceInfo, opts models.InsuranceOptions) {
	normalizePolicy(g, &info.Primary, opts)
	if info.Secondary != nil {
		normalizePolicy(g, info.Secondary, opts)
	}
}

func (g *Generator) normalizeClaim(c *models.CMS1500Claim, opts models.ClaimOptions) {
	if c.ClaimID == "" {
		c.ClaimID = "CLM-" + compact(g.newID(), 10)
	}
	if c.Patient.FirstName == "" && opts.Patient != nil {
		c.Patient = *opts.Patient
	}
	if c.Provider.NPI == "" && opts.Provider != nil {
		c.Provider = *opts.Provider
	}
	if c.Insurance.Primary.CompanyName == "" && opts.Insurance != nil {
		c.Insurance = *opts.Insurance
	}
	var total float64
	for i := range c.ServiceLines {
		l := &c.ServiceLines[i]
		if l.DateOfServiceTo == "" {
			l.DateOfServiceTo = l.DateOfServiceFrom
		}
		if l.RenderingNPI == "" {
			l.RenderingNPI = c.Provider.NPI
		}
		total += l.Charges
	}
	if c.TotalCharge == 0 {
		c.TotalCharge = total
	}
}

func (g *Generator) normalizeVisit(v *models.VisitReport, opts models.VisitOptions, number int) {
	if v.ID == "" {
		v.ID = g.newID()
	}
	if v.VisitNumber == 0 {
		v.VisitNumber = number
	}
	if v.ProviderName == "" && opts.Provider != nil {
		v.ProviderName = compose.ProviderName(*opts.Provider)
	}
}

func (g *Generator) normalizeHistory(h *models.MedicalHistory) {
	if h.Surgeries == nil {
		h.Surgeries = []models.Surgery{}
	}
	if h.FamilyHistory == nil {
		h.FamilyHistory = []models.FamilyHistoryEntry{}
	}
	if h.Immunizations == nil {
		h.Immunizations = []models.Immunization{}
	}
	for i := range h.Conditions {
		h.Conditions[i].Status = canonical(h.Conditions[i].Status, "active", "resolved", "chronic", "in remission")
	}
	for i := range h.Allergies {
		h.Allergies[i].Severity = canonical(h.Allergies[i].Severity, "mild", "moderate", "severe")
	}
}

func (g *Generator) normalizeLab(r *models.LaboratoryReport, opts models.LabOptions, testType models.LabTestType) {
	if r.ID == "" {
		r.ID = g.newID()
	}
	if r.TestType == "" {
		r.TestType = testType
	}
	if r.Status == "" {
		r.Status = "final"
	}
	r.Status = canonical(r.Status, "final", "preliminary", "corrected")
	if r.OrderingProvider == "" && opts.Provider != nil {
		r.OrderingProvider = compose.ProviderName(*opts.Provider)
	}
	for i := range r.Results {
		r.Results[i].Flag = canonical(r.Results[i].Flag, "normal", "low", "high", "critical")
	}
}

// canonical returns the allowed spelling of v when it matches one of
// allowed ignoring case, and v unchanged otherwise.
func canonical(v string, allowed ...string) string {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return a
		}
	}
	return v
}

func mrn(id string) string {
	return "MRN-" + strings.ToUpper(compact(id, 8))
}

// compact drops dashes from id and truncates it to n characters.
func compact(id string, n int) string {
	s := strings.ReplaceAll(id, "-", "")
	if len(s) > n {
		s = s[:n]
	}
	return s
}
