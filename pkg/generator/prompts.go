package generator

import (
	"fmt"
	"strings"

	"github.com/medsynth/medsynth/pkg/models"
)

var entityDescriptions = map[models.EntityKind]string{
	models.KindPatient:         "patient demographic record",
	models.KindProvider:        "healthcare provider record",
	models.KindInsurance:       "insurance coverage record with a primary and optional secondary policy",
	models.KindInsurancePolicy: "single health insurance policy",
	models.KindCMS1500:         "CMS-1500 professional claim",
	models.KindVisitReport:     "clinical visit report",
	models.KindMedicalHistory:  "longitudinal medical history",
	models.KindLabReport:       "laboratory report",
}

var complexityGuidance = map[models.Complexity]string{
	models.ComplexityLow:    "Keep the clinical picture simple: a generally healthy person with at most one minor condition.",
	models.ComplexityMedium: "Use a moderately involved clinical picture: one or two chronic conditions that are well controlled.",
	models.ComplexityHigh:   "Use a complex clinical picture: several interacting chronic conditions, polypharmacy and recent acute events.",
}

func (g *Generator) systemPrompt(kind models.EntityKind) string {
	var b strings.Builder
	b.WriteString("You generate realistic but entirely synthetic medical data for software testing and training.\n")
	b.WriteString("All names, identifiers, addresses and numbers must be fictional. Never reproduce data about a real person; the output must be HIPAA-safe.\n")
	b.WriteString("Respond with a single JSON object and nothing else: no prose, no markdown.\n")
	b.WriteString("Dates use the format YYYY-MM-DD. Use clinically plausible values, real ICD-10-CM and CPT codes, and US conventions.\n")
	fmt.Fprintf(&b, "The object is a %s and must conform to this JSON schema:\n", entityDescriptions[kind])
	b.WriteString(g.registry.SchemaFor(kind).String())
	return b.String()
}

func complexityLine(b *strings.Builder, c models.Complexity) {
	if s, ok := complexityGuidance[c]; ok {
		b.WriteString(s)
		b.WriteString("\n")
	}
}

func patientSummary(b *strings.Builder, p *models.Patient) {
	if p == nil {
		return
	}
	fmt.Fprintf(b, "Patient: %s %s, born %s, %s", p.FirstName, p.LastName, p.DateOfBirth, p.Gender)
	if p.Address.State != "" {
		fmt.Fprintf(b, ", living in %s, %s", p.Address.City, p.Address.State)
	}
	b.WriteString(".\n")
}

func providerSummary(b *strings.Builder, p *models.Provider) {
	if p == nil {
		return
	}
	fmt.Fprintf(b, "Provider: Dr. %s %s, %s, %s (NPI %s) at %s.\n",
		p.FirstName, p.LastName, p.Credentials, p.Specialty, p.NPI, p.PracticeName)
}

func historySummary(b *strings.Builder, h *models.MedicalHistory) {
	if h == nil {
		return
	}
	if len(h.Conditions) > 0 {
		names := make([]string, len(h.Conditions))
		for i, c := range h.Conditions {
			names[i] = fmt.Sprintf("%s (%s)", c.Name, c.Status)
		}
		fmt.Fprintf(b, "Known conditions: %s.\n", strings.Join(names, ", "))
	}
	if len(h.Medications) > 0 {
		names := make([]string, len(h.Medications))
		for i, m := range h.Medications {
			names[i] = m.Name + " " + m.Dosage
		}
		fmt.Fprintf(b, "Current medications: %s.\n", strings.Join(names, ", "))
	}
	if len(h.Allergies) > 0 {
		names := make([]string, len(h.Allergies))
		for i, a := range h.Allergies {
			names[i] = a.Allergen
		}
		fmt.Fprintf(b, "Allergies: %s.\n", strings.Join(names, ", "))
	}
}

func (g *Generator) patientPrompt(opts models.PatientOptions) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate one synthetic patient. Today is %s.\n", g.today())
	switch {
	case opts.AgeMin > 0 && opts.AgeMax > 0:
		fmt.Fprintf(&b, "The patient is between %d and %d years old; choose a date of birth accordingly.\n", opts.AgeMin, opts.AgeMax)
	case opts.AgeMin > 0:
		fmt.Fprintf(&b, "The patient is at least %d years old.\n", opts.AgeMin)
	case opts.AgeMax > 0:
		fmt.Fprintf(&b, "The patient is at most %d years old.\n", opts.AgeMax)
	}
	if opts.Gender != "" {
		fmt.Fprintf(&b, "Gender: %s.\n", opts.Gender)
	}
	if opts.State != "" {
		fmt.Fprintf(&b, "The patient lives in %s.\n", opts.State)
	}
	complexityLine(&b, opts.Complexity)
	b.WriteString("Include an emergency contact. Leave id, name and age out; they are derived.\n")
	return b.String()
}

func providerPrompt(opts models.ProviderOptions) string {
	var b strings.Builder
	b.WriteString("Generate one synthetic healthcare provider with a 10-digit NPI that starts with 1.\n")
	if opts.Specialty != "" {
		fmt.Fprintf(&b, "Specialty: %s.\n", opts.Specialty)
	}
	if opts.FacilityType != "" {
		fmt.Fprintf(&b, "The provider practices at a %s.\n", opts.FacilityType)
	}
	if opts.State != "" {
		fmt.Fprintf(&b, "The practice is in %s.\n", opts.State)
	}
	return b.String()
}

func (g *Generator) insurancePrompt(opts models.InsuranceOptions, single bool) string {
	var b strings.Builder
	if single {
		fmt.Fprintf(&b, "Generate one synthetic health insurance policy. Today is %s.\n", g.today())
	} else {
		fmt.Fprintf(&b, "Generate synthetic health insurance coverage with a primary policy. Today is %s.\n", g.today())
		if opts.IncludeSecondary {
			b.WriteString("Also include a secondary policy from a different carrier.\n")
		} else {
			b.WriteString("Do not include a secondary policy.\n")
		}
	}
	if opts.PlanType != "" {
		fmt.Fprintf(&b, "Primary plan type: %s.\n", opts.PlanType)
	}
	if opts.SubscriberName != "" {
		fmt.Fprintf(&b, "Subscriber: %s", opts.SubscriberName)
		if opts.SubscriberDateOfBirth != "" {
			fmt.Fprintf(&b, ", born %s", opts.SubscriberDateOfBirth)
		}
		b.WriteString(". The patient is the subscriber (relationship self).\n")
	}
	if opts.State != "" {
		fmt.Fprintf(&b, "Choose a carrier that operates in %s.\n", opts.State)
	}
	b.WriteString("The effective date is in the past and precedes any expiration date.\n")
	return b.String()
}

func (g *Generator) claimPrompt(opts models.ClaimOptions) string {
	var b strings.Builder
	b.WriteString("Generate one synthetic CMS-1500 professional claim.\n")
	patientSummary(&b, opts.Patient)
	providerSummary(&b, opts.Provider)
	if opts.Insurance != nil {
		p := opts.Insurance.Primary
		fmt.Fprintf(&b, "Primary insurance: %s %s, member %s.\n", p.CompanyName, p.PlanName, p.MemberID)
	}
	if opts.Patient != nil || opts.Provider != nil || opts.Insurance != nil {
		b.WriteString("Omit the patient, provider and insurance objects that were given above; they are attached afterwards.\n")
	}
	lines := opts.ServiceLineCount
	if lines <= 0 {
		lines = 1
	}
	fmt.Fprintf(&b, "Include %d service line(s), each pointing at one of the diagnoses (A-L).\n", lines)
	dos := opts.DateOfService
	if dos == "" {
		dos = g.today()
	}
	fmt.Fprintf(&b, "Date of service: %s. The signature date is on or after it.\n", dos)
	complexityLine(&b, opts.Complexity)
	return b.String()
}

func (g *Generator) visitPrompt(opts models.VisitOptions, previous *models.VisitReport, number int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate visit report number %d for the patient below.\n", number)
	patientSummary(&b, opts.Patient)
	providerSummary(&b, opts.Provider)
	historySummary(&b, opts.History)
	if opts.VisitType != "" {
		fmt.Fprintf(&b, "Visit type: %s.\n", opts.VisitType)
	}
	if previous != nil {
		fmt.Fprintf(&b, "The previous visit was on %s (%s) for %q. Assessment: %s Plan: %s\n",
			previous.VisitDate, previous.VisitType, previous.ChiefComplaint, previous.Assessment, previous.Plan)
		fmt.Fprintf(&b, "This visit is dated strictly after %s and follows up on it where clinically sensible.\n", previous.VisitDate)
	} else if opts.StartDate != "" {
		fmt.Fprintf(&b, "This visit is on or after %s.\n", opts.StartDate)
	} else {
		fmt.Fprintf(&b, "This visit is on or before %s.\n", g.today())
	}
	complexityLine(&b, opts.Complexity)
	return b.String()
}

func (g *Generator) historyPrompt(opts models.HistoryOptions) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate the medical history for the patient below. Today is %s.\n", g.today())
	patientSummary(&b, opts.Patient)
	if len(opts.Conditions) > 0 {
		fmt.Fprintf(&b, "The history must include: %s.\n", strings.Join(opts.Conditions, ", "))
	}
	complexityLine(&b, opts.Complexity)
	b.WriteString("Every date is after the date of birth and not in the future.\n")
	return b.String()
}

func (g *Generator) labPrompt(opts models.LabOptions, panel LabPanel) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a %s (%s) laboratory report.\n", panel.Name, panel.Type)
	if len(panel.Analytes) > 0 {
		fmt.Fprintf(&b, "Report these analytes with units and reference ranges: %s.\n", strings.Join(panel.Analytes, ", "))
	}
	if panel.Specimen != "" {
		fmt.Fprintf(&b, "Specimen: %s.\n", panel.Specimen)
	}
	patientSummary(&b, opts.Patient)
	providerSummary(&b, opts.Provider)
	collected := opts.CollectionDate
	if collected == "" {
		collected = g.today()
	}
	fmt.Fprintf(&b, "Collection date: %s. The report date is on or after it.\n", collected)
	if opts.IncludeAbnormal {
		b.WriteString("Include at least one abnormal result, flagged low, high or critical, and mention it in the interpretation.\n")
	} else {
		b.WriteString("Results are mostly within reference range; flag each result normal, low, high or critical.\n")
	}
	complexityLine(&b, opts.Complexity)
	b.WriteString("Every result value is a string.\n")
	return b.String()
}
