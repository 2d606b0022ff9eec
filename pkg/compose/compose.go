// Package compose assembles independently generated entities into one
// record and fills the fields that can be derived across them.
package compose

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/medsynth/medsynth/pkg/models"
)

const dateLayout = "2006-01-02"

// Extras are the optional parts of a record.
type Extras struct {
	MedicalHistory *models.MedicalHistory
	VisitReports   []models.VisitReport
	LabReports     map[models.LabTestType]models.LaboratoryReport
}

// Assemble builds a record from copies of its inputs. It backfills age,
// display names, identifiers, the patient's insurance mirror and a default
// pharmacy, and orders visits by date. Inputs are never modified.
func Assemble(patient models.Patient, provider models.Provider, insurance models.InsuranceInfo, extras Extras, now time.Time) models.AssembledRecord {
	rec := models.AssembledRecord{
		Patient:     clone(patient),
		Provider:    clone(provider),
		Insurance:   clone(insurance),
		AssembledAt: now.UTC(),
	}
	p := &rec.Patient

	if p.Age == 0 {
		if age, ok := Age(p.DateOfBirth, now); ok {
			p.Age = age
		}
	}
	if p.Name == "" {
		p.Name = PatientName(*p)
	}
	if p.ID == "" {
		p.ID = fallbackID("patient", p.LastName, strings.ReplaceAll(p.DateOfBirth, "-", ""))
	}
	if p.Pharmacy == nil {
		ph := DefaultPharmacy(p.Address)
		p.Pharmacy = &ph
	}

	if rec.Insurance.Primary.ID == "" {
		rec.Insurance.Primary.ID = fallbackID("policy", rec.Insurance.Primary.MemberID)
	}
	if s := rec.Insurance.Secondary; s != nil && s.ID == "" {
		s.ID = fallbackID("policy", s.MemberID)
	}
	if p.Insurance == nil && rec.Insurance.Primary.CompanyName != "" {
		primary := rec.Insurance.Primary
		p.Insurance = &primary
	}

	if rec.Provider.Name == "" {
		rec.Provider.Name = ProviderName(rec.Provider)
	}
	if rec.Provider.ID == "" {
		rec.Provider.ID = fallbackID("provider", rec.Provider.LastName, rec.Provider.NPI)
	}

	if extras.MedicalHistory != nil {
		h := clone(*extras.MedicalHistory)
		rec.MedicalHistory = &h
	}
	if len(extras.VisitReports) > 0 {
		rec.VisitReports = clone(extras.VisitReports)
		SortVisits(rec.VisitReports)
		for i := range rec.VisitReports {
			v := &rec.VisitReports[i]
			if v.ID == "" {
				v.ID = fallbackID("visit", p.LastName, strings.ReplaceAll(v.VisitDate, "-", ""))
			}
			if v.ProviderName == "" {
				v.ProviderName = rec.Provider.Name
			}
		}
	}
	if len(extras.LabReports) > 0 {
		rec.LabReports = make(map[models.LabTestType]models.LaboratoryReport, len(extras.LabReports))
		for t, r := range extras.LabReports {
			r = clone(r)
			if r.TestType == "" {
				r.TestType = t
			}
			if r.ID == "" {
				r.ID = fallbackID("lab", string(t), p.LastName, strings.ReplaceAll(r.CollectionDate, "-", ""))
			}
			if r.OrderingProvider == "" {
				r.OrderingProvider = rec.Provider.Name
			}
			rec.LabReports[t] = r
		}
	}
	return rec
}

// Age returns the whole years between dob and now. It reports false for an
// unparseable or future date of birth.
func Age(dob string, now time.Time) (int, bool) {
	born, err := time.Parse(dateLayout, dob)
	if err != nil {
		return 0, false
	}
	y, m, d := now.Date()
	if born.After(time.Date(y, m, d, 0, 0, 0, 0, time.UTC)) {
		return 0, false
	}
	age := y - born.Year()
	if m < born.Month() || (m == born.Month() && d < born.Day()) {
		age--
	}
	return age, true
}

// PatientName formats "Last, First".
func PatientName(p models.Patient) string {
	switch {
	case p.LastName == "":
		return p.FirstName
	case p.FirstName == "":
		return p.LastName
	}
	return p.LastName + ", " + p.FirstName
}

// ProviderName formats "Dr. First Last, CRED".
func ProviderName(p models.Provider) string {
	name := strings.TrimSpace("Dr. " + strings.TrimSpace(p.FirstName+" "+p.LastName))
	if p.Credentials != "" {
		name += ", " + p.Credentials
	}
	return name
}

// DefaultPharmacy is the pharmacy assigned to a patient who has none.
func DefaultPharmacy(addr models.Address) models.Pharmacy {
	ph := models.Pharmacy{Name: "Community Pharmacy"}
	if addr.City != "" {
		ph.Address = fmt.Sprintf("%s, %s %s", addr.City, addr.State, addr.ZipCode)
	}
	return ph
}

// SortVisits orders visits by date and renumbers them from 1.
func SortVisits(visits []models.VisitReport) {
	sort.SliceStable(visits, func(i, j int) bool {
		return visits[i].VisitDate < visits[j].VisitDate
	})
	for i := range visits {
		visits[i].VisitNumber = i + 1
	}
}

func fallbackID(kind string, parts ...string) string {
	var b strings.Builder
	b.WriteString(kind)
	for _, p := range parts {
		p = strings.ToLower(strings.Join(strings.Fields(p), "-"))
		if p != "" {
			b.WriteString("-")
			b.WriteString(p)
		}
	}
	return b.String()
}

// clone deep-copies v through its JSON form; every entity field is JSON
// tagged, so nothing is lost.
func clone[T any](v T) T {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}
