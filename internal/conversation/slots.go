package conversation

import "strings"

// TreatmentType is the clinical category used to route clinic recommendations.
type TreatmentType string

const (
	TreatmentHair     TreatmentType = "hair"
	TreatmentDental   TreatmentType = "dental"
	TreatmentCosmetic TreatmentType = "cosmetic"
	TreatmentIVF      TreatmentType = "ivf"
	TreatmentGeneral  TreatmentType = "general"
)

// ParseTreatmentType maps a user or API supplied value onto a known category.
func ParseTreatmentType(raw string) (TreatmentType, bool) {
	switch TreatmentType(strings.ToLower(strings.TrimSpace(raw))) {
	case TreatmentHair:
		return TreatmentHair, true
	case TreatmentDental:
		return TreatmentDental, true
	case TreatmentCosmetic:
		return TreatmentCosmetic, true
	case TreatmentIVF:
		return TreatmentIVF, true
	case TreatmentGeneral:
		return TreatmentGeneral, true
	}
	return "", false
}

// Label is the patient-facing wording for the category.
func (t TreatmentType) Label() string {
	switch t {
	case TreatmentHair:
		return "hair restoration"
	case TreatmentDental:
		return "dental"
	case TreatmentCosmetic:
		return "cosmetic"
	case TreatmentIVF:
		return "fertility (IVF)"
	case TreatmentGeneral:
		return "general medical"
	}
	return string(t)
}

// Slots holds the four pieces of information the triage flow collects.
// A nil field has not been collected yet.
type Slots struct {
	MedicalIssue    *string        `json:"medical_issue"`
	TreatmentType   *TreatmentType `json:"treatment_type"`
	Location        *string        `json:"location"`
	AppointmentDate *string        `json:"appointment_date"`
}

// Merge fills the nil fields of s from update. Fields that are already set
// are never replaced.
func (s Slots) Merge(update Slots) Slots {
	if s.MedicalIssue == nil && nonEmpty(update.MedicalIssue) {
		s.MedicalIssue = stringPtr(*update.MedicalIssue)
	}
	if s.TreatmentType == nil && update.TreatmentType != nil && *update.TreatmentType != "" {
		tt := *update.TreatmentType
		s.TreatmentType = &tt
	}
	if s.Location == nil && nonEmpty(update.Location) {
		s.Location = stringPtr(*update.Location)
	}
	if s.AppointmentDate == nil && nonEmpty(update.AppointmentDate) {
		s.AppointmentDate = stringPtr(*update.AppointmentDate)
	}
	return s
}

// Filled reports whether the slot backing the stage has a value.
func (s Slots) Filled(stage Stage) bool {
	switch stage {
	case StageSymptoms:
		return s.MedicalIssue != nil
	case StageTreatmentType:
		return s.TreatmentType != nil
	case StageLocation:
		return s.Location != nil
	case StageAppointmentDate:
		return s.AppointmentDate != nil
	case StageComplete:
		return s.Complete()
	}
	return false
}

// Missing lists the unfilled slot stages in question order.
func (s Slots) Missing() []Stage {
	var missing []Stage
	for _, stage := range stageOrder {
		if !s.Filled(stage) {
			missing = append(missing, stage)
		}
	}
	return missing
}

// Complete reports whether all four slots are set.
func (s Slots) Complete() bool {
	return len(s.Missing()) == 0
}

func (s Slots) clone() Slots {
	out := Slots{}
	if s.MedicalIssue != nil {
		out.MedicalIssue = stringPtr(*s.MedicalIssue)
	}
	if s.TreatmentType != nil {
		tt := *s.TreatmentType
		out.TreatmentType = &tt
	}
	if s.Location != nil {
		out.Location = stringPtr(*s.Location)
	}
	if s.AppointmentDate != nil {
		out.AppointmentDate = stringPtr(*s.AppointmentDate)
	}
	return out
}

func (s Slots) issue() string {
	if s.MedicalIssue == nil {
		return ""
	}
	return *s.MedicalIssue
}

func (s Slots) treatment() TreatmentType {
	if s.TreatmentType == nil {
		return ""
	}
	return *s.TreatmentType
}

func (s Slots) location() string {
	if s.Location == nil {
		return ""
	}
	return *s.Location
}

func (s Slots) date() string {
	if s.AppointmentDate == nil {
		return ""
	}
	return *s.AppointmentDate
}

func stringPtr(v string) *string {
	return &v
}

func treatmentPtr(t TreatmentType) *TreatmentType {
	return &t
}

func nonEmpty(v *string) bool {
	return v != nil && strings.TrimSpace(*v) != ""
}
