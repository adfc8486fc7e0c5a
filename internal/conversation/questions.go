package conversation

import (
	"fmt"
	"strings"

	"github.com/wolfman30/careconnect/internal/clinic"
)

// Question keys. The treatment stage has two forms depending on whether a
// category has been suggested.
const (
	questionSymptoms         = "symptoms"
	questionConfirmTreatment = "treatmentType.confirm"
	questionChooseTreatment  = "treatmentType.choose"
	questionLocation         = "location"
	questionDate             = "appointmentDate"
	questionFollowUp         = "complete"
)

// questionVariants holds the primary phrasing first followed by its
// alternates. Placeholders are filled from the slots.
var questionVariants = map[string][]string{
	questionSymptoms: {
		"Hello! I'm the CareConnect assistant. What health concern can I help you with today?",
		"To point you to the right clinic, could you describe the symptoms or problem you're experiencing?",
		"What medical issue would you like help with? For example tooth pain, hair loss, a skin concern or fertility questions.",
	},
	questionConfirmTreatment: {
		"Thanks for sharing. It sounds like {issue} is a {treatment} concern. Shall I look for {treatment} clinics for you?",
		"Based on what you described, a {treatment} specialist seems like the right fit. Does that sound right?",
		"I'd suggest seeing a {treatment} clinic about {issue}. Would you like me to search for one?",
	},
	questionChooseTreatment: {
		"Which kind of care are you looking for: hair, dental, cosmetic or IVF treatment?",
		"Could you tell me which specialty fits best? I can search hair, dental, cosmetic, IVF or general clinics.",
		"So I can find the right specialist for {issue}, is this a hair, dental, cosmetic or fertility concern?",
	},
	questionLocation: {
		"Got it, I'll look for {treatment} care. Which city or area would you like to be treated in?",
		"Where are you located? Tell me your city so I can find clinics nearby.",
		"Which location works best for your {treatment} appointment?",
	},
	questionDate: {
		"Great, {location} it is. When would you like to book your appointment?",
		"What date suits you for a visit in {location}? For example tomorrow or next Monday.",
		"When are you free to see a {treatment} specialist?",
	},
	questionFollowUp: {
		"Your top match is still {clinic} in {clinic_city}. Would you like me to book it for {date}?",
		"{clinic} remains my best recommendation for {issue}. Shall I go ahead and reserve {date}?",
		"If you're ready, I can book {clinic} for {date}. Just say the word, or reset the chat to start over.",
	},
}

// questionKey picks the question for the state's current stage.
func questionKey(state *State) string {
	switch state.Stage {
	case StageSymptoms:
		return questionSymptoms
	case StageTreatmentType:
		if state.SuggestedTreatment != nil {
			return questionConfirmTreatment
		}
		return questionChooseTreatment
	case StageLocation:
		return questionLocation
	case StageAppointmentDate:
		return questionDate
	}
	return questionFollowUp
}

// TargetQuestion returns the phrasing to ask next. A question that has
// already been asked moves on to its alternates in turn.
func TargetQuestion(state *State) string {
	variants := renderedVariants(state)
	asked := state.Asked[questionKey(state)]
	return variants[asked%len(variants)]
}

func renderedVariants(state *State) []string {
	templates := questionVariants[questionKey(state)]
	r := slotReplacer(state)
	out := make([]string, len(templates))
	for i, t := range templates {
		out[i] = r.Replace(t)
	}
	return out
}

func slotReplacer(state *State) *strings.Replacer {
	treatment := state.Slots.treatment()
	if treatment == "" && state.SuggestedTreatment != nil {
		treatment = *state.SuggestedTreatment
	}
	issue := state.Slots.issue()
	if issue == "" {
		issue = "your concern"
	}
	location := state.Slots.location()
	if location == "" {
		location = "your area"
	}
	date := state.Slots.date()
	if date == "" {
		date = "your preferred date"
	}
	clinicName, clinicCity := "the clinic", location
	if len(state.Recommendations) > 0 {
		clinicName = state.Recommendations[0].Name
		if state.Recommendations[0].City != "" {
			clinicCity = state.Recommendations[0].City
		}
	}
	return strings.NewReplacer(
		"{issue}", issue,
		"{treatment}", treatmentLabel(treatment),
		"{location}", location,
		"{date}", date,
		"{clinic}", clinicName,
		"{clinic_city}", clinicCity,
	)
}

func treatmentLabel(t TreatmentType) string {
	if t == "" {
		return "medical"
	}
	return t.Label()
}

// RecommendationMessage summarises ranked clinics for the patient.
func RecommendationMessage(state *State, recs []clinic.Recommendation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on your %s, here are the %s clinics I recommend near %s for %s:",
		strings.TrimSpace(state.Slots.issue()),
		treatmentLabel(state.Slots.treatment()),
		state.Slots.location(),
		state.Slots.date(),
	)
	for i, r := range recs {
		fmt.Fprintf(&b, "\n%d. %s (rated %.1f", i+1, r.Name, r.Rating)
		if r.City != "" {
			fmt.Fprintf(&b, ", %s", r.City)
		}
		fmt.Fprintf(&b, ", %.1f km away)", r.DistanceKm)
	}
	if len(recs) == 0 {
		b.WriteString("\nI couldn't find a matching clinic right now. Please try again shortly.")
		return b.String()
	}
	b.WriteString("\nWould you like me to book an appointment at one of these clinics?")
	return b.String()
}
