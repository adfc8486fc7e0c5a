package conversation

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/wolfman30/careconnect/internal/clinic"
)

// Extraction is the partial result of reading one utterance. Only the
// non-nil Slots fields were found in the utterance.
type Extraction struct {
	Slots Slots
	// Suggested is a treatment category inferred before the issue was
	// confirmed. It is offered to the patient rather than filled.
	Suggested *TreatmentType
	// RejectedSuggestion is set when the patient declined the suggestion.
	RejectedSuggestion bool
}

// SlotExtractor pulls slot values out of free text.
type SlotExtractor struct {
	classifier Classifier
}

func NewSlotExtractor(classifier Classifier) *SlotExtractor {
	if classifier == nil {
		classifier = NewKeywordClassifier()
	}
	return &SlotExtractor{classifier: classifier}
}

var (
	issuePhrasePattern = regexp.MustCompile(`(?i)\b(?:i(?:'ve| have)? got|i have|i'm having|i am having|i've been having|i have been having|suffering from|i suffer from|dealing with|struggling with|problems? with|issues? with|trouble with|worried about|concerned about)\s+(?:a |an |some |the |my )?(.+)`)
	issueTrimPattern   = regexp.MustCompile(`[.!?;,]`)
	fillerPrefix       = regexp.MustCompile(`(?i)^(?:yes|yeah|yep|no|nope|ok|okay|well|so|hi|hello|hey|um+|uh+)\b[\s,!.]*`)

	greetingPattern     = regexp.MustCompile(`(?i)^\s*(?:hi|hello|hey|hiya|good (?:morning|afternoon|evening)|namaste|thanks|thank you|ok|okay)\b[\s!.]*(?:there)?[\s!.]*$`)
	affirmationPattern  = regexp.MustCompile(`(?i)\b(?:yes|yeah|yep|yup|sure|correct|right|exactly|absolutely|definitely|please do|sounds good|ok|okay)\b`)
	negationPattern     = regexp.MustCompile(`(?i)^\s*(?:no|nope|nah|not really|wrong|that's not it|not that)\b`)
	unsurePattern       = regexp.MustCompile(`(?i)\b(?:not sure|unsure|don'?t know|no idea|general|other|something else|anything)\b`)
	flexibleDatePattern = regexp.MustCompile(`(?i)\b(?:asap|as soon as possible|any ?time|any day|whenever|earliest)\b`)

	locationPrepPattern = regexp.MustCompile(`\b(?:[Ii]n|[Aa]t|[Nn]ear|[Aa]round|[Ff]rom)\s+([A-Z][A-Za-z]+(?:\s+[A-Z][A-Za-z]+){0,2})`)

	// Forward-looking date forms, trusted at any stage.
	futureDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:on|this|next|coming)\s+(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday|week(?:end)?|month)\b`),
		regexp.MustCompile(`(?i)\b(?:day after tomorrow|tomorrow)\b`),
		regexp.MustCompile(`(?i)\b\d{1,2}(?:st|nd|rd|th)?\s+(?:of\s+)?(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\b`),
		regexp.MustCompile(`(?i)\b(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\s+\d{1,2}(?:st|nd|rd|th)?\b`),
	}
	// Forms that also describe durations or past events ("for 2-3 days",
	// "since Monday"). Only read when the date question is open.
	answerDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:today|tonight)\b`),
		regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}(?:[/-]\d{2,4})?\b`),
		regexp.MustCompile(`(?i)\b(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`),
	}
	pastContextPattern = regexp.MustCompile(`(?i)\b(?:since|started|began|begun|from|last|till|until|ago)\s*$`)

	calendarWords = map[string]bool{
		"monday": true, "tuesday": true, "wednesday": true, "thursday": true, "friday": true,
		"saturday": true, "sunday": true, "january": true, "february": true, "march": true,
		"april": true, "may": true, "june": true, "july": true, "august": true, "september": true,
		"october": true, "november": true, "december": true, "the": true, "my": true, "i": true,
	}
)

// Extract reads one utterance against the current state.
func (e *SlotExtractor) Extract(ctx context.Context, utterance string, state *State) Extraction {
	var out Extraction
	text := strings.TrimSpace(utterance)
	if text == "" || state == nil {
		return out
	}

	datePhrase := extractFutureDate(text)
	if datePhrase == "" && state.Stage == StageAppointmentDate {
		datePhrase = ExtractDatePhrase(text)
	}
	location := extractLocation(text)
	classification := e.classifier.Classify(ctx, text)
	issueKnown := state.Slots.MedicalIssue != nil

	if !issueKnown {
		if issue := extractMedicalIssue(text, datePhrase, location); issue != "" {
			out.Slots.MedicalIssue = stringPtr(issue)
		} else if classification.Matched() || (state.Stage == StageSymptoms && looksLikeIssue(text)) {
			out.Slots.MedicalIssue = stringPtr(cleanIssue(text, datePhrase, location))
		}
	}

	if state.Slots.TreatmentType == nil {
		e.extractTreatment(ctx, text, state, classification, issueKnown, &out)
	}

	if state.Slots.Location == nil {
		if location != "" {
			out.Slots.Location = stringPtr(location)
		} else if state.Stage == StageLocation && datePhrase == "" && looksLikeBarePlace(text) {
			out.Slots.Location = stringPtr(titleWords(text))
		}
	}

	if state.Slots.AppointmentDate == nil {
		if datePhrase != "" {
			out.Slots.AppointmentDate = stringPtr(datePhrase)
		} else if state.Stage == StageAppointmentDate && flexibleDatePattern.MatchString(text) {
			out.Slots.AppointmentDate = stringPtr("as soon as possible")
		}
	}

	return out
}

func (e *SlotExtractor) extractTreatment(ctx context.Context, text string, state *State, classification Classification, issueKnown bool, out *Extraction) {
	if classification.Matched() {
		if issueKnown {
			out.Slots.TreatmentType = treatmentPtr(classification.Category)
		} else {
			out.Suggested = treatmentPtr(classification.Category)
		}
		return
	}
	if !issueKnown || state.Stage != StageTreatmentType {
		return
	}

	switch {
	case unsurePattern.MatchString(text):
		out.Slots.TreatmentType = treatmentPtr(TreatmentGeneral)
	case negationPattern.MatchString(text):
		out.RejectedSuggestion = true
	case state.SuggestedTreatment != nil:
		out.Slots.TreatmentType = treatmentPtr(*state.SuggestedTreatment)
	default:
		// Without a suggestion, look back over everything the patient said.
		history := strings.Join(state.userTexts(), " ")
		if c := e.classifier.Classify(ctx, history); c.Matched() {
			out.Slots.TreatmentType = treatmentPtr(c.Category)
		}
	}
}

// ExtractDatePhrase returns the first date expression found in text,
// preserving the patient's wording. It reads every supported form and
// suits replies to a direct date question.
func ExtractDatePhrase(text string) string {
	if phrase := extractFutureDate(text); phrase != "" {
		return phrase
	}
	return firstDateMatch(text, answerDatePatterns)
}

func extractFutureDate(text string) string {
	return firstDateMatch(text, futureDatePatterns)
}

func firstDateMatch(text string, patterns []*regexp.Regexp) string {
	for _, p := range patterns {
		for _, loc := range p.FindAllStringIndex(text, -1) {
			if pastContextPattern.MatchString(text[:loc[0]]) {
				continue
			}
			return strings.TrimSpace(text[loc[0]:loc[1]])
		}
	}
	return ""
}

func extractLocation(text string) string {
	if city, ok := clinic.FindCity(text); ok {
		return city.Name
	}
	for _, m := range locationPrepPattern.FindAllStringSubmatch(text, -1) {
		words := strings.Fields(m[1])
		var kept []string
		for _, w := range words {
			if calendarWords[strings.ToLower(w)] {
				break
			}
			kept = append(kept, w)
		}
		if len(kept) > 0 {
			return strings.Join(kept, " ")
		}
	}
	return ""
}

func extractMedicalIssue(text, datePhrase, location string) string {
	m := issuePhrasePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return cleanIssue(m[1], datePhrase, location)
}

const maxIssueRunes = 120

// cleanIssue strips the date and location phrases and anything after the
// first sentence break.
func cleanIssue(raw, datePhrase, location string) string {
	issue := raw
	if datePhrase != "" {
		issue = strings.Replace(issue, datePhrase, "", 1)
	}
	if location != "" {
		issue = regexp.MustCompile(`(?i)\s*\b(?:in|at|near|around|from)?\s*`+regexp.QuoteMeta(location)+`\b`).ReplaceAllString(issue, "")
	}
	if loc := issueTrimPattern.FindStringIndex(issue); loc != nil {
		issue = issue[:loc[0]]
	}
	issue = fillerPrefix.ReplaceAllString(strings.TrimSpace(issue), "")
	issue = strings.Join(strings.Fields(issue), " ")
	if runes := []rune(issue); len(runes) > maxIssueRunes {
		issue = strings.TrimSpace(string(runes[:maxIssueRunes]))
	}
	return issue
}

func looksLikeIssue(text string) bool {
	if greetingPattern.MatchString(text) {
		return false
	}
	return len(strings.Fields(text)) >= 2
}

func looksLikeBarePlace(text string) bool {
	if greetingPattern.MatchString(text) || affirmationPattern.MatchString(text) || negationPattern.MatchString(text) {
		return false
	}
	words := strings.Fields(strings.Trim(text, " .!?"))
	if len(words) == 0 || len(words) > 4 {
		return false
	}
	for _, r := range text {
		if unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func titleWords(text string) string {
	words := strings.Fields(strings.Trim(text, " .!?,"))
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
