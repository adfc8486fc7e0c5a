package archive

import "time"

// TranscriptRecord is the document archived to S3 for each completed triage.
type TranscriptRecord struct {
	Version         string    `json:"version"` // "1.0"
	SessionID       string    `json:"session_id"`
	ArchivedAt      time.Time `json:"archived_at"`
	DurationSeconds int       `json:"duration_seconds"`
	MessageCount    int       `json:"message_count"`
	Outcome         string    `json:"outcome"` // triage_completed
	Triage          Triage    `json:"triage"`
	ClinicIDs       []string  `json:"recommended_clinic_ids"`
	Messages        []Message `json:"messages"`
}

// Triage holds the collected slot values.
type Triage struct {
	MedicalIssue    string `json:"medical_issue"`
	TreatmentType   string `json:"treatment_type"`
	Location        string `json:"location"`
	AppointmentDate string `json:"appointment_date"`
}

// Message is a single conversation turn.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ManifestEntry is one JSONL line in the monthly manifest file.
type ManifestEntry struct {
	SessionID     string `json:"session_id"`
	S3Key         string `json:"s3_key"`
	TreatmentType string `json:"treatment_type"`
	Location      string `json:"location"`
	ArchivedAt    string `json:"archived_at"`
	MessageCount  int    `json:"message_count"`
	Outcome       string `json:"outcome"`
}
