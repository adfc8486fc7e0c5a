package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/wolfman30/careconnect/pkg/logging"
)

// Classification is the outcome of mapping an utterance to a treatment category.
// An empty Category means nothing matched.
type Classification struct {
	Category   TreatmentType `json:"category"`
	Confidence float64       `json:"confidence"`
}

// Matched reports whether a category was found.
func (c Classification) Matched() bool {
	return c.Category != ""
}

// Classifier maps free text onto a treatment category.
type Classifier interface {
	Classify(ctx context.Context, utterance string) Classification
}

type treatmentFamily struct {
	category TreatmentType
	pattern  *regexp.Regexp
}

// Families are evaluated in order and the first match wins.
var treatmentFamilies = []treatmentFamily{
	{
		category: TreatmentHair,
		pattern:  regexp.MustCompile(`(?i)\b(hair\s*(loss|fall|transplant|thinning|restoration|regrowth|growth)|losing\s+(my\s+)?hair|hair\s+is\s+(falling|thinning)|falling\s+hair|thinning\s+hair|bald(ness|ing)?|alopecia|receding\s+hairline|hairline|dandruff|scalp|prp)\b`),
	},
	{
		category: TreatmentDental,
		pattern:  regexp.MustCompile(`(?i)\b(teeth|tooth|toothache|dental|dentist|cavity|cavities|gums?|root\s+canal|braces|molars?|wisdom\s+teeth|orthodont\w*|enamel|plaque|tartar|crown|implants?\s+for\s+teeth)\b`),
	},
	{
		category: TreatmentCosmetic,
		pattern:  regexp.MustCompile(`(?i)\b(cosmetic|botox|fillers?|wrinkles?|acne|pimples?|skin|facial|laser|lip\s+(filler|augmentation)|rhinoplasty|nose\s+job|liposuction|lipo|plastic\s+surgery|tummy\s+tuck|scars?|pigmentation|dark\s+spots|anti[-\s]?aging|chemical\s+peel)\b`),
	},
	{
		category: TreatmentIVF,
		pattern:  regexp.MustCompile(`(?i)\b(ivf|in\s+vitro|fertility|infertil\w*|conceiv\w*|pregnan\w*|egg\s+freezing|iui|embryo|sperm\s+count|ovulation|trying\s+for\s+a\s+baby)\b`),
	},
}

// KeywordClassifier matches utterances against ordered keyword families.
type KeywordClassifier struct{}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

func (KeywordClassifier) Classify(_ context.Context, utterance string) Classification {
	category, ok := DetermineTreatmentType(utterance)
	if !ok {
		return Classification{}
	}
	return Classification{Category: category, Confidence: 1}
}

// DetermineTreatmentType returns the first treatment family matching text.
func DetermineTreatmentType(text string) (TreatmentType, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	for _, family := range treatmentFamilies {
		if family.pattern.MatchString(text) {
			return family.category, true
		}
	}
	return "", false
}

const (
	classifierSystemPrompt = `You classify a patient's message into one treatment category for a clinic finder.
Categories: hair, dental, cosmetic, ivf, general.
Reply with JSON only: {"category": "<category or empty>", "confidence": <0..1>}.
Use an empty category when the message does not describe a health concern.`
	defaultMinConfidence = 0.6
)

// LLMClassifier asks a remote model to classify and falls back to keyword
// matching when the call fails or the model is unsure.
type LLMClassifier struct {
	llm           LLMClient
	fallback      Classifier
	minConfidence float64
	logger        *logging.Logger
}

func NewLLMClassifier(llm LLMClient, fallback Classifier, logger *logging.Logger) *LLMClassifier {
	if fallback == nil {
		fallback = NewKeywordClassifier()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LLMClassifier{
		llm:           llm,
		fallback:      fallback,
		minConfidence: defaultMinConfidence,
		logger:        logger,
	}
}

func (c *LLMClassifier) Classify(ctx context.Context, utterance string) Classification {
	if keyword := c.fallback.Classify(ctx, utterance); keyword.Matched() {
		return keyword
	}
	if c.llm == nil || strings.TrimSpace(utterance) == "" {
		return Classification{}
	}

	resp, err := c.llm.Complete(ctx, LLMRequest{
		System:      []string{classifierSystemPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: utterance}},
		MaxTokens:   64,
		Temperature: 0,
		JSON:        true,
	})
	if err != nil {
		c.logger.Warn("treatment classification failed", "error", err)
		return Classification{}
	}
	result, err := parseClassification(resp.Text)
	if err != nil {
		c.logger.Warn("treatment classification unparseable", "error", err)
		return Classification{}
	}
	if result.Confidence < c.minConfidence {
		return Classification{}
	}
	return result
}

func parseClassification(raw string) (Classification, error) {
	body := extractJSONObject(raw)
	if body == "" {
		return Classification{}, errors.New("conversation: classifier reply has no json object")
	}
	var decoded struct {
		Category   string  `json:"category"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		return Classification{}, fmt.Errorf("conversation: decode classifier reply: %w", err)
	}
	category, ok := ParseTreatmentType(decoded.Category)
	if !ok {
		return Classification{}, nil
	}
	return Classification{Category: category, Confidence: decoded.Confidence}, nil
}

// extractJSONObject returns the outermost {...} span of s, or "".
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
