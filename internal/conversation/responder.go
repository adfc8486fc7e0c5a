package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/careconnect/pkg/logging"
)

// ReplySource records how a reply was produced.
type ReplySource string

const (
	ReplyRemote         ReplySource = "remote"
	ReplyCanned         ReplySource = "canned"
	ReplyRecommendation ReplySource = "recommendation"
)

// Reply is the generated assistant message for a turn.
type Reply struct {
	Text   string      `json:"text"`
	Source ReplySource `json:"source"`
}

var (
	ErrMalformedReply  = errors.New("conversation: malformed reply json")
	ErrEmptyReply      = errors.New("conversation: empty reply")
	ErrRepetitiveReply = errors.New("conversation: reply repeats a recent response")
)

const (
	defaultLLMTimeout = 8 * time.Second
	historyWindow     = 6

	assistantPersona = `You are CareConnect, a warm and concise healthcare triage assistant for a clinic marketplace.
You collect four details from the patient: their medical issue, the treatment type (hair, dental, cosmetic, ivf or general), their location and a preferred appointment date.
Never diagnose or prescribe. Keep replies to one or two sentences.`
)

// ReplyObserver receives the outcome of every generation. Implemented by
// the metrics package.
type ReplyObserver interface {
	ObserveReply(source string, duration time.Duration)
}

// ResponseGenerator produces the assistant's next message, preferring the
// remote model and falling back to the canned question library.
type ResponseGenerator struct {
	llm       LLMClient
	timeout   time.Duration
	maxTokens int32
	logger    *logging.Logger
	observer  ReplyObserver
}

// ResponderOption customises a ResponseGenerator.
type ResponderOption func(*ResponseGenerator)

func WithLLMTimeout(d time.Duration) ResponderOption {
	return func(g *ResponseGenerator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func WithMaxTokens(n int) ResponderOption {
	return func(g *ResponseGenerator) {
		if n > 0 {
			g.maxTokens = int32(n)
		}
	}
}

func WithReplyObserver(o ReplyObserver) ResponderOption {
	return func(g *ResponseGenerator) {
		g.observer = o
	}
}

// NewResponseGenerator builds a generator. llm may be nil, in which case
// only canned replies are produced.
func NewResponseGenerator(llm LLMClient, logger *logging.Logger, opts ...ResponderOption) *ResponseGenerator {
	if logger == nil {
		logger = logging.Default()
	}
	g := &ResponseGenerator{
		llm:       llm,
		timeout:   defaultLLMTimeout,
		maxTokens: 256,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns the reply for the state's current stage. It never fails:
// remote errors are logged and the canned library is used instead.
func (g *ResponseGenerator) Generate(ctx context.Context, state *State) Reply {
	start := time.Now()
	target := TargetQuestion(state)

	if g.llm != nil && len(state.Messages) > 0 {
		text, err := g.remote(ctx, state, target)
		if err == nil {
			g.observe(ReplyRemote, start)
			return Reply{Text: text, Source: ReplyRemote}
		}
		g.logger.Warn("remote reply unavailable, using canned response",
			"session_id", state.ID,
			"stage", state.Stage,
			"error", err,
		)
	}

	reply := Reply{Text: CannedReply(state), Source: ReplyCanned}
	g.observe(ReplyCanned, start)
	return reply
}

func (g *ResponseGenerator) remote(ctx context.Context, state *State, target string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.llm.Complete(ctx, LLMRequest{
		System:      []string{assistantPersona, buildInstruction(state, target)},
		Messages:    recentHistory(state.Messages, historyWindow),
		MaxTokens:   g.maxTokens,
		Temperature: 0.7,
		JSON:        true,
	})
	if err != nil {
		return "", err
	}
	g.logger.Debug("remote reply received",
		"session_id", state.ID,
		"provider", resp.Provider,
		"output_tokens", resp.Usage.OutputTokens,
	)
	text, err := ParseReply(resp.Text)
	if err != nil {
		return "", err
	}
	if IsRepetitive(text, state.RecentResponses) {
		return "", ErrRepetitiveReply
	}
	return text, nil
}

func (g *ResponseGenerator) observe(source ReplySource, start time.Time) {
	if g.observer != nil {
		g.observer.ObserveReply(string(source), time.Since(start))
	}
}

// buildInstruction embeds the collected slots, the stage and the question
// the model should ask.
func buildInstruction(state *State, target string) string {
	var b strings.Builder
	b.WriteString("Collected so far:\n")
	fmt.Fprintf(&b, "- Medical issue: %s\n", valueOrUnknown(state.Slots.issue()))
	treatment := string(state.Slots.treatment())
	if treatment == "" && state.SuggestedTreatment != nil {
		treatment = string(*state.SuggestedTreatment) + " (suggested, not yet confirmed)"
	}
	fmt.Fprintf(&b, "- Treatment type: %s\n", valueOrUnknown(treatment))
	fmt.Fprintf(&b, "- Location: %s\n", valueOrUnknown(state.Slots.location()))
	fmt.Fprintf(&b, "- Appointment date: %s\n", valueOrUnknown(state.Slots.date()))
	fmt.Fprintf(&b, "Current stage: %s\n", state.Stage)
	fmt.Fprintf(&b, "Your next goal is to ask the patient this, in your own words: %q\n", target)
	if len(state.RecentResponses) > 0 {
		b.WriteString("Do not repeat these earlier replies:\n")
		for _, r := range state.RecentResponses {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	b.WriteString(`Respond with JSON only: {"reply": "<your message>"}`)
	return b.String()
}

func valueOrUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return "unknown"
	}
	return v
}

func recentHistory(messages []Message, n int) []ChatMessage {
	if len(messages) > n {
		messages = messages[len(messages)-n:]
	}
	out := make([]ChatMessage, 0, len(messages))
	for _, m := range messages {
		role := ChatRoleUser
		if m.Sender == SenderAI {
			role = ChatRoleAssistant
		}
		out = append(out, ChatMessage{Role: role, Content: m.Text})
	}
	// Providers expect the conversation to open with the patient.
	for len(out) > 0 && out[0].Role == ChatRoleAssistant {
		out = out[1:]
	}
	return out
}

// ParseReply reads a model reply. A {...} object is decoded for its
// "reply" field; text that contains "{" but does not decode is malformed.
// Plain text is accepted as is.
func ParseReply(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyReply
	}
	if !strings.Contains(text, "{") {
		return text, nil
	}

	body := extractJSONObject(text)
	if body == "" {
		return "", ErrMalformedReply
	}
	var decoded struct {
		Reply   string `json:"reply"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	reply := strings.TrimSpace(decoded.Reply)
	if reply == "" {
		reply = strings.TrimSpace(decoded.Message)
	}
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}

// CannedReply picks a pre-written variant for the current stage. It starts
// from the variant matching how often the question was asked and skips any
// that repeat a recent response. If every variant repeats, the least
// similar one is used.
func CannedReply(state *State) string {
	variants := renderedVariants(state)
	start := state.Asked[questionKey(state)] % len(variants)

	best, bestScore := "", 2.0
	for i := range variants {
		candidate := variants[(start+i)%len(variants)]
		score := maxSimilarity(candidate, state.RecentResponses)
		if score < RepetitionThreshold {
			return candidate
		}
		if score < bestScore {
			best, bestScore = candidate, score
		}
	}
	return best
}
