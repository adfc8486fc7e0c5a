package notify

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"sync"

	"github.com/wolfman30/careconnect/pkg/logging"
)

// EmailSender delivers one transactional email.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// Category labels a message with the flow that produced it. Providers
// receive it as a category (SendGrid) or message tag (SES).
type Category string

const (
	CategoryBookingConfirmed      Category = "booking-confirmed"
	CategoryVerificationSubmitted Category = "verification-submitted"
	CategoryVerificationDecision  Category = "verification-decision"
)

const defaultFromName = "CareConnect"

var (
	ErrNoRecipient = errors.New("notify: email has no recipient")
	ErrNoSubject   = errors.New("notify: email has no subject")
)

// EmailMessage is one outgoing email. HTML is optional; Body is always sent
// as the plain-text part.
type EmailMessage struct {
	To       string
	ToName   string
	ReplyTo  string
	Subject  string
	Body     string
	HTML     string
	Category Category
}

func (m EmailMessage) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrNoRecipient
	}
	if strings.TrimSpace(m.Subject) == "" {
		return ErrNoSubject
	}
	return nil
}

// sender is the From identity shared by the provider senders.
type sender struct {
	email string
	name  string
}

func newSender(email, name string) sender {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultFromName
	}
	return sender{email: strings.TrimSpace(email), name: name}
}

func (s sender) String() string {
	return (&mail.Address{Name: s.name, Address: s.email}).String()
}

// StubEmailSender logs messages instead of sending them. Used when no
// provider is configured and in tests.
type StubEmailSender struct {
	logger *logging.Logger

	mu   sync.Mutex
	sent []EmailMessage
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	if err := msg.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	s.logger.Info("stub email sender: email not delivered",
		"to", msg.To,
		"subject", msg.Subject,
		"category", msg.Category,
	)
	return nil
}

// Sent returns the messages accepted so far.
func (s *StubEmailSender) Sent() []EmailMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]EmailMessage(nil), s.sent...)
}
