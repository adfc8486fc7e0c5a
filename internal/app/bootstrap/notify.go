package bootstrap

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wolfman30/careconnect/internal/config"
	"github.com/wolfman30/careconnect/internal/notify"
	"github.com/wolfman30/careconnect/pkg/logging"
)

// BuildEmailSender picks the email provider named by EMAIL_PROVIDER and
// falls back to the logging stub when it is not configured.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (notify.EmailSender, string) {
	if logger == nil {
		logger = logging.Default()
	}
	switch cfg.EmailProvider {
	case "sendgrid":
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
			Sandbox:   cfg.EmailSandbox,
		}, logger); sender != nil {
			return sender, "sendgrid"
		}
		logger.Warn("sendgrid selected but SENDGRID_API_KEY is empty; using stub email sender")
	case "ses":
		if awsCfg != nil {
			return notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
				FromEmail:        cfg.EmailFromAddress,
				FromName:         cfg.EmailFromName,
				ConfigurationSet: cfg.SESConfigurationSet,
			}, logger), "ses"
		}
		logger.Warn("ses selected but aws config is unavailable; using stub email sender")
	}
	return notify.NewStubEmailSender(logger), "stub"
}
