package notify

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	awsclient "seo-offers/internal/common/aws"
	"seo-offers/internal/common/errors"
	"seo-offers/internal/common/logger"
	"seo-offers/internal/common/metrics"
	"seo-offers/internal/common/validation"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// ErrEmailDisabled is returned when no email transport is configured.
var ErrEmailDisabled = stderrors.New("email service not configured")

const charset = "UTF-8"

// Mailer sends composed email through SES.
type Mailer struct {
	ses      awsclient.SESAPI
	from     string
	fromName string
	logger   logger.Logger
}

// NewMailer returns a mailer. A nil api yields a mailer that always fails
// with ErrEmailDisabled.
func NewMailer(api awsclient.SESAPI, from, fromName string, log logger.Logger) *Mailer {
	if fromName == "" {
		fromName = "SEO Platform"
	}
	return &Mailer{ses: api, from: from, fromName: fromName, logger: logger.Component(log, "mailer")}
}

// Sender is the From header, e.g. "SEO Platform <offert@example.se>".
func (m *Mailer) Sender() string {
	return fmt.Sprintf("%s <%s>", m.fromName, m.from)
}

// Enabled reports whether an SES client and sender address are configured.
func (m *Mailer) Enabled() bool {
	return m.ses != nil && m.from != ""
}

// Send delivers the email to one recipient and returns the SES message id.
func (m *Mailer) Send(ctx context.Context, to string, email Email) (string, error) {
	to = strings.TrimSpace(to)
	if !validation.ValidateEmail(to) {
		return "", errors.NewValidationError("to", validation.MsgEmailInvalid)
	}
	if !m.Enabled() {
		metrics.EmailsSent.WithLabelValues(string(email.Type), "disabled").Inc()
		return "", errors.NewNotificationSendFailedError("email", ErrEmailDisabled)
	}

	out, err := m.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(email.Subject), Charset: aws.String(charset)},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(email.HTML), Charset: aws.String(charset)},
				Text: &types.Content{Data: aws.String(email.Text), Charset: aws.String(charset)},
			},
		},
		Source: aws.String(m.Sender()),
	})
	if err != nil {
		metrics.EmailsSent.WithLabelValues(string(email.Type), "failed").Inc()
		m.logger.Error("email send failed", map[string]interface{}{
			"type":  string(email.Type),
			"to":    to,
			"error": err,
		})
		return "", errors.NewNotificationSendFailedError("email", err)
	}

	metrics.EmailsSent.WithLabelValues(string(email.Type), "sent").Inc()
	id := aws.ToString(out.MessageId)
	m.logger.Info("email sent", map[string]interface{}{"type": string(email.Type), "to": to, "messageId": id})
	return id, nil
}

// SendTyped composes and sends in one call.
func (m *Mailer) SendTyped(ctx context.Context, t EmailType, to, domain, pkg string) (string, error) {
	email, err := Compose(t, domain, pkg)
	if err != nil {
		return "", err
	}
	return m.Send(ctx, to, email)
}
