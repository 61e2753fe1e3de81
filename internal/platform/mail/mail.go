// Package mail sends account email: password reset links today.
package mail

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/rs/zerolog"
)

type Sender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// sesAPI is the subset of *ses.Client used here.
type sesAPI interface {
	SendEmail(ctx context.Context, in *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESSender delivers plain-text mail through Amazon SES.
type SESSender struct {
	client sesAPI
	from   string
}

// NewSESSender loads AWS credentials from the default chain.
func NewSESSender(ctx context.Context, region, from string) (*SESSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return &SESSender{client: ses.NewFromConfig(cfg), from: from}, nil
}

func (s *SESSender) SendEmail(ctx context.Context, to, subject, body string) error {
	_, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(s.from),
	})
	if err != nil {
		return fmt.Errorf("ses send email: %w", err)
	}
	return nil
}

// LogSender writes mail to the log instead of delivering it. Used in
// development.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger.With().Str("component", "mail").Logger()}
}

func (s *LogSender) SendEmail(_ context.Context, to, subject, body string) error {
	s.logger.Info().Str("to", to).Str("subject", subject).Str("body", body).Msg("email not delivered (log provider)")
	return nil
}

// Mailer composes account messages.
type Mailer struct {
	sender    Sender
	project   string
	publicURL string
}

func NewMailer(sender Sender, project, publicURL string) *Mailer {
	return &Mailer{sender: sender, project: project, publicURL: strings.TrimRight(publicURL, "/")}
}

// ResetURL is the link a user follows to set a new password.
func (m *Mailer) ResetURL(token string) string {
	return m.publicURL + "/api/v1/users/reset-password/" + token
}

func (m *Mailer) SendPasswordReset(ctx context.Context, to, token string) error {
	subject := m.project + ": Account password reset"
	body := fmt.Sprintf("We received a password reset request for your %s account. "+
		"Please use the following link to reset your password. It is valid for 10 minutes.\n%s\n\n"+
		"If you didn't request this, please disregard this email.", m.project, m.ResetURL(token))
	return m.sender.SendEmail(ctx, to, subject, body)
}
