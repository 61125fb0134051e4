package service

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"dailymission/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// sesAPI is the subset of the SES v2 client used for sending
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     sesAPI
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	debug      bool
	logger     *slog.Logger
}

// NewEmailService creates a new email service. An empty fromEmail yields a
// disabled service that logs and skips every send.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string, debug bool, logger *slog.Logger) (*EmailService, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if fromEmail == "" {
		logger.Info("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false, debug: debug, logger: logger}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("Email service enabled", slog.String("from", fromEmail), slog.String("region", awsRegion))

	return &EmailService{
		client:     sesv2.NewFromConfig(cfg),
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		debug:      debug,
		logger:     logger,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendWelcomeEmail greets a user after profile setup
func (s *EmailService) SendWelcomeEmail(ctx context.Context, toEmail, toName string) error {
	if !s.enabled {
		s.logger.Debug("Skipping email send (service disabled)", slog.String("kind", "welcome"), slog.String("to", toEmail))
		return nil
	}

	subject := "Welcome to Daily Mission!"
	name := html.EscapeString(toName)
	htmlBody := fmt.Sprintf(emailLayout, "Welcome to Daily Mission!", fmt.Sprintf(`
			<p>Hi %s,</p>
			<p>Your profile is ready. Pick one small mission a day for sleep, meals, grooming or activity and build your streak.</p>
			<p style="text-align: center;"><a href="%s" class="button">Start today's mission</a></p>`, name, s.appBaseURL))

	textBody := fmt.Sprintf(`Hi %s,

Your profile is ready. Pick one small mission a day for sleep, meals, grooming or activity and build your streak.

Start today's mission: %s
`, toName, s.appBaseURL)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// NotifyBadgesUnlocked implements BadgeNotifier
func (s *EmailService) NotifyBadgesUnlocked(ctx context.Context, user *models.User, badges []models.Badge) error {
	if user == nil || user.Email == "" || len(badges) == 0 {
		return nil
	}
	return s.SendBadgeUnlockedEmail(ctx, user.Email, user.Name, badges)
}

// SendBadgeUnlockedEmail announces newly unlocked badges
func (s *EmailService) SendBadgeUnlockedEmail(ctx context.Context, toEmail, toName string, badges []models.Badge) error {
	if !s.enabled {
		s.logger.Debug("Skipping email send (service disabled)", slog.String("kind", "badge"), slog.String("to", toEmail))
		return nil
	}

	subject := "You unlocked a new badge!"
	if len(badges) > 1 {
		subject = fmt.Sprintf("You unlocked %d new badges!", len(badges))
	}

	var htmlItems, textItems strings.Builder
	for _, b := range badges {
		fmt.Fprintf(&htmlItems, "<li><strong>%s</strong>: %s</li>", html.EscapeString(b.DisplayName), html.EscapeString(b.Description))
		fmt.Fprintf(&textItems, "- %s: %s\n", b.DisplayName, b.Description)
	}

	htmlBody := fmt.Sprintf(emailLayout, "New badge unlocked", fmt.Sprintf(`
			<p>Hi %s,</p>
			<p>Your latest mission earned you:</p>
			<ul>%s</ul>
			<p style="text-align: center;"><a href="%s/badges" class="button">See your badges</a></p>`,
		html.EscapeString(toName), htmlItems.String(), s.appBaseURL))

	textBody := fmt.Sprintf(`Hi %s,

Your latest mission earned you:
%s
See your badges: %s/badges
`, toName, textItems.String(), s.appBaseURL)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	if s.debug {
		s.logger.Debug("Sending email",
			slog.String("from", fromAddress),
			slog.String("to", toEmail),
			slog.String("subject", subject),
			slog.Int("html_bytes", len(htmlBody)),
		)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	attrs := []any{slog.String("to", toEmail), slog.String("subject", subject)}
	if result != nil && result.MessageId != nil {
		attrs = append(attrs, slog.String("message_id", *result.MessageId))
	}
	s.logger.Info("Email sent", attrs...)
	return nil
}

const emailLayout = `<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #ff8a3d; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #fff8f2; padding: 30px; border-radius: 0 0 5px 5px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #ff8a3d; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header"><h1>%s</h1></div>
		<div class="content">%s
		</div>
		<div class="footer"><p>This is an automated email from Daily Mission. Please do not reply.</p></div>
	</div>
</body>
</html>
`
