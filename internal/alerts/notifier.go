// internal/alerts/notifier.go
package alerts

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"
)

var ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// Notifier emails the nutrition staff when a saved screening crosses the
// SAM threshold, with optional SMS fan-out.
type Notifier struct {
	config    *Config
	sesClient SESService
	snsClient SNSService
	logger    Logger
}

func NewNotifier(config *Config, sesClient SESService, snsClient SNSService, log Logger) *Notifier {
	return &Notifier{
		config:    config,
		sesClient: sesClient,
		snsClient: snsClient,
		logger: log.With(map[string]interface{}{
			"component": "alerts",
		}),
	}
}

// SAMCaseDetected sends the staff notification. Send failures are logged
// and swallowed: alerting must never fail the screening save.
func (n *Notifier) SAMCaseDetected(ctx context.Context, email string, riskScore int) {
	notificationID := uuid.New().String()

	if err := n.sendEmail(ctx, email, riskScore); err != nil {
		n.logger.Error("SAM alert email failed", map[string]interface{}{
			"notificationId": notificationID,
			"errorCode":      ErrNotificationSendFailed.Error(),
			"error":          err.Error(),
		})
		return
	}

	if n.config.SMSEnable && n.snsClient != nil && n.config.SMSNumber != "" {
		if err := n.sendSMS(ctx, email, riskScore); err != nil {
			n.logger.Error("SAM alert SMS failed", map[string]interface{}{
				"notificationId": notificationID,
				"errorCode":      ErrNotificationSendFailed.Error(),
				"error":          err.Error(),
			})
		}
	}

	n.logger.Info("SAM alert sent", map[string]interface{}{
		"notificationId": notificationID,
		"riskScore":      riskScore,
	})
}

func (n *Notifier) sendEmail(ctx context.Context, email string, riskScore int) error {
	subject := "SAM case detected - immediate follow-up needed"
	body := fmt.Sprintf(
		"A screening for %s came back with risk score %d (Severe Acute Malnutrition range).\n"+
			"Please schedule a referral visit as soon as possible.",
		email, riskScore)

	input := &ses.SendEmailInput{
		Source: aws.String(n.config.FromEmail),
		Destination: &types.Destination{
			ToAddresses: []string{n.config.ToEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
	}

	if _, err := n.sesClient.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("%w: %v", ErrNotificationSendFailed, err)
	}
	return nil
}

func (n *Notifier) sendSMS(ctx context.Context, email string, riskScore int) error {
	message := fmt.Sprintf("NutriSaur: SAM case (score %d) for %s. Check your email for details.", riskScore, email)

	input := &sns.PublishInput{
		PhoneNumber: aws.String(n.config.SMSNumber),
		Message:     aws.String(message),
	}

	if _, err := n.snsClient.Publish(ctx, input); err != nil {
		return fmt.Errorf("%w: %v", ErrNotificationSendFailed, err)
	}
	return nil
}
