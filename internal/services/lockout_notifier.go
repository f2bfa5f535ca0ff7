package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/BradenHooton/sitegate/internal/models"
)

// SESClient is the subset of the SES API used for lockout alerts
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESLockoutNotifier emails the site operator when a client gets locked out
type SESLockoutNotifier struct {
	sesClient   SESClient
	fromAddress string
	toAddresses []string
	logger      *slog.Logger
}

// NewSESLockoutNotifier creates a notifier backed by AWS SES
func NewSESLockoutNotifier(ctx context.Context, region, fromAddress string, toAddresses []string, logger *slog.Logger) (*SESLockoutNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewSESLockoutNotifierWithClient(ses.NewFromConfig(cfg), fromAddress, toAddresses, logger), nil
}

// NewSESLockoutNotifierWithClient creates a notifier around an existing client
func NewSESLockoutNotifierWithClient(client SESClient, fromAddress string, toAddresses []string, logger *slog.Logger) *SESLockoutNotifier {
	return &SESLockoutNotifier{
		sesClient:   client,
		fromAddress: fromAddress,
		toAddresses: toAddresses,
		logger:      logger,
	}
}

// NotifyLockout sends a plain text alert describing the lockout
func (n *SESLockoutNotifier) NotifyLockout(ctx context.Context, record *models.AttemptRecord) error {
	textBody := fmt.Sprintf(`Password gate lockout

Client: %s
Failed attempts: %d
Locked until: %s
Other lockouts since the last alert: %d

No action is required. The lockout lifts on its own.
`, record.ClientKey, record.FailureCount, record.LockoutDeadline.UTC().Format(time.RFC3339), record.SuppressedAlerts)

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: n.toAddresses,
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Password gate lockout: " + record.ClientKey),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := n.sesClient.SendEmail(ctx, input)
	if err != nil {
		n.logger.Error("failed to send lockout alert via SES",
			slog.String("client_key", record.ClientKey),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.logger.Info("lockout alert sent",
		slog.String("client_key", record.ClientKey),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}
