package sns

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/corpsite-backoffice/internal/config"
	"github.com/corpsite-backoffice/internal/domain"
)

// PublishAPI is the subset of the SNS client used here.
type PublishAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// NewClient creates an SNS client that honours the LocalStack endpoint override.
func NewClient(awsCfg aws.Config, cfg *config.Config) *sns.Client {
	return sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if cfg.AWSEndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		}
	})
}

// InquiryTopic publishes a summary of each new inquiry to an SNS topic, from which
// subscribers (chat webhooks, SMS, email) fan out.
type InquiryTopic struct {
	client   PublishAPI
	topicARN string
}

func NewInquiryTopic(client PublishAPI, topicARN string) *InquiryTopic {
	return &InquiryTopic{client: client, topicARN: topicARN}
}

type inquiryMessage struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Subject   string `json:"subject"`
	CreatedAt string `json:"created_at"`
}

func (t *InquiryTopic) Channel() string { return "sns" }

func (t *InquiryTopic) NotifyInquiry(ctx context.Context, inq *domain.Inquiry) error {
	body, err := json.Marshal(inquiryMessage{
		ID:        inq.InquiryID,
		Name:      inq.Name,
		Email:     inq.Email,
		Subject:   inq.Subject,
		CreatedAt: inq.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
	if err != nil {
		return fmt.Errorf("marshal inquiry alert: %w", err)
	}
	_, err = t.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(t.topicARN),
		Subject:  aws.String("새로운 문의"),
		Message:  aws.String(string(body)),
	})
	return err
}
