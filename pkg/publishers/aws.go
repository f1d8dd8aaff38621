package publishers

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// fifoGroupID groups harvest events on FIFO queues; runs are delivered in
// the order they finished.
const fifoGroupID = "backcourt-harvest"

type sqsClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

type snsClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// loadAWSConfig resolves an AWS config for the region. Static credentials
// are used when given; otherwise the default credential chain applies.
func loadAWSConfig(ctx context.Context, region, keyID, secret string) (aws.Config, error) {
	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(region)}
	if keyID != "" {
		creds := credentials.NewStaticCredentialsProvider(keyID, secret, "")
		opts = append(opts, awscfg.WithCredentialsProvider(creds))
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

// awsSQSSender delivers harvest events to an SQS queue.
type awsSQSSender struct {
	queueURL string
	client   sqsClient
	log      Logger
}

func newAWSSQSSender(ctx context.Context, cfg *AWSSQSPublisherConfig, log Logger) (queueSender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("sqs configuration is missing")
	}
	awsCfg, err := loadAWSConfig(ctx, cfg.Region, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, err
	}
	return &awsSQSSender{
		queueURL: cfg.QueueURL,
		client:   sqs.NewFromConfig(awsCfg),
		log:      ensureLogger(log),
	}, nil
}

// Send enqueues the event. FIFO queues deduplicate on the run id, so a
// retried harvest publish is delivered once.
func (s *awsSQSSender) Send(ctx context.Context, evt Event) error {
	env, err := encodeEnvelope(evt)
	if err != nil {
		return err
	}

	attrs := make(map[string]sqstypes.MessageAttributeValue, len(env.attrs))
	for _, a := range env.attrs {
		attrs[a.name] = sqstypes.MessageAttributeValue{
			DataType:    aws.String(a.dataType()),
			StringValue: aws.String(a.value),
		}
	}

	input := &sqs.SendMessageInput{
		QueueUrl:          aws.String(s.queueURL),
		MessageBody:       aws.String(string(env.body)),
		MessageAttributes: attrs,
	}
	if strings.HasSuffix(s.queueURL, ".fifo") {
		input.MessageGroupId = aws.String(fifoGroupID)
		input.MessageDeduplicationId = aws.String(evt.RunID)
	}

	resp, err := s.client.SendMessage(ctx, input)
	if err != nil {
		s.log.ErrorObj("sqs publisher send failed", "publisher_sqs_error", map[string]any{
			"run_id": evt.RunID,
			"error":  err.Error(),
		})
		return fmt.Errorf("send message to sqs: %w", err)
	}

	s.log.DebugObj("sqs publisher delivered event", "publisher_sqs_delivery", map[string]any{
		"message_id": aws.ToString(resp.MessageId),
		"run_id":     evt.RunID,
		"bytes":      len(env.body),
	})
	return nil
}

// awsSNSSender fans harvest events out through an SNS topic.
type awsSNSSender struct {
	topicARN string
	client   snsClient
	log      Logger
}

func newAWSSNSSender(ctx context.Context, cfg *AWSSNSPublisherConfig, log Logger) (queueSender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("sns configuration is missing")
	}
	awsCfg, err := loadAWSConfig(ctx, cfg.Region, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, err
	}
	return &awsSNSSender{
		topicARN: cfg.TopicARN,
		client:   sns.NewFromConfig(awsCfg),
		log:      ensureLogger(log),
	}, nil
}

// Send publishes the event to the topic.
func (s *awsSNSSender) Send(ctx context.Context, evt Event) error {
	env, err := encodeEnvelope(evt)
	if err != nil {
		return err
	}

	attrs := make(map[string]snstypes.MessageAttributeValue, len(env.attrs))
	for _, a := range env.attrs {
		attrs[a.name] = snstypes.MessageAttributeValue{
			DataType:    aws.String(a.dataType()),
			StringValue: aws.String(a.value),
		}
	}

	input := &sns.PublishInput{
		TopicArn:          aws.String(s.topicARN),
		Message:           aws.String(string(env.body)),
		MessageAttributes: attrs,
	}
	if strings.HasSuffix(s.topicARN, ".fifo") {
		input.MessageGroupId = aws.String(fifoGroupID)
		input.MessageDeduplicationId = aws.String(evt.RunID)
	}

	resp, err := s.client.Publish(ctx, input)
	if err != nil {
		s.log.ErrorObj("sns publisher send failed", "publisher_sns_error", map[string]any{
			"run_id": evt.RunID,
			"error":  err.Error(),
		})
		return fmt.Errorf("publish to sns: %w", err)
	}

	s.log.DebugObj("sns publisher delivered event", "publisher_sns_delivery", map[string]any{
		"message_id": aws.ToString(resp.MessageId),
		"run_id":     evt.RunID,
	})
	return nil
}
