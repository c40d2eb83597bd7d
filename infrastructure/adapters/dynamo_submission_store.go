package adapters

import (
	"context"
	"errors"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/application/ports/outbound"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/config"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/domain"
	"time"
)

// dynamoSubmissionItem is keyed by phone_number (hash) and submitted_at (range).
type dynamoSubmissionItem struct {
	PhoneNumber     string `dynamodbav:"phone_number"`
	SubmittedAt     string `dynamodbav:"submitted_at"`
	AuthorName      string `dynamodbav:"author_name"`
	SubmissionText  string `dynamodbav:"submission_text"`
	AuthorEmail     string `dynamodbav:"author_email,omitempty"`
	GeneratedScript string `dynamodbav:"generated_script"`
	RunId           string `dynamodbav:"run_id"`
	AudioUrl        string `dynamodbav:"audio_url"`
}

type dynamoSubmissionStore struct {
	logger       outbound.LoggerPort
	dynamoSvc    dynamodbiface.DynamoDBAPI
	dynamoConfig *config.DynamoConfig
}

func NewDynamoSubmissionStore(logger outbound.LoggerPort, dynamoSvc dynamodbiface.DynamoDBAPI, dynamoConfig *config.DynamoConfig) outbound.SubmissionStorePort {
	return &dynamoSubmissionStore{
		logger:       logger,
		dynamoSvc:    dynamoSvc,
		dynamoConfig: dynamoConfig,
	}
}

// Append writes one row. Existing rows are never overwritten.
func (c *dynamoSubmissionStore) Append(ctx context.Context, record domain.SubmissionRecord) error {
	item := dynamoSubmissionItem{
		PhoneNumber:     record.PhoneNumber,
		SubmittedAt:     record.SubmittedAt.UTC().Format(time.RFC3339Nano),
		AuthorName:      record.AuthorName,
		SubmissionText:  record.SubmissionText,
		AuthorEmail:     record.AuthorEmail,
		GeneratedScript: record.GeneratedScript,
		RunId:           record.RunID,
		AudioUrl:        record.AudioURL,
	}
	av, err := dynamodbattribute.MarshalMap(item)
	if err != nil {
		c.logger.ErrorWithFields(err, "Failed to marshal submission item", map[string]interface{}{
			"run_id": record.RunID,
		})
		return domain.NewPersistenceError("marshal", err)
	}

	input := &dynamodb.PutItemInput{
		Item:                av,
		TableName:           aws.String(c.dynamoConfig.TableName),
		ConditionExpression: aws.String("attribute_not_exists(phone_number)"),
	}

	_, err = c.dynamoSvc.PutItemWithContext(ctx, input)
	if err != nil {
		c.logger.ErrorWithFields(err, "Failed to save submission item", map[string]interface{}{
			"run_id": record.RunID,
			"table":  c.dynamoConfig.TableName,
		})
		var awsErr awserr.Error
		if errors.As(err, &awsErr) && awsErr.Code() == dynamodb.ErrCodeConditionalCheckFailedException {
			return domain.NewPersistenceError("row exists", err)
		}
		return domain.NewPersistenceError("put item", err)
	}

	return nil
}

func (c *dynamoSubmissionStore) HasPhoneNumber(ctx context.Context, phoneNumber string) (bool, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(c.dynamoConfig.TableName),
		KeyConditionExpression: aws.String("phone_number = :phone"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":phone": {S: aws.String(phoneNumber)},
		},
		Select: aws.String(dynamodb.SelectCount),
		Limit:  aws.Int64(1),
	}

	out, err := c.dynamoSvc.QueryWithContext(ctx, input)
	if err != nil {
		c.logger.ErrorWithFields(err, "Failed to query submissions", map[string]interface{}{
			"table": c.dynamoConfig.TableName,
		})
		return false, err
	}

	return aws.Int64Value(out.Count) > 0, nil
}
