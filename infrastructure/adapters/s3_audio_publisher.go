package adapters

import (
	"context"
	"errors"
	"fmt"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/application/ports/outbound"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/config"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/domain"
	"os"
)

var credentialErrorCodes = map[string]bool{
	"NoCredentialProviders": true,
	"InvalidAccessKeyId":    true,
	"SignatureDoesNotMatch": true,
	"ExpiredToken":          true,
	"AccessDenied":          true,
}

type s3AudioPublisher struct {
	logger   outbound.LoggerPort
	s3Svc    s3iface.S3API
	s3Config *config.S3Config
}

func NewS3AudioPublisher(s3Svc s3iface.S3API, s3Config *config.S3Config, logger outbound.LoggerPort) outbound.AudioPublisherPort {
	return &s3AudioPublisher{
		logger:   logger,
		s3Svc:    s3Svc,
		s3Config: s3Config,
	}
}

func (s *s3AudioPublisher) Publish(ctx context.Context, req outbound.PublishAudioRequest) (domain.PublishedAudio, error) {
	itemPath := s.s3Config.KeyPrefix + req.Key

	file, err := os.Open(req.FilePath)
	if err != nil {
		s.logger.ErrorWithFields(err, "Failed to open audio file", map[string]interface{}{
			"path": req.FilePath,
		})
		if os.IsNotExist(err) {
			return domain.PublishedAudio{}, domain.NewPublishError(domain.ReasonNotFound, err)
		}
		return domain.PublishedAudio{}, domain.NewPublishError("open", err)
	}

	defer func(file *os.File) {
		err := file.Close()
		if err != nil {
			s.logger.Error(err, "Failed to close audio file")
		}
	}(file)

	contentType := req.ContentType
	if contentType == "" {
		contentType = "audio/mpeg"
	}

	putInput := &s3.PutObjectInput{
		Bucket:      aws.String(s.s3Config.BucketName),
		Key:         aws.String(itemPath),
		Body:        file,
		ContentType: aws.String(contentType),
	}

	_, err = s.s3Svc.PutObjectWithContext(ctx, putInput)
	if err != nil {
		s.logger.ErrorWithFields(err, "Failed to upload object to S3", map[string]interface{}{
			"bucket": s.s3Config.BucketName,
			"key":    itemPath,
		})
		var awsErr awserr.Error
		if errors.As(err, &awsErr) && credentialErrorCodes[awsErr.Code()] {
			return domain.PublishedAudio{}, domain.NewPublishError(domain.ReasonCredentials, err)
		}
		return domain.PublishedAudio{}, domain.NewPublishError("upload", err)
	}

	return domain.PublishedAudio{
		URL: s.objectURL(itemPath),
		Key: itemPath,
	}, nil
}

func (s *s3AudioPublisher) objectURL(itemPath string) string {
	return fmt.Sprintf("https://%s.%s/%s", s.s3Config.BucketName, s.s3Config.StorageDomain, itemPath)
}
