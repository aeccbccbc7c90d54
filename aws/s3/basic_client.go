package s3

import (
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// NewBasicClient uses the default AWS credential chain.
func NewBasicClient(bucket, region, prefix string) (BasicClient, error) {
	awsConfig := aws.NewConfig()
	if region != "" {
		awsConfig.Region = aws.String(region)
	}
	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, err
	}
	return NewBasicClientWithAPI(bucket, region, prefix, s3.New(sess)), nil
}

func NewBasicClientWithAPI(bucket, region, prefix string, api s3iface.S3API) BasicClient {
	return &basicClient{
		bucket: bucket,
		region: region,
		prefix: strings.Trim(prefix, "/"),
		api:    api,
	}
}

type basicClient struct {
	region string
	bucket string
	prefix string
	api    s3iface.S3API
}

func (s *basicClient) Location() string {
	if s.prefix == "" {
		return "s3://" + s.bucket
	}
	return "s3://" + s.bucket + "/" + s.prefix
}

func (s *basicClient) List(ctx context.Context, key string) (keys []string, err error) {
	keys = make([]string, 0)
	err = s.api.ListObjectsPagesWithContext(ctx, &s3.ListObjectsInput{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.getKeyWithPrefix(key)),
	}, func(page *s3.ListObjectsOutput, lastPage bool) bool {
		for _, v := range page.Contents {
			keys = append(keys, aws.StringValue(v.Key))
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *basicClient) BufferPut(ctx context.Context, key string, dataBuf io.ReadSeeker) error {
	_, err := s.api.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.getKeyWithPrefix(key)),
		Body:   dataBuf,
	})
	return err
}

func (s *basicClient) Delete(ctx context.Context, key string) error {
	_, err := s.api.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.getKeyWithPrefix(key)),
	})
	return err
}

func (s *basicClient) getKeyWithPrefix(key string) string {
	if s.prefix != "" {
		return s.prefix + "/" + key // ensure a slash after prefix.
	}
	return key
}
