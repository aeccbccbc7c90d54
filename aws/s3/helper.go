package s3

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/relloyd/xlpipe/constants"
	"github.com/relloyd/xlpipe/rdbms/shared"
)

type AwsS3Bucket struct {
	Name   string `errorTxt:"bucket name" mandatory:"yes"`
	Prefix string `errorTxt:"bucket prefix"`
	Region string `errorTxt:"bucket region"`
}

// NewAwsBucket reads bucket details from an s3 connection.
func NewAwsBucket(c shared.ConnectionDetails) (AwsS3Bucket, error) {
	if c.Type != constants.ConnectionTypeS3 {
		return AwsS3Bucket{}, fmt.Errorf("connection %q is type %q, expected %q", c.LogicalName, c.Type, constants.ConnectionTypeS3)
	}
	b := AwsS3Bucket{
		Name:   c.Data[shared.DefaultS3ConnectionKeyNames.Bucket],
		Prefix: c.Data[shared.DefaultS3ConnectionKeyNames.Prefix],
		Region: c.Data[shared.DefaultS3ConnectionKeyNames.Region],
	}
	if b.Name == "" {
		return b, fmt.Errorf("connection %q has no bucket name", c.LogicalName)
	}
	return b, nil
}

// URL returns s3://<bucket>/<prefix>/ for use in a Snowflake external stage.
func (b AwsS3Bucket) URL() string {
	u := "s3://" + b.Name + "/"
	if p := strings.Trim(b.Prefix, "/"); p != "" {
		u += p + "/"
	}
	return u
}

// ParseDSN expects bucketPrefix to be of the form s3://<bucket>[/<prefix>]
// It returns an AwsS3Bucket populated with the components of bucketPrefix and the supplied region.
// The region may be empty.
func ParseDSN(bucketPrefix string, region string) (retval AwsS3Bucket, err error) {
	expectedScheme := "s3"
	if !strings.Contains(bucketPrefix, "://") {
		bucketPrefix = expectedScheme + "://" + bucketPrefix
	}
	s3url, err := url.Parse(bucketPrefix)
	if err != nil {
		return retval, fmt.Errorf("error parsing S3 URL: %v", err)
	}
	if s3url.Scheme != expectedScheme {
		return retval, fmt.Errorf("expected S3 URL scheme %q but got %q", expectedScheme, s3url.Scheme)
	}
	retval.Name = s3url.Host
	if retval.Name == "" {
		return retval, fmt.Errorf("DSN failed to parse bucket name")
	}
	retval.Prefix = strings.Trim(s3url.Path, "/")
	retval.Region = region
	return
}
