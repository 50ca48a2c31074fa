package kb

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/signalsfoundry/adalia-navigator/model"
)

// ErrCatalogObjectMissing is returned when the catalog object does not exist.
var ErrCatalogObjectMissing = errors.New("catalog object not found")

// S3Config locates a catalog JSON object in S3 or an S3-compatible store.
type S3Config struct {
	// Endpoint overrides the AWS endpoint, e.g. "http://localhost:9000".
	Endpoint       string
	Region         string
	Bucket         string
	Key            string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
}

type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source loads bodies from a single S3 object in the DecodeBodies format.
type S3Source struct {
	client objectGetter
	bucket string
	key    string
}

// NewS3Source builds an S3 client from cfg. Static credentials are used
// when an access key is set; otherwise the default AWS chain applies.
func NewS3Source(ctx context.Context, cfg S3Config) (*S3Source, error) {
	if cfg.Bucket == "" || cfg.Key == "" {
		return nil, fmt.Errorf("s3 catalog: bucket and key are required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3 catalog: region is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3 catalog: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(withScheme(cfg.Endpoint))
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})
	return newS3Source(client, cfg.Bucket, cfg.Key), nil
}

func newS3Source(client objectGetter, bucket, key string) *S3Source {
	return &S3Source{client: client, bucket: bucket, key: key}
}

// Load implements Source.
func (s *S3Source) Load(ctx context.Context) ([]model.Body, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("s3 catalog: s3://%s/%s: %w", s.bucket, s.key, ErrCatalogObjectMissing)
		}
		return nil, fmt.Errorf("s3 catalog: get s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close()

	bodies, err := DecodeBodies(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 catalog: s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return bodies, nil
}

func withScheme(endpoint string) string {
	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" && u.Host != "" {
		return endpoint
	}
	return "https://" + endpoint
}
