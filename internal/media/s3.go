// Package media signs direct-to-bucket image uploads.
//
// The API never proxies image bytes. The client asks for a presigned PUT
// URL, uploads straight to S3 (or any S3-compatible store such as R2 or
// MinIO), then stores the returned imageRef on its post or profile.
package media

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/sakif/chirp/internal/apperror"
)

// URLExpiry is how long a signed upload URL stays valid.
const URLExpiry = 15 * time.Minute

// Purpose says what the image is for. It becomes the key prefix.
type Purpose string

const (
	PurposeProfile Purpose = "profile"
	PurposeCover   Purpose = "cover"
	PurposePost    Purpose = "post"
)

func (p Purpose) Valid() bool {
	switch p {
	case PurposeProfile, PurposeCover, PurposePost:
		return true
	}
	return false
}

var imageType = regexp.MustCompile(`^image/([a-z0-9.+-]+)$`)

// extensions lists the accepted raster formats. SVG is left out: it can
// carry script.
var extensions = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
	"webp": ".webp",
	"avif": ".avif",
}

// Config holds the bucket settings. Endpoint is empty for AWS itself and
// set for S3-compatible stores.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	// PublicURL is the base the stored imageRef is built on, e.g. a CDN.
	PublicURL string
}

// Upload is what the client needs to perform the PUT and record the result.
type Upload struct {
	UploadURL string    `json:"uploadUrl"`
	ImageRef  string    `json:"imageRef"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// S3Signer presigns PutObject requests.
type S3Signer struct {
	presign *s3.PresignClient
	cfg     Config
}

// NewS3Signer builds the S3 client. Static keys are used when given;
// otherwise the default AWS credential chain applies (env, shared config,
// instance role).
func NewS3Signer(ctx context.Context, cfg Config) (*S3Signer, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("media: bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("media: loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Signer{presign: s3.NewPresignClient(client), cfg: cfg}, nil
}

// Sign returns a presigned PUT for a new object owned by userID.
func (s *S3Signer) Sign(ctx context.Context, userID string, purpose Purpose, contentType string) (*Upload, error) {
	if !purpose.Valid() {
		return nil, apperror.ValidationFailed("purpose", "purpose must be one of profile, cover, post")
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	m := imageType.FindStringSubmatch(contentType)
	if m == nil {
		return nil, apperror.ValidationFailed("contentType", "only image uploads are allowed")
	}
	ext, ok := extensions[m[1]]
	if !ok {
		return nil, apperror.ValidationFailed("contentType", "image must be jpeg, png, gif, webp or avif")
	}

	key := fmt.Sprintf("%s/%s/%s%s", purpose, userID, uuid.NewString(), ext)

	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(URLExpiry))
	if err != nil {
		return nil, fmt.Errorf("media: presigning %s: %w", key, err)
	}

	return &Upload{
		UploadURL: req.URL,
		ImageRef:  s.publicURL(key),
		ExpiresAt: time.Now().Add(URLExpiry).UTC(),
	}, nil
}

func (s *S3Signer) publicURL(key string) string {
	switch {
	case s.cfg.PublicURL != "":
		return strings.TrimRight(s.cfg.PublicURL, "/") + "/" + key
	case s.cfg.Endpoint != "":
		return strings.TrimRight(s.cfg.Endpoint, "/") + "/" + s.cfg.Bucket + "/" + key
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
	}
}
