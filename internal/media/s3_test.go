package media

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/chirp/internal/apperror"
)

// Presigning is a local computation, so these tests need no bucket.
func newTestSigner(t *testing.T, publicURL string) *S3Signer {
	t.Helper()
	s, err := NewS3Signer(context.Background(), Config{
		Bucket:          "chirp-media",
		Region:          "us-east-1",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY",
		PublicURL:       publicURL,
	})
	require.NoError(t, err)
	return s
}

func TestSign(t *testing.T) {
	s := newTestSigner(t, "https://cdn.example.com/")

	up, err := s.Sign(context.Background(), "user1", PurposePost, "image/PNG")
	require.NoError(t, err)

	u, err := url.Parse(up.UploadURL)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.True(t, strings.HasPrefix(u.Path, "/chirp-media/post/user1/"), "path %q", u.Path)
	assert.True(t, strings.HasSuffix(u.Path, ".png"), "path %q", u.Path)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))

	key := strings.TrimPrefix(u.Path, "/chirp-media/")
	assert.Equal(t, "https://cdn.example.com/"+key, up.ImageRef)
}

func TestSign_ImageRefWithoutPublicURL(t *testing.T) {
	s := newTestSigner(t, "")

	up, err := s.Sign(context.Background(), "user1", PurposeCover, "image/jpeg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(up.ImageRef, "http://localhost:9000/chirp-media/cover/user1/"), up.ImageRef)
	assert.True(t, strings.HasSuffix(up.ImageRef, ".jpg"), up.ImageRef)
}

func TestSign_Validation(t *testing.T) {
	s := newTestSigner(t, "")

	tests := []struct {
		name        string
		purpose     Purpose
		contentType string
	}{
		{"unknown purpose", "banner", "image/png"},
		{"not an image", PurposePost, "application/pdf"},
		{"empty content type", PurposePost, ""},
		{"image prefix only", PurposePost, "image/"},
		{"svg", PurposeProfile, "image/svg+xml"},
		{"svg with odd case", PurposePost, " Image/SVG+XML "},
		{"unlisted image type", PurposePost, "image/tiff"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Sign(context.Background(), "user1", tc.purpose, tc.contentType)
			assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)
		})
	}
}

func TestNewS3Signer_RequiresBucket(t *testing.T) {
	_, err := NewS3Signer(context.Background(), Config{})
	assert.Error(t, err)
}
