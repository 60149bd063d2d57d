package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigured(t *testing.T) {
	assert.False(t, ServiceConfig{}.Configured())
	assert.True(t, ServiceConfig{
		S3BucketName:      "b",
		S3Endpoint:        "http://localhost:9000",
		S3AccessKeyID:     "id",
		S3SecretAccessKey: "secret",
	}.Configured())
}

func TestPresignDownloadIsLocal(t *testing.T) {
	svc, err := NewStorageService(context.Background(), ServiceConfig{
		S3BucketName:      "florite",
		S3Endpoint:        "http://127.0.0.1:9000",
		S3AccessKeyID:     "id",
		S3SecretAccessKey: "secret",
	})
	require.NoError(t, err)

	link, err := svc.PresignDownload(context.Background(), "news/20261015.png", 10*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", u.Host)
	assert.True(t, strings.HasPrefix(u.Path, "/florite/news/20261015.png"))
	assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
}
