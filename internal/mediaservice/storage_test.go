package mediaservice

import (
	"bytes"
	"context"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/trendstalk/trendstalk/internal/common"
)

func TestMinioStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping object storage integration test")
	}

	endpoint, accessKey, secretKey := common.TestMinio(t)

	store, err := NewMinioStore(endpoint, accessKey, secretKey, "assets", "http://"+endpoint, false)
	assert.NoError(t, err)

	ctx := context.Background()

	err = store.EnsureBucket(ctx)
	assert.NoError(t, err)

	// idempotent
	err = store.EnsureBucket(ctx)
	assert.NoError(t, err)

	content := []byte("fake image bytes")

	url, err := store.Put(ctx, "cover.png", bytes.NewReader(content), int64(len(content)), "image/png")
	assert.NoError(t, err)
	assert.Equal(t, "http://"+endpoint+"/assets/cover.png", url)

	obj, err := store.client.GetObject(ctx, "assets", "cover.png", minio.GetObjectOptions{})
	assert.NoError(t, err)

	var buf bytes.Buffer
	_, err = buf.ReadFrom(obj)
	assert.NoError(t, err)
	assert.Equal(t, content, buf.Bytes())

	err = store.Remove(ctx, "cover.png")
	assert.NoError(t, err)

	_, err = store.client.StatObject(ctx, "assets", "cover.png", minio.StatObjectOptions{})
	assert.Error(t, err)
}
