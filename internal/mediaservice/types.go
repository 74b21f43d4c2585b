package mediaservice

import (
	"context"
	"io"

	"github.com/trendstalk/trendstalk/internal/common"
)

// ObjectStore is the remote storage the pipeline uploads to. Put returns the
// public URL of the stored object.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
}

// UploadedImage is the result of pushing one file through the pipeline. The
// object key is captured at upload time and stored alongside the URL; it is
// never re-derived from the URL shape.
type UploadedImage struct {
	Caption      string `json:"caption"`
	URL          string `json:"url"`
	ObjectKey    string `json:"object_key"`
	OriginalName string `json:"originalname"`
}

type MediaLogger interface {
	Error(msg string, args ...any)
	Info(msg string, args ...any)
}

type MediaService struct {
	store  ObjectStore
	mb     common.MessageConsumer
	logger MediaLogger
	ctx    context.Context
	cancel context.CancelFunc
}
