package mediaservice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/trendstalk/trendstalk/internal/common"
)

const maxImageSize = 25 << 20 // 25 MB, matching the upload form limit

var ErrInvalidImage = errors.New("only jpg, jpeg, png, and gif files are allowed")

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

func NewMediaService(store ObjectStore, mb common.MessageConsumer, logger *slog.Logger) *MediaService {
	ctx, cancel := context.WithCancel(context.Background())
	return &MediaService{
		store:  store,
		mb:     mb,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// UploadImages pushes each uploaded file through the pipeline: buffer to a
// local temp file, stream to object storage, and remove the temp copy. The
// batch is all-or-nothing: when one file fails, the objects already stored
// for the batch are removed before the error is returned.
func (s *MediaService) UploadImages(ctx context.Context, files []*multipart.FileHeader) ([]UploadedImage, error) {
	uploaded := make([]UploadedImage, 0, len(files))

	for _, fh := range files {
		img, err := s.uploadOne(ctx, fh)
		if err != nil {
			keys := make([]string, 0, len(uploaded))
			for _, u := range uploaded {
				keys = append(keys, u.ObjectKey)
			}
			s.DeleteAssets(ctx, keys)
			return nil, err
		}
		uploaded = append(uploaded, *img)
	}

	return uploaded, nil
}

func (s *MediaService) uploadOne(ctx context.Context, fh *multipart.FileHeader) (*UploadedImage, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExtensions[ext] {
		return nil, ErrInvalidImage
	}

	if fh.Size > maxImageSize {
		return nil, ErrInvalidImage
	}

	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", "trendstalk-upload-*"+ext)
	if err != nil {
		return nil, err
	}
	defer func() {
		tmp.Close()
		if err := os.Remove(tmp.Name()); err != nil {
			s.logger.Error("could not remove temp file", slog.String("file", tmp.Name()), slog.String("error", err.Error()))
		}
	}()

	size, err := io.Copy(tmp, src)
	if err != nil {
		return nil, err
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	key := uuid.New().String() + ext

	url, err := s.store.Put(ctx, key, tmp, size, fh.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	return &UploadedImage{
		Caption:      strings.TrimSuffix(fh.Filename, filepath.Ext(fh.Filename)),
		URL:          url,
		ObjectKey:    key,
		OriginalName: fh.Filename,
	}, nil
}

// DeleteAssets removes the remote objects in parallel. Failures are logged
// and do not stop the remaining deletes.
func (s *MediaService) DeleteAssets(ctx context.Context, keys []string) {
	var wg sync.WaitGroup

	for _, key := range keys {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			if err := s.store.Remove(ctx, key); err != nil {
				s.logger.Error("could not delete asset", slog.String("key", key), slog.String("error", err.Error()))
			}
		}(key)
	}

	wg.Wait()
}

// CleanupDeletedPosts consumes post.deleted events and removes the remote
// assets of deleted posts. Runs until Close is called.
func (s *MediaService) CleanupDeletedPosts() {
	msgs, err := s.mb.Consume(common.PostDeletedKey, common.MediaExchange, common.PostDeletedQueue)
	if err != nil {
		s.logger.Error("could not consume message", slog.String("error", err.Error()))
		return
	}

	go func() {
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				var event struct {
					PostID     int      `json:"post_id"`
					ObjectKeys []string `json:"object_keys"`
				}

				if err := json.Unmarshal(msg.Body, &event); err != nil {
					s.logger.Error("could not unmarshal message", slog.String("error", err.Error()))
					msg.Ack(false)
					continue
				}

				ctx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
				s.DeleteAssets(ctx, event.ObjectKeys)
				cancel()

				s.logger.Info("cleaned up deleted post assets", slog.Int("post_id", event.PostID), slog.Int("assets", len(event.ObjectKeys)))
				msg.Ack(false)

			case <-s.ctx.Done():
				s.logger.Info("stopping CleanupDeletedPosts due to context cancellation")
				return
			}
		}
	}()
}

func (s *MediaService) Close() {
	s.cancel()
}
