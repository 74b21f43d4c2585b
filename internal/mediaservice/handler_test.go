package mediaservice

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"os"
	"strings"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

type testFile struct {
	name    string
	content []byte
}

// multipartFiles builds a parsed multipart form holding the given files under
// the "images" field, in order, and returns their headers.
func multipartFiles(t *testing.T, files []testFile) []*multipart.FileHeader {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, f := range files {
		part, err := writer.CreateFormFile("images", f.name)
		assert.NoError(t, err)

		_, err = part.Write(f.content)
		assert.NoError(t, err)
	}

	err := writer.Close()
	assert.NoError(t, err)

	reader := multipart.NewReader(&buf, writer.Boundary())
	form, err := reader.ReadForm(32 << 20)
	assert.NoError(t, err)

	t.Cleanup(func() {
		form.RemoveAll()
	})

	return form.File["images"]
}

func newTestMediaService(mb *MockMessageConsumer) (*MediaService, *MockObjectStore) {
	store := NewMockObjectStore()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	return NewMediaService(store, mb, logger), store
}

func TestUploadImages(t *testing.T) {
	s, store := newTestMediaService(new(MockMessageConsumer))

	files := multipartFiles(t, []testFile{
		{"holiday-photo.png", []byte("png bytes")},
	})

	uploaded, err := s.UploadImages(context.Background(), files)
	assert.NoError(t, err)
	assert.Len(t, uploaded, 1)

	img := uploaded[0]
	assert.Equal(t, "holiday-photo", img.Caption)
	assert.Equal(t, "holiday-photo.png", img.OriginalName)
	assert.True(t, strings.HasSuffix(img.ObjectKey, ".png"))
	assert.Equal(t, "http://storage.local/assets/"+img.ObjectKey, img.URL)

	// the bytes must have landed in the store under the generated key
	assert.Equal(t, []byte("png bytes"), store.Objects[img.ObjectKey])
}

func TestUploadImagesRejectsUnknownExtensions(t *testing.T) {
	s, store := newTestMediaService(new(MockMessageConsumer))

	files := multipartFiles(t, []testFile{
		{"malware.exe", []byte("nope")},
	})

	_, err := s.UploadImages(context.Background(), files)
	assert.ErrorIs(t, err, ErrInvalidImage)
	assert.Empty(t, store.Objects)
}

func TestUploadImagesRollsBackPartialBatch(t *testing.T) {
	s, store := newTestMediaService(new(MockMessageConsumer))

	files := multipartFiles(t, []testFile{
		{"ok.png", []byte("png bytes")},
		{"malware.exe", []byte("nope")},
	})

	_, err := s.UploadImages(context.Background(), files)
	assert.ErrorIs(t, err, ErrInvalidImage)

	// the object stored before the failure must be gone again
	assert.Empty(t, store.Objects)
}

func TestDeleteAssets(t *testing.T) {
	s, store := newTestMediaService(new(MockMessageConsumer))

	store.Objects["a.png"] = []byte("a")
	store.Objects["b.jpg"] = []byte("b")
	store.Objects["keep.gif"] = []byte("c")

	s.DeleteAssets(context.Background(), []string{"a.png", "b.jpg"})

	assert.Len(t, store.Objects, 1)
	assert.Contains(t, store.Objects, "keep.gif")
}

func TestCleanupDeletedPosts(t *testing.T) {
	event := struct {
		PostID     int      `json:"post_id"`
		ObjectKeys []string `json:"object_keys"`
	}{
		PostID:     42,
		ObjectKeys: []string{"a.png", "b.jpg"},
	}

	body, err := json.Marshal(event)
	assert.NoError(t, err)

	mb := &MockMessageConsumer{
		Deliveries: []amqp.Delivery{{Body: body}},
	}

	s, store := newTestMediaService(mb)

	store.Objects["a.png"] = []byte("a")
	store.Objects["b.jpg"] = []byte("b")
	store.Objects["other.png"] = []byte("c")

	s.CleanupDeletedPosts()

	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		_, a := store.Objects["a.png"]
		_, b := store.Objects["b.jpg"]
		return !a && !b
	}, 2*time.Second, 50*time.Millisecond)

	assert.Contains(t, store.Objects, "other.png")

	t.Cleanup(func() {
		s.Close()
	})
}
