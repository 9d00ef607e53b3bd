package images

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maplecart/storefront-backend/pkg/db/dbtest"
	pkgerrors "github.com/maplecart/storefront-backend/pkg/errors"
	"github.com/maplecart/storefront-backend/pkg/logger"
	"github.com/maplecart/storefront-backend/pkg/pagination"
)

// A 1x1 transparent PNG.
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

type fakeBucket struct {
	objects   map[string][]byte
	uploadErr error
	deleteErr error
	deleted   []string
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}}
}

func (b *fakeBucket) Upload(_ context.Context, objectPath, _ string, body io.Reader, _ int64) error {
	if b.uploadErr != nil {
		return b.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	b.objects[objectPath] = data
	return nil
}

func (b *fakeBucket) Delete(_ context.Context, objectPath string) error {
	if b.deleteErr != nil {
		return b.deleteErr
	}
	b.deleted = append(b.deleted, objectPath)
	delete(b.objects, objectPath)
	return nil
}

func (b *fakeBucket) PublicURL(objectPath string) string {
	return "https://cdn.example/images/" + objectPath
}

func newTestService(t *testing.T, bucket *fakeBucket, maxBytes int64) Service {
	t.Helper()
	svc, err := NewService(NewRepository(dbtest.Open(t)), bucket, maxBytes, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	return svc
}

func TestUploadStoresUnderProductsPath(t *testing.T) {
	bucket := newFakeBucket()
	svc := newTestService(t, bucket, 1<<20)
	alt := "  Maple syrup bottle "

	dto, err := svc.Upload(context.Background(), UploadInput{
		FileName:     "bottle.PNG",
		DeclaredType: "image/png",
		Body:         bytes.NewReader(pngBytes),
		AltText:      &alt,
	})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^products/[0-9a-f-]{36}\.png$`), dto.Path)
	assert.Equal(t, "image/png", dto.ContentType)
	assert.Equal(t, int64(len(pngBytes)), dto.SizeBytes)
	assert.Equal(t, "https://cdn.example/images/"+dto.Path, dto.PublicURL)
	require.NotNil(t, dto.AltText)
	assert.Equal(t, "Maple syrup bottle", *dto.AltText)
	assert.Contains(t, bucket.objects, dto.Path)

	list, err := svc.List(context.Background(), pagination.Params{})
	require.NoError(t, err)
	require.Len(t, list.Images, 1)
	assert.Equal(t, dto.ID, list.Images[0].ID)
}

func TestUploadRejectsNonImages(t *testing.T) {
	bucket := newFakeBucket()
	svc := newTestService(t, bucket, 1<<20)

	_, err := svc.Upload(context.Background(), UploadInput{
		FileName:     "evil.png",
		DeclaredType: "image/png",
		Body:         strings.NewReader("%PDF-1.4 not an image"),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Empty(t, bucket.objects)
}

func TestUploadEnforcesSizeLimit(t *testing.T) {
	svc := newTestService(t, newFakeBucket(), 16)

	_, err := svc.Upload(context.Background(), UploadInput{FileName: "a.png", Body: bytes.NewReader(pngBytes)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Upload(context.Background(), UploadInput{FileName: "a.png", Body: bytes.NewReader(nil)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUploadBucketFailure(t *testing.T) {
	bucket := newFakeBucket()
	bucket.uploadErr = errors.New("bucket unavailable")
	svc := newTestService(t, bucket, 1<<20)

	_, err := svc.Upload(context.Background(), UploadInput{FileName: "a.png", Body: bytes.NewReader(pngBytes)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	list, err := svc.List(context.Background(), pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, list.Images)
}

func TestDeleteRemovesObjectAndRow(t *testing.T) {
	bucket := newFakeBucket()
	svc := newTestService(t, bucket, 1<<20)
	dto, err := svc.Upload(context.Background(), UploadInput{FileName: "a.png", Body: bytes.NewReader(pngBytes)})
	require.NoError(t, err)

	bucket.deleteErr = errors.New("timeout")
	err = svc.Delete(context.Background(), dto.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	bucket.deleteErr = nil
	require.NoError(t, svc.Delete(context.Background(), dto.ID))
	assert.Equal(t, []string{dto.Path}, bucket.deleted)

	err = svc.Delete(context.Background(), dto.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
