package objectstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-pipeline/internal/domain"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	meta    map[string]*s3.PutObjectInput
	putErr  error
	puts    int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, meta: map[string]*s3.PutObjectInput{}}
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, errors.New("NotFound")
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Key)
	f.objects[key] = body
	f.meta[key] = in
	return &s3.PutObjectOutput{}, nil
}

func writeVariant(t *testing.T, content string) (domain.Variant, string) {
	t.Helper()
	p := filepath.Join(t.TempDir(), "abc_sm.webp")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return domain.Variant{
		URL:      "/images/webp/abc_sm.webp",
		Format:   domain.FormatWebP,
		Width:    320,
		Height:   240,
		ByteSize: int64(len(content)),
		Suffix:   "sm",
	}, p
}

func TestS3Mirror_Key(t *testing.T) {
	v := domain.Variant{URL: "/images/jpeg/h_lg.jpeg", Format: domain.FormatJPEG}

	assert.Equal(t, "jpeg/h_lg.jpeg", newS3Mirror(newFakeS3(), "b", "").Key(v))
	assert.Equal(t, "cdn/images/jpeg/h_lg.jpeg", newS3Mirror(newFakeS3(), "b", "/cdn/images/").Key(v))
}

func TestS3Mirror_Mirror(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	mirror := newS3Mirror(fake, "bucket", "variants")
	v, p := writeVariant(t, "webp-bytes")

	require.NoError(t, mirror.Mirror(ctx, v, p))
	assert.Equal(t, []byte("webp-bytes"), fake.objects["variants/webp/abc_sm.webp"])

	in := fake.meta["variants/webp/abc_sm.webp"]
	assert.Equal(t, "image/webp", aws.ToString(in.ContentType))
	assert.Equal(t, immutableCacheControl, aws.ToString(in.CacheControl))
	assert.Equal(t, int64(10), aws.ToInt64(in.ContentLength))

	// Existing keys are not uploaded again.
	require.NoError(t, mirror.Mirror(ctx, v, p))
	assert.Equal(t, 1, fake.puts)
}

func TestS3Mirror_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("put failure", func(t *testing.T) {
		fake := newFakeS3()
		fake.putErr = errors.New("access denied")
		v, p := writeVariant(t, "x")

		err := newS3Mirror(fake, "bucket", "").Mirror(ctx, v, p)
		assert.ErrorContains(t, err, "access denied")
	})

	t.Run("missing local file", func(t *testing.T) {
		v, _ := writeVariant(t, "x")
		err := newS3Mirror(newFakeS3(), "bucket", "").Mirror(ctx, v, filepath.Join(t.TempDir(), "gone"))
		assert.Error(t, err)
	})

	t.Run("bucket required", func(t *testing.T) {
		_, err := NewS3Mirror(ctx, S3MirrorConfig{})
		assert.Error(t, err)
	})
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/jpeg", ContentType(domain.FormatJPEG))
	assert.Equal(t, "image/png", ContentType(domain.FormatPNG))
	assert.Equal(t, "image/webp", ContentType(domain.FormatWebP))
	assert.Equal(t, "application/octet-stream", ContentType("tiff"))
}
