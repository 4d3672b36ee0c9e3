package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-resume-backend/internal/shared/storage/object"
)

type fakeS3 struct {
	puts   []*s3.PutObjectInput
	bodies map[string][]byte
	getErr error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.bodies == nil {
		f.bodies = map[string][]byte{}
	}
	f.bodies[aws.ToString(in.Key)] = data
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.bodies[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "resume_20250101_120000.pdf", want: "resume_20250101_120000.pdf"},
		{name: "simple prefix", prefix: "resumes", key: "resume_20250101_120000.pdf", want: "resumes/resume_20250101_120000.pdf"},
		{name: "prefix slashes", prefix: "/resumes/", key: "/resume_20250101_120000.pdf", want: "resumes/resume_20250101_120000.pdf"},
		{name: "empty key", prefix: "resumes", key: "", want: "resumes"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, applyPrefix(tt.prefix, tt.key))
		})
	}
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), "ap-south-1", " ", "", "")
	assert.Error(t, err)
}

func TestSaveWithKeySetsEncryptionAndDisposition(t *testing.T) {
	fake := &fakeS3{}
	store := newWithClient(fake, "bucket", "/out/", "")

	n, err := store.SaveWithKey(context.Background(), "resume_20250102_030405.docx", "application/pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	require.Len(t, fake.puts, 1)
	in := fake.puts[0]
	assert.Equal(t, "out/resume_20250102_030405.docx", aws.ToString(in.Key))
	assert.Equal(t, int64(4), aws.ToInt64(in.ContentLength))
	assert.Equal(t, s3types.ServerSideEncryptionAes256, in.ServerSideEncryption)
	assert.Equal(t, `attachment; filename="resume_20250102_030405.docx"`, aws.ToString(in.ContentDisposition))
}

func TestSaveWithKeyUsesKMSKey(t *testing.T) {
	fake := &fakeS3{}
	store := newWithClient(fake, "bucket", "", "kms-123")

	_, err := store.SaveWithKey(context.Background(), "a.pdf", "application/pdf", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, s3types.ServerSideEncryptionAwsKms, fake.puts[0].ServerSideEncryption)
	assert.Equal(t, "kms-123", aws.ToString(fake.puts[0].SSEKMSKeyId))
}

func TestOpenRoundTripAndNotFound(t *testing.T) {
	fake := &fakeS3{}
	store := newWithClient(fake, "bucket", "out", "")
	_, err := store.SaveWithKey(context.Background(), "a.docx", "x", strings.NewReader("docx-bytes"))
	require.NoError(t, err)

	rc, err := store.Open(context.Background(), "a.docx")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "docx-bytes", string(data))

	_, err = store.Open(context.Background(), "missing.docx")
	assert.True(t, errors.Is(err, object.ErrNotFound))

	fake.getErr = errors.New("network down")
	_, err = store.Open(context.Background(), "a.docx")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, object.ErrNotFound))
}
