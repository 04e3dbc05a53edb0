package objectstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	puts map[string][]byte
	meta map[string]map[string]string
	err  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	key := aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)
	f.puts[key] = body
	f.meta[key] = in.Metadata
	return &s3.PutObjectOutput{}, nil
}

func TestPutWritesBodyAndChecksum(t *testing.T) {
	fake := &fakeS3{puts: map[string][]byte{}, meta: map[string]map[string]string{}}
	store := NewWithClient(fake, "exports")

	require.NoError(t, store.Put(context.Background(), "a/b.json", []byte(`{"ok":true}`), "application/json"))
	assert.Equal(t, `{"ok":true}`, string(fake.puts["exports/a/b.json"]))
	sum := sha256.Sum256([]byte(`{"ok":true}`))
	assert.Equal(t, hex.EncodeToString(sum[:]), fake.meta["exports/a/b.json"]["checksum-sha256"])
}

func TestPutWrapsClientError(t *testing.T) {
	boom := errors.New("denied")
	store := NewWithClient(&fakeS3{err: boom}, "exports")
	err := store.Put(context.Background(), "k", nil, "application/json")
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "objectstore: put k")
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{Region: "us-east-1"})
	assert.ErrorIs(t, err, ErrNoBucket)
}
