package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBuckets struct {
	existsErrs []error
	makeErr    error
	exists     bool
	checks     int
	made       int
}

func (f *fakeBuckets) BucketExists(context.Context, string) (bool, error) {
	f.checks++
	if len(f.existsErrs) > 0 {
		err := f.existsErrs[0]
		f.existsErrs = f.existsErrs[1:]
		if err != nil {
			return false, err
		}
	}
	return f.exists, nil
}

func (f *fakeBuckets) MakeBucket(context.Context, string, minio.MakeBucketOptions) error {
	f.made++
	return f.makeErr
}

func TestNewArchiveMirror_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  MirrorConfig
		want string
	}{
		{"no endpoint", MirrorConfig{Bucket: "b", AccessKey: "a", SecretKey: "s"}, "endpoint"},
		{"no credentials", MirrorConfig{Endpoint: "localhost:9000", Bucket: "b"}, "access key"},
		{"no bucket", MirrorConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"}, "bucket"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewArchiveMirror(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewArchiveMirror_DefaultsRegion(t *testing.T) {
	m, err := NewArchiveMirror(MirrorConfig{Endpoint: "localhost:9000", Bucket: "exports", AccessKey: "a", SecretKey: "s"})
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", m.region)
	assert.Equal(t, "exports", m.bucketName)
}

func TestPutArchive_RequiresKey(t *testing.T) {
	m, err := NewArchiveMirror(MirrorConfig{Endpoint: "localhost:9000", Bucket: "exports", AccessKey: "a", SecretKey: "s"})
	require.NoError(t, err)
	err = m.PutArchive(context.Background(), " / ", strings.NewReader(""), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "object key")
}

func TestMirrorConfig_Enabled(t *testing.T) {
	assert.False(t, MirrorConfig{}.Enabled())
	assert.False(t, MirrorConfig{Endpoint: "localhost:9000"}.Enabled())
	assert.True(t, MirrorConfig{Endpoint: "localhost:9000", Bucket: "exports"}.Enabled())
}

func TestEnsureBucket_RetriesAfterFailure(t *testing.T) {
	buckets := &fakeBuckets{existsErrs: []error{context.Canceled, errors.New("connection reset")}}
	m := &ArchiveMirror{buckets: buckets, bucketName: "exports", region: "us-east-1"}
	ctx := context.Background()

	assert.ErrorIs(t, m.ensureBucket(ctx), context.Canceled)
	assert.Error(t, m.ensureBucket(ctx))
	require.NoError(t, m.ensureBucket(ctx))
	assert.Equal(t, 1, buckets.made)

	require.NoError(t, m.ensureBucket(ctx))
	assert.Equal(t, 3, buckets.checks, "a ready bucket is not checked again")
}

func TestEnsureBucket_ExistingBucket(t *testing.T) {
	buckets := &fakeBuckets{exists: true}
	m := &ArchiveMirror{buckets: buckets, bucketName: "exports"}

	require.NoError(t, m.ensureBucket(context.Background()))
	assert.Zero(t, buckets.made)
}

func TestEnsureBucket_MakeFailureIsRetried(t *testing.T) {
	buckets := &fakeBuckets{makeErr: errors.New("access denied")}
	m := &ArchiveMirror{buckets: buckets, bucketName: "exports"}

	require.Error(t, m.ensureBucket(context.Background()))
	buckets.makeErr = nil
	require.NoError(t, m.ensureBucket(context.Background()))
	assert.Equal(t, 2, buckets.made)
}
