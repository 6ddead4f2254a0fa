package minio

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/encrypt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "complete", cfg: Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"}},
		{name: "missing endpoint", cfg: Config{AccessKey: "a", SecretKey: "b"}, wantErr: "Endpoint"},
		{name: "missing secret", cfg: Config{Endpoint: "localhost:9000", AccessKey: "a"}, wantErr: "AccessKey/SecretKey"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.wantErr, ce.Field)
			assert.Contains(t, err.Error(), "minio config:")
		})
	}
}

func TestNew_ClampsMaxKeys(t *testing.T) {
	p, err := New(Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", MaxKeys: 5000})
	require.NoError(t, err)
	assert.Equal(t, provider.MaxListKeys, p.maxKeys)

	p, err = New(Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", MaxKeys: 10})
	require.NoError(t, err)
	assert.Equal(t, 10, p.maxKeys)
}

func TestDeleteObjects_TooManyKeys(t *testing.T) {
	p, err := New(Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	require.NoError(t, err)

	keys := make([]string, provider.MaxDeleteKeys+1)
	for i := range keys {
		keys[i] = fmt.Sprintf("k%d", i)
	}
	err = p.DeleteObjects(context.Background(), "bucket", keys)
	assert.True(t, provider.IsInvalidRequest(err))
	assert.NoError(t, p.DeleteObjects(context.Background(), "bucket", nil))
}

func TestUserMetadata(t *testing.T) {
	assert.Nil(t, userMetadata(nil, "", ""))

	got := userMetadata(map[string]string{"owner": "ops"}, provider.ACLPublicRead, "STANDARD_IA")
	assert.Equal(t, map[string]string{
		"owner":               "ops",
		"x-amz-acl":           "public-read",
		"X-Amz-Storage-Class": "STANDARD_IA",
	}, got)
}

func TestServerSide(t *testing.T) {
	sse, err := serverSide(provider.ObjectOptions{})
	require.NoError(t, err)
	assert.Nil(t, sse)

	sse, err = serverSide(provider.ObjectOptions{ServerSideEncryption: "AES256"})
	require.NoError(t, err)
	assert.Equal(t, encrypt.S3, sse.Type())

	sse, err = serverSide(provider.ObjectOptions{ServerSideEncryption: "aws:kms", SSEKMSKeyID: "key-1"})
	require.NoError(t, err)
	assert.Equal(t, encrypt.KMS, sse.Type())

	key := base64.StdEncoding.EncodeToString(make([]byte, 32))
	sse, err = serverSide(provider.ObjectOptions{SSECustomerAlgorithm: "AES256", SSECustomerKey: key})
	require.NoError(t, err)
	assert.Equal(t, encrypt.SSEC, sse.Type())

	_, err = serverSide(provider.ObjectOptions{SSECustomerKey: "not base64!"})
	assert.ErrorIs(t, err, provider.ErrInvalidRequest)

	_, err = serverSide(provider.ObjectOptions{SSECustomerKey: base64.StdEncoding.EncodeToString([]byte("short"))})
	assert.ErrorIs(t, err, provider.ErrInvalidRequest)
}

func TestToRecord(t *testing.T) {
	rec := toRecord(minio.ObjectInfo{
		Key:          "dir/a.txt",
		Size:         42,
		ETag:         "\"abc\"",
		ContentType:  "text/plain",
		StorageClass: "STANDARD",
		LastModified: time.Date(2021, 5, 31, 6, 52, 32, 0, time.UTC),
		UserMetadata: minio.StringMap{"Owner": "ops"},
	})

	assert.Equal(t, "dir/a.txt", rec.Key)
	require.NotNil(t, rec.Size)
	assert.Equal(t, int64(42), *rec.Size)
	assert.Equal(t, "abc", rec.ETag)
	assert.Equal(t, "Mon, 31 May 2021 06:52:32 GMT", rec.LastModified)
	assert.Equal(t, map[string]string{"Owner": "ops"}, rec.Metadata)

	empty := toRecord(minio.ObjectInfo{Key: "k"})
	assert.Empty(t, empty.LastModified)
	assert.Nil(t, empty.Metadata)
}

func TestToGrants(t *testing.T) {
	grants := toGrants([]minio.Grant{
		{Grantee: minio.Grantee{ID: "owner"}, Permission: provider.PermissionFullControl},
		{Grantee: minio.Grantee{URI: provider.AllUsersURI}, Permission: provider.PermissionRead},
	})
	require.Len(t, grants, 2)
	assert.Equal(t, provider.GranteeCanonicalUser, grants[0].Grantee.Type)
	assert.Equal(t, provider.GranteeGroup, grants[1].Grantee.Type)
	assert.Equal(t, provider.AllUsersURI, grants[1].Grantee.URI)
}

func TestWrapError(t *testing.T) {
	p := &Provider{}
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no such key", minio.ErrorResponse{Code: "NoSuchKey"}, provider.ErrNotFound},
		{"no such bucket", minio.ErrorResponse{Code: "NoSuchBucket"}, provider.ErrBucketNotFound},
		{"access denied", minio.ErrorResponse{Code: "AccessDenied"}, provider.ErrAccessDenied},
		{"bad key", minio.ErrorResponse{Code: "InvalidAccessKeyId"}, provider.ErrInvalidCredentials},
		{"slow down", minio.ErrorResponse{Code: "SlowDown"}, provider.ErrThrottled},
		{"unavailable", minio.ErrorResponse{Code: "ServiceUnavailable"}, provider.ErrProviderUnavailable},
		{"invalid", minio.ErrorResponse{Code: "InvalidArgument"}, provider.ErrInvalidRequest},
		{"status 404", minio.ErrorResponse{Code: "Weird", StatusCode: 404}, provider.ErrNotFound},
		{"status 403", minio.ErrorResponse{Code: "Weird", StatusCode: 403}, provider.ErrAccessDenied},
		{"wrapped", fmt.Errorf("outer: %w", minio.ErrorResponse{Code: "NoSuchKey"}), provider.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.wrapError("Op", "bucket", "key", tt.err)
			assert.ErrorIs(t, err, tt.want)

			var pe *provider.ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, provider.ProviderMinIO, pe.Provider)
			assert.Equal(t, "bucket", pe.Bucket)
		})
	}

	plain := errors.New("boom")
	err := p.wrapError("Op", "b", "k", plain)
	assert.ErrorIs(t, err, plain)

	err = p.wrapError("Op", "b", "k", context.Canceled)
	assert.ErrorIs(t, err, context.Canceled)
}
