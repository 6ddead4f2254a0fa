package provider

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGrantsForACL(t *testing.T) {
	tests := []struct {
		acl      string
		wantURIs []string
	}{
		{ACLPrivate, nil},
		{"bogus", nil},
		{ACLPublicRead, []string{AllUsersURI}},
		{ACLPublicReadWrite, []string{AllUsersURI, AllUsersURI}},
		{ACLAuthenticatedRead, []string{AuthenticatedUsersURI}},
	}

	for _, tt := range tests {
		t.Run(tt.acl, func(t *testing.T) {
			grants := GrantsForACL("owner", tt.acl)
			assert.Equal(t, "owner", grants[0].Grantee.ID)
			assert.Equal(t, PermissionFullControl, grants[0].Permission)

			var uris []string
			for _, g := range grants[1:] {
				uris = append(uris, g.Grantee.URI)
			}
			assert.Equal(t, tt.wantURIs, uris)
		})
	}
}

func TestCopyObjectInput_ReplacesMetadata(t *testing.T) {
	assert.False(t, (&CopyObjectInput{}).ReplacesMetadata())
	assert.False(t, (&CopyObjectInput{ObjectOptions: ObjectOptions{ACL: ACLPrivate}}).ReplacesMetadata())
	assert.True(t, (&CopyObjectInput{ObjectOptions: ObjectOptions{ContentType: "text/plain"}}).ReplacesMetadata())
	assert.True(t, (&CopyObjectInput{ObjectOptions: ObjectOptions{Metadata: map[string]string{}}}).ReplacesMetadata())
}

func TestProviderType_String(t *testing.T) {
	assert.Equal(t, "s3", ProviderS3.String())
	assert.Equal(t, "minio", ProviderMinIO.String())
	assert.Equal(t, "memory", ProviderMemory.String())
}

func TestErrorHelpers(t *testing.T) {
	wrap := func(err error) error {
		return &ProviderError{Op: "HeadObject", Provider: ProviderMemory, Bucket: "b", Key: "k", Err: err}
	}

	tests := []struct {
		err         error
		missing     bool
		object      bool
		denied      bool
		invalid     bool
		unavailable bool
	}{
		{err: ErrNotFound, missing: true, object: true},
		{err: ErrBucketNotFound, missing: true},
		{err: ErrAccessDenied, denied: true},
		{err: ErrInvalidCredentials, denied: true},
		{err: ErrInvalidRequest, invalid: true},
		{err: ErrThrottled, unavailable: true},
		{err: ErrProviderUnavailable, unavailable: true},
		{err: fmt.Errorf("%w: body too short", ErrInvalidRequest), invalid: true},
		{err: errors.New("socket closed")},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			err := wrap(tt.err)
			assert.Equal(t, tt.missing, IsMissing(err))
			assert.Equal(t, tt.object, IsNotFound(err))
			assert.Equal(t, tt.denied, IsAccessDenied(err))
			assert.Equal(t, tt.invalid, IsInvalidRequest(err))
			assert.Equal(t, tt.unavailable, IsUnavailable(err))
		})
	}
}

func TestProviderError_Location(t *testing.T) {
	err := &ProviderError{Op: "CopyObject", Provider: ProviderMinIO, Bucket: "b", Key: "dir/a.txt", Err: ErrNotFound}
	assert.Equal(t, "minio CopyObject b/dir/a.txt: object not found", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)

	err = &ProviderError{Op: "DeleteObjects", Provider: ProviderS3, Bucket: "b", Err: ErrInvalidRequest}
	assert.Equal(t, "s3 DeleteObjects b: invalid request", err.Error())

	err = &ProviderError{Op: "New", Provider: ProviderS3, Err: ErrInvalidCredentials}
	assert.Equal(t, "s3 New: invalid credentials", err.Error())
}
