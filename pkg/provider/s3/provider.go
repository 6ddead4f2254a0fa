package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/3leaps/nimbusfs/pkg/provider"
)

// objectAPI is the subset of *s3.Client the provider calls.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	ListObjects(ctx context.Context, in *s3.ListObjectsInput, optFns ...func(*s3.Options)) (*s3.ListObjectsOutput, error)
	GetObjectAcl(ctx context.Context, in *s3.GetObjectAclInput, optFns ...func(*s3.Options)) (*s3.GetObjectAclOutput, error)
	PutObjectAcl(ctx context.Context, in *s3.PutObjectAclInput, optFns ...func(*s3.Options)) (*s3.PutObjectAclOutput, error)
}

// presignAPI is the subset of *s3.PresignClient the provider calls.
type presignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignHeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignDeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignPostObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignPostOptions)) (*s3.PresignedPostRequest, error)
}

// Provider implements provider.Provider for AWS S3, Huawei OBS and other
// S3-compatible storage.
type Provider struct {
	client  objectAPI
	presign presignAPI
	maxKeys int
}

// Ensure Provider implements the interfaces.
var (
	_ provider.Provider         = (*Provider)(nil)
	_ provider.PostPolicySigner = (*Provider)(nil)
)

// New creates a new S3 provider with the given configuration.
//
// The provider uses AWS SDK v2's default credential chain unless explicit
// credentials are provided in the config.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, &provider.ProviderError{
			Op:       "New",
			Provider: provider.ProviderS3,
			Err:      err,
		}
	}

	// Build S3 client options
	s3Opts := []func(*s3.Options){
		func(o *s3.Options) {
			if cfg.ForcePathStyle {
				o.UsePathStyle = true
			}
		},
	}

	// Custom endpoint for OBS and other S3-compatible stores
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	return newWithAPI(client, s3.NewPresignClient(client), cfg.MaxKeys), nil
}

func newWithAPI(client objectAPI, presign presignAPI, maxKeys int) *Provider {
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	return &Provider{client: client, presign: presign, maxKeys: maxKeys}
}

// loadAWSConfig builds the AWS configuration with appropriate credentials.
func loadAWSConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error

	// Only apply explicit region if user set one in config.
	// Let SDK resolve from env/profile first.
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	// On EC2 the instance metadata service can supply the region.
	if cfg.IMDSRegion && cfg.Region == "" {
		opts = append(opts, config.WithEC2IMDSRegion(func(o *config.UseEC2IMDSRegion) {
			o.Client = imds.New(imds.Options{})
		}))
	}

	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}

	// Use explicit credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		staticCreds := credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			cfg.SessionToken,
		)
		opts = append(opts, config.WithCredentialsProvider(staticCreds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}

	awsCfg.Region = resolveRegion(cfg.Region, cfg.Endpoint, awsCfg.Region)

	return awsCfg, nil
}

// PutObject uploads an object.
//
// The SDK signs and checksums the payload before sending it, which needs a
// seekable body over plain HTTP. Other readers are spooled to a temporary
// file first.
func (p *Provider) PutObject(ctx context.Context, in *provider.PutObjectInput) error {
	body, size, release, err := seekableBody(in.Body, in.ContentLength)
	if err != nil {
		return p.wrapError("PutObject", in.Bucket, in.Key, err)
	}
	defer release()

	input := &s3.PutObjectInput{
		Bucket:                  aws.String(in.Bucket),
		Key:                     aws.String(in.Key),
		Body:                    body,
		ContentLength:           size,
		ACL:                     types.ObjectCannedACL(in.ACL),
		StorageClass:            types.StorageClass(in.StorageClass),
		Metadata:                in.Metadata,
		ServerSideEncryption:    types.ServerSideEncryption(in.ServerSideEncryption),
		Expires:                 in.Expires,
		ContentType:             optString(in.ContentType),
		WebsiteRedirectLocation: optString(in.WebsiteRedirectLocation),
		SSEKMSKeyId:             optString(in.SSEKMSKeyID),
		SSECustomerAlgorithm:    optString(in.SSECustomerAlgorithm),
		SSECustomerKey:          optString(in.SSECustomerKey),
	}

	if _, err := p.client.PutObject(ctx, input); err != nil {
		return p.wrapError("PutObject", in.Bucket, in.Key, err)
	}
	return nil
}

// seekableBody returns r unchanged when it can seek. Anything else is copied
// to a temporary file that release removes.
func seekableBody(r io.Reader, size *int64) (io.ReadSeeker, *int64, func(), error) {
	switch body := r.(type) {
	case nil:
		zero := int64(0)
		return strings.NewReader(""), &zero, func() {}, nil
	case io.ReadSeeker:
		return body, size, func() {}, nil
	}

	f, err := os.CreateTemp("", "nimbusfs-put-*")
	if err != nil {
		return nil, nil, nil, err
	}
	release := func() {
		_ = f.Close()
		_ = os.Remove(f.Name())
	}
	n, err := io.Copy(f, r)
	if err == nil {
		_, err = f.Seek(0, io.SeekStart)
	}
	if err != nil {
		release()
		return nil, nil, nil, err
	}
	if size != nil && *size != n {
		release()
		return nil, nil, nil, fmt.Errorf("%w: body has %d bytes, content length is %d", provider.ErrInvalidRequest, n, *size)
	}
	return f, &n, release, nil
}

// copySource builds the x-amz-copy-source value. Keys are path-escaped so
// "?" and "%" stay part of the key.
func copySource(bucket, key string) string {
	return bucket + "/" + (&url.URL{Path: key}).EscapedPath()
}

// GetObject opens the object body as a stream.
func (p *Provider) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := p.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, p.wrapError("GetObject", bucket, key, err)
	}
	return out.Body, nil
}

// HeadObject returns the metadata record for a single object.
func (p *Provider) HeadObject(ctx context.Context, bucket, key string) (*provider.ObjectRecord, error) {
	out, err := p.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, p.wrapError("HeadObject", bucket, key, err)
	}

	return &provider.ObjectRecord{
		Key:           key,
		ContentLength: out.ContentLength,
		LastModified:  formatTime(out.LastModified),
		ContentType:   aws.ToString(out.ContentType),
		StorageClass:  string(out.StorageClass),
		ETag:          cleanETag(aws.ToString(out.ETag)),
		VersionID:     aws.ToString(out.VersionId),
		Metadata:      out.Metadata,
	}, nil
}

// DeleteObject deletes an object.
func (p *Provider) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return p.wrapError("DeleteObject", bucket, key, err)
	}
	return nil
}

// DeleteObjects deletes a batch of keys in quiet mode.
//
// Per-key failures reported in the response are surfaced as the error of
// the first failed key.
func (p *Provider) DeleteObjects(ctx context.Context, bucket string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if len(keys) > provider.MaxDeleteKeys {
		return p.wrapError("DeleteObjects", bucket, "", provider.ErrInvalidRequest)
	}

	ids := make([]types.ObjectIdentifier, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
	}

	out, err := p.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return p.wrapError("DeleteObjects", bucket, "", err)
	}
	if len(out.Errors) > 0 {
		first := out.Errors[0]
		return p.wrapError("DeleteObjects", bucket, aws.ToString(first.Key), &deleteError{
			code:    aws.ToString(first.Code),
			message: aws.ToString(first.Message),
		})
	}
	return nil
}

// CopyObject copies an object within a bucket.
func (p *Provider) CopyObject(ctx context.Context, in *provider.CopyObjectInput) error {
	directive := types.MetadataDirectiveCopy
	if in.ReplacesMetadata() {
		directive = types.MetadataDirectiveReplace
	}

	input := &s3.CopyObjectInput{
		Bucket:                  aws.String(in.Bucket),
		Key:                     aws.String(in.Key),
		CopySource:              aws.String(copySource(in.Bucket, in.SourceKey)),
		MetadataDirective:       directive,
		ACL:                     types.ObjectCannedACL(in.ACL),
		StorageClass:            types.StorageClass(in.StorageClass),
		Metadata:                in.Metadata,
		ServerSideEncryption:    types.ServerSideEncryption(in.ServerSideEncryption),
		Expires:                 in.Expires,
		ContentType:             optString(in.ContentType),
		WebsiteRedirectLocation: optString(in.WebsiteRedirectLocation),
		SSEKMSKeyId:             optString(in.SSEKMSKeyID),
		SSECustomerAlgorithm:    optString(in.SSECustomerAlgorithm),
		SSECustomerKey:          optString(in.SSECustomerKey),
	}

	if _, err := p.client.CopyObject(ctx, input); err != nil {
		return p.wrapError("CopyObject", in.Bucket, in.SourceKey, err)
	}
	return nil
}

// ListObjects returns one page of a marker-based (v1) listing.
//
// S3 only returns NextMarker when a delimiter is sent. For truncated pages
// without it, the last key or common prefix of the page becomes the marker.
func (p *Provider) ListObjects(ctx context.Context, in *provider.ListObjectsInput) (*provider.ListObjectsOutput, error) {
	maxKeys := clampMaxKeys(in.MaxKeys, p.maxKeys)

	input := &s3.ListObjectsInput{
		Bucket:  aws.String(in.Bucket),
		MaxKeys: aws.Int32(int32(maxKeys)),
	}
	if in.Prefix != "" {
		input.Prefix = aws.String(in.Prefix)
	}
	if in.Delimiter != "" {
		input.Delimiter = aws.String(in.Delimiter)
	}
	if in.Marker != "" {
		input.Marker = aws.String(in.Marker)
	}

	out, err := p.client.ListObjects(ctx, input)
	if err != nil {
		return nil, p.wrapError("ListObjects", in.Bucket, in.Prefix, err)
	}

	result := &provider.ListObjectsOutput{
		Contents:       make([]provider.ObjectRecord, 0, len(out.Contents)),
		CommonPrefixes: make([]string, 0, len(out.CommonPrefixes)),
	}
	last := ""
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		result.Contents = append(result.Contents, provider.ObjectRecord{
			Key:          key,
			Size:         obj.Size,
			LastModified: formatTime(obj.LastModified),
			ETag:         cleanETag(aws.ToString(obj.ETag)),
			StorageClass: string(obj.StorageClass),
		})
		last = max(last, key)
	}
	for _, cp := range out.CommonPrefixes {
		prefix := aws.ToString(cp.Prefix)
		result.CommonPrefixes = append(result.CommonPrefixes, prefix)
		last = max(last, prefix)
	}

	if aws.ToBool(out.IsTruncated) {
		result.NextMarker = aws.ToString(out.NextMarker)
		if result.NextMarker == "" {
			result.NextMarker = last
		}
	}

	return result, nil
}

// GetObjectACL returns the object's grants.
func (p *Provider) GetObjectACL(ctx context.Context, bucket, key string) ([]provider.Grant, error) {
	out, err := p.client.GetObjectAcl(ctx, &s3.GetObjectAclInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, p.wrapError("GetObjectACL", bucket, key, err)
	}

	grants := make([]provider.Grant, 0, len(out.Grants))
	for _, g := range out.Grants {
		grant := provider.Grant{Permission: string(g.Permission)}
		if g.Grantee != nil {
			grant.Grantee = provider.Grantee{
				Type:        string(g.Grantee.Type),
				ID:          aws.ToString(g.Grantee.ID),
				DisplayName: aws.ToString(g.Grantee.DisplayName),
				URI:         aws.ToString(g.Grantee.URI),
			}
		}
		grants = append(grants, grant)
	}
	return grants, nil
}

// SetObjectACL applies a canned ACL to an object.
func (p *Provider) SetObjectACL(ctx context.Context, bucket, key, acl string) error {
	_, err := p.client.PutObjectAcl(ctx, &s3.PutObjectAclInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		ACL:    types.ObjectCannedACL(acl),
	})
	if err != nil {
		return p.wrapError("SetObjectACL", bucket, key, err)
	}
	return nil
}

// CreateSignedURL presigns a request for the given method.
//
// Recognized query parameters are the response-* overrides and versionId;
// anything else is ignored.
func (p *Provider) CreateSignedURL(ctx context.Context, in *provider.SignedURLInput) (string, error) {
	expires := s3.WithPresignExpires(time.Duration(in.ExpiresSeconds) * time.Second)
	bucket, key := aws.String(in.Bucket), aws.String(in.Key)
	q := in.QueryParams

	var (
		req *v4.PresignedHTTPRequest
		err error
	)
	switch strings.ToUpper(in.Method) {
	case "", http.MethodGet:
		req, err = p.presign.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket:                     bucket,
			Key:                        key,
			VersionId:                  optString(q["versionId"]),
			ResponseCacheControl:       optString(q["response-cache-control"]),
			ResponseContentDisposition: optString(q["response-content-disposition"]),
			ResponseContentEncoding:    optString(q["response-content-encoding"]),
			ResponseContentLanguage:    optString(q["response-content-language"]),
			ResponseContentType:        optString(q["response-content-type"]),
			ResponseExpires:            parseHTTPTime(q["response-expires"]),
		}, expires)
	case http.MethodHead:
		req, err = p.presign.PresignHeadObject(ctx, &s3.HeadObjectInput{
			Bucket:    bucket,
			Key:       key,
			VersionId: optString(q["versionId"]),
		}, expires)
	case http.MethodPut:
		req, err = p.presign.PresignPutObject(ctx, &s3.PutObjectInput{Bucket: bucket, Key: key}, expires)
	case http.MethodDelete:
		req, err = p.presign.PresignDeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket:    bucket,
			Key:       key,
			VersionId: optString(q["versionId"]),
		}, expires)
	default:
		return "", p.wrapError("CreateSignedURL", in.Bucket, in.Key, provider.ErrInvalidRequest)
	}
	if err != nil {
		return "", p.wrapError("CreateSignedURL", in.Bucket, in.Key, err)
	}
	return req.URL, nil
}

// SignPostPolicy presigns a browser form upload restricted to KeyPrefix.
func (p *Provider) SignPostPolicy(ctx context.Context, in *provider.PostPolicyInput) (*provider.PostPolicy, error) {
	conditions := []interface{}{
		[]interface{}{"starts-with", "$key", in.KeyPrefix},
	}
	if in.ACL != "" {
		conditions = append(conditions, map[string]string{"acl": in.ACL})
	}
	if in.ContentType != "" {
		conditions = append(conditions, map[string]string{"Content-Type": in.ContentType})
	}
	if in.SuccessRedirect != "" {
		conditions = append(conditions, map[string]string{"success_action_redirect": in.SuccessRedirect})
	}

	out, err := p.presign.PresignPostObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(in.Bucket),
		Key:    aws.String(in.KeyPrefix + "${filename}"),
	}, func(o *s3.PresignPostOptions) {
		o.Expires = in.Expires
		o.Conditions = conditions
	})
	if err != nil {
		return nil, p.wrapError("SignPostPolicy", in.Bucket, in.KeyPrefix, err)
	}

	fields := make(map[string]string, len(out.Values)+3)
	for k, v := range out.Values {
		fields[k] = v
	}
	if in.ACL != "" {
		fields["acl"] = in.ACL
	}
	if in.ContentType != "" {
		fields["Content-Type"] = in.ContentType
	}
	if in.SuccessRedirect != "" {
		fields["success_action_redirect"] = in.SuccessRedirect
	}
	return &provider.PostPolicy{URL: out.URL, Fields: fields}, nil
}

// Close releases any resources held by the provider.
// The S3 client doesn't require explicit cleanup, but this satisfies the interface.
func (p *Provider) Close() error {
	return nil
}

// deleteError carries a per-key failure from a DeleteObjects response.
type deleteError struct {
	code    string
	message string
}

func (e *deleteError) Error() string                 { return e.code + ": " + e.message }
func (e *deleteError) ErrorCode() string             { return e.code }
func (e *deleteError) ErrorMessage() string          { return e.message }
func (e *deleteError) ErrorFault() smithy.ErrorFault { return smithy.FaultServer }

// wrapError converts S3 errors to provider errors with appropriate sentinel errors.
func (p *Provider) wrapError(op, bucket, key string, err error) error {
	wrapped := &provider.ProviderError{
		Op:       op,
		Provider: provider.ProviderS3,
		Bucket:   bucket,
		Key:      key,
		Err:      err,
	}
	if errors.Is(err, provider.ErrInvalidRequest) {
		return wrapped
	}

	// Check for specific S3 error types first
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket

	switch {
	case errors.As(err, &notFound), errors.As(err, &noSuchKey):
		wrapped.Err = provider.ErrNotFound
		return wrapped
	case errors.As(err, &noSuchBucket):
		wrapped.Err = provider.ErrBucketNotFound
		return wrapped
	}

	// Check smithy API errors for error codes
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if sentinel := sentinelForCode(apiErr.ErrorCode()); sentinel != nil {
			wrapped.Err = sentinel
		}
		return wrapped
	}

	// Fallback: check error message for common cases
	errMsg := err.Error()
	switch {
	case strings.Contains(errMsg, "NoSuchKey") || strings.Contains(errMsg, "NotFound") || strings.Contains(errMsg, "404"):
		wrapped.Err = provider.ErrNotFound
	case strings.Contains(errMsg, "NoSuchBucket"):
		wrapped.Err = provider.ErrBucketNotFound
	case strings.Contains(errMsg, "AccessDenied") || strings.Contains(errMsg, "Forbidden") || strings.Contains(errMsg, "403"):
		wrapped.Err = provider.ErrAccessDenied
	case strings.Contains(errMsg, "InvalidAccessKeyId") || strings.Contains(errMsg, "SignatureDoesNotMatch"):
		wrapped.Err = provider.ErrInvalidCredentials
	case strings.Contains(errMsg, "SlowDown") || strings.Contains(errMsg, "Throttling") || strings.Contains(errMsg, "429"):
		wrapped.Err = provider.ErrThrottled
	case strings.Contains(errMsg, "ServiceUnavailable") || strings.Contains(errMsg, "503"):
		wrapped.Err = provider.ErrProviderUnavailable
	}

	return wrapped
}

// sentinelForCode maps S3 and OBS error codes to provider sentinels.
// Unknown codes return nil.
func sentinelForCode(code string) error {
	switch code {
	case "NoSuchKey", "NotFound":
		return provider.ErrNotFound
	case "NoSuchBucket":
		return provider.ErrBucketNotFound
	case "AccessDenied", "Forbidden", "AllAccessDisabled":
		return provider.ErrAccessDenied
	case "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return provider.ErrInvalidCredentials
	case "SlowDown", "Throttling", "RequestLimitExceeded":
		return provider.ErrThrottled
	case "ServiceUnavailable", "InternalError":
		return provider.ErrProviderUnavailable
	case "InvalidArgument", "InvalidRequest", "InvalidObjectName", "KeyTooLongError", "MalformedACLError":
		return provider.ErrInvalidRequest
	}
	return nil
}

// cleanETag removes surrounding quotes from an ETag value.
// S3 returns ETags with quotes, e.g., "d41d8cd98f00b204e9800998ecf8427e".
func cleanETag(etag string) string {
	return strings.Trim(etag, "\"")
}

// formatTime renders an SDK timestamp as an HTTP date, the shape OBS and S3
// use on the wire. Nil stays empty.
func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(http.TimeFormat)
}

func parseHTTPTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := http.ParseTime(s)
	if err != nil {
		return nil
	}
	return &t
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}

// clampMaxKeys applies defaults and limits to maxKeys values.
// If requested is <= 0, uses providerDefault. Result is clamped to MaxAllowedKeys.
func clampMaxKeys(requested, providerDefault int) int {
	if requested <= 0 {
		requested = providerDefault
	}
	if requested > MaxAllowedKeys {
		return MaxAllowedKeys
	}
	return requested
}

// resolveRegion determines the final region to use after SDK config loading.
//
// The sdkRegion parameter is the region after SDK loading, which already
// incorporates explicit cfgRegion (if set), env/profile resolution and,
// when enabled, the EC2 instance metadata service.
//
// This function only applies the fallback default:
//   - If sdkRegion is still empty AND no custom endpoint, default to us-east-1
//   - For OBS and other S3-compatible stores (endpoint set), no defaulting occurs
func resolveRegion(cfgRegion, endpoint, sdkRegion string) string {
	if sdkRegion != "" {
		return sdkRegion
	}
	if cfgRegion != "" {
		return cfgRegion
	}
	if endpoint == "" {
		return DefaultAWSRegion
	}
	return ""
}
