package provider

import (
	"context"
	"time"
)

// Optional provider capability interfaces.
//
// These interfaces are used for feature detection (type assertions). The core
// Provider interface stays limited to what every S3-compatible store offers.

// DelimiterOnly is implemented by providers that cannot list nested keys in a
// single delimiter-less request. Recursive listings against such providers
// walk common prefixes one level at a time.
type DelimiterOnly interface {
	RequiresDelimiter() bool
}

// PostPolicySigner can sign browser form uploads (POST policy).
type PostPolicySigner interface {
	SignPostPolicy(ctx context.Context, in *PostPolicyInput) (*PostPolicy, error)
}

// PostPolicyInput configures a POST policy.
type PostPolicyInput struct {
	Bucket string

	// KeyPrefix restricts uploaded keys with a starts-with condition.
	KeyPrefix string

	// Expires is the validity window of the policy.
	Expires time.Duration

	// ACL, when set, is pinned as a form field and a policy condition.
	ACL string

	// ContentType, when set, is pinned the same way.
	ContentType string

	// SuccessRedirect is where the browser goes after a successful upload.
	SuccessRedirect string
}

// PostPolicy is a signed form upload target.
type PostPolicy struct {
	// URL is the form action.
	URL string

	// Fields are the form fields the browser must submit with the file.
	Fields map[string]string
}

// RequiresDelimiter reports whether p declared itself delimiter-only.
func RequiresDelimiter(p Provider) bool {
	d, ok := p.(DelimiterOnly)
	return ok && d.RequiresDelimiter()
}
