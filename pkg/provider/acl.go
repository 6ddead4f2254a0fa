package provider

// Canned ACL tokens understood by S3-compatible stores.
const (
	ACLPrivate           = "private"
	ACLPublicRead        = "public-read"
	ACLPublicReadWrite   = "public-read-write"
	ACLAuthenticatedRead = "authenticated-read"
)

// Grant permissions.
const (
	PermissionRead        = "READ"
	PermissionWrite       = "WRITE"
	PermissionReadACP     = "READ_ACP"
	PermissionWriteACP    = "WRITE_ACP"
	PermissionFullControl = "FULL_CONTROL"
)

// Grantee types.
const (
	GranteeCanonicalUser = "CanonicalUser"
	GranteeGroup         = "Group"
)

// Well-known group grantees.
const (
	AllUsersURI           = "http://acs.amazonaws.com/groups/global/AllUsers"
	AuthenticatedUsersURI = "http://acs.amazonaws.com/groups/global/AuthenticatedUsers"
)

// Grant associates a principal with a permission on an object.
type Grant struct {
	Grantee    Grantee
	Permission string
}

// Grantee identifies the principal of a Grant. Group grantees carry URI,
// user grantees carry ID.
type Grantee struct {
	Type        string
	ID          string
	DisplayName string
	URI         string
}

// GrantsForACL expands a canned ACL token into the grants a store would
// report for it. Unknown tokens expand like ACLPrivate.
func GrantsForACL(ownerID, acl string) []Grant {
	grants := []Grant{{
		Grantee:    Grantee{Type: GranteeCanonicalUser, ID: ownerID},
		Permission: PermissionFullControl,
	}}

	group := func(uri, perm string) Grant {
		return Grant{Grantee: Grantee{Type: GranteeGroup, URI: uri}, Permission: perm}
	}

	switch acl {
	case ACLPublicRead:
		grants = append(grants, group(AllUsersURI, PermissionRead))
	case ACLPublicReadWrite:
		grants = append(grants, group(AllUsersURI, PermissionRead), group(AllUsersURI, PermissionWrite))
	case ACLAuthenticatedRead:
		grants = append(grants, group(AuthenticatedUsersURI, PermissionRead))
	}
	return grants
}
