package tenant

import "regexp"

// Handles are lowercase DNS-label style identifiers: they appear as subdomain
// labels, so the character set is deliberately restricted.
var handleRe = regexp.MustCompile(`^[a-z][a-z0-9-]{1,62}$`)

// Schema names are system-generated from a handle plus a random suffix;
// hyphens are mapped to underscores so the name needs no quoting gymnastics.
var schemaRe = regexp.MustCompile(`^[a-z][a-z0-9_]{1,62}$`)

// ValidHandle reports whether s is an acceptable workspace handle
func ValidHandle(s string) bool {
	return handleRe.MatchString(s)
}

// ValidSchemaName reports whether s is an acceptable physical schema name.
// Everything interpolated into DDL goes through this check first.
func ValidSchemaName(s string) bool {
	return s != PublicSchema && schemaRe.MatchString(s)
}
