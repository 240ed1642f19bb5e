package tenant

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidHandle(t *testing.T) {
	valid := []string{"acme", "acme-corp", "a1", "my-org-2024", "z" + strings.Repeat("a", 62)}
	for _, h := range valid {
		assert.True(t, ValidHandle(h), "expected %q to be valid", h)
	}

	invalid := []string{
		"",
		"a",                             // too short
		"Acme",                          // uppercase
		"1acme",                         // must start with a letter
		"-acme",                         // must start with a letter
		"acme_corp",                     // underscores are schema-only
		"acme.corp",                     // no dots
		"acme corp",                     // no spaces
		"z" + strings.Repeat("a", 63),   // too long
	}
	for _, h := range invalid {
		assert.False(t, ValidHandle(h), "expected %q to be invalid", h)
	}
}

func TestValidSchemaName(t *testing.T) {
	valid := []string{"acme_1a2b3c4d", "acme_corp_deadbeef", "a1"}
	for _, s := range valid {
		assert.True(t, ValidSchemaName(s), "expected %q to be valid", s)
	}

	invalid := []string{
		"",
		"public", // the shared namespace is never a tenant schema
		"Acme_1a2b3c4d",
		"acme-corp_1a2b3c4d", // hyphens are handle-only
		"1acme",
		`acme";DROP SCHEMA x`,
	}
	for _, s := range invalid {
		assert.False(t, ValidSchemaName(s), "expected %q to be invalid", s)
	}
}

func TestNewSchemaName(t *testing.T) {
	name := NewSchemaName("acme-corp")

	assert.True(t, strings.HasPrefix(name, "acme_corp_"), "got %q", name)
	assert.Len(t, name, len("acme_corp_")+8)
	assert.True(t, ValidSchemaName(name), "generated name %q must pass validation", name)
}

func TestNewSchemaNameIsCollisionResistant(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		name := NewSchemaName("acme")
		assert.False(t, seen[name], "duplicate schema name %q", name)
		seen[name] = true
	}
}
