package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImportSet(t *testing.T) {
	s := NewImportSet("choreo/rate_limit", "acme/auth")
	s.Add("choreo/rate_limit")
	s.Add("")
	s.Merge(NewImportSet("acme/auth", "choreo/cors"))

	assert.Equal(t, []string{"acme/auth", "choreo/cors", "choreo/rate_limit"}, s.Sorted())
	assert.Equal(t, "import acme/auth;\nimport choreo/cors;\nimport choreo/rate_limit;\n", s.Render())
	assert.True(t, s.Contains("choreo/cors"))
}

func TestImportSet_Without(t *testing.T) {
	s := NewImportSet("ballerina/http", "choreo/cors")
	rest := s.Without(func(name string) bool { return name == "ballerina/http" })

	assert.Equal(t, []string{"choreo/cors"}, rest.Sorted())
	assert.Len(t, s, 2)
}

func TestImportSet_RenderEmpty(t *testing.T) {
	assert.Empty(t, NewImportSet().Render())
}
