package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEntity(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Load Balancers", want: "load balancer"},
		{in: "security policies", want: "security policy"},
		{in: "REST APIs", want: "rest api"},
		{in: "access-tokens", want: "access token"},
		{in: "  OAuth2   Scopes ", want: "oauth2 scope"},
		{in: "class", want: "class"},
		{in: "gas", want: "gas"},
		{in: "!!!", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeEntity(tt.in))
		})
	}
}

func TestValidEntityText(t *testing.T) {
	assert.True(t, ValidEntityText("load balancer"))
	assert.False(t, ValidEntityText("x"), "too short")
	assert.False(t, ValidEntityText(strings.Repeat("a", MaxEntityLength+1)), "too long")
	assert.False(t, ValidEntityText("a{}[]()"), "mostly punctuation")
	assert.True(t, ValidEntityText("v1.2"), "punctuation minority")
}

func TestEntityPhrases(t *testing.T) {
	t.Run("plain phrase", func(t *testing.T) {
		assert.Equal(t, []string{"token endpoint"}, EntityPhrases([]string{"token", "endpoint"}))
	})

	t.Run("long leaf splits phrase", func(t *testing.T) {
		leaves := []string{"bearer", "NtBQkXoKElu0H1a1fQ0DWfo6IX4a", "header", "value"}
		assert.Equal(t, []string{"bearer", "header value"}, EntityPhrases(leaves))
	})

	t.Run("single char leaf rejected", func(t *testing.T) {
		assert.Empty(t, EntityPhrases([]string{"x"}))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, EntityPhrases(nil))
	})
}
