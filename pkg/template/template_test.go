package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender_ReplacesAllOccurrences(t *testing.T) {
	vars := map[string]string{"company_name": "Acme"}

	result := Render("{{company_name}} thanks you. — {{company_name}}", vars)

	assert.Equal(t, "Acme thanks you. — Acme", result)
}

func TestRender_UnknownTokenStaysVerbatim(t *testing.T) {
	vars := map[string]string{"client_name": "John"}

	result := Render("Hi {{client_name}}, ref {{job_number}}", vars)

	assert.Equal(t, "Hi John, ref {{job_number}}", result)
}

func TestRender_WhitespaceInsideBraces(t *testing.T) {
	vars := map[string]string{"amount": "120.50"}

	assert.Equal(t, "Total: 120.50", Render("Total: {{ amount }}", vars))
}

func TestRender_EmptyValueSubstitutes(t *testing.T) {
	vars := map[string]string{"client_phone": ""}

	assert.Equal(t, "Call ", Render("Call {{client_phone}}", vars))
}

func TestRender_NoTokens(t *testing.T) {
	assert.Equal(t, "plain text", Render("plain text", map[string]string{"a": "b"}))
}

func TestRender_UnterminatedToken(t *testing.T) {
	vars := map[string]string{"name": "Ana"}

	assert.Equal(t, "Hi {{name", Render("Hi {{name", vars))
}

func TestRender_NilVariables(t *testing.T) {
	assert.Equal(t, "Hi {{name}}", Render("Hi {{name}}", nil))
}
