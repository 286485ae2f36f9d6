package main

import (
	"testing"

	"jeevandhara/docs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseline = `
paths:
  /health:
    get:
      responses:
        "200": {description: OK}
  /blood-requests:
    post:
      responses:
        "201": {description: Created}
        "400": {description: Bad Request}
    delete:
      responses:
        "200": {description: OK}
  /legacy:
    get:
      responses:
        "200": {description: OK}
`

func TestCompare(t *testing.T) {
	base, err := parse([]byte(baseline))
	require.NoError(t, err)
	revision, err := parse([]byte(`{"paths": {
		"/health": {"get": {"responses": {"200": {}}}},
		"/blood-requests": {"post": {"responses": {"201": {}}}, "parameters": []}
	}}`))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"removed operation: DELETE /blood-requests",
		"removed path: /legacy",
		"removed response code: POST /blood-requests -> 400",
	}, compare(base, revision))
	assert.Empty(t, compare(revision, revision))
}

func TestParse_BuiltInDocument(t *testing.T) {
	s, err := parse([]byte(docs.SwaggerInfo.ReadDoc()))
	require.NoError(t, err)
	require.Contains(t, s, "/blood-requests")
	assert.ElementsMatch(t, []string{"201", "400", "429"}, s["/blood-requests"]["post"])
}

func TestParse_RequiresPaths(t *testing.T) {
	_, err := parse([]byte(`swagger: "2.0"`))
	assert.Error(t, err)
}
