package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertStatusCode verifies the HTTP response status code
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	assert.Equal(t, expected, resp.StatusCode, "unexpected status code")
}

// AssertJSONResponse decodes JSON response into v
func AssertJSONResponse(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	err = json.Unmarshal(body, v)
	require.NoError(t, err, "failed to unmarshal response: %s", string(body))
}

// ReadBody decodes a JSON object body into a generic map
func ReadBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	AssertJSONResponse(t, resp, &body)
	return body
}

// AssertErrorResponse verifies status and that the JSON message contains
// expectedMessage
func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedMessage string) {
	t.Helper()

	assert.Equal(t, expectedStatus, resp.StatusCode, "unexpected status code")

	body := ReadBody(t, resp)
	message, _ := body["message"].(string)
	assert.Contains(t, message, expectedMessage, "error message mismatch")
}

// AssertNoPasswordField fails if any object in the JSON body carries a
// password or passwordHash key
func AssertNoPasswordField(t *testing.T, raw []byte) {
	t.Helper()

	var v interface{}
	require.NoError(t, json.Unmarshal(raw, &v))

	var walk func(interface{})
	walk = func(node interface{}) {
		switch n := node.(type) {
		case map[string]interface{}:
			for k, child := range n {
				assert.NotEqual(t, "password", k, "response leaks password field")
				assert.NotEqual(t, "passwordHash", k, "response leaks passwordHash field")
				walk(child)
			}
		case []interface{}:
			for _, child := range n {
				walk(child)
			}
		}
	}
	walk(v)
}
