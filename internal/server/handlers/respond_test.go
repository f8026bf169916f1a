package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBody(t *testing.T) {
	decode := func(body string) (EnrichRequest, error) {
		var req EnrichRequest
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		return req, decodeBody(r, &req)
	}

	req, err := decode("")
	require.NoError(t, err)
	assert.False(t, req.DryRun)

	req, err = decode(`{"dry_run": true, "model": "gemini-2.5-flash"}` + "\n")
	require.NoError(t, err)
	assert.True(t, req.DryRun)
	assert.Equal(t, "gemini-2.5-flash", req.Model)

	_, err = decode(`{"dry_run": true} {"dry_run": false}`)
	require.Error(t, err)

	_, err = decode(`[1, 2]`)
	require.Error(t, err)
}
