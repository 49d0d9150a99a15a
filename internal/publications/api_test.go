package publications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/BIBSYSDEV/nva-aws-cli-tools/internal/errors"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/httpx"
)

func newTestAPI(server *httptest.Server) *APIService {
	api := httpx.New(httpx.WithHTTPClient(server.Client()))
	return NewAPIService(api, strings.TrimPrefix(server.URL, "https://"))
}

func TestCopyClearsIdentityAndArtifacts(t *testing.T) {
	var created map[string]interface{}
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			assert.Equal(t, "/publication/0190abc", r.URL.Path)
			assert.Equal(t, "true", r.URL.Query().Get("doNotRedirect"))
			json.NewEncoder(w).Encode(map[string]interface{}{
				"identifier": "0190abc",
				"id":         "https://api.example.org/publication/0190abc",
				"@context":   "https://example.org/context",
				"associatedArtifacts": []interface{}{
					map[string]interface{}{"type": "PublishedFile"},
				},
				"entityDescription": map[string]interface{}{"mainTitle": "A title"},
			})
		case r.Method == http.MethodPost:
			assert.Equal(t, "/publication", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&created))
			json.NewEncoder(w).Encode(map[string]interface{}{"identifier": "0190new"})
		}
	}))
	defer server.Close()

	result, err := newTestAPI(server).Copy(context.Background(), "0190abc")
	require.NoError(t, err)
	assert.Equal(t, "0190new", result["identifier"])

	assert.NotContains(t, created, "identifier")
	assert.NotContains(t, created, "id")
	assert.NotContains(t, created, "@context")
	assert.Empty(t, created["associatedArtifacts"])
	assert.Equal(t, "A title", created["entityDescription"].(map[string]interface{})["mainTitle"])
}

func TestFetchNotFound(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestAPI(server).Fetch(context.Background(), "0190abc", true)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestUpdateSendsPut(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/publication/0190abc", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{"identifier": "0190abc"})
	}))
	defer server.Close()

	updated, err := newTestAPI(server).Update(context.Background(), "0190abc", map[string]interface{}{"status": "DRAFT"})
	require.NoError(t, err)
	assert.Equal(t, "0190abc", updated["identifier"])
}
