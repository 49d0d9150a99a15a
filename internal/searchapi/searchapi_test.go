package searchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/httpx"
)

func newService(server *httptest.Server) *Service {
	api := NewClient(httpx.WithHTTPClient(server.Client()))
	return New(api, strings.TrimPrefix(server.URL, "https://"))
}

func hitDoc(identifier, modified string) map[string]interface{} {
	return map[string]interface{}{
		"identifier":     identifier,
		"recordMetadata": map[string]string{"modifiedDate": modified},
	}
}

func TestForEachHitPagesUntilTotalHits(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/resources", r.URL.Path)
		assert.Equal(t, "application/json; version="+DefaultAPIVersion, r.Header.Get("Accept"))
		assert.Equal(t, "the-publisher", r.URL.Query().Get("publisher"))

		from, _ := strconv.Atoi(r.URL.Query().Get("from"))
		var hits []map[string]interface{}
		if from < 3 {
			hits = append(hits, hitDoc(fmt.Sprintf("id-%d", from), ""))
			if from+1 < 3 {
				hits = append(hits, hitDoc(fmt.Sprintf("id-%d", from+1), ""))
			}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"hits": hits, "totalHits": 3})
	}))
	defer server.Close()

	var identifiers []string
	err := newService(server).ForEachHit(context.Background(), url.Values{"publisher": {"the-publisher"}}, 2, func(hit Hit) error {
		identifiers = append(identifiers, hit.Identifier)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"id-0", "id-1", "id-2"}, identifiers)
}

func TestForEachHitEmptyResult(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"hits": []string{}, "totalHits": 0})
	}))
	defer server.Close()

	calls := 0
	err := newService(server).ForEachHit(context.Background(), nil, 0, func(Hit) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, calls)
}

func TestCollectIdentifiersAdvancesCursorAndDeduplicates(t *testing.T) {
	pages := [][]map[string]interface{}{
		{hitDoc("a", "2024-01-01"), hitDoc("b", "2024-01-02")},
		{hitDoc("b", "2024-01-02"), hitDoc("c", "2024-01-03")},
		{},
	}
	var cursors []string

	call := 0
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cursors = append(cursors, r.URL.Query().Get("modified_since"))
		assert.Equal(t, "modified_date:asc", r.URL.Query().Get("sort"))

		page := pages[call]
		call++
		json.NewEncoder(w).Encode(map[string]interface{}{"hits": page, "totalHits": 3})
	}))
	defer server.Close()

	identifiers, err := newService(server).CollectIdentifiers(context.Background(), url.Values{"unit": {"185.90.0.0"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, identifiers)
	assert.Equal(t, []string{"", "2024-01-02", "2024-01-03"}, cursors)
}

func TestCollectIdentifiersStopsWhenCursorUnchanged(t *testing.T) {
	call := 0
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call++
		json.NewEncoder(w).Encode(map[string]interface{}{
			"hits":      []map[string]interface{}{hitDoc("a", "2024-01-01")},
			"totalHits": 1,
		})
	}))
	defer server.Close()

	identifiers, err := newService(server).CollectIdentifiers(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, identifiers)
	assert.Equal(t, 2, call, "stops once the cursor repeats")
}
