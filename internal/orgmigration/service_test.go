package orgmigration

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/publications"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/report"
)

type fakeSearcher struct {
	byQuery map[string][]string
	queries []url.Values
}

func (f *fakeSearcher) CollectIdentifiers(ctx context.Context, query url.Values) ([]string, error) {
	f.queries = append(f.queries, query)
	for key := range f.byQuery {
		if query.Get(key) != "" {
			return f.byQuery[key], nil
		}
	}
	return nil, nil
}

type fakeResourceStore struct {
	resources map[string]*publications.Resource
	updated   []*publications.Resource
	failOn    string
}

func (f *fakeResourceStore) FetchByIdentifier(ctx context.Context, identifier string) (*publications.Resource, error) {
	if identifier == f.failOn {
		return nil, errors.New("boom")
	}
	return f.resources[identifier], nil
}

func (f *fakeResourceStore) UpdateData(ctx context.Context, resource *publications.Resource) error {
	f.updated = append(f.updated, resource)
	return nil
}

func TestListPublicationsWritesReport(t *testing.T) {
	searcher := &fakeSearcher{byQuery: map[string][]string{
		"unit":            {"pub-1", "pub-2"},
		"userAffiliation": {"pub-3"},
	}}
	filename := filepath.Join(t.TempDir(), "report.json")

	service := NewWithOutput(searcher, &fakeResourceStore{}, &bytes.Buffer{})
	migrationReport, err := service.ListPublications(context.Background(), "185.90.0.0", filename)
	require.NoError(t, err)

	assert.Equal(t, []string{"pub-1", "pub-2"}, migrationReport.Contributors)
	assert.Equal(t, []string{"pub-3"}, migrationReport.Owners)

	var persisted MigrationReport
	require.NoError(t, report.ReadJSON(filename, &persisted))
	assert.Equal(t, *migrationReport, persisted)
}

func contributorResource(identifier string) *publications.Resource {
	return &publications.Resource{
		PK0: "Resource:" + identifier + "@185.0.0.0",
		SK0: "Resource:" + identifier,
		Data: map[string]interface{}{
			"identifier": identifier,
			"entityDescription": map[string]interface{}{
				"contributors": []interface{}{
					map[string]interface{}{
						"affiliations": []interface{}{
							map[string]interface{}{"id": "https://api.nva.unit.no/cristin/organization/185.90.0.0"},
						},
					},
				},
			},
		},
	}
}

func TestUpdatePublicationsRewritesAffiliations(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, report.WriteJSON(filename, MigrationReport{Contributors: []string{"pub-1"}}))

	store := &fakeResourceStore{resources: map[string]*publications.Resource{
		"pub-1": contributorResource("pub-1"),
	}}

	var out bytes.Buffer
	service := NewWithOutput(&fakeSearcher{}, store, &out)
	result, err := service.UpdatePublications(context.Background(), filename, "185.90.0.0", "185.91.0.0")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Updated)
	assert.Empty(t, result.Failed)
	require.Len(t, store.updated, 1)

	affiliation := store.updated[0].Data["entityDescription"].(map[string]interface{})["contributors"].([]interface{})[0].(map[string]interface{})["affiliations"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "https://api.nva.unit.no/cristin/organization/185.91.0.0", affiliation["id"])
	assert.Contains(t, out.String(), "Updating pub-1...")
}

func TestUpdatePublicationsSurfacesPerItemFailures(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, report.WriteJSON(filename, MigrationReport{
		Contributors: []string{"bad", "pub-1"},
	}))

	store := &fakeResourceStore{
		failOn: "bad",
		resources: map[string]*publications.Resource{
			"pub-1": contributorResource("pub-1"),
		},
	}

	service := NewWithOutput(&fakeSearcher{}, store, &bytes.Buffer{})
	result, err := service.UpdatePublications(context.Background(), filename, "185.90.0.0", "185.91.0.0")
	require.Error(t, err)

	assert.Equal(t, []string{"bad"}, result.Failed)
	assert.Equal(t, 1, result.Updated, "failure does not stop the run")
}

func TestUpdatePublicationsMissingReport(t *testing.T) {
	service := NewWithOutput(&fakeSearcher{}, &fakeResourceStore{}, &bytes.Buffer{})
	_, err := service.UpdatePublications(context.Background(), "does-not-exist.json", "a", "b")
	assert.Error(t, err)
}
