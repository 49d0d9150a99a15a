// Package publications works with publication resources, both through
// the public REST API and directly against the registry table.
package publications

import (
	"context"
	"fmt"

	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/httpx"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/logger"
)

// APIService calls the publication REST API.
type APIService struct {
	api       *httpx.Client
	apiDomain string
	log       logger.Logger
}

// NewAPIService creates an APIService. The api client must carry
// backend credentials.
func NewAPIService(api *httpx.Client, apiDomain string) *APIService {
	return &APIService{
		api:       api,
		apiDomain: apiDomain,
		log:       logger.New("publications"),
	}
}

func (s *APIService) publicationURI(identifier string) string {
	return fmt.Sprintf("https://%s/publication/%s", s.apiDomain, identifier)
}

// Fetch retrieves a publication by identifier. doNotRedirect asks the
// API for the stored document instead of a redirect to a newer
// version.
func (s *APIService) Fetch(ctx context.Context, identifier string, doNotRedirect bool) (map[string]interface{}, error) {
	var publication map[string]interface{}
	endpoint := fmt.Sprintf("%s?doNotRedirect=%t", s.publicationURI(identifier), doNotRedirect)
	if err := s.api.GetJSON(ctx, endpoint, &publication); err != nil {
		return nil, err
	}
	return publication, nil
}

// Create registers a new publication and returns the stored document.
func (s *APIService) Create(ctx context.Context, publication map[string]interface{}) (map[string]interface{}, error) {
	var created map[string]interface{}
	endpoint := fmt.Sprintf("https://%s/publication", s.apiDomain)
	if err := s.api.DoJSON(ctx, "POST", endpoint, publication, &created); err != nil {
		return nil, err
	}
	s.log.Info("created publication", logger.Any("identifier", created["identifier"]))
	return created, nil
}

// Update replaces a publication by identifier.
func (s *APIService) Update(ctx context.Context, identifier string, publication map[string]interface{}) (map[string]interface{}, error) {
	var updated map[string]interface{}
	if err := s.api.DoJSON(ctx, "PUT", s.publicationURI(identifier), publication, &updated); err != nil {
		return nil, err
	}
	s.log.Info("updated publication", logger.String("identifier", identifier))
	return updated, nil
}

// Copy fetches a publication and registers a draft duplicate of it:
// associated artifacts are cleared and the identity fields dropped so
// the API assigns fresh ones.
func (s *APIService) Copy(ctx context.Context, identifier string) (map[string]interface{}, error) {
	original, err := s.Fetch(ctx, identifier, true)
	if err != nil {
		return nil, err
	}

	original["associatedArtifacts"] = []interface{}{}
	delete(original, "identifier")
	delete(original, "id")
	delete(original, "@context")

	return s.Create(ctx, original)
}
