package orgmigration

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/google/go-cmp/cmp"

	apperrors "github.com/BIBSYSDEV/nva-aws-cli-tools/internal/errors"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/logger"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/publications"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/report"
)

// Searcher collects publication identifiers matching a search query.
type Searcher interface {
	CollectIdentifiers(ctx context.Context, query url.Values) ([]string, error)
}

// Store reads and writes publication items.
type Store interface {
	FetchByIdentifier(ctx context.Context, identifier string) (*publications.Resource, error)
	UpdateData(ctx context.Context, resource *publications.Resource) error
}

// MigrationReport lists the publications touched by an organization
// change, split by how they reference it.
type MigrationReport struct {
	Contributors []string `json:"contributors"`
	Owners       []string `json:"owners"`
}

// Service drives the two-step migration.
type Service struct {
	searcher Searcher
	store    Store
	out      io.Writer
	log      logger.Logger
}

// New creates a Service writing progress to stdout.
func New(searcher Searcher, store Store) *Service {
	return NewWithOutput(searcher, store, os.Stdout)
}

// NewWithOutput creates a Service writing progress to out.
func NewWithOutput(searcher Searcher, store Store, out io.Writer) *Service {
	return &Service{
		searcher: searcher,
		store:    store,
		out:      out,
		log:      logger.New("orgmigration"),
	}
}

// ListPublications finds every publication referencing the
// organization, as contributor affiliation or as owner affiliation,
// and writes the report to filename.
func (s *Service) ListPublications(ctx context.Context, organizationIdentifier, filename string) (*MigrationReport, error) {
	contributors, err := s.searcher.CollectIdentifiers(ctx, url.Values{"unit": {organizationIdentifier}})
	if err != nil {
		return nil, err
	}
	owners, err := s.searcher.CollectIdentifiers(ctx, url.Values{"userAffiliation": {organizationIdentifier}})
	if err != nil {
		return nil, err
	}

	migrationReport := &MigrationReport{Contributors: contributors, Owners: owners}
	if filename != "" {
		if err := report.WriteJSON(filename, migrationReport); err != nil {
			return nil, err
		}
	}

	s.log.Info("listed affected publications",
		logger.String("organization", organizationIdentifier),
		logger.Int("contributors", len(contributors)),
		logger.Int("owners", len(owners)))
	return migrationReport, nil
}

// UpdateResult summarizes an update run.
type UpdateResult struct {
	Updated   int
	Unchanged int
	Failed    []string
}

// UpdatePublications replays a report, rewriting affiliations from
// the old organization identifier to the new one. Failures on single
// publications are reported and do not stop the run.
func (s *Service) UpdatePublications(ctx context.Context, reportFile, oldIdentifier, newIdentifier string) (*UpdateResult, error) {
	var migrationReport MigrationReport
	if err := report.ReadJSON(reportFile, &migrationReport); err != nil {
		return nil, err
	}

	result := &UpdateResult{}
	migrateContributors := func(doc map[string]interface{}) (map[string]interface{}, bool, error) {
		return MigrateContributorAffiliations(doc, oldIdentifier, newIdentifier)
	}
	migrateOwner := func(doc map[string]interface{}) (map[string]interface{}, bool, error) {
		return MigrateOwnerAffiliation(doc, oldIdentifier, newIdentifier)
	}

	s.updateAll(ctx, migrationReport.Contributors, migrateContributors, result)
	s.updateAll(ctx, migrationReport.Owners, migrateOwner, result)

	if len(result.Failed) > 0 {
		return result, apperrors.NewRemoteServiceError("some publications failed to update").
			WithDetail("failed", result.Failed)
	}
	return result, nil
}

func (s *Service) updateAll(ctx context.Context, identifiers []string, migrate func(map[string]interface{}) (map[string]interface{}, bool, error), result *UpdateResult) {
	for _, identifier := range identifiers {
		changed, err := s.updateOne(ctx, identifier, migrate)
		if err != nil {
			s.log.Error("failed to update publication",
				logger.String("identifier", identifier),
				logger.Error(err))
			result.Failed = append(result.Failed, identifier)
			continue
		}
		if changed {
			result.Updated++
		} else {
			result.Unchanged++
		}
	}
}

func (s *Service) updateOne(ctx context.Context, identifier string, migrate func(map[string]interface{}) (map[string]interface{}, bool, error)) (bool, error) {
	resource, err := s.store.FetchByIdentifier(ctx, identifier)
	if err != nil {
		return false, err
	}

	updated, changed, err := migrate(resource.Data)
	if err != nil {
		return false, err
	}

	fmt.Fprintf(s.out, "Updating %s...\n", identifier)
	if diff := cmp.Diff(resource.Data, updated); diff != "" {
		fmt.Fprintln(s.out, diff)
	}

	resource.Data = updated
	return changed, s.store.UpdateData(ctx, resource)
}
