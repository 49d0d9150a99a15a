// Package pipelines inspects CodePipeline state: which repository and
// branch each pipeline tracks and how its latest build and deploy
// went.
package pipelines

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/codepipeline"
	cptypes "github.com/aws/aws-sdk-go-v2/service/codepipeline/types"

	apperrors "github.com/BIBSYSDEV/nva-aws-cli-tools/internal/errors"
)

// CodePipelineAPI is the CodePipeline surface used by the service.
type CodePipelineAPI interface {
	ListPipelines(ctx context.Context, params *codepipeline.ListPipelinesInput, optFns ...func(*codepipeline.Options)) (*codepipeline.ListPipelinesOutput, error)
	GetPipelineState(ctx context.Context, params *codepipeline.GetPipelineStateInput, optFns ...func(*codepipeline.Options)) (*codepipeline.GetPipelineStateOutput, error)
}

// StageStatus is the latest outcome of one pipeline stage.
type StageStatus struct {
	Status     string
	LastChange time.Time
}

// StatusText renders the status for table output.
func (s StageStatus) StatusText() string {
	if s.Status == "" {
		return "Unknown"
	}
	return s.Status
}

// LastChangeText renders the change timestamp for table output.
func (s StageStatus) LastChangeText() string {
	if s.LastChange.IsZero() {
		return ""
	}
	return s.LastChange.Format("2006-01-02 15:04")
}

// PipelineDetails describes one pipeline's source and latest stage
// outcomes.
type PipelineDetails struct {
	Pipeline   string
	Repository string
	Branch     string
	Build      StageStatus
	Deploy     StageStatus
	Summary    string
}

// Service reads pipeline state for one account.
type Service struct {
	client CodePipelineAPI
}

// New creates a Service.
func New(client CodePipelineAPI) *Service {
	return &Service{client: client}
}

// PipelineDetails lists every pipeline and resolves its repository,
// branch and stage statuses from the pipeline state.
func (s *Service) PipelineDetails(ctx context.Context) ([]PipelineDetails, error) {
	var details []PipelineDetails

	input := &codepipeline.ListPipelinesInput{}
	for {
		out, err := s.client.ListPipelines(ctx, input)
		if err != nil {
			return nil, apperrors.FromAWS("codepipeline", err)
		}
		for _, pipeline := range out.Pipelines {
			name := aws.ToString(pipeline.Name)
			state, err := s.client.GetPipelineState(ctx, &codepipeline.GetPipelineStateInput{Name: &name})
			if err != nil {
				return nil, apperrors.FromAWS("codepipeline", err)
			}
			details = append(details, detailsFromState(name, state.StageStates))
		}
		if out.NextToken == nil {
			break
		}
		input.NextToken = out.NextToken
	}
	return details, nil
}

func detailsFromState(name string, stages []cptypes.StageState) PipelineDetails {
	details := PipelineDetails{
		Pipeline:   name,
		Repository: "Unknown",
		Branch:     "Unknown",
	}

	for _, stage := range stages {
		stageName := aws.ToString(stage.StageName)
		switch {
		case stageName == "Source":
			details.applySourceStage(stage)
		case strings.Contains(stageName, "Build"):
			details.Build = stageStatus(stage)
		case strings.Contains(stageName, "Deploy"):
			details.Deploy = stageStatus(stage)
		}
	}
	return details
}

func (d *PipelineDetails) applySourceStage(stage cptypes.StageState) {
	for _, action := range stage.ActionStates {
		entityURL := aws.ToString(action.EntityUrl)
		if branch := urlParameter(entityURL, "Branch="); branch != "" {
			d.Branch = branch
		}
		if repo := urlParameter(entityURL, "FullRepositoryId="); repo != "" {
			d.Repository = repo
		}
		if action.LatestExecution != nil {
			d.Summary = aws.ToString(action.LatestExecution.Summary)
		}
		break
	}
}

func stageStatus(stage cptypes.StageState) StageStatus {
	status := StageStatus{}
	if stage.LatestExecution != nil {
		status.Status = string(stage.LatestExecution.Status)
	}
	for _, action := range stage.ActionStates {
		if action.LatestExecution == nil || action.LatestExecution.LastStatusChange == nil {
			continue
		}
		if changed := *action.LatestExecution.LastStatusChange; changed.After(status.LastChange) {
			status.LastChange = changed
		}
	}
	return status
}

// urlParameter extracts the value following marker in a CodePipeline
// entityUrl query string.
func urlParameter(entityURL, marker string) string {
	idx := strings.Index(entityURL, marker)
	if idx < 0 {
		return ""
	}
	value := entityURL[idx+len(marker):]
	if amp := strings.Index(value, "&"); amp >= 0 {
		value = value[:amp]
	}
	return value
}

// SortByDeployTime orders pipelines by their last deployment, newest
// first. Pipelines without a known repository sort last.
func SortByDeployTime(details []PipelineDetails) {
	sort.SliceStable(details, func(i, j int) bool {
		return details[i].Deploy.LastChange.After(details[j].Deploy.LastChange)
	})
}
