// Package lambdaops prunes old Lambda function versions and reports
// reserved concurrency across an account.
package lambdaops

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/fatih/color"

	apperrors "github.com/BIBSYSDEV/nva-aws-cli-tools/internal/errors"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/logger"
)

// LambdaAPI is the Lambda surface used by the service.
type LambdaAPI interface {
	ListFunctions(ctx context.Context, params *lambda.ListFunctionsInput, optFns ...func(*lambda.Options)) (*lambda.ListFunctionsOutput, error)
	ListVersionsByFunction(ctx context.Context, params *lambda.ListVersionsByFunctionInput, optFns ...func(*lambda.Options)) (*lambda.ListVersionsByFunctionOutput, error)
	ListAliases(ctx context.Context, params *lambda.ListAliasesInput, optFns ...func(*lambda.Options)) (*lambda.ListAliasesOutput, error)
	DeleteFunction(ctx context.Context, params *lambda.DeleteFunctionInput, optFns ...func(*lambda.Options)) (*lambda.DeleteFunctionOutput, error)
	GetFunctionConcurrency(ctx context.Context, params *lambda.GetFunctionConcurrencyInput, optFns ...func(*lambda.Options)) (*lambda.GetFunctionConcurrencyOutput, error)
}

// Service wraps the Lambda operations.
type Service struct {
	client LambdaAPI
	out    io.Writer
	log    logger.Logger
}

// New creates a Service writing progress to stdout.
func New(client LambdaAPI) *Service {
	return NewWithOutput(client, os.Stdout)
}

// NewWithOutput creates a Service writing progress to out.
func NewWithOutput(client LambdaAPI, out io.Writer) *Service {
	return &Service{
		client: client,
		out:    out,
		log:    logger.New("lambdaops"),
	}
}

// Removable reports whether a published version can be deleted: the
// function's own current version and every alias target are kept.
func Removable(version, currentVersion string, aliasVersions []string) bool {
	if version == currentVersion {
		return false
	}
	for _, aliased := range aliasVersions {
		if version == aliased {
			return false
		}
	}
	return true
}

// DeleteOldVersions walks every function in the account and deletes
// published versions no alias points to. With remove=false it only
// prints what would be removed.
func (s *Service) DeleteOldVersions(ctx context.Context, remove bool) error {
	return s.forEachFunction(ctx, func(fn lambdatypes.FunctionConfiguration) error {
		aliasVersions, err := s.aliasVersions(ctx, *fn.FunctionArn)
		if err != nil {
			return err
		}
		return s.pruneVersions(ctx, fn, aliasVersions, remove)
	})
}

func (s *Service) pruneVersions(ctx context.Context, fn lambdatypes.FunctionConfiguration, aliasVersions []string, remove bool) error {
	input := &lambda.ListVersionsByFunctionInput{FunctionName: fn.FunctionArn}
	for {
		out, err := s.client.ListVersionsByFunction(ctx, input)
		if err != nil {
			return apperrors.FromAWS("lambda", err)
		}

		for _, version := range out.Versions {
			arn := *version.FunctionArn
			if !Removable(*version.Version, *fn.Version, aliasVersions) {
				fmt.Fprintf(s.out, "  %s %s\n", color.GreenString("keep"), arn)
				continue
			}

			fmt.Fprintf(s.out, "  %s %s\n", color.RedString("prune"), arn)
			if remove {
				if _, err := s.client.DeleteFunction(ctx, &lambda.DeleteFunctionInput{FunctionName: &arn}); err != nil {
					return apperrors.FromAWS("lambda", err)
				}
				s.log.Info("deleted version", logger.String("arn", arn))
			}
		}

		if out.NextMarker == nil {
			return nil
		}
		input.Marker = out.NextMarker
	}
}

func (s *Service) aliasVersions(ctx context.Context, functionArn string) ([]string, error) {
	var versions []string
	input := &lambda.ListAliasesInput{FunctionName: &functionArn}
	for {
		out, err := s.client.ListAliases(ctx, input)
		if err != nil {
			return nil, apperrors.FromAWS("lambda", err)
		}
		for _, alias := range out.Aliases {
			if alias.FunctionVersion != nil {
				versions = append(versions, *alias.FunctionVersion)
			}
		}
		if out.NextMarker == nil {
			return versions, nil
		}
		input.Marker = out.NextMarker
	}
}

// ConcurrencyEntry is one row of the concurrency report.
type ConcurrencyEntry struct {
	FunctionName        string `json:"FunctionName"`
	ReservedConcurrency *int32 `json:"ReservedConcurrency"`
}

// ConcurrencyReport collects the reserved concurrency of every
// function.
func (s *Service) ConcurrencyReport(ctx context.Context) ([]ConcurrencyEntry, error) {
	var entries []ConcurrencyEntry
	err := s.forEachFunction(ctx, func(fn lambdatypes.FunctionConfiguration) error {
		out, err := s.client.GetFunctionConcurrency(ctx, &lambda.GetFunctionConcurrencyInput{
			FunctionName: fn.FunctionArn,
		})
		if err != nil {
			return apperrors.FromAWS("lambda", err)
		}
		entries = append(entries, ConcurrencyEntry{
			FunctionName:        *fn.FunctionName,
			ReservedConcurrency: out.ReservedConcurrentExecutions,
		})
		return nil
	})
	return entries, err
}

// WriteConcurrencyReport writes the report to {env}_lambda_concurrency.json
// in the current directory and returns the file name.
func (s *Service) WriteConcurrencyReport(ctx context.Context, env string) (string, error) {
	entries, err := s.ConcurrencyReport(ctx)
	if err != nil {
		return "", err
	}

	path := fmt.Sprintf("%s_lambda_concurrency.json", env)
	payload, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode concurrency report: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("write concurrency report %s: %w", path, err)
	}

	s.log.Info("wrote concurrency report",
		logger.String("file", path),
		logger.Int("functions", len(entries)))
	return path, nil
}

func (s *Service) forEachFunction(ctx context.Context, fn func(lambdatypes.FunctionConfiguration) error) error {
	input := &lambda.ListFunctionsInput{}
	for {
		out, err := s.client.ListFunctions(ctx, input)
		if err != nil {
			return apperrors.FromAWS("lambda", err)
		}
		for _, function := range out.Functions {
			if err := fn(function); err != nil {
				return err
			}
		}
		if out.NextMarker == nil {
			return nil
		}
		input.Marker = out.NextMarker
	}
}
