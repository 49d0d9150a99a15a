package handleops

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/BIBSYSDEV/nva-aws-cli-tools/internal/errors"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/logger"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/report"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/retry"
)

// HandleCreator is the handle API surface the executor needs.
type HandleCreator interface {
	CreateHandle(ctx context.Context, request HandleRequest) (map[string]interface{}, error)
}

// Executor replays prepared handle tasks against the handle API,
// tracking completed work in the folder's ledger.
type Executor struct {
	ledger    *Ledger
	handles   HandleCreator
	apiDomain string
	log       logger.Logger
}

// NewExecutor creates an Executor over an open ledger.
func NewExecutor(ledger *Ledger, handles HandleCreator, apiDomain string) *Executor {
	return &Executor{
		ledger:    ledger,
		handles:   handles,
		apiDomain: apiDomain,
		log:       logger.New("handleops"),
	}
}

// ExecuteFolder runs every batch file in the folder and moves each
// finished file into the complete/ subfolder.
func (e *Executor) ExecuteFolder(ctx context.Context, folder string) error {
	files, err := report.Batches(folder)
	if err != nil {
		return err
	}

	for _, file := range files {
		tasks, err := report.ReadBatch[Task](file)
		if err != nil {
			return err
		}
		if err := e.Execute(ctx, tasks); err != nil {
			return err
		}
		if err := report.MarkComplete(file); err != nil {
			return err
		}
		e.log.Info("finished batch", logger.String("file", file), logger.Int("tasks", len(tasks)))
	}
	return nil
}

// Execute runs a batch of tasks, skipping ones already in the ledger.
func (e *Executor) Execute(ctx context.Context, tasks []Task) error {
	for _, task := range tasks {
		taskID := task.Identifier + task.Action

		done, err := e.ledger.IsDone(taskID)
		if err != nil {
			return err
		}
		if done {
			e.log.Debug("task already done, skipping", logger.String("task", taskID))
			continue
		}

		switch task.Action {
		case ActionNone:
		case ActionImportHandle:
			if err := e.importHandle(ctx, task); err != nil {
				return err
			}
		default:
			return apperrors.NewValidationError("unknown task action").
				WithDetail("action", task.Action).
				WithDetail("identifier", task.Identifier)
		}

		if err := e.ledger.MarkDone(taskID); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) importHandle(ctx context.Context, task Task) error {
	prefix, suffix, err := SplitHandle(task.Handle)
	if err != nil {
		return err
	}

	target := fmt.Sprintf("https://%s/publication/%s", e.apiDomain, task.Identifier)
	e.log.Info("creating handle",
		logger.String("handle", prefix+"/"+suffix),
		logger.String("uri", target))

	// Batch imports hit the handle registry's rate limits.
	return retry.Do(ctx, retry.RemoteAPIConfig(), func() error {
		_, err := e.handles.CreateHandle(ctx, HandleRequest{
			URI:    target,
			Prefix: prefix,
			Suffix: suffix,
		})
		return err
	})
}

// SplitHandle extracts prefix and suffix from a handle URL, the last
// two path segments.
func SplitHandle(handle string) (prefix, suffix string, err error) {
	segments := strings.Split(strings.TrimRight(handle, "/"), "/")
	if len(segments) < 2 {
		return "", "", apperrors.NewValidationError("handle has no prefix/suffix").
			WithDetail("handle", handle)
	}
	return segments[len(segments)-2], segments[len(segments)-1], nil
}
