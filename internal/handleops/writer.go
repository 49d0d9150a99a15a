// Package handleops migrates externally minted handles into NVA: a
// prepare step derives import tasks from the publications table, an
// execute step replays them against the handle API.
package handleops

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/dynamo"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/logger"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/report"
)

// SiktSourceName marks handles NVA minted itself; those never need
// importing.
const SiktSourceName = "nva@sikt"

// Task actions understood by the executor.
const (
	ActionImportHandle = "import_handle"
	ActionNone         = "nop"
)

// prepareBatchSize matches the page size the publication table
// tolerates for full-item queries.
const prepareBatchSize = 700

// Task is one unit of handle migration work.
type Task struct {
	Identifier     string `json:"identifier"`
	PublicationURI string `json:"publicationUri"`
	Handle         string `json:"handle"`
	Action         string `json:"action"`
}

// Writer derives import tasks from publication documents.
type Writer struct {
	apiDomain          string
	controlledPrefixes []string
}

// NewWriter creates a Writer. Only handles under the controlled
// prefixes are eligible for import.
func NewWriter(apiDomain string, controlledPrefixes []string) *Writer {
	return &Writer{
		apiDomain:          apiDomain,
		controlledPrefixes: controlledPrefixes,
	}
}

type publicationHandle struct {
	value      string
	sourceName string
}

func (w *Writer) isControlled(handle string) bool {
	for _, prefix := range w.controlledPrefixes {
		if strings.Contains(handle, "//hdl.handle.net/"+prefix) {
			return true
		}
	}
	return false
}

func allHandles(publication map[string]interface{}) []publicationHandle {
	var handles []publicationHandle

	if top, _ := publication["handle"].(string); top != "" {
		handles = append(handles, publicationHandle{value: top})
	}

	additional, _ := publication["additionalIdentifiers"].([]interface{})
	for _, entry := range additional {
		identifier, _ := entry.(map[string]interface{})
		if identifier["type"] != "HandleIdentifier" {
			continue
		}
		value, _ := identifier["value"].(string)
		if value == "" {
			continue
		}
		sourceName, _ := identifier["sourceName"].(string)
		handles = append(handles, publicationHandle{value: value, sourceName: sourceName})
	}
	return handles
}

// ProcessPublication returns the import tasks for one publication
// document: one task per controlled handle that was not minted by NVA
// itself.
func (w *Writer) ProcessPublication(publication map[string]interface{}) []Task {
	identifier, _ := publication["identifier"].(string)

	var tasks []Task
	for _, handle := range allHandles(publication) {
		if !w.isControlled(handle.value) || handle.sourceName == SiktSourceName {
			continue
		}
		tasks = append(tasks, Task{
			Identifier:     identifier,
			PublicationURI: w.landingPageURI(identifier),
			Handle:         handle.value,
			Action:         ActionImportHandle,
		})
	}
	return tasks
}

func (w *Writer) landingPageURI(identifier string) string {
	return fmt.Sprintf("https://%s/registration/%s", w.apiDomain, identifier)
}

// PrepareAPI is the DynamoDB surface used by Prepare.
type PrepareAPI interface {
	dynamo.ListTablesAPI
	dynamo.QueryAPI
}

// PrepareResult summarizes a prepare run.
type PrepareResult struct {
	Folder       string
	Tasks        int
	Publications int
}

// Prepare queries every publication owned by the resource owner under
// the customer and writes the derived tasks as JSONL batches into
// outputFolder.
func (w *Writer) Prepare(ctx context.Context, client PrepareAPI, customer, resourceOwner, outputFolder string) (*PrepareResult, error) {
	log := logger.New("handleops")

	tableName, err := dynamo.FindTableByPattern(ctx, client, dynamo.PublicationsTablePattern)
	if err != nil {
		return nil, err
	}

	writer, err := report.NewBatchWriter(outputFolder)
	if err != nil {
		return nil, err
	}

	partitionKey := fmt.Sprintf("Resource:%s:%s", customer, resourceOwner)
	limit := int32(prepareBatchSize)
	input := &dynamodb.QueryInput{
		TableName:              &tableName,
		KeyConditionExpression: strPtr("PK0 = :pk0"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk0": &types.AttributeValueMemberS{Value: partitionKey},
		},
		Limit: &limit,
	}

	result := &PrepareResult{Folder: outputFolder}
	_, err = dynamo.ForEachQueryBatch(ctx, client, input, func(items []dynamo.Item, _ int) error {
		var batch []interface{}
		for _, item := range items {
			publication, err := dynamo.InflateData(item)
			if err != nil {
				return err
			}
			result.Publications++
			for _, task := range w.ProcessPublication(publication) {
				batch = append(batch, task)
				result.Tasks++
			}
		}
		_, err := writer.WriteBatch(batch)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info("prepared handle tasks",
		logger.String("customer", customer),
		logger.String("owner", resourceOwner),
		logger.Int("publications", result.Publications),
		logger.Int("tasks", result.Tasks),
		logger.String("folder", outputFolder))
	return result, nil
}

// DefaultOutputFolder names the task folder after the account and
// resource owner.
func DefaultOutputFolder(accountAlias, resourceOwner string) string {
	return fmt.Sprintf("%s-resources-%s-handle-tasks", accountAlias, resourceOwner)
}

func strPtr(s string) *string { return &s }
