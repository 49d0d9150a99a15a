package handleops

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/BIBSYSDEV/nva-aws-cli-tools/internal/errors"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/report"
)

type fakeHandleAPI struct {
	created []HandleRequest
}

func (f *fakeHandleAPI) CreateHandle(ctx context.Context, request HandleRequest) (map[string]interface{}, error) {
	f.created = append(f.created, request)
	return map[string]interface{}{"handle": request.Prefix + "/" + request.Suffix}, nil
}

func openTestLedger(t *testing.T, folder string) *Ledger {
	t.Helper()
	ledger, err := OpenLedger(folder)
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })
	return ledger
}

func TestLedgerRoundTrip(t *testing.T) {
	ledger := openTestLedger(t, t.TempDir())

	done, err := ledger.IsDone("task-1")
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, ledger.MarkDone("task-1"))

	done, err = ledger.IsDone("task-1")
	require.NoError(t, err)
	assert.True(t, done)
}

func TestSplitHandle(t *testing.T) {
	prefix, suffix, err := SplitHandle("https://hdl.handle.net/20.500.12242/1234")
	require.NoError(t, err)
	assert.Equal(t, "20.500.12242", prefix)
	assert.Equal(t, "1234", suffix)

	_, _, err = SplitHandle("nonsense")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestExecuteCreatesHandlesAndRecordsProgress(t *testing.T) {
	folder := t.TempDir()
	ledger := openTestLedger(t, folder)
	api := &fakeHandleAPI{}

	executor := NewExecutor(ledger, api, apiDomain)
	tasks := []Task{
		{Identifier: "0190abc", Handle: "https://hdl.handle.net/20.500.12242/1234", Action: ActionImportHandle},
		{Identifier: "0190def", Handle: "https://hdl.handle.net/20.500.12242/5678", Action: ActionImportHandle},
	}

	require.NoError(t, executor.Execute(context.Background(), tasks))
	require.Len(t, api.created, 2)
	assert.Equal(t, HandleRequest{
		URI:    "https://" + apiDomain + "/publication/0190abc",
		Prefix: "20.500.12242",
		Suffix: "1234",
	}, api.created[0])

	// a second run skips everything
	require.NoError(t, executor.Execute(context.Background(), tasks))
	assert.Len(t, api.created, 2)
}

func TestExecuteRejectsUnknownAction(t *testing.T) {
	ledger := openTestLedger(t, t.TempDir())
	executor := NewExecutor(ledger, &fakeHandleAPI{}, apiDomain)

	err := executor.Execute(context.Background(), []Task{
		{Identifier: "0190abc", Action: "explode"},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestExecuteFolderMovesFinishedBatches(t *testing.T) {
	folder := t.TempDir()
	writer, err := report.NewBatchWriter(folder)
	require.NoError(t, err)
	_, err = writer.WriteBatch([]interface{}{
		Task{Identifier: "0190abc", Handle: "https://hdl.handle.net/20.500.12242/1234", Action: ActionImportHandle},
	})
	require.NoError(t, err)

	ledger := openTestLedger(t, folder)
	api := &fakeHandleAPI{}
	executor := NewExecutor(ledger, api, apiDomain)

	require.NoError(t, executor.ExecuteFolder(context.Background(), folder))
	assert.Len(t, api.created, 1)

	_, err = os.Stat(filepath.Join(folder, "complete", "batch_0.jsonl"))
	assert.NoError(t, err)
}
