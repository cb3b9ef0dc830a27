package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumebuilder/internal/errcode"
	"resumebuilder/internal/export"
	"resumebuilder/internal/resume"
	"resumebuilder/internal/tasks"
)

type stubResumes map[string]*resume.Resume

func (s stubResumes) GetResume(_ context.Context, id string) (*resume.Resume, error) {
	doc, ok := s[id]
	if !ok {
		return nil, fmt.Errorf("get resume %s: %w", id, errcode.ErrNotFound)
	}
	return doc, nil
}

type recordingExporter struct {
	calls []string
	opts  int
	err   error
}

func (e *recordingExporter) Export(_ context.Context, doc *resume.Resume, correlationID string, opts ...export.Option) (*export.Result, error) {
	e.calls = append(e.calls, doc.ID+"/"+correlationID)
	e.opts = len(opts)
	if e.err != nil {
		return nil, e.err
	}
	return &export.Result{ResumeID: doc.ID}, nil
}

func newTask(t *testing.T, resumeID, accountID string) *asynq.Task {
	t.Helper()
	task, err := tasks.NewResumeExportTask(resumeID, accountID, "corr-1")
	require.NoError(t, err)
	return task
}

func TestExportTaskHandler_Exports(t *testing.T) {
	exporter := &recordingExporter{}
	handler := NewExportTaskHandler(stubResumes{"r-1": resume.New("r-1", "acc-1", time.Now())}, exporter, nil)

	require.NoError(t, handler.ProcessTask(context.Background(), newTask(t, "r-1", "acc-1")))
	assert.Equal(t, []string{"r-1/corr-1"}, exporter.calls)
	assert.Equal(t, 0, exporter.opts)
}

func TestExportTaskHandler_SkipsMissingAndForeignResumes(t *testing.T) {
	exporter := &recordingExporter{}
	handler := NewExportTaskHandler(stubResumes{"r-1": resume.New("r-1", "acc-1", time.Now())}, exporter, nil)

	require.NoError(t, handler.ProcessTask(context.Background(), newTask(t, "missing", "acc-1")))
	require.NoError(t, handler.ProcessTask(context.Background(), newTask(t, "r-1", "acc-2")))
	assert.Empty(t, exporter.calls)
}

func TestExportTaskHandler_PropagatesExportFailure(t *testing.T) {
	exporter := &recordingExporter{err: errors.New("print failed")}
	handler := NewExportTaskHandler(stubResumes{"r-1": resume.New("r-1", "acc-1", time.Now())}, exporter, nil)

	err := handler.ProcessTask(context.Background(), newTask(t, "r-1", "acc-1"))
	assert.Error(t, err)
}

func TestExportTaskHandler_BadPayloadSkipsRetry(t *testing.T) {
	handler := NewExportTaskHandler(stubResumes{}, &recordingExporter{}, nil)
	err := handler.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeResumeExport, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
