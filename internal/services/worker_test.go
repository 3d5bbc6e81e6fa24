package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"alfredoptarigan/resume-ingest/internal/models"
)

type countingParser struct {
	calls int32
}

func (p *countingParser) Parse(_ context.Context, doc *models.UploadedDocument) (*ParseResult, error) {
	atomic.AddInt32(&p.calls, 1)
	if doc.FileName == "bad.txt" {
		return &ParseResult{Candidate: models.ErrorCandidate(0)}, NewPipelineError(CodeParseFailed, "no text", nil)
	}
	return &ParseResult{
		RequestID: "req-" + doc.FileName,
		Candidate: &models.ParsedCandidate{FirstName: doc.FileName, Tags: []string{}},
	}, nil
}

func TestRunBatchKeepsInputOrder(t *testing.T) {
	var docs []*models.UploadedDocument
	for i := 0; i < 25; i++ {
		name := fmt.Sprintf("cv-%02d.txt", i)
		if i == 7 {
			name = "bad.txt"
		}
		docs = append(docs, models.NewUploadedDocument([]byte("x"), models.MediaTypeText, name))
	}

	parser := &countingParser{}
	results := RunBatch(context.Background(), parser, docs, 4, nil)

	if len(results) != len(docs) {
		t.Fatalf("got %d results", len(results))
	}
	if int(atomic.LoadInt32(&parser.calls)) != len(docs) {
		t.Errorf("parser calls = %d", parser.calls)
	}
	for i, r := range results {
		if r.Job.ID != i || r.Job.Doc != docs[i] {
			t.Errorf("results[%d] belongs to job %d", i, r.Job.ID)
		}
		if i == 7 {
			if CodeOf(r.Err) != CodeParseFailed {
				t.Errorf("results[7] err = %v", r.Err)
			}
			continue
		}
		if r.Err != nil || r.Result.Candidate.FirstName != docs[i].FileName {
			t.Errorf("results[%d] = %+v", i, r)
		}
	}
}

func TestWorkerStopRejectsNewJobs(t *testing.T) {
	w := NewWorker(&countingParser{}, 1, nil)
	w.Start(context.Background())
	w.Stop()

	doc := models.NewUploadedDocument([]byte("x"), models.MediaTypeText, "late.txt")
	if err := w.EnqueueJob(BatchJob{ID: 0, Doc: doc}); !errors.Is(err, ErrWorkerStopped) {
		t.Fatalf("EnqueueJob after Stop = %v", err)
	}
	if _, open := <-w.Results(); open {
		t.Error("results channel should be closed after Stop")
	}
}
