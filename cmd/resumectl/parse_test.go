package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"alfredoptarigan/resume-ingest/internal/models"
	"alfredoptarigan/resume-ingest/internal/services"
)

func TestReadDocuments(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "jane.txt")
	odd := filepath.Join(dir, "notes.odt")
	os.WriteFile(txt, []byte("Jane Doe"), 0o644)
	os.WriteFile(odd, []byte("x"), 0o644)

	docs, err := readDocuments([]string{txt, odd}, "")
	if err != nil {
		t.Fatal(err)
	}
	if docs[0].MediaType != models.MediaTypeText || docs[0].FileName != "jane.txt" {
		t.Errorf("docs[0] = %s %s", docs[0].FileName, docs[0].MediaType)
	}
	if docs[1].MediaType != models.MediaTypeOctet {
		t.Errorf("docs[1] media type = %s", docs[1].MediaType)
	}

	forced, err := readDocuments([]string{odd}, models.MediaTypePDF)
	if err != nil {
		t.Fatal(err)
	}
	if forced[0].MediaType != models.MediaTypePDF {
		t.Errorf("forced media type = %s", forced[0].MediaType)
	}

	if _, err := readDocuments([]string{filepath.Join(dir, "missing.pdf")}, ""); err == nil {
		t.Error("want error for missing file")
	}
}

func TestToFileResultsAndPrint(t *testing.T) {
	ok := services.BatchResult{
		Job: services.BatchJob{ID: 0, Doc: models.NewUploadedDocument([]byte("x"), models.MediaTypeText, "a.txt")},
		Result: &services.ParseResult{
			RequestID: "req-1",
			Adapter:   services.AdapterText,
			Candidate: &models.ParsedCandidate{FirstName: "Jane", Source: models.SourceTextFile, Confidence: 0.76},
		},
	}
	failed := services.BatchResult{
		Job: services.BatchJob{ID: 1, Doc: models.NewUploadedDocument(nil, models.MediaTypeText, "b.txt")},
		Err: services.NewPipelineError(services.CodeParseFailed, "no usable text could be extracted", nil),
	}
	plain := services.BatchResult{
		Job: services.BatchJob{ID: 2, Doc: models.NewUploadedDocument(nil, models.MediaTypeText, "c.txt")},
		Err: errors.New("boom"),
	}

	rows := toFileResults([]services.BatchResult{ok, failed, plain})
	if rows[0].Error != nil || rows[0].RequestID != "req-1" || rows[0].Candidate.FirstName != "Jane" {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	if rows[1].Error == nil || rows[1].Error.Code != string(services.CodeParseFailed) {
		t.Errorf("rows[1] = %+v", rows[1])
	}
	if rows[2].Error == nil || rows[2].Error.Code != "" || rows[2].Error.Message != "boom" {
		t.Errorf("rows[2] = %+v", rows[2])
	}

	var out bytes.Buffer
	if err := printResults(&out, rows); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), out.String())
	}
	for i, want := range []string{"ok", "PARSE_FAILED", "error"} {
		if fields := strings.Fields(lines[i+1]); fields[1] != want {
			t.Errorf("line %d status = %q, want %q", i+1, fields[1], want)
		}
	}
}

func TestRunParseJSONOutputIsClean(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cv.txt")
	os.WriteFile(path, []byte("Jane Doe\njane.doe@example.com\n+44 7700 900123\nSenior Policy Manager\nMinistry of Example"), 0o644)

	t.Setenv("SPOOL_PATH", dir)
	viper.Set("output-json", true)
	viper.Set("concurrency", 1)
	t.Cleanup(func() {
		viper.Set("output-json", false)
		viper.Set("concurrency", 2)
	})

	// Capture the process stdout, which is where a stray log line would land.
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	stdout := os.Stdout
	os.Stdout = w
	captured := make(chan []byte)
	go func() {
		data, _ := io.ReadAll(r)
		captured <- data
	}()

	runErr := runParse(context.Background(), []string{path}, os.Stdout)
	os.Stdout = stdout
	w.Close()
	data := <-captured

	if runErr != nil {
		t.Fatalf("runParse: %v", runErr)
	}
	var rows []fileResult
	if err := json.Unmarshal(data, &rows); err != nil {
		t.Fatalf("stdout is not a JSON array: %v\n%s", err, data)
	}
	if len(rows) != 1 || rows[0].File != "cv.txt" || rows[0].Candidate == nil || rows[0].Candidate.FirstName != "Jane" {
		t.Errorf("rows = %+v", rows)
	}
}
