package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/tallyops/invoice-ingest/constants"
	"github.com/tallyops/invoice-ingest/internal/common"
	"github.com/tallyops/invoice-ingest/internal/extract"
	"github.com/tallyops/invoice-ingest/internal/llm"
	"github.com/tallyops/invoice-ingest/internal/store"
)

type moveCall struct {
	id, from, to string
}

type fakeFileStore struct {
	files    map[string][]store.File // folder -> files
	contents map[string][]byte
	moves    []moveCall
	failMove bool
}

func (f *fakeFileStore) List(_ context.Context, folderID string) ([]store.File, error) {
	return f.files[folderID], nil
}

func (f *fakeFileStore) GetBytes(_ context.Context, id string) ([]byte, error) {
	b, ok := f.contents[id]
	if !ok {
		return nil, fmt.Errorf("no such file %s", id)
	}
	return b, nil
}

func (f *fakeFileStore) GetMetadata(_ context.Context, id string) (store.File, error) {
	return store.File{ID: id, Name: id + ".pdf", Link: "link://" + id}, nil
}

func (f *fakeFileStore) Move(_ context.Context, id, from, to string) error {
	if f.failMove {
		return errors.New("move failed")
	}
	f.moves = append(f.moves, moveCall{id: id, from: from, to: to})
	return nil
}

func (f *fakeFileStore) Create(_ context.Context, name, parent string, content []byte) (store.File, error) {
	return store.File{ID: parent + "/" + name, Name: name, Link: "link://" + parent + "/" + name}, nil
}

type appendCall struct {
	collection string
	a1Range    string
	rows       [][]any
}

type fakeRecordStore struct {
	appends      []appendCall
	created      []string
	failAppendTo string // collection id whose appends fail, "" = none
}

func (r *fakeRecordStore) AppendRows(_ context.Context, collectionID, a1Range string, rows [][]any) (int, error) {
	if r.failAppendTo != "" && collectionID == r.failAppendTo {
		return 0, errors.New("append failed")
	}
	r.appends = append(r.appends, appendCall{collection: collectionID, a1Range: a1Range, rows: rows})
	cells := 0
	for _, row := range rows {
		cells += len(row)
	}
	return cells, nil
}

func (r *fakeRecordStore) CreateCollection(_ context.Context, title, _ string) (string, error) {
	id := "col-" + title
	r.created = append(r.created, id)
	return id, nil
}

type fakeExtractor struct {
	text string
	err  error
}

func (e *fakeExtractor) Extract(context.Context, []byte) (extract.ExtractionResult, error) {
	if e.err != nil {
		return extract.ExtractionResult{}, e.err
	}
	return extract.ExtractionResult{Text: e.text, Pages: 1}, nil
}

type fakeNormalizer struct {
	text string
	err  error
}

func (n *fakeNormalizer) Complete(context.Context, string, string) (llm.NormalizerOutput, error) {
	if n.err != nil {
		return llm.NormalizerOutput{}, n.err
	}
	return llm.NormalizerOutput{
		Text:  n.text,
		Usage: llm.TokenUsage{Input: 100, Output: 20, Total: 120},
	}, nil
}

type sinkRecord struct {
	origin string
	err    error
}

type fakeSink struct {
	records []sinkRecord
}

func (s *fakeSink) Record(_ context.Context, origin string, err error) {
	s.records = append(s.records, sinkRecord{origin: origin, err: err})
}

type fakeLedger struct {
	outcomes map[string]string
}

func (l *fakeLedger) Seen(_ context.Context, itemID string) (string, bool, error) {
	o, ok := l.outcomes[itemID]
	return o, ok, nil
}

func (l *fakeLedger) Record(_ context.Context, itemID, _, outcome, _ string) error {
	if l.outcomes == nil {
		l.outcomes = map[string]string{}
	}
	if _, ok := l.outcomes[itemID]; !ok {
		l.outcomes[itemID] = outcome
	}
	return nil
}

const goodPayload = `[["01/01/2022", "Sales", "INV001", "ABC Corp", "1000", "Dr", "Product A", "10", "pcs", "100", "1000"]]`

func testConfig() Config {
	return Config{
		MasterCollectionID: "master",
		LogCollectionID:    "logbook",
		ProcessedFolderID:  "processed",
		FailedFolderID:     "failed",
		OutputFolderID:     "output",
		SourceTags:         map[string]string{"inbox": "email", "uploads": "upload"},
		Location:           time.UTC,
	}
}

func newFixture(normText string) (*Processor, *fakeFileStore, *fakeRecordStore, *fakeSink, *fakeLedger) {
	files := &fakeFileStore{contents: map[string][]byte{"item-1": []byte("%PDF")}}
	records := &fakeRecordStore{}
	sink := &fakeSink{}
	led := &fakeLedger{}
	proc := NewProcessor(testConfig(), files, records,
		&fakeExtractor{text: "Page 1: invoice text"},
		&fakeNormalizer{text: normText},
		sink, led, nil)
	return proc, files, records, sink, led
}

func TestProcessSuccessEffects(t *testing.T) {
	proc, files, records, sink, led := newFixture(goodPayload)

	rec, err := proc.Process(context.Background(), SourceItem{ID: "item-1", Name: "inv.pdf", OriginFolder: "inbox"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if rec.Outcome != OutcomeSuccess {
		t.Fatalf("expected success, got %s", rec.Outcome)
	}
	if rec.SourceTag != constants.SourceEmail {
		t.Fatalf("expected email tag, got %s", rec.SourceTag)
	}

	if len(records.created) != 1 {
		t.Fatalf("expected exactly one new collection, got %d", len(records.created))
	}
	newID := records.created[0]

	var masterAppends, successLogs int
	for _, a := range records.appends {
		if a.collection == "master" {
			masterAppends++
		}
		if a.collection == "logbook" && a.a1Range == constants.SuccessLogRange {
			successLogs++
		}
	}
	if masterAppends != 1 {
		t.Fatalf("expected exactly one master append, got %d", masterAppends)
	}
	if successLogs != 1 {
		t.Fatalf("expected exactly one success log row, got %d", successLogs)
	}

	wantMoves := []moveCall{
		{id: newID, from: "root", to: "output"},
		{id: "item-1", from: "inbox", to: "processed"},
	}
	if len(files.moves) != len(wantMoves) {
		t.Fatalf("expected %d moves, got %d: %+v", len(wantMoves), len(files.moves), files.moves)
	}
	for i, want := range wantMoves {
		if files.moves[i] != want {
			t.Fatalf("move %d: got %+v want %+v", i, files.moves[i], want)
		}
	}

	if len(sink.records) != 0 {
		t.Fatalf("unexpected sink records: %+v", sink.records)
	}
	if led.outcomes["item-1"] != string(OutcomeSuccess) {
		t.Fatalf("ledger outcome = %q", led.outcomes["item-1"])
	}
}

func TestProcessExtractionTimeoutHasNoSideEffects(t *testing.T) {
	files := &fakeFileStore{contents: map[string][]byte{"item-1": []byte("%PDF")}}
	records := &fakeRecordStore{}
	sink := &fakeSink{}
	proc := NewProcessor(testConfig(), files, records,
		&fakeExtractor{err: common.ExtractionTimeoutError("operation still pending after 5 attempts", nil)},
		&fakeNormalizer{text: goodPayload},
		sink, nil, nil)

	_, err := proc.Process(context.Background(), SourceItem{ID: "item-1", OriginFolder: "inbox"})
	if !common.HasCode(err, common.CodeExtractionTimeout) {
		t.Fatalf("expected extraction timeout, got %v", err)
	}
	if len(records.appends) != 0 || len(records.created) != 0 {
		t.Fatalf("expected no record store effects, got %+v %+v", records.appends, records.created)
	}
	if len(files.moves) != 0 {
		t.Fatalf("expected no file moves, got %+v", files.moves)
	}
}

func TestProcessNoDataSentinelFails(t *testing.T) {
	proc, files, records, sink, led := newFixture("no data")

	rec, err := proc.Process(context.Background(), SourceItem{ID: "item-1", Name: "inv.pdf", OriginFolder: "inbox"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if rec.Outcome != OutcomeFailed {
		t.Fatalf("expected failed outcome, got %s", rec.Outcome)
	}

	if len(files.moves) != 1 || files.moves[0] != (moveCall{id: "item-1", from: "inbox", to: "failed"}) {
		t.Fatalf("expected single move to failed, got %+v", files.moves)
	}

	var failureRows []appendCall
	for _, a := range records.appends {
		if a.a1Range == constants.FailureLogRange {
			failureRows = append(failureRows, a)
		}
	}
	if len(failureRows) != 1 {
		t.Fatalf("expected one failure log row, got %d", len(failureRows))
	}
	row := failureRows[0].rows[0]
	if row[4] != "no data" {
		t.Fatalf("failure log payload field = %v, want the literal sentinel", row[4])
	}

	if len(sink.records) != 0 {
		t.Fatalf("parse failure must not reach the error sink: %+v", sink.records)
	}
	if led.outcomes["item-1"] != string(OutcomeFailed) {
		t.Fatalf("ledger outcome = %q", led.outcomes["item-1"])
	}
}

func TestProcessMalformedOutputFails(t *testing.T) {
	proc, files, _, _, _ := newFixture(`[["only", "three", "fields"]]`)

	rec, err := proc.Process(context.Background(), SourceItem{ID: "item-1", OriginFolder: "inbox"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if rec.Outcome != OutcomeFailed {
		t.Fatalf("expected failed outcome, got %s", rec.Outcome)
	}
	if len(files.moves) != 1 || files.moves[0].to != "failed" {
		t.Fatalf("expected move to failed, got %+v", files.moves)
	}
}

func TestProcessUnknownFolderDefaultsToUpload(t *testing.T) {
	proc, _, _, _, _ := newFixture(goodPayload)

	rec, err := proc.Process(context.Background(), SourceItem{ID: "item-1", OriginFolder: "somewhere-else"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if rec.SourceTag != constants.SourceUpload {
		t.Fatalf("expected upload tag for unknown folder, got %s", rec.SourceTag)
	}
}

func TestProcessPersistenceErrorGoesToSinkAndLeavesFile(t *testing.T) {
	files := &fakeFileStore{contents: map[string][]byte{"item-1": []byte("%PDF")}}
	records := &fakeRecordStore{failAppendTo: "master"}
	sink := &fakeSink{}
	proc := NewProcessor(testConfig(), files, records,
		&fakeExtractor{text: "Page 1: invoice text"},
		&fakeNormalizer{text: goodPayload},
		sink, nil, nil)

	_, err := proc.Process(context.Background(), SourceItem{ID: "item-1", OriginFolder: "inbox"})
	if !common.HasCode(err, common.CodePersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if len(files.moves) != 0 {
		t.Fatalf("ambiguous failure must not move files, got %+v", files.moves)
	}
	if len(sink.records) != 1 || !strings.Contains(sink.records[0].origin, "append_master") {
		t.Fatalf("expected one sink record from the master append, got %+v", sink.records)
	}
}

func TestProcessFetchErrorSurfaces(t *testing.T) {
	files := &fakeFileStore{contents: map[string][]byte{}}
	proc := NewProcessor(testConfig(), files, &fakeRecordStore{},
		&fakeExtractor{text: "x"}, &fakeNormalizer{text: goodPayload}, nil, nil, nil)

	_, err := proc.Process(context.Background(), SourceItem{ID: "missing", OriginFolder: "inbox"})
	if !common.HasCode(err, common.CodeFetch) {
		t.Fatalf("expected fetch error, got %v", err)
	}
}
