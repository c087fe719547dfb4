package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"sheetinsight-backend/internal/shared/telemetry"
	"sheetinsight-backend/internal/workerproc"
)

type fakeProcessor struct {
	failFor map[string]error
	seen    []string
}

func (f *fakeProcessor) ProcessAnalysis(ctx context.Context, analysisID string) error {
	f.seen = append(f.seen, analysisID)
	return f.failFor[analysisID]
}

func quietLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := telemetry.SetOutput(&buf)
	t.Cleanup(func() { telemetry.SetOutput(prev) })
	return &buf
}

func TestConsumerReportsOnlyRetryableFailures(t *testing.T) {
	quietLogs(t)
	proc := &fakeProcessor{failFor: map[string]error{"a-2": errors.New("db timeout")}}
	c := &consumer{build: func(context.Context) (workerproc.Processor, error) { return proc, nil }}

	event := events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "m-1", Body: `{"analysisId":"a-1","requestId":"r-1","version":1}`},
		{MessageId: "m-2", Body: `{"analysisId":"a-2","requestId":"r-2","version":1}`},
		{MessageId: "m-3", Body: `not json`},
		{MessageId: "m-4", Body: `{"requestId":"r-4"}`},
	}}

	resp, err := c.handle(context.Background(), event)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(resp.BatchItemFailures) != 1 || resp.BatchItemFailures[0].ItemIdentifier != "m-2" {
		t.Fatalf("expected only m-2 redelivered, got %+v", resp.BatchItemFailures)
	}
	if len(proc.seen) != 2 {
		t.Fatalf("expected two processed analyses, got %v", proc.seen)
	}
}

func TestConsumerFailsBatchWhenBootstrapFails(t *testing.T) {
	logs := quietLogs(t)
	builds := 0
	boom := errors.New("missing DATABASE_URL")
	c := &consumer{build: func(context.Context) (workerproc.Processor, error) {
		builds++
		return nil, boom
	}}
	event := events.SQSEvent{Records: []events.SQSMessage{{MessageId: "m-1"}, {MessageId: "m-2"}}}

	for i := 0; i < 2; i++ {
		resp, err := c.handle(context.Background(), event)
		if !errors.Is(err, boom) {
			t.Fatalf("expected bootstrap error, got %v", err)
		}
		if len(resp.BatchItemFailures) != 2 {
			t.Fatalf("expected whole batch failed, got %+v", resp.BatchItemFailures)
		}
	}
	if builds != 1 {
		t.Fatalf("expected one build attempt per environment, got %d", builds)
	}
	if !bytes.Contains(logs.Bytes(), []byte("lambda.bootstrap_failed")) {
		t.Fatalf("expected bootstrap log, got %s", logs.String())
	}
}
