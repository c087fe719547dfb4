package main

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"sheetinsight-backend/internal/queue"
	"sheetinsight-backend/internal/shared/telemetry"
)

type fakeSQS struct {
	mu       sync.Mutex
	batches  [][]sqstypes.Message
	onDrain  func()
	deleted  []string
	receives []*sqs.ReceiveMessageInput
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	f.receives = append(f.receives, params)
	if len(f.batches) == 0 {
		f.mu.Unlock()
		if f.onDrain != nil {
			f.onDrain()
		}
		return nil, ctx.Err()
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	f.mu.Unlock()
	return &sqs.ReceiveMessageOutput{Messages: batch}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeProcessor struct {
	mu   sync.Mutex
	err  error
	seen []string
}

func (f *fakeProcessor) ProcessAnalysis(ctx context.Context, analysisID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, analysisID)
	return f.err
}

func quietLogs(t *testing.T) {
	t.Helper()
	prev := telemetry.SetOutput(&bytes.Buffer{})
	t.Cleanup(func() { telemetry.SetOutput(prev) })
}

func encoded(t *testing.T, msg queue.Message) *string {
	t.Helper()
	body, err := queue.EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return aws.String(string(body))
}

func TestPollerHandle(t *testing.T) {
	quietLogs(t)
	tests := []struct {
		name        string
		body        *string
		procErr     error
		wantDeleted int
		wantSeen    int
	}{
		{name: "success acks", body: encoded(t, queue.Message{AnalysisID: "a-1", RequestID: "req-1"}), wantDeleted: 1, wantSeen: 1},
		{name: "processing failure stays queued", body: encoded(t, queue.Message{AnalysisID: "a-2"}), procErr: errors.New("db down"), wantDeleted: 0, wantSeen: 1},
		{name: "invalid json dropped", body: aws.String("{bad-json"), wantDeleted: 1},
		{name: "empty body dropped", body: aws.String("  "), wantDeleted: 1},
		{name: "missing analysis id dropped", body: encoded(t, queue.Message{RequestID: "req-3"}), wantDeleted: 1},
		{name: "future schema dropped", body: aws.String(`{"analysisId":"a-4","version":9}`), wantDeleted: 1},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeSQS{}
			proc := &fakeProcessor{err: tt.procErr}
			p := &poller{client: client, queueURL: "queue", proc: proc, concurrency: 1}

			p.handle(context.Background(), sqstypes.Message{
				MessageId:     aws.String("m1"),
				ReceiptHandle: aws.String("r1"),
				Body:          tt.body,
				Attributes:    map[string]string{receiveCountAttr: "2"},
			})

			if len(client.deleted) != tt.wantDeleted {
				t.Fatalf("deleted = %d, want %d", len(client.deleted), tt.wantDeleted)
			}
			if len(proc.seen) != tt.wantSeen {
				t.Fatalf("processed = %d, want %d", len(proc.seen), tt.wantSeen)
			}
		})
	}
}

func TestPollerRunDrainsInFlightWork(t *testing.T) {
	quietLogs(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var batch []sqstypes.Message
	for _, id := range []string{"a-1", "a-2", "a-3"} {
		batch = append(batch, sqstypes.Message{
			MessageId:     aws.String("m-" + id),
			ReceiptHandle: aws.String("rh-" + id),
			Body:          encoded(t, queue.NewMessage(id, "")),
		})
	}
	client := &fakeSQS{batches: [][]sqstypes.Message{batch}, onDrain: cancel}
	proc := &fakeProcessor{}
	p := &poller{client: client, queueURL: "queue", proc: proc, visibility: 120, concurrency: 2}

	done := make(chan struct{})
	go func() {
		p.run(ctx, 5*time.Second)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("poller did not stop after cancel")
	}

	if len(client.deleted) != 3 || len(proc.seen) != 3 {
		t.Fatalf("expected 3 processed and acked, got seen=%v deleted=%v", proc.seen, client.deleted)
	}
	first := client.receives[0]
	if first.VisibilityTimeout != 120 || len(first.AttributeNames) != 1 || first.AttributeNames[0] != receiveCountAttr {
		t.Fatalf("unexpected receive input %+v", first)
	}
}

func TestReceiveCount(t *testing.T) {
	if got := receiveCount(sqstypes.Message{Attributes: map[string]string{receiveCountAttr: "3"}}); got != 3 {
		t.Fatalf("receiveCount = %d", got)
	}
	if got := receiveCount(sqstypes.Message{}); got != 0 {
		t.Fatalf("receiveCount without attributes = %d", got)
	}
}
