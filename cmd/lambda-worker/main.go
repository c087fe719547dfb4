package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"sheetinsight-backend/internal/bootstrap"
	"sheetinsight-backend/internal/shared/config"
	"sheetinsight-backend/internal/shared/telemetry"
	"sheetinsight-backend/internal/workerproc"
)

type processorBuilder func(ctx context.Context) (workerproc.Processor, error)

// consumer handles SQS batches with partial batch responses enabled on the
// event source mapping.
type consumer struct {
	build   processorBuilder
	once    sync.Once
	initErr error
	proc    workerproc.Processor
}

func buildProcessor(ctx context.Context) (workerproc.Processor, error) {
	app, err := bootstrap.BuildWithOptions(ctx, config.Load(), bootstrap.Options{DisableLocalQueue: true})
	if err != nil {
		return nil, err
	}
	return app.AnalysesService, nil
}

func (c *consumer) handle(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	c.once.Do(func() {
		c.proc, c.initErr = c.build(context.WithoutCancel(ctx))
	})
	if c.initErr != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{
			"error":   c.initErr.Error(),
			"records": len(event.Records),
		})
		return events.SQSEventResponse{BatchItemFailures: failAll(event.Records)}, c.initErr
	}

	var failures []events.SQSBatchItemFailure
	for _, record := range event.Records {
		err := workerproc.HandleMessage(ctx, c.proc, record.Body)
		if err == nil {
			continue
		}
		// Unparseable bodies are acknowledged; only retryable failures go back.
		retry := workerproc.Retryable(err)
		telemetry.Error("worker.message_failed", map[string]any{
			"message_id": record.MessageId,
			"retry":      retry,
			"error":      err.Error(),
		})
		if retry {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}, nil
}

func failAll(records []events.SQSMessage) []events.SQSBatchItemFailure {
	out := make([]events.SQSBatchItemFailure, 0, len(records))
	for _, r := range records {
		out = append(out, events.SQSBatchItemFailure{ItemIdentifier: r.MessageId})
	}
	return out
}

func main() {
	c := &consumer{build: buildProcessor}
	lambda.Start(c.handle)
}
