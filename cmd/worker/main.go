package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"sheetinsight-backend/internal/bootstrap"
	"sheetinsight-backend/internal/queue"
	"sheetinsight-backend/internal/shared/config"
	"sheetinsight-backend/internal/shared/metrics"
	"sheetinsight-backend/internal/shared/telemetry"
	"sheetinsight-backend/internal/workerproc"
)

const receiveCountAttr = "ApproximateReceiveCount"

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// poller long-polls one queue and hands each message to proc with at most
// concurrency messages in flight.
type poller struct {
	client      sqsAPI
	queueURL    string
	proc        workerproc.Processor
	visibility  int32
	concurrency int
}

func main() {
	if err := run(); err != nil {
		telemetry.Error("worker.exit", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	if strings.TrimSpace(cfg.QueueURL) == "" {
		return errors.New("SQS_QUEUE_URL is required")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := queue.NewSQSAPI(ctx, cfg.AWSRegion)
	if err != nil {
		return err
	}
	app, err := bootstrap.BuildWithOptions(ctx, cfg, bootstrap.Options{DisableLocalQueue: true})
	if err != nil {
		return err
	}
	defer app.Close()

	p := &poller{
		client:      client,
		queueURL:    cfg.QueueURL,
		proc:        app.AnalysesService,
		visibility:  int32(envSeconds("SQS_VISIBILITY_TIMEOUT_SECONDS", 300)),
		concurrency: max(1, cfg.WorkerConcurrency),
	}
	p.run(ctx, time.Duration(envSeconds("SHUTDOWN_TIMEOUT_SECONDS", 30))*time.Second)
	return nil
}

// run polls until ctx is cancelled, then waits up to drain for in-flight
// messages. Messages still running after that reappear once their
// visibility timeout lapses.
func (p *poller) run(ctx context.Context, drain time.Duration) {
	telemetry.Info("worker.started", map[string]any{
		"queue_url":          p.queueURL,
		"concurrency":        p.concurrency,
		"visibility_seconds": p.visibility,
	})
	slots := make(chan struct{}, p.concurrency)
	var inFlight sync.WaitGroup

	for ctx.Err() == nil {
		out, err := p.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(p.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   p.visibility,
			AttributeNames:      []sqstypes.QueueAttributeName{receiveCountAttr},
		})
		if err != nil {
			if ctx.Err() == nil {
				telemetry.Error("worker.receive_failed", map[string]any{"error": err.Error()})
			}
			continue
		}
		for _, msg := range out.Messages {
			select {
			case <-ctx.Done():
			case slots <- struct{}{}:
				metrics.IncJobsReceived()
				inFlight.Add(1)
				go func(m sqstypes.Message) {
					defer inFlight.Done()
					defer func() { <-slots }()
					p.handle(context.WithoutCancel(ctx), m)
				}(msg)
			}
		}
	}

	telemetry.Info("worker.draining", map[string]any{"timeout": drain.String()})
	done := make(chan struct{})
	go func() {
		inFlight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(drain):
		telemetry.Error("worker.drain_timeout", map[string]any{"timeout": drain.String()})
	}
}

// handle processes one message. Bad payloads and permanent failures are
// deleted; retryable failures stay queued until the visibility timeout.
func (p *poller) handle(ctx context.Context, msg sqstypes.Message) {
	decoded, meta, err := workerproc.ParseMessage(aws.ToString(msg.Body))
	log := telemetry.FromContext(ctx).With(map[string]any{
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
		"analysis_id":    decoded.AnalysisID,
		"request_id":     decoded.RequestID,
	})
	if err != nil {
		log.Error("worker.message_rejected", map[string]any{
			"error":       err.Error(),
			"body_len":    meta.BodyLen,
			"body_sha256": meta.BodySHA,
		})
		if p.ack(ctx, log, msg) {
			metrics.IncJobsDropped()
		}
		return
	}

	log.Info("worker.received", nil)
	err = workerproc.Process(telemetry.WithContext(ctx, log), p.proc, decoded)
	switch {
	case err == nil:
		if p.ack(ctx, log, msg) {
			log.Info("worker.completed", nil)
			metrics.IncJobsCompleted()
		}
	case workerproc.Retryable(err):
		log.Error("worker.failed", map[string]any{"error": err.Error()})
		metrics.IncJobsFailed()
	default:
		log.Error("worker.message_rejected", map[string]any{"error": err.Error()})
		if p.ack(ctx, log, msg) {
			metrics.IncJobsDropped()
		}
	}
}

func (p *poller) ack(ctx context.Context, log telemetry.Logger, msg sqstypes.Message) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		log.Error("worker.delete_failed", map[string]any{"error": "missing receipt handle"})
		return false
	}
	_, err := p.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(p.queueURL),
		ReceiptHandle: aws.String(receipt),
	})
	if err != nil {
		log.Error("worker.delete_failed", map[string]any{"error": err.Error()})
		return false
	}
	return true
}

func receiveCount(msg sqstypes.Message) int {
	n, _ := strconv.Atoi(msg.Attributes[receiveCountAttr])
	return n
}

func envSeconds(key string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
