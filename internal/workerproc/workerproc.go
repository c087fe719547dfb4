package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"sheetinsight-backend/internal/analyses"
	"sheetinsight-backend/internal/queue"
	"sheetinsight-backend/internal/shared/telemetry"
)

// ErrNoProcessor is returned when no analysis processor is wired.
var ErrNoProcessor = errors.New("analysis processor not configured")

// Processor computes one queued analysis.
type Processor interface {
	ProcessAnalysis(ctx context.Context, analysisID string) error
}

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrMissingAnalysisID indicates a message without an analysis id.
type ErrMissingAnalysisID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingAnalysisID) Error() string { return "missing analysis id" }

// ErrProcess indicates processing failed after the message was accepted.
// Only these are worth redelivering.
type ErrProcess struct {
	AnalysisID string
	RequestID  string
	Err        error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process analysis"
	}
	return "process analysis: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// Retryable reports whether a HandleMessage error should leave the message
// on the queue for another attempt.
func Retryable(err error) bool {
	var pe ErrProcess
	return errors.As(err, &pe) || errors.Is(err, ErrNoProcessor)
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if strings.TrimSpace(msg.AnalysisID) == "" {
		return msg, meta, ErrMissingAnalysisID{Meta: meta, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

// HandleMessage parses a raw queue body and processes it.
func HandleMessage(ctx context.Context, proc Processor, body string) error {
	msg, meta, err := ParseMessage(body)
	if err != nil {
		telemetry.Error("worker.message_rejected", map[string]any{
			"body_len":    meta.BodyLen,
			"body_sha256": meta.BodySHA,
			"error":       err.Error(),
		})
		return err
	}
	return Process(ctx, proc, msg)
}

// Process runs an already decoded message. It has the queue.Handler shape so
// the in-process queue can dispatch to it directly.
func Process(ctx context.Context, proc Processor, msg queue.Message) error {
	if proc == nil {
		return ErrNoProcessor
	}
	if strings.TrimSpace(msg.AnalysisID) == "" {
		return ErrMissingAnalysisID{RequestID: msg.RequestID}
	}
	ctx = analyses.WithRequestID(ctx, msg.RequestID)
	ctx = telemetry.WithContext(ctx, telemetry.FromContext(ctx).With(map[string]any{
		"analysis_id": msg.AnalysisID,
		"request_id":  msg.RequestID,
	}))
	if err := proc.ProcessAnalysis(ctx, msg.AnalysisID); err != nil {
		return ErrProcess{AnalysisID: msg.AnalysisID, RequestID: msg.RequestID, Err: err}
	}
	return nil
}

// Dispatcher adapts a Processor to queue.Handler.
func Dispatcher(proc Processor) queue.Handler {
	return func(ctx context.Context, msg queue.Message) error {
		return Process(ctx, proc, msg)
	}
}
