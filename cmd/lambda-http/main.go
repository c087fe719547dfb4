package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"sheetinsight-backend/internal/bootstrap"
	"sheetinsight-backend/internal/shared/config"
	"sheetinsight-backend/internal/shared/server/respond"
	"sheetinsight-backend/internal/shared/telemetry"
)

type routerBuilder func(ctx context.Context) (*gin.Engine, error)

// proxy builds the router on the first invocation and reuses it for the
// lifetime of the execution environment.
type proxy struct {
	build   routerBuilder
	once    sync.Once
	initErr error
	adapter *ginadapter.GinLambdaV2
}

func buildRouter(ctx context.Context) (*gin.Engine, error) {
	cfg := config.Load()
	// Analyses are consumed by the worker Lambda through SQS_QUEUE_URL.
	app, err := bootstrap.BuildWithOptions(ctx, cfg, bootstrap.Options{DisableLocalQueue: true})
	if err != nil {
		return nil, err
	}
	return app.Router, nil
}

func (p *proxy) handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	p.once.Do(func() {
		router, err := p.build(context.WithoutCancel(ctx))
		if err != nil {
			p.initErr = err
			return
		}
		p.adapter = ginadapter.NewV2(router)
	})
	if p.initErr != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{
			"error":      p.initErr.Error(),
			"request_id": req.RequestContext.RequestID,
		})
		return bootstrapFailure(), p.initErr
	}
	return p.adapter.ProxyWithContext(ctx, req)
}

func bootstrapFailure() events.APIGatewayV2HTTPResponse {
	body, _ := json.Marshal(respond.ErrorResponse{
		Success: false,
		Message: "Service unavailable",
		Code:    respond.CodeInternal,
	})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func main() {
	p := &proxy{build: buildRouter}
	lambda.Start(p.handle)
}
