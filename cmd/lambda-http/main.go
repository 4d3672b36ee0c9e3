package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"encoding/json"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"voice-resume-backend/internal/bootstrap"
	"voice-resume-backend/internal/shared/config"
)

// lambdaScratch is the only writable path in the Lambda runtime.
const lambdaScratch = "/tmp"

var (
	initOnce  sync.Once
	initErr   error
	ginLambda *ginadapter.GinLambdaV2
)

func initApp() {
	cfg := lambdaConfig(config.Load())
	app, err := bootstrap.Build(cfg)
	if err != nil {
		initErr = err
		return
	}
	app.ResumesService.TempDir = lambdaScratch
	app.TranscriptionService.TempDir = lambdaScratch
	ginLambda = ginadapter.NewV2(app.Router)
}

// lambdaConfig keeps local artifacts under /tmp; S3 is the expected store here.
func lambdaConfig(cfg config.Config) config.Config {
	if cfg.ObjectStoreType != "s3" && !strings.HasPrefix(filepath.Clean(cfg.OutputDir), lambdaScratch) {
		cfg.OutputDir = filepath.Join(lambdaScratch, "output")
	}
	return cfg
}

func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		log.Printf("bootstrap error: %v", initErr)
		body, _ := json.Marshal(map[string]string{"error": "bootstrap failed"})
		return events.APIGatewayV2HTTPResponse{
			StatusCode: 500,
			Body:       string(body),
			Headers:    map[string]string{"Content-Type": "application/json"},
		}, initErr
	}
	return ginLambda.ProxyWithContext(ctx, req)
}

func main() {
	lambda.Start(handler)
}
