// Package main is the API Lambda: the chi handler from internal/api behind
// API Gateway (HTTP API, payload format 2.0).
//
// Request metrics are emitted as EMF lines instead of a Prometheus
// endpoint, since there is no long-lived process to scrape.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/devstream-shilpa/Media-Platform/internal/boot"
	"github.com/devstream-shilpa/Media-Platform/internal/config"
	"github.com/devstream-shilpa/Media-Platform/internal/logging"
)

var coldStart = true

var adapter *httpadapter.HandlerAdapterV2

// setup runs once per cold start, before the first invocation.
func setup() {
	cfg, err := config.Load()
	if err != nil {
		logging.InitFromEnv()
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logging.Init(cfg.Log.Level, cfg.Log.Format)

	srv := boot.NewAPIServer(context.Background(), "api-lambda", cfg, true)
	adapter = httpadapter.NewV2(srv.Server.Handler())
	srv.Startup.CommitHash(commitHash).BuildTime(buildTime).Log()
}

func main() {
	setup()
	lambda.Start(handler)
}

func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if coldStart {
		coldStart = false
		log.Info().Str("function", "api-lambda").Msg("Cold start, first invocation")
	}
	return adapter.ProxyWithContext(ctx, req)
}
