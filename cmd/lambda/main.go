package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-lambda-go/lambda"

	"nutribudget"
	"nutribudget/app"
	"nutribudget/session"
)

type Params struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// Results mirrors session.SubmitResult. Busy sessions come back with Busy set instead of
// an invocation error so callers can retry.
type Results struct {
	session.SubmitResult
	Busy bool `json:"busy,omitempty"`
}

// The service is built once per execution environment; warm invocations share its sessions.
var (
	once    sync.Once
	svc     *session.Service
	initErr error
)

func service(ctx context.Context) (*session.Service, error) {
	once.Do(func() {
		cfg, err := app.LoadConfig()
		if err != nil {
			initErr = err
			return
		}
		if cfg.Capability.Provider == "mock" {
			cfg.Capability.Provider = "bedrock"
		}
		a, err := app.Build(ctx, cfg, app.Options{
			GenerationLogger: nutribudget.NewStdoutGenerationLogger(),
		})
		if err != nil {
			initErr = fmt.Errorf("failed to build service: %w", err)
			return
		}
		svc = a.Service
	})
	return svc, initErr
}

func handle(ctx context.Context, params Params) (Results, error) {
	s, err := service(ctx)
	if err != nil {
		slog.Error("SETUP: Service unavailable", "error", err)
		return Results{}, err
	}

	res, err := s.SubmitMessage(ctx, params.SessionID, params.Message)
	if errors.Is(err, nutribudget.ErrSessionBusy) {
		return Results{SubmitResult: session.SubmitResult{SessionID: params.SessionID}, Busy: true}, nil
	}
	if err != nil {
		slog.Error("RESULT: Error handling message", "error", err)
		return Results{}, err
	}
	return Results{SubmitResult: res}, nil
}

func main() {
	lambda.Start(handle)
}
