package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	rbslack "github.com/gosuda/releasebot/internal/messenger/slack"
)

type HealthOutput struct {
	Body struct {
		Status string `json:"status" example:"ok" doc:"Always ok while the process serves requests"`
		Mode   string `json:"mode" enum:"socket,http" doc:"Slack transport in use"`
	}
}

func registerHealthRoutes(api huma.API, mode string) {
	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/healthz",
		Summary:     "Liveness check",
		Tags:        []string{"Health"},
	}, func(_ context.Context, _ *struct{}) (*HealthOutput, error) {
		out := &HealthOutput{}
		out.Body.Status = "ok"
		out.Body.Mode = mode
		return out, nil
	})
}

func registerSlackRoutes(r chi.Router, handler *rbslack.Handler) {
	r.Post("/events", handler.HandleEvents)
	r.Post("/interactions", handler.HandleInteractions)
}
