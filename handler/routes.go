package handler

import (
	"github.com/lambda-feedback/bgstrip/internal/server"
	"go.uber.org/zap"
)

func NewLegacyRoute(handler *CommandHandler) server.HttpHandlerResult {
	return server.AsHttpHandler("/", handler)
}

func NewRemoveRoute(handler *CommandHandler) server.HttpHandlerResult {
	return server.AsHttpHandler("/remove-background", handler)
}

func NewHealthRoute(log *zap.Logger) server.HttpHandlerResult {
	return server.AsHttpHandler("GET /health", NewHealthHandler(log))
}
