package service

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("github.com/webitel/feed-relay-service/internal/service")
