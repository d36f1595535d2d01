package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("github.com/Hryurt/dezztech-backend")

var (
	repositoryOperations metric.Int64Counter
	authFlowEvents       metric.Int64Counter
	profileEvents        metric.Int64Counter
)

func init() {
	var err error
	repositoryOperations, err = meter.Int64Counter("repository_operations_total",
		metric.WithDescription("Repository operations by entity, operation and outcome"))
	if err != nil {
		otel.Handle(err)
	}
	authFlowEvents, err = meter.Int64Counter("auth_flow_events_total",
		metric.WithDescription("Credential flow events by flow and outcome"))
	if err != nil {
		otel.Handle(err)
	}
	profileEvents, err = meter.Int64Counter("profile_events_total",
		metric.WithDescription("Authenticated profile mutations by action and outcome"))
	if err != nil {
		otel.Handle(err)
	}
}

func RecordRepositoryOperation(ctx context.Context, entity, operation, outcome string) {
	if repositoryOperations == nil {
		return
	}
	repositoryOperations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func RecordAuthEvent(ctx context.Context, flow, outcome string) {
	if authFlowEvents == nil {
		return
	}
	authFlowEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("flow", flow),
		attribute.String("outcome", outcome),
	))
}

func RecordProfileEvent(ctx context.Context, action, outcome string) {
	if profileEvents == nil {
		return
	}
	profileEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	))
}
