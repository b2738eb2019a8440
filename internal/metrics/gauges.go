package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type ServiceInfo struct {
	Name        string
	Version     string
	Environment string
}

// Gauges are sampled each time the meter collects.
type Gauges struct {
	Sessions     func() int
	Dependencies map[string]func() error
}

// RegisterGauges reports service metadata, open form sessions and the
// availability of each dependency (1=up, 0=down).
func RegisterGauges(meter metric.Meter, info ServiceInfo, g Gauges) (metric.Registration, error) {
	serviceInfo, err := meter.Int64ObservableGauge(
		"service.info",
		metric.WithDescription("Service metadata information"),
		metric.WithUnit("{info}"),
	)
	if err != nil {
		return nil, err
	}

	openSessions, err := meter.Int64ObservableGauge(
		"scholarship_portal.signup.open_sessions",
		metric.WithDescription("Number of signup form sessions held in memory"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, err
	}

	dependencyUp, err := meter.Int64ObservableGauge(
		"dependency.up",
		metric.WithDescription("Dependency availability status (1=up, 0=down)"),
		metric.WithUnit("{status}"),
	)
	if err != nil {
		return nil, err
	}

	infoAttrs := metric.WithAttributes(
		attribute.String("service_name", info.Name),
		attribute.String("version", info.Version),
		attribute.String("environment", info.Environment),
	)

	return meter.RegisterCallback(
		func(ctx context.Context, observer metric.Observer) error {
			observer.ObserveInt64(serviceInfo, 1, infoAttrs)

			if g.Sessions != nil {
				observer.ObserveInt64(openSessions, int64(g.Sessions()))
			}

			for name, check := range g.Dependencies {
				value := int64(0)
				if check() == nil {
					value = 1
				}
				observer.ObserveInt64(dependencyUp, value, metric.WithAttributes(attribute.String("dependency", name)))
			}
			return nil
		},
		serviceInfo, openSessions, dependencyUp,
	)
}
