package db

import (
	"context"
	"errors"
	"testing"
)

func TestRunChecks_AllHealthy(t *testing.T) {
	report := RunChecks(context.Background(), []Check{
		{Name: "postgres", Probe: func(context.Context) error { return nil }},
		{Name: "redis", Probe: func(context.Context) error { return nil }},
	})
	if report.Status != "healthy" {
		t.Errorf("expected healthy, got %s", report.Status)
	}
	if report.Checks["redis"] != "ok" {
		t.Errorf("expected redis ok, got %q", report.Checks["redis"])
	}
}

func TestRunChecks_OneFailing(t *testing.T) {
	report := RunChecks(context.Background(), []Check{
		{Name: "postgres", Probe: func(context.Context) error { return nil }},
		{Name: "amqp", Probe: func(context.Context) error { return errors.New("connection refused") }},
	})
	if report.Status != "unhealthy" {
		t.Errorf("expected unhealthy, got %s", report.Status)
	}
	if report.Checks["amqp"] != "connection refused" {
		t.Errorf("expected error text, got %q", report.Checks["amqp"])
	}
	if report.Checks["postgres"] != "ok" {
		t.Errorf("expected postgres ok, got %q", report.Checks["postgres"])
	}
}
