package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunAllCollectsResults(t *testing.T) {
	registry := NewRegistry(time.Second)
	registry.Register(Check{Name: "database", Run: func(ctx context.Context) (Status, string) {
		return StatusHealthy, ""
	}})
	registry.Register(Check{Name: "model", Run: func(ctx context.Context) (Status, string) {
		return StatusDegraded, "slow responses"
	}})

	report := registry.RunAll(context.Background())
	if len(report.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(report.Results))
	}
	if report.Healthy() {
		t.Fatal("expected unhealthy report")
	}
}

func TestHealthyReport(t *testing.T) {
	registry := NewRegistry(time.Second)
	registry.Register(PingCheck("database", func(ctx context.Context) error { return nil }))
	report := registry.RunAll(context.Background())
	if !report.Healthy() {
		t.Fatal("expected healthy report")
	}
}

func TestPingCheckFailure(t *testing.T) {
	check := PingCheck("index", func(ctx context.Context) error { return errors.New("empty index") })
	status, detail := check.Run(context.Background())
	if status != StatusDown || detail != "empty index" {
		t.Fatalf("unexpected result: %s %s", status, detail)
	}
}

func TestRegisterIgnoresInvalidCheck(t *testing.T) {
	registry := NewRegistry(time.Second)
	registry.Register(Check{Name: ""})
	report := registry.RunAll(context.Background())
	if len(report.Results) != 0 {
		t.Fatalf("expected no results, got %d", len(report.Results))
	}
}
