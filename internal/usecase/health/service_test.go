package health

import (
	"context"
	"errors"
	"testing"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockChecker struct {
	err error
}

func (m *mockChecker) HealthCheck(_ context.Context) error { return m.err }

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockPinger{}, &mockChecker{}, &mockChecker{})

	report := svc.Check(context.Background())

	if report.Status != Healthy {
		t.Fatalf("expected healthy status, got %q", report.Status)
	}
	for _, name := range []string{"database", "embedding", "generation"} {
		if report.Checks[name] != CheckOK {
			t.Errorf("check %q = %q, expected ok", name, report.Checks[name])
		}
	}
}

func TestCheck_DatabaseDown(t *testing.T) {
	svc := New(&mockPinger{err: errors.New("refused")}, &mockChecker{}, &mockChecker{})

	report := svc.Check(context.Background())

	if report.Status != Degraded {
		t.Fatalf("expected degraded status, got %q", report.Status)
	}
	if report.Checks["database"] != CheckError {
		t.Errorf("expected database check error, got %q", report.Checks["database"])
	}
}

func TestCheck_UpstreamDown(t *testing.T) {
	svc := New(&mockPinger{}, &mockChecker{err: errors.New("401")}, &mockChecker{})

	report := svc.Check(context.Background())

	if report.Status != Degraded {
		t.Fatalf("expected degraded status, got %q", report.Status)
	}
	if report.Checks["embedding"] != CheckError {
		t.Errorf("expected embedding check error, got %q", report.Checks["embedding"])
	}
	if report.Checks["generation"] != CheckOK {
		t.Errorf("expected generation check ok, got %q", report.Checks["generation"])
	}
}

func TestCheck_NilUpstreams(t *testing.T) {
	svc := New(&mockPinger{}, nil, nil)

	report := svc.Check(context.Background())

	if report.Status != Healthy {
		t.Fatalf("expected healthy status, got %q", report.Status)
	}
	if len(report.Checks) != 1 {
		t.Errorf("expected only the database check, got %d", len(report.Checks))
	}
}
