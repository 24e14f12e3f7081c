package monitoring

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func fixedMonitor() *Monitor {
	m := NewMonitor()
	m.now = func() time.Time { return time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC) }
	return m
}

func TestMonitorHealth(t *testing.T) {
	tests := []struct {
		name    string
		record  func(m *Monitor)
		healthy bool
		summary string
	}{
		{
			name:    "No runs yet",
			record:  func(m *Monitor) {},
			healthy: true,
			summary: "No runs yet",
		},
		{
			name: "Successful run",
			record: func(m *Monitor) {
				m.RecordSuccess("processed 3 videos", time.Second)
			},
			healthy: true,
			summary: "✅ Last run: Mar 4 09:00 (processed 3 videos; 1 runs, 0 with partial failures)",
		},
		{
			name: "Partial failure keeps health",
			record: func(m *Monitor) {
				m.RecordPartialFailure(errors.New("lister failed"), time.Second)
				m.RecordSuccess("processed 0 videos", time.Second)
			},
			healthy: true,
			summary: "✅ Last run: Mar 4 09:00 (processed 0 videos; 1 runs, 1 with partial failures)",
		},
		{
			name: "Critical failure",
			record: func(m *Monitor) {
				m.RecordSuccess("ok", time.Second)
				m.RecordCriticalFailure(errors.New("disk full"), time.Second)
			},
			healthy: false,
			summary: "❌ Last run failed: Mar 4 09:00 (disk full; 2 runs, 0 with partial failures)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := fixedMonitor()
			tt.record(m)
			if got := m.IsHealthy(); got != tt.healthy {
				t.Errorf("IsHealthy() = %v, want %v", got, tt.healthy)
			}
			if got := m.GetStatusSummary(); got != tt.summary {
				t.Errorf("GetStatusSummary() = %q, want %q", got, tt.summary)
			}
		})
	}
}

func TestMonitorSummaryMentionsFailure(t *testing.T) {
	m := fixedMonitor()
	m.RecordCriticalFailure(errors.New("output directory missing"), 0)
	if !strings.Contains(m.GetStatusSummary(), "output directory missing") {
		t.Errorf("summary %q should carry the failure", m.GetStatusSummary())
	}
}
