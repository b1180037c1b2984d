package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestStoreMetricsExportsDurationAndErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewStoreMetrics(reg)

	metrics.ObserveCall("Payments", "list", 250*time.Millisecond, nil)
	metrics.ObserveCall("Payments", "list", 100*time.Millisecond, errors.New("boom"))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "row_store_call_errors_total", "table", "Payments"); err != nil {
		t.Fatalf("fetch errors: %v", err)
	} else if got != 1 {
		t.Fatalf("expected errors=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "row_store_call_duration_seconds", "table", "Payments"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestCacheMetricsCountsHitsAndMisses(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCacheMetrics(reg)

	metrics.Hit("payment-list")
	metrics.Hit("payment-list")
	metrics.Miss("payment-list")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "cache_hits_total", "namespace", "payment-list"); err != nil {
		t.Fatalf("fetch hits: %v", err)
	} else if got != 2 {
		t.Fatalf("expected hits=2, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "cache_misses_total", "namespace", "payment-list"); err != nil {
		t.Fatalf("fetch misses: %v", err)
	} else if got != 1 {
		t.Fatalf("expected misses=1, got %f", got)
	}
}

func TestNilRegistererIsNoOp(t *testing.T) {
	metrics := NewStoreMetrics(nil)
	metrics.ObserveCall("Payments", "list", time.Millisecond, nil)

	cacheMetrics := NewCacheMetrics(nil)
	cacheMetrics.Hit("payment-list")
	cacheMetrics.Miss("payment-list")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
