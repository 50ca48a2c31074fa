package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestUnaryInterceptorRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewRPCCollector(reg)
	if err != nil {
		t.Fatalf("NewRPCCollector: %v", err)
	}

	interceptor := collector.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/adalia.navigator.v1.NavigatorService/PlanRoute"}
	_, err = interceptor(context.Background(), struct{}{}, info, func(ctx context.Context, req any) (any, error) {
		time.Sleep(time.Millisecond)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("interceptor returned error: %v", err)
	}

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("NavigatorService", "PlanRoute", "OK")); got != 1 {
		t.Fatalf("navigator_rpc_requests_total = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "navigator_rpc_duration_seconds", map[string]string{
		"service": "NavigatorService",
		"method":  "PlanRoute",
	}); count != 1 {
		t.Fatalf("navigator_rpc_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestUnaryInterceptorRecordsErrorCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewRPCCollector(reg)
	if err != nil {
		t.Fatalf("NewRPCCollector: %v", err)
	}

	info := &grpc.UnaryServerInfo{FullMethod: "/adalia.navigator.v1.NavigatorService/GetPosition"}
	_, _ = collector.UnaryServerInterceptor()(context.Background(), struct{}{}, info, func(ctx context.Context, req any) (any, error) {
		return nil, status.Error(codes.NotFound, "no such body")
	})

	if got := testutil.ToFloat64(collector.RPCRequests.WithLabelValues("NavigatorService", "GetPosition", "NotFound")); got != 1 {
		t.Fatalf("navigator_rpc_requests_total NotFound = %v, want 1", got)
	}
}

func TestCollectorsReuseRegistrations(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewEngineCollector(reg)
	if err != nil {
		t.Fatalf("NewEngineCollector: %v", err)
	}
	second, err := NewEngineCollector(reg)
	if err != nil {
		t.Fatalf("second NewEngineCollector: %v", err)
	}
	first.IncNonConvergence()
	second.IncNonConvergence()
	if got := testutil.ToFloat64(first.KeplerNonConvergence); got != 2 {
		t.Fatalf("navigator_kepler_nonconvergence_total = %v, want 2", got)
	}
}

func TestIncompatibleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{
		Name: "navigator_catalog_bodies",
		Help: "Number of bodies in the loaded catalog.",
	}))
	if _, err := NewRPCCollector(reg); err == nil {
		t.Fatalf("expected error when a counter squats on the gauge name")
	}
}

func TestEngineCollectorRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewEngineCollector(reg)
	if err != nil {
		t.Fatalf("NewEngineCollector: %v", err)
	}
	c.ObservePlan("exhaustive", 3*time.Millisecond)
	c.ObservePlan("greedy", time.Millisecond)
	c.ObservePlan("exhaustive", time.Millisecond)
	c.ObserveCache(CacheHit)
	c.ObserveCache(CacheMiss)
	c.ObserveCache(CacheMiss)

	if got := testutil.ToFloat64(c.RoutePlans.WithLabelValues("exhaustive")); got != 2 {
		t.Fatalf("exhaustive plans = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.PositionCache.WithLabelValues(CacheMiss)); got != 2 {
		t.Fatalf("cache misses = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(c.RoutePlanDuration); got != 1 {
		t.Fatalf("plan duration series = %d, want 1", got)
	}

	var nilCollector *EngineCollector
	nilCollector.ObservePlan("greedy", time.Second)
	nilCollector.ObserveCache(CacheHit)
	nilCollector.IncNonConvergence()
}

func TestMetricsHandlerExposesCatalogGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewRPCCollector(reg)
	if err != nil {
		t.Fatalf("NewRPCCollector: %v", err)
	}
	if _, err := NewEngineCollector(reg); err != nil {
		t.Fatalf("NewEngineCollector: %v", err)
	}
	collector.SetCatalogBodies(250000)
	collector.RPCRequests.WithLabelValues("svc", "method", "OK").Inc()

	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"navigator_rpc_requests_total",
		"navigator_catalog_bodies 250000",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in /metrics output:\n%s", want, body)
		}
	}
}

func TestSplitMethod(t *testing.T) {
	cases := []struct {
		in, service, method string
	}{
		{"/adalia.navigator.v1.NavigatorService/GetOrbit", "NavigatorService", "GetOrbit"},
		{"/grpc.health.v1.Health/Check", "Health", "Check"},
		{"", "unknown", "unknown"},
		{"/lonely", "unknown", "unknown"},
	}
	for _, tc := range cases {
		service, method := SplitMethod(tc.in)
		if service != tc.service || method != tc.method {
			t.Fatalf("SplitMethod(%q) = (%q, %q), want (%q, %q)", tc.in, service, method, tc.service, tc.method)
		}
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	families, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
