package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc/codes"
)

// scenarioMethod — псевдо-метод, под которым учитывается сценарий целиком.
const scenarioMethod = "scenario"

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type methodReport struct {
	Calls     int64            `json:"calls"`
	Success   int64            `json:"success"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Codes     map[string]int64 `json:"codes"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type report struct {
	StartedAt         time.Time               `json:"started_at"`
	DurationSeconds   float64                 `json:"duration_seconds"`
	TotalScenarios    int64                   `json:"total_scenarios"`
	SuccessScenarios  int64                   `json:"success_scenarios"`
	FailedScenarios   int64                   `json:"failed_scenarios"`
	ErrorRate         float64                 `json:"error_rate"`
	RPS               float64                 `json:"rps"`
	RevenueCents      int64                   `json:"revenue_cents"`
	ScenarioLatencyMs latencySummary          `json:"scenario_latency_ms"`
	Methods           map[string]methodReport `json:"methods"`
}

// collector считает вызовы и выручку в собственном prometheus.Registry,
// а сырые задержки держит отдельно: перцентили в отчёте точные.
type collector struct {
	registry *prometheus.Registry
	calls    *prometheus.CounterVec
	revenue  prometheus.Counter

	mu        sync.Mutex
	latencies map[string][]float64
}

func newCollector() *collector {
	c := &collector{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loadtest_calls_total",
			Help: "gRPC calls made by the load test, by method and status code.",
		}, []string{"method", "code"}),
		revenue: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loadtest_revenue_cents_total",
			Help: "Sum of sale totals created by the load test.",
		}),
		latencies: make(map[string][]float64),
	}
	c.registry.MustRegister(c.calls, c.revenue)
	return c
}

func (c *collector) record(method string, latency time.Duration, code codes.Code) {
	c.calls.WithLabelValues(method, code.String()).Inc()

	c.mu.Lock()
	c.latencies[method] = append(c.latencies[method], float64(latency.Microseconds())/1000.0)
	c.mu.Unlock()
}

func (c *collector) addRevenue(cents int64) {
	c.revenue.Add(float64(cents))
}

func (c *collector) buildReport(startedAt time.Time, duration time.Duration) report {
	result := report{
		StartedAt:       startedAt.UTC(),
		DurationSeconds: duration.Seconds(),
		Methods:         make(map[string]methodReport),
	}

	families, err := c.registry.Gather()
	if err != nil {
		return result
	}
	for _, family := range families {
		switch family.GetName() {
		case "loadtest_revenue_cents_total":
			for _, m := range family.GetMetric() {
				result.RevenueCents += int64(m.GetCounter().GetValue())
			}
		case "loadtest_calls_total":
			for _, m := range family.GetMetric() {
				var method, code string
				for _, label := range m.GetLabel() {
					switch label.GetName() {
					case "method":
						method = label.GetValue()
					case "code":
						code = label.GetValue()
					}
				}
				mr := result.Methods[method]
				if mr.Codes == nil {
					mr.Codes = make(map[string]int64)
				}
				n := int64(m.GetCounter().GetValue())
				mr.Codes[code] += n
				mr.Calls += n
				if code == codes.OK.String() {
					mr.Success += n
				} else {
					mr.Failed += n
				}
				result.Methods[method] = mr
			}
		}
	}

	c.mu.Lock()
	for method, mr := range result.Methods {
		mr.ErrorRate = errorRate(mr.Failed, mr.Calls)
		mr.LatencyMs = summarize(c.latencies[method])
		result.Methods[method] = mr
	}
	c.mu.Unlock()

	if scenario, ok := result.Methods[scenarioMethod]; ok {
		result.TotalScenarios = scenario.Calls
		result.SuccessScenarios = scenario.Success
		result.FailedScenarios = scenario.Failed
		result.ErrorRate = scenario.ErrorRate
		result.ScenarioLatencyMs = scenario.LatencyMs
	}
	if duration > 0 {
		result.RPS = float64(result.TotalScenarios) / duration.Seconds()
	}
	return result
}

// writeJSONReport пишет отчёт только внутрь текущего каталога.
func writeJSONReport(path string, result report) error {
	clean := filepath.Clean(path)
	switch {
	case clean == "." || clean == string(filepath.Separator):
		return errors.New("output path must point to a file")
	case clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)):
		return fmt.Errorf("output path must be inside current directory: %s", path)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	// #nosec G306 -- отчёт не содержит секретов.
	return os.WriteFile(clean, append(data, '\n'), 0o644)
}

func printReport(w io.Writer, result report, cfg config) {
	s := result.ScenarioLatencyMs
	fmt.Fprintf(w, "Load test summary (mode=%s, %s)\n", cfg.mode, runTarget(cfg))
	fmt.Fprintf(w, "scenarios: total=%d success=%d failed=%d error_rate=%.4f\n",
		result.TotalScenarios, result.SuccessScenarios, result.FailedScenarios, result.ErrorRate)
	fmt.Fprintf(w, "throughput: %.2f scenarios/s over %.2fs, revenue %d cents\n",
		result.RPS, result.DurationSeconds, result.RevenueCents)
	fmt.Fprintf(w, "scenario latency ms: min=%.2f avg=%.2f p50=%.2f p95=%.2f p99=%.2f max=%.2f\n",
		s.Min, s.Avg, s.P50, s.P95, s.P99, s.Max)

	var methods []string
	for name := range result.Methods {
		if name != scenarioMethod {
			methods = append(methods, name)
		}
	}
	if len(methods) == 0 {
		return
	}
	sort.Strings(methods)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tCALLS\tFAILED\tERROR RATE\tP95 MS\tCODES")
	for _, name := range methods {
		m := result.Methods[name]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.4f\t%.2f\t%s\n", name, m.Calls, m.Failed, m.ErrorRate, m.LatencyMs.P95, formatCodes(m.Codes))
	}
	_ = tw.Flush()
}

func formatCodes(counts map[string]int64) string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, counts[name])
	}
	return strings.Join(parts, ",")
}

func runTarget(cfg config) string {
	switch {
	case cfg.duration <= 0:
		return fmt.Sprintf("count:%d", cfg.total)
	case cfg.totalSet:
		return fmt.Sprintf("duration:%s,max-total:%d", cfg.duration, cfg.total)
	default:
		return fmt.Sprintf("duration:%s", cfg.duration)
	}
}

func summarize(samples []float64) latencySummary {
	if len(samples) == 0 {
		return latencySummary{}
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	total := 0.0
	for _, v := range sorted {
		total += v
	}
	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: total / float64(len(sorted)),
		P50: quantile(sorted, 0.50),
		P95: quantile(sorted, 0.95),
		P99: quantile(sorted, 0.99),
	}
}

// quantile интерполирует между соседними элементами отсортированной выборки; q в [0, 1].
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	i := int(pos)
	if i >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (sorted[i+1]-sorted[i])*(pos-float64(i))
}

func errorRate(failed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(failed) / float64(total)
}
