package metrics

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Pipeline label values.
const (
	PipelineDelay     = "delay"
	PipelineSummarize = "summarize"
)

const labelPipeline = "pipeline"

// Recorder collects the gauges of a single run.
type Recorder struct {
	pipeline string
	start    time.Time
	now      func() time.Time

	reg          *prometheus.Registry
	rowsRead     *prometheus.GaugeVec
	records      *prometheus.GaugeVec
	cacheHit     *prometheus.GaugeVec
	distDays     *prometheus.GaugeVec
	summaryDates *prometheus.GaugeVec
	duration     *prometheus.GaugeVec
	lastRun      *prometheus.GaugeVec
}

// New returns a Recorder for pipeline whose run starts now.
func New(pipeline string) *Recorder {
	return newRecorder(pipeline, time.Now)
}

func newRecorder(pipeline string, now func() time.Time) *Recorder {
	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "rtlive",
			Name:      name,
			Help:      help,
		}, []string{labelPipeline})
	}
	r := &Recorder{
		pipeline:     pipeline,
		start:        now(),
		now:          now,
		reg:          prometheus.NewRegistry(),
		rowsRead:     gauge("linelist_rows_read", "Raw line-list rows read from the dataset."),
		records:      gauge("linelist_records", "Line-list records remaining after cleaning and censoring."),
		cacheHit:     gauge("delay_cache_hit", "1 if the delay distribution was served from cache."),
		distDays:     gauge("delay_distribution_days", "Length of the delay distribution in days."),
		summaryDates: gauge("summary_dates", "Dates in the inference summary."),
		duration:     gauge("run_duration_seconds", "Wall time of the last run."),
		lastRun:      gauge("last_run_timestamp_seconds", "Unix time the last run finished."),
	}
	r.reg.MustRegister(r.rowsRead, r.records, r.cacheHit, r.distDays, r.summaryDates, r.duration, r.lastRun)
	return r
}

// LineList records the raw and retained line-list sizes.
func (r *Recorder) LineList(rowsRead, records int) {
	r.rowsRead.WithLabelValues(r.pipeline).Set(float64(rowsRead))
	r.records.WithLabelValues(r.pipeline).Set(float64(records))
}

// Delay records where the distribution came from and its length.
func (r *Recorder) Delay(cacheHit bool, days int) {
	hit := 0.0
	if cacheHit {
		hit = 1
	}
	r.cacheHit.WithLabelValues(r.pipeline).Set(hit)
	r.distDays.WithLabelValues(r.pipeline).Set(float64(days))
}

// Summary records the number of summarized dates.
func (r *Recorder) Summary(dates int) {
	r.summaryDates.WithLabelValues(r.pipeline).Set(float64(dates))
}

// Write stamps the run duration and finish time and writes the textfile at
// path atomically. Series of other pipelines already in the file are kept.
func (r *Recorder) Write(path string) error {
	end := r.now()
	r.duration.WithLabelValues(r.pipeline).Set(end.Sub(r.start).Seconds())
	r.lastRun.WithLabelValues(r.pipeline).Set(float64(end.UnixNano()) / 1e9)

	prev, err := ReadTextfile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("metrics: ignoring unreadable textfile", "path", path, "err", err)
	}
	others := withoutPipeline(prev, r.pipeline)

	if len(others) > 0 {
		g := prometheus.Gatherers{r.reg, prometheus.GathererFunc(func() ([]*dto.MetricFamily, error) {
			return others, nil
		})}
		err := prometheus.WriteToTextfile(path, g)
		if err == nil {
			return nil
		}
		slog.Warn("metrics: cannot merge previous textfile, overwriting", "path", path, "err", err)
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("metrics: write textfile: %w", err)
	}
	return nil
}

// ReadTextfile parses the Prometheus text exposition at path.
func ReadTextfile(path string) (map[string]*dto.MetricFamily, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseMetrics(f)
}

// parseMetrics decodes a Prometheus text exposition from r into metric families.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil {
		return nil, fmt.Errorf("metrics: parse textfile: %w", err)
	}
	return mfs, nil
}

// Value returns the gauge value of mf for pipeline. ok is false when mf is
// nil or has no series for pipeline.
func Value(mf *dto.MetricFamily, pipeline string) (v float64, ok bool) {
	if mf == nil {
		return 0, false
	}
	for _, m := range mf.GetMetric() {
		if pipelineOf(m) != pipeline {
			continue
		}
		switch {
		case m.Gauge != nil:
			return m.Gauge.GetValue(), true
		case m.Untyped != nil:
			return m.Untyped.GetValue(), true
		}
	}
	return 0, false
}

func pipelineOf(m *dto.Metric) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == labelPipeline {
			return lp.GetValue()
		}
	}
	return ""
}

// withoutPipeline returns the families in mfs with the series of pipeline
// removed. Families left without series are dropped.
func withoutPipeline(mfs map[string]*dto.MetricFamily, pipeline string) []*dto.MetricFamily {
	var out []*dto.MetricFamily
	for _, mf := range mfs {
		var keep []*dto.Metric
		for _, m := range mf.GetMetric() {
			if pipelineOf(m) != pipeline {
				keep = append(keep, m)
			}
		}
		if len(keep) == 0 {
			continue
		}
		out = append(out, &dto.MetricFamily{
			Name:   mf.Name,
			Help:   mf.Help,
			Type:   mf.Type,
			Metric: keep,
		})
	}
	return out
}
