package handler

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// PrintStats renders every counter and histogram gathered from g. Series that
// never recorded anything are left out.
func PrintStats(out io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("could not gather metrics: %w", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Metric", "Labels", "Value"})

	for _, family := range families {
		for _, metric := range family.GetMetric() {
			value, ok := metricValue(family.GetType(), metric)
			if !ok {
				continue
			}
			t.AppendRow(table.Row{family.GetName(), formatLabels(metric.GetLabel()), value})
		}
	}

	t.Render()

	return nil
}

func metricValue(kind dto.MetricType, metric *dto.Metric) (string, bool) {
	switch kind {
	case dto.MetricType_COUNTER:
		v := metric.GetCounter().GetValue()
		return fmt.Sprintf("%g", v), v > 0
	case dto.MetricType_GAUGE:
		v := metric.GetGauge().GetValue()
		return fmt.Sprintf("%g", v), v != 0
	case dto.MetricType_HISTOGRAM:
		h := metric.GetHistogram()
		if h.GetSampleCount() == 0 {
			return "", false
		}
		return fmt.Sprintf("n=%d sum=%.3f", h.GetSampleCount(), h.GetSampleSum()), true
	}

	return "", false
}

func formatLabels(labels []*dto.LabelPair) string {
	pairs := make([]string, 0, len(labels))
	for _, label := range labels {
		pairs = append(pairs, label.GetName()+"="+label.GetValue())
	}
	sort.Strings(pairs)

	return strings.Join(pairs, ",")
}
