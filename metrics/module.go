package metrics

import (
	"io"
	"runtime"
	"strings"

	vm "github.com/VictoriaMetrics/metrics"

	"github.com/safing/seedcache/config"
	"github.com/safing/seedcache/info"
	"github.com/safing/seedcache/log"
	"github.com/safing/seedcache/modules"
)

var module *modules.Module

func init() {
	module = modules.Register("metrics", prep, start, nil, "config", "info")
}

func prep() error {
	return prepConfig()
}

func start() error {
	if err := registerRuntimeMetric(); err != nil {
		return err
	}

	if err := registerLogMetrics(); err != nil {
		return err
	}

	if err := registerInfoMetric(); err != nil {
		return err
	}

	if pushOption() != "" {
		module.StartServiceWorker("metric pusher", 0, metricsWriter)
	}

	return nil
}

type runtimeMetrics struct {
	*metricBase
}

func registerRuntimeMetric() error {
	runtimeBase, err := newMetricBase("_runtime", nil, Options{
		Name:           "Golang Runtime",
		ExpertiseLevel: config.ExpertiseLevelDeveloper,
	})
	if err != nil {
		return err
	}

	return register(&runtimeMetrics{
		metricBase: runtimeBase,
	})
}

func (r *runtimeMetrics) WritePrometheus(w io.Writer) {
	vm.WriteProcessMetrics(w)
}

func registerLogMetrics() (err error) {
	_, err = NewFetchingCounter(
		"logs/warning/total",
		nil,
		log.TotalWarningLogLines,
		&Options{
			Name: "Total Warning Log Lines",
		},
	)
	if err != nil {
		return err
	}

	_, err = NewFetchingCounter(
		"logs/error/total",
		nil,
		log.TotalErrorLogLines,
		&Options{
			Name: "Total Error Log Lines",
		},
	)
	if err != nil {
		return err
	}

	_, err = NewFetchingCounter(
		"logs/critical/total",
		nil,
		log.TotalCriticalLogLines,
		&Options{
			Name: "Total Critical Log Lines",
		},
	)
	if err != nil {
		return err
	}

	return nil
}

func registerInfoMetric() error {
	meta := info.GetInfo()
	_, err := NewGauge(
		"info",
		map[string]string{
			"version":     checkUnknown(meta.Version),
			"commit":      checkUnknown(meta.Commit),
			"go_os":       runtime.GOOS,
			"go_arch":     runtime.GOARCH,
			"go_version":  runtime.Version(),
			"go_compiler": runtime.Compiler,
		},
		func() float64 {
			return 1
		},
		nil,
	)
	return err
}

func checkUnknown(s string) string {
	if s == "" || strings.Contains(s, "unknown") {
		return "unknown"
	}
	return s
}
