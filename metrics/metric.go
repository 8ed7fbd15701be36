package metrics

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"sync"

	vm "github.com/VictoriaMetrics/metrics"

	"github.com/safing/seedcache/config"
)

// PrometheusFormatRequirement is required format defined by prometheus for
// metric and label names.
const (
	prometheusBaseFormt         = "[a-zA-Z_][a-zA-Z0-9_]*"
	PrometheusFormatRequirement = "^" + prometheusBaseFormt + "$"
)

var (
	prometheusFormat = regexp.MustCompile(PrometheusFormatRequirement)

	registry     []Metric
	registryLock sync.RWMutex

	// ErrAlreadyRegistered is returned when a metric with the same ID is
	// registered again.
	ErrAlreadyRegistered = errors.New("metric already registered")
	// ErrInvalidID is returned when a metric ID or label does not conform
	// to the prometheus format.
	ErrInvalidID = errors.New("invalid metric ID")
)

// Metric represents one or more metrics.
type Metric interface {
	ID() string
	LabeledID() string
	Opts() *Options
	WritePrometheus(w io.Writer)
}

type metricBase struct {
	Identifier string
	Labels     map[string]string
	labeledID  string
	Options    *Options
	set        *vm.Set
}

// Options can be used to set advanced metric settings.
type Options struct {
	// Name defines an optional human readable name for the metric.
	Name string

	// InternalID specifies an alternative ID used for internal lookups.
	InternalID string

	// ExpertiseLevel defines which expertise level the metric is meant for.
	ExpertiseLevel config.ExpertiseLevel
}

func newMetricBase(id string, labels map[string]string, opts Options) (*metricBase, error) {
	// Check formats.
	if !prometheusFormat.MatchString(strings.ReplaceAll(id, "/", "_")) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	for labelName := range labels {
		if !prometheusFormat.MatchString(labelName) {
			return nil, fmt.Errorf("%w: label %q of metric %q", ErrInvalidID, labelName, id)
		}
	}

	// Add global labels.
	if globalLabels := getGlobalLabels(); len(globalLabels) > 0 {
		if labels == nil {
			labels = make(map[string]string, len(globalLabels))
		}
		for labelKey, labelValue := range globalLabels {
			if _, ok := labels[labelKey]; !ok {
				labels[labelKey] = labelValue
			}
		}
	}

	// Check options.
	if opts.InternalID == "" {
		opts.InternalID = id
	}

	// Return new metric.
	return &metricBase{
		Identifier: id,
		Labels:     labels,
		labeledID:  formatLabeledID(id, labels),
		Options:    &opts,
		set:        vm.NewSet(),
	}, nil
}

func (m *metricBase) ID() string {
	return m.Identifier
}

func (m *metricBase) LabeledID() string {
	return m.labeledID
}

func (m *metricBase) Opts() *Options {
	return m.Options
}

func (m *metricBase) WritePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
}

func formatLabeledID(id string, labels map[string]string) string {
	name := "seedcache_" + strings.ReplaceAll(id, "/", "_")
	if len(labels) == 0 {
		return name
	}

	// Sort labels for a stable ID.
	labelNames := make([]string, 0, len(labels))
	for labelName := range labels {
		labelNames = append(labelNames, labelName)
	}
	sort.Strings(labelNames)

	pairs := make([]string, 0, len(labelNames))
	for _, labelName := range labelNames {
		pairs = append(pairs, fmt.Sprintf("%s=%q", labelName, labels[labelName]))
	}
	return name + "{" + strings.Join(pairs, ",") + "}"
}

func register(m Metric) error {
	registryLock.Lock()
	defer registryLock.Unlock()

	// Check if metric ID is already registered.
	for _, registeredMetric := range registry {
		if m.LabeledID() == registeredMetric.LabeledID() {
			return fmt.Errorf("%w: %s", ErrAlreadyRegistered, m.LabeledID())
		}
		if m.Opts().InternalID == registeredMetric.Opts().InternalID {
			return fmt.Errorf("%w: internal ID %s", ErrAlreadyRegistered, m.Opts().InternalID)
		}
	}

	// Add new metric to registry and sort it.
	registry = append(registry, m)
	sort.Sort(byLabeledID(registry))

	return nil
}

// WriteMetrics writes all metrics that match the given expertiseLevel to
// the given writer.
func WriteMetrics(w io.Writer, expertiseLevel config.ExpertiseLevel) {
	registryLock.RLock()
	defer registryLock.RUnlock()

	for _, metric := range registry {
		if expertiseLevel >= metric.Opts().ExpertiseLevel {
			metric.WritePrometheus(w)
		}
	}
}

type byLabeledID []Metric

func (r byLabeledID) Len() int           { return len(r) }
func (r byLabeledID) Less(i, j int) bool { return r[i].LabeledID() < r[j].LabeledID() }
func (r byLabeledID) Swap(i, j int)      { r[i], r[j] = r[j], r[i] }
