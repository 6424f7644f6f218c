package output

import (
	"os"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/quantmind-br/jsonbundler/internal/domain"
	"github.com/quantmind-br/jsonbundler/internal/utils"
)

// ReportCollector gathers build records of a run and writes them as a
// JSON report
type ReportCollector struct {
	mu      sync.RWMutex
	builds  []domain.BuildRecord
	listing string
	path    string
	enabled bool
}

// CollectorOptions configures a ReportCollector
type CollectorOptions struct {
	// Path of the report file; an empty path disables the collector
	Path    string
	Listing string
}

// NewReportCollector creates a new collector
func NewReportCollector(opts CollectorOptions) *ReportCollector {
	return &ReportCollector{
		builds:  make([]domain.BuildRecord, 0),
		listing: opts.Listing,
		path:    opts.Path,
		enabled: opts.Path != "",
	}
}

// Add records one build
func (c *ReportCollector) Add(rec *domain.BuildRecord) {
	if !c.enabled || rec == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.builds = append(c.builds, *rec)
}

// Flush writes the report. Nothing is written when disabled or empty.
func (c *ReportCollector) Flush() error {
	if !c.enabled {
		return nil
	}

	report := c.Report()
	if report.Total == 0 {
		return nil
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	if err := utils.EnsureDir(c.path); err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0644)
}

// Report returns the collected builds ordered by environment
func (c *ReportCollector) Report() *domain.BuildReport {
	c.mu.RLock()
	defer c.mu.RUnlock()

	builds := make([]domain.BuildRecord, len(c.builds))
	copy(builds, c.builds)
	sort.SliceStable(builds, func(i, j int) bool { return builds[i].Environment < builds[j].Environment })

	failed := 0
	for i := range builds {
		if !builds[i].Succeeded() {
			failed++
		}
	}

	return &domain.BuildReport{
		GeneratedAt: time.Now(),
		Listing:     c.listing,
		Total:       len(builds),
		Failed:      failed,
		Builds:      builds,
	}
}

// Reset drops the collected builds so the next report covers one run
func (c *ReportCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.builds = c.builds[:0]
}

// Count returns the number of collected builds
func (c *ReportCollector) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.builds)
}

// IsEnabled reports whether a report path was given
func (c *ReportCollector) IsEnabled() bool {
	return c.enabled
}
