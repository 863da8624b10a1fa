package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	m "github.com/mouse-blink/culprit/internal/model"
)

// ReportStore persists and retrieves run reports.
type ReportStore interface {
	// Save writes the report into dir and returns the file path.
	Save(dir string, report m.Report) (string, error)

	// Load reads a single stored report.
	Load(path string) (m.Report, error)

	// LoadLatest reads the most recently saved report under dir.
	LoadLatest(dir string) (m.Report, error)
}

const reportExt = ".yaml"

type yamlReportStore struct{}

// NewReportStore constructs the YAML-backed ReportStore.
func NewReportStore() ReportStore {
	return &yamlReportStore{}
}

// Save writes the report as a timestamped YAML file named after its run ID.
func (rs *yamlReportStore) Save(dir string, report m.Report) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create reports dir: %w", err)
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	name := fmt.Sprintf("%s-%s%s", time.Now().UTC().Format("20060102T150405"), report.RunID, reportExt)
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return path, nil
}

// Load reads one stored report.
func (rs *yamlReportStore) Load(path string) (m.Report, error) {
	// #nosec G304 - path points at the user's own reports directory
	data, err := os.ReadFile(path)
	if err != nil {
		return m.Report{}, fmt.Errorf("failed to read report: %w", err)
	}

	var report m.Report
	if err := yaml.Unmarshal(data, &report); err != nil {
		return m.Report{}, fmt.Errorf("failed to decode report %s: %w", path, err)
	}

	return report, nil
}

// LoadLatest reads the lexically newest report file under dir. The
// timestamp prefix in Save makes lexical order chronological.
func (rs *yamlReportStore) LoadLatest(dir string) (m.Report, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return m.Report{}, fmt.Errorf("failed to list reports dir: %w", err)
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == reportExt {
			names = append(names, entry.Name())
		}
	}

	if len(names) == 0 {
		return m.Report{}, fmt.Errorf("no reports found in %s", dir)
	}

	sort.Strings(names)

	return rs.Load(filepath.Join(dir, names[len(names)-1]))
}
