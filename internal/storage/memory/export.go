package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vajra-sim/vajra/pkg/core"
)

// ResultsExport is the root JSON structure of an export file.
type ResultsExport struct {
	ExportedAt time.Time           `json:"exportedAt"`
	Summary    ExportSummary       `json:"summary"`
	Results    []core.ResultRecord `json:"results"`
}

// ExportSummary aggregates every exported run.
type ExportSummary struct {
	Runs                 int            `json:"runs"`
	TotalNeutralizations int            `json:"totalNeutralizations"`
	TotalFriendlyLosses  int            `json:"totalFriendlyLosses"`
	TotalAssetsSaved     int            `json:"totalAssetsSaved"`
	MeanInterceptTime    float64        `json:"meanInterceptTime"`
	ByScenario           map[string]int `json:"byScenario"`
}

// exportJSON writes the records to a JSON file, gzipped when configured.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	timestamp := export.ExportedAt.Format("20060102_150405")
	filename := fmt.Sprintf("vajra_results_%s.json", timestamp)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() ResultsExport {
	export := ResultsExport{
		ExportedAt: b.now(),
		Results:    append([]core.ResultRecord(nil), b.records...),
		Summary: ExportSummary{
			Runs:       len(b.records),
			ByScenario: make(map[string]int),
		},
	}

	// Mean over runs that intercepted at least once.
	var interceptSum float64
	var interceptRuns int
	for _, r := range b.records {
		export.Summary.TotalNeutralizations += r.Neutralizations
		export.Summary.TotalFriendlyLosses += r.FriendlyLosses
		export.Summary.TotalAssetsSaved += r.AssetsSaved
		export.Summary.ByScenario[r.ScenarioID]++
		if r.AvgInterceptTime > 0 {
			interceptSum += r.AvgInterceptTime
			interceptRuns++
		}
	}
	if interceptRuns > 0 {
		export.Summary.MeanInterceptTime = interceptSum / float64(interceptRuns)
	}

	return export
}

func writeJSON(path string, data ResultsExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data ResultsExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}
