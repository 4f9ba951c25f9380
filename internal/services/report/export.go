package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/vadiminshakov/chainpnl/internal/domain"
)

const exportDirPermissions = 0o755

// Exporter writes calculation results to disk.
type Exporter struct {
	l *zap.Logger
}

// NewExporter creates an exporter.
func NewExporter(l *zap.Logger) *Exporter {
	return &Exporter{l: l}
}

// ExportJSON writes all wallet results as a single JSON file in outputDir and
// returns the file path. The serialization is flat, field for field.
func (e *Exporter) ExportJSON(results []domain.WalletPNL, outputDir string) (string, error) {
	if len(results) == 0 {
		return "", fmt.Errorf("no results to export")
	}

	if err := os.MkdirAll(outputDir, exportDirPermissions); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := fmt.Sprintf("pnl_%s.json", time.Now().Format("20060102_150405"))
	outputPath := filepath.Join(outputDir, filename)

	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	e.l.Info("results exported",
		zap.String("file", outputPath),
		zap.Int("wallets", len(results)))

	return outputPath, nil
}
