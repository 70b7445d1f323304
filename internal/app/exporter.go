package app

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "golang.org/x/image/webp"

	"github.com/yourusername/gdl-bridge/internal/domain"
	"github.com/yourusername/gdl-bridge/internal/metrics"
)

const progressLogEvery = 100

// ExportResult counts the images written per split
type ExportResult struct {
	Splits map[string]int `json:"splits"`
	Total  int            `json:"total"`
}

// DatasetExporter writes every record of a labeled image dataset as
// {label}_{index}.jpg into a flat output directory.
type DatasetExporter struct {
	source     domain.DatasetSource
	labelNames []string
	quality    int
	logger     *zap.Logger
}

// NewDatasetExporter creates an exporter. labelNames maps numeric labels to names.
func NewDatasetExporter(source domain.DatasetSource, labelNames []string, quality int, log *zap.Logger) *DatasetExporter {
	if quality < 1 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DatasetExporter{
		source:     source,
		labelNames: labelNames,
		quality:    quality,
		logger:     log,
	}
}

// Export writes all splits to outputDir, creating it if needed. Indexes
// restart at zero in every split, so a later split overwrites files with
// the same label and index.
func (e *DatasetExporter) Export(ctx context.Context, outputDir string) (*ExportResult, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	splits, err := e.source.Splits(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list splits: %w", err)
	}

	result := &ExportResult{Splits: make(map[string]int)}
	for _, split := range splits {
		e.logger.Info("Exporting split", zap.String("split", split))

		count := 0
		err := e.source.Each(ctx, split, func(index int, record domain.DatasetRecord) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := e.writeImage(outputDir, index, record); err != nil {
				return err
			}
			count++
			metrics.DatasetImagesTotal.WithLabelValues(split).Inc()
			if count%progressLogEvery == 0 {
				e.logger.Info("Processed images",
					zap.String("split", split),
					zap.Int("count", count))
			}
			return nil
		})
		result.Splits[split] = count
		result.Total += count
		if err != nil {
			return result, fmt.Errorf("failed to export split %s: %w", split, err)
		}
	}

	e.logger.Info("All images saved",
		zap.String("output_dir", outputDir),
		zap.Int("total", result.Total))
	return result, nil
}

// LabelName returns the name for a numeric label
func (e *DatasetExporter) LabelName(label int) string {
	if label >= 0 && label < len(e.labelNames) {
		return e.labelNames[label]
	}
	return fmt.Sprintf("label%d", label)
}

func (e *DatasetExporter) writeImage(outputDir string, index int, record domain.DatasetRecord) error {
	img, _, err := image.Decode(bytes.NewReader(record.Image))
	if err != nil {
		return fmt.Errorf("failed to decode image %d: %w", index, err)
	}

	name := fmt.Sprintf("%s_%d.jpg", e.LabelName(record.Label), index)
	f, err := os.Create(filepath.Join(outputDir, name))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}

	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: e.quality}); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return f.Close()
}
