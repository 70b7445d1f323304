package domain

import "context"

// DatasetRecord is one labeled image of a dataset split
type DatasetRecord struct {
	Label int
	Image []byte
}

// DatasetSource yields the records of a labeled image dataset
type DatasetSource interface {
	// Splits returns the split names in export order
	Splits(ctx context.Context) ([]string, error)

	// Each calls fn for every record of split in order. Returning an error from fn stops iteration.
	Each(ctx context.Context, split string, fn func(index int, record DatasetRecord) error) error
}
