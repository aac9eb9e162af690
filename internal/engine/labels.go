package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// LoadLabels reads an AudioSet class_labels_indices.csv file and returns the
// display names ordered by class index.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("labels: %w", err)
	}
	defer f.Close()
	labels, err := ParseLabels(f)
	if err != nil {
		return nil, fmt.Errorf("labels: %s: %w", path, err)
	}
	return labels, nil
}

// ParseLabels parses "index,mid,display_name" rows after a header line.
// Indices must be dense and start at zero.
func ParseLabels(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true

	if _, err := cr.Read(); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("missing header")
		}
		return nil, err
	}

	var labels []string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		idx, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: bad index %q", len(labels)+1, rec[0])
		}
		if idx != len(labels) {
			return nil, fmt.Errorf("row %d: index %d out of order", len(labels)+1, idx)
		}
		labels = append(labels, rec[2])
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("no labels")
	}
	return labels, nil
}
