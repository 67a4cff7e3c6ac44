// Package registry reads and writes the typed entity records the
// governance layer tracks. CSV is the external serialization only; rows
// are validated into typed records at parse time, and malformed rows are
// reported with their row number instead of leaking through as strings.
package registry

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// WorkItemStatus is the registry lifecycle of a work item.
type WorkItemStatus string

const (
	StatusDraft  WorkItemStatus = "Draft"
	StatusFrozen WorkItemStatus = "Frozen"
	StatusDone   WorkItemStatus = "Done"
)

// WorkItemRecord is one registry row for a tactical artifact.
type WorkItemRecord struct {
	ID       string
	Title    string
	Status   WorkItemStatus
	Altitude string
	Path     string
}

// DependencyEdge records that one artifact depends on another.
type DependencyEdge struct {
	FromID string
	ToID   string
	Kind   string
}

var workItemHeader = []string{"id", "title", "status", "altitude", "path"}
var dependencyHeader = []string{"from_id", "to_id", "kind"}

// LoadWorkItems parses work item records from CSV. The header row is
// required and checked verbatim.
func LoadWorkItems(r io.Reader) ([]WorkItemRecord, error) {
	rows, err := readAll(r, workItemHeader)
	if err != nil {
		return nil, err
	}

	records := make([]WorkItemRecord, 0, len(rows))
	for i, row := range rows {
		rec := WorkItemRecord{
			ID:       strings.TrimSpace(row[0]),
			Title:    strings.TrimSpace(row[1]),
			Status:   WorkItemStatus(strings.TrimSpace(row[2])),
			Altitude: strings.TrimSpace(row[3]),
			Path:     strings.TrimSpace(row[4]),
		}
		if err := rec.validate(); err != nil {
			return nil, fmt.Errorf("registry: row %d: %w", i+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (rec WorkItemRecord) validate() error {
	if rec.ID == "" {
		return fmt.Errorf("missing id")
	}
	if rec.Title == "" {
		return fmt.Errorf("missing title for %s", rec.ID)
	}
	switch rec.Status {
	case StatusDraft, StatusFrozen, StatusDone:
	default:
		return fmt.Errorf("invalid status %q for %s", rec.Status, rec.ID)
	}
	switch rec.Altitude {
	case "L3", "L4":
	default:
		return fmt.Errorf("invalid altitude %q for %s", rec.Altitude, rec.ID)
	}
	return nil
}

// LoadDependencies parses dependency edges from CSV.
func LoadDependencies(r io.Reader) ([]DependencyEdge, error) {
	rows, err := readAll(r, dependencyHeader)
	if err != nil {
		return nil, err
	}

	edges := make([]DependencyEdge, 0, len(rows))
	for i, row := range rows {
		edge := DependencyEdge{
			FromID: strings.TrimSpace(row[0]),
			ToID:   strings.TrimSpace(row[1]),
			Kind:   strings.TrimSpace(row[2]),
		}
		if edge.FromID == "" || edge.ToID == "" {
			return nil, fmt.Errorf("registry: row %d: missing endpoint", i+2)
		}
		if edge.FromID == edge.ToID {
			return nil, fmt.Errorf("registry: row %d: self-dependency %s", i+2, edge.FromID)
		}
		edges = append(edges, edge)
	}
	return edges, nil
}

// WriteWorkItems serializes records back to CSV with the standard header.
func WriteWorkItems(w io.Writer, records []WorkItemRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(workItemHeader); err != nil {
		return fmt.Errorf("registry: write header: %w", err)
	}
	for _, rec := range records {
		row := []string{rec.ID, rec.Title, string(rec.Status), rec.Altitude, rec.Path}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("registry: write %s: %w", rec.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func readAll(r io.Reader, header []string) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("registry: parse CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("registry: missing header row")
	}
	for i, want := range header {
		if strings.TrimSpace(rows[0][i]) != want {
			return nil, fmt.Errorf("registry: header column %d is %q, want %q", i+1, rows[0][i], want)
		}
	}
	return rows[1:], nil
}
