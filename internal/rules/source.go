package rules

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:generate mockgen -destination=mocks/mock_source.go -source=source.go

// Source supplies the declarative rows of each table and the rate sets.
type Source interface {
	Rows(ctx context.Context, table TableName) ([]Row, error)
	Rates(ctx context.Context) ([]RateSet, error)
}

// Document is the YAML form of a complete rule catalog.
type Document struct {
	RateSets []RateSet           `yaml:"rates"`
	Tables   map[TableName][]Row `yaml:"tables"`
}

// Rows returns the rows of one table. A table absent from the document is
// returned as empty.
func (d *Document) Rows(_ context.Context, table TableName) ([]Row, error) {
	return d.Tables[table], nil
}

// Rates returns the document's rate sets.
func (d *Document) Rates(_ context.Context) ([]RateSet, error) {
	return d.RateSets, nil
}

// LoadFile reads a rule document from a YAML file.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	return &doc, nil
}

// SaveFile writes a rule document as YAML.
func SaveFile(path string, doc *Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling rules: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing rules: %w", err)
	}
	return nil
}
