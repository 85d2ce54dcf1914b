package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/wayfarerhq/wayfarer/internal/model"
)

// Parse decodes a travel dataset, a JSON array of places. IDs must be
// present and unique; a malformed dataset fails loading outright
// instead of half-populating the stores.
func Parse(r io.Reader) ([]model.Place, error) {
	var places []model.Place
	if err := json.NewDecoder(r).Decode(&places); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	seen := make(map[string]bool, len(places))
	for i := range places {
		places[i].ID = strings.TrimSpace(places[i].ID)
		places[i].Name = strings.TrimSpace(places[i].Name)
		if places[i].ID == "" {
			return nil, fmt.Errorf("dataset entry %d: id is required", i)
		}
		if places[i].Name == "" {
			return nil, fmt.Errorf("dataset entry %d (%s): name is required", i, places[i].ID)
		}
		if seen[places[i].ID] {
			return nil, fmt.Errorf("dataset entry %d: duplicate id %s", i, places[i].ID)
		}
		seen[places[i].ID] = true
	}
	return places, nil
}

// Fetch opens the source and decodes the full dataset.
func Fetch(ctx context.Context, src Source) ([]model.Place, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return Parse(rc)
}

// EmbedText is the canonical text embedded for a place. Retrieval
// composes its own display text per hit; this string feeds the vector
// only.
func EmbedText(p model.Place) string {
	var sb strings.Builder
	sb.WriteString(p.Name)
	if p.Kind != "" {
		fmt.Fprintf(&sb, " (%s)", p.Kind)
	}
	if loc := p.Location(); loc != "" {
		fmt.Fprintf(&sb, " in %s", loc)
	}
	if len(p.Tags) > 0 {
		sb.WriteString(". Tags: ")
		sb.WriteString(strings.Join(p.Tags, ", "))
	}
	if p.Description != "" {
		sb.WriteString(". ")
		sb.WriteString(p.Description)
	}
	return sb.String()
}
