// Package collections implements the Custom-Collection Engine (C14):
// list-sourced and filter-sourced collection refresh plus the
// auto-subscribe task.
package collections

import (
	"fmt"
	"strings"

	"github.com/hbq0405/emby-actor-processor/internal/database"
)

// ListDefinition is the DefinitionJSON shape for a CollectionList-kind row.
type ListDefinition struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
	ListID   string `json:"list_id"`
	ItemType string `json:"item_type"` // Movie or Series
}

// FilterDefinition is the DefinitionJSON shape for a CollectionFilter-kind row.
type FilterDefinition struct {
	Name      string    `json:"name"`
	ItemType  string    `json:"item_type"`
	Predicate Predicate `json:"predicate"`
}

// Predicate is one node of a boolean predicate tree over MediaMetadata.
// Exactly one of All/Any/Not/Field should be set per node.
type Predicate struct {
	All   []Predicate `json:"all,omitempty"`
	Any   []Predicate `json:"any,omitempty"`
	Not   *Predicate  `json:"not,omitempty"`
	Field string      `json:"field,omitempty"`
	Value string      `json:"value,omitempty"`
}

// Match evaluates the predicate tree against one media item. Supported
// leaf fields: genre, actor, director, studio, country, year_gte,
// year_lte, rating_gte, rating_lte.
func (p Predicate) Match(m database.MediaMetadata) bool {
	if len(p.All) > 0 {
		for _, child := range p.All {
			if !child.Match(m) {
				return false
			}
		}
		return true
	}
	if len(p.Any) > 0 {
		for _, child := range p.Any {
			if child.Match(m) {
				return true
			}
		}
		return false
	}
	if p.Not != nil {
		return !p.Not.Match(m)
	}
	return matchLeaf(p.Field, p.Value, m)
}

func matchLeaf(field, value string, m database.MediaMetadata) bool {
	switch field {
	case "genre":
		return containsFold(m.Genres, value)
	case "actor":
		return containsFold(m.Actors, value)
	case "director":
		return containsFold(m.Directors, value)
	case "studio":
		return containsFold(m.Studios, value)
	case "country":
		return containsFold(m.Countries, value)
	case "year_gte":
		return compareNum(float64(m.Year), value) >= 0
	case "year_lte":
		return compareNum(float64(m.Year), value) <= 0
	case "rating_gte":
		return compareNum(m.Rating, value) >= 0
	case "rating_lte":
		return compareNum(m.Rating, value) <= 0
	default:
		return false
	}
}

func containsFold(list []string, value string) bool {
	for _, v := range list {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}

func compareNum(actual float64, want string) int {
	var f float64
	if _, err := fmt.Sscanf(want, "%f", &f); err != nil {
		return 0
	}
	switch {
	case actual > f:
		return 1
	case actual < f:
		return -1
	default:
		return 0
	}
}
