package model

import (
	"fmt"
	"strings"
)

// SelectedPack identifies one control pack version chosen for a project.
type SelectedPack struct {
	Domain  string `json:"domain" yaml:"domain"`
	PackID  string `json:"pack_id" yaml:"pack_id"`
	Version string `json:"version" yaml:"version"`
}

// Normalize trims whitespace from every identifier.
func (p SelectedPack) Normalize() SelectedPack {
	return SelectedPack{
		Domain:  strings.TrimSpace(p.Domain),
		PackID:  strings.TrimSpace(p.PackID),
		Version: strings.TrimSpace(p.Version),
	}
}

func (p SelectedPack) String() string {
	return fmt.Sprintf("%s:%s:%s", p.Domain, p.PackID, p.Version)
}

// EvidenceRequirement describes an artifact an auditor expects for a control.
type EvidenceRequirement struct {
	Type string `json:"type" yaml:"type"`
	Name string `json:"name" yaml:"name"`
}

// Applicability restricts a requirement to matching project contexts. Every
// non-empty dimension must match; values inside a dimension are alternatives.
type Applicability struct {
	Industries []string            `json:"industries,omitempty" yaml:"industries"`
	Segments   []string            `json:"segments,omitempty" yaml:"segments"`
	UseCases   []string            `json:"use_cases,omitempty" yaml:"use_cases"`
	Tags       []string            `json:"tags,omitempty" yaml:"tags"`
	Scope      map[string][]string `json:"scope,omitempty" yaml:"scope"`
}

// IsZero reports whether the predicate has no conditions.
func (a Applicability) IsZero() bool {
	return len(a.Industries) == 0 && len(a.Segments) == 0 && len(a.UseCases) == 0 &&
		len(a.Tags) == 0 && len(a.Scope) == 0
}

// Requirement is a single control entry inside a pack.
type Requirement struct {
	ID               string                `json:"id" yaml:"id"`
	MergeKey         string                `json:"merge_key" yaml:"merge_key"`
	Title            string                `json:"title" yaml:"title"`
	Objective        string                `json:"objective,omitempty" yaml:"objective"`
	Severity         Severity              `json:"severity" yaml:"severity"`
	AppliesWhen      Applicability         `json:"applies_when" yaml:"applies_when"`
	EvidenceRequired []EvidenceRequirement `json:"evidence_required,omitempty" yaml:"evidence_required"`
}

// ControlPack is a versioned, domain-scoped bundle of requirements. Packs are
// immutable once loaded; ContentHash is the sha256 of the source document.
type ControlPack struct {
	Domain       string        `json:"domain" yaml:"domain"`
	ID           string        `json:"id" yaml:"id"`
	Version      string        `json:"version" yaml:"version"`
	Name         string        `json:"name,omitempty" yaml:"name"`
	Description  string        `json:"description,omitempty" yaml:"description"`
	Requirements []Requirement `json:"requirements" yaml:"requirements"`
	ContentHash  string        `json:"content_hash" yaml:"-"`
}

// Ref returns the selection identity of the pack.
func (p ControlPack) Ref() SelectedPack {
	return SelectedPack{Domain: p.Domain, PackID: p.ID, Version: p.Version}
}

// PackSummary is the listing view of a pack.
type PackSummary struct {
	Domain       string `json:"domain"`
	PackID       string `json:"pack_id"`
	Version      string `json:"version"`
	Name         string `json:"name,omitempty"`
	Requirements int    `json:"requirements"`
	ContentHash  string `json:"content_hash"`
}

// Summary returns the listing view of p.
func (p ControlPack) Summary() PackSummary {
	return PackSummary{
		Domain:       p.Domain,
		PackID:       p.ID,
		Version:      p.Version,
		Name:         p.Name,
		Requirements: len(p.Requirements),
		ContentHash:  p.ContentHash,
	}
}
