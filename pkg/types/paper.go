// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Paper holds the metadata of one candidate returned by the paper source.
// Identity is ID; two records with the same ID are the same paper.
type Paper struct {
	// ID is the arXiv identifier without version suffix (e.g. "2301.07041").
	ID string `json:"id" yaml:"id"`

	// Title is the paper title with whitespace collapsed.
	Title string `json:"title" yaml:"title"`

	// Abstract is the paper abstract.
	Abstract string `json:"abstract" yaml:"abstract"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Categories lists every subject category the paper is filed under.
	Categories []string `json:"categories" yaml:"categories"`

	// PrimaryCategory is the category the authors chose as primary.
	PrimaryCategory string `json:"primary_category,omitempty" yaml:"primary_category,omitempty"`

	// SubmittedAt is the first submission timestamp.
	SubmittedAt time.Time `json:"submitted_at" yaml:"submitted_at"`

	// UpdatedAt is the timestamp of the latest revision.
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`

	// URL is the abstract page link.
	URL string `json:"url" yaml:"url"`

	// PDFURL is the direct PDF link, empty when the feed omits it.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`
}

// LatestDate returns the later of SubmittedAt and UpdatedAt. Window checks
// use it so that revised papers count as recent.
func (p Paper) LatestDate() time.Time {
	if p.UpdatedAt.After(p.SubmittedAt) {
		return p.UpdatedAt
	}
	return p.SubmittedAt
}
