// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paperpal/pkg/types"
)

// CSLItem is a bibliographic entry in CSL-YAML, consumable by Pandoc and
// reference managers.
type CSLItem struct {
	ID             string    `yaml:"id"`
	Type           string    `yaml:"type"`
	Title          string    `yaml:"title"`
	Author         []CSLName `yaml:"author,omitempty"`
	Abstract       string    `yaml:"abstract,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty"`
	URL            string    `yaml:"URL,omitempty"`
	Number         string    `yaml:"number,omitempty"`
	Publisher      string    `yaml:"publisher,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty"`
	Note           string    `yaml:"note,omitempty"`
}

// CSLName is a person's name in CSL form.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate is a date as CSL date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// WriteCSL writes the ranked papers as a CSL-YAML list in rank order.
func WriteCSL(w io.Writer, ranked types.RankedSet) error {
	items := make([]CSLItem, len(ranked))
	for i, e := range ranked {
		items[i] = toCSLItem(e.Paper)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

// toCSLItem describes an arXiv preprint. The identifier doubles as the
// citation key and the report number.
func toCSLItem(p types.Paper) CSLItem {
	item := CSLItem{
		ID:             "arxiv:" + p.ID,
		Type:           "article",
		Title:          p.Title,
		Abstract:       p.Abstract,
		URL:            p.URL,
		Number:         "arXiv:" + p.ID,
		Publisher:      "arXiv",
		ContainerTitle: "arXiv preprint",
	}
	if p.PrimaryCategory != "" {
		item.Note = "Primary category: " + p.PrimaryCategory
	}
	for _, a := range p.Authors {
		if n := parseAuthorName(a); n != (CSLName{}) {
			item.Author = append(item.Author, n)
		}
	}
	if !p.SubmittedAt.IsZero() {
		d := p.SubmittedAt.UTC()
		item.Issued = &CSLDate{DateParts: [][]int{{d.Year(), int(d.Month()), d.Day()}}}
	}
	return item
}

// parseAuthorName splits on the last space: everything before is given,
// the last token is family. Single-token names use the literal field.
func parseAuthorName(name string) CSLName {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return CSLName{}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{Given: name[:idx], Family: name[idx+1:]}
}
