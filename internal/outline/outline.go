// Package outline converts between a forest and a Markdown bullet list with
// optional YAML frontmatter.
//
//	---
//	title: Weekly plan
//	---
//
//	- [ ] ship release
//	  - [x] tag build
//	  - notes
//
// Each level of nesting is two spaces. A checkbox marks the node type:
// "[ ]" todo, "[~]" or "[-]" in progress, "[x]" done; a plain bullet is a
// standard node. Continuation lines of multi-line text are indented under
// the bullet text.
package outline

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/outline/internal/forest"
	"github.com/starford/outline/internal/models"
)

const indent = "  "

// Meta is the frontmatter of an outline document.
type Meta struct {
	Title  string `yaml:"title,omitempty"`
	Author string `yaml:"author,omitempty"`
}

// Item is one parsed bullet. Depth is zero for top-level items.
type Item struct {
	Depth int
	Type  models.NodeType
	Text  string
}

// Document is a parsed outline.
type Document struct {
	Meta  Meta
	Items []Item
}

var markers = map[models.NodeType]string{
	models.TypeTodo:       "[ ] ",
	models.TypeInProgress: "[~] ",
	models.TypeDone:       "[x] ",
}

// Render writes f as a Markdown outline. Frontmatter is emitted only when
// meta has a field set.
func Render(f *forest.Forest, meta Meta) ([]byte, error) {
	var buf bytes.Buffer
	if meta != (Meta{}) {
		fm, err := yaml.Marshal(meta)
		if err != nil {
			return nil, err
		}
		buf.WriteString("---\n")
		buf.Write(fm)
		buf.WriteString("---\n\n")
	}

	f.Walk(func(el *forest.Element) bool {
		pad := strings.Repeat(indent, el.Depth)
		buf.WriteString(pad)
		buf.WriteString("- ")
		buf.WriteString(markers[el.Type])

		lines := strings.Split(strings.TrimRight(el.Text, "\n"), "\n")
		buf.WriteString(lines[0])
		buf.WriteByte('\n')
		for _, l := range lines[1:] {
			if l != "" {
				buf.WriteString(pad)
				buf.WriteString(indent)
				buf.WriteString(l)
			}
			buf.WriteByte('\n')
		}
		return true
	})
	return buf.Bytes(), nil
}
