package outline

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/outline/internal/models"
)

// SyntaxError reports a malformed line. Line is 1-based and counts from the
// start of the document, frontmatter included.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("outline: line %d: %s", e.Line, e.Msg)
}

// Parse reads an outline document. Lines that are neither bullets nor
// continuations of one are ignored, except that a "# " heading before the
// first bullet supplies the title when the frontmatter has none.
func Parse(data []byte) (*Document, error) {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	meta, body, offset, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	doc := &Document{Meta: meta, Items: []Item{}}
	var (
		cur     *Item
		curCol  int // column where cur's continuation lines start
		pending int // blank lines seen since cur's last line
	)
	for i, raw := range strings.Split(body, "\n") {
		lineNo := offset + i + 1
		line := expandTabs(raw)
		trimmed := strings.TrimLeft(line, " ")
		lead := len(line) - len(trimmed)

		if strings.TrimSpace(trimmed) == "" {
			if cur != nil {
				pending++
			}
			continue
		}

		if rest, ok := cutBullet(trimmed); ok {
			depth := lead / 2
			if n := len(doc.Items); n == 0 {
				depth = 0
			} else if prev := doc.Items[n-1].Depth; depth > prev+1 {
				depth = prev + 1
			}
			typ, text := cutCheckbox(rest)
			if strings.TrimSpace(text) == "" {
				return nil, &SyntaxError{Line: lineNo, Msg: "empty item"}
			}
			doc.Items = append(doc.Items, Item{Depth: depth, Type: typ, Text: strings.TrimRight(text, " ")})
			cur = &doc.Items[len(doc.Items)-1]
			curCol = lead + 2
			pending = 0
			continue
		}

		if cur != nil && lead >= curCol {
			cur.Text += strings.Repeat("\n", pending+1) + strings.TrimRight(line[curCol:], " ")
			pending = 0
			continue
		}

		cur = nil
		if len(doc.Items) == 0 && doc.Meta.Title == "" && strings.HasPrefix(trimmed, "# ") {
			doc.Meta.Title = strings.TrimSpace(trimmed[2:])
		}
	}
	return doc, nil
}

// splitFrontmatter separates a leading YAML block between "---" lines from
// the body. offset is the number of lines consumed before the body.
func splitFrontmatter(data []byte) (Meta, string, int, error) {
	const delim = "---"
	var meta Meta
	if !bytes.HasPrefix(data, []byte(delim+"\n")) {
		return meta, string(data), 0, nil
	}

	rest := data[len(delim)+1:]
	var block []byte
	switch {
	case bytes.HasPrefix(rest, []byte(delim)):
		block = nil
	default:
		idx := bytes.Index(rest, []byte("\n"+delim))
		if idx < 0 {
			return meta, string(data), 0, nil
		}
		block = rest[:idx+1]
	}

	after := rest[len(block)+len(delim):]
	if nl := bytes.IndexByte(after, '\n'); nl >= 0 {
		after = after[nl+1:]
	} else {
		after = nil
	}
	if err := yaml.Unmarshal(block, &meta); err != nil {
		return Meta{}, "", 0, &SyntaxError{Line: 2, Msg: "frontmatter: " + err.Error()}
	}
	offset := bytes.Count(data[:len(data)-len(after)], []byte("\n"))
	return meta, string(after), offset, nil
}

func cutBullet(s string) (string, bool) {
	if len(s) >= 1 && (s[0] == '-' || s[0] == '*' || s[0] == '+') {
		if len(s) == 1 {
			return "", true
		}
		if s[1] == ' ' {
			return s[2:], true
		}
	}
	return "", false
}

func cutCheckbox(s string) (models.NodeType, string) {
	if len(s) < 3 || s[0] != '[' || s[2] != ']' || (len(s) > 3 && s[3] != ' ') {
		return models.TypeStandard, s
	}
	rest := strings.TrimPrefix(s[3:], " ")
	switch s[1] {
	case ' ':
		return models.TypeTodo, rest
	case '~', '-':
		return models.TypeInProgress, rest
	case 'x', 'X':
		return models.TypeDone, rest
	}
	return models.TypeStandard, s
}

// expandTabs replaces each leading tab with one indent level.
func expandTabs(s string) string {
	n := 0
	for n < len(s) && (s[n] == '\t' || s[n] == ' ') {
		n++
	}
	if !strings.Contains(s[:n], "\t") {
		return s
	}
	return strings.ReplaceAll(s[:n], "\t", indent) + s[n:]
}
