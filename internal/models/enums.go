package models

import (
	"fmt"
	"strings"
)

// Source records who produced a node.
type Source int

const (
	SourceUser Source = iota
	SourceAgent
	SourceApplication
)

var sourceNames = [...]string{"User", "Agent", "Application"}

func (s Source) String() string {
	if s < 0 || int(s) >= len(sourceNames) {
		return fmt.Sprintf("Source(%d)", int(s))
	}
	return sourceNames[s]
}

// ParseSource parses a source name case-insensitively.
func ParseSource(s string) (Source, error) {
	for i, name := range sourceNames {
		if strings.EqualFold(s, name) {
			return Source(i), nil
		}
	}
	return 0, fmt.Errorf("unknown source %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Source) UnmarshalText(data []byte) error {
	v, err := ParseSource(string(data))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// NodeType is the kind of outline entry.
type NodeType int

const (
	TypeStandard NodeType = iota
	TypeTodo
	TypeInProgress
	TypeDone
)

var nodeTypeNames = [...]string{"Standard", "Todo", "InProgress", "Done"}

func (t NodeType) String() string {
	if t < 0 || int(t) >= len(nodeTypeNames) {
		return fmt.Sprintf("NodeType(%d)", int(t))
	}
	return nodeTypeNames[t]
}

// ParseNodeType parses a node type name case-insensitively.
func ParseNodeType(s string) (NodeType, error) {
	for i, name := range nodeTypeNames {
		if strings.EqualFold(s, name) {
			return NodeType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown node type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t NodeType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *NodeType) UnmarshalText(data []byte) error {
	v, err := ParseNodeType(string(data))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// SourceNames lists the accepted source names.
func SourceNames() []string { return append([]string(nil), sourceNames[:]...) }

// NodeTypeNames lists the accepted node type names.
func NodeTypeNames() []string { return append([]string(nil), nodeTypeNames[:]...) }
