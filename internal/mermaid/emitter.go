// Package mermaid renders an ERD build as a Mermaid erDiagram.
package mermaid

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/koustreak/modelerd/internal/erd"
)

// ContentType is the media type served for rendered diagrams.
const ContentType = "text/plain; charset=utf-8"

// Emit writes tables and relationships to w. Relationships sharing a Key are
// written once, first occurrence wins.
func Emit(w io.Writer, tables *erd.TableSchema, rels []*erd.Relationship) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "erDiagram")
	for _, table := range tables.Names() {
		fmt.Fprintf(bw, "    %s {\n", table)
		for _, col := range tables.Columns(table) {
			line := fmt.Sprintf("        %s %s", token(col.SemanticType), col.Name)
			if len(col.Annotations) > 0 {
				line += " " + strings.Join(col.Annotations, ", ")
			}
			fmt.Fprintln(bw, line)
		}
		fmt.Fprintln(bw, "    }")
	}
	fmt.Fprintln(bw)

	for _, rel := range erd.UniqueRelationships(rels) {
		fmt.Fprintf(bw, "    %s %s %s : %q\n", rel.FromTable, rel.Type, rel.ToTable, rel.Label)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write diagram: %w", err)
	}
	return nil
}

// Render returns the diagram for res as a string.
func Render(res *erd.Result) string {
	var buf bytes.Buffer
	_ = Emit(&buf, res.Tables, res.Relationships)
	return buf.String()
}

// token makes a type name safe as a Mermaid attribute type, which may not
// contain spaces or punctuation.
func token(s string) string {
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
