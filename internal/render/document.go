// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// BlockKind identifies the markdown construct a Block came from.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockCode
	BlockList
	BlockListItem
	BlockQuote
	BlockRule
	BlockHTML
	BlockTable
)

// String returns the block kind name.
func (k BlockKind) String() string {
	switch k {
	case BlockParagraph:
		return "paragraph"
	case BlockHeading:
		return "heading"
	case BlockCode:
		return "code"
	case BlockList:
		return "list"
	case BlockListItem:
		return "item"
	case BlockQuote:
		return "quote"
	case BlockRule:
		return "rule"
	case BlockHTML:
		return "html"
	case BlockTable:
		return "table"
	default:
		return "unknown"
	}
}

// Block is one structural element of a parsed response.
type Block struct {
	Kind     BlockKind
	Level    int    // heading level, 1..6
	Language string // fenced code info string
	Ordered  bool   // lists only
	Text     string // raw source lines of leaf blocks
	Children []Block
}

// Document is the rendered form of the accumulated response. Documents are
// replaced wholesale and never mutated after publishing.
type Document struct {
	Source string
	Blocks []Block
	Styled string
}

// PlaceholderText is shown while waiting for the first token.
const PlaceholderText = "Waiting for model..."

// Placeholder returns the document displayed at submission time.
func Placeholder() Document {
	return Document{
		Source: PlaceholderText,
		Blocks: []Block{{Kind: BlockParagraph, Text: PlaceholderText}},
		Styled: PlaceholderText,
	}
}

// Empty reports whether the document holds nothing to display.
func (d Document) Empty() bool {
	return d.Source == "" && d.Styled == ""
}

// View returns the styled text, falling back to the raw source.
func (d Document) View() string {
	if d.Styled != "" {
		return d.Styled
	}
	return d.Source
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Parse builds the block structure of source. The whole input is parsed on
// every call; partial markdown (an unclosed fence, say) parses as whatever
// it currently is.
func Parse(source string) (blocks []Block, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("markdown parse panic: %v", r)
		}
	}()

	src := []byte(source)
	root := markdown.Parser().Parse(text.NewReader(src))
	return convertChildren(root, src), nil
}

func convertChildren(parent ast.Node, src []byte) []Block {
	var blocks []Block
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		if b, ok := convert(n, src); ok {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

func convert(n ast.Node, src []byte) (Block, bool) {
	switch node := n.(type) {
	case *ast.Heading:
		return Block{Kind: BlockHeading, Level: node.Level, Text: lines(n, src)}, true
	case *ast.Paragraph, *ast.TextBlock:
		return Block{Kind: BlockParagraph, Text: lines(n, src)}, true
	case *ast.FencedCodeBlock:
		return Block{Kind: BlockCode, Language: string(node.Language(src)), Text: lines(n, src)}, true
	case *ast.CodeBlock:
		return Block{Kind: BlockCode, Text: lines(n, src)}, true
	case *ast.List:
		return Block{Kind: BlockList, Ordered: node.IsOrdered(), Children: convertChildren(n, src)}, true
	case *ast.ListItem:
		return Block{Kind: BlockListItem, Children: convertChildren(n, src)}, true
	case *ast.Blockquote:
		return Block{Kind: BlockQuote, Children: convertChildren(n, src)}, true
	case *ast.ThematicBreak:
		return Block{Kind: BlockRule}, true
	case *ast.HTMLBlock:
		return Block{Kind: BlockHTML, Text: lines(n, src)}, true
	}
	if n.Kind().String() == "Table" {
		return Block{Kind: BlockTable, Text: string(bytes.TrimSpace(rawText(n, src)))}, true
	}
	return Block{}, false
}

// lines joins the source segments of a leaf block.
func lines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	segs := n.Lines()
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		buf.Write(seg.Value(src))
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// rawText collects leaf text below n, one line per row.
func rawText(n ast.Node, src []byte) []byte {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if c.Kind().String() == "TableRow" || c.Kind().String() == "TableHeader" {
				buf.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(src))
			buf.WriteByte(' ')
		}
		return ast.WalkContinue, nil
	})
	return buf.Bytes()
}
