package parser

import (
	"strings"
	"testing"
)

func TestRegistryDispatch(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		filename string
		wantType string
	}{
		{"notes.md", "*parser.MarkdownParser"},
		{"README.MARKDOWN", "*parser.MarkdownParser"},
		{"data.txt", "*parser.PlainTextParser"},
		{"export.csv", "*parser.PlainTextParser"},
		{"report.pdf", "*parser.PDFParser"},
		{"spec.docx", "*parser.DOCXParser"},
	}

	for _, tt := range tests {
		p, err := r.Get(tt.filename)
		if err != nil {
			t.Errorf("Get(%q) error = %v", tt.filename, err)
			continue
		}
		if got := typeName(p); got != tt.wantType {
			t.Errorf("Get(%q) = %s, want %s", tt.filename, got, tt.wantType)
		}
	}
}

func TestRegistryRejectsUnknown(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Get("image.png"); err == nil {
		t.Error("expected error for unsupported extension")
	}
	if _, err := r.Get("noextension"); err == nil {
		t.Error("expected error for missing extension")
	}
}

func TestMarkdownParser(t *testing.T) {
	input := `# Deployment Guide

Some **bold** and *italic* text with a [link](https://example.com).

` + "```go\nfmt.Println(\"hi\")\n```" + `

Inline ` + "`code`" + ` too.`

	p := &MarkdownParser{}
	result, err := p.Parse(strings.NewReader(input), "guide.md")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	content := result.Content
	for _, want := range []string{"Deployment Guide", "bold", "italic", "link", `fmt.Println("hi")`, "code"} {
		if !strings.Contains(content, want) {
			t.Errorf("content missing %q: %q", want, content)
		}
	}
	for _, gone := range []string{"**", "```", "](", "# "} {
		if strings.Contains(content, gone) {
			t.Errorf("content still contains marker %q: %q", gone, content)
		}
	}
	if result.Metadata["title"] != "Deployment Guide" {
		t.Errorf("title = %q, want %q", result.Metadata["title"], "Deployment Guide")
	}
}

func TestPlainTextParser(t *testing.T) {
	p := &PlainTextParser{}
	result, err := p.Parse(strings.NewReader("  line one\nline two  \n"), "notes.txt")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if result.Content != "line one\nline two" {
		t.Errorf("content = %q", result.Content)
	}
	if result.Metadata["format"] != ".txt" {
		t.Errorf("format = %q, want .txt", result.Metadata["format"])
	}
}

func TestCleanExtraNewlines(t *testing.T) {
	got := cleanExtraNewlines("a\n\n\n\n\nb\n\nc")
	if got != "a\n\nb\n\nc" {
		t.Errorf("got %q", got)
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *MarkdownParser:
		return "*parser.MarkdownParser"
	case *PlainTextParser:
		return "*parser.PlainTextParser"
	case *PDFParser:
		return "*parser.PDFParser"
	case *DOCXParser:
		return "*parser.DOCXParser"
	default:
		return "unknown"
	}
}
