package extract

import (
	"bytes"
	"errors"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	errNoObject   = errors.New("no JSON object in response")
	errUnbalanced = errors.New("unbalanced JSON object in response")
)

var fenceParser = goldmark.New().Parser()

const jsonMarker = "```json"

// locateJSON returns the JSON object text inside a model reply. A fenced
// code block tagged json takes precedence, then a "```json" marker written
// inline, where the object follows on the same line. The object is isolated
// by a depth scan from the first '{' after either, or in the whole reply.
func locateJSON(reply string) (string, error) {
	if fenced, ok := jsonFence(reply); ok {
		return scanObject(fenced)
	}
	if i := inlineFence(reply); i >= 0 {
		if obj, err := scanObject(reply[i:]); err == nil {
			return obj, nil
		}
	}
	return scanObject(reply)
}

// inlineFence returns the offset just past the first "```json" marker,
// matched case-insensitively, or -1.
func inlineFence(reply string) int {
	for i := strings.Index(reply, "```"); i >= 0 && i+len(jsonMarker) <= len(reply); {
		if strings.EqualFold(reply[i:i+len(jsonMarker)], jsonMarker) {
			return i + len(jsonMarker)
		}
		next := strings.Index(reply[i+1:], "```")
		if next < 0 {
			break
		}
		i += next + 1
	}
	return -1
}

// jsonFence returns the interior of the first fenced code block whose info
// string starts with "json".
func jsonFence(reply string) (string, bool) {
	src := []byte(reply)
	doc := fenceParser.Parse(text.NewReader(src))

	var body string
	var found bool
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		if !strings.EqualFold(string(fcb.Language(src)), "json") {
			return ast.WalkSkipChildren, nil
		}
		var buf bytes.Buffer
		lines := fcb.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			buf.Write(seg.Value(src))
		}
		body, found = buf.String(), true
		return ast.WalkStop, nil
	})
	return body, found
}

// scanObject returns the balanced object starting at the first '{' in s.
// Braces inside string literals are ignored.
func scanObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", errNoObject
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", errUnbalanced
}
