package quill

import (
	"strings"
)

// srcLine is a non-blank input line.
type srcLine struct {
	num    int    // 1-based line number
	indent int    // leading spaces
	text   string // content after indentation, trailing spaces removed
}

// parser turns block-style text into events.
//
// Indentation alone decides nesting: a nested block sits exactly one
// indentation unit deeper than the line that opens it. A line's leading
// "- " or "key:" decides whether its block is a sequence or a mapping.
type parser struct {
	lines    []srcLine
	pos      int
	out      eventSink
	maxDepth int
}

// parseDocument parses data into events delivered to out.
func parseDocument(data []byte, out eventSink, maxDepth int) error {
	lines, err := splitLines(string(data))
	if err != nil {
		return err
	}
	p := &parser{lines: lines, out: out, maxDepth: maxDepth}
	return p.parse()
}

func splitLines(src string) ([]srcLine, error) {
	src = strings.TrimPrefix(src, "\xef\xbb\xbf")
	raw := strings.Split(src, "\n")
	lines := make([]srcLine, 0, len(raw))

	for i, r := range raw {
		r = strings.TrimSuffix(r, "\r")
		if strings.TrimSpace(r) == "" {
			continue
		}
		indent := 0
		for indent < len(r) && r[indent] == ' ' {
			indent++
		}
		if r[indent] == '\t' {
			return nil, newDecodeError(ErrDocumentSyntax, i+1, indent+1, "tab in indentation")
		}
		lines = append(lines, srcLine{
			num:    i + 1,
			indent: indent,
			text:   strings.TrimRight(r[indent:], " "),
		})
	}
	return lines, nil
}

func (p *parser) parse() error {
	if len(p.lines) == 0 {
		return newDecodeError(ErrDocumentSyntax, 1, 1, "missing document marker %q", documentMarker)
	}
	first := p.lines[0]
	if first.indent != 0 || first.text != documentMarker {
		return newDecodeError(ErrDocumentSyntax, first.num, first.indent+1, "missing document marker %q", documentMarker)
	}
	p.pos = 1

	if p.pos == len(p.lines) {
		return p.out.emit(Event{Kind: EventScalar, Token: "~", Line: first.num, Column: 1})
	}

	root := p.lines[p.pos]
	if root.indent != 0 {
		return newDecodeError(ErrDocumentSyntax, root.num, root.indent+1, "unexpected indentation at document root")
	}
	if err := p.parseBlock(0, 1); err != nil {
		return err
	}

	if p.pos < len(p.lines) {
		ln := p.lines[p.pos]
		if ln.text == documentMarker {
			return newDecodeError(ErrDocumentSyntax, ln.num, 1, "multiple documents are not supported")
		}
		return newDecodeError(ErrDocumentSyntax, ln.num, ln.indent+1, "unexpected content after document root")
	}
	return nil
}

func (p *parser) emit(kind EventKind, token string, line, column int) error {
	return p.out.emit(Event{Kind: kind, Token: token, Line: line, Column: column})
}

// parseBlock parses the block starting at the current line, whose
// indentation is indent.
func (p *parser) parseBlock(indent, depth int) error {
	ln := p.lines[p.pos]
	if depth > p.maxDepth {
		return newDecodeError(ErrMaxDepth, ln.num, ln.indent+1, "limit %d", p.maxDepth)
	}

	if isDashLine(ln.text) {
		return p.parseSequence(indent, depth, false)
	}
	if _, _, ok := splitKey(ln.text); ok {
		return p.parseMapping(indent, depth)
	}

	p.pos++
	return p.inline(ln, ln.text, ln.indent+1)
}

// parseSequence parses dash items at indent. A flush sequence shares its
// owner key's indentation and ends at the first line that is not an item.
func (p *parser) parseSequence(indent, depth int, flush bool) error {
	first := p.lines[p.pos]
	if err := p.emit(EventBeginSequence, "", first.num, first.indent+1); err != nil {
		return err
	}

	for p.pos < len(p.lines) {
		ln := p.lines[p.pos]
		if ln.indent < indent {
			break
		}
		if ln.indent > indent {
			return newDecodeError(ErrDocumentSyntax, ln.num, ln.indent+1, "unexpected indentation")
		}
		if !isDashLine(ln.text) {
			if flush {
				break
			}
			return newDecodeError(ErrStructureMismatch, ln.num, ln.indent+1, "expected sequence item, found %q", ln.text)
		}
		p.pos++

		rest := strings.TrimLeft(ln.text[1:], " ")
		if rest == "" {
			if err := p.nested(ln, indent, depth, false); err != nil {
				return err
			}
			continue
		}
		if err := p.inline(ln, rest, ln.indent+1+len(ln.text)-len(rest)); err != nil {
			return err
		}
	}

	return p.emit(EventEndSequence, "", 0, 0)
}

func (p *parser) parseMapping(indent, depth int) error {
	first := p.lines[p.pos]
	if err := p.emit(EventBeginMapping, "", first.num, first.indent+1); err != nil {
		return err
	}

	for p.pos < len(p.lines) {
		ln := p.lines[p.pos]
		if ln.indent < indent {
			break
		}
		if ln.indent > indent {
			return newDecodeError(ErrDocumentSyntax, ln.num, ln.indent+1, "unexpected indentation")
		}
		key, rest, ok := splitKey(ln.text)
		if !ok {
			if isDashLine(ln.text) {
				return newDecodeError(ErrStructureMismatch, ln.num, ln.indent+1, "expected mapping entry, found sequence item")
			}
			return newDecodeError(ErrStructureMismatch, ln.num, ln.indent+1, "expected mapping entry, found %q", ln.text)
		}
		p.pos++

		if key != "" && key[0] == '"' {
			if _, err := Unquote(key); err != nil {
				return positioned(err, ln.num, ln.indent+1)
			}
		}
		if err := p.emit(EventKey, key, ln.num, ln.indent+1); err != nil {
			return err
		}

		if rest == "" {
			if err := p.nested(ln, indent, depth, true); err != nil {
				return err
			}
			continue
		}
		if err := p.inline(ln, rest, ln.indent+1+len(ln.text)-len(rest)); err != nil {
			return err
		}
	}

	return p.emit(EventEndMapping, "", 0, 0)
}

// nested parses the value of an entry whose line ends after "-" or "key:".
// With no deeper block following, the value is null.
func (p *parser) nested(owner srcLine, indent, depth int, allowFlush bool) error {
	if p.pos < len(p.lines) {
		next := p.lines[p.pos]
		if next.indent > indent {
			if next.indent != indent+len(indentUnit) {
				return newDecodeError(ErrDocumentSyntax, next.num, next.indent+1,
					"expected indentation of %d spaces, found %d", indent+len(indentUnit), next.indent)
			}
			return p.parseBlock(next.indent, depth+1)
		}
		// "key:" followed by a sequence at the key's own indentation.
		if allowFlush && next.indent == indent && isDashLine(next.text) {
			if depth+1 > p.maxDepth {
				return newDecodeError(ErrMaxDepth, next.num, next.indent+1, "limit %d", p.maxDepth)
			}
			return p.parseSequence(indent, depth+1, true)
		}
	}
	return p.emit(EventScalar, "", owner.num, owner.indent+len(owner.text)+1)
}

// inline emits the value written on the same line as its owner.
func (p *parser) inline(ln srcLine, tok string, column int) error {
	switch {
	case tok == "{}":
		if err := p.emit(EventBeginMapping, "", ln.num, column); err != nil {
			return err
		}
		return p.emit(EventEndMapping, "", ln.num, column)
	case tok == "[]":
		if err := p.emit(EventBeginSequence, "", ln.num, column); err != nil {
			return err
		}
		return p.emit(EventEndSequence, "", ln.num, column)
	case tok[0] == '[' || tok[0] == '{':
		return newDecodeError(ErrScalarSyntax, ln.num, column, "flow collections are not supported")
	case tok[0] == '"':
		if _, err := Unquote(tok); err != nil {
			return positioned(err, ln.num, column)
		}
	case isDashLine(tok):
		return newDecodeError(ErrDocumentSyntax, ln.num, column, "compact nested sequences are not supported")
	default:
		// Whole-line scalars never split as keys; parseBlock routes those to parseMapping.
		if _, _, ok := splitKey(tok); ok {
			return newDecodeError(ErrDocumentSyntax, ln.num, column, "compact nested mappings are not supported")
		}
	}
	return p.emit(EventScalar, tok, ln.num, column)
}

func isDashLine(text string) bool {
	return text == "-" || strings.HasPrefix(text, "- ")
}

// splitKey splits a mapping entry line into its key token and the text
// after "key:". Quoted keys keep their quotes.
func splitKey(text string) (key, rest string, ok bool) {
	if text == "" {
		return "", "", false
	}

	if text[0] == '"' {
		end := closingQuote(text)
		if end < 0 {
			return "", "", false
		}
		after := text[end+1:]
		switch {
		case after == ":":
			return text[:end+1], "", true
		case strings.HasPrefix(after, ": "):
			return text[:end+1], strings.TrimLeft(after[2:], " "), true
		}
		return "", "", false
	}

	if i := strings.Index(text, ": "); i >= 0 {
		return text[:i], strings.TrimLeft(text[i+2:], " "), true
	}
	if strings.HasSuffix(text, ":") {
		return text[:len(text)-1], "", true
	}
	return "", "", false
}

// closingQuote returns the index of the quote ending the token opened at
// text[0], or -1.
func closingQuote(text string) int {
	for i := 1; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}
