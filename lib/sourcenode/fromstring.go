package sourcenode

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/liuxd6825/smconcat/lib/mapping"
)

// ErrMapContentMismatch is returned when a source map describes positions
// that do not exist in the text it is replayed against.
var ErrMapContentMismatch = errors.New("source map does not match content")

// FromStringWithSourceMap rebuilds a tree from generated text and the source
// map describing it. The text is split at every mapping boundary and each
// resulting span becomes a child mapped to its original position. Text before
// the first mapping stays unmapped. rewrite, when not nil, is applied to every
// source path, including the keys of embedded source contents.
func FromStringWithSourceMap(code string, c mapping.Consumer, rewrite func(string) string) (*Node, error) {
	if rewrite == nil {
		rewrite = func(s string) string { return s }
	}

	var (
		node      = NewText()
		lines     = splitLines(code)
		next      = 0
		lastLine  = 1
		lastCol   = 0
		last      *mapping.Mapping
		shiftLine = func() string {
			if next < len(lines) {
				next++
				return lines[next-1]
			}
			return ""
		}
		addWithCode = func(m *mapping.Mapping, text string) {
			if m == nil || !m.HasOriginal() {
				node.Add(text)
				return
			}
			node.AddNode(NewMapped(Original{
				Source: rewrite(m.Source),
				Line:   m.OriginalLine,
				Column: m.OriginalColumn,
				Name:   m.Name,
			}, text))
		}
		// cut splits off the first width columns of the current line.
		cut = func(m mapping.Mapping, width int) (string, error) {
			if next >= len(lines) {
				return "", mismatch(m, "past the end of the content")
			}
			head, tail, ok := cutUTF16(lines[next], width)
			if !ok {
				return "", mismatch(m, "outside of its line")
			}
			lines[next] = tail
			return head, nil
		}
	)

	err := c.EachMapping(func(m mapping.Mapping) error {
		if m.GeneratedLine > len(lines) {
			return mismatch(m, fmt.Sprintf("but the content only has %d lines", len(lines)))
		}

		if last != nil {
			if lastLine < m.GeneratedLine {
				addWithCode(last, shiftLine())
				lastLine++
				lastCol = 0
			} else {
				head, err := cut(m, m.GeneratedColumn-lastCol)
				if err != nil {
					return err
				}
				lastCol = m.GeneratedColumn
				addWithCode(last, head)
				last = &m
				return nil
			}
		}

		for lastLine < m.GeneratedLine {
			node.Add(shiftLine())
			lastLine++
		}
		if lastCol < m.GeneratedColumn {
			head, err := cut(m, m.GeneratedColumn-lastCol)
			if err != nil {
				return err
			}
			node.Add(head)
			lastCol = m.GeneratedColumn
		}
		last = &m
		return nil
	})
	if err != nil {
		return nil, err
	}

	if next < len(lines) {
		if last != nil {
			addWithCode(last, shiftLine())
		}
		node.Add(strings.Join(lines[next:], ""))
	}

	for _, source := range c.Sources() {
		if content, ok := c.SourceContentFor(source); ok {
			node.SetSourceContent(rewrite(source), content)
		}
	}

	return node, nil
}

func mismatch(m mapping.Mapping, detail string) error {
	return fmt.Errorf("%w: mapping at generated %d:%d is %s",
		ErrMapContentMismatch, m.GeneratedLine, m.GeneratedColumn, detail)
}

// splitLines splits s after every "\n", keeping the terminators. The last
// element holds whatever follows the final newline, possibly "".
func splitLines(s string) []string {
	lines := make([]string, 0, strings.Count(s, "\n")+1)
	for {
		i := strings.IndexByte(s, '\n')
		if i == -1 {
			return append(lines, s)
		}
		lines = append(lines, s[:i+1])
		s = s[i+1:]
	}
}

// cutUTF16 splits line after width UTF-16 code units. It fails when width is
// negative, falls in the middle of a surrogate pair or reaches past the line
// terminator.
func cutUTF16(line string, width int) (head, tail string, ok bool) {
	if width < 0 {
		return "", "", false
	}
	content := line
	if strings.HasSuffix(content, "\r\n") {
		content = content[:len(content)-2]
	} else {
		content = strings.TrimSuffix(content, "\n")
	}

	units, offset := 0, 0
	for units < width {
		if offset >= len(content) {
			return "", "", false
		}
		r, size := utf8.DecodeRuneInString(content[offset:])
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		if units+n > width {
			return "", "", false
		}
		units += n
		offset += size
	}
	return line[:offset], line[offset:], true
}
