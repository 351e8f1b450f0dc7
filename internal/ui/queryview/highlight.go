package queryview

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/pgtop/internal/theme"
)

// Highlighter tokenises query text with chroma's PostgreSQL lexer and
// renders it with the active theme's styles.
type Highlighter struct {
	lexer chroma.Lexer
}

// NewHighlighter creates a Highlighter, falling back to the generic SQL
// lexer when the PostgreSQL one is unavailable.
func NewHighlighter() *Highlighter {
	l := lexers.Get("postgresql")
	if l == nil {
		l = lexers.Get("SQL")
	}
	if l == nil {
		l = lexers.Fallback
	}
	return &Highlighter{lexer: chroma.Coalesce(l)}
}

// Highlight returns sql with every token styled. Newlines are emitted
// unstyled so multi-line statements keep their shape.
func (h *Highlighter) Highlight(sql string, th *theme.Theme) string {
	if th == nil {
		return sql
	}
	iter, err := h.lexer.Tokenise(nil, sql)
	if err != nil {
		return sql
	}

	var b strings.Builder
	b.Grow(len(sql) * 2)
	for _, tok := range iter.Tokens() {
		if tok.Value == "" {
			continue
		}
		style, ok := styleFor(tok.Type, th)
		if !ok {
			b.WriteString(tok.Value)
			continue
		}
		for i, line := range strings.Split(tok.Value, "\n") {
			if i > 0 {
				b.WriteByte('\n')
			}
			if line != "" {
				b.WriteString(style.Render(line))
			}
		}
	}
	return b.String()
}

// clauses start a new line when a single-line statement is reformatted.
var clauses = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "GROUP": true,
	"ORDER": true, "HAVING": true, "LIMIT": true, "OFFSET": true,
	"UNION": true, "VALUES": true, "SET": true, "RETURNING": true,
	"INSERT": true, "UPDATE": true, "DELETE": true, "WITH": true,
}

// Format breaks a single-line statement before each top level clause
// keyword. Text that already spans several lines is returned unchanged.
func (h *Highlighter) Format(sql string) string {
	sql = strings.TrimSpace(sql)
	if strings.Contains(sql, "\n") {
		return sql
	}
	iter, err := h.lexer.Tokenise(nil, sql)
	if err != nil {
		return sql
	}

	var b strings.Builder
	for _, tok := range iter.Tokens() {
		if tok.Type.InCategory(chroma.Keyword) && b.Len() > 0 {
			if f := strings.Fields(tok.Value); len(f) > 0 && clauses[strings.ToUpper(f[0])] {
				trimmed := strings.TrimRight(b.String(), " \t")
				b.Reset()
				b.WriteString(trimmed)
				b.WriteByte('\n')
			}
		}
		b.WriteString(tok.Value)
	}
	return b.String()
}

// styleFor maps a chroma token type to a theme style. The second return
// value is false for tokens that pass through unstyled.
func styleFor(tt chroma.TokenType, th *theme.Theme) (lipgloss.Style, bool) {
	switch {
	case tt == chroma.KeywordType:
		return th.SQLType, true
	case tt == chroma.NameFunction || tt == chroma.NameBuiltin:
		return th.SQLFunction, true
	case tt.InCategory(chroma.Keyword):
		return th.SQLKeyword, true
	case tt.InSubCategory(chroma.LiteralString):
		return th.SQLString, true
	case tt.InSubCategory(chroma.LiteralNumber):
		return th.SQLNumber, true
	case tt.InCategory(chroma.Comment):
		return th.SQLComment, true
	case tt.InCategory(chroma.Operator):
		return th.SQLOperator, true
	default:
		return lipgloss.Style{}, false
	}
}
