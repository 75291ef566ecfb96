package guard

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// shellTokens splits a command into shell tokens. The primary path parses
// the command with the mvdan.cc/sh Bash parser and flattens the AST into a
// token stream where operators (";", "&&", "||", "|", "&") appear as
// standalone tokens. When the parse fails (malformed quoting is common in
// LLM-produced commands) a permissive whitespace/quote splitter is used
// instead; that path may leave a trailing ";" attached to a word, which the
// token walkers handle explicitly.
func shellTokens(command string) []string {
	if toks, ok := parseTokens(command); ok {
		return toks
	}
	return fallbackTokens(command)
}

func parseTokens(command string) ([]string, bool) {
	parser := syntax.NewParser(syntax.KeepComments(false), syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(strings.NewReader(command), "")
	if err != nil {
		return nil, false
	}
	var toks []string
	for i, st := range file.Stmts {
		if i > 0 {
			toks = append(toks, ";")
		}
		toks = append(toks, stmtTokens(st)...)
	}
	return toks, true
}

// stmtTokens flattens one statement. Compound commands (loops, conditionals,
// blocks) are flattened with ";" separators so a deletion verb buried in a
// loop body is still visible to the detector.
func stmtTokens(st *syntax.Stmt) []string {
	if st == nil {
		return nil
	}
	toks := cmdTokens(st.Cmd)
	if st.Background {
		toks = append(toks, "&")
	}
	return toks
}

func cmdTokens(cmd syntax.Command) []string {
	switch c := cmd.(type) {
	case *syntax.CallExpr:
		var toks []string
		for _, w := range c.Args {
			toks = append(toks, wordToString(w))
		}
		return toks
	case *syntax.BinaryCmd:
		toks := stmtTokens(c.X)
		switch c.Op {
		case syntax.AndStmt:
			toks = append(toks, "&&")
		case syntax.OrStmt:
			toks = append(toks, "||")
		default:
			toks = append(toks, "|")
		}
		return append(toks, stmtTokens(c.Y)...)
	case *syntax.Subshell:
		return stmtListTokens(c.Stmts)
	case *syntax.Block:
		return stmtListTokens(c.Stmts)
	case *syntax.IfClause:
		toks := stmtListTokens(c.Cond)
		toks = appendSep(toks, stmtListTokens(c.Then))
		if c.Else != nil {
			toks = appendSep(toks, cmdTokens(c.Else))
		}
		return toks
	case *syntax.WhileClause:
		return appendSep(stmtListTokens(c.Cond), stmtListTokens(c.Do))
	case *syntax.ForClause:
		return stmtListTokens(c.Do)
	case *syntax.CaseClause:
		var toks []string
		for _, item := range c.Items {
			toks = appendSep(toks, stmtListTokens(item.Stmts))
		}
		return toks
	case *syntax.FuncDecl:
		return stmtTokens(c.Body)
	}
	return nil
}

func stmtListTokens(stmts []*syntax.Stmt) []string {
	var toks []string
	for _, st := range stmts {
		toks = appendSep(toks, stmtTokens(st))
	}
	return toks
}

// appendSep joins two token runs with a ";" boundary so argument scanning
// never bleeds from one command into the next.
func appendSep(dst, src []string) []string {
	if len(src) == 0 {
		return dst
	}
	if len(dst) > 0 {
		dst = append(dst, ";")
	}
	return append(dst, src...)
}

// wordToString extracts the literal string value from a syntax.Word.
// Quotes are dropped, $VAR/${VAR} references are kept in source form for
// later expansion, and command substitutions collapse to a marker (the
// unresolvable-pattern check rejects those commands before extraction).
func wordToString(w *syntax.Word) string {
	if w == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range w.Parts {
		writeWordPart(&sb, part)
	}
	return sb.String()
}

func writeWordPart(sb *strings.Builder, part syntax.WordPart) {
	switch p := part.(type) {
	case *syntax.Lit:
		sb.WriteString(p.Value)
	case *syntax.SglQuoted:
		sb.WriteString(p.Value)
	case *syntax.DblQuoted:
		for _, inner := range p.Parts {
			writeWordPart(sb, inner)
		}
	case *syntax.ParamExp:
		if p.Param != nil {
			if p.Short {
				sb.WriteString("$")
				sb.WriteString(p.Param.Value)
			} else {
				sb.WriteString("${")
				sb.WriteString(p.Param.Value)
				sb.WriteString("}")
			}
		}
	case *syntax.CmdSubst:
		sb.WriteString("$(…)")
	}
}

// fallbackTokens splits on whitespace while honoring single quotes, double
// quotes, and backslash escaping. Unterminated quotes are tolerated: the
// open quote captures through the end of the string.
func fallbackTokens(command string) []string {
	var toks []string
	var cur strings.Builder
	haveTok := false
	var quote rune // 0, '\'' or '"'
	escaped := false

	flush := func() {
		if haveTok {
			toks = append(toks, cur.String())
			cur.Reset()
			haveTok = false
		}
	}

	for _, r := range command {
		switch {
		case escaped:
			cur.WriteRune(r)
			haveTok = true
			escaped = false
		case quote == '\'':
			if r == '\'' {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case quote == '"':
			switch r {
			case '"':
				quote = 0
			case '\\':
				escaped = true
			default:
				cur.WriteRune(r)
			}
		case r == '\\':
			escaped = true
			haveTok = true
		case r == '\'' || r == '"':
			quote = r
			haveTok = true
		case r == ' ' || r == '\t' || r == '\n':
			flush()
		default:
			cur.WriteRune(r)
			haveTok = true
		}
	}
	flush()
	return toks
}
