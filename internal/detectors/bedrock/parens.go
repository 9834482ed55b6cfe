package bedrock

// matchingParen returns the index of the closing parenthesis that matches the
// opening parenthesis at open, or -1 if content[open] is not '(' or no match
// exists. The scan is a single linear pass regardless of nesting depth, which
// is what keeps the call-argument extractors immune to catastrophic regex
// backtracking. Parentheses inside quoted string literals are ignored; a
// backslash escapes the active quote character within its literal.
func matchingParen(content string, open int) int {
	if open < 0 || open >= len(content) || content[open] != '(' {
		return -1
	}

	depth := 1
	pos := open + 1
	for pos < len(content) {
		switch c := content[pos]; c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return pos
			}
		case '"', '\'':
			quote := c
			pos++
			for pos < len(content) {
				if content[pos] == '\\' {
					pos += 2
					continue
				}
				if content[pos] == quote {
					break
				}
				pos++
			}
		}
		pos++
	}
	return -1
}

// callSpan extracts the argument span of the call whose opening parenthesis
// sits at open. When no balanced close is found the span is capped at limit
// bytes past the opening parenthesis, mirroring how a truncated file should
// still yield a bounded context window.
func callSpan(content string, open, limit int) string {
	end := matchingParen(content, open)
	if end == -1 {
		capped := open + limit
		if capped > len(content) {
			capped = len(content)
		}
		return content[open:capped]
	}
	return content[open : end+1]
}
