package graphql

// OperationType is the kind of an executable GraphQL operation.
type OperationType string

const (
	OperationQuery        OperationType = "query"
	OperationMutation     OperationType = "mutation"
	OperationSubscription OperationType = "subscription"
)

// OperationKind reports the type of the operation in document that
// operationName selects, or of the first operation when operationName is
// empty or matches nothing. Comments, strings, fragments and variable
// definitions are skipped. A document with no operation reports a query.
func OperationKind(document, operationName string) OperationType {
	s := scanner{src: document}
	first := OperationType("")

	for {
		s.skipIgnored()
		if s.eof() {
			break
		}

		kind, name := OperationType(""), ""
		switch c := s.peek(); {
		case c == '{':
			kind = OperationQuery
		case isNameStart(c):
			switch word := s.name(); word {
			case "query", "mutation", "subscription":
				kind = OperationType(word)
				s.skipIgnored()
				if !s.eof() && isNameStart(s.peek()) {
					name = s.name()
				}
			}
			// Anything else (fragment, type system definitions) is skipped
			// up to the end of its selection set.
			s.skipToBlock()
		default:
			s.pos++
			continue
		}
		s.skipBlock()

		if kind == "" {
			continue
		}
		if operationName == "" || name == operationName {
			return kind
		}
		if first == "" {
			first = kind
		}
	}

	if first == "" {
		return OperationQuery
	}
	return first
}

type scanner struct {
	src string
	pos int
}

func (s *scanner) eof() bool  { return s.pos >= len(s.src) }
func (s *scanner) peek() byte { return s.src[s.pos] }

// skipIgnored skips whitespace, commas, comments and a byte order mark.
func (s *scanner) skipIgnored() {
	for !s.eof() {
		switch c := s.peek(); {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == ',':
			s.pos++
		case c == '#':
			for !s.eof() && s.peek() != '\n' && s.peek() != '\r' {
				s.pos++
			}
		case len(s.src)-s.pos >= 3 && s.src[s.pos:s.pos+3] == "\xef\xbb\xbf":
			s.pos += 3
		default:
			return
		}
	}
}

func (s *scanner) name() string {
	start := s.pos
	for !s.eof() && isNameContinue(s.peek()) {
		s.pos++
	}
	return s.src[start:s.pos]
}

// skipString skips a string or block string starting at the current quote.
func (s *scanner) skipString() {
	if len(s.src)-s.pos >= 3 && s.src[s.pos:s.pos+3] == `"""` {
		s.pos += 3
		for !s.eof() {
			switch {
			case len(s.src)-s.pos >= 4 && s.src[s.pos:s.pos+4] == `\"""`:
				s.pos += 4
			case len(s.src)-s.pos >= 3 && s.src[s.pos:s.pos+3] == `"""`:
				s.pos += 3
				return
			default:
				s.pos++
			}
		}
		return
	}

	s.pos++
	for !s.eof() {
		switch s.peek() {
		case '\\':
			s.pos += 2
		case '"', '\n', '\r':
			s.pos++
			return
		default:
			s.pos++
		}
	}
}

// skipToBlock advances to the next '{' outside parentheses, so default
// values in variable definitions are not taken for a selection set.
func (s *scanner) skipToBlock() {
	depth := 0
	for {
		s.skipIgnored()
		if s.eof() {
			return
		}
		switch s.peek() {
		case '"':
			s.skipString()
			continue
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case '{':
			if depth == 0 {
				return
			}
		}
		s.pos++
	}
}

// skipBlock skips the balanced braces starting at the current '{'.
func (s *scanner) skipBlock() {
	if s.eof() || s.peek() != '{' {
		return
	}
	depth := 0
	for {
		s.skipIgnored()
		if s.eof() {
			return
		}
		switch s.peek() {
		case '"':
			s.skipString()
			continue
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				s.pos++
				return
			}
		}
		s.pos++
	}
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameContinue(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}
