package flows

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Token codes
const (
	whitespaceCode = iota
	identifierCode
	openSquareBracketCode
	closeSquareBracketCode
	commaCode
	hyphenCode
	integerCode
)

// Token definitions
var (
	whitespaceToken         = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	identifierToken         = parsly.NewToken(identifierCode, "Identifier", newIdentifierMatcher())
	openSquareBracketToken  = parsly.NewToken(openSquareBracketCode, "[", matcher.NewByte('['))
	closeSquareBracketToken = parsly.NewToken(closeSquareBracketCode, "]", matcher.NewByte(']'))
	commaToken              = parsly.NewToken(commaCode, ",", matcher.NewByte(','))
	hyphenToken             = parsly.NewToken(hyphenCode, "-", matcher.NewByte('-'))
	integerToken            = parsly.NewToken(integerCode, "Integer", &integerMatcher{})
)

func newIdentifierMatcher() parsly.Matcher {
	return &identifierMatcher{}
}

// identifierMatcher matches chemical IDs and group names: a letter or
// underscore followed by letters, digits or underscores.
type identifierMatcher struct{}

func (m *identifierMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	if pos >= size {
		return 0
	}
	if !isLetter(input[pos]) && input[pos] != '_' {
		return 0
	}
	matched := 1
	for i := pos + 1; i < size; i++ {
		if isLetter(input[i]) || isDigit(input[i]) || input[i] == '_' {
			matched++
			continue
		}
		break
	}
	return matched
}

// integerMatcher matches an unsigned decimal integer.
type integerMatcher struct{}

func (m *integerMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	matched := 0
	for i := cursor.Pos; i < cursor.InputSize; i++ {
		if !isDigit(input[i]) {
			break
		}
		matched++
	}
	return matched
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
