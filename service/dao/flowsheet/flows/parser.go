package flows

import (
	"strconv"

	"github.com/viant/parsly"
)

// Key is a parsed flow-map key. A plain key names a chemical; a key of the
// form groupName[Member1,Member2] names a component group and declares its
// members inline.
type Key struct {
	Name    string
	Members []string
}

// IsGroup reports whether the key declares a component group.
func (k *Key) IsGroup() bool {
	return len(k.Members) > 0
}

// Port is a unit-outlet reference of the form unitID-outletIndex.
type Port struct {
	Unit   string
	Outlet int
}

// ParsePort parses a unit-outlet port reference: unitID-outletIndex (e.g.
// "M1-0"). The second return value is false when the input is not shaped
// like a port reference.
func ParsePort(input []byte) (*Port, bool) {
	cursor := parsly.NewCursor("", input, 0)

	matched := cursor.MatchAfterOptional(whitespaceToken, identifierToken)
	if matched.Code != identifierToken.Code {
		return nil, false
	}
	port := &Port{Unit: matched.Text(cursor)}

	if matched = cursor.MatchOne(hyphenToken); matched.Code != hyphenToken.Code {
		return nil, false
	}
	if matched = cursor.MatchOne(integerToken); matched.Code != integerToken.Code {
		return nil, false
	}
	outlet, err := strconv.Atoi(matched.Text(cursor))
	if err != nil {
		return nil, false
	}
	port.Outlet = outlet

	cursor.MatchOne(whitespaceToken)
	if cursor.Pos < cursor.InputSize {
		return nil, false
	}
	return port, true
}

// Parse parses a flow key in the format: name or name[Member1,Member2,...]
func Parse(input []byte) (*Key, error) {
	cursor := parsly.NewCursor("", input, 0)
	key := &Key{}

	matched := cursor.MatchAfterOptional(whitespaceToken, identifierToken)
	if matched.Code != identifierToken.Code {
		return nil, cursor.NewError(identifierToken)
	}
	key.Name = matched.Text(cursor)

	matched = cursor.MatchOne(openSquareBracketToken)
	if matched.Code != openSquareBracketToken.Code {
		return key, nil
	}

	for {
		matched = cursor.MatchAfterOptional(whitespaceToken, identifierToken)
		if matched.Code != identifierToken.Code {
			return nil, cursor.NewError(identifierToken)
		}
		key.Members = append(key.Members, matched.Text(cursor))

		matched = cursor.MatchAfterOptional(whitespaceToken, commaToken, closeSquareBracketToken)
		switch matched.Code {
		case commaToken.Code:
		case closeSquareBracketToken.Code:
			return key, nil
		default:
			return nil, cursor.NewError(closeSquareBracketToken)
		}
	}
}
