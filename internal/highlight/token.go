package highlight

import "github.com/alecthomas/chroma/v2"

// Class is the highlight class of a token. Its name is the style carried by
// lines.StyleSpan and looked up by renderer themes.
type Class uint8

// Highlight classes.
const (
	ClassNone Class = iota
	ClassComment
	ClassString
	ClassNumber
	ClassKeyword
	ClassType
	ClassConstant
	ClassFunction
	ClassBuiltin
	ClassOperator
	ClassPunctuation

	classCount
)

var classNames = [classCount]string{
	ClassNone:        "",
	ClassComment:     "comment",
	ClassString:      "string",
	ClassNumber:      "number",
	ClassKeyword:     "keyword",
	ClassType:        "type",
	ClassConstant:    "constant",
	ClassFunction:    "function",
	ClassBuiltin:     "builtin",
	ClassOperator:    "operator",
	ClassPunctuation: "punctuation",
}

// String returns the style name of the class.
func (c Class) String() string {
	if c < classCount {
		return classNames[c]
	}
	return "unknown"
}

// ClassFromString returns the class with the given style name, or ClassNone.
func ClassFromString(s string) Class {
	for c, name := range classNames {
		if name == s {
			return Class(c)
		}
	}
	return ClassNone
}

// ClassOf maps a chroma token type to its highlight class.
func ClassOf(t chroma.TokenType) Class {
	switch {
	case t == chroma.KeywordType || t == chroma.NameClass:
		return ClassType
	case t == chroma.KeywordConstant || t == chroma.NameConstant:
		return ClassConstant
	case t.InCategory(chroma.Keyword):
		return ClassKeyword
	case t == chroma.NameFunction || t == chroma.NameFunctionMagic:
		return ClassFunction
	case t == chroma.NameBuiltin || t == chroma.NameBuiltinPseudo:
		return ClassBuiltin
	case t.InCategory(chroma.Comment):
		return ClassComment
	case t.InSubCategory(chroma.LiteralString):
		return ClassString
	case t.InSubCategory(chroma.LiteralNumber):
		return ClassNumber
	case t.InCategory(chroma.Operator):
		return ClassOperator
	case t.InCategory(chroma.Punctuation):
		return ClassPunctuation
	}
	return ClassNone
}
