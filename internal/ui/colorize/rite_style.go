package colorize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

// RiteDark is the style for rendered instructions: registers teal, symbols
// and strings gold, numbers pink.
var RiteDark = styles.Register(chroma.MustNewStyle("rite-dark", chroma.StyleEntries{
	chroma.Text:       "#FFFFFF",
	chroma.Background: "bg:#1e1e1e",
	chroma.Comment:    "#6A9955",

	chroma.Keyword:         "#C586C0", // lambda, do, return, self, nil
	chroma.KeywordConstant: "#C586C0",
	chroma.KeywordPseudo:   "#C586C0",
	chroma.Name:            "#7C9C9D", // reg, local names
	chroma.NameBuiltin:     "#7C9C9D",
	chroma.NameVariable:    "#7C9C9D",
	chroma.NameFunction:    "#DCDCAA", // call, getglobal, blockexec
	chroma.NameConstant:    "#4EC9B0",

	chroma.LiteralNumber:        "#FF5F87",
	chroma.LiteralNumberInteger: "#FF5F87",
	chroma.LiteralNumberFloat:   "#FF5F87",

	chroma.LiteralStringSymbol: "#FFD700",
	chroma.String:              "#EACD53",

	chroma.Operator:    "#FFFFFF",
	chroma.Punctuation: "#FFFFFF",
}))
