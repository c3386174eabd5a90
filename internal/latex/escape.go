// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package latex

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// asciiFold covers letters that do not decompose into a base letter plus a
// combining mark.
var asciiFold = strings.NewReplacer(
	"ß", "ss", "ẞ", "SS",
	"æ", "ae", "Æ", "AE",
	"œ", "oe", "Œ", "OE",
	"ø", "o", "Ø", "O",
	"ł", "l", "Ł", "L",
	"đ", "d", "Đ", "D",
	"ð", "d", "Ð", "D",
	"þ", "th", "Þ", "Th",
	"ı", "i",
	"“", `"`, "”", `"`, "„", `"`,
	"‘", "'", "’", "'",
	"–", "-", "—", "-",
	"…", "...",
)

// Transliterate reduces s to ASCII: accents are stripped, a few ligatures and
// typographic marks are spelled out, and anything left is dropped.
func Transliterate(s string) string {
	s = asciiFold.Replace(s)

	// transform.Chain keeps internal buffers, so build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}

	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)
}

var specialChars = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`&`, `\&`,
	`%`, `\%`,
	`$`, `\$`,
	`#`, `\#`,
	`_`, `\_`,
	`{`, `\{`,
	`}`, `\}`,
	`~`, `\textasciitilde{}`,
	`^`, `\textasciicircum{}`,
)

// Escape makes s safe to place in running LaTeX text.
func Escape(s string) string {
	return specialChars.Replace(s)
}

// literate maps characters to the replacement text lstlisting prints for
// them. Listings do not pass UTF-8 through, so every non-ASCII character
// likely to appear in a citation needs an entry.
var literate = [][2]string{
	{"á", `{\'a}`}, {"é", `{\'e}`}, {"í", `{\'i}`}, {"ó", `{\'o}`}, {"ú", `{\'u}`},
	{"Á", `{\'A}`}, {"É", `{\'E}`}, {"Í", `{\'I}`}, {"Ó", `{\'O}`}, {"Ú", `{\'U}`},
	{"à", "{\\`a}"}, {"è", "{\\`e}"}, {"ì", "{\\`i}"}, {"ò", "{\\`o}"}, {"ù", "{\\`u}"},
	{"À", "{\\`A}"}, {"È", "{\\`E}"}, {"Ì", "{\\`I}"}, {"Ò", "{\\`O}"}, {"Ù", "{\\`U}"},
	{"ä", `{\"a}`}, {"ë", `{\"e}`}, {"ï", `{\"i}`}, {"ö", `{\"o}`}, {"ü", `{\"u}`},
	{"Ä", `{\"A}`}, {"Ë", `{\"E}`}, {"Ï", `{\"I}`}, {"Ö", `{\"O}`}, {"Ü", `{\"U}`},
	{"â", `{\^a}`}, {"ê", `{\^e}`}, {"î", `{\^i}`}, {"ô", `{\^o}`}, {"û", `{\^u}`},
	{"Â", `{\^A}`}, {"Ê", `{\^E}`}, {"Î", `{\^I}`}, {"Ô", `{\^O}`}, {"Û", `{\^U}`},
	{"œ", `{\oe}`}, {"Œ", `{\OE}`}, {"æ", `{\ae}`}, {"Æ", `{\AE}`}, {"ß", `{\ss}`},
	{"ẞ", `{\SS}`}, {"ç", `{\c{c}}`}, {"Ç", `{\c{C}}`}, {"ø", `{\o}`}, {"Ø", `{\O}`},
	{"å", `{\aa}`}, {"Å", `{\AA}`}, {"ã", `{\~a}`}, {"õ", `{\~o}`}, {"Ã", `{\~A}`},
	{"Õ", `{\~O}`}, {"ñ", `{\~n}`}, {"Ñ", `{\~N}`}, {"¿", "{?\\`}"}, {"¡", "{!\\`}"},
	{"„", `\quotedblbase`}, {"“", `\textquotedblleft`}, {"–", `$-$`},
	{"°", `{\textdegree}`}, {"º", `{\textordmasculine}`}, {"ª", `{\textordfeminine}`},
	{"£", `{\pounds}`}, {"©", `{\copyright}`}, {"®", `{\textregistered}`},
	{"«", `{\guillemotleft}`}, {"»", `{\guillemotright}`}, {"Ð", `{\DH}`}, {"ð", `{\dh}`},
	{"Ý", `{\'Y}`}, {"ý", `{\'y}`}, {"Þ", `{\TH}`}, {"þ", `{\th}`}, {"Ă", `{\u{A}}`},
	{"ă", `{\u{a}}`}, {"Ą", `{\k{A}}`}, {"ą", `{\k{a}}`}, {"Ć", `{\'C}`}, {"ć", `{\'c}`},
	{"Č", `{\v{C}}`}, {"č", `{\v{c}}`}, {"Ď", `{\v{D}}`}, {"ď", `{\v{d}}`}, {"Đ", `{\DJ}`},
	{"đ", `{\dj}`}, {"Ė", `{\.{E}}`}, {"ė", `{\.{e}}`}, {"Ę", `{\k{E}}`}, {"ę", `{\k{e}}`},
	{"Ě", `{\v{E}}`}, {"ě", `{\v{e}}`}, {"Ğ", `{\u{G}}`}, {"ğ", `{\u{g}}`}, {"Ĩ", `{\~I}`},
	{"ĩ", `{\~\i}`}, {"Į", `{\k{I}}`}, {"į", `{\k{i}}`}, {"İ", `{\.{I}}`}, {"ı", `{\i}`},
	{"Ĺ", `{\'L}`}, {"ĺ", `{\'l}`}, {"Ľ", `{\v{L}}`}, {"ľ", `{\v{l}}`}, {"Ł", `{\L{}}`},
	{"ł", `{\l{}}`}, {"Ń", `{\'N}`}, {"ń", `{\'n}`}, {"Ň", `{\v{N}}`}, {"ň", `{\v{n}}`},
	{"Ő", `{\H{O}}`}, {"ő", `{\H{o}}`}, {"Ŕ", `{\'{R}}`}, {"ŕ", `{\'{r}}`}, {"Ř", `{\v{R}}`},
	{"ř", `{\v{r}}`}, {"Ś", `{\'S}`}, {"ś", `{\'s}`}, {"Ş", `{\c{S}}`}, {"ş", `{\c{s}}`},
	{"Š", `{\v{S}}`}, {"š", `{\v{s}}`}, {"Ť", `{\v{T}}`}, {"ť", `{\v{t}}`}, {"Ũ", `{\~U}`},
	{"ũ", `{\~u}`}, {"Ū", `{\={U}}`}, {"ū", `{\={u}}`}, {"Ů", `{\r{U}}`}, {"ů", `{\r{u}}`},
	{"Ű", `{\H{U}}`}, {"ű", `{\H{u}}`}, {"Ų", `{\k{U}}`}, {"ų", `{\k{u}}`}, {"Ź", `{\'Z}`},
	{"ź", `{\'z}`}, {"Ż", `{\.Z}`}, {"ż", `{\.z}`}, {"Ž", `{\v{Z}}`}, {"ž", `{\v{z}}`},
}

// literateBlock returns an \lstset call installing the literate table, five
// entries per line.
func literateBlock() string {
	var b strings.Builder
	b.WriteString("\\lstset{literate=\n")
	for i, e := range literate {
		if i%5 == 0 {
			b.WriteString("  ")
		}
		b.WriteString("{" + e[0] + "}{" + e[1] + "}1")
		if i%5 == 4 || i == len(literate)-1 {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
	}
	b.WriteString("}\n")
	return b.String()
}
