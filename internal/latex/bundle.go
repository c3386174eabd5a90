// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package latex

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"
	"time"
)

// Bundle file names.
const (
	StyleFile        = "annotation.sty"
	SheetFile        = "annotation.tex"
	InstructionsFile = "instructions.md"
)

// bundleTime is stamped on every archive entry so bundles are reproducible.
var bundleTime = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Bundle writes a zip archive to w that lets authors typeset the citation
// sheet inside their own document: a style file, the sheet as an includable
// fragment, and usage instructions.
func Bundle(w io.Writer, c Content, conference string) error {
	files := []struct {
		name string
		body string
	}{
		{StyleFile, Style(conference)},
		{SheetFile, Fragment(c)},
		{InstructionsFile, instructions},
	}

	zw := zip.NewWriter(w)
	for _, f := range files {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.name,
			Method:   zip.Deflate,
			Modified: bundleTime,
		})
		if err != nil {
			return fmt.Errorf("creating %s: %w", f.name, err)
		}
		if _, err := io.WriteString(fw, f.body); err != nil {
			return fmt.Errorf("writing %s: %w", f.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("closing bundle: %w", err)
	}
	return nil
}

// Fragment returns the sheet as a fragment to \input at the end of a
// document. It starts a fresh one-column page carrying the "annotation"
// hyper target that \AddAnnotationRef links to.
func Fragment(c Content) string {
	return "\n\\clearpage\n\\onecolumn\n\\hypertarget{annotation}{}\n\\pagestyle{empty}\n" + Body(c) + "\n"
}

// Style returns annotation.sty. A non-empty conference is printed in the top
// left corner of the first page.
func Style(conference string) string {
	var b strings.Builder
	b.WriteString(`\NeedsTeXFormat{LaTeX2e}
\ProvidesPackage{annotation}[2024/01/01 CiteAssist citation sheet]

\newif\ifCiteAssist@autocite
\CiteAssist@autocitetrue
\DeclareOption{noautocite}{\CiteAssist@autocitefalse}
\ProcessOptions\relax

\RequirePackage{hyperref}
\RequirePackage{tcolorbox}
\RequirePackage{xcolor}
\RequirePackage{tikz}
\RequirePackage{listings}
\tcbuselibrary{skins,breakable}

\definecolor{CiteAssistBlue}{RGB}{59, 130, 246}

\ifCiteAssist@autocite
  \newcommand{\CiteAssistCite}{\\[0.2em]{\footnotesize Citation sheet by CiteAssist}}
\else
  \newcommand{\CiteAssistCite}{}
\fi

\newcommand{\AddAnnotationRef}{%
  \begin{tikzpicture}[remember picture, overlay]
    \node[anchor=north east, xshift=-10pt, yshift=-10pt,
          fill=CiteAssistBlue, text=white, rounded corners=2pt,
          font=\sffamily\bfseries\small, inner sep=4pt]
      at (current page.north east) {\hyperlink{annotation}{\textcolor{white}{Citation}}};
  \end{tikzpicture}%
}
`)
	if conference != "" {
		fmt.Fprintf(&b, `
\AddToHookNext{shipout/foreground}{%%
  \put(10pt,-20pt){\normalfont\ttfamily\bfseries\small %s}%%
}
`, Escape(conference))
	}
	b.WriteString("\n\\endinput\n")
	return b.String()
}

const instructions = `Citation sheet for LaTeX
========================

The archive holds three files:

- annotation.sty  the package that styles the sheet and provides \AddAnnotationRef
- annotation.tex  the citation sheet itself
- instructions.md this file

Copy annotation.sty and annotation.tex next to your main .tex file.

Preamble
--------

Load the package before \begin{document}:

    \usepackage{annotation}

To leave out the "Citation sheet by CiteAssist" line:

    \usepackage[noautocite]{annotation}

Sheet
-----

Include the sheet where it should appear, usually as the last thing in the
document:

    \input{annotation.tex}

Button
------

To put a "Citation" button in the top right corner of the first page, place
\AddAnnotationRef right after \maketitle:

    \maketitle
    \AddAnnotationRef{}

The button links to the sheet.
`
