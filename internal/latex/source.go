// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package latex builds the typesetting source for the citation sheet: the
// standalone document sent to the renderer and the include bundle authors can
// drop into their own LaTeX projects.
package latex

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/citeassist/pkg/types"
)

// Content is what the citation sheet shows.
type Content struct {
	// Citation is the canonical BibTeX entry, printed verbatim.
	Citation string

	// OfficialURL links the official publication. Optional.
	OfficialURL string

	// SheetURL links the hosted copy of the annotated preprint. Optional.
	SheetURL string

	// Related lists related papers, one reference line each. Optional.
	Related []string
}

// sheetMargin is the page margin of the standalone document in points.
const sheetMargin = 50

// Source returns the complete standalone LaTeX document for c, with the paper
// size set to size so the rendered page lines up with the original document.
func Source(c Content, size types.PageSize) string {
	var b strings.Builder
	b.WriteString(`\documentclass[12pt]{article}
\usepackage[utf8]{inputenc}
\usepackage[T1]{fontenc}
\usepackage{hyperref}
\usepackage{geometry}
\usepackage{tcolorbox}
\usepackage{xcolor}
\usepackage{tikz}
\usepackage{listings}
\tcbuselibrary{skins,breakable}
\providecommand{\CiteAssistCite}{}

`)
	fmt.Fprintf(&b, "\\geometry{papersize={%spt,%spt}, margin=%dpt}\n\n",
		formatPoints(size.Width), formatPoints(size.Height), sheetMargin)
	b.WriteString("\\begin{document}\n\\pagestyle{empty}\n\n")
	b.WriteString(Body(c))
	b.WriteString("\n\n\\end{document}\n")
	return b.String()
}

// Body returns the citation sheet body without a preamble. Optional boxes are
// emitted only when their data is non-empty. Related paper lines are
// transliterated to ASCII and escaped here; the citation is left untouched.
func Body(c Content) string {
	var b strings.Builder
	b.WriteString(headerBlock)
	b.WriteString(bibBlockOpen)
	b.WriteString(literateBlock())
	b.WriteString("\\begin{lstlisting}\n")
	b.WriteString(c.Citation)
	b.WriteString("\n\\end{lstlisting}\n\\end{tcolorbox}\n")

	if online := onlineBlock(c.OfficialURL, c.SheetURL); online != "" {
		b.WriteString(online)
	}
	if related := relatedBlock(c.Related); related != "" {
		b.WriteString(related)
	}

	b.WriteString(footerBlock)
	return b.String()
}

func formatPoints(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// boxOptions styles every titled box on the sheet.
func boxOptions(title string) string {
	return `\begin{tcolorbox}[enhanced,
                 frame hidden,
                 boxrule=0pt,
                 borderline west={2pt}{0pt}{Primary},
                 colback=LightBg,
                 sharp corners,
                 breakable,
                 fonttitle=\sffamily\bfseries\large,
                 coltitle=Primary,
                 title=` + title + `,
                 attach title to upper={\vspace{0.2em}\par},
                 left=12pt]
`
}

func onlineBlock(officialURL, sheetURL string) string {
	if officialURL == "" && sheetURL == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n% ------------- Online version link -------------\n\\vspace{0.8em}\n")
	b.WriteString(boxOptions("Online Access"))
	b.WriteString("\n\\renewcommand{\\arraystretch}{1.5}\n")
	b.WriteString("\\begin{tabular}{@{}p{0.25\\textwidth}@{}p{0.75\\textwidth}@{}}\n")
	if officialURL != "" {
		fmt.Fprintf(&b, "\\textbf{\\sffamily Official Publication} &\n\\begin{minipage}[t]{0.72\\textwidth}\n\\href{%s}{\\color{Primary}\\url{%s}}\n\\end{minipage}\\\\\n", officialURL, officialURL)
	}
	if sheetURL != "" {
		fmt.Fprintf(&b, "\\textbf{\\sffamily CiteAssist} &\n\\begin{minipage}[t]{0.72\\textwidth}\n\\href{%s}{\\color{Primary}\\url{%s}}\n\\end{minipage}\\\\\n", sheetURL, sheetURL)
	}
	b.WriteString("\\end{tabular}\n\n\\end{tcolorbox}\n")
	return b.String()
}

func relatedBlock(related []string) string {
	var items []string
	for _, r := range related {
		r = Escape(Transliterate(r))
		if strings.TrimSpace(r) != "" {
			items = append(items, "  \\item "+r)
		}
	}
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n% --------------  Related papers  ---------------\n\\vspace{0.8em}\n")
	b.WriteString(boxOptions("Related Papers"))
	b.WriteString("\\begin{itemize}\\itemsep 2pt\n")
	b.WriteString(strings.Join(items, "\n"))
	b.WriteString("\n\\end{itemize}\n\\end{tcolorbox}\n")
	return b.String()
}

const headerBlock = `% --------- Listing style ---------
\lstset{
  basicstyle=\footnotesize\ttfamily,
  breaklines=true,
  breakatwhitespace=false,
  columns=flexible,
  numbers=none
}

% --------- Colour palette ---------
\definecolor{Primary}{RGB}{59, 130, 246}
\definecolor{PrimaryDark}{RGB}{30, 64, 175}
\definecolor{LightBg}{RGB}{239, 246, 255}
\definecolor{TextDark}{RGB}{31, 41, 55}
\definecolor{TextMuted}{RGB}{107, 114, 128}

% --------- Header bar ---------
\begin{tikzpicture}[remember picture, overlay]
  \fill[Primary] ([xshift=0cm,yshift=0cm]current page.north west) rectangle ([xshift=\paperwidth,yshift=-0.4cm]current page.north west);
\end{tikzpicture}

\vspace{0.8cm}
\begin{center}
  {\fontsize{22}{26}\selectfont\sffamily\bfseries \textcolor{PrimaryDark}{CiteAssist}}\\[0.2em]
  {\Large\sffamily\scshape \textcolor{TextMuted}{Citation Sheet}}\\[0.8em]
  {\small\sffamily Generated with \href{https://citeassist.uni-goettingen.de/}{\textcolor{Primary}{\texttt{citeassist.uni-goettingen.de}}}
  \CiteAssistCite{}
  }\end{center}

\begin{center}
\vspace{1em}
\begin{tikzpicture}
\draw[Primary, line width=0.6pt] (0,0) -- (\textwidth,0);
\end{tikzpicture}
\vspace{1.2em}
\end{center}

`

const bibBlockOpen = `% --------------  BibTeX block  -----------------
\begin{tcolorbox}[enhanced,
                 frame hidden,
                 boxrule=0pt,
                 borderline west={2pt}{0pt}{Primary},
                 colback=LightBg,
                 sharp corners,
                 breakable,
                 fonttitle=\sffamily\bfseries\large,
                 coltitle=Primary,
                 title=BibTeX Entry,
                 attach title to upper={\vspace{0.2em}\par},
                 left=12pt]
`

const footerBlock = `
% ------ Footer ------
\vfill
\begin{tikzpicture}
\draw[Primary!40, line width=0.4pt] (0,0) -- (\textwidth,0);
\end{tikzpicture}
\begin{center}
\small\sffamily\textcolor{TextMuted}{Generated \today}
\end{center}`
