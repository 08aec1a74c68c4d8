// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analyze

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/pdiddy/pubdex/pkg/types"
)

// reportTopN caps the keyword and venue tables in the report.
const reportTopN = 20

// WriteReport renders the analysis as a Markdown summary.
func WriteReport(analysis *Analysis, w io.Writer) {
	fmt.Fprintln(w, "# Publication analysis")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Authors: %s\n", strings.Join(analysis.Authors, ", "))
	fmt.Fprintf(w, "Papers: %d (%d-%d, with abstracts)\n",
		analysis.PaperCount, analysis.YearFrom, analysis.YearTo)

	if len(analysis.Years) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "## Papers per year")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "```")
		for _, yc := range analysis.Years {
			fmt.Fprintf(w, "%d  %s %d\n", yc.Year, strings.Repeat("#", yc.Count), yc.Count)
		}
		fmt.Fprintln(w, "```")
	}

	writeTallyTable(w, "Top keywords", "Keyword", "Count", analysis.Keywords, reportTopN)
	writeTallyTable(w, "Merged keywords", "Keyword", "Weight", analysis.MergedKeywords, reportTopN)
	writeTallyTable(w, "Top venues", "Venue", "Count", analysis.Venues, reportTopN)
	writeTallyTable(w, "Themes", "Theme", "Weight", analysis.Themes, 0)
}

// writeTallyTable renders one Markdown table section; empty tallies are
// omitted entirely. A topN of zero keeps all rows.
func writeTallyTable(w io.Writer, heading, labelCol, countCol string, tallies []Tally, topN int) {
	if len(tallies) == 0 {
		return
	}
	if topN > 0 && len(tallies) > topN {
		tallies = tallies[:topN]
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "## %s\n", heading)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "| %s | %s |\n", labelCol, countCol)
	fmt.Fprintln(w, "|---|---:|")
	for _, t := range tallies {
		fmt.Fprintf(w, "| %s | %d |\n", t.Label, t.Count)
	}
}

// GenerateBibTeX produces BibTeX entries for the given papers. Citation
// keys follow the family-year-word convention with numeric suffixes on
// collisions.
func GenerateBibTeX(papers []types.Paper) string {
	var b strings.Builder
	used := make(map[string]int)

	for _, p := range papers {
		key := bibKey(p)
		used[key]++
		if n := used[key]; n > 1 {
			key = key + "-" + strconv.Itoa(n)
		}

		fmt.Fprintf(&b, "@article{%s,\n", key)
		fmt.Fprintf(&b, "  title = {%s},\n", p.Title)
		if len(p.Authors) > 0 {
			fmt.Fprintf(&b, "  author = {%s},\n", strings.Join(p.Authors, " and "))
		}
		if p.Year > 0 {
			fmt.Fprintf(&b, "  year = {%d},\n", p.Year)
		}
		if p.Venue != "" {
			fmt.Fprintf(&b, "  journal = {%s},\n", p.Venue)
		}
		if p.URL != "" {
			fmt.Fprintf(&b, "  url = {%s},\n", p.URL)
		}
		if strings.HasPrefix(p.ID, "10.") {
			fmt.Fprintf(&b, "  doi = {%s},\n", p.ID)
		}
		fmt.Fprintf(&b, "}\n\n")
	}
	return b.String()
}

// titleStopWords are skipped when picking the title word of a citation key.
var titleStopWords = map[string]bool{
	"a": true, "an": true, "the": true, "on": true, "of": true,
	"in": true, "for": true, "and": true, "to": true, "with": true,
}

// bibKey derives a citation key such as "lovelace2021efficient" from the
// first author's family name, the year, and the first significant title word.
func bibKey(p types.Paper) string {
	family := "anon"
	if len(p.Authors) > 0 {
		parts := strings.Fields(p.Authors[0])
		if len(parts) > 0 {
			if f := keyChars(parts[len(parts)-1]); f != "" {
				family = f
			}
		}
	}

	word := ""
	for _, f := range strings.Fields(p.Title) {
		wd := keyChars(f)
		if wd == "" || titleStopWords[wd] {
			continue
		}
		word = wd
		break
	}

	key := family
	if p.Year > 0 {
		key += strconv.Itoa(p.Year)
	}
	return key + word
}

// keyChars lower-cases and strips everything but letters and digits.
func keyChars(s string) string {
	return strings.Map(func(r rune) rune {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
