// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dblp scans bibliography dumps into per-author publication records
// and research-area tallies. Dumps must be repaired first: raw dumps with
// unexpanded named entities fail to parse.
package dblp

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/pubdex/internal/dump"
	"github.com/pdiddy/pubdex/pkg/types"
)

// Result holds everything one pass over a dump produces.
type Result struct {
	// Records lists one entry per author credit, in document order.
	Records []types.PubRecord

	// AuthorInfos aggregates Records per author and area, sorted by name
	// then area.
	AuthorInfos []types.AuthorInfo

	// Areas tallies kept papers per research area.
	Areas map[string]int

	// Papers counts kept publication records.
	Papers int

	// Skipped counts records dropped for missing venue, year, or authors,
	// or for falling below the year floor.
	Skipped int
}

// record is the slice of a publication element the scan cares about.
// flatText fields keep the text of nested markup (<i>, <sub>) that plain
// string fields would drop.
type record struct {
	Booktitle flatText   `xml:"booktitle"`
	Journal   flatText   `xml:"journal"`
	Year      string     `xml:"year"`
	Title     flatText   `xml:"title"`
	Authors   []flatText `xml:"author"`
}

// flatText collects all character data in an element's subtree.
type flatText string

func (t *flatText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var b strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			b.Write(tok)
		}
	}
	*t = flatText(b.String())
	return nil
}

// Scan streams the dump at cfg.DumpPath and collects a publication record
// for every author credit on a top-level inproceedings or article element.
// Records missing a venue, a numeric year, or authors are skipped, as are
// records older than cfg.StartYear when it is set.
func Scan(ctx context.Context, cfg types.ScanConfig) (*Result, error) {
	src, closeSrc, err := openDump(cfg.DumpPath)
	if err != nil {
		return nil, err
	}
	defer closeSrc()

	res := &Result{Areas: make(map[string]int)}
	infos := make(map[authorArea]*types.AuthorInfo)

	dec := xml.NewDecoder(src)
	dec.CharsetReader = dump.CharsetReader

	rootSeen := false
	tokens := 0
	for {
		tokens++
		if tokens&4095 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing dump: %w", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if !rootSeen {
			rootSeen = true
			continue
		}

		switch se.Name.Local {
		case "inproceedings", "article":
			var rec record
			if err := dec.DecodeElement(&rec, &se); err != nil {
				return nil, fmt.Errorf("parsing dump: %w", err)
			}
			res.add(rec, cfg.StartYear, infos)
		default:
			if err := dec.Skip(); err != nil {
				return nil, fmt.Errorf("parsing dump: %w", err)
			}
		}
	}
	if !rootSeen {
		return nil, fmt.Errorf("%s: no XML content", cfg.DumpPath)
	}

	res.AuthorInfos = sortedInfos(infos)
	return res, nil
}

// authorArea keys the per-author aggregation.
type authorArea struct {
	name string
	area string
}

func (r *Result) add(rec record, startYear int, infos map[authorArea]*types.AuthorInfo) {
	venue := strings.TrimSpace(string(rec.Booktitle))
	if venue == "" {
		venue = strings.TrimSpace(string(rec.Journal))
	}
	year, _ := strconv.Atoi(strings.TrimSpace(rec.Year))

	var authors []string
	for _, a := range rec.Authors {
		if name := strings.TrimSpace(string(a)); name != "" {
			authors = append(authors, name)
		}
	}

	if venue == "" || year == 0 || len(authors) == 0 {
		r.Skipped++
		return
	}
	if startYear > 0 && year < startYear {
		r.Skipped++
		return
	}

	area := AreaForVenue(venue)
	title := strings.TrimSpace(string(rec.Title))
	share := 1.0 / float64(len(authors))

	r.Papers++
	r.Areas[area]++
	for _, author := range authors {
		r.Records = append(r.Records, types.PubRecord{
			Author: author,
			Venue:  venue,
			Area:   area,
			Year:   year,
			Title:  title,
		})

		key := authorArea{author, area}
		info := infos[key]
		if info == nil {
			info = &types.AuthorInfo{Name: author, Area: area}
			infos[key] = info
		}
		info.Count++
		info.AdjustedCount += share
	}
}

func sortedInfos(infos map[authorArea]*types.AuthorInfo) []types.AuthorInfo {
	out := make([]types.AuthorInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Area < out[j].Area
	})
	return out
}

// AuthorSet streams the dump and returns every distinct author spelling,
// including authors on records the publication scan skips (homepages,
// theses, incomplete entries).
func AuthorSet(ctx context.Context, dumpPath string) (map[string]bool, error) {
	src, closeSrc, err := openDump(dumpPath)
	if err != nil {
		return nil, err
	}
	defer closeSrc()

	names := make(map[string]bool)
	dec := xml.NewDecoder(src)
	dec.CharsetReader = dump.CharsetReader

	tokens := 0
	for {
		tokens++
		if tokens&4095 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing dump: %w", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "author" {
			continue
		}
		var name flatText
		if err := dec.DecodeElement(&name, &se); err != nil {
			return nil, fmt.Errorf("parsing dump: %w", err)
		}
		if s := strings.TrimSpace(string(name)); s != "" {
			names[s] = true
		}
	}
	return names, nil
}

// openDump opens a dump file, transparently decompressing .gz paths.
func openDump(path string) (io.Reader, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening dump: %w", err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, func() { f.Close() }, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("decompressing dump: %w", err)
	}
	return gz, func() {
		gz.Close()
		f.Close()
	}, nil
}

// WriteAuthorInfos writes the aggregated author-info CSV
// (name, area, count, adjustedcount).
func WriteAuthorInfos(path string, infos []types.AuthorInfo) error {
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, []string{
			info.Name,
			info.Area,
			strconv.Itoa(info.Count),
			strconv.FormatFloat(info.AdjustedCount, 'g', -1, 64),
		})
	}
	return writeCSV(path, []string{"name", "area", "count", "adjustedcount"}, rows)
}

// WriteRecords writes one CSV row per author credit
// (author, venue, area, year, title).
func WriteRecords(path string, recs []types.PubRecord) error {
	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, []string{
			rec.Author,
			rec.Venue,
			rec.Area,
			strconv.Itoa(rec.Year),
			rec.Title,
		})
	}
	return writeCSV(path, []string{"author", "venue", "area", "year", "title"}, rows)
}

// writeCSV writes header and rows to path through a temp file in the same
// directory so a failed run leaves no partial output.
func writeCSV(path string, header []string, rows [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".scan-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	w := csv.NewWriter(tmp)
	werr := w.Write(header)
	for _, row := range rows {
		if werr != nil {
			break
		}
		werr = w.Write(row)
	}
	if werr == nil {
		w.Flush()
		werr = w.Error()
	}
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Rename(tmpPath, path)
	}
	if werr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, werr)
	}
	return nil
}
