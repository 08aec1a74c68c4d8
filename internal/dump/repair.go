// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dump repairs compressed bibliography XML dumps. A repair
// decompresses the input, strips blank and whitespace-only lines, parses the
// document against its DTD with attribute defaults applied and entities
// expanded, and writes a validated UTF-8 document to a new file.
//
// Positions in error messages refer to the blank-stripped text. Buffered
// runs report line numbers; streaming runs report byte offsets.
package dump

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/pubdex/pkg/types"
)

// Stage names the pipeline phase a repair error came from.
type Stage string

const (
	StageDecompress Stage = "decompress"
	StageDTD        Stage = "dtd-resolution"
	StageValidate   Stage = "validation"
	StageWrite      Stage = "write"
)

// StageError tags a repair failure with the stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// StageOf returns the stage recorded on err, or "" when there is none.
func StageOf(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// Result summarizes one repaired dump.
type Result struct {
	Root           string // document type name
	Elements       int64  // elements written
	BlankLines     int64  // whitespace-only lines removed
	DefaultedAttrs int64  // attribute values supplied from DTD defaults
	DTDPath        string // external DTD actually loaded, if any
}

// Repair cleans the gzip-compressed XML dump at cfg.InputPath into
// cfg.OutputPath. The input file is never modified; the output file appears
// atomically or not at all.
func Repair(ctx context.Context, cfg types.RepairConfig) (*Result, error) {
	in, err := os.Open(cfg.InputPath)
	if err != nil {
		return nil, stageErr(StageDecompress, err)
	}
	defer in.Close()

	gz, err := gzip.NewReader(in)
	if err != nil {
		return nil, stageErr(StageDecompress, fmt.Errorf("%s: %w", cfg.InputPath, err))
	}
	defer gz.Close()

	filter := newBlankLineFilter(gz)
	var src io.Reader = filter
	var buffered []byte
	if cfg.Buffered {
		buffered, err = io.ReadAll(filter)
		if err != nil {
			return nil, stageErr(StageDecompress, err)
		}
		src = bytes.NewReader(buffered)
	}

	res := &Result{}
	if err := repair(ctx, cfg, src, buffered, res); err != nil {
		return nil, err
	}
	res.BlankLines = filter.Dropped()
	return res, nil
}

// repair parses src, validating and re-serializing into a temp file that
// replaces cfg.OutputPath on success.
func repair(ctx context.Context, cfg types.RepairConfig, src io.Reader, buffered []byte, res *Result) (err error) {
	searchPath := cfg.DTDPath
	if len(searchPath) == 0 {
		searchPath = []string{filepath.Dir(cfg.InputPath), "."}
	}

	tmp, err := os.CreateTemp(filepath.Dir(cfg.OutputPath), ".repair-*.tmp")
	if err != nil {
		return stageErr(StageWrite, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	out := newXMLWriter(tmp)
	dec := xml.NewDecoder(src)
	dec.CharsetReader = CharsetReader
	entities := make(map[string]string)
	dec.Entity = entities

	v := &validator{}
	wroteDecl := false

	for n := 0; ; n++ {
		if n%4096 == 0 {
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
		}

		tok, terr := dec.Token()
		if terr == io.EOF {
			break
		}
		if terr != nil {
			return stageErr(tokenStage(terr), terr)
		}

		// The input's XML declaration, if any, is replaced wholesale.
		if !wroteDecl {
			wroteDecl = true
			if pi, ok := tok.(xml.ProcInst); ok && pi.Target == "xml" {
				if werr := out.Declaration(); werr != nil {
					return stageErr(StageWrite, werr)
				}
				continue
			}
			out.Declaration()
			if werr := out.Raw("\n"); werr != nil {
				return stageErr(StageWrite, werr)
			}
		}

		var werr error
		switch t := tok.(type) {
		case xml.StartElement:
			if v.dtd == nil {
				return stageErr(StageDTD,
					fmt.Errorf("no document type declaration before <%s>", tagName(t.Name)))
			}
			start, verr := v.start(t)
			if verr != nil {
				return stageErr(StageValidate, at(dec, buffered, verr))
			}
			res.Elements++
			werr = out.Start(start)
		case xml.EndElement:
			if verr := v.end(t); verr != nil {
				return stageErr(StageValidate, at(dec, buffered, verr))
			}
			werr = out.End(t)
		case xml.CharData:
			if verr := v.text(t); verr != nil {
				return stageErr(StageValidate, at(dec, buffered, verr))
			}
			werr = out.Text(t)
		case xml.Comment:
			werr = out.Comment(t)
		case xml.ProcInst:
			if t.Target == "xml" {
				continue // misplaced declaration, dropped
			}
			werr = out.ProcInst(t)
		case xml.Directive:
			if derr := v.doctype(t, entities, searchPath, res); derr != nil {
				return stageErr(StageDTD, derr)
			}
			werr = out.Directive(t)
		}
		if werr != nil {
			return stageErr(StageWrite, werr)
		}
	}

	if v.dtd == nil {
		return stageErr(StageDTD, fmt.Errorf("document has no document type declaration"))
	}
	if !v.rootDone {
		return stageErr(StageValidate, fmt.Errorf("document has no root element"))
	}
	res.DefaultedAttrs = v.defaulted

	if werr := out.Flush(); werr != nil {
		return stageErr(StageWrite, werr)
	}
	if cerr := tmp.Close(); cerr != nil {
		return stageErr(StageWrite, cerr)
	}
	if rerr := os.Rename(tmpPath, cfg.OutputPath); rerr != nil {
		return stageErr(StageWrite, rerr)
	}
	return nil
}

// tokenStage classifies a decoder error: corruption or truncation surfacing
// from the gzip layer is a decompression failure, anything else failed
// validation. The decoder reports its own truncation as an xml.SyntaxError,
// so a raw io.ErrUnexpectedEOF can only come from the reader.
func tokenStage(err error) Stage {
	var fe flate.CorruptInputError
	switch {
	case errors.Is(err, gzip.ErrHeader),
		errors.Is(err, gzip.ErrChecksum),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.As(err, &fe):
		return StageDecompress
	}
	return StageValidate
}

// at prefixes err with a document position: a line number when the filtered
// text is in memory, a byte offset otherwise.
func at(dec *xml.Decoder, buffered []byte, err error) error {
	off := dec.InputOffset()
	if buffered != nil {
		if off > int64(len(buffered)) {
			off = int64(len(buffered))
		}
		line := 1 + bytes.Count(buffered[:off], []byte("\n"))
		return fmt.Errorf("line %d: %w", line, err)
	}
	return fmt.Errorf("byte %d: %w", off, err)
}

// BatchResult holds the outcome of a batch repair run.
type BatchResult struct {
	Repaired int
	Skipped  int
	Failed   int
}

// Total returns the number of dumps processed.
func (r BatchResult) Total() int { return r.Repaired + r.Skipped + r.Failed }

// HasFailures reports whether any dump failed to repair.
func (r BatchResult) HasFailures() bool { return r.Failed > 0 }

// RepairBatch repairs each dump into outDir, skipping dumps whose repaired
// file already exists. Per-file status lines go to w.
func RepairBatch(ctx context.Context, cfg types.RepairConfig, inputs []string, outDir string, w io.Writer) (BatchResult, error) {
	var res BatchResult
	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		outPath := filepath.Join(outDir, RepairedName(filepath.Base(input)))
		if _, err := os.Stat(outPath); err == nil {
			fmt.Fprintf(w, "skipped: %s (already exists)\n", filepath.Base(outPath))
			res.Skipped++
			continue
		}

		c := cfg
		c.InputPath = input
		c.OutputPath = outPath
		sum, err := Repair(ctx, c)
		if err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", filepath.Base(input), err)
			res.Failed++
			continue
		}
		fmt.Fprintf(w, "repaired: %s (%d elements, %d blank lines removed)\n",
			filepath.Base(outPath), sum.Elements, sum.BlankLines)
		res.Repaired++
	}
	fmt.Fprintf(w, "\nBatch summary: %d repaired, %d skipped, %d failed (total: %d)\n",
		res.Repaired, res.Skipped, res.Failed, res.Total())
	return res, nil
}

// RepairedName maps a dump file name to its repaired counterpart:
// dblp-original.xml.gz becomes dblp-fixed.xml.
func RepairedName(name string) string {
	base := strings.TrimSuffix(name, ".gz")
	base = strings.TrimSuffix(base, ".xml")
	base = strings.TrimSuffix(base, "-original")
	return base + "-fixed.xml"
}
