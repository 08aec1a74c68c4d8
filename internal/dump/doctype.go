// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dump

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/pubdex/internal/dtd"
)

// docType is the parsed form of a <!DOCTYPE ...> directive.
type docType struct {
	Name     string
	SystemID string
	Internal []byte
}

// parseDocType splits a DOCTYPE directive, without its <! > wrapper, into
// the document type name, the external identifier, and the internal subset.
func parseDocType(directive []byte) (*docType, error) {
	s := strings.TrimSpace(string(directive))
	s = strings.TrimPrefix(s, "DOCTYPE")
	s = strings.TrimLeft(s, " \t\r\n")

	i := strings.IndexAny(s, " \t\r\n[")
	if i < 0 {
		i = len(s)
	}
	dt := &docType{Name: s[:i]}
	if dt.Name == "" {
		return nil, fmt.Errorf("DOCTYPE missing document type name")
	}
	s = s[i:]

	for {
		s = strings.TrimLeft(s, " \t\r\n")
		if s == "" {
			return dt, nil
		}
		switch {
		case s[0] == '[':
			inner, rest, err := bracketed(s)
			if err != nil {
				return nil, err
			}
			dt.Internal = []byte(inner)
			s = rest
		case strings.HasPrefix(s, "SYSTEM"):
			id, rest, err := quoted(s[len("SYSTEM"):])
			if err != nil {
				return nil, fmt.Errorf("DOCTYPE SYSTEM: %w", err)
			}
			dt.SystemID = id
			s = rest
		case strings.HasPrefix(s, "PUBLIC"):
			_, rest, err := quoted(s[len("PUBLIC"):])
			if err != nil {
				return nil, fmt.Errorf("DOCTYPE PUBLIC: %w", err)
			}
			id, rest, err := quoted(rest)
			if err != nil {
				return nil, fmt.Errorf("DOCTYPE PUBLIC: %w", err)
			}
			dt.SystemID = id
			s = rest
		default:
			return nil, fmt.Errorf("malformed DOCTYPE near %q", snippet(s))
		}
	}
}

// quoted reads one quoted literal from the front of s.
func quoted(s string) (lit, rest string, err error) {
	s = strings.TrimLeft(s, " \t\r\n")
	if s == "" || (s[0] != '"' && s[0] != '\'') {
		return "", "", fmt.Errorf("expected quoted literal near %q", snippet(s))
	}
	end := strings.IndexByte(s[1:], s[0])
	if end < 0 {
		return "", "", fmt.Errorf("unterminated literal")
	}
	return s[1 : 1+end], s[end+2:], nil
}

// bracketed reads the internal subset [ ... ] from the front of s. Square
// brackets inside quoted literals do not end the subset.
func bracketed(s string) (inner, rest string, err error) {
	var quote byte
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == ']':
			return s[1:i], s[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("unterminated internal subset")
}

func snippet(s string) string {
	if len(s) > 24 {
		return s[:24] + "..."
	}
	return s
}

// loadDTD assembles the validation model for a document: the internal subset
// is parsed first so its bindings win, then the external subset located on
// the search path.
func loadDTD(dt *docType, searchPath []string) (*dtd.DTD, string, error) {
	if len(dt.Internal) == 0 && dt.SystemID == "" {
		return nil, "", fmt.Errorf("DOCTYPE %s declares no DTD", dt.Name)
	}

	d := dtd.New()
	if len(dt.Internal) > 0 {
		if err := d.ParseBytes(dt.Internal); err != nil {
			return nil, "", fmt.Errorf("internal subset: %w", err)
		}
	}

	var resolved string
	if dt.SystemID != "" {
		path, err := findDTD(dt.SystemID, searchPath)
		if err != nil {
			return nil, "", err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("reading DTD: %w", err)
		}
		if err := d.ParseBytes(data); err != nil {
			return nil, "", fmt.Errorf("%s: %w", path, err)
		}
		resolved = path
	}

	if err := d.Resolve(); err != nil {
		return nil, "", err
	}
	return d, resolved, nil
}

// findDTD resolves a system identifier against the search path, reporting
// every location tried when nothing matches.
func findDTD(systemID string, searchPath []string) (string, error) {
	if strings.Contains(systemID, "://") {
		return "", fmt.Errorf("cannot load remote DTD %q; place a copy on the DTD search path", systemID)
	}
	if filepath.IsAbs(systemID) {
		if _, err := os.Stat(systemID); err != nil {
			return "", fmt.Errorf("DTD %q not found", systemID)
		}
		return systemID, nil
	}
	if len(searchPath) == 0 {
		searchPath = []string{"."}
	}
	tried := make([]string, 0, len(searchPath))
	for _, dir := range searchPath {
		p := filepath.Join(dir, systemID)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
		tried = append(tried, p)
	}
	return "", fmt.Errorf("DTD %q not found; tried %s", systemID, strings.Join(tried, ", "))
}
