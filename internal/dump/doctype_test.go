// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dump

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseDocType(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		root     string
		systemID string
		internal string
	}{
		{
			"system",
			`DOCTYPE dblp SYSTEM "dblp.dtd"`,
			"dblp", "dblp.dtd", "",
		},
		{
			"public",
			`DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0//EN" "xhtml1.dtd"`,
			"html", "xhtml1.dtd", "",
		},
		{
			"bare name",
			`DOCTYPE note`,
			"note", "", "",
		},
		{
			"internal subset only",
			`DOCTYPE note [<!ELEMENT note EMPTY>]`,
			"note", "", "<!ELEMENT note EMPTY>",
		},
		{
			"system plus internal",
			`DOCTYPE dblp SYSTEM "dblp.dtd" [<!ENTITY x "y">]`,
			"dblp", "dblp.dtd", `<!ENTITY x "y">`,
		},
		{
			"bracket inside literal",
			`DOCTYPE a [<!ENTITY b "]">]`,
			"a", "", `<!ENTITY b "]">`,
		},
		{
			"newlines",
			"DOCTYPE dblp\n  SYSTEM 'dblp.dtd'\n",
			"dblp", "dblp.dtd", "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dt, err := parseDocType([]byte(tt.in))
			if err != nil {
				t.Fatalf("parseDocType: %v", err)
			}
			if dt.Name != tt.root {
				t.Errorf("Name = %q, want %q", dt.Name, tt.root)
			}
			if dt.SystemID != tt.systemID {
				t.Errorf("SystemID = %q, want %q", dt.SystemID, tt.systemID)
			}
			if string(dt.Internal) != tt.internal {
				t.Errorf("Internal = %q, want %q", dt.Internal, tt.internal)
			}
		})
	}
}

func TestParseDocTypeErrors(t *testing.T) {
	tests := []string{
		"DOCTYPE",
		"DOCTYPE dblp SYSTEM",
		`DOCTYPE dblp SYSTEM "unterminated`,
		`DOCTYPE dblp PUBLIC "only-one"`,
		"DOCTYPE dblp [<!ELEMENT a EMPTY>",
		`DOCTYPE dblp BOGUS "x"`,
	}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			if _, err := parseDocType([]byte(in)); err == nil {
				t.Errorf("parseDocType(%q) should fail", in)
			}
		})
	}
}

func TestFindDTDSearchOrder(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	if err := os.WriteFile(filepath.Join(second, "x.dtd"), []byte("<!ELEMENT a EMPTY>"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := findDTD("x.dtd", []string{first, second})
	if err != nil {
		t.Fatalf("findDTD: %v", err)
	}
	if got != filepath.Join(second, "x.dtd") {
		t.Errorf("findDTD = %q, want the copy in the second directory", got)
	}

	// When both directories hold the file the first one wins.
	if err := os.WriteFile(filepath.Join(first, "x.dtd"), []byte("<!ELEMENT a EMPTY>"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = findDTD("x.dtd", []string{first, second})
	if err != nil {
		t.Fatalf("findDTD: %v", err)
	}
	if got != filepath.Join(first, "x.dtd") {
		t.Errorf("findDTD = %q, want the copy in the first directory", got)
	}
}

func TestFindDTDReportsTriedPaths(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	_, err := findDTD("missing.dtd", []string{a, b})
	if err == nil {
		t.Fatal("findDTD should fail")
	}
	for _, dir := range []string{a, b} {
		if !strings.Contains(err.Error(), filepath.Join(dir, "missing.dtd")) {
			t.Errorf("error should list %s, got: %v", filepath.Join(dir, "missing.dtd"), err)
		}
	}
}

func TestFindDTDRejectsRemote(t *testing.T) {
	_, err := findDTD("http://example.org/dblp.dtd", []string{"."})
	if err == nil || !strings.Contains(err.Error(), "remote") {
		t.Errorf("remote system identifiers should be rejected, got: %v", err)
	}
}
