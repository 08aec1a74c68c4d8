// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package roster

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/pubdex/pkg/types"
)

var scholarIDRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{12}$`)

// nameSuffixRe strips an optional four-digit disambiguator and an optional
// bracketed qualifier from the end of a roster name, in either order.
var nameSuffixRe = regexp.MustCompile(`\s*(\d{4})?\s*(\[[^\]]*\])?$`)

// ValidScholarID reports whether id is a well-formed scholar profile id or
// the NoScholarPage sentinel.
func ValidScholarID(id string) bool {
	return id == types.NoScholarPage || scholarIDRe.MatchString(id)
}

// Issue is one lint finding for a roster row.
type Issue struct {
	// Name is the canonical faculty name the finding applies to.
	Name string

	// Field names the offending column: "scholarid" or "homepage".
	Field string

	// Detail describes the problem.
	Detail string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Name, i.Field, i.Detail)
}

// Lint checks scholar ids and homepage URLs for every canonical faculty
// row, name-sorted. Online homepage checks (fetch, visible text, name on
// page) run only when cfg.CheckHomepages is set.
func Lint(ctx context.Context, ds *Dataset, cfg types.LintConfig) ([]Issue, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	facs := make([]types.Faculty, len(ds.Faculty))
	copy(facs, ds.Faculty)
	sort.Slice(facs, func(i, j int) bool { return facs[i].Name < facs[j].Name })

	var issues []Issue
	for _, fac := range facs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !ValidScholarID(fac.ScholarID) {
			issues = append(issues, Issue{fac.Name, "scholarid",
				fmt.Sprintf("malformed id %q", fac.ScholarID)})
		}

		if detail := checkHomepageURL(fac.Homepage); detail != "" {
			issues = append(issues, Issue{fac.Name, "homepage", detail})
			continue
		}
		if cfg.CheckHomepages {
			if detail := checkHomepageOnline(ctx, client, fac, cfg.UserAgent); detail != "" {
				issues = append(issues, Issue{fac.Name, "homepage", detail})
			}
		}
	}
	return issues, nil
}

// checkHomepageURL validates the URL offline. An empty return means ok.
func checkHomepageURL(raw string) string {
	if raw == "" {
		return "no homepage"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("unparseable URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Sprintf("URL scheme %q, want http or https", u.Scheme)
	}
	if u.Host == "" {
		return "URL has no host"
	}
	return ""
}

// checkHomepageOnline resolves, fetches, and inspects the homepage. An
// empty return means the page loads and shows the faculty name.
func checkHomepageOnline(ctx context.Context, client *http.Client, fac types.Faculty, userAgent string) string {
	u, err := url.Parse(fac.Homepage)
	if err != nil {
		return fmt.Sprintf("unparseable URL: %v", err)
	}
	if _, err := net.DefaultResolver.LookupHost(ctx, u.Hostname()); err != nil {
		return fmt.Sprintf("hostname %q does not resolve", u.Hostname())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fac.Homepage, nil)
	if err != nil {
		return fmt.Sprintf("building request: %v", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Sprintf("fetch failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Sprintf("returned HTTP %d", resp.StatusCode)
	}

	text, err := VisibleText(resp.Body)
	if err != nil {
		return fmt.Sprintf("parsing page: %v", err)
	}
	if text == "" {
		return "page has no visible text"
	}
	name := strings.TrimSpace(nameSuffixRe.ReplaceAllString(fac.Name, ""))
	if name != "" && !strings.Contains(strings.ToLower(text), strings.ToLower(name)) {
		return fmt.Sprintf("name %q not found on page", name)
	}
	return ""
}

// VisibleText extracts the text a reader would see on a page: everything
// except style, script, head, title, and meta content and comments, with
// whitespace collapsed to single spaces.
func VisibleText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}
	doc.Find("style,script,head,title,meta").Remove()
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}

// TranslateNameToDump converts a roster name to the bibliography site's
// author-page key: periods dropped, hyphens treated as spaces, given names
// joined by underscores after the family name, and a trailing numeric
// disambiguator folded into the family name, so "Ada Lovelace 0001"
// becomes "Lovelace_0001:Ada".
func TranslateNameToDump(name string) string {
	name = strings.ReplaceAll(name, ".", "")
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, "&", "=")
	name = strings.ReplaceAll(name, ";", "=")

	parts := strings.Fields(name)
	if len(parts) == 0 {
		return ""
	}
	last := parts[len(parts)-1]
	parts = parts[:len(parts)-1]
	if n, err := strconv.Atoi(last); err == nil && n > 0 && len(parts) > 0 {
		last = parts[len(parts)-1] + "_" + last
		parts = parts[:len(parts)-1]
	}
	given := strings.Join(parts, "_")
	return escapeDumpKey(last) + ":" + escapeDumpKey(given)
}

// escapeDumpKey percent-encodes a key segment, keeping the '=' placeholders
// the translation introduces literal.
func escapeDumpKey(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "%3D", "=")
}
