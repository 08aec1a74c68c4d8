// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package dblp

import (
	"sort"
	"strings"
)

// AreaUnknown labels publications whose venue is not in the area table.
const AreaUnknown = "unknown"

// venueAreas maps canonical venue keys to research-area labels. The table
// mirrors the CSrankings conference list.
var venueAreas = map[string]string{
	"AAAI":            "ai",
	"IJCAI":           "ai",
	"CVPR":            "vision",
	"ECCV":            "vision",
	"ICCV":            "vision",
	"ICML":            "mlmining",
	"KDD":             "mlmining",
	"ICLR":            "mlmining",
	"NeurIPS":         "mlmining",
	"NIPS":            "mlmining",
	"ACL":             "nlp",
	"EMNLP":           "nlp",
	"NAACL":           "nlp",
	"SIGIR":           "inforet",
	"WWW":             "inforet",
	"ASPLOS":          "arch",
	"ISCA":            "arch",
	"MICRO":           "arch",
	"HPCA":            "arch",
	"SIGCOMM":         "comm",
	"NSDI":            "comm",
	"CCS":             "sec",
	"Oakland":         "sec",
	"USENIX Security": "sec",
	"NDSS":            "sec",
	"PETS":            "sec",
	"SIGMOD":          "mod",
	"VLDB":            "mod",
	"ICDE":            "mod",
	"PODS":            "mod",
	"SC":              "hpc",
	"HPDC":            "hpc",
	"ICS":             "hpc",
	"MobiCom":         "mobile",
	"MobiSys":         "mobile",
	"SenSys":          "mobile",
	"IMC":             "metrics",
	"SIGMETRICS":      "metrics",
	"SOSP":            "ops",
	"OSDI":            "ops",
	"FAST":            "ops",
	"USENIX ATC":      "ops",
	"EuroSys":         "ops",
	"PLDI":            "plan",
	"POPL":            "plan",
	"ICFP":            "plan",
	"OOPSLA":          "plan",
	"FSE":             "soft",
	"ICSE":            "soft",
	"ASE":             "soft",
	"ISSTA":           "soft",
	"FOCS":            "act",
	"SODA":            "act",
	"STOC":            "act",
	"CRYPTO":          "crypt",
	"EUROCRYPT":       "crypt",
	"CAV":             "log",
	"LICS":            "log",
	"SIGGRAPH":        "graph",
	"SIGGRAPH Asia":   "graph",
	"Eurographics":    "graph",
}

// areaByVenue is venueAreas re-keyed by lower-cased venue for exact lookups.
var areaByVenue = lowerVenueAreas()

// venueKeys holds the lower-cased venue keys ordered most-specific first
// (more words, then longer, then alphabetical) so phrase matching is
// deterministic: "SIGGRAPH Asia" wins over "SIGGRAPH", "ICSE" over "ICS".
var venueKeys = sortedVenueKeys()

func lowerVenueAreas() map[string]string {
	m := make(map[string]string, len(venueAreas))
	for k, v := range venueAreas {
		m[strings.ToLower(k)] = v
	}
	return m
}

func sortedVenueKeys() []string {
	keys := make([]string, 0, len(areaByVenue))
	for k := range areaByVenue {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		wi, wj := len(strings.Fields(keys[i])), len(strings.Fields(keys[j]))
		if wi != wj {
			return wi > wj
		}
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

// AreaForVenue classifies a venue string into a research area. Exact venue
// keys match case-insensitively; otherwise a key matches when its words
// appear consecutively in the venue name, so "Proc. of the AAAI Conference"
// still lands in "ai". Venues with no match classify as AreaUnknown.
func AreaForVenue(venue string) string {
	v := strings.ToLower(strings.TrimSpace(venue))
	if v == "" {
		return AreaUnknown
	}
	if area, ok := areaByVenue[v]; ok {
		return area
	}

	words := fields(v)
	for _, key := range venueKeys {
		if containsPhrase(words, strings.Fields(key)) {
			return areaByVenue[key]
		}
	}
	return AreaUnknown
}

// Areas returns the sorted set of known area labels, without AreaUnknown.
func Areas() []string {
	seen := make(map[string]bool)
	for _, area := range venueAreas {
		seen[area] = true
	}
	areas := make([]string, 0, len(seen))
	for area := range seen {
		areas = append(areas, area)
	}
	sort.Strings(areas)
	return areas
}

// fields splits a venue name into words, treating punctuation as spaces so
// "Proc. of AAAI-24" yields "proc of aaai 24".
func fields(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9' || r > 127)
	})
}

// containsPhrase reports whether phrase appears as consecutive words.
func containsPhrase(words, phrase []string) bool {
	if len(phrase) == 0 || len(phrase) > len(words) {
		return false
	}
	for i := 0; i+len(phrase) <= len(words); i++ {
		match := true
		for j, p := range phrase {
			if words[i+j] != p {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
