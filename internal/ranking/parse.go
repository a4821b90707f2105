package ranking

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/moistari/rls"
	"github.com/mozillazg/go-unidecode"

	"novastream/models"
)

// seasonRangeRe and episodeRangeRe catch the multi-season/multi-episode pack
// forms rls.ParseString collapses into a single Series/Episode int ("S01-S03",
// "S01E01-E10", "E01-E26"). No pack-aware release parser in the retrieved
// corpus exposes ranges, so this narrow regexp pass supplements rls directly.
var (
	seasonRangeRe  = regexp.MustCompile(`(?i)s(\d{1,2})\s?-\s?s?(\d{1,2})`)
	episodeRangeRe = regexp.MustCompile(`(?i)e(\d{1,3})\s?-\s?e?(\d{1,3})`)
	completeRe     = regexp.MustCompile(`(?i)\b(complete|completa|season pack)\b`)
	// literalSeasonZeroRe catches an explicit "S00" specials marker. rls's
	// Series field is the zero value both when a season is explicitly "00"
	// and when no season is annotated at all, so this is the only way to
	// tell a literal specials marker apart from a season-less filename.
	literalSeasonZeroRe = regexp.MustCompile(`(?i)\bs00(?:[^0-9]|$)`)
)

// ParseTitle turns a raw release title into ParsedData. It is deterministic
// for fixed inputs, matching §8's round-trip property for ranking.
func ParseTitle(rawTitle string) models.ParsedData {
	release := rls.ParseString(rawTitle)

	pd := models.ParsedData{
		Title:      release.Title,
		Year:       release.Year,
		Resolution: release.Resolution,
		Source:     release.Source,
		Codec:      release.Codec,
		HDR:        release.HDR,
		Group:      release.Group,
	}

	pd.Seasons = expandRange(rawTitle, seasonRangeRe, release.Series)
	if len(pd.Seasons) == 0 && literalSeasonZeroRe.MatchString(rawTitle) {
		pd.Seasons = []int{0}
	}
	pd.Episodes = expandRange(rawTitle, episodeRangeRe, release.Episode)
	pd.IsComplete = completeRe.MatchString(rawTitle) || (len(pd.Seasons) > 0 && len(pd.Episodes) == 0 && release.Episode == 0)

	return pd
}

// expandRange resolves a season/episode annotation to a slice: a detected
// numeric range ("S01-S03"), or the single rls-parsed value when present.
func expandRange(rawTitle string, re *regexp.Regexp, single int) []int {
	if m := re.FindStringSubmatch(rawTitle); m != nil {
		lo, errLo := strconv.Atoi(m[1])
		hi, errHi := strconv.Atoi(m[2])
		if errLo == nil && errHi == nil && hi >= lo {
			out := make([]int, 0, hi-lo+1)
			for n := lo; n <= hi; n++ {
				out = append(out, n)
			}
			return out
		}
	}
	if single > 0 {
		return []int{single}
	}
	return nil
}

// NormalizeHarvestedTitle implements the §4.2/§8 harvester title
// normalization: strip non-ASCII, collapse whitespace, keep the first line
// only. Grounded on the teacher's go-unidecode usage for title comparisons.
func NormalizeHarvestedTitle(raw string) string {
	firstLine := raw
	if idx := strings.IndexAny(raw, "\r\n"); idx >= 0 {
		firstLine = raw[:idx]
	}
	ascii := unidecode.Unidecode(firstLine)
	ascii = stripNonASCII(ascii)
	return strings.TrimSpace(strings.Join(strings.Fields(ascii), " "))
}

func stripNonASCII(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r <= unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// infohashFromMagnetRe extracts a 32-40 hex char BTIH from a magnet link,
// grounded on watchlist2plex.py's `btih:([a-fA-F0-9]{32,40})` regex.
var infohashFromMagnetRe = regexp.MustCompile(`(?i)btih:([a-f0-9]{32,40})`)

// InfoHashFromMagnet extracts the infohash from a magnet URI, or "" if none
// is present.
func InfoHashFromMagnet(magnet string) string {
	m := infohashFromMagnetRe.FindStringSubmatch(magnet)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}
