package verifier

import (
	"regexp"
	"strconv"
	"strings"
)

// The deployed verifier script embeds its signals in free text, so the
// marker formats below are contractual: PROGRESS:<int> for incremental
// progress, "similarity <float>%" for the score, and the literal phrase
// "Face accepted" for an accept decision.
var (
	progressRegexp   = regexp.MustCompile(`PROGRESS:(\d+)`)
	similarityRegexp = regexp.MustCompile(`(?i)similarity ([0-9.]+)%`)
)

const acceptedPhrase = "Face accepted"

func progressMarkers(text string) []int {
	matches := progressRegexp.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	values := make([]int, 0, len(matches))
	for _, m := range matches {
		value, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		values = append(values, value)
	}
	return values
}

func parseSimilarity(output string) float64 {
	match := similarityRegexp.FindStringSubmatch(output)
	if match == nil {
		return 0
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0
	}
	return value
}

func accepted(output string) bool {
	return strings.Contains(output, acceptedPhrase)
}
