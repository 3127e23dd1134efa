package discovery

import (
	"regexp"
	"strings"
)

const maxPrefixes = 20

var (
	tokenPattern   = regexp.MustCompile(`[a-z0-9]+`)
	prefixSanitize = regexp.MustCompile(`[^a-z0-9_]`)
)

// tokenize lower-cases value and splits it into alphanumeric runs
func tokenize(value string) []string {
	return tokenPattern.FindAllString(strings.ToLower(value), -1)
}

// lookupKey is the cache identity of a subject name
func lookupKey(subject string) string {
	return strings.Join(tokenize(subject), " ")
}

// signalTokens drops very short tokens unless nothing else is left
func signalTokens(subject string) []string {
	tokens := tokenize(subject)
	var signal []string
	for _, token := range tokens {
		if len(token) >= 3 {
			signal = append(signal, token)
		}
	}
	if len(signal) == 0 {
		return tokens
	}
	return signal
}

// buildPrefixes derives the community-name prefixes searched for a subject
func buildPrefixes(subject string) []string {
	tokens := tokenize(subject)
	if len(tokens) == 0 {
		return nil
	}

	var prefixes []string
	seen := make(map[string]bool)
	add := func(term string) {
		cleaned := prefixSanitize.ReplaceAllString(strings.ToLower(term), "")
		if len(cleaned) < 2 || seen[cleaned] {
			return
		}
		seen[cleaned] = true
		prefixes = append(prefixes, cleaned)
	}

	add(strings.Join(tokens, ""))
	add(strings.Join(tokens, "_"))

	for _, token := range tokens {
		add(token)
		maxLen := len(token)
		if maxLen > 8 {
			maxLen = 8
		}
		for length := 3; length <= maxLen; length++ {
			add(token[:length])
		}
	}

	for _, span := range []int{2, 3} {
		if len(tokens) >= span {
			add(strings.Join(tokens[:span], ""))
			add(strings.Join(tokens[:span], "_"))
		}
	}

	if len(prefixes) > maxPrefixes {
		prefixes = prefixes[:maxPrefixes]
	}
	return prefixes
}

// nameSimilarity is the share of subject tokens present in the candidate's name, title and description
func nameSimilarity(subjectTokens []string, name, title, description string) float64 {
	if len(subjectTokens) == 0 {
		return 0
	}

	candidate := make(map[string]bool)
	for _, token := range tokenize(name + " " + title + " " + description) {
		candidate[token] = true
	}
	if len(candidate) == 0 {
		return 0
	}

	unique := make(map[string]bool)
	overlap := 0
	for _, token := range subjectTokens {
		if unique[token] {
			continue
		}
		unique[token] = true
		if candidate[token] {
			overlap++
		}
	}

	return float64(overlap) / float64(len(unique))
}

// strictMatch grades how directly the joined subject appears in the candidate
func strictMatch(subject, name, title, description string) float64 {
	joined := strings.Join(tokenize(subject), "")
	if joined == "" {
		return 0
	}

	switch {
	case joined == strings.Join(tokenize(name), ""):
		return 1.0
	case strings.Contains(strings.Join(tokenize(name), ""), joined):
		return 0.85
	case strings.Contains(strings.Join(tokenize(title), ""), joined):
		return 0.7
	case strings.Contains(strings.Join(tokenize(description), ""), joined):
		return 0.45
	}
	return 0
}

// contentRelevance is the share of sampled titles mentioning the subject
func contentRelevance(subjectTokens []string, texts []string) float64 {
	if len(subjectTokens) == 0 || len(texts) == 0 {
		return 0
	}

	wanted := make(map[string]bool)
	for _, token := range subjectTokens {
		wanted[token] = true
	}

	weighted := 0.0
	for _, text := range texts {
		hits := make(map[string]bool)
		for _, token := range tokenize(text) {
			if wanted[token] {
				hits[token] = true
			}
		}
		switch {
		case len(hits) >= 2:
			weighted += 1.0
		case len(hits) == 1:
			weighted += 0.6
		}
	}

	score := weighted / float64(len(texts))
	if score > 1 {
		return 1
	}
	return score
}

func buildReason(content, activity, name, strict float64) string {
	switch {
	case strict >= 0.8 && content >= 0.25:
		return "Direct name match with relevant recent discussion"
	case strict >= 0.8:
		return "Direct name match"
	case name >= 0.55 && content >= 0.30:
		return "Strong title/name relevance with supporting discussion signal"
	case content >= 0.45 && activity >= 0.45:
		return "Frequent recent mentions with healthy activity"
	case strict >= 0.6:
		return "Likely official or close-match community by name"
	case name >= 0.35 && activity >= 0.35:
		return "Relevant match with moderate engagement"
	}
	return "Potential match based on available community signals"
}
