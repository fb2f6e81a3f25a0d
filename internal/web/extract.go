package web

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
)

var (
	mdLink       = regexp.MustCompile(`!?\[([^\]]*)\]\([^)]*\)`)
	mdNoise      = regexp.MustCompile("[*_`>#|]+")
	listMarker   = regexp.MustCompile(`^([-+*]|\d+[.)])\s+`)
	sentenceEnd  = regexp.MustCompile(`([.!?])\s+`)
	minWords     = 5
	maxWords     = 60
	stopWordList = strings.Fields(`a about above after again all also am an and any are as at be because been
		before being below between both but by can could did do does doing down during each few for from
		further had has have having he her here hers him his how i if in into is it its itself just me more
		most my no nor not now of off on once only or other our out over own same she should so some such
		than that the their them then there these they this those through to too under until up very was
		we were what when where which while who whom why will with would you your`)
	stopWords = func() map[string]struct{} {
		m := make(map[string]struct{}, len(stopWordList))
		for _, w := range stopWordList {
			m[w] = struct{}{}
		}
		return m
	}()
)

// Sentences splits markdown into plain-text sentences, dropping headings,
// list markers and link targets.
func Sentences(markdown string) []string {
	var out []string
	for _, block := range strings.Split(markdown, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" || strings.HasPrefix(block, "#") || strings.HasPrefix(block, "```") {
			continue
		}
		var lines []string
		for _, line := range strings.Split(block, "\n") {
			line = strings.TrimSpace(line)
			line = listMarker.ReplaceAllString(line, "")
			lines = append(lines, line)
		}
		text := mdLink.ReplaceAllString(strings.Join(lines, " "), "$1")
		text = mdNoise.ReplaceAllString(text, "")
		text = strings.Join(strings.Fields(text), " ")
		for _, s := range strings.Split(sentenceEnd.ReplaceAllString(text, "$1\n"), "\n") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// Extract picks the n most representative sentences of markdown and returns
// them in document order. Sentences are scored by the average frequency of
// their content words across the whole text.
func Extract(markdown string, n int) []string {
	sentences := Sentences(markdown)
	if n <= 0 || len(sentences) == 0 {
		return nil
	}

	freq := map[string]int{}
	words := make([][]string, len(sentences))
	for i, s := range sentences {
		words[i] = contentWords(s)
		for _, w := range words[i] {
			freq[w]++
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	var candidates []scored
	for i, s := range sentences {
		count := len(strings.Fields(s))
		if count < minWords || count > maxWords || len(words[i]) == 0 {
			continue
		}
		total := 0
		for _, w := range words[i] {
			total += freq[w]
		}
		candidates = append(candidates, scored{idx: i, score: float64(total) / float64(len(words[i]))})
	}
	if len(candidates) == 0 {
		// Short texts: fall back to the leading sentences.
		return sentences[:min(n, len(sentences))]
	}

	slices.SortStableFunc(candidates, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return a.idx - b.idx
	})
	candidates = candidates[:min(n, len(candidates))]
	slices.SortFunc(candidates, func(a, b scored) int { return a.idx - b.idx })

	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = sentences[c.idx]
	}
	return out
}

func contentWords(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, w := range fields {
		if len(w) < 3 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}
