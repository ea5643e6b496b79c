package grading

import "strings"

// Confidence scores the similarity of a guest's free-text answer to the key
// answer on a 0..1 scale. It is used to suggest overrides to the host, never
// to award points directly. The score is the better of a word-containment
// heuristic (catches "Rhodes" against "Cody Rhodes") and a
// Levenshtein-distance ratio (catches misspellings). Pure string algebra, no
// locale-aware collation.
func Confidence(guestAnswer, keyAnswer string) float64 {
	a := NormalizeText(guestAnswer)
	b := NormalizeText(keyAnswer)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	containment := wordContainmentScore(a, b)
	edit := 1 - float64(levenshtein(a, b))/float64(max(len([]rune(a)), len([]rune(b))))
	if containment > edit {
		return containment
	}
	return edit
}

// wordContainmentScore returns a high score when every word of the shorter
// string appears as a whole word in the longer one, scaled by how much of
// the longer string is covered. Zero otherwise.
func wordContainmentScore(a, b string) float64 {
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	longerWords := strings.Fields(longer)
	for _, word := range strings.Fields(shorter) {
		if !containsWord(longerWords, word) {
			return 0
		}
	}
	return 0.8 + 0.2*float64(len(shorter))/float64(len(longer))
}

func containsWord(words []string, word string) bool {
	for _, w := range words {
		if w == word {
			return true
		}
	}
	return false
}

// levenshtein computes the edit distance between two strings, by rune.
func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := 0; j <= len(rb); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(min(curr[j-1]+1, prev[j]+1), prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
