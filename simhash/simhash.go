// Package simhash fingerprints DOM structure so the batch coordinator can
// collapse URL variants of the same site (www vs apex, tracking params)
// into one browser visit.
package simhash

import (
	"hash/fnv"
	"strings"

	"golang.org/x/net/html"
)

const shingleSize = 3

// Fingerprint hashes the tag-name sequence of an HTML document into a
// 64-bit simhash. Documents with the same template produce identical or
// near-identical fingerprints even when their text differs.
func Fingerprint(htmlStr string) uint64 {
	tags := tagSequence(htmlStr)
	shingles := shingle(tags, shingleSize)
	if len(shingles) == 0 {
		// Too small to shingle: hash the raw sequence so tiny documents
		// still get a stable non-zero fingerprint.
		if len(tags) == 0 {
			return 0
		}
		shingles = []string{strings.Join(tags, "_")}
	}

	var vector [64]int
	for _, s := range shingles {
		h := fnv.New64a()
		h.Write([]byte(s))
		sum := h.Sum64()
		for bit := 0; bit < 64; bit++ {
			if sum&(1<<uint(bit)) != 0 {
				vector[bit]++
			} else {
				vector[bit]--
			}
		}
	}

	var fp uint64
	for bit := 0; bit < 64; bit++ {
		if vector[bit] > 0 {
			fp |= 1 << uint(bit)
		}
	}
	return fp
}

// Distance is the hamming distance between two fingerprints.
func Distance(a, b uint64) int {
	x := a ^ b
	count := 0
	for x != 0 {
		x &= x - 1
		count++
	}
	return count
}

// Similar reports whether two fingerprints are within threshold bits.
func Similar(a, b uint64, threshold int) bool {
	return Distance(a, b) <= threshold
}

// tagSequence returns the document's start/self-closing tag names in order.
func tagSequence(htmlStr string) []string {
	tokenizer := html.NewTokenizer(strings.NewReader(htmlStr))
	var tags []string
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return tags
		case html.StartTagToken, html.SelfClosingTagToken:
			tn, _ := tokenizer.TagName()
			tags = append(tags, string(tn))
		}
	}
}

// shingle builds overlapping n-grams from the tag sequence.
func shingle(tokens []string, n int) []string {
	if len(tokens) < n {
		return nil
	}
	out := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		out = append(out, strings.Join(tokens[i:i+n], "_"))
	}
	return out
}
