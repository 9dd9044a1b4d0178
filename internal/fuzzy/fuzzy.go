// Package fuzzy filters and ranks candidates against a short, interactively
// typed query. A candidate matches when the query bytes occur in its term in
// order, not necessarily next to each other.
package fuzzy

import (
	"bytes"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
)

// MinPartitionSize is the smallest number of candidates worth scoring in a
// goroutine of its own.
const MinPartitionSize = 256

const (
	boundaryBonus = 8
	startBonus    = 4
)

// Searchable is anything that exposes a lowercase byte sequence to match
// against.
type Searchable interface {
	Term() []byte
}

// Text adapts a plain string to Searchable.
type Text string

// Term returns the lowercased string bytes.
func (t Text) Term() []byte {
	return []byte(strings.ToLower(string(t)))
}

// Match is a candidate that matched, with its score. Higher is better; the
// value only has meaning relative to other scores for the same query.
type Match[T Searchable] struct {
	Item  T   `json:"item"`
	Score int `json:"score"`
}

// Find returns the matching items in input order. Large inputs are split
// across GOMAXPROCS goroutines.
func Find[T Searchable](items []T, query string) []Match[T] {
	return FindPartitioned(items, query, Partitions(len(items), MinPartitionSize))
}

// FindPartitioned scores items in the given number of contiguous partitions
// concurrently and concatenates the per-partition results. The output does
// not depend on the partition count.
func FindPartitioned[T Searchable](items []T, query string, partitions int) []Match[T] {
	q := bytes.ToLower([]byte(query))
	if len(q) == 0 || len(items) == 0 {
		return []Match[T]{}
	}
	if partitions < 1 {
		partitions = 1
	}
	if partitions > len(items) {
		partitions = len(items)
	}
	if partitions == 1 {
		return scoreAll(items, q)
	}

	size := (len(items) + partitions - 1) / partitions
	parts := make([][]Match[T], partitions)
	var g errgroup.Group
	for i := range partitions {
		lo := i * size
		hi := min(lo+size, len(items))
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			parts[i] = scoreAll(items[lo:hi], q)
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]Match[T], 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// FindSorted returns the matching strings ordered by descending score. Equal
// scores keep their input order.
func FindSorted(items []string, query string) []string {
	texts := make([]Text, len(items))
	for i, s := range items {
		texts[i] = Text(s)
	}
	matches := Find(texts, query)
	Rank(matches)
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = string(m.Item)
	}
	return out
}

// Rank sorts matches by descending score, stable.
func Rank[T Searchable](matches []Match[T]) {
	slices.SortStableFunc(matches, func(a, b Match[T]) int {
		return b.Score - a.Score
	})
}

func scoreAll[T Searchable](items []T, q []byte) []Match[T] {
	out := make([]Match[T], 0)
	for _, it := range items {
		if s, ok := Score(it.Term(), q); ok {
			out = append(out, Match[T]{Item: it, Score: s})
		}
	}
	return out
}

// Score reports whether query is a subsequence of term and, if so, how
// well it matches. Every matched byte scores the length of the contiguous
// run it belongs to so far; a match whose first byte starts the term or
// follows a separator earns an extra bonus. The best score over all
// possible starting positions is returned.
func Score(term, query []byte) (int, bool) {
	if len(query) == 0 {
		return 0, false
	}
	best, found := 0, false
	for start := bytes.IndexByte(term, query[0]); start >= 0; {
		s, ok := scoreFrom(term, query, start)
		if !ok {
			// A later start cannot succeed where an earlier one failed.
			break
		}
		if !found || s > best {
			best, found = s, true
		}
		next := bytes.IndexByte(term[start+1:], query[0])
		if next < 0 {
			break
		}
		start += next + 1
	}
	return best, found
}

// scoreFrom greedily matches query against term with query[0] pinned at start.
func scoreFrom(term, query []byte, start int) (int, bool) {
	score, run := 0, 0
	prev := -2
	qi := 0
	for ti := start; ti < len(term) && qi < len(query); ti++ {
		if term[ti] != query[qi] {
			continue
		}
		if ti == prev+1 {
			run++
		} else {
			run = 1
		}
		if qi == 0 {
			switch {
			case ti == 0:
				score += boundaryBonus + startBonus
			case isSeparator(term[ti-1]):
				score += boundaryBonus
			}
		}
		score += run
		prev = ti
		qi++
	}
	return score, qi == len(query)
}

func isSeparator(b byte) bool {
	switch b {
	case ' ', '-', '_', '.', '/', '\t', '\n':
		return true
	}
	return false
}

// Partitions returns how many goroutines n candidates are worth: one per
// minSize candidates, capped at GOMAXPROCS, at least one.
func Partitions(n, minSize int) int {
	if minSize < 1 {
		minSize = MinPartitionSize
	}
	p := runtime.GOMAXPROCS(0)
	if byCount := n / minSize; byCount < p {
		p = byCount
	}
	return max(p, 1)
}
