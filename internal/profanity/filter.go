// Package profanity decides whether a candidate identifier is an offensive or reserved word.
package profanity

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
)

//go:embed words.txt
var defaultWords string

// Filter is an immutable word set. The zero value contains nothing.
type Filter struct {
	words map[string]struct{}
}

// New builds a filter from the given words. Empty strings are ignored.
func New(words ...string) *Filter {
	f := &Filter{words: make(map[string]struct{}, len(words))}

	for _, w := range words {
		if w == "" {
			continue
		}

		f.words[w] = struct{}{}
	}

	return f
}

// Default returns the filter built from the embedded word list.
func Default() *Filter {
	f, err := Load(strings.NewReader(defaultWords))
	if err != nil {
		// The embedded list is a string reader; scanning it cannot fail.
		panic(err)
	}

	return f
}

// Load reads one word per line. Blank lines and lines starting with # are skipped.
func Load(r io.Reader) (*Filter, error) {
	var words []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		words = append(words, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read word list: %w", err)
	}

	return New(words...), nil
}

// LoadFile reads a word list from disk.
func LoadFile(path string) (*Filter, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word list: %w", err)
	}
	defer file.Close()

	return Load(file)
}

// Contains reports whether word is in the set. Matching is exact and case-sensitive.
func (f *Filter) Contains(word string) bool {
	if f == nil {
		return false
	}

	_, ok := f.words[word]

	return ok
}

// Len returns the number of distinct words.
func (f *Filter) Len() int {
	if f == nil {
		return 0
	}

	return len(f.words)
}
