// Package chunker splits document text into fixed-size overlapping windows.
package chunker

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned when size and overlap do not satisfy 0 <= overlap < size.
var ErrInvalidArgument = errors.New("invalid chunking arguments")

// Window is one chunk of a text. Start and End are byte offsets into the
// original text, so text[Start:End] == Text.
type Window struct {
	Text  string
	Start int
	End   int
}

// Split walks text in windows of size characters, advancing by size-overlap each step.
// Characters are Unicode code points. The last chunk may be shorter than size.
// Empty text yields no chunks; text no longer than size yields exactly one.
func Split(text string, size, overlap int) ([]string, error) {
	windows, err := Windows(text, size, overlap)
	if err != nil {
		return nil, err
	}
	chunks := make([]string, len(windows))
	for i, w := range windows {
		chunks[i] = w.Text
	}
	return chunks, nil
}

// Windows is Split with byte offsets attached to every chunk.
func Windows(text string, size, overlap int) ([]Window, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}

	// offsets[i] is the byte index of rune i; offsets[n] == len(text)
	offsets := make([]int, 0, len(text)+1)
	for i := range text {
		offsets = append(offsets, i)
	}
	n := len(offsets)
	offsets = append(offsets, len(text))

	step := size - overlap
	windows := make([]Window, 0, Count(n, size, overlap))
	for start := 0; ; start += step {
		end := min(start+size, n)
		windows = append(windows, Window{
			Text:  text[offsets[start]:offsets[end]],
			Start: offsets[start],
			End:   offsets[end],
		})
		if end == n {
			break
		}
	}
	return windows, nil
}

// Count returns how many chunks Split produces for a text of length characters.
// It returns 0 when the arguments are invalid.
func Count(length, size, overlap int) int {
	if validate(size, overlap) != nil || length <= 0 {
		return 0
	}
	if length <= size {
		return 1
	}
	step := size - overlap
	return (length - overlap + step - 1) / step
}

func validate(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: size must be positive, got %d", ErrInvalidArgument, size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("%w: overlap must be in [0, %d), got %d", ErrInvalidArgument, size, overlap)
	}
	return nil
}
