package progress

import (
	"bufio"
	"io"
	"iter"
)

// maxLine bounds a single progress line; metadata dumps can exceed the
// scanner's 64KB default
const maxLine = 1024 * 1024

// Lines yields r line by line until EOF. A read error is yielded once as the
// final element. The sequence is single-use.
func Lines(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
		for scanner.Scan() {
			if !yield(scanner.Text(), nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield("", err)
		}
	}
}

// Stream feeds every line of r to m and yields the resulting snapshots.
// It ends when r is closed; a read error is yielded last.
func Stream(r io.Reader, m *Monitor) iter.Seq2[Snapshot, error] {
	return func(yield func(Snapshot, error) bool) {
		for line, err := range Lines(r) {
			if err != nil {
				yield(Snapshot{}, err)
				return
			}
			if s, ok := m.Feed(line); ok {
				if !yield(s, nil) {
					return
				}
			}
		}
	}
}
