package batch

import "video-compressor/failure"

// Summary aggregates a batch's results
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	DryRun    int
	ByReason  map[failure.Kind]int

	SourceBytes int64 // of succeeded items
	OutputBytes int64
}

// Summarize counts results by outcome
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results), ByReason: map[failure.Kind]int{}}
	for _, r := range results {
		switch r.Status {
		case StatusSucceeded:
			s.Succeeded++
			if r.DryRun {
				s.DryRun++
				continue
			}
			if r.Info != nil {
				s.SourceBytes += r.Info.SizeBytes
			}
			s.OutputBytes += r.OutputSizeBytes
		case StatusFailed:
			s.Failed++
			s.ByReason[r.Reason]++
		}
	}
	return s
}

// Saved is the number of bytes the succeeded encodes removed
func (s Summary) Saved() int64 {
	return s.SourceBytes - s.OutputBytes
}
