package splitter

import "strings"

// Defaults for the line-window code splitter.
const (
	DefaultCodeWindowLines  = 40
	DefaultCodeOverlapLines = 15
	DefaultCodeMaxChars     = 1500
)

// CodeSplitter chunks source files by a fixed line window with overlap.
// Chunks never exceed MaxChars regardless of the window.
type CodeSplitter struct {
	WindowLines  int
	OverlapLines int
	MaxChars     int
}

// NewCodeSplitter creates a code splitter; zero values select defaults.
func NewCodeSplitter(windowLines, overlapLines int) *CodeSplitter {
	if windowLines <= 0 {
		windowLines = DefaultCodeWindowLines
	}
	if overlapLines <= 0 || overlapLines >= windowLines {
		overlapLines = DefaultCodeOverlapLines
	}
	return &CodeSplitter{
		WindowLines:  windowLines,
		OverlapLines: overlapLines,
		MaxChars:     DefaultCodeMaxChars,
	}
}

// SplitText splits source text into line-window chunks.
func (s *CodeSplitter) SplitText(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	step := s.WindowLines - s.OverlapLines

	var chunks []string
	for start := 0; start < len(lines); start += step {
		end := start + s.WindowLines
		if end > len(lines) {
			end = len(lines)
		}
		chunk := strings.Join(lines[start:end], "\n")
		for len(chunk) > s.MaxChars {
			cut := s.MaxChars
			// Prefer cutting at a line boundary inside the cap.
			if nl := strings.LastIndex(chunk[:cut], "\n"); nl > 0 {
				cut = nl
			}
			chunks = append(chunks, strings.TrimRight(chunk[:cut], "\n"))
			chunk = strings.TrimLeft(chunk[cut:], "\n")
		}
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(lines) {
			break
		}
	}
	return chunks
}

var _ Splitter = (*CodeSplitter)(nil)
