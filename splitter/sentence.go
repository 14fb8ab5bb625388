package splitter

import (
	"strings"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
	"github.com/pkoukk/tiktoken-go"
)

// Defaults for the sentence splitter.
const (
	DefaultChunkSize    = 512
	DefaultChunkOverlap = 50
	paragraphSeparator  = "\n\n"
)

// Tokenizer counts tokens for chunk budgeting.
type Tokenizer interface {
	Count(text string) int
}

// tiktokenTokenizer counts tokens with the cl100k_base encoding.
type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

func (t *tiktokenTokenizer) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// wordTokenizer is the fallback when the tiktoken encoding is unavailable
// (for example offline without the cached BPE files).
type wordTokenizer struct{}

func (wordTokenizer) Count(text string) int {
	return len(strings.Fields(text))
}

// NewTokenizer returns a cl100k_base tokenizer, falling back to
// whitespace word counting when the encoding cannot be loaded.
func NewTokenizer() Tokenizer {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return wordTokenizer{}
	}
	return &tiktokenTokenizer{enc: enc}
}

// SentenceSplitter chunks prose by sentences, merging them into chunks of
// at most ChunkSize tokens with ChunkOverlap tokens carried between
// neighbors. Sentences come from the trained English tokenizer.
type SentenceSplitter struct {
	ChunkSize    int
	ChunkOverlap int

	tokenizer Tokenizer
	sentencer *sentences.DefaultSentenceTokenizer
}

// NewSentenceSplitter creates a sentence splitter. Zero sizes select
// defaults; tokenizer may be nil.
func NewSentenceSplitter(chunkSize, chunkOverlap int, tokenizer Tokenizer) *SentenceSplitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = DefaultChunkOverlap
	}
	if tokenizer == nil {
		tokenizer = NewTokenizer()
	}

	sentencer, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		// The embedded training data always loads; a failure here means a
		// broken build, and sentence-less splitting still works below.
		sentencer = nil
	}

	return &SentenceSplitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		tokenizer:    tokenizer,
		sentencer:    sentencer,
	}
}

// SplitText splits prose into token-budgeted chunks.
func (s *SentenceSplitter) SplitText(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if s.tokenizer.Count(text) <= s.ChunkSize {
		return []string{strings.TrimSpace(text)}
	}

	var pieces []piece
	for _, para := range strings.Split(text, paragraphSeparator) {
		if strings.TrimSpace(para) == "" {
			continue
		}
		for _, sent := range s.sentencesOf(para) {
			pieces = append(pieces, s.fit(sent)...)
		}
	}
	return s.merge(pieces)
}

type piece struct {
	text   string
	tokens int
}

func (s *SentenceSplitter) sentencesOf(text string) []string {
	if s.sentencer == nil {
		return strings.SplitAfter(text, ". ")
	}
	toks := s.sentencer.Tokenize(text)
	out := make([]string, 0, len(toks))
	for _, t := range toks {
		out = append(out, t.Text)
	}
	return out
}

// fit breaks a single oversized sentence down to word runs within budget.
func (s *SentenceSplitter) fit(sent string) []piece {
	n := s.tokenizer.Count(sent)
	if n <= s.ChunkSize {
		return []piece{{text: sent, tokens: n}}
	}

	var out []piece
	words := strings.Fields(sent)
	var run []string
	runTokens := 0
	flush := func() {
		if len(run) > 0 {
			out = append(out, piece{text: strings.Join(run, " ") + " ", tokens: runTokens})
			run, runTokens = nil, 0
		}
	}
	for _, w := range words {
		wt := s.tokenizer.Count(w)
		if runTokens+wt > s.ChunkSize {
			flush()
		}
		run = append(run, w)
		runTokens += wt
	}
	flush()
	return out
}

// merge packs pieces into chunks, carrying overlap pieces backward.
func (s *SentenceSplitter) merge(pieces []piece) []string {
	var chunks []string
	var cur []piece
	curTokens := 0

	close := func() {
		if len(cur) == 0 {
			return
		}
		var sb strings.Builder
		for _, p := range cur {
			sb.WriteString(p.text)
		}
		if trimmed := strings.TrimSpace(sb.String()); trimmed != "" {
			chunks = append(chunks, trimmed)
		}

		// Seed the next chunk with trailing pieces up to the overlap budget.
		var carry []piece
		carryTokens := 0
		for i := len(cur) - 1; i >= 0; i-- {
			if carryTokens+cur[i].tokens > s.ChunkOverlap {
				break
			}
			carryTokens += cur[i].tokens
			carry = append([]piece{cur[i]}, carry...)
		}
		cur, curTokens = carry, carryTokens
	}

	for _, p := range pieces {
		if curTokens+p.tokens > s.ChunkSize && curTokens > 0 {
			close()
		}
		cur = append(cur, p)
		curTokens += p.tokens
	}
	close()

	return chunks
}

var _ Splitter = (*SentenceSplitter)(nil)
