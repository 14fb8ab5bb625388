package reader

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/aqua777/codelens/schema"
)

// ConversationReader parses newline-delimited JSON chat logs. Each line is
// either one message object {role, content, ...} or an array holding a
// whole conversation, one document per turn. Malformed lines are skipped
// with a warning; the load still succeeds.
type ConversationReader struct {
	// Path is the JSONL file to read. Ignored when Source is set.
	Path string
	// Source, when non-nil, is read instead of Path.
	Source io.Reader

	log *zap.Logger
}

// ConversationOption configures a ConversationReader.
type ConversationOption func(*ConversationReader)

// WithConversationSource reads from r instead of a file path.
func WithConversationSource(r io.Reader) ConversationOption {
	return func(c *ConversationReader) { c.Source = r }
}

// WithConversationLogger sets the logger used for skip warnings.
func WithConversationLogger(log *zap.Logger) ConversationOption {
	return func(c *ConversationReader) { c.log = log }
}

// NewConversationReader creates a reader for the given JSONL file.
func NewConversationReader(path string, opts ...ConversationOption) *ConversationReader {
	c := &ConversationReader{Path: path, log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Text renders the turn as indexed document text.
func (m Message) Text() string {
	return fmt.Sprintf("[%s]: %s", m.Role, m.Content)
}

func (c *ConversationReader) LoadDocuments(ctx context.Context) ([]schema.Document, error) {
	src := c.Source
	if src == nil {
		f, err := os.Open(c.Path)
		if err != nil {
			return nil, &schema.ReadError{Source: c.Path, Err: err}
		}
		defer f.Close()
		src = f
	}

	var docs []schema.Document
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line[0] {
		case '[':
			var turns []Message
			if err := json.Unmarshal([]byte(line), &turns); err != nil {
				c.log.Warn("skipping malformed conversation line",
					zap.Int("line", lineNo), zap.Error(err))
				continue
			}
			for i, m := range turns {
				docs = append(docs, c.document(m, lineNo, i))
			}
		default:
			var m Message
			if err := json.Unmarshal([]byte(line), &m); err != nil {
				c.log.Warn("skipping malformed message line",
					zap.Int("line", lineNo), zap.Error(err))
				continue
			}
			docs = append(docs, c.document(m, lineNo, 0))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &schema.ReadError{Source: c.Path, Err: err}
	}
	return docs, nil
}

func (c *ConversationReader) document(m Message, line, turn int) schema.Document {
	return schema.Document{
		ID:   fmt.Sprintf("conversation-%d-%d", line, turn),
		Text: m.Text(),
		Metadata: map[string]interface{}{
			"role":   m.Role,
			"source": "conversation",
			"line":   line,
			"turn":   turn,
		},
	}
}

// EncodeMessages serializes turns back to JSONL, one message per line.
// Parsing the result reproduces the same document texts.
func EncodeMessages(turns []Message) (string, error) {
	var sb strings.Builder
	for _, m := range turns {
		raw, err := json.Marshal(m)
		if err != nil {
			return "", err
		}
		sb.Write(raw)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// exportShape matches chat export files: an array of conversations, each
// with a messages array whose content is either a string or a list of
// typed parts.
type exportConversation struct {
	Title    string `json:"title"`
	Messages []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

// ParseExport parses a chat export document into per-turn documents.
// Multi-part content arrays are joined with spaces over their text parts.
func ParseExport(data []byte, log *zap.Logger) ([]schema.Document, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var convs []exportConversation
	if err := json.Unmarshal(data, &convs); err != nil {
		return nil, &schema.ReadError{Source: "export", Err: err}
	}

	var docs []schema.Document
	for ci, conv := range convs {
		for mi, msg := range conv.Messages {
			content, err := flattenContent(msg.Content)
			if err != nil {
				log.Warn("skipping malformed export message",
					zap.Int("conversation", ci), zap.Int("message", mi), zap.Error(err))
				continue
			}
			m := Message{Role: msg.Role, Content: content}
			docs = append(docs, schema.Document{
				ID:   fmt.Sprintf("export-%d-%d", ci, mi),
				Text: m.Text(),
				Metadata: map[string]interface{}{
					"role":   msg.Role,
					"source": "conversation_export",
					"title":  conv.Title,
					"turn":   mi,
				},
			})
		}
	}
	return docs, nil
}

func flattenContent(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", fmt.Errorf("unsupported content shape: %w", err)
	}
	var texts []string
	for _, p := range parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, " "), nil
}

var _ Reader = (*ConversationReader)(nil)
