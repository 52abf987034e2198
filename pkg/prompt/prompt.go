// Package prompt builds model prompts for summaries and structured extraction.
package prompt

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jmylchreest/distill/internal/logger"
	"github.com/jmylchreest/distill/pkg/schema"
	"github.com/jmylchreest/distill/pkg/source"
)

// Mode selects what the model is asked to produce.
type Mode string

const (
	ModeSummary   Mode = "summary"
	ModeKeyPoints Mode = "key_points"
	ModeEntities  Mode = "entities"
	ModeCustom    Mode = "custom"
)

// ExtractionModes are the modes served by the extract endpoint.
var ExtractionModes = []Mode{ModeKeyPoints, ModeEntities, ModeCustom}

var (
	ErrUnknownMode         = errors.New("unknown mode")
	ErrMissingInstructions = errors.New("custom extraction requires instructions")
	ErrInvalidMaxLength    = errors.New("max length must be positive")
)

// ParseMode accepts mode names case-insensitively, with - or _ separators.
func ParseMode(s string) (Mode, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	switch m := Mode(norm); m {
	case ModeSummary, ModeKeyPoints, ModeEntities, ModeCustom:
		return m, nil
	case "keypoints":
		return ModeKeyPoints, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Options are the per-request prompt settings.
type Options struct {
	MaxLength          int // summary length in words, 0 uses the builder default
	CustomInstructions string
	Schema             *schema.Schema // optional shape for custom extraction
}

// Prompt is a built prompt, ready for the model client.
type Prompt struct {
	Mode       Mode
	System     string
	User       string
	JSONSchema map[string]any // nil for free-form output
}

// Config holds builder limits.
type Config struct {
	MaxTokens        int // quoted to the model as its output budget
	MaxContentSize   int // bytes of content kept, 0 means no limit
	DefaultMaxLength int
}

// DefaultConfig returns the builder defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:        1024,
		DefaultMaxLength: 1000,
	}
}

// Builder renders prompts for a Document.
type Builder struct {
	cfg Config
}

// NewBuilder creates a Builder. Zero config values take the defaults.
func NewBuilder(cfg Config) *Builder {
	def := DefaultConfig()
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.DefaultMaxLength == 0 {
		cfg.DefaultMaxLength = def.DefaultMaxLength
	}
	return &Builder{cfg: cfg}
}

// Config returns the builder configuration.
func (b *Builder) Config() Config {
	return b.cfg
}

// Build renders the prompt for mode.
func (b *Builder) Build(mode Mode, doc *source.Document, opts Options) (Prompt, error) {
	if doc == nil {
		return Prompt{}, errors.New("nil document")
	}

	content := truncateContent(doc.Text, b.cfg.MaxContentSize)

	p := Prompt{Mode: mode, System: systemPrompt}
	switch mode {
	case ModeSummary:
		maxLength := opts.MaxLength
		if maxLength == 0 {
			maxLength = b.cfg.DefaultMaxLength
		}
		if maxLength <= 0 {
			return Prompt{}, fmt.Errorf("%w: %d", ErrInvalidMaxLength, maxLength)
		}
		p.User = b.summary(doc, content, maxLength)
	case ModeKeyPoints:
		p.User = b.keyPoints(content)
	case ModeEntities:
		p.User = b.entities(content)
	case ModeCustom:
		instructions := strings.TrimSpace(opts.CustomInstructions)
		if instructions == "" {
			return Prompt{}, ErrMissingInstructions
		}
		p.User = b.custom(content, instructions, opts.Schema)
	default:
		return Prompt{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	p.JSONSchema = OutputSchema(mode, opts.Schema)

	logger.Debug("prompt built",
		"mode", mode,
		"source_type", doc.Type,
		"content_bytes", len(content),
		"prompt_bytes", len(p.User),
		"structured", p.JSONSchema != nil)

	return p, nil
}

const systemPrompt = `You are a content analysis assistant. You summarize documents and extract structured information from them.

Rules:
1. Use only the content supplied by the user
2. Do not invent facts, names, figures or quotes
3. Preserve the original meaning of the source
4. When asked for JSON, return only the JSON object`

func (b *Builder) summary(doc *source.Document, content string, maxLength int) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Please summarize the following %s content", doc.Type)
	if doc.Title != "" {
		fmt.Fprintf(&sb, " titled '%s'", doc.Title)
	}
	fmt.Fprintf(&sb, " in approximately %d words.\n\n", maxLength)

	sb.WriteString("Content Information:\n")
	for _, e := range doc.Info() {
		fmt.Fprintf(&sb, "- %s: %v\n", humanKey(e.Key), e.Value)
	}
	fmt.Fprintf(&sb, "- Source Type: %s\n", doc.Type)

	sb.WriteString("\nPlease provide a summary that:\n")
	sb.WriteString("1. Captures the main ideas and key points\n")
	sb.WriteString("2. Preserves important details and facts\n")
	sb.WriteString("3. Maintains a logical flow\n")
	sb.WriteString("4. Uses objective language\n")
	sb.WriteString("5. Is concise but comprehensive\n")

	sb.WriteString("\nContent to summarize:\n")
	sb.WriteString(content)

	return sb.String()
}

func (b *Builder) keyPoints(content string) string {
	var sb strings.Builder

	sb.WriteString("Extract the most important key points from the following text.\n")
	sb.WriteString("Format your response as a JSON array of key-value pairs, where the key is the point name or category, ")
	sb.WriteString("and the value is the specific information.\n\n")
	sb.WriteString("For each key point:\n")
	sb.WriteString("1. Identify the category or type of information\n")
	sb.WriteString("2. Extract the specific detail, fact, or statistic\n")
	sb.WriteString("3. Ensure accuracy and preserve the original meaning\n\n")
	b.writeJSONRules(&sb, "key points", "prioritize the most important ones")
	sb.WriteString("Format your response like this (but without any newlines):\n")
	sb.WriteString(`{"key_points":[{"key":"Market Share","value":"Increased from 24% to 28% year-over-year"}]}`)
	sb.WriteString("\n\n")
	writeContent(&sb, content)

	return sb.String()
}

func (b *Builder) entities(content string) string {
	var sb strings.Builder

	sb.WriteString("Extract named entities from the following text.\n")
	sb.WriteString("Format your response as a JSON array of entities, where each entity has a name, type, and list of mentions.\n\n")
	sb.WriteString("Entity types to identify:\n")
	sb.WriteString("- Person (individuals mentioned by name)\n")
	sb.WriteString("- Organization (companies, agencies, institutions)\n")
	sb.WriteString("- Location (countries, cities, geographic locations)\n")
	sb.WriteString("- Product (products, services, brands)\n")
	sb.WriteString("- Event (specific events or occurrences)\n")
	sb.WriteString("- Date (specific dates or time periods)\n\n")
	b.writeJSONRules(&sb, "entities", "prioritize the most important ones")
	sb.WriteString("Format your response like this (but without any newlines):\n")
	sb.WriteString(`{"entities":[{"name":"Microsoft","type":"Organization","mentions":["Microsoft","MSFT","the company"]}]}`)
	sb.WriteString("\n\n")
	writeContent(&sb, content)

	return sb.String()
}

func (b *Builder) custom(content, instructions string, s *schema.Schema) string {
	var sb strings.Builder

	sb.WriteString("You are an expert AI trained to extract specific information from text based on custom instructions.\n")
	sb.WriteString("Your task is to extract information according to the following instructions:\n\n")
	sb.WriteString(instructions)
	sb.WriteString("\n\n")

	if s != nil {
		sb.WriteString("Place the extracted values under \"data\" using this structure.\n")
		sb.WriteString(s.ToPromptDescription())
		sb.WriteString("\n")
	}

	b.writeJSONRules(&sb, "information", "prioritize what is most important relative to the instructions")
	sb.WriteString("Example of correct format (but with your extracted content):\n")
	sb.WriteString(`{"data":{"key1":"value1","key2":"value2","items":[{"id":1,"name":"Item 1"},{"id":2,"name":"Item 2"}]}}`)
	sb.WriteString("\n\n")
	sb.WriteString("Ensure all extracted information is accurate and directly supported by the text.\n\n")
	writeContent(&sb, content)

	return sb.String()
}

func (b *Builder) writeJSONRules(sb *strings.Builder, subject, priority string) {
	sb.WriteString("IMPORTANT: Your response must be a valid JSON object only, with NO explanatory text before or after.\n")
	sb.WriteString("Do NOT include markdown code block syntax (```json) or any other formatting. THIS IS IMPORTANT.\n")
	sb.WriteString("Do NOT use newlines or pretty-printing in your JSON - format it as a compact, single-line JSON object.\n")
	sb.WriteString("Just return the raw JSON object without any whitespace between properties.\n\n")
	fmt.Fprintf(sb, "TOKEN LIMIT: Your response MUST be under %d tokens. If you have too many %s, ", b.cfg.MaxTokens, subject)
	fmt.Fprintf(sb, "%s and limit the total to stay under this token limit.\n\n", priority)
}

func writeContent(sb *strings.Builder, content string) {
	sb.WriteString("The text to analyze:\n")
	sb.WriteString(content)
}

// humanKey turns page_count into Page Count.
func humanKey(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(w)
		words[i] = strings.ToUpper(string(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

const truncationMarker = "\n\n[Content truncated due to length...]"

// truncateContent limits content size to avoid token limits.
// maxLen of 0 means no limit.
func truncateContent(content string, maxLen int) string {
	if maxLen <= 0 || len(content) <= maxLen {
		return content
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	logger.Warn("content truncated due to length",
		"original_bytes", len(content),
		"max_bytes", maxLen,
		"truncated_bytes", len(content)-cut)
	return content[:cut] + truncationMarker
}
