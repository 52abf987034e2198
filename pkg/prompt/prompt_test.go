package prompt

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/jmylchreest/distill/pkg/schema"
	"github.com/jmylchreest/distill/pkg/source"
)

func textDoc(t *testing.T, text string) *source.Document {
	t.Helper()
	doc, err := source.FromText(text)
	if err != nil {
		t.Fatalf("FromText() error = %v", err)
	}
	return doc
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{"summary", ModeSummary, false},
		{"key_points", ModeKeyPoints, false},
		{"Key-Points", ModeKeyPoints, false},
		{"keypoints", ModeKeyPoints, false},
		{" ENTITIES ", ModeEntities, false},
		{"custom", ModeCustom, false},
		{"sentiment", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnknownMode) {
				t.Errorf("error = %v, want ErrUnknownMode", err)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestBuild_Summary(t *testing.T) {
	doc := textDoc(t, "Meeting notes\n\nThe budget was approved for the next quarter.")
	b := NewBuilder(Config{})

	p, err := b.Build(ModeSummary, doc, Options{MaxLength: 200})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	wantParts := []string{
		"Please summarize the following text content titled 'Meeting notes' in approximately 200 words.\n\n",
		"Content Information:\n",
		"- Title: Meeting notes\n",
		"- Word Count: 10\n",
		"- Source Type: text\n",
		"1. Captures the main ideas and key points\n",
		"5. Is concise but comprehensive\n",
		"Content to summarize:\nMeeting notes\n\nThe budget was approved",
	}
	for _, part := range wantParts {
		if !strings.Contains(p.User, part) {
			t.Errorf("summary prompt missing %q\n%s", part, p.User)
		}
	}
	if !strings.HasPrefix(p.User, "Please summarize") {
		t.Errorf("summary prompt should start with the header, got %q", p.User[:40])
	}
	if p.JSONSchema != nil {
		t.Errorf("summary JSONSchema = %v, want nil", p.JSONSchema)
	}
	if p.System == "" {
		t.Error("System prompt is empty")
	}
	if p.Mode != ModeSummary {
		t.Errorf("Mode = %q", p.Mode)
	}
}

func TestBuild_SummaryMaxLength(t *testing.T) {
	doc := textDoc(t, "a long enough sentence to summarize")

	p, err := NewBuilder(Config{}).Build(ModeSummary, doc, Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !strings.Contains(p.User, "in approximately 1000 words") {
		t.Errorf("default max length not applied:\n%s", p.User)
	}

	p, err = NewBuilder(Config{DefaultMaxLength: 300}).Build(ModeSummary, doc, Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !strings.Contains(p.User, "in approximately 300 words") {
		t.Errorf("configured default not applied:\n%s", p.User)
	}

	_, err = NewBuilder(Config{}).Build(ModeSummary, doc, Options{MaxLength: -5})
	if !errors.Is(err, ErrInvalidMaxLength) {
		t.Errorf("negative max length error = %v, want ErrInvalidMaxLength", err)
	}
}

func TestBuild_SummaryPDFHeader(t *testing.T) {
	doc := &source.Document{
		Type:      source.TypePDF,
		Text:      "Body text",
		Filename:  "report.pdf",
		PageCount: 3,
		Metadata:  source.Metadata{Author: "Jane Doe"},
	}

	p, err := NewBuilder(Config{}).Build(ModeSummary, doc, Options{MaxLength: 50})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	for _, part := range []string{
		"Please summarize the following pdf content in approximately 50 words.",
		"- Filename: report.pdf\n",
		"- Author: Jane Doe\n",
		"- Page Count: 3\n",
	} {
		if !strings.Contains(p.User, part) {
			t.Errorf("prompt missing %q\n%s", part, p.User)
		}
	}
	if strings.Contains(p.User, "titled") {
		t.Error("untitled document should not mention a title")
	}
}

func TestBuild_KeyPoints(t *testing.T) {
	doc := textDoc(t, "Revenue grew 12% while costs fell.")

	p, err := NewBuilder(Config{MaxTokens: 512}).Build(ModeKeyPoints, doc, Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	for _, part := range []string{
		"Extract the most important key points from the following text.",
		"Do NOT include markdown code block syntax (```json)",
		"TOKEN LIMIT: Your response MUST be under 512 tokens. If you have too many key points,",
		`{"key_points":[{"key":"Market Share"`,
		"The text to analyze:\nRevenue grew 12% while costs fell.",
	} {
		if !strings.Contains(p.User, part) {
			t.Errorf("key points prompt missing %q", part)
		}
	}

	props, _ := p.JSONSchema["properties"].(map[string]any)
	kp, _ := props["key_points"].(map[string]any)
	if kp["type"] != "array" {
		t.Fatalf("key_points schema = %v", kp)
	}
	items, _ := kp["items"].(map[string]any)
	itemProps, _ := items["properties"].(map[string]any)
	if _, ok := itemProps["key"]; !ok {
		t.Errorf("item schema missing key: %v", items)
	}
	if _, ok := itemProps["value"]; !ok {
		t.Errorf("item schema missing value: %v", items)
	}
}

func TestBuild_Entities(t *testing.T) {
	doc := textDoc(t, "Microsoft opened an office in Berlin.")

	p, err := NewBuilder(Config{}).Build(ModeEntities, doc, Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	for _, typ := range EntityTypes {
		if !strings.Contains(p.User, "- "+typ+" (") {
			t.Errorf("entities prompt missing type %s", typ)
		}
	}
	if !strings.Contains(p.User, "under 1024 tokens") {
		t.Error("entities prompt missing default token limit")
	}

	props, _ := p.JSONSchema["properties"].(map[string]any)
	ents, _ := props["entities"].(map[string]any)
	items, _ := ents["items"].(map[string]any)
	itemProps, _ := items["properties"].(map[string]any)
	mentions, _ := itemProps["mentions"].(map[string]any)
	if mentions["type"] != "array" {
		t.Errorf("mentions schema = %v, want array", mentions)
	}
}

func TestBuild_Custom(t *testing.T) {
	doc := textDoc(t, "The invoice total is 42 EUR, due on 1 March.")
	b := NewBuilder(Config{})

	_, err := b.Build(ModeCustom, doc, Options{CustomInstructions: "   "})
	if !errors.Is(err, ErrMissingInstructions) {
		t.Fatalf("blank instructions error = %v, want ErrMissingInstructions", err)
	}

	p, err := b.Build(ModeCustom, doc, Options{CustomInstructions: "Find the invoice total."})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !strings.Contains(p.User, "following instructions:\n\nFind the invoice total.\n\n") {
		t.Errorf("custom prompt missing instructions:\n%s", p.User)
	}
	if p.JSONSchema != nil {
		t.Errorf("custom without schema should be free-form, got %v", p.JSONSchema)
	}
}

func TestBuild_CustomSchema(t *testing.T) {
	s := schema.Schema{
		Name: "Invoice",
		Fields: []schema.Field{
			{Name: "total", Type: schema.TypeNumber, Required: true, Description: "Invoice total"},
			{Name: "currency", Type: schema.TypeString},
		},
	}
	doc := textDoc(t, "The invoice total is 42 EUR.")

	p, err := NewBuilder(Config{}).Build(ModeCustom, doc, Options{
		CustomInstructions: "Extract the invoice.",
		Schema:             &s,
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if !strings.Contains(p.User, "- total (number, required): Invoice total") {
		t.Errorf("custom prompt missing field description:\n%s", p.User)
	}

	props, _ := p.JSONSchema["properties"].(map[string]any)
	if !reflect.DeepEqual(props["data"], s.ToJSONSchema()) {
		t.Errorf("data schema = %v, want %v", props["data"], s.ToJSONSchema())
	}
	if !reflect.DeepEqual(p.JSONSchema["required"], []string{"data"}) {
		t.Errorf("required = %v", p.JSONSchema["required"])
	}
}

func TestBuild_UnknownMode(t *testing.T) {
	doc := textDoc(t, "hello world")
	if _, err := NewBuilder(Config{}).Build("sentiment", doc, Options{}); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("error = %v, want ErrUnknownMode", err)
	}
	if _, err := NewBuilder(Config{}).Build(ModeSummary, nil, Options{}); err == nil {
		t.Error("expected error for nil document")
	}
}

func TestBuild_Truncation(t *testing.T) {
	doc := &source.Document{Type: source.TypeText, Text: "abcdefghijklmnop"}

	p, err := NewBuilder(Config{MaxContentSize: 10}).Build(ModeKeyPoints, doc, Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !strings.HasSuffix(p.User, "abcdefghij"+truncationMarker) {
		t.Errorf("prompt not truncated:\n%s", p.User)
	}
}

func TestTruncateContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		max     int
		want    string
	}{
		{"no limit", "abcdef", 0, "abcdef"},
		{"under limit", "abc", 5, "abc"},
		{"at limit", "abcde", 5, "abcde"},
		{"cut", "abcdef", 3, "abc" + truncationMarker},
		{"rune boundary", "héllo", 2, "h" + truncationMarker},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateContent(tt.content, tt.max); got != tt.want {
				t.Errorf("truncateContent(%q, %d) = %q, want %q", tt.content, tt.max, got, tt.want)
			}
		})
	}
}

func TestHumanKey(t *testing.T) {
	tests := map[string]string{
		"title":             "Title",
		"page_count":        "Page Count",
		"modification_date": "Modification Date",
	}
	for in, want := range tests {
		if got := humanKey(in); got != want {
			t.Errorf("humanKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOutputSchema(t *testing.T) {
	custom := schema.Schema{Name: "place", Fields: []schema.Field{{Name: "city", Type: "string"}}}

	tests := []struct {
		name   string
		mode   Mode
		custom *schema.Schema
		want   map[string]any
	}{
		{"summary", ModeSummary, nil, nil},
		{"key points", ModeKeyPoints, nil, KeyPointsSchema.ToJSONSchema()},
		{"entities", ModeEntities, nil, EntitiesSchema.ToJSONSchema()},
		{"custom without schema", ModeCustom, nil, nil},
		{"custom with schema", ModeCustom, &custom, CustomJSONSchema(custom)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OutputSchema(tt.mode, tt.custom); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("OutputSchema(%q) = %v, want %v", tt.mode, got, tt.want)
			}
		})
	}
}
