package cleaner

import (
	"errors"
	"strings"
	"testing"
)

const articlePage = `<!DOCTYPE html>
<html>
<head><title>Orbital Mechanics Primer</title></head>
<body>
<nav><a href="/">Home</a> <a href="/about">About us</a></nav>
<header>Space Weekly masthead</header>
<article>
<h1>Orbital Mechanics Primer</h1>
<p>Satellites stay in orbit because they are constantly falling toward the Earth while moving sideways fast enough to keep missing it. This balance between gravity and velocity defines every stable orbit.</p>
<p>Low Earth orbit begins at roughly one hundred and sixty kilometres of altitude. Spacecraft there complete a revolution in about ninety minutes and experience a small amount of atmospheric drag.</p>
<p>Geostationary satellites orbit at about thirty-six thousand kilometres, where their period matches the rotation of the Earth so they appear fixed in the sky above the equator.</p>
</article>
<aside class="comments">Great article!</aside>
<footer>Copyright Space Weekly</footer>
</body>
</html>`

func TestTextCleaner_Clean(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name: "page chrome removed",
			input: `<html><head><title>T</title></head><body>
<nav><a href="/">Home</a></nav>
<header>Site header</header>
<h1>Annual   Report</h1>
<p>Revenue grew by 12% &nbsp;- a record.</p>
<ul><li>• First</li><li>Second</li></ul>
<div class="ads">Buy now</div>
<script>var x = 1;</script>
<footer>Copyright</footer>
</body></html>`,
			want: "Annual Report\nRevenue grew by 12% - a record.\n- First\nSecond",
		},
		{
			name:  "table cells",
			input: `<table><tr><td>A</td><td>B</td></tr><tr><td>C</td><td>D</td></tr></table>`,
			want:  "A B\nC D",
		},
		{
			name:  "line breaks",
			input: `<p>one<br>two<br/>three</p>`,
			want:  "one\ntwo\nthree",
		},
		{
			name:  "plain text passes through normalization",
			input: "Line one\n\n\nLine  two • bullet",
			want:  "Line one\nLine two - bullet",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	c := NewText()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Clean(tt.input)
			if err != nil {
				t.Fatalf("Clean() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Clean() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTextCleaner_CustomSelectors(t *testing.T) {
	c := NewTextWithSelectors(".promo")
	got, err := c.Clean(`<body><nav>Menu</nav><p class="promo">Sale</p><p>Body</p></body>`)
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if got != "Menu\nBody" {
		t.Errorf("Clean() = %q", got)
	}
}

func TestCleanHTMLText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"collapses blank lines", "a\n\n\n\nb", "a\nb"},
		{"collapses spaces", "a  \t b", "a b"},
		{"trims line edges", "  a  \n  b  ", "a\nb"},
		{"bullet to dash", "• item", "- item"},
		{"nbsp entity", "a&nbsp;b", "a b"},
		{"nbsp rune", "a\u00a0b", "a b"},
		{"dash spacing", "2020 -2021", "2020 - 2021"},
		{"hyphenated words kept", "state-of-the-art", "state-of-the-art"},
		{"crlf", "a\r\nb", "a\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanHTMLText(tt.input); got != tt.want {
				t.Errorf("CleanHTMLText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNoopCleaner_Clean(t *testing.T) {
	c := NewNoop()

	for _, input := range []string{"", "Hello, World!", "<html><body><h1>Title</h1></body></html>", "  \n\t  "} {
		got, err := c.Clean(input)
		if err != nil {
			t.Errorf("Clean() error = %v, want nil", err)
		}
		if got != input {
			t.Errorf("Clean() = %q, want %q", got, input)
		}
	}
	if got := c.Name(); got != "noop" {
		t.Errorf("Name() = %q, want %q", got, "noop")
	}
}

func TestMarkdownCleaner_Clean(t *testing.T) {
	got, err := NewMarkdown().Clean(`<h1>Title</h1><p>Content</p><ul><li>One</li><li>Two</li></ul>`)
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if !strings.Contains(got, "# Title") {
		t.Errorf("expected heading in %q", got)
	}
	if !strings.Contains(got, "Content") {
		t.Errorf("expected paragraph in %q", got)
	}
	if strings.Contains(got, "\n\n\n") {
		t.Errorf("blank lines not collapsed in %q", got)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		wantName string
		wantErr  bool
	}{
		{"", "text", false},
		{"text", "text", false},
		{"readability", "chain(readability->text)", false},
		{"trafilatura", "chain(trafilatura->text)", false},
		{"markdown", "chain(readability->markdown)", false},
		{"noop", "noop", false},
		{"bogus", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if c.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", c.Name(), tt.wantName)
			}
		})
	}
}

func TestContentExtractors_KeepArticle(t *testing.T) {
	for _, name := range []string{"text", "readability", "trafilatura"} {
		t.Run(name, func(t *testing.T) {
			c, err := New(name)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			got, err := c.Clean(articlePage)
			if err != nil {
				t.Fatalf("Clean() error = %v", err)
			}
			if !strings.Contains(got, "Geostationary satellites orbit") {
				t.Errorf("article text missing from %q", got)
			}
			for _, noise := range []string{"Space Weekly masthead", "About us", "<p>"} {
				if strings.Contains(got, noise) {
					t.Errorf("unexpected %q in %q", noise, got)
				}
			}
		})
	}
}

// errorCleaner is a test cleaner that always returns an error
type errorCleaner struct{}

func (c *errorCleaner) Clean(html string) (string, error) {
	return "", errors.New("test error")
}

func (c *errorCleaner) Name() string {
	return "error"
}

func TestChainCleaner(t *testing.T) {
	t.Run("empty passes through", func(t *testing.T) {
		got, err := NewChain().Clean("unchanged content")
		if err != nil || got != "unchanged content" {
			t.Errorf("Clean() = %q, %v", got, err)
		}
	})

	t.Run("applies in order", func(t *testing.T) {
		got, err := NewChain(NewMarkdown(), NewText()).Clean(`<h1>Title</h1>`)
		if err != nil {
			t.Fatalf("Clean() error = %v", err)
		}
		if got != "# Title" {
			t.Errorf("Clean() = %q", got)
		}
	})

	t.Run("error propagates", func(t *testing.T) {
		_, err := NewChain(NewNoop(), &errorCleaner{}, NewText()).Clean("test")
		if err == nil || !strings.Contains(err.Error(), "test error") {
			t.Errorf("expected error containing 'test error', got %v", err)
		}
	})

	t.Run("name", func(t *testing.T) {
		if got := NewChain().Name(); got != "chain()" {
			t.Errorf("Name() = %q", got)
		}
		if got := NewChain(NewNoop(), NewText()).Name(); got != "chain(noop->text)" {
			t.Errorf("Name() = %q", got)
		}
	})
}
