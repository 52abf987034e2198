package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testPage = `<!DOCTYPE html>
<html>
<head><title> Quarterly Report </title><style>.x{color:red}</style></head>
<body>
  <script>var tracking = true;</script>
  <h1>Results</h1>
  <p>Revenue   grew
  by 12%.</p>
  <a href="/about">About</a>
  <a href="#top">Top</a>
  <a href="https://example.org/x">External</a>
</body>
</html>`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(testPage))
	})
	mux.HandleFunc("/ua", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><head><title>" + r.UserAgent() + "</title></head><body>" + r.Header.Get("Accept") + "</body></html>"))
	})
	mux.HandleFunc("/doc.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 fake"))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
		_, _ = w.Write([]byte("<html><body>late</body></html>"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestStaticFetcher_Fetch(t *testing.T) {
	srv := newTestServer(t)
	f := NewStatic(Config{})

	got, err := f.Fetch(context.Background(), srv.URL+"/page", Options{})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if got.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d", got.StatusCode)
	}
	if got.Title != "Quarterly Report" {
		t.Errorf("Title = %q", got.Title)
	}
	if strings.Contains(got.Text, "tracking") {
		t.Errorf("script content leaked into text: %q", got.Text)
	}
	if !strings.Contains(got.Text, "Revenue grew by 12%.") {
		t.Errorf("Text = %q", got.Text)
	}
	if len(got.Links) != 2 {
		t.Fatalf("Links = %v, want 2 entries", got.Links)
	}
	if got.Links[0] != srv.URL+"/about" {
		t.Errorf("relative link not resolved: %q", got.Links[0])
	}
	if f.Type() != "static" {
		t.Errorf("Type() = %q", f.Type())
	}
}

func TestStaticFetcher_Headers(t *testing.T) {
	srv := newTestServer(t)
	f := NewStatic(Config{UserAgent: "distill-test/1.0"})

	got, err := f.Fetch(context.Background(), srv.URL+"/ua", Options{})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got.Title != "distill-test/1.0" {
		t.Errorf("user agent not sent, title = %q", got.Title)
	}
	if !strings.Contains(got.Text, "text/html") {
		t.Errorf("accept header not sent, body = %q", got.Text)
	}

	got, err = f.Fetch(context.Background(), srv.URL+"/ua", Options{UserAgent: "override/2.0"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got.Title != "override/2.0" {
		t.Errorf("per-request user agent ignored, title = %q", got.Title)
	}
}

func TestStaticFetcher_NonHTML(t *testing.T) {
	srv := newTestServer(t)

	got, err := NewStatic(Config{}).Fetch(context.Background(), srv.URL+"/doc.pdf", Options{})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got.HTML != "" {
		t.Errorf("PDF body should not be treated as HTML")
	}
	if !strings.HasPrefix(string(got.Body), "%PDF") {
		t.Errorf("Body = %q", got.Body)
	}
}

func TestStaticFetcher_Errors(t *testing.T) {
	srv := newTestServer(t)
	f := NewStatic(Config{})

	t.Run("status", func(t *testing.T) {
		_, err := f.Fetch(context.Background(), srv.URL+"/missing", Options{})
		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("expected StatusError, got %v", err)
		}
		if statusErr.Code != http.StatusNotFound {
			t.Errorf("Code = %d", statusErr.Code)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		_, err := f.Fetch(context.Background(), srv.URL+"/slow", Options{Timeout: 100 * time.Millisecond})
		if !errors.Is(err, ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
	})

	t.Run("request", func(t *testing.T) {
		closed := httptest.NewServer(http.NotFoundHandler())
		addr := closed.URL
		closed.Close()

		_, err := f.Fetch(context.Background(), addr+"/gone", Options{Timeout: time.Second})
		if !errors.Is(err, ErrRequest) {
			t.Fatalf("expected ErrRequest, got %v", err)
		}
	})
}

func TestNeedsJavaScript(t *testing.T) {
	tests := []struct {
		name    string
		content Content
		want    bool
	}{
		{
			name:    "react root",
			content: Content{HTML: `<html><body><div id="root"></div></body></html>`},
			want:    true,
		},
		{
			name:    "short loading text",
			content: Content{HTML: `<html><body>Loading...</body></html>`, Text: "Loading..."},
			want:    true,
		},
		{
			name:    "noscript warning",
			content: Content{HTML: `<html><body><noscript>Please enable JavaScript to view this site.</noscript><p>` + strings.Repeat("text ", 40) + `</p></body></html>`, Text: strings.Repeat("text ", 40)},
			want:    true,
		},
		{
			name:    "regular article",
			content: Content{HTML: `<html><body><article>` + strings.Repeat("content ", 50) + `</article></body></html>`, Text: strings.Repeat("content ", 50)},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NeedsJavaScript(tt.content); got != tt.want {
				t.Errorf("NeedsJavaScript() = %v, want %v", got, tt.want)
			}
		})
	}
}

type stubFetcher struct {
	content Content
	err     error
	calls   int
}

func (s *stubFetcher) Fetch(_ context.Context, url string, _ Options) (Content, error) {
	s.calls++
	c := s.content
	c.URL = url
	return c, s.err
}
func (s *stubFetcher) Close() error { return nil }
func (s *stubFetcher) Type() string { return "stub" }

func TestAutoFetcher_Fallback(t *testing.T) {
	tests := []struct {
		name        string
		static      *stubFetcher
		wantDynamic bool
		wantErr     bool
	}{
		{
			name:   "static page is kept",
			static: &stubFetcher{content: Content{HTML: "<html><body><p>" + strings.Repeat("words ", 40) + "</p></body></html>", Text: strings.Repeat("words ", 40)}},
		},
		{
			name:        "spa falls back",
			static:      &stubFetcher{content: Content{HTML: `<div id="app"></div>`}},
			wantDynamic: true,
		},
		{
			name:        "transport error falls back",
			static:      &stubFetcher{err: ErrRequest},
			wantDynamic: true,
		},
		{
			name:    "status error is final",
			static:  &stubFetcher{err: &StatusError{Code: 403}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dynamic := &stubFetcher{content: Content{HTML: "<html></html>", Title: "rendered"}}
			f := &AutoFetcher{static: tt.static, dynamic: dynamic}

			got, err := f.Fetch(context.Background(), "https://example.com", Options{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Fetch() error = %v, wantErr %v", err, tt.wantErr)
			}
			if (dynamic.calls == 1) != tt.wantDynamic {
				t.Errorf("dynamic calls = %d, wantDynamic %v", dynamic.calls, tt.wantDynamic)
			}
			if tt.wantDynamic && got.Title != "rendered" {
				t.Errorf("expected dynamic content, got %+v", got)
			}
		})
	}
}

func TestNew_UnknownMode(t *testing.T) {
	if _, err := New("ftp", Config{}); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("New(ftp) error = %v, want ErrUnknownMode", err)
	}
	f, err := New(ModeStatic, Config{})
	if err != nil || f.Type() != "static" {
		t.Errorf("New(static) = %v, %v", f, err)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{"", "", false},
		{"static", ModeStatic, false},
		{" Dynamic ", ModeDynamic, false},
		{"AUTO", ModeAuto, false},
		{"headless", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
