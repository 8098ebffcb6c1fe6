package analyze

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andyarntsen-alt/kortreist/engine/domain"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func chatResponseWith(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestAnalyzeText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("bad auth header: %q", got)
		}
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Error("expected a system prompt plus the user text")
		}
		io.WriteString(w, chatResponseWith(
			"```json\n"+`{"name":"Solbakken Gård","description":"Honning fra Maridalen.","products":["honey","honey"],"address":"Maridalsveien 12, Oslo","location":{"lat":59.96,"lng":10.76}}`+"\n```",
		))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "test-key", URL: srv.URL, Logger: discard()})
	a, err := c.AnalyzeText(context.Background(), "Vi selger honning fra egen birøkt i Maridalen")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Name != "Solbakken Gård" {
		t.Errorf("got name %q", a.Name)
	}
	if len(a.Products) != 1 || a.Products[0] != domain.Honey {
		t.Errorf("duplicate products should collapse, got %v", a.Products)
	}
	if a.Location == nil || a.Location.Lat != 59.96 {
		t.Errorf("got location %+v", a.Location)
	}
}

func TestAnalyzeText_APIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(Config{APIKey: "k", URL: srv.URL, Logger: discard()})
	if _, err := c.AnalyzeText(context.Background(), "tekst"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestAnalyzeText_NonJSONContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, chatResponseWith("Beklager, jeg kan ikke hjelpe med det."))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "k", URL: srv.URL, Logger: discard()})
	if _, err := c.AnalyzeText(context.Background(), "tekst"); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestAnalyzeURL(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><head><style>p{color:red}</style></head>
<body><nav><a href="/">Meny</a></nav><p>Gården selger honning.</p></body></html>`)
	}))
	defer page.Close()

	var sawText string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		sawText = req.Messages[1].Content
		io.WriteString(w, chatResponseWith(`{"name":"Gården","description":"","products":[],"address":""}`))
	}))
	defer api.Close()

	c := New(Config{APIKey: "k", URL: api.URL, Logger: discard()})
	if _, err := c.AnalyzeURL(context.Background(), page.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(sawText, "Gården selger honning.") {
		t.Errorf("page text should reach the prompt, got %q", sawText)
	}
	if strings.Contains(sawText, "Meny") || strings.Contains(sawText, "color:red") {
		t.Errorf("nav and style noise should be stripped, got %q", sawText)
	}
}

func TestPageText(t *testing.T) {
	html := `<html><script>alert(1)</script><footer>Kontakt oss</footer>
<p>Synlig  tekst</p><svg><path d="M0 0"/></svg></html>`
	got := PageText(html)
	if got != "Synlig tekst" {
		t.Fatalf("got %q", got)
	}
}

func TestStripFences(t *testing.T) {
	cases := []struct{ in, want string }{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{}\n```", "{}"},
		{`{"a":1}`, `{"a":1}`},
	}
	for _, tc := range cases {
		if got := stripFences(tc.in); got != tc.want {
			t.Errorf("stripFences(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
