package extract

import (
	"slices"
	"sync"
	"testing"
)

func TestIsValidURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{name: "https with host", raw: "https://example.com/a", want: true},
		{name: "http with port", raw: "http://127.0.0.1:8080/", want: true},
		{name: "relative path", raw: "/a/b", want: false},
		{name: "protocol relative", raw: "//example.com/a", want: false},
		{name: "javascript pseudo URL", raw: "javascript:void(0)", want: false},
		{name: "mailto", raw: "mailto:a@example.com", want: false},
		{name: "empty", raw: "", want: false},
		{name: "unparseable", raw: "http://[::1", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsValidURL(tt.raw); got != tt.want {
				t.Errorf("IsValidURL(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	got, ok := NormalizeURL("  https://example.com/page#section ")
	if !ok {
		t.Fatal("expected valid URL")
	}
	if got != "https://example.com/page" {
		t.Errorf("expected fragment to be stripped, got %q", got)
	}

	if _, ok := NormalizeURL("example.com/page"); ok {
		t.Error("expected URL without scheme to be rejected")
	}
}

func TestResolveLink(t *testing.T) {
	t.Parallel()

	const base = "https://ex.com/a/b"

	tests := []struct {
		name   string
		href   string
		want   string
		wantOK bool
	}{
		{name: "parent relative with query", href: "../c?q=1", want: "https://ex.com/c?q=1", wantOK: true},
		{name: "sibling relative", href: "c", want: "https://ex.com/a/c", wantOK: true},
		{name: "root relative", href: "/x", want: "https://ex.com/x", wantOK: true},
		{name: "protocol relative", href: "//other.org/p", want: "https://other.org/p", wantOK: true},
		{name: "absolute", href: "http://other.org/", want: "http://other.org/", wantOK: true},
		{name: "fragment stripped", href: "/x#frag", want: "https://ex.com/x", wantOK: true},
		{name: "surrounding whitespace", href: "  /x  ", want: "https://ex.com/x", wantOK: true},
		{name: "javascript", href: "javascript:void(0)", wantOK: false},
		{name: "bare fragment", href: "#top", wantOK: false},
		{name: "mailto", href: "mailto:someone@ex.com", wantOK: false},
		{name: "empty", href: "", wantOK: false},
		{name: "unparseable", href: "http://[::1", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := ResolveLink(base, tt.href)
			if ok != tt.wantOK {
				t.Fatalf("ResolveLink(%q) ok = %v, want %v (got %q)", tt.href, ok, tt.wantOK, got)
			}
			if ok && got != tt.want {
				t.Errorf("ResolveLink(%q) = %q, want %q", tt.href, got, tt.want)
			}
		})
	}

	t.Run("invalid base", func(t *testing.T) {
		t.Parallel()
		if _, ok := ResolveLink("http://[::1", "/x"); ok {
			t.Error("expected invalid base to be rejected")
		}
	})
}

func TestExtractLinks(t *testing.T) {
	t.Parallel()

	hrefs := []string{"/a", "#top", "/b", "/a", "javascript:void(0)", "https://ex.com/a#x", "https://other.org/"}
	got := ExtractLinks(hrefs, "https://ex.com/")
	want := []string{"https://ex.com/a", "https://ex.com/b", "https://other.org/"}

	if !slices.Equal(got, want) {
		t.Errorf("ExtractLinks() = %v, want %v", got, want)
	}

	if got := ExtractLinks(nil, "https://ex.com/"); len(got) != 0 {
		t.Errorf("expected no links for nil input, got %v", got)
	}
}

func TestExtractEmails(t *testing.T) {
	t.Parallel()

	t.Run("mixed text", func(t *testing.T) {
		t.Parallel()

		got := ExtractEmails("contact: a.b+c@x-y.com, not-an-email, d@e.io")
		want := []string{"a.b+c@x-y.com", "d@e.io"}
		if !slices.Equal(got, want) {
			t.Errorf("ExtractEmails() = %v, want %v", got, want)
		}
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		t.Parallel()

		got := ExtractEmails("x@y.com x@y.com X@y.com")
		want := []string{"x@y.com", "X@y.com"}
		if !slices.Equal(got, want) {
			t.Errorf("ExtractEmails() = %v, want %v", got, want)
		}
	})

	t.Run("trailing dot excluded", func(t *testing.T) {
		t.Parallel()

		got := ExtractEmails("write to admin@mail.example.org.")
		if len(got) != 1 || got[0] != "admin@mail.example.org" {
			t.Errorf("unexpected matches: %v", got)
		}
	})

	t.Run("domain without dot is not an email", func(t *testing.T) {
		t.Parallel()

		if got := ExtractEmails("user@localhost"); len(got) != 0 {
			t.Errorf("expected no matches, got %v", got)
		}
	})

	t.Run("inside html", func(t *testing.T) {
		t.Parallel()

		got := ExtractEmails(`<a href="mailto:info@service.com">info@service.com</a>`)
		want := []string{"info@service.com"}
		if !slices.Equal(got, want) {
			t.Errorf("ExtractEmails() = %v, want %v", got, want)
		}
	})
}

func TestEmailSet(t *testing.T) {
	t.Parallel()

	t.Run("keeps first source", func(t *testing.T) {
		t.Parallel()

		s := NewEmailSet()
		if !s.Add("a@b.com", "https://ex.com/1") {
			t.Error("expected first add to report new")
		}
		if s.Add("a@b.com", "https://ex.com/2") {
			t.Error("expected second add to report existing")
		}
		if src := s.Sources()["a@b.com"]; src != "https://ex.com/1" {
			t.Errorf("expected first-seen source, got %q", src)
		}
	})

	t.Run("merge counts new addresses", func(t *testing.T) {
		t.Parallel()

		s := NewEmailSet()
		s.Add("a@b.com", "p1")
		if n := s.Merge([]string{"a@b.com", "c@d.com", "e@f.com"}, "p2"); n != 2 {
			t.Errorf("expected 2 new, got %d", n)
		}
		if src := s.Sources()["c@d.com"]; src != "p2" {
			t.Errorf("expected merged address from p2, got %q", src)
		}
		want := []string{"a@b.com", "c@d.com", "e@f.com"}
		if got := s.Sorted(); !slices.Equal(got, want) {
			t.Errorf("Sorted() = %v, want %v", got, want)
		}
	})

	t.Run("concurrent merges are a union", func(t *testing.T) {
		t.Parallel()

		s := NewEmailSet()
		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.Merge([]string{"shared@ex.com", string(rune('a'+i)) + "@ex.com"}, "page")
			}()
		}
		wg.Wait()

		if s.Len() != 9 {
			t.Errorf("expected 9 addresses, got %d", s.Len())
		}
	})
}
