package scraper

import (
	"strings"
	"testing"
)

func TestIsBlocked(t *testing.T) {
	tests := []struct {
		name string
		html string
		want bool
	}{
		{
			"challenge page",
			`<html><head><title>Security Check</title></head><body><h1>Security check</h1><p>Complete the CAPTCHA to continue.</p></body></html>`,
			true,
		},
		{
			"checkpoint",
			`<html><body><div>Checkpoint required. Please log in to continue.</div></body></html>`,
			true,
		},
		{
			"results page",
			`<html><body><div data-ad-id="1"><a data-page-id="2">Shop</a><div data-ad-preview="message">Golf carts</div></div></body></html>`,
			false,
		},
		{
			"signature only inside script",
			`<html><body><script>var msg = "temporarily blocked";</script><div>results</div></body></html>`,
			false,
		},
		{
			"empty page",
			``,
			false,
		},
		{
			"case insensitive",
			`<html><body>You Have Been BLOCKED</body></html>`,
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBlocked(tt.html); got != tt.want {
				t.Errorf("IsBlocked() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSearchURL(t *testing.T) {
	got, err := SearchURL("https://adlibrary.example.com/search", queryFixture())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"q=golf+cart", "location=Ocala+FL", "active_status=active"} {
		if !strings.Contains(got, want) {
			t.Errorf("url %q missing %q", got, want)
		}
	}
}

func TestSearchURL_NoLocation(t *testing.T) {
	q := queryFixture()
	q.Location = ""
	got, err := SearchURL("https://adlibrary.example.com/search", q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(got, "location=") {
		t.Errorf("url %q must not carry an empty location", got)
	}
}
