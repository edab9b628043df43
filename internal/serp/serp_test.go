package serp

import (
	"net/url"
	"testing"

	"github.com/FranksOps/medguide/internal/registry"
)

var nice = registry.Source{
	Domain:         "nice.org.uk",
	Name:           "NICE Guidelines",
	SearchTemplate: registry.DuckDuckGoTemplate,
	Strategy:       registry.StrategyNICE,
}

const pageURL = "https://duckduckgo.com/html/?q=site:nice.org.uk+asthma"

func TestUnwrap(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "protocol relative redirector",
			in:   "//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.nice.org.uk%2Fguidance%2Fng80&rut=abc",
			want: "https://www.nice.org.uk/guidance/ng80",
		},
		{
			name: "absolute redirector",
			in:   "https://duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.cdc.gov%2Fasthma%2F",
			want: "https://www.cdc.gov/asthma/",
		},
		{
			name: "plain link unchanged",
			in:   "https://www.nice.org.uk/guidance/ng80",
			want: "https://www.nice.org.uk/guidance/ng80",
		},
		{
			name: "relative target unchanged",
			in:   "/l/?uddg=guidance",
			want: "/l/?uddg=guidance",
		},
		{
			name: "unparsable unchanged",
			in:   "http://[::1",
			want: "http://[::1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Unwrap(tt.in); got != tt.want {
				t.Errorf("Unwrap(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDuckDuckGo_ExtractLinks(t *testing.T) {
	html := `<html><body>
<div class="result">
  <h2 class="result__title"><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.nice.org.uk%2Fguidance%2Fng80%23section&rut=1">Asthma: diagnosis,  monitoring and
   chronic asthma management</a></h2>
</div>
<div class="result">
  <h2 class="result__title"><a class="result__a" href="https://www.example.com/asthma">Asthma at example.com</a></h2>
</div>
<div class="result">
  <h2 class="result__title"><a class="result__a" href="https://www.nice.org.uk/guidance/ng80">Asthma duplicate</a></h2>
</div>
<div class="result">
  <h2 class="result__title"><a class="result__a" href="https://cks.nice.org.uk/topics/asthma/">Asthma | CKS</a></h2>
</div>
<div class="result">
  <h2 class="result__title"><a class="result__a" href="https://nice.org.uk.evil.example/guidance">Fake NICE</a></h2>
</div>
</body></html>`

	links := DuckDuckGo{}.ExtractLinks(nice, []byte(html), pageURL)
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d: %+v", len(links), links)
	}

	if links[0].URL != "https://www.nice.org.uk/guidance/ng80" {
		t.Errorf("unexpected first URL %q", links[0].URL)
	}
	if links[0].Title != "Asthma: diagnosis, monitoring and chronic asthma management" {
		t.Errorf("unexpected first title %q", links[0].Title)
	}
	if links[0].Domain != "nice.org.uk" {
		t.Errorf("unexpected domain %q", links[0].Domain)
	}
	if links[1].URL != "https://cks.nice.org.uk/topics/asthma/" {
		t.Errorf("expected subdomain link second, got %q", links[1].URL)
	}
}

func TestDuckDuckGo_NeverReturnsOffDomainLinks(t *testing.T) {
	html := `<html><body>
<a class="result__a" href="https://www.cdc.gov/asthma/">CDC asthma page</a>
<a class="result__a" href="https://www.who.int/news-room/fact-sheets/detail/asthma">WHO asthma fact sheet</a>
<a class="result__a" href="javascript:alert(1)">Script link</a>
</body></html>`

	links := DuckDuckGo{}.ExtractLinks(nice, []byte(html), pageURL)
	for _, l := range links {
		if !registry.HostMatches(hostOf(t, l.URL), "nice.org.uk") {
			t.Errorf("off-domain link leaked: %q", l.URL)
		}
	}
	if len(links) != 0 {
		t.Errorf("expected no links, got %+v", links)
	}
}

func TestDuckDuckGo_SelectorFallback(t *testing.T) {
	html := `<html><body>
<div class="result__title"><a href="https://www.nice.org.uk/guidance/ng136">Hypertension in adults</a></div>
</body></html>`

	links := DuckDuckGo{}.ExtractLinks(nice, []byte(html), pageURL)
	if len(links) != 1 || links[0].URL != "https://www.nice.org.uk/guidance/ng136" {
		t.Fatalf("expected result__title fallback link, got %+v", links)
	}

	html = `<html><body>
<a href="https://www.nice.org.uk/">Home</a>
<a href="https://www.nice.org.uk/guidance/ng28">Type 2 diabetes in adults: management</a>
</body></html>`

	links = DuckDuckGo{}.ExtractLinks(nice, []byte(html), pageURL)
	if len(links) != 1 || links[0].URL != "https://www.nice.org.uk/guidance/ng28" {
		t.Fatalf("expected short anchor texts to be skipped in generic fallback, got %+v", links)
	}
}

func TestDuckDuckGo_MaxLinks(t *testing.T) {
	html := `<html><body>
<a class="result__a" href="https://www.nice.org.uk/a">Guideline A</a>
<a class="result__a" href="https://www.nice.org.uk/b">Guideline B</a>
<a class="result__a" href="https://www.nice.org.uk/c">Guideline C</a>
</body></html>`

	links := DuckDuckGo{MaxLinks: 2}.ExtractLinks(nice, []byte(html), pageURL)
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}
	if links[1].URL != "https://www.nice.org.uk/b" {
		t.Errorf("expected first-seen order, got %+v", links)
	}
}

func TestDuckDuckGo_NoResults(t *testing.T) {
	links := DuckDuckGo{}.ExtractLinks(nice, []byte(`<html><body><div class="no-results">No results.</div></body></html>`), pageURL)
	if links == nil || len(links) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", links)
	}
}

func hostOf(t *testing.T, raw string) string {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u.Hostname()
}
