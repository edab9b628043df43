package extract

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/FranksOps/medguide/internal/registry"
)

func source(strategy registry.Strategy) registry.Source {
	return registry.Source{
		Domain:         "example.org",
		Name:           "Example Guidelines",
		SearchTemplate: registry.DuckDuckGoTemplate,
		Strategy:       strategy,
	}
}

func TestExtract_NICE(t *testing.T) {
	html := `<html><head><title>Asthma | NICE</title></head><body>
<header><h1>NICE site banner</h1></header>
<nav><a href="/">Home</a> <a href="/guidance">Guidance</a></nav>
<div class="chapter">
  <h1>Asthma: diagnosis, monitoring and management</h1>
  <p>This guideline covers   diagnosing and
  managing asthma.</p>
  <ul><li>Offer a <strong>SABA</strong> reliever.</li><li><p>Review inhaler technique.</p></li></ul>
</div>
<div class="sidebar">Related guidance</div>
<footer>Copyright NICE</footer>
<script>var x = "tracking";</script>
</body></html>`

	doc, err := New(Config{}).Extract(source(registry.StrategyNICE), []byte(html), "https://www.nice.org.uk/guidance/ng245", "search title")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Title != "Asthma: diagnosis, monitoring and management" {
		t.Errorf("unexpected title %q", doc.Title)
	}
	if doc.SourceName != "Example Guidelines" || doc.URL != "https://www.nice.org.uk/guidance/ng245" {
		t.Errorf("unexpected metadata %+v", doc)
	}

	want := "Asthma: diagnosis, monitoring and management\n\n" +
		"This guideline covers diagnosing and managing asthma.\n\n" +
		"- Offer a SABA reliever.\n\n" +
		"- Review inhaler technique."
	if doc.Content != want {
		t.Errorf("unexpected content:\n%q\nwant:\n%q", doc.Content, want)
	}

	for _, noise := range []string{"banner", "Home", "Related guidance", "Copyright", "tracking"} {
		if strings.Contains(doc.Content, noise) {
			t.Errorf("content should not contain %q", noise)
		}
	}
}

func TestExtract_RACGP(t *testing.T) {
	html := `<html><body>
<div class="content-wrapper"><div class="guideline-body"><p>Cardiovascular risk assessment.</p></div>
<div class="social-share">Share on Twitter</div></div>
</body></html>`

	doc, err := New(Config{}).Extract(source(registry.StrategyRACGP), []byte(html), "https://www.racgp.org.au/redbook/cv", "Red Book CV")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Content != "Cardiovascular risk assessment." {
		t.Errorf("unexpected content %q", doc.Content)
	}
	if doc.Title != "Red Book CV" {
		t.Errorf("expected search title fallback, got %q", doc.Title)
	}
}

func TestExtract_SpecializedFallsBackToGeneric(t *testing.T) {
	html := `<html><body>
<div class="promo">Subscribe now</div>
<main><h2>Redesigned page</h2><p>Still has guideline text.</p></main>
</body></html>`

	doc, err := New(Config{}).Extract(source(registry.StrategyNICE), []byte(html), "https://www.nice.org.uk/guidance/ng1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Content != "Redesigned page\n\nStill has guideline text." {
		t.Errorf("unexpected content %q", doc.Content)
	}
	if strings.Contains(doc.Content, "Subscribe") {
		t.Errorf("generic fallback should use the main region")
	}
}

func TestExtract_GenericBodyFallback(t *testing.T) {
	html := `<html><head><meta property="og:title" content="Hand hygiene"></head>
<body><div><p>Wash hands for 20 seconds.</p></div></body></html>`

	doc, err := New(Config{}).Extract(source(registry.StrategyGeneric), []byte(html), "https://www.cdc.gov/handwashing/", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Content != "Wash hands for 20 seconds." {
		t.Errorf("unexpected content %q", doc.Content)
	}
	if doc.Title != "Hand hygiene" {
		t.Errorf("expected og:title, got %q", doc.Title)
	}
}

func TestExtract_BannerHeadingIsNotTitle(t *testing.T) {
	html := `<html><head><title>Diabetes | CDC</title>
<meta property="og:title" content="Type 2 diabetes in adults"></head>
<body><header><h1 class="logo">Centers for Disease Control and Prevention</h1></header>
<main><h2>Overview</h2><p>Screen adults aged 35 to 70 with overweight or obesity.</p></main></body></html>`

	doc, err := New(Config{}).Extract(source(registry.StrategyGeneric), []byte(html), "https://www.cdc.gov/diabetes/", "Type 2 diabetes")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "Type 2 diabetes in adults" {
		t.Errorf("expected og:title, got %q", doc.Title)
	}
}

func TestExtract_PageHeadingOutsideRegion(t *testing.T) {
	html := `<html><head><title>Site</title></head><body>
<div class="page-title"><h1>Hypertension in adults</h1></div>
<div class="chapter"><p>Offer ambulatory blood pressure monitoring.</p></div></body></html>`

	doc, err := New(Config{}).Extract(source(registry.StrategyNICE), []byte(html), "https://www.nice.org.uk/guidance/ng136", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "Hypertension in adults" {
		t.Errorf("expected page heading, got %q", doc.Title)
	}
}

func TestBlockText_ListItemPrefix(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"plain items", `<ul><li>One</li><li>Two</li></ul>`, "- One\n\n- Two"},
		{"empty nested block", `<ul><li><p></p>Item</li></ul>`, "- Item"},
		{"nested paragraph", `<ul><li><p>Item</p></li></ul>`, "- Item"},
		{"empty item", `<ul><li></li></ul><p>After</p>`, "After"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body>` + tt.html + `</body></html>`))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got := blockText(doc.Find("body")); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtract_NestedMatchesNotDuplicated(t *testing.T) {
	html := `<html><body><main><article><p>Only once.</p></article></main></body></html>`

	doc, err := New(Config{}).Extract(source(registry.StrategyGeneric), []byte(html), "https://www.who.int/x", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Count(doc.Content, "Only once.") != 1 {
		t.Errorf("expected text once, got %q", doc.Content)
	}
}

func TestExtract_Empty(t *testing.T) {
	html := `<html><body><nav>Menu</nav><script>x()</script><footer>Footer</footer></body></html>`

	_, err := New(Config{}).Extract(source(registry.StrategyGeneric), []byte(html), "https://www.who.int/empty", "")
	if !errors.Is(err, ErrExtractionEmpty) {
		t.Fatalf("expected ErrExtractionEmpty, got %v", err)
	}
}

func TestExtract_PlaceholderTitle(t *testing.T) {
	html := `<html><body><p>Text only.</p></body></html>`

	doc, err := New(Config{}).Extract(source(registry.StrategyGeneric), []byte(html), "https://www.who.int/publications/malaria-guidelines.pdf", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "malaria guidelines" {
		t.Errorf("unexpected placeholder title %q", doc.Title)
	}

	if got := placeholderTitle("https://www.who.int/"); got != "www.who.int" {
		t.Errorf("expected host placeholder, got %q", got)
	}
}

func TestExtract_Truncates(t *testing.T) {
	long := strings.Repeat("word ", 100)
	html := `<html><body><main><p>` + long + `</p></main></body></html>`

	doc, err := New(Config{MaxChars: 120}).Extract(source(registry.StrategyGeneric), []byte(html), "https://www.who.int/long", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := utf8.RuneCountInString(doc.Content); n > 120 {
		t.Errorf("content has %d characters, want at most 120", n)
	}
	if !strings.HasSuffix(doc.Content, TruncationMarker) {
		t.Errorf("expected truncation marker, got %q", doc.Content)
	}
}

func TestTruncate(t *testing.T) {
	marker := utf8.RuneCountInString(TruncationMarker)

	t.Run("short text unchanged", func(t *testing.T) {
		if got := Truncate("short text", 100); got != "short text" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("exact length unchanged", func(t *testing.T) {
		text := strings.Repeat("a", 50)
		if got := Truncate(text, 50); got != text {
			t.Errorf("got %q", got)
		}
	})

	t.Run("cuts at preceding whitespace", func(t *testing.T) {
		text := "alpha beta gamma " + strings.Repeat("delta ", 20)
		limit := marker + 13 // budget ends inside "gamma"
		got := Truncate(text, limit)
		if got != "alpha beta"+TruncationMarker {
			t.Errorf("got %q", got)
		}
	})

	t.Run("keeps word ending exactly at budget", func(t *testing.T) {
		text := "alpha beta gamma " + strings.Repeat("delta ", 20)
		limit := marker + 10 // budget ends after "beta"
		if got := Truncate(text, limit); got != "alpha beta"+TruncationMarker {
			t.Errorf("got %q", got)
		}
	})

	t.Run("hard cut without whitespace", func(t *testing.T) {
		text := strings.Repeat("x", 200)
		got := Truncate(text, marker+10)
		if got != strings.Repeat("x", 10)+TruncationMarker {
			t.Errorf("got %q", got)
		}
	})

	t.Run("counts characters not bytes", func(t *testing.T) {
		text := strings.Repeat("é", 40)
		if got := Truncate(text, 40); got != text {
			t.Errorf("expected multibyte text within cap to be unchanged")
		}
	})
}
