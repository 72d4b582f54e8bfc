package urlutil

import "testing"

func TestValidate(t *testing.T) {
	valid := []string{
		"http://example.com",
		"https://www.red.cl/estado-del-servicio/",
	}
	for _, u := range valid {
		if err := ValidateURL(u); err != nil {
			t.Fatalf("expected valid, got error: %v", err)
		}
	}

	invalid := []string{"ftp://example.com", "//example.com", "http:///"}
	for _, u := range invalid {
		if err := ValidateURL(u); err == nil {
			t.Fatalf("expected invalid for %s", u)
		}
	}
}

func TestResolveURL(t *testing.T) {
	cases := []struct {
		base, href, want string
	}{
		{"https://www.red.cl", "/noticias/desvio-1", "https://www.red.cl/noticias/desvio-1"},
		{"https://www.red.cl", "noticias/desvio-2", "https://www.red.cl/noticias/desvio-2"},
		{"https://www.red.cl", "https://other.cl/x", "https://other.cl/x"},
		{"https://www.red.cl/a/b/", "../c", "https://www.red.cl/a/c"},
		{"https://www.red.cl", "/n/%zz", "https://www.red.cl/n/%zz"},
		{"https://www.red.cl/", "n/%zz", "https://www.red.cl/n/%zz"},
	}

	for _, c := range cases {
		if got := ResolveURL(c.base, c.href); got != c.want {
			t.Errorf("ResolveURL(%q, %q): expected %q, got %q", c.base, c.href, c.want, got)
		}
	}
}

func TestJoin(t *testing.T) {
	if got := Join("https://www.red.cl/", "/tarifas-y-recargas/"); got != "https://www.red.cl/tarifas-y-recargas/" {
		t.Errorf("Expected single slash join, got %q", got)
	}
	if got := Join("https://www.red.cl", ""); got != "https://www.red.cl" {
		t.Errorf("Expected base unchanged, got %q", got)
	}
}

func TestHost(t *testing.T) {
	if got := Host("https://WWW.Red.cl:443/x"); got != "www.red.cl" {
		t.Errorf("Expected www.red.cl, got %q", got)
	}
	if got := Host("://bad"); got != "" {
		t.Errorf("Expected empty host, got %q", got)
	}
}
