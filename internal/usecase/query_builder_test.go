package usecase

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/prodlens/backend/internal/domain"
)

func TestCleanName(t *testing.T) {
	b := NewSearchQueryBuilder()

	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "removes size in oz",
			input: "Acme Matte Lipstick, 0.12 oz",
			want:  "Acme Matte Lipstick",
		},
		{
			name:  "removes fl oz",
			input: "Glow Serum 1.7 fl oz",
			want:  "Glow Serum",
		},
		{
			name:  "removes pack count",
			input: "Coca-Cola Soda Pop, 6 pack",
			want:  "Coca-Cola Soda Pop",
		},
		{
			name:  "removes pack of",
			input: "Lip Liner pack of 3",
			want:  "Lip Liner",
		},
		{
			name:  "removes noise words and orphaned dash",
			input: "New Improved Shampoo - Value Size",
			want:  "Shampoo Size",
		},
		{
			name:  "keeps original casing",
			input: "L'Oreal Paris Infallible",
			want:  "L'Oreal Paris Infallible",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := b.CleanName(tc.input)
			if got != tc.want {
				t.Errorf("CleanName(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestCleanName_TruncatesAtWordBoundary(t *testing.T) {
	b := NewSearchQueryBuilder()

	got := b.CleanName(strings.Repeat("word ", 40))

	if len(got) > maxQueryNameLength {
		t.Errorf("len = %d, want <= %d", len(got), maxQueryNameLength)
	}
	if strings.HasSuffix(got, " ") || strings.HasSuffix(got, "wor") {
		t.Errorf("expected cut at word boundary, got %q", got)
	}
}

func TestCleanName_TruncatesAtRuneBoundary(t *testing.T) {
	b := NewSearchQueryBuilder()

	// "a" shifts every two-byte rune so the length limit lands mid-rune
	got := b.CleanName("a" + strings.Repeat("é", 100))

	if !utf8.ValidString(got) {
		t.Errorf("CleanName returned invalid UTF-8: %q", got)
	}
	if len(got) > maxQueryNameLength {
		t.Errorf("len = %d, want <= %d", len(got), maxQueryNameLength)
	}
	if want := "a" + strings.Repeat("é", 59); got != want {
		t.Errorf("CleanName = %q, want %q", got, want)
	}
}

func TestBuild(t *testing.T) {
	b := NewSearchQueryBuilder()

	testCases := []struct {
		name    string
		request *domain.LookupRequest
		want    string
	}{
		{
			name: "all fields",
			request: &domain.LookupRequest{
				ProductName: "Matte Lipstick",
				BrandName:   "Acme",
				UPC:         "012345",
				Size:        "0.12 oz",
				Color:       "Ruby",
			},
			want: "Acme Matte Lipstick 0.12 oz Ruby UPC 012345",
		},
		{
			name: "brand already in name",
			request: &domain.LookupRequest{
				ProductName: "Acme Lipstick",
				BrandName:   "acme",
				UPC:         "1",
			},
			want: "Acme Lipstick UPC 1",
		},
		{
			name: "size moved out of the name",
			request: &domain.LookupRequest{
				ProductName: "Glow Serum 1.7 fl oz",
				BrandName:   "Lumi",
				UPC:         "2",
				Size:        "1.7 fl oz",
			},
			want: "Lumi Glow Serum 1.7 fl oz UPC 2",
		},
		{
			name:    "nil request",
			request: nil,
			want:    "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := b.Build(tc.request)
			if got != tc.want {
				t.Errorf("Build() = %q, want %q", got, tc.want)
			}
		})
	}
}
