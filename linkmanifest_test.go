package pdfbook

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"testing/iotest"
)

// ---------------------------------------------------------------------------
// TestReadLinkManifest - CSV rows sorted by order
// ---------------------------------------------------------------------------

func TestReadLinkManifest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		csv  string
		want []ManifestLink
	}{
		{
			name: "numeric order",
			csv: "title,url,order\n" +
				"Third,https://example.com/c,10\n" +
				"First,https://example.com/a,1\n" +
				"Second,https://example.com/b,2\n",
			want: []ManifestLink{
				{Title: "First", URL: "https://example.com/a", Order: "1"},
				{Title: "Second", URL: "https://example.com/b", Order: "2"},
				{Title: "Third", URL: "https://example.com/c", Order: "10"},
			},
		},
		{
			name: "columns in any order and case",
			csv:  "URL, Title\nhttps://example.com/a, Alpha\n",
			want: []ManifestLink{{Title: "Alpha", URL: "https://example.com/a"}},
		},
		{
			name: "text orders after numbers, ties stable",
			csv: "url,order\n" +
				"https://example.com/x,appendix\n" +
				"https://example.com/y,\n" +
				"https://example.com/z,3\n" +
				"https://example.com/w,\n",
			want: []ManifestLink{
				{URL: "https://example.com/z", Order: "3"},
				{URL: "https://example.com/y"},
				{URL: "https://example.com/w"},
				{URL: "https://example.com/x", Order: "appendix"},
			},
		},
		{
			name: "rows without url skipped",
			csv:  "title,url\nEmpty,\n\"Quoted, title\",https://example.com/q\nShort\n",
			want: []ManifestLink{{Title: "Quoted, title", URL: "https://example.com/q"}},
		},
		{
			name: "byte order mark",
			csv:  "\ufeffurl\nhttps://example.com/a\n",
			want: []ManifestLink{{URL: "https://example.com/a"}},
		},
		{
			name: "empty file",
			csv:  "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ReadLinkManifest(strings.NewReader(tt.csv))
			if err != nil {
				t.Fatalf("ReadLinkManifest() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ReadLinkManifest() =\n%+v\nwant\n%+v", got, tt.want)
			}
		})
	}
}

func TestReadLinkManifest_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		r    io.Reader
	}{
		{name: "no url column", r: strings.NewReader("title,order\nA,1\n")},
		{name: "read failure", r: iotest.ErrReader(errors.New("disk gone"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ReadLinkManifest(tt.r)
			if !errors.Is(err, ErrInvalidManifest) {
				t.Errorf("ReadLinkManifest() error = %v, want ErrInvalidManifest", err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestWithManifestLinks - Listed links lead, extracted duplicates drop
// ---------------------------------------------------------------------------

func TestWithManifestLinks(t *testing.T) {
	t.Parallel()

	extracted := []LinkRecord{
		{RawURL: "https://example.com/a", SourceOrder: 0, DisplayText: "A"},
		{RawURL: "https://example.com/b", SourceOrder: 1},
	}

	t.Run("no manifest", func(t *testing.T) {
		t.Parallel()

		if got := withManifestLinks(nil, extracted); !reflect.DeepEqual(got, extracted) {
			t.Errorf("withManifestLinks() = %+v, want records unchanged", got)
		}
	})

	t.Run("merged", func(t *testing.T) {
		t.Parallel()

		links := []ManifestLink{
			{Title: "Bee", URL: "https://example.com/b"},
			{URL: "https://example.com/c"},
		}
		want := []LinkRecord{
			{RawURL: "https://example.com/b", SourceOrder: 0, Label: "Bee"},
			{RawURL: "https://example.com/c", SourceOrder: 1},
			{RawURL: "https://example.com/a", SourceOrder: 2, DisplayText: "A"},
		}
		if got := withManifestLinks(links, extracted); !reflect.DeepEqual(got, want) {
			t.Errorf("withManifestLinks() =\n%+v\nwant\n%+v", got, want)
		}
	})
}
