package pdfbook

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// tocLinkPrefix marks TOC hyperlinks that point at a page of the book. The
// browser prints them as URI links; linkTOC turns them into jumps.
const tocLinkPrefix = "https://pdfbook.invalid/page/"

// tocTarget is the TOC hyperlink for a 0-based physical page index.
func tocTarget(pageIndex int) string {
	return tocLinkPrefix + strconv.Itoa(pageIndex)
}

// tocLinkPage parses a TOC hyperlink back into a page index.
func tocLinkPage(uri string) (int, bool) {
	rest, ok := strings.CutPrefix(uri, tocLinkPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// linkTOC rewrites the TOC hyperlinks on pages [first, first+count) of the
// merged book into GoTo destinations fitting the target page. Links to pages
// outside the book are left alone. It returns the rewritten document and
// how many links now jump inside it.
func linkTOC(data []byte, first, count int) ([]byte, int, error) {
	if count < 1 {
		return data, 0, nil
	}
	ctx, err := api.ReadAndValidate(bytes.NewReader(data), pdfConfig())
	if err != nil {
		return nil, 0, err
	}

	linked := 0
	for p := first + 1; p <= first+count && p <= ctx.PageCount; p++ {
		n, err := linkPage(ctx, p)
		if err != nil {
			return nil, 0, err
		}
		linked += n
	}
	if linked == 0 {
		return data, 0, nil
	}

	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), linked, nil
}

// linkPage rewrites the TOC hyperlinks of one 1-based page.
func linkPage(ctx *model.Context, page int) (int, error) {
	d, _, _, err := ctx.PageDict(page, false)
	if err != nil || d == nil {
		return 0, err
	}
	annots, err := ctx.DereferenceArray(d["Annots"])
	if err != nil {
		return 0, err
	}

	linked := 0
	for _, o := range annots {
		link, ok := uriLink(ctx, o)
		if !ok {
			continue
		}
		target, ok := tocLinkPage(link.uri)
		if !ok || target >= ctx.PageCount {
			continue
		}
		_, ref, _, err := ctx.PageDict(target+1, false)
		if err != nil || ref == nil {
			continue
		}
		annot, err := ctx.DereferenceDict(o)
		if err != nil || annot == nil {
			continue
		}
		annot.Delete("A")
		annot.Update("Dest", types.Array{*ref, types.Name("Fit")})
		linked++
	}
	return linked, nil
}
