package pdfbook

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// pageNumberStyle places numbers bottom-right, 36pt from both edges.
const pageNumberStyle = "fontname:Helvetica, points:10, position:br, offset:-36 36, " +
	"scalefactor:1 abs, rotation:0, opacity:1, fillcolor:#000000"

// Stamp overlays printed page numbers on pdf. The page at 0-based index i
// gets number i-firstNumbered+1; pages before firstNumbered are left bare.
// Page content, size and rotation are untouched. The output depends only
// on the input bytes. Failures wrap ErrStamp.
func Stamp(pdf []byte, firstNumbered int) ([]byte, error) {
	sum := sha256.Sum256(pdf)
	return stampBook(pdf, firstNumbered, docInfo{ID: hex.EncodeToString(sum[:16])})
}

// stampBook numbers pages and writes the book canonically with info.
func stampBook(pdf []byte, firstNumbered int, info docInfo) ([]byte, error) {
	if firstNumbered < 0 {
		return nil, fmt.Errorf("%w: negative first numbered page %d", ErrStamp, firstNumbered)
	}
	if !looksLikePDF(pdf) {
		return nil, fmt.Errorf("%w: %v", ErrStamp, errNotPDF)
	}

	conf := pdfConfig()
	conf.Cmd = model.ADDWATERMARKS
	ctx, err := api.ReadAndValidate(bytes.NewReader(pdf), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStamp, err)
	}
	if ctx.PageCount < 1 {
		return nil, fmt.Errorf("%w: %v: no pages", ErrStamp, errNotPDF)
	}

	// One page at a time in page order; pdfcpu's map variant allocates
	// objects in map iteration order.
	for _, p := range stampPlan(ctx.PageCount, firstNumbered) {
		wm, err := api.TextWatermark(p.label, pageNumberStyle, true, false, types.POINTS)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrStamp, p.page, err)
		}
		if err := pdfcpu.AddWatermarks(ctx, types.IntSet{p.page: true}, wm); err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrStamp, p.page, err)
		}
	}

	out, err := writeCanonical(ctx, info)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStamp, err)
	}
	return out, nil
}

// pageLabel is the printed number for one 1-based physical page.
type pageLabel struct {
	page  int
	label string
}

// stampPlan lists labels in page order.
func stampPlan(total, firstNumbered int) []pageLabel {
	var plan []pageLabel
	for i := firstNumbered; i < total; i++ {
		plan = append(plan, pageLabel{page: i + 1, label: strconv.Itoa(printedNumber(i, firstNumbered))})
	}
	return plan
}

// printedNumber converts a 0-based physical index to its printed number.
func printedNumber(pageIndex, firstNumbered int) int {
	return pageIndex - firstNumbered + 1
}
