package pdfbook

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

func init() {
	// pdfcpu writes a config directory on first use otherwise.
	api.DisableConfigDir()
}

// errNotPDF indicates bytes that do not start like a PDF file.
var errNotPDF = errors.New("content is not a PDF")

// pdfMagicWindow is how far into the data the %PDF- header may start.
const pdfMagicWindow = 1024

// pdfConfig returns a pdfcpu configuration that tolerates the minor PDF
// format violations common in exported documents.
func pdfConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// looksLikePDF reports whether data carries a PDF header near its start.
func looksLikePDF(data []byte) bool {
	window := data
	if len(window) > pdfMagicWindow {
		window = window[:pdfMagicWindow]
	}
	return bytes.Contains(window, []byte("%PDF-"))
}

// pdfInfo is what the fetcher keeps from a parsed document.
type pdfInfo struct {
	Pages int
	Title string // document information Title, may be empty
}

// inspectPDF validates data and returns its page count and title. A
// zero-page document is an error.
func inspectPDF(data []byte) (pdfInfo, error) {
	if !looksLikePDF(data) {
		return pdfInfo{}, errNotPDF
	}
	ctx, err := api.ReadAndValidate(bytes.NewReader(data), pdfConfig())
	if err != nil {
		return pdfInfo{}, err
	}
	if ctx.PageCount < 1 {
		return pdfInfo{}, fmt.Errorf("%w: no pages", errNotPDF)
	}
	return pdfInfo{Pages: ctx.PageCount, Title: infoTitle(ctx)}, nil
}

// countPages parses data and returns its page count.
func countPages(data []byte) (int, error) {
	info, err := inspectPDF(data)
	return info.Pages, err
}

// infoTitle reads Title from the document information dictionary.
func infoTitle(ctx *model.Context) string {
	if ctx.Info == nil {
		return ""
	}
	d, err := ctx.DereferenceDict(*ctx.Info)
	if err != nil || d == nil {
		return ""
	}
	o, ok := d.Find("Title")
	if !ok {
		return ""
	}
	title, err := ctx.DereferenceText(o)
	if err != nil {
		return ""
	}
	return title
}

// setTitle stores title in the document information dictionary of data.
func setTitle(data []byte, title string) ([]byte, error) {
	ctx, err := api.ReadAndValidate(bytes.NewReader(data), pdfConfig())
	if err != nil {
		return nil, err
	}
	if ctx.Info == nil {
		ir, err := ctx.IndRefForNewObject(types.NewDict())
		if err != nil {
			return nil, err
		}
		ctx.Info = ir
	}
	d, err := ctx.DereferenceDict(*ctx.Info)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, errors.New("document information is not a dictionary")
	}
	text, err := pdfText(title)
	if err != nil {
		return nil, err
	}
	d.Update("Title", text)

	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// pdfText encodes s as a string literal, UTF-16 when it leaves ASCII.
func pdfText(s string) (types.StringLiteral, error) {
	ascii := true
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	var esc *string
	var err error
	if ascii {
		esc, err = types.Escape(s)
	} else {
		esc, err = types.EscapedUTF16String(s)
	}
	if err != nil {
		return "", err
	}
	return types.StringLiteral(*esc), nil
}

// readRelaxed parses data without validating it. Link extraction reads
// seed PDFs this way so one malformed object does not hide the others.
func readRelaxed(data []byte) (ctx *model.Context, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			ctx, pages, err = nil, 0, fmt.Errorf("reading PDF: %v", r)
		}
	}()

	if !looksLikePDF(data) {
		return nil, 0, errNotPDF
	}
	ctx, err = api.ReadContext(bytes.NewReader(data), pdfConfig())
	if err != nil {
		return nil, 0, err
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, 0, err
	}
	if ctx.PageCount < 1 {
		return nil, 0, fmt.Errorf("%w: no pages", errNotPDF)
	}
	return ctx, ctx.PageCount, nil
}

// textPageCount counts pages with the text extractor's parser, which
// accepts some files pdfcpu refuses.
func textPageCount(data []byte) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("counting pages: %v", r)
		}
	}()
	if !looksLikePDF(data) {
		return 0, errNotPDF
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	if n = reader.NumPage(); n < 1 {
		return 0, fmt.Errorf("%w: no pages", errNotPDF)
	}
	return n, nil
}

// mergePDFs concatenates docs in order.
func mergePDFs(docs [][]byte) ([]byte, error) {
	switch len(docs) {
	case 0:
		return nil, errors.New("nothing to merge")
	case 1:
		return bytes.Clone(docs[0]), nil
	}

	readers := make([]io.ReadSeeker, len(docs))
	for i, d := range docs {
		readers[i] = bytes.NewReader(d)
	}

	var buf bytes.Buffer
	if err := api.MergeRaw(readers, &buf, false, pdfConfig()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// outlineItem is one bookmark: a title and a 0-based physical page index.
type outlineItem struct {
	Title     string
	PageIndex int
}

// addOutline replaces the document outline with items, in order.
func addOutline(data []byte, items []outlineItem) ([]byte, error) {
	if len(items) == 0 {
		return data, nil
	}

	bms := make([]pdfcpu.Bookmark, len(items))
	for i, it := range items {
		bms[i] = pdfcpu.Bookmark{Title: it.Title, PageFrom: it.PageIndex + 1}
	}

	var buf bytes.Buffer
	if err := api.AddBookmarks(bytes.NewReader(data), &buf, bms, true, pdfConfig()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// bookDate replaces creation and modification dates in the final book.
const bookDate = "D:20000101000000Z"

// producer names this tool in the document information dictionary.
const producer = "go-pdfbook"

// docInfo is the document information written into the final book.
type docInfo struct {
	Title string
	ID    string // 32 hex digits, used for both trailer ID halves
}

// startXRef finds the offset of the last cross-reference section.
var startXRef = regexp.MustCompile(`startxref\s+(\d+)\s+%%EOF\s*$`)

// writeCanonical serializes ctx so equal content gives equal bytes.
// pdfcpu orders objects by walking dictionaries, stamps the current time
// into the information dictionary and derives the file ID from it, so the
// written file is reassembled: objects in number order, a fixed
// information dictionary, the ID from info and no XMP packet.
func writeCanonical(ctx *model.Context, info docInfo) ([]byte, error) {
	ctx.Configuration.WriteObjectStream = false
	ctx.Configuration.WriteXRefStream = false

	root, err := ctx.Catalog()
	if err != nil {
		return nil, err
	}
	root.Delete("Metadata")

	var raw bytes.Buffer
	if err := api.WriteContext(ctx, &raw); err != nil {
		return nil, err
	}
	data := raw.Bytes()

	m := startXRef.FindSubmatch(data)
	if m == nil {
		return nil, errors.New("canonical write: no startxref")
	}
	xrefAt, err := strconv.ParseInt(string(m[1]), 10, 64)
	if err != nil || xrefAt <= 0 || xrefAt > int64(len(data)) {
		return nil, fmt.Errorf("canonical write: bad startxref %q", m[1])
	}

	offsets := ctx.Write.Table
	if len(offsets) == 0 || ctx.Info == nil {
		return nil, errors.New("canonical write: nothing written")
	}
	nums := make([]int, 0, len(offsets))
	for n := range offsets {
		nums = append(nums, n)
	}
	slices.Sort(nums)

	// Object bodies end where the next one starts in file order.
	byOffset := slices.Clone(nums)
	slices.SortFunc(byOffset, func(a, b int) int { return cmp.Compare(offsets[a], offsets[b]) })
	end := make(map[int]int64, len(byOffset))
	for i, n := range byOffset {
		if i+1 < len(byOffset) {
			end[n] = offsets[byOffset[i+1]]
		} else {
			end[n] = xrefAt
		}
	}

	infoNr := ctx.Info.ObjectNumber.Value()
	infoDict, err := canonicalInfo(info)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.Write(data[:offsets[byOffset[0]]])

	placed := make(map[int]int64, len(nums))
	for _, n := range nums {
		placed[n] = int64(out.Len())
		if n == infoNr {
			fmt.Fprintf(&out, "%d %d obj\n%s\nendobj\n", n, ctx.Info.GenerationNumber.Value(), infoDict.PDFString())
			continue
		}
		out.Write(data[offsets[n]:end[n]])
	}

	size := nums[len(nums)-1] + 1
	xref := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n", size)

	// Free entries form a list through the unused numbers.
	var free []int
	for i := 1; i < size; i++ {
		if _, ok := placed[i]; !ok {
			free = append(free, i)
		}
	}
	next := func(k int) int {
		if k < len(free) {
			return free[k]
		}
		return 0
	}
	fmt.Fprintf(&out, "%010d 65535 f \n", next(0))
	k := 0
	for i := 1; i < size; i++ {
		off, ok := placed[i]
		if !ok {
			k++
			fmt.Fprintf(&out, "%010d 65535 f \n", next(k))
			continue
		}
		fmt.Fprintf(&out, "%010d %05d n \n", off, generation(ctx, i))
	}

	trailer := types.NewDict()
	trailer.Insert("Size", types.Integer(size))
	trailer.Insert("Root", *ctx.Root)
	trailer.Insert("Info", *ctx.Info)
	trailer.Insert("ID", types.Array{types.HexLiteral(info.ID), types.HexLiteral(info.ID)})
	fmt.Fprintf(&out, "trailer\n%s\nstartxref\n%d\n%%%%EOF\n", trailer.PDFString(), xref)
	return out.Bytes(), nil
}

// canonicalInfo builds the information dictionary of the final book.
func canonicalInfo(info docInfo) (types.Dict, error) {
	d := types.NewDict()
	d.InsertString("Producer", producer)
	d.InsertString("Creator", producer)
	d.InsertString("CreationDate", bookDate)
	d.InsertString("ModDate", bookDate)
	if info.Title != "" {
		title, err := pdfText(info.Title)
		if err != nil {
			return nil, err
		}
		d.Insert("Title", title)
	}
	return d, nil
}

func generation(ctx *model.Context, objNr int) int {
	if e, ok := ctx.Table[objNr]; ok && e.Generation != nil {
		return *e.Generation
	}
	return 0
}
