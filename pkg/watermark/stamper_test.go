package watermark

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	lpdf "github.com/ledongthuc/pdf"

	"bindery/pkg/domain"
)

type pageSpec struct {
	width  int
	height int
}

func portraitPages(n int) []pageSpec {
	pages := make([]pageSpec, n)
	for i := range pages {
		pages[i] = pageSpec{width: 612, height: 792}
	}
	return pages
}

// buildPDF writes a minimal but well-formed PDF with one page per spec, each
// carrying its own MediaBox and a short text content stream.
func buildPDF(t *testing.T, pages []pageSpec) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")

	objCount := 3 + 2*len(pages)
	offsets := make([]int, objCount+1)
	addObj := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	kids := make([]string, 0, len(pages))
	for i := range pages {
		kids = append(kids, fmt.Sprintf("%d 0 R", 4+2*i))
	}
	addObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	addObj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	addObj(3, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	for i, p := range pages {
		pageNum := 4 + 2*i
		contentNum := pageNum + 1
		addObj(pageNum, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			p.width, p.height, contentNum))
		content := fmt.Sprintf("BT /F1 24 Tf 72 %d Td (Page %d) Tj ET", p.height-100, i+1)
		addObj(contentNum, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", objCount+1)
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num <= objCount; num++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[num])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", objCount+1, xrefOffset)
	return buf.Bytes()
}

// pageStreams concatenates the decoded content stream and form XObject streams
// of one page, so tests can assert on the text operators actually rendered.
func pageStreams(t *testing.T, data []byte, pageNum int) string {
	t.Helper()
	r, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open derived pdf: %v", err)
	}
	page := r.Page(pageNum)
	if page.V.IsNull() {
		t.Fatalf("page %d missing", pageNum)
	}
	var sb strings.Builder
	collectStreams(&sb, page.V.Key("Contents"))
	xobjects := page.V.Key("Resources").Key("XObject")
	for _, name := range xobjects.Keys() {
		collectStreams(&sb, xobjects.Key(name))
	}
	return sb.String()
}

func collectStreams(sb *strings.Builder, v lpdf.Value) {
	switch v.Kind() {
	case lpdf.Stream:
		rc := v.Reader()
		data, err := io.ReadAll(rc)
		rc.Close()
		if err == nil {
			sb.Write(data)
			sb.WriteByte('\n')
		}
	case lpdf.Array:
		for i := 0; i < v.Len(); i++ {
			collectStreams(sb, v.Index(i))
		}
	}
}

func derivedPageCount(t *testing.T, data []byte) int {
	t.Helper()
	r, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open derived pdf: %v", err)
	}
	return r.NumPage()
}

func TestStampPreservesPageCount(t *testing.T) {
	for _, n := range []int{1, 5, 50} {
		source := buildPDF(t, portraitPages(n))
		derived, err := Stamp(source, "Purchased by reader@example.com | Some Title | Order abc123")
		if err != nil {
			t.Fatalf("stamp %d pages: %v", n, err)
		}
		if got := derivedPageCount(t, derived); got != n {
			t.Fatalf("expected %d pages after stamping, got %d", n, got)
		}
		if got, err := PageCount(derived); err != nil || got != n {
			t.Fatalf("PageCount(derived) = %d, %v; want %d", got, err, n)
		}
	}
}

func TestStampTextOnEveryPageIncludingMixedOrientation(t *testing.T) {
	pages := []pageSpec{
		{width: 612, height: 792},  // US Letter portrait
		{width: 842, height: 595},  // A4 landscape
		{width: 300, height: 300},  // square, non-default size
	}
	source := buildPDF(t, pages)
	text := "Purchased by reader@example.com | Mixed Pages | Order o-42"
	derived, err := Stamp(source, text)
	if err != nil {
		t.Fatalf("stamp: %v", err)
	}
	for i := 1; i <= len(pages); i++ {
		streams := pageStreams(t, derived, i)
		if !strings.Contains(streams, "Purchased by reader@example.com") {
			t.Fatalf("watermark text missing from page %d streams", i)
		}
		if !strings.Contains(streams, fmt.Sprintf("Page %d", i)) {
			t.Fatalf("original content missing from page %d", i)
		}
	}
}

func TestStampDoesNotMutateSource(t *testing.T) {
	source := buildPDF(t, portraitPages(2))
	original := bytes.Clone(source)
	if _, err := Stamp(source, "Purchased by a@b.c | T | Order o"); err != nil {
		t.Fatalf("stamp: %v", err)
	}
	if !bytes.Equal(source, original) {
		t.Fatalf("source bytes were mutated")
	}
}

func TestStampRejectsCorruptSource(t *testing.T) {
	_, err := Stamp([]byte("definitely not a pdf"), "Purchased by a@b.c")
	if !errors.Is(err, domain.ErrCorruptSource) {
		t.Fatalf("expected ErrCorruptSource, got %v", err)
	}
}

func TestStampRejectsUnencodableText(t *testing.T) {
	source := buildPDF(t, portraitPages(1))
	for _, text := range []string{"", "Purchased by 読者@example.com", "snowman ☃"} {
		if _, err := Stamp(source, text); !errors.Is(err, domain.ErrEncoding) {
			t.Fatalf("expected ErrEncoding for %q, got %v", text, err)
		}
	}
}

func TestStampAcceptsLatin1AndWinAnsiExtras(t *testing.T) {
	source := buildPDF(t, portraitPages(1))
	if _, err := Stamp(source, "Purchased by rené@example.com — Café™ | Order o-1"); err != nil {
		t.Fatalf("expected WinAnsi text to stamp, got %v", err)
	}
}

func TestPageCountRejectsCorruptSource(t *testing.T) {
	if _, err := PageCount([]byte{0x00, 0x01}); !errors.Is(err, domain.ErrCorruptSource) {
		t.Fatalf("expected ErrCorruptSource, got %v", err)
	}
}
