// Package watermark derives buyer-specific PDF copies by stamping identifying
// text onto every page of a source document. The stamp is a visible deterrent,
// not a security control.
package watermark

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"bindery/pkg/domain"
)

// stampDescription anchors the text at each page's own bottom-left corner with
// a small offset, so placement tracks per-page dimensions (mixed portrait and
// landscape documents included) instead of assuming one page size.
const stampDescription = "fontname:Helvetica, points:9, scalefactor:1 abs, position:bl, offset:10 8, rotation:0, opacity:0.3, fillcolor:#555555"

var configOnce sync.Once

func stampConfiguration() *model.Configuration {
	configOnce.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	// Plain xref tables and unpacked objects keep the output readable by the
	// widest range of PDF consumers.
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false
	return conf
}

// Stamp returns a new PDF with text rendered low-opacity on every page of
// source. The source slice is never modified. It fails with
// domain.ErrCorruptSource when source is not parseable as a PDF and with
// domain.ErrEncoding when text contains characters the stamp font cannot
// render; in both cases no output is produced.
func Stamp(source []byte, text string) ([]byte, error) {
	if len(text) == 0 {
		return nil, fmt.Errorf("%w: empty watermark text", domain.ErrEncoding)
	}
	for _, r := range text {
		if !encodable(r) {
			return nil, fmt.Errorf("%w: unsupported character %q", domain.ErrEncoding, r)
		}
	}

	conf := stampConfiguration()
	if err := api.Validate(bytes.NewReader(source), conf); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptSource, err)
	}

	wm, err := api.TextWatermark(text, stampDescription, true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("build watermark: %w", err)
	}

	var out bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(source), &out, nil, wm, conf); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptSource, err)
	}
	return out.Bytes(), nil
}

// PageCount reports the number of pages in a PDF, failing with
// domain.ErrCorruptSource when the bytes do not parse.
func PageCount(source []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(source), stampConfiguration())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrCorruptSource, err)
	}
	return n, nil
}

// encodable reports whether the stamp font (Helvetica, WinAnsi encoding) can
// render the rune. Printable ASCII and Latin-1 pass, plus the handful of
// WinAnsi extras in the 0x80-0x9F window.
func encodable(r rune) bool {
	if r >= 0x20 && r <= 0x7E {
		return true
	}
	if r >= 0xA0 && r <= 0xFF {
		return true
	}
	switch r {
	case '€', '‚', 'ƒ', '„', '…', '†', '‡', 'ˆ', '‰', 'Š', '‹', 'Œ', 'Ž',
		'‘', '’', '“', '”', '•', '–', '—', '˜', '™', 'š', '›', 'œ', 'ž', 'Ÿ':
		return true
	}
	return false
}
