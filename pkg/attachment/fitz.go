package attachment

import (
	"image"

	"github.com/gen2brain/go-fitz"
)

// pageDPI is the fixed render scale, roughly 2x screen resolution.
const pageDPI = 144

// FitzRasterizer renders PDF pages with MuPDF.
type FitzRasterizer struct{}

func NewFitzRasterizer() *FitzRasterizer { return &FitzRasterizer{} }

func (FitzRasterizer) Open(data []byte) (Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, err
	}
	return &fitzDocument{doc: doc}, nil
}

type fitzDocument struct {
	doc *fitz.Document
}

func (d *fitzDocument) PageCount() int { return d.doc.NumPage() }

func (d *fitzDocument) RenderPage(n int) (image.Image, error) {
	return d.doc.ImageDPI(n, pageDPI)
}

func (d *fitzDocument) Close() error { return d.doc.Close() }
