// Package attachment converts an uploaded PDF into per-page raster images
// suitable for multimodal model input.
package attachment

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/lennythecreator/sphinx/pkg/domain"
)

const pdfContentType = "application/pdf"

// pageMaxWidth bounds the rasterized page width so page images stay small
// enough to embed as data URIs in a completion request.
const pageMaxWidth = 1200

// Document is an open, page-addressable file.
type Document interface {
	PageCount() int
	RenderPage(n int) (image.Image, error)
	Close() error
}

// Rasterizer opens raw file bytes as a renderable document.
type Rasterizer interface {
	Open(data []byte) (Document, error)
}

type Pipeline struct {
	rasterizer Rasterizer
}

func NewPipeline(rasterizer Rasterizer) *Pipeline {
	return &Pipeline{rasterizer: rasterizer}
}

// Upload tracks one submitted file through processing -> ready|error. A
// started decode always runs to a terminal status; cancelling a chat turn has
// no effect on it.
type Upload struct {
	mu    sync.Mutex
	info  domain.AttachmentInfo
	pages []domain.PageImage
	done  chan struct{}
}

func (u *Upload) Info() domain.AttachmentInfo {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.info
}

// Pages returns the page images in page order. Valid once status is ready.
func (u *Upload) Pages() []domain.PageImage {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]domain.PageImage, len(u.pages))
	copy(out, u.pages)
	return out
}

func (u *Upload) Done() <-chan struct{} { return u.done }

// Wait blocks until the upload reaches a terminal status or ctx is done.
func (u *Upload) Wait(ctx context.Context) (domain.AttachmentInfo, error) {
	select {
	case <-u.done:
		return u.Info(), nil
	case <-ctx.Done():
		return u.Info(), ctx.Err()
	}
}

func (u *Upload) set(info domain.AttachmentInfo) {
	u.mu.Lock()
	u.info = info
	u.mu.Unlock()
}

// Submit accepts a single file and starts processing it. Non-PDF content
// types are rejected up front without reading the data. The returned Upload
// replaces any previously pending one in the caller's compose state.
func (p *Pipeline) Submit(name, contentType string, data []byte) *Upload {
	u := &Upload{done: make(chan struct{})}

	if contentType != pdfContentType {
		u.info = domain.AttachmentInfo{
			Name:    name,
			Status:  domain.AttachmentError,
			Message: "Only PDF files are supported",
		}
		close(u.done)
		return u
	}

	u.info = domain.AttachmentInfo{
		Name:   name,
		Size:   int64(len(data)),
		Status: domain.AttachmentProcessing,
	}

	go func() {
		defer close(u.done)
		p.process(u, name, data)
	}()

	return u
}

func (p *Pipeline) process(u *Upload, name string, data []byte) {
	info := u.Info()

	doc, err := p.rasterizer.Open(data)
	if err != nil {
		info.Status = domain.AttachmentError
		info.Message = "Could not read the PDF"
		u.set(info)
		return
	}
	defer doc.Close()

	// Pages are rendered strictly in order so progress and error attribution
	// stay unambiguous.
	total := doc.PageCount()
	pages := make([]domain.PageImage, 0, total)
	for n := 0; n < total; n++ {
		img, err := doc.RenderPage(n)
		if err != nil {
			info.Status = domain.AttachmentError
			info.Message = fmt.Sprintf("Failed to render page %d", n+1)
			u.set(info)
			return
		}

		uri, err := encodePageImage(img)
		if err != nil {
			info.Status = domain.AttachmentError
			info.Message = fmt.Sprintf("Failed to encode page %d", n+1)
			u.set(info)
			return
		}

		pages = append(pages, domain.PageImage{
			Name:        fmt.Sprintf("%s (page %d)", name, n+1),
			ContentType: "image/png",
			URL:         uri,
		})
	}

	u.mu.Lock()
	u.pages = pages
	u.info.Pages = total
	u.info.Status = domain.AttachmentReady
	u.mu.Unlock()
}

func encodePageImage(img image.Image) (string, error) {
	if img.Bounds().Dx() > pageMaxWidth {
		img = imaging.Resize(img, pageMaxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
