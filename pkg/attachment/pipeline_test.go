package attachment

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"testing"
	"time"

	"github.com/lennythecreator/sphinx/pkg/domain"
)

type fakeDocument struct {
	pages   int
	failAt  int // 1-based page whose render fails; 0 means none
	renders []int
}

func (d *fakeDocument) PageCount() int { return d.pages }

func (d *fakeDocument) RenderPage(n int) (image.Image, error) {
	d.renders = append(d.renders, n)
	if d.failAt > 0 && n == d.failAt-1 {
		return nil, errors.New("render failed")
	}
	return image.NewRGBA(image.Rect(0, 0, 40, 60)), nil
}

func (d *fakeDocument) Close() error { return nil }

type fakeRasterizer struct {
	doc     *fakeDocument
	openErr error
	opened  int
}

func (r *fakeRasterizer) Open(_ []byte) (Document, error) {
	r.opened++
	if r.openErr != nil {
		return nil, r.openErr
	}
	return r.doc, nil
}

func wait(t *testing.T, u *Upload) domain.AttachmentInfo {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	info, err := u.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	return info
}

func TestSubmitRejectsNonPDFWithoutDecoding(t *testing.T) {
	r := &fakeRasterizer{doc: &fakeDocument{pages: 1}}
	p := NewPipeline(r)

	u := p.Submit("resume.docx", "application/msword", []byte("not a pdf"))

	info := wait(t, u)
	if info.Status != domain.AttachmentError {
		t.Fatalf("expected error status, got %q", info.Status)
	}
	if len(u.Pages()) != 0 {
		t.Fatalf("expected no pages, got %d", len(u.Pages()))
	}
	if r.opened != 0 {
		t.Fatal("non-PDF rejection must not invoke the rasterizer")
	}
}

func TestSubmitThreePageOrder(t *testing.T) {
	doc := &fakeDocument{pages: 3}
	p := NewPipeline(&fakeRasterizer{doc: doc})

	u := p.Submit("resume.pdf", "application/pdf", []byte("%PDF-"))

	info := wait(t, u)
	if info.Status != domain.AttachmentReady {
		t.Fatalf("expected ready status, got %q (%s)", info.Status, info.Message)
	}
	if info.Pages != 3 {
		t.Fatalf("expected 3 pages in info, got %d", info.Pages)
	}

	pages := u.Pages()
	if len(pages) != 3 {
		t.Fatalf("expected 3 page images, got %d", len(pages))
	}
	for i, page := range pages {
		wantName := fmt.Sprintf("resume.pdf (page %d)", i+1)
		if page.Name != wantName {
			t.Errorf("page %d name = %q, want %q", i, page.Name, wantName)
		}
		if !strings.HasPrefix(page.URL, "data:image/png;base64,") {
			t.Errorf("page %d is not a self-contained data URI", i)
		}
	}

	for i, n := range doc.renders {
		if n != i {
			t.Fatalf("pages rendered out of order: %v", doc.renders)
		}
	}
}

func TestSubmitDecodeFailure(t *testing.T) {
	p := NewPipeline(&fakeRasterizer{openErr: errors.New("corrupt file")})

	u := p.Submit("resume.pdf", "application/pdf", []byte("garbage"))

	info := wait(t, u)
	if info.Status != domain.AttachmentError || info.Message == "" {
		t.Fatalf("expected error status with message, got %+v", info)
	}
}

func TestSubmitPageRenderFailure(t *testing.T) {
	p := NewPipeline(&fakeRasterizer{doc: &fakeDocument{pages: 3, failAt: 2}})

	u := p.Submit("resume.pdf", "application/pdf", []byte("%PDF-"))

	info := wait(t, u)
	if info.Status != domain.AttachmentError {
		t.Fatalf("expected error status, got %q", info.Status)
	}
	if !strings.Contains(info.Message, "page 2") {
		t.Errorf("error should name the failing page, got %q", info.Message)
	}
}
