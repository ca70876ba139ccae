package report

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/sync/errgroup"

	types "github.com/casaluz/incidents-backend/internal/domain"
	"github.com/casaluz/incidents-backend/internal/platform/apperr"
	"github.com/casaluz/incidents-backend/internal/platform/imagefetch"
	"github.com/casaluz/incidents-backend/internal/platform/logger"
)

const (
	pageWidth  = 210.0
	marginX    = 15.0
	marginTop  = 15.0
	bottomGap  = 35.0
	lineHeight = 6.0

	labelWidth = 45.0

	imageWidth     = 120.0
	maxImageHeight = 180.0

	// Vertical write position past which the next image opens a fresh
	// page instead.
	pageCapacityY = 250.0

	prefetchWorkers = 4
)

type Config struct {
	CompanyName  string
	CompanyLines []string
	ContactLines []string
	LogoPath     string
}

// Renderer turns an incident aggregate into the finished PDF report. The
// only I/O it performs is through the image fetcher it was handed and one
// optional logo read at construction; a missing logo is a warning, never
// a failure.
type Renderer struct {
	log   *logger.Logger
	fetch imagefetch.Fetcher
	cfg   Config
	logo  []byte
}

func New(log *logger.Logger, fetch imagefetch.Fetcher, cfg Config) *Renderer {
	r := &Renderer{
		log:   log.With("service", "ReportRenderer"),
		fetch: fetch,
		cfg:   cfg,
	}
	if cfg.LogoPath != "" {
		logo, err := os.ReadFile(cfg.LogoPath)
		if err != nil {
			r.log.Warn("Letterhead logo unavailable, reports render without it",
				"path", cfg.LogoPath, "error", err)
		} else {
			r.logo = logo
		}
	}
	return r
}

func (r *Renderer) Render(ctx context.Context, incident *types.Incident, items []*types.IncidentItem) ([]byte, error) {
	doc := BuildDocument(incident, items)

	images, err := r.prefetch(ctx, doc.imageURLs())
	if err != nil {
		return nil, apperr.Render("fetch evidence image", err)
	}

	pdf, err := r.draw(doc, images)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, apperr.Render("write pdf", err)
	}
	return buf.Bytes(), nil
}

// prefetch pulls every evidence image before drawing starts. Order only
// matters for layout, so fetches run concurrently.
func (r *Renderer) prefetch(ctx context.Context, urls []string) (map[string][]byte, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	unique := make([]string, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		unique = append(unique, u)
	}

	fetched := make([][]byte, len(unique))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(prefetchWorkers)
	for i, u := range unique {
		g.Go(func() error {
			data, err := r.fetch.Fetch(gctx, u)
			if err != nil {
				return err
			}
			fetched[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(unique))
	for i, u := range unique {
		out[u] = fetched[i]
	}
	return out, nil
}

func (r *Renderer) draw(doc *Document, images map[string][]byte) (*gofpdf.Fpdf, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(tr(doc.Title), false)
	pdf.SetMargins(marginX, marginTop, marginX)
	pdf.SetAutoPageBreak(true, bottomGap)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		r.drawFooter(pdf, tr)
	})

	for _, page := range doc.Pages {
		pdf.AddPage()
		for _, block := range page.Blocks {
			switch b := block.(type) {
			case Letterhead:
				r.drawLetterhead(pdf, tr)
			case Heading:
				pdf.SetFont("Helvetica", "B", 13)
				pdf.CellFormat(0, 9, tr(b.Text), "", 1, "L", false, 0, "")
				pdf.Ln(2)
			case KeyValues:
				r.drawKeyValues(pdf, tr, b)
			case ImageGroup:
				if err := r.drawImageGroup(pdf, tr, b, images); err != nil {
					return nil, err
				}
			}
		}
	}

	if pdf.Err() {
		return nil, apperr.Render("assemble pdf", pdf.Error())
	}
	return pdf, nil
}

func (r *Renderer) drawLetterhead(pdf *gofpdf.Fpdf, tr func(string) string) {
	if len(r.logo) > 0 {
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		if t, err := sniffImageType(r.logo); err == nil {
			opts.ImageType = t
		}
		pdf.RegisterImageOptionsReader("letterhead-logo", opts, bytes.NewReader(r.logo))
		if !pdf.Err() {
			pdf.ImageOptions("letterhead-logo", pageWidth-marginX-30, marginTop, 30, 0, false, opts, 0, "")
		}
	}

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 8, tr(r.cfg.CompanyName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(90, 90, 90)
	for _, line := range r.cfg.CompanyLines {
		pdf.CellFormat(0, 4.5, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.SetTextColor(0, 0, 0)

	y := pdf.GetY() + 3
	pdf.SetDrawColor(120, 120, 120)
	pdf.Line(marginX, y, pageWidth-marginX, y)
	pdf.SetY(y + 6)
}

func (r *Renderer) drawKeyValues(pdf *gofpdf.Fpdf, tr func(string) string, block KeyValues) {
	for _, row := range block.Rows {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(labelWidth, lineHeight, tr(row.Label), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, lineHeight, tr(row.Value), "", "L", false)
		pdf.Ln(1)
	}
}

func (r *Renderer) drawGroupTitle(pdf *gofpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, tr(title), "", 1, "L", false, 0, "")
	pdf.Ln(2)
}

func (r *Renderer) drawImageGroup(pdf *gofpdf.Fpdf, tr func(string) string, group ImageGroup, images map[string][]byte) error {
	r.drawGroupTitle(pdf, tr, group.Title)

	for _, img := range group.Images {
		data, ok := images[img.URL]
		if !ok || len(data) == 0 {
			return apperr.Render("missing image bytes for "+img.URL, nil)
		}
		imgType, err := sniffImageType(data)
		if err != nil {
			return apperr.Render("unsupported image at "+img.URL, err)
		}

		opts := gofpdf.ImageOptions{ImageType: imgType}
		info := pdf.RegisterImageOptionsReader(img.URL, opts, bytes.NewReader(data))
		if pdf.Err() {
			return apperr.Render("decode image at "+img.URL, pdf.Error())
		}
		if info == nil || info.Width() <= 0 || info.Height() <= 0 {
			return apperr.Render("empty image at "+img.URL, nil)
		}

		w := imageWidth
		h := w * info.Height() / info.Width()
		if h > maxImageHeight {
			w = w * maxImageHeight / h
			h = maxImageHeight
		}
		captionH := 0.0
		if img.Name != "" {
			captionH = 5.0
		}

		if pdf.GetY()+h+captionH > pageCapacityY {
			pdf.AddPage()
			r.drawGroupTitle(pdf, tr, group.Title)
		}

		x := (pageWidth - w) / 2
		pdf.ImageOptions(img.URL, x, pdf.GetY(), w, h, false, opts, 0, "")
		pdf.SetY(pdf.GetY() + h + 2)

		if img.Name != "" {
			pdf.SetFont("Helvetica", "I", 8)
			pdf.SetTextColor(90, 90, 90)
			pdf.CellFormat(0, 4, tr(img.Name), "", 1, "C", false, 0, "")
			pdf.SetTextColor(0, 0, 0)
		}
		pdf.Ln(4)

		if pdf.Err() {
			return apperr.Render("place image at "+img.URL, pdf.Error())
		}
	}
	return nil
}

func (r *Renderer) drawFooter(pdf *gofpdf.Fpdf, tr func(string) string) {
	pdf.SetY(-28)
	pdf.SetDrawColor(120, 120, 120)
	pdf.Line(marginX, pdf.GetY(), pageWidth-marginX, pdf.GetY())
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 7)
	pdf.SetTextColor(90, 90, 90)
	for _, line := range r.cfg.ContactLines {
		pdf.CellFormat(0, 3.5, tr(line), "", 1, "C", false, 0, "")
	}
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(0, 5, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

func sniffImageType(data []byte) (string, error) {
	switch http.DetectContentType(data) {
	case "image/png":
		return "PNG", nil
	case "image/jpeg":
		return "JPG", nil
	case "image/gif":
		return "GIF", nil
	default:
		return "", fmt.Errorf("unsupported image content type %q", http.DetectContentType(data))
	}
}
