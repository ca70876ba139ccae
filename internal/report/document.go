package report

import (
	"fmt"

	types "github.com/casaluz/incidents-backend/internal/domain"
)

// The builder accumulates typed layout blocks into a document model; the
// draw pass in pdf.go turns pages into gofpdf calls and stamps the footer
// once the final page count is known. Page boundaries that depend only on
// the data are decided here; only image overflow is resolved at draw time,
// because it needs the fetched image dimensions.

type Block interface {
	isBlock()
}

// Letterhead is the company header block at the top of page one.
type Letterhead struct{}

type Heading struct {
	Text string
}

type KV struct {
	Label string
	Value string
}

// KeyValues is a label/value panel. Values may be multi-line.
type KeyValues struct {
	Rows []KV
}

// ImageGroup places its images in order. It always opens its own page;
// the draw pass repeats Title on every continuation page an overflowing
// group spills onto.
type ImageGroup struct {
	Title  string
	Images []types.ImageRef
}

func (Letterhead) isBlock() {}
func (Heading) isBlock()    {}
func (KeyValues) isBlock()  {}
func (ImageGroup) isBlock() {}

// Page is a forced page break followed by its blocks.
type Page struct {
	Blocks []Block
}

type Document struct {
	Title string
	Pages []Page
}

const shortDateLayout = "02/01/2006"

// BuildDocument maps an incident aggregate to its layout. Pure: page
// structure depends only on the data handed in.
func BuildDocument(incident *types.Incident, items []*types.IncidentItem) *Document {
	doc := &Document{Title: "Incident Report " + incident.Code}

	overview := Page{Blocks: []Block{
		Letterhead{},
		Heading{Text: "Incident Overview"},
		KeyValues{Rows: overviewRows(incident)},
	}}
	doc.Pages = append(doc.Pages, overview)

	for i, item := range items {
		doc.Pages = append(doc.Pages, itemPage(i+1, item))

		if len(item.ReceivedImages) > 0 {
			doc.Pages = append(doc.Pages, Page{Blocks: []Block{
				ImageGroup{Title: item.Reference, Images: item.ReceivedImages},
			}})
		}

		// Return evidence renders only for returned items. A discarded
		// item's return images are dropped even when the data carries them.
		if item.Disposition == types.DispositionReturned && len(item.ReturnImages) > 0 {
			doc.Pages = append(doc.Pages, Page{Blocks: []Block{
				ImageGroup{Title: "Return Evidence", Images: item.ReturnImages},
			}})
		}
	}

	if len(incident.RemissionImages) > 0 {
		doc.Pages = append(doc.Pages, Page{Blocks: []Block{
			ImageGroup{Title: "Supplier Remission Evidence", Images: incident.RemissionImages},
		}})
	}
	if len(incident.StateImages) > 0 {
		doc.Pages = append(doc.Pages, Page{Blocks: []Block{
			ImageGroup{Title: "Delivery State Evidence", Images: incident.StateImages},
		}})
	}

	return doc
}

func overviewRows(incident *types.Incident) []KV {
	rows := []KV{
		{Label: "Report No.", Value: incident.Code},
		{Label: "Delivery Date", Value: incident.DeliveryDate.Format(shortDateLayout)},
		{Label: "Supplier", Value: incident.SupplierName},
		{Label: "Tax ID", Value: incident.SupplierTaxID},
	}
	if incident.WorkerName != "" {
		rows = append(rows, KV{Label: "Submitted By", Value: incident.WorkerName})
	}
	if incident.ApproverName != "" {
		rows = append(rows, KV{Label: "Approved By", Value: incident.ApproverName})
	}
	if incident.Remarks != "" {
		rows = append(rows, KV{Label: "Remarks", Value: incident.Remarks})
	}
	return rows
}

func itemPage(number int, item *types.IncidentItem) Page {
	rows := []KV{
		{Label: "Reference", Value: item.Reference},
		{Label: "Quantity", Value: QuantitySummary(item)},
	}
	if defects := DefectSummary(item); defects != "" {
		rows = append(rows, KV{Label: "Defects", Value: defects})
	}
	if item.Description != "" {
		rows = append(rows, KV{Label: "Description", Value: item.Description})
	}
	rows = append(rows, KV{Label: "Disposition", Value: DispositionLabel(item.Disposition)})

	return Page{Blocks: []Block{
		Heading{Text: fmt.Sprintf("ITEM %d", number)},
		KeyValues{Rows: rows},
	}}
}

// imageURLs lists every image URL the document will actually place, in
// layout order.
func (d *Document) imageURLs() []string {
	var urls []string
	for _, page := range d.Pages {
		for _, block := range page.Blocks {
			group, ok := block.(ImageGroup)
			if !ok {
				continue
			}
			for _, img := range group.Images {
				urls = append(urls, img.URL)
			}
		}
	}
	return urls
}
