package eprocure

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/tender-intel/internal/config"
	"github.com/sells-group/tender-intel/internal/model"
)

// headerMarker discriminates the tender table from other list_table
// renders on the page, and identifies repeated header rows inside it.
const headerMarker = "Title and Ref.No"

// refMissing is the reference number recorded when the title cell carries
// no anchor to split on.
const refMissing = "N/A"

// FindListingTable locates the tender data table in the listing response:
// the first table with the list_table class whose text contains the header
// marker. The page can render several same-class tables, so the marker is
// the only reliable discriminator.
func FindListingTable(doc *goquery.Document) (*goquery.Selection, error) {
	var table *goquery.Selection
	doc.Find("table.list_table").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.Contains(sel.Text(), headerMarker) {
			table = sel
			return false
		}
		return true
	})
	if table == nil {
		return nil, ErrTableNotFound
	}
	return table, nil
}

// QualifyingRows filters the table down to data rows: at least minCols
// cells and not a (possibly repeated) header row. The result is a single
// pass over the parsed document in row order.
func QualifyingRows(table *goquery.Selection, minCols int) []*goquery.Selection {
	var rows []*goquery.Selection
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if row.Find("td").Length() < minCols {
			return
		}
		if strings.Contains(row.Text(), headerMarker) {
			return
		}
		rows = append(rows, row)
	})
	return rows
}

// ParseRow maps a qualifying row's cells to a TenderRecord by the
// configured column offsets. When the title cell carries an anchor the
// anchor text is the title and the remaining cell text is the reference
// number; otherwise the whole cell is the title.
func ParseRow(row *goquery.Selection, cols config.ColumnMap) (model.TenderRecord, error) {
	cells := row.Find("td")

	max := cols.ClosingDate
	if cols.TitleRef > max {
		max = cols.TitleRef
	}
	if cols.Ministry > max {
		max = cols.Ministry
	}
	if cells.Length() <= max {
		return model.TenderRecord{}, eris.Errorf("eprocure: row has %d cells, need %d", cells.Length(), max+1)
	}

	titleCell := cells.Eq(cols.TitleRef)
	title := strings.TrimSpace(titleCell.Text())
	ref := refMissing
	if link := titleCell.Find("a"); link.Length() > 0 {
		title = strings.TrimSpace(link.First().Text())
		full := strings.TrimSpace(titleCell.Text())
		ref = strings.TrimSpace(strings.ReplaceAll(full, title, ""))
	}
	if title == "" {
		return model.TenderRecord{}, eris.New("eprocure: row has empty title cell")
	}

	return model.TenderRecord{
		Title:           title,
		ReferenceNumber: ref,
		Ministry:        strings.TrimSpace(cells.Eq(cols.Ministry).Text()),
		ClosingDate:     strings.TrimSpace(cells.Eq(cols.ClosingDate).Text()),
	}, nil
}
