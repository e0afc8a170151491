package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

var xlsxHeaders = []string{
	"SCID #", "SPIDA Pole Number", "Katapult Pole Number",
	"SPIDA Pole Spec", "Katapult Pole Spec",
	"SPIDA Existing Loading %", "Katapult Existing Loading %",
	"SPIDA Final Loading %", "Katapult Final Loading %",
	"Existing Delta", "Final Delta", "Status", "Issues", "Matched By",
}

// WriteXLSX renders rows as the delivery workbook. Rows with issues get a
// highlighted fill so they stand out during review.
func WriteXLSX(w io.Writer, rows []Row) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Pole Comparison")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	headerStyle := xlsx.NewStyle()
	headerStyle.Font.Bold = true

	header := sheet.AddRow()
	for _, h := range xlsxHeaders {
		cell := header.AddCell()
		cell.SetString(h)
		cell.SetStyle(headerStyle)
	}

	issueStyle := xlsx.NewStyle()
	issueStyle.Fill = *xlsx.NewFill("solid", "FFF4CCCC", "FFF4CCCC")
	issueStyle.ApplyFill = true

	for _, r := range rows {
		row := sheet.AddRow()
		cells := []*xlsx.Cell{}
		add := func(set func(c *xlsx.Cell)) {
			c := row.AddCell()
			set(c)
			cells = append(cells, c)
		}

		add(func(c *xlsx.Cell) { c.SetString(r.SCID) })
		add(func(c *xlsx.Cell) { c.SetString(r.SpidaPoleNumber) })
		add(func(c *xlsx.Cell) { c.SetString(r.KatPoleNumber) })
		add(func(c *xlsx.Cell) { c.SetString(r.SpidaPoleSpec) })
		add(func(c *xlsx.Cell) { c.SetString(r.KatPoleSpec) })
		add(func(c *xlsx.Cell) { setOptionalFloat(c, r.SpidaExisting) })
		add(func(c *xlsx.Cell) { setOptionalFloat(c, r.KatExisting) })
		add(func(c *xlsx.Cell) { setOptionalFloat(c, r.SpidaFinal) })
		add(func(c *xlsx.Cell) { setOptionalFloat(c, r.KatFinal) })
		add(func(c *xlsx.Cell) { setOptionalFloat(c, r.ExistingDelta) })
		add(func(c *xlsx.Cell) { setOptionalFloat(c, r.FinalDelta) })
		add(func(c *xlsx.Cell) { c.SetString(r.Status) })
		add(func(c *xlsx.Cell) { c.SetString(r.Issues) })
		add(func(c *xlsx.Cell) { c.SetString(r.MatchedBy) })

		if r.HasIssue {
			for _, c := range cells {
				c.SetStyle(issueStyle)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}

func setOptionalFloat(c *xlsx.Cell, v *float64) {
	if v == nil {
		c.SetString("")
		return
	}
	c.SetFloat(*v)
}
