package export

import (
	"encoding/csv"
	"io"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
)

// WriteCSV streams rows as a CSV document with the legacy column headers.
// An empty row set still produces the header line.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	if len(rows) == 0 {
		if err := enc.EncodeHeader(Row{}); err != nil {
			return eris.Wrap(err, "export: encode csv header")
		}
		cw.Flush()
		return eris.Wrap(cw.Error(), "export: flush csv")
	}

	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return eris.Wrap(err, "export: encode csv row")
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return nil
}
