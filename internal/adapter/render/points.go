package render

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/couchcryptid/basin-precip-etl/internal/domain"
)

// WritePoints lists sample points with their values, followed by their sum.
func WritePoints(w io.Writer, points []domain.SamplePoint, sum float64, precision int) error {
	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"#", "Lat", "Long", "Value (mm)"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	data := make([][]string, 0, len(points))
	for i, p := range points {
		data = append(data, []string{
			fmt.Sprint(i + 1),
			formatFloat(p.Lat, 4),
			formatFloat(p.Long, 4),
			formatFloat(p.Value, precision),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d points inside, %s mm\n", len(points), formatFloat(sum, precision))
	return err
}
