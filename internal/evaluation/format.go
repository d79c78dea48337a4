package evaluation

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// WriteText prints the report as an aligned two-column table.
func (r Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := []struct {
		name  string
		value string
	}{
		{"bounding box IoU", fmt.Sprintf("%.4f", r.BoundingBoxIoU)},
		{"bounding box area change", fmt.Sprintf("%.2f%%", r.BoundingBoxAreaChange*100)},
		{"bounding box edit gestures", fmt.Sprint(r.BoundingBoxEditGestures)},
		{"polygon IoU", fmt.Sprintf("%.4f", r.PolygonIoU)},
		{"polygon area change", fmt.Sprintf("%.2f%%", r.PolygonAreaChange*100)},
		{"polygon vertex changes", fmt.Sprint(r.PolygonVertexChanges)},
		{"polygon edit gestures", fmt.Sprint(r.PolygonEditGestures)},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", row.name, row.value); err != nil {
			return err
		}
	}
	return tw.Flush()
}
