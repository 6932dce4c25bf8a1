package analyze

import (
	"fmt"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/christian-helms/nine-linked-rings/pkg/demo"
)

// Plot renders one PNG per layout group into dir, named <base>_<group>.png,
// with time on the x axis. It returns the written paths.
func Plot(rec *demo.Record, dir, base string) ([]string, error) {
	if len(rec.Actions) == 0 {
		return nil, ErrNoActions
	}
	cols, err := columns(rec.Actions)
	if err != nil {
		return nil, err
	}
	if len(rec.Timestamps) != len(rec.Actions) {
		return nil, fmt.Errorf("%w: %d timestamps for %d actions",
			demo.ErrInconsistentRecord, len(rec.Timestamps), len(rec.Actions))
	}

	layout := Classify(len(cols))
	var paths []string
	for _, g := range layout.Groups {
		p := plot.New()
		p.Title.Text = g.Title
		p.X.Label.Text = "Time (s)"
		p.Y.Label.Text = g.Unit
		p.Add(plotter.NewGrid())

		// name, points, name, points, ...
		lines := make([]any, 0, 2*len(g.Channels))
		for i, name := range g.Channels {
			pts := make(plotter.XYs, len(rec.Timestamps))
			for k, ts := range rec.Timestamps {
				pts[k] = plotter.XY{X: ts, Y: cols[g.Offset+i][k]}
			}
			lines = append(lines, name, pts)
		}
		if err := plotutil.AddLines(p, lines...); err != nil {
			return paths, fmt.Errorf("plot %s: %w", g.Name, err)
		}

		path := filepath.Join(dir, fmt.Sprintf("%s_%s.png", base, g.Name))
		if err := p.Save(14*vg.Inch, 4*vg.Inch, path); err != nil {
			return paths, fmt.Errorf("save %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
