package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/christian-helms/nine-linked-rings/pkg/analyze"
	"github.com/christian-helms/nine-linked-rings/pkg/demo"
)

// InspectCommand prints a summary of a saved recording.
type InspectCommand struct {
	Keys     bool   `long:"keys" description:"List every hand pose node instead of a summary"`
	SavePlot string `long:"save-plot" value-name:"DIR" description:"Write one PNG per joint group to DIR"`

	Args struct {
		File string `positional-arg-name:"FILE" description:"Demonstration file (.gob, .npz or .json)"`
	} `positional-args:"yes" required:"yes"`
}

func (c *InspectCommand) Execute(args []string) error {
	rec, err := demo.Load(c.Args.File)
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render("Demonstration " + filepath.Base(c.Args.File)))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	md := rec.Metadata
	if md.SessionID != "" {
		fmt.Printf("Session:   %s\n", md.SessionID)
	}
	fmt.Printf("Start:     %s\n", md.StartTime.Format("2006-01-02 15:04:05.000"))
	fmt.Printf("End:       %s\n", md.EndTime.Format("2006-01-02 15:04:05.000"))
	fmt.Printf("Duration:  %.2fs\n", md.DurationSeconds)
	fmt.Printf("Steps:     %d\n", md.NumSteps)
	fmt.Println()

	fmt.Println(subHeaderStyle.Render("Streams"))
	fmt.Println(c.streamTable(rec).Render())
	fmt.Println()

	report, err := analyze.Analyze(rec)
	if err != nil {
		return err
	}
	fmt.Printf("Action layout: %s (%d channels)", report.Layout.Kind, report.Layout.Dim)
	if report.RateHz > 0 {
		fmt.Printf(", %.1f Hz average", report.RateHz)
	}
	fmt.Println()
	fmt.Println()

	for _, g := range report.Groups {
		title := subHeaderStyle.Render(g.Group.Title)
		if g.Group.Unit != "" {
			title += dimStyle.Render(" (" + g.Group.Unit + ")")
		}
		fmt.Println(title)
		fmt.Println(statsTable(g).Render())
		fmt.Println()
	}

	if c.SavePlot != "" {
		if err := os.MkdirAll(c.SavePlot, 0o755); err != nil {
			return fmt.Errorf("create plot directory: %w", err)
		}
		base := strings.TrimSuffix(filepath.Base(c.Args.File), filepath.Ext(c.Args.File))
		paths, err := analyze.Plot(rec, c.SavePlot, base)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Println(successStyle.Render("Saved plot to " + p))
		}
	}
	return nil
}

func (c *InspectCommand) streamTable(rec *demo.Record) *table.Table {
	var rows [][]string
	nodes := 0
	for _, s := range analyze.Streams(rec) {
		if !c.Keys && strings.HasPrefix(s.Name, "hand_poses/") {
			nodes++
			continue
		}
		rows = append(rows, []string{s.Name, shapeString(s.Shape)})
	}
	if nodes > 0 {
		rows = append(rows, []string{"hand_poses/*", fmt.Sprintf("%d nodes", nodes)})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Stream", "Shape").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})
}

func statsTable(g analyze.GroupStats) *table.Table {
	rows := make([][]string, 0, len(g.Channels))
	for _, ch := range g.Channels {
		rows = append(rows, []string{
			fmt.Sprintf("%d", ch.Index),
			ch.Name,
			fmt.Sprintf("%.3f", ch.Min),
			fmt.Sprintf("%.3f", ch.Max),
			fmt.Sprintf("%.3f", ch.Mean),
			fmt.Sprintf("%.3f", ch.StdDev),
		})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("#", "Channel", "Min", "Max", "Mean", "Std").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == 1 {
				return lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
			}
			return tableCellStyle
		})
}

func shapeString(shape []int) string {
	parts := make([]string, len(shape))
	for i, n := range shape {
		parts[i] = fmt.Sprint(n)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
