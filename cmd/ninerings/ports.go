package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"go.bug.st/serial"

	"github.com/christian-helms/nine-linked-rings/pkg/robot"
)

// PortsCommand lists serial ports.
type PortsCommand struct {
	Scan bool `long:"scan" description:"Scan each port for hand servos"`
}

func (c *PortsCommand) Execute(args []string) error {
	ports, err := serial.GetPortsList()
	if err != nil {
		return fmt.Errorf("list ports: %w", err)
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
		return nil
	}

	rows := make([][]string, 0, len(ports))
	for _, port := range ports {
		row := []string{port}
		if c.Scan {
			row = append(row, scanPort(port))
		}
		rows = append(rows, row)
	}

	headers := []string{"Port"}
	if c.Scan {
		headers = append(headers, "Servos")
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})
	fmt.Println(t.Render())
	return nil
}

// scanPort lists the servo IDs answering on port.
func scanPort(port string) string {
	bus, err := robot.OpenBus(port)
	if err != nil {
		return dimStyle.Render("unavailable")
	}
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	servos, err := bus.Scan(ctx, 1, robot.NumMotors)
	if err != nil || len(servos) == 0 {
		return dimStyle.Render("none")
	}

	ids := make([]string, 0, len(servos))
	for _, s := range servos {
		ids = append(ids, fmt.Sprint(s.ID))
	}
	label := strings.Join(ids, ",")
	if isHand(servos) {
		label = successStyle.Render("hand") + " " + label
	}
	return label
}
