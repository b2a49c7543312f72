package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/hexapod/pkg/dynamixel"
	"github.com/gwillem/hexapod/pkg/kinematics"
	"github.com/gwillem/hexapod/pkg/robot"
)

type StatusCommand struct{}

func (c *StatusCommand) Execute(args []string) error {
	cfg := loadConfig()

	bus, err := dynamixel.NewBus(dynamixel.BusConfig{
		Port:        cfg.Port,
		BaudRate:    cfg.BaudRate,
		ReturnLevel: cfg.ReturnLevel,
	})
	if err != nil {
		return err
	}
	defer bus.Close()

	ctx := context.Background()
	fmt.Println(headerStyle.Render("Hexapod Status") + dimStyle.Render(" "+cfg.Port))
	fmt.Println()

	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableHeaderStyle := cellStyle.Bold(true).Foreground(lipgloss.Color("12"))
	legStyle := cellStyle.Foreground(lipgloss.Color("14"))
	faultStyle := cellStyle.Foreground(lipgloss.Color("9"))

	var failed [][]bool
	var rows [][]string
	for _, name := range robot.AllLegs() {
		lc := cfg.Calibration[name]
		row := []string{string(name)}
		rowFailed := []bool{false}
		for _, j := range []kinematics.Joint{kinematics.Knee, kinematics.Hip, kinematics.Arm} {
			s := lc.Servo(j)
			if s.ID == 0 {
				row = append(row, "-")
				rowFailed = append(rowFailed, false)
				continue
			}
			pos, err := bus.PresentPosition(ctx, byte(s.ID))
			if err != nil {
				row = append(row, fmt.Sprintf("%d: %s", s.ID, describe(err)))
				rowFailed = append(rowFailed, true)
				continue
			}
			angle := s.Angle(pos)
			if name.Side() == robot.Right {
				angle = -angle
			}
			row = append(row, fmt.Sprintf("%d: %4d %7.1f°", s.ID, pos, kinematics.Degrees(angle)))
			rowFailed = append(rowFailed, false)
		}
		rows = append(rows, row)
		failed = append(failed, rowFailed)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Leg", "Knee", "Hip", "Arm").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return tableHeaderStyle
			case col == 0:
				return legStyle
			case row >= 0 && row < len(failed) && failed[row][col]:
				return faultStyle
			default:
				return cellStyle
			}
		})

	fmt.Println(t.Render())
	fmt.Println(dimStyle.Render("Angles are in the left-leg convention."))
	return nil
}

// describe shortens protocol errors for a table cell.
func describe(err error) string {
	var se *dynamixel.StatusError
	switch {
	case errors.As(err, &se):
		return se.Fault.String()
	case errors.Is(err, dynamixel.ErrNoReply):
		return "no reply"
	case errors.Is(err, dynamixel.ErrChecksumMismatch):
		return "bad checksum"
	default:
		return "error"
	}
}
