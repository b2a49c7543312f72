package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/hexapod/pkg/dynamixel"
	"github.com/gwillem/hexapod/pkg/kinematics"
	"github.com/gwillem/hexapod/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type SetupCommand struct {
	Baud  int `long:"baud" default:"1000000" description:"Bus baud rate"`
	MaxID int `long:"max-id" default:"40" description:"Highest servo ID to scan for"`
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Hexapod Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━"))
	fmt.Println()

	config := robot.DefaultConfig()
	if existing, err := robot.LoadConfigFrom(opts.Config); err == nil {
		config = existing
	}
	config.BaudRate = c.Baud

	// Step 1: find the bus
	bus := c.scanForBus()
	config.Port = bus.port

	// Step 2: match servos to legs
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Servo Layout ━━━"))
	fmt.Println()
	fmt.Println(renderLayout(config.Calibration, bus.ids()))
	fmt.Println()
	askLayout(config, bus.ids())

	// Save before trimming
	if err := config.SaveTo(opts.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	// Step 3: trims
	if confirm("Calibrate servo trims now?", "Lay every leg flat and straight out first") {
		fmt.Println()
		fmt.Println(subHeaderStyle.Render("━━━ Calibrating Trims ━━━"))
		fmt.Println()
		calibrateTrims(config)
		if err := config.SaveTo(opts.Config); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start walking with: " + headerStyle.Render("hexapod walk"))

	return nil
}

type busInfo struct {
	port   string
	servos []feetech.FoundServo
}

func (b busInfo) ids() map[int]bool {
	ids := make(map[int]bool, len(b.servos))
	for _, s := range b.servos {
		ids[s.ID] = true
	}
	return ids
}

func (c *SetupCommand) scanForBus() busInfo {
	fmt.Println("Scanning serial ports for servos...")
	fmt.Println()

	buses := c.findBuses()
	if len(buses) == 0 {
		fmt.Println("No servos found.")
		fmt.Println("Make sure the servo board is connected and powered on.")
		os.Exit(1)
	}
	if len(buses) == 1 {
		return buses[0]
	}

	var options []huh.Option[int]
	for i, b := range buses {
		options = append(options, huh.NewOption(fmt.Sprintf("%s (%d servos)", b.port, len(b.servos)), i))
	}
	var choice int
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Which port drives the legs?").
				Options(options...).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return buses[choice]
}

// findBuses pings IDs 1..MaxID on every serial port. AX-12A servos answer
// the Feetech ping since both speak the same packet framing.
func (c *SetupCommand) findBuses() []busInfo {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var buses []busInfo
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		bus, err := feetech.NewBus(feetech.BusConfig{
			Port:     port,
			BaudRate: c.Baud,
			Protocol: feetech.ProtocolSTS,
			Timeout:  50 * time.Millisecond,
		})
		if err != nil {
			cancel()
			continue
		}

		servos, err := bus.Scan(ctx, 1, c.MaxID)
		cancel()
		bus.Close()
		if err != nil || len(servos) == 0 {
			continue
		}

		fmt.Printf("  Found %d servo(s) on %s\n", len(servos), port)
		buses = append(buses, busInfo{port: port, servos: servos})
	}
	return buses
}

// renderLayout shows which configured servo IDs answered the scan.
func renderLayout(cal robot.Calibration, found map[int]bool) string {
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableHeaderStyle := cellStyle.Bold(true).Foreground(lipgloss.Color("12"))
	legStyle := cellStyle.Foreground(lipgloss.Color("14"))

	cell := func(s robot.ServoCalibration) string {
		switch {
		case s.ID == 0:
			return "-"
		case found[s.ID]:
			return successStyle.Render(fmt.Sprintf("%d ✓", s.ID))
		default:
			return errorStyle.Render(fmt.Sprintf("%d ✗", s.ID))
		}
	}

	rows := make([][]string, 0, len(cal))
	for _, name := range robot.AllLegs() {
		lc := cal[name]
		rows = append(rows, []string{string(name), cell(lc.Knee), cell(lc.Hip), cell(lc.Arm)})
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
			default:
				return cellStyle
			}
		})
	return t.Render()
}

// askLayout asks for the parts of the layout the scan cannot tell.
func askLayout(config *robot.Config, found map[int]bool) {
	hasArms := false
	for _, lc := range config.Calibration {
		if found[lc.Arm.ID] {
			hasArms = true
		}
	}

	pose := config.InitialPose
	var poseOptions []huh.Option[string]
	for _, p := range []robot.Pose{robot.PoseFlatQuad, robot.PoseDefault, robot.PoseStanding, robot.PoseStandingQuad} {
		poseOptions = append(poseOptions, huh.NewOption(p.String(), p.String()))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Do the legs have arm servos?").
				Description("The arm turns the whole leg forward and back").
				Value(&hasArms),
			huh.NewSelect[string]().
				Title("Pose at startup").
				Options(poseOptions...).
				Value(&pose),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}

	config.InitialPose = pose
	if !hasArms {
		for name, lc := range config.Calibration {
			lc.Arm = robot.ServoCalibration{}
			config.Calibration[name] = lc
		}
	} else {
		def := robot.DefaultCalibration()
		for name, lc := range config.Calibration {
			if !lc.HasArm() {
				lc.Arm = def[name].Arm
				config.Calibration[name] = lc
			}
		}
	}
}

func confirm(title, description string) bool {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Value(&ok),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return ok
}

// calibrateTrims reads every servo while the legs lie flat. A flat leg is at
// zero on every joint, so the distance from the center position is the trim.
func calibrateTrims(config *robot.Config) {
	bus, err := dynamixel.NewBus(dynamixel.BusConfig{
		Port:        config.Port,
		BaudRate:    config.BaudRate,
		ReturnLevel: config.ReturnLevel,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening bus: %v\n", err)
		os.Exit(1)
	}
	defer bus.Close()

	// Disable all servos so the legs can be moved by hand
	ctx := context.Background()
	for _, id := range config.Calibration.ServoIDs() {
		bus.SetTorqueEnable(ctx, byte(id), false)
	}

	p := tea.NewProgram(newTrimModel(bus, config.Calibration))
	finalModel, err := p.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running calibration: %v\n", err)
		os.Exit(1)
	}

	tm := finalModel.(trimModel)
	if !tm.accepted {
		fmt.Println("Trims left unchanged.")
		return
	}
	for name, lc := range config.Calibration {
		for _, j := range lc.Joints() {
			pos, ok := tm.positions[lc.Servo(j).ID]
			if !ok {
				continue
			}
			setOffset(&lc, j, pos-dynamixel.CenterPosition)
		}
		config.Calibration[name] = lc
	}
	fmt.Println("Servo trims calibrated.")
}

func setOffset(lc *robot.LegCalibration, j kinematics.Joint, offset int) {
	switch j {
	case kinematics.Knee:
		lc.Knee.Offset = offset
	case kinematics.Hip:
		lc.Hip.Offset = offset
	case kinematics.Arm:
		lc.Arm.Offset = offset
	}
}

// Trim calibration TUI model
type trimModel struct {
	bus       *dynamixel.Bus
	cal       robot.Calibration
	positions map[int]int
	accepted  bool
	quitting  bool
}

type tickMsg time.Time

func newTrimModel(bus *dynamixel.Bus, cal robot.Calibration) trimModel {
	return trimModel{
		bus:       bus,
		cal:       cal,
		positions: make(map[int]int),
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m trimModel) Init() tea.Cmd {
	return tick()
}

func (m trimModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			m.accepted = true
			m.quitting = true
			return m, tea.Quit
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		// Read positions from servos
		ctx := context.Background()
		for _, id := range m.cal.ServoIDs() {
			pos, err := m.bus.PresentPosition(ctx, byte(id))
			if err != nil {
				continue
			}
			m.positions[id] = pos
		}
		return m, tick()
	}

	return m, nil
}

func (m trimModel) View() string {
	if m.quitting {
		return ""
	}

	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableHeaderStyle := cellStyle.Bold(true).Foreground(lipgloss.Color("12"))
	legStyle := cellStyle.Foreground(lipgloss.Color("14"))
	goodStyle := cellStyle.Foreground(lipgloss.Color("10"))
	farStyle := cellStyle.Foreground(lipgloss.Color("9"))

	offsets := make([][]int, 0, len(m.cal))
	rows := make([][]string, 0, len(m.cal))
	for _, name := range robot.AllLegs() {
		lc := m.cal[name]
		row := []string{string(name)}
		var legOffsets []int
		for _, j := range []kinematics.Joint{kinematics.Knee, kinematics.Hip, kinematics.Arm} {
			s := lc.Servo(j)
			pos, ok := m.positions[s.ID]
			if s.ID == 0 || !ok {
				row = append(row, "-")
				legOffsets = append(legOffsets, 0)
				continue
			}
			off := pos - dynamixel.CenterPosition
			row = append(row, fmt.Sprintf("%d (%+d)", pos, off))
			legOffsets = append(legOffsets, off)
		}
		rows = append(rows, row)
		offsets = append(offsets, legOffsets)
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
			case row >= 0 && row < len(offsets) && abs(offsets[row][col-1]) > 30:
				return farStyle
			default:
				return goodStyle
			}
		})

	var sb strings.Builder
	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("Press Enter to save trims, q to skip"))
	return sb.String()
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
