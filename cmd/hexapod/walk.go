package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/hexapod/pkg/kinematics"
	"github.com/gwillem/hexapod/pkg/robot"
	"github.com/gwillem/hexapod/pkg/teleop"
)

type WalkCommand struct {
	Speed float64       `long:"speed" default:"0.5" description:"Gait coefficient, 0 to 1"`
	Hold  time.Duration `long:"hold" default:"400ms" description:"How long a key press keeps the gait going"`
	Joint string        `long:"joint" default:"knee" choice:"knee" choice:"hip" choice:"arm" description:"Joint to chart"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	helpHeight   = 2
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
	raiseStep    = 1.0
)

// Leg colors - distinct colors for each leg
var legColors = map[robot.LegName]string{
	robot.LeftFront:   "196", // red
	robot.LeftMiddle:  "208", // orange
	robot.LeftBack:    "226", // yellow
	robot.RightFront:  "46",  // green
	robot.RightMiddle: "51",  // cyan
	robot.RightBack:   "201", // magenta
}

var poseKeys = map[string]robot.Pose{
	"1": robot.PoseDefault,
	"2": robot.PoseCentered,
	"3": robot.PoseStanding,
	"4": robot.PoseStandingQuad,
	"5": robot.PoseFlatQuad,
	"6": robot.PoseQuadSetup,
	"7": robot.PoseFlyStandingQuad,
	"8": robot.PoseFlyStraightQuad,
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type walkModel struct {
	ctrl       *teleop.Controller
	chart      *streamlinechart.Model
	joint      kinematics.Joint
	speed      float64
	width      int // terminal width
	height     int // terminal height
	logs       []string
	pose       robot.Pose
	moving     bool
	quitting   bool
	lastAngles map[robot.LegName]kinematics.Angles
}

func (m *walkModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// hasMovement checks if any leg changed since the last state
func (m *walkModel) hasMovement(angles map[robot.LegName]kinematics.Angles) bool {
	if m.lastAngles == nil {
		return true
	}
	for name, a := range angles {
		if last, ok := m.lastAngles[name]; !ok || a != last {
			return true
		}
	}
	return false
}

// Messages from the controller
type stateMsg teleop.State
type logMsg string

func waitForState(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ctrl.Logs())
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *walkModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = max(m.width-borderSize-2, 40)
	height = max(m.height-headerHeight-legendHeight-helpHeight-footerHeight-borderSize, 10)
	return width, height
}

func (m *walkModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialWalkModel(ctrl *teleop.Controller, joint kinematics.Joint, speed float64) walkModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-150, 150),
	)

	// Set up data set styles for each leg
	for _, name := range robot.AllLegs() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(legColors[name]))
		chart.SetDataSetStyles(string(name), runes.ThinLineStyle, style)
	}

	return walkModel{
		ctrl:  ctrl,
		chart: &chart,
		joint: joint,
		speed: speed,
	}
}

func (m walkModel) Init() tea.Cmd {
	// Start listening for state and log updates
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
	)
}

func (m walkModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "up", "w":
			m.ctrl.Walk(robot.GaitHexapod, m.speed)
		case "down", "s":
			m.ctrl.Walk(robot.GaitHexapod, -m.speed)
		case "shift+up", "W":
			m.ctrl.Walk(robot.GaitRectangular, m.speed)
		case "shift+down", "S":
			m.ctrl.Walk(robot.GaitRectangular, -m.speed)
		case "left", "a":
			m.ctrl.Walk(robot.GaitRotate, m.speed)
		case "right", "d":
			m.ctrl.Walk(robot.GaitRotate, -m.speed)
		case " ":
			m.ctrl.Stop()
		case "+", "=":
			m.ctrl.RaiseBody(raiseStep)
		case "-":
			m.ctrl.RaiseBody(-raiseStep)
		case "]":
			m.speed = min(m.speed+0.1, 1)
		case "[":
			m.speed = max(m.speed-0.1, 0.1)
		default:
			if pose, ok := poseKeys[key]; ok {
				m.ctrl.SetPose(pose)
			}
		}
		return m, nil

	case stateMsg:
		state := teleop.State(msg)
		m.pose = state.Pose
		m.moving = state.Moving
		if state.Angles != nil && m.hasMovement(state.Angles) {
			// Only update chart if there's movement (freeze when idle)
			for name, a := range state.Angles {
				m.chart.PushDataSet(string(name), kinematics.Degrees(a.Get(m.joint)))
			}
			m.chart.DrawAll()
			m.lastAngles = state.Angles
		}
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)
	}

	return m, nil
}

func (m walkModel) View() string {
	if m.quitting {
		return "Walking stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("Hexapod Walk"))
	state := "idle"
	if m.moving {
		state = "moving"
	}
	sb.WriteString(fmt.Sprintf(" - %s, %s, speed %.0f%%, charting %s", m.pose, state, m.speed*100, m.joint))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend())
	sb.WriteString("\n")
	sb.WriteString(statusStyle.Render("w/s walk  W/S rectangular  a/d turn  space stop  +/- height  [/] speed  1-8 poses  q quit"))
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20)).
		Foreground(lipgloss.Color("9")) // bright red

	logLines := statusStyle.Render("Press 'q' to quit")
	if len(m.logs) > 0 {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderLegend() string {
	var items []string
	for _, name := range robot.AllLegs() {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(legColors[name])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+string(name))
	}
	return strings.Join(items, "  ")
}

func parseJoint(s string) kinematics.Joint {
	switch s {
	case "hip":
		return kinematics.Hip
	case "arm":
		return kinematics.Arm
	}
	return kinematics.Knee
}

func (c *WalkCommand) Execute(args []string) error {
	cfg := loadConfig()
	fmt.Printf("Loaded configuration from %s\n", opts.Config)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create controller
	ctrl, err := teleop.NewController(ctx, teleop.Config{
		Robot: cfg,
		Hold:  c.Hold,
	})
	if err != nil {
		log.Fatalf("Failed to create controller: %v", err)
	}
	defer ctrl.Close()

	// Start controller in background
	go func() {
		if err := ctrl.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("Controller error: %v", err)
		}
	}()

	// Run TUI
	speed := min(max(c.Speed, 0.1), 1)
	p := tea.NewProgram(initialWalkModel(ctrl, parseJoint(c.Joint), speed), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}

	return nil
}
