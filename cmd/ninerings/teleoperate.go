package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/christian-helms/nine-linked-rings/pkg/config"
	"github.com/christian-helms/nine-linked-rings/pkg/demo"
	"github.com/christian-helms/nine-linked-rings/pkg/retarget"
	"github.com/christian-helms/nine-linked-rings/pkg/robot"
	"github.com/christian-helms/nine-linked-rings/pkg/teleop"
	"github.com/christian-helms/nine-linked-rings/pkg/timeutil"
	"github.com/christian-helms/nine-linked-rings/pkg/tracking"
)

// TeleoperateCommand runs the control loop.
type TeleoperateCommand struct {
	Hz          int     `long:"hz" description:"Control loop frequency (default from config)"`
	Source      string  `long:"source" choice:"manus" choice:"synthetic" description:"Hand tracking source"`
	Preset      string  `long:"preset" description:"Retargeting preset"`
	Sensitivity float64 `long:"sensitivity" default:"1.0" description:"Multiplier for palm position and rotation scale"`
	Record      bool    `long:"record" description:"Record demonstrations while engaged"`
	RecordDir   string  `long:"record-dir" description:"Directory for recorded demonstrations"`
	Format      string  `long:"format" description:"Recording format: native, npz or json"`
	NoHand      bool    `long:"no-hand" description:"Do not drive the servo hand"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 3 // two legend rows + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Joint colors in command order: four thumb joints, then two per finger
var jointColors = []string{
	"196", "202", "208", "214",
	"226", "190",
	"46", "48",
	"51", "39",
	"201", "165",
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	activeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	recStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

type teleopModel struct {
	ctrl        *teleop.Controller
	chart       *streamlinechart.Model
	jointNames  []string
	width       int      // terminal width
	height      int      // terminal height
	logs        []string // last N log messages
	quitting    bool
	state       teleop.State
	lastFingers [retarget.FingerDOF]float64 // freeze the chart while the hand is still
	hasLast     bool
}

func (m *teleopModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
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
func (m *teleopModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = max(m.width-borderSize-2, 40)
	height = max(m.height-headerHeight-legendHeight-footerHeight-borderSize, 10)
	return width, height
}

func initialTeleopModel(ctrl *teleop.Controller) teleopModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(0, retarget.MaxFingerAngle),
	)

	names := retarget.FingerJointNames()
	for i, name := range names {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(jointColors[i]))
		chart.SetDataSetStyles(name, runes.ThinLineStyle, style)
	}

	return teleopModel{
		ctrl:       ctrl,
		chart:      &chart,
		jointNames: names,
	}
}

func (m teleopModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
	)
}

func (m teleopModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.chart.Resize(m.chartSize())
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case " ", "enter":
			if path, err := m.ctrl.Toggle(); err != nil {
				m.addLog(fmt.Sprintf("Save failed: %v", err))
			} else if path != "" {
				m.addLog("Saved " + path)
			}
		case "r":
			m.ctrl.Reset()
		}

	case stateMsg:
		m.state = teleop.State(msg)
		if m.state.Error == nil {
			fingers := m.state.Command.Fingers()
			if !m.hasLast || fingers != m.lastFingers {
				for i, name := range m.jointNames {
					m.chart.PushDataSet(name, fingers[i])
				}
				m.chart.DrawAll()
				m.lastFingers, m.hasLast = fingers, true
			}
		}
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)
	}

	return m, nil
}

func (m teleopModel) View() string {
	if m.quitting {
		return "Teleoperation stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("Nine Rings Teleoperate"))
	sb.WriteString(fmt.Sprintf(" - %d Hz  ", m.ctrl.Hz()))
	switch {
	case m.state.Recording:
		sb.WriteString(recStyle.Render(fmt.Sprintf("● REC %d steps", m.state.Steps)))
	case m.state.Engaged:
		sb.WriteString(activeStyle.Render("● ENGAGED"))
	default:
		sb.WriteString(statusStyle.Render("○ idle"))
	}
	if m.state.Errors > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  errors: %d", m.state.Errors)))
	}
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend(m.jointNames))
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20))

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("space: start/stop  r: reset  q: quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderLegend(names []string) string {
	var rows [2][]string
	for i, name := range names {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(jointColors[i])).Bold(true)
		label := strings.TrimSuffix(name, "_joint")
		item := colorStyle.Render("━━") + " " + label
		rows[i*2/len(names)] = append(rows[i*2/len(names)], item)
	}
	return strings.Join(rows[0], "  ") + "\n" + strings.Join(rows[1], "  ")
}

// apply merges the command line flags into cfg.
func (c *TeleoperateCommand) apply(cfg *config.Config) error {
	if c.Preset != "" {
		rc, err := retarget.Preset(c.Preset)
		if err != nil {
			return fmt.Errorf("%w (available: %s)", err, strings.Join(retarget.Presets(), ", "))
		}
		rc.WristOffset = cfg.Retarget.WristOffset
		cfg.Retarget = rc
	}
	cfg.Retarget.PosScale *= c.Sensitivity
	cfg.Retarget.RotScale *= c.Sensitivity

	if c.Hz > 0 {
		cfg.Source.Hz = c.Hz
	}
	if c.Source != "" {
		cfg.Source.Kind = c.Source
	}
	if c.Record {
		cfg.Recording.Enabled = true
	}
	if c.RecordDir != "" {
		cfg.Recording.Dir = c.RecordDir
	}
	if c.Format != "" {
		cfg.Recording.Format = c.Format
	}
	return cfg.Validate()
}

func openSource(cfg *config.Config, logger *zap.Logger) (tracking.Source, error) {
	side, err := cfg.Side()
	if err != nil {
		return nil, err
	}
	if cfg.Source.Kind == config.SourceSynthetic {
		return tracking.NewSyntheticSource(timeutil.RealClock{}, side, 4*time.Second, 0.7), nil
	}
	bridge, err := tracking.OpenManus(cfg.Source.Library)
	if err != nil {
		return nil, err
	}
	return tracking.NewBridgeSource(bridge, logger.Named("tracking")), nil
}

func openActuator(cfg *config.Config, noHand bool) (teleop.Actuator, error) {
	if noHand || cfg.Hand.Port == "" || !cfg.Hand.IsCalibrated() {
		return teleop.EchoActuator{}, nil
	}
	hand, err := robot.NewHand(cfg.Hand.Port, cfg.Hand.Calibration)
	if err != nil {
		return nil, fmt.Errorf("open hand: %w", err)
	}
	return teleop.NewHandActuator(hand, nil), nil
}

func (c *TeleoperateCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := c.apply(cfg); err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return err
	}
	defer logger.Sync()

	source, err := openSource(cfg, logger)
	if errors.Is(err, tracking.ErrBridgeUnavailable) {
		fmt.Fprintln(os.Stderr, "Glove bridge not available. Build with -tags manus or use --source synthetic.")
		os.Exit(1)
	}
	if err != nil {
		return err
	}

	actuator, err := openActuator(cfg, c.NoHand)
	if err != nil {
		source.Close()
		return err
	}
	if _, echo := actuator.(teleop.EchoActuator); echo {
		fmt.Println(statusStyle.Render("No calibrated hand, commands are not actuated. Run 'ninerings setup' to add one."))
	}

	var recorder *demo.Recorder
	if cfg.Recording.Enabled {
		format, err := demo.ParseFormat(cfg.Recording.Format)
		if err != nil {
			return err
		}
		recorder, err = demo.NewRecorder(demo.Options{
			Dir:    cfg.Recording.Dir,
			Format: format,
			Logger: logger.Named("recorder"),
		})
		if err != nil {
			return err
		}
		fmt.Printf("Recording enabled, demonstrations are saved to %s\n", recorder.Dir())
	}

	side, _ := cfg.Side()
	rt, err := retarget.New(cfg.Retarget)
	if err != nil {
		return err
	}

	ctrl, err := teleop.NewController(teleop.Config{
		Source:     source,
		Estimator:  tracking.NewFlexEstimator(side, tracking.DefaultLayout()),
		Retargeter: rt,
		Actuator:   actuator,
		Recorder:   recorder,
		Hz:         cfg.Source.Hz,
		Logger:     logger.Named("teleop"),
	})
	if err != nil {
		return err
	}
	defer ctrl.Close()

	p := tea.NewProgram(initialTeleopModel(ctrl), tea.WithAltScreen())

	// Start controller in background; a fatal tracking error ends the UI
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		err := ctrl.Start(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			p.Quit()
		}
		done <- err
	}()

	// Run TUI
	_, runErr := p.Run()

	// Stop the loop; it saves any active recording
	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("controller stopped", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Controller error: %v\n", err)
	}
	if runErr != nil {
		return fmt.Errorf("run program: %w", runErr)
	}
	return nil
}
