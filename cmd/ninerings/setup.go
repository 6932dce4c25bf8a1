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

	"github.com/christian-helms/nine-linked-rings/pkg/config"
	"github.com/christian-helms/nine-linked-rings/pkg/demo"
	"github.com/christian-helms/nine-linked-rings/pkg/retarget"
	"github.com/christian-helms/nine-linked-rings/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// minRange is the smallest raw servo travel accepted as calibrated.
const minRange = 300

// SetupCommand runs the interactive setup wizard.
type SetupCommand struct {
	SkipHand bool `long:"skip-hand" description:"Only choose tracking and recording settings"`
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Nine Rings Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━"))
	fmt.Println()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Step 1: Tracking and recording
	if err := chooseSettings(cfg); err != nil {
		return err
	}
	if err := cfg.SaveTo(opts.Config); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	// Step 2: Find and calibrate the hand
	if !c.SkipHand {
		port := scanForHand()
		if port != "" {
			cfg.Hand.Port = port
			fmt.Println()
			fmt.Println(subHeaderStyle.Render("━━━ Calibrating Hand ━━━"))
			fmt.Println()
			cal, err := calibrateHand(port)
			if err != nil {
				return err
			}
			cfg.Hand.Calibration = cal
		}
	}

	if err := cfg.SaveTo(opts.Config); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	if !cfg.Hand.IsCalibrated() {
		fmt.Println(dimStyle.Render("No calibrated hand: commands will only be recorded."))
	}
	fmt.Println()
	fmt.Println("Start teleoperation with: " + headerStyle.Render("ninerings teleoperate"))

	return nil
}

func chooseSettings(cfg *config.Config) error {
	preset := "default"
	formats := make([]huh.Option[string], 0, len(demo.Formats()))
	for _, f := range demo.Formats() {
		formats = append(formats, huh.NewOption(fmt.Sprintf("%s (%s)", f, f.Ext()), string(f)))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Hand tracking source").
				Options(
					huh.NewOption("Manus gloves with Vive trackers", config.SourceManus),
					huh.NewOption("Synthetic (no hardware)", config.SourceSynthetic),
				).
				Value(&cfg.Source.Kind),
			huh.NewSelect[string]().
				Title("Tracked hand").
				Options(huh.NewOptions("right", "left")...).
				Value(&cfg.Source.Side),
			huh.NewSelect[string]().
				Title("Retargeting preset").
				Options(huh.NewOptions(retarget.Presets()...)...).
				Value(&preset),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Title("Record demonstrations while teleoperating?").
				Value(&cfg.Recording.Enabled),
			huh.NewSelect[string]().
				Title("Recording format").
				Options(formats...).
				Value(&cfg.Recording.Format),
			huh.NewInput().
				Title("Recording directory").
				Value(&cfg.Recording.Dir),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}

	rc, err := retarget.Preset(preset)
	if err != nil {
		return err
	}
	rc.WristOffset = cfg.Retarget.WristOffset
	cfg.Retarget = rc
	return cfg.Validate()
}

func scanForHand() string {
	fmt.Println("Scanning for the robot hand...")
	fmt.Println()

	hands := findHands()

	if len(hands) == 0 {
		fmt.Println("No hand found.")
		fmt.Println("Make sure the hand is connected and powered on, or run setup again later.")
		return ""
	}
	if len(hands) == 1 {
		hands[0].bus.Close()
		fmt.Println(successStyle.Render("Hand found on " + hands[0].port))
		return hands[0].port
	}

	fmt.Printf("Found %d hands. Let's identify them...\n\n", len(hands))
	port := ""
	for _, hand := range hands {
		if port != "" {
			hand.bus.Close()
			continue
		}
		if identifyHandWithWiggle(hand) {
			port = hand.port
		}
	}
	return port
}

type handInfo struct {
	port   string
	servos []feetech.FoundServo
	bus    *feetech.Bus
}

func findHands() []handInfo {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var hands []handInfo

	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		bus, err := robot.OpenBus(port)
		if err != nil {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		servos, err := bus.Scan(ctx, 1, robot.NumMotors)
		cancel()

		if err != nil || !isHand(servos) {
			bus.Close()
			continue
		}
		fmt.Printf("  Found hand on %s\n", port)
		hands = append(hands, handInfo{port: port, servos: servos, bus: bus})
	}

	return hands
}

// isHand reports whether servos are exactly IDs 1-12.
func isHand(servos []feetech.FoundServo) bool {
	if len(servos) != robot.NumMotors {
		return false
	}

	ids := make(map[int]bool)
	for _, s := range servos {
		ids[s.ID] = true
	}

	for i := 1; i <= robot.NumMotors; i++ {
		if !ids[i] {
			return false
		}
	}

	return true
}

func identifyHandWithWiggle(hand handInfo) bool {
	defer hand.bus.Close()

	ctx := context.Background()

	// Wiggle the index finger (servo 5)
	var servo *feetech.Servo
	for _, s := range hand.servos {
		if s.ID == 5 {
			servo = feetech.NewServo(hand.bus, s.ID, s.Model)
			break
		}
	}
	if servo == nil {
		return false
	}

	originalPos, err := servo.Position(ctx)
	if err != nil {
		fmt.Printf("  Error reading position: %v\n", err)
		return false
	}
	if err := servo.Enable(ctx); err != nil {
		fmt.Printf("  Error enabling servo: %v\n", err)
		return false
	}

	fmt.Printf("\n  Wiggling index finger on %s...\n", hand.port)

	wiggleAmount := 80
	moveTimeMs := 400
	for _, target := range []int{originalPos + wiggleAmount, originalPos, originalPos + wiggleAmount, originalPos} {
		servo.SetPositionWithTime(ctx, target, moveTimeMs)
		time.Sleep(time.Duration(moveTimeMs+100) * time.Millisecond)
	}
	servo.Disable(ctx)

	var isThis bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Is the hand on %s the one to teleoperate?", hand.port)).
				Description("Its index finger just wiggled").
				Value(&isThis),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return isThis
}

func calibrateHand(port string) (robot.Calibration, error) {
	fmt.Printf("Calibrating hand on %s\n", port)
	fmt.Println()

	bus, err := robot.OpenBus(port)
	if err != nil {
		return nil, err
	}
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	servos, err := bus.Scan(ctx, 1, robot.NumMotors)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", port, err)
	}
	if !isHand(servos) {
		return nil, fmt.Errorf("no hand on %s (expected %d servos with IDs 1-%d)", port, robot.NumMotors, robot.NumMotors)
	}

	servoMap := make(map[int]*feetech.Servo)
	for _, s := range servos {
		servoMap[s.ID] = feetech.NewServo(bus, s.ID, s.Model)
	}

	// Disable all servos so the fingers can be moved by hand
	bg := context.Background()
	for _, servo := range servoMap {
		servo.Disable(bg)
	}

	fmt.Println(subHeaderStyle.Render("Record range of motion"))
	fmt.Println("Open every finger fully, then close it into a fist.")
	fmt.Println("Sweep the thumb through its whole yaw and pitch range.")
	fmt.Println()

	motors := robot.AllMotors()
	cur := make(map[robot.MotorName]int)
	lo := make(map[robot.MotorName]int)
	hi := make(map[robot.MotorName]int)
	for i, name := range motors {
		pos, _ := servoMap[i+1].Position(bg)
		cur[name], lo[name], hi[name] = pos, pos, pos
	}

	p := tea.NewProgram(newCalibrationModel(motors, servoMap, cur, lo, hi))
	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("run calibration: %w", err)
	}
	cm := finalModel.(calibrationModel)

	cal := make(robot.Calibration, len(motors))
	for i, name := range motors {
		cal[name] = robot.MotorCalibration{
			ID:       i + 1,
			RangeMin: cm.minPositions[name],
			RangeMax: cm.maxPositions[name],
		}
	}

	fmt.Println()
	if !cal.Complete() {
		fmt.Println(dimStyle.Render("Some joints did not move; run setup again to calibrate them."))
	} else {
		fmt.Println("Hand calibrated.")
	}
	return cal, nil
}

// Calibration TUI model
type calibrationModel struct {
	motors       []robot.MotorName
	servoMap     map[int]*feetech.Servo
	curPositions map[robot.MotorName]int
	minPositions map[robot.MotorName]int
	maxPositions map[robot.MotorName]int
	quitting     bool
}

type tickMsg time.Time

func newCalibrationModel(
	motors []robot.MotorName,
	servoMap map[int]*feetech.Servo,
	curPositions, minPositions, maxPositions map[robot.MotorName]int,
) calibrationModel {
	return calibrationModel{
		motors:       motors,
		servoMap:     servoMap,
		curPositions: curPositions,
		minPositions: minPositions,
		maxPositions: maxPositions,
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m calibrationModel) Init() tea.Cmd {
	return tick()
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		ctx := context.Background()
		for i, name := range m.motors {
			pos, err := m.servoMap[i+1].Position(ctx)
			if err != nil {
				continue
			}
			m.curPositions[name] = pos
			m.minPositions[name] = min(m.minPositions[name], pos)
			m.maxPositions[name] = max(m.maxPositions[name], pos)
		}
		return m, tick()
	}

	return m, nil
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}

	motorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	currentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	rangeGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	rangeLowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	rows := make([][]string, 0, len(m.motors))
	ranges := make([]int, 0, len(m.motors))
	for _, name := range m.motors {
		rangeSize := m.maxPositions[name] - m.minPositions[name]
		ranges = append(ranges, rangeSize)
		rows = append(rows, []string{
			string(name),
			fmt.Sprintf("%d", m.curPositions[name]),
			fmt.Sprintf("%d", m.minPositions[name]),
			fmt.Sprintf("%d", m.maxPositions[name]),
			fmt.Sprintf("%d", rangeSize),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Joint", "Current", "Min", "Max", "Range").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return motorStyle
			case 1:
				return currentStyle
			case 4:
				if row >= 0 && row < len(ranges) && ranges[row] > minRange {
					return rangeGoodStyle
				}
				return rangeLowStyle
			default:
				return tableCellStyle
			}
		})

	var sb strings.Builder
	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("Press Enter when done"))

	return sb.String()
}
