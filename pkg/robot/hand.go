package robot

import (
	"context"
	"fmt"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/christian-helms/nine-linked-rings/pkg/retarget"
)

// BaudRate is the servo bus speed of the hand.
const BaudRate = 1_000_000

// Hand is the servo-driven dexterous hand, one servo per finger joint.
type Hand struct {
	bus         *feetech.Bus
	group       *feetech.ServoGroup
	calibration Calibration
}

// OpenBus opens the servo bus on port.
func OpenBus(port string) (*feetech.Bus, error) {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: BaudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}
	return bus, nil
}

// NewHand opens the bus on port and groups the calibrated servos.
func NewHand(port string, cal Calibration) (*Hand, error) {
	if !cal.Complete() {
		return nil, fmt.Errorf("hand on %s is not fully calibrated", port)
	}
	bus, err := OpenBus(port)
	if err != nil {
		return nil, err
	}

	// Create servo group from calibration IDs
	ids := cal.MotorIDs()
	group := feetech.NewServoGroupByIDs(bus, ids...)

	return &Hand{
		bus:         bus,
		group:       group,
		calibration: cal,
	}, nil
}

// Close closes the hand's bus connection.
func (h *Hand) Close() error {
	return h.bus.Close()
}

// Enable enables torque on all servos.
func (h *Hand) Enable(ctx context.Context) error {
	return h.group.EnableAll(ctx)
}

// Disable disables torque on all servos.
func (h *Hand) Disable(ctx context.Context) error {
	return h.group.DisableAll(ctx)
}

// ReadPositions reads current positions from all motors.
// Returns normalized positions in the range [-100, 100].
func (h *Hand) ReadPositions(ctx context.Context) (map[MotorName]float64, error) {
	rawPositions, err := h.group.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	positions := make(map[MotorName]float64, len(rawPositions))
	for id, raw := range rawPositions {
		name, cal, ok := h.calibration.ByID(id)
		if !ok {
			continue
		}
		positions[name] = cal.Normalize(raw)
	}

	return positions, nil
}

// WritePositions writes target positions to all motors.
// Takes normalized positions in the range [-100, 100].
func (h *Hand) WritePositions(ctx context.Context, positions map[MotorName]float64) error {
	rawPositions := make(feetech.PositionMap, len(positions))
	for name, norm := range positions {
		cal, ok := h.calibration[name]
		if !ok {
			continue
		}
		rawPositions[cal.ID] = cal.Denormalize(norm)
	}

	if err := h.group.SetPositions(ctx, rawPositions); err != nil {
		return fmt.Errorf("write positions: %w", err)
	}

	return nil
}

// ReadJoints reads the finger joint angles in radians, in command order.
// Motors that did not answer read as 0.
func (h *Hand) ReadJoints(ctx context.Context) ([retarget.FingerDOF]float64, error) {
	var joints [retarget.FingerDOF]float64
	positions, err := h.ReadPositions(ctx)
	if err != nil {
		return joints, err
	}
	for i, name := range AllMotors() {
		if norm, ok := positions[name]; ok {
			joints[i] = Radians(norm)
		}
	}
	return joints, nil
}

// WriteJoints commands the finger joint angles in radians, in command order.
func (h *Hand) WriteJoints(ctx context.Context, joints [retarget.FingerDOF]float64) error {
	positions := make(map[MotorName]float64, len(joints))
	for i, name := range AllMotors() {
		positions[name] = Normalized(joints[i])
	}
	return h.WritePositions(ctx, positions)
}
