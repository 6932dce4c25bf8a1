// Package ninerings teleoperates a dexterous robot hand from tracked human
// hand motion and records the sessions as demonstrations for the nine linked
// rings puzzle.
//
// # Installation
//
//	go install github.com/christian-helms/nine-linked-rings/cmd/ninerings@latest
//
// The Manus glove bridge is linked only when building with cgo and the manus
// tag:
//
//	go install -tags manus github.com/christian-helms/nine-linked-rings/cmd/ninerings@latest
//
// # Usage
//
// First, run setup to choose the tracking source and calibrate the hand:
//
//	ninerings setup
//
// Then start teleoperation. Space engages the hand and starts a recording,
// pressing it again saves the recording:
//
//	ninerings teleoperate --record
//
// Inspect a recorded demonstration:
//
//	ninerings inspect demonstrations/demo_20250102_030405.gob --save-plot plots
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/ninerings: CLI with setup, teleoperate, inspect and ports commands
//   - pkg/tracking: Glove node poses, the native bridge, and flex estimation
//   - pkg/retarget: Hand data to 19-joint arm and hand commands
//   - pkg/demo: Demonstration recorder and the gob, npz and json formats
//   - pkg/analyze: Demonstration statistics and plots
//   - pkg/robot: Servo hand control and calibration
//   - pkg/teleop: Teleoperation controller
//   - pkg/config: YAML configuration file
//   - pkg/timeutil: Wall, mock and tick clocks
package ninerings
