// Package hexapod drives a six-legged walking robot built from AX-12A
// Dynamixel servos.
//
// Each leg has a knee, a hip and an optional arm servo that swings the leg
// forward and back. Legs move in two tripods that alternate between lifting
// and carrying the body.
//
// # Installation
//
//	go install github.com/gwillem/hexapod/cmd/hexapod@latest
//
// # Usage
//
// First, run setup to find the servo bus and write hexapod.json:
//
//	hexapod setup
//
// Then walk it from the keyboard:
//
//	hexapod walk
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/hexapod: CLI with setup, walk, pose, servo and status commands
//   - pkg/dynamixel: Dynamixel 1.0 packets, the serial bus and AX-12A registers
//   - pkg/kinematics: Geometric state of one leg
//   - pkg/robot: Legs, tripods, poses, gaits and configuration
//   - pkg/teleop: Interactive walking controller
package hexapod
