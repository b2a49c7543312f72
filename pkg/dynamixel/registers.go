package dynamixel

import (
	"fmt"
	"sort"
)

// Register is an address in the AX-12A control table.
type Register byte

// AX-12A control table.
const (
	RegModelNumber         Register = 0
	RegFirmwareVersion     Register = 2
	RegID                  Register = 3
	RegBaudRate            Register = 4
	RegReturnDelay         Register = 5
	RegCWAngleLimit        Register = 6
	RegCCWAngleLimit       Register = 8
	RegTemperatureLimit    Register = 11
	RegMinVoltage          Register = 12
	RegMaxVoltage          Register = 13
	RegMaxTorque           Register = 14
	RegReturnLevel         Register = 16
	RegAlarmLED            Register = 17
	RegAlarmShutdown       Register = 18
	RegTorqueEnable        Register = 24
	RegLED                 Register = 25
	RegCWComplianceMargin  Register = 26
	RegCCWComplianceMargin Register = 27
	RegCWComplianceSlope   Register = 28
	RegCCWComplianceSlope  Register = 29
	RegGoalPosition        Register = 30
	RegMovingSpeed         Register = 32
	RegTorqueLimit         Register = 34
	RegPresentPosition     Register = 36
	RegPresentSpeed        Register = 38
	RegPresentLoad         Register = 40
	RegPresentVoltage      Register = 42
	RegPresentTemperature  Register = 43
	RegRegistered          Register = 44
	RegMoving              Register = 46
	RegLock                Register = 47
	RegPunch               Register = 48
)

// RegGoalVelocity is the moving speed register under the name used by the
// motion code.
const RegGoalVelocity = RegMovingSpeed

// twoByteRegisters lists every register whose value spans a low and a high
// byte. Everything else is one byte wide.
var twoByteRegisters = map[Register]bool{
	RegModelNumber:     true,
	RegCWAngleLimit:    true,
	RegCCWAngleLimit:   true,
	RegMaxTorque:       true,
	RegGoalPosition:    true,
	RegMovingSpeed:     true,
	RegTorqueLimit:     true,
	RegPresentPosition: true,
	RegPresentSpeed:    true,
	RegPresentLoad:     true,
	RegPunch:           true,
}

// Width returns the number of bytes the register occupies (1 or 2).
func (r Register) Width() int {
	if twoByteRegisters[r] {
		return 2
	}
	return 1
}

// MaxValue returns the largest value that fits the register.
func (r Register) MaxValue() int {
	if r.Width() == 2 {
		return 0xFFFF
	}
	return 0xFF
}

var registerNames = map[string]Register{
	"model_number":          RegModelNumber,
	"firmware_version":      RegFirmwareVersion,
	"id":                    RegID,
	"baud_rate":             RegBaudRate,
	"return_delay":          RegReturnDelay,
	"cw_angle_limit":        RegCWAngleLimit,
	"ccw_angle_limit":       RegCCWAngleLimit,
	"temperature_limit":     RegTemperatureLimit,
	"min_voltage":           RegMinVoltage,
	"max_voltage":           RegMaxVoltage,
	"max_torque":            RegMaxTorque,
	"return_level":          RegReturnLevel,
	"alarm_led":             RegAlarmLED,
	"alarm_shutdown":        RegAlarmShutdown,
	"torque_enable":         RegTorqueEnable,
	"led":                   RegLED,
	"cw_compliance_margin":  RegCWComplianceMargin,
	"ccw_compliance_margin": RegCCWComplianceMargin,
	"cw_compliance_slope":   RegCWComplianceSlope,
	"ccw_compliance_slope":  RegCCWComplianceSlope,
	"goal_position":         RegGoalPosition,
	"moving_speed":          RegMovingSpeed,
	"torque_limit":          RegTorqueLimit,
	"present_position":      RegPresentPosition,
	"present_speed":         RegPresentSpeed,
	"present_load":          RegPresentLoad,
	"present_voltage":       RegPresentVoltage,
	"present_temperature":   RegPresentTemperature,
	"registered":            RegRegistered,
	"moving":                RegMoving,
	"lock":                  RegLock,
	"punch":                 RegPunch,
}

var registerByAddr = func() map[Register]string {
	m := make(map[Register]string, len(registerNames))
	for name, reg := range registerNames {
		m[reg] = name
	}
	return m
}()

// String returns the snake_case register name, or its address when the
// register is not part of the table.
func (r Register) String() string {
	if name, ok := registerByAddr[r]; ok {
		return name
	}
	return fmt.Sprintf("register(%d)", byte(r))
}

// RegisterByName looks up a register by its snake_case name.
func RegisterByName(name string) (Register, error) {
	r, ok := registerNames[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownRegister, name)
	}
	return r, nil
}

// RegisterNames returns all known register names sorted by address.
func RegisterNames() []string {
	names := make([]string, 0, len(registerNames))
	for name := range registerNames {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return registerNames[names[i]] < registerNames[names[j]]
	})
	return names
}
