package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gwillem/hexapod/pkg/dynamixel"
)

type ServoCommand struct {
	Port  string `short:"p" long:"port" description:"Serial port (defaults to the configured port)"`
	Baud  int    `long:"baud" description:"Bus baud rate (defaults to the configured rate)"`
	Quiet bool   `long:"no-reply" description:"Do not wait for status replies to writes"`
	Args  struct {
		ID       int    `positional-arg-name:"id"`
		Register string `positional-arg-name:"register" description:"Register name, see --list"`
		Value    string `positional-arg-name:"value" description:"Value to write; omit to read"`
	} `positional-args:"yes"`
	List bool `short:"l" long:"list" description:"List register names"`
}

func (c *ServoCommand) Execute(args []string) error {
	if c.List {
		for _, name := range dynamixel.RegisterNames() {
			reg, _ := dynamixel.RegisterByName(name)
			fmt.Printf("%-22s %3d  %d byte(s)\n", name, byte(reg), reg.Width())
		}
		return nil
	}
	if c.Args.Register == "" {
		return fmt.Errorf("usage: hexapod servo <id> <register> [value]")
	}

	reg, err := dynamixel.RegisterByName(strings.ToLower(c.Args.Register))
	if err != nil {
		return err
	}
	if c.Args.ID < 0 || c.Args.ID > int(dynamixel.BroadcastID) {
		return fmt.Errorf("servo id %d out of range", c.Args.ID)
	}

	port, baud := c.Port, c.Baud
	if port == "" || baud == 0 {
		cfg := loadConfig()
		if port == "" {
			port = cfg.Port
		}
		if baud == 0 {
			baud = cfg.BaudRate
		}
	}

	level := dynamixel.ReturnAll
	if c.Quiet {
		level = dynamixel.ReturnRead
	}
	bus, err := dynamixel.NewBus(dynamixel.BusConfig{Port: port, BaudRate: baud, ReturnLevel: level})
	if err != nil {
		return err
	}
	defer bus.Close()

	ctx := context.Background()
	id := byte(c.Args.ID)

	if c.Args.Value == "" {
		v, err := bus.ReadSingle(ctx, id, reg)
		if err != nil {
			return fmt.Errorf("read %s from servo %d: %w", reg, id, err)
		}
		fmt.Printf("%s = %d\n", reg, v)
		return nil
	}

	v, err := strconv.Atoi(c.Args.Value)
	if err != nil {
		return fmt.Errorf("invalid value %q: %w", c.Args.Value, err)
	}
	switch reg {
	case dynamixel.RegBaudRate:
		err = bus.SetBaud(ctx, id, v)
	case dynamixel.RegReturnLevel:
		err = bus.SetReturnLevel(ctx, id, dynamixel.ReturnLevel(v))
	default:
		err = bus.WriteSingle(ctx, id, reg, v)
	}
	if err != nil {
		return fmt.Errorf("write %s to servo %d: %w", reg, id, err)
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("%s = %d", reg, v)))
	return nil
}
