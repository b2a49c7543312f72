package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gwillem/hexapod/pkg/robot"
)

type PoseCommand struct {
	Raise float64 `long:"raise" description:"Raise the body by this much after reaching the pose"`
	Args  struct {
		Pose string `positional-arg-name:"pose" description:"default, centered, standing, standing_quad, flat_quad, quad_setup, fly_standing_quad or fly_straight_quad"`
	} `positional-args:"yes" required:"yes"`
}

func (c *PoseCommand) Execute(args []string) error {
	pose, err := robot.ParsePose(c.Args.Pose)
	if err != nil {
		return err
	}
	cfg := loadConfig()

	ctx := context.Background()
	h, err := robot.Open(ctx, cfg, robot.OpenOptions{Logger: log.New(os.Stderr, "", log.LstdFlags)})
	if err != nil {
		return err
	}
	defer h.Close()

	if err := h.SetPose(ctx, pose); err != nil {
		return fmt.Errorf("set pose %s: %w", pose, err)
	}
	if c.Raise != 0 {
		if err := h.RaiseBody(ctx, c.Raise); err != nil {
			return fmt.Errorf("raise body: %w", err)
		}
	}

	fmt.Println(successStyle.Render(fmt.Sprintf("Pose: %s", h.Pose())))
	if height := h.BodyHeight(); height > 0 {
		fmt.Printf("Body height: %.2f\n", height)
	}
	return nil
}
