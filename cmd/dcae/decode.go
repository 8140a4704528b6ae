package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/dcae/internal/imaging"
	"github.com/samcharles93/dcae/internal/tensor"
	"github.com/samcharles93/dcae/internal/tensorio"
)

func decodeCmd() *cli.Command {
	var (
		input  string
		output string
		scaled bool
	)

	return &cli.Command{
		Name:  "decode",
		Usage: "Decode a latent tensor file to an image",
		Flags: append(append(commonModelFlags(), loggingFlags()...),
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"i"},
				Usage:       "input latent file",
				Required:    true,
				Destination: &input,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output image (png or jpeg)",
				Required:    true,
				Destination: &output,
			},
			&cli.BoolFlag{
				Name:        "scaled",
				Usage:       "divide the latent by the model's scaling factor before decoding",
				Destination: &scaled,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyCommonConfig(cmd, LoadConfig())
			log := buildLogger()

			m, err := loadModel()
			if err != nil {
				return err
			}
			z, err := tensorio.Load(input)
			if err != nil {
				return err
			}
			if scaled {
				tensor.Scale(z, 1/float32(m.ScalingFactor()))
			}
			x, err := m.Decode(z)
			if err != nil {
				return err
			}
			img, err := imaging.ToImage(x)
			if err != nil {
				return err
			}
			if err := imaging.Save(output, img); err != nil {
				return err
			}
			log.Info("decoded latent",
				"input", input,
				"output", output,
				"image", [2]int{x.H, x.W})
			return nil
		},
	}
}
