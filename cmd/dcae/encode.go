package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/dcae/internal/imaging"
	"github.com/samcharles93/dcae/internal/tensor"
	"github.com/samcharles93/dcae/internal/tensorio"
)

func encodeCmd() *cli.Command {
	var (
		input  string
		output string
		scaled bool
	)

	return &cli.Command{
		Name:  "encode",
		Usage: "Encode an image to a latent tensor file",
		Flags: append(append(commonModelFlags(), loggingFlags()...),
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"i"},
				Usage:       "input image (png or jpeg)",
				Required:    true,
				Destination: &input,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output latent file",
				Required:    true,
				Destination: &output,
			},
			&cli.BoolFlag{
				Name:        "scaled",
				Usage:       "multiply the latent by the model's scaling factor",
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
			img, err := imaging.Load(input)
			if err != nil {
				return err
			}
			ratio := m.SpatialCompressionRatio()
			aligned := imaging.ResizeToMultiple(img, ratio)
			if aligned.Bounds() != img.Bounds() {
				log.Warn("resized input to compression-ratio multiple",
					"from", img.Bounds().Size(), "to", aligned.Bounds().Size())
			}

			z, err := m.Encode(imaging.ToTensor(aligned))
			if err != nil {
				return err
			}
			if scaled {
				tensor.Scale(z, float32(m.ScalingFactor()))
			}
			if err := tensorio.Save(output, z); err != nil {
				return err
			}
			log.Info("encoded image",
				"input", input,
				"output", output,
				"latent", [3]int{z.C, z.H, z.W})
			return nil
		},
	}
}
