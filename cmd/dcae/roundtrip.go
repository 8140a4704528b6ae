package main

import (
	"context"
	"math"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/dcae/internal/imaging"
)

func roundtripCmd() *cli.Command {
	var (
		input  string
		output string
	)

	return &cli.Command{
		Name:  "roundtrip",
		Usage: "Encode and decode an image, reporting reconstruction error",
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
				Usage:       "output image (png or jpeg)",
				Required:    true,
				Destination: &output,
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
			aligned := imaging.ResizeToMultiple(img, m.SpatialCompressionRatio())
			x := imaging.ToTensor(aligned)

			recon, _, _, err := m.Forward(x)
			if err != nil {
				return err
			}

			var mse float64
			for i := range x.Data {
				d := float64(recon.Data[i]) - float64(x.Data[i])
				mse += d * d
			}
			mse /= float64(len(x.Data))

			out, err := imaging.ToImage(recon)
			if err != nil {
				return err
			}
			if err := imaging.Save(output, out); err != nil {
				return err
			}
			log.Info("round trip complete",
				"input", input,
				"output", output,
				"mse", mse,
				"rmse", math.Sqrt(mse))
			return nil
		},
	}
}
