package model

import (
	"fmt"

	"github.com/samcharles93/dcae/internal/tensor"
)

// convBlock adapts a bare convolution to the Block interface so stem and head
// layers compose with stage blocks.
type convBlock struct {
	conv *tensor.Conv2D
}

func (b convBlock) Forward(x *tensor.Tensor) *tensor.Tensor { return b.conv.Apply(x) }

func (b convBlock) appendParams(dst [][]float32) [][]float32 {
	return append(dst, b.conv.Parameters()...)
}

func (b convBlock) appendConvs(dst []*tensor.Conv2D) []*tensor.Conv2D {
	return append(dst, b.conv)
}

// Encoder maps an image batch to a latent batch, halving resolution once per
// stage transition. Stage blocks always use channel RMS normalization and the
// silu activation.
type Encoder struct {
	convIn      Block
	stages      [][]Block
	convOut     *tensor.Conv2D
	outShortcut bool
	latentC     int
}

func NewEncoder(cfg *Config) (*Encoder, error) {
	stages := cfg.Stages()
	blockTypes, err := broadcastStrings(cfg.EncoderBlockTypes, stages, "ResBlock")
	if err != nil {
		return nil, fmt.Errorf("encoder: %w", err)
	}
	downMode, err := ParseDownsampleMode(cfg.DownsampleBlockType)
	if err != nil {
		return nil, err
	}
	channels := cfg.EncoderBlockOutChannels
	layers := cfg.EncoderLayersPerBlock

	e := &Encoder{
		outShortcut: boolOr(cfg.EncoderOutShortcut, true),
		latentC:     cfg.LatentChannels,
	}

	// A zero-layer first stage folds the downsample into the stem, so the stem
	// emits the second stage's width directly.
	if layers[0] > 0 {
		conv, err := tensor.NewConv2D(cfg.InChannels, channels[0], 3, 1, 1, 1, true)
		if err != nil {
			return nil, err
		}
		e.convIn = convBlock{conv: conv}
	} else {
		if stages < 2 {
			return nil, fmt.Errorf("encoder: zero layers in the only stage")
		}
		if e.convIn, err = NewDCDownBlock2d(cfg.InChannels, channels[1], downMode, false); err != nil {
			return nil, err
		}
	}

	e.stages = make([][]Block, stages)
	for i := 0; i < stages; i++ {
		stage := make([]Block, 0, layers[i]+1)
		for j := 0; j < layers[i]; j++ {
			blk, err := newBlock(blockTypes[i], channels[i], channels[i], cfg.AttentionHeadDim,
				"rms_norm", "silu", cfg.EncoderQKVMultiscales[i])
			if err != nil {
				return nil, fmt.Errorf("encoder stage %d: %w", i, err)
			}
			stage = append(stage, blk)
		}
		if i < stages-1 && layers[i] > 0 {
			down, err := NewDCDownBlock2d(channels[i], channels[i+1], downMode, true)
			if err != nil {
				return nil, fmt.Errorf("encoder stage %d: %w", i, err)
			}
			stage = append(stage, down)
		}
		e.stages[i] = stage
	}

	last := channels[stages-1]
	if e.outShortcut && last%cfg.LatentChannels != 0 {
		return nil, fmt.Errorf("encoder: output shortcut needs %d channels divisible by %d latent channels", last, cfg.LatentChannels)
	}
	if e.convOut, err = tensor.NewConv2D(last, cfg.LatentChannels, 3, 1, 1, 1, true); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Encoder) Forward(x *tensor.Tensor) *tensor.Tensor {
	h := e.convIn.Forward(x)
	for _, stage := range e.stages {
		for _, blk := range stage {
			h = blk.Forward(h)
		}
	}
	out := e.convOut.Apply(h)
	if e.outShortcut {
		tensor.Add(out, tensor.GroupAverageChannels(h, e.latentC))
	}
	return out
}

func (e *Encoder) appendParams(dst [][]float32) [][]float32 {
	dst = e.convIn.appendParams(dst)
	for _, stage := range e.stages {
		for _, blk := range stage {
			dst = blk.appendParams(dst)
		}
	}
	return append(dst, e.convOut.Parameters()...)
}

func (e *Encoder) appendConvs(dst []*tensor.Conv2D) []*tensor.Conv2D {
	dst = e.convIn.appendConvs(dst)
	for _, stage := range e.stages {
		for _, blk := range stage {
			dst = blk.appendConvs(dst)
		}
	}
	return append(dst, e.convOut)
}
