package model

import (
	"fmt"

	"github.com/samcharles93/dcae/internal/tensor"
)

// Decoder maps a latent batch back to image space, doubling resolution once
// per stage transition. Unlike the encoder, its per-stage normalization and
// activation are configurable.
type Decoder struct {
	convIn     *tensor.Conv2D
	inShortcut bool
	inRepeats  int
	stages     [][]Block
	normOut    Norm
	convOut    Block
}

func NewDecoder(cfg *Config) (*Decoder, error) {
	stages := cfg.Stages()
	blockTypes, err := broadcastStrings(cfg.DecoderBlockTypes, stages, "ResBlock")
	if err != nil {
		return nil, fmt.Errorf("decoder: %w", err)
	}
	normTypes, err := broadcastStrings(cfg.DecoderNormTypes, stages, "rms_norm")
	if err != nil {
		return nil, fmt.Errorf("decoder: %w", err)
	}
	actFns, err := broadcastStrings(cfg.DecoderActFns, stages, "silu")
	if err != nil {
		return nil, fmt.Errorf("decoder: %w", err)
	}
	upMode, err := ParseUpsampleMode(cfg.UpsampleBlockType)
	if err != nil {
		return nil, err
	}
	channels := cfg.DecoderBlockOutChannels
	layers := cfg.DecoderLayersPerBlock

	d := &Decoder{inShortcut: boolOr(cfg.DecoderInShortcut, true)}

	deepest := channels[stages-1]
	if d.inShortcut {
		if deepest%cfg.LatentChannels != 0 {
			return nil, fmt.Errorf("decoder: input shortcut needs %d channels divisible by %d latent channels", deepest, cfg.LatentChannels)
		}
		d.inRepeats = deepest / cfg.LatentChannels
	}
	if d.convIn, err = tensor.NewConv2D(cfg.LatentChannels, deepest, 3, 1, 1, 1, true); err != nil {
		return nil, err
	}

	// Stages run deepest first. Each non-final stage starts with the up block
	// that expands the previous stage's output into this stage's width.
	d.stages = make([][]Block, 0, stages)
	for i := stages - 1; i >= 0; i-- {
		stage := make([]Block, 0, layers[i]+1)
		if i < stages-1 && layers[i] > 0 {
			up, err := NewDCUpBlock2d(channels[i+1], channels[i], upMode, true)
			if err != nil {
				return nil, fmt.Errorf("decoder stage %d: %w", i, err)
			}
			stage = append(stage, up)
		}
		for j := 0; j < layers[i]; j++ {
			blk, err := newBlock(blockTypes[i], channels[i], channels[i], cfg.AttentionHeadDim,
				normTypes[i], actFns[i], cfg.DecoderQKVMultiscales[i])
			if err != nil {
				return nil, fmt.Errorf("decoder stage %d: %w", i, err)
			}
			stage = append(stage, blk)
		}
		d.stages = append(d.stages, stage)
	}

	// With a zero-layer first stage the head does the final upsample itself
	// and consumes the second stage's width.
	headC := channels[0]
	if layers[0] > 0 {
		conv, err := tensor.NewConv2D(headC, cfg.InChannels, 3, 1, 1, 1, true)
		if err != nil {
			return nil, err
		}
		d.convOut = convBlock{conv: conv}
	} else {
		if stages < 2 {
			return nil, fmt.Errorf("decoder: zero layers in the only stage")
		}
		headC = channels[1]
		if d.convOut, err = NewDCUpBlock2d(headC, cfg.InChannels, upMode, false); err != nil {
			return nil, err
		}
	}
	d.normOut = NewRMSNorm(headC, 1e-5, true, true)
	return d, nil
}

func (d *Decoder) Forward(z *tensor.Tensor) *tensor.Tensor {
	h := d.convIn.Apply(z)
	if d.inShortcut {
		tensor.Add(h, tensor.RepeatInterleaveChannels(z, d.inRepeats))
	}
	for _, stage := range d.stages {
		for _, blk := range stage {
			h = blk.Forward(h)
		}
	}
	h = d.normOut.Apply(h)
	tensor.Map(h, tensor.Relu)
	return d.convOut.Forward(h)
}

func (d *Decoder) appendParams(dst [][]float32) [][]float32 {
	dst = append(dst, d.convIn.Parameters()...)
	for _, stage := range d.stages {
		for _, blk := range stage {
			dst = blk.appendParams(dst)
		}
	}
	dst = append(dst, d.normOut.Parameters()...)
	return d.convOut.appendParams(dst)
}

func (d *Decoder) appendConvs(dst []*tensor.Conv2D) []*tensor.Conv2D {
	dst = append(dst, d.convIn)
	for _, stage := range d.stages {
		for _, blk := range stage {
			dst = blk.appendConvs(dst)
		}
	}
	return d.convOut.appendConvs(dst)
}
