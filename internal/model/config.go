package model

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Config describes a deep-compression autoencoder architecture. Per-stage
// slices with a single element broadcast to every stage; empty slices take
// the documented default. All structural validation happens when the model is
// built, never per forward call.
type Config struct {
	InChannels       int `json:"in_channels"`
	LatentChannels   int `json:"latent_channels"`
	AttentionHeadDim int `json:"attention_head_dim"`

	EncoderBlockTypes       []string `json:"encoder_block_types"`
	DecoderBlockTypes       []string `json:"decoder_block_types"`
	EncoderBlockOutChannels []int    `json:"encoder_block_out_channels"`
	DecoderBlockOutChannels []int    `json:"decoder_block_out_channels"`
	EncoderLayersPerBlock   []int    `json:"encoder_layers_per_block"`
	DecoderLayersPerBlock   []int    `json:"decoder_layers_per_block"`
	EncoderQKVMultiscales   [][]int  `json:"encoder_qkv_multiscales"`
	DecoderQKVMultiscales   [][]int  `json:"decoder_qkv_multiscales"`

	UpsampleBlockType   string   `json:"upsample_block_type"`
	DownsampleBlockType string   `json:"downsample_block_type"`
	DecoderNormTypes    []string `json:"decoder_norm_types"`
	DecoderActFns       []string `json:"decoder_act_fns"`

	// EncoderOutShortcut and DecoderInShortcut are pointers so an absent
	// field keeps the default (enabled).
	EncoderOutShortcut *bool `json:"encoder_out_shortcut"`
	DecoderInShortcut  *bool `json:"decoder_in_shortcut"`

	// ScalingFactor normalizes latent variance for downstream consumers. It
	// is carried in the config and exposed to callers; the core never applies
	// it itself.
	ScalingFactor float64 `json:"scaling_factor"`
}

// DefaultConfig returns the f32-compression, 32-latent-channel architecture.
func DefaultConfig() Config {
	return Config{
		InChannels:              3,
		LatentChannels:          32,
		AttentionHeadDim:        32,
		EncoderBlockTypes:       []string{"ResBlock", "ResBlock", "ResBlock", "EfficientViTBlock", "EfficientViTBlock", "EfficientViTBlock"},
		DecoderBlockTypes:       []string{"ResBlock", "ResBlock", "ResBlock", "EfficientViTBlock", "EfficientViTBlock", "EfficientViTBlock"},
		EncoderBlockOutChannels: []int{128, 256, 512, 512, 1024, 1024},
		DecoderBlockOutChannels: []int{128, 256, 512, 512, 1024, 1024},
		EncoderLayersPerBlock:   []int{2, 2, 2, 3, 3, 3},
		DecoderLayersPerBlock:   []int{3, 3, 3, 3, 3, 3},
		EncoderQKVMultiscales:   [][]int{{}, {}, {}, {5}, {5}, {5}},
		DecoderQKVMultiscales:   [][]int{{}, {}, {}, {5}, {5}, {5}},
		UpsampleBlockType:       "pixel_shuffle",
		DownsampleBlockType:     "pixel_unshuffle",
		DecoderNormTypes:        []string{"rms_norm"},
		DecoderActFns:           []string{"silu"},
		ScalingFactor:           1.0,
	}
}

// ParseConfig decodes a JSON architecture description over the defaults, so
// absent fields keep their default values.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse model config: %w", err)
	}
	return cfg, nil
}

// Stages returns the shared encoder/decoder stage count.
func (c *Config) Stages() int { return len(c.EncoderBlockOutChannels) }

// SpatialCompressionRatio is the factor between image and latent resolution.
func (c *Config) SpatialCompressionRatio() int {
	return 1 << (c.Stages() - 1)
}

func (c *Config) validate() error {
	stages := c.Stages()
	if stages == 0 {
		return fmt.Errorf("config: no encoder stages configured")
	}
	if c.InChannels <= 0 || c.LatentChannels <= 0 || c.AttentionHeadDim <= 0 {
		return fmt.Errorf("config: channel counts and head dim must be positive")
	}
	if len(c.DecoderBlockOutChannels) != stages {
		return fmt.Errorf("config: encoder has %d stages, decoder has %d", stages, len(c.DecoderBlockOutChannels))
	}
	if len(c.EncoderLayersPerBlock) != stages || len(c.EncoderQKVMultiscales) != stages {
		return fmt.Errorf("config: encoder stage slices disagree: %d channels, %d layers, %d multiscales",
			stages, len(c.EncoderLayersPerBlock), len(c.EncoderQKVMultiscales))
	}
	if len(c.DecoderLayersPerBlock) != stages || len(c.DecoderQKVMultiscales) != stages {
		return fmt.Errorf("config: decoder stage slices disagree: %d channels, %d layers, %d multiscales",
			stages, len(c.DecoderLayersPerBlock), len(c.DecoderQKVMultiscales))
	}
	return nil
}

// broadcastStrings expands a per-stage string slice: empty takes the default
// for every stage, a single entry repeats, and a full-length slice passes
// through.
func broadcastStrings(vals []string, stages int, def string) ([]string, error) {
	switch len(vals) {
	case 0:
		vals = []string{def}
		fallthrough
	case 1:
		out := make([]string, stages)
		for i := range out {
			out[i] = vals[0]
		}
		return out, nil
	case stages:
		return vals, nil
	default:
		return nil, fmt.Errorf("config: per-stage slice has %d entries, want 1 or %d", len(vals), stages)
	}
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
