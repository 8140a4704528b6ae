package model

import (
	"testing"

	"github.com/samcharles93/dcae/internal/tensor"
)

// testConfig is a two-stage architecture small enough for unit tests.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.InChannels = 3
	cfg.LatentChannels = 4
	cfg.AttentionHeadDim = 8
	cfg.EncoderBlockTypes = []string{"ResBlock"}
	cfg.DecoderBlockTypes = []string{"ResBlock"}
	cfg.EncoderBlockOutChannels = []int{8, 16}
	cfg.DecoderBlockOutChannels = []int{8, 16}
	cfg.EncoderLayersPerBlock = []int{1, 1}
	cfg.DecoderLayersPerBlock = []int{1, 1}
	cfg.EncoderQKVMultiscales = [][]int{{}, {}}
	cfg.DecoderQKVMultiscales = [][]int{{}, {}}
	return cfg
}

func TestEncoderLatentShape(t *testing.T) {
	cfg := testConfig()
	enc, err := NewEncoder(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	x := tensor.New(1, 3, 16, 16)
	tensor.FillRand(x.Data, 51)
	z := enc.Forward(x)
	if z.N != 1 || z.C != 4 || z.H != 8 || z.W != 8 {
		t.Fatalf("latent shape (%d,%d,%d,%d), want (1,4,8,8)", z.N, z.C, z.H, z.W)
	}
}

func TestDecoderImageShape(t *testing.T) {
	cfg := testConfig()
	dec, err := NewDecoder(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	z := tensor.New(1, 4, 8, 8)
	tensor.FillRand(z.Data, 52)
	x := dec.Forward(z)
	if x.N != 1 || x.C != 3 || x.H != 16 || x.W != 16 {
		t.Fatalf("image shape (%d,%d,%d,%d), want (1,3,16,16)", x.N, x.C, x.H, x.W)
	}
}

// A zero-layer first stage folds the resolution change into the stem and head
// convolutions; the overall compression ratio must not change.
func TestZeroLayerFirstStage(t *testing.T) {
	cfg := testConfig()
	cfg.EncoderLayersPerBlock = []int{0, 1}
	cfg.DecoderLayersPerBlock = []int{0, 1}

	enc, err := NewEncoder(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	dec, err := NewDecoder(&cfg)
	if err != nil {
		t.Fatal(err)
	}

	x := tensor.New(1, 3, 16, 16)
	tensor.FillRand(x.Data, 53)
	z := enc.Forward(x)
	if z.C != 4 || z.H != 8 || z.W != 8 {
		t.Fatalf("latent shape (%d,%d,%d,%d), want (1,4,8,8)", z.N, z.C, z.H, z.W)
	}
	y := dec.Forward(z)
	if y.C != 3 || y.H != 16 || y.W != 16 {
		t.Fatalf("image shape (%d,%d,%d,%d), want (1,3,16,16)", y.N, y.C, y.H, y.W)
	}
}

func TestEncoderShortcutDivisibilityError(t *testing.T) {
	cfg := testConfig()
	cfg.LatentChannels = 5
	if _, err := NewEncoder(&cfg); err == nil {
		t.Fatal("expected error: deepest width not divisible by latent channels")
	}
}

func TestDecoderShortcutDivisibilityError(t *testing.T) {
	cfg := testConfig()
	cfg.LatentChannels = 5
	if _, err := NewDecoder(&cfg); err == nil {
		t.Fatal("expected error: deepest width not divisible by latent channels")
	}
}

func TestBroadcastStrings(t *testing.T) {
	got, err := broadcastStrings(nil, 3, "rms_norm")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[2] != "rms_norm" {
		t.Fatalf("default broadcast failed: %v", got)
	}
	got, err = broadcastStrings([]string{"silu"}, 2, "relu")
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != "silu" || got[1] != "silu" {
		t.Fatalf("single-entry broadcast failed: %v", got)
	}
	if _, err = broadcastStrings([]string{"a", "b"}, 3, "c"); err == nil {
		t.Fatal("expected error for mismatched slice length")
	}
}
