package model

import (
	"testing"

	"github.com/samcharles93/dcae/internal/tensor"
)

type countingTiler struct {
	encodes int
	decodes int
}

func (c *countingTiler) TiledEncode(m *AutoencoderDC, x *tensor.Tensor) (*tensor.Tensor, error) {
	c.encodes++
	return m.encoder.Forward(x), nil
}

func (c *countingTiler) TiledDecode(m *AutoencoderDC, z *tensor.Tensor) (*tensor.Tensor, error) {
	c.decodes++
	return m.decoder.Forward(z), nil
}

func newTestModel(t *testing.T) *AutoencoderDC {
	t.Helper()
	m, err := New(testConfig())
	if err != nil {
		t.Fatal(err)
	}
	m.InitRand(1)
	return m
}

func TestForwardContract(t *testing.T) {
	m := newTestModel(t)
	x := tensor.New(2, 3, 16, 16)
	tensor.FillRand(x.Data, 61)

	recon, loss, extra, err := m.Forward(x)
	if err != nil {
		t.Fatal(err)
	}
	if !recon.SameShape(x) {
		t.Fatalf("reconstruction shape (%d,%d,%d,%d), want input shape", recon.N, recon.C, recon.H, recon.W)
	}
	if loss != 0 {
		t.Fatalf("loss = %v, want 0", loss)
	}
	if extra == nil || len(extra) != 0 {
		t.Fatalf("side channel = %v, want empty map", extra)
	}
}

func TestEncodeRejectsUnalignedInput(t *testing.T) {
	m := newTestModel(t)
	if _, err := m.Encode(tensor.New(1, 3, 15, 16)); err == nil {
		t.Fatal("expected error for input not divisible by compression ratio")
	}
}

func TestDecodeRejectsWrongLatentWidth(t *testing.T) {
	m := newTestModel(t)
	if _, err := m.Decode(tensor.New(1, 7, 8, 8)); err == nil {
		t.Fatal("expected error for wrong latent channel count")
	}
}

// Slicing processes batch members one at a time; each member's math is
// independent, so results must match whole-batch processing exactly.
func TestSlicingMatchesWholeBatch(t *testing.T) {
	m := newTestModel(t)
	x := tensor.New(3, 3, 16, 16)
	tensor.FillRand(x.Data, 62)

	whole, err := m.Encode(x)
	if err != nil {
		t.Fatal(err)
	}
	m.EnableSlicing()
	sliced, err := m.Encode(x)
	if err != nil {
		t.Fatal(err)
	}
	compareSlices(t, sliced.Data, whole.Data, 0)

	wholeDec, err := m.Decode(whole)
	if err != nil {
		t.Fatal(err)
	}
	slicedDec, err := m.Decode(sliced)
	if err != nil {
		t.Fatal(err)
	}
	m.DisableSlicing()
	compareSlices(t, slicedDec.Data, wholeDec.Data, 0)
}

func TestTilingDispatch(t *testing.T) {
	m := newTestModel(t)
	tiler := &countingTiler{}
	m.SetTiler(tiler)
	m.EnableTiling(TilingOptions{SampleMinHeight: 8, SampleMinWidth: 8, SampleStrideHeight: 8, SampleStrideWidth: 8})

	x := tensor.New(1, 3, 16, 16)
	tensor.FillRand(x.Data, 63)
	z, err := m.Encode(x)
	if err != nil {
		t.Fatal(err)
	}
	if tiler.encodes != 1 {
		t.Fatalf("tiled encodes = %d, want 1", tiler.encodes)
	}
	if _, err := m.Decode(z); err != nil {
		t.Fatal(err)
	}
	if tiler.decodes != 1 {
		t.Fatalf("tiled decodes = %d, want 1", tiler.decodes)
	}

	// Inputs at or below the tile minimum bypass the tiler.
	small := tensor.New(1, 3, 8, 8)
	if _, err := m.Encode(small); err != nil {
		t.Fatal(err)
	}
	if tiler.encodes != 1 {
		t.Fatalf("small input must not tile, encodes = %d", tiler.encodes)
	}

	m.DisableTiling()
	if _, err := m.Encode(x); err != nil {
		t.Fatal(err)
	}
	if tiler.encodes != 1 {
		t.Fatalf("disabled tiling must not tile, encodes = %d", tiler.encodes)
	}
}

func TestTilingWithoutTilerErrors(t *testing.T) {
	m := newTestModel(t)
	m.EnableTiling(TilingOptions{SampleMinHeight: 8, SampleMinWidth: 8})
	if _, err := m.Encode(tensor.New(1, 3, 16, 16)); err == nil {
		t.Fatal("expected error: tiling enabled with no tiler installed")
	}
}

func TestEnableTilingKeepsUnsetFields(t *testing.T) {
	m := newTestModel(t)
	m.EnableTiling(TilingOptions{SampleMinHeight: 256})
	opts, on := m.Tiling()
	if !on {
		t.Fatal("tiling should be enabled")
	}
	if opts.SampleMinHeight != 256 {
		t.Fatalf("min height = %d, want 256", opts.SampleMinHeight)
	}
	if opts.SampleMinWidth != 512 || opts.SampleStrideWidth != 448 {
		t.Fatalf("unset fields changed: %+v", opts)
	}
}

func TestInitRandDeterministic(t *testing.T) {
	a := newTestModel(t)
	b := newTestModel(t)
	x := tensor.New(1, 3, 16, 16)
	tensor.FillRand(x.Data, 64)

	za, err := a.Encode(x)
	if err != nil {
		t.Fatal(err)
	}
	zb, err := b.Encode(x)
	if err != nil {
		t.Fatal(err)
	}
	compareSlices(t, za.Data, zb.Data, 0)
}

func TestNumParameters(t *testing.T) {
	m := newTestModel(t)
	if n := m.NumParameters(); n <= 0 {
		t.Fatalf("parameter count = %d, want positive", n)
	}
}

func TestSpatialCompressionRatio(t *testing.T) {
	m := newTestModel(t)
	if r := m.SpatialCompressionRatio(); r != 2 {
		t.Fatalf("ratio = %d, want 2 for a two-stage model", r)
	}
}

func TestParseConfigKeepsDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{"latent_channels": 8, "encoder_out_shortcut": false}`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LatentChannels != 8 {
		t.Fatalf("latent channels = %d, want 8", cfg.LatentChannels)
	}
	if boolOr(cfg.EncoderOutShortcut, true) {
		t.Fatal("encoder out shortcut should be disabled")
	}
	if boolOr(cfg.DecoderInShortcut, true) != true {
		t.Fatal("decoder in shortcut should keep its default")
	}
	if cfg.InChannels != 3 || cfg.ScalingFactor != 1.0 {
		t.Fatalf("defaults lost: in=%d scaling=%v", cfg.InChannels, cfg.ScalingFactor)
	}
}

func TestConfigValidation(t *testing.T) {
	cfg := testConfig()
	cfg.DecoderBlockOutChannels = []int{8}
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error: encoder/decoder stage counts differ")
	}

	cfg = testConfig()
	cfg.EncoderQKVMultiscales = [][]int{{}}
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error: multiscale slice length mismatch")
	}
}
