package tensor

import "testing"

func TestPixelUnshuffleShuffleRoundTrip(t *testing.T) {
	// Space-to-depth followed by depth-to-space must be exact for any input
	// with spatial dims divisible by the factor.
	x := New(2, 3, 8, 6)
	fillSequential(x.Data, 0.1)

	down := PixelUnshuffle(x, 2)
	if down.C != 12 || down.H != 4 || down.W != 3 {
		t.Fatalf("unshuffle shape: got %dx%dx%dx%d", down.N, down.C, down.H, down.W)
	}
	up := PixelShuffle(down, 2)
	if !up.SameShape(x) {
		t.Fatalf("round trip shape: got %dx%dx%dx%d", up.N, up.C, up.H, up.W)
	}
	compareSlices(t, up.Data, x.Data, 0)
}

func TestPixelShuffleUnshuffleRoundTrip(t *testing.T) {
	x := New(1, 8, 3, 5)
	fillSequential(x.Data, 0.2)

	up := PixelShuffle(x, 2)
	down := PixelUnshuffle(up, 2)
	compareSlices(t, down.Data, x.Data, 0)
}

func TestPixelUnshuffleLayout(t *testing.T) {
	// One channel, 2x2 input: the four pixels become four channels in
	// row-major block order.
	x := New(1, 1, 2, 2)
	x.Data = []float32{1, 2, 3, 4}
	out := PixelUnshuffle(x, 2)
	want := []float32{1, 2, 3, 4}
	compareSlices(t, out.Data, want, 0)
	if out.C != 4 || out.H != 1 || out.W != 1 {
		t.Fatalf("unexpected shape %dx%dx%dx%d", out.N, out.C, out.H, out.W)
	}
}

func TestGroupAverageChannels(t *testing.T) {
	x := New(1, 4, 1, 2)
	x.Data = []float32{
		1, 2, // channel 0
		3, 4, // channel 1
		10, 20, // channel 2
		30, 40, // channel 3
	}
	out := GroupAverageChannels(x, 2)
	want := []float32{2, 3, 20, 30}
	compareSlices(t, out.Data, want, 0)
}

func TestGroupAverageConstantIsIdentity(t *testing.T) {
	x := New(1, 8, 3, 3)
	x.Fill(2.5)
	out := GroupAverageChannels(x, 2)
	for i, v := range out.Data {
		if v != 2.5 {
			t.Fatalf("constant not preserved at %d: got %v", i, v)
		}
	}
}

func TestRepeatInterleaveChannels(t *testing.T) {
	x := New(1, 2, 1, 2)
	x.Data = []float32{1, 2, 3, 4}
	out := RepeatInterleaveChannels(x, 3)
	want := []float32{
		1, 2, 1, 2, 1, 2,
		3, 4, 3, 4, 3, 4,
	}
	compareSlices(t, out.Data, want, 0)
}

func TestInterpolateNearest(t *testing.T) {
	x := New(1, 1, 2, 2)
	x.Data = []float32{1, 2, 3, 4}
	out := InterpolateNearest(x, 2)
	want := []float32{
		1, 1, 2, 2,
		1, 1, 2, 2,
		3, 3, 4, 4,
		3, 3, 4, 4,
	}
	compareSlices(t, out.Data, want, 0)
}

func TestInterpolateBilinearPreservesConstant(t *testing.T) {
	x := New(1, 2, 3, 3)
	x.Fill(1.5)
	out := InterpolateBilinear(x, 2)
	for i, v := range out.Data {
		if v < 1.5-1e-6 || v > 1.5+1e-6 {
			t.Fatalf("constant not preserved at %d: got %v", i, v)
		}
	}
}

func TestSelectConcatBatchRoundTrip(t *testing.T) {
	x := New(3, 2, 2, 2)
	fillSequential(x.Data, 1)

	parts := make([]*Tensor, x.N)
	for i := range parts {
		parts[i] = SelectBatch(x, i)
	}
	out := ConcatBatch(parts...)
	compareSlices(t, out.Data, x.Data, 0)
}

func TestConcatChunkChannelsRoundTrip(t *testing.T) {
	x := New(2, 6, 2, 3)
	fillSequential(x.Data, 0.5)

	chunks := ChunkChannels(x, 3)
	out := ConcatChannels(chunks...)
	compareSlices(t, out.Data, x.Data, 0)
}
