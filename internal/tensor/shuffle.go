package tensor

import "fmt"

// PixelUnshuffle rearranges spatial blocks into channels (space-to-depth):
// (N, C, H, W) -> (N, C*r*r, H/r, W/r). H and W must be divisible by r.
func PixelUnshuffle(x *Tensor, r int) *Tensor {
	if r <= 0 || x.H%r != 0 || x.W%r != 0 {
		panic(fmt.Sprintf("pixel unshuffle: %dx%d not divisible by factor %d", x.H, x.W, r))
	}
	outH, outW := x.H/r, x.W/r
	out := New(x.N, x.C*r*r, outH, outW)
	for n := 0; n < x.N; n++ {
		for c := 0; c < x.C; c++ {
			src := x.Plane(n, c)
			for dy := 0; dy < r; dy++ {
				for dx := 0; dx < r; dx++ {
					dst := out.Plane(n, c*r*r+dy*r+dx)
					for y := 0; y < outH; y++ {
						srow := src[(y*r+dy)*x.W:]
						drow := dst[y*outW:]
						for xo := 0; xo < outW; xo++ {
							drow[xo] = srow[xo*r+dx]
						}
					}
				}
			}
		}
	}
	return out
}

// PixelShuffle rearranges channels into spatial blocks (depth-to-space):
// (N, C*r*r, H, W) -> (N, C, H*r, W*r). The channel count must be divisible
// by r*r.
func PixelShuffle(x *Tensor, r int) *Tensor {
	if r <= 0 || x.C%(r*r) != 0 {
		panic(fmt.Sprintf("pixel shuffle: %d channels not divisible by factor %d squared", x.C, r))
	}
	outC := x.C / (r * r)
	out := New(x.N, outC, x.H*r, x.W*r)
	for n := 0; n < x.N; n++ {
		for c := 0; c < outC; c++ {
			dst := out.Plane(n, c)
			for dy := 0; dy < r; dy++ {
				for dx := 0; dx < r; dx++ {
					src := x.Plane(n, c*r*r+dy*r+dx)
					for y := 0; y < x.H; y++ {
						srow := src[y*x.W:]
						drow := dst[(y*r+dy)*out.W:]
						for xo := 0; xo < x.W; xo++ {
							drow[xo*r+dx] = srow[xo]
						}
					}
				}
			}
		}
	}
	return out
}

// GroupAverageChannels reduces the channel count to outC by averaging
// consecutive groups of C/outC channels. This is the parameter-free shortcut
// used when downsampling reduces channels.
func GroupAverageChannels(x *Tensor, outC int) *Tensor {
	if outC <= 0 || x.C%outC != 0 {
		panic(fmt.Sprintf("group average: %d channels not divisible by %d", x.C, outC))
	}
	group := x.C / outC
	out := New(x.N, outC, x.H, x.W)
	inv := 1.0 / float32(group)
	for n := 0; n < x.N; n++ {
		for oc := 0; oc < outC; oc++ {
			dst := out.Plane(n, oc)
			for g := 0; g < group; g++ {
				src := x.Plane(n, oc*group+g)
				for i := range dst {
					dst[i] += src[i]
				}
			}
			for i := range dst {
				dst[i] *= inv
			}
		}
	}
	return out
}

// RepeatInterleaveChannels repeats each channel consecutively the given number
// of times: channel c of the input becomes channels c*repeats..c*repeats+r-1
// of the output.
func RepeatInterleaveChannels(x *Tensor, repeats int) *Tensor {
	if repeats <= 0 {
		panic("repeat interleave: non-positive repeat count")
	}
	out := New(x.N, x.C*repeats, x.H, x.W)
	for n := 0; n < x.N; n++ {
		for c := 0; c < x.C; c++ {
			src := x.Plane(n, c)
			for r := 0; r < repeats; r++ {
				copy(out.Plane(n, c*repeats+r), src)
			}
		}
	}
	return out
}

// InterpolateNearest scales the spatial dimensions by an integer factor using
// nearest-neighbour sampling.
func InterpolateNearest(x *Tensor, scale int) *Tensor {
	if scale <= 0 {
		panic("interpolate: non-positive scale")
	}
	out := New(x.N, x.C, x.H*scale, x.W*scale)
	for n := 0; n < x.N; n++ {
		for c := 0; c < x.C; c++ {
			src := x.Plane(n, c)
			dst := out.Plane(n, c)
			for y := 0; y < out.H; y++ {
				srow := src[(y/scale)*x.W:]
				drow := dst[y*out.W:]
				for xo := 0; xo < out.W; xo++ {
					drow[xo] = srow[xo/scale]
				}
			}
		}
	}
	return out
}

// InterpolateBilinear scales the spatial dimensions by an integer factor using
// bilinear sampling with half-pixel centre alignment.
func InterpolateBilinear(x *Tensor, scale int) *Tensor {
	if scale <= 0 {
		panic("interpolate: non-positive scale")
	}
	out := New(x.N, x.C, x.H*scale, x.W*scale)
	s := float64(scale)
	for n := 0; n < x.N; n++ {
		for c := 0; c < x.C; c++ {
			src := x.Plane(n, c)
			dst := out.Plane(n, c)
			for y := 0; y < out.H; y++ {
				sy := (float64(y)+0.5)/s - 0.5
				y0, fy := splitCoord(sy, x.H)
				y1 := y0
				if y0+1 < x.H {
					y1 = y0 + 1
				}
				for xo := 0; xo < out.W; xo++ {
					sx := (float64(xo)+0.5)/s - 0.5
					x0, fx := splitCoord(sx, x.W)
					x1 := x0
					if x0+1 < x.W {
						x1 = x0 + 1
					}
					v00 := float64(src[y0*x.W+x0])
					v01 := float64(src[y0*x.W+x1])
					v10 := float64(src[y1*x.W+x0])
					v11 := float64(src[y1*x.W+x1])
					top := v00 + (v01-v00)*fx
					bot := v10 + (v11-v10)*fx
					dst[y*out.W+xo] = float32(top + (bot-top)*fy)
				}
			}
		}
	}
	return out
}

func splitCoord(v float64, limit int) (int, float64) {
	if v <= 0 {
		return 0, 0
	}
	i := int(v)
	if i >= limit-1 {
		return limit - 1, 0
	}
	return i, v - float64(i)
}
