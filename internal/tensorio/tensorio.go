// Package tensorio reads and writes raw float32 feature maps in a small
// binary container, used to pass latents between CLI invocations.
package tensorio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"golang.org/x/sys/unix"

	"github.com/samcharles93/dcae/internal/tensor"
)

// File layout, little endian:
//
//	0  magic   "DCT1"
//	4  version uint32
//	8  n, c, h, w uint32 each
//	24 payload n*c*h*w float32
const (
	magic         = "DCT1"
	headerSize    = 24
	formatVersion = 1
)

var (
	ErrCorruptFile        = errors.New("tensorio: corrupt tensor file")
	ErrInvalidMagic       = errors.New("tensorio: not a tensor file")
	ErrUnsupportedVersion = errors.New("tensorio: unsupported format version")
)

// Save writes t to path, replacing any existing file.
func Save(path string, t *tensor.Tensor) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriterSize(f, 1<<16)

	hdr := make([]byte, headerSize)
	copy(hdr, magic)
	binary.LittleEndian.PutUint32(hdr[4:], formatVersion)
	binary.LittleEndian.PutUint32(hdr[8:], uint32(t.N))
	binary.LittleEndian.PutUint32(hdr[12:], uint32(t.C))
	binary.LittleEndian.PutUint32(hdr[16:], uint32(t.H))
	binary.LittleEndian.PutUint32(hdr[20:], uint32(t.W))
	if _, err := w.Write(hdr); err != nil {
		_ = f.Close()
		return err
	}

	var scratch [4]byte
	for _, v := range t.Data {
		binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(v))
		if _, err := w.Write(scratch[:]); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Load reads a tensor from path. The file is mapped read-only where mmap is
// available, with a plain read fallback; the payload is always copied out so
// the mapping never outlives the call.
func Load(path string) (*tensor.Tensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size64 := stat.Size()
	if size64 < headerSize {
		return nil, ErrCorruptFile
	}
	if size64 > int64(int(^uint(0)>>1)) {
		return nil, ErrCorruptFile
	}
	size := int(size64)

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		t, parseErr := parse(data)
		_ = unix.Munmap(data)
		return t, parseErr
	}

	data, err = readAllAt(f, size)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}

func parse(data []byte) (*tensor.Tensor, error) {
	if len(data) < headerSize {
		return nil, ErrCorruptFile
	}
	if string(data[:4]) != magic {
		return nil, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint32(data[4:]); v != formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	n := int(binary.LittleEndian.Uint32(data[8:]))
	c := int(binary.LittleEndian.Uint32(data[12:]))
	h := int(binary.LittleEndian.Uint32(data[16:]))
	w := int(binary.LittleEndian.Uint32(data[20:]))
	if n <= 0 || c <= 0 || h <= 0 || w <= 0 {
		return nil, ErrCorruptFile
	}
	count := n * c * h * w
	if len(data) != headerSize+count*4 {
		return nil, fmt.Errorf("%w: payload size mismatch", ErrCorruptFile)
	}

	t := tensor.New(n, c, h, w)
	payload := data[headerSize:]
	for i := 0; i < count; i++ {
		t.Data[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
	}
	return t, nil
}
