package tensorio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/samcharles93/dcae/internal/tensor"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latent.dct")
	src := tensor.New(2, 4, 3, 5)
	tensor.FillRand(src.Data, 17)

	if err := Save(path, src); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !got.SameShape(src) {
		t.Fatalf("shape (%d,%d,%d,%d), want (2,4,3,5)", got.N, got.C, got.H, got.W)
	}
	for i := range src.Data {
		if got.Data[i] != src.Data[i] {
			t.Fatalf("element %d: got %v, want %v", i, got.Data[i], src.Data[i])
		}
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.dct")
	if err := os.WriteFile(path, []byte("NOPE0000000000000000000000000000"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrInvalidMagic) {
		t.Fatalf("got %v, want ErrInvalidMagic", err)
	}
}

func TestLoadRejectsTruncatedPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trunc.dct")
	src := tensor.New(1, 2, 2, 2)
	if err := Save(path, src); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data[:len(data)-4], 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("got %v, want ErrCorruptFile", err)
	}
}

func TestLoadRejectsShortFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.dct")
	if err := os.WriteFile(path, []byte("DCT1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("got %v, want ErrCorruptFile", err)
	}
}
