package api

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"math"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/dcae/internal/tensor"
)

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg)
}

func writeError(c *echo.Context, status int, errType, msg string) error {
	return c.JSON(status, map[string]any{
		"error": ResponseError{Message: msg, Type: errType},
	})
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

func decodeImage(b64 string) (image.Image, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("image is not valid base64: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func latentPayload(t *tensor.Tensor) LatentPayload {
	raw := make([]byte, len(t.Data)*4)
	for i, v := range t.Data {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	return LatentPayload{
		Shape: []int{t.N, t.C, t.H, t.W},
		Data:  base64.StdEncoding.EncodeToString(raw),
	}
}

func latentTensor(p LatentPayload) (*tensor.Tensor, error) {
	if len(p.Shape) != 4 {
		return nil, fmt.Errorf("latent shape has %d dims, want 4", len(p.Shape))
	}
	raw, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		return nil, fmt.Errorf("latent data is not valid base64: %w", err)
	}
	count := p.Shape[0] * p.Shape[1] * p.Shape[2] * p.Shape[3]
	if count <= 0 {
		return nil, fmt.Errorf("latent shape %v is not positive", p.Shape)
	}
	if len(raw) != count*4 {
		return nil, fmt.Errorf("latent data holds %d bytes, shape %v needs %d", len(raw), p.Shape, count*4)
	}
	t := tensor.New(p.Shape[0], p.Shape[1], p.Shape[2], p.Shape[3])
	for i := 0; i < count; i++ {
		t.Data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return t, nil
}
