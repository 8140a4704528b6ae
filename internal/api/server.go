// Package api exposes the autoencoder over HTTP: encode images to latents,
// decode latents to images, and run full reconstructions.
package api

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/dcae/internal/imaging"
	"github.com/samcharles93/dcae/internal/logger"
	"github.com/samcharles93/dcae/internal/model"
	"github.com/samcharles93/dcae/internal/tensor"
	"github.com/samcharles93/dcae/internal/version"
)

type Server struct {
	model *model.AutoencoderDC
	log   logger.Logger
	clock func() time.Time
}

func NewServer(m *model.AutoencoderDC, log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	return &Server{
		model: m,
		log:   log,
		clock: time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/encode", s.handleEncode)
	e.POST("/v1/decode", s.handleDecode)
	e.POST("/v1/reconstruct", s.handleReconstruct)
	e.GET("/v1/model", s.handleModelInfo)
}

func (s *Server) handleEncode(c *echo.Context) error {
	start := s.clock()
	req, err := decodeJSON[EncodeRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	x, err := s.imageTensor(req.Image)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}

	z, err := s.model.Encode(x)
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}
	if req.ApplyScaling {
		tensor.Scale(z, float32(s.model.ScalingFactor()))
	}

	id := "enc_" + uuid.NewString()
	s.log.Info("encoded image",
		"id", id,
		"input", [2]int{x.H, x.W},
		"latent", [3]int{z.C, z.H, z.W},
		"duration", s.clock().Sub(start))
	return c.JSON(http.StatusOK, EncodeResponse{
		ID:            id,
		Latent:        latentPayload(z),
		ScalingFactor: s.model.ScalingFactor(),
	})
}

func (s *Server) handleDecode(c *echo.Context) error {
	start := s.clock()
	req, err := decodeJSON[DecodeRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	z, err := latentTensor(req.Latent)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if req.ApplyScaling {
		tensor.Scale(z, 1/float32(s.model.ScalingFactor()))
	}

	x, err := s.model.Decode(z)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	out, err := encodePNG(x)
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}

	id := "dec_" + uuid.NewString()
	s.log.Info("decoded latent",
		"id", id,
		"image", [2]int{x.H, x.W},
		"duration", s.clock().Sub(start))
	return c.JSON(http.StatusOK, DecodeResponse{ID: id, Image: out})
}

func (s *Server) handleReconstruct(c *echo.Context) error {
	start := s.clock()
	req, err := decodeJSON[ReconstructRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	x, err := s.imageTensor(req.Image)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}

	recon, _, _, err := s.model.Forward(x)
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}
	out, err := encodePNG(recon)
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}

	id := "rec_" + uuid.NewString()
	s.log.Info("reconstructed image",
		"id", id,
		"image", [2]int{recon.H, recon.W},
		"duration", s.clock().Sub(start))
	return c.JSON(http.StatusOK, ReconstructResponse{ID: id, Image: out})
}

func (s *Server) handleModelInfo(c *echo.Context) error {
	cfg := s.model.Config()
	return c.JSON(http.StatusOK, ModelInfo{
		InChannels:              cfg.InChannels,
		LatentChannels:          cfg.LatentChannels,
		SpatialCompressionRatio: s.model.SpatialCompressionRatio(),
		ScalingFactor:           s.model.ScalingFactor(),
		NumParameters:           s.model.NumParameters(),
		Version:                 version.String(),
	})
}

// imageTensor decodes a base64 image and resizes it so the encoder's
// divisibility requirement always holds.
func (s *Server) imageTensor(b64 string) (*tensor.Tensor, error) {
	img, err := decodeImage(b64)
	if err != nil {
		return nil, err
	}
	img = imaging.ResizeToMultiple(img, s.model.SpatialCompressionRatio())
	return imaging.ToTensor(img), nil
}

func encodePNG(t *tensor.Tensor) (string, error) {
	img, err := imaging.ToImage(t)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
