package api

// LatentPayload carries a float32 NCHW tensor over the wire: the shape plus
// the raw little-endian values, base64 encoded.
type LatentPayload struct {
	Shape []int  `json:"shape"`
	Data  string `json:"data"`
}

// EncodeRequest submits a base64 PNG or JPEG for encoding. When ApplyScaling
// is set the latent is multiplied by the model's scaling factor.
type EncodeRequest struct {
	Image        string `json:"image"`
	ApplyScaling bool   `json:"apply_scaling"`
}

type EncodeResponse struct {
	ID            string        `json:"id"`
	Latent        LatentPayload `json:"latent"`
	ScalingFactor float64       `json:"scaling_factor"`
}

// DecodeRequest submits a latent for decoding. When ApplyScaling is set the
// latent is divided by the model's scaling factor first.
type DecodeRequest struct {
	Latent       LatentPayload `json:"latent"`
	ApplyScaling bool          `json:"apply_scaling"`
}

type DecodeResponse struct {
	ID    string `json:"id"`
	Image string `json:"image"`
}

// ReconstructRequest runs a full encode/decode round trip.
type ReconstructRequest struct {
	Image string `json:"image"`
}

type ReconstructResponse struct {
	ID    string `json:"id"`
	Image string `json:"image"`
}

// ModelInfo describes the loaded model.
type ModelInfo struct {
	InChannels              int     `json:"in_channels"`
	LatentChannels          int     `json:"latent_channels"`
	SpatialCompressionRatio int     `json:"spatial_compression_ratio"`
	ScalingFactor           float64 `json:"scaling_factor"`
	NumParameters           int     `json:"num_parameters"`
	Version                 string  `json:"version"`
}

// ResponseError is the error body shape shared by all endpoints.
type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}
