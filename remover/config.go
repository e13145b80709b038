package remover

import (
	"time"

	"github.com/lambda-feedback/bgstrip/internal/execution"
)

type Config struct {
	// Backend selects the removal implementation
	Backend Backend `conf:"backend" validate:"omitempty,oneof=builtin process rembg photoroom lambda"`

	// Timeout bounds a single removal, 0 disables the limit
	Timeout time.Duration `conf:"timeout" validate:"gte=0"`

	// WarmupSchedule is a cron spec that periodically pushes a tiny
	// image through the remover, empty disables warmup
	WarmupSchedule string `conf:"warmup_schedule"`

	Builtin   BuiltinConfig    `conf:"builtin"`
	Process   execution.Config `conf:"process"`
	Rembg     RembgConfig      `conf:"rembg"`
	PhotoRoom PhotoRoomConfig  `conf:"photoroom"`
	Lambda    LambdaConfig     `conf:"lambda"`
}

type BuiltinConfig struct {
	// Tolerance is the max per channel distance to the
	// sampled background colour
	Tolerance int `conf:"tolerance" validate:"gte=0,lte=255"`

	// Feather is the radius of the box blur applied to the mask edge
	Feather int `conf:"feather" validate:"gte=0,lte=64"`

	// MaskSize caps the longest side of the image the mask is
	// computed on, 0 keys at full resolution
	MaskSize int `conf:"mask_size" validate:"gte=0"`
}

type RembgConfig struct {
	// URL is the base url of a rembg server
	URL string `conf:"url" validate:"omitempty,url"`
}

type PhotoRoomConfig struct {
	// URL is the segment endpoint
	URL string `conf:"url" validate:"omitempty,url"`

	// APIKey is sent in the x-api-key header
	APIKey string `conf:"api_key"`
}

type LambdaConfig struct {
	// Function is the name or ARN of the function to invoke
	Function string `conf:"function"`

	// Qualifier is an optional version or alias
	Qualifier string `conf:"qualifier"`

	// Region overrides the region from the AWS environment
	Region string `conf:"region"`
}

// DefaultConfig holds the default values under the remover namespace.
var DefaultConfig = map[string]any{
	"backend":              string(BuiltinBackend),
	"timeout":              "60s",
	"builtin.tolerance":    24,
	"builtin.feather":      1,
	"builtin.mask_size":    1024,
	"process.interface":    "stdio",
	"process.persistent":   true,
	"process.send.timeout": "60s",
	"process.stop.timeout": "5s",
	"photoroom.url":        "https://sdk.photoroom.com/v1/segment",
}
