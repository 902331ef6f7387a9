package guest

// ShaderStage identifies which guest shader stage references a binding.
type ShaderStage uint8

const (
	// StageVertex is the vertex shader stage.
	StageVertex ShaderStage = iota

	// StagePixel is the pixel shader stage.
	StagePixel
)

// String returns a human-readable name for the stage.
func (s ShaderStage) String() string {
	if s == StageVertex {
		return "vertex"
	}
	return "pixel"
}

// TextureBinding describes one texture reference a shader makes. The
// register-file decoder resolves the fetch constant into full texture and
// sampler descriptors before handing bindings to the residency manager;
// vertex and pixel stages referencing the same fetch constant produce
// bindings with identical descriptors.
type TextureBinding struct {
	// FetchConstant is the fetch-constant slot index (0-31). It is the
	// binding's identity: each slot is resolved at most once per draw.
	FetchConstant uint32

	// Stage is the referencing shader stage.
	Stage ShaderStage

	// Swizzle is the channel swizzle the shader requests for this fetch.
	Swizzle Swizzle

	// Texture and Sampler are the decoded descriptors for the slot.
	Texture TextureInfo
	Sampler SamplerInfo
}
