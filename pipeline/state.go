package pipeline

// VertexInputRate selects per-vertex or per-instance stepping of a
// vertex buffer binding.
type VertexInputRate uint8

// Vertex input rates.
const (
	RateVertex VertexInputRate = iota
	RateInstance
)

// VertexInputDescription describes one vertex attribute's buffer
// binding, as supplied by the API layer: where in which bound buffer
// the attribute lives and how it is formatted.
type VertexInputDescription struct {
	Location  uint32
	Binding   uint32
	Offset    uint32
	Stride    uint32
	DataFmt   uint32 // hardware data format code
	NumFmt    uint32 // hardware numeric format code
	InputRate VertexInputRate
	Divisor   uint32 // instance divisor when InputRate is RateInstance
}

// GsOutLocInfo identifies one geometry-shader output across the output
// streams. It is comparable and serves as the map key for output
// location remapping and transform-feedback info.
type GsOutLocInfo struct {
	Location uint32
	BuiltIn  bool
	StreamID uint32
}

// XfbOutInfo describes one output's transform-feedback target.
type XfbOutInfo struct {
	Buffer      uint32
	Offset      uint32
	ExtraOffset uint32
	Is16Bit     bool // ring lane holds a 16-bit value in its low half
}

// GsBuiltInUsage records which built-in outputs the geometry shader
// declared. Clip and cull distances record the array length.
type GsBuiltInUsage struct {
	Position      bool
	PointSize     bool
	ClipDistance  uint32
	CullDistance  uint32
	PrimitiveID   bool
	Layer         bool
	ViewportIndex bool
}

// GsCalcFactor holds ring sizing derived during GS resource layout.
type GsCalcFactor struct {
	// EsGsLdsSize is the LDS footprint, in dwords, of the ES-GS ring
	// that precedes GS-VS data when the GS runs on-chip.
	EsGsLdsSize uint32

	// GsOnChipLdsSize is the total on-chip LDS allocation in dwords.
	GsOnChipLdsSize uint32
}

// GsInOutUsage is the geometry-specific part of InOutUsage.
type GsInOutUsage struct {
	// OutLocCount is the number of generic output locations per stream;
	// a non-zero count marks the stream active.
	OutLocCount [MaxGsStreams]uint32

	// GenericOutByteSizes maps, per stream, an output location to the
	// byte size of each of its four components. Populated by the copy
	// shader's collect phase.
	GenericOutByteSizes [MaxGsStreams]map[uint32][4]uint32

	// XfbOutsInfo maps outputs to their transform-feedback targets.
	XfbOutsInfo map[GsOutLocInfo]XfbOutInfo

	// RasterStream is the stream feeding rasterization.
	RasterStream uint32

	CalcFactor GsCalcFactor
}

// InOutUsage records a stage's input/output interface.
type InOutUsage struct {
	// OutputLocMap remaps a declared output (location, built-in flag,
	// stream) to its packed location.
	OutputLocMap map[GsOutLocInfo]uint32

	// BuiltInOutputLocMap remaps built-in outputs to packed locations.
	BuiltInOutputLocMap map[BuiltInKind]uint32

	// EnableXfb is set when transform feedback captures outputs.
	EnableXfb bool

	GS GsInOutUsage
}

// ResourceUsage aggregates a stage's resource and interface usage.
type ResourceUsage struct {
	InOutUsage   InOutUsage
	BuiltInUsage GsBuiltInUsage
}

func newResourceUsage() *ResourceUsage {
	u := &ResourceUsage{}
	u.InOutUsage.OutputLocMap = make(map[GsOutLocInfo]uint32)
	u.InOutUsage.BuiltInOutputLocMap = make(map[BuiltInKind]uint32)
	u.InOutUsage.GS.XfbOutsInfo = make(map[GsOutLocInfo]XfbOutInfo)
	return u
}

// GsUserDataUsage records which copy-shader SGPR slots carry which
// user data; the assignment differs between hardware generations.
type GsUserDataUsage struct {
	CopyShaderStreamOutTable uint32
	CopyShaderEsGsLdsSize    uint32
}

// InterfaceData holds per-stage register-interface assignments.
type InterfaceData struct {
	UserDataUsage struct {
		GS GsUserDataUsage
	}
}

// GeometryShaderMode mirrors the geometry shader's declared mode.
type GeometryShaderMode struct {
	OutputVertices uint32
}

// ShaderModes aggregates per-stage shader execution modes.
type ShaderModes struct {
	Geometry GeometryShaderMode
}

// NggControl holds primitive-shader (NGG) configuration.
type NggControl struct {
	EnableNgg bool
}

// InputAssemblyState holds input-assembly configuration.
type InputAssemblyState struct {
	EnableMultiView bool
}

// State is the read-only configuration handle a generator is
// constructed with. It answers the structural queries the generators
// need and carries the registration points they write back to.
type State struct {
	target        TargetInfo
	vertexInputs  []VertexInputDescription
	resourceUsage [StageCount]*ResourceUsage
	interfaceData [StageCount]*InterfaceData
	shaderModes   ShaderModes
	ngg           NggControl
	inputAssembly InputAssemblyState
	gsOnChip      bool
	stageMask     uint32
}

// NewState creates pipeline state for the given target.
func NewState(target TargetInfo) *State {
	return &State{target: target}
}

// TargetInfo returns the target GPU description.
func (s *State) TargetInfo() TargetInfo { return s.target }

// SetVertexInputDescriptions installs the vertex attribute table.
func (s *State) SetVertexInputDescriptions(descs []VertexInputDescription) {
	s.vertexInputs = descs
}

// FindVertexInputDescription looks up a vertex attribute by location,
// returning nil when the location has no bound attribute.
func (s *State) FindVertexInputDescription(location uint32) *VertexInputDescription {
	for i := range s.vertexInputs {
		if s.vertexInputs[i].Location == location {
			return &s.vertexInputs[i]
		}
	}
	return nil
}

// ShaderResourceUsage returns the stage's resource usage, creating an
// empty record on first access.
func (s *State) ShaderResourceUsage(stage ShaderStage) *ResourceUsage {
	if s.resourceUsage[stage] == nil {
		s.resourceUsage[stage] = newResourceUsage()
	}
	return s.resourceUsage[stage]
}

// ShaderInterfaceData returns the stage's interface data, creating an
// empty record on first access.
func (s *State) ShaderInterfaceData(stage ShaderStage) *InterfaceData {
	if s.interfaceData[stage] == nil {
		s.interfaceData[stage] = &InterfaceData{}
	}
	return s.interfaceData[stage]
}

// ShaderModes returns the shader execution modes.
func (s *State) ShaderModes() *ShaderModes { return &s.shaderModes }

// NggControl returns the primitive-shader configuration.
func (s *State) NggControl() *NggControl { return &s.ngg }

// InputAssemblyState returns the input-assembly configuration.
func (s *State) InputAssemblyState() *InputAssemblyState { return &s.inputAssembly }

// IsGsOnChip reports whether GS-VS ring data lives in on-chip LDS.
func (s *State) IsGsOnChip() bool { return s.gsOnChip }

// SetGsOnChip selects on-chip or off-chip GS-VS ring placement.
func (s *State) SetGsOnChip(onChip bool) { s.gsOnChip = onChip }

// StageMask returns the active-stage bit mask (1 << stage per stage).
func (s *State) StageMask() uint32 { return s.stageMask }

// SetStageMask replaces the active-stage bit mask.
func (s *State) SetStageMask(mask uint32) { s.stageMask = mask }

// HasStage reports whether a stage is in the active-stage mask.
func (s *State) HasStage(stage ShaderStage) bool {
	return s.stageMask&(1<<uint32(stage)) != 0
}
