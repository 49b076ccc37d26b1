// internal/ipc/header.go

package ipc

// Target selects the global or module message space (primary bit 30).
type Target uint8

const (
	TargetGlobal Target = iota
	TargetModule
)

// Direction is request or reply (primary bit 29).
type Direction uint8

const (
	DirRequest Direction = iota
	DirReply
)

// GlobalType is the 5 bit type of a global message.
type GlobalType uint8

const (
	GlbBootConfig             GlobalType = 0
	GlbROMControl             GlobalType = 1
	GlbIPCGatewayCmd          GlobalType = 2
	GlbStartRTOSEDFTask       GlobalType = 3
	GlbStopRTOSEDFTask        GlobalType = 4
	GlbPerfMeasurementsCmd    GlobalType = 13
	GlbChainDMA               GlobalType = 14
	GlbLoadMultipleModules    GlobalType = 15
	GlbUnloadMultipleModules  GlobalType = 16
	GlbCreatePipeline         GlobalType = 17
	GlbDeletePipeline         GlobalType = 18
	GlbSetPipelineState       GlobalType = 19
	GlbGetPipelineState       GlobalType = 20
	GlbGetPipelineContextSize GlobalType = 21
	GlbSavePipeline           GlobalType = 22
	GlbRestorePipeline        GlobalType = 23
	GlbLoadLibrary            GlobalType = 24
	GlbInternalMessage        GlobalType = 26
	GlbNotification           GlobalType = 27
	GlbMaxIXCMessageType      GlobalType = 31
)

// ModuleType is the 5 bit type of a module message.
type ModuleType uint8

const (
	ModInitInstance ModuleType = iota
	ModConfigGet
	ModConfigSet
	ModLargeConfigGet
	ModLargeConfigSet
	ModBind
	ModUnbind
	ModSetDx
	ModSetD0ix
	ModEnterModuleRestore
	ModExitModuleRestore
	ModDeleteInstance
)

// PipelineState is the state carried by SET_PIPELINE_STATE.
type PipelineState uint16

const (
	PipeUnused PipelineState = iota
	PipeInvalid
	PipeReset
	PipePaused
	PipeRunning
	PipeEOS
)

func (s PipelineState) String() string {
	switch s {
	case PipeUnused:
		return "unused"
	case PipeInvalid:
		return "invalid"
	case PipeReset:
		return "reset"
	case PipePaused:
		return "paused"
	case PipeRunning:
		return "running"
	case PipeEOS:
		return "eos"
	default:
		return "unknown"
	}
}

const (
	targetShift = 30
	dirShift    = 29
	typeShift   = 24
	typeMask    = 0x1F000000

	pipeInstanceShift = 16
	pipeInstanceMask  = 0xFF0000
	pipePriorityShift = 11
	pipePriorityMask  = 0xF800
	pipeMemSizeMask   = 0x7FF
	pipeExtLPMask     = 1 << 0

	pipeStateIDShift = 16
	pipeStateIDMask  = 0xFF0000
	pipeStateMask    = 0xFFFF

	modInstanceShift = 16
	modInstanceMask  = 0xFF0000
	modIDMask        = 0xFFFF

	extMsgSizeMask    = 0xFFFFF
	extParamIDShift   = 20
	extParamIDMask    = 0xFF00000
	extLastBlockMask  = 1 << 28
	extFirstBlockMask = 1 << 29
)

// Message is one host request: the primary control word, the extension
// word and an optional payload.
type Message struct {
	Primary   uint32
	Extension uint32
	Payload   []byte
}

func (m Message) Target() Target       { return Target(m.Primary >> targetShift & 1) }
func (m Message) Direction() Direction { return Direction(m.Primary >> dirShift & 1) }
func (m Message) Type() uint8          { return uint8((m.Primary & typeMask) >> typeShift) }

func header(target Target, typ uint8) uint32 {
	return uint32(target)<<targetShift | uint32(typ)<<typeShift&typeMask
}

// CreatePipeline is the body of GLB_CREATE_PIPELINE.
type CreatePipeline struct {
	Instance uint8
	Priority uint8 // 5 bits
	MemSize  uint16
	LowPower bool
}

func (m Message) CreatePipeline() CreatePipeline {
	return CreatePipeline{
		Instance: uint8((m.Primary & pipeInstanceMask) >> pipeInstanceShift),
		Priority: uint8((m.Primary & pipePriorityMask) >> pipePriorityShift),
		MemSize:  uint16(m.Primary & pipeMemSizeMask),
		LowPower: m.Extension&pipeExtLPMask != 0,
	}
}

// Encode builds the request message.
func (c CreatePipeline) Encode() Message {
	m := Message{
		Primary: header(TargetGlobal, uint8(GlbCreatePipeline)) |
			uint32(c.Instance)<<pipeInstanceShift |
			uint32(c.Priority)<<pipePriorityShift&pipePriorityMask |
			uint32(c.MemSize)&pipeMemSizeMask,
	}
	if c.LowPower {
		m.Extension |= pipeExtLPMask
	}
	return m
}

// DeletePipeline is the body of GLB_DELETE_PIPELINE.
type DeletePipeline struct {
	Instance uint8
}

func (m Message) DeletePipeline() DeletePipeline {
	return DeletePipeline{Instance: uint8((m.Primary & pipeInstanceMask) >> pipeInstanceShift)}
}

func (d DeletePipeline) Encode() Message {
	return Message{
		Primary: header(TargetGlobal, uint8(GlbDeletePipeline)) | uint32(d.Instance)<<pipeInstanceShift,
	}
}

// SetPipelineState is the body of GLB_SET_PIPELINE_STATE.
type SetPipelineState struct {
	Instance uint8
	State    PipelineState
}

func (m Message) SetPipelineState() SetPipelineState {
	return SetPipelineState{
		Instance: uint8((m.Primary & pipeStateIDMask) >> pipeStateIDShift),
		State:    PipelineState(m.Primary & pipeStateMask),
	}
}

func (s SetPipelineState) Encode() Message {
	return Message{
		Primary: header(TargetGlobal, uint8(GlbSetPipelineState)) |
			uint32(s.Instance)<<pipeStateIDShift |
			uint32(s.State)&pipeStateMask,
	}
}

// LargeConfig is one block of MOD_LARGE_CONFIG_SET. For the first block
// Size is the total transfer size, for later blocks it is the offset.
type LargeConfig struct {
	ModuleID uint16
	Instance uint8
	Size     uint32 // 20 bits
	ParamID  uint8
	First    bool
	Last     bool
	Data     []byte
}

func (m Message) LargeConfig() LargeConfig {
	return LargeConfig{
		ModuleID: uint16(m.Primary & modIDMask),
		Instance: uint8((m.Primary & modInstanceMask) >> modInstanceShift),
		Size:     m.Extension & extMsgSizeMask,
		ParamID:  uint8((m.Extension & extParamIDMask) >> extParamIDShift),
		First:    m.Extension&extFirstBlockMask != 0,
		Last:     m.Extension&extLastBlockMask != 0,
		Data:     m.Payload,
	}
}

func (l LargeConfig) Encode() Message {
	m := Message{
		Primary: header(TargetModule, uint8(ModLargeConfigSet)) |
			uint32(l.Instance)<<modInstanceShift |
			uint32(l.ModuleID)&modIDMask,
		Extension: l.Size&extMsgSizeMask |
			uint32(l.ParamID)<<extParamIDShift&extParamIDMask,
		Payload: l.Data,
	}
	if l.First {
		m.Extension |= extFirstBlockMask
	}
	if l.Last {
		m.Extension |= extLastBlockMask
	}
	return m
}
