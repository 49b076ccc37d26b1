package ipc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeCreatePipeline(t *testing.T) {
	// type 17, instance 3, priority 5, mem size 0x40, low power
	m := Message{Primary: 17<<24 | 3<<16 | 5<<11 | 0x40, Extension: 1}
	assert.Equal(t, TargetGlobal, m.Target())
	assert.Equal(t, DirRequest, m.Direction())
	assert.Equal(t, uint8(GlbCreatePipeline), m.Type())
	assert.Equal(t, CreatePipeline{Instance: 3, Priority: 5, MemSize: 0x40, LowPower: true}, m.CreatePipeline())
}

func TestEncodeRoundTrips(t *testing.T) {
	cp := CreatePipeline{Instance: 0xFE, Priority: 31, MemSize: 0x7FF}
	assert.Equal(t, cp, cp.Encode().CreatePipeline())

	st := SetPipelineState{Instance: 9, State: PipeRunning}
	m := st.Encode()
	assert.Equal(t, uint8(GlbSetPipelineState), m.Type())
	assert.Equal(t, st, m.SetPipelineState())

	lc := LargeConfig{ModuleID: 0x1234, Instance: 2, Size: 0xFFFFF, ParamID: 0xAB, First: true, Data: []byte{1}}
	m = lc.Encode()
	assert.Equal(t, TargetModule, m.Target())
	assert.Equal(t, uint8(ModLargeConfigSet), m.Type())
	assert.Equal(t, lc, m.LargeConfig())
}

func TestDirectionAndTargetBits(t *testing.T) {
	m := Message{Primary: 1<<30 | 1<<29 | 4<<24}
	assert.Equal(t, TargetModule, m.Target())
	assert.Equal(t, DirReply, m.Direction())
	assert.Equal(t, uint8(ModLargeConfigSet), m.Type())
}
