package volume

import (
	"github.com/cuemby/datavol/pkg/platform"
	"github.com/cuemby/datavol/pkg/types"
)

// kindCapability describes how a volume kind is recognized and presented
type kindCapability struct {
	defaultLabel string
	matches      func(internal bool, info platform.DeviceInfo) bool
}

// kindOrder is the precedence used when a device carries several signals
var kindOrder = []types.VolumeKind{
	types.VolumeKindInternal,
	types.VolumeKindExternalRemovable,
	types.VolumeKindExternalEmulated,
	types.VolumeKindExternalOther,
}

var kindTable = map[types.VolumeKind]kindCapability{
	types.VolumeKindInternal: {
		defaultLabel: "Internal storage",
		matches: func(internal bool, _ platform.DeviceInfo) bool {
			return internal
		},
	},
	types.VolumeKindExternalRemovable: {
		defaultLabel: "Removable storage",
		matches: func(_ bool, info platform.DeviceInfo) bool {
			return info.Removable
		},
	},
	types.VolumeKindExternalEmulated: {
		defaultLabel: "Shared storage",
		matches: func(_ bool, info platform.DeviceInfo) bool {
			return info.Emulated
		},
	},
	types.VolumeKindExternalOther: {
		defaultLabel: "External storage",
		matches: func(bool, platform.DeviceInfo) bool {
			return true
		},
	},
}

func classify(internal bool, info platform.DeviceInfo) types.VolumeKind {
	for _, kind := range kindOrder {
		if kindTable[kind].matches(internal, info) {
			return kind
		}
	}
	return types.VolumeKindExternalOther
}

// DefaultLabel returns the label shown for a volume whose device has no description
func DefaultLabel(kind types.VolumeKind) string {
	if c, ok := kindTable[kind]; ok {
		return c.defaultLabel
	}
	return kindTable[types.VolumeKindExternalOther].defaultLabel
}
