package volume

import (
	"os"
	"strings"

	"github.com/cuemby/datavol/pkg/fsutil"
	"github.com/cuemby/datavol/pkg/log"
	"github.com/cuemby/datavol/pkg/metrics"
	"github.com/cuemby/datavol/pkg/platform"
	"github.com/cuemby/datavol/pkg/types"
	"github.com/docker/go-units"
	"github.com/rs/zerolog"
)

// Prober validates a single candidate directory and turns it into a Volume
type Prober struct {
	platform platform.Platform
	logger   zerolog.Logger
}

// NewProber creates a prober backed by the given platform
func NewProber(p platform.Platform) *Prober {
	return &Prober{
		platform: p,
		logger:   log.WithComponent("probe"),
	}
}

// Probe validates candidate. It reports false when the candidate is excluded;
// the reason is logged and counted, never returned.
func (p *Prober) Probe(candidate string, internal bool, configured string) (types.Volume, bool) {
	vol, info, reason := p.probe(candidate, internal, configured)

	logger := p.volumeLogger(vol.Path)
	event := logger.Debug()
	if reason != "" {
		event = logger.Info()
	}
	event = event.
		Str("candidate", candidate).
		Bool("internal", internal).
		Str("state", string(info.State)).
		Bool("emulated", info.Emulated).
		Bool("removable", info.Removable).
		Str("device", info.Device)

	if reason != "" {
		metrics.ExclusionsTotal.WithLabelValues(string(reason)).Inc()
		event.Str("reason", string(reason)).Msg("Storage candidate excluded")
		return types.Volume{}, false
	}

	event.
		Str("kind", string(vol.Kind)).
		Str("label", vol.Label).
		Bool("read_only", vol.ReadOnly).
		Bool("current", vol.Current).
		Str("free", units.BytesSize(float64(vol.FreeBytes))).
		Str("total", units.BytesSize(float64(vol.TotalBytes))).
		Msg("Storage candidate accepted")
	return vol, true
}

func (p *Prober) volumeLogger(path string) zerolog.Logger {
	return log.WithVolume(path).With().Str("component", "probe").Logger()
}

func (p *Prober) probe(candidate string, internal bool, configured string) (types.Volume, platform.DeviceInfo, types.ExclusionReason) {
	var info platform.DeviceInfo

	if strings.TrimSpace(candidate) == "" {
		return types.Volume{}, info, types.ExclusionNullPath
	}
	path, err := fsutil.Canonicalize(candidate)
	if err != nil {
		p.logger.Debug().Err(err).Str("candidate", candidate).Msg("Cannot resolve candidate")
		return types.Volume{}, info, types.ExclusionUnresolvable
	}

	vol := types.Volume{
		Path:    path,
		Current: configured != "" && fsutil.SamePath(path, configured),
	}

	if !internal {
		info, err = p.platform.Inspect(path)
		if err != nil {
			logger := p.volumeLogger(path)
			logger.Debug().Err(err).Msg("No device signals for candidate")
			info = platform.DeviceInfo{}
		}
		switch info.State {
		case types.MountStateUnmounted:
			return vol, info, types.ExclusionNotMounted
		case types.MountStateMountedReadOnly:
			vol.ReadOnly = true
			if !vol.Current {
				return vol, info, types.ExclusionReadOnly
			}
		}
	}

	st, err := os.Stat(path)
	if err != nil {
		return vol, info, types.ExclusionNotExists
	}
	if !st.IsDir() {
		return vol, info, types.ExclusionNotDirectory
	}

	if !p.platform.Writable(path) {
		vol.ReadOnly = true
		if !vol.Current {
			return vol, info, types.ExclusionNotWritable
		}
	}

	usage, err := p.platform.Usage(path)
	if err != nil {
		logger := p.volumeLogger(path)
		logger.Debug().Err(err).Msg("Cannot read filesystem usage")
		return vol, info, types.ExclusionUsageFailed
	}
	vol.TotalBytes = usage.TotalBytes
	vol.FreeBytes = usage.FreeBytes

	vol.Kind = classify(internal, info)
	vol.Label = strings.TrimSpace(info.Label)
	if vol.Label == "" {
		vol.Label = DefaultLabel(vol.Kind)
	}

	return vol, info, ""
}
