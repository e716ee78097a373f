package volume

import (
	"time"

	"github.com/cuemby/datavol/pkg/log"
	"github.com/cuemby/datavol/pkg/metrics"
	"github.com/cuemby/datavol/pkg/platform"
	"github.com/cuemby/datavol/pkg/types"
	"github.com/rs/zerolog"
)

// sameDeviceTolerance is the exclusive bound on how far free space may drift
// between two views of one device probed one after the other
const sameDeviceTolerance = 1 << 20

// Registry builds snapshots of the usable volumes on the host
type Registry struct {
	platform platform.Platform
	prober   *Prober
	logger   zerolog.Logger
}

// NewRegistry creates a registry probing through p
func NewRegistry(p platform.Platform) *Registry {
	return &Registry{
		platform: p,
		prober:   NewProber(p),
		logger:   log.WithComponent("registry"),
	}
}

// Rebuild probes every candidate and returns a fresh snapshot. External
// candidates come first and the internal one last. It returns
// types.ErrNoStorage when nothing was accepted.
func (r *Registry) Rebuild(configured string) (types.Snapshot, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.RebuildDuration)

	var volumes []types.Volume
	seen := make(map[string]bool)

	externals, err := r.platform.ExternalDirs()
	if err != nil {
		r.logger.Warn().Err(err).Msg("Failed to list external storage")
	}
	for _, dir := range externals {
		vol, ok := r.prober.Probe(dir, false, configured)
		if !ok {
			continue
		}
		if seen[vol.Path] {
			r.exclude(vol, types.ExclusionDuplicate)
			continue
		}
		seen[vol.Path] = true
		volumes = append(volumes, vol)
	}

	internal, err := r.platform.InternalDir()
	if err != nil {
		r.logger.Warn().Err(err).Msg("Failed to resolve internal storage")
	} else if vol, ok := r.prober.Probe(internal, true, configured); ok {
		switch {
		case seen[vol.Path]:
			r.exclude(vol, types.ExclusionDuplicate)
		case backsEmulated(vol, volumes):
			if vol.Current {
				vol.BacksEmulated = true
				volumes = append(volumes, vol)
			} else {
				r.exclude(vol, types.ExclusionBacksEmulated)
			}
		default:
			volumes = append(volumes, vol)
		}
	}

	snapshot := types.Snapshot{
		Volumes:      volumes,
		CurrentIndex: types.NoCurrent,
		BuiltAt:      time.Now(),
	}
	for i, vol := range volumes {
		if vol.Current {
			snapshot.CurrentIndex = i
			break
		}
	}

	r.record(snapshot)

	if len(volumes) == 0 {
		metrics.RebuildsTotal.WithLabelValues("no_storage").Inc()
		r.logger.Error().Msg("No usable storage volume found")
		return snapshot, types.ErrNoStorage
	}
	metrics.RebuildsTotal.WithLabelValues("success").Inc()

	if configured != "" && !snapshot.HasCurrent() {
		r.logger.Warn().
			Str("configured_path", configured).
			Msg("Configured storage path matches no available volume")
	}

	r.logger.Debug().
		Int("volumes", len(volumes)).
		Int("current_index", snapshot.CurrentIndex).
		Dur("duration", timer.Duration()).
		Msg("Storage registry rebuilt")

	return snapshot, nil
}

func (r *Registry) exclude(vol types.Volume, reason types.ExclusionReason) {
	metrics.ExclusionsTotal.WithLabelValues(string(reason)).Inc()
	logger := log.WithVolume(vol.Path).With().Str("component", "registry").Logger()
	logger.Info().
		Str("reason", string(reason)).
		Msg("Storage candidate excluded")
}

func (r *Registry) record(s types.Snapshot) {
	metrics.VolumesTotal.Reset()
	for _, vol := range s.Volumes {
		metrics.VolumesTotal.WithLabelValues(string(vol.Kind)).Inc()
	}
	if cur, ok := s.Current(); ok {
		metrics.CurrentVolumeFreeBytes.Set(float64(cur.FreeBytes))
	} else {
		metrics.CurrentVolumeFreeBytes.Set(0)
	}
}

// backsEmulated reports whether internal is the device behind an accepted
// emulated volume: equal capacity and free space less than the tolerance
// apart
func backsEmulated(internal types.Volume, volumes []types.Volume) bool {
	for _, vol := range volumes {
		if vol.Kind != types.VolumeKindExternalEmulated {
			continue
		}
		if vol.TotalBytes == internal.TotalBytes && absDiff(vol.FreeBytes, internal.FreeBytes) < sameDeviceTolerance {
			return true
		}
	}
	return false
}

func absDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}

// BiggestVolume returns the volume with the most free space. The first
// volume wins ties. It reports false for an empty snapshot.
func BiggestVolume(s types.Snapshot) (types.Volume, bool) {
	if len(s.Volumes) == 0 {
		return types.Volume{}, false
	}
	best := s.Volumes[0]
	for _, vol := range s.Volumes[1:] {
		if vol.FreeBytes > best.FreeBytes {
			best = vol
		}
	}
	return best, true
}
