package core

import (
	"sync"

	"github.com/valter-silva-au/projectcolab/pkg/models"
)

// ZoomController holds the resolution a view is pinned to. The pinned value
// only changes through Set or Auto; data changes never re-run the auto-fit.
type ZoomController struct {
	mu   sync.Mutex
	cfg  models.TimelineConfig
	res  models.Resolution
	auto bool
}

// NewZoomController returns a controller pinned to initial, or to days when
// initial is not a known resolution.
func NewZoomController(initial models.Resolution, cfg models.TimelineConfig) *ZoomController {
	if !initial.Valid() {
		initial = models.ResolutionDays
	}
	return &ZoomController{cfg: cfg, res: initial}
}

// Resolution returns the pinned resolution.
func (z *ZoomController) Resolution() models.Resolution {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.res
}

// IsAuto reports whether the pinned resolution came from an auto-fit.
func (z *ZoomController) IsAuto() bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.auto
}

// Set pins res.
func (z *ZoomController) Set(res models.Resolution) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.res = res
	z.auto = false
}

// Auto fits rng into a container of containerPx, after taking away the task
// table, and pins the result.
func (z *ZoomController) Auto(rng DateRange, containerPx int) models.Resolution {
	z.mu.Lock()
	defer z.mu.Unlock()
	viewport := containerPx - z.cfg.TableWidth
	if viewport < 0 {
		viewport = 0
	}
	z.res = AutoFit(rng, viewport, z.cfg)
	z.auto = true
	return z.res
}

// Step moves the pinned resolution delta levels coarser (positive) or finer
// (negative), clamped at both ends.
func (z *ZoomController) Step(delta int) models.Resolution {
	z.mu.Lock()
	defer z.mu.Unlock()
	i := 0
	for idx, r := range models.Resolutions {
		if r == z.res {
			i = idx
		}
	}
	i += delta
	if i < 0 {
		i = 0
	}
	if i >= len(models.Resolutions) {
		i = len(models.Resolutions) - 1
	}
	z.res = models.Resolutions[i]
	z.auto = false
	return z.res
}

// Apply handles a zoom command: a resolution name, or "auto".
func (z *ZoomController) Apply(cmd string, rng DateRange, containerPx int) (models.Resolution, error) {
	if cmd == models.ZoomAuto {
		return z.Auto(rng, containerPx), nil
	}
	res, err := models.ParseResolution(cmd)
	if err != nil {
		return "", err
	}
	z.Set(res)
	return res, nil
}
