package main

import (
	"context"
	"fmt"
	"time"

	"github.com/unkn0wn-root/bakecache"
	"github.com/unkn0wn-root/bakecache/bakestore"
	"github.com/unkn0wn-root/bakecache/cloudlayer"
	"github.com/unkn0wn-root/bakecache/gpu"
	"github.com/unkn0wn-root/bakecache/internal/config"
	"github.com/unkn0wn-root/bakecache/internal/report"
)

// simulate renders cfg.Frames.Count frames with n renderers over one cache.
func simulate(ctx context.Context, cfg config.Config, n int, store *bakestore.Store, log bakecache.Logger, hooks bakecache.Hooks) (report.Report, error) {
	step, err := cfg.FrameStep()
	if err != nil {
		return report.Report{}, err
	}

	dev := gpu.NewSoftDevice(cfg.Device.BudgetMB << 20)
	pre, err := cloudlayer.NewPrecomputer(dev, cloudlayer.PrecomputerOptions{
		Store:  store,
		Logger: log,
		Hooks:  hooks,
	})
	if err != nil {
		return report.Report{}, err
	}
	cache, err := cloudlayer.NewCache(pre, bakecache.Options[cloudlayer.Params, *cloudlayer.Data]{
		Logger:       log,
		Hooks:        hooks,
		Synchronized: cfg.Device.Synchronized,
	})
	if err != nil {
		return report.Report{}, err
	}

	renderers := make([]*cloudlayer.Renderer, n)
	for i := range renderers {
		renderers[i] = cloudlayer.NewRenderer(cache, log)
	}

	rep := report.Report{Renderers: n}
	var cmd gpu.Recorder
	start := time.Now()

frames:
	for frame := 0; frame < cfg.Frames.Count; frame++ {
		select {
		case <-ctx.Done():
			log.Warn("simulation interrupted", bakecache.Fields{"frame": frame})
			break frames
		default:
		}

		sun := cfg.Sun.At(frame)
		cam := cloudlayer.Camera{
			Time:             (time.Duration(frame) * step).Seconds(),
			AnimateMaterials: cfg.Frames.Animate,
		}
		for i, r := range renderers {
			s := cfg.SettingsFor(i)
			changed, err := r.Update(s, sun)
			if err != nil {
				return rep, fmt.Errorf("frame %d renderer %d: %w", frame, i, err)
			}
			if changed {
				rep.Rebinds++
			}
			if sun != nil && s.CastShadows() {
				if _, ok, err := r.SunLightCookie(s, *sun, cam); err != nil {
					return rep, fmt.Errorf("frame %d renderer %d: %w", frame, i, err)
				} else if ok {
					if err := r.RenderSunLightCookie(s, *sun, cam, &cmd); err != nil {
						return rep, fmt.Errorf("frame %d renderer %d: %w", frame, i, err)
					}
				}
			}
			if _, _, err := r.RenderClouds(s, sun, cam, &cmd); err != nil {
				return rep, fmt.Errorf("frame %d renderer %d: %w", frame, i, err)
			}
		}
		rep.Dispatches += len(cmd.Dispatches())
		cmd.Reset()
		rep.Frames++
	}

	rep.Cache = cache.Stats()
	log.Info("simulation done", bakecache.Fields{
		"frames":    rep.Frames,
		"renderers": n,
		"live":      rep.Cache.Live,
		"elapsed":   time.Since(start).String(),
	})

	for _, r := range renderers {
		r.Cleanup()
	}
	if err := cache.Close(ctx); err != nil {
		return rep, err
	}
	rep.Device = report.Device{
		Allocated: dev.Allocated(),
		Released:  dev.Released(),
		Live:      dev.Live(),
		UsedBytes: dev.UsedBytes(),
		Pooled:    pre.Pooled(),
	}
	return rep, nil
}
