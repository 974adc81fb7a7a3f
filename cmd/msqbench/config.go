package main

import (
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/kernelbin/msgqueue/internal/cooker"
	"github.com/kernelbin/msgqueue/internal/qlog"
)

// Tuning is the hot-reloadable subset of msqbench's knobs: the cooker
// tunables plus the benchmark's own traffic-shape parameters. Everything
// else (config path, metrics address) is fixed at process start via flags.
type Tuning struct {
	DoubleClickIntervalMS int `yaml:"double_click_interval_ms"`
	DoubleClickSlop       int `yaml:"double_click_slop"`
	HoverSize             int `yaml:"hover_size"`
	HoverIntervalMS       int `yaml:"hover_interval_ms"`
	ClickLockThresholdMS  int `yaml:"click_lock_threshold_ms"`
	HungThresholdMS       int `yaml:"hung_threshold_ms"`

	Threads       int `yaml:"threads"`
	PostsPerTick  int `yaml:"posts_per_tick"`
	SendsPerTick  int `yaml:"sends_per_tick"`
	TickMS        int `yaml:"tick_ms"`
}

// DefaultTuning mirrors cooker.DefaultConfig with a modest traffic shape
// suitable for a first run against a cold queue.
func DefaultTuning() Tuning {
	dc := cooker.DefaultConfig()
	return Tuning{
		DoubleClickIntervalMS: int(dc.DoubleClickInterval / time.Millisecond),
		DoubleClickSlop:       int(dc.DoubleClickSlop),
		HoverSize:             int(dc.HoverSize),
		HoverIntervalMS:       int(dc.HoverIntervalMS),
		ClickLockThresholdMS:  int(dc.ClickLockThreshold / time.Millisecond),
		HungThresholdMS:       5000,
		Threads:               4,
		PostsPerTick:          8,
		SendsPerTick:          2,
		TickMS:                50,
	}
}

func (tn Tuning) cookerConfig() cooker.Config {
	return cooker.Config{
		DoubleClickInterval: time.Duration(tn.DoubleClickIntervalMS) * time.Millisecond,
		DoubleClickSlop:     int32(tn.DoubleClickSlop),
		HoverSize:           int32(tn.HoverSize),
		HoverIntervalMS:     uint32(tn.HoverIntervalMS),
		ClickLockThreshold:  time.Duration(tn.ClickLockThresholdMS) * time.Millisecond,
	}
}

// loadTuning reads path, falling back to DefaultTuning if it doesn't exist
// yet (and writing the defaults out so the file is there to hot-edit).
func loadTuning(path string) (Tuning, error) {
	tn := DefaultTuning()
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if writeErr := saveTuning(path, tn); writeErr != nil {
				qlog.Logger().Warn().Err(writeErr).Str("path", path).Msg("could not seed default tuning file")
			}
			return tn, nil
		}
		return tn, err
	}
	if err := yaml.Unmarshal(raw, &tn); err != nil {
		return tn, err
	}
	return tn, nil
}

func saveTuning(path string, tn Tuning) error {
	raw, err := yaml.Marshal(tn)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

// watchTuning calls onChange with the freshly reloaded Tuning every time
// path is written. Errors decoding a partially-written file are logged and
// ignored; the previous tuning stays in effect until a valid rewrite lands.
func watchTuning(path string, onChange func(Tuning)) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				tn, err := loadTuning(path)
				if err != nil {
					qlog.Logger().Warn().Err(err).Str("path", path).Msg("ignoring unparsable tuning reload")
					continue
				}
				onChange(tn)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				qlog.Logger().Warn().Err(err).Msg("tuning watcher error")
			}
		}
	}()
	return watcher, nil
}
