package config

import (
	"context"
	"os"
	"time"
)

// WatchNavigation reloads navigation.yaml on change and calls onUpdate with the latest config.
// It performs an initial load before entering the watch loop.
func WatchNavigation(ctx context.Context, path string, interval time.Duration, onUpdate func(*NavigationConfig)) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	cfg, err := LoadNavigationConfig(path)
	if err != nil {
		return err
	}
	if onUpdate != nil {
		onUpdate(cfg)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	lastMod := info.ModTime()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				info, err := os.Stat(path)
				if err != nil {
					continue
				}
				if !info.ModTime().After(lastMod) {
					continue
				}
				cfg, err := LoadNavigationConfig(path)
				if err != nil {
					continue // keep serving the last good links
				}
				lastMod = info.ModTime()
				if onUpdate != nil {
					onUpdate(cfg)
				}
			}
		}
	}()

	return nil
}
