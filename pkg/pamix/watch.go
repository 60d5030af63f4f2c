package pamix

import (
	"context"
	"errors"
	"fmt"

	"github.com/MixyLabs/pamix/pkg/pamix/device"
	"github.com/MixyLabs/pamix/pkg/pamix/util"
)

func (p *Pamix) setupInterruptHandler(cancel context.CancelFunc) {
	interruptChannel := util.SetupCloseHandler()

	go func() {
		signal := <-interruptChannel
		p.logger.Debugw("Interrupted", "signal", signal)
		cancel()
		p.signalStop()
	}()
}

// watch prints the target's volume every time the server reports a change to
// it, until interrupted or ctx ends
func (p *Pamix) watch(ctx context.Context, sel Selector) error {
	logger := p.logger.Named("watch")
	logger.Info("Watch loop starting")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.setupInterruptHandler(cancel)

	events, err := p.driver.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to server events: %w", err)
	}

	configReloaded := p.configMan.SubscribeToChanges()
	go p.configMan.WatchConfigFileChanges()
	defer p.configMan.StopWatchingConfigFile()

	last := ""
	report := func() error {
		if err := p.sync(ctx); err != nil {
			return fmt.Errorf("sync with server: %w", err)
		}

		h, err := p.resolve(sel)
		if errors.Is(err, device.ErrNoDevices) || errors.Is(err, device.ErrNameNotFound) ||
			errors.Is(err, device.ErrIndexNotFound) || errors.Is(err, device.ErrDefaultNotFound) {
			// the device may come back later
			logger.Infow("Target not available", "error", err)
			return nil
		} else if err != nil {
			return err
		}

		d := p.directory.Device(h)
		current := d.Key() + " " + describeVolume(d)
		if current == last {
			return nil
		}
		last = current

		return d.PrintVolume(p.out)
	}

	if err := report(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Context done, terminating")
			return nil

		case <-p.stopChannel:
			logger.Debug("Stop channel signaled, terminating")
			return nil

		case <-configReloaded:
			logger.Info("Detected config reload, re-applying limits")
			p.applyConfig()

		case event, ok := <-events:
			if !ok {
				logger.Debug("Event stream closed, terminating")
				return nil
			}

			logger.Debugw("Device event", "kind", event.Kind, "class", event.Class, "index", event.Index)

			if event.Class != sel.Class {
				continue
			}

			if err := report(); err != nil {
				logger.Warnw("Failed to report volume after event", "error", err)
				return err
			}
		}
	}
}
