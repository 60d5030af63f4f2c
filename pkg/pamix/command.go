package pamix

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/thoas/go-funk"

	"github.com/MixyLabs/pamix/pkg/pamix/device"
)

// Verb is what a command does
type Verb string

const (
	VerbIncrease Verb = "increase"
	VerbDecrease Verb = "decrease"
	VerbSet      Verb = "set"
	VerbMute     Verb = "mute"
	VerbGet      Verb = "get"
	VerbList     Verb = "list"
	VerbInfo     Verb = "info"
	VerbWatch    Verb = "watch"
)

var verbAliases = map[string]Verb{
	"increase":    VerbIncrease,
	"inc":         VerbIncrease,
	"up":          VerbIncrease,
	"decrease":    VerbDecrease,
	"dec":         VerbDecrease,
	"down":        VerbDecrease,
	"set":         VerbSet,
	"mute":        VerbMute,
	"toggle-mute": VerbMute,
	"get":         VerbGet,
	"print":       VerbGet,
	"list":        VerbList,
	"info":        VerbInfo,
	"watch":       VerbWatch,
}

// verbs that take a percentage argument
var amountVerbs = []string{string(VerbIncrease), string(VerbDecrease), string(VerbSet)}

// ErrUsage is returned for command lines that can't be understood
var ErrUsage = errors.New("usage")

// Selector picks the device a command acts on
type Selector struct {
	Class device.Class
	Index *uint32
	Name  string
}

// Command is one parsed invocation
type Command struct {
	Verb   Verb
	Amount uint8
	Boost  bool
	Target Selector
}

// KnownVerbs returns every accepted verb spelling, sorted
func KnownVerbs() []string {
	verbs := funk.Keys(verbAliases).([]string)
	sort.Strings(verbs)

	return verbs
}

// ParseCommand turns the positional arguments into a command acting on target
func ParseCommand(args []string, target Selector, boost bool) (Command, error) {
	if len(args) == 0 {
		return Command{}, fmt.Errorf("%w: missing verb, want one of %s", ErrUsage, strings.Join(KnownVerbs(), ", "))
	}

	verb, ok := verbAliases[strings.ToLower(args[0])]
	if !ok {
		return Command{}, fmt.Errorf("%w: unknown verb %q, want one of %s", ErrUsage, args[0], strings.Join(KnownVerbs(), ", "))
	}

	cmd := Command{
		Verb:   verb,
		Boost:  boost,
		Target: target,
	}

	rest := args[1:]

	if !funk.ContainsString(amountVerbs, string(verb)) {
		if len(rest) > 0 {
			return Command{}, fmt.Errorf("%w: %s takes no arguments, got %q", ErrUsage, verb, strings.Join(rest, " "))
		}

		return cmd, nil
	}

	if len(rest) != 1 {
		return Command{}, fmt.Errorf("%w: %s takes exactly one percentage", ErrUsage, verb)
	}

	amount, err := parseAmount(rest[0])
	if err != nil {
		return Command{}, fmt.Errorf("%w: %s: %v", ErrUsage, verb, err)
	}

	cmd.Amount = amount

	return cmd, nil
}

// parseAmount accepts "5" as well as "5%"
func parseAmount(s string) (uint8, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")

	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid percentage %q, want 0-255", s)
	}

	return uint8(n), nil
}

// Run executes cmd against the server
func (p *Pamix) Run(ctx context.Context, cmd Command) error {
	defer p.recoverFromPanic()

	p.logger.Debugw("Running command", "verb", cmd.Verb, "amount", cmd.Amount, "class", cmd.Target.Class)

	if cmd.Verb == VerbWatch {
		return p.watch(ctx, cmd.Target)
	}

	if err := p.sync(ctx); err != nil {
		return fmt.Errorf("sync with server: %w", err)
	}

	switch cmd.Verb {
	case VerbList:
		return p.printDevices(cmd.Target.Class)
	case VerbInfo:
		return p.printInfo(cmd.Target)
	}

	h, err := p.resolve(cmd.Target)
	if err != nil {
		return err
	}

	d := p.directory.Device(h)

	switch cmd.Verb {
	case VerbGet:
		return d.PrintVolume(p.out)
	case VerbIncrease:
		err = d.IncreaseVolume(cmd.Amount, cmd.Boost)
	case VerbDecrease:
		err = d.DecreaseVolume(cmd.Amount)
	case VerbSet:
		err = d.SetVolume(cmd.Amount, cmd.Boost)
	case VerbMute:
		err = d.ToggleMute(p.muteStore)
	default:
		return fmt.Errorf("%w: unhandled verb %s", ErrUsage, cmd.Verb)
	}

	if err != nil {
		p.logger.Warnw("Failed to adjust volume", "device", d, "verb", cmd.Verb, "error", err)
		return fmt.Errorf("%s %s: %w", cmd.Verb, d, err)
	}

	return p.push(ctx, h, cmd.Verb)
}

// push sends the device's new volume to the server, re-syncs and prints the
// server's view of the result
func (p *Pamix) push(ctx context.Context, h device.Handle, verb Verb) error {
	d := p.directory.Device(h)
	class, index := d.Class, d.Index
	muted := d.Volume().IsMuted()

	if err := p.driver.SetVolume(ctx, class, index, d.Volume()); err != nil {
		return fmt.Errorf("push %s volume: %w", d, err)
	}

	if verb == VerbMute {
		if muted {
			p.notifier.Notify("Muted", d.Description)
		} else {
			// the record outlives a failed push so the unmute can be retried
			if err := p.muteStore.Drop(d.Key()); err != nil {
				p.logger.Warnw("Failed to drop mute record", "device", d, "error", err)
			}

			p.notifier.Notify("Unmuted", d.Description)
		}
	}

	if err := p.sync(ctx); err != nil {
		return fmt.Errorf("re-sync after update: %w", err)
	}

	h, err := p.directory.Get(class, &index, "")
	if err != nil {
		p.logger.Warnw("Device went away after update", "class", class, "index", index, "error", err)
		return fmt.Errorf("re-read %s %d: %w", class, index, err)
	}

	return p.directory.Device(h).PrintVolume(p.out)
}

// resolve picks the target device. Without an index or name the configured
// preferred device wins over the server default, as long as it exists.
func (p *Pamix) resolve(sel Selector) (device.Handle, error) {
	name := sel.Name

	if sel.Index == nil && name == "" {
		preferred := p.preferredName(sel.Class)
		if preferred != "" {
			h, err := p.directory.Get(sel.Class, nil, preferred)
			if err == nil {
				return h, nil
			}

			p.logger.Warnw("Preferred device not found, using server default",
				"class", sel.Class, "name", preferred, "error", err)
		}
	}

	h, err := p.directory.Get(sel.Class, sel.Index, name)
	if err != nil {
		p.logger.Warnw("Failed to resolve device", "class", sel.Class, "name", name, "error", err)
		return device.Handle{}, fmt.Errorf("resolve %s: %w", sel.Class, err)
	}

	return h, nil
}

func (p *Pamix) preferredName(class device.Class) string {
	if class == device.Source {
		return p.currConf().DefaultSource
	}

	return p.currConf().DefaultSink
}
