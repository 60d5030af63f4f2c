package pamix

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/MixyLabs/pamix/pkg/pamix/util"
)

const (
	crashlogFilename        = "pamix-crash-%s.log"
	crashlogTimestampFormat = "2006.01.02-15.04.05"

	crashMessage = `-----------------------------------------------------------------
                        pamix crashlog
-----------------------------------------------------------------
Unfortunately, pamix has crashed.
To help diagnose the issue, a crashlog has been generated.
Please consider sharing this file with developers to help improve pamix.
-----------------------------------------------------------------
Time: %s
Panic occurred: %s
Stack trace:
%s
-----------------------------------------------------------------
`
)

// crashlogDir is where crash logs go: the state dir once config is loaded
func (p *Pamix) crashlogDir() string {
	if dir := p.currConf().StateDir; dir != "" {
		return dir
	}

	return util.StateDir(appName)
}

func (p *Pamix) recoverFromPanic() {
	r := recover()

	if r == nil {
		return
	}

	crashlogPath, err := writeCrashlog(p.crashlogDir(), time.Now(), r, debug.Stack())
	if err != nil {
		panic(err)
	}

	p.logger.Errorw("Encountered and logged panic, crashing",
		"crashlogPath", crashlogPath,
		"error", r)

	p.notifier.Notify("Unexpected crash occurred...",
		fmt.Sprintf("More details in %s", crashlogPath))

	p.signalStop()
	p.logger.Errorw("Quitting", "exitCode", 1)
	os.Exit(1)
}

func writeCrashlog(dir string, now time.Time, r interface{}, stack []byte) (string, error) {
	if err := util.EnsureDirExists(dir); err != nil {
		return "", fmt.Errorf("ensure crashlog dir exists: %w", err)
	}

	timestamp := now.Format(crashlogTimestampFormat)
	crashlog := fmt.Sprintf(crashMessage, timestamp, r, stack)
	crashlogPath := filepath.Join(dir, fmt.Sprintf(crashlogFilename, timestamp))

	if err := os.WriteFile(crashlogPath, []byte(crashlog), 0o600); err != nil {
		return "", fmt.Errorf("can't even write the crashlog file contents: %w", err)
	}

	return crashlogPath, nil
}
