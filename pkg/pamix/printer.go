package pamix

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/MixyLabs/pamix/pkg/pamix/device"
)

const (
	maxDescriptionWidth = 40
	columnGap           = "  "
	defaultMarker       = "(default)"
)

// printDevices writes a table of every device of class
func (p *Pamix) printDevices(class device.Class) error {
	handles := p.directory.Sinks()
	if class == device.Source {
		handles = p.directory.Sources()
	}

	if len(handles) == 0 {
		_, err := fmt.Fprintf(p.out, "No %ss found\n", class)
		return err
	}

	rows := [][]string{{"", "INDEX", "NAME", "DESCRIPTION", "VOLUME"}}

	for _, h := range handles {
		d := p.directory.Device(h)

		marker := ""
		if p.directory.IsDefault(h) {
			marker = defaultMarker
		}

		rows = append(rows, []string{
			marker,
			fmt.Sprintf("%d", d.Index),
			d.Name,
			runewidth.Truncate(d.Description, maxDescriptionWidth, "…"),
			describeVolume(d),
		})
	}

	return writeTable(p.out, rows)
}

func describeVolume(d *device.Device) string {
	pct, err := d.Percent()
	if err != nil {
		return "?"
	}

	s := fmt.Sprintf("%d%%", pct)
	if d.Muted {
		s += " (muted)"
	}

	return s
}

// writeTable pads every column to its widest cell, measured in terminal cells
func writeTable(w io.Writer, rows [][]string) error {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if cw := runewidth.StringWidth(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			if i == len(row)-1 {
				cells[i] = cell
				continue
			}
			cells[i] = runewidth.FillRight(cell, widths[i])
		}

		line := strings.TrimRight(strings.Join(cells, columnGap), " ")
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	return nil
}

// printInfo writes the server snapshot and details about the target device
func (p *Pamix) printInfo(sel Selector) error {
	info := p.serverInfo

	rows := [][]string{
		{"Server:", fmt.Sprintf("%s %s", info.PackageName, info.PackageVersion)},
		{"User:", fmt.Sprintf("%s@%s", info.Username, info.Hostname)},
		{"Default sink:", info.DefaultSinkName},
		{"Default source:", info.DefaultSourceName},
		{"Devices:", fmt.Sprintf("%d sinks, %d sources", p.directory.SinkCount(), p.directory.SourceCount())},
	}

	if p.version != "" {
		rows = append([][]string{{"Client:", p.version}}, rows...)
	}

	h, err := p.resolve(sel)
	switch {
	case errors.Is(err, device.ErrNoDevices), errors.Is(err, device.ErrDefaultNotFound):
		rows = append(rows, []string{"Target:", fmt.Sprintf("none (%v)", err)})
	case err != nil:
		return err
	default:
		d := p.directory.Device(h)

		rows = append(rows,
			[]string{"Target:", d.String()},
			[]string{"Description:", d.Description},
			[]string{"Channels:", d.Volume().String()},
			[]string{"Base volume:", d.BaseVolume().DBString()},
		)

		record, ok, err := p.muteStore.Peek(d.Key())
		if err != nil {
			p.logger.Warnw("Failed to read mute record", "device", d, "error", err)
			record = fmt.Sprintf("unreadable (%v)", err)
		} else if !ok {
			record = "none"
		}

		rows = append(rows, []string{"Mute record:", record})
	}

	return writeTable(p.out, rows)
}
