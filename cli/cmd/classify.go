package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/radar/classify"
	"github.com/pithecene-io/radar/cli/render"
	"github.com/pithecene-io/radar/iox"
	"github.com/pithecene-io/radar/ipc"
	"github.com/pithecene-io/radar/types"
)

// ClassifyCommand returns the classify command, which runs recorded daemon
// output through the framer and classifier without connecting.
func ClassifyCommand() *cli.Command {
	flags := append(OutputFlags(),
		&cli.StringFlag{
			Name:    "input",
			Aliases: []string{"i"},
			Usage:   "Read daemon output from this file (default: stdin)",
		},
		&cli.StringFlag{
			Name:  "min-severity",
			Usage: "Only print events at or above: INFO, WARNING, CRITICAL",
		},
	)

	return &cli.Command{
		Name:   "classify",
		Usage:  "Classify recorded daemon lines",
		Flags:  flags,
		Action: classifyAction,
	}
}

func classifyAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	minSeverity := types.SeverityInfo
	if name := c.String("min-severity"); name != "" {
		sev, ok := types.ParseSeverity(name)
		if !ok {
			return cli.Exit(fmt.Sprintf("invalid min severity %q", name), exitConfigError)
		}
		minSeverity = sev
	}

	in := io.Reader(os.Stdin)
	if path := c.String("input"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cli.Exit(fmt.Sprintf("cannot open input: %v", err), exitConfigError)
		}
		defer iox.DiscardClose(f)
		in = f
	}

	return classifyStream(in, minSeverity, time.Now, r.RenderSignal)
}

// classifyStream frames in, classifies every non-blank line, and emits
// events at or above minSeverity. A trailing line without terminator is
// classified too, since recorded files often lack the final newline.
func classifyStream(
	in io.Reader,
	minSeverity types.Severity,
	now func() time.Time,
	emit func(types.Signal) error,
) error {
	framer := ipc.NewLineFramer(ipc.DefaultMaxPendingSize)
	buf := make([]byte, 32*1024)

	handle := func(frames []ipc.RawFrame) error {
		for _, frame := range frames {
			if ipc.IsBlank(frame) {
				continue
			}
			text := ipc.Text(frame)
			// Replays of the raw string stream carry lifecycle lines.
			if classify.IsLifecycle(text) {
				continue
			}
			ev := classify.Classify(text, now())
			if !ev.Severity.AtLeast(minSeverity) {
				continue
			}
			if err := emit(types.EventSignal(ev)); err != nil {
				return err
			}
		}
		return nil
	}

	for {
		n, readErr := in.Read(buf)
		if n > 0 {
			frames, err := framer.Feed(buf[:n])
			if err != nil && !ipc.IsOverflow(err) {
				return err
			}
			if err := handle(frames); err != nil {
				return err
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return fmt.Errorf("read input: %w", readErr)
		}
	}

	if framer.Pending() > 0 {
		frames, _ := framer.Feed([]byte{ipc.Terminator})
		return handle(frames)
	}
	return nil
}
