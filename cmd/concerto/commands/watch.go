package commands

import (
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/syssam/concerto/compiler/load"
	"github.com/syssam/concerto/introspect"
)

func (a *app) newWatchCommand() *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch [paths...]",
		Short: "Revalidate model files whenever they change",
		Long: `Validate the model files, then keep watching them and validate again
after every change until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := a.paths(args)
			if err != nil {
				return err
			}
			w, err := load.NewWatcher(paths,
				load.WithDebounce(debounce),
				load.WithManagerFactory(newManager),
			)
			if err != nil {
				return err
			}
			defer w.Close()

			out := &lockedWriter{w: cmd.OutOrStdout()}
			onReload := func(mm *introspect.ModelManager, err error) {
				if err != nil {
					pterm.Error.WithWriter(out).Println(err)
					return
				}
				if err := report(out, mm); err != nil {
					pterm.Error.WithWriter(out).Println(err)
				}
			}
			w.OnReload(onReload)
			onReload(w.Reload())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			pterm.Info.WithWriter(out).Printfln("watching %d paths, press Ctrl+C to stop", len(paths))
			w.Run(ctx)
			return nil
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 250*time.Millisecond, "quiet period before a reload")
	return cmd
}

// lockedWriter serialises writes from reload callbacks.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
