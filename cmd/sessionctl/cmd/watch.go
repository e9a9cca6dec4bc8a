package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jrsteele09/go-auth-session/session"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print session transitions until interrupted",
	Long: `Resolve the cached session, then print every transition: sign in or
sign out from another sessionctl process, token refreshes, and profile changes
picked up by the periodic refresh.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Duration("refresh-every", 0, "also refetch the session at this interval (0 disables)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	unsubscribe := a.manager.Subscribe(func(st session.AuthState) {
		if st.Loading {
			return
		}
		fmt.Fprintf(out, "--- %s\n", time.Now().Format(time.TimeOnly))
		printState(out, st)
	})
	defer unsubscribe()

	if err := a.backend.WatchStorage(ctx, a.store); err != nil {
		return err
	}
	a.start(ctx)

	if every, _ := cmd.Flags().GetDuration("refresh-every"); every > 0 {
		go refreshLoop(ctx, a, every)
	}

	<-ctx.Done()
	return nil
}

func refreshLoop(ctx context.Context, a *app, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.manager.RefreshUserData(ctx)
		}
	}
}
