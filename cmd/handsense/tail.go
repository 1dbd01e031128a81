package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/banshee-data/handsense/internal/dashboard"
	"github.com/banshee-data/handsense/internal/session"
	"github.com/banshee-data/handsense/internal/telemetry"
)

var (
	nameStyle   = lipgloss.NewStyle().Bold(true).Width(8)
	statusStyle = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#e60000"))
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print forwarded samples, coloured by force, until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		s, err := newSession(cfg)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return tailSession(ctx, s, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(tailCmd)
}

func renderUpdate(u telemetry.ParsedUpdate) string {
	s := u.Sample
	reading := lipgloss.NewStyle().
		Foreground(lipgloss.Color(dashboard.ForceHex(s.ForceG))).
		Render(fmt.Sprintf("x=%7.2f y=%7.2f z=%7.2f force=%7.1fg", s.XMM, s.YMM, s.ZMM, s.ForceG))
	return nameStyle.Render(u.Index.Name()) + " " + reading
}

func renderStatus(st telemetry.Status) string {
	if st.Kind.IsError() {
		return errorStyle.Render(st.Message)
	}
	return statusStyle.Render(st.Message)
}

// tailSession runs s and writes every update and status it publishes until
// the session ends.
func tailSession(ctx context.Context, s *session.Session, w io.Writer) error {
	sub := s.Hub().Subscribe()

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	updates, statuses := sub.Updates, sub.Statuses
	for updates != nil || statuses != nil {
		select {
		case u, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			fmt.Fprintln(w, renderUpdate(u))
		case st, ok := <-statuses:
			if !ok {
				statuses = nil
				continue
			}
			fmt.Fprintln(w, renderStatus(st))
		}
	}
	return <-errCh
}
