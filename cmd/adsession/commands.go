package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/innoad/adsession"
	"github.com/innoad/adsession/metrics/export/prometheus"
	"github.com/innoad/adsession/middleware"
)

func (a *app) manager(ctx context.Context, sinks ...adsession.AuditSink) (*adsession.Manager, error) {
	b := adsession.New().WithConfig(a.cfg).WithLogger(a.logger)
	for _, s := range sinks {
		b.WithAuditSink(s)
	}
	return b.BuildContext(ctx)
}

func newLoginCmd(a *app) *cobra.Command {
	var (
		user         string
		passwordFile string
		remember     bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Long: `Log in against the platform and store the session.

With --remember (the default) the session is written to the persistent
storage backend; without it the session lives only in this process.

Examples:
  adsession login --user ana
  adsession login --user ana --password-file ./pass.txt`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if user == "" {
				return errors.New("--user is required")
			}
			pw, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), passwordFile)
			if err != nil {
				return err
			}

			m, err := a.manager(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()

			sess, err := m.Login(cmd.Context(), adsession.Credentials{Identifier: user, Password: pw}, remember)
			if err != nil {
				if msg := adsession.Message(err); msg != "" {
					return fmt.Errorf("login failed: %s", msg)
				}
				return fmt.Errorf("login failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s, %s session, expires %s)\n",
				sess.User.Name(), sess.User.Role.Name, sess.Mode, sess.ExpiresAt.Local().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "username or email")
	cmd.Flags().StringVar(&passwordFile, "password-file", "", "read the password from a file (\"-\" for stdin)")
	cmd.Flags().BoolVar(&remember, "remember", true, "store the session persistently")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.manager(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()

			if err := m.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func newRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Renew the stored access token now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.manager(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()

			sess, err := m.Refresh(cmd.Context())
			if err != nil {
				return fmt.Errorf("refresh failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token renewed, expires %s\n", sess.ExpiresAt.Local().Format(time.RFC3339))
			return nil
		},
	}
}

type statusView struct {
	Status      string     `json:"status"`
	Mode        string     `json:"mode,omitempty"`
	Persistence string     `json:"persistence,omitempty"`
	User        string     `json:"user,omitempty"`
	Role        string     `json:"role,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Permissions []string   `json:"permissions,omitempty"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
	Fingerprint string     `json:"fingerprint,omitempty"`
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the stored session as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.manager(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()
			return writeJSON(cmd.OutOrStdout(), describe(m))
		},
	}
}

func describe(m *adsession.Manager) statusView {
	sess := m.Current()
	view := statusView{Status: sess.Status.String(), Fingerprint: m.Fingerprint()}
	if st := m.LockoutState(); !st.LockedUntil.IsZero() {
		until := st.LockedUntil
		view.LockedUntil = &until
	}
	if !sess.IsAuthenticated() {
		return view
	}
	exp := sess.ExpiresAt
	view.Mode = sess.Mode.String()
	view.Persistence = sess.Persistence.String()
	view.ExpiresAt = &exp
	view.Permissions = m.Permissions()
	if sess.User != nil {
		view.User = sess.User.Name()
		view.Role = sess.User.Role.Name
	}
	return view
}

func newWatchCmd(a *app) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the stored session alive and log state changes",
		Long: `Restore the stored session and keep it renewed until interrupted.

State changes are logged and audit events are written to stderr as JSON
lines. With --metrics-addr a Prometheus endpoint is served at /metrics.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			m, err := a.manager(ctx, adsession.NewJSONWriterSink(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer m.Close()

			cancel := m.Subscribe(func(s adsession.Session) {
				a.logger.Info("session state", "status", s.Status.String(), "expires_at", s.ExpiresAt)
			})
			defer cancel()

			if metricsAddr != "" {
				srv := &http.Server{
					Addr:              metricsAddr,
					Handler:           metricsMux(m),
					ReadHeaderTimeout: 5 * time.Second,
				}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.logger.Error("metrics server", "err", err)
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
				a.logger.Info("serving metrics", "addr", metricsAddr)
			}

			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

func metricsMux(m *adsession.Manager) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", prometheus.NewCollector(m).Handler())
	return mux
}

func newCanCmd(a *app) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "can PERMISSION...",
		Short: "Exit 0 when the session holds any of the permissions",
		Long: `Check the stored session against a list of permissions, any of which
suffices. With --path the route guard decision for that path is printed
instead, honoring the configured route prefixes.

Examples:
  adsession can VER_CAMPANA
  adsession can --path /campanas/nueva CREAR_CAMPANA`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.manager(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()

			if path != "" {
				d := middleware.NewGuard(m, a.cfg.Routes).Check(path, args...)
				fmt.Fprintln(cmd.OutOrStdout(), d.Outcome)
				if !d.Allowed() {
					return errDenied
				}
				return nil
			}

			if len(args) == 0 {
				return errors.New("at least one permission is required")
			}
			if !m.HasAnyPermission(args...) {
				fmt.Fprintln(cmd.OutOrStdout(), "denied")
				return errDenied
			}
			fmt.Fprintln(cmd.OutOrStdout(), "allowed")
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "evaluate the route guard for this path")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
