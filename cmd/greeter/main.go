package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-greeter"
	"github.com/goliatone/go-greeter/config"
	"github.com/goliatone/go-greeter/server"
	"github.com/goliatone/go-print"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var envFiles []string

var rootCmd = &cobra.Command{
	Use:   "greeter",
	Short: "Session aware greeting page",
	Long: `greeter serves a page that greets the signed in user, offers a way to
sign in when nobody is, and follows sign-in and sign-out from every tab of
the browser.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create an account unless one with the same email exists",
	RunE:  runSeed,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "env files loaded before the process environment")

	seedCmd.Flags().String("email", "", "account email")
	seedCmd.Flags().String("password", "", "account password")
	seedCmd.Flags().String("name", "", "display name, empty for none")
	_ = seedCmd.MarkFlagRequired("email")
	_ = seedCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(serveCmd, seedCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(ctx context.Context) (*App, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, err
	}

	if cfg.IsDebug() {
		fmt.Println("============")
		fmt.Println(print.MaybePrettyJSON(cfg.Redacted()))
		fmt.Println("============")
	}

	app := &App{
		config: cfg,
		routes: server.DefaultRoutes(),
	}

	if err := WithPersistence(ctx, app); err != nil {
		return nil, err
	}

	return app, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if app.config.HasSeed() {
		if err := WithSeed(ctx, app, app.config.SeedEmail, app.config.SeedPassword, app.config.GetSeedName()); err != nil {
			return err
		}
	}

	if err := WithAuthenticator(ctx, app); err != nil {
		return err
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() {
		errc <- app.srv.Listen(app.config.GetAddr())
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	app.Logger("app").Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return app.srv.Shutdown(shutdownCtx)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	name, _ := cmd.Flags().GetString("name")

	var displayName *string
	if name != "" {
		displayName = greeter.StringPtr(name)
	}

	return WithSeed(ctx, app, email, password, displayName)
}
