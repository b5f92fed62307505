// Command portal is the Tarviz client portal for the terminal: sign in,
// follow the content pipeline and talk to the assistant.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hugh/tarviz/internal/apiclient"
	"github.com/hugh/tarviz/internal/authclient"
	"github.com/hugh/tarviz/internal/authflow"
	"github.com/hugh/tarviz/internal/session"
	"github.com/hugh/tarviz/pkg/config"
	"github.com/hugh/tarviz/pkg/crypto"
	"github.com/hugh/tarviz/pkg/util"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	apiURL      string
	sessionFile string
	verbose     bool
)

// portal holds what every command needs once flags and config are read.
type portal struct {
	cfg    *config.Config
	logger *slog.Logger
	store  session.Store
	auth   *authclient.Client
	api    *apiclient.Client
	in     *prompter
	out    io.Writer
}

var app *portal

var rootCmd = &cobra.Command{
	Use:           "portal",
	Short:         "Tarviz Digimart client portal",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "keygen" {
			return nil
		}
		p, err := newPortal(cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		app = p
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "API base URL (default PORTAL_API_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&sessionFile, "session", "", "session file (default PORTAL_SESSION_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log requests to stderr")

	rootCmd.AddCommand(keygenCmd)
	registerAuthCommands(rootCmd)
	registerBoardCommands(rootCmd)
	registerBillingCommands(rootCmd)
	registerAssistantCommands(rootCmd)
}

func newPortal(stdin io.Reader, stdout io.Writer) (*portal, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if apiURL != "" {
		cfg.Portal.APIBaseURL = apiURL
	}
	if sessionFile != "" {
		cfg.Portal.SessionFile = sessionFile
	}

	logger := util.NewCLILogger(cfg.Server.Env, verbose)

	if cfg.Encryption.Key == "" {
		return nil, errors.New("ENCRYPTION_KEY is not set; run `portal keygen` and add the key to .env")
	}
	enc, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		return nil, fmt.Errorf("invalid ENCRYPTION_KEY: %w", err)
	}

	path := cfg.Portal.SessionFile
	if !filepath.IsAbs(path) {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path)
		}
	}
	store := session.NewFileStore(path, enc)

	authClient := authclient.New(cfg.Portal.APIBaseURL,
		authclient.WithTimeout(cfg.Portal.RequestTimeout),
		authclient.WithLogger(logger),
	)
	api := apiclient.New(cfg.Portal.APIBaseURL, store,
		apiclient.WithTimeout(cfg.Portal.RequestTimeout),
		apiclient.WithLogger(logger),
		apiclient.WithRefresher(authClient),
	)

	return &portal{
		cfg:    cfg,
		logger: logger,
		store:  store,
		auth:   authClient,
		api:    api,
		in:     newPrompter(stdin, stdout),
		out:    stdout,
	}, nil
}

// newFlow starts the sign-in screens. On a terminal a spinner line shows
// while a request is in flight.
func (p *portal) newFlow() *authflow.Flow {
	opts := authflow.Options{
		DemoMode:      p.cfg.Portal.DemoMode,
		AdminSentinel: p.cfg.Portal.AdminSentinel,
		Logger:        p.logger,
	}
	if p.in.tty {
		loading := false
		opts.OnChange = func(s authflow.Snapshot) {
			switch {
			case s.Request.Loading && !loading:
				fmt.Fprint(p.out, mutedStyle.Render("Contacting server..."))
			case !s.Request.Loading && loading:
				fmt.Fprint(p.out, "\r\033[K")
			}
			loading = s.Request.Loading
		}
	}
	return authflow.New(p.auth, p.store, opts)
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Print a new ENCRYPTION_KEY for sealing the session file",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := crypto.GenerateKey()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ENCRYPTION_KEY=%s\n", key)
		return nil
	},
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
