package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"review-scraper/models"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Process exit codes
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitPartial = 2
)

type options struct {
	company     string
	startDate   string
	endDate     string
	output      string
	configPath  string
	listingURL  string
	static      bool
	headless    bool
	databaseURL string
	spreadsheet string
	credentials string
	chatID      int64
	stopAtStart bool
	logLevel    string
}

var opts options

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "review-scraper",
	Short: "Collect G2 product reviews published within a date window.",
	Long: `review-scraper finds a product on G2, walks its paginated review listing and
writes every review published between --start_date and --end_date to a JSON file.

Reviews whose date cannot be read are kept with a null date.`,
	Example:       `  review-scraper -c Slack -s 2024-01-01 -e 2024-01-31`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return SetLogLevel(opts.logLevel)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), &opts, cmd.Flags().Changed("headless"))
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	code := ExitCodeFor(err)
	if err != nil {
		log.Error(err)
	}
	os.Exit(code)
}

func init() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	flags := rootCmd.Flags()
	flags.StringVarP(&opts.company, "company", "c", "", "Product name to search for (required)")
	flags.StringVarP(&opts.startDate, "start_date", "s", "", "First day of the window, YYYY-MM-DD (required)")
	flags.StringVarP(&opts.endDate, "end_date", "e", "", "Last day of the window, YYYY-MM-DD (default today)")
	flags.StringVarP(&opts.output, "output", "o", "", "Output JSON file (default g2_reviews_<company>.json)")
	flags.StringVar(&opts.configPath, "config", "", "YAML file overriding the default selectors and timings")
	flags.StringVar(&opts.listingURL, "listing-url", "", "Start from this review listing instead of searching for the company")
	flags.BoolVar(&opts.static, "static", false, "Fetch listing pages over plain HTTP instead of the browser")
	flags.BoolVar(&opts.headless, "headless", true, "Run the browser without a window")
	flags.StringVar(&opts.databaseURL, "database-url", "", "Postgres connection string for storing the run (or DATABASE_URL, DB_* variables)")
	flags.StringVar(&opts.spreadsheet, "spreadsheet", "", "Google Sheets URL or ID to export the reviews to")
	flags.StringVar(&opts.credentials, "credentials", "", "Service account JSON for Google Sheets (or GOOGLE_SHEETS_CREDENTIALS)")
	flags.Int64Var(&opts.chatID, "telegram-chat", 0, "Telegram chat to notify when the run ends (needs TELEGRAM_BOT_TOKEN)")
	flags.BoolVar(&opts.stopAtStart, "stop-at-start", false, "Stop paginating once a page only has reviews older than the window")

	rootCmd.PersistentFlags().StringVarP(&opts.logLevel, "loglevel", "l", "info", "Set log level. Available: debug, info, warn, error")

	_ = rootCmd.MarkFlagRequired("company")
	_ = rootCmd.MarkFlagRequired("start_date")
}

// SetLogLevel configures the package-level logger
func SetLogLevel(level string) error {
	switch strings.ToLower(level) {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warning", "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		return fmt.Errorf("bad log level %q", level)
	}
	return nil
}

// runError carries the exit code a failed run should end with
type runError struct {
	code int
	err  error
}

func (e *runError) Error() string { return e.err.Error() }

func (e *runError) Unwrap() error { return e.err }

// ExitCodeFor maps the error returned by the command to a process exit code
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}
	var re *runError
	if errors.As(err, &re) {
		return re.code
	}
	return ExitFailure
}

// exitCode decides how a run that collected n reviews ends
func exitCode(n int, err error) int {
	switch {
	case err == nil:
		return ExitOK
	case n > 0:
		return ExitPartial
	default:
		return ExitFailure
	}
}

// ParseWindow builds the date window from the CLI values; an empty end means today
func ParseWindow(start, end string, today time.Time) (models.DateWindow, error) {
	if end == "" {
		end = today.Format(models.DateLayout)
	}

	window, err := models.NewDateWindow(start, end)
	if err != nil {
		return models.DateWindow{}, err
	}
	if window.End.Before(window.Start) {
		return models.DateWindow{}, fmt.Errorf("start date %s is after end date %s", start, end)
	}
	return window, nil
}
