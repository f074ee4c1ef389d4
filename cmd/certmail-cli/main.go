package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var (
	cfgFile   string
	apiURL    string
	apiToken  string
	verbose   bool
	outputFmt string

	stdout io.Writer = os.Stdout
)

// Config holds CLI configuration
type Config struct {
	APIURL   string `mapstructure:"api_url" yaml:"api_url"`
	APIToken string `mapstructure:"api_token" yaml:"api_token"`
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "certmail-cli",
	Short: "certmail CLI - batch certificate mailing from the terminal",
	Long: `certmail CLI sends recipient batches from a CSV, inspects quota,
sender identities and past jobs, and reconciles job ledgers.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.certmail-cli.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "certmail API base URL")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "bearer token")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "output format (table, json, yaml)")

	_ = viper.BindPFlag("api_url", rootCmd.PersistentFlags().Lookup("api-url"))
	_ = viper.BindPFlag("api_token", rootCmd.PersistentFlags().Lookup("token"))

	rootCmd.AddCommand(signupCmd, profileCmd, quotaCmd, senderCmd, sendCmd, jobsCmd, healthCmd, configCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".certmail-cli")
	}

	viper.SetEnvPrefix("CERTMAIL")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}

	if apiURL == "" {
		apiURL = viper.GetString("api_url")
	}
	if apiToken == "" {
		apiToken = viper.GetString("api_token")
	}
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}
}

func client() *Client { return NewClient(strings.TrimRight(apiURL, "/"), apiToken) }

var signupCmd = &cobra.Command{
	Use:   "signup [email] [name]",
	Short: "Create an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := client().Signup(args[0], args[1])
		if err != nil {
			return err
		}
		return formatOutput(a, func(w *tabwriter.Writer) {
			fmt.Fprintln(w, "ID\tEMAIL\tLIMIT\tREMAINING")
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", a.ID, a.Email, a.MonthlyLimit, a.Remaining)
		})
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show account, quota and sender identities",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := client().Profile()
		if err != nil {
			return err
		}
		return formatOutput(p, func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "Account:\t%s (%s)\n", p.Account.Email, p.Account.ID)
			fmt.Fprintf(w, "Quota:\t%d/%d used, %d remaining\n", p.Account.UsedLimit, p.Account.MonthlyLimit, p.Account.Remaining)
			fmt.Fprintln(w)
			fmt.Fprintln(w, "SENDER\tSLOT\tPRIMARY\tVERIFIED")
			for _, s := range p.Senders {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Email, s.Slot, yesNo(s.IsPrimary), yesNo(s.IsVerified))
			}
		})
	},
}

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Show the monthly send quota",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := client().Quota()
		if err != nil {
			return err
		}
		return formatOutput(b, func(w *tabwriter.Writer) {
			fmt.Fprintln(w, "LIMIT\tUSED\tREMAINING")
			fmt.Fprintf(w, "%d\t%d\t%d\n", b.MonthlyLimit, b.UsedLimit, b.Remaining)
		})
	},
}

var senderCmd = &cobra.Command{
	Use:   "sender",
	Short: "Sender identity commands",
}

var senderAddCmd = &cobra.Command{
	Use:   "add [email]",
	Short: "Register a sender identity and request verification",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := client().AddSender(args[0])
		if err != nil {
			return err
		}
		return formatOutput(s, func(w *tabwriter.Writer) {
			fmt.Fprintln(w, "SENDER\tSLOT\tPRIMARY\tVERIFIED")
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Email, s.Slot, yesNo(s.IsPrimary), yesNo(s.IsVerified))
		})
	},
}

var senderVerifyCmd = &cobra.Command{
	Use:   "verify [email]",
	Short: "Check a sender's verification status with the provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, err := client().VerifySender(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, msg)
		return nil
	},
}

var (
	sendFrom     string
	sendSubject  string
	sendBodyFile string
	sendCSV      string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a batch from a recipients CSV",
	Long: `Send one message per CSV row. The CSV needs an "email" column and may
have an "attachment" column with a file path per row, relative to the CSV.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := os.ReadFile(sendBodyFile)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		f, err := os.Open(sendCSV)
		if err != nil {
			return fmt.Errorf("open recipients: %w", err)
		}
		defer f.Close()
		mappings, files, err := readRecipients(f, filepath.Dir(sendCSV))
		if err != nil {
			return err
		}
		res, err := client().Send(Batch{From: sendFrom, Subject: sendSubject, Body: string(body), Mappings: mappings, Files: files})
		if err != nil {
			return err
		}
		return formatOutput(res, func(w *tabwriter.Writer) {
			ok := 0
			fmt.Fprintln(w, "EMAIL\tRESULT")
			for _, r := range res.Results {
				status := "failed"
				if r.Result {
					status = "sent"
					ok++
				}
				fmt.Fprintf(w, "%s\t%s\n", r.Email, status)
			}
			fmt.Fprintf(w, "\nJob %s: %d sent, %d failed\n", res.JobID, ok, len(res.Results)-ok)
		})
	},
}

var (
	jobsPage     int
	jobsPageSize int
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List past batch jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := client().ListJobs(jobsPage, jobsPageSize)
		if err != nil {
			return err
		}
		return formatOutput(p, func(w *tabwriter.Writer) {
			fmt.Fprintln(w, "ID\tTOTAL\tOK\tFAILED\tCREATED")
			for _, j := range p.Items {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n", j.ID, j.NoOfEmails, j.SuccessfulEmails, j.FailedEmails, j.CreatedAt)
			}
			fmt.Fprintf(w, "\nPage %d of %d (%d jobs)\n", p.Page, p.TotalPages, p.Total)
		})
	},
}

var jobsReconcileCmd = &cobra.Command{
	Use:   "reconcile [job-id]",
	Short: "Compare a job's counters with its recorded messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := client().Reconcile(args[0])
		if err != nil {
			return err
		}
		return formatOutput(r, func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "Job:\t%s\n", r.JobID)
			fmt.Fprintf(w, "Counters:\t%d ok, %d failed of %d\n", r.SuccessfulEmails, r.FailedEmails, r.NoOfEmails)
			fmt.Fprintf(w, "Recorded:\t%d ok, %d failed, %d unrecorded\n", r.RecordedOK, r.RecordedFail, r.Unrecorded)
			fmt.Fprintf(w, "Finalized:\t%s\n", yesNo(r.Finalized))
			fmt.Fprintf(w, "Drift:\t%s\n", yesNo(r.Drift))
		})
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check system health",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := client().Health()
		if err != nil {
			return err
		}
		return formatOutput(h, func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "Status:\t%s\nVersion:\t%s\nDB:\t%s\nCache:\t%s\nEvents:\t%s\n", h.Status, h.Version, h.DB, h.Cache, h.Events)
		})
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the current API URL and token to the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			path = filepath.Join(home, ".certmail-cli.yaml")
		}
		b, err := yaml.Marshal(Config{APIURL: apiURL, APIToken: apiToken})
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, b, 0o600); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Fprintf(stdout, "Configuration saved to %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := Config{APIURL: apiURL, APIToken: maskToken(apiToken)}
		return formatOutput(c, func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "API URL:\t%s\nToken:\t%s\n", c.APIURL, c.APIToken)
		})
	},
}

func init() {
	senderCmd.AddCommand(senderAddCmd, senderVerifyCmd)

	sendCmd.Flags().StringVar(&sendFrom, "from", "", "verified sender address")
	sendCmd.Flags().StringVar(&sendSubject, "subject", "", "message subject")
	sendCmd.Flags().StringVar(&sendBodyFile, "body", "", "path to the HTML body")
	sendCmd.Flags().StringVar(&sendCSV, "recipients", "", "path to the recipients CSV")
	for _, f := range []string{"from", "subject", "body", "recipients"} {
		_ = sendCmd.MarkFlagRequired(f)
	}

	jobsCmd.Flags().IntVar(&jobsPage, "page", 1, "page number")
	jobsCmd.Flags().IntVar(&jobsPageSize, "page-size", 20, "page size (max 100)")
	jobsCmd.AddCommand(jobsReconcileCmd)

	configCmd.AddCommand(configInitCmd, configShowCmd)
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// formatOutput renders data as json or yaml, or calls table for the default format.
func formatOutput(data any, table func(w *tabwriter.Writer)) error {
	switch strings.ToLower(outputFmt) {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case "yaml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	default:
		w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
		table(w)
		return w.Flush()
	}
}

func logVerbose(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[VERBOSE] "+format+"\n", args...)
	}
}
