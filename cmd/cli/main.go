package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/iho/campuswallet/internal/adapter/http/dto"
	"github.com/iho/campuswallet/internal/infrastructure/auth"
	"github.com/iho/campuswallet/internal/infrastructure/postgres"
)

// bcryptGenerate is swapped in tests.
var bcryptGenerate = bcrypt.GenerateFromPassword

func main() {
	if err := newRootCmd(viper.New()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "campuswallet-cli",
		Short:         "Campus Wallet CLI tool",
		Long:          `A command line interface for operating the Campus Wallet API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(v)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("url", "http://localhost:8080", "Base URL of the Campus Wallet API")
	flags.String("token", "", "Bearer token (see the login command)")
	flags.Duration("timeout", 10*time.Second, "Request timeout")
	flags.String("config", "", "Config file (default $HOME/.campuswallet.yaml)")
	_ = v.BindPFlags(flags)

	rootCmd.AddCommand(
		loginCmd(v),
		ledgerCmd(v),
		accountsCmd(v),
		historyCmd(v),
		migrateCmd(v),
		hashPasswordCmd(),
		hashPinCmd(),
	)

	return rootCmd
}

// loadConfig layers flags over CAMPUSWALLET_* variables over the config file.
func loadConfig(v *viper.Viper) error {
	v.SetEnvPrefix("CAMPUSWALLET")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		v.AddConfigPath(home)
		v.SetConfigName(".campuswallet")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

type apiClient struct {
	http    *http.Client
	baseURL string
	token   string
}

func newAPIClient(v *viper.Viper) *apiClient {
	return &apiClient{
		http:    &http.Client{Timeout: v.GetDuration("timeout")},
		baseURL: strings.TrimRight(v.GetString("url"), "/"),
		token:   v.GetString("token"),
	}
}

// apiError is a non-2xx answer from the API.
type apiError struct {
	Body   dto.ErrorResponse
	Status int
}

func (e *apiError) Error() string {
	if e.Body.Error == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("%s (%d): %s", e.Body.Error, e.Status, e.Body.Message)
}

// do sends body as JSON and returns the raw response body. Non-2xx statuses
// come back as *apiError alongside the body.
func (c *apiClient) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, &apiErr.Body)
		return data, apiErr
	}

	return data, nil
}

func loginCmd(v *viper.Viper) *cobra.Command {
	var externalID, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange credentials for a bearer token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("CAMPUSWALLET_PASSWORD")
			}
			data, err := newAPIClient(v).do(cmd.Context(), http.MethodPost, "/api/v1/auth/login",
				dto.LoginRequest{ExternalID: externalID, Password: password})
			if err != nil {
				return err
			}

			var resp dto.LoginResponse
			if err := json.Unmarshal(data, &resp); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Token)
			return nil
		},
	}

	cmd.Flags().StringVar(&externalID, "id", "", "External identifier")
	cmd.Flags().StringVar(&password, "password", "", "Password (or CAMPUSWALLET_PASSWORD)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func ledgerCmd(v *viper.Viper) *cobra.Command {
	// Ledger commands
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "consistency",
		Short: "Check ledger consistency",
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkConsistency(cmd, newAPIClient(v))
		},
	})

	return cmd
}

func checkConsistency(cmd *cobra.Command, client *apiClient) error {
	data, err := client.do(cmd.Context(), http.MethodGet, "/api/v1/ledger/consistency", nil)

	var apiErr *apiError
	if err != nil && !(errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict) {
		return err
	}

	var report dto.ConsistencyResponse
	if err := json.Unmarshal(data, &report); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Total balances:\t%s\n", report.TotalBalances)
	fmt.Fprintf(w, "Total top-ups:\t%s\n", report.TotalTopUps)
	fmt.Fprintf(w, "Credit adjustments:\t%s\n", report.CreditAdjustments)
	fmt.Fprintf(w, "Debit adjustments:\t%s\n", report.DebitAdjustments)
	fmt.Fprintf(w, "Expected:\t%s\n", report.Expected)
	fmt.Fprintf(w, "Difference:\t%s\n", report.Difference)
	_ = w.Flush()

	if !report.Consistent {
		fmt.Fprintln(out, "Consistency check FAILED")
		return errors.New("ledger is inconsistent")
	}

	fmt.Fprintln(out, "Consistency check PASSED")
	return nil
}

func accountsCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Account operations",
	}

	var file string
	provision := &cobra.Command{
		Use:   "provision",
		Short: "Create accounts from a JSON file",
		Long: `Reads a JSON array of accounts:
  [{"external_id":"S001","name":"Ann","role":"member","password":"...","pin":"1234"}]`,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read %s: %w", file, err)
			}

			var req dto.ProvisionRequest
			if err := json.Unmarshal(raw, &req.Accounts); err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}

			data, err := newAPIClient(v).do(cmd.Context(), http.MethodPost, "/api/v1/accounts", req)
			if err != nil {
				return err
			}

			var resp dto.ListAccountsResponse
			if err := json.Unmarshal(data, &resp); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Provisioned %d accounts\n", resp.Total)
			for _, a := range resp.Accounts {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\t%s\t%s\n", a.ExternalID, a.Role, a.Name)
			}
			return nil
		},
	}
	provision.Flags().StringVar(&file, "file", "", "Path to the accounts JSON file")
	_ = provision.MarkFlagRequired("file")

	show := &cobra.Command{
		Use:   "show EXTERNAL_ID",
		Short: "Show an account's public profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newAPIClient(v).do(cmd.Context(), http.MethodGet, "/api/v1/accounts/"+url.PathEscape(args[0]), nil)
			if err != nil {
				return err
			}
			var profile dto.ProfileResponse
			if err := json.Unmarshal(data, &profile); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}
			printJSONTo(cmd.OutOrStdout(), profile)
			return nil
		},
	}

	cmd.AddCommand(provision, show)
	return cmd
}

func historyCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Transaction history",
	}

	var account, from, to, direction, search, out string
	var limit int

	query := func() url.Values {
		q := url.Values{}
		for key, val := range map[string]string{
			"account": account, "from": from, "to": to, "direction": direction, "q": search,
		} {
			if val != "" {
				q.Set(key, val)
			}
		}
		return q
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List recent records",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := query()
			q.Set("limit", fmt.Sprint(limit))

			data, err := newAPIClient(v).do(cmd.Context(), http.MethodGet, "/api/v1/history?"+q.Encode(), nil)
			if err != nil {
				return err
			}

			var page dto.HistoryPageResponse
			if err := json.Unmarshal(data, &page); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CREATED\tTYPE\tDIRECTION\tCOUNTERPARTY\tAMOUNT\tNOTE")
			for _, item := range page.Items {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					item.CreatedAt.Local().Format(time.DateTime),
					item.Type,
					item.Direction,
					truncate(item.Counterparty.Name, 24),
					item.Amount,
					truncate(item.Note, 32),
				)
			}
			_ = w.Flush()
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d\n", len(page.Items), page.Total)
			return nil
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "Page size")

	export := &cobra.Command{
		Use:   "export",
		Short: "Export history as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newAPIClient(v).do(cmd.Context(), http.MethodGet, "/api/v1/history/export?"+query().Encode(), nil)
			if err != nil {
				return err
			}

			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o600); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", out)
			return nil
		},
	}
	export.Flags().StringVarP(&out, "output", "o", "", "Output file (default stdout)")

	for _, c := range []*cobra.Command{list, export} {
		c.Flags().StringVar(&account, "account", "", "Account to view (requires capability)")
		c.Flags().StringVar(&from, "from", "", "Start date, YYYY-MM-DD or RFC 3339")
		c.Flags().StringVar(&to, "to", "", "End date, inclusive for YYYY-MM-DD")
		c.Flags().StringVar(&direction, "direction", "", "all, sent, received or topup")
		c.Flags().StringVar(&search, "search", "", "Match counterparty or note")
	}

	cmd.AddCommand(list, export)
	return cmd
}

func migrateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}
	cmd.PersistentFlags().String("database-url", "", "Postgres URL (or CAMPUSWALLET_DATABASE_URL)")
	cmd.PersistentFlags().String("migrations", "file://migrations", "Migrations source")
	_ = v.BindPFlag("database-url", cmd.PersistentFlags().Lookup("database-url"))
	_ = v.BindPFlag("migrations", cmd.PersistentFlags().Lookup("migrations"))

	databaseURL := func() (string, error) {
		u := v.GetString("database-url")
		if u == "" {
			return "", errors.New("--database-url or CAMPUSWALLET_DATABASE_URL is required")
		}
		return u, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := databaseURL()
			if err != nil {
				return err
			}
			return postgres.RunMigrations(u, v.GetString("migrations"))
		},
	}, &cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := databaseURL()
			if err != nil {
				return err
			}
			return postgres.RunMigrationsDown(u, v.GetString("migrations"))
		},
	})

	return cmd
}

func hashPasswordCmd() *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:   "hash-password PASSWORD",
		Short: "Print a bcrypt hash for seeding accounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := bcryptGenerate([]byte(args[0]), cost)
			if err != nil {
				return err
			}
			fmt.Println(string(hash))
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")

	return cmd
}

func hashPinCmd() *cobra.Command {
	var iterations, memoryKB uint32

	cmd := &cobra.Command{
		Use:   "hash-pin PIN",
		Short: "Print an argon2id hash for an authorization code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.NewArgon2Hasher(iterations, memoryKB).Hash(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().Uint32Var(&iterations, "time", 1, "argon2 iterations")
	cmd.Flags().Uint32Var(&memoryKB, "memory", 64*1024, "argon2 memory in KiB")

	return cmd
}

func printJSON(v any) {
	printJSONTo(os.Stdout, v)
}

func printJSONTo(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
