package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chimehook/chimehook/internal/connections"
	"github.com/chimehook/chimehook/internal/deliver"
	"github.com/chimehook/chimehook/internal/logging"
	"github.com/chimehook/chimehook/internal/store"
)

var (
	cfgFile    string
	connID     string
	webhookURL string
	storeConn  string
	storeKey   string
	timeout    time.Duration
	outputJSON bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chimectl",
	Short: "Chimehook CLI - Send and schedule chat alerts",
	Long: `Chimehook CLI (chimectl) is a command line tool for the chimehook
alert dispatch service.

You can use it to send chat alerts immediately, schedule them for a
later wall-clock time, inspect the scheduled backlog, and run a drain
cycle by hand.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.chimectl.yaml)")
	rootCmd.PersistentFlags().StringVar(&connID, "conn", "google_chat_webhook", "chat webhook connection ID")
	rootCmd.PersistentFlags().StringVar(&webhookURL, "webhook-url", "", "webhook URL, bypassing the connection store")
	rootCmd.PersistentFlags().StringVar(&storeConn, "store-conn", "redis_default", "Redis connection ID for the scheduled-alert store")
	rootCmd.PersistentFlags().StringVar(&storeKey, "store-key", store.DefaultKey, "sorted-set key holding scheduled alerts")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")

	// Bind flags to viper
	viper.BindPFlag("conn", rootCmd.PersistentFlags().Lookup("conn"))
	viper.BindPFlag("store-conn", rootCmd.PersistentFlags().Lookup("store-conn"))
	viper.BindPFlag("store-key", rootCmd.PersistentFlags().Lookup("store-key"))
	viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".chimectl")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	// Override global variables with config values if flags weren't explicitly set
	if !rootCmd.PersistentFlags().Changed("conn") {
		if s := viper.GetString("conn"); s != "" {
			connID = s
		}
	}
	if !rootCmd.PersistentFlags().Changed("store-conn") {
		if s := viper.GetString("store-conn"); s != "" {
			storeConn = s
		}
	}
	if !rootCmd.PersistentFlags().Changed("store-key") {
		if s := viper.GetString("store-key"); s != "" {
			storeKey = s
		}
	}
	if !rootCmd.PersistentFlags().Changed("timeout") {
		if d := viper.GetDuration("timeout"); d > 0 {
			timeout = d
		}
	}
	if !rootCmd.PersistentFlags().Changed("json") {
		outputJSON = viper.GetBool("json")
	}
}

// cliLogger logs to stderr so command output on stdout stays clean.
func cliLogger() *logging.Logger {
	log := logging.New("chimectl")
	log.SetOutput(os.Stderr)
	return log
}

// overlayStore layers the --webhook-url override over a fallback
// lookup, so overriding the chat connection does not hide the Redis
// store connection.
type overlayStore struct {
	overrides connections.StaticStore
	fallback  connections.Store
}

func (s overlayStore) Get(ctx context.Context, id string) (connections.Conn, error) {
	if c, err := s.overrides.Get(ctx, id); err == nil {
		return c, nil
	}
	return s.fallback.Get(ctx, id)
}

// getConnections returns the connection lookup: the env-backed store,
// with the chat connection overridden when --webhook-url is given.
func getConnections() connections.Store {
	if webhookURL != "" {
		return overlayStore{
			overrides: connections.StaticStore{connID: {Password: webhookURL}},
			fallback:  connections.EnvStore{},
		}
	}
	return connections.EnvStore{}
}

// getStore connects to the scheduled-alert store.
func getStore(ctx context.Context) (*store.Redis, func(), error) {
	conn, err := getConnections().Get(ctx, storeConn)
	if err != nil {
		return nil, nil, fmt.Errorf("store connection lookup: %w", err)
	}
	client := store.NewClient(conn)
	st := store.New(client, storeKey)
	if err := st.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("store unreachable: %w", err)
	}
	return st, func() { _ = client.Close() }, nil
}

// getDeliverClient builds the HTTP delivery client.
func getDeliverClient(log *logging.Logger) *deliver.Client {
	return deliver.NewClient(timeout, log)
}

// printOutput prints the response in the requested format
func printOutput(v interface{}) {
	if outputJSON {
		jsonData, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling to JSON: %v\n", err)
			return
		}
		fmt.Println(string(jsonData))
	} else {
		fmt.Printf("%+v\n", v)
	}
}
