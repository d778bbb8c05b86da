package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pantherassess/outcomereport/internal/utils"
	"github.com/pantherassess/outcomereport/pkg/canvas"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "outcomereport",
	Short: "Aggregate Canvas assessment data into learning-outcome mastery reports.",
	Long: `outcomereport pulls per-student assessment data from Canvas across multiple
course sections, maps assignments, quiz question groups and rubric criteria
onto instructor-defined learning outcomes, and exports a spreadsheet of
aggregated mastery scores.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.outcomereport.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy (Useful for debugging. Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".outcomereport")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := home + "/.outcomereport.yaml"
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		}
	}

	// Set default empty values for all keys
	viper.SetDefault("canvas.url", "")
	viper.SetDefault("canvas.token", "")
	viper.SetDefault("templates.dbpath", "")

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}

// newCanvasClient builds a client from config and the global proxy flag.
func newCanvasClient() (*canvas.Client, error) {
	baseURL := viper.GetString("canvas.url")
	token := viper.GetString("canvas.token")
	if baseURL == "" {
		return nil, fmt.Errorf("canvas.url not set; add it to your config file (e.g. https://canvas.university.edu)")
	}
	if token == "" {
		return nil, fmt.Errorf("canvas.token not set; generate an API token in Canvas account settings and add it to your config file")
	}

	client := canvas.New(baseURL, token)

	proxy, _ := rootCmd.PersistentFlags().GetString("proxy")
	if proxy != "" {
		if err := client.SetProxy(proxy); err != nil {
			return nil, err
		}
	}
	return client, nil
}

// templatesDBPath resolves the template store path: flag value when set,
// then config, then $HOME/.outcomereport.sqlite.
func templatesDBPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if p := viper.GetString("templates.dbpath"); p != "" {
		return p
	}
	home, err := homedir.Dir()
	if err != nil {
		return ".outcomereport.sqlite"
	}
	return home + "/.outcomereport.sqlite"
}
