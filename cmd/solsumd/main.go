package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/m0rg5/SolSum-1.9/internal/irradiance"
	"github.com/m0rg5/SolSum-1.9/internal/store"
	"github.com/m0rg5/SolSum-1.9/internal/uiapi"
)

func main() {
	var port int
	var dbPath string
	var lat, lon float64

	rootCmd := &cobra.Command{
		Use:   "solsumd",
		Short: "SolSum HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
			slog.SetDefault(logger)

			home, _ := os.UserHomeDir()
			configDir := filepath.Join(home, ".solsum")

			viper.AddConfigPath(configDir)
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
			viper.SetEnvPrefix("solsum")
			viper.AutomaticEnv()
			viper.ReadInConfig()

			if dbPath == "" {
				dbPath = filepath.Join(configDir, "solsum.db")
			}
			if !cmd.Flags().Changed("lat") && viper.IsSet("latitude") {
				lat = viper.GetFloat64("latitude")
			}
			if !cmd.Flags().Changed("lon") && viper.IsSet("longitude") {
				lon = viper.GetFloat64("longitude")
			}

			st, err := store.NewStore(dbPath)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer st.Close()

			solar := irradiance.NewClient(lat, lon)
			srv := uiapi.NewServer(st, solar, logger)

			addr := fmt.Sprintf(":%d", port)
			logger.Info("solsumd starting", "addr", addr, "db", dbPath, "lat", lat, "lon", lon)

			return http.ListenAndServe(addr, srv.Handler())
		},
	}

	rootCmd.Flags().IntVarP(&port, "port", "p", 8090, "HTTP port")
	rootCmd.Flags().StringVar(&dbPath, "db", "", "Database path")
	rootCmd.Flags().Float64Var(&lat, "lat", 51.5074, "Latitude for irradiance fetches")
	rootCmd.Flags().Float64Var(&lon, "lon", -0.1278, "Longitude for irradiance fetches")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
