package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"meal-planner/internal/app"
	"meal-planner/internal/config"
)

const version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "meal-planner",
	Short: "Meal planner CLI",
	Long: `Meal planner keeps a per-date meal plan and a categorized grocery list for each session.
Meals are added by name, from pasted or photographed recipe text, from a recipe web page or from the curated kitchen collection.
The same sessions are served over HTTP, Telegram and MCP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile := viper.GetString("env-file"); envFile != "" {
			config.LoadDotEnv(envFile)
		} else {
			config.LoadDotEnv()
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("MEALPLANNER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("session", "s", "cli", "session id")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("env-file", "", "path to a .env file")
	_ = viper.BindPFlag("session", rootCmd.PersistentFlags().Lookup("session"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("env-file", rootCmd.PersistentFlags().Lookup("env-file"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(groceryCmd())
	rootCmd.AddCommand(normalizeCmd())
	rootCmd.AddCommand(recipeCmd())
	rootCmd.AddCommand(kitchenCmd())
	rootCmd.AddCommand(metricsCmd())
	rootCmd.AddCommand(mcpCmd())
}

// --- helpers ---

func withStack(ctx context.Context, fn func(context.Context, *config.Config, *app.Stack) error) error {
	cfg, err := config.NewFromEnv()
	if err != nil {
		return err
	}
	st, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(ctx, cfg, st)
}

func withSession(ctx context.Context, fn func(context.Context, *app.Stack, *app.Session) error) error {
	return withStack(ctx, func(ctx context.Context, _ *config.Config, st *app.Stack) error {
		s, err := st.App.Session(ctx, viper.GetString("session"))
		if err != nil {
			return err
		}
		return fn(ctx, st, s)
	})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printJSONOr(v any, table func()) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	table()
	return nil
}
