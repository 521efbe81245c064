package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"meal-planner/internal/app"
	"meal-planner/internal/config"
	"meal-planner/internal/kitchen"
	mcpserver "meal-planner/internal/mcp"
	"meal-planner/internal/mealplan"
	"meal-planner/internal/metrics"
	"meal-planner/internal/recipe"
	"meal-planner/internal/server"
	"meal-planner/internal/telegram"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API, plus the Telegram webhook when a bot token is set",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStack(cmd.Context(), func(ctx context.Context, cfg *config.Config, st *app.Stack) error {
				handler, err := server.New(server.Config{
					App:      st.App,
					Signer:   st.Signer,
					Metrics:  st.Metrics,
					DataPath: dataPath(cfg),
				})
				if err != nil {
					return err
				}
				mux := http.NewServeMux()
				mux.Handle("/", handler)

				if cfg.TelegramBotToken != "" {
					api, err := telegram.Connect(cfg)
					if err != nil {
						return err
					}
					bot := telegram.NewBot(api, cfg, st.App, telegram.NewChatStateRepository(st.DB.SQL), st.Metrics, st.Signer)
					bot.RegisterHandlers(mux)
				}

				if addr == "" {
					addr = ":" + cfg.Port
				}
				srv := &http.Server{Addr: addr, Handler: mux}

				ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()

				fmt.Printf("Serving meal planner API on %s (OpenAPI at /openapi.json, docs at /docs)\n", addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :$PORT)")
	return cmd
}

func dataPath(cfg *config.Config) string {
	if cfg.StorageBackend == config.StorageFile {
		return cfg.SnapshotDir
	}
	return cfg.DatabasePath
}

func planCmd() *cobra.Command {
	plan := &cobra.Command{Use: "plan", Short: "Manage the meal plan"}
	plan.AddCommand(planShowCmd())
	plan.AddCommand(planDatesCmd())
	plan.AddCommand(planAddCmd())
	plan.AddCommand(planPasteCmd())
	plan.AddCommand(planImportCmd())
	return plan
}

func planShowCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the meals of a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, st *app.Stack, s *app.Session) error {
				if date == "" {
					date = s.SelectedDate()
				}
				day := s.Select(date)
				return printJSONOr(day, func() { renderDay(day) })
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date key (default: selected date)")
	return cmd
}

func renderDay(day mealplan.Day) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetTitle(day.Date)
	tw.AppendHeader(table.Row{"Meal Type", "Meal", "Recipe"})
	for _, m := range day.Meals {
		if len(m.Entries) == 0 {
			tw.AppendRow(table.Row{m.Type, "-", ""})
			continue
		}
		for _, e := range m.Entries {
			tw.AppendRow(table.Row{m.Type, e.Name, e.RecipeID})
		}
	}
	tw.Render()
}

func planDatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dates",
		Short: "List the planned dates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, st *app.Stack, s *app.Session) error {
				dates := s.Plans.Dates()
				return printJSONOr(dates, func() {
					for _, d := range dates {
						fmt.Println(d)
					}
				})
			})
		},
	}
}

func planAddCmd() *cobra.Command {
	var date, mealType, name string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a meal by name",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, st *app.Stack, s *app.Session) error {
				if date == "" {
					date = st.App.Today()
				}
				added, err := st.App.AddMeal(ctx, s, date, mealType, name)
				if err != nil {
					return err
				}
				if !added {
					fmt.Println("Nothing added: the meal name is empty.")
					return nil
				}
				day := s.Plans.SelectDate(date)
				return printJSONOr(day, func() { renderDay(day) })
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date key (default: today)")
	cmd.Flags().StringVar(&mealType, "type", mealplan.DefaultMealTypes[0], "meal type")
	cmd.Flags().StringVar(&name, "name", "", "meal name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func planPasteCmd() *cobra.Command {
	var date, mealType string
	cmd := &cobra.Command{
		Use:   "paste [file]",
		Short: "Add a meal from recipe text read from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(args)
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), func(ctx context.Context, st *app.Stack, s *app.Session) error {
				st.App.Paste(s, app.Target{Date: date, MealType: mealType}, text)
				return commit(ctx, st, s)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date key (default: selected date)")
	cmd.Flags().StringVar(&mealType, "type", "", "meal type (default: Break Fast)")
	return cmd
}

func planImportCmd() *cobra.Command {
	var date, mealType string
	cmd := &cobra.Command{
		Use:   "import <url>",
		Short: "Add a meal from a recipe web page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, st *app.Stack, s *app.Session) error {
				if _, err := st.App.Search(ctx, s, app.Target{Date: date, MealType: mealType}, args[0]); err != nil {
					return fmt.Errorf("%s: %w", app.UserMessage(err), err)
				}
				return commit(ctx, st, s)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date key (default: selected date)")
	cmd.Flags().StringVar(&mealType, "type", "", "meal type (default: Break Fast)")
	return cmd
}

func commit(ctx context.Context, st *app.Stack, s *app.Session) error {
	c, err := st.App.CommitDraft(ctx, s)
	if err != nil {
		st.App.Discard(s)
		return err
	}
	return printJSONOr(c, func() {
		fmt.Printf("Added %q to %s on %s", c.Entry.Name, c.Target.MealType, c.Target.Date)
		if c.Entry.RecipeID != "" {
			fmt.Printf(" (recipe %s)", c.Entry.RecipeID)
		}
		fmt.Println()
	})
}

func readInput(args []string) (string, error) {
	var data []byte
	var err error
	if len(args) == 1 && args[0] != "-" {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read recipe text: %w", err)
	}
	return string(data), nil
}

func groceryCmd() *cobra.Command {
	g := &cobra.Command{Use: "grocery", Short: "Manage the grocery list"}
	g.AddCommand(groceryListCmd())
	g.AddCommand(groceryAddCmd())
	g.AddCommand(groceryToggleCmd())
	g.AddCommand(groceryEditCmd())
	g.AddCommand(groceryDeleteCmd())
	g.AddCommand(groceryShareCmd())
	return g
}

func groceryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List grocery items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, st *app.Stack, s *app.Session) error {
				list := s.Groceries.Snapshot()
				return printJSONOr(list, func() {
					tw := table.NewWriter()
					tw.SetOutputMirror(os.Stdout)
					tw.AppendHeader(table.Row{"Category", "ID", "Item", "Quantity", "Done"})
					for _, c := range list.Categories {
						for _, it := range c.Items {
							done := ""
							if it.Checked {
								done = "x"
							}
							tw.AppendRow(table.Row{c.Name, it.ID, it.Name, it.Quantity, done})
						}
					}
					tw.Render()
				})
			})
		},
	}
}

func groceryAddCmd() *cobra.Command {
	var category, name, quantity string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a grocery item",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, st *app.Stack, s *app.Session) error {
				item, err := st.App.AddGroceryItem(ctx, s, category, name, quantity)
				if err != nil {
					return err
				}
				return printJSONOr(item, func() { fmt.Printf("Added %s (%s)\n", item.Name, item.ID) })
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "Other", "category")
	cmd.Flags().StringVar(&name, "name", "", "item name")
	cmd.Flags().StringVar(&quantity, "qty", "", "quantity")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func groceryToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Check or uncheck a grocery item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, st *app.Stack, s *app.Session) error {
				category, _, ok := s.Groceries.Find(args[0])
				if !ok {
					return fmt.Errorf("grocery item %s not found", args[0])
				}
				_, err := st.App.ToggleGroceryItem(ctx, s, category, args[0])
				return err
			})
		},
	}
}

func groceryEditCmd() *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "edit <id> <name> [qty]",
		Short: "Rename a grocery item, change its quantity or move it to another category",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, st *app.Stack, s *app.Session) error {
				from, _, ok := s.Groceries.Find(args[0])
				if !ok {
					return fmt.Errorf("grocery item %s not found", args[0])
				}
				var quantity string
				if len(args) == 3 {
					quantity = args[2]
				}
				item, err := st.App.EditGroceryItem(ctx, s, from, to, args[0], args[1], quantity)
				if err != nil {
					return err
				}
				return printJSONOr(item, func() { fmt.Printf("Updated %s (%s)\n", item.Name, item.ID) })
			})
		},
	}
	cmd.Flags().StringVar(&to, "category", "", "move the item to this category")
	return cmd
}

func groceryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a grocery item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, st *app.Stack, s *app.Session) error {
				category, _, ok := s.Groceries.Find(args[0])
				if !ok {
					return fmt.Errorf("grocery item %s not found", args[0])
				}
				_, err := st.App.DeleteGroceryItem(ctx, s, category, args[0])
				return err
			})
		},
	}
}

func groceryShareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "share",
		Short: "Print the unchecked items as share text",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, st *app.Stack, s *app.Session) error {
				fmt.Println(strings.TrimSpace(s.Groceries.BuildShareText()))
				if st.Signer != nil {
					link, err := st.Signer.Link(s.ID)
					if err != nil {
						return err
					}
					fmt.Println()
					fmt.Println(link)
				}
				return nil
			})
		},
	}
}

func normalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize [file]",
		Short: "Split recipe text into title, ingredients and instructions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(args)
			if err != nil {
				return err
			}
			parsed := recipe.Normalize(text)
			return printJSONOr(parsed, func() {
				fmt.Println(parsed.Title)
				fmt.Println("\nIngredients:")
				for _, l := range parsed.Ingredients {
					fmt.Println("  - " + l)
				}
				fmt.Println("\nInstructions:")
				for i, l := range parsed.Instructions {
					fmt.Printf("  %d. %s\n", i+1, l)
				}
			})
		},
	}
}

func recipeCmd() *cobra.Command {
	r := &cobra.Command{Use: "recipe", Short: "Show archived recipes"}
	r.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show the full recipe behind a plan entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStack(cmd.Context(), func(ctx context.Context, _ *config.Config, st *app.Stack) error {
				rec, err := st.App.Recipe(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(rec)
			})
		},
	})
	return r
}

func kitchenCmd() *cobra.Command {
	k := &cobra.Command{Use: "kitchen", Short: "Browse and import curated recipes"}
	k.AddCommand(kitchenListCmd())
	k.AddCommand(kitchenImportCmd())
	return k
}

func kitchenListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List curated recipes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStack(cmd.Context(), func(ctx context.Context, _ *config.Config, st *app.Stack) error {
				recipes, err := st.App.KitchenRecipes(ctx)
				if err != nil {
					return err
				}
				return printJSONOr(recipes, func() {
					tw := table.NewWriter()
					tw.SetOutputMirror(os.Stdout)
					tw.AppendHeader(table.Row{"ID", "Title", "Course", "Cuisine", "Prep", "Cook"})
					for _, r := range recipes {
						tw.AppendRow(table.Row{r.ID, r.Title, r.Course, r.Cuisine,
							recipe.CompactDuration(r.PrepTime), recipe.CompactDuration(r.CookTime)})
					}
					tw.Render()
				})
			})
		},
	}
}

func kitchenImportCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Copy random Spoonacular recipes into the curated collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStack(cmd.Context(), func(ctx context.Context, cfg *config.Config, st *app.Stack) error {
				if cfg.SpoonacularAPIKey == "" {
					return fmt.Errorf("SPOONACULAR_API_KEY environment variable not set")
				}
				if st.Firestore == nil {
					return fmt.Errorf("FIRESTORE_PROJECT_ID environment variable not set")
				}
				sp := kitchen.NewSpoonacular(kitchen.DefaultSpoonacularURL, cfg.SpoonacularAPIKey, st.Metrics)
				ids, err := kitchen.Import(ctx, sp, st.Firestore, count)
				fmt.Printf("Imported %d recipes.\n", len(ids))
				return err
			})
		},
	}
	cmd.Flags().IntVar(&count, "count", 10, "number of recipes")
	return cmd
}

func metricsCmd() *cobra.Command {
	m := &cobra.Command{Use: "metrics", Short: "Inspect and prune call metrics"}
	m.AddCommand(metricsSummaryCmd())
	m.AddCommand(metricsCleanupCmd())
	return m
}

func metricsSummaryCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show daily external call totals and runtime health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStack(cmd.Context(), func(ctx context.Context, cfg *config.Config, st *app.Stack) error {
				daily, err := st.Metrics.GetDailySummary(ctx, days)
				if err != nil {
					return err
				}
				health := metrics.GetSysHealth(dataPath(cfg))
				out := struct {
					Daily  []metrics.DailySummary
					Health metrics.SysHealth
				}{daily, health}
				return printJSONOr(out, func() {
					tw := table.NewWriter()
					tw.SetOutputMirror(os.Stdout)
					tw.AppendHeader(table.Row{"Date", "Calls", "Failures", "Reported", "Avg Latency"})
					for _, d := range daily {
						tw.AppendRow(table.Row{d.Date, humanize.Comma(int64(d.Calls)), d.Failures, d.Reported,
							fmt.Sprintf("%.0fms", d.AvgLatencyMS)})
					}
					tw.Render()
					fmt.Printf("\nMemory: %s in use, %s from system, %d GC runs, %d goroutines, data %s\n",
						health.Alloc, health.Sys, health.NumGC, health.Goroutines, health.DataDiskSize)
				})
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "number of days")
	return cmd
}

func metricsCleanupCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove old metric records and expired chat states",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStack(cmd.Context(), func(ctx context.Context, _ *config.Config, st *app.Stack) error {
				affected, err := st.Metrics.Cleanup(ctx, days)
				if err != nil {
					return err
				}
				fmt.Printf("Successfully removed %d old metric records.\n", affected)

				expired, err := telegram.NewChatStateRepository(st.DB.SQL).CleanupExpired(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Successfully removed %d expired chat states.\n", expired)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "keep records for the last N days")
	return cmd
}

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the meal planner tools over MCP stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStack(cmd.Context(), func(ctx context.Context, _ *config.Config, st *app.Stack) error {
				return mcpserver.NewServer(st.App, version).Start()
			})
		},
	}
}
