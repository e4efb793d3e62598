package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"garagedesk/internal/app"
	"garagedesk/internal/config"
	"garagedesk/internal/db"
	"garagedesk/internal/domain"
	"garagedesk/internal/engine"
	"garagedesk/internal/engine/policy"
	"garagedesk/internal/repo"
	"garagedesk/internal/report"
	"garagedesk/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "gd",
	Short: "Garagedesk CLI",
	Long: `Garagedesk runs a repair shop's paperwork: repair requests, invoices,
the staff roster, and activity reports.

- Workspace: the .garagedesk directory holding the database; config lives
  next to it in garagedesk.yml.
- Repairs: requests move pending -> accepted/in_progress -> completed,
  or pending -> rejected. Complexity tiers gate who may act on them.
- Invoices: issued against a payer, then paid or disputed by that payer.
  Disputes escalate to the owners.
- Staff: hire, promote, and fire mechanics; ranks drive authorization.
- Event log: diary of every committed transition, view with 'gd log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
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
	viper.SetEnvPrefix("GARAGEDESK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().String("roles", "", "comma-separated role ids asserted for the actor")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("roles", rootCmd.PersistentFlags().Lookup("roles"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(repairCmd())
	rootCmd.AddCommand(invoiceCmd())
	rootCmd.AddCommand(staffCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(announceCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(serveCmd())
}

func initCmd() *cobra.Command {
	var garageID string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize workspace and config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if garageID == "" {
				return fmt.Errorf("--garage-id required")
			}
			appCtx, err := app.Open(app.Options{
				Workspace: viper.GetString("workspace"),
				GarageID:  garageID,
			})
			if err != nil {
				return err
			}
			defer appCtx.Close()
			fmt.Printf("Initialized garage %s (config at %s)\n",
				appCtx.Config.Garage.ID, config.Path(viper.GetString("workspace")))
			return nil
		},
	}
	cmd.Flags().StringVar(&garageID, "garage-id", "", "garage identifier")
	return cmd
}

func repairCmd() *cobra.Command {
	rep := &cobra.Command{Use: "repair", Short: "Manage repair requests"}
	rep.AddCommand(repairCreateCmd())
	rep.AddCommand(repairListCmd())
	rep.AddCommand(repairShowCmd())
	for _, action := range []string{domain.ActionAccept, domain.ActionReject, domain.ActionProgress, domain.ActionComplete} {
		rep.AddCommand(repairActionCmd(action))
	}
	return rep
}

func repairCreateCmd() *cobra.Command {
	var requester, vehicle, problem, tier string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create repair request",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if requester == "" {
					requester = viper.GetString("actor-id")
				}
				rec, err := e.CreateRepair(ctx, engine.RepairCreateOptions{
					RequesterID: requester,
					Vehicle:     vehicle,
					Problem:     problem,
					Tier:        tier,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(rec)
			})
		},
	}
	cmd.Flags().StringVar(&requester, "requester", "", "requester id (defaults to actor-id)")
	cmd.Flags().StringVar(&vehicle, "vehicle", "", "vehicle description")
	cmd.Flags().StringVar(&problem, "problem", "", "problem description")
	cmd.Flags().StringVar(&tier, "tier", "", "complexity tier (simple|medium|complex|very_complex)")
	return cmd
}

func repairListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List repair requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListRepairs(ctx, status)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Vehicle", "Tier", "Status", "Assigned", "Requester"})
				for _, rec := range items {
					assigned := ""
					if rec.AssignedTo != nil {
						assigned = *rec.AssignedTo
					}
					tw.AppendRow(table.Row{rec.ID, rec.Vehicle, rec.Tier, rec.Status, assigned, rec.RequesterID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	return cmd
}

func repairShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <repair-id>",
		Short: "Show repair request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rec, err := e.Repo.GetRepair(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(rec)
			})
		},
	}
	return cmd
}

func repairActionCmd(action string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   action + " <repair-id>",
		Short: strings.ToUpper(action[:1]) + action[1:] + " a repair request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rec, err := e.TransitionRepair(ctx, engine.RepairTransitionOptions{
					RepairID: args[0],
					ActorID:  viper.GetString("actor-id"),
					Ranks:    cliRanks(ctx, e),
					Action:   action,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(rec)
			})
		},
	}
	return cmd
}

func invoiceCmd() *cobra.Command {
	inv := &cobra.Command{Use: "invoice", Short: "Manage invoices"}
	inv.AddCommand(invoiceIssueCmd())
	inv.AddCommand(invoiceListCmd())
	inv.AddCommand(invoiceShowCmd())
	inv.AddCommand(invoiceResolveCmd("pay"))
	inv.AddCommand(invoiceResolveCmd("dispute"))
	return inv
}

func invoiceIssueCmd() *cobra.Command {
	var payer, vehicle, desc string
	var amount int64
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue invoice",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				inv, warnings, err := e.IssueInvoice(ctx, engine.InvoiceIssueOptions{
					IssuerID:    viper.GetString("actor-id"),
					PayerID:     payer,
					Vehicle:     vehicle,
					Description: desc,
					Amount:      amount,
				})
				if err != nil {
					return err
				}
				for _, w := range warnings {
					fmt.Fprintln(os.Stderr, "warning:", w)
				}
				return printJSONOrTable(inv)
			})
		},
	}
	cmd.Flags().StringVar(&payer, "payer", "", "payer id")
	cmd.Flags().StringVar(&vehicle, "vehicle", "", "vehicle description")
	cmd.Flags().StringVar(&desc, "description", "", "work description")
	cmd.Flags().Int64Var(&amount, "amount", 0, "amount in whole currency units")
	return cmd
}

func invoiceListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List invoices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListInvoices(ctx, status)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Payer", "Vehicle", "Amount", "Status", "Issuer"})
				for _, inv := range items {
					tw.AppendRow(table.Row{inv.ID, inv.PayerID, inv.Vehicle, inv.Amount, inv.Status, inv.IssuerID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	return cmd
}

func invoiceShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <invoice-id>",
		Short: "Show invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				inv, err := e.Repo.GetInvoice(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(inv)
			})
		},
	}
	return cmd
}

func invoiceResolveCmd(action string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   action + " <invoice-id>",
		Short: strings.ToUpper(action[:1]) + action[1:] + " an invoice (payer only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actorID := viper.GetString("actor-id")
				var inv domain.Invoice
				var err error
				if action == "pay" {
					inv, err = e.PayInvoice(ctx, args[0], actorID)
				} else {
					inv, err = e.DisputeInvoice(ctx, args[0], actorID)
				}
				if err != nil {
					return err
				}
				return printJSONOrTable(inv)
			})
		},
	}
	return cmd
}

func staffCmd() *cobra.Command {
	st := &cobra.Command{Use: "staff", Short: "Manage the staff roster"}
	st.AddCommand(staffHireCmd())
	st.AddCommand(staffPromoteCmd())
	st.AddCommand(staffFireCmd())
	st.AddCommand(staffListCmd())
	st.AddCommand(staffStatsCmd())
	return st
}

func staffHireCmd() *cobra.Command {
	var target, rank, specialty string
	cmd := &cobra.Command{
		Use:   "hire",
		Short: "Hire staff member",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.HireStaff(ctx, engine.StaffHireOptions{
					ActorID:   viper.GetString("actor-id"),
					Ranks:     cliRanks(ctx, e),
					TargetID:  target,
					Rank:      rank,
					Specialty: specialty,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	cmd.Flags().StringVar(&target, "actor", "", "actor id to hire")
	cmd.Flags().StringVar(&rank, "rank", "", "rank (trainee|junior|mechanic|senior|head|owner)")
	cmd.Flags().StringVar(&specialty, "specialty", "", "specialty, optional")
	return cmd
}

func staffPromoteCmd() *cobra.Command {
	var target, rank string
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Change a staff member's rank",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.PromoteStaff(ctx, engine.StaffRankOptions{
					ActorID:  viper.GetString("actor-id"),
					Ranks:    cliRanks(ctx, e),
					TargetID: target,
					Rank:     rank,
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(m)
			})
		},
	}
	cmd.Flags().StringVar(&target, "actor", "", "actor id")
	cmd.Flags().StringVar(&rank, "rank", "", "new rank")
	return cmd
}

func staffFireCmd() *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "fire",
		Short: "Remove a staff member",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.FireStaff(ctx, engine.StaffFireOptions{
					ActorID:  viper.GetString("actor-id"),
					Ranks:    cliRanks(ctx, e),
					TargetID: target,
				}); err != nil {
					return err
				}
				fmt.Printf("Removed %s from the roster\n", target)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&target, "actor", "", "actor id")
	return cmd
}

func staffListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List staff roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Roster(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Actor", "Rank", "Specialty", "Hired By", "Hired At"})
				for _, m := range items {
					tw.AppendRow(table.Row{m.ActorID, m.Rank, m.Specialty, m.HiredBy, m.HiredAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func staffStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <actor-id>",
		Short: "Mechanic activity stats",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				stats, err := e.Repo.StatsForMechanic(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(stats)
			})
		},
	}
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <daily|weekly|monthly>",
		Short: "Activity report for a period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := report.ParsePeriod(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				summary, err := report.Builder{Repo: e.Repo}.Build(ctx, period)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(summary)
				}
				fmt.Println(summary.Title())
				fmt.Println(summary.Render())
				return nil
			})
		},
	}
	return cmd
}

func announceCmd() *cobra.Command {
	var title, kind string
	cmd := &cobra.Command{
		Use:   "announce <message>",
		Short: "Post an announcement to the announcements surface",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ann, err := e.Announce(ctx, engine.AnnounceOptions{
					ActorID: viper.GetString("actor-id"),
					Ranks:   cliRanks(ctx, e),
					Title:   title,
					Body:    args[0],
					Kind:    kind,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(ann)
				}
				fmt.Printf("Announcement %s posted on %s\n", ann.ID, ann.Surface)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "announcement title")
	cmd.Flags().StringVar(&kind, "kind", "general", "general, event, maintenance, promo, or important")
	return cmd
}

func logCmd() *cobra.Command {
	lg := &cobra.Command{Use: "log", Short: "Event log"}
	lg.AddCommand(logTailCmd())
	return lg
}

func logTailCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.Repo.ListEvents(ctx, n)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "TS", "Type", "Entity", "Actor"})
				for _, evt := range events {
					tw.AppendRow(table.Row{evt.ID, evt.TS, evt.Type, evt.EntityKind + "/" + evt.EntityID, evt.ActorID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	return cmd
}

func apikeyCmd() *cobra.Command {
	ak := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	ak.AddCommand(apikeyCreateCmd())
	ak.AddCommand(apikeyListCmd())
	ak.AddCommand(apikeyDeleteCmd())
	return ak
}

func apikeyCreateCmd() *cobra.Command {
	var label, forActor string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				creator := viper.GetString("actor-id")
				actor := forActor
				if actor == "" {
					actor = creator
				}
				secret := uuid.New().String()
				key := domain.APIKey{
					ID:        uuid.New().String(),
					ActorID:   actor,
					Label:     label,
					CreatedBy: creator,
					KeyHash:   repo.HashAPIKey(secret),
					CreatedAt: time.Now().UTC().Format(time.RFC3339),
				}
				if err := r.InsertAPIKey(ctx, nil, key); err != nil {
					return err
				}
				// The secret is shown once and never stored.
				fmt.Printf("API key %s created for %s\nSecret: %s\n", key.ID, key.ActorID, secret)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "key label")
	cmd.Flags().StringVar(&forActor, "for", "", "actor the key authenticates as; defaults to --actor-id")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys for the actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListAPIKeys(ctx, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Label", "Created By", "Created"})
				for _, k := range items {
					tw.AppendRow(table.Row{k.ID, k.Label, k.CreatedBy, k.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func apikeyDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <key-id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteAPIKey(ctx, args[0])
			})
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var devLogin bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			appCtx, err := app.Open(app.Options{Workspace: viper.GetString("workspace")})
			if err != nil {
				return err
			}
			defer appCtx.Close()
			authCfg := server.AuthConfig{
				JWTSecret:      os.Getenv("GARAGEDESK_JWT_SECRET"),
				EnableDevLogin: devLogin,
			}
			if authCfg.JWTSecret == "" {
				return fmt.Errorf("GARAGEDESK_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{Engine: appCtx.Engine, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			scheduler := &report.Scheduler{
				Builder: report.Builder{Repo: appCtx.Engine.Repo},
				Gateway: appCtx.Engine.Notify.Gateway,
				Config:  appCtx.Config,
			}
			scheduler.Start(cmd.Context())
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Garagedesk API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().BoolVar(&devLogin, "dev-login", false, "enable the dev token endpoint")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	appCtx, err := app.Open(app.Options{Workspace: viper.GetString("workspace")})
	if err != nil {
		return err
	}
	defer appCtx.Close()
	return fn(ctx, appCtx.Engine)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	appCtx, err := app.Open(app.Options{Workspace: viper.GetString("workspace")})
	if err != nil {
		return err
	}
	defer appCtx.Close()
	return fn(ctx, appCtx.Engine.Repo)
}

// cliRanks resolves the actor's ranks from the --roles flag through the
// config role map, plus the roster rank when the actor is hired.
func cliRanks(ctx context.Context, e engine.Engine) []policy.Rank {
	var roleIDs []string
	for _, role := range strings.Split(viper.GetString("roles"), ",") {
		if role = strings.TrimSpace(role); role != "" {
			roleIDs = append(roleIDs, role)
		}
	}
	var ranks []policy.Rank
	if e.Config != nil {
		ranks = e.Config.RanksFor(roleIDs)
	}
	if m, err := e.Repo.GetStaff(ctx, viper.GetString("actor-id")); err == nil {
		if r := policy.ParseRank(m.Rank); r != policy.RankNone {
			ranks = append(ranks, r)
		}
	}
	return ranks
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
