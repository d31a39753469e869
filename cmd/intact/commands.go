package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"intactcore/internal/core"
	"intactcore/internal/infra/persistence/postgres"
	"intactcore/internal/lifecycle"
	"intactcore/internal/records"
	"intactcore/pkg/domain"
)

const pubmedIdentifier = "MI:0446"

func (c *cli) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the storage schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Storage.Driver == string(core.StoragePostgres) {
				version, err := postgres.MigrateDSN(cmd.Context(), cfg.Storage.Postgres.DSN)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "postgres schema at version %d\n", version)
				return nil
			}
			return c.withApp(cmd, func(_ context.Context, a *app) error {
				fmt.Fprintf(c.out, "%s schema ready\n", a.cfg.Storage.Driver)
				return nil
			})
		},
	}
}

type acMinter interface {
	NextAC(ctx context.Context) (string, error)
}

func (c *cli) acCommand() *cobra.Command {
	ac := &cobra.Command{Use: "ac", Short: "Accession numbers"}
	var count int
	next := &cobra.Command{
		Use:   "next",
		Short: "Reserve and print the next accession numbers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 1 {
				return fmt.Errorf("count must be positive, got %d", count)
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				minter, ok := a.store.(acMinter)
				if !ok {
					return fmt.Errorf("storage driver %q does not mint accessions", a.cfg.Storage.Driver)
				}
				for range count {
					next, err := minter.NextAC(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintln(c.out, next)
				}
				return nil
			})
		},
	}
	next.Flags().IntVarP(&count, "count", "n", 1, "number of accessions to reserve")
	ac.AddCommand(next)
	return ac
}

func (c *cli) userCommand() *cobra.Command {
	user := &cobra.Command{Use: "user", Short: "Curators and reviewers"}
	var (
		roles              []string
		first, last, email string
	)
	add := &cobra.Command{
		Use:   "add <login>",
		Short: "Create or replace a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u := &domain.User{Login: args[0], FirstName: first, LastName: last, Email: email}
			for _, r := range roles {
				u.Roles = append(u.Roles, domain.Role(strings.ToUpper(r)))
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				saved, _, err := a.svc.SaveUser(ctx, u)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "%s %v\n", saved.Login, saved.Roles)
				return nil
			})
		},
	}
	add.Flags().StringSliceVar(&roles, "role", nil, "role to grant (repeatable): CURATOR, REVIEWER, COMPLEX_CURATOR, COMPLEX_REVIEWER, ADMIN")
	add.Flags().StringVar(&first, "first-name", "", "first name")
	add.Flags().StringVar(&last, "last-name", "", "last name")
	add.Flags().StringVar(&email, "email", "", "email address")
	user.AddCommand(add)
	return user
}

func (c *cli) publicationCommand() *cobra.Command {
	pub := &cobra.Command{Use: "publication", Short: "Publications"}
	var (
		label, actor, pubmed string
		interactions         []string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a publication and record its creation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if label == "" || actor == "" {
				return errors.New("--label and --actor are required")
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				p := &domain.Publication{ShortLabel: label}
				p.Creator = actor
				if pubmed != "" {
					db, err := pubmedTerm(ctx, a)
					if err != nil {
						return err
					}
					p.Xrefs = []domain.Xref{{Database: db, PrimaryID: pubmed}}
				}
				if len(interactions) > 0 {
					e := &domain.Experiment{ShortLabel: label + "-1"}
					p.AddExperiment(e)
					for _, l := range interactions {
						e.AddInteraction(&domain.Interaction{ShortLabel: l})
					}
				}
				stored, _, err := a.svc.CreatePublication(ctx, p)
				if err != nil {
					return err
				}
				if _, _, err := a.svc.Curate(ctx, domain.KindPublication, stored.AC, lifecycle.Create, core.CurationRequest{Actor: actor}); err != nil {
					return err
				}
				fmt.Fprintln(c.out, stored.AC)
				return nil
			})
		},
	}
	create.Flags().StringVar(&label, "label", "", "short label")
	create.Flags().StringVar(&actor, "actor", "", "login of the creating curator")
	create.Flags().StringVar(&pubmed, "pubmed", "", "pubmed identifier")
	create.Flags().StringSliceVar(&interactions, "interaction", nil, "short label of an interaction to add (repeatable)")

	show := &cobra.Command{
		Use:   "show <ac>",
		Short: "Print a publication graph as JSON records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(_ context.Context, a *app) error {
				p, ok := a.svc.GetPublication(args[0])
				if !ok {
					return domain.NotFoundError{Entity: domain.EntityPublication, ID: args[0]}
				}
				return writeJSON(c, records.Export(p))
			})
		},
	}
	pub.AddCommand(create, show)
	return pub
}

// pubmedTerm returns the pubmed database term, creating it on first use.
func pubmedTerm(ctx context.Context, a *app) (*domain.CvObject, error) {
	if cv, ok, err := a.svc.CvCache().ByIdentifier(ctx, domain.CvDatabase, pubmedIdentifier); err != nil || ok {
		return cv, err
	}
	cv, _, err := a.svc.CreateCvObject(ctx, &domain.CvObject{Class: domain.CvDatabase, Identifier: pubmedIdentifier, ShortLabel: "pubmed"})
	return cv, err
}

func (c *cli) lifecycleCommand() *cobra.Command {
	var req core.CurationRequest
	cmd := &cobra.Command{
		Use:   "lifecycle <transition> <kind> <ac>",
		Short: "Apply a curation transition to a publication or complex",
		Long:  "Transitions: " + strings.Join(transitionNames(), ", "),
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := lifecycle.ParseTransition(args[0])
			if err != nil {
				return err
			}
			kind, err := domain.ParseReleasableKind(args[1])
			if err != nil {
				return err
			}
			if req.Actor == "" {
				return errors.New("--actor is required")
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				n, res, err := a.svc.Curate(ctx, kind, args[2], t, req)
				for _, v := range res.Violations {
					fmt.Fprintf(c.errOut, "%s: %s: %s\n", v.Severity, v.Rule, v.Message)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "%s %s: %s -> %s\n", kind, args[2], statusName(n.From), n.To)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Actor, "actor", "", "login of the acting user")
	cmd.Flags().StringVar(&req.Target, "target", "", "login of the user assigned by assign_to_curator, change_owner or change_reviewer")
	cmd.Flags().StringVar(&req.Reason, "reason", "", "reason or note recorded with the event")
	return cmd
}

func transitionNames() []string {
	var out []string
	for _, t := range lifecycle.Transitions() {
		out = append(out, string(t))
	}
	return out
}

func statusName(s domain.Status) string {
	if s == "" {
		return "(none)"
	}
	return string(s)
}

func (c *cli) historyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history <kind> <ac>",
		Short: "Print the lifecycle events of a publication or complex",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseReleasableKind(args[0])
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(_ context.Context, a *app) error {
				events, err := a.svc.History(kind, args[1])
				if err != nil {
					return err
				}
				for _, e := range events {
					who := ""
					if e.Who != nil {
						who = e.Who.Login
					}
					line := fmt.Sprintf("%s\t%s\t%s", e.When.UTC().Format("2006-01-02T15:04:05Z"), e.Event, who)
					if e.Note != "" {
						line += "\t" + e.Note
					}
					fmt.Fprintln(c.out, line)
				}
				return nil
			})
		},
	}
}

func (c *cli) releasesCommand() *cobra.Command {
	var (
		withURL bool
		expiry  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "releases <kind> <ac>",
		Short: "List archived release documents",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseReleasableKind(args[0])
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				infos, err := a.archiver.List(ctx, kind, args[1])
				if err != nil {
					return err
				}
				for _, info := range infos {
					line := fmt.Sprintf("%s\t%d", info.Key, info.Size)
					if withURL {
						u, err := a.archiver.URL(ctx, info.Key, expiry)
						if err != nil {
							return err
						}
						line += "\t" + u
					}
					fmt.Fprintln(c.out, line)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&withURL, "url", false, "print a link to each document")
	cmd.Flags().DurationVar(&expiry, "expiry", 15*time.Minute, "validity of signed links")
	return cmd
}

func writeJSON(c *cli, v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
