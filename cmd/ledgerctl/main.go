// Command ledgerctl is the operator tool: it verifies the ledger chain,
// applies schema migrations, mints bearer tokens and validates rule catalog
// files. It reads the same configuration as the server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	jwttoken "ledgerguard/internal/jwt_token"
	"ledgerguard/internal/ledger"
	"ledgerguard/internal/ledger/store/postgres"
	"ledgerguard/internal/platform/config"
	"ledgerguard/internal/platform/db"
	"ledgerguard/internal/platform/logger"
	"ledgerguard/internal/rules"
	id "ledgerguard/pkg/domain"
	"ledgerguard/pkg/platform/clock"
)

const usage = `usage: ledgerctl [-config path] <command> [flags]

commands:
  verify   [-from N] [-to N]       recompute digests and links over a sequence range
  migrate  up|down|version         manage the ledger schema
  token    -actor ID [-ttl 1h]     mint a bearer token for an actor
  rules    [-file path]            validate a catalog file and list its rules
`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "ledgerctl:", err)
		var integrity *ledger.ChainIntegrityError
		if errors.As(err, &integrity) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	global := flag.NewFlagSet("ledgerctl", flag.ContinueOnError)
	configPath := global.String("config", os.Getenv("LEDGERGUARD_CONFIG"), "path to config.yaml")
	global.Usage = func() { fmt.Fprint(global.Output(), usage) }
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return errors.New("missing command")
	}
	command, rest := global.Arg(0), global.Args()[1:]

	if command == "rules" {
		return rulesCmd(rest, out)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	switch command {
	case "verify":
		return verifyCmd(ctx, cfg, rest, out)
	case "migrate":
		return migrateCmd(ctx, cfg, rest, out)
	case "token":
		return tokenCmd(cfg, rest, out)
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func verifyCmd(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	from := fs.Int64("from", 0, "first sequence to verify")
	to := fs.Int64("to", -1, "last sequence to verify, negative for the head")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cfg.Database.DSN == "" {
		return errors.New("verify needs database.dsn; the in-memory ledger has nothing to verify")
	}

	sqlDB, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	log := logger.NewWithWriter(os.Stderr, cfg.Logging.Format, cfg.Logging.Level)
	chain := ledger.New(postgres.New(sqlDB), clock.System{}, ledger.WithLogger(log))
	result, verr := chain.Verify(ctx, *from, *to)
	if err := writeJSON(out, result); err != nil {
		return err
	}
	return verr
}

func migrateCmd(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("migrate needs one of up, down, version")
	}
	sqlDB, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if args[0] == "version" {
		version, dirty, err := db.MigrationVersion(sqlDB)
		if err != nil {
			return err
		}
		return writeJSON(out, map[string]any{"version": version, "dirty": dirty})
	}
	if err := db.RunMigrations(sqlDB, args[0]); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "migrations applied (%s)\n", args[0])
	return err
}

func tokenCmd(cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	actor := fs.String("actor", "", "actor identity recorded on ledger entries")
	ttl := fs.Duration("ttl", cfg.Auth.TokenTTL, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tokens := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
	token, err := tokens.GenerateAccessToken(id.ActorID(*actor), *ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}

type ruleView struct {
	Code          string         `json:"code"`
	Standard      rules.Standard `json:"standard"`
	Family        rules.Family   `json:"family"`
	Severity      rules.Severity `json:"severity"`
	Reference     string         `json:"reference"`
	EffectiveFrom string         `json:"effective_from"`
	InEffect      bool           `json:"in_effect"`
	Params        rules.Params   `json:"params"`
}

func rulesCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("rules", flag.ContinueOnError)
	file := fs.String("file", "", "catalog file merged over the built-in rules")
	if err := fs.Parse(args); err != nil {
		return err
	}
	catalog := rules.DefaultCatalog()
	if *file != "" {
		var err error
		if catalog, err = rules.LoadFile(catalog, *file); err != nil {
			return err
		}
	}
	now := time.Now()
	all := catalog.Rules()
	views := make([]ruleView, 0, len(all))
	for _, r := range all {
		views = append(views, ruleView{
			Code:          r.Code,
			Standard:      r.Standard,
			Family:        r.Family(),
			Severity:      r.Severity,
			Reference:     r.Reference,
			EffectiveFrom: r.EffectiveFrom.Format(time.DateOnly),
			InEffect:      r.InEffect(now),
			Params:        r.Params,
		})
	}
	return writeJSON(out, views)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
