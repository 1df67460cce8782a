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

	"sipkl/internal/app"
	"sipkl/internal/auth"
	"sipkl/internal/config"
	"sipkl/internal/httpapi"
	"sipkl/internal/importer"
	"sipkl/internal/store"
)

var (
	migrateFunc = store.RunMigrations // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	cfg  config.App
	out  io.Writer
	open func(ctx context.Context) (*app.App, error)
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]              - run a goose command (up, down, status, version, redo, ...)")
	fmt.Fprintln(cli.out, "  import-students -file FILE.xlsx     - upsert students from a spreadsheet")
	fmt.Fprintln(cli.out, "  template -file FILE.xlsx            - write an empty student spreadsheet")
	fmt.Fprintln(cli.out, "  token -sub ID -role siswa|guru|admin - issue an access token")
	fmt.Fprintln(cli.out, "  auto-alpha                          - run the auto alpha pass once and print the result")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	importCmd := flag.NewFlagSet("import-students", flag.ContinueOnError)
	importFile := importCmd.String("file", "", "Path to the .xlsx file.")

	templateCmd := flag.NewFlagSet("template", flag.ContinueOnError)
	templateFile := templateCmd.String("file", "", "Path of the .xlsx file to create.")

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenSub := tokenCmd.String("sub", "", "Subject: the student id for siswa, the user id otherwise.")
	tokenRole := tokenCmd.String("role", "", "One of siswa, guru, admin.")
	tokenTTL := tokenCmd.Duration("ttl", cli.cfg.AccessTTL, "Token lifetime.")

	for _, fs := range []*flag.FlagSet{importCmd, templateCmd, tokenCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, args[2], args[3:])
	case "import-students":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importStudents(ctx, *importFile)
	case "template":
		if err := templateCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *templateFile == "" {
			templateCmd.Usage()
			return errHelp
		}
		return cli.template(*templateFile)
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenSub == "" || *tokenRole == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(*tokenSub, auth.Role(*tokenRole), *tokenTTL)
	case "auto-alpha":
		return cli.autoAlpha(ctx)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) migrate(ctx context.Context, command string, args []string) error {
	a, err := cli.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.DB == nil {
		return errors.New("migrate needs STORE_BACKEND=postgres")
	}
	return migrateFunc(ctx, a.DB.Client, command, args...)
}

func (cli *commandLine) importStudents(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	parsed, err := importer.Parse(f)
	if err != nil {
		return err
	}
	for _, re := range parsed.Errors {
		fmt.Fprintf(cli.out, "skipped %s\n", re)
	}

	a, err := cli.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := importer.Load(ctx, a.Backend, parsed.Students)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "imported %d students (%d rows skipped)\n", n, len(parsed.Errors))
	return nil
}

func (cli *commandLine) template(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := importer.Template(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (cli *commandLine) token(subject string, role auth.Role, ttl time.Duration) error {
	tok, err := auth.Issue(subject, role, cli.cfg.JWTIssuer, cli.cfg.JWTSigningKey, ttl)
	if err != nil {
		return err
	}
	return json.NewEncoder(cli.out).Encode(map[string]any{
		"access_token": tok.AccessToken,
		"expires_at":   tok.ExpiresAt.Unix(),
	})
}

func (cli *commandLine) autoAlpha(ctx context.Context) error {
	a, err := cli.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Reconciler().Run(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(httpapi.NewAutoAlphaResponse(res))
}
