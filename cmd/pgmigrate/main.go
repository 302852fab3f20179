package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/gopsql/logger"
	"github.com/gopsql/pgtable"
	"github.com/gopsql/standard"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

var (
	dbURL          string
	host           string
	port           int
	database       string
	user           string
	password       string
	sslMode        string
	table          string
	driverName     string
	acquireTimeout time.Duration
	verbose        bool
	dir            string
)

var rootCmd = &cobra.Command{
	Use:   "pgmigrate",
	Short: "Apply SQL migrations to a PostgreSQL database",
	Long: `pgmigrate applies each *.sql file of a directory at most once, in file name order,
recording applied migrations in a bookkeeping table. Connection flags default to
DBCONNSTR and the PG* environment variables.`,
	SilenceUsage: true,
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply pending migrations from a directory",
	RunE:  runApply,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List applied migrations",
	RunE:  runStatus,
}

func init() {
	env := pgtable.ConfigFromEnv()
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&dbURL, "db-url", env.URL, "PostgreSQL connection string (overrides host, port, database, user, password)")
	flags.StringVar(&host, "host", env.Host, "Database host")
	flags.IntVar(&port, "port", env.Port, "Database port (default 5432)")
	flags.StringVar(&database, "database", env.Database, "Database name")
	flags.StringVarP(&user, "user", "U", env.User, "Database user")
	flags.StringVar(&password, "password", env.Password, "Database password")
	flags.StringVar(&sslMode, "sslmode", env.SSLMode, "SSL mode")
	flags.StringVarP(&table, "table", "t", pgtable.DefaultMigrationTable, "Migration bookkeeping table")
	flags.StringVar(&driverName, "driver", "pgx", "Driver: pgx or pq")
	flags.DurationVar(&acquireTimeout, "timeout", pgtable.DefaultAcquireTimeout, "Connection acquire timeout")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Print SQL statements")

	applyCmd.Flags().StringVarP(&dir, "dir", "d", "migrations", "Directory of *.sql migration files")

	rootCmd.AddCommand(applyCmd, statusCmd)
}

func config() pgtable.Config {
	return pgtable.Config{
		URL:            dbURL,
		Host:           host,
		Port:           port,
		Database:       database,
		User:           user,
		Password:       password,
		SSLMode:        sslMode,
		MigrationTable: table,
		AcquireTimeout: acquireTimeout,
	}
}

func open(ctx context.Context, cfg pgtable.Config) (*pgtable.Database, error) {
	var options []interface{}
	if verbose {
		options = append(options, logger.StandardLogger)
	}
	switch driverName {
	case "pgx":
		return pgtable.Open(ctx, cfg, options...)
	case "pq":
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		c, err := sql.Open("postgres", cfg.ConnString())
		if err != nil {
			return nil, err
		}
		d := pgtable.FromDB(standard.NewDB("postgres", c), cfg, options...)
		conn, err := d.Acquire(ctx)
		if err != nil {
			d.Close()
			return nil, err
		}
		defer conn.Release()
		if err := d.Migrations().Init(ctx, conn); err != nil {
			conn.Release()
			d.Close()
			return nil, err
		}
		return d, nil
	}
	return nil, fmt.Errorf("unknown driver %q (must be pgx or pq)", driverName)
}

func runApply(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	d, err := open(ctx, config())
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer d.Close()

	conn, err := d.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	applied, err := d.Migrations().ApplyFS(ctx, conn, os.DirFS(dir), ".")
	for _, name := range applied {
		fmt.Fprintln(cmd.OutOrStdout(), "applied", name)
	}
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	if len(applied) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no pending migrations")
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	d, err := open(ctx, config())
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer d.Close()

	conn, err := d.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	records, err := d.Migrations().Applied(ctx, conn)
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	return printStatus(cmd.OutOrStdout(), records)
}

func printStatus(w io.Writer, records []pgtable.MigrationRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tAPPLIED AT")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\n", r.Name, r.AppliedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
