package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/eiannone/keyboard"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"

	"github.com/greatvovan/ios-backup-browser/internal/backup"
	"github.com/greatvovan/ios-backup-browser/internal/config"
	"github.com/greatvovan/ios-backup-browser/internal/export"
	"github.com/greatvovan/ios-backup-browser/internal/index"
	"github.com/greatvovan/ios-backup-browser/pkg/tables"
	"github.com/greatvovan/ios-backup-browser/pkg/version"
)

// confirmThreshold is the result count above which listing asks before
// printing.
const confirmThreshold = 1000

func main() {
	log.SetFlags(0)

	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}

	app := &cli.App{
		Name:                 "ibb",
		Usage:                "Browse and export the contents of an iOS device backup",
		Version:              version.Version,
		EnableBashCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a defaults file (ibb.yaml)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "version",
				Usage: "Print detailed version information",
				Action: func(c *cli.Context) error {
					fmt.Printf("Version:    %s\n", version.Version)
					fmt.Printf("Git commit: %s\n", version.GitCommit)
					fmt.Printf("Built:      %s\n", version.BuildTime)
					return nil
				},
			},
			{
				Name:      "export",
				Usage:     "Export files from the backup",
				ArgsUsage: "backup_path output_path",
				Flags: append(filterFlags(),
					&cli.BoolFlag{
						Name:  "ignore-missing",
						Usage: "Skip entries whose content is missing from the backup",
					},
					&cli.BoolFlag{
						Name:  "restore-dates",
						Usage: "Restore modified dates on exported entries",
					},
					&cli.BoolFlag{
						Name:  "restore-symlinks",
						Usage: "Recreate symbolic links",
					},
					&cli.IntFlag{
						Name:  "batch",
						Usage: "Rows fetched from the manifest per batch",
					},
					&cli.StringFlag{
						Name:  "minio-endpoint",
						Usage: "Upload to this MinIO/S3 endpoint instead of a local directory",
					},
					&cli.StringFlag{
						Name:  "minio-bucket",
						Usage: "Destination bucket",
					},
					&cli.StringFlag{
						Name:  "minio-folder",
						Usage: "Destination folder inside the bucket",
					},
					&cli.StringFlag{
						Name:  "minio-access-key",
						Usage: "MinIO access key",
					},
					&cli.StringFlag{
						Name:  "minio-secret-key",
						Usage: "MinIO secret key",
					},
					&cli.BoolFlag{
						Name:  "minio-insecure",
						Usage: "Connect without TLS",
					},
				),
				Action: handleExport,
			},
			{
				Name:  "inspect",
				Usage: "Inspect the backup without exporting",
				Subcommands: []*cli.Command{
					{
						Name:      "info",
						Usage:     "Show the backup summary",
						ArgsUsage: "backup_path",
						Action:    handleInspectInfo,
					},
					{
						Name:      "apps",
						Usage:     "List installed apps",
						ArgsUsage: "backup_path",
						Action:    handleInspectApps,
					},
					{
						Name:      "domains",
						Usage:     "List backup domains",
						ArgsUsage: "backup_path",
						Action:    handleInspectDomains,
					},
					{
						Name:      "namespaces",
						Usage:     "List namespaces of a domain",
						ArgsUsage: "domain backup_path",
						Action:    handleInspectNamespaces,
					},
					{
						Name:      "files",
						Usage:     "List backup files",
						ArgsUsage: "backup_path",
						Flags: append(filterFlags(),
							&cli.IntFlag{
								Name:  "batch",
								Usage: "Rows fetched from the manifest per batch",
							},
							&cli.BoolFlag{
								Name:    "yes",
								Aliases: []string{"y"},
								Usage:   "Do not ask before printing large result sets",
							},
						),
						Action: handleInspectFiles,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// filterFlags are shared by every command that queries the manifest.
func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "domain",
			Usage: "Filter by domain",
		},
		&cli.StringFlag{
			Name:  "namespace",
			Usage: "Filter by namespace",
		},
		&cli.StringFlag{
			Name:  "path",
			Usage: "Filter by device path",
		},
		&cli.BoolFlag{
			Name:  "like-syntax",
			Usage: "Interpret filters as SQLite LIKE expressions instead of prefixes",
		},
		&cli.BoolFlag{
			Name:  "case-sensitive",
			Usage: "Match filters case-sensitively",
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.Load(path)
	}
	return config.LoadDefault()
}

// filterFromFlags assembles the query filter and rejects invalid
// combinations before anything touches the manifest.
func filterFromFlags(c *cli.Context, cfg *config.Config, sorted bool) (index.Filter, error) {
	f := index.Filter{
		Domain:        c.String("domain"),
		Namespace:     c.String("namespace"),
		Path:          c.String("path"),
		Pattern:       c.Bool("like-syntax"),
		CaseSensitive: cfg.CaseSensitive || c.Bool("case-sensitive"),
		Sort:          sorted,
	}
	return f, f.Validate()
}

func batchSize(c *cli.Context, cfg *config.Config) int {
	if c.Int("batch") > 0 {
		return c.Int("batch")
	}
	return cfg.BatchSize
}

func minioFromFlags(c *cli.Context, cfg *config.Config) export.MinioConfig {
	m := export.MinioConfig{
		Endpoint:  cfg.Minio.Endpoint,
		Bucket:    cfg.Minio.Bucket,
		Folder:    cfg.Minio.Folder,
		AccessKey: cfg.Minio.AccessKey,
		SecretKey: cfg.Minio.SecretKey,
		Insecure:  cfg.Minio.Insecure,
	}
	if v := c.String("minio-endpoint"); v != "" {
		m.Endpoint = v
	}
	if v := c.String("minio-bucket"); v != "" {
		m.Bucket = v
	}
	if v := c.String("minio-folder"); v != "" {
		m.Folder = v
	}
	if v := c.String("minio-access-key"); v != "" {
		m.AccessKey = v
	}
	if v := c.String("minio-secret-key"); v != "" {
		m.SecretKey = v
	}
	if c.Bool("minio-insecure") {
		m.Insecure = true
	}
	return m
}

func handleExport(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	filter, err := filterFromFlags(c, cfg, false)
	if err != nil {
		return err
	}

	var sink export.Sink
	minioCfg := minioFromFlags(c, cfg)
	if minioCfg.Endpoint != "" {
		if c.NArg() != 1 {
			return fmt.Errorf("export to MinIO takes only the backup path argument")
		}
		if minioCfg.Bucket == "" {
			return fmt.Errorf("a destination bucket is required for MinIO export")
		}
		sink, err = export.NewMinioSink(minioCfg)
	} else {
		if c.NArg() != 2 {
			return fmt.Errorf("export requires backup path and output path arguments")
		}
		sink, err = export.NewFSSink(c.Args().Get(1))
	}
	if err != nil {
		return err
	}
	defer sink.Close()

	b := backup.Open(c.Args().Get(0))
	defer b.Close()

	opts := export.Options{
		IgnoreMissing:     c.Bool("ignore-missing"),
		RestoreTimestamps: c.Bool("restore-dates"),
		RestoreSymlinks:   c.Bool("restore-symlinks"),
		Progress:          isatty.IsTerminal(os.Stdout.Fd()),
	}
	count, err := b.Export(context.Background(), filter, sink, opts, batchSize(c, cfg))
	if err != nil {
		return err
	}

	fmt.Printf("%d entries processed\n", count)
	return nil
}

func handleInspectInfo(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("inspect info requires the backup path argument")
	}
	b := backup.Open(c.Args().Get(0))
	defer b.Close()
	summary, err := b.Summary()
	if err != nil {
		return err
	}
	tables.PrintSummary(summary)
	return nil
}

func handleInspectApps(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("inspect apps requires the backup path argument")
	}
	b := backup.Open(c.Args().Get(0))
	defer b.Close()
	info, err := b.Info()
	if err != nil {
		return err
	}
	tables.PrintApps(info.Apps())
	return nil
}

func handleInspectDomains(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("inspect domains requires the backup path argument")
	}
	b := backup.Open(c.Args().Get(0))
	defer b.Close()
	domains, err := b.Domains(context.Background())
	if err != nil {
		return err
	}
	tables.PrintList(domains)
	return nil
}

func handleInspectNamespaces(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("inspect namespaces requires domain and backup path arguments")
	}
	b := backup.Open(c.Args().Get(1))
	defer b.Close()
	namespaces, err := b.Namespaces(context.Background(), c.Args().Get(0))
	if err != nil {
		return err
	}
	tables.PrintList(namespaces)
	return nil
}

func handleInspectFiles(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("inspect files requires the backup path argument")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	filter, err := filterFromFlags(c, cfg, true)
	if err != nil {
		return err
	}

	b := backup.Open(c.Args().Get(0))
	defer b.Close()
	ctx := context.Background()

	count, err := b.ContentCount(ctx, filter)
	if err != nil {
		return err
	}

	if count > confirmThreshold && !c.Bool("yes") && isatty.IsTerminal(os.Stdin.Fd()) {
		fmt.Printf("Warning: this query will return %d records.\n", count)
		fmt.Print("Are you sure you want to print them [Y/n]? ")
		ok, err := confirm()
		fmt.Println()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	records, err := b.Content(ctx, filter, true, batchSize(c, cfg))
	if err != nil {
		return err
	}
	defer records.Close()

	if err := tables.PrintFiles(records); err != nil {
		return err
	}
	fmt.Printf("%d entries found\n", count)
	return nil
}

// confirm reads a single key; Enter, y and Y accept.
func confirm() (bool, error) {
	char, key, err := keyboard.GetSingleKey()
	if err != nil {
		return false, err
	}
	return char == 'y' || char == 'Y' || key == keyboard.KeyEnter, nil
}
