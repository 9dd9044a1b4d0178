package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/pdfarchiver/internal"
	"github.com/starford/pdfarchiver/internal/fuzzy"
	"github.com/starford/pdfarchiver/internal/naming"
	pkgconfig "github.com/starford/pdfarchiver/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

type parseOutput struct {
	Filename      string   `json:"filename"`
	Date          string   `json:"date,omitempty"`
	Specification string   `json:"specification,omitempty"`
	Tags          []string `json:"tags"`
	Complete      bool     `json:"complete"`
}

func parse(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return errors.New("parse: at least one file name is required")
	}
	locales := cmd.StringSlice("locale")
	if len(locales) == 0 {
		locales = naming.SystemLocales()
	}
	dates := naming.NewDateParser(locales...)

	enc := json.NewEncoder(cmd.Root().Writer)
	for _, name := range cmd.Args().Slice() {
		p := naming.StripPlaceholders(dates.ParseFilename(name))
		out := parseOutput{
			Filename:      name,
			Specification: p.Specification,
			Tags:          p.Tags,
			Complete:      naming.IsComplete(p),
		}
		if out.Tags == nil {
			out.Tags = []string{}
		}
		if p.HasDate() {
			out.Date = p.Date.Format(time.DateOnly)
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	return nil
}

func filename(_ context.Context, cmd *cli.Command) error {
	date, err := time.Parse(time.DateOnly, cmd.String("date"))
	if err != nil {
		return fmt.Errorf("filename: invalid date %q: want yyyy-MM-dd", cmd.String("date"))
	}
	_, err = fmt.Fprintln(cmd.Root().Writer, naming.CreateFilename(date, cmd.String("specification"), cmd.StringSlice("tag")))
	return err
}

// match filters lines read from stdin, best match first.
func match(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return errors.New("match: exactly one query is required")
	}
	lines, err := readLines(cmd.Root().Reader)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(cmd.Root().Writer)
	for _, line := range fuzzy.FindSorted(lines, cmd.Args().First()) {
		fmt.Fprintln(w, line)
	}
	return w.Flush()
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

func newCommand() *cli.Command {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}

	return &cli.Command{
		Name:   "pdfarchiver",
		Usage:  "PDF archive with metadata in file names, fuzzy search and an MCP tool server",
		Action: serve,
		Flags:  []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API and the archive watcher (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve archive tools over MCP stdio",
				Action: serveMCP,
			},
			{
				Name:      "parse",
				Usage:     "Print date, specification and tags parsed from file names",
				ArgsUsage: "<filename>...",
				Action:    parse,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "locale",
						Usage: "Locale for month names, repeatable (default: $LANG)",
					},
				},
			},
			{
				Name:   "filename",
				Usage:  "Print the canonical file name for the given metadata",
				Action: filename,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Usage: "Document date (yyyy-MM-dd)", Required: true},
					&cli.StringFlag{Name: "specification", Aliases: []string{"s"}, Usage: "Short description"},
					&cli.StringSliceFlag{Name: "tag", Aliases: []string{"t"}, Usage: "Tag, repeatable"},
				},
			},
			{
				Name:      "match",
				Usage:     "Fuzzy filter lines from stdin, best match first",
				ArgsUsage: "<query>",
				Action:    match,
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
