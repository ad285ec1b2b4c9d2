package main

import (
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/hpungsan/wrench/internal/config"
	"github.com/hpungsan/wrench/internal/errors"
	"github.com/hpungsan/wrench/internal/logger"
	"github.com/hpungsan/wrench/internal/mcp"
	"github.com/hpungsan/wrench/internal/ops"
	"github.com/hpungsan/wrench/internal/web"
)

// Output formats
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// newCLIApp creates the CLI application with all commands.
// cfg is used as-is for the MCP server; the other commands run on behalf of
// the local user and may read or write files anywhere.
func newCLIApp(db *sql.DB, cfg *config.Config, log *logger.Logger) *cli.App {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = logger.NewNop()
	}
	local := *cfg
	local.AllowUnsafePaths = true

	app := &cli.App{
		Name:                      "wrench",
		Usage:                     "Power tool repair outcome analytics",
		Version:                   Version,
		DisableSliceFlagSeparator: true,
		Commands: []*cli.Command{
			importCmd(db, &local),
			exportCmd(db, &local),
			appendCmd(&local),
			batchesCmd(db),
			recordsCmd(db, &local),
			statsCmd(db, &local),
			filtersCmd(db, &local),
			reportCmd(db, &local),
			normalizeCmd(),
			categorizeCmd(),
			uiCmd(db, &local, log),
			mcpCmd(db, cfg, log),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// Shared flags

func formatFlag() cli.Flag {
	return &cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Output format: table|json|yaml (default: table on a terminal, json otherwise)"}
}

func fileFlag() cli.Flag {
	return &cli.StringFlag{Name: "file", Usage: "Read records from this JSON array file instead of the database"}
}

func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{Name: "brand", Aliases: []string{"b"}, Usage: "Keep records of this brand (repeatable)"},
		&cli.StringSliceFlag{Name: "tool-type", Aliases: []string{"t"}, Usage: "Keep records of this tool type (repeatable)"},
		&cli.StringSliceFlag{Name: "component", Aliases: []string{"c"}, Usage: "Keep records with this component label (repeatable)"},
		&cli.StringSliceFlag{Name: "outcome", Aliases: []string{"o"}, Usage: "Keep records with this outcome: Successful|Failed|Pending (repeatable)"},
	}
}

func readFlags(extra ...cli.Flag) []cli.Flag {
	flags := append([]cli.Flag{fileFlag(), formatFlag()}, filterFlags()...)
	return append(flags, extra...)
}

func parseFilterFlags(c *cli.Context) ops.FilterInput {
	return ops.FilterInput{
		Brands:     c.StringSlice("brand"),
		ToolTypes:  c.StringSlice("tool-type"),
		Components: c.StringSlice("component"),
		Outcomes:   c.StringSlice("outcome"),
	}
}

// importCmd creates the import command.
func importCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Append the records of a JSON array file to the database as one batch",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "JSON file to import"},
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "Batch label (default: file name)"},
			formatFlag(),
		},
		Action: func(c *cli.Context) error {
			input := ops.ImportInput{Path: c.String("path")}
			if source := c.String("source"); source != "" {
				input.Source = &source
			}

			output, err := ops.Import(c.Context, db, cfg, input)
			if err != nil {
				return outputError(err)
			}

			if resolveFormat(c) == formatTable {
				_, err := fmt.Fprintf(c.App.Writer, "Imported %s records as batch %s (%s stored)\n",
					humanize.Comma(int64(output.Imported)), output.BatchID, humanize.Comma(int64(output.Total)))
				return err
			}
			return writeResult(c, output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write stored records to a JSON array file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output file (default: ~/.wrench/exports/<name>-<timestamp>.json)"},
			&cli.StringFlag{Name: "batch", Usage: "Export only this batch ID"},
			formatFlag(),
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, db, cfg, ops.ExportInput{
				Path:    c.String("path"),
				BatchID: c.String("batch"),
			})
			if err != nil {
				return outputError(err)
			}

			if resolveFormat(c) == formatTable {
				_, err := fmt.Fprintf(c.App.Writer, "Exported %s records to %s\n", humanize.Comma(int64(output.Count)), output.Path)
				return err
			}
			return writeResult(c, output)
		},
	}
}

// appendCmd creates the append command.
func appendCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "append",
		Usage: "Append the records of one JSON array file onto another",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "to", Required: true, Usage: "Accumulated JSON file (created if missing)"},
			&cli.StringFlag{Name: "from", Required: true, Usage: "JSON file with new records"},
			formatFlag(),
		},
		Action: func(c *cli.Context) error {
			output, err := ops.AppendFile(c.Context, cfg, ops.AppendFileInput{
				To:   c.String("to"),
				From: c.String("from"),
			})
			if err != nil {
				return outputError(err)
			}

			if resolveFormat(c) == formatTable {
				_, err := fmt.Fprintf(c.App.Writer, "Appended %s records to %s (%s total)\n",
					humanize.Comma(int64(output.Appended)), output.Path, humanize.Comma(int64(output.Total)))
				return err
			}
			return writeResult(c, output)
		},
	}
}

// batchesCmd creates the batches command.
func batchesCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "batches",
		Usage: "List import batches, newest first",
		Flags: []cli.Flag{formatFlag()},
		Action: func(c *cli.Context) error {
			output, err := ops.Batches(c.Context, db)
			if err != nil {
				return outputError(err)
			}
			return writeResult(c, output)
		},
	}
}

// recordsCmd creates the records command.
func recordsCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "records",
		Usage: "List normalized records",
		Flags: readFlags(
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum records to return"},
			&cli.IntFlag{Name: "offset", Value: 0, Usage: "Records to skip"},
		),
		Action: func(c *cli.Context) error {
			output, err := ops.List(c.Context, db, cfg, ops.ListInput{
				File:   c.String("file"),
				Filter: parseFilterFlags(c),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return writeResult(c, output)
		},
	}
}

// statsCmd creates the stats command.
func statsCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	kinds := make([]string, 0, len(ops.StatsKinds()))
	for _, k := range ops.StatsKinds() {
		kinds = append(kinds, string(k))
	}
	return &cli.Command{
		Name:      "stats",
		Usage:     "Aggregate records into one table",
		ArgsUsage: strings.Join(kinds, "|"),
		Flags:     readFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("exactly one kind is required: " + strings.Join(kinds, ", ")))
			}

			output, err := ops.Stats(c.Context, db, cfg, ops.StatsInput{
				Kind:   ops.StatsKind(c.Args().First()),
				File:   c.String("file"),
				Filter: parseFilterFlags(c),
			})
			if err != nil {
				return outputError(err)
			}
			return writeResult(c, output)
		},
	}
}

// filtersCmd creates the filters command.
func filtersCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "filters",
		Usage: "List the distinct values available for each filter",
		Flags: []cli.Flag{fileFlag(), formatFlag()},
		Action: func(c *cli.Context) error {
			output, err := ops.Filters(c.Context, db, cfg, c.String("file"))
			if err != nil {
				return outputError(err)
			}
			return writeResult(c, output)
		},
	}
}

// reportCmd creates the report command.
func reportCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Print a markdown report of the (filtered) records",
		Flags: append([]cli.Flag{fileFlag()}, append(filterFlags(),
			&cli.IntFlag{Name: "top", Value: ops.DefaultReportTop, Usage: "Rows per ranked table"},
			&cli.BoolFlag{Name: "html", Usage: "Render the report as HTML"},
		)...),
		Action: func(c *cli.Context) error {
			output, err := ops.Report(c.Context, db, cfg, ops.ReportInput{
				File:   c.String("file"),
				Filter: parseFilterFlags(c),
				Top:    c.Int("top"),
			})
			if err != nil {
				return outputError(err)
			}

			doc := output.Markdown
			if c.Bool("html") {
				if doc, err = ops.RenderReportHTML(doc); err != nil {
					return outputError(errors.NewInternal(err))
				}
			}
			_, err = io.WriteString(c.App.Writer, doc)
			return err
		},
	}
}

// normalizeCmd creates the normalize command.
func normalizeCmd() *cli.Command {
	return &cli.Command{
		Name:      "normalize",
		Usage:     "Map component descriptions to standard labels",
		ArgsUsage: "TEXT...",
		Flags:     []cli.Flag{formatFlag()},
		Action: func(c *cli.Context) error {
			output, err := ops.Normalize(c.Args().Slice())
			if err != nil {
				return outputError(err)
			}
			return writeResult(c, output)
		},
	}
}

// categorizeCmd creates the categorize command.
func categorizeCmd() *cli.Command {
	return &cli.Command{
		Name:      "categorize",
		Usage:     "Classify a failure reason",
		ArgsUsage: "TEXT",
		Flags:     []cli.Flag{formatFlag()},
		Action: func(c *cli.Context) error {
			var reason *string
			if c.NArg() > 0 {
				s := strings.Join(c.Args().Slice(), " ")
				reason = &s
			}
			return writeResult(c, ops.Categorize(reason))
		},
	}
}

// uiCmd creates the ui command.
func uiCmd(db *sql.DB, cfg *config.Config, log *logger.Logger) *cli.Command {
	return &cli.Command{
		Name:  "ui",
		Usage: "Serve the web dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: cfg.UIBind, Usage: "Listen address"},
			&cli.IntFlag{Name: "port", Value: cfg.UIPort, Usage: "Listen port"},
			fileFlag(),
		},
		Action: func(c *cli.Context) error {
			file := c.String("file")
			if file != "" {
				if err := ops.ValidatePath(file, ops.PathCheckRead, cfg); err != nil {
					return outputError(err)
				}
			}

			srv, err := web.NewServer(db, cfg, log, web.Options{
				Version: Version,
				Bind:    c.String("bind"),
				Port:    c.Int("port"),
				File:    file,
			})
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			return web.Run(srv, log)
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(db *sql.DB, cfg *config.Config, log *logger.Logger) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio",
		Action: func(c *cli.Context) error {
			return mcp.Run(db, cfg, Version, log)
		},
	}
}

// Helper functions

// resolveFormat returns the --format value, defaulting to table when
// writing to a terminal and JSON otherwise.
func resolveFormat(c *cli.Context) string {
	if f := strings.ToLower(strings.TrimSpace(c.String("format"))); f != "" {
		return f
	}
	if f, ok := c.App.Writer.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return formatTable
	}
	return formatJSON
}

// writeResult writes v in the selected format.
func writeResult(c *cli.Context, v any) error {
	switch format := resolveFormat(c); format {
	case formatTable:
		if s, ok := tableFor(v); ok {
			_, err := fmt.Fprintln(c.App.Writer, s)
			return err
		}
		return outputJSON(c.App.Writer, v)
	case formatJSON:
		return outputJSON(c.App.Writer, v)
	case formatYAML:
		return outputYAML(c.App.Writer, v)
	default:
		return outputError(errors.NewInvalidRequest(fmt.Sprintf("unknown format %q: must be table, json or yaml", format)))
	}
}

// outputJSON marshals result to w as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputYAML writes v as YAML using its JSON field names.
func outputYAML(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

// outputError formats error for CLI.
func outputError(err error) error {
	var wErr *errors.WrenchError
	if stderrors.As(err, &wErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", wErr.Code, wErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0)
}
