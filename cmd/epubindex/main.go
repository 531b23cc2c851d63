package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/bornholm/go-x/slogx"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	epub "github.com/simp-lee/epubindex"
	"github.com/simp-lee/epubindex/internal/config"
)

func main() {
	app := &cli.App{
		Name:  "epubindex",
		Usage: "Inspect the reading sequence and table of contents of ePub files",
		Before: func(ctx *cli.Context) error {
			conf, err := config.Parse()
			if err != nil {
				return errors.Wrap(err, "could not parse config")
			}

			level := conf.Logger.Level
			if ctx.IsSet("log-level") {
				if err := level.UnmarshalText([]byte(ctx.String("log-level"))); err != nil {
					return errors.Wrap(err, "invalid log level")
				}
			}

			logger := slog.New(slogx.ContextHandler{
				Handler: slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
					Level:     level,
					AddSource: true,
				}),
			})
			slog.SetDefault(logger)

			ctx.App.Metadata = map[string]any{"config": conf}

			return nil
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"EPUBINDEX_CLI_LOG_LEVEL"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Commands: []*cli.Command{
			infoCommand(),
			pagesCommand(),
			tocCommand(),
			findCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("command failed", slogx.Error(err))
		os.Exit(1)
	}
}

// withDocument opens the archive named by the first argument and runs fn.
func withDocument(ctx *cli.Context, fn func(doc *epub.Document) error) error {
	path := ctx.Args().First()
	if path == "" {
		return errors.New("missing ePub file argument")
	}

	var opts []epub.Option
	if conf, ok := ctx.App.Metadata["config"].(*config.Config); ok {
		opts = conf.Options()
	}
	opts = append(opts, epub.WithLogger(slog.Default()))

	doc, err := epub.Open(path, opts...)
	if err != nil {
		return errors.WithStack(err)
	}
	defer doc.Close()

	for _, w := range doc.Warnings() {
		slog.Warn(w, slog.String("file", path))
	}

	return fn(doc)
}

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "Print document information",
		ArgsUsage: "<file>",
		Action: func(ctx *cli.Context) error {
			return withDocument(ctx, func(doc *epub.Document) error {
				info := doc.Info()
				w := ctx.App.Writer
				fmt.Fprintf(w, "Title:     %s\n", info.Title)
				fmt.Fprintf(w, "Author:    %s\n", info.Author)
				fmt.Fprintf(w, "Subject:   %s\n", info.Subject)
				fmt.Fprintf(w, "Creator:   %s\n", info.Creator)
				fmt.Fprintf(w, "Format:    %s\n", info.Format)
				fmt.Fprintf(w, "Pages:     %d\n", info.PageCount)
				fmt.Fprintf(w, "Extracted: %s\n", humanize.Bytes(uint64(doc.ExtractedSize())))
				return nil
			})
		},
	}
}

func pagesCommand() *cli.Command {
	return &cli.Command{
		Name:      "pages",
		Usage:     "List the reading sequence",
		ArgsUsage: "<file>",
		Action: func(ctx *cli.Context) error {
			return withDocument(ctx, func(doc *epub.Document) error {
				for i := 0; i < doc.PageCount(); i++ {
					p, err := doc.Page(i)
					if err != nil {
						return errors.WithStack(err)
					}
					fmt.Fprintf(ctx.App.Writer, "%d\t%s\t%s\n", p.Index, p.ID, p.Href)
				}
				return nil
			})
		},
	}
}

func tocCommand() *cli.Command {
	return &cli.Command{
		Name:      "toc",
		Usage:     "Print the table of contents with resolved pages",
		ArgsUsage: "<file>",
		Action: func(ctx *cli.Context) error {
			return withDocument(ctx, func(doc *epub.Document) error {
				root := doc.LinksTree()
				printNavEntries(ctx, []epub.NavEntry{root}, 0)
				return nil
			})
		},
	}
}

func printNavEntries(ctx *cli.Context, entries []epub.NavEntry, depth int) {
	for _, e := range entries {
		page := "-"
		if e.Resolved() {
			page = fmt.Sprint(e.Page)
		}
		fmt.Fprintf(ctx.App.Writer, "%s%s\t%s\n", strings.Repeat("  ", depth), e.Label, page)
		printNavEntries(ctx, e.Children, depth+1)
	}
}

func findCommand() *cli.Command {
	return &cli.Command{
		Name:      "find",
		Usage:     "List the pages containing a text",
		ArgsUsage: "<file> <text>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "case-sensitive",
				Usage: "Match case exactly",
			},
		},
		Action: func(ctx *cli.Context) error {
			query := ctx.Args().Get(1)
			if query == "" {
				return errors.New("missing text argument")
			}
			return withDocument(ctx, func(doc *epub.Document) error {
				for i := 0; i < doc.PageCount(); i++ {
					found, err := doc.FindText(i, query, ctx.Bool("case-sensitive"))
					if err != nil {
						slog.Warn("could not search page", slog.Int("page", i), slogx.Error(err))
						continue
					}
					if found {
						p, _ := doc.Page(i)
						fmt.Fprintf(ctx.App.Writer, "%d\t%s\n", p.Index, p.Href)
					}
				}
				return nil
			})
		},
	}
}
