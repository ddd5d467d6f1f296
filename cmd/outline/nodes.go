package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/starford/outline/internal"
	"github.com/starford/outline/internal/forest"
	"github.com/starford/outline/internal/models"
	"github.com/starford/outline/internal/nodeservice"
)

var markers = map[models.NodeType]string{
	models.TypeTodo:       "[ ] ",
	models.TypeInProgress: "[~] ",
	models.TypeDone:       "[x] ",
}

// withService opens the configured store for one command. One-shot commands
// log as text on stderr so stdout stays clean for output.
func withService(ctx context.Context, cmd *cli.Command, fn func(context.Context, *nodeservice.Service, io.Writer) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(cmd.Root().ErrWriter, &slog.HandlerOptions{Level: cfg.App.LogLevel}))
	svc, db, err := internal.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx, svc, cmd.Root().Writer)
}

func argID(cmd *cli.Command) (uuid.UUID, error) {
	raw := cmd.Args().First()
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%s: node id required", cmd.Name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: invalid node id %q", cmd.Name, raw)
	}
	return id, nil
}

func positionFlag(cmd *cli.Command) (*uint64, error) {
	raw := cmd.String("position")
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid position %q", raw)
	}
	return &v, nil
}

func placementFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "parent", Aliases: []string{"p"}, Usage: "Parent node id (omit for top level)"},
		&cli.StringFlag{Name: "rank", Usage: "Explicit 12-character base-36 rank key"},
		&cli.StringFlag{Name: "position", Usage: "Explicit rank as a decimal number"},
	}
}

func defaultAuthor() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cli"
}

func printNode(w io.Writer, n *models.Node) {
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", n.ID, n.Rank, n.Type, firstLine(n.Text))
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Create a node",
		ArgsUsage: "TEXT...",
		Flags: append(placementFlags(),
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Standard, Todo, InProgress or Done"},
			&cli.StringFlag{Name: "author", Usage: "Author name", Value: defaultAuthor()},
			&cli.StringFlag{Name: "source", Usage: "User, Agent or Application", Value: models.SourceUser.String()},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			text := strings.Join(cmd.Args().Slice(), " ")
			pos, err := positionFlag(cmd)
			if err != nil {
				return err
			}
			return withService(ctx, cmd, func(ctx context.Context, svc *nodeservice.Service, w io.Writer) error {
				n, err := svc.CreateNode(ctx, nodeservice.CreateNodeRequest{
					ParentID: cmd.String("parent"),
					Rank:     cmd.String("rank"),
					Position: pos,
					Type:     cmd.String("type"),
					Text:     text,
					Author:   cmd.String("author"),
					Source:   cmd.String("source"),
				})
				if err != nil {
					return err
				}
				printNode(w, n)
				return nil
			})
		},
	}
}

func treeCommand() *cli.Command {
	return &cli.Command{
		Name:  "tree",
		Usage: "Print the forest",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "ids", Usage: "Show node ids and rank keys"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withService(ctx, cmd, func(ctx context.Context, svc *nodeservice.Service, w io.Writer) error {
				f, err := svc.Forest(ctx)
				if err != nil {
					return err
				}
				printForest(w, f, cmd.Bool("ids"))
				return nil
			})
		},
	}
}

func printForest(w io.Writer, f *forest.Forest, ids bool) {
	f.Walk(func(el *forest.Element) bool {
		pad := strings.Repeat("  ", el.Depth)
		lines := strings.Split(el.Text, "\n")
		fmt.Fprintf(w, "%s- %s%s", pad, markers[el.Type], lines[0])
		if ids {
			fmt.Fprintf(w, "  (%s %s)", el.ID, el.Rank)
		}
		fmt.Fprintln(w)
		for _, l := range lines[1:] {
			fmt.Fprintf(w, "%s  %s\n", pad, l)
		}
		return true
	})
	if n := len(f.Dropped); n > 0 {
		fmt.Fprintf(w, "(%d unreachable nodes hidden)\n", n)
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List all nodes in creation order",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withService(ctx, cmd, func(ctx context.Context, svc *nodeservice.Service, w io.Writer) error {
				nodes, err := svc.ListNodes(ctx)
				if err != nil {
					return err
				}
				for i := range nodes {
					printNode(w, &nodes[i])
				}
				return nil
			})
		},
	}
}

func editCommand() *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Replace the text of a node",
		ArgsUsage: "ID TEXT...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "if-match", Usage: "Fail unless the node still has this etag"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := argID(cmd)
			if err != nil {
				return err
			}
			text := strings.Join(cmd.Args().Tail(), " ")
			return withService(ctx, cmd, func(ctx context.Context, svc *nodeservice.Service, w io.Writer) error {
				n, err := svc.UpdateNodeText(ctx, id, text, cmd.String("if-match"))
				if err != nil {
					return err
				}
				printNode(w, n)
				return nil
			})
		},
	}
}

func moveCommand() *cli.Command {
	return &cli.Command{
		Name:      "move",
		Usage:     "Move a node under another parent or to the top level",
		ArgsUsage: "ID",
		Flags:     placementFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := argID(cmd)
			if err != nil {
				return err
			}
			pos, err := positionFlag(cmd)
			if err != nil {
				return err
			}
			return withService(ctx, cmd, func(ctx context.Context, svc *nodeservice.Service, w io.Writer) error {
				n, err := svc.MoveNode(ctx, id, nodeservice.MoveNodeRequest{
					ParentID: cmd.String("parent"),
					Rank:     cmd.String("rank"),
					Position: pos,
				})
				if err != nil {
					return err
				}
				printNode(w, n)
				return nil
			})
		},
	}
}

func rmCommand() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "Delete a node; its children are hidden from the tree",
		ArgsUsage: "ID",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := argID(cmd)
			if err != nil {
				return err
			}
			return withService(ctx, cmd, func(ctx context.Context, svc *nodeservice.Service, w io.Writer) error {
				if err := svc.DeleteNode(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(w, "deleted %s\n", id)
				return nil
			})
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Full-text search over node text",
		ArgsUsage: "QUERY...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "limit", Value: "20", Usage: "Maximum number of results"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			limit, err := strconv.Atoi(cmd.String("limit"))
			if err != nil {
				return fmt.Errorf("invalid limit %q", cmd.String("limit"))
			}
			query := strings.Join(cmd.Args().Slice(), " ")
			return withService(ctx, cmd, func(ctx context.Context, svc *nodeservice.Service, w io.Writer) error {
				results, err := svc.Search(ctx, query, limit)
				if err != nil {
					return err
				}
				for i := range results {
					printNode(w, &results[i].Node)
				}
				return nil
			})
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write the forest as Markdown into the vault",
		ArgsUsage: "PATH",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Usage: "Frontmatter title"},
			&cli.StringFlag{Name: "author", Usage: "Frontmatter author"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withService(ctx, cmd, func(ctx context.Context, svc *nodeservice.Service, w io.Writer) error {
				res, err := svc.Export(ctx, nodeservice.ExportRequest{
					Path:   cmd.Args().First(),
					Title:  cmd.String("title"),
					Author: cmd.String("author"),
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "exported %d nodes to %s (%s)\n", res.Nodes, res.Path, res.Checksum)
				if res.Dropped > 0 {
					fmt.Fprintf(w, "skipped %d unreachable nodes\n", res.Dropped)
				}
				return nil
			})
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Create nodes from a Markdown outline in the vault",
		ArgsUsage: "PATH",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "parent", Aliases: []string{"p"}, Usage: "Attach imported items under this node"},
			&cli.StringFlag{Name: "author", Usage: "Author for imported nodes (defaults to frontmatter author)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withService(ctx, cmd, func(ctx context.Context, svc *nodeservice.Service, w io.Writer) error {
				res, err := svc.Import(ctx, nodeservice.ImportRequest{
					Path:     cmd.Args().First(),
					ParentID: cmd.String("parent"),
					Author:   cmd.String("author"),
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "imported %d nodes from %s\n", res.Created, res.Path)
				return nil
			})
		},
	}
}
