// Command inkwellctl manages stories through the HTTP API.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bryan-buckman/inkwell/internal/cli/output"
	"github.com/bryan-buckman/inkwell/internal/client"
	"github.com/bryan-buckman/inkwell/internal/config"
	"github.com/bryan-buckman/inkwell/internal/model"
	"github.com/bryan-buckman/inkwell/internal/present"
)

const usageText = `usage: inkwellctl <command> [flags]

commands:
  list                                         list stories, newest first
  get <id>                                     show one story
  create --title T --content C [--cover URL] [--media URL]
  update <id> [--title T] [--content C] [--cover URL]
  delete <id> [--yes]

common flags: --api URL, --format table|json`

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	if err := run(cfg, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// cli carries what every command needs once its flags are parsed.
type cli struct {
	cfg    *config.Config
	format *string
	in     io.Reader
	out    io.Writer
}

func run(cfg *config.Config, args []string, in io.Reader, out io.Writer) error {
	if len(args) == 0 {
		return usage()
	}
	c := &cli{cfg: cfg, in: in, out: out}
	switch args[0] {
	case "list":
		return c.cmdList(args[1:])
	case "get":
		return c.cmdGet(args[1:])
	case "create":
		return c.cmdCreate(args[1:])
	case "update":
		return c.cmdUpdate(args[1:])
	case "delete":
		return c.cmdDelete(args[1:])
	case "help", "-h", "--help":
		fmt.Fprintln(out, usageText)
		return nil
	default:
		return usage()
	}
}

func usage() error {
	return errors.New(usageText)
}

func (c *cli) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	c.cfg.ClientFlags(fs)
	c.format = fs.String("format", "", "output format: table or json (default by terminal)")
	return fs
}

// parse accepts the story id before or after the flags.
func (c *cli) parse(fs *flag.FlagSet, args []string, wantID bool) (string, string, error) {
	var id string
	if wantID && len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		id, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return "", "", err
	}
	rest := fs.Args()
	if wantID && id == "" && len(rest) > 0 {
		id, rest = rest[0], rest[1:]
	}
	if len(rest) > 0 {
		return "", "", fmt.Errorf("unexpected arguments: %s", strings.Join(rest, " "))
	}
	if wantID && strings.TrimSpace(id) == "" {
		return "", "", fmt.Errorf("usage: inkwellctl %s <id>", fs.Name())
	}
	format, err := output.Normalize(*c.format)
	if err != nil {
		return "", "", err
	}
	return id, format, nil
}

func (c *cli) client() *client.Client {
	return client.New(c.cfg.APIURL)
}

func timeoutCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func (c *cli) cmdList(args []string) error {
	fs := c.flags("list")
	_, format, err := c.parse(fs, args, false)
	if err != nil {
		return err
	}
	ctx, cancel := timeoutCtx()
	defer cancel()
	list, err := c.client().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch stories: %w", err)
	}
	return output.Stories(c.out, list, format)
}

func (c *cli) cmdGet(args []string) error {
	fs := c.flags("get")
	id, format, err := c.parse(fs, args, true)
	if err != nil {
		return err
	}
	ctx, cancel := timeoutCtx()
	defer cancel()
	s, err := c.client().Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch story: %w", err)
	}
	return output.Story(c.out, s, format)
}

func (c *cli) cmdCreate(args []string) error {
	fs := c.flags("create")
	title := fs.String("title", "", "story title")
	content := fs.String("content", "", "story content (markup allowed)")
	cover := fs.String("cover", "", "cover image URL")
	var media []string
	fs.Func("media", "image, video or YouTube URL to append (repeatable)", func(v string) error {
		media = append(media, v)
		return nil
	})
	_, format, err := c.parse(fs, args, false)
	if err != nil {
		return err
	}

	body := *content
	for _, m := range media {
		n := len([]rune(body))
		body, _ = present.InsertMedia(body, n, n, m)
	}
	if strings.TrimSpace(*title) == "" || strings.TrimSpace(body) == "" {
		return errors.New("Title & content required")
	}

	in := model.NewStory{Title: *title, Content: body}
	if cv := strings.TrimSpace(*cover); cv != "" {
		in.CoverImage = &cv
	}
	ctx, cancel := timeoutCtx()
	defer cancel()
	s, err := c.client().Create(ctx, in)
	if err != nil {
		return fmt.Errorf("failed to post story: %w", err)
	}
	return output.Story(c.out, s, format)
}

func (c *cli) cmdUpdate(args []string) error {
	fs := c.flags("update")
	title := fs.String("title", "", "new title")
	content := fs.String("content", "", "new content")
	cover := fs.String("cover", "", "new cover image URL")
	id, format, err := c.parse(fs, args, true)
	if err != nil {
		return err
	}

	var p model.StoryPatch
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			p.Title = title
		case "content":
			p.Content = content
		case "cover":
			p.CoverImage = cover
		}
	})
	if p.Title == nil && p.Content == nil && p.CoverImage == nil {
		return errors.New("nothing to update: pass --title, --content or --cover")
	}
	ctx, cancel := timeoutCtx()
	defer cancel()
	s, err := c.client().Update(ctx, id, p)
	if err != nil {
		return fmt.Errorf("failed to update: %w", err)
	}
	return output.Story(c.out, s, format)
}

func (c *cli) cmdDelete(args []string) error {
	fs := c.flags("delete")
	yes := fs.Bool("yes", false, "skip the confirmation prompt")
	id, format, err := c.parse(fs, args, true)
	if err != nil {
		return err
	}
	if !*yes && !c.confirm(fmt.Sprintf("Delete story %s? [y/N] ", id)) {
		fmt.Fprintln(c.out, "Cancelled.")
		return nil
	}
	ctx, cancel := timeoutCtx()
	defer cancel()
	d, err := c.client().Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete story: %w", err)
	}
	return output.Deleted(c.out, d, format)
}

func (c *cli) confirm(prompt string) bool {
	fmt.Fprint(c.out, prompt)
	line, err := bufio.NewReader(c.in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
