// Package output prints API results for the command line.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mattn/go-isatty"

	"github.com/bryan-buckman/inkwell/internal/model"
)

const (
	FormatTable = "table"
	FormatJSON  = "json"
)

const titleWidth = 48

// DefaultFormat is table on a terminal, JSON otherwise.
func DefaultFormat() string {
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return FormatTable
	}
	return FormatJSON
}

// Normalize validates a --format value; empty picks the default.
func Normalize(format string) (string, error) {
	format = strings.TrimSpace(strings.ToLower(format))
	switch format {
	case "":
		return DefaultFormat(), nil
	case FormatTable, FormatJSON:
		return format, nil
	default:
		return "", errors.New("invalid --format value")
	}
}

// Stories prints a list.
func Stories(w io.Writer, list []model.Story, format string) error {
	if format == FormatJSON {
		return printJSON(w, list)
	}
	if len(list) == 0 {
		fmt.Fprintln(w, "No stories found.")
		return nil
	}
	fmt.Fprintln(w, "ID\tTITLE\tCOVER\tCREATED")
	for _, s := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.ID, truncate(s.Title, titleWidth), cover(s), s.CreatedAt.Local().Format(time.DateTime))
	}
	return nil
}

// Story prints one story with its content.
func Story(w io.Writer, s *model.Story, format string) error {
	if format == FormatJSON {
		return printJSON(w, s)
	}
	fmt.Fprintf(w, "ID:       %d\n", s.ID)
	fmt.Fprintf(w, "Title:    %s\n", s.Title)
	fmt.Fprintf(w, "Cover:    %s\n", cover(*s))
	fmt.Fprintf(w, "Created:  %s\n", s.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "Updated:  %s\n", s.UpdatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "\n%s\n", s.Content)
	return nil
}

// Deleted prints a delete confirmation.
func Deleted(w io.Writer, d *model.Deleted, format string) error {
	if format == FormatJSON {
		return printJSON(w, d)
	}
	fmt.Fprintf(w, "%s: %d %s\n", d.Message, d.Story.ID, d.Story.Title)
	return nil
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func cover(s model.Story) string {
	if s.CoverImage == nil || *s.CoverImage == "" {
		return "-"
	}
	return *s.CoverImage
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
