package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gosuri/uitable"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text, json or yaml)", s)
	}
}

// Render writes rep to w in the given format.
func Render(w io.Writer, rep *Report, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return err
		}
		return enc.Close()
	case FormatText, "":
		return renderText(w, rep)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func renderText(w io.Writer, rep *Report) error {
	if rep.Action == "list" {
		return renderListing(w, rep)
	}
	table := uitable.New()
	table.MaxColWidth = 80
	table.Wrap = true
	table.AddRow("RESOURCE", "CREATED", "DELETED", "NOTE")
	for _, res := range rep.Resources {
		note := res.Error
		if note == "" && len(res.Skipped) > 0 {
			note = "skipped " + strings.Join(res.Skipped, ", ")
		}
		table.AddRow(res.Name, fmt.Sprintf("%d/%d", res.Succeeded, res.Total), res.Deleted, note)
	}
	if _, err := fmt.Fprintln(w, table); err != nil {
		return err
	}
	prefix := ""
	if rep.DryRun {
		prefix = "[dry-run] "
	}
	_, err := fmt.Fprintf(w, "%s%s %s: %d/%d created, %d deleted in %s\n",
		prefix, rep.Domain, rep.Action, rep.Succeeded, rep.Total, rep.Deleted, rep.Duration().Round(time.Second))
	return err
}

func renderListing(w io.Writer, rep *Report) error {
	now := rep.FinishedAt
	for i, res := range rep.Resources {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		header := "== " + res.Name
		if res.Locality != "" {
			header += " (" + res.Locality + ")"
		}
		if _, err := fmt.Fprintln(w, header); err != nil {
			return err
		}
		if res.Error != "" {
			if _, err := fmt.Fprintf(w, "  error: %s\n", res.Error); err != nil {
				return err
			}
			continue
		}
		if len(res.Groups) == 0 {
			if _, err := fmt.Fprintln(w, "  no artifacts"); err != nil {
				return err
			}
			continue
		}
		table := uitable.New()
		table.MaxColWidth = 60
		table.AddRow("KEY", "NAME", "CREATED", "EXPIRES", "SIZE", "STATUS", "ORIGIN")
		for _, g := range res.Groups {
			for _, a := range g.Artifacts {
				expires := "-"
				if a.ExpiresAt != nil {
					expires = humanize.RelTime(*a.ExpiresAt, now, "ago", "from now")
				}
				size := "-"
				if a.SizeBytes > 0 {
					size = humanize.IBytes(uint64(a.SizeBytes))
				}
				table.AddRow(g.Key, a.Name, humanize.RelTime(a.CreatedAt, now, "ago", "from now"), expires, size, a.Status, a.Origin)
			}
		}
		if _, err := fmt.Fprintln(w, table); err != nil {
			return err
		}
	}
	return nil
}
