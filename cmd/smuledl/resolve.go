package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ytget/smuledl"
	"github.com/ytget/smuledl/errs"
	"github.com/ytget/smuledl/smule/extract"
	"github.com/ytget/smuledl/smule/page"
	"github.com/ytget/smuledl/types"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <recording-url-or-ref>",
	Short: "Print the direct media URL of a recording",
	Args:  cobra.ExactArgs(1),
	RunE:  resolveRun,
}

var infoCmd = &cobra.Command{
	Use:   "info <recording-url-or-ref>",
	Short: "Show page metadata and the media field without calling the redirect endpoint",
	Args:  cobra.ExactArgs(1),
	RunE:  infoRun,
}

func resolveRun(cmd *cobra.Command, args []string) error {
	c := newSession()
	defer c.Close()

	res, err := newResolver(c).ResolveURL(cmd.Context(), input(args[0]))
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), res)
	}

	out := cmd.OutOrStdout()
	if !cfg.Probe {
		_, err = fmt.Fprintln(out, res.Media.URL)
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n  type: %s\n  size: %s\n", res.Media.URL, orUnknown(res.Media.ContentType), size(res.Media.ContentLength))
	return err
}

// pageInfo is the info command's output.
type pageInfo struct {
	Reference types.Reference     `json:"reference"`
	Kind      string              `json:"kind"`
	PageURL   string              `json:"page_url"`
	Field     string              `json:"field,omitempty"`
	Token     types.Token         `json:"token,omitempty"`
	Info      types.RecordingInfo `json:"info"`
}

func infoRun(cmd *cobra.Command, args []string) error {
	ref, kind, err := types.ParseRecordingURL(input(args[0]))
	if err != nil {
		return err
	}

	c := newSession()
	defer c.Close()

	f := page.New(c)
	markup, err := f.Fetch(cmd.Context(), ref, kind)
	if err != nil {
		return err
	}

	pi := pageInfo{
		Reference: ref,
		Kind:      kind.String(),
		PageURL:   f.URL(ref, kind),
		Info:      extract.ExtractInfo(string(markup)),
	}
	m, err := extract.New().Match(string(markup))
	switch {
	case err == nil:
		pi.Field, pi.Token = m.Field, m.Token
	case errs.IsNotFound(err):
		if pi.Info.StreamURL != "" {
			pi.Field = smuledl.StreamField
		}
	default:
		return err
	}

	if flagJSON {
		return printJSON(cmd.OutOrStdout(), pi)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Page:   %s (%s)\n", pi.PageURL, pi.Kind)
	fmt.Fprintf(out, "Title:  %s\n", orUnknown(pi.Info.Title))
	if pi.Info.PerformanceType != "" {
		fmt.Fprintf(out, "Type:   %s\n", pi.Info.PerformanceType)
	}
	if pi.Info.Thumbnail != "" {
		fmt.Fprintf(out, "Cover:  %s\n", pi.Info.Thumbnail)
	}
	fmt.Fprintf(out, "Field:  %s\n", orUnknown(pi.Field))
	if pi.Info.StreamURL != "" {
		fmt.Fprintf(out, "Stream: %s\n", pi.Info.StreamURL)
	}
	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func size(n int64) string {
	if n < 0 {
		return "unknown"
	}
	return humanize.IBytes(uint64(n))
}
