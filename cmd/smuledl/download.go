package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ytget/smuledl"
)

var (
	flagOutput     string
	flagRateLimit  string
	flagNoProgress bool
)

var downloadCmd = &cobra.Command{
	Use:   "download <recording-url-or-ref>",
	Short: "Resolve a recording and save its media file",
	Long: `Resolve a recording and save its media file.
With no --output the file is named after the recording title and placed in
the configured download directory. Partial downloads resume from <file>.tmp.`,
	Args: cobra.ExactArgs(1),
	RunE: downloadRun,
}

func init() {
	downloadCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Output file or directory")
	downloadCmd.Flags().StringVar(&flagRateLimit, "rate-limit", "", "Download rate limit (e.g. 2MiB/s, 500KB/s)")
	downloadCmd.Flags().BoolVar(&flagNoProgress, "no-progress", false, "Disable progress output")
}

func downloadRun(cmd *cobra.Command, args []string) error {
	if flagRateLimit != "" {
		cfg.RateLimit = flagRateLimit
	}
	bps, err := cfg.RateLimitBytes()
	if err != nil {
		return err
	}

	out := flagOutput
	if out == "" {
		if out, err = cfg.ExpandDownloadDir(); err != nil {
			return err
		}
		if err := os.MkdirAll(out, 0o755); err != nil {
			return fmt.Errorf("creating download dir: %w", err)
		}
	}

	c := newSession()
	defer c.Close()

	r := newResolver(c).WithRateLimit(bps)
	if !flagNoProgress && !flagJSON {
		r = r.WithProgress(func(p smuledl.Progress) {
			if p.TotalSize > 0 {
				fmt.Fprintf(os.Stderr, "\rDownloaded %5.1f%% of %s", p.Percent, humanize.IBytes(uint64(p.TotalSize)))
			} else {
				fmt.Fprintf(os.Stderr, "\rDownloaded %s", humanize.IBytes(uint64(p.DownloadedSize)))
			}
		})
	}

	res, path, err := r.Download(cmd.Context(), input(args[0]), out)
	if !flagNoProgress && !flagJSON {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(cmd.OutOrStdout(), struct {
			*smuledl.Result
			Path string `json:"path"`
		}{res, path})
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Saved: %s\n", path)
	return err
}
