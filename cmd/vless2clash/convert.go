package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/John-Robertt/vless2clash/internal/convert"
	"github.com/John-Robertt/vless2clash/internal/fetch"
	"github.com/John-Robertt/vless2clash/internal/render"
	"github.com/John-Robertt/vless2clash/internal/sub/vless"
)

func newConvertCmd(a *app) *cobra.Command {
	var (
		subURLs []string
		output  string
	)

	cmd := &cobra.Command{
		Use:   "convert [link...|-]",
		Short: "Convert links to a Clash proxies document",
		Long: `Convert vless:// links to a Clash proxies document written to stdout.

Links come from arguments, from stdin ("-" or no arguments), and from
subscription URLs given with --url. Stdin may hold one link per line or a
base64 encoded list.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.convert(cmd.Context(), cmd.InOrStdin(), args, subURLs)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = io.WriteString(cmd.OutOrStdout(), out)
				return err
			}
			if err := os.WriteFile(output, []byte(out), 0o644); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			a.logger.Info("wrote clash config", zap.String("path", output), zap.Int("bytes", len(out)))
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&subURLs, "url", "u", nil, "subscription URL to fetch (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func (a *app) convert(ctx context.Context, stdin io.Reader, args, subURLs []string) (string, error) {
	readStdin := len(args) == 0 && len(subURLs) == 0
	var inline []string
	for _, arg := range args {
		if arg == "-" {
			readStdin = true
			continue
		}
		inline = append(inline, arg)
	}

	// A lone link keeps single-link semantics.
	if len(inline) == 1 && !readStdin && len(subURLs) == 0 {
		return convert.Link(inline[0])
	}

	var links []vless.ParsedLink
	for _, raw := range inline {
		l, err := vless.Parse(strings.TrimSpace(raw))
		if err != nil {
			return "", err
		}
		links = append(links, l)
	}

	if readStdin {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		fromStdin, err := vless.ParseSubscriptionText("", string(data))
		if err != nil {
			return "", err
		}
		// So does a stdin holding exactly one link.
		if len(inline) == 0 && len(subURLs) == 0 && len(fromStdin) == 1 {
			return render.RenderClash(fromStdin)
		}
		links = append(links, fromStdin...)
	}

	opt := fetch.Options{
		Timeout:      a.cfg.Fetch.Timeout,
		MaxBytes:     a.cfg.Fetch.MaxBytes,
		MaxRedirects: a.cfg.Fetch.RedirectLimit(),
		UserAgent:    a.cfg.Fetch.UserAgent,
	}
	for _, u := range subURLs {
		text, err := fetch.FetchTextWithOptions(ctx, fetch.KindSubscription, u, opt)
		if err != nil {
			return "", err
		}
		fromSub, err := vless.ParseSubscriptionText(u, text)
		if err != nil {
			return "", err
		}
		a.logger.Debug("fetched subscription", zap.String("url", u), zap.Int("links", len(fromSub)))
		links = append(links, fromSub...)
	}

	return convert.Links(links)
}
