package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/telltale-dev/telltale/internal/assistant"
	"github.com/telltale-dev/telltale/internal/session"
	"github.com/telltale-dev/telltale/internal/statepath"
)

func newChatCmd() *cobra.Command {
	var (
		configPath string
		provider   string
		apiKey     string
	)

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Talk to the in-car assistant",
		Long:  "Sends a message to the assistant and prints the reply. With a message argument or piped stdin it runs one turn; on a terminal it opens an interactive conversation. State changes the model makes are applied server-side and mirrored locally.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, configPath, provider, apiKey, args)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (default: environment only)")
	cmd.Flags().StringVar(&provider, "provider", "", "assistant backend: google or azure (default: server default)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "provider API key override for this conversation")
	return cmd
}

func runChat(cmd *cobra.Command, configPath, provider, apiKey string, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	registry, err := client.Controls(ctx)
	if err != nil {
		return fmt.Errorf("fetch controls from %s: %w", cfg.Client.BaseURL, err)
	}
	sess, err := session.New(session.Opts{Registry: registry, Remote: client})
	if err != nil {
		return err
	}
	if err := sess.RefreshState(ctx); err != nil {
		return err
	}

	mgr, err := assistant.New(assistant.Opts{
		Relay:    client,
		Sink:     sess,
		Provider: provider,
		APIKey:   apiKey,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if message := strings.TrimSpace(strings.Join(args, " ")); message != "" {
		printChatResult(out, mgr.Send(ctx, message))
		return nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return err
		}
		message := strings.TrimSpace(string(data))
		if message == "" {
			return fmt.Errorf("message is required")
		}
		printChatResult(out, mgr.Send(ctx, message))
		return nil
	}

	return chatLoop(cmd, mgr, provider)
}

func chatLoop(cmd *cobra.Command, mgr *assistant.Manager, provider string) error {
	out := cmd.OutOrStdout()
	if provider == "" {
		provider = "server default"
	}
	fmt.Fprintf(out, "Telltale assistant (%s). Type a request, or \"exit\" to quit.\n", provider)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		printChatResult(out, mgr.Send(cmd.Context(), line))
	}
}

func printChatResult(out io.Writer, res assistant.Result) {
	if res.Failed && res.Status != "" {
		fmt.Fprintf(out, "! %s\n", res.Status)
	}
	fmt.Fprintln(out, res.Reply)

	if len(res.Updates) == 0 {
		return
	}
	flat := statepath.Flatten(res.Updates)
	paths := make([]string, 0, len(flat))
	for path := range flat {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		fmt.Fprintf(out, "  applied %s = %v\n", path, flat[path])
	}
}
