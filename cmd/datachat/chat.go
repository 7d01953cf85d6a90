package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tidalab/datachat/pkg/chat"
	"github.com/tidalab/datachat/pkg/controller"
	"github.com/tidalab/datachat/pkg/stream"
)

func newChatCmd(a *app) *cobra.Command {
	var (
		conversationID string
		attachments    []string
		jsonOut        bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(a, conversationID, attachments, jsonOut)
		},
	}
	cmd.Flags().StringVar(&conversationID, "conversation", "", "resume an existing conversation by id")
	cmd.Flags().StringSliceVar(&attachments, "attach", nil, "files to upload and attach to the first message")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit turn events as JSON lines")
	return cmd
}

func runChat(a *app, conversationID string, attachments []string, jsonOut bool) error {
	ctx := context.Background()

	conv, err := openConversation(ctx, a, conversationID)
	if err != nil {
		return err
	}

	var files []chat.FileRef
	if len(attachments) > 0 {
		files, err = a.client.UploadFiles(ctx, attachments)
		if err != nil {
			return fmt.Errorf("upload attachments: %w", err)
		}
		for _, f := range files {
			fmt.Fprintf(os.Stderr, "attached %s (%s)\n", f.Name, f.ID)
		}
	}

	// Ctrl-C cancels the in-flight turn instead of killing the REPL.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			a.controller.Cancel(conv.ID())
		}
	}()

	fmt.Fprintf(os.Stderr, "conversation %s (type a question, ctrl-d to quit)\n", conv.ID())

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		fmt.Fprint(os.Stderr, "> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		events := a.controller.Send(ctx, conv, text, files)
		files = nil // attachments ride on the first message only

		result := renderTurn(os.Stdout, events.Iterator(ctx), jsonOut)
		if result.Err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", result.Err)
		}
	}

	a.controller.CancelAll()
	slog.Debug("chat finished", "stats", a.stats.Snapshot())
	return scanner.Err()
}

func openConversation(ctx context.Context, a *app, conversationID string) (*chat.Conversation, error) {
	if conversationID == "" {
		info, err := a.client.CreateConversation(ctx)
		if err != nil {
			return nil, fmt.Errorf("create conversation: %w", err)
		}
		return chat.NewConversation(info.ID), nil
	}

	conv := chat.NewConversation(conversationID)
	history, err := a.client.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation %s: %w", conversationID, err)
	}
	for _, msg := range history {
		conv.Append(msg)
	}
	return conv, nil
}

// renderTurn consumes one turn's events and returns its result.
func renderTurn(out io.Writer, events <-chan stream.IterResult[controller.TurnEvent], jsonOut bool) controller.TurnResult {
	sawThinking := false
	var result controller.TurnResult

	for item := range events {
		if item.Done {
			break
		}
		event := item.Value

		if jsonOut {
			writeJSONLine(out, event)
			if event.Type == controller.TurnEventEnd {
				result = event.Result()
			}
			continue
		}

		switch event.Type {
		case controller.TurnEventThinking:
			if !sawThinking {
				fmt.Fprintln(out, "· thinking")
				sawThinking = true
			}
		case controller.TurnEventTextDelta:
			fmt.Fprint(out, event.Delta)
		case controller.TurnEventExecutionStart:
			fmt.Fprintf(out, "\n[step %d] running code\n", event.Execution.Step)
		case controller.TurnEventExecutionEnd:
			renderExecution(out, event.Execution)
		case controller.TurnEventEnd:
			fmt.Fprintln(out)
			if event.Outcome == controller.OutcomeCancelled {
				fmt.Fprintln(out, "(cancelled)")
			}
			result = event.Result()
		}
	}
	return result
}

func renderExecution(out io.Writer, ex *chat.Execution) {
	if ex == nil {
		return
	}
	if ex.Success {
		if ex.Output != "" {
			fmt.Fprintf(out, "[step %d] %s\n", ex.Step, strings.TrimRight(ex.Output, "\n"))
		}
		for _, f := range ex.Files {
			fmt.Fprintf(out, "[step %d] produced %s\n", ex.Step, f.Name)
		}
		return
	}
	fmt.Fprintf(out, "[step %d] failed: %s\n", ex.Step, ex.Error)
}

// writeJSONLine writes a JSON object followed by a newline.
func writeJSONLine(w io.Writer, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to encode event", "error", err)
		return
	}
	data = append(data, '\n')
	_, _ = w.Write(data)
}
