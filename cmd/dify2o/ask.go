package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/LubyRuffy/dify2o/dify"
	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/spf13/cobra"
)

type askOptions struct {
	system       string
	user         string
	conversation string
	noStream     bool
}

func newAskCmd(a *app) *cobra.Command {
	var opts askOptions
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Send one question to the Dify app and print the answer",
		Long: `直接通过 dify.ChatModel 调用 Dify，不经过 HTTP 兼容层，便于确认 App Key 与 Dify 应用配置。

Examples:
  dify2o ask "你好，介绍一下你自己"
  dify2o ask --system "answer in english" "what is dify?"
  dify2o ask --no-stream "hi"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return a.ask(ctx, cmd.OutOrStdout(), strings.Join(args, " "), opts)
		},
	}
	cmd.Flags().StringVar(&opts.system, "system", "", "system prompt prepended to the conversation")
	cmd.Flags().StringVar(&opts.user, "user", "", "dify user id (default: chat.default_user)")
	cmd.Flags().StringVar(&opts.conversation, "conversation-id", "", "reuse an existing dify conversation")
	cmd.Flags().BoolVar(&opts.noStream, "no-stream", false, "use blocking mode")
	return cmd
}

func (a *app) ask(ctx context.Context, out io.Writer, question string, opts askOptions) error {
	key, err := a.keyProvider.APIKey(ctx)
	if err != nil {
		return fmt.Errorf("dify api key not available: %w", err)
	}
	client, err := dify.NewClient(dify.Config{
		BaseURL: a.cfg.Dify.BaseURL,
		APIKey:  key,
		Timeout: a.cfg.Dify.Timeout,
	})
	if err != nil {
		return err
	}
	user := opts.user
	if strings.TrimSpace(user) == "" {
		user = a.cfg.Chat.DefaultUser
	}
	m, err := dify.NewChatModel(dify.ChatModelConfig{
		Client:         client,
		User:           user,
		ConversationID: opts.conversation,
	})
	if err != nil {
		return err
	}
	return runAsk(ctx, m, out, askMessages(opts.system, question), !opts.noStream)
}

func askMessages(system, question string) []*schema.Message {
	var msgs []*schema.Message
	if strings.TrimSpace(system) != "" {
		msgs = append(msgs, schema.SystemMessage(system))
	}
	return append(msgs, schema.UserMessage(question))
}

func runAsk(ctx context.Context, m einoModel.BaseChatModel, out io.Writer, msgs []*schema.Message, stream bool) error {
	if !stream {
		msg, err := m.Generate(ctx, msgs)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, msg.Content)
		printUsage(msg.ResponseMeta)
		return nil
	}

	sr, err := m.Stream(ctx, msgs)
	if err != nil {
		return err
	}
	defer sr.Close()

	var meta *schema.ResponseMeta
	for {
		msg, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		if msg.Content != "" {
			fmt.Fprint(out, msg.Content)
		}
		if msg.ResponseMeta != nil {
			meta = msg.ResponseMeta
		}
	}
	fmt.Fprintln(out)
	printUsage(meta)
	return nil
}

func printUsage(meta *schema.ResponseMeta) {
	if meta == nil || meta.Usage == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "tokens: prompt=%d completion=%d total=%d\n",
		meta.Usage.PromptTokens, meta.Usage.CompletionTokens, meta.Usage.TotalTokens)
}
