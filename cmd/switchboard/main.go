package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/switchboard-ai/switchboard/config"
	"github.com/switchboard-ai/switchboard/llm"
	"github.com/switchboard-ai/switchboard/logger"
)

var (
	configPath   string
	providerName string
	modelName    string
	systemPrompt string
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "switchboard",
		Short:        "Talk to LLM backends through the neutral provider layer",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "switchboard.yaml", "path to config file")
	root.PersistentFlags().StringVar(&providerName, "provider", llm.ProviderOpenAI, "backend to use (openai, gemini)")
	root.PersistentFlags().StringVar(&modelName, "model", "", "model override (defaults to the provider's configured model)")

	chatCmd := &cobra.Command{
		Use:   "chat [prompt]",
		Short: "Send a single completion request and print the response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), strings.Join(args, " "), false)
		},
	}
	chatCmd.Flags().StringVar(&systemPrompt, "system", "", "system prompt")

	streamCmd := &cobra.Command{
		Use:   "stream [prompt]",
		Short: "Send a completion request and print chunks as they arrive",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), strings.Join(args, " "), true)
		},
	}
	streamCmd.Flags().StringVar(&systemPrompt, "system", "", "system prompt")

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "List the models the selected backend offers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runModels(cmd.Context())
		},
	}

	root.AddCommand(chatCmd, streamCmd, modelsCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func setup() (llm.Provider, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, err := logger.InitWithOptions(cfg.LogFile, false)
	if err != nil {
		return nil, err
	}
	provider, err := config.NewProvider(providerName, cfg, log)
	if err != nil {
		return nil, err
	}
	if !provider.IsReady() {
		return nil, fmt.Errorf("provider %s has no credential configured", providerName)
	}
	return provider, nil
}

func buildRequest(prompt string) *llm.Request {
	var messages []llm.Message
	if systemPrompt != "" {
		messages = append(messages, llm.NewTextMessage(llm.RoleSystem, systemPrompt))
	}
	messages = append(messages, llm.NewTextMessage(llm.RoleUser, prompt))
	return &llm.Request{Model: modelName, Messages: messages}
}

func runChat(ctx context.Context, prompt string, streaming bool) error {
	provider, err := setup()
	if err != nil {
		return err
	}
	req := buildRequest(prompt)

	if !streaming {
		resp, err := provider.Complete(ctx, req)
		if err != nil {
			return err
		}
		fmt.Println(resp.Content)
		for _, tc := range resp.ToolCalls {
			fmt.Printf("[tool call] %s(%s)\n", tc.Name, tc.Arguments)
		}
		return nil
	}

	stream, err := provider.Stream(ctx, req)
	if err != nil {
		return err
	}
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Chunk()
		if chunk.Content != "" {
			fmt.Print(chunk.Content)
		}
		if chunk.Done {
			fmt.Println()
		}
	}
	return stream.Err()
}

func runModels(ctx context.Context) error {
	provider, err := setup()
	if err != nil {
		return err
	}
	models, err := provider.Models(ctx)
	if err != nil {
		return err
	}
	for _, m := range models {
		fmt.Println(m)
	}
	return nil
}
