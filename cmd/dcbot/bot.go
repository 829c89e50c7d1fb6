package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iiimabbie/dcbot/chathistory"
	"github.com/iiimabbie/dcbot/commands"
	"github.com/iiimabbie/dcbot/discord"
	"github.com/iiimabbie/dcbot/flows"
	"github.com/iiimabbie/dcbot/gemini"
	discordruntime "github.com/iiimabbie/dcbot/internal/channelruntime/discord"
	"github.com/iiimabbie/dcbot/internal/logutil"
	"github.com/iiimabbie/dcbot/persona"
	"github.com/iiimabbie/dcbot/prompt"
)

func newBotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Connect to the Discord gateway and chat via Gemini",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			token := strings.TrimSpace(viper.GetString("discord.bot_token"))
			if token == "" {
				return fmt.Errorf("missing discord.bot_token (set via --discord-bot-token or DCBOT_DISCORD_BOT_TOKEN)")
			}
			apiKey := strings.TrimSpace(viper.GetString("gemini.api_key"))
			if apiKey == "" {
				return fmt.Errorf("missing gemini.api_key (set via --gemini-api-key or DCBOT_GEMINI_API_KEY)")
			}

			var profile persona.Profile
			if path := strings.TrimSpace(viper.GetString("bot.persona_file")); path != "" {
				profile, err = persona.Load(path)
				if err != nil {
					return fmt.Errorf("load persona: %w", err)
				}
			}
			botName := strings.TrimSpace(viper.GetString("bot.name"))
			if botName == "" {
				botName = profile.Name
			}

			client := gemini.NewClient(gemini.Config{
				Endpoint:       viper.GetString("gemini.endpoint"),
				APIKey:         apiKey,
				MaxAttempts:    viper.GetInt("gemini.max_attempts"),
				RetryBase:      viper.GetDuration("gemini.retry_base"),
				RequestTimeout: viper.GetDuration("gemini.request_timeout"),
				Generation:     gemini.DefaultGenerationConfig(),
				Safety:         gemini.DefaultSafetySettings(),
			}, logger)

			httpClient := &http.Client{Timeout: 60 * time.Second}
			api := discord.NewAPI(httpClient, discord.DefaultBaseURL, token)

			store := chathistory.NewStore(viper.GetInt("history.cap"))
			flowReg := flows.NewRegistry(viper.GetDuration("flows.ttl"))

			cmdReg := commands.NewRegistry(logger, api)
			cmdReg.Register(commands.NewHelpCommand(cmdReg, flowReg))
			cmdReg.Register(commands.NewPingCommand(api))
			cmdReg.Register(commands.NewStatusCommand(api, store, version))
			cmdReg.Register(commands.NewResetCommand(api, store, logger))
			cmdReg.Register(commands.NewClearCommand(api, flowReg, logger))

			rt, err := discordruntime.New(discordruntime.Dependencies{
				Logger:    logger,
				API:       api,
				Generator: client,
				History:   store,
				Assembler: prompt.Assembler{
					Persona: profile.Prompt,
					BotName: botName,
					Ack:     profile.Ack,
				},
				Commands: cmdReg,
				Flows:    flowReg,
			}, discordruntime.Options{
				MaxConcurrency: viper.GetInt("runtime.max_concurrency"),
				TaskTimeout:    viper.GetDuration("runtime.task_timeout"),
				TypingInterval: viper.GetDuration("runtime.typing_interval"),
				AckEmoji:       viper.GetString("runtime.ack_emoji"),
				ErrorEmoji:     viper.GetString("runtime.error_emoji"),
				FlowPrune:      viper.GetDuration("flows.prune_interval"),
				HealthListen:   viper.GetString("health.listen"),
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := rt.Start(ctx); err != nil {
				return err
			}

			intents := discord.IntentGuilds | discord.IntentGuildMessages |
				discord.IntentDirectMessages | discord.IntentMessageContent
			gateway := discord.NewGateway(api, token, intents, logger, discord.Handlers{
				OnReady:             rt.HandleReady,
				OnMessageCreate:     rt.HandleMessage,
				OnInteractionCreate: rt.HandleInteraction,
			})
			return gateway.Run(ctx)
		},
	}

	cmd.Flags().String("discord-bot-token", "", "Discord bot token.")
	cmd.Flags().String("gemini-api-key", "", "Gemini API key.")
	cmd.Flags().String("gemini-endpoint", gemini.DefaultEndpoint, "Gemini generateContent endpoint URL.")
	cmd.Flags().Int("gemini-max-attempts", 3, "Max generation attempts per message.")
	cmd.Flags().Duration("gemini-retry-base", 3*time.Second, "Base delay between retries (delay = base * attempt).")
	cmd.Flags().Duration("gemini-request-timeout", 90*time.Second, "Per-request timeout for the Gemini API.")
	cmd.Flags().String("persona-file", "", "Persona markdown file with optional yaml frontmatter.")
	cmd.Flags().String("bot-name", "", "Display name used in the persona acknowledgement (defaults to the persona name).")
	cmd.Flags().Int("history-cap", chathistory.DefaultCapacity, "Max conversation turns kept per channel.")
	cmd.Flags().Duration("flows-ttl", flows.DefaultTTL, "How long pending confirm/paginate flows stay valid.")
	cmd.Flags().Duration("flow-prune-interval", time.Minute, "How often expired flows are swept.")
	cmd.Flags().Int("max-concurrency", 3, "Max number of channels processed concurrently.")
	cmd.Flags().Duration("task-timeout", 2*time.Minute, "Per-message generation timeout.")
	cmd.Flags().Duration("typing-interval", 8*time.Second, "How often the typing indicator is refreshed during generation.")
	cmd.Flags().String("ack-emoji", "", "Reaction added while a message is being processed (default hourglass).")
	cmd.Flags().String("error-emoji", "", "Reaction left on a message whose processing failed (default skull).")
	cmd.Flags().String("health-listen", "", "Health endpoint listen address (empty disables it).")

	_ = viper.BindPFlag("discord.bot_token", cmd.Flags().Lookup("discord-bot-token"))
	_ = viper.BindPFlag("gemini.api_key", cmd.Flags().Lookup("gemini-api-key"))
	_ = viper.BindPFlag("gemini.endpoint", cmd.Flags().Lookup("gemini-endpoint"))
	_ = viper.BindPFlag("gemini.max_attempts", cmd.Flags().Lookup("gemini-max-attempts"))
	_ = viper.BindPFlag("gemini.retry_base", cmd.Flags().Lookup("gemini-retry-base"))
	_ = viper.BindPFlag("gemini.request_timeout", cmd.Flags().Lookup("gemini-request-timeout"))
	_ = viper.BindPFlag("bot.persona_file", cmd.Flags().Lookup("persona-file"))
	_ = viper.BindPFlag("bot.name", cmd.Flags().Lookup("bot-name"))
	_ = viper.BindPFlag("history.cap", cmd.Flags().Lookup("history-cap"))
	_ = viper.BindPFlag("flows.ttl", cmd.Flags().Lookup("flows-ttl"))
	_ = viper.BindPFlag("flows.prune_interval", cmd.Flags().Lookup("flow-prune-interval"))
	_ = viper.BindPFlag("runtime.max_concurrency", cmd.Flags().Lookup("max-concurrency"))
	_ = viper.BindPFlag("runtime.task_timeout", cmd.Flags().Lookup("task-timeout"))
	_ = viper.BindPFlag("runtime.typing_interval", cmd.Flags().Lookup("typing-interval"))
	_ = viper.BindPFlag("runtime.ack_emoji", cmd.Flags().Lookup("ack-emoji"))
	_ = viper.BindPFlag("runtime.error_emoji", cmd.Flags().Lookup("error-emoji"))
	_ = viper.BindPFlag("health.listen", cmd.Flags().Lookup("health-listen"))

	return cmd
}
