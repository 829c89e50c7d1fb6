// Package discord runs the chat loop: it gates inbound gateway messages,
// fans them out to per-channel workers, and drives the reply lifecycle
// (ack reaction, typing, generation, reply, cleanup).
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iiimabbie/dcbot/boterr"
	"github.com/iiimabbie/dcbot/chathistory"
	"github.com/iiimabbie/dcbot/commands"
	discordapi "github.com/iiimabbie/dcbot/discord"
	"github.com/iiimabbie/dcbot/flows"
	"github.com/iiimabbie/dcbot/gemini"
	"github.com/iiimabbie/dcbot/internal/channelruntime/worker"
	"github.com/iiimabbie/dcbot/internal/healthcheck"
	"github.com/iiimabbie/dcbot/prompt"
)

// promptForInputText answers a bare mention; no generation request is made
// for it.
const promptForInputText = "You rang? Give me a bit more than a mention and I'll answer."

const maxMessageLen = 2000

// Generator produces a reply for an ordered turn list. Satisfied by
// *gemini.Client.
type Generator interface {
	Generate(ctx context.Context, contents []gemini.Content) (string, error)
}

// ChatAPI is the platform surface the runtime needs. Satisfied by
// *discordapi.API.
type ChatAPI interface {
	CreateMessage(ctx context.Context, channelID string, params discordapi.CreateMessageParams) (*discordapi.Message, error)
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
	RemoveOwnReaction(ctx context.Context, channelID, messageID, emoji string) error
	TriggerTyping(ctx context.Context, channelID string) error
	GetChannelType(ctx context.Context, channelID string) (int, error)
}

type Dependencies struct {
	Logger    *slog.Logger
	API       ChatAPI
	Generator Generator
	History   *chathistory.Store
	Assembler prompt.Assembler
	Commands  *commands.Registry
	Flows     *flows.Registry
}

type Options struct {
	MaxConcurrency int
	TaskTimeout    time.Duration
	TypingInterval time.Duration
	AckEmoji       string
	ErrorEmoji     string
	FlowPrune      time.Duration
	HealthListen   string
}

func normalizeOptions(opts Options) Options {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 3
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = 2 * time.Minute
	}
	if opts.TypingInterval <= 0 {
		// The composing indicator expires after ~10s on the platform side.
		opts.TypingInterval = 8 * time.Second
	}
	if opts.AckEmoji == "" {
		opts.AckEmoji = "⏳"
	}
	if opts.ErrorEmoji == "" {
		opts.ErrorEmoji = "\U0001f480"
	}
	if opts.FlowPrune <= 0 {
		opts.FlowPrune = time.Minute
	}
	return opts
}

type messageJob struct {
	ChannelID     string
	MessageID     string
	AuthorID      string
	AuthorName    string
	Text          string
	Mentioned     bool
	SentAt        time.Time
	CorrelationID string
}

// Runtime owns the per-channel workers and the message lifecycle. Gateway
// handlers hand events off here and return immediately; everything slow
// happens on a worker goroutine.
type Runtime struct {
	logger    *slog.Logger
	api       ChatAPI
	gen       Generator
	history   *chathistory.Store
	assembler prompt.Assembler
	commands  *commands.Registry
	flows     *flows.Registry
	opts      Options

	mu           sync.Mutex
	workers      map[string]chan messageJob
	channelTypes map[string]int
	botUserID    string
	botUserName  string

	sem        chan struct{}
	workersCtx context.Context
	started    bool
}

func New(d Dependencies, opts Options) (*Runtime, error) {
	if d.Logger == nil {
		return nil, fmt.Errorf("runtime requires a logger")
	}
	if d.API == nil || d.Generator == nil || d.History == nil || d.Commands == nil || d.Flows == nil {
		return nil, fmt.Errorf("runtime dependencies are incomplete")
	}
	opts = normalizeOptions(opts)
	return &Runtime{
		logger:       d.Logger,
		api:          d.API,
		gen:          d.Generator,
		history:      d.History,
		assembler:    d.Assembler,
		commands:     d.Commands,
		flows:        d.Flows,
		opts:         opts,
		workers:      make(map[string]chan messageJob),
		channelTypes: make(map[string]int),
		sem:          make(chan struct{}, opts.MaxConcurrency),
	}, nil
}

// Start launches the background pieces (health listener, flow pruning) and
// arms the workers. It must be called before the gateway delivers events;
// ctx cancellation stops every worker.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return fmt.Errorf("runtime already started")
	}
	r.started = true
	r.workersCtx = ctx
	r.mu.Unlock()

	if listen := healthcheck.NormalizeListen(r.opts.HealthListen); listen != "" {
		srv, err := healthcheck.StartServer(ctx, r.logger, listen, "discord")
		if err != nil {
			r.logger.Warn("discord_health_server_start_error", "addr", listen, "error", err.Error())
		} else {
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				_ = srv.Shutdown(shutdownCtx)
				cancel()
			}()
		}
	}

	go func() {
		ticker := time.NewTicker(r.opts.FlowPrune)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := r.flows.Prune(); n > 0 {
					r.logger.Debug("flows_pruned", "count", n)
				}
			}
		}
	}()

	r.logger.Info("discord_start",
		"max_concurrency", r.opts.MaxConcurrency,
		"task_timeout", r.opts.TaskTimeout.String(),
		"typing_interval", r.opts.TypingInterval.String(),
		"flow_prune_interval", r.opts.FlowPrune.String(),
	)
	return nil
}

// HandleReady records the bot identity; messages arriving before it are
// dropped because the mention gate cannot run without the bot id.
func (r *Runtime) HandleReady(botUser discordapi.User) {
	r.mu.Lock()
	r.botUserID = botUser.ID
	r.botUserName = botUser.Username
	r.mu.Unlock()
	r.logger.Info("discord_ready", "bot_id", botUser.ID, "bot_username", botUser.Username)
}

func (r *Runtime) botIdentity() (id, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.botUserID, r.botUserName
}

func (r *Runtime) runCtx() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.workersCtx
}

// HandleMessage runs on the gateway read goroutine: it applies the cheap
// part of the gate and enqueues the rest.
func (r *Runtime) HandleMessage(msg discordapi.Message) {
	if msg.Author == nil || msg.Author.Bot || msg.Author.System {
		return
	}
	botID, _ := r.botIdentity()
	if botID == "" || msg.Author.ID == botID {
		return
	}
	ctx := r.runCtx()
	if ctx == nil {
		return
	}

	job := messageJob{
		ChannelID:     msg.ChannelID,
		MessageID:     msg.ID,
		AuthorID:      msg.Author.ID,
		AuthorName:    msg.Author.Username,
		Text:          msg.Content,
		Mentioned:     mentionsUser(msg, botID),
		SentAt:        msg.Timestamp,
		CorrelationID: uuid.NewString(),
	}
	jobs := r.workerFor(msg.ChannelID)
	// Never block here: this runs on the gateway read goroutine and a full
	// per-channel queue must not stall dispatch for every other channel.
	if !worker.TryEnqueue(ctx, jobs, job) {
		r.logger.Warn("discord_queue_full",
			"channel_id", msg.ChannelID,
			"message_id", msg.ID,
			"correlation_id", job.CorrelationID,
		)
	}
}

// HandleInteraction offloads command/button dispatch so the gateway reader
// never blocks on an interaction round-trip.
func (r *Runtime) HandleInteraction(inter discordapi.Interaction) {
	ctx := r.runCtx()
	if ctx == nil {
		return
	}
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("discord_interaction_panic", "panic", fmt.Sprint(rec), "custom_id", interCustomID(inter))
			}
		}()
		r.commands.Dispatch(ctx, inter)
	}()
}

func interCustomID(inter discordapi.Interaction) string {
	if inter.Data == nil {
		return ""
	}
	if inter.Data.CustomID != "" {
		return inter.Data.CustomID
	}
	return inter.Data.Name
}

func (r *Runtime) workerFor(channelID string) chan messageJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	if jobs, ok := r.workers[channelID]; ok {
		return jobs
	}
	jobs := make(chan messageJob, 16)
	r.workers[channelID] = jobs
	worker.Start(worker.StartOptions[messageJob]{
		Ctx:    r.workersCtx,
		Sem:    r.sem,
		Jobs:   jobs,
		Handle: r.handleJob,
		OnPanic: func(job messageJob, rec any) {
			r.logger.Error("discord_worker_panic",
				"channel_id", job.ChannelID,
				"message_id", job.MessageID,
				"correlation_id", job.CorrelationID,
				"panic", fmt.Sprint(rec),
			)
		},
	})
	return jobs
}

// channelType resolves and caches the channel kind; lookups happen on the
// worker goroutine, never on the gateway reader.
func (r *Runtime) channelType(ctx context.Context, channelID string) (int, bool) {
	r.mu.Lock()
	if t, ok := r.channelTypes[channelID]; ok {
		r.mu.Unlock()
		return t, true
	}
	r.mu.Unlock()

	t, err := r.api.GetChannelType(ctx, channelID)
	if err != nil {
		r.logger.Warn("discord_channel_lookup_error", "channel_id", channelID, "error", err.Error())
		return 0, false
	}
	r.mu.Lock()
	r.channelTypes[channelID] = t
	r.mu.Unlock()
	return t, true
}

func (r *Runtime) handleJob(ctx context.Context, job messageJob) {
	// Dice rolls answer regardless of the mention gate; an addressed
	// message that also carries one still goes through the chat flow.
	if roll, ok := parseDiceRoll(job.Text); ok {
		result := rollDice(roll)
		r.logger.Info("discord_dice_roll",
			"channel_id", job.ChannelID,
			"message_id", job.MessageID,
			"dice", fmt.Sprintf("%dd%d", roll.Lo, roll.Hi),
			"result", result,
		)
		r.reply(ctx, r.logger, job, formatDiceReply(job.AuthorID, roll, result))
	}

	chType, known := r.channelType(ctx, job.ChannelID)
	addressed := job.Mentioned
	if known {
		addressed = addressed || isDirectChannel(chType) || isThreadChannel(chType)
	}
	if !addressed {
		r.logger.Debug("discord_message_ignored", "channel_id", job.ChannelID, "message_id", job.MessageID)
		return
	}
	r.process(ctx, job)
}

func (r *Runtime) process(ctx context.Context, job messageJob) {
	logger := r.logger.With(
		"channel_id", job.ChannelID,
		"message_id", job.MessageID,
		"correlation_id", job.CorrelationID,
	)
	logger.Info("discord_task_start", "author_id", job.AuthorID, "text_len", len(job.Text))

	if err := r.api.AddReaction(ctx, job.ChannelID, job.MessageID, r.opts.AckEmoji); err != nil {
		logger.Warn("discord_react_error", "error", err.Error())
	}
	// The ack reaction comes off no matter how the job ends.
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.api.RemoveOwnReaction(cleanupCtx, job.ChannelID, job.MessageID, r.opts.AckEmoji); err != nil {
			logger.Debug("discord_unreact_error", "error", err.Error())
		}
	}()

	botID, botName := r.botIdentity()
	text := cleanContent(job.Text)
	if text == "" {
		r.reply(ctx, logger, job, promptForInputText)
		return
	}

	key, err := chathistory.ConversationKey(job.ChannelID)
	if err != nil {
		logger.Error("discord_task_error", "kind", string(boterr.KindInvalidInput), "error", err.Error())
		return
	}
	window := r.history.Window(key)
	snapshot := window.Snapshot()
	current := chathistory.Turn{
		Role:       chathistory.RoleUser,
		Text:       text,
		AuthorID:   job.AuthorID,
		AuthorName: job.AuthorName,
		Timestamp:  job.SentAt,
	}
	window.Append(current)

	stopTyping := r.startTypingTicker(ctx, job.ChannelID)
	genCtx, cancel := context.WithTimeout(ctx, r.opts.TaskTimeout)
	reply, genErr := r.gen.Generate(genCtx, r.assembler.Build(snapshot, current))
	cancel()
	stopTyping()

	if genErr != nil {
		if ctx.Err() != nil {
			return
		}
		kind := boterr.KindOf(genErr)
		logger.Error("discord_task_error", "kind", string(kind), "error", genErr.Error())
		r.reply(ctx, logger, job, boterr.UserMessage(kind))
		if err := r.api.AddReaction(ctx, job.ChannelID, job.MessageID, r.opts.ErrorEmoji); err != nil {
			logger.Debug("discord_react_error", "error", err.Error())
		}
		return
	}

	window.Append(chathistory.Turn{
		Role:       chathistory.RoleModel,
		Text:       reply,
		AuthorID:   botID,
		AuthorName: botName,
		Timestamp:  time.Now().UTC(),
	})
	r.reply(ctx, logger, job, reply)
	logger.Info("discord_task_done", "reply_len", len(reply))
}

// reply sends text as a reply to the triggering message, chunked to the
// platform's message length limit.
func (r *Runtime) reply(ctx context.Context, logger *slog.Logger, job messageJob, text string) {
	ref := &discordapi.MessageReference{MessageID: job.MessageID, ChannelID: job.ChannelID}
	for i, chunk := range splitMessage(text, maxMessageLen) {
		params := discordapi.CreateMessageParams{Content: chunk}
		if i == 0 {
			params.MessageReference = ref
		}
		if _, err := r.api.CreateMessage(ctx, job.ChannelID, params); err != nil {
			logger.Warn("discord_send_error", "error", err.Error())
			return
		}
	}
}

func (r *Runtime) startTypingTicker(ctx context.Context, channelID string) func() {
	tctx, cancel := context.WithCancel(ctx)
	go func() {
		_ = r.api.TriggerTyping(tctx, channelID)
		ticker := time.NewTicker(r.opts.TypingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-tctx.Done():
				return
			case <-ticker.C:
				_ = r.api.TriggerTyping(tctx, channelID)
			}
		}
	}()
	return cancel
}
