package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/contract"
	guardrailx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/guardrail"
	handoffx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/handoff"
	llmx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/llm"
	orchestratorx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/orchestrator"
	promptx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/prompt"
	sessionx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/session"
	specialistx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/specialist"
	triagex "github.com/warasin/Helpline-Customer-Support-Voice-Agent/agent/triage"
	configx "github.com/warasin/Helpline-Customer-Support-Voice-Agent/pkg/config"
	_ "github.com/warasin/Helpline-Customer-Support-Voice-Agent/pkg/logger/autoload"
	voicex "github.com/warasin/Helpline-Customer-Support-Voice-Agent/pkg/voice"
)

type AppConfig struct {
	SessionID     string `envconfig:"SESSION_ID" split_words:"true" default:"chat-history"`
	CustomerID    string `envconfig:"CUSTOMER_ID" split_words:"true" default:"1"`
	CustomerName  string `envconfig:"CUSTOMER_NAME" split_words:"true" default:"teddy"`
	CustomerEmail string `envconfig:"CUSTOMER_EMAIL" split_words:"true"`
	CustomerTier  string `envconfig:"CUSTOMER_TIER" split_words:"true" default:"basic"`
	PostgresDSN   string `envconfig:"POSTGRES_DSN" split_words:"true"`
}

func main() {
	ctx := context.Background()

	appCfg := configx.MustNew[AppConfig]("APP")
	llmCfg := configx.MustNew[llmx.Config]("LLM")
	turnCfg := configx.MustNew[orchestratorx.Config]("TURN")

	cust := contractx.CustomerContext{
		CustomerID: appCfg.CustomerID,
		Name:       appCfg.CustomerName,
		Email:      appCfg.CustomerEmail,
		Tier:       contractx.Tier(appCfg.CustomerTier),
	}

	store, cleanup, err := newStore(ctx, *appCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("session store")
	}
	defer cleanup()

	prompts := promptx.LoadPromptSet()

	gateModelCfg := llmCfg.OpenRouterFor(llmx.RoleGuardrail)
	gateModel, err := gateModelCfg.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("guardrail model")
	}
	gate, err := guardrailx.NewInputGate(ctx, gateModel, prompts.InputGate)
	if err != nil {
		log.Fatal().Err(err).Msg("input gate")
	}

	triageModelCfg := llmCfg.OpenRouterFor(llmx.RoleTriage)
	triageModel, err := triageModelCfg.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("triage model")
	}
	router, err := triagex.New(ctx, triageModel, prompts.Triage, gate)
	if err != nil {
		log.Fatal().Err(err).Msg("triage router")
	}

	registry, err := specialistx.NewRegistry(ctx, *llmCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("specialist registry")
	}

	controller, err := handoffx.New(store, handoffx.NewLogObserver(log.Logger))
	if err != nil {
		log.Fatal().Err(err).Msg("handoff controller")
	}

	orch, err := orchestratorx.New(store, router, registry, controller, gate, cust, *turnCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("orchestrator")
	}

	runREPL(ctx, orch, newVoiceClient(), appCfg.SessionID)
}

// newVoiceClient builds the speech collaborator when VOICE_API_KEY is set.
// Without it the REPL stays text-only.
func newVoiceClient() *voicex.Client {
	voiceCfg, err := configx.New[voicex.Config]("VOICE")
	if err != nil {
		log.Debug().Err(err).Msg("voice disabled")
		return nil
	}
	client, err := voicex.NewClient(*voiceCfg)
	if err != nil {
		log.Debug().Err(err).Msg("voice disabled")
		return nil
	}
	return client
}

func newStore(ctx context.Context, cfg AppConfig) (sessionx.Store, func(), error) {
	if strings.TrimSpace(cfg.PostgresDSN) != "" {
		store, err := sessionx.NewPostgresStore(sessionx.PostgresConfig{DSN: cfg.PostgresDSN})
		if err != nil {
			return nil, nil, err
		}
		if err := store.Init(ctx); err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	}

	badgerCfg := configx.MustNew[sessionx.BadgerConfig]("SESSION_STORE")
	store, err := sessionx.NewBadgerStore(*badgerCfg)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

func runREPL(ctx context.Context, orch *orchestratorx.Orchestrator, voice *voicex.Client, sessionID string) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("type a message, /voice <audio-file> to speak a turn, /reset to clear memory, /quit to exit")

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit":
			return
		case line == "/reset":
			if err := orch.Reset(ctx, sessionID); err != nil {
				log.Error().Err(err).Msg("reset session")
			}
			continue
		case strings.HasPrefix(line, "/voice "):
			runVoiceTurn(ctx, orch, voice, sessionID, strings.TrimSpace(strings.TrimPrefix(line, "/voice ")))
			continue
		}

		result, err := orch.HandleTurn(ctx, sessionID, line)
		if err != nil {
			log.Error().Err(err).Msg("turn failed")
			continue
		}

		for {
			chunk, err := result.Fragments.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				log.Error().Err(err).Msg("read fragments")
				break
			}
			fmt.Print(chunk)
		}
		result.Fragments.Close()
		fmt.Println()
	}
}

// runVoiceTurn transcribes a recorded utterance, runs it through the turn
// pipeline, and synthesizes the reply next to the input file.
func runVoiceTurn(ctx context.Context, orch *orchestratorx.Orchestrator, voice *voicex.Client, sessionID, path string) {
	if voice == nil {
		fmt.Println("voice is not configured, set VOICE_API_KEY")
		return
	}
	if path == "" {
		fmt.Println("usage: /voice <audio-file>")
		return
	}

	audio, err := os.Open(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("open audio file")
		return
	}
	text, err := voice.Transcribe(ctx, audio)
	_ = audio.Close()
	if err != nil {
		log.Error().Err(err).Msg("transcribe")
		return
	}
	fmt.Printf("you said: %s\n", text)

	result, err := orch.HandleTurn(ctx, sessionID, text)
	if err != nil {
		log.Error().Err(err).Msg("turn failed")
		return
	}
	fmt.Println(result.Reply)

	speech, err := voice.Speak(ctx, result.Fragments)
	if err != nil {
		log.Error().Err(err).Msg("synthesize reply")
		return
	}
	defer speech.Close()

	outPath := path + ".reply.mp3"
	out, err := os.Create(outPath)
	if err != nil {
		log.Error().Err(err).Str("path", outPath).Msg("create reply file")
		return
	}
	defer out.Close()

	if _, err := io.Copy(out, speech); err != nil {
		log.Error().Err(err).Msg("write reply audio")
		return
	}
	fmt.Printf("reply audio written to %s\n", outPath)
}
