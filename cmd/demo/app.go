package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	anthropicsse "github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	openaisse "github.com/openai/openai-go/packages/ssestream"
	"github.com/openai/openai-go/responses"
	"github.com/redis/go-redis/v9"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"goa.design/agentcore/features/guardrail/schema"
	"goa.design/agentcore/features/model/anthropic"
	"goa.design/agentcore/features/model/openai"
	runlogmongo "goa.design/agentcore/features/runlog/mongo"
	clientsmongo "goa.design/agentcore/features/runlog/mongo/clients/mongo"
	"goa.design/agentcore/features/stream/pulse"
	clientspulse "goa.design/agentcore/features/stream/pulse/clients/pulse"
	agent "goa.design/agentcore/runtime/agent"
	"goa.design/agentcore/runtime/agent/convert"
	"goa.design/agentcore/runtime/agent/guardrail"
	"goa.design/agentcore/runtime/agent/hooks"
	"goa.design/agentcore/runtime/agent/model"
	"goa.design/agentcore/runtime/agent/runlog"
	"goa.design/agentcore/runtime/agent/runlog/inmem"
	"goa.design/agentcore/runtime/agent/stream"
	"goa.design/agentcore/runtime/agent/telemetry"
)

// app wires the configured decoders, observers and guardrails around one
// hook registry.
type app struct {
	cfg        *config
	tel        telemetry.Set
	hooks      *hooks.Registry
	store      runlog.Store
	guardrails []guardrail.OutputGuardrail
	closers    []func(context.Context) error
}

// newApp connects the configured backends and attaches their observers.
func newApp(ctx context.Context, cfg *config, tel telemetry.Set) (*app, error) {
	tel = tel.WithDefaults()
	a := &app{cfg: cfg, tel: tel, hooks: hooks.NewLoggingRegistry(tel.Logger)}
	if err := a.setupRunlog(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}
	if err := a.setupPulse(); err != nil {
		a.Close(ctx)
		return nil, err
	}
	if cfg.OutputSchema != "" {
		doc, err := os.ReadFile(cfg.OutputSchema)
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("read output schema: %w", err)
		}
		g, err := schema.New(doc)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
		a.guardrails = append(a.guardrails, g.Output("output_schema"))
	}
	return a, nil
}

func (a *app) setupRunlog(ctx context.Context) error {
	a.store = inmem.New()
	if m := a.cfg.Mongo; m != nil {
		mc, err := mongodriver.Connect(options.Client().ApplyURI(m.URI))
		if err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}
		a.closers = append(a.closers, mc.Disconnect)
		client, err := clientsmongo.New(clientsmongo.Options{Client: mc, Database: m.Database, Collection: m.Collection})
		if err != nil {
			return err
		}
		store, err := runlogmongo.NewStore(client)
		if err != nil {
			return err
		}
		if err := store.Ping(ctx); err != nil {
			return fmt.Errorf("ping %s: %w", store.Name(), err)
		}
		a.store = store
	}
	rec, err := runlog.NewRecorder(a.store, a.cfg.RunID)
	if err != nil {
		return err
	}
	_, err = rec.Attach(a.hooks)
	return err
}

func (a *app) setupPulse() error {
	r := a.cfg.Redis
	if r == nil {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: r.Addr, Password: r.Password, DB: r.DB})
	a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
	client, err := clientspulse.New(clientspulse.Options{Redis: rdb, MaxLen: r.MaxLen, Timeout: 5 * time.Second})
	if err != nil {
		return err
	}
	pub, err := pulse.NewPublisher(pulse.Options{Client: client})
	if err != nil {
		return err
	}
	_, err = pub.Attach(a.hooks)
	return err
}

// Close releases the backend connections.
func (a *app) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.tel.Logger.Warn(ctx, "close backend", "err", err)
		}
	}
	a.closers = nil
}

// Run decodes the configured input into canonical items, reports the run
// lifecycle to the hooks, validates the final message and writes the items
// as JSON to out.
func (a *app) Run(ctx context.Context, out io.Writer) error {
	hc := hooks.NewContext(a.cfg.Agent, hooks.WithMetadata(map[string]any{runlog.MetadataRunID: a.cfg.RunID}))
	a.hooks.RunAgentStart(ctx, hc, map[string]any{"provider": a.cfg.Provider, "mode": a.cfg.Mode, "input": a.cfg.Input})

	items, err := a.decode(ctx)
	if err != nil {
		a.hooks.RunError(ctx, hc, err)
		return err
	}
	for _, it := range items {
		msg, ok := it.(model.MessageOutput)
		if !ok {
			continue
		}
		for _, tu := range msg.ToolUses() {
			a.hooks.RunToolStart(ctx, hc.WithTool(tu.Name), map[string]any{"call_id": tu.ID, "input": tu.Input})
		}
	}
	if final, ok := finalMessage(items); ok && len(a.guardrails) > 0 {
		rc := &guardrail.RunContext{Context: a.cfg.RunID}
		r := guardrail.NewRunner(guardrail.RunnerOptions{Telemetry: a.tel})
		if _, err := r.RunOutput(ctx, rc, agent.Ident(a.cfg.Agent), final, a.guardrails...); err != nil {
			a.hooks.RunError(ctx, hc, err)
			return err
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	a.hooks.RunAgentEnd(ctx, hc, map[string]any{"items": len(items)})
	return nil
}

func (a *app) decode(ctx context.Context) ([]model.OutputItem, error) {
	f, err := os.Open(a.cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	if a.cfg.Mode == modeStream {
		return a.consume(ctx, f)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	var blocks []convert.Block
	switch a.cfg.Provider {
	case providerRaw:
		if err := json.Unmarshal(data, &blocks); err != nil {
			return nil, fmt.Errorf("decode blocks: %w", err)
		}
	case providerAnthropic:
		var msg anthropicsdk.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode anthropic message: %w", err)
		}
		blocks = anthropic.Blocks(msg)
	case providerOpenAI:
		var resp responses.Response
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("decode openai response: %w", err)
		}
		blocks, err = openai.Blocks(&resp)
		if err != nil {
			a.tel.Logger.Warn(ctx, "skipped undecodable output items", "err", err)
		}
	}
	conv := convert.New(convert.Options{Telemetry: a.tel})
	return conv.Convert(ctx, blocks), nil
}

// consume replays a server-sent events capture through the provider stream
// processor.
func (a *app) consume(ctx context.Context, body io.ReadCloser) ([]model.OutputItem, error) {
	res := &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/event-stream"}},
		Body:       body,
	}
	acc := stream.New(stream.Options{Telemetry: a.tel, ResponseID: a.cfg.RunID})
	var err error
	switch a.cfg.Provider {
	case providerAnthropic:
		s := anthropicsse.NewStream[anthropicsdk.MessageStreamEventUnion](anthropicsse.NewDecoder(res), nil)
		err = anthropic.Consume(ctx, s, acc)
	case providerOpenAI:
		s := openaisse.NewStream[responses.ResponseStreamEventUnion](openaisse.NewDecoder(res), nil)
		err = openai.Consume(ctx, s, acc)
	default:
		err = fmt.Errorf("provider %q does not stream", a.cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	c := acc.Completion()
	a.tel.Logger.Info(ctx, "stream consumed",
		"response_id", c.ProviderID, "model", c.ProviderModelID, "input_tokens", c.Usage.InputTokens, "output_tokens", c.Usage.OutputTokens)
	return c.Items, nil
}

// finalMessage returns the last message item carrying text.
func finalMessage(items []model.OutputItem) (model.MessageOutput, bool) {
	for i := len(items) - 1; i >= 0; i-- {
		if msg, ok := items[i].(model.MessageOutput); ok && msg.Text() != "" {
			return msg, true
		}
	}
	return model.MessageOutput{}, false
}
