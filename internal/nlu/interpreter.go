package nlu

import (
	"context"
	"log/slog"

	"bot-inventory/internal/metrics"
)

const clarifyProduct = "Which product do you mean? Try something like \"add 5 kg rice for 200\"."

// Limiter gates remote calls per caller.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// Interpreter turns commands into intents: remote extraction first, local
// fallback second. Each call is independent; the only shared values are
// read-only configuration.
type Interpreter struct {
	remote  Completer
	limiter Limiter
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option customises an Interpreter.
type Option func(*Interpreter)

// WithRemote enables the remote extractor.
func WithRemote(c Completer) Option {
	return func(i *Interpreter) { i.remote = c }
}

// WithLimiter caps remote calls per caller.
func WithLimiter(l Limiter) Option {
	return func(i *Interpreter) { i.limiter = l }
}

// NewInterpreter builds an interpreter. Without WithRemote it only uses the local parser.
func NewInterpreter(logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Interpreter {
	i := &Interpreter{
		logger:  logger.With("component", "nlu"),
		metrics: m,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// attempt produces an intent or an error that sends control to the next attempt.
type attempt struct {
	name string
	run  func(ctx context.Context, caller, text string) (Intent, error)
}

func (i *Interpreter) attempts() []attempt {
	return []attempt{
		{name: "remote", run: i.remoteAttempt},
		{name: SourceFallback, run: localAttempt},
	}
}

// Interpret never fails: remote problems degrade to the local parser, and a
// command without a recognisable product comes back as a clarification.
// caller keys the remote budget and may be empty.
func (i *Interpreter) Interpret(ctx context.Context, caller, text string) Outcome {
	for _, a := range i.attempts() {
		intent, err := a.run(ctx, caller, text)
		if err != nil {
			i.recordFailure(a.name, err)
			continue
		}
		if intent.Product == "" {
			i.count(intent.Source, "clarify")
			return Outcome{Intent: intent, Clarification: clarifyProduct}
		}
		i.count(intent.Source, "resolved")
		return Outcome{Intent: intent}
	}
	// The local attempt cannot fail, so this is only reached if it is removed.
	return Outcome{Clarification: clarifyProduct}
}

// ParseCommand is Interpret for callers that prefer an error for clarifications.
func (i *Interpreter) ParseCommand(ctx context.Context, text string) (Intent, error) {
	out := i.Interpret(ctx, "", text)
	if !out.Resolved() {
		return Intent{}, ErrAmbiguousCommand
	}
	return out.Intent, nil
}

func (i *Interpreter) remoteAttempt(ctx context.Context, caller, text string) (Intent, error) {
	if i.remote == nil {
		return Intent{}, ErrUpstreamUnavailable
	}
	if i.limiter != nil && !i.limiter.Allow(ctx, caller) {
		i.logger.Debug("remote budget exhausted", "caller", caller)
		return Intent{}, ErrUpstreamUnavailable
	}

	raw, err := i.remote.Complete(ctx, buildIntentPrompt(text))
	if err != nil {
		return Intent{}, err
	}
	intent, err := DecodeIntent(raw, i.remote.Name())
	if err != nil {
		snippet := raw
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		i.logger.Debug("model output rejected", "error", err, "snippet", snippet)
		return Intent{}, err
	}
	i.countRemote("success")
	return intent, nil
}

func localAttempt(_ context.Context, _, text string) (Intent, error) {
	return ParseFallback(text), nil
}

func (i *Interpreter) recordFailure(name string, err error) {
	kind := Kind(err)
	if kind == "" {
		kind = "unknown"
	}
	if kind == KindUpstreamUnavailable {
		i.logger.Debug("remote extractor skipped", "attempt", name)
	} else {
		i.logger.Warn("intent attempt failed, falling back", "attempt", name, "kind", kind, "error", err)
	}
	if name == "remote" {
		i.countRemote(kind)
	}
}

func (i *Interpreter) countRemote(result string) {
	if i.metrics == nil || i.remote == nil {
		return
	}
	i.metrics.NLURequests.WithLabelValues(i.remote.Name(), result).Inc()
}

func (i *Interpreter) count(source, result string) {
	if i.metrics == nil {
		return
	}
	i.metrics.IntentOutcomes.WithLabelValues(source, result).Inc()
}
