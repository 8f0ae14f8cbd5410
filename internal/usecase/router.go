// Package usecase holds the Router, the orchestration core of the bot. It is
// the only writer of session state; handling for one conversation id is
// serialized on a per-conversation mutex so two back-to-back updates for the
// same conversation cannot interleave their session read-modify-write.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"babygpt/internal/canon"
	"babygpt/internal/domain"
	"babygpt/internal/intent"
	"babygpt/internal/links"
	"babygpt/internal/safety"
)

// minGeneratedConfidence is the arbitration threshold: the generated answer
// is shown only when the judge picks it with at least this confidence.
// The boundary is inclusive.
const minGeneratedConfidence = 0.65

// nearbyPlacesLimit bounds the open-data enrichment on the caregiver find
// path.
const nearbyPlacesLimit = 3

type LLMClient interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (string, error)
}

// SessionStore is the subset of the session store the Router needs. Get
// returns (nil, nil) when no session exists.
type SessionStore interface {
	Get(ctx context.Context, conversationID string) (*domain.Session, error)
	Set(ctx context.Context, sess *domain.Session) error
	Delete(ctx context.Context, conversationID string) error
}

// PlaceFinder is the optional open-data lookup used to enrich caregiver
// search replies. Failures are treated as a missing enrichment.
type PlaceFinder interface {
	Lookup(ctx context.Context, keyword, query string, limit int) ([]domain.Place, error)
}

// quotaExceeder is the probe interface for billing/quota exhaustion raised
// by the completion client.
type quotaExceeder interface {
	QuotaExceeded() bool
}

// Reply is the outbound payload computed for one update. The transport
// layer owns delivery.
type Reply struct {
	Text     string
	Keyboard *domain.InlineKeyboard
}

type Router struct {
	llm      LLMClient
	store    SessionStore
	places   PlaceFinder
	bank     *canon.Bank
	resolver *intent.Resolver
	allow    links.Allowlist
	model    string
	logger   *slog.Logger

	locks sync.Map // conversation id -> *sync.Mutex
}

type RouterOption func(*Router)

// WithPlaceFinder enables open-data enrichment on the caregiver find path.
func WithPlaceFinder(places PlaceFinder) RouterOption {
	return func(r *Router) { r.places = places }
}

func WithLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) { r.logger = logger }
}

func NewRouter(llm LLMClient, store SessionStore, model string, opts ...RouterOption) (*Router, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if store == nil {
		return nil, errors.New("usecase: session store must not be nil")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("usecase: model must not be empty")
	}
	r := &Router{
		llm:      llm,
		store:    store,
		bank:     canon.NewBank(),
		resolver: intent.NewResolver(),
		allow:    links.DefaultAllowlist(),
		model:    model,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// lockConversation serializes handling per conversation id and returns the
// unlock func.
func (r *Router) lockConversation(conversationID string) func() {
	v, _ := r.locks.LoadOrStore(conversationID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// HandleStart resets the conversation and returns the intro with the main
// menu.
func (r *Router) HandleStart(ctx context.Context, conversationID string) (Reply, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return Reply{}, newError(ErrorInvalidUpdate, "empty_conversation_id", nil)
	}
	defer r.lockConversation(conversationID)()

	if err := r.store.Delete(ctx, conversationID); err != nil {
		return Reply{}, newError(ErrorInternal, "session_delete_error", err)
	}
	return Reply{Text: canon.IntroReply, Keyboard: canon.MenuKeyboard()}, nil
}

// HandleAction handles an explicit menu or chip selection. The selected flow
// is persisted into the session with the turn counter reset.
func (r *Router) HandleAction(ctx context.Context, conversationID, payload string) (Reply, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return Reply{}, newError(ErrorInvalidUpdate, "empty_conversation_id", nil)
	}
	action, ok := intent.ParseAction(payload)
	if !ok {
		return Reply{}, newError(ErrorInvalidUpdate, "unrecognized_action", nil)
	}
	defer r.lockConversation(conversationID)()

	if err := r.store.Set(ctx, &domain.Session{
		ConversationID: conversationID,
		ActiveFlow:     action.Flow,
		TurnCount:      0,
	}); err != nil {
		return Reply{}, newError(ErrorInternal, "session_write_error", err)
	}

	if canonical, found := r.bank.Lookup(action.Flow, action.Tag); found {
		curated := links.Curate(r.bank.Links(action.Flow, action.Tag), nil, r.allow)
		return Reply{
			Text:     assembleReply(canonical.Text, curated),
			Keyboard: canon.MenuKeyboard(),
		}, nil
	}

	prompt := r.bank.Prompt(action.Flow)
	if prompt == "" {
		prompt = canon.HelpReply
	}
	return Reply{Text: prompt, Keyboard: canon.KeyboardFor(action.Flow)}, nil
}

// HandleMessage handles one free-text message: safety screen, intent
// resolution, canonical-vs-generated arbitration, link curation.
func (r *Router) HandleMessage(ctx context.Context, conversationID, text string) (Reply, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return Reply{}, newError(ErrorInvalidUpdate, "empty_conversation_id", nil)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, newError(ErrorInvalidUpdate, "empty_message", nil)
	}

	// Safety screen runs before everything else; a match never reaches the
	// completion service.
	switch safety.Classify(text) {
	case safety.Emergency:
		return Reply{Text: canon.EmergencyReply}, nil
	case safety.OffLimits:
		return Reply{Text: canon.OffLimitsReply}, nil
	}

	defer r.lockConversation(conversationID)()

	sess, err := r.store.Get(ctx, conversationID)
	if err != nil {
		return Reply{}, newError(ErrorInternal, "session_read_error", err)
	}
	if sess == nil {
		sess = &domain.Session{ConversationID: conversationID}
	}

	res := r.resolver.Resolve(sess, text, nil)
	if res.Flow == domain.FlowUnknown {
		classified, err := r.classifyIntent(ctx, text)
		if err != nil {
			if isQuotaExceeded(err) {
				return Reply{Text: canon.MaintenanceReply}, nil
			}
			return Reply{}, err
		}
		switch classified.flow {
		case domain.FlowEmergency:
			return Reply{Text: canon.EmergencyReply}, nil
		case domain.FlowUnknown:
			return r.helpReply(ctx, sess)
		default:
			res.Flow = classified.flow
			res.Tag = r.resolver.TagFor(classified.flow, text)
		}
	}

	if res.Flow == domain.FlowHelp {
		return r.helpReply(ctx, sess)
	}

	generated, err := r.compose(ctx, res.Flow, res.Tag, text)
	if err != nil {
		if isQuotaExceeded(err) {
			return Reply{Text: canon.MaintenanceReply}, nil
		}
		return Reply{}, err
	}

	body := generated.Text
	if canonical, found := r.bank.Lookup(res.Flow, res.Tag); found {
		verdict, judgeErr := r.judge(ctx, res.Flow, text, canonical.Text, generated.Text)
		if judgeErr != nil {
			// Fail safe: an unvalidated generated answer is never shown.
			r.logger.WarnContext(ctx, "judge unavailable, using canonical answer",
				slog.String("conversation_id", conversationID),
				slog.String("flow", string(res.Flow)),
				slog.Any("error", judgeErr))
			body = canonical.Text
		} else if verdict.Winner != domain.WinnerGenerated || verdict.Confidence < minGeneratedConfidence {
			body = canonical.Text
		}
	}

	if res.Flow == domain.FlowCaregiver && res.Tag == domain.TagFind {
		body = r.appendNearbyPlaces(ctx, body, text)
	}

	curated := links.Curate(r.bank.Links(res.Flow, res.Tag), generated.ExtractedLinks, r.allow)

	sess.TurnCount++
	if err := r.store.Set(ctx, sess); err != nil {
		return Reply{}, newError(ErrorInternal, "session_write_error", err)
	}

	return Reply{Text: assembleReply(body, curated)}, nil
}

// helpReply answers with the topic overview and counts the turn.
func (r *Router) helpReply(ctx context.Context, sess *domain.Session) (Reply, error) {
	sess.TurnCount++
	if err := r.store.Set(ctx, sess); err != nil {
		return Reply{}, newError(ErrorInternal, "session_write_error", err)
	}
	return Reply{Text: canon.HelpReply, Keyboard: canon.MenuKeyboard()}, nil
}

// appendNearbyPlaces adds open-data centre suggestions to a caregiver find
// reply. Best-effort: any lookup failure leaves the body unchanged.
func (r *Router) appendNearbyPlaces(ctx context.Context, body, query string) string {
	if r.places == nil {
		return body
	}
	if strings.TrimSpace(query) == "" {
		return body
	}
	places, err := r.places.Lookup(ctx, "infant care centres", query, nearbyPlacesLimit)
	if err != nil {
		r.logger.DebugContext(ctx, "open-data lookup skipped", slog.Any("error", err))
		return body
	}
	if len(places) == 0 {
		return body
	}
	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n\n*Nearby options:*")
	for _, p := range places {
		if p.Address != "" {
			b.WriteString(fmt.Sprintf("\n📍 %s, %s", p.Name, p.Address))
			continue
		}
		b.WriteString("\n📍 " + p.Name)
	}
	return b.String()
}

// assembleReply joins the answer body, the curated reference block and the
// standing disclaimer.
func assembleReply(body string, curated []string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(body))
	if len(curated) > 0 {
		b.WriteString("\n\n")
		b.WriteString(canon.MoreInfoHeader)
		for _, line := range curated {
			b.WriteString("\n• " + line)
		}
	}
	b.WriteString("\n\n")
	b.WriteString(canon.Disclaimer)
	return b.String()
}

func isQuotaExceeded(err error) bool {
	var q quotaExceeder
	return errors.As(err, &q) && q.QuotaExceeded()
}
