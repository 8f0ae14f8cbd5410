package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"babygpt/internal/canon"
	"babygpt/internal/domain"
)

type mockLLM struct {
	composeFn  func(req domain.CompletionRequest) (string, error)
	judgeFn    func(req domain.CompletionRequest) (string, error)
	classifyFn func(req domain.CompletionRequest) (string, error)

	composeCalls  int
	judgeCalls    int
	classifyCalls int
}

func (m *mockLLM) Complete(_ context.Context, req domain.CompletionRequest) (string, error) {
	switch req.SchemaName {
	case verdictSchemaName:
		m.judgeCalls++
		if m.judgeFn == nil {
			return "", errors.New("unexpected judge call")
		}
		return m.judgeFn(req)
	case intentSchemaName:
		m.classifyCalls++
		if m.classifyFn == nil {
			return "", errors.New("unexpected classifier call")
		}
		return m.classifyFn(req)
	default:
		m.composeCalls++
		if m.composeFn == nil {
			return "", errors.New("unexpected compose call")
		}
		return m.composeFn(req)
	}
}

type mockStore struct {
	sessions map[string]*domain.Session
	getErr   error
	setErr   error
	delErr   error
	deletes  int
}

func newMockStore() *mockStore {
	return &mockStore{sessions: make(map[string]*domain.Session)}
}

func (m *mockStore) Get(_ context.Context, conversationID string) (*domain.Session, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.sessions[conversationID], nil
}

func (m *mockStore) Set(_ context.Context, sess *domain.Session) error {
	if m.setErr != nil {
		return m.setErr
	}
	copied := *sess
	m.sessions[sess.ConversationID] = &copied
	return nil
}

func (m *mockStore) Delete(_ context.Context, conversationID string) error {
	m.deletes++
	if m.delErr != nil {
		return m.delErr
	}
	delete(m.sessions, conversationID)
	return nil
}

type mockPlaces struct {
	places []domain.Place
	err    error
	calls  int
}

func (m *mockPlaces) Lookup(_ context.Context, _, _ string, _ int) ([]domain.Place, error) {
	m.calls++
	return m.places, m.err
}

type quotaErr struct{}

func (quotaErr) Error() string       { return "quota exceeded" }
func (quotaErr) QuotaExceeded() bool { return true }

func newTestRouter(t *testing.T, llm *mockLLM, store *mockStore, opts ...RouterOption) *Router {
	t.Helper()
	r, err := NewRouter(llm, store, "gpt-4o-mini", opts...)
	require.NoError(t, err)
	return r
}

func verdictJSON(winner string, confidence float64) string {
	return fmt.Sprintf(`{"winner":%q,"confidence":%v,"reason":"test"}`, winner, confidence)
}

func TestHandleMessage_EmergencyShortCircuits(t *testing.T) {
	llm := &mockLLM{}
	r := newTestRouter(t, llm, newMockStore())

	reply, err := r.HandleMessage(context.Background(), "c1", "my baby has blue lips")
	require.NoError(t, err)
	require.Equal(t, canon.EmergencyReply, reply.Text)
	require.Zero(t, llm.composeCalls+llm.judgeCalls+llm.classifyCalls)
}

func TestHandleMessage_OffLimitsShortCircuits(t *testing.T) {
	llm := &mockLLM{}
	r := newTestRouter(t, llm, newMockStore())

	reply, err := r.HandleMessage(context.Background(), "c1", "where can I get a quick loan")
	require.NoError(t, err)
	require.Equal(t, canon.OffLimitsReply, reply.Text)
	require.Zero(t, llm.composeCalls+llm.judgeCalls+llm.classifyCalls)
}

func TestHandleMessage_CanonicalWinsOnJudgeVerdict(t *testing.T) {
	llm := &mockLLM{
		composeFn: func(domain.CompletionRequest) (string, error) {
			return "Generated milk guidance.", nil
		},
		judgeFn: func(domain.CompletionRequest) (string, error) {
			return verdictJSON("canonical", 0.9), nil
		},
	}
	store := newMockStore()
	r := newTestRouter(t, llm, store)

	reply, err := r.HandleMessage(context.Background(), "c1", "how much milk for 4 month old")
	require.NoError(t, err)
	require.Contains(t, reply.Text, "Milk amounts by age")
	require.NotContains(t, reply.Text, "Generated milk guidance.")
	require.Contains(t, reply.Text, canon.MoreInfoHeader)
	require.Contains(t, reply.Text, canon.Disclaimer)
	require.Equal(t, 1, llm.judgeCalls)

	sess := store.sessions["c1"]
	require.NotNil(t, sess)
	require.Equal(t, 1, sess.TurnCount)
	// Rule-matched flows are not persisted; only explicit selections are.
	require.Empty(t, sess.ActiveFlow)
}

func TestHandleMessage_GeneratedWinsAtBoundary(t *testing.T) {
	llm := &mockLLM{
		composeFn: func(domain.CompletionRequest) (string, error) {
			return "Generated milk guidance.", nil
		},
		judgeFn: func(domain.CompletionRequest) (string, error) {
			return verdictJSON("generated", 0.65), nil
		},
	}
	r := newTestRouter(t, llm, newMockStore())

	reply, err := r.HandleMessage(context.Background(), "c1", "how much milk for 4 month old")
	require.NoError(t, err)
	require.Contains(t, reply.Text, "Generated milk guidance.")
	require.NotContains(t, reply.Text, "Milk amounts by age")
}

func TestHandleMessage_CanonicalWinsBelowBoundary(t *testing.T) {
	llm := &mockLLM{
		composeFn: func(domain.CompletionRequest) (string, error) {
			return "Generated milk guidance.", nil
		},
		judgeFn: func(domain.CompletionRequest) (string, error) {
			return verdictJSON("generated", 0.64), nil
		},
	}
	r := newTestRouter(t, llm, newMockStore())

	reply, err := r.HandleMessage(context.Background(), "c1", "how much milk for 4 month old")
	require.NoError(t, err)
	require.Contains(t, reply.Text, "Milk amounts by age")
}

func TestHandleMessage_JudgeFailureFailsSafeToCanonical(t *testing.T) {
	for name, judgeErr := range map[string]error{
		"quota":     quotaErr{},
		"transport": errors.New("connection reset"),
	} {
		t.Run(name, func(t *testing.T) {
			llm := &mockLLM{
				composeFn: func(domain.CompletionRequest) (string, error) {
					return "Generated milk guidance.", nil
				},
				judgeFn: func(domain.CompletionRequest) (string, error) {
					return "", judgeErr
				},
			}
			r := newTestRouter(t, llm, newMockStore())

			reply, err := r.HandleMessage(context.Background(), "c1", "how much milk for 4 month old")
			require.NoError(t, err)
			require.Contains(t, reply.Text, "Milk amounts by age")
			require.NotContains(t, reply.Text, "Generated milk guidance.")
		})
	}
}

func TestHandleMessage_JudgeMalformedVerdictFailsSafe(t *testing.T) {
	llm := &mockLLM{
		composeFn: func(domain.CompletionRequest) (string, error) {
			return "Generated milk guidance.", nil
		},
		judgeFn: func(domain.CompletionRequest) (string, error) {
			return `{"winner":"neither","confidence":2}`, nil
		},
	}
	r := newTestRouter(t, llm, newMockStore())

	reply, err := r.HandleMessage(context.Background(), "c1", "how much milk for 4 month old")
	require.NoError(t, err)
	require.Contains(t, reply.Text, "Milk amounts by age")
}

func TestHandleMessage_NoCanonicalSkipsJudge(t *testing.T) {
	llm := &mockLLM{
		composeFn: func(domain.CompletionRequest) (string, error) {
			return "Try a calming wind-down routine.", nil
		},
	}
	r := newTestRouter(t, llm, newMockStore())

	reply, err := r.HandleMessage(context.Background(), "c1", "baby keeps crying at night")
	require.NoError(t, err)
	require.Contains(t, reply.Text, "Try a calming wind-down routine.")
	require.Zero(t, llm.judgeCalls)
}

func TestHandleMessage_ComposeQuotaShowsMaintenance(t *testing.T) {
	llm := &mockLLM{
		composeFn: func(domain.CompletionRequest) (string, error) {
			return "", quotaErr{}
		},
	}
	r := newTestRouter(t, llm, newMockStore())

	reply, err := r.HandleMessage(context.Background(), "c1", "how much milk for 4 month old")
	require.NoError(t, err)
	require.Equal(t, canon.MaintenanceReply, reply.Text)
	require.Zero(t, llm.judgeCalls)
}

func TestHandleMessage_ComposeErrorPropagates(t *testing.T) {
	llm := &mockLLM{
		composeFn: func(domain.CompletionRequest) (string, error) {
			return "", errors.New("upstream down")
		},
	}
	r := newTestRouter(t, llm, newMockStore())

	_, err := r.HandleMessage(context.Background(), "c1", "how much milk for 4 month old")
	var ucErr *Error
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, ErrorUpstream, ucErr.Code)
}

func TestHandleMessage_ActiveFlowSteersResolution(t *testing.T) {
	llm := &mockLLM{
		composeFn: func(domain.CompletionRequest) (string, error) {
			return "Generated.", nil
		},
		judgeFn: func(domain.CompletionRequest) (string, error) {
			return verdictJSON("canonical", 0.9), nil
		},
	}
	store := newMockStore()
	store.sessions["c1"] = &domain.Session{ConversationID: "c1", ActiveFlow: domain.FlowNutrition, TurnCount: 2}
	r := newTestRouter(t, llm, store)

	reply, err := r.HandleMessage(context.Background(), "c1", "how many ml of milk per feed")
	require.NoError(t, err)
	require.Contains(t, reply.Text, "Milk amounts by age")
	require.Equal(t, 3, store.sessions["c1"].TurnCount)
	require.Equal(t, domain.FlowNutrition, store.sessions["c1"].ActiveFlow)
}

func TestHandleMessage_ClassifierResolvesUnknownText(t *testing.T) {
	llm := &mockLLM{
		classifyFn: func(domain.CompletionRequest) (string, error) {
			return `{"intent":"wellbeing","confidence":0.83}`, nil
		},
		composeFn: func(domain.CompletionRequest) (string, error) {
			return "Take five minutes for yourself today.", nil
		},
	}
	r := newTestRouter(t, llm, newMockStore())

	reply, err := r.HandleMessage(context.Background(), "c1", "everything is just too much lately")
	require.NoError(t, err)
	require.Equal(t, 1, llm.classifyCalls)
	require.Contains(t, reply.Text, "Take five minutes for yourself today.")
}

func TestHandleMessage_ClassifierEmergency(t *testing.T) {
	llm := &mockLLM{
		classifyFn: func(domain.CompletionRequest) (string, error) {
			return `{"intent":"emergency","confidence":0.97}`, nil
		},
	}
	r := newTestRouter(t, llm, newMockStore())

	reply, err := r.HandleMessage(context.Background(), "c1", "something is very wrong with him")
	require.NoError(t, err)
	require.Equal(t, canon.EmergencyReply, reply.Text)
	require.Zero(t, llm.composeCalls)
}

func TestHandleMessage_ClassifierLowConfidenceFallsBackToHelp(t *testing.T) {
	llm := &mockLLM{
		classifyFn: func(domain.CompletionRequest) (string, error) {
			return `{"intent":"nutrition","confidence":0.3}`, nil
		},
	}
	r := newTestRouter(t, llm, newMockStore())

	reply, err := r.HandleMessage(context.Background(), "c1", "hmmmm")
	require.NoError(t, err)
	require.Equal(t, canon.HelpReply, reply.Text)
	require.NotNil(t, reply.Keyboard)
	require.Zero(t, llm.composeCalls)
}

func TestHandleMessage_ClassifierQuotaShowsMaintenance(t *testing.T) {
	llm := &mockLLM{
		classifyFn: func(domain.CompletionRequest) (string, error) {
			return "", quotaErr{}
		},
	}
	r := newTestRouter(t, llm, newMockStore())

	reply, err := r.HandleMessage(context.Background(), "c1", "hmmmm")
	require.NoError(t, err)
	require.Equal(t, canon.MaintenanceReply, reply.Text)
}

func TestHandleMessage_ClassifierMalformedOutputPropagates(t *testing.T) {
	llm := &mockLLM{
		classifyFn: func(domain.CompletionRequest) (string, error) {
			return `{"intent":"nutrition","confidence":0.9,"extra":true}`, nil
		},
	}
	r := newTestRouter(t, llm, newMockStore())

	_, err := r.HandleMessage(context.Background(), "c1", "hmmmm")
	var ucErr *Error
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, ErrorMalformedOutput, ucErr.Code)
}

func TestHandleMessage_CuratesOnlyAllowlistedLinks(t *testing.T) {
	llm := &mockLLM{
		composeFn: func(domain.CompletionRequest) (string, error) {
			return "See https://www.healthhub.sg/feeding and https://randomblog.example/milk for more.", nil
		},
		judgeFn: func(domain.CompletionRequest) (string, error) {
			return verdictJSON("canonical", 0.9), nil
		},
	}
	r := newTestRouter(t, llm, newMockStore())

	reply, err := r.HandleMessage(context.Background(), "c1", "how much milk for 4 month old")
	require.NoError(t, err)
	// Allow-listed links from the generated text survive into the curated
	// block even when the canonical body wins; untrusted hosts never do.
	require.Contains(t, reply.Text, "https://www.healthhub.sg/feeding")
	require.NotContains(t, reply.Text, "randomblog.example")
}

func TestHandleMessage_CaregiverFindAppendsNearbyPlaces(t *testing.T) {
	llm := &mockLLM{
		composeFn: func(domain.CompletionRequest) (string, error) {
			return "Generated.", nil
		},
		judgeFn: func(domain.CompletionRequest) (string, error) {
			return verdictJSON("canonical", 0.9), nil
		},
	}
	store := newMockStore()
	store.sessions["c1"] = &domain.Session{ConversationID: "c1", ActiveFlow: domain.FlowCaregiver}
	places := &mockPlaces{places: []domain.Place{
		{Name: "Sunshine Infantcare", Address: "1 Tampines St 11"},
		{Name: "Little Steps"},
	}}
	r := newTestRouter(t, llm, store, WithPlaceFinder(places))

	reply, err := r.HandleMessage(context.Background(), "c1", "infant care near tampines")
	require.NoError(t, err)
	require.Equal(t, 1, places.calls)
	require.Contains(t, reply.Text, "Nearby options")
	require.Contains(t, reply.Text, "Sunshine Infantcare, 1 Tampines St 11")
	require.Contains(t, reply.Text, "Little Steps")
}

func TestHandleMessage_PlaceLookupFailureIsSilent(t *testing.T) {
	llm := &mockLLM{
		composeFn: func(domain.CompletionRequest) (string, error) {
			return "Generated.", nil
		},
		judgeFn: func(domain.CompletionRequest) (string, error) {
			return verdictJSON("canonical", 0.9), nil
		},
	}
	store := newMockStore()
	store.sessions["c1"] = &domain.Session{ConversationID: "c1", ActiveFlow: domain.FlowCaregiver}
	places := &mockPlaces{err: errors.New("open data down")}
	r := newTestRouter(t, llm, store, WithPlaceFinder(places))

	reply, err := r.HandleMessage(context.Background(), "c1", "infant care near tampines")
	require.NoError(t, err)
	require.Contains(t, reply.Text, "Steps to find infantcare")
	require.NotContains(t, reply.Text, "Nearby options")
}

func TestHandleMessage_Validation(t *testing.T) {
	r := newTestRouter(t, &mockLLM{}, newMockStore())

	_, err := r.HandleMessage(context.Background(), "", "hello")
	var ucErr *Error
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, ErrorInvalidUpdate, ucErr.Code)

	_, err = r.HandleMessage(context.Background(), "c1", "   ")
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, ErrorInvalidUpdate, ucErr.Code)
}

func TestHandleAction_FlowSelectionSetsSessionAndPrompts(t *testing.T) {
	store := newMockStore()
	r := newTestRouter(t, &mockLLM{}, store)

	reply, err := r.HandleAction(context.Background(), "c1", "flow:caregiver")
	require.NoError(t, err)

	sess := store.sessions["c1"]
	require.NotNil(t, sess)
	require.Equal(t, domain.FlowCaregiver, sess.ActiveFlow)
	require.Zero(t, sess.TurnCount)

	require.Contains(t, reply.Text, "What caregiver do you need?")
	require.NotNil(t, reply.Keyboard)
	require.Equal(t, "flow:caregiver:find", reply.Keyboard.Rows[0][0].Data)
}

func TestHandleAction_SubChoiceReturnsCanonicalAnswer(t *testing.T) {
	store := newMockStore()
	r := newTestRouter(t, &mockLLM{}, store)

	reply, err := r.HandleAction(context.Background(), "c1", "flow:caregiver:helper")
	require.NoError(t, err)
	require.Contains(t, reply.Text, "Hire a helper (MDW) in SG")
	require.Contains(t, reply.Text, canon.MoreInfoHeader)
	require.Contains(t, reply.Text, "mom.gov.sg")
	require.Contains(t, reply.Text, canon.Disclaimer)
	require.Equal(t, domain.FlowCaregiver, store.sessions["c1"].ActiveFlow)
}

func TestHandleAction_UnrecognizedPayload(t *testing.T) {
	r := newTestRouter(t, &mockLLM{}, newMockStore())

	for _, payload := range []string{"", "flow:", "flow:emergency", "other:cry", "cry"} {
		_, err := r.HandleAction(context.Background(), "c1", payload)
		var ucErr *Error
		require.ErrorAs(t, err, &ucErr, "payload %q", payload)
		require.Equal(t, ErrorInvalidUpdate, ucErr.Code)
	}
}

func TestHandleStart_ClearsSessionAndIntroduces(t *testing.T) {
	store := newMockStore()
	store.sessions["c1"] = &domain.Session{ConversationID: "c1", ActiveFlow: domain.FlowCry, TurnCount: 5}
	r := newTestRouter(t, &mockLLM{}, store)

	reply, err := r.HandleStart(context.Background(), "c1")
	require.NoError(t, err)
	require.Equal(t, 1, store.deletes)
	require.Nil(t, store.sessions["c1"])
	require.Equal(t, canon.IntroReply, reply.Text)
	require.NotNil(t, reply.Keyboard)
}

func TestHandleMessage_SessionStoreErrors(t *testing.T) {
	llm := &mockLLM{
		composeFn: func(domain.CompletionRequest) (string, error) {
			return "Generated.", nil
		},
		judgeFn: func(domain.CompletionRequest) (string, error) {
			return verdictJSON("canonical", 0.9), nil
		},
	}

	store := newMockStore()
	store.getErr = errors.New("store down")
	r := newTestRouter(t, llm, store)
	_, err := r.HandleMessage(context.Background(), "c1", "how much milk for 4 month old")
	var ucErr *Error
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, ErrorInternal, ucErr.Code)

	store = newMockStore()
	store.setErr = errors.New("store down")
	r = newTestRouter(t, llm, store)
	_, err = r.HandleMessage(context.Background(), "c1", "how much milk for 4 month old")
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, ErrorInternal, ucErr.Code)
}
