package services

import (
	"context"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/application/ports/inbound"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/application/ports/outbound"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/config"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/domain"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/infrastructure/adapters"
	"strings"
	"sync"
	"testing"
	"time"
)

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (c *callLog) add(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, name)
}

func (c *callLog) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *callLog) count(name string) int {
	n := 0
	for _, call := range c.snapshot() {
		if call == name {
			n++
		}
	}
	return n
}

type fakeScriptGenerator struct {
	log  *callLog
	text string
	err  error
	last outbound.GenerateScriptRequest
}

func (f *fakeScriptGenerator) Generate(_ context.Context, req outbound.GenerateScriptRequest) (domain.GeneratedScript, error) {
	f.log.add("generate")
	f.last = req
	if f.err != nil {
		return domain.GeneratedScript{}, f.err
	}
	return domain.GeneratedScript{Text: f.text}, nil
}

type fakeSpeechSynthesizer struct {
	log   *callLog
	delay time.Duration
	err   error
	last  outbound.SynthesizeSpeechRequest
}

func (f *fakeSpeechSynthesizer) Synthesize(_ context.Context, req outbound.SynthesizeSpeechRequest) (domain.AudioAsset, error) {
	f.log.add("synthesize")
	f.last = req
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return domain.AudioAsset{}, f.err
	}
	return domain.AudioAsset{Content: []byte("ID3fake-mp3"), ContentType: "audio/mpeg"}, nil
}

type fakeAudioSpool struct {
	mu      sync.Mutex
	staged  map[string][]byte
	removed []string
}

func newFakeAudioSpool() *fakeAudioSpool {
	return &fakeAudioSpool{staged: make(map[string][]byte)}
}

func (f *fakeAudioSpool) Stage(asset domain.AudioAsset, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := "/spool/" + key
	f.staged[path] = asset.Content
	return path, nil
}

func (f *fakeAudioSpool) Remove(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, path)
	return nil
}

type fakeAudioPublisher struct {
	log  *callLog
	mu   sync.Mutex
	keys []string
	err  error
}

func (f *fakeAudioPublisher) Publish(_ context.Context, req outbound.PublishAudioRequest) (domain.PublishedAudio, error) {
	f.log.add("publish")
	if f.err != nil {
		return domain.PublishedAudio{}, f.err
	}
	f.mu.Lock()
	f.keys = append(f.keys, req.Key)
	f.mu.Unlock()
	return domain.PublishedAudio{URL: "https://bucket.example/" + req.Key, Key: req.Key}, nil
}

type fakeDeliveryDispatcher struct {
	log  *callLog
	err  error
	last outbound.DispatchRequest
}

func (f *fakeDeliveryDispatcher) Dispatch(_ context.Context, req outbound.DispatchRequest) (domain.DispatchAck, error) {
	f.log.add("dispatch")
	f.last = req
	if f.err != nil {
		return domain.DispatchAck{}, f.err
	}
	return domain.DispatchAck{SessionID: "session-1", Raw: "OK"}, nil
}

type fakeSubmissionStore struct {
	log     *callLog
	mu      sync.Mutex
	records []domain.SubmissionRecord
	known   map[string]bool
	err     error
}

func (f *fakeSubmissionStore) Append(_ context.Context, record domain.SubmissionRecord) error {
	f.log.add("append")
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record)
	return nil
}

func (f *fakeSubmissionStore) HasPhoneNumber(_ context.Context, phoneNumber string) (bool, error) {
	return f.known[phoneNumber], nil
}

type nopMetrics struct{}

func (nopMetrics) ObserveStage(domain.Stage, time.Duration, error) {}
func (nopMetrics) IncSubmission(string)                           {}

type allowAllRegistry struct{}

func (allowAllRegistry) Reserve(string) bool { return true }
func (allowAllRegistry) Commit(string)       {}
func (allowAllRegistry) Release(string)      {}

type pipelineFixture struct {
	log         *callLog
	generator   *fakeScriptGenerator
	synthesizer *fakeSpeechSynthesizer
	spool       *fakeAudioSpool
	publisher   *fakeAudioPublisher
	dispatcher  *fakeDeliveryDispatcher
	store       *fakeSubmissionStore
	registry    outbound.DedupRegistryPort
	conf        *config.PipelineConfig
}

func newPipelineFixture() *pipelineFixture {
	log := &callLog{}
	return &pipelineFixture{
		log:         log,
		generator:   &fakeScriptGenerator{log: log, text: "Hi Jane, this is Tim from Sunrise Solar."},
		synthesizer: &fakeSpeechSynthesizer{log: log},
		spool:       newFakeAudioSpool(),
		publisher:   &fakeAudioPublisher{log: log},
		dispatcher:  &fakeDeliveryDispatcher{log: log},
		store:       &fakeSubmissionStore{log: log, known: map[string]bool{}},
		registry:    adapters.NewMemoryDedupRegistry(0),
		conf: &config.PipelineConfig{
			SystemPrompt:   "default sales script",
			VoiceID:        "default-voice",
			CallerID:       "8148261207",
			AudioFormat:    "Mp3",
			CampaignTitle:  "test_campaign",
			DeliveryOffset: 2 * time.Minute,
			StageTimeout:   5 * time.Second,
		},
	}
}

func (f *pipelineFixture) orchestrator() inbound.SubmissionPipelinePort {
	return NewSubmissionPipelineOrchestrator(adapters.NewZerologWrapper(), f.conf, PipelineDependencies{
		ScriptGenerator:    f.generator,
		SpeechSynthesizer:  f.synthesizer,
		AudioSpool:         f.spool,
		AudioPublisher:     f.publisher,
		DeliveryDispatcher: f.dispatcher,
		SubmissionStore:    f.store,
		DedupRegistry:      f.registry,
		Metrics:            nopMetrics{},
		Now:                func() time.Time { return fixedNow },
	})
}

func janeInput() domain.SubmissionInput {
	return domain.SubmissionInput{
		PhoneNumber:    "5551234567",
		AuthorName:     "Jane",
		SubmissionText: "interested in solar",
		AuthorEmail:    "jane@x.com",
	}
}

func TestSubmit_EndToEnd(t *testing.T) {
	f := newPipelineFixture()

	res, err := f.orchestrator().Submit(context.Background(), inbound.SubmitParams{RequestID: "req-12345678", Input: janeInput()})
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)
	assert.NotEqual(t, "req-12345678", res.RunID)
	audioURL := "https://bucket.example/5551234567-" + res.RunID + ".mp3"

	assert.Equal(t, []string{"generate", "synthesize", "publish", "dispatch", "append"}, f.log.snapshot())
	assert.Equal(t, domain.SubmissionStatusSuccess, res.Status)
	assert.Equal(t, audioURL, res.AudioURL)

	assert.Equal(t, "default sales script", f.generator.last.SystemPrompt)
	assert.Equal(t, "Jane", f.generator.last.AuthorName)
	assert.Equal(t, "interested in solar", f.generator.last.SubmissionText)
	assert.Equal(t, "Hi Jane, this is Tim from Sunrise Solar.", f.synthesizer.last.Text)
	assert.Equal(t, "default-voice", f.synthesizer.last.VoiceID)

	assert.Equal(t, audioURL, f.dispatcher.last.AudioURL)
	assert.Equal(t, "5551234567", f.dispatcher.last.PhoneNumber)
	assert.Equal(t, "8148261207", f.dispatcher.last.CallerID)
	assert.Equal(t, fixedNow.Add(2*time.Minute), f.dispatcher.last.ScheduledAt)

	require.Len(t, f.store.records, 1)
	record := f.store.records[0]
	assert.Equal(t, "5551234567", record.PhoneNumber)
	assert.Equal(t, "Jane", record.AuthorName)
	assert.Equal(t, "jane@x.com", record.AuthorEmail)
	assert.Equal(t, "interested in solar", record.SubmissionText)
	assert.Equal(t, "Hi Jane, this is Tim from Sunrise Solar.", record.GeneratedScript)
	assert.Equal(t, fixedNow, record.SubmittedAt)

	assert.Equal(t, res.RunID, record.RunID)
	assert.Equal(t, []string{"/spool/5551234567-" + res.RunID + ".mp3"}, f.spool.removed)
}

func TestSubmit_OverridesFromInput(t *testing.T) {
	f := newPipelineFixture()
	input := janeInput()
	input.SalesScript = "custom script"
	input.ModelID = "gpt-4o"
	input.VoiceID = "custom-voice"

	_, err := f.orchestrator().Submit(context.Background(), inbound.SubmitParams{Input: input})
	require.NoError(t, err)

	assert.Equal(t, "custom script", f.generator.last.SystemPrompt)
	assert.Equal(t, "gpt-4o", f.generator.last.ModelID)
	assert.Equal(t, "custom-voice", f.synthesizer.last.VoiceID)
}

func TestSubmit_StoresSubmissionTextVerbatim(t *testing.T) {
	f := newPipelineFixture()
	input := janeInput()
	input.AuthorName = "  Jane  "
	input.SubmissionText = "  interested in solar\n\nand batteries  \n"

	_, err := f.orchestrator().Submit(context.Background(), inbound.SubmitParams{Input: input})
	require.NoError(t, err)

	require.Len(t, f.store.records, 1)
	assert.Equal(t, "  interested in solar\n\nand batteries  \n", f.store.records[0].SubmissionText)
	assert.Equal(t, "Jane", f.store.records[0].AuthorName)
	assert.Equal(t, input.SubmissionText, f.generator.last.SubmissionText)
}

func TestSubmit_TextTooLong(t *testing.T) {
	f := newPipelineFixture()
	input := janeInput()
	input.SubmissionText = strings.Repeat("a", domain.MaxSubmissionTextLength+1)

	_, err := f.orchestrator().Submit(context.Background(), inbound.SubmitParams{Input: input})

	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, domain.ReasonTextTooLong, validationErr.Reason)
	assert.Empty(t, f.log.snapshot())
}

func TestSubmit_TextAtLimitIsAccepted(t *testing.T) {
	f := newPipelineFixture()
	input := janeInput()
	input.SubmissionText = strings.Repeat("é", domain.MaxSubmissionTextLength)

	_, err := f.orchestrator().Submit(context.Background(), inbound.SubmitParams{Input: input})
	require.NoError(t, err)
}

func TestSubmit_MissingField(t *testing.T) {
	for _, tc := range []struct {
		name  string
		field string
		edit  func(*domain.SubmissionInput)
	}{
		{"phone", "phone_number", func(in *domain.SubmissionInput) { in.PhoneNumber = " - " }},
		{"name", "author_name", func(in *domain.SubmissionInput) { in.AuthorName = "" }},
		{"text", "submission_text", func(in *domain.SubmissionInput) { in.SubmissionText = "   " }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newPipelineFixture()
			input := janeInput()
			tc.edit(&input)

			_, err := f.orchestrator().Submit(context.Background(), inbound.SubmitParams{Input: input})

			var validationErr *domain.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, domain.ReasonMissingField, validationErr.Reason)
			assert.Equal(t, tc.field, validationErr.Field)
			assert.Empty(t, f.log.snapshot())
		})
	}
}

func TestSubmit_DuplicatePhoneNumber(t *testing.T) {
	f := newPipelineFixture()
	orchestrator := f.orchestrator()

	_, err := orchestrator.Submit(context.Background(), inbound.SubmitParams{Input: janeInput()})
	require.NoError(t, err)
	callsAfterFirst := len(f.log.snapshot())

	input := janeInput()
	input.PhoneNumber = "(555) 123-4567"
	_, err = orchestrator.Submit(context.Background(), inbound.SubmitParams{Input: input})

	assert.ErrorIs(t, err, domain.ErrDuplicateSubmission)
	assert.Len(t, f.log.snapshot(), callsAfterFirst)
}

func TestSubmit_PersistentDedupConsultsStore(t *testing.T) {
	f := newPipelineFixture()
	f.conf.DedupPersistent = true
	f.store.known["5551234567"] = true

	_, err := f.orchestrator().Submit(context.Background(), inbound.SubmitParams{Input: janeInput()})

	assert.ErrorIs(t, err, domain.ErrDuplicateSubmission)
	assert.Empty(t, f.log.snapshot())
}

func TestSubmit_GarbageAudioIsNeverPublished(t *testing.T) {
	f := newPipelineFixture()
	f.synthesizer.err = domain.NewSynthesisError("non-audio payload", errors.New(`{"detail":"quota_exceeded"}`))

	_, err := f.orchestrator().Submit(context.Background(), inbound.SubmitParams{Input: janeInput()})

	assert.True(t, domain.IsStageError(err, domain.StageSynthesize))
	assert.Equal(t, 0, f.log.count("publish"))
	assert.Equal(t, 0, f.log.count("dispatch"))
	assert.Empty(t, f.store.records)
}

func TestSubmit_StageFailureReleasesPhoneNumber(t *testing.T) {
	f := newPipelineFixture()
	f.dispatcher.err = domain.NewDispatchError("rejected", errors.New("ERROR invalid phone"))
	orchestrator := f.orchestrator()

	_, err := orchestrator.Submit(context.Background(), inbound.SubmitParams{Input: janeInput()})
	assert.True(t, domain.IsStageError(err, domain.StageDispatch))
	assert.Equal(t, 0, f.log.count("append"))

	f.dispatcher.err = nil
	_, err = orchestrator.Submit(context.Background(), inbound.SubmitParams{Input: janeInput()})
	require.NoError(t, err)
	assert.Equal(t, 2, f.log.count("generate"))
}

func TestSubmit_UnclassifiedErrorIsAttributedToStage(t *testing.T) {
	f := newPipelineFixture()
	f.generator.err = context.DeadlineExceeded

	_, err := f.orchestrator().Submit(context.Background(), inbound.SubmitParams{Input: janeInput()})

	assert.True(t, domain.IsStageError(err, domain.StageGenerate))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"generate"}, f.log.snapshot())
}

func TestSubmit_PersistenceFailureAfterDispatchKeepsNumberBlocked(t *testing.T) {
	f := newPipelineFixture()
	f.store.err = errors.New("disk full")
	orchestrator := f.orchestrator()

	_, err := orchestrator.Submit(context.Background(), inbound.SubmitParams{Input: janeInput()})
	assert.True(t, domain.IsStageError(err, domain.StagePersist))
	assert.Equal(t, 1, f.log.count("dispatch"))

	_, err = orchestrator.Submit(context.Background(), inbound.SubmitParams{Input: janeInput()})
	assert.ErrorIs(t, err, domain.ErrDuplicateSubmission)
	assert.Equal(t, 1, f.log.count("dispatch"))
}

func TestSubmit_ConcurrentSamePhoneNumber(t *testing.T) {
	f := newPipelineFixture()
	f.synthesizer.delay = 50 * time.Millisecond
	orchestrator := f.orchestrator()

	const callers = 8
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := orchestrator.Submit(context.Background(), inbound.SubmitParams{Input: janeInput()})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrDuplicateSubmission)
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, f.log.count("dispatch"))
	assert.Equal(t, 1, f.log.count("publish"))
}

func TestSubmit_DistinctRunsNeverShareKeys(t *testing.T) {
	f := newPipelineFixture()
	f.registry = allowAllRegistry{}
	orchestrator := f.orchestrator()

	first, err := orchestrator.Submit(context.Background(), inbound.SubmitParams{Input: janeInput()})
	require.NoError(t, err)
	second, err := orchestrator.Submit(context.Background(), inbound.SubmitParams{Input: janeInput()})
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	require.Len(t, f.publisher.keys, 2)
	assert.NotEqual(t, f.publisher.keys[0], f.publisher.keys[1])
	assert.Len(t, f.spool.staged, 2)
}

func TestSubmit_SharedRequestIDNeverSharesRunOrKey(t *testing.T) {
	f := newPipelineFixture()
	orchestrator := f.orchestrator()

	other := janeInput()
	other.PhoneNumber = "5559876543"

	first, err := orchestrator.Submit(context.Background(), inbound.SubmitParams{RequestID: "fixed-proxy-id", Input: janeInput()})
	require.NoError(t, err)
	second, err := orchestrator.Submit(context.Background(), inbound.SubmitParams{RequestID: "fixed-proxy-id", Input: other})
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	require.Len(t, f.store.records, 2)
	assert.NotEqual(t, f.store.records[0].RunID, f.store.records[1].RunID)
	require.Len(t, f.publisher.keys, 2)
	assert.NotContains(t, f.publisher.keys[0], "fixed-proxy-id")
	assert.NotContains(t, f.publisher.keys[1], "fixed-proxy-id")
}

func TestSubmit_AmbiguousDispatchKeepsNumberBlocked(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "transport", err: domain.NewDispatchError(domain.ReasonOutcomeUnknown, errors.New("connection reset"))},
		{name: "deadline", err: context.DeadlineExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture()
			f.dispatcher.err = tt.err
			orchestrator := f.orchestrator()

			_, err := orchestrator.Submit(context.Background(), inbound.SubmitParams{Input: janeInput()})
			assert.True(t, domain.IsStageError(err, domain.StageDispatch))

			f.dispatcher.err = nil
			_, err = orchestrator.Submit(context.Background(), inbound.SubmitParams{Input: janeInput()})
			assert.ErrorIs(t, err, domain.ErrDuplicateSubmission)
			assert.Equal(t, 1, f.log.count("dispatch"))
		})
	}
}

func TestAudioKey(t *testing.T) {
	assert.Equal(t, "5551234567-abc.mp3", AudioKey("5551234567", "abc"))
	assert.NotEqual(t, AudioKey("5551234567", "a"), AudioKey("5551234567", "b"))
}
