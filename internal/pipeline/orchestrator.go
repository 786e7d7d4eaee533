// Package pipeline sequences one story generation run. Every stage up to the
// canonical identifiers is required; storing the document and persisting the
// record are best-effort and never fail the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/suvichaar/storygen/internal/identifier"
	"github.com/suvichaar/storygen/internal/images"
	"github.com/suvichaar/storygen/internal/insights"
	"github.com/suvichaar/storygen/internal/language"
	"github.com/suvichaar/storygen/internal/models"
	"github.com/suvichaar/storygen/internal/narrative"
	"github.com/suvichaar/storygen/internal/template"
)

// Stage names a step of the run.
type Stage string

const (
	StageNormalize           Stage = "Normalize"
	StageDetectLanguage      Stage = "DetectLanguage"
	StageExtractInsights     Stage = "ExtractInsights"
	StageGenerateNarrative   Stage = "GenerateNarrative"
	StageReconcileImages     Stage = "ReconcileImages"
	StageProvisionImages     Stage = "ProvisionImages"
	StageSynthesizeVoice     Stage = "SynthesizeVoice"
	StageRenderDocument      Stage = "RenderDocument"
	StageGenerateIdentifiers Stage = "GenerateIdentifiers"
	StagePersist             Stage = "Persist"
	StageStoreDocument       Stage = "StoreDocument"
)

// StageFailure aborts a run at a required stage.
type StageFailure struct {
	Stage Stage
	Err   error
}

func (e *StageFailure) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageFailure) Unwrap() error { return e.Err }

// ImageProvisioner stores the planned image of every slide.
type ImageProvisioner interface {
	Provision(ctx context.Context, slots []images.Slot) ([]models.ImageAsset, []models.Warning)
}

// VoiceSynthesizer narrates a deck.
type VoiceSynthesizer interface {
	Synthesize(ctx context.Context, deck models.SlideDeck, language, provider string) ([]models.VoiceAsset, []models.Warning)
}

// TemplateResolver picks the layout and slide generator of a request.
type TemplateResolver interface {
	Resolve(ref string) (template.Descriptor, template.SlideGenerator)
	LoadLayout(d template.Descriptor) (string, error)
}

// IdentifierGenerator builds the canonical URLs.
type IdentifierGenerator interface {
	Generate(mode models.Mode, title, recordID string) (string, string)
}

// RecordStore persists a finished record.
type RecordStore interface {
	Upsert(ctx context.Context, rec *models.StoryRecord) error
}

// DocumentStore receives the rendered document.
type DocumentStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

// Deps are the collaborators of a run. Records and Documents may be empty.
type Deps struct {
	Language    language.Detector
	Insights    insights.Extractor
	Narrative   narrative.Generator
	Images      images.Providers
	Provisioner ImageProvisioner
	Voice       VoiceSynthesizer
	Templates   TemplateResolver
	Identifiers IdentifierGenerator
	Records     []RecordStore
	Documents   DocumentStore
}

// Options tune a run.
type Options struct {
	Timeout           time.Duration // bounds the required stages
	SideEffectTimeout time.Duration // bounds each best-effort stage
	HTMLPrefix        string
	HTMLBase          string
	Brand             template.Brand
	Now               func() time.Time
	NewID             func() string
}

func (o *Options) applyDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = 4 * time.Minute
	}
	if o.SideEffectTimeout <= 0 {
		o.SideEffectTimeout = 30 * time.Second
	}
	if o.HTMLPrefix == "" {
		o.HTMLPrefix = "webstories"
	}
	o.HTMLPrefix = strings.Trim(o.HTMLPrefix, "/")
	o.HTMLBase = strings.TrimRight(o.HTMLBase, "/")
	if o.Brand == (template.Brand{}) {
		o.Brand = template.DefaultBrand()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
}

// Orchestrator runs generation requests. It holds no per-request state and
// is safe for concurrent use.
type Orchestrator struct {
	deps   Deps
	opts   Options
	logger *slog.Logger
}

func New(deps Deps, opts Options, logger *slog.Logger) *Orchestrator {
	opts.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{deps: deps, opts: opts, logger: logger}
}

// run is the working state of one request.
type run struct {
	req      *models.GenerationRequest
	payload  models.Payload
	lang     models.LanguageMetadata
	insights models.DocInsights
	deck     models.SlideDeck
	slots    []images.Slot
	images   []models.ImageAsset
	voices   []models.VoiceAsset
	desc     template.Descriptor
	gen      template.SlideGenerator
	layout   string
	html     string
	canURL   string
	canURL1  string
	warnings []models.Warning
}

// Run validates req and executes every stage in order. A rejected request,
// including one whose image source has no configured provider, returns a
// *models.ValidationError before any collaborator is called; a failed
// required stage returns a *StageFailure.
func (o *Orchestrator) Run(ctx context.Context, req *models.GenerationRequest) (*models.StoryRecord, error) {
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, ok := o.deps.Images[req.ImageSource]; !ok {
		return nil, &models.ValidationError{Field: "image_source", Reason: fmt.Sprintf("%q images are not configured on this server", req.ImageSource)}
	}

	id := o.opts.NewID()
	log := o.logger.With("record_id", id, "mode", req.Mode)
	log.Info("generation started", "slides", req.SlideCount, "template", req.TemplateKey, "image_source", req.ImageSource)
	started := o.opts.Now()

	rctx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()

	st := &run{req: req}
	steps := []struct {
		stage Stage
		fn    func(context.Context, *run) error
	}{
		{StageNormalize, o.normalize},
		{StageDetectLanguage, o.detectLanguage},
		{StageExtractInsights, o.extractInsights},
		{StageGenerateNarrative, o.generateNarrative},
		{StageReconcileImages, o.reconcileImages},
		{StageProvisionImages, o.provisionImages},
		{StageSynthesizeVoice, o.synthesizeVoice},
		{StageRenderDocument, o.resolveTemplate},
		{StageGenerateIdentifiers, func(_ context.Context, st *run) error { return o.generateIdentifiers(st, id) }},
		{StageRenderDocument, o.renderDocument},
	}
	for _, s := range steps {
		if err := o.stage(rctx, log, s.stage, st, s.fn); err != nil {
			return nil, err
		}
	}

	rec := &models.StoryRecord{
		ID:            id,
		Mode:          req.Mode,
		Category:      req.Category,
		InputLanguage: st.lang.Code,
		SlideCount:    req.SlideCount,
		TemplateKey:   st.desc.Name,
		DocInsights:   st.insights,
		SlideDeck:     st.deck,
		ImageAssets:   st.images,
		VoiceAssets:   st.voices,
		CanURL:        st.canURL,
		CanURL1:       st.canURL1,
		Warnings:      st.warnings,
		CreatedAt:     started.UTC(),
	}
	prompt := narrative.RenderPrompt(st.insights, req.SlideCount)
	if req.Mode == models.ModeNews {
		rec.PromptNews = prompt
	} else {
		rec.PromptCurious = prompt
	}
	if rec.VoiceAssets == nil {
		rec.VoiceAssets = []models.VoiceAsset{}
	}
	if rec.Warnings == nil {
		rec.Warnings = []models.Warning{}
	}

	o.storeDocument(ctx, log, rec, st.html)
	o.persist(ctx, log, rec)

	log.Info("generation finished", "elapsed", time.Since(started), "warnings", len(rec.Warnings))
	return rec, nil
}

func (o *Orchestrator) stage(ctx context.Context, log *slog.Logger, name Stage, st *run, fn func(context.Context, *run) error) error {
	if err := ctx.Err(); err != nil {
		return &StageFailure{Stage: name, Err: err}
	}
	start := time.Now()
	err := fn(ctx, st)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		log.Error("stage failed", "stage", name, "error", err)
		var ve *models.ValidationError
		if errors.As(err, &ve) {
			return ve
		}
		return &StageFailure{Stage: name, Err: err}
	}
	log.Debug("stage complete", "stage", name, "elapsed", time.Since(start))
	return nil
}

func (o *Orchestrator) normalize(_ context.Context, st *run) error {
	st.payload = insights.Normalize(st.req)
	return nil
}

func (o *Orchestrator) detectLanguage(ctx context.Context, st *run) error {
	md, err := o.deps.Language.Detect(ctx, st.payload)
	if err != nil {
		return err
	}
	if md.Code == "" {
		md.Code = language.DefaultCode
	}
	st.lang = md
	return nil
}

func (o *Orchestrator) extractInsights(ctx context.Context, st *run) error {
	ins, err := o.deps.Insights.Run(ctx, st.payload)
	if err != nil {
		return err
	}
	st.insights = ins
	return nil
}

func (o *Orchestrator) generateNarrative(ctx context.Context, st *run) error {
	pc := narrative.PromptContext{
		Mode:        st.req.Mode,
		Language:    st.lang.Code,
		Category:    st.req.Category,
		TemplateKey: template.CanonicalName(st.req.TemplateKey),
		Keywords:    st.payload.Keywords,
	}
	deck, err := o.deps.Narrative.Generate(ctx, pc, st.insights, st.req.SlideCount)
	if err != nil {
		return err
	}
	if len(deck.Slides) != st.req.SlideCount {
		return fmt.Errorf("narrative returned %d slides, want %d", len(deck.Slides), st.req.SlideCount)
	}
	st.deck = deck
	return nil
}

func (o *Orchestrator) reconcileImages(ctx context.Context, st *run) error {
	provider := o.deps.Images[st.req.ImageSource]
	raw, err := provider.Provide(ctx, st.deck, st.payload)
	if err != nil {
		return err
	}
	slots, warnings := images.Reconcile(st.req.SlideCount, st.req.ImageSource, raw)
	st.slots = slots
	st.warnings = append(st.warnings, warnings...)
	return nil
}

func (o *Orchestrator) provisionImages(ctx context.Context, st *run) error {
	assets, warnings := o.deps.Provisioner.Provision(ctx, st.slots)
	if len(assets) != len(st.slots) {
		return fmt.Errorf("provisioned %d images for %d slides", len(assets), len(st.slots))
	}
	st.images = assets
	st.warnings = append(st.warnings, warnings...)
	return nil
}

func (o *Orchestrator) synthesizeVoice(ctx context.Context, st *run) error {
	voices, warnings := o.deps.Voice.Synthesize(ctx, st.deck, st.lang.Code, st.req.VoiceEngine)
	st.voices = voices
	st.warnings = append(st.warnings, warnings...)
	return nil
}

// resolveTemplate loads the layout before identifiers are minted so a missing
// layout fails the run as a render failure.
func (o *Orchestrator) resolveTemplate(_ context.Context, st *run) error {
	desc, gen := o.deps.Templates.Resolve(st.req.TemplateKey)
	layout, err := o.deps.Templates.LoadLayout(desc)
	if err != nil {
		return err
	}
	st.desc, st.gen, st.layout = desc, gen, layout
	return nil
}

func (o *Orchestrator) generateIdentifiers(st *run, id string) error {
	canURL, canURL1 := o.deps.Identifiers.Generate(st.req.Mode, st.deck.Title(), id)
	if canURL == "" || canURL1 == "" {
		return errors.New("empty canonical url")
	}
	st.canURL, st.canURL1 = canURL, canURL1
	return nil
}

func (o *Orchestrator) renderDocument(_ context.Context, st *run) error {
	html, err := template.Render(st.layout, st.desc, st.gen, template.Document{
		Mode:      st.req.Mode,
		Category:  st.req.Category,
		Language:  st.lang.Code,
		Deck:      st.deck,
		Images:    st.images,
		Voices:    st.voices,
		CanURL:    st.canURL,
		CanURL1:   st.canURL1,
		Published: o.opts.Now(),
		Brand:     o.opts.Brand,
	})
	if err != nil {
		return err
	}
	st.html = html
	return nil
}

// DocumentKey is the object key of a record's rendered document.
func DocumentKey(prefix, canURL string) string {
	return strings.Trim(prefix, "/") + "/" + identifier.Segment(canURL) + ".html"
}

func (o *Orchestrator) storeDocument(ctx context.Context, log *slog.Logger, rec *models.StoryRecord, html string) {
	if o.deps.Documents == nil || html == "" {
		return
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opts.SideEffectTimeout)
	defer cancel()

	key := DocumentKey(o.opts.HTMLPrefix, rec.CanURL)
	if err := o.deps.Documents.Upload(sctx, key, []byte(html), "text/html; charset=utf-8"); err != nil {
		log.Warn("document upload failed (non-fatal)", "stage", StageStoreDocument, "key", key, "error", err)
		return
	}
	if o.opts.HTMLBase != "" {
		rec.DocumentURL = o.opts.HTMLBase + "/" + identifier.Segment(rec.CanURL) + ".html"
	}
	log.Info("document stored", "key", key)
}

func (o *Orchestrator) persist(ctx context.Context, log *slog.Logger, rec *models.StoryRecord) {
	if len(o.deps.Records) == 0 {
		return
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opts.SideEffectTimeout)
	defer cancel()

	var errs []error
	for _, s := range o.deps.Records {
		if err := s.Upsert(sctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		log.Warn("record persistence failed (non-fatal)", "stage", StagePersist, "error", err)
		return
	}
	log.Info("record persisted")
}
