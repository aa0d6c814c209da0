package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hairstudio/internal/diagnosis"
	"hairstudio/internal/domain"
	"hairstudio/internal/gallery"
	"hairstudio/internal/i18n"
	"hairstudio/internal/imagegen"
	"hairstudio/internal/infra"
	"hairstudio/internal/providers/genai"
	"hairstudio/internal/upload"
)

// Selection sentinels pick the style or color from the inspiration photo.
const (
	InspirationStyle = "inspiration_style"
	InspirationColor = "inspiration_color"
)

type Diagnoser interface {
	Diagnose(ctx context.Context, req diagnosis.Request) (*diagnosis.Response, error)
}

type Imager interface {
	Synthesize(ctx context.Context, req imagegen.SynthesisRequest) (*imagegen.Image, error)
	Refine(ctx context.Context, req imagegen.RefineRequest) (*imagegen.Image, error)
	SwitchColor(ctx context.Context, owner string, base imagegen.Image, color domain.ColorOption) (*imagegen.Image, error)
}

type GallerySaver interface {
	Save(ctx context.Context, req gallery.SaveRequest) (*domain.GalleryItem, error)
}

// Selection is the customer's proposal choice.
type Selection struct {
	Style        string `json:"style"`
	Color        string `json:"color"`
	UserRequests string `json:"userRequests,omitempty"`
}

// Options configures a Session. Uploads is required.
type Options struct {
	ID        string
	Owner     string
	Locale    string
	Uploads   *upload.Coordinator
	Diagnoser Diagnoser
	Imager    Imager
	Gallery   GallerySaver
	Logger    *infra.Logger
	Now       func() time.Time
}

// Session is one customer's pass through the workflow. Every mutation
// happens under mu; remote calls run outside it and report back through
// epoch-checked completions.
type Session struct {
	id        string
	owner     string
	uploads   *upload.Coordinator
	diagnoser Diagnoser
	imager    Imager
	gallery   GallerySaver
	logger    *infra.Logger
	now       func() time.Time

	mu             sync.Mutex
	locale         string
	phase          Phase
	epoch          uint64
	cancel         context.CancelFunc
	editing        bool
	profile        domain.Profile
	inspirationURL string
	diagnosis      *diagnosis.Response
	selection      Selection
	image          *imagegen.Image
	refineText     string
	failure        *Failure
	changed        chan struct{}
	updatedAt      time.Time

	stopUploads func()
}

// New starts a session in the opening phase.
func New(opts Options) *Session {
	s := newSession(opts)
	s.watchUploads()
	return s
}

func newSession(opts Options) *Session {
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	locale := opts.Locale
	if !i18n.Supported(locale) {
		locale = i18n.Japanese
	}
	return &Session{
		id:        id,
		owner:     opts.Owner,
		uploads:   opts.Uploads,
		diagnoser: opts.Diagnoser,
		imager:    opts.Imager,
		gallery:   opts.Gallery,
		logger:    infra.OrDiscard(opts.Logger),
		now:       now,
		locale:    locale,
		phase:     PhaseOpening,
		changed:   make(chan struct{}),
		updatedAt: now(),
	}
}

func (s *Session) ID() string    { return s.id }
func (s *Session) Owner() string { return s.owner }

// Uploads exposes the coordinator for progress subscriptions.
func (s *Session) Uploads() *upload.Coordinator { return s.uploads }

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Changed is closed on the next state change. Callers re-read it after
// every wake-up.
func (s *Session) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changed
}

func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

func (s *Session) SetLocale(locale string) {
	if !i18n.Supported(locale) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locale != locale {
		s.locale = locale
		s.notifyLocked()
	}
}

// watchUploads turns finished uploads into state changes so observers and
// the snapshot store see resolved URLs.
func (s *Session) watchUploads() {
	events, stop := s.uploads.Subscribe(32)
	s.stopUploads = stop
	go func() {
		for ev := range events {
			if ev.Kind == upload.EventProgress {
				continue
			}
			s.mu.Lock()
			s.notifyLocked()
			s.mu.Unlock()
		}
	}()
}

func (s *Session) notifyLocked() {
	s.updatedAt = s.now()
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *Session) rejectLocked(key i18n.Key, args ...any) error {
	return &PhaseError{Phase: s.phase, Message: key, Args: args}
}

// Next validates the forward predicate of the current phase and advances.
// Entering a loading phase starts its remote work in the background.
func (s *Session) Next(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseOpening:
		s.phase = PhaseProfile
	case PhaseProfile:
		if strings.TrimSpace(s.profile.Name) == "" || strings.TrimSpace(s.profile.Gender) == "" {
			return s.rejectLocked(i18n.MsgProfileIncomplete)
		}
		s.phase = PhaseUpload
	case PhaseUpload:
		if missing := s.unregisteredLocked(); len(missing) > 0 {
			return s.rejectLocked(i18n.MsgUploadsIncomplete, strings.Join(missing, ", "))
		}
		req := diagnosis.Request{Owner: s.owner, Gender: s.profile.Gender, Language: s.locale}
		s.startLocked(ctx, PhaseDiagnosisLoading, func(opCtx context.Context, epoch uint64) {
			s.runDiagnosis(opCtx, epoch, req)
		})
	case PhaseDiagnosisResult:
		if s.diagnosis == nil {
			return s.rejectLocked(i18n.MsgDiagnosisMissing)
		}
		s.phase = PhaseProposalSelection
	case PhaseProposalSelection:
		req, err := s.synthesisRequestLocked()
		if err != nil {
			return err
		}
		s.startLocked(ctx, PhaseSynthesisLoading, func(opCtx context.Context, epoch uint64) {
			s.runSynthesis(opCtx, epoch, req)
		})
	default:
		return s.rejectLocked(i18n.MsgNoTransition)
	}

	s.logger.Debug().Str("session", s.id).Str("phase", s.phase.Code()).Uint64("epoch", s.epoch).Msg("workflow: advanced")
	s.notifyLocked()
	return nil
}

// Back moves one step backwards. Leaving a loading phase invalidates its
// in-flight call; leaving the synthesis result discards the image.
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseProfile:
		s.phase = PhaseOpening
	case PhaseUpload:
		s.phase = PhaseProfile
	case PhaseDiagnosisLoading:
		s.abortLocked()
		s.phase = PhaseUpload
	case PhaseDiagnosisResult:
		s.phase = PhaseUpload
	case PhaseProposalSelection:
		s.phase = PhaseDiagnosisResult
	case PhaseSynthesisLoading:
		s.abortLocked()
		s.phase = PhaseProposalSelection
	case PhaseSynthesisResult:
		// Pending refinements are tagged with the old epoch and get dropped.
		s.epoch++
		s.image = nil
		s.refineText = ""
		s.phase = PhaseProposalSelection
	default:
		return s.rejectLocked(i18n.MsgNoTransition)
	}

	s.failure = nil
	s.logger.Debug().Str("session", s.id).Str("phase", s.phase.Code()).Uint64("epoch", s.epoch).Msg("workflow: back")
	s.notifyLocked()
	return nil
}

func (s *Session) startLocked(ctx context.Context, phase Phase, op func(context.Context, uint64)) {
	s.epoch++
	s.phase = phase
	s.failure = nil
	opCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	go op(opCtx, s.epoch)
}

func (s *Session) abortLocked() {
	s.epoch++
	s.releaseLocked()
}

func (s *Session) releaseLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Session) unregisteredLocked() []string {
	var missing []string
	for _, key := range domain.RequiredKeys {
		if !s.uploads.Registered([]domain.AssetKey{key}) {
			missing = append(missing, string(key))
		}
	}
	return missing
}

// SetProfile records the customer's name and gender.
func (s *Session) SetProfile(p domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseProfile {
		return s.rejectLocked(i18n.MsgWrongPhase)
	}
	s.profile = domain.Profile{Name: strings.TrimSpace(p.Name), Gender: strings.TrimSpace(p.Gender)}
	s.notifyLocked()
	return nil
}

// Upload starts uploading one asset. Reselecting a key supersedes the
// previous upload of that key.
func (s *Session) Upload(ctx context.Context, key domain.AssetKey, filename, contentType string, data []byte) (*upload.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseUpload {
		return nil, s.rejectLocked(i18n.MsgWrongPhase)
	}
	if key == domain.KeyInspirationPhoto {
		s.inspirationURL = ""
	}
	task := s.uploads.StartUpload(ctx, domain.Asset{
		Key:         key,
		Owner:       s.owner,
		Filename:    filename,
		ContentType: contentType,
		Data:        data,
		SelectedAt:  s.now(),
	})
	s.notifyLocked()
	return task, nil
}

// SkipInspiration drops the optional inspiration photo.
func (s *Session) SkipInspiration() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseUpload {
		return s.rejectLocked(i18n.MsgWrongPhase)
	}
	s.uploads.Clear(domain.KeyInspirationPhoto)
	s.inspirationURL = ""
	s.notifyLocked()
	return nil
}

// SetSelection records the proposal choice. Keys are checked here; the
// inspiration requirement is checked when leaving the selection phase.
func (s *Session) SetSelection(sel Selection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseProposalSelection {
		return s.rejectLocked(i18n.MsgWrongPhase)
	}
	if s.diagnosis == nil {
		return s.rejectLocked(i18n.MsgDiagnosisMissing)
	}
	sel.Style = strings.TrimSpace(sel.Style)
	sel.Color = strings.TrimSpace(sel.Color)
	sel.UserRequests = strings.TrimSpace(sel.UserRequests)
	if sel.Style != "" && sel.Style != InspirationStyle {
		if _, ok := s.diagnosis.Proposal.Style(sel.Style); !ok {
			return s.rejectLocked(i18n.MsgSelectionUnknown, sel.Style)
		}
	}
	if sel.Color != "" && sel.Color != InspirationColor {
		if _, ok := s.diagnosis.Proposal.Color(sel.Color); !ok {
			return s.rejectLocked(i18n.MsgSelectionUnknown, sel.Color)
		}
	}
	s.selection = sel
	s.notifyLocked()
	return nil
}

func (s *Session) runDiagnosis(ctx context.Context, epoch uint64, req diagnosis.Request) {
	urls, err := s.uploads.AwaitAll(ctx, domain.RequiredKeys)
	var (
		resp        *diagnosis.Response
		inspiration string
	)
	if err == nil {
		inspiration = s.uploads.Settle(ctx, domain.KeyInspirationPhoto)
		req.FileURLs = urls
		resp, err = s.diagnoser.Diagnose(ctx, req)
	}
	s.completeDiagnosis(epoch, inspiration, resp, err)
}

func (s *Session) completeDiagnosis(epoch uint64, inspiration string, resp *diagnosis.Response, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || s.phase != PhaseDiagnosisLoading {
		s.logger.Debug().Str("session", s.id).Uint64("epoch", epoch).Uint64("current", s.epoch).Msg("workflow: stale diagnosis discarded")
		return
	}
	s.releaseLocked()

	if err != nil {
		s.phase = PhaseUpload
		s.failure = &Failure{Phase: PhaseDiagnosisLoading, Message: s.diagnosisFailureLocked(err), At: s.now()}
		s.logger.Warn().Err(err).Str("session", s.id).Str("owner", s.owner).Msg("workflow: diagnosis failed")
		s.notifyLocked()
		return
	}
	s.diagnosis = resp
	s.inspirationURL = inspiration
	s.selection = Selection{}
	s.phase = PhaseDiagnosisResult
	s.logger.Info().Str("session", s.id).Bool("inspiration", inspiration != "").Msg("workflow: diagnosis ready")
	s.notifyLocked()
}

func (s *Session) diagnosisFailureLocked(err error) string {
	var ue *domain.UploadError
	if errors.As(err, &ue) {
		return i18n.T(s.locale, i18n.MsgUploadFailed, string(ue.Key))
	}
	return s.failureMessageLocked(i18n.MsgDiagnosisFailed, err)
}

// failureMessageLocked localizes err under key. A model API that stayed
// unavailable through every retry gets a try-again-later message instead.
func (s *Session) failureMessageLocked(key i18n.Key, err error) string {
	if genai.IsRetryableFailure(err) {
		return i18n.T(s.locale, i18n.MsgServiceUnavailable)
	}
	return i18n.T(s.locale, key, err.Error())
}

func (s *Session) synthesisRequestLocked() (imagegen.SynthesisRequest, error) {
	sel := s.selection
	if sel.Style == "" || sel.Color == "" || s.diagnosis == nil {
		return imagegen.SynthesisRequest{}, s.rejectLocked(i18n.MsgSelectionIncomplete)
	}
	if sel.Style == InspirationStyle && s.inspirationURL == "" {
		return imagegen.SynthesisRequest{}, s.rejectLocked(i18n.MsgInspirationStyleNeeded)
	}
	if sel.Color == InspirationColor && s.inspirationURL == "" {
		return imagegen.SynthesisRequest{}, s.rejectLocked(i18n.MsgInspirationColorNeeded)
	}
	original, ok := s.uploads.URL(domain.KeyFrontPhoto)
	if !ok {
		return imagegen.SynthesisRequest{}, s.rejectLocked(i18n.MsgUploadsIncomplete, string(domain.KeyFrontPhoto))
	}

	req := imagegen.SynthesisRequest{
		OriginalImageURL:    original,
		Owner:               s.owner,
		CurrentLevel:        s.diagnosis.Result.HairCondition.CurrentLevel,
		UserRequests:        sel.UserRequests,
		InspirationImageURL: s.inspirationURL,
	}
	req.ReferenceRequired = sel.Style == InspirationStyle || sel.Color == InspirationColor
	if sel.Style == InspirationStyle {
		req.HairstyleName = "the hairstyle shown in the reference image"
	} else {
		style, _ := s.diagnosis.Proposal.Style(sel.Style)
		req.HairstyleName, req.HairstyleDesc = style.Name, style.Description
	}
	if sel.Color == InspirationColor {
		req.HaircolorName = "the hair color shown in the reference image"
		req.RecommendedLevel = "the brightness shown in the reference image"
	} else {
		color, _ := s.diagnosis.Proposal.Color(sel.Color)
		req.HaircolorName, req.HaircolorDesc, req.RecommendedLevel = color.Name, color.Description, color.RecommendedLevel
	}
	return req, nil
}

func (s *Session) runSynthesis(ctx context.Context, epoch uint64, req imagegen.SynthesisRequest) {
	img, err := s.imager.Synthesize(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || s.phase != PhaseSynthesisLoading {
		s.logger.Debug().Str("session", s.id).Uint64("epoch", epoch).Uint64("current", s.epoch).Msg("workflow: stale synthesis discarded")
		return
	}
	s.releaseLocked()

	if err != nil {
		s.phase = PhaseProposalSelection
		s.failure = &Failure{Phase: PhaseSynthesisLoading, Message: s.failureMessageLocked(i18n.MsgSynthesisFailed, err), At: s.now()}
		s.logger.Warn().Err(err).Str("session", s.id).Str("owner", s.owner).Msg("workflow: synthesis failed")
		s.notifyLocked()
		return
	}
	s.image = img
	s.refineText = ""
	s.phase = PhaseSynthesisResult
	s.logger.Info().Str("session", s.id).Str("mime", img.MimeType).Msg("workflow: image ready")
	s.notifyLocked()
}

// Refine edits the current generated image with free text. The result
// replaces the image, so the next refinement starts from it.
func (s *Session) Refine(ctx context.Context, text string) (*imagegen.Image, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		s.mu.Lock()
		defer s.mu.Unlock()
		return nil, s.rejectLocked(i18n.MsgRefinementTextRequired)
	}
	return s.edit(ctx, text, func(base imagegen.Image) (*imagegen.Image, error) {
		return s.imager.Refine(ctx, imagegen.RefineRequest{Owner: s.owner, Base: base, Text: text})
	}, nil)
}

// SwitchColor re-renders the current image with the other proposed color.
func (s *Session) SwitchColor(ctx context.Context) (*imagegen.Image, error) {
	s.mu.Lock()
	alt, ok := domain.AlternateColorKey(s.selection.Color)
	if !ok || s.diagnosis == nil {
		defer s.mu.Unlock()
		return nil, s.rejectLocked(i18n.MsgNoAlternateColor)
	}
	color, _ := s.diagnosis.Proposal.Color(alt)
	s.mu.Unlock()

	return s.edit(ctx, imagegen.SwitchColorText(color), func(base imagegen.Image) (*imagegen.Image, error) {
		return s.imager.SwitchColor(ctx, s.owner, base, color)
	}, func() {
		s.selection.Color = alt
	})
}

func (s *Session) edit(ctx context.Context, text string, call func(imagegen.Image) (*imagegen.Image, error), onSuccess func()) (*imagegen.Image, error) {
	s.mu.Lock()
	if s.phase != PhaseSynthesisResult || s.image == nil {
		defer s.mu.Unlock()
		return nil, s.rejectLocked(i18n.MsgWrongPhase)
	}
	if s.editing {
		defer s.mu.Unlock()
		return nil, s.rejectLocked(i18n.MsgBusy)
	}
	s.editing = true
	epoch := s.epoch
	base := *s.image
	s.notifyLocked()
	s.mu.Unlock()

	img, err := call(base)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.editing = false
	if epoch != s.epoch || s.phase != PhaseSynthesisResult {
		s.notifyLocked()
		return nil, ErrStale
	}
	if err != nil {
		s.failure = &Failure{Phase: PhaseSynthesisResult, Message: s.failureMessageLocked(i18n.MsgRefinementFailed, err), At: s.now()}
		s.logger.Warn().Err(err).Str("session", s.id).Msg("workflow: refinement failed")
		s.notifyLocked()
		return nil, err
	}
	s.image = img
	s.refineText = text
	s.failure = nil
	if onSuccess != nil {
		onSuccess()
	}
	s.notifyLocked()
	out := *img
	return &out, nil
}

// SaveToGallery persists the current generated image.
func (s *Session) SaveToGallery(ctx context.Context) (*domain.GalleryItem, error) {
	s.mu.Lock()
	if s.phase != PhaseSynthesisResult || s.image == nil {
		defer s.mu.Unlock()
		return nil, s.rejectLocked(i18n.MsgNoImage)
	}
	req := gallery.SaveRequest{
		Owner:      s.owner,
		Image:      *s.image,
		StyleName:  s.styleNameLocked(),
		ColorName:  s.colorNameLocked(),
		RefineText: s.refineText,
	}
	s.mu.Unlock()

	if s.gallery == nil {
		return nil, errors.New("workflow: gallery is not configured")
	}
	item, err := s.gallery.Save(ctx, req)
	if err != nil {
		s.mu.Lock()
		s.failure = &Failure{Phase: PhaseSynthesisResult, Message: i18n.T(s.locale, i18n.MsgSaveFailed, err.Error()), At: s.now()}
		s.notifyLocked()
		s.mu.Unlock()
		return nil, err
	}
	return item, nil
}

func (s *Session) styleNameLocked() string {
	if s.selection.Style == InspirationStyle || s.diagnosis == nil {
		return s.selection.Style
	}
	style, _ := s.diagnosis.Proposal.Style(s.selection.Style)
	return style.Name
}

func (s *Session) colorNameLocked() string {
	if s.selection.Color == InspirationColor || s.diagnosis == nil {
		return s.selection.Color
	}
	color, _ := s.diagnosis.Proposal.Color(s.selection.Color)
	return color.Name
}

// Close cancels in-flight work, including uploads.
func (s *Session) Close() {
	s.mu.Lock()
	s.abortLocked()
	s.mu.Unlock()
	s.uploads.Shutdown()
	if s.stopUploads != nil {
		s.stopUploads()
	}
}
