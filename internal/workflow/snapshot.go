package workflow

import (
	"time"

	"hairstudio/internal/diagnosis"
	"hairstudio/internal/domain"
	"hairstudio/internal/imagegen"
)

// Snapshot is the persisted form of a Session.
type Snapshot struct {
	ID             string                     `json:"id"`
	Owner          string                     `json:"owner"`
	Locale         string                     `json:"locale"`
	Phase          Phase                      `json:"phase"`
	Epoch          uint64                     `json:"epoch"`
	Profile        domain.Profile             `json:"profile"`
	Uploads        map[domain.AssetKey]string `json:"uploads,omitempty"`
	InspirationURL string                     `json:"inspirationUrl,omitempty"`
	Diagnosis      *diagnosis.Response        `json:"diagnosis,omitempty"`
	Selection      Selection                  `json:"selection"`
	Image          *imagegen.Image            `json:"image,omitempty"`
	RefineText     string                     `json:"refineText,omitempty"`
	Editing        bool                       `json:"editing,omitempty"`
	Failure        *Failure                   `json:"failure,omitempty"`
	UpdatedAt      time.Time                  `json:"updatedAt"`
}

// Snapshot copies the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:             s.id,
		Owner:          s.owner,
		Locale:         s.locale,
		Phase:          s.phase,
		Epoch:          s.epoch,
		Profile:        s.profile,
		Uploads:        s.uploads.URLs(),
		InspirationURL: s.inspirationURL,
		Diagnosis:      s.diagnosis,
		Selection:      s.selection,
		RefineText:     s.refineText,
		Editing:        s.editing,
		UpdatedAt:      s.updatedAt,
	}
	if s.image != nil {
		img := *s.image
		snap.Image = &img
	}
	if s.failure != nil {
		f := *s.failure
		snap.Failure = &f
	}
	return snap
}

// Restore rebuilds a session from a snapshot. A loading phase cannot be
// resumed, so it falls back to the phase that started it; resolved upload
// URLs are seeded into opts.Uploads.
func Restore(snap Snapshot, opts Options) *Session {
	opts.ID = snap.ID
	opts.Owner = snap.Owner
	opts.Locale = snap.Locale
	s := newSession(opts)

	for key, url := range snap.Uploads {
		s.uploads.Seed(key, url)
	}
	s.phase = snap.Phase
	switch s.phase {
	case PhaseDiagnosisLoading:
		s.phase = PhaseUpload
	case PhaseSynthesisLoading:
		s.phase = PhaseProposalSelection
	case 0:
		s.phase = PhaseOpening
	}
	if s.phase >= PhaseDiagnosisResult && snap.Diagnosis == nil {
		s.phase = PhaseUpload
	}
	if s.phase == PhaseSynthesisResult && snap.Image == nil {
		s.phase = PhaseProposalSelection
	}

	s.epoch = snap.Epoch + 1
	s.profile = snap.Profile
	s.inspirationURL = snap.InspirationURL
	s.diagnosis = snap.Diagnosis
	s.selection = snap.Selection
	s.image = snap.Image
	s.refineText = snap.RefineText
	s.failure = snap.Failure
	if !snap.UpdatedAt.IsZero() {
		s.updatedAt = snap.UpdatedAt
	}
	if s.phase != PhaseSynthesisResult {
		s.image = nil
		s.refineText = ""
	}
	s.watchUploads()
	return s
}
