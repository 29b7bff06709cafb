package models

import (
	"time"

	"github.com/Lllllllleong/pdfqaflow/internal/retry"
)

// Mode selects the generation strategy for a run.
type Mode string

const (
	// ModeNormal asks for many short pairs in a single model call.
	ModeNormal Mode = "normal"
	// ModePro generates question stems first, then one long answer per stem.
	ModePro Mode = "pro"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeNormal || m == ModePro
}

// Document status values written to the run ledger.
const (
	StatusPending    = "PENDING"
	StatusExtracting = "EXTRACTING"
	StatusGenerating = "GENERATING"
	StatusQuestions  = "QUESTIONS"
	StatusAnswers    = "ANSWERS"
	StatusWriting    = "WRITING"
	StatusDone       = "DONE"
	StatusFailed     = "FAILED"
)

// SourceFile is one input document after text extraction. It is not mutated
// once the extractor returns it.
type SourceFile struct {
	Path     string
	Name     string // base file name, e.g. "paper.pdf"
	Text     string
	Metadata ExtractionMetadata
}

// ExtractionMetadata is persisted verbatim into the artifact.
type ExtractionMetadata struct {
	PageCount int    `json:"page_count,omitempty" firestore:"pageCount,omitempty"`
	FileHash  string `json:"file_hash,omitempty" firestore:"fileHash,omitempty"`
	Extractor string `json:"extractor,omitempty" firestore:"extractor,omitempty"`
	Chars     int    `json:"chars" firestore:"chars"`
}

// CompletionFormat tells a model backend what shape of response to request.
type CompletionFormat int

const (
	FormatText CompletionFormat = iota
	FormatJSON
)

// CompletionRequest is a single prompt sent to a model backend.
type CompletionRequest struct {
	Prompt string
	Model  string
	Format CompletionFormat
}

// GenerationRequest is built once per SourceFile and consumed by the pipeline.
type GenerationRequest struct {
	Source    SourceFile
	Mode      Mode
	PairCount int
	Model     string
	Retry     retry.Policy
}

// QuestionItem is a phase-one question stem in pro mode.
type QuestionItem struct {
	Index int    `json:"-"`
	Text  string `json:"question"`
	Type  string `json:"type,omitempty"`
}

// QAPair is one generated question and its answer.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Type     string `json:"type,omitempty"`
}

// GenerationResult is the finished output for one document.
type GenerationResult struct {
	Source      string
	Metadata    ExtractionMetadata
	Pairs       []QAPair
	GeneratedAt time.Time
	Mode        Mode
	Model       string
	RunID       string
}

// Artifact is the persisted JSON form of a GenerationResult.
type Artifact struct {
	Source       string             `json:"source"`
	Metadata     ExtractionMetadata `json:"metadata"`
	QAPairs      []QAPair           `json:"qa_pairs"`
	GeneratedAt  string             `json:"generated_at"`
	TotalQAPairs int                `json:"total_qa_pairs"`
	Mode         Mode               `json:"mode"`
	Model        string             `json:"model,omitempty"`
	RunID        string             `json:"run_id,omitempty"`
}

// GeneratedAtLayout formats Artifact.GeneratedAt.
const GeneratedAtLayout = "20060102_150405"

// NewArtifact converts a result into its persisted form.
func NewArtifact(r GenerationResult) Artifact {
	pairs := r.Pairs
	if pairs == nil {
		pairs = []QAPair{}
	}
	return Artifact{
		Source:       r.Source,
		Metadata:     r.Metadata,
		QAPairs:      pairs,
		GeneratedAt:  r.GeneratedAt.Format(GeneratedAtLayout),
		TotalQAPairs: len(pairs),
		Mode:         r.Mode,
		Model:        r.Model,
		RunID:        r.RunID,
	}
}

// Stage names the pipeline stage a failure came from.
type Stage string

const (
	StageExtract  Stage = "extract"
	StageGenerate Stage = "generate"
	StageWrite    Stage = "write"
)

// FailureRecord is the terminal failure outcome of one source file.
type FailureRecord struct {
	Source    string
	Stage     Stage
	Reason    string
	Retryable bool
	At        time.Time
}

// RunSummary is returned by the orchestrator once every file has a terminal outcome.
type RunSummary struct {
	RunID      string
	Submitted  int
	Succeeded  int
	Failed     int
	TotalPairs int
	Artifacts  []string
	Failures   []FailureRecord
	ReportPath string
	Duration   time.Duration
}

// Document is the per-source record kept in the Firestore run ledger.
type Document struct {
	RunID        string             `firestore:"runId,omitempty"`
	SourceName   string             `firestore:"sourceName,omitempty"`
	FileHash     string             `firestore:"fileHash,omitempty"`
	Status       string             `firestore:"status,omitempty"`
	ErrorDetails string             `firestore:"errorDetails,omitempty"`
	ArtifactPath string             `firestore:"artifactPath,omitempty"`
	Metadata     ExtractionMetadata `firestore:"metadata,omitempty"`
	UpdatedAt    time.Time          `firestore:"updatedAt,omitempty"`
}
