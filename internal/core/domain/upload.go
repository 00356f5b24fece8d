package domain

// UploadPhase is the state of the two-step upload saga: the file is first
// processed by the backend, then registered in the metadata store.
type UploadPhase string

const (
	UploadIdle        UploadPhase = "idle"
	UploadProcessing  UploadPhase = "processing"
	UploadRegistering UploadPhase = "registering"
	UploadDone        UploadPhase = "done"
	UploadFailed      UploadPhase = "failed"
)

// UploadFailure tells which step of the saga failed.
type UploadFailure string

const (
	FailureNone UploadFailure = ""
	// FailureValidation means nothing was sent: no file was selected or an
	// upload was already in flight.
	FailureValidation UploadFailure = "validation"
	// FailureProcessing means the backend rejected or never received the
	// file. No metadata was written.
	FailureProcessing UploadFailure = "processing"
	// FailureRegistering means the backend holds vectors for the file but
	// the metadata record could not be written. Nothing reconciles this.
	FailureRegistering UploadFailure = "registering"
)

var uploadTransitions = map[UploadPhase][]UploadPhase{
	UploadIdle:        {UploadProcessing, UploadFailed},
	UploadProcessing:  {UploadRegistering, UploadFailed},
	UploadRegistering: {UploadDone, UploadFailed},
	UploadDone:        {UploadIdle},
	UploadFailed:      {UploadIdle},
}

// CanTransition reports whether the saga may move from one phase to another.
func (p UploadPhase) CanTransition(to UploadPhase) bool {
	for _, allowed := range uploadTransitions[p] {
		if allowed == to {
			return true
		}
	}
	return false
}

// UploadOutcome is the terminal result of one upload attempt.
type UploadOutcome struct {
	Phase   UploadPhase     `json:"phase"`
	Failure UploadFailure   `json:"failure,omitempty"`
	Notice  Notice          `json:"notice"`
	Record  *DocumentRecord `json:"record,omitempty"`
	Err     error           `json:"-"`
}

const (
	UploadNoFileMessage      = "Please select a file first."
	UploadBusyMessage        = "An upload is already in progress."
	UploadProgressMessage    = "Uploading and processing..."
	UploadRejectedMessage    = "Error processing file."
	UploadUnreachableMessage = "An error occurred during upload. Is the backend server running?"
)

// DeleteOutcome is the result of one deletion request. A deleted record only
// leaves the registry: vectors held by the processing backend stay.
type DeleteOutcome struct {
	Confirmed bool  `json:"confirmed"`
	Deleted   bool  `json:"deleted"`
	Err       error `json:"-"`
}

// SummaryOutcome is what the summarization trigger presents to the user.
type SummaryOutcome struct {
	Filename string `json:"filename"`
	Summary  string `json:"summary,omitempty"`
	Notice   Notice `json:"notice"`
	Err      error  `json:"-"`
}

const (
	SummaryBusyMessage        = "A summary is already being generated."
	SummaryUnreachableMessage = "Error connecting to the backend for summarization."
)

// DeletePrompt is the confirmation question asked before a record is removed.
func DeletePrompt(filename string) string {
	return "Are you sure you want to delete " + filename + "? This will remove it from the database."
}
