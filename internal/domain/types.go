package domain

// FileStatus is the processing state of one entry in the file table.
type FileStatus string

const (
	FileStatusNotStarted FileStatus = "not_started"
	FileStatusInProgress FileStatus = "in_progress"
	FileStatusDone       FileStatus = "done"
	FileStatusError      FileStatus = "error"
)

// Label returns the human-readable status text shown in the file table.
func (s FileStatus) Label() string {
	switch s {
	case FileStatusNotStarted:
		return "Not Started"
	case FileStatusInProgress:
		return "In Progress"
	case FileStatusDone:
		return "Done"
	case FileStatusError:
		return "Error"
	default:
		return string(s)
	}
}

// FileEntry is one row of the file status registry.
type FileEntry struct {
	Path    string     `json:"path"`
	Name    string     `json:"name"`
	Status  FileStatus `json:"status"`
	Message string     `json:"message,omitempty"`
}

// Mode selects plain transcription or translation to English.
type Mode string

const (
	ModeTranscribe Mode = "transcribe"
	ModeTranslate  Mode = "translate"
)

// Settings contains user preferences re-applied at next startup.
type Settings struct {
	Model       string `json:"model"`
	Device      string `json:"device"`
	Language    string `json:"language"`
	Diarization bool   `json:"diarization"`
	OutputDir   string `json:"outputDir"`
}

// JobKind names a worker slot that allows one live job at a time.
type JobKind string

const (
	JobKindTranscription JobKind = "transcription"
	JobKindDownload      JobKind = "download"
)

// JobStatus tracks the lifecycle of one background job.
type JobStatus string

const (
	JobStatusIdle      JobStatus = "idle"
	JobStatusRunning   JobStatus = "running"
	JobStatusDone      JobStatus = "done"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Job stores the current job identity and lifecycle status.
type Job struct {
	ID     string    `json:"id"`
	Kind   JobKind   `json:"kind"`
	Target string    `json:"target,omitempty"`
	Status JobStatus `json:"status"`
}
