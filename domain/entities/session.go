package entities

// CaptureStatus represents the lifecycle of a recording attempt
type CaptureStatus string

const (
	CaptureStatusIdle       CaptureStatus = "idle"
	CaptureStatusListening  CaptureStatus = "listening"
	CaptureStatusProcessing CaptureStatus = "processing"
	CaptureStatusReady      CaptureStatus = "ready"
	CaptureStatusError      CaptureStatus = "error"
)

// SaveStatus is the inline status shown next to the save button
type SaveStatus string

const (
	SaveStatusNone   SaveStatus = ""
	SaveStatusSaving SaveStatus = "Saving..."
	SaveStatusSaved  SaveStatus = "Saved!"
	SaveStatusFailed SaveStatus = "Save failed."
)

// UpdateStatus is the inline status shown while saving an edit
type UpdateStatus string

const (
	UpdateStatusNone     UpdateStatus = ""
	UpdateStatusUpdating UpdateStatus = "Updating..."
	UpdateStatusUpdated  UpdateStatus = "Updated!"
	UpdateStatusFailed   UpdateStatus = "Error updating."
)

// CaptureSnapshot is a read-only copy of a capture session's state
type CaptureSnapshot struct {
	SessionID  string        `json:"session_id"`
	Epoch      uint64        `json:"epoch"`
	Status     CaptureStatus `json:"status"`
	Language   Language      `json:"language"`
	Fragments  []string      `json:"fragments,omitempty"`
	Interim    string        `json:"interim,omitempty"`
	Result     string        `json:"result,omitempty"`
	ErrorKind  string        `json:"error_kind,omitempty"`
	Error      string        `json:"error,omitempty"`
	SaveStatus SaveStatus    `json:"save_status,omitempty"`
	Busy       bool          `json:"busy"`
}

// CanStart reports whether the record control is enabled
func (s CaptureSnapshot) CanStart() bool {
	return !s.Busy && s.Status != CaptureStatusListening
}

// EditorSnapshot is a read-only copy of the draft selection and edit state
type EditorSnapshot struct {
	Selected     *DraftDocument `json:"selected,omitempty"`
	Editing      bool           `json:"editing"`
	EditText     string         `json:"edit_text,omitempty"`
	UpdateStatus UpdateStatus   `json:"update_status,omitempty"`
}
