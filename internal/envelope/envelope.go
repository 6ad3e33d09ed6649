package envelope

// The verification response stream is a sequence of newline-delimited JSON
// envelopes. A line is one of three shapes: a progress update, a terminal
// result, or an error. Errors do not terminate the stream; a result does.

type ProgressEvent struct {
	Progress int `json:"progress"`
}

type ResultEvent struct {
	Success    bool    `json:"success"`
	Similarity float64 `json:"similarity"`
	Output     string  `json:"output"`
}

type ErrorEvent struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Envelope is the decode-side union of the three line shapes. Pointer
// fields discriminate which shape a line carried.
type Envelope struct {
	Progress   *int     `json:"progress"`
	Success    *bool    `json:"success"`
	Similarity *float64 `json:"similarity"`
	Output     *string  `json:"output"`
	Error      string   `json:"error"`
	Details    string   `json:"details"`
}

func (e Envelope) IsProgress() bool {
	return e.Progress != nil
}

// IsTerminal reports whether this envelope carries the terminal decision.
func (e Envelope) IsTerminal() bool {
	return e.Success != nil
}

func (e Envelope) IsError() bool {
	return e.Error != ""
}

func (e Envelope) SimilarityValue() float64 {
	if e.Similarity == nil {
		return 0
	}
	return *e.Similarity
}
