package pipeline

// TranscriptionOutcome is either a transcript or the reason none exists.
type TranscriptionOutcome struct {
	available bool
	text      string
	audioPath string
	reason    string
}

// Transcribed builds a successful outcome.
func Transcribed(text, audioPath string) TranscriptionOutcome {
	return TranscriptionOutcome{available: true, text: text, audioPath: audioPath}
}

// Unavailable builds a degraded outcome.
func Unavailable(reason string) TranscriptionOutcome {
	return TranscriptionOutcome{reason: reason}
}

// Available reports whether a transcript exists.
func (o TranscriptionOutcome) Available() bool { return o.available }

// Text returns the transcript, empty when unavailable.
func (o TranscriptionOutcome) Text() string { return o.text }

// AudioPath returns the transcribed audio file.
func (o TranscriptionOutcome) AudioPath() string { return o.audioPath }

// Reason explains why no transcript exists.
func (o TranscriptionOutcome) Reason() string { return o.reason }
