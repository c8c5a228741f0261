package tutorapi

// Correction is one grammar or usage fix the tutor found in the utterance.
type Correction struct {
	Type              string `json:"type"`
	UserSentence      string `json:"user_sentence"`
	CorrectedSentence string `json:"corrected_sentence"`
	Explanation       string `json:"explanation"`
}

// TutorVoiceResult is one completed voice turn.
type TutorVoiceResult struct {
	Transcript   string       `json:"transcript"`
	TutorMessage string       `json:"tutor_message"`
	Corrections  []Correction `json:"corrections"`
	MicroTask    string       `json:"micro_task,omitempty"`
	AudioBase64  string       `json:"audio_base64,omitempty"`
	SessionID    string       `json:"session_id"`

	// Status is the HTTP status the backend answered with.
	Status int `json:"-"`
}

// HasAudio reports whether the tutor returned synthesized speech.
func (r TutorVoiceResult) HasAudio() bool {
	return r.AudioBase64 != ""
}

// voiceResponse is the wire shape of POST /api/tutor/voice.
type voiceResponse struct {
	Transcript    string `json:"transcript"`
	TutorResponse struct {
		Message   string       `json:"message"`
		Errors    []Correction `json:"errors"`
		MicroTask *string      `json:"micro_task"`
	} `json:"tutor_response"`
	AudioBase64 *string `json:"audio_base64"`
	SessionID   *string `json:"session_id"`
}

func (r voiceResponse) result() TutorVoiceResult {
	out := TutorVoiceResult{
		Transcript:   r.Transcript,
		TutorMessage: r.TutorResponse.Message,
		Corrections:  r.TutorResponse.Errors,
	}
	if out.Corrections == nil {
		out.Corrections = []Correction{}
	}
	if r.TutorResponse.MicroTask != nil {
		out.MicroTask = *r.TutorResponse.MicroTask
	}
	if r.AudioBase64 != nil {
		out.AudioBase64 = *r.AudioBase64
	}
	if r.SessionID != nil {
		out.SessionID = *r.SessionID
	}
	return out
}
