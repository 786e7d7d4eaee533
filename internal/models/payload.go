package models

// InputKind classifies the unified user_input field.
type InputKind string

const (
	InputText  InputKind = "text"
	InputURL   InputKind = "url"
	InputFile  InputKind = "file"
	InputMixed InputKind = "mixed"
)

// Payload is the normalized request content every collaborator reads.
type Payload struct {
	Mode        Mode      `json:"mode"`
	Kind        InputKind `json:"input_kind"`
	TextPrompt  string    `json:"text_prompt,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	URLs        []string  `json:"urls,omitempty"`
	Attachments []string  `json:"attachments,omitempty"`
	Keywords    []string  `json:"keywords,omitempty"`
}

// LanguageMetadata is the detected language of a payload.
type LanguageMetadata struct {
	Code       string  `json:"language_code"`
	Confidence float64 `json:"confidence"`
	Explicit   bool    `json:"explicit"`
	Preview    string  `json:"source_text_preview,omitempty"`
}

// ImageAttachments returns the attachments that are images, in order.
func (p Payload) ImageAttachments() []string {
	var out []string
	for _, a := range p.Attachments {
		if IsImageRef(a) {
			out = append(out, a)
		}
	}
	return out
}
