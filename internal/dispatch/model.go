// Package dispatch sends composed messages to Discord webhook endpoints
// and records an audit entry for every attempt.
package dispatch

// Request is a composed webhook message bound for a Discord endpoint.
type Request struct {
	WebhookURL string  `json:"webhookUrl"`
	Content    string  `json:"content,omitempty"`
	Username   string  `json:"username,omitempty"`
	AvatarURL  string  `json:"avatar_url,omitempty"`
	Embeds     []Embed `json:"embeds,omitempty"`
}

// Embed is a rich-content block. Color is a hex string ("#5865F2" or
// "5865F2") and is converted to Discord's integer form on send.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       string       `json:"color,omitempty"`
	Author      *EmbedAuthor `json:"author,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Thumbnail   *EmbedMedia  `json:"thumbnail,omitempty"`
	Image       *EmbedMedia  `json:"image,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// EmbedAuthor names the embed's author line.
type EmbedAuthor struct {
	Name    string `json:"name"`
	IconURL string `json:"icon_url,omitempty"`
}

// EmbedFooter is the embed's footer line.
type EmbedFooter struct {
	Text    string `json:"text"`
	IconURL string `json:"icon_url,omitempty"`
}

// EmbedMedia is an image or thumbnail reference.
type EmbedMedia struct {
	URL string `json:"url"`
}

// EmbedField is one name/value pair in an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Dispatch outcomes as recorded in the audit log.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// Result is the normalized outcome of one dispatch attempt.
type Result struct {
	Success bool `json:"success"`
	// Outcome is success, failure (provider rejected), or error (transport).
	Outcome string `json:"outcome"`
	// StatusCode is the provider's HTTP status; zero when the request
	// never reached the provider.
	StatusCode int    `json:"statusCode,omitempty"`
	Message    string `json:"message"`
}
