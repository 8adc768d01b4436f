package dispatch

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Discord wire types. Optional fields are omitted entirely rather than
// sent as null; Discord rejects explicit nulls in several positions.
type discordPayload struct {
	Content   string         `json:"content,omitempty"`
	Username  string         `json:"username,omitempty"`
	AvatarURL string         `json:"avatar_url,omitempty"`
	Embeds    []discordEmbed `json:"embeds,omitempty"`
}

type discordEmbed struct {
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	URL         string          `json:"url,omitempty"`
	Color       *int            `json:"color,omitempty"`
	Author      *discordAuthor  `json:"author,omitempty"`
	Footer      *discordFooter  `json:"footer,omitempty"`
	Thumbnail   *discordContent `json:"thumbnail,omitempty"`
	Image       *discordContent `json:"image,omitempty"`
	Fields      []discordField  `json:"fields,omitempty"`
	Timestamp   string          `json:"timestamp,omitempty"`
}

type discordAuthor struct {
	Name    string `json:"name"`
	IconURL string `json:"icon_url,omitempty"`
}

type discordFooter struct {
	Text    string `json:"text"`
	IconURL string `json:"icon_url,omitempty"`
}

type discordContent struct {
	URL string `json:"url"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// buildPayload converts a Request into the JSON body Discord expects.
func buildPayload(req Request) ([]byte, error) {
	p := discordPayload{
		Content:   req.Content,
		Username:  req.Username,
		AvatarURL: req.AvatarURL,
	}

	for _, e := range req.Embeds {
		de := discordEmbed{
			Title:       e.Title,
			Description: e.Description,
			URL:         e.URL,
			Timestamp:   e.Timestamp,
		}

		if e.Color != "" {
			c, err := parseHexColor(e.Color)
			if err != nil {
				return nil, fmt.Errorf("embed color: %w", err)
			}
			de.Color = &c
		}
		if e.Author != nil && e.Author.Name != "" {
			de.Author = &discordAuthor{Name: e.Author.Name, IconURL: e.Author.IconURL}
		}
		if e.Footer != nil && e.Footer.Text != "" {
			de.Footer = &discordFooter{Text: e.Footer.Text, IconURL: e.Footer.IconURL}
		}
		if e.Thumbnail != nil && e.Thumbnail.URL != "" {
			de.Thumbnail = &discordContent{URL: e.Thumbnail.URL}
		}
		if e.Image != nil && e.Image.URL != "" {
			de.Image = &discordContent{URL: e.Image.URL}
		}

		// Discord rejects fields with blank names or values.
		for _, f := range e.Fields {
			if f.Name == "" || f.Value == "" {
				continue
			}
			de.Fields = append(de.Fields, discordField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}

		p.Embeds = append(p.Embeds, de)
	}

	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshaling payload: %w", err)
	}
	return body, nil
}

// parseHexColor converts "#RRGGBB" or "RRGGBB" to Discord's integer color.
func parseHexColor(s string) (int, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return 0, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseInt(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid hex color %q", s)
	}
	return int(v), nil
}
