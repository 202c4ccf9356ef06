package dashscope

import (
	"bytes"
	"encoding/json"
	"strings"
)

type contentKind int

const (
	contentMissing contentKind = iota
	contentString
	contentSegments
	contentObject
	contentOther
)

// segment is one element of an array-shaped content payload.
type segment struct {
	Text string `json:"text"`
}

// content is the decoded form of output.choices[0].message.content.
type content struct {
	kind     contentKind
	str      string
	segments []segment
	object   map[string]any
	raw      json.RawMessage
}

func (c *content) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	c.raw = append(json.RawMessage(nil), trimmed...)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		c.kind = contentMissing
		return nil
	}
	switch trimmed[0] {
	case '"':
		c.kind = contentString
		return json.Unmarshal(trimmed, &c.str)
	case '[':
		c.kind = contentSegments
		if err := json.Unmarshal(trimmed, &c.segments); err != nil {
			// Arrays of non-objects still count as content; Text falls back
			// to the raw JSON.
			c.segments = nil
		}
		return nil
	case '{':
		c.kind = contentObject
		return json.Unmarshal(trimmed, &c.object)
	default:
		c.kind = contentOther
		return nil
	}
}

// Text reduces any content shape to the transcript text:
//   - a string is used verbatim, unless it is itself a JSON array whose first
//     element carries text
//   - an array yields its first element's text, else its JSON
//   - an object yields its text field, else its JSON
//   - anything else is rendered as is
func (c content) Text() string {
	switch c.kind {
	case contentString:
		if strings.HasPrefix(c.str, "[") {
			var nested []segment
			if err := json.Unmarshal([]byte(c.str), &nested); err == nil && len(nested) > 0 && nested[0].Text != "" {
				return nested[0].Text
			}
		}
		return c.str
	case contentSegments:
		if len(c.segments) > 0 && c.segments[0].Text != "" {
			return c.segments[0].Text
		}
		return string(c.raw)
	case contentObject:
		if text, ok := c.object["text"].(string); ok && text != "" {
			return text
		}
		return string(c.raw)
	case contentOther:
		return string(c.raw)
	default:
		return ""
	}
}
