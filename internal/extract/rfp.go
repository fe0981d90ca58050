package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// StructuredRFP is the extraction result. Every key is always present when
// encoded: optional values are null and lists are [] rather than null.
type StructuredRFP struct {
	Metadata     Metadata  `json:"metadata"`
	Sections     []Section `json:"sections"`
	Questions    []Item    `json:"questions"`
	Requirements []Item    `json:"requirements"`
}

type Metadata struct {
	Title                  string      `json:"title"`
	Issuer                 *string     `json:"issuer"`
	IssueDate              *string     `json:"issue_date"`
	DueDate                *string     `json:"due_date"`
	ContactInfo            ContactInfo `json:"contact_info"`
	SubmissionRequirements StringList  `json:"submission_requirements"`
}

type ContactInfo struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// Section is one node of the RFP outline. ParentID is nil for top-level
// sections. Keys the model adds beyond these are kept in Extra and encoded
// alongside them.
type Section struct {
	ID       ID
	Title    string
	ParentID *ID
	Content  string
	Level    Level
	Extra    map[string]json.RawMessage
}

func (s *Section) UnmarshalJSON(data []byte) error {
	fields, err := objectFields(data)
	if err != nil {
		return err
	}
	*s = Section{}
	if id := takeID(fields, "id"); id != nil {
		s.ID = *id
	}
	s.ParentID = takeID(fields, "parent_id")
	s.Title, _ = takeText(fields, "title")
	s.Content, _ = takeText(fields, "content")
	if raw, ok := fields["level"]; ok {
		if err := json.Unmarshal(raw, &s.Level); err != nil {
			return err
		}
		delete(fields, "level")
	}
	s.Extra = extraFields(fields)
	return nil
}

func (s Section) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(s.Extra, map[string]any{
		"id":        s.ID,
		"title":     s.Title,
		"parent_id": s.ParentID,
		"content":   s.Content,
		"level":     s.Level,
	})
}

// itemTextKeys are the keys models use for an item's wording, most
// preferred first.
var itemTextKeys = []string{"text", "question", "requirement", "description", "content"}

// Item is a question or requirement found in the RFP. Models sometimes emit
// a bare string instead of an object, or name the text "question" or
// "description"; all of these decode. Other keys are kept in Extra.
type Item struct {
	ID        *ID
	Text      string
	SectionID *ID
	Extra     map[string]json.RawMessage
}

func (it *Item) UnmarshalJSON(data []byte) error {
	*it = Item{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		text, ok := takeText(map[string]json.RawMessage{"text": data}, "text")
		if !ok {
			text = string(data)
		}
		it.Text = text
		return nil
	}
	fields, err := objectFields(data)
	if err != nil {
		return err
	}
	it.ID = takeID(fields, "id")
	it.SectionID = takeID(fields, "section_id")
	for _, key := range itemTextKeys {
		if text, ok := takeText(fields, key); ok && strings.TrimSpace(text) != "" {
			it.Text = text
			break
		}
	}
	it.Extra = extraFields(fields)
	return nil
}

func (it Item) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(it.Extra, map[string]any{
		"id":         it.ID,
		"text":       it.Text,
		"section_id": it.SectionID,
	})
}

// ID is a section or item identifier. It decodes from a JSON string or
// number and always encodes as a string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty id")
	}
	if string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*id = ID(strconv.FormatInt(i, 10))
		return nil
	}
	*id = ID(n.String())
	return nil
}

// Level is a section depth. It decodes from a JSON number or a numeric
// string; anything else decodes as 0 and is normalized to 1.
type Level int

func (l *Level) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(strings.Trim(strings.TrimSpace(string(data)), `"`))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*l = 0
		return nil
	}
	*l = Level(f)
	return nil
}

// StringList decodes from a JSON list or a single string. Non-string list
// elements are kept as their JSON text.
type StringList []string

func (sl *StringList) UnmarshalJSON(data []byte) error {
	*sl = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		fields := map[string]json.RawMessage{"v": data}
		if v, ok := takeText(fields, "v"); ok && strings.TrimSpace(v) != "" {
			*sl = StringList{v}
		}
		return nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	for _, raw := range raws {
		fields := map[string]json.RawMessage{"v": raw}
		if v, ok := takeText(fields, "v"); ok {
			if strings.TrimSpace(v) != "" {
				*sl = append(*sl, v)
			}
			continue
		}
		*sl = append(*sl, string(bytes.TrimSpace(raw)))
	}
	return nil
}

func objectFields(data []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	return fields, nil
}

// takeID removes key from fields and returns it as an ID. Values that are
// not a string or number stay in fields.
func takeID(fields map[string]json.RawMessage, key string) *ID {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	var id ID
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil
	}
	delete(fields, key)
	if id == "" {
		return nil
	}
	return &id
}

// takeText removes key from fields when it holds a string, number or bool
// and returns it as text. Null counts as empty text.
func takeText(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	var text string
	switch v := v.(type) {
	case nil:
	case string:
		text = v
	case float64, bool:
		text = string(bytes.TrimSpace(raw))
	default:
		return "", false
	}
	delete(fields, key)
	return text, true
}

func extraFields(fields map[string]json.RawMessage) map[string]json.RawMessage {
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// marshalWithExtra encodes known alongside extra; known keys win.
func marshalWithExtra(extra map[string]json.RawMessage, known map[string]any) ([]byte, error) {
	out := make(map[string]any, len(extra)+len(known))
	for k, v := range extra {
		out[k] = v
	}
	for k, v := range known {
		out[k] = v
	}
	return json.Marshal(out)
}

// normalize fills defaults so the result is fully populated.
func (r *StructuredRFP) normalize(defaultTitle string) {
	m := &r.Metadata
	m.Title = strings.TrimSpace(m.Title)
	if m.Title == "" {
		m.Title = defaultTitle
	}
	m.Issuer = nullIfBlank(m.Issuer)
	m.IssueDate = nullIfBlank(m.IssueDate)
	m.DueDate = nullIfBlank(m.DueDate)
	m.ContactInfo.Name = nullIfBlank(m.ContactInfo.Name)
	m.ContactInfo.Email = nullIfBlank(m.ContactInfo.Email)
	m.ContactInfo.Phone = nullIfBlank(m.ContactInfo.Phone)
	if m.SubmissionRequirements == nil {
		m.SubmissionRequirements = StringList{}
	}

	if r.Sections == nil {
		r.Sections = []Section{}
	}
	for i := range r.Sections {
		s := &r.Sections[i]
		if s.ID == "" {
			s.ID = ID(strconv.Itoa(i + 1))
		}
		if s.ParentID != nil && *s.ParentID == "" {
			s.ParentID = nil
		}
		if s.Level < 1 {
			s.Level = 1
		}
	}

	r.Questions = compactItems(r.Questions)
	r.Requirements = compactItems(r.Requirements)
}

// compactItems drops items that carry nothing at all and never returns nil.
func compactItems(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		it.Text = strings.TrimSpace(it.Text)
		if it.Text == "" && it.ID == nil && it.SectionID == nil && len(it.Extra) == 0 {
			continue
		}
		out = append(out, it)
	}
	return out
}

func nullIfBlank(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
