package webhook

// Inbound envelope sent by the WhatsApp Business API. Every webhook call
// carries object/entry/changes/value nesting; a single call may hold any mix
// of messages and delivery statuses.
type Envelope struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

type ChangeValue struct {
	MessagingProduct string    `json:"messaging_product"`
	Metadata         Metadata  `json:"metadata"`
	Contacts         []Contact `json:"contacts,omitempty"`
	Messages         []Message `json:"messages,omitempty"`
	Statuses         []Status  `json:"statuses,omitempty"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	Profile Profile `json:"profile"`
	WaID    string  `json:"wa_id"`
}

type Profile struct {
	Name string `json:"name"`
}

const (
	MessageTypeText        = "text"
	MessageTypeImage       = "image"
	MessageTypeVideo       = "video"
	MessageTypeDocument    = "document"
	MessageTypeAudio       = "audio"
	MessageTypeLocation    = "location"
	MessageTypeInteractive = "interactive"
)

type Message struct {
	From        string           `json:"from"`
	ID          string           `json:"id"`
	Timestamp   string           `json:"timestamp"`
	Type        string           `json:"type"`
	Text        *TextBody        `json:"text,omitempty"`
	Image       *MediaBody       `json:"image,omitempty"`
	Video       *MediaBody       `json:"video,omitempty"`
	Document    *MediaBody       `json:"document,omitempty"`
	Audio       *MediaBody       `json:"audio,omitempty"`
	Location    *LocationBody    `json:"location,omitempty"`
	Interactive *InteractiveBody `json:"interactive,omitempty"`
	Context     *ReplyContext    `json:"context,omitempty"`
}

// ReplyContext identifies the message a user is replying to.
type ReplyContext struct {
	From string `json:"from"`
	ID   string `json:"id"`
}

type TextBody struct {
	Body string `json:"body"`
}

type MediaBody struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type,omitempty"`
	Sha256   string `json:"sha256,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

type LocationBody struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
}

// InteractiveBody carries the user's selection from a list or button reply.
type InteractiveBody struct {
	Type        string            `json:"type"`
	ListReply   *InteractiveReply `json:"list_reply,omitempty"`
	ButtonReply *InteractiveReply `json:"button_reply,omitempty"`
}

type InteractiveReply struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ReplyID returns the selected row/button id, whichever variant is present.
func (b *InteractiveBody) ReplyID() string {
	if b == nil {
		return ""
	}
	if b.ListReply != nil {
		return b.ListReply.ID
	}
	if b.ButtonReply != nil {
		return b.ButtonReply.ID
	}
	return ""
}

type Status struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
}

// Outgoing payloads posted to the Graph API messages endpoint.

type outgoingTextMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             outgoingText `json:"text"`
}

type outgoingText struct {
	Body string `json:"body"`
}

func newOutgoingTextMessage(to string, body string) outgoingTextMessage {
	return outgoingTextMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             outgoingText{Body: body},
	}
}

// ListRow is one selectable row of an interactive list message.
type ListRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type outgoingInteractiveMessage struct {
	MessagingProduct string             `json:"messaging_product"`
	To               string             `json:"to"`
	Type             string             `json:"type"`
	Interactive      interactiveContent `json:"interactive"`
}

type interactiveContent struct {
	Type   string             `json:"type"`
	Header *interactiveHeader `json:"header,omitempty"`
	Body   outgoingText       `json:"body"`
	Action interactiveAction  `json:"action"`
}

type interactiveHeader struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type interactiveAction struct {
	Button   string               `json:"button"`
	Sections []interactiveSection `json:"sections"`
}

type interactiveSection struct {
	Title string    `json:"title,omitempty"`
	Rows  []ListRow `json:"rows"`
}

func newOutgoingListMessage(to string, header string, body string, button string, rows []ListRow) outgoingInteractiveMessage {
	return outgoingInteractiveMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive: interactiveContent{
			Type:   "list",
			Header: &interactiveHeader{Type: "text", Text: header},
			Body:   outgoingText{Body: body},
			Action: interactiveAction{
				Button:   button,
				Sections: []interactiveSection{{Rows: rows}},
			},
		},
	}
}

type outgoingDocumentMessage struct {
	MessagingProduct string          `json:"messaging_product"`
	To               string          `json:"to"`
	Type             string          `json:"type"`
	Document         documentContent `json:"document"`
}

type documentContent struct {
	ID       string `json:"id,omitempty"`
	Link     string `json:"link,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

func newOutgoingDocumentByID(to string, mediaID string, filename string) outgoingDocumentMessage {
	return outgoingDocumentMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "document",
		Document:         documentContent{ID: mediaID, Filename: filename},
	}
}

func newOutgoingDocumentByLink(to string, link string, filename string) outgoingDocumentMessage {
	return outgoingDocumentMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "document",
		Document:         documentContent{Link: link, Filename: filename},
	}
}

type outgoingTemplateMessage struct {
	MessagingProduct string          `json:"messaging_product"`
	To               string          `json:"to"`
	Type             string          `json:"type"`
	Template         templateContent `json:"template"`
}

type templateContent struct {
	Name       string              `json:"name"`
	Language   templateLanguage    `json:"language"`
	Components []templateComponent `json:"components,omitempty"`
}

type templateLanguage struct {
	Code string `json:"code"`
}

type templateComponent struct {
	Type       string              `json:"type"`
	Parameters []templateParameter `json:"parameters"`
}

type templateParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func newOutgoingTemplateMessage(to string, templateName string, bodyParams []string) outgoingTemplateMessage {
	msg := outgoingTemplateMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "template",
		Template: templateContent{
			Name:     templateName,
			Language: templateLanguage{Code: "es_MX"},
		},
	}
	if len(bodyParams) > 0 {
		params := make([]templateParameter, 0, len(bodyParams))
		for _, p := range bodyParams {
			params = append(params, templateParameter{Type: "text", Text: p})
		}
		msg.Template.Components = []templateComponent{{Type: "body", Parameters: params}}
	}
	return msg
}

// sendMessageResponse is the Graph API acknowledgement for a message send.
type sendMessageResponse struct {
	MessagingProduct string `json:"messaging_product"`
	Messages         []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type mediaUploadResponse struct {
	ID string `json:"id"`
}
