// Package catalog holds the fixed messages the call bell shows and the mapping from
// reply codes to messages.
package catalog

import "sort"

// MessageID names a fixed message.
type MessageID uint8

const (
	Default MessageID = iota
	IncomingCall
	NotAvailable
)

func (id MessageID) String() string {
	switch id {
	case Default:
		return "default"
	case IncomingCall:
		return "incoming-call"
	case NotAvailable:
		return "not-available"
	default:
		return "unknown"
	}
}

// ResponseCode is the single byte sent back by the remote party.
type ResponseCode byte

const (
	ResponseComing ResponseCode = 1
	ResponseWait   ResponseCode = 2
)

// Message is render-ready display content. Text is column data for graphic mode.
type Message struct {
	Label string
	Text  []byte
	X, Y  uint8
}

// Catalog maps message identifiers and reply codes to messages.
type Catalog struct {
	width     int
	messages  map[MessageID]Message
	responses map[ResponseCode]Message
}

// New creates an empty catalog for a panel width columns wide.
func New(width int) *Catalog {
	return &Catalog{
		width:     width,
		messages:  make(map[MessageID]Message),
		responses: make(map[ResponseCode]Message),
	}
}

// Stock returns the stock messages for a 100-column panel.
func Stock() *Catalog {
	c := New(100)
	c.Set(Default, "PUSH TO CALL", 0)
	c.Set(IncomingCall, "CALLING...", 0)
	c.Set(NotAvailable, "NOT AVAILABLE", 0)
	c.SetResponse(ResponseComing, "COMING NOW", 0)
	c.SetResponse(ResponseWait, "PLEASE WAIT", 0)
	return c
}

// Layout renders label centred on row y, dropping trailing glyphs that would not fit.
func (c *Catalog) Layout(label string, y uint8) Message {
	text := Render(label)
	for len(text) > c.width && len(label) > 0 {
		label = label[:len(label)-1]
		text = Render(label)
	}
	x := (c.width - len(text)) / 2
	return Message{Label: label, Text: text, X: uint8(x), Y: y}
}

// Set stores the message for id.
func (c *Catalog) Set(id MessageID, label string, y uint8) {
	c.messages[id] = c.Layout(label, y)
}

// SetResponse maps a reply code to a message.
func (c *Catalog) SetResponse(code ResponseCode, label string, y uint8) {
	c.responses[code] = c.Layout(label, y)
}

// Message returns the message for id.
func (c *Catalog) Message(id MessageID) (Message, bool) {
	m, ok := c.messages[id]
	return m, ok
}

// Response returns the message mapped to code. Unmapped codes report false.
func (c *Catalog) Response(code ResponseCode) (Message, bool) {
	m, ok := c.responses[code]
	return m, ok
}

// Codes returns the mapped reply codes in ascending order.
func (c *Catalog) Codes() []ResponseCode {
	codes := make([]ResponseCode, 0, len(c.responses))
	for code := range c.responses {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Width returns the panel width the catalog lays messages out for.
func (c *Catalog) Width() int {
	return c.width
}
