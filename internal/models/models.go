package models

// Message types exchanged with clients
const (
	MessageToast  = "toast"
	MessageRow    = "row"
	MessageQuotes = "quotes"
	MessageToggle = "toggle"
)

// Message represents a WebSocket message
type Message struct {
	Type    string      `json:"type"`
	Content interface{} `json:"content"`
}

// Notification is a toast shown to the user. Level is "success" or "error".
type Notification struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Event is published when something happens that other processes may react
// to, such as a new account being created.
type Event struct {
	Name string      `json:"name"`
	Data interface{} `json:"data"`
}
