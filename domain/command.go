package domain

// Pagination defaults applied when a history request leaves them out.
const (
	DefaultPage     = 1
	DefaultPageSize = 50
)

type SendMessageCommand struct {
	SenderID   string
	ReceiverID string
	Content    string
	Type       MessageType
}

// Normalized returns the command with the default message type applied.
// An explicit unknown type is left alone so validation can reject it.
func (c SendMessageCommand) Normalized() SendMessageCommand {
	if c.Type == "" {
		c.Type = TypeText
	}
	return c
}

type HistoryCommand struct {
	UserID   string
	PeerID   string
	Page     int
	PageSize int
}

func (c HistoryCommand) Normalized() HistoryCommand {
	if c.Page < 1 {
		c.Page = DefaultPage
	}
	if c.PageSize < 1 {
		c.PageSize = DefaultPageSize
	}
	return c
}
