package entities

import "time"

// Conversation links an announcement's owner with one interested user.
// LastMessage/LastMessageAt are denormalized for list rendering.
type Conversation struct {
	ID             string     `gorm:"primaryKey;size:36" json:"id"`
	AnnouncementID string     `gorm:"size:36;not null;uniqueIndex:idx_conversation_pair" json:"announcement_id"`
	OwnerID        string     `gorm:"size:36;not null;index" json:"owner_id"`
	CounterpartID  string     `gorm:"size:36;not null;uniqueIndex:idx_conversation_pair;index" json:"counterpart_id"`
	LastMessage    string     `gorm:"size:255" json:"last_message"`
	LastMessageAt  *time.Time `gorm:"index" json:"last_message_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Peer returns the other participant of the conversation.
func (c *Conversation) Peer(userID string) string {
	if userID == c.OwnerID {
		return c.CounterpartID
	}
	return c.OwnerID
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	return userID != "" && (userID == c.OwnerID || userID == c.CounterpartID)
}

// Message is one chat message. Append-only from the client's perspective;
// only the read flag changes after insert.
type Message struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	ConversationID string    `gorm:"size:36;not null;index" json:"conversation_id"`
	SenderID       string    `gorm:"size:36;not null" json:"sender_id"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	Read           bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

// Participant is the per-user state of a conversation: unread counter,
// soft-delete flag and last-read pointer.
type Participant struct {
	ConversationID    string    `gorm:"primaryKey;size:36" json:"conversation_id"`
	UserID            string    `gorm:"primaryKey;size:36;index" json:"user_id"`
	UnreadCount       int       `gorm:"not null;default:0" json:"unread_count"`
	Deleted           bool      `gorm:"not null;default:false" json:"deleted"`
	LastReadMessageID *string   `gorm:"size:36" json:"last_read_message_id"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ConversationSummary is a conversation as seen by one participant.
type ConversationSummary struct {
	Conversation
	UnreadCount int `json:"unread_count"`
}
