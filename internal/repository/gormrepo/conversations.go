package gormrepo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"poholowani/internal/domain/entities"
	"poholowani/internal/repository"
)

// previewLength caps the denormalized last-message preview, in runes.
const previewLength = 100

// ConversationRepository stores conversations, their messages and the
// per-participant state.
type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) Create(ctx context.Context, conv *entities.Conversation) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		participants := []entities.Participant{
			{ConversationID: conv.ID, UserID: conv.OwnerID},
			{ConversationID: conv.ID, UserID: conv.CounterpartID},
		}
		return tx.Create(&participants).Error
	})
	if err != nil {
		return fmt.Errorf("gormrepo: create conversation: %w", translate(err))
	}
	return nil
}

func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*entities.Conversation, error) {
	var conv entities.Conversation
	if err := r.db.WithContext(ctx).First(&conv, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("gormrepo: get conversation %s: %w", id, translate(err))
	}
	return &conv, nil
}

func (r *ConversationRepository) Find(ctx context.Context, announcementID, counterpartID string) (*entities.Conversation, error) {
	var conv entities.Conversation
	err := r.db.WithContext(ctx).
		Where("announcement_id = ? AND counterpart_id = ?", announcementID, counterpartID).
		First(&conv).Error
	if err != nil {
		return nil, fmt.Errorf("gormrepo: find conversation: %w", translate(err))
	}
	return &conv, nil
}

// ListForUser returns the user's visible conversations, most recent
// activity first.
func (r *ConversationRepository) ListForUser(ctx context.Context, userID string) ([]entities.ConversationSummary, error) {
	db := r.db.WithContext(ctx)

	var parts []entities.Participant
	if err := db.Where("user_id = ? AND deleted = ?", userID, false).Find(&parts).Error; err != nil {
		return nil, fmt.Errorf("gormrepo: list conversations for %s: %w", userID, err)
	}
	if len(parts) == 0 {
		return []entities.ConversationSummary{}, nil
	}

	unread := make(map[string]int, len(parts))
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		unread[p.ConversationID] = p.UnreadCount
		ids = append(ids, p.ConversationID)
	}

	var convs []entities.Conversation
	if err := db.Where("id IN ?", ids).Find(&convs).Error; err != nil {
		return nil, fmt.Errorf("gormrepo: list conversations for %s: %w", userID, err)
	}

	out := make([]entities.ConversationSummary, 0, len(convs))
	for _, c := range convs {
		out = append(out, entities.ConversationSummary{Conversation: c, UnreadCount: unread[c.ID]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return lastActivity(out[i].Conversation).After(lastActivity(out[j].Conversation))
	})
	return out, nil
}

func lastActivity(c entities.Conversation) time.Time {
	if c.LastMessageAt != nil {
		return *c.LastMessageAt
	}
	return c.CreatedAt
}

func (r *ConversationRepository) Messages(ctx context.Context, conversationID string) ([]*entities.Message, error) {
	var msgs []*entities.Message
	if err := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID).
		Order("created_at ASC").Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("gormrepo: messages of %s: %w", conversationID, err)
	}
	return msgs, nil
}

func (r *ConversationRepository) AppendMessage(ctx context.Context, msg *entities.Message, recipientID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		if err := tx.Model(&entities.Conversation{}).Where("id = ?", msg.ConversationID).
			Updates(map[string]interface{}{
				"last_message":    preview(msg.Content),
				"last_message_at": msg.CreatedAt,
			}).Error; err != nil {
			return err
		}
		if err := tx.Model(&entities.Participant{}).Where("conversation_id = ?", msg.ConversationID).
			Update("deleted", false).Error; err != nil {
			return err
		}
		result := tx.Model(&entities.Participant{}).
			Where("conversation_id = ? AND user_id = ?", msg.ConversationID, recipientID).
			Update("unread_count", gorm.Expr("unread_count + 1"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("gormrepo: append message to %s: %w", msg.ConversationID, translate(err))
	}
	return nil
}

// MarkRead zeroes the user's unread counter, flags the peer's messages as
// read and advances the last-read pointer.
func (r *ConversationRepository) MarkRead(ctx context.Context, conversationID, userID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last entities.Message
		lastErr := tx.Where("conversation_id = ?", conversationID).
			Order("created_at DESC").First(&last).Error
		if lastErr != nil && !errors.Is(lastErr, gorm.ErrRecordNotFound) {
			return lastErr
		}

		updates := map[string]interface{}{"unread_count": 0}
		if lastErr == nil {
			updates["last_read_message_id"] = last.ID
		}
		result := tx.Model(&entities.Participant{}).
			Where("conversation_id = ? AND user_id = ?", conversationID, userID).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repository.ErrNotFound
		}

		return tx.Model(&entities.Message{}).
			Where("conversation_id = ? AND sender_id <> ? AND `read` = ?", conversationID, userID, false).
			Update("read", true).Error
	})
	if err != nil {
		return fmt.Errorf("gormrepo: mark %s read: %w", conversationID, translate(err))
	}
	return nil
}

// Hide soft-deletes the conversation for one participant only.
func (r *ConversationRepository) Hide(ctx context.Context, conversationID, userID string) error {
	result := r.db.WithContext(ctx).Model(&entities.Participant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Update("deleted", true)
	if result.Error != nil {
		return fmt.Errorf("gormrepo: hide %s: %w", conversationID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("gormrepo: hide %s: %w", conversationID, repository.ErrNotFound)
	}
	return nil
}

// UnreadCounts returns the per-conversation unread counters of the user's
// visible conversations.
func (r *ConversationRepository) UnreadCounts(ctx context.Context, userID string) (map[string]int, error) {
	var parts []entities.Participant
	if err := r.db.WithContext(ctx).Select("conversation_id", "unread_count").
		Where("user_id = ? AND deleted = ?", userID, false).Find(&parts).Error; err != nil {
		return nil, fmt.Errorf("gormrepo: unread counts for %s: %w", userID, err)
	}
	out := make(map[string]int, len(parts))
	for _, p := range parts {
		out[p.ConversationID] = p.UnreadCount
	}
	return out, nil
}

func preview(content string) string {
	if utf8.RuneCountInString(content) <= previewLength {
		return content
	}
	runes := []rune(content)
	return string(runes[:previewLength]) + "…"
}
