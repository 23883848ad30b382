package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"poholowani/internal/domain/entities"
	"poholowani/internal/realtime"
	"poholowani/internal/repository"
	"poholowani/pkg/utils"
)

const startLockTTL = 5 * time.Second

// ConversationService runs the announcement chat. Every write that changes
// a participant row publishes an event on that user's participant topic so
// unread aggregators re-fetch.
type ConversationService struct {
	conversations repository.ConversationRepository
	announcements repository.AnnouncementRepository
	locks         repository.LockManager
	bus           realtime.Bus
	now           func() time.Time
}

func NewConversationService(
	conversations repository.ConversationRepository,
	announcements repository.AnnouncementRepository,
	locks repository.LockManager,
	bus realtime.Bus,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		announcements: announcements,
		locks:         locks,
		bus:           bus,
		now:           time.Now,
	}
}

// Start returns the conversation between userID and the announcement's
// owner, creating it on first contact. Concurrent starts for the same pair
// are serialized so exactly one conversation is created.
func (s *ConversationService) Start(ctx context.Context, userID, announcementID string) (*entities.Conversation, error) {
	if userID == "" {
		return nil, ErrLoginRequired
	}
	ann, err := s.announcements.GetByID(ctx, announcementID)
	if err != nil {
		return nil, err
	}
	if ann.UserID == userID {
		return nil, ErrSelfConversation
	}

	key := fmt.Sprintf("conversation:%s:%s", announcementID, userID)
	if err := s.acquire(ctx, key); err != nil {
		return nil, err
	}
	defer s.locks.ReleaseLock(context.Background(), key)

	conv, err := s.conversations.Find(ctx, announcementID, userID)
	if err == nil {
		return conv, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	conv = &entities.Conversation{
		ID:             utils.GenerateID(),
		AnnouncementID: announcementID,
		OwnerID:        ann.UserID,
		CounterpartID:  userID,
		CreatedAt:      s.now(),
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, err
	}
	log.Printf("[CONVERSATIONS] %s opened %s on announcement %s", userID, conv.ID, announcementID)
	s.publish(ctx, realtime.OpInsert, conv.ID, conv.OwnerID, conv.CounterpartID)
	return conv, nil
}

// acquire waits briefly for the start lock; two clicks on "contact" arrive
// within milliseconds of each other.
func (s *ConversationService) acquire(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, startLockTTL)
	defer cancel()
	for {
		ok, err := s.locks.AcquireLock(ctx, key, startLockTTL)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}
}

// List returns userID's visible conversations with unread counts.
func (s *ConversationService) List(ctx context.Context, userID string) ([]entities.ConversationSummary, error) {
	if userID == "" {
		return nil, ErrLoginRequired
	}
	return s.conversations.ListForUser(ctx, userID)
}

// Messages returns the thread, oldest first, to a participant.
func (s *ConversationService) Messages(ctx context.Context, userID, conversationID string) ([]*entities.Message, error) {
	if _, err := s.participant(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.conversations.Messages(ctx, conversationID)
}

// Send appends a message from userID. The recipient's unread counter goes
// up and the conversation reappears for anyone who had hidden it.
func (s *ConversationService) Send(ctx context.Context, userID, conversationID, content string) (*entities.Message, error) {
	conv, err := s.participant(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalid(ErrEmptyMessage)
	}

	msg := &entities.Message{
		ID:             utils.GenerateID(),
		ConversationID: conversationID,
		SenderID:       userID,
		Content:        content,
		CreatedAt:      s.now(),
	}
	recipient := conv.Peer(userID)
	if err := s.conversations.AppendMessage(ctx, msg, recipient); err != nil {
		return nil, err
	}
	s.publish(ctx, realtime.OpUpdate, conversationID, recipient, userID)
	return msg, nil
}

// MarkRead zeroes userID's unread counter for the conversation.
func (s *ConversationService) MarkRead(ctx context.Context, userID, conversationID string) error {
	if _, err := s.participant(ctx, userID, conversationID); err != nil {
		return err
	}
	if err := s.conversations.MarkRead(ctx, conversationID, userID); err != nil {
		return err
	}
	s.publish(ctx, realtime.OpUpdate, conversationID, userID)
	return nil
}

// Hide removes the conversation from userID's list until the next message.
func (s *ConversationService) Hide(ctx context.Context, userID, conversationID string) error {
	if _, err := s.participant(ctx, userID, conversationID); err != nil {
		return err
	}
	if err := s.conversations.Hide(ctx, conversationID, userID); err != nil {
		return err
	}
	s.publish(ctx, realtime.OpUpdate, conversationID, userID)
	return nil
}

// UnreadTotal sums userID's unread counters over visible conversations.
func (s *ConversationService) UnreadTotal(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrLoginRequired
	}
	counts, err := s.conversations.UnreadCounts(ctx, userID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return total, nil
}

// UnreadCounts implements realtime.UnreadSource.
func (s *ConversationService) UnreadCounts(ctx context.Context, userID string) (map[string]int, error) {
	return s.conversations.UnreadCounts(ctx, userID)
}

func (s *ConversationService) participant(ctx context.Context, userID, conversationID string) (*entities.Conversation, error) {
	if userID == "" {
		return nil, ErrLoginRequired
	}
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrNotAuthorized
	}
	return conv, nil
}

func (s *ConversationService) publish(ctx context.Context, op realtime.Operation, conversationID string, userIDs ...string) {
	if s.bus == nil {
		return
	}
	for _, uid := range userIDs {
		ev := realtime.Event{
			Topic:    realtime.ParticipantTopic(uid),
			Table:    "participants",
			Op:       op,
			RecordID: conversationID,
			At:       s.now(),
		}
		if err := s.bus.Publish(ctx, ev); err != nil {
			log.Printf("[REALTIME] Publish to %s failed: %v", ev.Topic, err)
		}
	}
}
